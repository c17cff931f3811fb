// Package recommend picks the task to work on next under one of five
// strategies. Selection is deterministic; only the rationale wording may come
// from the AI model.
package recommend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tomanage/internal/enrichment"
	"tomanage/internal/models"
)

type Method string

const (
	MethodSmart      Method = "smart"
	MethodEnergy     Method = "energy"
	MethodQuick      Method = "quick"
	MethodEisenhower Method = "eisenhower"
	MethodFocus      Method = "focus"
)

var Methods = []Method{MethodSmart, MethodEnergy, MethodQuick, MethodEisenhower, MethodFocus}

func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return MethodSmart, nil
	}
	for _, v := range Methods {
		if v == m {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown recommendation method %q", models.ErrValidation, s)
}

const (
	quickWinMaxMinutes = 30
	deepWorkMinMinutes = 60
)

// Matrix is the Eisenhower classification of a task set.
type Matrix struct {
	UrgentImportant    []models.Task `json:"urgentImportant"`
	ImportantNotUrgent []models.Task `json:"importantNotUrgent"`
	UrgentNotImportant []models.Task `json:"urgentNotImportant"`
	Neither            []models.Task `json:"neither"`
}

type Quadrant int

const (
	QuadrantUrgentImportant Quadrant = iota + 1
	QuadrantImportantNotUrgent
	QuadrantUrgentNotImportant
	QuadrantNeither
)

func (q Quadrant) String() string {
	switch q {
	case QuadrantUrgentImportant:
		return "Urgent & Important"
	case QuadrantImportantNotUrgent:
		return "Important, Not Urgent"
	case QuadrantUrgentNotImportant:
		return "Urgent, Not Important"
	}
	return "Neither Urgent nor Important"
}

// Classify places a task in exactly one quadrant. Urgency overdue, critical
// and today counts as urgent; priority high and medium counts as important.
func Classify(t models.Task) Quadrant {
	urgent, important := t.Urgency.Pressing(), t.Priority.Important()
	switch {
	case urgent && important:
		return QuadrantUrgentImportant
	case important:
		return QuadrantImportantNotUrgent
	case urgent:
		return QuadrantUrgentNotImportant
	}
	return QuadrantNeither
}

func Eisenhower(tasks []models.Task) Matrix {
	m := Matrix{
		UrgentImportant:    []models.Task{},
		ImportantNotUrgent: []models.Task{},
		UrgentNotImportant: []models.Task{},
		Neither:            []models.Task{},
	}
	for _, t := range tasks {
		switch Classify(t) {
		case QuadrantUrgentImportant:
			m.UrgentImportant = append(m.UrgentImportant, t)
		case QuadrantImportantNotUrgent:
			m.ImportantNotUrgent = append(m.ImportantNotUrgent, t)
		case QuadrantUrgentNotImportant:
			m.UrgentNotImportant = append(m.UrgentNotImportant, t)
		default:
			m.Neither = append(m.Neither, t)
		}
	}
	return m
}

// ByEnergy buckets tasks by required energy. Tasks without a level are left out.
func ByEnergy(tasks []models.Task) map[models.EnergyLevel][]models.Task {
	out := map[models.EnergyLevel][]models.Task{
		models.EnergyLow:    {},
		models.EnergyMedium: {},
		models.EnergyHigh:   {},
	}
	for _, t := range tasks {
		if t.EnergyRequired.Valid() {
			out[t.EnergyRequired] = append(out[t.EnergyRequired], t)
		}
	}
	return out
}

// QuickWins keeps tasks of at most 30 minutes needing low or medium energy,
// ordered by priority then shortest first.
func QuickWins(tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.EstimatedDuration <= quickWinMaxMinutes &&
			(t.EnergyRequired == models.EnergyLow || t.EnergyRequired == models.EnergyMedium) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return durationOr(a, quickWinMaxMinutes) < durationOr(b, quickWinMaxMinutes)
	})
	return out
}

// DeepWork keeps long, high-energy, important tasks ordered by priority then
// urgency severity.
func DeepWork(tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.EstimatedDuration >= deepWorkMinMinutes &&
			t.EnergyRequired == models.EnergyHigh &&
			t.Priority.Important() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.Urgency.Rank() < b.Urgency.Rank()
	})
	return out
}

// SmartPick returns the first overdue or critical task, or the first task.
func SmartPick(tasks []models.Task) (models.Task, bool) {
	if len(tasks) == 0 {
		return models.Task{}, false
	}
	for _, t := range tasks {
		if t.Urgency == models.UrgencyOverdue || t.Urgency == models.UrgencyCritical {
			return t, true
		}
	}
	return tasks[0], true
}

// Ranked orders tasks by urgency severity then priority.
func Ranked(tasks []models.Task) []models.Task {
	out := append([]models.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Urgency.Rank() != b.Urgency.Rank() {
			return a.Urgency.Rank() < b.Urgency.Rank()
		}
		return a.Priority.Rank() < b.Priority.Rank()
	})
	return out
}

func durationOr(t models.Task, fallback int) int {
	if t.EstimatedDuration > 0 {
		return t.EstimatedDuration
	}
	return fallback
}

// Selection is the deterministic outcome of a strategy.
type Selection struct {
	Method     Method                               `json:"method"`
	Energy     models.EnergyLevel                   `json:"energy"`
	Pending    []models.Task                        `json:"-"`
	Candidates []models.Task                        `json:"candidates"`
	Task       *models.Task                         `json:"task,omitempty"`
	Matrix     *Matrix                              `json:"matrix,omitempty"`
	Buckets    map[models.EnergyLevel][]models.Task `json:"-"`
	Workload   *enrichment.Workload                 `json:"workload,omitempty"`
}

// Empty reports whether the strategy found nothing to recommend.
func (s Selection) Empty() bool { return s.Task == nil }

// Select enriches tasks, keeps the incomplete ones and applies the strategy.
func Select(method Method, tasks []models.Task, cctx models.CurrentContext, now time.Time) Selection {
	pending := models.Incomplete(enrichment.EnrichAll(tasks, now))
	sel := Selection{Method: method, Energy: cctx.Energy(), Pending: pending}
	if len(pending) == 0 {
		return sel
	}

	switch method {
	case MethodEnergy:
		sel.Buckets = ByEnergy(pending)
		sel.Candidates = sel.Buckets[sel.Energy]
	case MethodQuick:
		sel.Candidates = QuickWins(pending)
	case MethodEisenhower:
		m := Eisenhower(pending)
		sel.Matrix = &m
		sel.Candidates = m.UrgentImportant
	case MethodFocus:
		sel.Candidates = DeepWork(pending)
	default:
		sel.Method = MethodSmart
		w := enrichment.AnalyzeWorkload(pending, now)
		sel.Workload = &w
		if pick, ok := SmartPick(pending); ok {
			sel.Task = &pick
		}
		sel.Candidates = Ranked(pending)
		return sel
	}

	if len(sel.Candidates) > 0 {
		pick := sel.Candidates[0]
		sel.Task = &pick
	}
	return sel
}
