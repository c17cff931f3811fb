// Package enrichment derives urgency, energy, context and duration for tasks
// that do not carry them explicitly.
package enrichment

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tomanage/internal/models"
)

var highEnergyKeywords = []string{
	"implement", "architecture", "design", "refactor", "optimize", "complex", "investigate",
	"debug", "research", "build", "create", "develop", "algorithm", "system",
}

var lowEnergyKeywords = []string{
	"review", "update", "organize", "schedule", "reply", "read", "check",
	"quick", "simple", "easy", "delete", "cleanup", "format", "typo",
}

type contextRule struct {
	context  models.ContextType
	keywords []string
}

// Checked in order; the first rule with any hit wins.
var contextRules = []contextRule{
	{models.ContextFrontend, []string{"react", "ui", "frontend", "component", "css", "html", "style", "view", "page", "interface", "button", "form"}},
	{models.ContextBackend, []string{"api", "backend", "database", "server", "endpoint", "service", "model", "query", "migration", "auth"}},
	{models.ContextInterview, []string{"interview", "leetcode", "dsa", "system design", "coding challenge", "practice", "algorithm", "preparation"}},
	{models.ContextMeeting, []string{"meeting", "standup", "sync", "call", "discussion", "presentation", "1:1", "one-on-one"}},
	{models.ContextReview, []string{"review", "pr", "code review", "feedback", "pull request", "merge", "approve"}},
	{models.ContextPlanning, []string{"plan", "planning", "roadmap", "strategy", "brainstorm", "design doc", "spec", "requirements"}},
	{models.ContextLearning, []string{"learn", "study", "tutorial", "course", "training", "documentation", "reading", "workshop"}},
	{models.ContextAdmin, []string{"admin", "email", "expense", "schedule", "calendar", "invoice", "timesheet", "paperwork"}},
}

type durationRow struct{ high, medium, low int }

var durationTable = map[models.ContextType]durationRow{
	models.ContextFrontend:  {120, 60, 30},
	models.ContextBackend:   {150, 90, 45},
	models.ContextInterview: {90, 60, 30},
	models.ContextMeeting:   {60, 45, 30},
	models.ContextReview:    {60, 40, 20},
	models.ContextPlanning:  {90, 60, 30},
	models.ContextLearning:  {120, 90, 45},
	models.ContextAdmin:     {45, 30, 15},
	models.ContextGeneral:   {90, 60, 30},
}

var durationPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(h|hr|hour|m|min|minute)s?`)

// ComputeUrgency buckets the due date relative to now. Checks run from the
// most severe bucket down and the first match wins.
func ComputeUrgency(t models.Task, now time.Time) models.Urgency {
	if t.DueDate == nil {
		return models.UrgencyNone
	}
	due := *t.DueDate
	if due.Before(now) {
		return models.UrgencyOverdue
	}
	until := due.Sub(now)
	if int(until/time.Hour) <= 4 {
		return models.UrgencyCritical
	}
	if due.Before(endOfDay(now)) {
		return models.UrgencyToday
	}
	if due.Before(endOfDay(now.AddDate(0, 0, 1))) {
		return models.UrgencyTomorrow
	}
	if int(until/(24*time.Hour)) <= 7 {
		return models.UrgencyThisWeek
	}
	return models.UrgencyFuture
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// InferEnergy compares how many high and low effort keywords appear in the
// title and description. Ties resolve to medium.
func InferEnergy(t models.Task) models.EnergyLevel {
	text := strings.ToLower(t.Title + " " + t.Description)
	high := countHits(text, highEnergyKeywords)
	low := countHits(text, lowEnergyKeywords)
	switch {
	case high > low:
		return models.EnergyHigh
	case low > high:
		return models.EnergyLow
	}
	return models.EnergyMedium
}

func countHits(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

// InferContext returns the first context whose keywords occur in the title,
// description or tags.
func InferContext(t models.Task) models.ContextType {
	text := strings.ToLower(t.Title + " " + t.Description + " " + strings.Join(t.Tags, " "))
	for _, rule := range contextRules {
		for _, k := range rule.keywords {
			if strings.Contains(text, k) {
				return rule.context
			}
		}
	}
	return models.ContextGeneral
}

// ParseDuration reads the first "1.5h", "45 min" style value out of s.
func ParseDuration(s string) (int, bool) {
	m := durationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "h") {
		v *= 60
	}
	return int(math.Round(v)), true
}

// EstimateDuration prefers an explicit duration in the tags, then in the
// description, then the table entry for the task's context and energy.
func EstimateDuration(t models.Task) int {
	for _, tag := range t.Tags {
		if d, ok := ParseDuration(tag); ok {
			return d
		}
	}
	if t.Description != "" {
		if d, ok := ParseDuration(t.Description); ok {
			return d
		}
	}
	energy, ctx := t.EnergyRequired, t.ContextType
	if !energy.Valid() {
		energy = InferEnergy(t)
	}
	if !ctx.Valid() {
		ctx = InferContext(t)
	}
	return TableDuration(ctx, energy)
}

// TableDuration looks up the default minutes for a context and energy level.
// Contexts without a row (architecture) use the general row.
func TableDuration(ctx models.ContextType, energy models.EnergyLevel) int {
	row, ok := durationTable[ctx]
	if !ok {
		row = durationTable[models.ContextGeneral]
	}
	switch energy {
	case models.EnergyHigh:
		return row.high
	case models.EnergyLow:
		return row.low
	}
	return row.medium
}

// Enrich fills whatever is missing. Urgency is always recomputed because it
// depends on now; every other field is only set when absent, so Enrich is
// idempotent for a fixed now.
func Enrich(t models.Task, now time.Time) models.Task {
	t.Urgency = ComputeUrgency(t, now)
	if !t.EnergyRequired.Valid() {
		t.EnergyRequired = InferEnergy(t)
	}
	if !t.ContextType.Valid() {
		t.ContextType = InferContext(t)
	}
	if t.EstimatedDuration <= 0 {
		t.EstimatedDuration = EstimateDuration(t)
	}
	return t
}

func EnrichAll(tasks []models.Task, now time.Time) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = Enrich(t, now)
	}
	return out
}
