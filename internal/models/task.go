// internal/models/task.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the derived pending/completed view used by some wire formats.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities high first. Unknown values sort with none.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Important reports whether the priority counts as important in the Eisenhower sense.
func (p Priority) Important() bool {
	return p == PriorityHigh || p == PriorityMedium
}

type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

func (e EnergyLevel) Valid() bool {
	switch e {
	case EnergyLow, EnergyMedium, EnergyHigh:
		return true
	}
	return false
}

type ContextType string

const (
	ContextFrontend     ContextType = "frontend"
	ContextBackend      ContextType = "backend"
	ContextInterview    ContextType = "interview"
	ContextMeeting      ContextType = "meeting"
	ContextReview       ContextType = "review"
	ContextPlanning     ContextType = "planning"
	ContextLearning     ContextType = "learning"
	ContextAdmin        ContextType = "admin"
	ContextArchitecture ContextType = "architecture"
	ContextGeneral      ContextType = "general"
)

func (c ContextType) Valid() bool {
	switch c {
	case ContextFrontend, ContextBackend, ContextInterview, ContextMeeting, ContextReview,
		ContextPlanning, ContextLearning, ContextAdmin, ContextArchitecture, ContextGeneral:
		return true
	}
	return false
}

type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyCritical Urgency = "critical"
	UrgencyToday    Urgency = "today"
	UrgencyTomorrow Urgency = "tomorrow"
	UrgencyThisWeek Urgency = "this-week"
	UrgencyFuture   Urgency = "future"
	UrgencyNone     Urgency = "none"
)

// Urgencies lists every urgency bucket in descending severity.
var Urgencies = []Urgency{
	UrgencyOverdue, UrgencyCritical, UrgencyToday, UrgencyTomorrow,
	UrgencyThisWeek, UrgencyFuture, UrgencyNone,
}

// Rank orders urgencies by severity, overdue first. Unset sorts with none.
func (u Urgency) Rank() int {
	for i, v := range Urgencies {
		if v == u {
			return i
		}
	}
	return len(Urgencies) - 1
}

// Pressing reports whether the urgency counts as urgent in the Eisenhower sense.
func (u Urgency) Pressing() bool {
	return u == UrgencyOverdue || u == UrgencyCritical || u == UrgencyToday
}

// Category is the coarse work/personal classification kept alongside ContextType.
type Category string

const (
	CategoryWork      Category = "work"
	CategoryPersonal  Category = "personal"
	CategoryInterview Category = "interview"
	CategoryLearning  Category = "learning"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryInterview, CategoryLearning:
		return true
	}
	return false
}

// Task is the canonical task record. Zero values of the optional enum fields
// and a zero EstimatedDuration mean "not known yet".
type Task struct {
	ID                string      `json:"id"`
	Title             string      `json:"title"`
	Description       string      `json:"description,omitempty"`
	Completed         bool        `json:"completed"`
	Priority          Priority    `json:"priority"`
	Tags              []string    `json:"tags"`
	DueDate           *time.Time  `json:"dueDate,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	CompletedAt       *time.Time  `json:"completedAt,omitempty"`
	EnergyRequired    EnergyLevel `json:"energyRequired,omitempty"`
	EstimatedDuration int         `json:"estimatedDuration,omitempty"` // minutes
	ContextType       ContextType `json:"contextType,omitempty"`
	Urgency           Urgency     `json:"urgency,omitempty"`
	Category          Category    `json:"category,omitempty"`
	ExternalID        string      `json:"externalId,omitempty"`
	ExternalProjectID string      `json:"externalProjectId,omitempty"`
	Synced            bool        `json:"synced"`
}

func (t Task) Status() TaskStatus {
	if t.Completed {
		return StatusCompleted
	}
	return StatusPending
}

// Validate checks the fields a schema-checked entry point insists on.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if t.Priority != "" && !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, t.Priority)
	}
	if t.EnergyRequired != "" && !t.EnergyRequired.Valid() {
		return fmt.Errorf("%w: unknown energy level %q", ErrValidation, t.EnergyRequired)
	}
	if t.ContextType != "" && !t.ContextType.Valid() {
		return fmt.Errorf("%w: unknown context type %q", ErrValidation, t.ContextType)
	}
	if t.Category != "" && !t.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, t.Category)
	}
	if t.EstimatedDuration < 0 {
		return fmt.Errorf("%w: estimated duration must not be negative", ErrValidation)
	}
	return nil
}

// NewTask fills every required field of partial with its default and keeps
// whatever partial already carries.
func NewTask(partial Task, now time.Time) Task {
	t := partial
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = PriorityNone
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.Synced = t.Synced || t.ExternalID != ""
	switch {
	case t.Completed && t.CompletedAt == nil:
		at := now
		t.CompletedAt = &at
	case !t.Completed:
		t.CompletedAt = nil
	}
	return t
}

// TaskPatch is a shallow partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title             *string      `json:"title,omitempty"`
	Description       *string      `json:"description,omitempty"`
	Completed         *bool        `json:"completed,omitempty"`
	Priority          *Priority    `json:"priority,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
	DueDate           *time.Time   `json:"dueDate,omitempty"`
	ClearDueDate      bool         `json:"clearDueDate,omitempty"`
	EnergyRequired    *EnergyLevel `json:"energyRequired,omitempty"`
	EstimatedDuration *int         `json:"estimatedDuration,omitempty"`
	ContextType       *ContextType `json:"contextType,omitempty"`
	Category          *Category    `json:"category,omitempty"`
	ExternalID        *string      `json:"externalId,omitempty"`
	ExternalProjectID *string      `json:"externalProjectId,omitempty"`
}

// ApplyUpdate merges p into t. CreatedAt and ID never change; CompletedAt
// follows the completed flag.
func ApplyUpdate(t Task, p TaskPatch, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = append([]string{}, p.Tags...)
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.EnergyRequired != nil {
		t.EnergyRequired = *p.EnergyRequired
	}
	if p.EstimatedDuration != nil {
		t.EstimatedDuration = *p.EstimatedDuration
	}
	if p.ContextType != nil {
		t.ContextType = *p.ContextType
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.ExternalID != nil {
		t.ExternalID = *p.ExternalID
		t.Synced = t.ExternalID != ""
	}
	if p.ExternalProjectID != nil {
		t.ExternalProjectID = *p.ExternalProjectID
	}
	if p.Completed != nil {
		t = SetCompleted(t, *p.Completed, now)
	}
	return t
}

// SetCompleted flips the completed flag and keeps CompletedAt consistent with it.
func SetCompleted(t Task, completed bool, now time.Time) Task {
	if completed == t.Completed {
		if completed && t.CompletedAt == nil {
			at := now
			t.CompletedAt = &at
		}
		if !completed {
			t.CompletedAt = nil
		}
		return t
	}
	t.Completed = completed
	if completed {
		at := now
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
	return t
}

// Incomplete returns the tasks that are not completed, preserving order.
func Incomplete(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Completed {
			out = append(out, t)
		}
	}
	return out
}

// TaskSnapshot is the persisted local task list of one user.
type TaskSnapshot struct {
	Tasks    []Task     `json:"tasks"`
	LastSync *time.Time `json:"lastSync,omitempty"`
}

// FindTask returns the index of the task with id, or -1.
func (s TaskSnapshot) FindTask(id string) int {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
