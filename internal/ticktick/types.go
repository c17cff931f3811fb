package ticktick

import (
	"strings"
	"time"
)

const (
	StatusActive    = 0
	StatusCompleted = 2

	PriorityNone   = 0
	PriorityLow    = 1
	PriorityMedium = 3
	PriorityHigh   = 5

	// InboxProjectID addresses the default list when a task has no project.
	InboxProjectID = "inbox"
)

// Task is the TickTick open API task payload.
type Task struct {
	ID            string   `json:"id,omitempty"`
	ProjectID     string   `json:"projectId,omitempty"`
	Title         string   `json:"title"`
	Content       string   `json:"content,omitempty"`
	Priority      int      `json:"priority"`
	Status        int      `json:"status"`
	Tags          []string `json:"tags,omitempty"`
	DueDate       string   `json:"dueDate,omitempty"`
	CreatedTime   string   `json:"createdTime,omitempty"`
	CompletedTime string   `json:"completedTime,omitempty"`
}

type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Closed   bool   `json:"closed,omitempty"`
	Kind     string `json:"kind,omitempty"`
	ViewMode string `json:"viewMode,omitempty"`
}

type ProjectData struct {
	Project Project `json:"project"`
	Tasks   []Task  `json:"tasks"`
}

// TickTick emits "2019-11-13T03:00:00+0000"; RFC 3339 is accepted too.
const timeLayout = "2006-01-02T15:04:05-0700"

var parseLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	timeLayout,
	time.RFC3339Nano,
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
