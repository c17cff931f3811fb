package models

import (
	"fmt"
	"strings"
	"time"
)

type PatternType string

const (
	PatternProductivityByHour PatternType = "productivity_by_hour"
	PatternTaskCompletion     PatternType = "task_completion_patterns"
	PatternEnergy             PatternType = "energy_patterns"
	PatternContextPreferences PatternType = "context_preferences"
	PatternLearnedBehaviors   PatternType = "learned_behaviors"
)

var PatternTypes = []PatternType{
	PatternProductivityByHour,
	PatternTaskCompletion,
	PatternEnergy,
	PatternContextPreferences,
	PatternLearnedBehaviors,
}

func (p PatternType) Valid() bool {
	for _, v := range PatternTypes {
		if v == p {
			return true
		}
	}
	return false
}

func ParsePatternType(s string) (PatternType, error) {
	p := PatternType(strings.TrimSpace(s))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown pattern type %q", ErrValidation, s)
	}
	return p, nil
}

// Pattern is a freeform learned behaviour object. Saves overwrite.
type Pattern map[string]any

// AnalyticsEntry records one task completion.
type AnalyticsEntry struct {
	TaskID            string      `json:"taskId"`
	CompletedAt       time.Time   `json:"completedAt"`
	TimeOfDay         string      `json:"timeOfDay"`
	DayOfWeek         string      `json:"dayOfWeek"`
	EnergyLevel       EnergyLevel `json:"energyLevel"`
	ContextType       string      `json:"contextType"`
	EstimatedDuration int         `json:"estimatedDuration,omitempty"`
	ActualDuration    int         `json:"actualDuration,omitempty"`
}

func (e AnalyticsEntry) Validate() error {
	switch {
	case strings.TrimSpace(e.TaskID) == "":
		return fmt.Errorf("%w: taskId is required", ErrValidation)
	case e.CompletedAt.IsZero():
		return fmt.Errorf("%w: completedAt is required", ErrValidation)
	case e.TimeOfDay == "":
		return fmt.Errorf("%w: timeOfDay is required", ErrValidation)
	case e.DayOfWeek == "":
		return fmt.Errorf("%w: dayOfWeek is required", ErrValidation)
	case !e.EnergyLevel.Valid():
		return fmt.Errorf("%w: energyLevel must be low, medium or high", ErrValidation)
	case e.ContextType == "":
		return fmt.Errorf("%w: contextType is required", ErrValidation)
	case e.EstimatedDuration < 0 || e.ActualDuration < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrValidation)
	}
	return nil
}
