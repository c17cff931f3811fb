package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type WorkHours struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`
}

// StartHour and EndHour parse the hour part of the window. Malformed values
// fall back to 9 and 17.
func (w WorkHours) StartHour() int { return parseHour(w.Start, 9) }
func (w WorkHours) EndHour() int   { return parseHour(w.End, 17) }

func parseHour(s string, fallback int) int {
	head, _, _ := strings.Cut(strings.TrimSpace(s), ":")
	h, err := strconv.Atoi(head)
	if err != nil || h < 0 || h > 24 {
		return fallback
	}
	return h
}

// Preferences is the per-user settings singleton.
type Preferences struct {
	Role                       string                 `json:"role"`
	FocusAreas                 []string               `json:"focus_areas"`
	CurrentGoals               []string               `json:"current_goals"`
	WorkHours                  WorkHours              `json:"work_hours"`
	PeakFocusTimes             []string               `json:"peak_focus_times"`
	EnergyByHour               map[string]EnergyLevel `json:"energy_by_hour"`
	PreferredMorningContexts   []string               `json:"preferred_morning_contexts"`
	PreferredAfternoonContexts []string               `json:"preferred_afternoon_contexts"`
	PreferredEveningContexts   []string               `json:"preferred_evening_contexts"`
	Timezone                   string                 `json:"timezone,omitempty"`
	TelegramChatID             int64                  `json:"telegram_chat_id,omitempty"`
	Email                      string                 `json:"email,omitempty"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Role:           "Senior Frontend Engineer at Red Hat",
		FocusAreas:     []string{"React", "TypeScript", "Konflux-UI"},
		CurrentGoals:   []string{"job_search", "sentry_monitoring", "bundle_optimization"},
		WorkHours:      WorkHours{Start: "09:00", End: "17:00"},
		PeakFocusTimes: []string{"09:00-12:00", "14:00-16:00"},
		EnergyByHour: map[string]EnergyLevel{
			"9": EnergyHigh, "10": EnergyHigh, "11": EnergyHigh,
			"12": EnergyMedium, "13": EnergyMedium,
			"14": EnergyHigh, "15": EnergyHigh,
			"16": EnergyMedium,
			"17": EnergyLow, "18": EnergyLow, "19": EnergyLow,
			"20": EnergyMedium,
		},
		PreferredMorningContexts:   []string{"frontend", "architecture"},
		PreferredAfternoonContexts: []string{"review", "meeting", "planning"},
		PreferredEveningContexts:   []string{"learning", "admin"},
	}
}

// EnergyAt looks up the predicted energy for an hour of the day.
func (p Preferences) EnergyAt(hour int) (EnergyLevel, bool) {
	e, ok := p.EnergyByHour[strconv.Itoa(hour)]
	if !ok || !e.Valid() {
		return "", false
	}
	return e, true
}

// Location resolves Timezone, defaulting to the server's local zone.
func (p Preferences) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (p Preferences) Validate() error {
	for k, e := range p.EnergyByHour {
		h, err := strconv.Atoi(k)
		if err != nil || h < 0 || h > 23 {
			return fmt.Errorf("%w: energy_by_hour key %q is not an hour", ErrValidation, k)
		}
		if !e.Valid() {
			return fmt.Errorf("%w: energy_by_hour[%s] has unknown level %q", ErrValidation, k, e)
		}
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrValidation, p.Timezone)
		}
	}
	return nil
}

type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
)

// CurrentContext is computed per request and never stored.
type CurrentContext struct {
	CurrentTime         string      `json:"currentTime"`
	CurrentHour         int         `json:"currentHour"`
	DayOfWeek           string      `json:"dayOfWeek"`
	IsWeekend           bool        `json:"isWeekend"`
	IsWorkHours         bool        `json:"isWorkHours"`
	TimeOfDay           TimeOfDay   `json:"timeOfDay"`
	PredictedEnergy     EnergyLevel `json:"predictedEnergy,omitempty"`
	RecommendedContexts []string    `json:"recommendedContexts"`
}

// Energy is the predicted energy with the medium default applied.
func (c CurrentContext) Energy() EnergyLevel {
	if c.PredictedEnergy.Valid() {
		return c.PredictedEnergy
	}
	return EnergyMedium
}

type UserProfile struct {
	UserID         string                  `json:"userId"`
	Preferences    Preferences             `json:"preferences"`
	CurrentContext CurrentContext          `json:"currentContext"`
	Patterns       map[PatternType]Pattern `json:"patterns,omitempty"`
}
