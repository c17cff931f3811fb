// Package usercontext derives the time-of-day context used by enrichment,
// recommendations and prompts.
package usercontext

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"tomanage/internal/models"
)

var daysOfWeek = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TimeOfDayAt bands hours as morning [6,12), afternoon [12,18), evening otherwise.
func TimeOfDayAt(hour int) models.TimeOfDay {
	switch {
	case hour >= 6 && hour < 12:
		return models.Morning
	case hour >= 12 && hour < 18:
		return models.Afternoon
	}
	return models.Evening
}

func DayName(t time.Time) string {
	return daysOfWeek[t.Weekday()]
}

// Current computes the context for now in the user's time zone.
func Current(prefs models.Preferences, now time.Time) models.CurrentContext {
	local := now.In(prefs.Location())
	hour := local.Hour()

	ctx := models.CurrentContext{
		CurrentTime: local.Format("2006-01-02 15:04:05"),
		CurrentHour: hour,
		DayOfWeek:   DayName(local),
		IsWeekend:   local.Weekday() == time.Saturday || local.Weekday() == time.Sunday,
		IsWorkHours: hour >= prefs.WorkHours.StartHour() && hour < prefs.WorkHours.EndHour(),
		TimeOfDay:   TimeOfDayAt(hour),
	}
	if e, ok := prefs.EnergyAt(hour); ok {
		ctx.PredictedEnergy = e
	}

	var recommended []string
	switch ctx.TimeOfDay {
	case models.Morning:
		recommended = prefs.PreferredMorningContexts
	case models.Afternoon:
		recommended = prefs.PreferredAfternoonContexts
	default:
		recommended = prefs.PreferredEveningContexts
	}
	ctx.RecommendedContexts = append([]string{}, recommended...)
	return ctx
}

// Profile assembles the profile handed to the assistant.
func Profile(userID string, prefs models.Preferences, patterns map[models.PatternType]models.Pattern, now time.Time) models.UserProfile {
	p := models.UserProfile{
		UserID:         userID,
		Preferences:    prefs,
		CurrentContext: Current(prefs, now),
	}
	if len(patterns) > 0 {
		p.Patterns = patterns
	}
	return p
}

func FormatContext(c models.CurrentContext) string {
	energy := string(c.PredictedEnergy)
	if energy == "" {
		energy = "unknown"
	}
	return strings.Join([]string{
		"- Time: " + c.CurrentTime,
		fmt.Sprintf("- Hour: %d", c.CurrentHour),
		"- Day: " + c.DayOfWeek,
		"- Predicted energy: " + energy,
		"- Work hours: " + yesNo(c.IsWorkHours),
		"- Recommended contexts: " + strings.Join(c.RecommendedContexts, ", "),
	}, "\n")
}

func FormatProfile(p models.UserProfile) string {
	var b strings.Builder
	prefs := p.Preferences
	b.WriteString("# WHO I AM\n")
	fmt.Fprintf(&b, "- Role: %s\n", prefs.Role)
	fmt.Fprintf(&b, "- Focus areas: %s\n", strings.Join(prefs.FocusAreas, ", "))
	fmt.Fprintf(&b, "- Current goals: %s\n\n", strings.Join(prefs.CurrentGoals, ", "))
	b.WriteString("# CURRENT CONTEXT\n")
	b.WriteString(FormatContext(p.CurrentContext))
	b.WriteString("\n\n# WORK SCHEDULE\n")
	fmt.Fprintf(&b, "- Work hours: %s - %s\n", prefs.WorkHours.Start, prefs.WorkHours.End)
	fmt.Fprintf(&b, "- Peak focus times: %s", strings.Join(prefs.PeakFocusTimes, ", "))

	if len(p.Patterns) > 0 {
		b.WriteString("\n\n# MY LEARNED PATTERNS\n")
		types := make([]string, 0, len(p.Patterns))
		for t := range p.Patterns {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			data, _ := json.MarshalIndent(p.Patterns[models.PatternType(t)], "", "  ")
			fmt.Fprintf(&b, "\n## %s\n%s", t, data)
		}
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
