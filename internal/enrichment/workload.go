package enrichment

import (
	"math"
	"time"

	"tomanage/internal/models"
)

const (
	overloadTaskCount = 20
	overloadHours     = 8
)

type Workload struct {
	TotalIncompleteTasks int                              `json:"totalIncompleteTasks"`
	ByUrgency            map[models.Urgency][]models.Task `json:"byUrgency"`
	TotalEstimatedHours  int                              `json:"totalEstimatedHours"`
	CriticalTasks        int                              `json:"criticalTasks"`
	IsOverloaded         bool                             `json:"isOverloaded"`
}

// AnalyzeWorkload groups incomplete tasks by urgency and totals their
// estimated time.
func AnalyzeWorkload(tasks []models.Task, now time.Time) Workload {
	w := Workload{ByUrgency: make(map[models.Urgency][]models.Task, len(models.Urgencies))}
	for _, u := range models.Urgencies {
		w.ByUrgency[u] = []models.Task{}
	}

	minutes := 0
	for _, t := range models.Incomplete(tasks) {
		urgency := t.Urgency
		if urgency == "" {
			urgency = ComputeUrgency(t, now)
		}
		duration := t.EstimatedDuration
		if duration <= 0 {
			duration = EstimateDuration(t)
		}
		w.ByUrgency[urgency] = append(w.ByUrgency[urgency], t)
		minutes += duration
		if urgency == models.UrgencyOverdue || urgency == models.UrgencyCritical {
			w.CriticalTasks++
		}
		w.TotalIncompleteTasks++
	}

	w.TotalEstimatedHours = int(math.Round(float64(minutes) / 60))
	w.IsOverloaded = w.TotalIncompleteTasks > overloadTaskCount || w.TotalEstimatedHours > overloadHours
	return w
}
