package ticktick

import (
	"strconv"
	"strings"
	"time"

	"tomanage/internal/models"
)

const (
	tagEnergy   = "energy:"
	tagDuration = "duration:"
	tagCategory = "category:"
	tagContext  = "context:"
)

// MapPriority converts the canonical scale to TickTick's 0/1/3/5.
func MapPriority(p models.Priority) int {
	switch p {
	case models.PriorityHigh:
		return PriorityHigh
	case models.PriorityMedium:
		return PriorityMedium
	case models.PriorityLow:
		return PriorityLow
	}
	return PriorityNone
}

// ReversePriority maps 0/1/3/>=5 back. Values outside the scale become none.
func ReversePriority(p int) models.Priority {
	switch {
	case p >= PriorityHigh:
		return models.PriorityHigh
	case p == PriorityMedium:
		return models.PriorityMedium
	case p == PriorityLow:
		return models.PriorityLow
	}
	return models.PriorityNone
}

// sideChannel holds the structured values smuggled through tags.
type sideChannel struct {
	energy   models.EnergyLevel
	duration int
	category models.Category
	context  models.ContextType
}

// splitTags separates user-visible tags from energy:/duration:/category:/context:
// pseudo-tags. Pseudo-tags are always stripped; values that do not parse are ignored.
func splitTags(tags []string) ([]string, sideChannel) {
	visible := make([]string, 0, len(tags))
	var sc sideChannel
	for _, raw := range tags {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		lower := strings.ToLower(tag)
		switch {
		case strings.HasPrefix(lower, tagEnergy):
			if e := models.EnergyLevel(strings.TrimSpace(lower[len(tagEnergy):])); e.Valid() {
				sc.energy = e
			}
		case strings.HasPrefix(lower, tagDuration):
			if d, err := strconv.Atoi(strings.TrimSpace(lower[len(tagDuration):])); err == nil && d > 0 {
				sc.duration = d
			}
		case strings.HasPrefix(lower, tagCategory):
			if c := models.Category(strings.TrimSpace(lower[len(tagCategory):])); c.Valid() {
				sc.category = c
			}
		case strings.HasPrefix(lower, tagContext):
			if c := models.ContextType(strings.TrimSpace(lower[len(tagContext):])); c.Valid() {
				sc.context = c
			}
		default:
			visible = append(visible, tag)
		}
	}
	return visible, sc
}

// InferCategory is the coarse work/personal classifier used on import. It is
// separate from enrichment's context inference.
func InferCategory(title string, tags []string) models.Category {
	lowerTitle := strings.ToLower(title)
	hasTag := func(name string) bool {
		for _, t := range tags {
			if strings.EqualFold(strings.TrimSpace(t), name) {
				return true
			}
		}
		return false
	}
	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lowerTitle, w) {
				return true
			}
		}
		return false
	}

	switch {
	case hasTag("interview") || containsAny("interview", "leetcode", "dsa"):
		return models.CategoryInterview
	case hasTag("learning") || containsAny("learn", "study", "course"):
		return models.CategoryLearning
	case hasTag("personal") || containsAny("home", "family"):
		return models.CategoryPersonal
	}
	return models.CategoryWork
}

// FromExternal converts a TickTick task into a canonical task. The internal id
// starts out equal to the TickTick id; the merge step keeps an existing local id.
func FromExternal(ext Task, now time.Time) models.Task {
	visible, sc := splitTags(ext.Tags)

	t := models.Task{
		ID:                ext.ID,
		Title:             ext.Title,
		Description:       ext.Content,
		Completed:         ext.Status == StatusCompleted,
		Priority:          ReversePriority(ext.Priority),
		Tags:              visible,
		DueDate:           parseTime(ext.DueDate),
		CompletedAt:       parseTime(ext.CompletedTime),
		EnergyRequired:    sc.energy,
		EstimatedDuration: sc.duration,
		ContextType:       sc.context,
		Category:          sc.category,
		ExternalID:        ext.ID,
		ExternalProjectID: ext.ProjectID,
		Synced:            true,
	}
	if created := parseTime(ext.CreatedTime); created != nil {
		t.CreatedAt = *created
	}
	if !t.Category.Valid() {
		t.Category = InferCategory(t.Title, visible)
	}
	return models.NewTask(t, now)
}

func FromExternalAll(ext []Task, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(ext))
	for _, e := range ext {
		out = append(out, FromExternal(e, now))
	}
	return out
}

// ToExternal converts a canonical task into the TickTick payload, appending the
// energy and duration pseudo-tags.
func ToExternal(t models.Task) Task {
	tags := make([]string, 0, len(t.Tags)+2)
	for _, tag := range t.Tags {
		lower := strings.ToLower(strings.TrimSpace(tag))
		if strings.HasPrefix(lower, tagEnergy) || strings.HasPrefix(lower, tagDuration) {
			continue
		}
		tags = append(tags, tag)
	}
	if t.EnergyRequired.Valid() {
		tags = append(tags, tagEnergy+string(t.EnergyRequired))
	}
	if t.EstimatedDuration > 0 {
		tags = append(tags, tagDuration+strconv.Itoa(t.EstimatedDuration))
	}

	status := StatusActive
	if t.Completed {
		status = StatusCompleted
	}
	return Task{
		ID:            t.ExternalID,
		ProjectID:     t.ExternalProjectID,
		Title:         t.Title,
		Content:       t.Description,
		Priority:      MapPriority(t.Priority),
		Status:        status,
		Tags:          tags,
		DueDate:       formatTime(t.DueDate),
		CompletedTime: formatTime(t.CompletedAt),
	}
}
