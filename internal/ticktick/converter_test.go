package ticktick

import (
	"reflect"
	"testing"
	"time"

	"tomanage/internal/models"
)

var now = time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)

func TestPriorityMapping(t *testing.T) {
	t.Parallel()

	for _, p := range []models.Priority{models.PriorityNone, models.PriorityLow, models.PriorityMedium, models.PriorityHigh} {
		if got := ReversePriority(MapPriority(p)); got != p {
			t.Errorf("priority %q round-tripped to %q", p, got)
		}
	}

	cases := map[int]models.Priority{
		0: models.PriorityNone, 1: models.PriorityLow, 2: models.PriorityNone, 3: models.PriorityMedium,
		4: models.PriorityNone, 5: models.PriorityHigh, 9: models.PriorityHigh, -1: models.PriorityNone,
	}
	for in, want := range cases {
		if got := ReversePriority(in); got != want {
			t.Errorf("ReversePriority(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFromExternalStripsSideChannelTags(t *testing.T) {
	t.Parallel()

	ext := Task{
		ID:        "ext-1",
		ProjectID: "p-1",
		Title:     "Study graphs",
		Content:   "chapter 4",
		Priority:  3,
		Status:    StatusActive,
		Tags:      []string{" focus ", "Energy:HIGH", "duration:45", "category:learning", "context:interview", "duration:abc", ""},
		DueDate:   "2025-03-11T09:00:00+0000",
	}
	got := FromExternal(ext, now)

	if !reflect.DeepEqual(got.Tags, []string{"focus"}) {
		t.Fatalf("tags = %#v, want [focus]", got.Tags)
	}
	if got.EnergyRequired != models.EnergyHigh || got.EstimatedDuration != 45 {
		t.Fatalf("side channel not decoded: energy=%q duration=%d", got.EnergyRequired, got.EstimatedDuration)
	}
	if got.Category != models.CategoryLearning || got.ContextType != models.ContextInterview {
		t.Fatalf("category=%q context=%q", got.Category, got.ContextType)
	}
	if got.ID != "ext-1" || got.ExternalID != "ext-1" || got.ExternalProjectID != "p-1" || !got.Synced {
		t.Fatalf("identity not carried: %+v", got)
	}
	if got.Priority != models.PriorityMedium {
		t.Fatalf("priority = %q", got.Priority)
	}
	if got.DueDate == nil || !got.DueDate.Equal(time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("due date = %v", got.DueDate)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("createdAt should default to now, got %v", got.CreatedAt)
	}
}

func TestFromExternalCompletion(t *testing.T) {
	t.Parallel()

	done := FromExternal(Task{ID: "a", Title: "x", Status: StatusCompleted, CompletedTime: "2025-03-09T08:00:00+0000"}, now)
	if !done.Completed || done.CompletedAt == nil || done.CompletedAt.Day() != 9 {
		t.Fatalf("completed task = %+v", done)
	}

	noTime := FromExternal(Task{ID: "b", Title: "x", Status: StatusCompleted}, now)
	if noTime.CompletedAt == nil {
		t.Fatal("completed task without completedTime must still get completedAt")
	}

	open := FromExternal(Task{ID: "c", Title: "x", Status: StatusActive, CompletedTime: "2025-03-09T08:00:00+0000"}, now)
	if open.Completed || open.CompletedAt != nil {
		t.Fatalf("active task must not carry completedAt: %+v", open)
	}
}

func TestInferCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		tags  []string
		want  models.Category
	}{
		{"Leetcode daily", nil, models.CategoryInterview},
		{"anything", []string{"Interview"}, models.CategoryInterview},
		{"Take the Go course", nil, models.CategoryLearning},
		{"Fix home wifi", nil, models.CategoryPersonal},
		{"Ship release", nil, models.CategoryWork},
	}
	for _, tc := range cases {
		if got := InferCategory(tc.title, tc.tags); got != tc.want {
			t.Errorf("InferCategory(%q, %v) = %q, want %q", tc.title, tc.tags, got, tc.want)
		}
	}

	explicit := FromExternal(Task{ID: "x", Title: "Leetcode daily", Tags: []string{"category:personal"}}, now)
	if explicit.Category != models.CategoryPersonal {
		t.Fatalf("explicit category tag should win, got %q", explicit.Category)
	}
}

func TestToExternal(t *testing.T) {
	t.Parallel()

	dueAt := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)
	task := models.Task{
		Title:             "Write docs",
		Description:       "api reference",
		Priority:          models.PriorityHigh,
		Tags:              []string{"docs", "energy:low"},
		DueDate:           &dueAt,
		EnergyRequired:    models.EnergyMedium,
		EstimatedDuration: 30,
		ExternalID:        "ext-7",
		ExternalProjectID: "p-2",
	}
	got := ToExternal(task)

	want := []string{"docs", "energy:medium", "duration:30"}
	if !reflect.DeepEqual(got.Tags, want) {
		t.Fatalf("tags = %#v, want %#v", got.Tags, want)
	}
	if got.Priority != PriorityHigh || got.Status != StatusActive {
		t.Fatalf("priority=%d status=%d", got.Priority, got.Status)
	}
	if got.DueDate != "2025-03-12T15:00:00+0000" {
		t.Fatalf("due = %q", got.DueDate)
	}
	if got.ID != "ext-7" || got.ProjectID != "p-2" {
		t.Fatalf("ids = %q/%q", got.ID, got.ProjectID)
	}
}

func TestSideChannelRoundTrip(t *testing.T) {
	t.Parallel()

	tasks := []models.Task{
		{Title: "a", EnergyRequired: models.EnergyHigh, EstimatedDuration: 150, Tags: []string{"x"}},
		{Title: "b", EnergyRequired: models.EnergyLow},
		{Title: "c", EstimatedDuration: 5},
		{Title: "d", Priority: models.PriorityMedium, Completed: true, CompletedAt: &now},
	}
	for _, in := range tasks {
		ext := ToExternal(in)
		ext.ID = "ext"
		out := FromExternal(ext, now)
		if out.EnergyRequired != in.EnergyRequired {
			t.Errorf("%s: energy %q -> %q", in.Title, in.EnergyRequired, out.EnergyRequired)
		}
		if out.EstimatedDuration != in.EstimatedDuration {
			t.Errorf("%s: duration %d -> %d", in.Title, in.EstimatedDuration, out.EstimatedDuration)
		}
		if out.Priority != in.Priority && !(in.Priority == "" && out.Priority == models.PriorityNone) {
			t.Errorf("%s: priority %q -> %q", in.Title, in.Priority, out.Priority)
		}
		if out.Completed != in.Completed {
			t.Errorf("%s: completed %v -> %v", in.Title, in.Completed, out.Completed)
		}
		if len(out.Tags) != len(in.Tags) {
			t.Errorf("%s: visible tags %v -> %v", in.Title, in.Tags, out.Tags)
		}
	}
}
