package reconcile

import (
	"reflect"
	"testing"

	"tomanage/internal/models"
)

func TestMergeKeepsLocalIdentity(t *testing.T) {
	t.Parallel()

	local := []models.Task{{ID: "local-1", ExternalID: "ext-9", Title: "old", Synced: true}}
	external := []models.Task{{ID: "ext-9", ExternalID: "ext-9", Title: "new", Synced: true}}

	got := Merge(local, external)
	if len(got) != 1 {
		t.Fatalf("got %d tasks, want 1", len(got))
	}
	if got[0].ID != "local-1" || got[0].Title != "new" {
		t.Fatalf("merged = %+v, want id local-1 title new", got[0])
	}
}

func TestMergeFirstSync(t *testing.T) {
	t.Parallel()

	external := []models.Task{
		{ID: "a", ExternalID: "a", Title: "A"},
		{ID: "b", ExternalID: "b", Title: "B"},
		{ID: "c", ExternalID: "c", Title: "C"},
	}
	got := Merge(nil, external)
	if len(got) != len(external) {
		t.Fatalf("got %d tasks, want %d", len(got), len(external))
	}
	for i, task := range got {
		if !task.Synced {
			t.Errorf("task %d not marked synced", i)
		}
		if task.ID != external[i].ExternalID {
			t.Errorf("task %d id = %q, want external id %q", i, task.ID, external[i].ExternalID)
		}
	}
}

func TestMergePreservesUnsynced(t *testing.T) {
	t.Parallel()

	draft := models.Task{ID: "draft", Title: "not pushed yet", Tags: []string{"x"}, Priority: models.PriorityHigh}
	local := []models.Task{
		{ID: "l1", ExternalID: "e1", Title: "synced"},
		draft,
	}
	external := []models.Task{{ID: "e1", ExternalID: "e1", Title: "synced v2"}}

	got := Merge(local, external)
	if len(got) != 2 {
		t.Fatalf("got %d tasks, want 2", len(got))
	}
	if !reflect.DeepEqual(got[1], draft) {
		t.Fatalf("unsynced task changed: %+v", got[1])
	}
}

func TestMergeNoDuplicates(t *testing.T) {
	t.Parallel()

	local := []models.Task{
		{ID: "l1", ExternalID: "e1", Title: "one"},
		{ID: "l2", ExternalID: "gone", Title: "deleted remotely"},
	}
	external := []models.Task{
		{ID: "e1", ExternalID: "e1", Title: "one"},
		{ID: "e1", ExternalID: "e1", Title: "one again"},
		{ID: "e2", ExternalID: "e2", Title: "two"},
	}
	got := Merge(local, external)

	ids := map[string]int{}
	for _, task := range got {
		ids[task.ID]++
	}
	for id, n := range ids {
		if n > 1 {
			t.Fatalf("id %q appears %d times", id, n)
		}
	}
	if len(got) != 2 || got[0].ID != "l1" || got[1].ID != "e2" {
		t.Fatalf("merged = %+v", got)
	}
}
