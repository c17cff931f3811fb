package repositories

import (
	"context"

	"tomanage/internal/models"
)

const tasksKey = "tasks"

// TaskRepository stores a user's whole task list as one snapshot, so a save
// replaces the list atomically.
type TaskRepository interface {
	Load(ctx context.Context, userID string) (models.TaskSnapshot, error)
	Save(ctx context.Context, userID string, snap models.TaskSnapshot) error
	Clear(ctx context.Context, userID string) error
}

type taskRepository struct{ kv KVRepository }

func NewTaskRepository(kv KVRepository) TaskRepository {
	return &taskRepository{kv: kv}
}

func (r *taskRepository) Load(ctx context.Context, userID string) (models.TaskSnapshot, error) {
	var snap models.TaskSnapshot
	if _, err := getJSON(ctx, r.kv, userID, tasksKey, &snap); err != nil {
		return models.TaskSnapshot{}, err
	}
	if snap.Tasks == nil {
		snap.Tasks = []models.Task{}
	}
	return snap, nil
}

func (r *taskRepository) Save(ctx context.Context, userID string, snap models.TaskSnapshot) error {
	if snap.Tasks == nil {
		snap.Tasks = []models.Task{}
	}
	return putJSON(ctx, r.kv, userID, tasksKey, snap)
}

func (r *taskRepository) Clear(ctx context.Context, userID string) error {
	return r.kv.Delete(ctx, userID, tasksKey)
}
