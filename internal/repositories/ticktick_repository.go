package repositories

import (
	"context"
	"time"

	"tomanage/internal/models"
)

const (
	ticktickTokenKey = "ticktick:token"
	ticktickStateKey = "ticktick:oauth_state"
	ticktickCacheKey = "ticktick:external_tasks"
)

// ExternalSnapshot is the last converted fetch from TickTick.
type ExternalSnapshot struct {
	Tasks     []models.Task `json:"tasks"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// TickTickRepository keeps the connection state of a user. Tokens are stored
// as given; callers seal them first.
type TickTickRepository interface {
	Token(ctx context.Context, userID string) (string, bool, error)
	SaveToken(ctx context.Context, userID, sealed string) error
	State(ctx context.Context, userID string) (string, bool, error)
	SaveState(ctx context.Context, userID, state string) error
	DeleteState(ctx context.Context, userID string) error
	Snapshot(ctx context.Context, userID string) (ExternalSnapshot, bool, error)
	SaveSnapshot(ctx context.Context, userID string, snap ExternalSnapshot) error
	// Disconnect removes token, pending state and cached snapshot.
	Disconnect(ctx context.Context, userID string) error
}

type tickTickRepository struct{ kv KVRepository }

func NewTickTickRepository(kv KVRepository) TickTickRepository {
	return &tickTickRepository{kv: kv}
}

func (r *tickTickRepository) Token(ctx context.Context, userID string) (string, bool, error) {
	return r.getString(ctx, userID, ticktickTokenKey)
}

func (r *tickTickRepository) SaveToken(ctx context.Context, userID, sealed string) error {
	return r.kv.Set(ctx, userID, ticktickTokenKey, []byte(sealed))
}

func (r *tickTickRepository) State(ctx context.Context, userID string) (string, bool, error) {
	return r.getString(ctx, userID, ticktickStateKey)
}

func (r *tickTickRepository) SaveState(ctx context.Context, userID, state string) error {
	return r.kv.Set(ctx, userID, ticktickStateKey, []byte(state))
}

func (r *tickTickRepository) DeleteState(ctx context.Context, userID string) error {
	return r.kv.Delete(ctx, userID, ticktickStateKey)
}

func (r *tickTickRepository) Snapshot(ctx context.Context, userID string) (ExternalSnapshot, bool, error) {
	var snap ExternalSnapshot
	ok, err := getJSON(ctx, r.kv, userID, ticktickCacheKey, &snap)
	return snap, ok, err
}

func (r *tickTickRepository) SaveSnapshot(ctx context.Context, userID string, snap ExternalSnapshot) error {
	return putJSON(ctx, r.kv, userID, ticktickCacheKey, snap)
}

func (r *tickTickRepository) Disconnect(ctx context.Context, userID string) error {
	for _, key := range []string{ticktickTokenKey, ticktickStateKey, ticktickCacheKey} {
		if err := r.kv.Delete(ctx, userID, key); err != nil {
			return err
		}
	}
	return nil
}

func (r *tickTickRepository) getString(ctx context.Context, userID, key string) (string, bool, error) {
	raw, ok, err := r.kv.Get(ctx, userID, key)
	if err != nil || !ok {
		return "", false, err
	}
	return string(raw), true, nil
}
