package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tomanage/internal/models"
)

type AnalyticsRepository interface {
	Append(ctx context.Context, userID string, e models.AnalyticsEntry) error
	// List returns the last limit entries in chronological order; limit <= 0 means all.
	List(ctx context.Context, userID string, limit int) ([]models.AnalyticsEntry, error)
	Clear(ctx context.Context, userID string) error
}

type analyticsRepository struct {
	db *sqlx.DB

	mu   sync.Mutex
	last int64
}

func NewAnalyticsRepository(db *sqlx.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// stamp returns a strictly increasing insertion time so entries keep their order.
func (r *analyticsRepository) stamp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= r.last {
		now = r.last + 1
	}
	r.last = now
	return now
}

func (r *analyticsRepository) Append(ctx context.Context, userID string, e models.AnalyticsEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode analytics entry: %w", err)
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO analytics_entries (id, user_id, created_at, payload)
		VALUES (?, ?, ?, ?)`),
		uuid.NewString(), userID, r.stamp(), string(payload))
	if err != nil {
		return fmt.Errorf("insert analytics entry: %w", err)
	}
	return nil
}

func (r *analyticsRepository) List(ctx context.Context, userID string, limit int) ([]models.AnalyticsEntry, error) {
	var (
		payloads []string
		err      error
	)
	if limit > 0 {
		err = r.db.SelectContext(ctx, &payloads, r.db.Rebind(`
			SELECT payload FROM (
				SELECT payload, created_at FROM analytics_entries
				WHERE user_id = ?
				ORDER BY created_at DESC
				LIMIT ?
			) recent
			ORDER BY created_at ASC`), userID, limit)
	} else {
		err = r.db.SelectContext(ctx, &payloads, r.db.Rebind(`
			SELECT payload FROM analytics_entries
			WHERE user_id = ?
			ORDER BY created_at ASC`), userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list analytics: %w", err)
	}

	out := make([]models.AnalyticsEntry, 0, len(payloads))
	for _, p := range payloads {
		var e models.AnalyticsEntry
		if err := json.Unmarshal([]byte(p), &e); err != nil {
			return nil, fmt.Errorf("decode analytics entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *analyticsRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM analytics_entries WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("clear analytics: %w", err)
	}
	return nil
}
