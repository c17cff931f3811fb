package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// KVRepository is the per-user key-value store every typed repository sits on.
type KVRepository interface {
	Get(ctx context.Context, userID, key string) ([]byte, bool, error)
	Set(ctx context.Context, userID, key string, value []byte) error
	Delete(ctx context.Context, userID, key string) error
	Keys(ctx context.Context, userID, prefix string) ([]string, error)
	DeleteUser(ctx context.Context, userID string) error
}

type kvRepository struct {
	db *sqlx.DB
}

func NewKVRepository(db *sqlx.DB) KVRepository {
	return &kvRepository{db: db}
}

func (r *kvRepository) Get(ctx context.Context, userID, key string) ([]byte, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value,
		r.db.Rebind(`SELECT value FROM kv_store WHERE user_id = ? AND item_key = ?`), userID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (r *kvRepository) Set(ctx context.Context, userID, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO kv_store (user_id, item_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, item_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		userID, key, string(value), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

func (r *kvRepository) Delete(ctx context.Context, userID, key string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM kv_store WHERE user_id = ? AND item_key = ?`), userID, key)
	if err != nil {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

func (r *kvRepository) Keys(ctx context.Context, userID, prefix string) ([]string, error) {
	var keys []string
	err := r.db.SelectContext(ctx, &keys, r.db.Rebind(`
		SELECT item_key FROM kv_store
		WHERE user_id = ? AND substr(item_key, 1, ?) = ?
		ORDER BY item_key`), userID, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("kv keys %s: %w", prefix, err)
	}
	return keys, nil
}

func (r *kvRepository) DeleteUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM kv_store WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("kv delete user: %w", err)
	}
	return nil
}

func getJSON(ctx context.Context, kv KVRepository, userID, key string, v any) (bool, error) {
	raw, ok, err := kv.Get(ctx, userID, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func putJSON(ctx context.Context, kv KVRepository, userID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, userID, key, raw)
}
