package repositories

import (
	"context"
	"strings"

	"tomanage/internal/models"
)

const (
	preferencesKey = "preferences"
	patternPrefix  = "pattern:"
)

type PreferencesRepository interface {
	Get(ctx context.Context, userID string) (models.Preferences, bool, error)
	Save(ctx context.Context, userID string, prefs models.Preferences) error
}

type preferencesRepository struct{ kv KVRepository }

func NewPreferencesRepository(kv KVRepository) PreferencesRepository {
	return &preferencesRepository{kv: kv}
}

func (r *preferencesRepository) Get(ctx context.Context, userID string) (models.Preferences, bool, error) {
	var p models.Preferences
	ok, err := getJSON(ctx, r.kv, userID, preferencesKey, &p)
	return p, ok, err
}

func (r *preferencesRepository) Save(ctx context.Context, userID string, prefs models.Preferences) error {
	return putJSON(ctx, r.kv, userID, preferencesKey, prefs)
}

type PatternRepository interface {
	Save(ctx context.Context, userID string, t models.PatternType, data models.Pattern) error
	Get(ctx context.Context, userID string, t models.PatternType) (models.Pattern, bool, error)
	All(ctx context.Context, userID string) (map[models.PatternType]models.Pattern, error)
}

type patternRepository struct{ kv KVRepository }

func NewPatternRepository(kv KVRepository) PatternRepository {
	return &patternRepository{kv: kv}
}

func (r *patternRepository) Save(ctx context.Context, userID string, t models.PatternType, data models.Pattern) error {
	return putJSON(ctx, r.kv, userID, patternPrefix+string(t), data)
}

func (r *patternRepository) Get(ctx context.Context, userID string, t models.PatternType) (models.Pattern, bool, error) {
	var p models.Pattern
	ok, err := getJSON(ctx, r.kv, userID, patternPrefix+string(t), &p)
	return p, ok, err
}

func (r *patternRepository) All(ctx context.Context, userID string) (map[models.PatternType]models.Pattern, error) {
	keys, err := r.kv.Keys(ctx, userID, patternPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[models.PatternType]models.Pattern, len(keys))
	for _, key := range keys {
		t := models.PatternType(strings.TrimPrefix(key, patternPrefix))
		if !t.Valid() {
			continue
		}
		var p models.Pattern
		ok, err := getJSON(ctx, r.kv, userID, key, &p)
		if err != nil {
			return nil, err
		}
		if ok {
			out[t] = p
		}
	}
	return out, nil
}
