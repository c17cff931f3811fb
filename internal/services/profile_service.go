package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"tomanage/internal/models"
	"tomanage/internal/repositories"
	"tomanage/internal/usercontext"
)

// ProfileService owns preferences, learned patterns and completion analytics.
// It is also the storage behind the assistant's tools.
type ProfileService interface {
	Preferences(ctx context.Context, userID string) (models.Preferences, error)
	SavePreferences(ctx context.Context, userID string, prefs models.Preferences) error

	SavePattern(ctx context.Context, userID string, t models.PatternType, data models.Pattern) error
	GetPattern(ctx context.Context, userID string, t models.PatternType) (models.Pattern, bool, error)
	Patterns(ctx context.Context, userID string) (map[models.PatternType]models.Pattern, error)

	SaveAnalytics(ctx context.Context, userID string, e models.AnalyticsEntry) error
	Analytics(ctx context.Context, userID string, limit int) ([]models.AnalyticsEntry, error)
	ClearAnalytics(ctx context.Context, userID string) error

	CurrentContext(ctx context.Context, userID string) (models.CurrentContext, error)
	Profile(ctx context.Context, userID string) (models.UserProfile, error)
}

type profileService struct {
	prefs     repositories.PreferencesRepository
	patterns  repositories.PatternRepository
	analytics repositories.AnalyticsRepository
	now       Clock
}

func NewProfileService(prefs repositories.PreferencesRepository, patterns repositories.PatternRepository, analytics repositories.AnalyticsRepository, now Clock) ProfileService {
	return &profileService{prefs: prefs, patterns: patterns, analytics: analytics, now: clockOrNow(now)}
}

// localNow moves now into the user's zone so urgency day boundaries follow
// the user's midnight. Without preferences now is returned unchanged.
func localNow(ctx context.Context, profile ProfileService, userID string, now time.Time) time.Time {
	if profile == nil {
		return now
	}
	prefs, err := profile.Preferences(ctx, userID)
	if err != nil {
		log.Printf("[profile][zone][warn] user=%s: %v", userID, err)
		return now
	}
	return now.In(prefs.Location())
}

// Preferences returns the stored preferences, storing the defaults on first access.
func (s *profileService) Preferences(ctx context.Context, userID string) (models.Preferences, error) {
	prefs, ok, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return models.Preferences{}, err
	}
	if ok {
		return prefs, nil
	}
	prefs = models.DefaultPreferences()
	if err := s.prefs.Save(ctx, userID, prefs); err != nil {
		return models.Preferences{}, err
	}
	return prefs, nil
}

func (s *profileService) SavePreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	if err := prefs.Validate(); err != nil {
		return err
	}
	return s.prefs.Save(ctx, userID, prefs)
}

func (s *profileService) SavePattern(ctx context.Context, userID string, t models.PatternType, data models.Pattern) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown pattern type %q", models.ErrValidation, t)
	}
	if data == nil {
		return fmt.Errorf("%w: pattern data must be an object", models.ErrValidation)
	}
	return s.patterns.Save(ctx, userID, t, data)
}

func (s *profileService) GetPattern(ctx context.Context, userID string, t models.PatternType) (models.Pattern, bool, error) {
	if !t.Valid() {
		return nil, false, fmt.Errorf("%w: unknown pattern type %q", models.ErrValidation, t)
	}
	return s.patterns.Get(ctx, userID, t)
}

func (s *profileService) Patterns(ctx context.Context, userID string) (map[models.PatternType]models.Pattern, error) {
	return s.patterns.All(ctx, userID)
}

func (s *profileService) SaveAnalytics(ctx context.Context, userID string, e models.AnalyticsEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.analytics.Append(ctx, userID, e)
}

func (s *profileService) Analytics(ctx context.Context, userID string, limit int) ([]models.AnalyticsEntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", models.ErrValidation)
	}
	return s.analytics.List(ctx, userID, limit)
}

func (s *profileService) ClearAnalytics(ctx context.Context, userID string) error {
	return s.analytics.Clear(ctx, userID)
}

func (s *profileService) CurrentContext(ctx context.Context, userID string) (models.CurrentContext, error) {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return models.CurrentContext{}, err
	}
	return usercontext.Current(prefs, s.now()), nil
}

func (s *profileService) Profile(ctx context.Context, userID string) (models.UserProfile, error) {
	prefs, err := s.Preferences(ctx, userID)
	if err != nil {
		return models.UserProfile{}, err
	}
	patterns, err := s.patterns.All(ctx, userID)
	if err != nil {
		return models.UserProfile{}, err
	}
	return usercontext.Profile(userID, prefs, patterns, s.now()), nil
}
