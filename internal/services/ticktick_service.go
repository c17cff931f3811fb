package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"tomanage/internal/models"
	"tomanage/internal/repositories"
	"tomanage/internal/ticktick"
	"tomanage/internal/utils"
)

const DefaultCacheMaxAge = 60 * time.Second

// TickTickService manages a user's TickTick connection and the cached view of
// their remote tasks.
type TickTickService interface {
	AuthURL(ctx context.Context, userID, redirectURI string) (string, error)
	Exchange(ctx context.Context, userID, code, state, redirectURI string) error
	IsConnected(ctx context.Context, userID string) (bool, error)
	Disconnect(ctx context.Context, userID string) error

	// API returns an authenticated session or ErrNotConnected.
	API(ctx context.Context, userID string) (ticktick.API, error)
	// Fetch downloads, converts and caches every remote task.
	Fetch(ctx context.Context, userID string) ([]models.Task, error)
	// ExternalTasks serves the cache unless forced, missing or older than maxAge.
	ExternalTasks(ctx context.Context, userID string, force bool, maxAge time.Duration) (repositories.ExternalSnapshot, error)
}

type TickTickOptions struct {
	RedirectURI string
	Timeout     time.Duration
	CacheMaxAge time.Duration
}

type tickTickService struct {
	repo   repositories.TickTickRepository
	oauth  *ticktick.OAuth
	client *ticktick.Client
	sealer *utils.Sealer
	opts   TickTickOptions
	now    Clock
}

func NewTickTickService(repo repositories.TickTickRepository, oauth *ticktick.OAuth, client *ticktick.Client, sealer *utils.Sealer, opts TickTickOptions, now Clock) TickTickService {
	if opts.Timeout <= 0 {
		opts.Timeout = ticktick.DefaultTimeout
	}
	if opts.CacheMaxAge <= 0 {
		opts.CacheMaxAge = DefaultCacheMaxAge
	}
	return &tickTickService{repo: repo, oauth: oauth, client: client, sealer: sealer, opts: opts, now: clockOrNow(now)}
}

func (s *tickTickService) redirect(uri string) string {
	if strings.TrimSpace(uri) != "" {
		return uri
	}
	return s.opts.RedirectURI
}

func (s *tickTickService) AuthURL(ctx context.Context, userID, redirectURI string) (string, error) {
	if !s.oauth.Configured() {
		return "", fmt.Errorf("%w: ticktick client id or secret not configured", models.ErrExternalService)
	}
	state := uuid.NewString()
	if err := s.repo.SaveState(ctx, userID, state); err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state, s.redirect(redirectURI)), nil
}

// Exchange checks state before touching the network; a mismatch stores nothing.
func (s *tickTickService) Exchange(ctx context.Context, userID, code, state, redirectURI string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: code is required", models.ErrValidation)
	}
	stored, ok, err := s.repo.State(ctx, userID)
	if err != nil {
		return err
	}
	if !ok || stored == "" || state != stored {
		log.Printf("[ticktick][exchange][err] user=%s state mismatch", userID)
		return models.ErrAuthState
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	token, err := s.oauth.Exchange(ctx, code, s.redirect(redirectURI))
	if err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	if err := s.repo.SaveToken(ctx, userID, sealed); err != nil {
		return err
	}
	if err := s.repo.DeleteState(ctx, userID); err != nil {
		log.Printf("[ticktick][exchange][warn] user=%s clear state: %v", userID, err)
	}
	log.Printf("[ticktick][exchange] user=%s connected", userID)
	return nil
}

func (s *tickTickService) IsConnected(ctx context.Context, userID string) (bool, error) {
	tok, ok, err := s.repo.Token(ctx, userID)
	if err != nil {
		return false, err
	}
	return ok && tok != "", nil
}

func (s *tickTickService) Disconnect(ctx context.Context, userID string) error {
	return s.repo.Disconnect(ctx, userID)
}

func (s *tickTickService) API(ctx context.Context, userID string) (ticktick.API, error) {
	sealed, ok, err := s.repo.Token(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok || sealed == "" {
		return nil, models.ErrNotConnected
	}
	token, err := s.sealer.Open(sealed)
	if err != nil {
		log.Printf("[ticktick][token][err] user=%s: %v", userID, err)
		return nil, fmt.Errorf("%w: stored token is unreadable, reconnect", models.ErrNotConnected)
	}
	return s.client.WithToken(token), nil
}

func (s *tickTickService) Fetch(ctx context.Context, userID string) ([]models.Task, error) {
	api, err := s.API(ctx, userID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	ext, err := api.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	tasks := ticktick.FromExternalAll(ext, now)
	if err := s.repo.SaveSnapshot(ctx, userID, repositories.ExternalSnapshot{Tasks: tasks, FetchedAt: now}); err != nil {
		log.Printf("[ticktick][cache][warn] user=%s: %v", userID, err)
	}
	return tasks, nil
}

func (s *tickTickService) ExternalTasks(ctx context.Context, userID string, force bool, maxAge time.Duration) (repositories.ExternalSnapshot, error) {
	if maxAge <= 0 {
		maxAge = s.opts.CacheMaxAge
	}
	if !force {
		snap, ok, err := s.repo.Snapshot(ctx, userID)
		if err != nil {
			return repositories.ExternalSnapshot{}, err
		}
		if ok && s.now().Sub(snap.FetchedAt) <= maxAge {
			return snap, nil
		}
	}
	tasks, err := s.Fetch(ctx, userID)
	if err != nil {
		return repositories.ExternalSnapshot{}, err
	}
	return repositories.ExternalSnapshot{Tasks: tasks, FetchedAt: s.now()}, nil
}
