package services

import (
	"context"
	"log"
	"time"

	"tomanage/internal/enrichment"
	"tomanage/internal/models"
	"tomanage/internal/reconcile"
	"tomanage/internal/repositories"
)

type SyncResult struct {
	Tasks    []models.Task `json:"tasks"`
	Fetched  int           `json:"fetched"`
	LastSync time.Time     `json:"lastSync"`
}

// SyncService pulls TickTick into the local task list.
type SyncService interface {
	Sync(ctx context.Context, userID string) (SyncResult, error)
}

type syncService struct {
	tasks    repositories.TaskRepository
	ticktick TickTickService
	profile  ProfileService
	locks    *UserLocks
	now      Clock
}

func NewSyncService(tasks repositories.TaskRepository, tt TickTickService, profile ProfileService, locks *UserLocks, now Clock) SyncService {
	return &syncService{tasks: tasks, ticktick: tt, profile: profile, locks: locks, now: clockOrNow(now)}
}

// Sync fetches outside the user lock and merges under it. On any failure the
// local snapshot is left as it was.
func (s *syncService) Sync(ctx context.Context, userID string) (SyncResult, error) {
	fetched, err := s.ticktick.Fetch(ctx, userID)
	if err != nil {
		log.Printf("[sync][%s][err] fetch: %v", userID, err)
		return SyncResult{}, err
	}
	now := s.now()
	external := enrichment.EnrichAll(fetched, localNow(ctx, s.profile, userID, now))

	unlock := s.locks.Lock(userID)
	defer unlock()

	snap, err := s.tasks.Load(ctx, userID)
	if err != nil {
		return SyncResult{}, err
	}
	merged := reconcile.Merge(snap.Tasks, external)
	next := models.TaskSnapshot{Tasks: merged, LastSync: &now}
	if err := s.tasks.Save(ctx, userID, next); err != nil {
		return SyncResult{}, err
	}
	log.Printf("[sync][%s] fetched=%d total=%d", userID, len(external), len(merged))
	return SyncResult{Tasks: merged, Fetched: len(external), LastSync: now}, nil
}
