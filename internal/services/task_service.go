package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"tomanage/internal/enrichment"
	"tomanage/internal/models"
	"tomanage/internal/repositories"
	"tomanage/internal/ticktick"
	"tomanage/internal/usercontext"
)

const (
	DefaultPushTimeout      = 15 * time.Second
	DefaultAutoSyncInterval = 5 * time.Minute
)

// TaskService is the local task list of each user. Mutations are pushed to
// TickTick in the background when the user is connected.
type TaskService interface {
	List(ctx context.Context, userID string) ([]models.Task, error)
	Get(ctx context.Context, userID, id string) (models.Task, error)
	Create(ctx context.Context, userID string, input models.Task) (models.Task, error)
	Update(ctx context.Context, userID, id string, patch models.TaskPatch) (models.Task, error)
	ToggleComplete(ctx context.Context, userID, id string) (models.Task, error)
	Delete(ctx context.Context, userID, id string) error
	// Wait blocks until in-flight pushes finish or ctx is done.
	Wait(ctx context.Context) error
}

type TaskOptions struct {
	PushTimeout      time.Duration
	AutoSyncInterval time.Duration
}

type taskService struct {
	repo     repositories.TaskRepository
	profile  ProfileService
	ticktick TickTickService
	sync     SyncService
	locks    *UserLocks
	opts     TaskOptions
	now      Clock

	pushes    sync.WaitGroup
	pushLocks *UserLocks
}

func NewTaskService(repo repositories.TaskRepository, profile ProfileService, tt TickTickService, syncSvc SyncService, locks *UserLocks, opts TaskOptions, now Clock) TaskService {
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = DefaultPushTimeout
	}
	if opts.AutoSyncInterval <= 0 {
		opts.AutoSyncInterval = DefaultAutoSyncInterval
	}
	return &taskService{
		repo:      repo,
		profile:   profile,
		ticktick:  tt,
		sync:      syncSvc,
		locks:     locks,
		opts:      opts,
		now:       clockOrNow(now),
		pushLocks: NewUserLocks(),
	}
}

func (s *taskService) List(ctx context.Context, userID string) ([]models.Task, error) {
	s.autoSync(ctx, userID)

	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap.Tasks == nil {
		return []models.Task{}, nil
	}
	return snap.Tasks, nil
}

// autoSync refreshes from TickTick when the last sync is older than the
// configured interval. Failures only log; the caller gets the previous list.
func (s *taskService) autoSync(ctx context.Context, userID string) {
	if s.ticktick == nil || s.sync == nil {
		return
	}
	connected, err := s.ticktick.IsConnected(ctx, userID)
	if err != nil || !connected {
		return
	}
	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		return
	}
	if snap.LastSync != nil && s.now().Sub(*snap.LastSync) < s.opts.AutoSyncInterval {
		return
	}
	if _, err := s.sync.Sync(ctx, userID); err != nil {
		log.Printf("[tasks][autosync][warn] user=%s: %v", userID, err)
	}
}

func (s *taskService) Get(ctx context.Context, userID, id string) (models.Task, error) {
	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		return models.Task{}, err
	}
	i := snap.FindTask(id)
	if i < 0 {
		return models.Task{}, fmt.Errorf("%w: task %s", models.ErrNotFound, id)
	}
	return snap.Tasks[i], nil
}

func (s *taskService) Create(ctx context.Context, userID string, input models.Task) (models.Task, error) {
	if err := input.Validate(); err != nil {
		return models.Task{}, err
	}
	now := localNow(ctx, s.profile, userID, s.now())
	input.ID = ""
	input.ExternalID = ""
	input.Synced = false
	if input.Category == "" {
		input.Category = ticktick.InferCategory(input.Title, input.Tags)
	}
	task := enrichment.Enrich(models.NewTask(input, now), now)

	unlock := s.locks.Lock(userID)
	snap, err := s.repo.Load(ctx, userID)
	if err == nil {
		snap.Tasks = append(snap.Tasks, task)
		err = s.repo.Save(ctx, userID, snap)
	}
	unlock()
	if err != nil {
		return models.Task{}, err
	}

	s.push(userID, task.ID, s.pushTask(userID, task.ID, false))
	return task, nil
}

func (s *taskService) Update(ctx context.Context, userID, id string, patch models.TaskPatch) (models.Task, error) {
	now := localNow(ctx, s.profile, userID, s.now())
	var before, task models.Task

	unlock := s.locks.Lock(userID)
	err := func() error {
		snap, err := s.repo.Load(ctx, userID)
		if err != nil {
			return err
		}
		i := snap.FindTask(id)
		if i < 0 {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		before = snap.Tasks[i]
		task = enrichment.Enrich(models.ApplyUpdate(before, patch, now), now)
		if err := task.Validate(); err != nil {
			return err
		}
		snap.Tasks[i] = task
		return s.repo.Save(ctx, userID, snap)
	}()
	unlock()
	if err != nil {
		return models.Task{}, err
	}

	if task.Completed && !before.Completed {
		s.recordCompletion(ctx, userID, task)
	}
	s.push(userID, task.ID, s.pushTask(userID, task.ID, task.Completed && !before.Completed))
	return task, nil
}

func (s *taskService) ToggleComplete(ctx context.Context, userID, id string) (models.Task, error) {
	var task models.Task

	unlock := s.locks.Lock(userID)
	err := func() error {
		snap, err := s.repo.Load(ctx, userID)
		if err != nil {
			return err
		}
		i := snap.FindTask(id)
		if i < 0 {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		task = models.SetCompleted(snap.Tasks[i], !snap.Tasks[i].Completed, s.now())
		snap.Tasks[i] = task
		return s.repo.Save(ctx, userID, snap)
	}()
	unlock()
	if err != nil {
		return models.Task{}, err
	}

	if task.Completed {
		s.recordCompletion(ctx, userID, task)
	}
	s.push(userID, task.ID, s.pushTask(userID, task.ID, task.Completed))
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, userID, id string) error {
	var removed models.Task

	unlock := s.locks.Lock(userID)
	err := func() error {
		snap, err := s.repo.Load(ctx, userID)
		if err != nil {
			return err
		}
		i := snap.FindTask(id)
		if i < 0 {
			return fmt.Errorf("%w: task %s", models.ErrNotFound, id)
		}
		removed = snap.Tasks[i]
		snap.Tasks = append(snap.Tasks[:i], snap.Tasks[i+1:]...)
		return s.repo.Save(ctx, userID, snap)
	}()
	unlock()
	if err != nil {
		return err
	}

	// A task still being created remotely is removed by its create push.
	if removed.ExternalID != "" {
		s.push(userID, removed.ID, func(ctx context.Context, api ticktick.API) error {
			return api.DeleteTask(ctx, removed.ExternalProjectID, removed.ExternalID)
		})
	}
	return nil
}

func (s *taskService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pushes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// push runs fn against the user's TickTick session on a detached context.
// Pushes for the same task never overlap.
// Users without a connection are skipped; failures are only logged.
func (s *taskService) push(userID, taskID string, fn func(ctx context.Context, api ticktick.API) error) {
	if s.ticktick == nil {
		return
	}
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		unlock := s.pushLocks.Lock(userID + "/" + taskID)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.PushTimeout)
		defer cancel()

		api, err := s.ticktick.API(ctx, userID)
		if errors.Is(err, models.ErrNotConnected) {
			return
		}
		if err == nil {
			err = fn(ctx, api)
		}
		if err != nil {
			log.Printf("[tasks][push][err] user=%s task=%s: %v", userID, taskID, err)
		}
	}()
}

// pushTask sends the task as currently stored, not as it was when the push
// was queued. An unlinked task is created remotely and linked; a linked one
// is updated, or completed when completed is set.
func (s *taskService) pushTask(userID, taskID string, completed bool) func(context.Context, ticktick.API) error {
	return func(ctx context.Context, api ticktick.API) error {
		t, ok, err := s.stored(ctx, userID, taskID)
		if err != nil || !ok {
			return err
		}
		switch {
		case t.ExternalID == "":
			return s.pushCreate(ctx, api, userID, t)
		case completed && t.Completed:
			return api.CompleteTask(ctx, t.ExternalProjectID, t.ExternalID)
		default:
			_, err := api.UpdateTask(ctx, t.ExternalID, ticktick.ToExternal(t))
			return err
		}
	}
}

func (s *taskService) stored(ctx context.Context, userID, taskID string) (models.Task, bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		return models.Task{}, false, err
	}
	i := snap.FindTask(taskID)
	if i < 0 {
		return models.Task{}, false, nil
	}
	return snap.Tasks[i], true, nil
}

// pushCreate creates the remote copy and links the local task to it. When
// the local task was deleted meanwhile, the remote copy is deleted too.
func (s *taskService) pushCreate(ctx context.Context, api ticktick.API, userID string, t models.Task) error {
	created, err := api.CreateTask(ctx, ticktick.ToExternal(t))
	if err != nil {
		return err
	}
	if created.ID == "" {
		return fmt.Errorf("%w: ticktick returned no task id", models.ErrExternalService)
	}

	linked, err := s.link(ctx, userID, t.ID, created)
	if err != nil || linked {
		return err
	}
	log.Printf("[tasks][push] user=%s task=%s deleted during create, removing remote %s", userID, t.ID, created.ID)
	return api.DeleteTask(ctx, created.ProjectID, created.ID)
}

func (s *taskService) link(ctx context.Context, userID, taskID string, created ticktick.Task) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	snap, err := s.repo.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	i := snap.FindTask(taskID)
	if i < 0 {
		return false, nil
	}
	snap.Tasks[i].ExternalID = created.ID
	snap.Tasks[i].ExternalProjectID = created.ProjectID
	snap.Tasks[i].Synced = true
	return true, s.repo.Save(ctx, userID, snap)
}

func (s *taskService) recordCompletion(ctx context.Context, userID string, t models.Task) {
	if s.profile == nil || t.CompletedAt == nil {
		return
	}
	prefs, err := s.profile.Preferences(ctx, userID)
	if err != nil {
		log.Printf("[tasks][analytics][warn] user=%s: %v", userID, err)
		return
	}
	local := t.CompletedAt.In(prefs.Location())

	energy := t.EnergyRequired
	if !energy.Valid() {
		energy = models.EnergyMedium
	}
	contextType := t.ContextType
	if contextType == "" {
		contextType = models.ContextGeneral
	}
	entry := models.AnalyticsEntry{
		TaskID:            t.ID,
		CompletedAt:       *t.CompletedAt,
		TimeOfDay:         string(usercontext.TimeOfDayAt(local.Hour())),
		DayOfWeek:         usercontext.DayName(local),
		EnergyLevel:       energy,
		ContextType:       string(contextType),
		EstimatedDuration: t.EstimatedDuration,
	}
	if err := s.profile.SaveAnalytics(ctx, userID, entry); err != nil {
		log.Printf("[tasks][analytics][warn] user=%s task=%s: %v", userID, t.ID, err)
	}
}
