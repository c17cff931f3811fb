package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"tomanage/internal/ai"
	"tomanage/internal/models"
	"tomanage/internal/notify"
	"tomanage/internal/pdf"
	"tomanage/internal/recommend"
	"tomanage/internal/repositories"
	"tomanage/internal/ticktick"
	"tomanage/internal/utils"
)

// remote is a minimal TickTick open API. With stateful set, created tasks get
// sequential ids and are kept, updated and deleted like the real service.
type remote struct {
	mu          sync.Mutex
	calls       []string
	fail        bool
	tasks       []ticktick.Task
	stateful    bool
	createDelay time.Duration
	seq         int
}

func (r *remote) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req.Method+" "+req.URL.Path)
}

func (r *remote) count(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (r *remote) exact(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *remote) stored() []ticktick.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ticktick.Task(nil), r.tasks...)
}

func (r *remote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer"}`))
	})
	mux.HandleFunc("/project", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		r.mu.Lock()
		fail := r.fail
		r.mu.Unlock()
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode([]ticktick.Project{{ID: "p1", Name: "Work"}})
	})
	mux.HandleFunc("/project/", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		switch req.URL.Path {
		case "/project/inbox/data":
			http.NotFound(w, req)
		case "/project/p1/data":
			r.mu.Lock()
			tasks := append([]ticktick.Task(nil), r.tasks...)
			r.mu.Unlock()
			_ = json.NewEncoder(w).Encode(ticktick.ProjectData{Project: ticktick.Project{ID: "p1"}, Tasks: tasks})
		default:
			if req.Method == http.MethodDelete {
				id := req.URL.Path[strings.LastIndex(req.URL.Path, "/")+1:]
				r.mu.Lock()
				for i, t := range r.tasks {
					if t.ID == id {
						r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
						break
					}
				}
				r.mu.Unlock()
			}
			w.WriteHeader(http.StatusOK)
		}
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		var in ticktick.Task
		_ = json.NewDecoder(req.Body).Decode(&in)

		r.mu.Lock()
		delay := r.createDelay
		r.mu.Unlock()
		time.Sleep(delay)

		r.mu.Lock()
		in.ID = "ext-new"
		in.ProjectID = "p1"
		if r.stateful {
			r.seq++
			in.ID = fmt.Sprintf("ext-%d", r.seq)
			r.tasks = append(r.tasks, in)
		}
		r.mu.Unlock()
		_ = json.NewEncoder(w).Encode(in)
	})
	mux.HandleFunc("/task/", func(w http.ResponseWriter, req *http.Request) {
		r.record(req)
		var in ticktick.Task
		_ = json.NewDecoder(req.Body).Decode(&in)
		in.ID = strings.TrimPrefix(req.URL.Path, "/task/")
		r.mu.Lock()
		for i, t := range r.tasks {
			if t.ID == in.ID {
				in.ProjectID = t.ProjectID
				r.tasks[i] = in
			}
		}
		r.mu.Unlock()
		_ = json.NewEncoder(w).Encode(in)
	})
	return mux
}

type fixture struct {
	now    time.Time
	remote *remote
	srv    *httptest.Server

	taskRepo repositories.TaskRepository
	ttRepo   repositories.TickTickRepository
	sealer   *utils.Sealer

	profile  ProfileService
	ticktick TickTickService
	sync     SyncService
	tasks    TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repositories.Open(repositories.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := repositories.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{now: time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC), remote: &remote{}}
	f.srv = httptest.NewServer(f.remote.handler())
	t.Cleanup(f.srv.Close)
	clock := func() time.Time { return f.now }

	kv := repositories.NewKVRepository(db)
	f.taskRepo = repositories.NewTaskRepository(kv)
	f.ttRepo = repositories.NewTickTickRepository(kv)
	f.sealer, err = utils.NewSealer("test-secret")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}

	f.profile = NewProfileService(
		repositories.NewPreferencesRepository(kv),
		repositories.NewPatternRepository(kv),
		repositories.NewAnalyticsRepository(db),
		clock,
	)
	oauth := ticktick.NewOAuth("client", "secret", f.srv.URL+"/oauth/authorize", f.srv.URL+"/oauth/token", time.Second)
	f.ticktick = NewTickTickService(f.ttRepo, oauth, ticktick.NewClient(f.srv.URL, time.Second), f.sealer,
		TickTickOptions{RedirectURI: "http://localhost/callback", Timeout: time.Second}, clock)
	locks := NewUserLocks()
	f.sync = NewSyncService(f.taskRepo, f.ticktick, f.profile, locks, clock)
	f.tasks = NewTaskService(f.taskRepo, f.profile, f.ticktick, f.sync, locks, TaskOptions{PushTimeout: time.Second}, clock)
	return f
}

func (f *fixture) connect(t *testing.T, userID string) {
	t.Helper()
	sealed, err := f.sealer.Seal("tok-123")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.ttRepo.SaveToken(context.Background(), userID, sealed); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.tasks.Wait(ctx); err != nil {
		t.Fatalf("pushes did not finish: %v", err)
	}
}

type cannedModel struct {
	mu   sync.Mutex
	text string
	err  error
	reqs []ai.Request
}

func (m *cannedModel) Create(_ context.Context, req ai.Request) (ai.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return ai.Response{}, m.err
	}
	return ai.Response{StopReason: "end_turn", Content: []ai.ContentBlock{{Type: ai.BlockText, Text: m.text}}}, nil
}

func TestPreferencesDefaultOnFirstAccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	prefs, err := f.profile.Preferences(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if prefs.WorkHours.Start != "09:00" || len(prefs.EnergyByHour) == 0 {
		t.Fatalf("defaults = %+v", prefs)
	}

	bad := prefs
	bad.EnergyByHour = map[string]models.EnergyLevel{"25": models.EnergyHigh}
	if err := f.profile.SavePreferences(ctx, "u1", bad); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	prefs.Role = "Staff Engineer"
	if err := f.profile.SavePreferences(ctx, "u1", prefs); err != nil {
		t.Fatal(err)
	}
	profile, err := f.profile.Profile(ctx, "u1")
	if err != nil || profile.Preferences.Role != "Staff Engineer" || profile.UserID != "u1" {
		t.Fatalf("profile = %+v, %v", profile, err)
	}
}

func TestPatternsAndAnalytics(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.profile.SavePattern(ctx, "u1", "moods", models.Pattern{}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("unknown pattern type err = %v", err)
	}
	if err := f.profile.SavePattern(ctx, "u1", models.PatternEnergy, models.Pattern{"peak": "morning"}); err != nil {
		t.Fatal(err)
	}
	p, ok, err := f.profile.GetPattern(ctx, "u1", models.PatternEnergy)
	if err != nil || !ok || p["peak"] != "morning" {
		t.Fatalf("GetPattern = %v, %v, %v", p, ok, err)
	}

	for _, id := range []string{"a", "b", "c"} {
		e := models.AnalyticsEntry{TaskID: id, CompletedAt: f.now, TimeOfDay: "morning", DayOfWeek: "Monday", EnergyLevel: models.EnergyHigh, ContextType: "frontend"}
		if err := f.profile.SaveAnalytics(ctx, "u1", e); err != nil {
			t.Fatal(err)
		}
	}
	last, err := f.profile.Analytics(ctx, "u1", 2)
	if err != nil || len(last) != 2 || last[0].TaskID != "b" || last[1].TaskID != "c" {
		t.Fatalf("Analytics(2) = %+v, %v", last, err)
	}
	if err := f.profile.ClearAnalytics(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if all, _ := f.profile.Analytics(ctx, "u1", 0); len(all) != 0 {
		t.Fatalf("entries after clear = %d", len(all))
	}
}

func TestExchangeChecksStateFirst(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.ticktick.Exchange(ctx, "u1", "code", "forged", ""); !errors.Is(err, models.ErrAuthState) {
		t.Fatalf("err without pending state = %v", err)
	}

	raw, err := f.ticktick.AuthURL(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	state := u.Query().Get("state")
	if state == "" || u.Query().Get("redirect_uri") != "http://localhost/callback" {
		t.Fatalf("auth url = %s", raw)
	}

	if err := f.ticktick.Exchange(ctx, "u1", "code", "forged", ""); !errors.Is(err, models.ErrAuthState) {
		t.Fatalf("err with wrong state = %v", err)
	}
	if f.remote.count("POST /oauth/token") != 0 {
		t.Fatal("token endpoint called before state check")
	}
	if ok, _ := f.ticktick.IsConnected(ctx, "u1"); ok {
		t.Fatal("connected after failed exchange")
	}

	if err := f.ticktick.Exchange(ctx, "u1", "code", state, ""); err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	stored, _, _ := f.ttRepo.Token(ctx, "u1")
	if stored == "" || stored == "tok-123" {
		t.Fatalf("token not sealed: %q", stored)
	}
	if _, ok, _ := f.ttRepo.State(ctx, "u1"); ok {
		t.Fatal("state not cleared")
	}

	if err := f.ticktick.Disconnect(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ticktick.API(ctx, "u1"); !errors.Is(err, models.ErrNotConnected) {
		t.Fatalf("API after disconnect err = %v", err)
	}
}

func TestExternalTasksCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "u1")
	f.remote.tasks = []ticktick.Task{{ID: "r1", Title: "Review PR"}}

	if _, err := f.ticktick.ExternalTasks(ctx, "u1", false, 0); err != nil {
		t.Fatal(err)
	}
	snap, err := f.ticktick.ExternalTasks(ctx, "u1", false, 0)
	if err != nil || len(snap.Tasks) != 1 || snap.Tasks[0].ExternalID != "r1" {
		t.Fatalf("cached = %+v, %v", snap, err)
	}
	if n := f.remote.count("GET /project/p1/data"); n != 1 {
		t.Fatalf("fresh cache refetched: %d fetches", n)
	}

	if _, err := f.ticktick.ExternalTasks(ctx, "u1", true, 0); err != nil {
		t.Fatal(err)
	}
	f.now = f.now.Add(2 * time.Minute)
	if _, err := f.ticktick.ExternalTasks(ctx, "u1", false, 0); err != nil {
		t.Fatal(err)
	}
	if n := f.remote.count("GET /project/p1/data"); n != 3 {
		t.Fatalf("fetches = %d, want 3 (forced and stale)", n)
	}
}

func TestSyncMergesAndKeepsLocalOnFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.sync.Sync(ctx, "u1"); !errors.Is(err, models.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	f.connect(t, "u1")

	local := models.NewTask(models.Task{Title: "Write design doc"}, f.now)
	if err := f.taskRepo.Save(ctx, "u1", models.TaskSnapshot{Tasks: []models.Task{local}}); err != nil {
		t.Fatal(err)
	}
	f.remote.tasks = []ticktick.Task{{ID: "r1", Title: "Fix login bug", Priority: ticktick.PriorityHigh}}

	res, err := f.sync.Sync(ctx, "u1")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Fetched != 1 || len(res.Tasks) != 2 || res.Tasks[0].ExternalID != "r1" || res.Tasks[1].ID != local.ID {
		t.Fatalf("merged = %+v", res)
	}
	if res.Tasks[0].Urgency == "" || res.Tasks[0].EnergyRequired == "" {
		t.Fatalf("fetched task not enriched: %+v", res.Tasks[0])
	}
	snap, _ := f.taskRepo.Load(ctx, "u1")
	if snap.LastSync == nil || !snap.LastSync.Equal(f.now) || len(snap.Tasks) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	f.remote.fail = true
	f.now = f.now.Add(time.Hour)
	if _, err := f.sync.Sync(ctx, "u1"); !errors.Is(err, models.ErrExternalService) {
		t.Fatalf("err = %v, want ErrExternalService", err)
	}
	after, _ := f.taskRepo.Load(ctx, "u1")
	if len(after.Tasks) != 2 || !after.LastSync.Equal(*snap.LastSync) {
		t.Fatalf("snapshot changed on failure: %+v", after)
	}
}

func TestCreateEnrichesAndPushes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "u1")

	if _, err := f.tasks.Create(ctx, "u1", models.Task{Title: "  "}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	due := f.now.Add(3 * time.Hour)
	task, err := f.tasks.Create(ctx, "u1", models.Task{Title: "Solve leetcode problems", DueDate: &due})
	if err != nil {
		t.Fatal(err)
	}
	if task.ID == "" || task.Urgency != models.UrgencyCritical || task.ContextType != models.ContextInterview || task.Category != models.CategoryInterview {
		t.Fatalf("created = %+v", task)
	}
	if task.EstimatedDuration == 0 || task.EnergyRequired == "" {
		t.Fatalf("gaps not filled: %+v", task)
	}

	f.wait(t)
	got, err := f.tasks.Get(ctx, "u1", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ExternalID != "ext-new" || got.ExternalProjectID != "p1" || !got.Synced {
		t.Fatalf("push did not link task: %+v", got)
	}

	if _, err := f.tasks.ToggleComplete(ctx, "u1", task.ID); err != nil {
		t.Fatal(err)
	}
	f.wait(t)
	if f.remote.count("POST /project/p1/task/ext-new/complete") != 1 {
		t.Fatalf("complete not pushed: %v", f.remote.calls)
	}
	entries, err := f.profile.Analytics(ctx, "u1", 0)
	if err != nil || len(entries) != 1 || entries[0].TaskID != task.ID || entries[0].ContextType != "interview" {
		t.Fatalf("analytics = %+v, %v", entries, err)
	}

	if err := f.tasks.Delete(ctx, "u1", task.ID); err != nil {
		t.Fatal(err)
	}
	f.wait(t)
	if f.remote.count("DELETE /project/p1/task/ext-new") != 1 {
		t.Fatalf("delete not pushed: %v", f.remote.calls)
	}
	if _, err := f.tasks.Get(ctx, "u1", task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get after delete err = %v", err)
	}
}

func TestUpdateDuringCreatePushCreatesRemoteOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "u1")
	f.remote.stateful = true
	f.remote.createDelay = 150 * time.Millisecond

	task, err := f.tasks.Create(ctx, "u1", models.Task{Title: "write report"})
	if err != nil {
		t.Fatal(err)
	}
	title := "write the report"
	if _, err := f.tasks.Update(ctx, "u1", task.ID, models.TaskPatch{Title: &title}); err != nil {
		t.Fatal(err)
	}
	f.wait(t)

	if n := f.remote.exact("POST /task"); n != 1 {
		t.Fatalf("remote creates = %d, want 1: %v", n, f.remote.calls)
	}
	remote := f.remote.stored()
	if len(remote) != 1 || remote[0].Title != title {
		t.Fatalf("remote tasks = %+v", remote)
	}
	got, err := f.tasks.Get(ctx, "u1", task.ID)
	if err != nil || got.ExternalID != remote[0].ID {
		t.Fatalf("local = %+v, %v", got, err)
	}

	res, err := f.sync.Sync(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 1 || res.Tasks[0].Title != title {
		t.Fatalf("tasks after sync = %+v", res.Tasks)
	}
}

func TestDeleteDuringCreatePushRemovesRemote(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "u1")
	f.remote.stateful = true
	f.remote.createDelay = 150 * time.Millisecond

	task, err := f.tasks.Create(ctx, "u1", models.Task{Title: "throwaway"})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.tasks.Delete(ctx, "u1", task.ID); err != nil {
		t.Fatal(err)
	}
	f.wait(t)

	if remote := f.remote.stored(); len(remote) != 0 {
		t.Fatalf("remote kept deleted task: %+v", remote)
	}
	res, err := f.sync.Sync(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 0 {
		t.Fatalf("deleted task came back: %+v", res.Tasks)
	}
}

func TestUserLocksDropReleasedKeys(t *testing.T) {
	t.Parallel()
	l := NewUserLocks()

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("u1/t1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 20 {
		t.Fatalf("counter = %d", counter)
	}
	if n := l.held(); n != 0 {
		t.Fatalf("keys left = %d", n)
	}
}

func (l *UserLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func TestUrgencyFollowsUserTimezone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	setZone := func(userID, zone string) {
		t.Helper()
		prefs, err := f.profile.Preferences(ctx, userID)
		if err != nil {
			t.Fatal(err)
		}
		prefs.Timezone = zone
		if err := f.profile.SavePreferences(ctx, userID, prefs); err != nil {
			t.Fatal(err)
		}
	}
	setZone("tokyo", "Asia/Tokyo")
	setZone("london", "UTC")

	// 19:00 on March 10 in Tokyo; the due date is 05:00 on March 11 there.
	due := time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC)
	cases := []struct {
		user string
		want models.Urgency
	}{
		{"tokyo", models.UrgencyTomorrow},
		{"london", models.UrgencyToday},
	}
	for _, tc := range cases {
		task, err := f.tasks.Create(ctx, tc.user, models.Task{Title: "Send invoice", DueDate: &due})
		if err != nil {
			t.Fatal(err)
		}
		if task.Urgency != tc.want {
			t.Errorf("%s: urgency = %s, want %s", tc.user, task.Urgency, tc.want)
		}
	}

	f.connect(t, "tokyo")
	f.remote.tasks = []ticktick.Task{{ID: "r1", ProjectID: "p1", Title: "Pay rent", DueDate: "2025-03-10T20:00:00+0000"}}
	res, err := f.sync.Sync(ctx, "tokyo")
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range res.Tasks {
		if task.ExternalID == "r1" && task.Urgency != models.UrgencyTomorrow {
			t.Fatalf("synced urgency = %s, want tomorrow", task.Urgency)
		}
	}
}

func TestToggleCompleteTracksCompletedAt(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, "u3", models.Task{Title: "Water plants"})
	if err != nil {
		t.Fatal(err)
	}
	f.wait(t)
	f.now = f.now.Add(time.Hour)

	done, err := f.tasks.ToggleComplete(ctx, "u3", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !done.Completed || done.CompletedAt == nil || !done.CompletedAt.Equal(f.now) || !done.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("completed = %+v", done)
	}
	reopened, err := f.tasks.ToggleComplete(ctx, "u3", task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Completed || reopened.CompletedAt != nil || !reopened.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("reopened = %+v", reopened)
	}
	stored, _ := f.tasks.Get(ctx, "u3", task.ID)
	if stored.CompletedAt != nil {
		t.Fatalf("stored completedAt = %v", stored.CompletedAt)
	}
}

func TestTaskMutationsWithoutConnection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.tasks.Create(ctx, "u2", models.Task{Title: "Buy groceries"})
	if err != nil {
		t.Fatal(err)
	}
	title := "Buy groceries and milk"
	updated, err := f.tasks.Update(ctx, "u2", task.ID, models.TaskPatch{Title: &title})
	if err != nil || updated.Title != title || !updated.CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("Update = %+v, %v", updated, err)
	}
	empty := ""
	if _, err := f.tasks.Update(ctx, "u2", task.ID, models.TaskPatch{Title: &empty}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("blank title err = %v", err)
	}
	if _, err := f.tasks.Update(ctx, "u2", "missing", models.TaskPatch{Title: &title}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing task err = %v", err)
	}
	if err := f.tasks.Delete(ctx, "u2", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("delete missing err = %v", err)
	}

	f.wait(t)
	if len(f.remote.calls) != 0 {
		t.Fatalf("unconnected user reached TickTick: %v", f.remote.calls)
	}
	list, err := f.tasks.List(ctx, "u2")
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %+v, %v", list, err)
	}
}

func TestListAutoSyncs(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.connect(t, "u1")
	f.remote.tasks = []ticktick.Task{{ID: "r1", Title: "Review PR"}}

	list, err := f.tasks.List(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].ExternalID != "r1" {
		t.Fatalf("List = %+v, %v", list, err)
	}
	if _, err := f.tasks.List(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if n := f.remote.count("GET /project/p1/data"); n != 1 {
		t.Fatalf("synced %d times within the interval", n)
	}

	f.now = f.now.Add(DefaultAutoSyncInterval + time.Second)
	f.remote.fail = true
	list, err = f.tasks.List(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("failed auto-sync must return previous list: %+v, %v", list, err)
	}
}

func TestRecommendationFallsBackWithoutModel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	recs := NewRecommendationService(f.tasks, f.profile, recommend.NewEngine(time.Second), nil, func() time.Time { return f.now })

	rec, err := recs.Recommend(ctx, "u1", recommend.MethodSmart)
	if err != nil || rec.Text != recommend.NoTasksMessage {
		t.Fatalf("empty list = %+v, %v", rec, err)
	}

	if _, err := f.tasks.Create(ctx, "u1", models.Task{Title: "Refactor auth service", Priority: models.PriorityHigh}); err != nil {
		t.Fatal(err)
	}
	rec, err = recs.Recommend(ctx, "u1", recommend.MethodSmart)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != recommend.SourceFallback || rec.Task == nil || rec.Task.Title != "Refactor auth service" {
		t.Fatalf("recommendation = %+v", rec)
	}
}

func TestRecommendationUsesAssistant(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	model := &cannedModel{text: "Start with the auth refactor."}
	assistant := ai.NewAssistant(model, ai.NewDispatcher(f.profile))
	recs := NewRecommendationService(f.tasks, f.profile, recommend.NewEngine(time.Second), assistant, func() time.Time { return f.now })

	if _, err := f.tasks.Create(ctx, "u1", models.Task{Title: "Refactor auth service"}); err != nil {
		t.Fatal(err)
	}
	rec, err := recs.Recommend(ctx, "u1", recommend.MethodSmart)
	if err != nil || rec.Source != recommend.SourceAI || rec.Text != model.text {
		t.Fatalf("recommendation = %+v, %v", rec, err)
	}
	req := model.reqs[0]
	if len(req.Tools) == 0 || !strings.Contains(req.System, "Senior Frontend Engineer") {
		t.Fatalf("request = %+v", req)
	}

	model.err = errors.New("overloaded")
	rec, err = recs.Recommend(ctx, "u1", recommend.MethodSmart)
	if err != nil || rec.Source != recommend.SourceFallback || rec.FallbackReason == "" {
		t.Fatalf("fallback = %+v, %v", rec, err)
	}
}

func TestExtractTasksCreatesValidItems(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	model := &cannedModel{text: "```json\n[{\"title\":\"Call the dentist\",\"priority\":\"high\",\"energyRequired\":\"low\"},{\"title\":\"\"}]\n```"}
	svc := NewAssistantService(ai.NewAssistant(model, ai.NewDispatcher(f.profile)), f.profile, f.tasks)

	if _, err := svc.ExtractTasks(ctx, "u1", ExtractInput{}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("empty input err = %v", err)
	}
	res, err := svc.ExtractTasks(ctx, "u1", ExtractInput{Text: "remember to call the dentist asap"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tasks) != 1 || res.Skipped != 1 || res.Tasks[0].Priority != models.PriorityHigh || res.Tasks[0].Urgency == "" {
		t.Fatalf("result = %+v", res)
	}
	if model.reqs[0].Tools != nil || model.reqs[0].System != ai.ExtractionSystem {
		t.Fatal("extraction must run without tools")
	}
	list, _ := f.tasks.List(ctx, "u1")
	if len(list) != 1 {
		t.Fatalf("stored tasks = %d", len(list))
	}

	unconfigured := NewAssistantService(nil, f.profile, f.tasks)
	if _, err := unconfigured.Chat(ctx, "u1", []ai.Message{ai.TextMessage(ai.RoleUser, "hi")}); !errors.Is(err, models.ErrExternalService) {
		t.Fatalf("chat without model err = %v", err)
	}
}

type fakeNotifier struct {
	sent []string
}

func (n *fakeNotifier) Enabled() bool { return true }

func (n *fakeNotifier) Notify(_ context.Context, recipient, subject, text string) error {
	n.sent = append(n.sent, recipient+"|"+subject+"|"+text)
	return nil
}

func TestDeliverRecommendation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	tg := &fakeNotifier{}
	recs := NewRecommendationService(f.tasks, f.profile, recommend.NewEngine(time.Second), nil, func() time.Time { return f.now })
	svc := NewNotificationService(recs, f.profile, map[notify.Channel]notify.Notifier{notify.ChannelTelegram: tg})

	if _, err := svc.Deliver(ctx, "u1", recommend.MethodSmart, notify.ChannelEmail); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("unconfigured channel err = %v", err)
	}
	if _, err := svc.Deliver(ctx, "u1", recommend.MethodSmart, notify.ChannelTelegram); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("missing chat id err = %v", err)
	}

	prefs, _ := f.profile.Preferences(ctx, "u1")
	prefs.TelegramChatID = 42
	if err := f.profile.SavePreferences(ctx, "u1", prefs); err != nil {
		t.Fatal(err)
	}
	if _, err := f.tasks.Create(ctx, "u1", models.Task{Title: "Ship release"}); err != nil {
		t.Fatal(err)
	}
	d, err := svc.Deliver(ctx, "u1", recommend.MethodSmart, notify.ChannelTelegram)
	if err != nil {
		t.Fatal(err)
	}
	if d.Recipient != "42" || len(tg.sent) != 1 || !strings.HasPrefix(tg.sent[0], "42|Next up: Ship release|") {
		t.Fatalf("delivery = %+v sent = %q", d, tg.sent)
	}
}

type captureGenerator struct {
	data pdf.ReportData
}

func (g *captureGenerator) TaskReport(data pdf.ReportData) ([]byte, error) {
	g.data = data
	return []byte("%PDF-fake"), nil
}

func TestTaskReport(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	gen := &captureGenerator{}
	svc := NewReportService(f.tasks, f.profile, gen, func() time.Time { return f.now })

	overdue := f.now.Add(-48 * time.Hour)
	for _, in := range []models.Task{
		{Title: "Renew passport", Priority: models.PriorityHigh, DueDate: &overdue},
		{Title: "Read newsletter", Priority: models.PriorityLow},
	} {
		if _, err := f.tasks.Create(ctx, "u1", in); err != nil {
			t.Fatal(err)
		}
	}

	out, err := svc.TaskReport(ctx, "u1")
	if err != nil || string(out) != "%PDF-fake" {
		t.Fatalf("TaskReport = %q, %v", out, err)
	}
	if gen.data.Workload.TotalIncompleteTasks != 2 || len(gen.data.Matrix.UrgentImportant) != 1 || len(gen.data.Matrix.Neither) != 1 {
		t.Fatalf("report data = %+v", gen.data)
	}
	if gen.data.Recommendation != "Renew passport" {
		t.Fatalf("recommendation = %q", gen.data.Recommendation)
	}
}
