package ticktick

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"tomanage/internal/models"
)

type fakeServer struct {
	mu       sync.Mutex
	failData string
	calls    []string
	auth     []string
}

func (f *fakeServer) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, r.Method+" "+r.URL.Path)
		f.auth = append(f.auth, r.Header.Get("Authorization"))
	}
	mux.HandleFunc("/project", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		_ = json.NewEncoder(w).Encode([]Project{{ID: "p1", Name: "Work"}, {ID: "p2", Name: "Home"}, {ID: "p3", Closed: true}})
	})
	mux.HandleFunc("/project/", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/project/"), "/")
		id := parts[0]
		if len(parts) == 2 && parts[1] == "data" {
			if id == f.failData {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			if id == InboxProjectID {
				http.NotFound(w, r)
				return
			}
			_ = json.NewEncoder(w).Encode(ProjectData{
				Project: Project{ID: id},
				Tasks:   []Task{{ID: id + "-t1", Title: "task in " + id}},
			})
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		var in Task
		_ = json.NewDecoder(r.Body).Decode(&in)
		in.ID = "new-id"
		if in.ProjectID == "" {
			in.ProjectID = "inbox1"
		}
		_ = json.NewEncoder(w).Encode(in)
	})
	return mux
}

func TestListTasksWalksProjects(t *testing.T) {
	t.Parallel()

	f := &fakeServer{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	api := NewClient(srv.URL, time.Second).WithToken("tok")
	tasks, err := api.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2 (closed project skipped)", len(tasks))
	}
	if tasks[0].ProjectID != "p1" || tasks[1].ProjectID != "p2" {
		t.Fatalf("project ids not filled: %+v", tasks)
	}
	for _, a := range f.auth {
		if a != "Bearer tok" {
			t.Fatalf("authorization header = %q", a)
		}
	}
}

func TestListTasksFailsAtomically(t *testing.T) {
	t.Parallel()

	f := &fakeServer{failData: "p2"}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	tasks, err := NewClient(srv.URL, time.Second).WithToken("tok").ListTasks(context.Background())
	if err == nil {
		t.Fatal("expected error when one project page fails")
	}
	if !errors.Is(err, models.ErrExternalService) {
		t.Fatalf("error should wrap ErrExternalService, got %v", err)
	}
	if tasks != nil {
		t.Fatalf("no partial list expected, got %d tasks", len(tasks))
	}
}

func TestWriteCalls(t *testing.T) {
	t.Parallel()

	f := &fakeServer{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()
	api := NewClient(srv.URL, time.Second).WithToken("tok")
	ctx := context.Background()

	created, err := api.CreateTask(ctx, Task{ID: "ignored", Title: "x"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID != "new-id" || created.ProjectID != "inbox1" {
		t.Fatalf("created = %+v", created)
	}
	if err := api.CompleteTask(ctx, "p1", "t1"); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if err := api.DeleteTask(ctx, "", "t1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}

	want := []string{"POST /task", "POST /project/p1/task/t1/complete", "DELETE /project/inbox/task/t1"}
	if strings.Join(f.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", f.calls, want)
	}
}

func TestOAuthAuthCodeURL(t *testing.T) {
	t.Parallel()

	o := NewOAuth("cid", "secret", "", "", 0)
	raw := o.AuthCodeURL("state-1", "https://app.example/cb")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "ticktick.com" || u.Path != "/oauth/authorize" {
		t.Fatalf("url = %s", raw)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":     "cid",
		"scope":         Scope,
		"redirect_uri":  "https://app.example/cb",
		"response_type": "code",
		"state":         "state-1",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestOAuthExchange(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "abc" || r.PostForm.Get("grant_type") != "authorization_code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer"}`))
	}))
	defer srv.Close()

	o := NewOAuth("cid", "secret", "", srv.URL, time.Second)
	tok, err := o.Exchange(context.Background(), "abc", "https://app.example/cb")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tok != "at-1" {
		t.Fatalf("token = %q", tok)
	}

	if _, err := o.Exchange(context.Background(), "bad", "https://app.example/cb"); !errors.Is(err, models.ErrExternalService) {
		t.Fatalf("bad code should be an external service error, got %v", err)
	}

	unconfigured := NewOAuth("", "", "", srv.URL, time.Second)
	if _, err := unconfigured.Exchange(context.Background(), "abc", ""); !errors.Is(err, models.ErrExternalService) {
		t.Fatalf("unconfigured exchange should fail, got %v", err)
	}
}
