package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"tomanage/internal/models"
)

const (
	DefaultBaseURL = "https://api.ticktick.com/open/v1"
	DefaultTimeout = 30 * time.Second
)

// API is the set of TickTick calls the sync and task services rely on.
type API interface {
	ListProjects(ctx context.Context) ([]Project, error)
	ListTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, task Task) (Task, error)
	UpdateTask(ctx context.Context, id string, task Task) (Task, error)
	DeleteTask(ctx context.Context, projectID, id string) error
	CompleteTask(ctx context.Context, projectID, id string) error
}

// Client builds per-token API sessions against one TickTick deployment.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a session that authenticates every call with the bearer token.
func (c *Client) WithToken(token string) API {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	hc.Timeout = c.http.Timeout
	return &session{baseURL: c.baseURL, http: hc}
}

type session struct {
	baseURL string
	http    *http.Client
}

var errNotFound = errors.New("ticktick resource not found")

func (s *session) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode ticktick request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build ticktick request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ticktick %s %s: %v", models.ErrExternalService, method, path, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w: %s %s", models.ErrExternalService, errNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := string(respBody)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return fmt.Errorf("%w: ticktick %s %s: status=%d body=%s", models.ErrExternalService, method, path, resp.StatusCode, excerpt)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode ticktick %s %s: %v", models.ErrExternalService, method, path, err)
	}
	return nil
}

func (s *session) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := s.do(ctx, http.MethodGet, "/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *session) projectData(ctx context.Context, projectID string) (ProjectData, error) {
	var data ProjectData
	err := s.do(ctx, http.MethodGet, "/project/"+url.PathEscape(projectID)+"/data", nil, &data)
	return data, err
}

// ListTasks walks the inbox and every project. Any failed page fails the whole
// call so callers never see a partial list.
func (s *session) ListTasks(ctx context.Context) ([]Task, error) {
	projects, err := s.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	var all []Task
	inbox, err := s.projectData(ctx, InboxProjectID)
	switch {
	case errors.Is(err, errNotFound):
		log.Printf("[ticktick][list] inbox not available, skipping")
	case err != nil:
		return nil, err
	default:
		all = append(all, inbox.Tasks...)
	}

	for _, p := range projects {
		if p.Closed {
			continue
		}
		data, err := s.projectData(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range data.Tasks {
			if t.ProjectID == "" {
				t.ProjectID = p.ID
			}
			all = append(all, t)
		}
	}
	return all, nil
}

func (s *session) CreateTask(ctx context.Context, task Task) (Task, error) {
	task.ID = ""
	var created Task
	if err := s.do(ctx, http.MethodPost, "/task", task, &created); err != nil {
		return Task{}, err
	}
	return created, nil
}

func (s *session) UpdateTask(ctx context.Context, id string, task Task) (Task, error) {
	task.ID = id
	var updated Task
	if err := s.do(ctx, http.MethodPost, "/task/"+url.PathEscape(id), task, &updated); err != nil {
		return Task{}, err
	}
	return updated, nil
}

func (s *session) DeleteTask(ctx context.Context, projectID, id string) error {
	if projectID == "" {
		projectID = InboxProjectID
	}
	return s.do(ctx, http.MethodDelete, "/project/"+url.PathEscape(projectID)+"/task/"+url.PathEscape(id), nil, nil)
}

func (s *session) CompleteTask(ctx context.Context, projectID, id string) error {
	if projectID == "" {
		projectID = InboxProjectID
	}
	return s.do(ctx, http.MethodPost, "/project/"+url.PathEscape(projectID)+"/task/"+url.PathEscape(id)+"/complete", struct{}{}, nil)
}
