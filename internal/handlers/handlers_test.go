package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tomanage/internal/ai"
	"tomanage/internal/middleware"
	"tomanage/internal/models"
	"tomanage/internal/notify"
	"tomanage/internal/recommend"
	"tomanage/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(middleware.UserIDKey, userID)
		}
		c.Next()
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := map[error]int{
		fmt.Errorf("%w: title", models.ErrValidation):    http.StatusBadRequest,
		models.ErrAuthState:                              http.StatusBadRequest,
		fmt.Errorf("%w: task x", models.ErrNotFound):     http.StatusNotFound,
		models.ErrNotConnected:                           http.StatusConflict,
		fmt.Errorf("%w: 503", models.ErrExternalService): http.StatusBadGateway,
		models.ErrToolExecution:                          http.StatusBadGateway,
		context.DeadlineExceeded:                         http.StatusGatewayTimeout,
		errors.New("disk full"):                          http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

type fakeAssistant struct {
	res ai.Result
	err error
}

func (f *fakeAssistant) Chat(_ context.Context, _ string, msgs []ai.Message) (ai.Result, error) {
	if err := ai.ValidateConversation(msgs); err != nil {
		return ai.Result{}, err
	}
	return f.res, f.err
}

func (f *fakeAssistant) ExtractTasks(context.Context, string, services.ExtractInput) (services.ExtractResult, error) {
	return services.ExtractResult{}, f.err
}

func TestChatHandler(t *testing.T) {
	t.Parallel()

	fake := &fakeAssistant{res: ai.Result{Text: "Sounds like a plan.", StopReason: "end_turn", Iterations: 1}}
	r := gin.New()
	r.POST("/chat", withUser("u1"), NewChatHandler(fake).Chat)

	w := do(r, http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"plan my day"}]}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Sounds like a plan.") {
		t.Fatalf("chat = %d %s", w.Code, w.Body)
	}
	if w := do(r, http.MethodPost, "/chat", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing messages = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/chat", `{"messages":[{"role":"assistant","content":"hi"}]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("assistant-last conversation = %d", w.Code)
	}

	fake.err = fmt.Errorf("%w: overloaded", models.ErrExternalService)
	if w := do(r, http.MethodPost, "/chat", `{"messages":[{"role":"user","content":"hi"}]}`); w.Code != http.StatusBadGateway {
		t.Fatalf("model failure = %d", w.Code)
	}

	anon := gin.New()
	anon.POST("/chat", NewChatHandler(fake).Chat)
	if w := do(anon, http.MethodPost, "/chat", `{}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("no user = %d", w.Code)
	}
}

type fakeRecs struct {
	method recommend.Method
}

func (f *fakeRecs) Recommend(_ context.Context, _ string, method recommend.Method) (recommend.Recommendation, error) {
	f.method = method
	return recommend.Recommendation{Method: method, Text: "do it", Source: recommend.SourceRule, Candidates: []models.Task{}}, nil
}

type fakeDelivery struct {
	channel notify.Channel
}

func (f *fakeDelivery) Deliver(_ context.Context, _ string, method recommend.Method, channel notify.Channel) (services.Delivery, error) {
	f.channel = channel
	return services.Delivery{Channel: channel, Recipient: "42", Recommendation: recommend.Recommendation{Method: method}}, nil
}

func TestRecommendationHandler(t *testing.T) {
	t.Parallel()

	recs, del := &fakeRecs{}, &fakeDelivery{}
	h := NewRecommendationHandler(recs, del)
	r := gin.New()
	r.Use(withUser("u1"))
	r.GET("/recommendations", h.Recommend)
	r.POST("/recommendations/deliver", h.Deliver)

	w := do(r, http.MethodGet, "/recommendations", "")
	if w.Code != http.StatusOK || recs.method != recommend.MethodSmart {
		t.Fatalf("default method = %d %s", w.Code, recs.method)
	}
	var rec recommend.Recommendation
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil || rec.Text != "do it" {
		t.Fatalf("body = %s", w.Body)
	}
	if w := do(r, http.MethodGet, "/recommendations?method=quick", ""); w.Code != http.StatusOK || recs.method != recommend.MethodQuick {
		t.Fatalf("quick = %d %s", w.Code, recs.method)
	}
	if w := do(r, http.MethodGet, "/recommendations?method=astrology", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown method = %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/recommendations/deliver", `{"channel":"pigeon"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown channel = %d", w.Code)
	}
	w = do(r, http.MethodPost, "/recommendations/deliver", `{"method":"focus","channel":"telegram"}`)
	if w.Code != http.StatusOK || del.channel != notify.ChannelTelegram {
		t.Fatalf("deliver = %d %s", w.Code, w.Body)
	}
}
