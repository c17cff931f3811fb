package recommend

import (
	"context"
	"errors"
	"log"
	"time"

	"tomanage/internal/enrichment"
	"tomanage/internal/models"
)

// Reasoner turns a strategy prompt into a rationale.
type Reasoner interface {
	Reason(ctx context.Context, prompt string) (string, error)
}

type ReasonerFunc func(ctx context.Context, prompt string) (string, error)

func (f ReasonerFunc) Reason(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceRule     Source = "rule"
)

type Recommendation struct {
	Method     Method               `json:"method"`
	Text       string               `json:"text"`
	Source     Source               `json:"source"`
	Energy     models.EnergyLevel   `json:"energy"`
	Task       *models.Task         `json:"task,omitempty"`
	Candidates []models.Task        `json:"candidates"`
	Matrix     *Matrix              `json:"matrix,omitempty"`
	Workload   *enrichment.Workload `json:"workload,omitempty"`
	// FallbackReason is set when the model call failed and Text is the local rationale.
	FallbackReason string `json:"fallbackReason,omitempty"`
}

const DefaultTimeout = 30 * time.Second

type Engine struct {
	timeout time.Duration
}

func NewEngine(timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{timeout: timeout}
}

// Recommend selects a task deterministically and asks r to explain it.
// Model failures and timeouts fall back to the local rationale; only tool
// loop failures and caller cancellation are returned as errors. A nil r
// always uses the fallback.
func (e *Engine) Recommend(ctx context.Context, r Reasoner, method Method, tasks []models.Task, cctx models.CurrentContext, now time.Time) (Recommendation, error) {
	sel := Select(method, tasks, cctx, now)
	rec := Recommendation{
		Method:     sel.Method,
		Energy:     sel.Energy,
		Task:       sel.Task,
		Candidates: sel.Candidates,
		Matrix:     sel.Matrix,
		Workload:   sel.Workload,
		Source:     SourceRule,
	}
	if rec.Candidates == nil {
		rec.Candidates = []models.Task{}
	}

	if !e.needsModel(sel) {
		rec.Text = Fallback(sel)
		return rec, nil
	}
	if r == nil {
		rec.Text = Fallback(sel)
		rec.Source = SourceFallback
		return rec, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	text, err := r.Reason(callCtx, Prompt(sel, cctx))
	switch {
	case err == nil && text != "":
		rec.Text = text
		rec.Source = SourceAI
		return rec, nil
	case errors.Is(err, models.ErrToolExecution):
		return Recommendation{}, err
	case ctx.Err() != nil:
		return Recommendation{}, ctx.Err()
	}
	if err == nil {
		err = errors.New("empty model response")
	}
	log.Printf("[recommend][%s][warn] model unavailable, using fallback: %v", sel.Method, err)
	rec.Text = Fallback(sel)
	rec.Source = SourceFallback
	rec.FallbackReason = err.Error()
	return rec, nil
}

// needsModel reports whether the selection has something for the model to
// explain. Empty strategies answer with their fixed text.
func (e *Engine) needsModel(sel Selection) bool {
	if len(sel.Pending) == 0 {
		return false
	}
	if sel.Method == MethodEisenhower {
		return true
	}
	return sel.Task != nil
}
