package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"tomanage/internal/ai"
	"tomanage/internal/models"
	"tomanage/internal/usercontext"
)

// ExtractInput carries free text, an image, or both.
type ExtractInput struct {
	Text  string          `json:"text"`
	Image *ai.ImageSource `json:"image,omitempty"`
}

type ExtractResult struct {
	Tasks   []models.Task `json:"tasks"`
	Skipped int           `json:"skipped"`
}

// AssistantService is the conversational side of the model.
type AssistantService interface {
	Chat(ctx context.Context, userID string, msgs []ai.Message) (ai.Result, error)
	ExtractTasks(ctx context.Context, userID string, in ExtractInput) (ExtractResult, error)
}

type assistantService struct {
	assistant *ai.Assistant
	profile   ProfileService
	tasks     TaskService
}

func NewAssistantService(assistant *ai.Assistant, profile ProfileService, tasks TaskService) AssistantService {
	return &assistantService{assistant: assistant, profile: profile, tasks: tasks}
}

func (s *assistantService) ready() error {
	if s.assistant == nil {
		return fmt.Errorf("%w: anthropic api key is not configured", models.ErrExternalService)
	}
	return nil
}

func (s *assistantService) Chat(ctx context.Context, userID string, msgs []ai.Message) (ai.Result, error) {
	if err := ai.ValidateConversation(msgs); err != nil {
		return ai.Result{}, err
	}
	if err := s.ready(); err != nil {
		return ai.Result{}, err
	}
	profile, err := s.profile.Profile(ctx, userID)
	if err != nil {
		return ai.Result{}, err
	}
	system := ai.ConversationalSystem(usercontext.FormatProfile(profile))
	return s.assistant.Run(ctx, userID, system, msgs, true, 0)
}

// ExtractTasks asks the model for a JSON list of todos and creates each valid
// one through the task service.
func (s *assistantService) ExtractTasks(ctx context.Context, userID string, in ExtractInput) (ExtractResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Image == nil {
		return ExtractResult{}, fmt.Errorf("%w: text or image is required", models.ErrValidation)
	}
	if in.Image != nil && (in.Image.MediaType == "" || in.Image.Data == "") {
		return ExtractResult{}, fmt.Errorf("%w: image needs media_type and data", models.ErrValidation)
	}
	if err := s.ready(); err != nil {
		return ExtractResult{}, err
	}

	var blocks []ai.ContentBlock
	if in.Image != nil {
		img := *in.Image
		if img.Type == "" {
			img.Type = "base64"
		}
		blocks = append(blocks, ai.ContentBlock{Type: ai.BlockImage, Source: &img})
	}
	if text == "" {
		text = "Extract the todos from this image."
	}
	blocks = append(blocks, ai.ContentBlock{Type: ai.BlockText, Text: text})

	res, err := s.assistant.Run(ctx, userID, ai.ExtractionSystem, []ai.Message{{Role: ai.RoleUser, Content: blocks}}, false, 0)
	if err != nil {
		return ExtractResult{}, err
	}
	items, skipped, err := ai.ParseExtraction(res.Text)
	if err != nil {
		return ExtractResult{}, err
	}

	out := ExtractResult{Tasks: make([]models.Task, 0, len(items)), Skipped: skipped}
	for _, it := range items {
		task, err := s.tasks.Create(ctx, userID, it.Task())
		if err != nil {
			log.Printf("[assistant][extract][warn] user=%s title=%q: %v", userID, it.Title, err)
			out.Skipped++
			continue
		}
		out.Tasks = append(out.Tasks, task)
	}
	log.Printf("[assistant][extract] user=%s created=%d skipped=%d", userID, len(out.Tasks), out.Skipped)
	return out, nil
}
