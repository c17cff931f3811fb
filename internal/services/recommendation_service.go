package services

import (
	"context"

	"tomanage/internal/ai"
	"tomanage/internal/models"
	"tomanage/internal/recommend"
	"tomanage/internal/usercontext"
)

type RecommendationService interface {
	Recommend(ctx context.Context, userID string, method recommend.Method) (recommend.Recommendation, error)
}

type recommendationService struct {
	tasks     TaskService
	profile   ProfileService
	engine    *recommend.Engine
	assistant *ai.Assistant
	now       Clock
}

// NewRecommendationService builds the service; a nil assistant answers every
// request with the local rationale.
func NewRecommendationService(tasks TaskService, profile ProfileService, engine *recommend.Engine, assistant *ai.Assistant, now Clock) RecommendationService {
	return &recommendationService{tasks: tasks, profile: profile, engine: engine, assistant: assistant, now: clockOrNow(now)}
}

func (s *recommendationService) Recommend(ctx context.Context, userID string, method recommend.Method) (recommend.Recommendation, error) {
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return recommend.Recommendation{}, err
	}
	profile, err := s.profile.Profile(ctx, userID)
	if err != nil {
		return recommend.Recommendation{}, err
	}
	return s.engine.Recommend(ctx, s.reasoner(userID, profile), method, tasks, profile.CurrentContext, s.now().In(profile.Preferences.Location()))
}

func (s *recommendationService) reasoner(userID string, profile models.UserProfile) recommend.Reasoner {
	if s.assistant == nil {
		return nil
	}
	system := ai.RecommendationSystem(usercontext.FormatProfile(profile))
	return recommend.ReasonerFunc(func(ctx context.Context, prompt string) (string, error) {
		msgs := []ai.Message{ai.TextMessage(ai.RoleUser, prompt+"\n\n"+ai.RecommendationRequest)}
		res, err := s.assistant.Run(ctx, userID, system, msgs, true, 0)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	})
}
