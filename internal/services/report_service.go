package services

import (
	"context"

	"tomanage/internal/enrichment"
	"tomanage/internal/models"
	"tomanage/internal/pdf"
	"tomanage/internal/recommend"
)

type ReportService interface {
	TaskReport(ctx context.Context, userID string) ([]byte, error)
}

type reportService struct {
	tasks     TaskService
	profile   ProfileService
	generator pdf.Generator
	now       Clock
}

func NewReportService(tasks TaskService, profile ProfileService, generator pdf.Generator, now Clock) ReportService {
	return &reportService{tasks: tasks, profile: profile, generator: generator, now: clockOrNow(now)}
}

// TaskReport renders the workload summary and the Eisenhower matrix of the
// user's open tasks. The suggested task is the rule-based pick.
func (s *reportService) TaskReport(ctx context.Context, userID string) ([]byte, error) {
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := localNow(ctx, s.profile, userID, s.now())
	pending := models.Incomplete(enrichment.EnrichAll(tasks, now))

	data := pdf.ReportData{
		UserID:      userID,
		GeneratedAt: now,
		Workload:    enrichment.AnalyzeWorkload(pending, now),
		Matrix:      recommend.Eisenhower(pending),
	}
	if t, ok := recommend.SmartPick(pending); ok {
		data.Recommendation = t.Title
	}
	return s.generator.TaskReport(data)
}
