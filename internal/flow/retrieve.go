package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/packvote/packvote/internal/models"
)

// StageRetrieve is the logged name of the constraint-retrieval stage.
const StageRetrieve = "retrieve"

// RetrieveStage loads the group's surveys and shared travel window from the
// persistence collaborator and seeds the workflow state. It is a silent
// seeding stage: it appends no history entry.
type RetrieveStage struct {
	loader  SurveyLoader
	project string
}

// NewRetrieveStage creates a retrieval stage for one project.
func NewRetrieveStage(loader SurveyLoader, project string) *RetrieveStage {
	slog.Debug("RetrieveStage created", "project", project, "hasLoader", loader != nil)
	return &RetrieveStage{loader: loader, project: project}
}

// Name identifies the stage.
func (s *RetrieveStage) Name() string { return StageRetrieve }

// Execute seeds user_surveys, travel_date and travel_duration exactly once.
func (s *RetrieveStage) Execute(ctx context.Context, state *models.WorkflowState) error {
	if s.loader == nil {
		return fmt.Errorf("%w: survey loader not configured", models.ErrMalformedInput)
	}
	group, err := s.loader.LoadGroupSurveys(ctx, s.project)
	if err != nil {
		slog.Error("RetrieveStage.Execute: failed to load group surveys", "error", err, "project", s.project)
		return fmt.Errorf("failed to load surveys for %s: %w", s.project, err)
	}
	if len(group.Submissions) == 0 {
		return fmt.Errorf("%w: project %s has no survey submissions", models.ErrMalformedInput, s.project)
	}

	state.UserSurveys = group.Submissions
	state.TravelDate = group.TravelDate
	state.TravelDuration = group.TravelDuration
	slog.Info("RetrieveStage.Execute: seeded workflow state",
		"project", s.project, "travelers", len(group.Submissions),
		"travel_date", group.TravelDate, "travel_duration", group.TravelDuration)
	return nil
}
