// Package flow implements the itinerary-planning workflow: a supervisor-routed
// loop over three worker stages (constraint retrieval, draft research, binary
// grading) sharing one append-only workflow state.
package flow

import (
	"context"

	"github.com/packvote/packvote/internal/models"
)

// Stage is one unit of orchestrated work. A stage reads and updates the
// workflow state for exactly one turn; it must not retain the state reference
// after Execute returns. Every stage routes back to the supervisor, so Execute
// carries no routing result.
type Stage interface {
	// Name identifies the stage in logs and metrics.
	Name() string

	// Execute runs the stage against the current workflow state.
	Execute(ctx context.Context, state *models.WorkflowState) error
}

// Router decides, after each stage, which stage runs next. Implementations
// must return one of the legal decisions; the engine treats anything else as
// an error.
type Router interface {
	Route(ctx context.Context, history []models.Message) (models.Decision, error)
}

// SurveyLoader is the persistence contract the retrieval stage consumes.
type SurveyLoader interface {
	LoadGroupSurveys(ctx context.Context, project string) (models.GroupSurveys, error)
}
