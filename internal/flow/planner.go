package flow

import (
	"context"
	"log/slog"

	"github.com/packvote/packvote/internal/genai"
	"github.com/packvote/packvote/internal/tools"
)

// Planner assembles and runs a workflow per project. It holds the long-lived
// collaborators; the per-run stages and engine are cheap and built fresh so
// concurrent runs never share workflow state.
type Planner struct {
	loader   SurveyLoader
	client   genai.ClientInterface
	search   tools.SearchCapability
	weather  tools.WeatherCapability
	maxSteps int
}

// NewPlanner creates a planner. A non-positive maxSteps falls back to
// DefaultMaxSteps.
func NewPlanner(loader SurveyLoader, client genai.ClientInterface, search tools.SearchCapability, weather tools.WeatherCapability, maxSteps int) *Planner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	slog.Debug("Planner created", "maxSteps", maxSteps)
	return &Planner{loader: loader, client: client, search: search, weather: weather, maxSteps: maxSteps}
}

// RunProject runs one planning workflow for the named project.
func (p *Planner) RunProject(ctx context.Context, project, instruction string) (*RunResult, error) {
	engine := NewEngine(
		NewRetrieveStage(p.loader, project),
		NewResearchStage(p.client, p.search, p.weather),
		NewGradeStage(p.client),
		NewGenAISupervisor(p.client),
		p.maxSteps,
	)
	return engine.Run(ctx, instruction)
}
