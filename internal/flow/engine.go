package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/packvote/packvote/internal/metrics"
	"github.com/packvote/packvote/internal/models"
)

// Termination classifies how a workflow run ended.
type Termination string

const (
	// TerminationFinished means the supervisor chose FINISH.
	TerminationFinished Termination = "finished"
	// TerminationIterationLimit means the step bound forced the run to stop.
	// The result still carries the best state reached.
	TerminationIterationLimit Termination = "iteration_limit"
	// TerminationCancelled means the run's context was cancelled between stages.
	TerminationCancelled Termination = "cancelled"
)

// DefaultMaxSteps bounds stage executions after retrieval when no bound is
// configured.
const DefaultMaxSteps = 8

// RunResult is the outcome of one workflow run.
type RunResult struct {
	RunID       string                `json:"run_id"`
	State       *models.WorkflowState `json:"state"`
	Termination Termination           `json:"termination"`
	Steps       int                   `json:"steps"`

	// Err carries the forced-termination sentinel for iteration-limit runs.
	// The run itself still completes without error.
	Err error `json:"-"`
}

// Engine owns the workflow state for the lifetime of a run and dispatches to
// stages in the order chosen by the router. Execution is single-threaded: one
// stage at a time, to completion, with each stage observing exactly the state
// left by its predecessor.
type Engine struct {
	retrieve Stage
	draft    Stage
	grade    Stage
	router   Router
	maxSteps int
}

// NewEngine assembles an engine. A non-positive maxSteps falls back to
// DefaultMaxSteps.
func NewEngine(retrieve, draft, grade Stage, router Router, maxSteps int) *Engine {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	slog.Debug("Engine created", "maxSteps", maxSteps)
	return &Engine{retrieve: retrieve, draft: draft, grade: grade, router: router, maxSteps: maxSteps}
}

// Run executes the workflow: retrieval first, then the supervisor-mediated
// loop over draft and grade stages until FINISH or the iteration bound.
//
// Cancellation is honored between stages only; a cancelled run returns the
// state accumulated so far rather than an error. Fatal stage errors return
// the last good state alongside the error.
func (e *Engine) Run(ctx context.Context, instruction string) (*RunResult, error) {
	result := &RunResult{
		RunID: uuid.NewString(),
		State: &models.WorkflowState{},
	}
	slog.Info("Engine.Run starting", "run_id", result.RunID, "maxSteps", e.maxSteps)

	if instruction != "" {
		result.State.AppendHistory(models.AuthorUser, instruction)
	}

	if err := e.retrieve.Execute(ctx, result.State); err != nil {
		metrics.RecordRun("failed")
		return result, fmt.Errorf("retrieval stage failed: %w", err)
	}
	metrics.RecordStage(e.retrieve.Name())

	for {
		if ctx.Err() != nil {
			slog.Warn("Engine.Run cancelled between stages", "run_id", result.RunID, "steps", result.Steps)
			result.Termination = TerminationCancelled
			metrics.RecordRun(string(TerminationCancelled))
			return result, nil
		}
		if result.Steps >= e.maxSteps {
			slog.Warn("Engine.Run hit iteration bound", "run_id", result.RunID, "steps", result.Steps, "limit", e.maxSteps)
			result.Termination = TerminationIterationLimit
			result.Err = models.ErrIterationLimitExceeded
			metrics.RecordRun(string(TerminationIterationLimit))
			return result, nil
		}

		decision, err := e.router.Route(ctx, result.State.History)
		if err != nil {
			metrics.RecordRun("failed")
			return result, fmt.Errorf("router failed after %d steps: %w", result.Steps, err)
		}
		result.State.Next = decision

		var stage Stage
		switch decision {
		case models.DecisionFinish:
			slog.Info("Engine.Run finished", "run_id", result.RunID, "steps", result.Steps, "attempts", result.State.Attempts)
			result.Termination = TerminationFinished
			metrics.RecordRun(string(TerminationFinished))
			return result, nil
		case models.DecisionDraft:
			stage = e.draft
		case models.DecisionGrade:
			stage = e.grade
		default:
			metrics.RecordRun("failed")
			return result, fmt.Errorf("router returned illegal decision %q", decision)
		}

		slog.Debug("Engine.Run dispatching stage", "run_id", result.RunID, "stage", stage.Name(), "step", result.Steps+1)
		if err := stage.Execute(ctx, result.State); err != nil {
			metrics.RecordRun("failed")
			return result, fmt.Errorf("%s stage failed: %w", stage.Name(), err)
		}
		result.Steps++
		metrics.RecordStage(stage.Name())
	}
}
