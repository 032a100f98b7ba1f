package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/packvote/packvote/internal/genai"
	"github.com/packvote/packvote/internal/models"
)

// StageGrade is the logged name of the grading stage.
const StageGrade = "binary_grade"

const graderSystemPrompt = "You are a binary grader for collaborative trip itineraries. " +
	"Approve only if the plan clearly balances every traveler's needs, fits the shared " +
	"budget range, and references logistics feasibility. Otherwise request revisions and " +
	"specify concrete critiques."

// missingDraftNote is appended to history when grading is requested before any
// draft exists.
const missingDraftNote = "Binary grader was invoked without an itinerary draft. " +
	"Requesting the planner to generate a proposal before grading."

// GradeStage evaluates the latest itinerary draft against traveler constraints,
// producing a structured approve/revise verdict.
type GradeStage struct {
	genaiClient genai.ClientInterface
}

// NewGradeStage creates a grading stage.
func NewGradeStage(client genai.ClientInterface) *GradeStage {
	slog.Debug("GradeStage created", "hasGenAI", client != nil)
	return &GradeStage{genaiClient: client}
}

// Name identifies the stage.
func (s *GradeStage) Name() string { return StageGrade }

// Execute grades the current draft. When no draft exists the stage does not
// call the generation capability: it appends a diagnostic history entry and
// leaves the evaluation unset, looping back through the supervisor.
func (s *GradeStage) Execute(ctx context.Context, state *models.WorkflowState) error {
	itinerary := state.CurrentItinerary()
	if itinerary == "" {
		slog.Warn("GradeStage.Execute: no itinerary draft to grade")
		state.AppendHistory(models.AuthorSystem, missingDraftNote)
		state.Evaluation = nil
		return nil
	}

	surveySummary := FormatUserSurveys(state.UserSurveys, state.TravelDate, state.TravelDuration)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(graderSystemPrompt),
		openai.UserMessage(fmt.Sprintf(
			"Traveler surveys:\n%s\n\nItinerary draft:\n%s\n\nReturn a binary verdict plus rationale and bullet revisions.",
			surveySummary, itinerary)),
	}

	var eval models.BinaryEvaluation
	if err := s.genaiClient.GenerateStructured(ctx, messages, "binary_evaluation", models.BinaryEvaluationSchema(), &eval); err != nil {
		return fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}
	if !eval.Verdict.IsValid() {
		return fmt.Errorf("%w: grader returned verdict %q", models.ErrGenerationUnavailable, eval.Verdict)
	}
	if eval.LowConfidence() {
		slog.Warn("GradeStage.Execute: revise verdict without concrete revisions, treating as low confidence")
	}

	state.Evaluation = &eval
	state.AppendHistory(models.AuthorGrader, eval.Summary())
	slog.Info("GradeStage.Execute: itinerary graded", "verdict", eval.Verdict, "revisions", len(eval.Revisions))
	return nil
}
