package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/packvote/packvote/internal/genai"
	"github.com/packvote/packvote/internal/models"
)

const supervisorSystemPrompt = "You are the supervising router for PackVote's itinerary workflow. " +
	"Given the conversation so far, choose the next worker: DRAFT to produce or revise the " +
	"itinerary, GRADE to evaluate the latest draft, or FINISH when an approved itinerary exists " +
	"or no further progress is possible. Route to GRADE after every fresh draft, and back to " +
	"DRAFT when the grader requested revisions."

// GenAISupervisor routes between stages using a text-generation capability
// constrained to the closed decision vocabulary. Every transition in the run
// is mediated by one of its decisions, which keeps the control policy in one
// place and auditable from history alone.
type GenAISupervisor struct {
	genaiClient genai.ClientInterface
}

// NewGenAISupervisor creates the LLM-backed router.
func NewGenAISupervisor(client genai.ClientInterface) *GenAISupervisor {
	slog.Debug("GenAISupervisor created", "hasGenAI", client != nil)
	return &GenAISupervisor{genaiClient: client}
}

// Route inspects the accumulated history and picks the next stage.
func (s *GenAISupervisor) Route(ctx context.Context, history []models.Message) (models.Decision, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(supervisorSystemPrompt))
	for _, m := range history {
		// Stage outputs are presented as user turns attributed to their author,
		// matching how the run transcript reads.
		messages = append(messages, openai.UserMessage(fmt.Sprintf("[%s]\n%s", m.Author, m.Content)))
	}

	var decoded struct {
		Next string `json:"next"`
	}
	if err := s.genaiClient.GenerateStructured(ctx, messages, "router_decision", models.RouterSchema(), &decoded); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
	}

	decision := models.Decision(decoded.Next)
	if !decision.IsValid() {
		return "", fmt.Errorf("%w: router returned %q, want one of %v", models.ErrGenerationUnavailable, decoded.Next, models.DecisionOptions())
	}
	slog.Debug("GenAISupervisor.Route decided", "decision", decision, "history", len(history))
	return decision, nil
}
