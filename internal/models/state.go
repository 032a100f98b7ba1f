package models

// Decision is the supervisor's routing choice for the next workflow step.
type Decision string

const (
	// DecisionDraft routes to the itinerary draft-research stage.
	DecisionDraft Decision = "DRAFT"
	// DecisionGrade routes to the binary grading stage.
	DecisionGrade Decision = "GRADE"
	// DecisionFinish terminates the run.
	DecisionFinish Decision = "FINISH"
)

// IsValid checks if the decision is one of the legal routing tokens.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionDraft, DecisionGrade, DecisionFinish:
		return true
	default:
		return false
	}
}

// DecisionOptions lists the legal routing tokens in prompt order.
func DecisionOptions() []string {
	return []string{string(DecisionDraft), string(DecisionGrade), string(DecisionFinish)}
}

// Stage author names recorded on history entries.
const (
	AuthorResearcher = "itinerary_researcher"
	AuthorGrader     = "binary_grader"
	AuthorSystem     = "system"
	AuthorUser       = "user"
)

// Message is one authored entry in the workflow history.
type Message struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// WorkflowState is the single mutable object threaded through all stages. It is
// owned by the engine for the lifetime of a run; each stage receives it for its
// turn only and must not retain a reference across turns.
type WorkflowState struct {
	// History is the append-only record of what each stage produced. Entries
	// are never rewritten or removed.
	History []Message `json:"history"`

	// TravelDate and TravelDuration are the group's resolved shared window,
	// set exactly once by the retrieval stage.
	TravelDate     string `json:"travel_date,omitempty"`
	TravelDuration int    `json:"travel_duration,omitempty"`

	// UserSurveys is set exactly once, before the first drafting call.
	UserSurveys []SurveyRecord `json:"user_surveys,omitempty"`

	// LatestItinerary is overwritten by each draft-research invocation and is
	// the source of truth for the current draft.
	LatestItinerary string `json:"latest_itinerary,omitempty"`

	// Evaluation is overwritten by each grading invocation.
	Evaluation *BinaryEvaluation `json:"evaluation,omitempty"`

	// Next records the supervisor's routing decision for the upcoming step.
	Next Decision `json:"next,omitempty"`

	// Attempts counts completed draft-research invocations.
	Attempts int `json:"attempts"`
}

// AppendHistory appends an authored entry. History grows monotonically; there
// is no removal path.
func (s *WorkflowState) AppendHistory(author, content string) {
	s.History = append(s.History, Message{Author: author, Content: content})
}

// CurrentItinerary returns the newest itinerary draft, preferring the
// LatestItinerary field and falling back to the most recent researcher entry
// in history. The two must never disagree; the fallback exists for states
// reconstructed from history alone.
func (s *WorkflowState) CurrentItinerary() string {
	if s.LatestItinerary != "" {
		return s.LatestItinerary
	}
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Author == AuthorResearcher {
			return s.History[i].Content
		}
	}
	return ""
}
