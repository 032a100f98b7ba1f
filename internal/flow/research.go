package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/packvote/packvote/internal/genai"
	"github.com/packvote/packvote/internal/models"
	"github.com/packvote/packvote/internal/tools"
)

// StageDraft is the logged name of the draft-research stage.
const StageDraft = "draft_research"

// maxToolRounds bounds the research tool loop so a chatty model cannot stall
// the stage.
const maxToolRounds = 4

const researcherSystemPrompt = "You are the lead travel itinerary researcher for PackVote. " +
	"Craft a cohesive, budget-aware itinerary that balances every traveler's preferences. " +
	"Use the search and weather tools to ground your plan in real options and conditions. " +
	"Structure the output in markdown with sections: Overview, Daily Plan, Logistics, and Budget Notes."

// ResearchStage produces or revises the candidate itinerary. It runs a bounded
// tool loop: the model may request web searches and weather lookups, whose
// failures are fed back as observations rather than aborting the stage.
type ResearchStage struct {
	genaiClient genai.ClientInterface
	search      tools.SearchCapability
	weather     tools.WeatherCapability
}

// NewResearchStage creates a draft-research stage.
func NewResearchStage(client genai.ClientInterface, search tools.SearchCapability, weather tools.WeatherCapability) *ResearchStage {
	slog.Debug("ResearchStage created", "hasGenAI", client != nil, "hasSearch", search != nil, "hasWeather", weather != nil)
	return &ResearchStage{genaiClient: client, search: search, weather: weather}
}

// Name identifies the stage.
func (s *ResearchStage) Name() string { return StageDraft }

// toolDefinitions returns the OpenAI tool definitions for the research loop.
func (s *ResearchStage) toolDefinitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        "search_web",
				Description: openai.String("Search the web for destinations, activities, lodging, and transport options."),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The search query",
						},
						"max_results": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum number of results to return",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        "get_weather",
				Description: openai.String("Get current weather conditions for a city."),
				Parameters: shared.FunctionParameters{
					"type": "object",
					"properties": map[string]interface{}{
						"location": map[string]interface{}{
							"type":        "string",
							"description": "The city to look up, e.g. 'Tokyo, Japan'",
						},
					},
					"required": []string{"location"},
				},
			},
		},
	}
}

// executeToolCall dispatches one requested tool call and always returns a
// textual observation; tool failures are recoverable by contract.
func (s *ResearchStage) executeToolCall(ctx context.Context, call openai.ChatCompletionMessageToolCall) string {
	switch call.Function.Name {
	case "search_web":
		var args struct {
			Query      string `json:"query"`
			MaxResults int    `json:"max_results"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return tools.Observation("search_web", "", err)
		}
		if args.MaxResults == 0 {
			args.MaxResults = 3
		}
		result, err := s.search.Search(ctx, args.Query, args.MaxResults)
		return tools.Observation("search_web", result, err)
	case "get_weather":
		var args struct {
			Location string `json:"location"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return tools.Observation("get_weather", "", err)
		}
		result, err := s.weather.Weather(ctx, args.Location)
		return tools.Observation("get_weather", result, err)
	default:
		return tools.Observation(call.Function.Name, "", fmt.Errorf("unknown tool"))
	}
}

// Execute drafts or revises the itinerary, overwrites latest_itinerary,
// appends one researcher history entry, and increments the attempt counter.
func (s *ResearchStage) Execute(ctx context.Context, state *models.WorkflowState) error {
	if len(state.UserSurveys) == 0 {
		return fmt.Errorf("%w: draft research requires loaded surveys", models.ErrMalformedInput)
	}

	surveyContext := FormatUserSurveys(state.UserSurveys, state.TravelDate, state.TravelDuration)
	userPrompt := "Traveler surveys:\n" + surveyContext + "\n\n"
	if instruction := firstUserInstruction(state.History); instruction != "" {
		userPrompt += "Latest user instruction:\n" + instruction + "\n\n"
	}
	if guidance := formatRevisions(state.Evaluation); guidance != "" {
		userPrompt += "Iteration guidance:\n" + guidance + "\n\n"
	}
	userPrompt += "Return a refreshed itinerary that explicitly calls out how each traveler " +
		"is considered. Highlight tradeoffs when budgets conflict."

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(researcherSystemPrompt),
		openai.UserMessage(userPrompt),
	}

	var itinerary string
	for round := 0; round < maxToolRounds; round++ {
		resp, err := s.genaiClient.GenerateWithTools(ctx, messages, s.toolDefinitions())
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			itinerary = msg.Content
			break
		}
		messages = append(messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			observation := s.executeToolCall(ctx, call)
			messages = append(messages, openai.ToolMessage(observation, call.ID))
			slog.Debug("ResearchStage.Execute: tool call handled", "tool", call.Function.Name)
		}
	}
	if itinerary == "" {
		// Tool budget exhausted; ask for the final draft without tools.
		final, err := s.genaiClient.GenerateWithMessages(ctx, messages)
		if err != nil {
			return fmt.Errorf("%w: %v", models.ErrGenerationUnavailable, err)
		}
		itinerary = final
	}

	state.LatestItinerary = itinerary
	state.AppendHistory(models.AuthorResearcher, itinerary)
	state.Attempts++
	slog.Info("ResearchStage.Execute: itinerary drafted", "attempt", state.Attempts, "length", len(itinerary))
	return nil
}

// firstUserInstruction returns the run's initial user instruction, if any.
func firstUserInstruction(history []models.Message) string {
	for _, m := range history {
		if m.Author == models.AuthorUser {
			return m.Content
		}
	}
	return ""
}
