package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/packvote/packvote/internal/flow"
	"github.com/packvote/packvote/internal/models"
	"github.com/packvote/packvote/internal/notify"
	"github.com/packvote/packvote/internal/store"
)

// markdown renders itinerary drafts, which the researcher produces as GitHub
// flavored markdown.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// planItineraryRequest is the POST /api/projects/{name}/itinerary payload.
type planItineraryRequest struct {
	Instruction string `json:"instruction"`
	Notify      bool   `json:"notify"`
}

// planItineraryResponse summarizes one finished planning run.
type planItineraryResponse struct {
	RunID       string                   `json:"run_id"`
	Termination flow.Termination         `json:"termination"`
	Steps       int                      `json:"steps"`
	Attempts    int                      `json:"attempts"`
	Itinerary   string                   `json:"itinerary"`
	Evaluation  *models.BinaryEvaluation `json:"evaluation,omitempty"`
	Notified    bool                     `json:"notified"`
}

func (s *Server) planItineraryHandler(w http.ResponseWriter, r *http.Request) {
	result, req, ok := s.runPlan(w, r)
	if !ok {
		return
	}
	project := mux.Vars(r)["name"]

	notified := false
	if req.Notify && s.sender != nil && result.State.LatestItinerary != "" {
		if err := notify.SendItinerary(r.Context(), s.sender, project, result.State.LatestItinerary, result.State.UserSurveys); err != nil {
			slog.Warn("Server.planItineraryHandler: partial itinerary delivery", "error", err, "project", project)
		} else {
			notified = true
		}
	}

	writeJSONResponse(w, http.StatusOK, models.Success(planItineraryResponse{
		RunID:       result.RunID,
		Termination: result.Termination,
		Steps:       result.Steps,
		Attempts:    result.State.Attempts,
		Itinerary:   result.State.LatestItinerary,
		Evaluation:  result.State.Evaluation,
		Notified:    notified,
	}))
}

// itineraryHTMLHandler runs the planner and renders the itinerary as HTML.
func (s *Server) itineraryHTMLHandler(w http.ResponseWriter, r *http.Request) {
	result, _, ok := s.runPlan(w, r)
	if !ok {
		return
	}
	if result.State.LatestItinerary == "" {
		writeJSONResponse(w, http.StatusUnprocessableEntity, models.Error("Planning run produced no itinerary"))
		return
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(result.State.LatestItinerary), &buf); err != nil {
		slog.Error("Server.itineraryHTMLHandler: markdown rendering failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to render itinerary"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Server.itineraryHTMLHandler: failed to write response", "error", err)
	}
}

// runPlan decodes the request, executes one bounded planning run, and maps
// failures to HTTP statuses. Returns ok=false when a response was already
// written.
func (s *Server) runPlan(w http.ResponseWriter, r *http.Request) (*flow.RunResult, planItineraryRequest, bool) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	project := mux.Vars(r)["name"]
	slog.Debug("Server.runPlan: processing request", "project", project)

	var req planItineraryRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
			return nil, req, false
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	result, err := s.runner.RunProject(ctx, project, req.Instruction)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrProjectNotFound):
			writeJSONResponse(w, http.StatusNotFound, models.Error("Project not found"))
		case errors.Is(err, models.ErrMalformedInput):
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		case errors.Is(err, models.ErrGenerationUnavailable):
			slog.Error("Server.runPlan: generation unavailable", "error", err, "project", project)
			writeJSONResponse(w, http.StatusBadGateway, models.Error("Itinerary generation is currently unavailable"))
		default:
			slog.Error("Server.runPlan: planning run failed", "error", err, "project", project)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Planning run failed"))
		}
		return nil, req, false
	}
	slog.Info("Server.runPlan: planning run completed",
		"project", project, "run_id", result.RunID, "termination", result.Termination, "steps", result.Steps)
	return result, req, true
}
