package api

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/gorilla/mux"

	"github.com/packvote/packvote/internal/models"
	"github.com/packvote/packvote/internal/store"
)

func (s *Server) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.listProjectsHandler: processing request", "path", r.URL.Path)
	projects, err := s.st.ListProjects(r.Context())
	if err != nil {
		slog.Error("Server.listProjectsHandler: failed to list projects", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list projects"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(projects))
}

// createProjectRequest is the POST /api/projects payload.
type createProjectRequest struct {
	Name           string `json:"name"`
	TravelDate     string `json:"travel_date"`
	TravelDuration int    `json:"travel_duration"`
}

func (s *Server) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createProjectHandler: processing request", "path", r.URL.Path)

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createProjectHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Project name is required"))
		return
	}
	if req.TravelDate == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Travel date is required"))
		return
	}
	if req.TravelDuration < 1 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Travel duration must be at least 1 day"))
		return
	}

	project, err := s.st.AddProject(r.Context(), models.Project{
		Name:           req.Name,
		TravelDate:     req.TravelDate,
		TravelDuration: req.TravelDuration,
	})
	if err != nil {
		slog.Error("Server.createProjectHandler: failed to add project", "error", err, "name", req.Name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create project"))
		return
	}
	slog.Info("Server.createProjectHandler: project created", "name", project.Name, "safe_name", project.SafeName)
	writeJSONResponse(w, http.StatusCreated, models.Success(project))
}

func (s *Server) deleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	slog.Debug("Server.deleteProjectHandler: processing request", "project", name)

	if err := s.st.DeleteProject(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Project not found"))
			return
		}
		slog.Error("Server.deleteProjectHandler: failed to delete project", "error", err, "project", name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete project"))
		return
	}
	slog.Info("Server.deleteProjectHandler: project deleted", "project", name)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Project deleted successfully", nil))
}

func (s *Server) listProjectSubmissionsHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	slog.Debug("Server.listProjectSubmissionsHandler: processing request", "project", name)

	submissions, err := s.st.ListSubmissions(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Project not found"))
			return
		}
		slog.Error("Server.listProjectSubmissionsHandler: failed to list submissions", "error", err, "project", name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list submissions"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(submissions))
}

// addSubmissionRequest is the POST /api/projects/{name}/submissions payload.
// The phone field accepts any formatting; it is normalized to ten digits.
type addSubmissionRequest struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone"`
	CountryCode     string   `json:"country_code"`
	BudgetCategory  string   `json:"budget_category"`
	BudgetRange     []int    `json:"budget_range"`
	CurrentLocation string   `json:"current_location"`
	Preferences     []string `json:"preferences"`
}

func (s *Server) addSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	project := mux.Vars(r)["name"]
	slog.Debug("Server.addSubmissionHandler: processing request", "project", project)

	var req addSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addSubmissionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	phone, ok := models.NormalizePhone(req.Phone)
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Phone number must be exactly 10 digits"))
		return
	}
	countryCode := strings.TrimSpace(req.CountryCode)
	if countryCode == "" {
		countryCode = models.DefaultCountryCode
	}

	rec := models.SurveyRecord{
		Name:            strings.TrimSpace(req.Name),
		Phone:           phone,
		CountryCode:     countryCode,
		BudgetCategory:  models.BudgetCategory(strings.ToLower(strings.TrimSpace(req.BudgetCategory))),
		BudgetRange:     req.BudgetRange,
		CurrentLocation: strings.TrimSpace(req.CurrentLocation),
		Preferences:     req.Preferences,
	}
	if err := rec.Validate(); err != nil {
		slog.Warn("Server.addSubmissionHandler: validation failed", "error", err, "project", project)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := s.st.AddSubmission(r.Context(), project, rec); err != nil {
		slog.Error("Server.addSubmissionHandler: failed to add submission", "error", err, "project", project)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to store submission"))
		return
	}
	slog.Info("Server.addSubmissionHandler: submission recorded", "project", project, "traveler", rec.Name)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Submission recorded successfully", nil))
}

// deleteSubmissionRequest identifies the traveler to remove by phone.
type deleteSubmissionRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) deleteSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	project := mux.Vars(r)["name"]
	slog.Debug("Server.deleteSubmissionHandler: processing request", "project", project)

	var req deleteSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	phone, ok := models.NormalizePhone(req.Phone)
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Phone number must be exactly 10 digits"))
		return
	}

	if err := s.st.DeleteSubmission(r.Context(), project, phone); err != nil {
		switch {
		case errors.Is(err, store.ErrProjectNotFound):
			writeJSONResponse(w, http.StatusNotFound, models.Error("Project not found"))
		case errors.Is(err, store.ErrSubmissionNotFound):
			writeJSONResponse(w, http.StatusNotFound, models.Error("Participant not found"))
		default:
			slog.Error("Server.deleteSubmissionHandler: failed to delete submission", "error", err, "project", project)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete submission"))
		}
		return
	}
	slog.Info("Server.deleteSubmissionHandler: submission deleted", "project", project)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Participant deleted successfully", nil))
}

// submissionsHandler returns submissions for the project named in the query
// string (GET /submissions?project=...).
func (s *Server) submissionsHandler(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	slog.Debug("Server.submissionsHandler: processing request", "project", project)
	if project == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required query parameter: project"))
		return
	}
	submissions, err := s.st.ListSubmissions(r.Context(), project)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Project not found"))
			return
		}
		slog.Error("Server.submissionsHandler: failed to list submissions", "error", err, "project", project)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list submissions"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(submissions))
}

// submissionsCSVHandler exports a project's submissions as CSV
// (GET /submissions.csv?project=...).
func (s *Server) submissionsCSVHandler(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	slog.Debug("Server.submissionsCSVHandler: processing request", "project", project)
	if project == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required query parameter: project"))
		return
	}
	submissions, err := s.st.ListSubmissions(r.Context(), project)
	if err != nil {
		if errors.Is(err, store.ErrProjectNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Project not found"))
			return
		}
		slog.Error("Server.submissionsCSVHandler: failed to list submissions", "error", err, "project", project)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list submissions"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	if len(submissions) == 0 {
		_, _ = w.Write([]byte("No submissions yet.\n"))
		return
	}

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"name", "phone", "country_code", "budget_category", "budget_range", "current_location", "preferences"})
	for _, rec := range submissions {
		phoneDisplay := rec.Phone
		if rec.CountryCode != "" {
			phoneDisplay = rec.CountryCode + " " + rec.Phone
		}
		budgetJSON, _ := json.Marshal(rec.BudgetRange)
		_ = cw.Write([]string{
			capitalize(rec.Name),
			phoneDisplay,
			rec.CountryCode,
			string(rec.BudgetCategory),
			string(budgetJSON),
			capitalize(rec.CurrentLocation),
			capitalize(strings.Join(rec.Preferences, "; ")),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("Server.submissionsCSVHandler: failed to write CSV", "error", err)
	}
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
