package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/packvote/packvote/internal/flow"
	"github.com/packvote/packvote/internal/models"
	"github.com/packvote/packvote/internal/store"
)

type stubRunner struct {
	result      *flow.RunResult
	err         error
	gotProject  string
	gotInstruct string
}

func (s *stubRunner) RunProject(_ context.Context, project, instruction string) (*flow.RunResult, error) {
	s.gotProject = project
	s.gotInstruct = instruction
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type recordingSender struct {
	sent []string
}

func (r *recordingSender) SendSMS(_ context.Context, to string, _ string) error {
	r.sent = append(r.sent, to)
	return nil
}

func newTestServer(t *testing.T, runner Runner, opts ...Option) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewFileStore(store.WithFileDir(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewServer(st, runner, nil, opts...), st
}

func createTestProject(t *testing.T, srv *Server) {
	t.Helper()
	body := `{"name":"Summer Trip","travel_date":"2025-06-03","travel_duration":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("project creation failed: %d %s", rr.Code, rr.Body.String())
	}
}

func addTestSubmission(t *testing.T, srv *Server, name, phone string) {
	t.Helper()
	payload := map[string]interface{}{
		"name":             name,
		"phone":            phone,
		"country_code":     "+1",
		"budget_category":  "medium",
		"budget_range":     []int{800, 1500},
		"current_location": "toronto, canada",
		"preferences":      []string{"food", "museums"},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/submissions", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submission failed: %d %s", rr.Code, rr.Body.String())
	}
}

func TestProjectLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	createTestProject(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list projects: %d", rr.Code)
	}
	var listResp struct {
		Status string           `json:"status"`
		Result []models.Project `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listResp.Result) != 1 || listResp.Result[0].SafeName != "SummerTrip" {
		t.Fatalf("unexpected projects: %+v", listResp.Result)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/projects/SummerTrip", nil)
	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete project: %d %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/projects/SummerTrip", nil)
	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing project, got %d", rr.Code)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"travel_date":"2025-06-03","travel_duration":3}`},
		{name: "missing date", body: `{"name":"Trip","travel_duration":3}`},
		{name: "zero duration", body: `{"name":"Trip","travel_date":"2025-06-03"}`},
		{name: "bad json", body: `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rr, req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	createTestProject(t, srv)
	addTestSubmission(t, srv, "alice", "(416) 555-1234")

	req := httptest.NewRequest(http.MethodGet, "/api/projects/SummerTrip/submissions", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	var listResp struct {
		Result []models.SurveyRecord `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(listResp.Result) != 1 || listResp.Result[0].Phone != "4165551234" {
		t.Fatalf("expected normalized phone, got %+v", listResp.Result)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/projects/SummerTrip/submissions",
		strings.NewReader(`{"phone":"4165551234"}`))
	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete submission: %d %s", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/projects/SummerTrip/submissions",
		strings.NewReader(`{"phone":"4165551234"}`))
	rr = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing participant, got %d", rr.Code)
	}
}

func TestAddSubmissionRejectsBadPhone(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	createTestProject(t, srv)

	body := `{"name":"alice","phone":"12345","budget_category":"low","budget_range":[1,2],"current_location":"x","preferences":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/submissions", strings.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short phone, got %d", rr.Code)
	}
}

func TestSubmissionsCSV(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	createTestProject(t, srv)
	addTestSubmission(t, srv, "alice", "4165551234")

	req := httptest.NewRequest(http.MethodGet, "/submissions.csv?project=SummerTrip", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("csv export: %d %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("expected text/csv, got %s", got)
	}

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "name,phone,country_code,budget_category,budget_range,current_location,preferences" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	row := lines[1]
	for _, want := range []string{"Alice", "+1 4165551234", `"[800,1500]"`, `"Toronto, canada"`, "Food; museums"} {
		if !strings.Contains(row, want) {
			t.Errorf("csv row missing %q: %s", want, row)
		}
	}
}

func TestSubmissionsCSVEmpty(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	createTestProject(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/submissions.csv?project=SummerTrip", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), "No submissions yet.") {
		t.Errorf("expected empty-export placeholder, got %q", rr.Body.String())
	}
}

func TestPlanItineraryHandler(t *testing.T) {
	runner := &stubRunner{
		result: &flow.RunResult{
			RunID:       "run-1",
			Termination: flow.TerminationFinished,
			Steps:       2,
			State: &models.WorkflowState{
				LatestItinerary: "# Day 1\nVisit the old town.",
				Attempts:        1,
				Evaluation:      &models.BinaryEvaluation{Verdict: models.VerdictApproved, Rationale: "balanced"},
			},
		},
	}
	srv, _ := newTestServer(t, runner)
	createTestProject(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/itinerary",
		strings.NewReader(`{"instruction":"keep it cheap"}`))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("plan itinerary: %d %s", rr.Code, rr.Body.String())
	}
	if runner.gotProject != "SummerTrip" || runner.gotInstruct != "keep it cheap" {
		t.Errorf("runner got project=%q instruction=%q", runner.gotProject, runner.gotInstruct)
	}

	var resp struct {
		Result planItineraryResponse `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result.Termination != flow.TerminationFinished || resp.Result.Steps != 2 {
		t.Errorf("unexpected run summary: %+v", resp.Result)
	}
	if resp.Result.Evaluation == nil || resp.Result.Evaluation.Verdict != models.VerdictApproved {
		t.Errorf("expected approved evaluation in response, got %+v", resp.Result.Evaluation)
	}
}

func TestPlanItineraryNotifies(t *testing.T) {
	runner := &stubRunner{
		result: &flow.RunResult{
			RunID:       "run-2",
			Termination: flow.TerminationFinished,
			State: &models.WorkflowState{
				LatestItinerary: "Day 1: beach.",
				UserSurveys: []models.SurveyRecord{
					{Name: "alice", Phone: "4165551234", CountryCode: "+1"},
				},
			},
		},
	}
	sender := &recordingSender{}
	st, err := store.NewFileStore(store.WithFileDir(t.TempDir()))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()
	srv := NewServer(st, runner, sender)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/itinerary",
		strings.NewReader(`{"notify":true}`))
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("plan itinerary: %d %s", rr.Code, rr.Body.String())
	}
	if len(sender.sent) != 1 || sender.sent[0] != "+14165551234" {
		t.Errorf("expected one SMS to +14165551234, got %v", sender.sent)
	}
	if !strings.Contains(rr.Body.String(), `"notified":true`) {
		t.Errorf("expected notified flag in response: %s", rr.Body.String())
	}
}

func TestPlanItineraryErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "project missing", err: store.ErrProjectNotFound, want: http.StatusNotFound},
		{name: "malformed input", err: models.ErrMalformedInput, want: http.StatusBadRequest},
		{name: "generation down", err: models.ErrGenerationUnavailable, want: http.StatusBadGateway},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &stubRunner{err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/itinerary", nil)
			rr := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestItineraryHTMLHandler(t *testing.T) {
	runner := &stubRunner{
		result: &flow.RunResult{
			Termination: flow.TerminationFinished,
			State:       &models.WorkflowState{LatestItinerary: "# Overview\n\nA *great* trip."},
		},
	}
	srv, _ := newTestServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/itinerary/html", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("html render: %d %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<h1") || !strings.Contains(body, "<em>great</em>") {
		t.Errorf("expected rendered markdown, got %q", body)
	}
}

func TestItineraryHTMLNoDraft(t *testing.T) {
	runner := &stubRunner{
		result: &flow.RunResult{
			Termination: flow.TerminationIterationLimit,
			State:       &models.WorkflowState{},
		},
	}
	srv, _ := newTestServer(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/projects/SummerTrip/itinerary/html", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without a draft, got %d", rr.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t, &stubRunner{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("health: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"healthy"`) {
		t.Errorf("unexpected health payload: %s", rr.Body.String())
	}
}
