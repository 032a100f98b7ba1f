// Package api provides the HTTP surface for PackVote: project and submission
// management, CSV export, location autocomplete, and itinerary planning runs.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packvote/packvote/internal/flow"
	"github.com/packvote/packvote/internal/notify"
	"github.com/packvote/packvote/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultRunTimeout bounds one itinerary planning run triggered over HTTP.
const DefaultRunTimeout = 5 * time.Minute

// Runner executes one planning workflow for a project.
type Runner interface {
	RunProject(ctx context.Context, project, instruction string) (*flow.RunResult, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	PhotonBaseURL string
	HTTPClient    *http.Client
	RunTimeout    time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithPhotonBaseURL overrides the Photon geocoding endpoint, used in tests.
func WithPhotonBaseURL(url string) Option {
	return func(o *Opts) { o.PhotonBaseURL = url }
}

// WithHTTPClient overrides the outbound HTTP client for the Photon proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = c }
}

// WithRunTimeout bounds itinerary runs triggered through the API.
func WithRunTimeout(d time.Duration) Option {
	return func(o *Opts) { o.RunTimeout = d }
}

// Server wires the HTTP handlers to the store, planner and notifier.
type Server struct {
	addr       string
	st         store.Store
	runner     Runner
	sender     notify.Sender
	photonBase string
	httpClient *http.Client
	runTimeout time.Duration
	httpServer *http.Server
}

// NewServer creates the API server. The notifier may be nil; itinerary
// delivery is then skipped.
func NewServer(st store.Store, runner Runner, sender notify.Sender, opts ...Option) *Server {
	cfg := Opts{
		Addr:          DefaultAddr,
		PhotonBaseURL: defaultPhotonBaseURL,
		RunTimeout:    DefaultRunTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	slog.Debug("API server configured", "addr", cfg.Addr, "hasNotifier", sender != nil, "runTimeout", cfg.RunTimeout)
	return &Server{
		addr:       cfg.Addr,
		st:         st,
		runner:     runner,
		sender:     sender,
		photonBase: cfg.PhotonBaseURL,
		httpClient: cfg.HTTPClient,
		runTimeout: cfg.RunTimeout,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/projects", s.listProjectsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/projects", s.createProjectHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/projects/{name}", s.deleteProjectHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/projects/{name}/submissions", s.listProjectSubmissionsHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/projects/{name}/submissions", s.addSubmissionHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/projects/{name}/submissions", s.deleteSubmissionHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/projects/{name}/itinerary", s.planItineraryHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/projects/{name}/itinerary/html", s.itineraryHTMLHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/location/autocomplete", s.locationAutocompleteHandler).Methods(http.MethodGet)
	r.HandleFunc("/submissions", s.submissionsHandler).Methods(http.MethodGet)
	r.HandleFunc("/submissions.csv", s.submissionsCSVHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// Run starts the HTTP server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.runTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// healthHandler provides a health check endpoint for monitoring.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if projects, err := s.st.ListProjects(ctx); err != nil {
		slog.Warn("Health check: store unavailable", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach the project store"
	} else {
		healthData["projects"] = len(projects)
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}
