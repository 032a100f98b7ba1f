// Package store provides storage backends for PackVote projects and traveler
// survey submissions.
//
// Three backends share one contract: a flat-file JSON store matching the
// original artifact layout, an SQLite store, and a PostgreSQL store. The DSN
// type is auto-detected so deployments choose a backend by configuration only.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/packvote/packvote/internal/models"
)

// Error variables for better error handling and testability.
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrSubmissionNotFound = errors.New("submission not found")
)

// Store defines persistence operations for projects and submissions.
type Store interface {
	// ListProjects returns all registered projects.
	ListProjects(ctx context.Context) ([]models.Project, error)

	// AddProject registers a project, updating its travel window if it already exists.
	AddProject(ctx context.Context, p models.Project) (models.Project, error)

	// DeleteProject removes a project and its submissions.
	DeleteProject(ctx context.Context, name string) error

	// AddSubmission appends a validated survey submission to a project.
	AddSubmission(ctx context.Context, project string, rec models.SurveyRecord) error

	// ListSubmissions returns a project's submissions in insertion order.
	ListSubmissions(ctx context.Context, project string) ([]models.SurveyRecord, error)

	// DeleteSubmission removes one traveler's submission by phone number.
	DeleteSubmission(ctx context.Context, project, phone string) error

	// LoadGroupSurveys returns the project's shared travel window and submissions,
	// the seed data for a workflow run.
	LoadGroupSurveys(ctx context.Context, project string) (models.GroupSurveys, error)

	// Close releases backend resources.
	Close() error
}

// Opts holds configuration options for the store backends.
type Opts struct {
	DSN     string
	FileDir string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures an SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithFileDir configures the flat-file backend's artifacts directory.
func WithFileDir(dir string) Option {
	return func(o *Opts) { o.FileDir = dir }
}

// DetectDSNType classifies a DSN as "postgres", "sqlite", or "file".
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	if strings.HasSuffix(dsn, ".db") || strings.HasSuffix(dsn, ".sqlite") || strings.HasSuffix(dsn, ".sqlite3") {
		return "sqlite"
	}
	return "file"
}

// NewStore builds a backend from options: PostgreSQL or SQLite when a matching
// DSN is configured, otherwise the flat-file store rooted at FileDir.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN != "" {
		switch DetectDSNType(cfg.DSN) {
		case "postgres":
			return NewPostgresStore(opts...)
		case "sqlite":
			return NewSQLiteStore(opts...)
		}
	}
	return NewFileStore(opts...)
}
