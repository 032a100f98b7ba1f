// This file implements the flat-file JSON store matching the original artifact
// layout: a projects.json registry plus one <safe_name>_submissions.json file
// per project.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/packvote/packvote/internal/availability"
	"github.com/packvote/packvote/internal/models"
)

// Constants for file store configuration.
const (
	// DefaultFileDir is the default artifacts directory for survey data.
	DefaultFileDir = "/var/lib/packvote/surveys"
	// DefaultDirPermissions defines the default permissions for data directories.
	DefaultDirPermissions = 0755
	// DefaultFilePermissions defines the default permissions for data files.
	DefaultFilePermissions = 0644
	// projectsFileName is the project registry file.
	projectsFileName = "projects.json"
)

// FileStore persists projects and submissions as JSON flat files.
type FileStore struct {
	dir string
}

// NewFileStore creates a flat-file store rooted at the configured directory,
// creating it if necessary.
func NewFileStore(opts ...Option) (*FileStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	dir := cfg.FileDir
	if dir == "" {
		dir = DefaultFileDir
	}
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("FileStore failed to create artifacts directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	slog.Debug("FileStore initialized", "dir", dir)
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) projectsPath() string {
	return filepath.Join(s.dir, projectsFileName)
}

func (s *FileStore) submissionsPath(project string) string {
	return filepath.Join(s.dir, models.SanitizeProjectName(project)+"_submissions.json")
}

func (s *FileStore) readProjects() ([]models.Project, error) {
	data, err := os.ReadFile(s.projectsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read projects file: %w", err)
	}
	var projects []models.Project
	if err := json.Unmarshal(data, &projects); err != nil {
		slog.Warn("FileStore projects file is unreadable, treating as empty", "error", err)
		return nil, nil
	}
	return projects, nil
}

func (s *FileStore) writeProjects(projects []models.Project) error {
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}
	return os.WriteFile(s.projectsPath(), data, DefaultFilePermissions)
}

// ListProjects returns all registered projects.
func (s *FileStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.readProjects()
}

// AddProject registers a project, updating its travel window if it already exists.
func (s *FileStore) AddProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.Name == "" {
		return models.Project{}, models.ErrEmptyProjectName
	}
	p.SafeName = models.SanitizeProjectName(p.Name)

	projects, err := s.readProjects()
	if err != nil {
		return models.Project{}, err
	}
	for i := range projects {
		if projects[i].SafeName == p.SafeName {
			if p.TravelDate != "" {
				projects[i].TravelDate = p.TravelDate
			}
			if p.TravelDuration != 0 {
				projects[i].TravelDuration = p.TravelDuration
			}
			if err := s.writeProjects(projects); err != nil {
				return models.Project{}, err
			}
			slog.Debug("FileStore.AddProject updated existing project", "project", p.SafeName)
			return projects[i], nil
		}
	}

	p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	projects = append(projects, p)
	if err := s.writeProjects(projects); err != nil {
		return models.Project{}, err
	}

	// Initialize the submissions file as an empty array (current format).
	subPath := s.submissionsPath(p.Name)
	if _, err := os.Stat(subPath); os.IsNotExist(err) {
		if err := os.WriteFile(subPath, []byte("[]"), DefaultFilePermissions); err != nil {
			return models.Project{}, fmt.Errorf("failed to initialize submissions file: %w", err)
		}
	}
	slog.Debug("FileStore.AddProject created project", "project", p.SafeName)
	return p, nil
}

// DeleteProject removes a project and its submissions file.
func (s *FileStore) DeleteProject(ctx context.Context, name string) error {
	safe := models.SanitizeProjectName(name)
	projects, err := s.readProjects()
	if err != nil {
		return err
	}
	kept := projects[:0]
	found := false
	for _, p := range projects {
		if p.SafeName == safe {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return ErrProjectNotFound
	}
	if err := s.writeProjects(kept); err != nil {
		return err
	}
	if err := os.Remove(s.submissionsPath(name)); err != nil && !os.IsNotExist(err) {
		slog.Warn("FileStore.DeleteProject failed to delete submissions file", "error", err, "project", safe)
	}
	return nil
}

func (s *FileStore) readSubmissionsRaw(project string) (models.GroupSurveys, []models.TravelWindow, error) {
	data, err := os.ReadFile(s.submissionsPath(project))
	if os.IsNotExist(err) {
		return models.GroupSurveys{}, nil, nil
	}
	if err != nil {
		return models.GroupSurveys{}, nil, fmt.Errorf("failed to read submissions file: %w", err)
	}
	return DecodeGroupSurveys(data)
}

func (s *FileStore) writeSubmissions(project string, recs []models.SurveyRecord) error {
	type storedSubmission struct {
		models.SurveyRecord
		AddedAt string `json:"added_at,omitempty"`
	}
	stored := make([]storedSubmission, 0, len(recs))
	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range recs {
		stored = append(stored, storedSubmission{SurveyRecord: r, AddedAt: now})
	}
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode submissions: %w", err)
	}
	return os.WriteFile(s.submissionsPath(project), data, DefaultFilePermissions)
}

// AddSubmission appends a validated survey submission to a project.
func (s *FileStore) AddSubmission(ctx context.Context, project string, rec models.SurveyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	group, _, err := s.readSubmissionsRaw(project)
	if err != nil {
		return err
	}
	if _, err := s.AddProject(ctx, models.Project{Name: project}); err != nil {
		return err
	}
	if err := s.writeSubmissions(project, append(group.Submissions, rec)); err != nil {
		return err
	}
	slog.Debug("FileStore.AddSubmission succeeded", "project", project, "traveler", rec.Name)
	return nil
}

// ListSubmissions returns a project's submissions in insertion order.
func (s *FileStore) ListSubmissions(ctx context.Context, project string) ([]models.SurveyRecord, error) {
	group, _, err := s.readSubmissionsRaw(project)
	if err != nil {
		return nil, err
	}
	return group.Submissions, nil
}

// DeleteSubmission removes one traveler's submission by phone number.
func (s *FileStore) DeleteSubmission(ctx context.Context, project, phone string) error {
	group, _, err := s.readSubmissionsRaw(project)
	if err != nil {
		return err
	}
	kept := group.Submissions[:0]
	found := false
	for _, rec := range group.Submissions {
		if rec.Phone == phone {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return ErrSubmissionNotFound
	}
	return s.writeSubmissions(project, kept)
}

// LoadGroupSurveys returns the project's shared travel window and submissions.
// The window comes from the project registry; legacy submission files that
// carried their own window (or per-traveler windows) are tolerated, with the
// availability resolver aggregating per-traveler windows as a last resort.
func (s *FileStore) LoadGroupSurveys(ctx context.Context, project string) (models.GroupSurveys, error) {
	group, windows, err := s.readSubmissionsRaw(project)
	if err != nil {
		return models.GroupSurveys{}, err
	}

	projects, err := s.readProjects()
	if err != nil {
		return models.GroupSurveys{}, err
	}
	safe := models.SanitizeProjectName(project)
	for _, p := range projects {
		if p.SafeName == safe && p.TravelDate != "" {
			group.TravelDate = p.TravelDate
			group.TravelDuration = p.TravelDuration
		}
	}

	if group.TravelDate == "" && len(windows) > 0 {
		overlap, err := availability.Resolve(windows)
		if err != nil {
			return models.GroupSurveys{}, err
		}
		if overlap.HasOverlap() {
			group.TravelDate = overlap.OverlapStart
			group.TravelDuration = overlap.OverlapDays
			slog.Debug("FileStore.LoadGroupSurveys aggregated window from per-traveler windows",
				"project", safe, "start", overlap.OverlapStart, "days", overlap.OverlapDays)
		}
	}

	if err := group.Validate(); err != nil {
		return models.GroupSurveys{}, err
	}
	return group, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
