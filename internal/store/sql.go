// This file implements the Store contract shared by the SQLite and PostgreSQL
// backends. Queries are written with ? placeholders and rebound for Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/packvote/packvote/internal/models"
)

// sqlStore holds the database handle shared by both SQL backends.
type sqlStore struct {
	db       *sql.DB
	postgres bool
}

// bind rewrites ? placeholders to $n for Postgres.
func (s *sqlStore) bind(query string) string {
	if !s.postgres {
		return query
	}
	return rebindPositional(query)
}

// ListProjects returns all registered projects.
func (s *sqlStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT safe_name, name, travel_date, travel_duration, created_at FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AddProject registers a project, updating its travel window if it already exists.
func (s *sqlStore) AddProject(ctx context.Context, p models.Project) (models.Project, error) {
	if p.Name == "" {
		return models.Project{}, models.ErrEmptyProjectName
	}
	p.SafeName = models.SanitizeProjectName(p.Name)

	var existing models.Project
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT safe_name, name, travel_date, travel_duration, created_at FROM projects WHERE safe_name = ?`), p.SafeName)
	err := scanProjectRow(row, &existing)
	switch {
	case err == nil:
		if p.TravelDate != "" {
			existing.TravelDate = p.TravelDate
		}
		if p.TravelDuration != 0 {
			existing.TravelDuration = p.TravelDuration
		}
		_, err = s.db.ExecContext(ctx, s.bind(`UPDATE projects SET travel_date = ?, travel_duration = ? WHERE safe_name = ?`),
			nilIfEmpty(existing.TravelDate), existing.TravelDuration, existing.SafeName)
		if err != nil {
			return models.Project{}, fmt.Errorf("failed to update project %s: %w", existing.SafeName, err)
		}
		return existing, nil
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, s.bind(`INSERT INTO projects (safe_name, name, travel_date, travel_duration) VALUES (?, ?, ?, ?)`),
			p.SafeName, p.Name, nilIfEmpty(p.TravelDate), p.TravelDuration)
		if err != nil {
			return models.Project{}, fmt.Errorf("failed to insert project %s: %w", p.SafeName, err)
		}
		slog.Debug("sqlStore.AddProject created project", "project", p.SafeName)
		return p, nil
	default:
		return models.Project{}, fmt.Errorf("failed to look up project %s: %w", p.SafeName, err)
	}
}

// DeleteProject removes a project and its submissions.
func (s *sqlStore) DeleteProject(ctx context.Context, name string) error {
	safe := models.SanitizeProjectName(name)
	// Submissions go first so SQLite builds without foreign-key cascades behave the same.
	if _, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM submissions WHERE project_safe_name = ?`), safe); err != nil {
		return fmt.Errorf("failed to delete submissions for %s: %w", safe, err)
	}
	res, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM projects WHERE safe_name = ?`), safe)
	if err != nil {
		return fmt.Errorf("failed to delete project %s: %w", safe, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// AddSubmission appends a validated survey submission to a project.
func (s *sqlStore) AddSubmission(ctx context.Context, project string, rec models.SurveyRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, err := s.AddProject(ctx, models.Project{Name: project}); err != nil {
		return err
	}
	prefs, err := json.Marshal(rec.Preferences)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	safe := models.SanitizeProjectName(project)
	_, err = s.db.ExecContext(ctx, s.bind(`INSERT INTO submissions
		(project_safe_name, name, phone, country_code, budget_category, budget_min, budget_max, current_location, preferences)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		safe, rec.Name, rec.Phone, rec.CountryCode, string(rec.BudgetCategory),
		rec.BudgetRange[0], rec.BudgetRange[1], rec.CurrentLocation, string(prefs))
	if err != nil {
		return fmt.Errorf("failed to insert submission for %s: %w", rec.Name, err)
	}
	slog.Debug("sqlStore.AddSubmission succeeded", "project", safe, "traveler", rec.Name)
	return nil
}

// ListSubmissions returns a project's submissions in insertion order.
func (s *sqlStore) ListSubmissions(ctx context.Context, project string) ([]models.SurveyRecord, error) {
	safe := models.SanitizeProjectName(project)
	rows, err := s.db.QueryContext(ctx, s.bind(`SELECT name, phone, country_code, budget_category, budget_min, budget_max, current_location, preferences
		FROM submissions WHERE project_safe_name = ? ORDER BY id`), safe)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var recs []models.SurveyRecord
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteSubmission removes one traveler's submission by phone number.
func (s *sqlStore) DeleteSubmission(ctx context.Context, project, phone string) error {
	safe := models.SanitizeProjectName(project)
	res, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM submissions WHERE project_safe_name = ? AND phone = ?`), safe, phone)
	if err != nil {
		return fmt.Errorf("failed to delete submission: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// LoadGroupSurveys returns the project's shared travel window and submissions.
func (s *sqlStore) LoadGroupSurveys(ctx context.Context, project string) (models.GroupSurveys, error) {
	safe := models.SanitizeProjectName(project)
	var group models.GroupSurveys

	var travelDate sql.NullString
	var travelDuration sql.NullInt64
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT travel_date, travel_duration FROM projects WHERE safe_name = ?`), safe)
	if err := row.Scan(&travelDate, &travelDuration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return group, ErrProjectNotFound
		}
		return group, fmt.Errorf("failed to load project %s: %w", safe, err)
	}
	group.TravelDate = travelDate.String
	group.TravelDuration = int(travelDuration.Int64)

	subs, err := s.ListSubmissions(ctx, project)
	if err != nil {
		return group, err
	}
	group.Submissions = subs

	if err := group.Validate(); err != nil {
		return models.GroupSurveys{}, err
	}
	return group, nil
}

// Close releases the database handle.
func (s *sqlStore) Close() error {
	return s.db.Close()
}
