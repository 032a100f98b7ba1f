package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/packvote/packvote/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rebindPositional rewrites ? placeholders to $1..$n for Postgres.
func rebindPositional(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// scanProject scans a Project from sql.Rows.
func scanProject(rows *sql.Rows) (models.Project, error) {
	var p models.Project
	var travelDate, createdAt sql.NullString
	var travelDuration sql.NullInt64
	if err := rows.Scan(&p.SafeName, &p.Name, &travelDate, &travelDuration, &createdAt); err != nil {
		return p, fmt.Errorf("scan project failed: %w", err)
	}
	p.TravelDate = travelDate.String
	p.TravelDuration = int(travelDuration.Int64)
	p.CreatedAt = createdAt.String
	return p, nil
}

// scanProjectRow scans a Project from a single sql.Row.
func scanProjectRow(row *sql.Row, p *models.Project) error {
	var travelDate, createdAt sql.NullString
	var travelDuration sql.NullInt64
	if err := row.Scan(&p.SafeName, &p.Name, &travelDate, &travelDuration, &createdAt); err != nil {
		return err
	}
	p.TravelDate = travelDate.String
	p.TravelDuration = int(travelDuration.Int64)
	p.CreatedAt = createdAt.String
	return nil
}

// scanSubmission scans a SurveyRecord from sql.Rows.
func scanSubmission(rows *sql.Rows) (models.SurveyRecord, error) {
	var rec models.SurveyRecord
	var category, prefsJSON string
	var budgetMin, budgetMax int
	err := rows.Scan(&rec.Name, &rec.Phone, &rec.CountryCode, &category, &budgetMin, &budgetMax, &rec.CurrentLocation, &prefsJSON)
	if err != nil {
		return rec, fmt.Errorf("scan submission failed: %w", err)
	}
	rec.BudgetCategory = models.BudgetCategory(category)
	rec.BudgetRange = []int{budgetMin, budgetMax}
	if prefsJSON != "" {
		if err := json.Unmarshal([]byte(prefsJSON), &rec.Preferences); err != nil {
			return rec, fmt.Errorf("failed to decode preferences: %w", err)
		}
	}
	return rec, nil
}
