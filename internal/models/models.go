// Package models defines the core data structures for PackVote.
//
// It includes traveler survey records, the shared workflow state threaded through
// the itinerary-planning stages, and the grader's evaluation payload.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// BudgetCategory classifies a traveler's spending tier.
type BudgetCategory string

const (
	// BudgetLow is the lowest spending tier.
	BudgetLow BudgetCategory = "low"
	// BudgetMedium is the middle spending tier.
	BudgetMedium BudgetCategory = "medium"
	// BudgetHigh is the highest spending tier.
	BudgetHigh BudgetCategory = "high"
)

// Validation constants for survey input.
const (
	// PhoneDigits is the exact number of digits required in a normalized phone number.
	PhoneDigits = 10
	// DefaultCountryCode is assumed when a stored submission predates country codes.
	DefaultCountryCode = "+1"
)

// Error variables for better error handling and testability.
var (
	ErrEmptyName              = errors.New("traveler name cannot be empty")
	ErrInvalidPhone           = errors.New("phone number must be exactly 10 digits")
	ErrInvalidBudgetCategory  = errors.New("budget category must be low, medium, or high")
	ErrInvalidBudgetRange     = errors.New("budget range must be [min, max] with 0 <= min <= max")
	ErrEmptyLocation          = errors.New("current location cannot be empty")
	ErrInvalidDuration        = errors.New("travel duration must be at least 1 day")
	ErrMalformedInput         = errors.New("malformed survey input")
	ErrGenerationUnavailable  = errors.New("text generation capability unavailable")
	ErrIterationLimitExceeded = errors.New("iteration limit exceeded")
	ErrEmptyProjectName       = errors.New("project name cannot be empty")
)

// IsValidBudgetCategory checks if the given budget category is supported.
func IsValidBudgetCategory(bc BudgetCategory) bool {
	switch bc {
	case BudgetLow, BudgetMedium, BudgetHigh:
		return true
	default:
		return false
	}
}

// SurveyRecord is one traveler's validated survey submission. Immutable once
// validated; the workflow reads it but never modifies it.
type SurveyRecord struct {
	Name            string         `json:"name"`
	Phone           string         `json:"phone"`        // exactly 10 digits
	CountryCode     string         `json:"country_code"` // e.g. "+1"
	BudgetCategory  BudgetCategory `json:"budget_category"`
	BudgetRange     []int          `json:"budget_range"` // [min, max]
	CurrentLocation string         `json:"current_location"`
	Preferences     []string       `json:"preferences"`
}

// Validate performs comprehensive validation on a SurveyRecord.
func (s *SurveyRecord) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if len(s.Phone) != PhoneDigits {
		return ErrInvalidPhone
	}
	for _, r := range s.Phone {
		if r < '0' || r > '9' {
			return ErrInvalidPhone
		}
	}
	if !IsValidBudgetCategory(s.BudgetCategory) {
		return ErrInvalidBudgetCategory
	}
	if len(s.BudgetRange) != 2 || s.BudgetRange[0] < 0 || s.BudgetRange[0] > s.BudgetRange[1] {
		return ErrInvalidBudgetRange
	}
	if strings.TrimSpace(s.CurrentLocation) == "" {
		return ErrEmptyLocation
	}
	return nil
}

// FullPhone renders the phone number prefixed with its country code.
func (s *SurveyRecord) FullPhone() string {
	if s.CountryCode == "" {
		return s.Phone
	}
	return s.CountryCode + s.Phone
}

// NormalizePhone strips non-digit characters from a raw phone value and reports
// whether the result has exactly the required digit count. Submissions whose
// phone cannot be normalized are dropped at load time rather than failing the
// whole batch.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	normalized := b.String()
	return normalized, len(normalized) == PhoneDigits
}

// GroupSurveys bundles a project's shared travel window with its submissions,
// as loaded from the persistence layer.
type GroupSurveys struct {
	TravelDate     string         `json:"travel_date"` // YYYY-MM-DD
	TravelDuration int            `json:"travel_duration"`
	Submissions    []SurveyRecord `json:"submissions"`
}

// Validate checks that the group window and every submission are usable as
// workflow seed data.
func (g *GroupSurveys) Validate() error {
	if g.TravelDate == "" {
		return fmt.Errorf("%w: missing travel_date", ErrMalformedInput)
	}
	if g.TravelDuration < 1 {
		return fmt.Errorf("%w: travel_duration %d", ErrInvalidDuration, g.TravelDuration)
	}
	for i := range g.Submissions {
		if err := g.Submissions[i].Validate(); err != nil {
			return fmt.Errorf("%w: submission %q: %v", ErrMalformedInput, g.Submissions[i].Name, err)
		}
	}
	return nil
}

// Project is a named trip with its shared travel window.
type Project struct {
	Name           string `json:"name"`
	SafeName       string `json:"safe_name"`
	TravelDate     string `json:"travel_date,omitempty"`
	TravelDuration int    `json:"travel_duration,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// SanitizeProjectName reduces a project name to a filesystem- and URL-safe form.
func SanitizeProjectName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.TrimSpace(b.String())
	if safe == "" {
		safe = "default"
	}
	return safe
}
