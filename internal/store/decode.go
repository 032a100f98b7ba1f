package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/packvote/packvote/internal/models"
)

// rawSubmission is the on-disk shape of a stored submission. Phone is kept raw
// because older files stored it as a JSON number and newer ones as a string.
// added_at is tolerated and dropped.
type rawSubmission struct {
	Name            string                `json:"name"`
	Phone           json.RawMessage       `json:"phone"`
	CountryCode     string                `json:"country_code"`
	BudgetCategory  models.BudgetCategory `json:"budget_category"`
	BudgetRange     []int                 `json:"budget_range"`
	CurrentLocation string                `json:"current_location"`
	Preferences     []string              `json:"preferences"`
	TravelDate      string                `json:"travel_date,omitempty"`
	TravelDuration  int                   `json:"travel_duration,omitempty"`
}

// submissionsEnvelope is the legacy wrapper shape carrying the shared travel
// window alongside the submissions.
type submissionsEnvelope struct {
	TravelDate     string            `json:"travel_date"`
	TravelDuration int               `json:"travel_duration"`
	Submissions    []json.RawMessage `json:"submissions"`
}

// DecodeGroupSurveys normalizes both historical submission-file shapes into a
// canonical GroupSurveys: either a bare array of submissions, or an object
// wrapping {travel_date, travel_duration, submissions}. Submissions whose
// phone cannot be normalized to exactly ten digits are dropped rather than
// failing the whole load; a missing country code defaults to "+1".
//
// The second return value collects any per-traveler windows found on
// individual submissions, for availability cross-checking when the shared
// window is absent.
func DecodeGroupSurveys(data []byte) (models.GroupSurveys, []models.TravelWindow, error) {
	var group models.GroupSurveys
	var windows []models.TravelWindow

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return group, nil, nil
	}

	var items []json.RawMessage
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &items); err != nil {
			return group, nil, fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
		}
	} else {
		var env submissionsEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return group, nil, fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
		}
		group.TravelDate = env.TravelDate
		group.TravelDuration = env.TravelDuration
		items = env.Submissions
	}

	for _, item := range items {
		rec, window, ok, err := decodeSubmission(item)
		if err != nil {
			return group, nil, err
		}
		if !ok {
			continue
		}
		group.Submissions = append(group.Submissions, rec)
		if window != nil {
			windows = append(windows, *window)
		}
	}
	return group, windows, nil
}

// decodeSubmission decodes one stored submission. The boolean return is false
// when the record is tolerably invalid (unnormalizable phone) and should be
// skipped.
func decodeSubmission(data json.RawMessage) (models.SurveyRecord, *models.TravelWindow, bool, error) {
	var raw rawSubmission
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.SurveyRecord{}, nil, false, fmt.Errorf("%w: %v", models.ErrMalformedInput, err)
	}

	phone, ok := normalizeRawPhone(raw.Phone)
	if !ok {
		return models.SurveyRecord{}, nil, false, nil
	}

	countryCode := raw.CountryCode
	if countryCode == "" {
		countryCode = models.DefaultCountryCode
	}

	rec := models.SurveyRecord{
		Name:            raw.Name,
		Phone:           phone,
		CountryCode:     countryCode,
		BudgetCategory:  raw.BudgetCategory,
		BudgetRange:     raw.BudgetRange,
		CurrentLocation: raw.CurrentLocation,
		Preferences:     raw.Preferences,
	}
	var window *models.TravelWindow
	if raw.TravelDate != "" && raw.TravelDuration > 0 {
		window = &models.TravelWindow{StartDate: raw.TravelDate, DurationDays: raw.TravelDuration, Name: raw.Name}
	}
	return rec, window, true, nil
}

// normalizeRawPhone accepts both the numeric and string phone encodings.
func normalizeRawPhone(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return models.NormalizePhone(asString)
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return models.NormalizePhone(strconv.FormatInt(asNumber, 10))
	}
	return "", false
}
