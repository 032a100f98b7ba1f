package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for all travel dates.
const DateLayout = "2006-01-02"

// TravelWindow is one traveler's preferred date range, expressed as a start
// date plus an inclusive duration in days.
type TravelWindow struct {
	StartDate    string `json:"start_date"` // YYYY-MM-DD
	DurationDays int    `json:"duration_days"`
	Name         string `json:"name,omitempty"` // traveler the window belongs to, for error reporting
}

// Bounds returns the window's start and inclusive end dates.
func (w TravelWindow) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, w.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start date %q: %v", ErrMalformedInput, w.StartDate, err)
	}
	if w.DurationDays < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: got %d for %s", ErrInvalidDuration, w.DurationDays, w.Name)
	}
	end := start.AddDate(0, 0, w.DurationDays-1)
	return start, end, nil
}

// GroupAvailability is the common date window across all travelers. When no
// common window exists the bounds are empty and OverlapDays is zero.
type GroupAvailability struct {
	OverlapStart string `json:"overlap_start,omitempty"`
	OverlapEnd   string `json:"overlap_end,omitempty"`
	OverlapDays  int    `json:"overlap_days"`
}

// HasOverlap reports whether the group shares at least one day.
func (g GroupAvailability) HasOverlap() bool {
	return g.OverlapDays > 0
}
