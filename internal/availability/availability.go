// Package availability computes the common date window across a group of
// travelers. The resolver is pure and deterministic: no I/O, identical output
// for identical input.
package availability

import (
	"github.com/packvote/packvote/internal/models"
)

// Resolve computes the inclusive intersection of all travelers' date windows.
// An empty input yields a zero GroupAvailability rather than an error. Any
// window with a duration below one day fails with models.ErrInvalidDuration
// naming the offending record.
func Resolve(windows []models.TravelWindow) (models.GroupAvailability, error) {
	if len(windows) == 0 {
		return models.GroupAvailability{}, nil
	}

	latestStart, earliestEnd, err := windows[0].Bounds()
	if err != nil {
		return models.GroupAvailability{}, err
	}
	for _, w := range windows[1:] {
		start, end, err := w.Bounds()
		if err != nil {
			return models.GroupAvailability{}, err
		}
		if start.After(latestStart) {
			latestStart = start
		}
		if end.Before(earliestEnd) {
			earliestEnd = end
		}
	}

	if latestStart.After(earliestEnd) {
		return models.GroupAvailability{}, nil
	}
	days := int(earliestEnd.Sub(latestStart).Hours()/24) + 1
	return models.GroupAvailability{
		OverlapStart: latestStart.Format(models.DateLayout),
		OverlapEnd:   earliestEnd.Format(models.DateLayout),
		OverlapDays:  days,
	}, nil
}
