package availability

import (
	"errors"
	"reflect"
	"testing"

	"github.com/packvote/packvote/internal/models"
)

func TestResolveOverlap(t *testing.T) {
	windows := []models.TravelWindow{
		{StartDate: "2025-06-01", DurationDays: 5, Name: "alice"},
		{StartDate: "2025-06-03", DurationDays: 5, Name: "bob"},
	}
	got, err := Resolve(windows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.GroupAvailability{OverlapStart: "2025-06-03", OverlapEnd: "2025-06-05", OverlapDays: 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !got.HasOverlap() {
		t.Error("expected overlap")
	}
}

func TestResolveNoOverlap(t *testing.T) {
	windows := []models.TravelWindow{
		{StartDate: "2025-06-01", DurationDays: 2},
		{StartDate: "2025-06-10", DurationDays: 2},
	}
	got, err := Resolve(windows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.HasOverlap() || got.OverlapStart != "" || got.OverlapEnd != "" || got.OverlapDays != 0 {
		t.Errorf("expected empty availability, got %+v", got)
	}
}

func TestResolveSingleWindow(t *testing.T) {
	got, err := Resolve([]models.TravelWindow{{StartDate: "2025-07-04", DurationDays: 1}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.GroupAvailability{OverlapStart: "2025-07-04", OverlapEnd: "2025-07-04", OverlapDays: 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	got, err := Resolve(nil)
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}
	if got.HasOverlap() {
		t.Errorf("expected zero availability, got %+v", got)
	}
}

func TestResolveInvalidDuration(t *testing.T) {
	windows := []models.TravelWindow{
		{StartDate: "2025-06-01", DurationDays: 5, Name: "alice"},
		{StartDate: "2025-06-03", DurationDays: 0, Name: "bob"},
	}
	_, err := Resolve(windows)
	if !errors.Is(err, models.ErrInvalidDuration) {
		t.Errorf("expected invalid duration error, got %v", err)
	}
}

func TestResolveBadDate(t *testing.T) {
	_, err := Resolve([]models.TravelWindow{{StartDate: "June 1", DurationDays: 3}})
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Errorf("expected malformed input error, got %v", err)
	}
}

func TestResolveIdempotent(t *testing.T) {
	windows := []models.TravelWindow{
		{StartDate: "2025-06-01", DurationDays: 7},
		{StartDate: "2025-06-04", DurationDays: 7},
		{StartDate: "2025-06-02", DurationDays: 4},
	}
	first, err := Resolve(windows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Resolve(windows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolve is not idempotent: %+v vs %+v", first, second)
	}
}
