package models

import (
	"errors"
	"testing"
)

func validRecord() SurveyRecord {
	return SurveyRecord{
		Name:            "alice",
		Phone:           "4155550100",
		CountryCode:     "+1",
		BudgetCategory:  BudgetMedium,
		BudgetRange:     []int{1000, 2500},
		CurrentLocation: "Austin, TX",
		Preferences:     []string{"Beaches", "Food exploration"},
	}
}

func TestSurveyRecordValidate(t *testing.T) {
	rec := validRecord()
	if err := rec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*SurveyRecord)
		wantErr error
	}{
		{"empty name", func(r *SurveyRecord) { r.Name = "  " }, ErrEmptyName},
		{"short phone", func(r *SurveyRecord) { r.Phone = "415555" }, ErrInvalidPhone},
		{"non numeric phone", func(r *SurveyRecord) { r.Phone = "41555501ab" }, ErrInvalidPhone},
		{"bad category", func(r *SurveyRecord) { r.BudgetCategory = "lavish" }, ErrInvalidBudgetCategory},
		{"inverted range", func(r *SurveyRecord) { r.BudgetRange = []int{2500, 1000} }, ErrInvalidBudgetRange},
		{"negative range", func(r *SurveyRecord) { r.BudgetRange = []int{-1, 100} }, ErrInvalidBudgetRange},
		{"empty location", func(r *SurveyRecord) { r.CurrentLocation = "" }, ErrEmptyLocation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRecord()
			tc.mutate(&r)
			if err := r.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	if got, ok := NormalizePhone("(415) 555-0100"); !ok || got != "4155550100" {
		t.Errorf("expected normalized 4155550100, got %q ok=%v", got, ok)
	}
	if _, ok := NormalizePhone("555-0100"); ok {
		t.Error("expected short phone to be rejected")
	}
}

func TestGroupSurveysValidate(t *testing.T) {
	g := GroupSurveys{TravelDate: "2025-06-01", TravelDuration: 5, Submissions: []SurveyRecord{validRecord()}}
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	g.TravelDate = ""
	if err := g.Validate(); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input, got %v", err)
	}

	g = GroupSurveys{TravelDate: "2025-06-01", TravelDuration: 0}
	if err := g.Validate(); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("expected invalid duration, got %v", err)
	}

	bad := validRecord()
	bad.Phone = "123"
	g = GroupSurveys{TravelDate: "2025-06-01", TravelDuration: 5, Submissions: []SurveyRecord{bad}}
	if err := g.Validate(); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input for bad submission, got %v", err)
	}
}

func TestSanitizeProjectName(t *testing.T) {
	if got := SanitizeProjectName("Summer Trip 2025!"); got != "SummerTrip2025" {
		t.Errorf("unexpected safe name %q", got)
	}
	if got := SanitizeProjectName("///"); got != "default" {
		t.Errorf("expected default, got %q", got)
	}
}

func TestCurrentItineraryFallback(t *testing.T) {
	state := &WorkflowState{}
	if got := state.CurrentItinerary(); got != "" {
		t.Errorf("expected empty itinerary, got %q", got)
	}

	state.AppendHistory(AuthorResearcher, "draft one")
	state.AppendHistory(AuthorGrader, "verdict")
	state.AppendHistory(AuthorResearcher, "draft two")
	if got := state.CurrentItinerary(); got != "draft two" {
		t.Errorf("expected newest researcher entry, got %q", got)
	}

	state.LatestItinerary = "draft two"
	if got := state.CurrentItinerary(); got != "draft two" {
		t.Errorf("field and history disagree: %q", got)
	}
}

func TestEvaluationSummary(t *testing.T) {
	eval := &BinaryEvaluation{Verdict: VerdictRevise, Rationale: "budget exceeded"}
	if !eval.LowConfidence() {
		t.Error("revise without revisions should be low confidence")
	}
	summary := eval.Summary()
	if want := "Verdict: REVISE"; summary[:len(want)] != want {
		t.Errorf("unexpected summary prefix: %q", summary)
	}

	eval.Revisions = []string{"trim day 3 costs"}
	if eval.LowConfidence() {
		t.Error("revise with items is not low confidence")
	}
}

func TestDecisionIsValid(t *testing.T) {
	for _, d := range []Decision{DecisionDraft, DecisionGrade, DecisionFinish} {
		if !d.IsValid() {
			t.Errorf("expected %s to be valid", d)
		}
	}
	if Decision("RETRY").IsValid() {
		t.Error("unexpected valid decision")
	}
}
