package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/packvote/packvote/internal/models"
)

// FormatUserSurveys renders a concise, structured summary of all traveler
// surveys plus the group's shared travel window, for use in stage prompts.
func FormatUserSurveys(surveys []models.SurveyRecord, travelDate string, travelDuration int) string {
	window := travelDate
	if start, err := time.Parse(models.DateLayout, travelDate); err == nil && travelDuration >= 1 {
		end := start.AddDate(0, 0, travelDuration-1)
		window = fmt.Sprintf("%s to %s (%d days)", travelDate, end.Format(models.DateLayout), travelDuration)
	}

	sections := make([]string, 0, len(surveys))
	for i, s := range surveys {
		budget := ""
		if len(s.BudgetRange) == 2 {
			budget = fmt.Sprintf("$%d - $%d", s.BudgetRange[0], s.BudgetRange[1])
		}
		sections = append(sections, strings.Join([]string{
			fmt.Sprintf("Traveler %d: %s", i+1, s.Name),
			fmt.Sprintf("Travel window: %s", window),
			fmt.Sprintf("- From: %s", s.CurrentLocation),
			fmt.Sprintf("- Budget category: %s | Range: %s", s.BudgetCategory, budget),
			fmt.Sprintf("- Interests: %s", strings.Join(s.Preferences, ", ")),
		}, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// formatRevisions renders the grader's revision items as iteration guidance
// for the next draft.
func formatRevisions(eval *models.BinaryEvaluation) string {
	if eval == nil || len(eval.Revisions) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Address the following revision items from the previous review:\n")
	for _, item := range eval.Revisions {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}
