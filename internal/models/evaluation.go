package models

import "strings"

// Verdict is the grader's binary disposition for an itinerary draft.
type Verdict string

const (
	// VerdictApproved means the draft satisfies every traveler's constraints.
	VerdictApproved Verdict = "approved"
	// VerdictRevise means the draft needs another pass.
	VerdictRevise Verdict = "revise"
)

// IsValid checks if the verdict is one of the two legal values.
func (v Verdict) IsValid() bool {
	return v == VerdictApproved || v == VerdictRevise
}

// BinaryEvaluation is the structured verdict produced by the grading stage.
type BinaryEvaluation struct {
	Verdict   Verdict  `json:"verdict"`
	Rationale string   `json:"rationale"`
	Revisions []string `json:"revisions"`
}

// LowConfidence reports whether the evaluation asked for revisions without
// naming any. Callers treat such output as low-confidence rather than
// silently accepting it.
func (e *BinaryEvaluation) LowConfidence() bool {
	return e.Verdict == VerdictRevise && len(e.Revisions) == 0
}

// Summary renders the evaluation as a history entry body.
func (e *BinaryEvaluation) Summary() string {
	var b strings.Builder
	b.WriteString("Verdict: ")
	b.WriteString(strings.ToUpper(string(e.Verdict)))
	b.WriteString("\nRationale: ")
	b.WriteString(e.Rationale)
	b.WriteString("\nRevisions:\n")
	if len(e.Revisions) == 0 {
		b.WriteString("- None")
		if e.LowConfidence() {
			b.WriteString(" (revise requested without concrete items; treat as low confidence)")
		}
	} else {
		for i, item := range e.Revisions {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- ")
			b.WriteString(item)
		}
	}
	return b.String()
}

// BinaryEvaluationSchema is the JSON schema the grader's structured output is
// constrained to.
func BinaryEvaluationSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"verdict": map[string]interface{}{
				"type": "string",
				"enum": []string{string(VerdictApproved), string(VerdictRevise)},
			},
			"rationale": map[string]interface{}{
				"type":        "string",
				"description": "Brief reasoning for the verdict and key evidence",
			},
			"revisions": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Specific actionable improvements expected for a re-run",
			},
		},
		"required":             []string{"verdict", "rationale", "revisions"},
		"additionalProperties": false,
	}
}

// RouterSchema is the JSON schema constraining the supervisor's routing
// decision to the closed token set.
func RouterSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"next": map[string]interface{}{
				"type": "string",
				"enum": DecisionOptions(),
			},
		},
		"required":             []string{"next"},
		"additionalProperties": false,
	}
}
