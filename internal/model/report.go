package model

import (
	"regexp"
	"time"
)

// Statistics is the aggregate verdict breakdown of an evaluation
type Statistics struct {
	TotalClaims      int     `json:"total_claims"`
	Supported        int     `json:"supported"`
	Refuted          int     `json:"refuted"`
	NotEnoughInfo    int     `json:"not_enough_info"`
	Unverifiable     int     `json:"unverifiable"`
	VerificationRate float64 `json:"verification_rate"` // (supported+refuted)/total_claims
	AccuracyScore    float64 `json:"accuracy_score"`    // supported/(supported+refuted)
}

// Report is the complete truthfulness evaluation of one document.
// It is built once by score.BuildReport and never mutated incrementally.
type Report struct {
	EvaluationID      string               `json:"evaluation_id,omitempty"`
	GeneratedAt       time.Time            `json:"generated_at"`
	SourceDocument    string               `json:"source_document"`
	OverallGrade      string               `json:"overall_grade"`
	OverallConfidence float64              `json:"overall_confidence"`
	Summary           string               `json:"summary"`
	Claims            []Claim              `json:"claims"`
	Verifications     []VerificationResult `json:"verifications"`
	UnvalidatedClaims []Claim              `json:"unvalidated_claims"`
	Statistics        Statistics           `json:"statistics"`
}

var gradePattern = regexp.MustCompile(`^[A-F][+-]?$`)

// ValidGrade reports whether g looks like a letter grade (A+ through F)
func ValidGrade(g string) bool {
	return gradePattern.MatchString(g)
}

// ClaimByID returns the claim with the given id, if present
func (r *Report) ClaimByID(id string) (Claim, bool) {
	for _, c := range r.Claims {
		if c.ID == id {
			return c, true
		}
	}
	return Claim{}, false
}
