package model

import "strings"

// Verdict is the outcome of verifying a single claim
type Verdict string

const (
	VerdictSupports      Verdict = "SUPPORTS"
	VerdictRefutes       Verdict = "REFUTES"
	VerdictNotEnoughInfo Verdict = "NOT_ENOUGH_INFO"
	VerdictUnverifiable  Verdict = "UNVERIFIABLE"
)

// VerifiedThreshold is the minimum confidence for a result to count as verified
const VerifiedThreshold = 0.7

// ParseVerdict normalizes a judge's verdict string.
// Anything other than SUPPORTS, REFUTES or NOT_ENOUGH_INFO becomes NOT_ENOUGH_INFO.
func ParseVerdict(s string) Verdict {
	switch v := Verdict(strings.ToUpper(strings.TrimSpace(s))); v {
	case VerdictSupports, VerdictRefutes, VerdictNotEnoughInfo:
		return v
	default:
		return VerdictNotEnoughInfo
	}
}

// IsDecisive reports whether the verdict takes a side on the claim
func (v Verdict) IsDecisive() bool {
	return v == VerdictSupports || v == VerdictRefutes
}

// VerificationResult is the verification outcome for one claim
type VerificationResult struct {
	ClaimID     string             `json:"claim_id"`
	Verdict     Verdict            `json:"verdict"`
	Confidence  float64            `json:"confidence"`
	Evidence    []Evidence         `json:"evidence"`
	Explanation string             `json:"explanation"`
	ModelVotes  map[string]Verdict `json:"model_votes"`
}

// IsVerified reports whether the result is decisive with confidence >= 0.7
func (r VerificationResult) IsVerified() bool {
	return r.Verdict.IsDecisive() && r.Confidence >= VerifiedThreshold
}

// AppendNote appends an annotation to the explanation on its own line
func (r *VerificationResult) AppendNote(note string) {
	if r.Explanation == "" {
		r.Explanation = note
		return
	}
	r.Explanation += "\n" + note
}
