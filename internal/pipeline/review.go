package pipeline

import (
	"context"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// Review notes appended to explanations
const (
	NoteApproved  = "[Human-approved]"
	NoteCorrected = "[Human-corrected]"
)

// ReviewRequest is what a reviewer sees for one low-confidence verdict
type ReviewRequest struct {
	Claim         model.Claim
	Result        model.VerificationResult
	EvidenceCount int
}

// Reviewer asks a human about a verdict. The response is "approve",
// "correct:<VERDICT>" or "skip"; anything else leaves the verdict as is.
type Reviewer interface {
	Review(ctx context.Context, req ReviewRequest) (string, error)
}

// ReviewerFunc adapts a plain function to the Reviewer interface
type ReviewerFunc func(ctx context.Context, req ReviewRequest) (string, error)

// Review calls f
func (f ReviewerFunc) Review(ctx context.Context, req ReviewRequest) (string, error) {
	return f(ctx, req)
}

// Action is the parsed reviewer response
type Action int

const (
	ActionSkip Action = iota
	ActionApprove
	ActionCorrect
)

// Decision is a parsed reviewer response
type Decision struct {
	Action  Action
	Verdict model.Verdict
}

// ParseDecision parses a reviewer response. Corrections to anything other than
// SUPPORTS, REFUTES or NOT_ENOUGH_INFO are treated as skip.
func ParseDecision(response string) Decision {
	response = strings.ToLower(strings.TrimSpace(response))

	switch {
	case response == "approve":
		return Decision{Action: ActionApprove}
	case strings.HasPrefix(response, "correct:"):
		v := model.Verdict(strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(response, "correct:"))))
		switch v {
		case model.VerdictSupports, model.VerdictRefutes, model.VerdictNotEnoughInfo:
			return Decision{Action: ActionCorrect, Verdict: v}
		}
	}
	return Decision{Action: ActionSkip}
}

// Apply updates result according to d and reports whether it changed
func (d Decision) Apply(result *model.VerificationResult) bool {
	switch d.Action {
	case ActionApprove:
		result.Confidence = 1.0
		result.AppendNote(NoteApproved)
		return true
	case ActionCorrect:
		result.Verdict = d.Verdict
		result.Confidence = 1.0
		result.AppendNote(NoteCorrected)
		return true
	default:
		return false
	}
}
