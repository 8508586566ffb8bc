package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in   string
		want Decision
	}{
		{"approve", Decision{Action: ActionApprove}},
		{"  APPROVE\n", Decision{Action: ActionApprove}},
		{"correct:SUPPORTS", Decision{Action: ActionCorrect, Verdict: model.VerdictSupports}},
		{"correct:refutes", Decision{Action: ActionCorrect, Verdict: model.VerdictRefutes}},
		{"Correct: not_enough_info", Decision{Action: ActionCorrect, Verdict: model.VerdictNotEnoughInfo}},
		{"correct:unverifiable", Decision{Action: ActionSkip}},
		{"correct:", Decision{Action: ActionSkip}},
		{"skip", Decision{Action: ActionSkip}},
		{"", Decision{Action: ActionSkip}},
		{"yes please", Decision{Action: ActionSkip}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDecision(tt.in), "response %q", tt.in)
	}
}

func TestDecision_Apply(t *testing.T) {
	t.Run("approve", func(t *testing.T) {
		r := model.VerificationResult{Verdict: model.VerdictSupports, Confidence: 0.5, Explanation: "why"}
		assert.True(t, Decision{Action: ActionApprove}.Apply(&r))
		assert.Equal(t, model.VerdictSupports, r.Verdict)
		assert.Equal(t, 1.0, r.Confidence)
		assert.Equal(t, "why\n[Human-approved]", r.Explanation)
	})

	t.Run("correct", func(t *testing.T) {
		r := model.VerificationResult{Verdict: model.VerdictSupports, Confidence: 0.3}
		assert.True(t, Decision{Action: ActionCorrect, Verdict: model.VerdictRefutes}.Apply(&r))
		assert.Equal(t, model.VerdictRefutes, r.Verdict)
		assert.Equal(t, 1.0, r.Confidence)
		assert.Equal(t, "[Human-corrected]", r.Explanation)
	})

	t.Run("skip", func(t *testing.T) {
		r := model.VerificationResult{Verdict: model.VerdictRefutes, Confidence: 0.3, Explanation: "x"}
		assert.False(t, Decision{Action: ActionSkip}.Apply(&r))
		assert.Equal(t, model.VerificationResult{Verdict: model.VerdictRefutes, Confidence: 0.3, Explanation: "x"}, r)
	})
}
