package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
)

// huhReviewer asks about low-confidence verdicts in the terminal
type huhReviewer struct{}

// Review implements pipeline.Reviewer. Aborting the form skips the claim.
func (huhReviewer) Review(ctx context.Context, req pipeline.ReviewRequest) (string, error) {
	var action, verdict string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Human review needed").
				Description(reviewDescription(req)),
			huh.NewSelect[string]().
				Title("What should happen to this verdict?").
				Options(
					huh.NewOption("Approve", "approve"),
					huh.NewOption("Correct", "correct"),
					huh.NewOption("Skip", "skip"),
				).
				Value(&action),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Corrected verdict").
				Options(
					huh.NewOption("Supports", string(model.VerdictSupports)),
					huh.NewOption("Refutes", string(model.VerdictRefutes)),
					huh.NewOption("Not enough info", string(model.VerdictNotEnoughInfo)),
				).
				Value(&verdict),
		).WithHideFunc(func() bool { return action != "correct" }),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "skip", nil
		}
		return "", err
	}
	return reviewResponse(action, verdict), nil
}

// reviewResponse encodes the form answers in the reviewer protocol
func reviewResponse(action, verdict string) string {
	if action == "correct" {
		return "correct:" + verdict
	}
	return action
}

func reviewDescription(req pipeline.ReviewRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim: %s\n\n", req.Claim.Text)
	fmt.Fprintf(&b, "Verdict: %s\n", req.Result.Verdict)
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", req.Result.Confidence*100)
	fmt.Fprintf(&b, "Evidence items: %d\n", req.EvidenceCount)
	if explanation := strings.TrimSpace(req.Result.Explanation); explanation != "" {
		fmt.Fprintf(&b, "\n%s", explanation)
	}
	return b.String()
}
