package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// MaxConsensusEvidence caps the evidence carried on a consensus result
const MaxConsensusEvidence = 5

var (
	ErrNoMembers         = errors.New("at least one verifier is required")
	ErrDuplicateIdentity = errors.New("duplicate verifier identity")
)

// ConsensusVerifier runs every member concurrently and combines their verdicts by weighted vote
type ConsensusVerifier struct {
	members     []Member
	weights     map[string]float64
	threshold   float64
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewConsensusVerifier creates a weighted-vote panel. Member order is the tie-break order.
func NewConsensusVerifier(members []Member, opts ...Option) (*ConsensusVerifier, error) {
	if err := checkMembers(members); err != nil {
		return nil, err
	}

	s := newSettings(opts)
	return &ConsensusVerifier{
		members:     members,
		weights:     s.weights,
		threshold:   s.threshold,
		callTimeout: s.callTimeout,
		logger:      s.logger,
	}, nil
}

// Identities returns member identities in configured order
func (c *ConsensusVerifier) Identities() []string {
	return identities(c.members)
}

// Verify implements Verifier
func (c *ConsensusVerifier) Verify(ctx context.Context, claim model.Claim, evidence []model.Evidence) model.VerificationResult {
	results := fanOut(ctx, c.members, c.callTimeout, claim, evidence,
		func(ctx context.Context, _ int, m Member) model.VerificationResult {
			return m.Verifier.Verify(ctx, claim, evidence)
		})

	votes := votesFrom(c.members, results)

	verdict := tally(votes, c.weight)
	confidence := meanConfidence(results)
	if confidence < c.threshold {
		verdict = model.VerdictNotEnoughInfo
	}

	c.logger.Debug("consensus votes", "claim_id", claim.ID, "votes", formatVotes(votes), "verdict", verdict, "confidence", confidence)

	var combined []model.Evidence
	for _, r := range results {
		combined = append(combined, r.Evidence...)
		if len(combined) >= MaxConsensusEvidence {
			break
		}
	}
	if len(combined) > MaxConsensusEvidence {
		combined = combined[:MaxConsensusEvidence]
	}

	lines := []string{fmt.Sprintf("Consensus: %s", verdict), "Model votes:"}
	for _, v := range votes {
		lines = append(lines, fmt.Sprintf("%s: %s (confidence: %.2f)", v.Identity, v.Verdict, v.Confidence))
	}

	return model.VerificationResult{
		ClaimID:     claim.ID,
		Verdict:     verdict,
		Confidence:  confidence,
		Evidence:    combined,
		Explanation: strings.Join(lines, "\n"),
		ModelVotes:  voteMap(votes),
	}
}

func (c *ConsensusVerifier) weight(identity string) float64 {
	if w, ok := c.weights[identity]; ok {
		return w
	}
	return 1.0 / float64(len(c.members))
}

func checkMembers(members []Member) error {
	if len(members) == 0 {
		return ErrNoMembers
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.Verifier == nil {
			return fmt.Errorf("verifier %q is nil", m.Identity)
		}
		if seen[m.Identity] {
			return fmt.Errorf("%w: %s", ErrDuplicateIdentity, m.Identity)
		}
		seen[m.Identity] = true
	}
	return nil
}

func identities(members []Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Identity
	}
	return out
}

func formatVotes(votes []Vote) string {
	parts := make([]string, len(votes))
	for i, v := range votes {
		parts[i] = fmt.Sprintf("%s: %s", v.Identity, v.Verdict)
	}
	return strings.Join(parts, ", ")
}
