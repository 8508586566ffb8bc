package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

const (
	// TopEvidence is the number of evidence items shown to a judge
	TopEvidence = 4

	// EvidenceContentLimit truncates each evidence snippet shown to a judge
	EvidenceContentLimit = 600

	// NoEvidenceConfidenceCap bounds confidence when a claim has no evidence at all
	NoEvidenceConfidenceCap = 0.3

	noEvidenceText = "No evidence provided."
)

var errNilJudgment = errors.New("judge returned no judgment")

// SingleVerifier consults exactly one judge per call
type SingleVerifier struct {
	identity    string
	judge       Judge
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewSingleVerifier creates a verifier that reports its votes under identity
func NewSingleVerifier(identity string, judge Judge, opts ...Option) *SingleVerifier {
	s := newSettings(opts)
	return &SingleVerifier{
		identity:    identity,
		judge:       judge,
		callTimeout: s.callTimeout,
		logger:      s.logger,
	}
}

// Identity returns the verifier identity used in model votes
func (v *SingleVerifier) Identity() string {
	return v.identity
}

// Member wraps the verifier for use in a panel
func (v *SingleVerifier) Member() Member {
	return Member{Identity: v.identity, Verifier: v}
}

// Verify asks the judge once and normalizes its answer
func (v *SingleVerifier) Verify(ctx context.Context, claim model.Claim, evidence []model.Evidence) model.VerificationResult {
	return v.ask(ctx, claim, evidence, FormatEvidence(evidence))
}

// Revise asks the judge again with the panel's current votes and a critique appended to the evidence
func (v *SingleVerifier) Revise(ctx context.Context, claim model.Claim, evidence []model.Evidence, d Deliberation) model.VerificationResult {
	return v.ask(ctx, claim, evidence, FormatEvidence(evidence)+formatDeliberation(v.identity, d))
}

func (v *SingleVerifier) ask(ctx context.Context, claim model.Claim, evidence []model.Evidence, evidenceText string) model.VerificationResult {
	if d := v.callTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	j, err := v.judge.Judge(ctx, JudgeRequest{ClaimText: claim.Text, EvidenceText: evidenceText})
	if err == nil && j == nil {
		err = errNilJudgment
	}
	if err != nil {
		v.logger.Warn("judge call failed", "identity", v.identity, "claim_id", claim.ID, "error", err)
		return Fallback(claim, evidence, v.identity, err)
	}

	verdict := model.ParseVerdict(j.Verdict)

	confidence := model.Clamp01(j.Confidence)
	if len(evidence) == 0 && confidence > NoEvidenceConfidenceCap {
		confidence = NoEvidenceConfidenceCap
	}

	explanation := j.Reasoning
	if j.KeyEvidence != "" {
		explanation += "\n\nKey evidence: " + j.KeyEvidence
	}

	return model.VerificationResult{
		ClaimID:     claim.ID,
		Verdict:     verdict,
		Confidence:  confidence,
		Evidence:    evidence,
		Explanation: explanation,
		ModelVotes:  map[string]model.Verdict{v.identity: verdict},
	}
}

// FormatEvidence renders the top evidence items, ranked by relevance, as judge input
func FormatEvidence(evidence []model.Evidence) string {
	if len(evidence) == 0 {
		return noEvidenceText
	}

	ranked := make([]model.Evidence, len(evidence))
	copy(ranked, evidence)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	if len(ranked) > TopEvidence {
		ranked = ranked[:TopEvidence]
	}

	parts := make([]string, 0, len(ranked))
	for i, e := range ranked {
		parts = append(parts, fmt.Sprintf(
			"\n--- Evidence %d (%s) %s ---\nSource: %s\nRelevance: %.0f%%\nContent: %s",
			i+1, e.SourceType, e.SupportIndicator(), e.Source, e.RelevanceScore*100, truncateRunes(e.Content, EvidenceContentLimit),
		))
	}
	return strings.Join(parts, "\n")
}

func formatDeliberation(identity string, d Deliberation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\n--- Deliberation round %d ---\nCurrent verdicts:", d.Round)
	for _, vote := range d.Votes {
		marker := ""
		if vote.Identity == identity {
			marker = " (you)"
		}
		fmt.Fprintf(&b, "\n- %s%s: %s (confidence: %.2f)", vote.Identity, marker, vote.Verdict, vote.Confidence)
	}
	if d.Critique != "" {
		fmt.Fprintf(&b, "\nCritique: %s", d.Critique)
	}
	b.WriteString("\nReview the other verdicts and either keep or revise yours.")
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
