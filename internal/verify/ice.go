package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// DefaultMaxRounds is the default ICE round budget
const DefaultMaxRounds = 3

// Critic produces one critique per identity between ICE rounds
type Critic interface {
	Critique(ctx context.Context, req CritiqueRequest) (map[string]string, error)
}

// CritiqueRequest describes the panel state a critic comments on
type CritiqueRequest struct {
	Claim    model.Claim
	Evidence []model.Evidence
	Votes    []Vote
	Round    int
}

// RoundCritic is the placeholder critic: it addresses every identity with a bare round marker
type RoundCritic struct{}

// Critique implements Critic
func (RoundCritic) Critique(_ context.Context, req CritiqueRequest) (map[string]string, error) {
	out := make(map[string]string, len(req.Votes))
	for _, v := range req.Votes {
		out[v.Identity] = fmt.Sprintf("Round %d critique", req.Round)
	}
	return out, nil
}

// Reviser is implemented by verifiers that can take deliberation context into account.
// Members that do not implement it are simply re-verified during revision rounds.
type Reviser interface {
	Revise(ctx context.Context, claim model.Claim, evidence []model.Evidence, d Deliberation) model.VerificationResult
}

// Deliberation is the context handed to a member when it revises its vote
type Deliberation struct {
	Round    int
	Votes    []Vote
	Critique string
}

// Trace records how an ICE verification unfolded
type Trace struct {
	Rounds  int      // rounds consumed, including round 1
	History [][]Vote // votes after each round
}

// ICEVerifier runs iterative consensus: rounds of critique and revision until the panel agrees
type ICEVerifier struct {
	members     []Member
	maxRounds   int
	threshold   float64
	critic      Critic
	callTimeout time.Duration
	onRounds    func(int)
	logger      *slog.Logger
}

// NewICEVerifier creates an iterative consensus panel. Member order is the tie-break order.
func NewICEVerifier(members []Member, opts ...Option) (*ICEVerifier, error) {
	if err := checkMembers(members); err != nil {
		return nil, err
	}

	s := newSettings(opts)
	if s.maxRounds < 1 {
		return nil, fmt.Errorf("max rounds must be at least 1, got %d", s.maxRounds)
	}
	critic := s.critic
	if critic == nil {
		critic = RoundCritic{}
	}

	return &ICEVerifier{
		members:     members,
		maxRounds:   s.maxRounds,
		threshold:   s.threshold,
		critic:      critic,
		callTimeout: s.callTimeout,
		onRounds:    s.onRounds,
		logger:      s.logger,
	}, nil
}

// Identities returns member identities in configured order
func (v *ICEVerifier) Identities() []string {
	return identities(v.members)
}

// Verify implements Verifier
func (v *ICEVerifier) Verify(ctx context.Context, claim model.Claim, evidence []model.Evidence) model.VerificationResult {
	res, _ := v.VerifyWithTrace(ctx, claim, evidence)
	return res
}

// VerifyWithTrace verifies the claim and reports how many rounds were used
func (v *ICEVerifier) VerifyWithTrace(ctx context.Context, claim model.Claim, evidence []model.Evidence) (model.VerificationResult, Trace) {
	firstRound := fanOut(ctx, v.members, v.callTimeout, claim, evidence,
		func(ctx context.Context, _ int, m Member) model.VerificationResult {
			return m.Verifier.Verify(ctx, claim, evidence)
		})

	votes := votesFrom(v.members, firstRound)
	trace := Trace{Rounds: 1, History: [][]Vote{votes}}

	for round := 2; round <= v.maxRounds; round++ {
		if unanimous(votes) {
			break
		}

		critiques, err := v.critic.Critique(ctx, CritiqueRequest{
			Claim:    claim,
			Evidence: evidence,
			Votes:    votes,
			Round:    round,
		})
		if err != nil {
			v.logger.Warn("critique failed, revising without critiques", "claim_id", claim.ID, "round", round, "error", err)
			critiques = nil
		}

		current := votes
		revised := fanOut(ctx, v.members, v.callTimeout, claim, evidence,
			func(ctx context.Context, _ int, m Member) model.VerificationResult {
				if r, ok := m.Verifier.(Reviser); ok {
					return r.Revise(ctx, claim, evidence, Deliberation{
						Round:    round,
						Votes:    current,
						Critique: critiques[m.Identity],
					})
				}
				return m.Verifier.Verify(ctx, claim, evidence)
			})

		votes = votesFrom(v.members, revised)
		trace.Rounds = round
		trace.History = append(trace.History, votes)

		v.logger.Debug("ice round complete", "claim_id", claim.ID, "round", round, "votes", formatVotes(votes))
	}

	verdict := tally(votes, func(string) float64 { return 1 })
	confidence := meanConfidence(firstRound)
	if confidence < v.threshold {
		verdict = model.VerdictNotEnoughInfo
	}

	if v.onRounds != nil {
		v.onRounds(trace.Rounds)
	}

	return model.VerificationResult{
		ClaimID:     claim.ID,
		Verdict:     verdict,
		Confidence:  confidence,
		Evidence:    evidence,
		Explanation: fmt.Sprintf("ICE Consensus after up to %d rounds", v.maxRounds),
		ModelVotes:  voteMap(votes),
	}, trace
}

func unanimous(votes []Vote) bool {
	for _, v := range votes[1:] {
		if v.Verdict != votes[0].Verdict {
			return false
		}
	}
	return true
}
