// Package verify turns a claim and its evidence into a verdict, using one
// judge or a panel of judges that vote (consensus) or deliberate (ICE).
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// Verifier produces a verification result for one claim.
// Implementations never return errors; failures surface as NOT_ENOUGH_INFO results.
type Verifier interface {
	Verify(ctx context.Context, claim model.Claim, evidence []model.Evidence) model.VerificationResult
}

// Judge is the external reasoning capability a single verifier consults
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (*Judgment, error)
}

// JudgeFunc adapts a plain function to the Judge interface
type JudgeFunc func(ctx context.Context, req JudgeRequest) (*Judgment, error)

// Judge calls f
func (f JudgeFunc) Judge(ctx context.Context, req JudgeRequest) (*Judgment, error) {
	return f(ctx, req)
}

// JudgeRequest is the input handed to a judge
type JudgeRequest struct {
	ClaimText    string
	EvidenceText string
}

// Judgment is a judge's raw, unnormalized answer
type Judgment struct {
	Verdict     string  `json:"verdict"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
	KeyEvidence string  `json:"key_evidence,omitempty"`
}

// Member is one identity participating in a consensus panel
type Member struct {
	Identity string
	Verifier Verifier
}

// Vote is one member's verdict in a round
type Vote struct {
	Identity    string        `json:"identity"`
	Verdict     model.Verdict `json:"verdict"`
	Confidence  float64       `json:"confidence"`
	Explanation string        `json:"explanation,omitempty"`
}

// Fallback builds the non-throwing result used whenever a judge call fails
func Fallback(claim model.Claim, evidence []model.Evidence, identity string, err error) model.VerificationResult {
	return model.VerificationResult{
		ClaimID:     claim.ID,
		Verdict:     model.VerdictNotEnoughInfo,
		Confidence:  0.0,
		Evidence:    evidence,
		Explanation: fmt.Sprintf("Verification failed: %v", err),
		ModelVotes:  map[string]model.Verdict{identity: model.VerdictNotEnoughInfo},
	}
}

// Option configures verifiers in this package
type Option func(*settings)

type settings struct {
	threshold   float64
	weights     map[string]float64
	callTimeout time.Duration
	maxRounds   int
	critic      Critic
	onRounds    func(rounds int)
	logger      *slog.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		threshold: model.VerifiedThreshold,
		maxRounds: DefaultMaxRounds,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithThreshold sets the mean confidence below which a panel verdict becomes NOT_ENOUGH_INFO
func WithThreshold(threshold float64) Option {
	return func(s *settings) { s.threshold = threshold }
}

// WithWeights sets per-identity voting weights. Identities without a weight get 1/N.
func WithWeights(weights map[string]float64) Option {
	return func(s *settings) { s.weights = weights }
}

// WithCallTimeout bounds each judge call; exceeding it counts as a failed call
func WithCallTimeout(d time.Duration) Option {
	return func(s *settings) { s.callTimeout = d }
}

// WithMaxRounds sets the ICE round budget
func WithMaxRounds(n int) Option {
	return func(s *settings) { s.maxRounds = n }
}

// WithCritic sets the ICE critique generator
func WithCritic(c Critic) Option {
	return func(s *settings) { s.critic = c }
}

// WithRoundObserver registers a callback receiving the number of ICE rounds used per claim
func WithRoundObserver(fn func(rounds int)) Option {
	return func(s *settings) { s.onRounds = fn }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// fanOut runs call once per member concurrently and returns results indexed by
// member position, so results stay attributable to identities regardless of
// completion order.
func fanOut(ctx context.Context, members []Member, timeout time.Duration, claim model.Claim, evidence []model.Evidence,
	call func(ctx context.Context, idx int, m Member) model.VerificationResult) []model.VerificationResult {

	results := make([]model.VerificationResult, len(members))
	var wg sync.WaitGroup

	for i, m := range members {
		wg.Add(1)
		go func(idx int, m Member) {
			defer wg.Done()
			results[idx] = invoke(ctx, idx, m, timeout, claim, evidence, call)
		}(i, m)
	}

	wg.Wait()
	return results
}

// invoke runs one member call, converting panics and timeouts into fallback results
func invoke(ctx context.Context, idx int, m Member, timeout time.Duration, claim model.Claim, evidence []model.Evidence,
	call func(ctx context.Context, idx int, m Member) model.VerificationResult) model.VerificationResult {

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan model.VerificationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Fallback(claim, evidence, m.Identity, fmt.Errorf("verifier panicked: %v", r))
			}
		}()
		done <- call(callCtx, idx, m)
	}()

	select {
	case res := <-done:
		return res
	case <-callCtx.Done():
		return Fallback(claim, evidence, m.Identity, callCtx.Err())
	}
}

// tally returns the verdict with the highest accumulated weight.
// Ties go to the verdict first seen in member order.
func tally(votes []Vote, weight func(identity string) float64) model.Verdict {
	totals := make(map[model.Verdict]float64, len(votes))
	var order []model.Verdict

	for _, v := range votes {
		if _, seen := totals[v.Verdict]; !seen {
			order = append(order, v.Verdict)
		}
		totals[v.Verdict] += weight(v.Identity)
	}

	if len(order) == 0 {
		return model.VerdictNotEnoughInfo
	}

	best := order[0]
	for _, verdict := range order[1:] {
		if totals[verdict] > totals[best] {
			best = verdict
		}
	}
	return best
}

func votesFrom(members []Member, results []model.VerificationResult) []Vote {
	votes := make([]Vote, len(members))
	for i, m := range members {
		votes[i] = Vote{
			Identity:    m.Identity,
			Verdict:     results[i].Verdict,
			Confidence:  results[i].Confidence,
			Explanation: results[i].Explanation,
		}
	}
	return votes
}

func voteMap(votes []Vote) map[string]model.Verdict {
	out := make(map[string]model.Verdict, len(votes))
	for _, v := range votes {
		out[v.Identity] = v.Verdict
	}
	return out
}

func meanConfidence(results []model.VerificationResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	return sum / float64(len(results))
}
