package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
)

// Critic moderates ICE rounds: it writes one critique per panel member. It implements verify.Critic.
type Critic struct {
	provider Provider
	model    string
	opts     options
}

// NewCritic creates a critic backed by provider, asking for modelName
func NewCritic(provider Provider, modelName string, opts ...Option) *Critic {
	return &Critic{provider: provider, model: modelName, opts: newOptions(opts, DefaultRetryConfig())}
}

// Critique implements verify.Critic. Critiques are requested concurrently; any failure fails the round.
func (c *Critic) Critique(ctx context.Context, req verify.CritiqueRequest) (map[string]string, error) {
	evidence := verify.FormatEvidence(req.Evidence)

	var mu sync.Mutex
	out := make(map[string]string, len(req.Votes))

	g, gctx := errgroup.WithContext(ctx)
	for _, vote := range req.Votes {
		g.Go(func() error {
			prompt := fmt.Sprintf(critiqueUser,
				req.Claim.Text,
				vote.Identity, vote.Verdict, vote.Confidence, oneLine(vote.Explanation),
				otherVotes(req.Votes, vote.Identity),
				evidence,
				vote.Identity,
			)

			resp, err := completeWithRetry(gctx, c.provider, CompletionRequest{
				System: critiqueSystem,
				Prompt: prompt,
				Model:  c.model,
			}, c.opts.retry)
			if err != nil {
				return fmt.Errorf("critique for %s: %w", vote.Identity, err)
			}

			mu.Lock()
			out[vote.Identity] = strings.TrimSpace(resp.Text)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func otherVotes(votes []verify.Vote, self string) string {
	var b strings.Builder
	for _, v := range votes {
		if v.Identity == self {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (confidence: %.2f) %s\n", v.Identity, v.Verdict, v.Confidence, oneLine(v.Explanation))
	}
	if b.Len() == 0 {
		return "(none)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, 400)
}
