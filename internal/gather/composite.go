package gather

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// DefaultMaxEvidence caps the combined evidence of a CompositeGatherer
const DefaultMaxEvidence = 10

// CompositeGatherer runs several gatherers concurrently and merges their evidence
type CompositeGatherer struct {
	gatherers   []Gatherer
	maxEvidence int
	logger      *slog.Logger
}

// CompositeOption configures a CompositeGatherer
type CompositeOption func(*CompositeGatherer)

// WithMaxEvidence caps the merged evidence list
func WithMaxEvidence(n int) CompositeOption {
	return func(c *CompositeGatherer) {
		if n > 0 {
			c.maxEvidence = n
		}
	}
}

// WithCompositeLogger sets the logger
func WithCompositeLogger(l *slog.Logger) CompositeOption {
	return func(c *CompositeGatherer) { c.logger = l }
}

// NewCompositeGatherer combines gatherers
func NewCompositeGatherer(gatherers []Gatherer, opts ...CompositeOption) *CompositeGatherer {
	c := &CompositeGatherer{
		gatherers:   gatherers,
		maxEvidence: DefaultMaxEvidence,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Name implements Gatherer
func (c *CompositeGatherer) Name() string {
	return "composite"
}

// Gather implements Gatherer. Failing gatherers are logged and skipped; the merged
// evidence is deduplicated by source, sorted by relevance and capped.
func (c *CompositeGatherer) Gather(ctx context.Context, claim model.Claim, gctx Context) ([]model.Evidence, error) {
	results := make([][]model.Evidence, len(c.gatherers))

	var g errgroup.Group
	for i, gatherer := range c.gatherers {
		g.Go(func() error {
			evidence, err := gatherer.Gather(ctx, claim, gctx)
			if err != nil {
				c.logger.Warn("gatherer failed", "gatherer", gatherer.Name(), "claim_id", claim.ID, "error", err)
				return nil
			}
			results[i] = evidence
			return nil
		})
	}
	_ = g.Wait()

	var all []model.Evidence
	for _, r := range results {
		all = append(all, r...)
	}
	all = dedupeBySource(all)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].RelevanceScore > all[j].RelevanceScore
	})
	if len(all) > c.maxEvidence {
		all = all[:c.maxEvidence]
	}
	return all, nil
}

// dedupeBySource keeps the first item seen for each source
func dedupeBySource(evidence []model.Evidence) []model.Evidence {
	seen := make(map[string]bool, len(evidence))
	out := evidence[:0:0]
	for _, e := range evidence {
		if seen[e.Source] {
			continue
		}
		seen[e.Source] = true
		out = append(out, e)
	}
	return out
}
