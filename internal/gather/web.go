package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

const (
	// WebContentLimit caps web evidence content
	WebContentLimit = 1500
	// WebRelevance is the relevance assigned to web results before analysis
	WebRelevance = 0.6
)

// WebGatherer searches the web for a claim and optionally fetches the result pages
type WebGatherer struct {
	search     SearchProvider
	fetcher    *Fetcher
	maxResults int
	authority  *AuthorityClassifier
	logger     *slog.Logger
}

// NewWebGatherer creates a web gatherer. A nil fetcher keeps search snippets only.
func NewWebGatherer(search SearchProvider, fetcher *Fetcher, maxResults int, logger *slog.Logger) *WebGatherer {
	if maxResults <= 0 {
		maxResults = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebGatherer{
		search:     search,
		fetcher:    fetcher,
		maxResults: maxResults,
		authority:  NewAuthorityClassifier(nil),
		logger:     logger,
	}
}

// WithAuthority replaces the classifier that seeds evidence credibility from the source domain
func (w *WebGatherer) WithAuthority(a *AuthorityClassifier) *WebGatherer {
	if a != nil {
		w.authority = a
	}
	return w
}

// Name implements Gatherer
func (w *WebGatherer) Name() string {
	return "web"
}

// Gather implements Gatherer. Pages that fail to fetch fall back to their search snippet.
func (w *WebGatherer) Gather(ctx context.Context, claim model.Claim, _ Context) ([]model.Evidence, error) {
	results, err := w.search.Search(ctx, claim.Text, w.maxResults)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if len(results) > w.maxResults {
		results = results[:w.maxResults]
	}

	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = snippet(r)
	}

	if w.fetcher != nil {
		var g errgroup.Group
		for i, r := range results {
			g.Go(func() error {
				text, err := w.fetcher.Fetch(ctx, r.URL)
				if err != nil {
					w.logger.Debug("page fetch failed, using snippet", "url", r.URL, "error", err)
					return nil
				}
				if text != "" {
					contents[i] = joinNonEmpty(r.Title, text)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	evidence := make([]model.Evidence, 0, len(results))
	for i, r := range results {
		if contents[i] == "" {
			continue
		}
		ev := model.NewEvidence(r.URL, model.SourceWeb, truncateRunes(contents[i], WebContentLimit), WebRelevance)
		ev.CredibilityScore = w.authority.Credibility(r.URL)
		evidence = append(evidence, ev)
	}

	w.logger.Debug("web evidence gathered", "claim_id", claim.ID, "items", len(evidence))
	return evidence, nil
}

func snippet(r SearchResult) string {
	return joinNonEmpty(r.Title, r.Description)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
