// Package gather collects evidence for claims from the web and the local filesystem.
package gather

import (
	"context"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// RootPathKey is the Context key holding the directory filesystem gatherers search
const RootPathKey = "root_path"

// Context carries per-evaluation settings to gatherers. Keys are open-ended.
type Context map[string]any

// RootPath returns the RootPathKey entry, or "" if unset
func (c Context) RootPath() string {
	s, _ := c[RootPathKey].(string)
	return s
}

// Gatherer finds evidence bearing on a claim
type Gatherer interface {
	Name() string
	Gather(ctx context.Context, claim model.Claim, gctx Context) ([]model.Evidence, error)
}

// Analyzer re-scores gathered evidence before verification
type Analyzer interface {
	Analyze(ctx context.Context, claim model.Claim, evidence []model.Evidence) ([]model.Evidence, error)
}

// NoopAnalyzer returns evidence unchanged
type NoopAnalyzer struct{}

// Analyze implements Analyzer
func (NoopAnalyzer) Analyze(_ context.Context, _ model.Claim, evidence []model.Evidence) ([]model.Evidence, error) {
	return evidence, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
