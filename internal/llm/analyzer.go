package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

const (
	// analyzedEvidence is how many leading evidence items are sent for analysis
	analyzedEvidence = 5
	// analysisContentLimit truncates each item's content in the analysis prompt
	analysisContentLimit = 800
)

// EvidenceAnalyzer asks a model to score evidence relevance, stance and credibility.
// It implements gather.Analyzer.
type EvidenceAnalyzer struct {
	provider Provider
	model    string
	opts     options
}

type analysisReply struct {
	EvidenceAnalysis []struct {
		Index       int     `json:"index"`
		Relevance   float64 `json:"relevance"`
		Supports    *bool   `json:"supports"`
		Credibility float64 `json:"credibility"`
		Reasoning   string  `json:"reasoning"`
	} `json:"evidence_analysis"`
	Summary string `json:"summary"`
}

// NewEvidenceAnalyzer creates a model-backed evidence analyzer
func NewEvidenceAnalyzer(provider Provider, modelName string, opts ...Option) *EvidenceAnalyzer {
	return &EvidenceAnalyzer{provider: provider, model: modelName, opts: newOptions(opts, DefaultRetryConfig())}
}

// Analyze returns a re-scored copy of evidence sorted by relevance.
// On failure the evidence is returned unchanged.
func (a *EvidenceAnalyzer) Analyze(ctx context.Context, claim model.Claim, evidence []model.Evidence) ([]model.Evidence, error) {
	if len(evidence) == 0 {
		return evidence, nil
	}

	n := min(len(evidence), analyzedEvidence)
	parts := make([]string, 0, n)
	for i, e := range evidence[:n] {
		parts = append(parts, fmt.Sprintf("[%d] Source: %s\nType: %s\nContent: %s",
			i, e.Source, e.SourceType, truncateRunes(e.Content, analysisContentLimit)))
	}

	resp, err := completeWithRetry(ctx, a.provider, CompletionRequest{
		System: analysisSystem,
		Prompt: fmt.Sprintf(analysisUser, claim.Text, strings.Join(parts, "\n\n---\n\n")),
		Model:  a.model,
		JSON:   true,
	}, a.opts.retry)
	if err != nil {
		a.opts.logger.Warn("evidence analysis failed", "claim_id", claim.ID, "error", err)
		return evidence, nil
	}

	var reply analysisReply
	if err := decodeReply(resp.Text, &reply); err != nil {
		a.opts.logger.Warn("evidence analysis reply unreadable", "claim_id", claim.ID, "error", err)
		return evidence, nil
	}

	out := make([]model.Evidence, len(evidence))
	copy(out, evidence)
	// Only items shown to the model may be re-scored
	for _, item := range reply.EvidenceAnalysis {
		if item.Index < 0 || item.Index >= n {
			continue
		}
		out[item.Index].RelevanceScore = model.Clamp01(item.Relevance)
		out[item.Index].SupportsClaim = item.Supports
		out[item.Index].CredibilityScore = model.Clamp01(item.Credibility)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})

	a.opts.logger.Debug("evidence analyzed", "claim_id", claim.ID, "items", len(reply.EvidenceAnalysis), "summary", reply.Summary)
	return out, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
