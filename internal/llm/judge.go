package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/verify"
)

// Judge asks one model for a verdict on a claim. It implements verify.Judge.
// Judge calls are never retried; a failed call becomes a NOT_ENOUGH_INFO vote upstream.
type Judge struct {
	provider Provider
	model    string
	opts     options
}

// NewJudge creates a judge backed by provider, asking for modelName
func NewJudge(provider Provider, modelName string, opts ...Option) *Judge {
	return &Judge{provider: provider, model: modelName, opts: newOptions(opts, NoRetry())}
}

// Model returns the model the judge asks
func (j *Judge) Model() string {
	return j.model
}

// Judge implements verify.Judge
func (j *Judge) Judge(ctx context.Context, req verify.JudgeRequest) (*verify.Judgment, error) {
	key := cache.Key("judge", j.model, req.ClaimText, req.EvidenceText)
	if raw, ok := j.opts.cache.Get(ctx, key); ok {
		var cached verify.Judgment
		if err := json.Unmarshal(raw, &cached); err == nil {
			j.opts.logger.Debug("judge cache hit", "model", j.model)
			return &cached, nil
		}
	}

	resp, err := j.provider.Complete(ctx, CompletionRequest{
		System: verificationSystem,
		Prompt: fmt.Sprintf(verificationUser, req.ClaimText, req.EvidenceText),
		Model:  j.model,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}

	var judgment verify.Judgment
	if err := decodeReply(resp.Text, &judgment); err != nil {
		return nil, fmt.Errorf("judge %s: %w", j.model, err)
	}

	if raw, err := json.Marshal(judgment); err == nil {
		if err := j.opts.cache.Set(ctx, key, raw, j.opts.cacheTTL); err != nil {
			j.opts.logger.Warn("judge cache write failed", "model", j.model, "error", err)
		}
	}
	return &judgment, nil
}
