package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/extract"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// ClaimExtractor asks a model to list the factual claims in a document. It implements extract.Extractor.
type ClaimExtractor struct {
	provider Provider
	model    string
	opts     options
}

type extractionReply struct {
	Claims []struct {
		Text      string `json:"text"`
		ClaimType string `json:"claim_type"`
	} `json:"claims"`
}

// NewClaimExtractor creates a model-backed claim extractor
func NewClaimExtractor(provider Provider, modelName string, opts ...Option) *ClaimExtractor {
	return &ClaimExtractor{provider: provider, model: modelName, opts: newOptions(opts, DefaultRetryConfig())}
}

// Extract implements extract.Extractor. Model failures yield no claims and a warning, not an error.
// Readable replies are cached per model and document; maxClaims applies after the cache.
func (e *ClaimExtractor) Extract(ctx context.Context, document, sourcePath string, maxClaims int) ([]model.Claim, error) {
	reply, ok := e.reply(ctx, document, sourcePath)
	if !ok {
		return []model.Claim{}, nil
	}

	claims := make([]model.Claim, 0, len(reply.Claims))
	for i, extracted := range reply.Claims {
		if maxClaims > 0 && i >= maxClaims {
			break
		}
		text := strings.TrimSpace(extracted.Text)
		if text == "" {
			continue
		}

		span, around := extract.Locate(document, text)
		claims = append(claims, model.Claim{
			ID:             model.ClaimID(i),
			Text:           text,
			SourceDocument: sourcePath,
			SourceSpan:     span,
			Context:        around,
			ClaimType:      model.ParseClaimType(extracted.ClaimType),
		})
	}

	e.opts.logger.Debug("claims extracted", "model", e.model, "source", sourcePath, "count", len(claims))
	return claims, nil
}

func (e *ClaimExtractor) reply(ctx context.Context, document, sourcePath string) (extractionReply, bool) {
	var reply extractionReply
	key := cache.Key("extract", e.model, document)
	if raw, ok := e.opts.cache.Get(ctx, key); ok {
		if err := json.Unmarshal(raw, &reply); err == nil {
			e.opts.logger.Debug("extraction cache hit", "model", e.model, "source", sourcePath)
			return reply, true
		}
	}

	resp, err := completeWithRetry(ctx, e.provider, CompletionRequest{
		System: extractionSystem,
		Prompt: fmt.Sprintf(extractionUser, document),
		Model:  e.model,
		JSON:   true,
	}, e.opts.retry)
	if err != nil {
		e.opts.logger.Warn("claim extraction failed", "model", e.model, "source", sourcePath, "error", err)
		return reply, false
	}
	if err := decodeReply(resp.Text, &reply); err != nil {
		e.opts.logger.Warn("claim extraction reply unreadable", "model", e.model, "source", sourcePath, "error", err)
		return reply, false
	}

	if raw, err := json.Marshal(reply); err == nil {
		if err := e.opts.cache.Set(ctx, key, raw, e.opts.cacheTTL); err != nil {
			e.opts.logger.Warn("extraction cache write failed", "model", e.model, "error", err)
		}
	}
	return reply, true
}
