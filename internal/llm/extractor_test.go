package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

const extractionDoc = "Intro text. Go 1.0 was released in March 2012. The gopher is blue."

func TestClaimExtractor_Extract(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"claims": [
		{"text": "Go 1.0 was released in March 2012.", "claim_type": "explicit"},
		{"text": "  ", "claim_type": "explicit"},
		{"text": "The gopher is blue.", "claim_type": "opinion"},
		{"text": "The language is popular", "claim_type": "Implicit"}
	]}`}}
	e := NewClaimExtractor(p, "gpt-4o-mini")

	claims, err := e.Extract(context.Background(), extractionDoc, "README.md", 0)
	require.NoError(t, err)
	require.Len(t, claims, 3)

	assert.Equal(t, "claim_000", claims[0].ID)
	assert.Equal(t, "README.md", claims[0].SourceDocument)
	require.NotNil(t, claims[0].SourceSpan)
	assert.Equal(t, "Go 1.0 was released in March 2012.", extractionDoc[claims[0].SourceSpan.Start:claims[0].SourceSpan.End])
	assert.NotEmpty(t, claims[0].Context)

	// IDs follow the reply index, so the blank entry leaves a gap
	assert.Equal(t, "claim_002", claims[1].ID)
	assert.Equal(t, model.ClaimTypeExplicit, claims[1].ClaimType)

	assert.Equal(t, model.ClaimTypeImplicit, claims[2].ClaimType)
	assert.Nil(t, claims[2].SourceSpan)

	req := p.lastRequest()
	assert.True(t, req.JSON)
	assert.Contains(t, req.Prompt, extractionDoc)
}

func TestClaimExtractor_MaxClaims(t *testing.T) {
	p := &fakeProvider{replies: []string{`{"claims": [{"text": "a one"}, {"text": "b two"}, {"text": "c three"}]}`}}
	e := NewClaimExtractor(p, "gpt-4o-mini")

	claims, err := e.Extract(context.Background(), "doc", "doc.md", 2)
	require.NoError(t, err)
	assert.Len(t, claims, 2)
}

func TestClaimExtractor_CachesReplies(t *testing.T) {
	p := &fakeProvider{replies: []string{
		`{"claims": [{"text": "a one"}, {"text": "b two"}, {"text": "c three"}]}`,
		`{"claims": [{"text": "d four"}]}`,
	}}
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	e := NewClaimExtractor(p, "gpt-4o-mini", WithCache(mem, time.Hour))

	all, err := e.Extract(context.Background(), "doc", "doc.md", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Cached reply still honours a smaller cap
	capped, err := e.Extract(context.Background(), "doc", "other.md", 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, "other.md", capped[0].SourceDocument)
	assert.Equal(t, 1, p.calls())

	changed, err := e.Extract(context.Background(), "doc, edited", "doc.md", 0)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, 2, p.calls())
}

func TestClaimExtractor_DoesNotCacheUnreadableReplies(t *testing.T) {
	p := &fakeProvider{replies: []string{"no claims here", `{"claims": [{"text": "a one"}]}`}}
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	e := NewClaimExtractor(p, "gpt-4o-mini", WithCache(mem, time.Hour))

	claims, err := e.Extract(context.Background(), "doc", "doc.md", 0)
	require.NoError(t, err)
	assert.Empty(t, claims)
	assert.Equal(t, 0, mem.Len())

	claims, err = e.Extract(context.Background(), "doc", "doc.md", 0)
	require.NoError(t, err)
	assert.Len(t, claims, 1)
}

func TestClaimExtractor_FailureYieldsNoClaims(t *testing.T) {
	tests := []struct {
		name string
		p    *fakeProvider
	}{
		{"fatal provider error", &fakeProvider{errs: []error{NewFatalError(errors.New("bad key"))}}},
		{"unreadable reply", &fakeProvider{replies: []string{"no claims here"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewClaimExtractor(tt.p, "gpt-4o-mini")
			claims, err := e.Extract(context.Background(), extractionDoc, "README.md", 0)
			require.NoError(t, err)
			assert.NotNil(t, claims)
			assert.Empty(t, claims)
		})
	}
}

func TestClaimExtractor_RetriesTransientErrors(t *testing.T) {
	p := &fakeProvider{
		errs:    []error{NewTransientError(errors.New("503"))},
		replies: []string{`{"claims": []}`, `{"claims": [{"text": "The gopher is blue."}]}`},
	}
	e := NewClaimExtractor(p, "gpt-4o-mini", fastRetry())

	claims, err := e.Extract(context.Background(), extractionDoc, "README.md", 0)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, 2, p.calls())
}
