package gather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
)

func TestBraveProvider_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/res/v1/web/search", r.URL.Path)
		assert.Equal(t, "brave-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "Eiffel Tower height", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("count"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web": {"results": [
			{"title": "The <strong>Eiffel Tower</strong>", "url": "https://example.com/eiffel", "description": "It is 330 m &amp; made of iron."},
			{"title": "no url", "url": "", "description": "skipped"},
			{"title": "Paris", "url": "https://example.com/paris", "description": "Capital of France"},
			{"title": "Extra", "url": "https://example.com/extra", "description": "over the limit"}
		]}}`))
	}))
	defer server.Close()

	p := NewBraveProvider("brave-key", server.URL+"/", server.Client(), nil)
	results, err := p.Search(context.Background(), "Eiffel Tower height", 2)
	require.NoError(t, err)

	assert.Equal(t, []SearchResult{
		{Title: "The Eiffel Tower", URL: "https://example.com/eiffel", Description: "It is 330 m & made of iron."},
		{Title: "Paris", URL: "https://example.com/paris", Description: "Capital of France"},
	}, results)
	assert.Equal(t, "brave", p.Name())
}

func TestBraveProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewBraveProvider("bad", server.URL, server.Client(), nil)
	_, err := p.Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

type countingSearch struct {
	calls   atomic.Int32
	results []SearchResult
	err     error
}

func (c *countingSearch) Name() string { return "counting" }

func (c *countingSearch) Search(_ context.Context, _ string, limit int) ([]SearchResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.results[:min(limit, len(c.results))], nil
}

func TestCachedSearch(t *testing.T) {
	next := &countingSearch{results: []SearchResult{{Title: "a", URL: "https://a.example"}, {Title: "b", URL: "https://b.example"}}}
	s := NewCachedSearch(next, cache.NewMemoryCache(time.Minute, time.Minute), time.Hour)
	ctx := context.Background()

	first, err := s.Search(ctx, "query", 2)
	require.NoError(t, err)
	second, err := s.Search(ctx, "query", 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.calls.Load())

	// The limit is part of the key
	third, err := s.Search(ctx, "query", 1)
	require.NoError(t, err)
	assert.Len(t, third, 1)
	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, "counting", s.Name())
}

func TestCachedSearch_NilCache(t *testing.T) {
	next := &countingSearch{results: []SearchResult{{URL: "https://a.example"}}}
	s := NewCachedSearch(next, nil, time.Hour)

	_, _ = s.Search(context.Background(), "q", 1)
	_, _ = s.Search(context.Background(), "q", 1)
	assert.Equal(t, int32(2), next.calls.Load())
}
