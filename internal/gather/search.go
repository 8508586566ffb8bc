package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
)

const defaultBraveEndpoint = "https://api.search.brave.com"

// SearchResult is one web search hit
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchProvider runs web searches
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// BraveProvider queries the Brave Search web API
type BraveProvider struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

type braveWebSearchResponse struct {
	Web struct {
		Results []SearchResult `json:"results"`
	} `json:"web"`
}

var markupTag = regexp.MustCompile(`<[^>]+>`)

// NewBraveProvider creates a Brave Search client. An empty apiURL uses the public endpoint.
func NewBraveProvider(apiKey, apiURL string, httpClient *http.Client, logger *slog.Logger) *BraveProvider {
	if apiURL == "" {
		apiURL = defaultBraveEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BraveProvider{
		apiKey:     apiKey,
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name returns the provider name
func (b *BraveProvider) Name() string {
	return "brave"
}

// Search returns up to limit results (1..20) for query
func (b *BraveProvider) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 20 {
		limit = 20
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiURL+"/res/v1/web/search", nil)
	if err != nil {
		return nil, fmt.Errorf("create brave search request: %w", err)
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("count", strconv.Itoa(limit))
	req.URL.RawQuery = values.Encode()
	req.Header.Set("X-Subscription-Token", b.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error("brave web search request failed", "error", err)
		return nil, fmt.Errorf("brave web search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave web search request failed: status %s", resp.Status)
	}

	var body braveWebSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode brave web search response: %w", err)
	}

	results := make([]SearchResult, 0, limit)
	for _, r := range body.Web.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:       cleanSnippet(r.Title),
			URL:         r.URL,
			Description: cleanSnippet(r.Description),
		})
		if len(results) == limit {
			break
		}
	}

	b.logger.Debug("brave search complete", "query", query, "results", len(results))
	return results, nil
}

// cleanSnippet drops the highlight markup Brave puts in titles and descriptions
func cleanSnippet(s string) string {
	return strings.TrimSpace(html.UnescapeString(markupTag.ReplaceAllString(s, "")))
}

// CachedSearch memoizes another provider's results
type CachedSearch struct {
	next  SearchProvider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedSearch wraps next with c. A nil cache disables memoization.
func NewCachedSearch(next SearchProvider, c cache.Cache, ttl time.Duration) *CachedSearch {
	if c == nil {
		c = cache.Noop{}
	}
	return &CachedSearch{next: next, cache: c, ttl: ttl}
}

// Name returns the wrapped provider's name
func (s *CachedSearch) Name() string {
	return s.next.Name()
}

// Search implements SearchProvider
func (s *CachedSearch) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	key := cache.Key("search", s.next.Name(), query, strconv.Itoa(limit))
	if raw, ok := s.cache.Get(ctx, key); ok {
		var results []SearchResult
		if err := json.Unmarshal(raw, &results); err == nil {
			return results, nil
		}
	}

	results, err := s.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(results); err == nil {
		_ = s.cache.Set(ctx, key, raw, s.ttl)
	}
	return results, nil
}
