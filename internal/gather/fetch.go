package gather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/util"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/worker"
)

// maxPageBytes caps how much of a page is read
const maxPageBytes = 2 << 20

// ErrDisallowed is returned when robots.txt forbids fetching a page
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher downloads web pages and extracts their readable text
type Fetcher struct {
	client    *http.Client
	robots    *util.RobotsChecker
	limiter   *worker.Limiter
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger
}

// FetcherConfig configures a Fetcher. Robots and Limiter are optional.
type FetcherConfig struct {
	Client    *http.Client
	Robots    *util.RobotsChecker
	Limiter   *worker.Limiter
	UserAgent string
	Timeout   time.Duration
	Logger    *slog.Logger
}

// NewFetcher creates a page fetcher
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; TruthfulnessEvaluator/0.1)"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		client:    cfg.Client,
		robots:    cfg.Robots,
		limiter:   cfg.Limiter,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}
}

// Fetch returns the readable text of the page at rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", pageURL.Scheme)
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", ErrDisallowed
		}
		if f.limiter != nil {
			f.limiter.ApplyCrawlDelay(rawURL, delay)
		}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,text/plain;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %s", resp.Status)
	}

	body := io.LimitReader(resp.Body, maxPageBytes)
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	switch {
	case mediaType == "text/plain":
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read page: %w", err)
		}
		return collapseWhitespace(string(raw)), nil
	case mediaType == "" || strings.Contains(mediaType, "html"):
		article, err := readability.FromReader(body, pageURL)
		if err != nil {
			return "", fmt.Errorf("extract readable text: %w", err)
		}
		text := collapseWhitespace(article.TextContent)
		f.logger.Debug("page fetched", "url", rawURL, "title", article.Title, "chars", len(text))
		return text, nil
	default:
		return "", fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// collapseWhitespace trims every line and drops blank ones
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
