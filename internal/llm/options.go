package llm

import (
	"log/slog"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/cache"
)

// Option configures the model-backed components in this package
type Option func(*options)

type options struct {
	cache    cache.Cache
	cacheTTL time.Duration
	retry    RetryConfig
	logger   *slog.Logger
}

func newOptions(opts []Option, retry RetryConfig) options {
	o := options{
		cache:    cache.Noop{},
		cacheTTL: 24 * time.Hour,
		retry:    retry,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithCache stores replies in c for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
		if ttl > 0 {
			o.cacheTTL = ttl
		}
	}
}

// WithRetry overrides the retry policy for transient provider errors
func WithRetry(cfg RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}
