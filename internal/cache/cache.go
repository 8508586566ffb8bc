package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

// Cache defines the interface for caching model replies and search results
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Key builds a namespaced cache key from hashed parts
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "truth:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache selected by cfg. A disabled cache is a Noop.
func New(cfg model.CacheConfig, logger *slog.Logger) (Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return Noop{}, nil
	}

	switch cfg.Backend {
	case "memory":
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, cfg.DiskTTL), nil
	case "layered", "":
		return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL), nil
	case "redis":
		rc, err := NewRedisCache(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.DiskTTL,
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("redis cache connected", "addr", cfg.RedisAddr)
		// Keep a process-local memory layer in front of the shared store
		return &LayeredCache{front: NewMemoryCache(cfg.MemoryTTL, 10*time.Minute), back: rc}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error { return nil }
func (Noop) Clear(context.Context) error { return nil }
