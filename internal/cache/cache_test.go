package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/model"
)

func TestKey(t *testing.T) {
	a := Key("judge", "gpt-4o", "claim", "evidence")
	b := Key("judge", "gpt-4o", "claim", "evidence")
	c := Key("judge", "gpt-4o", "claimevidence")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "parts are separated before hashing")
	assert.True(t, strings.HasPrefix(a, "truth:v1:judge:"))
	assert.NotEqual(t, a, Key("search", "gpt-4o", "claim", "evidence"))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "cache")
	c := NewDiskCache(dir, time.Hour)

	key := Key("search", "water boils")
	require.NoError(t, c.Set(ctx, key, []byte(`{"results":[]}`), 0))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `{"results":[]}`, string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), ":")

	require.NoError(t, c.Delete(ctx, key))
	require.NoError(t, c.Delete(ctx, key), "deleting a missing key is fine")
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestDiskCache_ExpiredAndCorruptEntries(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, c.Set(ctx, "old", []byte("v"), time.Nanosecond))
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Get(ctx, "old")
	assert.False(t, ok)
	assert.NoFileExists(t, c.path("old"))

	require.NoError(t, os.WriteFile(c.path("bad"), []byte("not json"), 0o644))
	_, ok = c.Get(ctx, "bad")
	assert.False(t, ok)
}

func TestLayeredCache_PromotesBackHits(t *testing.T) {
	ctx := context.Background()
	front := NewMemoryCache(time.Minute, time.Minute)
	back := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayered(front, back)

	require.NoError(t, back.Set(ctx, "k", []byte("disk"), 0))

	_, inFront := front.Get(ctx, "k")
	require.False(t, inFront)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "disk", string(got))

	promoted, inFront := front.Get(ctx, "k")
	require.True(t, inFront)
	assert.Equal(t, "disk", string(promoted))
}

func TestLayeredCache_SetWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	c := NewLayeredCache(time.Minute, t.TempDir(), time.Hour)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, ok := c.front.Get(ctx, "k")
	assert.True(t, ok)
	_, ok = c.back.Get(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, c.Delete(ctx, "k"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	cfg := model.DefaultConfig().Cache
	cfg.Dir = t.TempDir()

	for _, tc := range []struct {
		backend string
		want    any
	}{
		{"memory", &MemoryCache{}},
		{"disk", &DiskCache{}},
		{"layered", &LayeredCache{}},
	} {
		t.Run(tc.backend, func(t *testing.T) {
			cfg.Backend = tc.backend
			c, err := New(cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, tc.want, c)
		})
	}

	cfg.Enabled = false
	c, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, c)

	cfg.Enabled = true
	cfg.Backend = "etcd"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TRUTH_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TRUTH_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(RedisConfig{Addr: addr, TTL: time.Minute, Prefix: "truth:test:"})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "truth:test:k", []byte("v"), 0))
	got, ok := c.Get(ctx, "truth:test:k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	require.NoError(t, c.Clear(ctx))
	_, ok = c.Get(ctx, "truth:test:k")
	assert.False(t, ok)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
