// Package cache keeps compiled responses in Redis so repeated criteria skip
// the compiler. Values are zstd-compressed; lookups for the same key are
// collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/resilience"
)

const keyPrefix = "compile:"

// Store is the subset of the Redis client the cache needs. A missing key
// must be reported with an error recognised by pkgredis.IsNilError.
type Store interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one compile request. Criteria must be the exact string
// handed to the compiler: spacing changes the auto CONTÉM decision.
// FieldsVersion changes whenever the field map is reloaded so grouped
// results never outlive their fields.
type Key struct {
	Endpoint      string
	Criteria      string
	Field         string
	RawSuffix     string
	Highlight     bool
	FieldsVersion uint64
}

func (k Key) String() string {
	raw := strings.Join([]string{
		k.Endpoint,
		k.Criteria,
		k.Field,
		k.RawSuffix,
		strconv.FormatBool(k.Highlight),
		strconv.FormatUint(k.FieldsVersion, 10),
	}, "\x00")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

type CompileCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) (*CompileCache, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}
	c := &CompileCache{
		store:   store,
		ttl:     ttl,
		enc:     enc,
		dec:     dec,
		metrics: m,
		logger:  slog.Default().With("component", "compile-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     15 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c, nil
}

// Get returns the cached response for key. Store failures and corrupt
// entries count as misses.
func (c *CompileCache) Get(ctx context.Context, key Key) ([]byte, bool) {
	k := key.String()
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.GetBytes(ctx, k)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	if data == nil {
		c.miss()
		return nil, false
	}
	body, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		c.logger.Error("cache decode failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "key", k)
	return body, true
}

func (c *CompileCache) Set(ctx context.Context, key Key, body []byte) {
	k := key.String()
	data := c.enc.EncodeAll(body, make([]byte, 0, len(body)/2))
	err := c.breaker.Execute(func() error {
		return c.store.Set(ctx, k, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached response for key or calls compute and
// stores its result. Errors from compute are returned and never cached.
// The bool reports whether the response came from the cache.
func (c *CompileCache) GetOrCompute(ctx context.Context, key Key, compute func() ([]byte, error)) ([]byte, bool, error) {
	if body, ok := c.Get(ctx, key); ok {
		return body, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (interface{}, error) {
		body, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, body)
		return body, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate drops every cached response.
func (c *CompileCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating compile cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *CompileCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CompileCache) Close() {
	c.enc.Close()
	c.dec.Close()
}

func (c *CompileCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *CompileCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
