package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/platemap/internal/domain/library"
	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/pkg/errors"
)

// CacheName labels reaction cache lookups in metrics.
const CacheName = "reaction"

var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

// Oracle is the wrapped reaction oracle. Name identifies its template set and
// is part of every cache key, so results from different chemistry never mix.
type Oracle interface {
	library.Oracle
	Name() string
}

// CacheMetrics receives hit/miss counts.
type CacheMetrics interface {
	RecordCacheAccess(cache string, hit bool)
}

// ReactionCache memoizes Oracle.React in Redis. Validate and
// CombineDisconnected are pure and pass straight through. A Redis failure is
// logged and the inner oracle answers instead, so enumeration results never
// depend on cache health.
type ReactionCache struct {
	inner   Oracle
	client  *Client
	logger  logging.Logger
	metrics CacheMetrics
	prefix  string
	ttl     time.Duration
	group   singleflight.Group
}

type ReactionCacheOption func(*ReactionCache)

func WithPrefix(prefix string) ReactionCacheOption {
	return func(c *ReactionCache) { c.prefix = prefix }
}

// WithTTL sets the entry lifetime. Zero keeps entries forever.
func WithTTL(ttl time.Duration) ReactionCacheOption {
	return func(c *ReactionCache) { c.ttl = ttl }
}

func WithMetrics(m CacheMetrics) ReactionCacheOption {
	return func(c *ReactionCache) { c.metrics = m }
}

func NewReactionCache(inner Oracle, client *Client, log logging.Logger, opts ...ReactionCacheOption) *ReactionCache {
	c := &ReactionCache{
		inner:  inner,
		client: client,
		logger: logging.OrNop(log),
		prefix: "platemap:rxn:",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the Redis key for the pair (a, b).
func (c *ReactionCache) Key(a, b string) string {
	h := sha256.New()
	h.Write([]byte(c.inner.Name()))
	h.Write([]byte{0})
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

func (c *ReactionCache) React(ctx context.Context, a, b string) ([]string, error) {
	key := c.Key(a, b)

	candidates, err := c.lookup(ctx, key)
	switch {
	case err == nil:
		c.record(true)
		return candidates, nil
	case !errors.IsCode(err, errors.ErrCodeNotFound):
		c.logger.Warn("reaction cache lookup failed", logging.String("key", key), logging.Err(err))
	}
	c.record(false)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		out, err := c.inner.React(ctx, a, b)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	// Copy so concurrent callers sharing a flight cannot alias each other.
	shared := v.([]string)
	out := make([]string, len(shared))
	copy(out, shared)
	return out, nil
}

func (c *ReactionCache) Validate(structure string) bool {
	return c.inner.Validate(structure)
}

func (c *ReactionCache) CombineDisconnected(a, b string) string {
	return c.inner.CombineDisconnected(a, b)
}

func (c *ReactionCache) Name() string { return c.inner.Name() }

func (c *ReactionCache) lookup(ctx context.Context, key string) ([]string, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	}
	var candidates []string
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt reaction cache entry")
	}
	return candidates, nil
}

func (c *ReactionCache) store(ctx context.Context, key string, candidates []string) {
	if candidates == nil {
		candidates = []string{}
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		c.logger.Warn("reaction cache encode failed", logging.Err(err))
		return
	}
	if err := c.client.Set(ctx, key, data, jitterTTL(c.ttl)).Err(); err != nil {
		c.logger.Warn("reaction cache store failed", logging.String("key", key), logging.Err(err))
	}
}

func (c *ReactionCache) record(hit bool) {
	if c.metrics != nil {
		c.metrics.RecordCacheAccess(CacheName, hit)
	}
}

// jitterTTL spreads expiries by +/- 10%.
func jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

//Personal.AI order the ending
