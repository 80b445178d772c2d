package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"walletverify/internal/wallet/metrics"
	"walletverify/internal/wallet/models"
)

const cacheKeyPrefix = "walletverify:oracle:"

// Cached serves anchored readings from Redis for ttl. Absent readings and
// errors are never cached, so a newly anchored fingerprint is seen on the
// next read. A Redis failure falls through to the next reader.
//
// A hit is marked Reading.Cached. It can be stale when the ledger entry was
// replaced within ttl; callers that act on a hit confirm it with a read under
// WithFreshRead, which skips the lookup and overwrites or drops the entry.
type Cached struct {
	next    Reader
	client  redis.Cmdable
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*Cached)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cached) { c.logger = logger }
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *Cached) { c.metrics = m }
}

func NewCached(next Reader, client redis.Cmdable, ttl time.Duration, opts ...CacheOption) *Cached {
	c := &Cached{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cachedReading struct {
	Fingerprint string    `json:"fingerprint"`
	CachedAt    time.Time `json:"cached_at"`
}

func cacheKey(address models.Address) string {
	return cacheKeyPrefix + address.String()
}

func (c *Cached) ReadFingerprint(ctx context.Context, address models.Address) (Reading, error) {
	key := cacheKey(address)
	if IsFreshRead(ctx) {
		c.metrics.IncCache("bypass")
		return c.refresh(ctx, address)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cr cachedReading
		if jsonErr := json.Unmarshal(raw, &cr); jsonErr == nil && cr.Fingerprint != "" {
			c.metrics.IncCache("hit")
			return Reading{Fingerprint: cr.Fingerprint, Anchored: true, Cached: true}, nil
		}
		c.metrics.IncCache("error")
		c.logger.WarnContext(ctx, "discarding corrupt oracle cache entry", "address", address.String())
	case errors.Is(err, redis.Nil):
		c.metrics.IncCache("miss")
	default:
		c.metrics.IncCache("error")
		c.logger.WarnContext(ctx, "oracle cache read failed", "error", err)
	}

	reading, err := c.next.ReadFingerprint(ctx, address)
	if err != nil || !reading.Anchored {
		return reading, err
	}
	c.store(ctx, address, reading)
	return reading, nil
}

// refresh reads the ledger and replaces whatever is cached for address. An
// absent reading drops the entry; an error leaves it alone.
func (c *Cached) refresh(ctx context.Context, address models.Address) (Reading, error) {
	reading, err := c.next.ReadFingerprint(ctx, address)
	if err != nil {
		return reading, err
	}
	if !reading.Anchored {
		if delErr := c.Invalidate(ctx, address); delErr != nil {
			c.logger.WarnContext(ctx, "oracle cache delete failed", "error", delErr)
		}
		return reading, nil
	}
	c.store(ctx, address, reading)
	return reading, nil
}

func (c *Cached) store(ctx context.Context, address models.Address, reading Reading) {
	payload, err := json.Marshal(cachedReading{Fingerprint: reading.Fingerprint, CachedAt: time.Now().UTC()})
	if err == nil {
		err = c.client.Set(ctx, cacheKey(address), payload, c.ttl).Err()
	}
	if err != nil {
		c.logger.WarnContext(ctx, "oracle cache write failed", "error", err)
	}
}

// Invalidate drops the cached reading for address. Registration calls it so
// a re-registered claim is compared with the ledger, not a cached answer.
func (c *Cached) Invalidate(ctx context.Context, address models.Address) error {
	return c.client.Del(ctx, cacheKey(address)).Err()
}
