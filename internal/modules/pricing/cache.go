// README: Rate table cache; refreshes active rates after a TTL and keeps the last good copy on failure.
package pricing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"convoyage/internal/logging"
)

const DefaultRateTTL = 5 * time.Minute

// RateSource loads active rates ordered by customer type then distance_min_km.
type RateSource interface {
	ActiveRates(ctx context.Context) ([]Rate, error)
}

// Observer receives pricing events that are otherwise absorbed silently.
type Observer interface {
	RateFetch(err error, count int, elapsed time.Duration)
	RateResolved(customerType CustomerType, source Source)
}

type nopObserver struct{}

func (nopObserver) RateFetch(error, int, time.Duration) {}
func (nopObserver) RateResolved(CustomerType, Source) {}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(o Observer) CacheOption {
	return func(c *Cache) {
		if o != nil {
			c.observer = o
		}
	}
}

type Cache struct {
	source   RateSource
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
	observer Observer

	mu        sync.RWMutex
	rates     []Rate
	fetchedAt time.Time
	loaded    bool

	flight singleflight.Group
}

func NewCache(source RateSource, opts ...CacheOption) *Cache {
	c := &Cache{
		source:   source,
		ttl:      DefaultRateTTL,
		now:      time.Now,
		logger:   logging.Discard(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rates returns the cached rates, refetching once they are TTL old. A failed fetch
// leaves cache and timestamp untouched and returns the previous contents.
func (c *Cache) Rates(ctx context.Context) []Rate {
	if rates, ok := c.fresh(); ok {
		return rates
	}
	v, _, _ := c.flight.Do("rates", func() (any, error) {
		if rates, ok := c.fresh(); ok {
			return rates, nil
		}
		return c.refresh(ctx), nil
	})
	return cloneRates(v.([]Rate))
}

// Snapshot returns the last known rates without fetching.
func (c *Cache) Snapshot() []Rate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneRates(c.rates)
}

// FetchedAt reports when the cache was last replaced and whether it ever was.
func (c *Cache) FetchedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt, c.loaded
}

func (c *Cache) fresh() ([]Rate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return cloneRates(c.rates), true
}

func (c *Cache) refresh(ctx context.Context) []Rate {
	start := time.Now()
	rates, err := c.source.ActiveRates(ctx)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("rate fetch failed, keeping previous rates", "error", err)
		c.observer.RateFetch(err, 0, elapsed)
		return c.Snapshot()
	}

	for _, o := range FindOverlaps(rates) {
		c.logger.Warn("overlapping active rate tiers, first match wins",
			"customer_type", o.A.CustomerType,
			"first_id", o.A.ID,
			"second_id", o.B.ID,
		)
	}

	c.mu.Lock()
	c.rates = cloneRates(rates)
	c.fetchedAt = c.now()
	c.loaded = true
	c.mu.Unlock()

	c.observer.RateFetch(nil, len(rates), elapsed)
	c.logger.Debug("rates refreshed", "count", len(rates))
	return cloneRates(rates)
}

func cloneRates(in []Rate) []Rate {
	if in == nil {
		return nil
	}
	out := make([]Rate, len(in))
	copy(out, in)
	return out
}
