package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the default snapshot lifetime.
const DefaultTTL = 5 * time.Minute

// Cache serves reference lookups from an in-memory snapshot.
type Cache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger

	current atomic.Pointer[Snapshot]
	expired atomic.Bool
	flight  singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the snapshot lifetime. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a reference cache over loader.
func New(loader Loader, opts ...Option) *Cache {
	c := &Cache{
		loader: loader,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: log.With().Str("component", "lookup-cache").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured snapshot lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Resolve returns a lookup over a snapshot younger than the TTL, refreshing
// it first if needed. If the refresh fails and an older snapshot exists, that
// snapshot is returned with Stale set.
func (c *Cache) Resolve(ctx context.Context) (*Lookup, error) {
	if snap := c.current.Load(); c.fresh(snap) {
		LookupHits.Inc()
		c.logger.Debug().Time("cached_at", snap.FetchedAt).Msg("Reference cache hit")
		return c.lookup(snap, false), nil
	}
	LookupMisses.Inc()

	// The refresh outlives the caller that started it so that other waiters
	// are not failed by one caller's cancellation.
	refreshCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan("refresh", func() (any, error) {
		if snap := c.current.Load(); c.fresh(snap) {
			return snap, nil
		}
		return c.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if prev := c.current.Load(); prev != nil {
				StaleServed.Inc()
				c.logger.Warn().
					Err(res.Err).
					Time("cached_at", prev.FetchedAt).
					Msg("Reference refresh failed, serving stale snapshot")
				return c.lookup(prev, true), nil
			}
			return nil, fmt.Errorf("refresh reference data: %w", res.Err)
		}
		return c.lookup(res.Val.(*Snapshot), false), nil
	}
}

// Invalidate forces the next Resolve to refresh. The current snapshot is kept
// as a stale fallback.
func (c *Cache) Invalidate() {
	c.expired.Store(true)
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	start := c.now()
	snap, err := c.loader.Load(ctx)
	if err != nil {
		RefreshFailures.Inc()
		c.logger.Error().Err(err).Msg("Reference refresh failed")
		return nil, err
	}

	snap.FetchedAt = c.now()
	c.current.Store(snap)
	c.expired.Store(false)

	Refreshes.Inc()
	SnapshotSize.WithLabelValues("agents").Set(float64(len(snap.Agents)))
	SnapshotSize.WithLabelValues("groups").Set(float64(len(snap.Groups)))
	c.logger.Info().
		Int("agents", len(snap.Agents)).
		Int("groups", len(snap.Groups)).
		Dur("duration", snap.FetchedAt.Sub(start)).
		Msg("Reference data refreshed")

	return snap, nil
}

func (c *Cache) fresh(snap *Snapshot) bool {
	if snap == nil || c.expired.Load() {
		return false
	}
	return c.now().Sub(snap.FetchedAt) < c.ttl
}

func (c *Cache) lookup(snap *Snapshot, stale bool) *Lookup {
	return &Lookup{
		snapshot: snap,
		Stale:    stale,
		Age:      c.now().Sub(snap.FetchedAt),
		TTL:      c.ttl,
	}
}
