package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "freshservice_rate_limit_remaining",
		Help: "Calls remaining in the current Freshservice rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freshservice_rate_limit_blocks_total",
		Help: "Total number of requests blocked locally due to an exhausted budget",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "freshservice_rate_limit_throttles_total",
		Help: "Total number of requests paced due to a low budget",
	})
)

// Tracker monitors the Freshservice rate limit budget and gates requests.
type Tracker struct {
	store    Store
	logger   zerolog.Logger
	now      func() time.Time
	throttle time.Duration
}

// NewTracker creates a new rate limit tracker over store.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:    store,
		logger:   logger,
		now:      time.Now,
		throttle: time.Second,
	}
}

// SetThrottleDelay overrides the pause applied in the warning band (for testing).
func (t *Tracker) SetThrottleDelay(d time.Duration) {
	t.throttle = d
}

// SetClock overrides the time source (for testing).
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// GetState returns the current state. A missing state, or one older than the
// window with no pending Retry-After, is reported as healthy.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	now := t.now()

	state, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rate limit state: %w", err)
	}

	if state == nil {
		t.logger.Debug().Msg("No rate limit state recorded, assuming healthy")
		return defaultState(now), nil
	}

	if state.IsStale(now, Window) && !now.Before(state.RetryAt) {
		t.logger.Debug().
			Time("last_update", state.LastUpdate).
			Msg("Rate limit state outlived its window, assuming healthy")
		return defaultState(now), nil
	}

	return state, nil
}

// UpdateFromResponse records the budget reported by a Freshservice response.
// Responses without rate limit headers are ignored unless they are 429s.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	now := t.now()
	state := &State{LastUpdate: now}

	remainStr := headers.Get("X-Ratelimit-Remaining")
	if remainStr == "" && statusCode != http.StatusTooManyRequests {
		return nil
	}

	if remainStr != "" {
		remain, err := strconv.Atoi(remainStr)
		if err != nil {
			return fmt.Errorf("parse X-Ratelimit-Remaining header: %w", err)
		}
		state.Remaining = remain
	}

	if totalStr := headers.Get("X-Ratelimit-Total"); totalStr != "" {
		total, err := strconv.Atoi(totalStr)
		if err != nil {
			return fmt.Errorf("parse X-Ratelimit-Total header: %w", err)
		}
		state.Total = total
	}

	if statusCode == http.StatusTooManyRequests {
		state.Remaining = 0
		retryAfter := Window
		if s := headers.Get("Retry-After"); s != "" {
			secs, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("parse Retry-After header: %w", err)
			}
			retryAfter = time.Duration(secs) * time.Second
		}
		state.RetryAt = now.Add(retryAfter)
	}

	state.UpdateHealth()

	if err := t.store.Save(ctx, state); err != nil {
		return err
	}

	rateLimitRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsCriticalBlock(now):
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("retry_at", state.RetryAt).
			Msg("Freshservice rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling(now):
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Freshservice rate limit WARNING - requests will be paced")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Int("total", state.Total).
			Msg("Freshservice rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest reports whether a request may be sent now.
// In the warning band it pauses for the throttle delay before allowing.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}
	now := t.now()

	if state.NeedsCriticalBlock(now) {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset(now)).
			Msg("Freshservice rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling(now) {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Freshservice rate limit low - pacing request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttle):
		}
	}

	return true, nil
}
