// Package ratelimit tracks the Freshservice per-minute API budget and gates
// requests before the account runs dry.
//
// Freshservice reports the budget on every response through the
// X-Ratelimit-Total and X-Ratelimit-Remaining headers and answers 429 with a
// Retry-After header once it is exhausted. The tracker records that state in
// a Store (Redis when several processes share one API key, memory otherwise).
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining  = "freshservice:rate_limit:remaining"
	RedisKeyTotal      = "freshservice:rate_limit:total"
	RedisKeyRetryAt    = "freshservice:rate_limit:retry_at"
	RedisKeyLastUpdate = "freshservice:rate_limit:last_update"
)

// Window is the length of the Freshservice rate limit window.
const Window = time.Minute

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks requests when the remaining budget falls below it.
	ThresholdCritical = 5

	// ThresholdWarning paces requests when the remaining budget falls below it.
	ThresholdWarning = 20

	// ThresholdHealthy marks the budget as healthy at or above it.
	ThresholdHealthy = 50
)

// State is the last observed Freshservice rate limit budget.
type State struct {
	// Total is the per-minute budget (X-Ratelimit-Total).
	Total int `json:"total"`

	// Remaining is the number of calls left in the window (X-Ratelimit-Remaining).
	Remaining int `json:"remaining"`

	// RetryAt is set after a 429 response from the Retry-After header.
	RetryAt time.Time `json:"retry_at"`

	// LastUpdate is when the state was last refreshed from headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// defaultState is assumed until real headers have been seen.
func defaultState(now time.Time) *State {
	return &State{
		Remaining:  100,
		LastUpdate: now,
		IsHealthy:  true,
	}
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests must not be sent.
func (s *State) NeedsCriticalBlock(now time.Time) bool {
	if now.Before(s.RetryAt) {
		return true
	}
	return s.Remaining < ThresholdCritical
}

// NeedsThrottling returns true if requests should be paced.
func (s *State) NeedsThrottling(now time.Time) bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock(now)
}

// TimeUntilReset returns how long a blocked caller has to wait.
// Without a Retry-After the budget refills at the end of the window.
func (s *State) TimeUntilReset(now time.Time) time.Duration {
	reset := s.RetryAt
	if reset.IsZero() {
		reset = s.LastUpdate.Add(Window)
	}
	if d := reset.Sub(now); d > 0 {
		return d
	}
	return 0
}

// UpdateHealth updates IsHealthy from Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
