package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(now time.Time) (*Tracker, *MemoryStore) {
	store := NewMemoryStore()
	tracker := NewTracker(store, zerolog.Nop())
	tracker.SetClock(func() time.Time { return now })
	tracker.SetThrottleDelay(time.Millisecond)
	return tracker, store
}

func TestTracker_DefaultStateIsHealthy(t *testing.T) {
	tracker, _ := newTestTracker(time.Now())

	state, err := tracker.GetState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsHealthy)
	assert.Equal(t, 100, state.Remaining)
}

func TestTracker_UpdateFromResponse(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		status        int
		headers       map[string]string
		wantErr       bool
		wantStored    bool
		wantRemaining int
		wantRetryAt   time.Time
	}{
		{
			name:          "healthy budget",
			status:        http.StatusOK,
			headers:       map[string]string{"X-Ratelimit-Total": "140", "X-Ratelimit-Remaining": "120"},
			wantStored:    true,
			wantRemaining: 120,
		},
		{
			name:       "no headers is ignored",
			status:     http.StatusOK,
			headers:    map[string]string{},
			wantStored: false,
		},
		{
			name:    "invalid remaining",
			status:  http.StatusOK,
			headers: map[string]string{"X-Ratelimit-Remaining": "lots"},
			wantErr: true,
		},
		{
			name:    "invalid total",
			status:  http.StatusOK,
			headers: map[string]string{"X-Ratelimit-Remaining": "3", "X-Ratelimit-Total": "x"},
			wantErr: true,
		},
		{
			name:          "429 with retry-after",
			status:        http.StatusTooManyRequests,
			headers:       map[string]string{"Retry-After": "42"},
			wantStored:    true,
			wantRemaining: 0,
			wantRetryAt:   now.Add(42 * time.Second),
		},
		{
			name:          "429 without retry-after waits a window",
			status:        http.StatusTooManyRequests,
			headers:       map[string]string{},
			wantStored:    true,
			wantRemaining: 0,
			wantRetryAt:   now.Add(Window),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, store := newTestTracker(now)

			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tracker.UpdateFromResponse(context.Background(), tt.status, headers)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			stored, err := store.Load(context.Background())
			require.NoError(t, err)
			if !tt.wantStored {
				assert.Nil(t, stored)
				return
			}
			require.NotNil(t, stored)
			assert.Equal(t, tt.wantRemaining, stored.Remaining)
			assert.True(t, tt.wantRetryAt.Equal(stored.RetryAt), "RetryAt = %v, want %v", stored.RetryAt, tt.wantRetryAt)
		})
	}
}

func TestTracker_ShouldAllowRequest(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		state     *State
		wantAllow bool
	}{
		{"no state", nil, true},
		{"healthy", &State{Remaining: 100, LastUpdate: now}, true},
		{"warning is paced but allowed", &State{Remaining: 10, LastUpdate: now}, true},
		{"critical is blocked", &State{Remaining: 2, LastUpdate: now}, false},
		{"critical but outlived window", &State{Remaining: 2, LastUpdate: now.Add(-2 * Window)}, true},
		{"retry-after pending", &State{Remaining: 0, LastUpdate: now.Add(-2 * Window), RetryAt: now.Add(time.Minute)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker, store := newTestTracker(now)
			if tt.state != nil {
				require.NoError(t, store.Save(context.Background(), tt.state))
			}

			allowed, err := tracker.ShouldAllowRequest(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllow, allowed)
		})
	}
}

func TestTracker_ThrottleRespectsContext(t *testing.T) {
	now := time.Now()
	tracker, store := newTestTracker(now)
	tracker.SetThrottleDelay(time.Hour)
	require.NoError(t, store.Save(context.Background(), &State{Remaining: 10, LastUpdate: now}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	allowed, err := tracker.ShouldAllowRequest(ctx)
	assert.False(t, allowed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewTracker_NilStoreFallsBackToMemory(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	allowed, err := tracker.ShouldAllowRequest(context.Background())
	require.NoError(t, err)
	assert.True(t, allowed)
}
