package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the rate limit state. Load returns (nil, nil) when nothing
// has been recorded yet.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	state *State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (m *MemoryStore) Load(context.Context) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	cp := *m.state
	return &cp, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, state *State) error {
	cp := *state
	m.mu.Lock()
	m.state = &cp
	m.mu.Unlock()
	return nil
}

// RedisStore shares the state between processes using the same API key.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: client}
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context) (*State, error) {
	lastUpdateStr, err := r.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	remaining, err := r.redis.Get(ctx, RedisKeyRemaining).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	total, err := r.redis.Get(ctx, RedisKeyTotal).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get total: %w", err)
	}

	retryAtUnix, err := r.redis.Get(ctx, RedisKeyRetryAt).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get retry at: %w", err)
	}

	var lastUpdate time.Time
	if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &State{
		Total:      total,
		Remaining:  remaining,
		LastUpdate: lastUpdate,
	}
	if retryAtUnix > 0 {
		state.RetryAt = time.Unix(retryAtUnix, 0)
	}
	state.UpdateHealth()

	return state, nil
}

// Save implements Store. All keys are written in one pipeline.
func (r *RedisStore) Save(ctx context.Context, state *State) error {
	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	var retryAt int64
	if !state.RetryAt.IsZero() {
		retryAt = state.RetryAt.Unix()
	}

	// Keys expire with the window so a dead process cannot pin a stale block.
	ttl := 2 * Window
	pipe := r.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyTotal, state.Total, ttl)
	pipe.Set(ctx, RedisKeyRetryAt, retryAt, ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
