package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
)

// Loader produces a fresh snapshot. FetchedAt is stamped by the cache.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Snapshot, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (*Snapshot, error) {
	return f(ctx)
}

// CollectorLoader loads every agent and group through the exhaustive collector.
type CollectorLoader struct {
	collector *pagination.Collector
}

// NewCollectorLoader creates a Loader backed by collector.
func NewCollectorLoader(collector *pagination.Collector) *CollectorLoader {
	return &CollectorLoader{collector: collector}
}

// Load implements Loader.
func (l *CollectorLoader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Agents: make(map[int64]AgentInfo),
		Groups: make(map[int64]string),
	}

	_, err := l.collector.Each(ctx, pagination.Request{Collection: "agents", Key: "agents"}, pagination.Options{},
		func(raw json.RawMessage) error {
			var a client.Agent
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("decode agent: %w", err)
			}
			snap.Agents[a.ID] = AgentInfo{Name: a.DisplayName(), Email: a.Email}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}

	_, err = l.collector.Each(ctx, pagination.Request{Collection: "groups", Key: "groups"}, pagination.Options{},
		func(raw json.RawMessage) error {
			var g client.Group
			if err := json.Unmarshal(raw, &g); err != nil {
				return fmt.Errorf("decode group: %w", err)
			}
			snap.Groups[g.ID] = g.DisplayName()
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	return snap, nil
}
