package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/freshservice-mcp/pkg/analytics"
	"github.com/Sternrassler/freshservice-mcp/pkg/cache"
	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/config"
	"github.com/Sternrassler/freshservice-mcp/pkg/logging"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
	"github.com/Sternrassler/freshservice-mcp/pkg/ratelimit"
	"github.com/Sternrassler/freshservice-mcp/pkg/tools"
	"github.com/redis/go-redis/v9"
)

// app is the wired service graph behind the MCP server.
type app struct {
	client   *client.Client
	registry *tools.Registry
	redis    *redis.Client
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	var store ratelimit.Store
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		store = ratelimit.NewRedisStore(a.redis)
	}

	clientCfg := client.DefaultConfig(cfg.Domain, cfg.APIKey)
	clientCfg.Timeout = cfg.Timeout
	if cfg.UserAgent != "" {
		clientCfg.UserAgent = cfg.UserAgent
	}
	clientCfg.RateLimiter = ratelimit.NewTracker(store, logging.NewLogger("ratelimit"))

	c, err := client.New(clientCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create client: %w", err)
	}
	a.client = c

	collector := pagination.NewCollector(c)
	lookups := cache.New(cache.NewCollectorLoader(collector), cache.WithTTL(cfg.LookupTTL))
	a.registry = tools.Default(tools.Deps{
		Client:    c,
		Collector: collector,
		Analytics: analytics.NewService(collector, lookups),
	})
	return a, nil
}

// Close releases the Redis connection, if any.
func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
