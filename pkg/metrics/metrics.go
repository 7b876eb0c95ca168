// Package metrics exposes the Prometheus registry used by freshservice-mcp.
// All metrics are defined in their respective packages (client, pagination,
// cache, ratelimit, tools) via promauto to avoid circular dependencies.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics and /health on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - freshservice_requests_total{endpoint, status} (Counter)
//   - freshservice_request_duration_seconds{endpoint} (Histogram)
//   - freshservice_errors_total{class} (Counter): client, server, rate_limit, network
//
// Pagination Metrics (pkg/pagination):
//   - freshservice_pages_fetched_total{collection} (Counter)
//   - freshservice_collection_runs_total{collection, outcome} (Counter): complete, truncated, failed
//
// Rate Limit Metrics (pkg/ratelimit):
//   - freshservice_rate_limit_remaining (Gauge)
//   - freshservice_rate_limit_blocks_total (Counter)
//   - freshservice_rate_limit_throttles_total (Counter)
//
// Lookup Cache Metrics (pkg/cache):
//   - freshservice_lookup_cache_hits_total (Counter)
//   - freshservice_lookup_cache_misses_total (Counter)
//   - freshservice_lookup_cache_refreshes_total (Counter)
//   - freshservice_lookup_cache_refresh_failures_total (Counter)
//   - freshservice_lookup_cache_stale_served_total (Counter)
//   - freshservice_lookup_cache_entries{kind} (Gauge): agents, groups
//
// Tool Metrics (pkg/tools):
//   - freshservice_tool_calls_total{tool, outcome} (Counter): success, validation, upstream, internal
//   - freshservice_tool_call_duration_seconds{tool} (Histogram)
//
// Example Prometheus Queries:
//
//   # Lookup cache hit rate
//   sum(rate(freshservice_lookup_cache_hits_total[5m])) /
//   (sum(rate(freshservice_lookup_cache_hits_total[5m])) + sum(rate(freshservice_lookup_cache_misses_total[5m])))
//
//   # Truncated searches
//   rate(freshservice_collection_runs_total{outcome="truncated"}[1h])
//
//   # P95 tool latency
//   histogram_quantile(0.95, sum by (le, tool) (rate(freshservice_tool_call_duration_seconds_bucket[5m])))
