package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupHits tracks lookups served from a fresh snapshot.
	LookupHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshservice_lookup_cache_hits_total",
			Help: "Total number of reference lookups served from a fresh snapshot",
		},
	)

	// LookupMisses tracks lookups that found no fresh snapshot.
	LookupMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshservice_lookup_cache_misses_total",
			Help: "Total number of reference lookups that required a refresh",
		},
	)

	// Refreshes tracks successful snapshot loads.
	Refreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshservice_lookup_cache_refreshes_total",
			Help: "Total number of successful reference data refreshes",
		},
	)

	// RefreshFailures tracks failed snapshot loads.
	RefreshFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshservice_lookup_cache_refresh_failures_total",
			Help: "Total number of failed reference data refreshes",
		},
	)

	// StaleServed tracks lookups answered from an expired snapshot after a failed refresh.
	StaleServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshservice_lookup_cache_stale_served_total",
			Help: "Total number of lookups served from a stale snapshot",
		},
	)

	// SnapshotSize tracks the number of entries in the current snapshot by kind.
	SnapshotSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "freshservice_lookup_cache_entries",
			Help: "Number of entries in the current reference snapshot",
		},
		[]string{"kind"}, // "agents", "groups"
	)
)
