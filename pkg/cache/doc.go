// Package cache holds the reference data lookup (agent and group names) used
// to resolve ids in analytics results.
//
// The cache keeps one immutable Snapshot in memory and replaces it as a whole
// once it is older than the TTL (five minutes by default). Concurrent callers
// that find the snapshot expired share a single refresh. When a refresh fails
// and an older snapshot exists, callers get the old snapshot flagged as stale
// instead of an error.
//
// # Basic Usage
//
//	collector := pagination.NewCollector(freshserviceClient)
//	lookups := cache.New(cache.NewCollectorLoader(collector))
//
//	lookup, err := lookups.Resolve(ctx)
//	if err != nil {
//		return err
//	}
//	name, ok := lookup.AgentName(1001)
//
// Nothing is persisted; every process starts cold.
package cache
