package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for collection runs.
var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshservice_pages_fetched_total",
		Help: "Total pages fetched by collection runs, by collection",
	}, []string{"collection"})

	collectionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshservice_collection_runs_total",
		Help: "Total collection runs by collection and outcome (complete, truncated, failed)",
	}, []string{"collection", "outcome"})
)

// ErrStop can be returned by a visit function to end a run early without
// reporting an error.
var ErrStop = errors.New("stop collection")

// Request identifies the upstream collection and filter for one run.
type Request struct {
	// Collection is the path below /api/v2 (e.g. "tickets/filter", "agents").
	Collection string

	// Key is the JSON envelope key that holds the items (e.g. "tickets").
	Key string

	// Query is the Freshservice filter expression. Empty lists the whole collection.
	Query string

	// Params are extra query parameters such as workspace_id.
	Params map[string]string
}

// Page is one decoded page of a collection.
type Page struct {
	// Items are the raw JSON records in upstream order.
	Items []json.RawMessage

	// Link is the raw Link response header, possibly empty.
	Link string
}

// PageFetcher is the interface the Freshservice client implements for
// single-page fetching. Page numbers are 1-based.
type PageFetcher interface {
	FetchPage(ctx context.Context, req Request, page int) (*Page, error)
}

// Options bounds a collection run.
type Options struct {
	// MaxResults caps the number of items returned. Zero or negative means unbounded.
	MaxResults int
}

// Stats describes a finished run.
type Stats struct {
	// TotalFetched is the number of items delivered to the caller.
	TotalFetched int

	// PagesFetched counts pages that carried at least one item.
	PagesFetched int

	// Requests counts every page request, including a terminating empty page.
	Requests int

	// Truncated is set when MaxResults stopped the run.
	Truncated bool
}

// Result is the outcome of Collect.
type Result struct {
	Items []json.RawMessage
	Stats
}

// Collector drives a PageFetcher until the completion signals say stop.
type Collector struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewCollector creates a collector over the given fetcher.
func NewCollector(fetcher PageFetcher) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// Collect gathers every item for req, honouring opts.MaxResults.
func (c *Collector) Collect(ctx context.Context, req Request, opts Options) (*Result, error) {
	items := make([]json.RawMessage, 0, PageSize)
	if opts.MaxResults > 0 {
		items = make([]json.RawMessage, 0, min(opts.MaxResults, 10*PageSize))
	}

	stats, err := c.Each(ctx, req, opts, func(item json.RawMessage) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Result{Items: items, Stats: stats}, nil
}

// Each streams every item for req to visit, in upstream order, without
// retaining them. When the cap is reached the remainder of the last page is
// skipped and the run is marked truncated.
//
// A fetch error aborts the run; the error wraps the upstream failure with the
// page number. A visit error other than ErrStop aborts the run as well.
func (c *Collector) Each(ctx context.Context, req Request, opts Options, visit func(json.RawMessage) error) (Stats, error) {
	start := time.Now()
	var stats Stats

	for page := 1; ; page++ {
		result, err := c.fetcher.FetchPage(ctx, req, page)
		if err != nil {
			collectionRunsTotal.WithLabelValues(req.Collection, "failed").Inc()
			c.logger.Error().
				Err(err).
				Str("collection", req.Collection).
				Int("page", page).
				Int("fetched", stats.TotalFetched).
				Msg("Page fetch failed, aborting collection")
			return stats, fmt.Errorf("fetch %s page %d: %w", req.Collection, page, err)
		}

		stats.Requests++
		pagesFetchedTotal.WithLabelValues(req.Collection).Inc()
		if len(result.Items) > 0 {
			stats.PagesFetched++
		}

		for _, item := range result.Items {
			if err := visit(item); err != nil {
				if errors.Is(err, ErrStop) {
					c.finish(req, stats, start)
					return stats, nil
				}
				collectionRunsTotal.WithLabelValues(req.Collection, "failed").Inc()
				return stats, err
			}
			stats.TotalFetched++

			if opts.MaxResults > 0 && stats.TotalFetched >= opts.MaxResults {
				stats.Truncated = true
				c.finish(req, stats, start)
				return stats, nil
			}
		}

		c.logger.Debug().
			Str("collection", req.Collection).
			Int("page", page).
			Int("items", len(result.Items)).
			Int("fetched", stats.TotalFetched).
			Msg("Page collected")

		if !HasMore(len(result.Items), result.Link) {
			break
		}
	}

	c.finish(req, stats, start)
	return stats, nil
}

func (c *Collector) finish(req Request, stats Stats, start time.Time) {
	outcome := "complete"
	if stats.Truncated {
		outcome = "truncated"
	}
	collectionRunsTotal.WithLabelValues(req.Collection, outcome).Inc()

	c.logger.Info().
		Str("collection", req.Collection).
		Int("pages", stats.PagesFetched).
		Int("requests", stats.Requests).
		Int("items", stats.TotalFetched).
		Bool("truncated", stats.Truncated).
		Dur("duration", time.Since(start)).
		Msg("Collection complete")
}
