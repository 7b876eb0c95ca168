// Package analytics aggregates Freshservice tickets into statistics.
//
// Every operation streams the complete matching ticket set through the
// exhaustive collector and folds it into counters, resolving agent and group
// ids through the reference cache. Inputs are validated before the first
// upstream request; failures there come back as *ValidationError.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/freshservice-mcp/pkg/cache"
	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Search limits.
const (
	DefaultSearchLimit = 500
	MaxSearchLimit     = 1000
)

// ticketFilter is the Freshservice ticket filter endpoint.
var ticketFilter = pagination.Request{Collection: "tickets/filter", Key: "tickets"}

// Service runs the analytics operations.
type Service struct {
	collector *pagination.Collector
	lookups   *cache.Cache
	labels    Labels
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLabels overrides the status and priority labels.
func WithLabels(labels Labels) Option {
	return func(s *Service) {
		s.labels = labels
	}
}

// NewService creates an analytics service.
func NewService(collector *pagination.Collector, lookups *cache.Cache, opts ...Option) *Service {
	s := &Service{
		collector: collector,
		lookups:   lookups,
		labels:    DefaultLabels(),
		now:       time.Now,
		logger:    log.With().Str("component", "analytics").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LookupResult is the agent and group directory.
type LookupResult struct {
	Agents          map[int64]cache.AgentInfo `json:"agents"`
	Groups          map[int64]string          `json:"groups"`
	CachedAt        time.Time                 `json:"cached_at"`
	TTLSeconds      int                       `json:"ttl_seconds"`
	CacheAgeSeconds float64                   `json:"cache_age_seconds"`
	StaleCache      bool                      `json:"stale_cache"`
}

// AgentLookup returns the cached agent and group directory.
func (s *Service) AgentLookup(ctx context.Context) (*LookupResult, error) {
	lookup, err := s.lookups.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	return &LookupResult{
		Agents:          lookup.Agents(),
		Groups:          lookup.Groups(),
		CachedAt:        lookup.CachedAt(),
		TTLSeconds:      int(lookup.TTL.Seconds()),
		CacheAgeSeconds: round(lookup.Age.Seconds(), 1),
		StaleCache:      lookup.Stale,
	}, nil
}

// SearchParams are the inputs of SearchTicketsAll.
type SearchParams struct {
	Query string
	// MaxResults defaults to DefaultSearchLimit when nil and is clamped to
	// MaxSearchLimit.
	MaxResults  *int
	Fields      []string
	WorkspaceID *int64
}

// SearchResult is the outcome of SearchTicketsAll.
type SearchResult struct {
	Tickets      []json.RawMessage `json:"tickets"`
	TotalFetched int               `json:"total_fetched"`
	PagesFetched int               `json:"pages_fetched"`
	Truncated    bool              `json:"truncated"`
}

// SearchTicketsAll returns every ticket matching a filter query, up to the cap.
func (s *Service) SearchTicketsAll(ctx context.Context, p SearchParams) (*SearchResult, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, invalid("query", "must not be empty")
	}

	limit := DefaultSearchLimit
	if p.MaxResults != nil {
		limit = *p.MaxResults
	}
	if limit < 1 {
		return nil, invalid("max_results", "must be at least 1")
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	req := ticketFilter
	req.Query = p.Query
	req.Params = workspaceParams(p.WorkspaceID)

	result, err := s.collector.Collect(ctx, req, pagination.Options{MaxResults: limit})
	if err != nil {
		return nil, err
	}

	tickets := result.Items
	if len(p.Fields) > 0 {
		tickets = make([]json.RawMessage, 0, len(result.Items))
		for _, item := range result.Items {
			projected, err := project(item, p.Fields)
			if err != nil {
				return nil, err
			}
			tickets = append(tickets, projected)
		}
	}

	return &SearchResult{
		Tickets:      tickets,
		TotalFetched: result.TotalFetched,
		PagesFetched: result.PagesFetched,
		Truncated:    result.Truncated,
	}, nil
}

// project keeps only the named fields that are present in item.
func project(item json.RawMessage, fields []string) (json.RawMessage, error) {
	var full map[string]json.RawMessage
	if err := json.Unmarshal(item, &full); err != nil {
		return nil, fmt.Errorf("decode ticket: %w", err)
	}
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			out[f] = v
		}
	}
	buf, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode ticket: %w", err)
	}
	return buf, nil
}

// StatsFilter are the inputs of TicketStats. At least one of GroupID,
// AgentID, CreatedAfter or CreatedBefore is required.
type StatsFilter struct {
	GroupID       *int64
	AgentID       *int64
	CreatedAfter  string
	CreatedBefore string
	WorkspaceID   *int64
}

// StatsResult is the outcome of TicketStats.
type StatsResult struct {
	Stats        Summary        `json:"stats"`
	Filters      map[string]any `json:"filters"`
	DateRange    DateRangeOut   `json:"date_range"`
	PagesFetched int            `json:"pages_fetched"`
	StaleCache   bool           `json:"stale_cache"`
}

// TicketStats aggregates every ticket matching the filter.
func (s *Service) TicketStats(ctx context.Context, f StatsFilter) (*StatsResult, error) {
	if f.GroupID == nil && f.AgentID == nil && f.CreatedAfter == "" && f.CreatedBefore == "" {
		return nil, invalid("", "at least one filter parameter must be provided (group_id, agent_id, created_after, or created_before)")
	}

	now := s.now()
	q := newQuery()
	q.id("group_id", f.GroupID)
	q.id("agent_id", f.AgentID)

	var dr DateRangeOut
	var start, end time.Time
	if f.CreatedAfter != "" {
		var err error
		if start, err = ParseBound(f.CreatedAfter, now); err != nil {
			return nil, withField(err, "created_after")
		}
		dr.Start = strPtr(formatStart(start))
		q.after(start)
	}
	if f.CreatedBefore != "" {
		var err error
		if end, err = ParseBound(f.CreatedBefore, now); err != nil {
			return nil, withField(err, "created_before")
		}
		dr.End = strPtr(formatEnd(end))
		q.before(end)
	}
	if f.CreatedAfter != "" && f.CreatedBefore != "" {
		if err := checkOrder(start, end); err != nil {
			return nil, err
		}
	}

	lookup, err := s.lookups.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve agent lookup: %w", err)
	}

	agg := NewAggregator(lookup, s.labels)
	req := ticketFilter
	req.Query = q.String()
	req.Params = workspaceParams(f.WorkspaceID)

	stats, err := s.collector.Each(ctx, req, pagination.Options{}, ticketVisitor(agg.Add))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("query", req.Query).
		Int("tickets", agg.Total()).
		Msg("Ticket stats computed")

	return &StatsResult{
		Stats: agg.Summary(),
		Filters: map[string]any{
			"group_id":       f.GroupID,
			"group_name":     groupName(lookup, f.GroupID),
			"agent_id":       f.AgentID,
			"created_after":  emptyToNil(f.CreatedAfter),
			"created_before": emptyToNil(f.CreatedBefore),
			"workspace_id":   f.WorkspaceID,
		},
		DateRange:    dr,
		PagesFetched: stats.PagesFetched,
		StaleCache:   lookup.Stale,
	}, nil
}

// groupName resolves the echoed name of a group filter, nil when unset.
func groupName(lookup *cache.Lookup, id *int64) any {
	if id == nil {
		return nil
	}
	if name, ok := lookup.GroupName(*id); ok {
		return name
	}
	return fmt.Sprintf("Group-%d", *id)
}

// ticketVisitor decodes raw tickets before handing them to fn.
func ticketVisitor(fn func(client.Ticket)) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var t client.Ticket
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("decode ticket: %w", err)
		}
		fn(t)
		return nil
	}
}

// filterQuery builds a Freshservice filter expression joined with AND.
type filterQuery struct {
	parts []string
}

func newQuery() *filterQuery {
	return &filterQuery{}
}

func (q *filterQuery) id(field string, v *int64) {
	if v != nil {
		q.parts = append(q.parts, field+":"+strconv.FormatInt(*v, 10))
	}
}

func (q *filterQuery) after(t time.Time) {
	q.parts = append(q.parts, fmt.Sprintf("created_at:>'%s'", formatStart(t)))
}

func (q *filterQuery) before(t time.Time) {
	q.parts = append(q.parts, fmt.Sprintf("created_at:<'%s'", formatEnd(t)))
}

func (q *filterQuery) String() string {
	return strings.Join(q.parts, " AND ")
}

func workspaceParams(id *int64) map[string]string {
	if id == nil {
		return nil
	}
	return map[string]string{"workspace_id": strconv.FormatInt(*id, 10)}
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func withField(err error, field string) error {
	if v, ok := err.(*ValidationError); ok {
		return &ValidationError{Field: field, Message: v.Message}
	}
	return err
}
