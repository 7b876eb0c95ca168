package analytics

import (
	"context"
	"fmt"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
)

// Comparison limits.
const (
	MinCompareGroups = 2
	MaxCompareGroups = 10
	topAgentsPerTeam = 5
)

// ComparisonParams are the inputs of CompareTeams. The range defaults to the
// last 30 days.
type ComparisonParams struct {
	GroupIDs      []int64
	CreatedAfter  string
	CreatedBefore string
}

// GroupComparison is one group's row in a comparison.
type GroupComparison struct {
	GroupID            int64          `json:"group_id"`
	GroupName          string         `json:"group_name"`
	TotalTickets       int            `json:"total_tickets"`
	OpenTickets        int            `json:"open_tickets"`
	ResolvedTickets    int            `json:"resolved_tickets"`
	ClosedTickets      int            `json:"closed_tickets"`
	ByStatus           map[string]int `json:"by_status"`
	ClosureRate        float64        `json:"closure_rate"`
	AvgResolutionHours *float64       `json:"avg_resolution_hours"`
	TopAgents          []AgentCount   `json:"top_agents"`
}

// ComparisonSummary highlights the leading groups. Leader fields hold group
// ids and are nil when no group qualifies.
type ComparisonSummary struct {
	TotalTicketsAllGroups int     `json:"total_tickets_all_groups"`
	AverageClosureRate    float64 `json:"average_closure_rate"`
	HighestVolume         *int64  `json:"highest_volume"`
	HighestClosureRate    *int64  `json:"highest_closure_rate"`
	FastestResolution     *int64  `json:"fastest_resolution"`
}

// ComparisonResult is the outcome of CompareTeams.
type ComparisonResult struct {
	Comparison []GroupComparison `json:"comparison"`
	DateRange  DateRangeOut      `json:"date_range"`
	Summary    ComparisonSummary `json:"summary"`
	StaleCache bool              `json:"stale_cache"`
}

// CompareTeams aggregates each group's tickets over the same range.
// Groups are fetched one after another; any upstream failure fails the whole
// comparison.
func (s *Service) CompareTeams(ctx context.Context, p ComparisonParams) (*ComparisonResult, error) {
	if len(p.GroupIDs) < MinCompareGroups {
		return nil, invalid("group_ids", "at least %d groups must be provided for comparison", MinCompareGroups)
	}
	if len(p.GroupIDs) > MaxCompareGroups {
		return nil, invalid("group_ids", "at most %d groups can be compared at once", MaxCompareGroups)
	}
	seen := make(map[int64]bool, len(p.GroupIDs))
	for _, id := range p.GroupIDs {
		if seen[id] {
			return nil, invalid("group_ids", "duplicate group id %d", id)
		}
		seen[id] = true
	}

	now := s.now()
	rng := defaultRange(now)
	var err error
	if p.CreatedAfter != "" {
		if rng.Start, err = ParseBound(p.CreatedAfter, now); err != nil {
			return nil, withField(err, "created_after")
		}
	}
	if p.CreatedBefore != "" {
		if rng.End, err = ParseBound(p.CreatedBefore, now); err != nil {
			return nil, withField(err, "created_before")
		}
	}
	if err := checkOrder(rng.Start, rng.End); err != nil {
		return nil, err
	}

	lookup, err := s.lookups.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve agent lookup: %w", err)
	}

	rows := make([]GroupComparison, 0, len(p.GroupIDs))
	means := make([]*float64, 0, len(p.GroupIDs))
	for _, id := range p.GroupIDs {
		groupID := id
		q := newQuery()
		q.id("group_id", &groupID)
		q.after(rng.Start)
		q.before(rng.End)

		req := ticketFilter
		req.Query = q.String()

		agg := NewAggregator(lookup, s.labels)
		if _, err := s.collector.Each(ctx, req, pagination.Options{}, ticketVisitor(agg.Add)); err != nil {
			return nil, fmt.Errorf("group %d: %w", id, err)
		}

		name, ok := lookup.GroupName(id)
		if !ok {
			name = fmt.Sprintf("Group-%d", id)
		}
		rows = append(rows, comparisonRow(id, name, agg))
		means = append(means, agg.MeanResolutionHours())
	}

	s.logger.Info().
		Int("groups", len(rows)).
		Msg("Team comparison computed")

	return &ComparisonResult{
		Comparison: rows,
		DateRange:  rangeOut(rng),
		Summary:    summarize(rows, means),
		StaleCache: lookup.Stale,
	}, nil
}

func comparisonRow(id int64, name string, agg *Aggregator) GroupComparison {
	row := GroupComparison{
		GroupID:            id,
		GroupName:          name,
		TotalTickets:       agg.Total(),
		OpenTickets:        agg.StatusCount(client.StatusOpen),
		ResolvedTickets:    agg.StatusCount(client.StatusResolved),
		ClosedTickets:      agg.StatusCount(client.StatusClosed),
		ByStatus:           agg.Summary().ByStatus,
		AvgResolutionHours: roundPtr(agg.MeanResolutionHours(), 2),
		TopAgents:          agg.TopAgents(topAgentsPerTeam),
	}
	row.ClosureRate = round(closureRate(row), 3)
	return row
}

// closureRate is (resolved+closed)/total, 0 for an empty group.
func closureRate(r GroupComparison) float64 {
	if r.TotalTickets == 0 {
		return 0
	}
	return float64(r.ResolvedTickets+r.ClosedTickets) / float64(r.TotalTickets)
}

// summarize picks leaders; ties go to the lower group id. means holds the
// unrounded mean per row.
func summarize(rows []GroupComparison, means []*float64) ComparisonSummary {
	var out ComparisonSummary
	var rateSum float64
	var bestVolume, bestRate, fastest int = -1, -1, -1

	for i, r := range rows {
		out.TotalTicketsAllGroups += r.TotalTickets
		rateSum += closureRate(r)

		if bestVolume < 0 || better(r.TotalTickets > rows[bestVolume].TotalTickets, r.TotalTickets == rows[bestVolume].TotalTickets, r.GroupID, rows[bestVolume].GroupID) {
			bestVolume = i
		}
		if bestRate < 0 || better(closureRate(r) > closureRate(rows[bestRate]), closureRate(r) == closureRate(rows[bestRate]), r.GroupID, rows[bestRate].GroupID) {
			bestRate = i
		}
		if means[i] != nil {
			if fastest < 0 || better(*means[i] < *means[fastest], *means[i] == *means[fastest], r.GroupID, rows[fastest].GroupID) {
				fastest = i
			}
		}
	}

	if len(rows) > 0 {
		out.AverageClosureRate = round(rateSum/float64(len(rows)), 3)
		out.HighestVolume = &rows[bestVolume].GroupID
		out.HighestClosureRate = &rows[bestRate].GroupID
	}
	if fastest >= 0 {
		out.FastestResolution = &rows[fastest].GroupID
	}
	return out
}

func better(strictly, tied bool, id, bestID int64) bool {
	return strictly || (tied && id < bestID)
}
