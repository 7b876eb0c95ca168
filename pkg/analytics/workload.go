package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
)

// DefaultWorkloadPeriod is used when neither Period nor CreatedAfter is set.
const DefaultWorkloadPeriod = "30d"

// WorkloadFilter are the inputs of AgentWorkload. AgentID or GroupID is
// required; CreatedAfter overrides Period.
type WorkloadFilter struct {
	AgentID       *int64
	GroupID       *int64
	Period        string
	CreatedAfter  string
	CreatedBefore string
	WorkspaceID   *int64
}

// AgentLoad is one agent's workload.
type AgentLoad struct {
	AgentID            int64     `json:"agent_id"`
	AgentName          string    `json:"agent_name"`
	Email              string    `json:"email"`
	TicketsAssigned    int       `json:"tickets_assigned"`
	TicketsResolved    int       `json:"tickets_resolved"`
	TicketsClosed      int       `json:"tickets_closed"`
	TicketsOpen        int       `json:"tickets_open"`
	AvgResolutionHours *float64  `json:"avg_resolution_hours"`
	ResolutionTimes    []float64 `json:"resolution_times"`
}

// WorkloadResult is the outcome of AgentWorkload.
type WorkloadResult struct {
	Agents            []AgentLoad    `json:"agents"`
	TotalTickets      int            `json:"total_tickets"`
	UnassignedTickets int            `json:"unassigned_tickets"`
	GroupName         *string        `json:"group_name"`
	Filters           map[string]any `json:"filters"`
	DateRange         DateRangeOut   `json:"date_range"`
	StaleCache        bool           `json:"stale_cache"`
}

// AgentWorkload reports per-agent ticket counts and resolution times.
func (s *Service) AgentWorkload(ctx context.Context, f WorkloadFilter) (*WorkloadResult, error) {
	if f.AgentID == nil && f.GroupID == nil {
		return nil, invalid("", "either agent_id or group_id must be provided")
	}

	now := s.now()
	period := f.Period
	if period == "" {
		period = DefaultWorkloadPeriod
	}

	var (
		rng DateRange
		err error
	)
	if f.CreatedAfter != "" {
		rng.Start, err = ParseBound(f.CreatedAfter, now)
		if err != nil {
			return nil, withField(err, "created_after")
		}
	} else {
		rng.Start, err = ParsePeriod(period, now)
		if err != nil {
			return nil, err
		}
	}
	rng.End = now
	if f.CreatedBefore != "" {
		rng.End, err = ParseBound(f.CreatedBefore, now)
		if err != nil {
			return nil, withField(err, "created_before")
		}
	}
	if err := checkOrder(rng.Start, rng.End); err != nil {
		return nil, err
	}

	q := newQuery()
	if f.AgentID != nil {
		q.id("agent_id", f.AgentID)
	} else {
		q.id("group_id", f.GroupID)
	}
	q.after(rng.Start)
	q.before(rng.End)

	lookup, err := s.lookups.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve agent lookup: %w", err)
	}

	loads := make(map[int64]*agentTally)
	total, unassigned := 0, 0

	req := ticketFilter
	req.Query = q.String()
	req.Params = workspaceParams(f.WorkspaceID)

	_, err = s.collector.Each(ctx, req, pagination.Options{}, ticketVisitor(func(t client.Ticket) {
		total++
		if t.ResponderID == nil {
			unassigned++
			return
		}
		tally, ok := loads[*t.ResponderID]
		if !ok {
			tally = &agentTally{}
			loads[*t.ResponderID] = tally
		}
		tally.add(t)
	}))
	if err != nil {
		return nil, err
	}

	agents := make([]AgentLoad, 0, len(loads))
	for id, tally := range loads {
		name, ok := lookup.AgentName(id)
		email := lookup.AgentEmail(id)
		if !ok {
			name = fmt.Sprintf("Agent-%d", id)
			email = "unknown"
		}
		agents = append(agents, tally.load(id, name, email))
	}
	sort.Slice(agents, func(i, j int) bool {
		if agents[i].TicketsAssigned != agents[j].TicketsAssigned {
			return agents[i].TicketsAssigned > agents[j].TicketsAssigned
		}
		return agents[i].AgentID < agents[j].AgentID
	})

	var groupName *string
	if f.GroupID != nil {
		if name, ok := lookup.GroupName(*f.GroupID); ok {
			groupName = &name
		} else {
			groupName = strPtr(fmt.Sprintf("Group-%d", *f.GroupID))
		}
	}

	s.logger.Info().
		Str("query", req.Query).
		Int("tickets", total).
		Int("agents", len(agents)).
		Msg("Agent workload computed")

	return &WorkloadResult{
		Agents:            agents,
		TotalTickets:      total,
		UnassignedTickets: unassigned,
		GroupName:         groupName,
		Filters: map[string]any{
			"agent_id":     f.AgentID,
			"group_id":     f.GroupID,
			"period":       period,
			"workspace_id": f.WorkspaceID,
		},
		DateRange:  rangeOut(rng),
		StaleCache: lookup.Stale,
	}, nil
}

type agentTally struct {
	assigned, resolved, closed, open int
	hours                            []float64
}

func (a *agentTally) add(t client.Ticket) {
	a.assigned++
	switch t.Status {
	case client.StatusResolved:
		a.resolved++
	case client.StatusClosed:
		a.closed++
	case client.StatusOpen:
		a.open++
	}
	if h, ok := ResolutionHours(t); ok {
		a.hours = append(a.hours, h)
	}
}

func (a *agentTally) load(id int64, name, email string) AgentLoad {
	out := AgentLoad{
		AgentID:         id,
		AgentName:       name,
		Email:           email,
		TicketsAssigned: a.assigned,
		TicketsResolved: a.resolved,
		TicketsClosed:   a.closed,
		TicketsOpen:     a.open,
		ResolutionTimes: make([]float64, 0, len(a.hours)),
	}
	var sum float64
	for _, h := range a.hours {
		sum += h
		out.ResolutionTimes = append(out.ResolutionTimes, round(h, 2))
	}
	if len(a.hours) > 0 {
		avg := round(sum/float64(len(a.hours)), 2)
		out.AvgResolutionHours = &avg
	}
	return out
}

func rangeOut(r DateRange) DateRangeOut {
	return DateRangeOut{
		Start: strPtr(formatStart(r.Start)),
		End:   strPtr(formatEnd(r.End)),
	}
}

// defaultRange is the last 30 days up to now.
func defaultRange(now time.Time) DateRange {
	return DateRange{Start: now.AddDate(0, 0, -30), End: now}
}
