package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
)

// Names resolves agent ids to display names.
type Names interface {
	AgentName(id int64) (string, bool)
}

// Summary is the aggregate of a ticket set.
type Summary struct {
	TotalTickets int             `json:"total_tickets"`
	ByStatus     map[string]int  `json:"by_status"`
	ByPriority   map[string]int  `json:"by_priority"`
	ByAgent      map[string]int  `json:"by_agent"`
	ByType       map[string]int  `json:"by_type"`
	Resolution   ResolutionStats `json:"resolution"`
}

// ResolutionStats describes resolution times of the tickets that have one.
type ResolutionStats struct {
	Count     int      `json:"count"`
	MeanHours *float64 `json:"mean_hours"`
}

// AgentCount is one agent's share of a ticket set.
type AgentCount struct {
	AgentID     int64  `json:"agent_id"`
	AgentName   string `json:"agent_name"`
	TicketCount int    `json:"ticket_count"`
}

// Aggregator folds tickets into counters one at a time. It never keeps the
// tickets themselves, so memory use does not grow with the ticket count.
type Aggregator struct {
	names  Names
	labels Labels

	total      int
	byStatus   map[string]int
	byPriority map[string]int
	byType     map[string]int
	unassigned int

	statusCodes map[int]int
	agentIDs    map[int64]int

	resolvedCount int
	resolvedHours float64
}

// NewAggregator creates an aggregator. names may be nil.
func NewAggregator(names Names, labels Labels) *Aggregator {
	return &Aggregator{
		names:       names,
		labels:      labels,
		byStatus:    make(map[string]int),
		byPriority:  make(map[string]int),
		byType:      make(map[string]int),
		statusCodes: make(map[int]int),
		agentIDs:    make(map[int64]int),
	}
}

// Add folds one ticket into the counters.
func (a *Aggregator) Add(t client.Ticket) {
	a.total++
	a.byStatus[a.labels.StatusLabel(t.Status)]++
	a.byPriority[a.labels.PriorityLabel(t.Priority)]++
	a.statusCodes[t.Status]++

	if t.ResponderID == nil {
		a.unassigned++
	} else {
		a.agentIDs[*t.ResponderID]++
	}

	typ := t.Type
	if typ == "" {
		typ = "Unknown"
	}
	a.byType[typ]++

	if hours, ok := ResolutionHours(t); ok {
		a.resolvedCount++
		a.resolvedHours += hours
	}
}

// Total returns the number of tickets added so far.
func (a *Aggregator) Total() int {
	return a.total
}

// StatusCount returns the number of tickets with the given status code.
func (a *Aggregator) StatusCount(code int) int {
	return a.statusCodes[code]
}

// MeanResolutionHours returns the mean resolution time, or nil when no ticket
// had a usable resolution.
func (a *Aggregator) MeanResolutionHours() *float64 {
	if a.resolvedCount == 0 {
		return nil
	}
	mean := a.resolvedHours / float64(a.resolvedCount)
	return &mean
}

// TopAgents returns up to n agents by ticket count, ties broken by agent id.
func (a *Aggregator) TopAgents(n int) []AgentCount {
	out := make([]AgentCount, 0, len(a.agentIDs))
	for id, count := range a.agentIDs {
		out = append(out, AgentCount{AgentID: id, AgentName: a.agentName(id), TicketCount: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TicketCount != out[j].TicketCount {
			return out[i].TicketCount > out[j].TicketCount
		}
		return out[i].AgentID < out[j].AgentID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Summary returns a copy of the current aggregate.
func (a *Aggregator) Summary() Summary {
	return Summary{
		TotalTickets: a.total,
		ByStatus:     copyCounts(a.byStatus),
		ByPriority:   copyCounts(a.byPriority),
		ByAgent:      a.byAgent(),
		ByType:       copyCounts(a.byType),
		Resolution: ResolutionStats{
			Count:     a.resolvedCount,
			MeanHours: roundPtr(a.MeanResolutionHours(), 2),
		},
	}
}

// byAgent keys counts by display name. Agents sharing a name are told apart
// as "Name (#id)".
func (a *Aggregator) byAgent() map[string]int {
	ids := make(map[string][]int64, len(a.agentIDs))
	for id := range a.agentIDs {
		name := a.agentName(id)
		ids[name] = append(ids[name], id)
	}

	out := make(map[string]int, len(a.agentIDs)+1)
	if a.unassigned > 0 {
		out["Unassigned"] = a.unassigned
	}
	for name, group := range ids {
		if len(group) == 1 && name != "Unassigned" {
			out[name] = a.agentIDs[group[0]]
			continue
		}
		for _, id := range group {
			out[fmt.Sprintf("%s (#%d)", name, id)] = a.agentIDs[id]
		}
	}
	return out
}

func (a *Aggregator) agentName(id int64) string {
	if a.names != nil {
		if name, ok := a.names.AgentName(id); ok {
			return name
		}
	}
	return fmt.Sprintf("Agent-%d", id)
}

// ResolutionHours returns hours from creation to resolution. Tickets without
// both timestamps, with unparseable ones, or resolved before creation are
// reported as having no resolution.
func ResolutionHours(t client.Ticket) (float64, bool) {
	created, ok := parseTimestamp(t.CreatedAt)
	if !ok {
		return 0, false
	}
	resolved, ok := parseTimestamp(t.ResolutionTimestamp())
	if !ok || resolved.Before(created) {
		return 0, false
	}
	return resolved.Sub(created).Hours(), true
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, places)
	return &r
}
