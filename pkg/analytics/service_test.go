package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/freshservice-mcp/internal/testutil"
	"github.com/Sternrassler/freshservice-mcp/pkg/cache"
	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ticket(id, status int, group int, responder any, created, resolved string) map[string]any {
	t := map[string]any{
		"id":           id,
		"status":       status,
		"priority":     1,
		"type":         "Incident",
		"group_id":     group,
		"responder_id": responder,
		"created_at":   created,
		"updated_at":   created,
	}
	if resolved != "" {
		t["resolved_at"] = resolved
	}
	return t
}

// fixture: group 10 has a 0.75 closure rate and 4h mean, group 20 has 0.25 and 1h.
func seedFixture(mock *testutil.MockFreshservice) {
	mock.SetAgents([]map[string]any{
		{"id": 1, "first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
		{"id": 2, "first_name": "Grace", "last_name": "Hopper", "email": "grace@example.com"},
	})
	mock.SetGroups([]map[string]any{
		{"id": 10, "name": "Service Desk"},
		{"id": 20, "name": "Network"},
	})

	fallback := ticket(4, 4, 10, nil, "2024-02-22T00:00:00Z", "")
	fallback["updated_at"] = "2024-02-22T06:00:00Z"
	noType := ticket(7, 6, 20, 2, "2024-02-24T00:00:00Z", "")
	noType["type"] = nil

	mock.SetTickets([]map[string]any{
		ticket(1, 5, 10, 1, "2024-02-20T08:00:00Z", "2024-02-20T12:00:00Z"),
		ticket(2, 4, 10, 2, "2024-02-21T08:00:00Z", "2024-02-21T10:00:00Z"),
		ticket(3, 2, 10, 1, "2024-02-21T09:00:00Z", ""),
		fallback,
		ticket(5, 5, 20, 2, "2024-02-23T00:00:00Z", "2024-02-23T01:00:00Z"),
		ticket(6, 3, 20, 2, "2024-02-23T05:00:00Z", ""),
		noType,
		ticket(8, 2, 20, 99, "2024-02-25T00:00:00Z", ""),
	})
}

func newTestService(t *testing.T, mock *testutil.MockFreshservice) (*Service, *testClock) {
	t.Helper()

	cfg := client.DefaultConfig("", "test-key")
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	require.NoError(t, err)

	clock := &testClock{now: testNow}
	collector := pagination.NewCollector(c)
	lookups := cache.New(cache.NewCollectorLoader(collector), cache.WithClock(clock.Now))
	return NewService(collector, lookups, WithClock(clock.Now)), clock
}

func filterQueries(mock *testutil.MockFreshservice) []string {
	var out []string
	for _, r := range mock.Requests() {
		if r.Path == "/tickets/filter" && r.Query.Get("page") == "1" {
			out = append(out, r.Query.Get("query"))
		}
	}
	return out
}

func requireValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	return vErr
}

func TestAgentLookup(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, clock := newTestService(t, mock)

	res, err := svc.AgentLookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cache.AgentInfo{Name: "Ada Lovelace", Email: "ada@example.com"}, res.Agents[1])
	assert.Equal(t, "Network", res.Groups[20])
	assert.Equal(t, 300, res.TTLSeconds)
	assert.False(t, res.StaleCache)

	clock.Advance(90 * time.Second)
	again, err := svc.AgentLookup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.CachedAt, again.CachedAt)
	assert.Equal(t, 90.0, again.CacheAgeSeconds)
	assert.Equal(t, 1, mock.RequestCount("/agents"))

	buf, err := json.Marshal(again)
	require.NoError(t, err)
	assert.Contains(t, string(buf), `"1":{"name":"Ada Lovelace","email":"ada@example.com"}`)
}

func TestSearchTicketsAll_Cap(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	mock.SetTickets(testutil.Tickets(150))
	svc, _ := newTestService(t, mock)

	limit := 100
	res, err := svc.SearchTicketsAll(context.Background(), SearchParams{Query: "priority:1", MaxResults: &limit})
	require.NoError(t, err)

	assert.Len(t, res.Tickets, 100)
	assert.Equal(t, 100, res.TotalFetched)
	assert.Equal(t, 4, res.PagesFetched)
	assert.True(t, res.Truncated)
	assert.Equal(t, []int{1, 2, 3, 4}, mock.PagesRequested("/tickets/filter"))
}

func TestSearchTicketsAll_DefaultLimitCollectsEverything(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	mock.SetTickets(testutil.Tickets(150))
	svc, _ := newTestService(t, mock)

	workspace := int64(2)
	res, err := svc.SearchTicketsAll(context.Background(), SearchParams{Query: "status:2", WorkspaceID: &workspace})
	require.NoError(t, err)

	assert.Equal(t, 150, res.TotalFetched)
	assert.Equal(t, 5, res.PagesFetched)
	assert.False(t, res.Truncated)

	reqs := mock.Requests()
	require.NotEmpty(t, reqs)
	assert.Equal(t, `"status:2"`, reqs[0].Query.Get("query"))
	assert.Equal(t, "2", reqs[0].Query.Get("workspace_id"))
}

func TestSearchTicketsAll_ClampsToCeiling(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	mock.SetTickets(testutil.Tickets(1050))
	svc, _ := newTestService(t, mock)

	limit := 5000
	res, err := svc.SearchTicketsAll(context.Background(), SearchParams{Query: "status:2", MaxResults: &limit})
	require.NoError(t, err)
	assert.Equal(t, MaxSearchLimit, res.TotalFetched)
	assert.True(t, res.Truncated)
}

func TestSearchTicketsAll_FieldProjection(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	mock.SetTickets(testutil.Tickets(3))
	svc, _ := newTestService(t, mock)

	res, err := svc.SearchTicketsAll(context.Background(), SearchParams{
		Query:  "status:2",
		Fields: []string{"id", "status", "not_a_field"},
	})
	require.NoError(t, err)
	require.Len(t, res.Tickets, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal(res.Tickets[0], &first))
	assert.Equal(t, map[string]any{"id": 1.0, "status": 2.0}, first)
}

func TestSearchTicketsAll_Validation(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	svc, _ := newTestService(t, mock)

	zero := 0
	_, err := svc.SearchTicketsAll(context.Background(), SearchParams{Query: "status:2", MaxResults: &zero})
	assert.Equal(t, "max_results", requireValidation(t, err).Field)

	_, err = svc.SearchTicketsAll(context.Background(), SearchParams{Query: "  "})
	assert.Equal(t, "query", requireValidation(t, err).Field)

	assert.Equal(t, 0, mock.RequestCount(""))
}

func TestTicketStats(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)

	res, err := svc.TicketStats(context.Background(), StatsFilter{GroupID: id64(10), CreatedAfter: "2024-02-01"})
	require.NoError(t, err)

	s := res.Stats
	assert.Equal(t, 4, s.TotalTickets)
	assert.Equal(t, map[string]int{"Closed": 1, "Resolved": 2, "Open": 1}, s.ByStatus)
	assert.Equal(t, map[string]int{"Low": 4}, s.ByPriority)
	assert.Equal(t, map[string]int{"Ada Lovelace": 2, "Grace Hopper": 1, "Unassigned": 1}, s.ByAgent)
	assert.Equal(t, map[string]int{"Incident": 4}, s.ByType)
	assert.Equal(t, 3, s.Resolution.Count)
	require.NotNil(t, s.Resolution.MeanHours)
	assert.Equal(t, 4.0, *s.Resolution.MeanHours)

	assert.Equal(t, []string{`"group_id:10 AND created_at:>'2024-02-01'"`}, filterQueries(mock))
	require.NotNil(t, res.DateRange.Start)
	assert.Equal(t, "2024-02-01", *res.DateRange.Start)
	assert.Nil(t, res.DateRange.End)
	assert.False(t, res.StaleCache)
	assert.Equal(t, "Service Desk", res.Filters["group_name"])
}

func TestTicketStats_GroupNameEcho(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)

	res, err := svc.TicketStats(context.Background(), StatsFilter{AgentID: id64(1)})
	require.NoError(t, err)
	assert.Nil(t, res.Filters["group_name"])

	res, err = svc.TicketStats(context.Background(), StatsFilter{GroupID: id64(404)})
	require.NoError(t, err)
	assert.Equal(t, "Group-404", res.Filters["group_name"])
}

func TestReversedDateRangeIsRejected(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	_, err := svc.TicketStats(ctx, StatsFilter{GroupID: id64(10), CreatedAfter: "2024-03-01", CreatedBefore: "2024-01-01"})
	assert.Equal(t, "created_after", requireValidation(t, err).Field)

	_, err = svc.CompareTeams(ctx, ComparisonParams{GroupIDs: []int64{10, 20}, CreatedAfter: "2024-03-01", CreatedBefore: "2024-01-01"})
	assert.Equal(t, "created_after", requireValidation(t, err).Field)

	_, err = svc.AgentWorkload(ctx, WorkloadFilter{GroupID: id64(10), CreatedAfter: "2024-03-01", CreatedBefore: "2024-01-01"})
	assert.Equal(t, "created_after", requireValidation(t, err).Field)

	// the open end of a workload range is now
	_, err = svc.AgentWorkload(ctx, WorkloadFilter{GroupID: id64(10), CreatedAfter: "2024-04-01"})
	requireValidation(t, err)

	// a range inside one day is fine
	_, err = svc.TicketStats(ctx, StatsFilter{GroupID: id64(10), CreatedAfter: "2024-02-01", CreatedBefore: "2024-02-01"})
	require.NoError(t, err)

	assert.Equal(t, 1, len(filterQueries(mock)))
}

func TestTicketStats_RequiresFilter(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	svc, _ := newTestService(t, mock)

	workspace := int64(1)
	_, err := svc.TicketStats(context.Background(), StatsFilter{WorkspaceID: &workspace})
	requireValidation(t, err)

	_, err = svc.TicketStats(context.Background(), StatsFilter{CreatedAfter: "last tuesday"})
	assert.Equal(t, "created_after", requireValidation(t, err).Field)

	assert.Equal(t, 0, mock.RequestCount(""))
}

func TestTicketStats_StaleLookup(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, clock := newTestService(t, mock)

	_, err := svc.AgentLookup(context.Background())
	require.NoError(t, err)

	mock.SetResponse("/agents", testutil.NewServerErrorResponse())
	clock.Advance(10 * time.Minute)

	res, err := svc.TicketStats(context.Background(), StatsFilter{GroupID: id64(10)})
	require.NoError(t, err)
	assert.True(t, res.StaleCache)
	assert.Equal(t, 2, res.Stats.ByAgent["Ada Lovelace"])
}

func TestTicketStats_UpstreamFailure(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	mock.SetResponse("/tickets/filter", testutil.NewServerErrorResponse())
	svc, _ := newTestService(t, mock)

	_, err := svc.TicketStats(context.Background(), StatsFilter{GroupID: id64(10)})
	require.Error(t, err)
	apiErr, ok := client.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestAgentWorkload_Group(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)

	res, err := svc.AgentWorkload(context.Background(), WorkloadFilter{GroupID: id64(10)})
	require.NoError(t, err)

	assert.Equal(t, 4, res.TotalTickets)
	assert.Equal(t, 1, res.UnassignedTickets)
	require.NotNil(t, res.GroupName)
	assert.Equal(t, "Service Desk", *res.GroupName)

	require.Len(t, res.Agents, 2)
	ada := res.Agents[0]
	assert.Equal(t, int64(1), ada.AgentID)
	assert.Equal(t, "Ada Lovelace", ada.AgentName)
	assert.Equal(t, 2, ada.TicketsAssigned)
	assert.Equal(t, 1, ada.TicketsClosed)
	assert.Equal(t, 1, ada.TicketsOpen)
	assert.Equal(t, []float64{4}, ada.ResolutionTimes)

	grace := res.Agents[1]
	assert.Equal(t, 1, grace.TicketsResolved)
	require.NotNil(t, grace.AvgResolutionHours)
	assert.Equal(t, 2.0, *grace.AvgResolutionHours)

	// default 30 day period ending now, rounded up to the next day
	assert.Equal(t, []string{`"group_id:10 AND created_at:>'2024-01-31' AND created_at:<'2024-03-02'"`}, filterQueries(mock))
	assert.Equal(t, "2024-01-31", *res.DateRange.Start)
	assert.Equal(t, "30d", res.Filters["period"])
}

func TestAgentWorkload_Agent(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)

	res, err := svc.AgentWorkload(context.Background(), WorkloadFilter{AgentID: id64(2), Period: "2w"})
	require.NoError(t, err)

	require.Len(t, res.Agents, 1)
	grace := res.Agents[0]
	assert.Equal(t, "grace@example.com", grace.Email)
	assert.Equal(t, 4, grace.TicketsAssigned)
	assert.Equal(t, 1, grace.TicketsResolved)
	assert.Equal(t, 1, grace.TicketsClosed)
	assert.Equal(t, 0, grace.TicketsOpen)
	assert.Equal(t, []float64{2, 1}, grace.ResolutionTimes)
	require.NotNil(t, grace.AvgResolutionHours)
	assert.Equal(t, 1.5, *grace.AvgResolutionHours)
	assert.Nil(t, res.GroupName)

	assert.Equal(t, []string{`"agent_id:2 AND created_at:>'2024-02-16' AND created_at:<'2024-03-02'"`}, filterQueries(mock))
}

func TestAgentWorkload_UnknownAgent(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)

	res, err := svc.AgentWorkload(context.Background(), WorkloadFilter{GroupID: id64(20)})
	require.NoError(t, err)

	var unknown *AgentLoad
	for i := range res.Agents {
		if res.Agents[i].AgentID == 99 {
			unknown = &res.Agents[i]
		}
	}
	require.NotNil(t, unknown)
	assert.Equal(t, "Agent-99", unknown.AgentName)
	assert.Equal(t, "unknown", unknown.Email)
	assert.Nil(t, unknown.AvgResolutionHours)
	assert.Equal(t, int64(2), res.Agents[0].AgentID, "busiest agent first")
}

func TestAgentWorkload_Validation(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	svc, _ := newTestService(t, mock)

	_, err := svc.AgentWorkload(context.Background(), WorkloadFilter{Period: "7d"})
	requireValidation(t, err)

	_, err = svc.AgentWorkload(context.Background(), WorkloadFilter{GroupID: id64(10), Period: "monthly"})
	assert.Equal(t, "period", requireValidation(t, err).Field)

	assert.Equal(t, 0, mock.RequestCount(""))
}

func TestCompareTeams(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	seedFixture(mock)
	svc, _ := newTestService(t, mock)

	res, err := svc.CompareTeams(context.Background(), ComparisonParams{GroupIDs: []int64{20, 10}})
	require.NoError(t, err)
	require.Len(t, res.Comparison, 2)

	network, desk := res.Comparison[0], res.Comparison[1]
	assert.Equal(t, "Network", network.GroupName)
	assert.Equal(t, 4, network.TotalTickets)
	assert.Equal(t, 1, network.ClosedTickets)
	assert.Equal(t, 0.25, network.ClosureRate)
	require.NotNil(t, network.AvgResolutionHours)
	assert.Equal(t, 1.0, *network.AvgResolutionHours)
	assert.Equal(t, map[string]int{"Closed": 1, "Pending": 1, "In Progress": 1, "Open": 1}, network.ByStatus)
	assert.Equal(t, []AgentCount{
		{AgentID: 2, AgentName: "Grace Hopper", TicketCount: 3},
		{AgentID: 99, AgentName: "Agent-99", TicketCount: 1},
	}, network.TopAgents)

	assert.Equal(t, "Service Desk", desk.GroupName)
	assert.Equal(t, 1, desk.OpenTickets)
	assert.Equal(t, 2, desk.ResolvedTickets)
	assert.Equal(t, 0.75, desk.ClosureRate)
	assert.Equal(t, 4.0, *desk.AvgResolutionHours)

	sum := res.Summary
	assert.Equal(t, 8, sum.TotalTicketsAllGroups)
	assert.Equal(t, 0.5, sum.AverageClosureRate)
	assert.Equal(t, int64(10), *sum.HighestVolume, "volume tie goes to the lower group id")
	assert.Equal(t, int64(10), *sum.HighestClosureRate)
	assert.Equal(t, int64(20), *sum.FastestResolution)

	assert.Equal(t, "2024-01-31", *res.DateRange.Start)
	assert.Equal(t, "2024-03-02", *res.DateRange.End)
	assert.Len(t, filterQueries(mock), 2)
}

func TestCompareTeams_EmptyGroupsHaveNoFastest(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	svc, _ := newTestService(t, mock)

	res, err := svc.CompareTeams(context.Background(), ComparisonParams{GroupIDs: []int64{3, 4}})
	require.NoError(t, err)

	assert.Equal(t, "Group-3", res.Comparison[0].GroupName)
	assert.Equal(t, 0.0, res.Comparison[0].ClosureRate)
	assert.Nil(t, res.Comparison[0].AvgResolutionHours)
	assert.NotNil(t, res.Comparison[0].TopAgents)
	assert.Nil(t, res.Summary.FastestResolution)
	assert.Equal(t, int64(3), *res.Summary.HighestVolume)
}

func TestCompareTeams_Validation(t *testing.T) {
	mock := testutil.NewMockFreshservice()
	defer mock.Close()
	svc, _ := newTestService(t, mock)

	eleven := make([]int64, 11)
	for i := range eleven {
		eleven[i] = int64(i + 1)
	}

	tests := []struct {
		name   string
		params ComparisonParams
	}{
		{"one group", ComparisonParams{GroupIDs: []int64{1}}},
		{"eleven groups", ComparisonParams{GroupIDs: eleven}},
		{"duplicates", ComparisonParams{GroupIDs: []int64{1, 1}}},
		{"bad date", ComparisonParams{GroupIDs: []int64{1, 2}, CreatedBefore: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CompareTeams(context.Background(), tt.params)
			requireValidation(t, err)
		})
	}

	assert.Equal(t, 0, mock.RequestCount(""), "validation must happen before any request")
}
