package tools

import (
	"context"

	"github.com/Sternrassler/freshservice-mcp/pkg/analytics"
)

const dateBoundHelp = "YYYY-MM-DD, RFC 3339 timestamp, or relative like 7d / 2w"

// AnalyticsTools returns the analytics tools backed by svc.
func AnalyticsTools(svc *analytics.Service) []Tool {
	return []Tool{
		{
			Name: "get_agent_lookup",
			Description: "Return the cached agent and group directory (id to name/email). " +
				"Refreshed at most every few minutes; stale_cache is set when the last refresh failed.",
			Schema: schema(),
			Handler: func(ctx context.Context, _ Args) Result {
				res, err := svc.AgentLookup(ctx)
				if err != nil {
					return FromError(err)
				}
				return OK(res)
			},
		},
		{
			Name: "search_tickets_all",
			Description: "Run a ticket filter query and follow every page up to max_results " +
				"(default 500, at most 1000). Sets truncated when the cap was reached.",
			Schema: schema(
				str("query", "Freshservice filter expression, e.g. priority:4 AND status:2").req(),
				integer("max_results", "Maximum tickets to return (default 500, clamped to 1000)").min(1),
				strArray("fields", "Only return these ticket fields"),
				integer("workspace_id", "Restrict to a workspace"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				params := analytics.SearchParams{
					Query:       args.StringOr("query", ""),
					Fields:      args.Strings("fields"),
					WorkspaceID: args.IntPtr("workspace_id"),
				}
				if n, ok := args.Int("max_results"); ok {
					limit := int(n)
					params.MaxResults = &limit
				}
				res, err := svc.SearchTicketsAll(ctx, params)
				if err != nil {
					return FromError(err)
				}
				return OK(res)
			},
		},
		{
			Name: "get_ticket_stats",
			Description: "Aggregate every ticket matching the filters into counts by status, " +
				"priority, agent and type plus mean resolution time.",
			Schema: schema(
				integer("group_id", "Agent group id"),
				integer("agent_id", "Assigned agent id"),
				str("created_after", "Lower creation bound: "+dateBoundHelp),
				str("created_before", "Upper creation bound: "+dateBoundHelp),
				integer("workspace_id", "Restrict to a workspace"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				res, err := svc.TicketStats(ctx, analytics.StatsFilter{
					GroupID:       args.IntPtr("group_id"),
					AgentID:       args.IntPtr("agent_id"),
					CreatedAfter:  args.StringOr("created_after", ""),
					CreatedBefore: args.StringOr("created_before", ""),
					WorkspaceID:   args.IntPtr("workspace_id"),
				})
				if err != nil {
					return FromError(err)
				}
				return OK(res)
			},
		},
		{
			Name: "get_agent_workload",
			Description: "Per-agent assigned, resolved, closed and open ticket counts with " +
				"resolution times, for one agent or a whole group.",
			Schema: schema(
				integer("agent_id", "Agent id"),
				integer("group_id", "Agent group id"),
				str("period", "Relative window such as 7d, 30d or 4w (default 30d)"),
				str("created_after", "Lower creation bound, overrides period: "+dateBoundHelp),
				str("created_before", "Upper creation bound: "+dateBoundHelp),
				integer("workspace_id", "Restrict to a workspace"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				res, err := svc.AgentWorkload(ctx, analytics.WorkloadFilter{
					AgentID:       args.IntPtr("agent_id"),
					GroupID:       args.IntPtr("group_id"),
					Period:        args.StringOr("period", ""),
					CreatedAfter:  args.StringOr("created_after", ""),
					CreatedBefore: args.StringOr("created_before", ""),
					WorkspaceID:   args.IntPtr("workspace_id"),
				})
				if err != nil {
					return FromError(err)
				}
				return OK(res)
			},
		},
		{
			Name: "get_team_comparison",
			Description: "Compare 2 to 10 agent groups on volume, closure rate, resolution " +
				"time and top agents over a date range (default last 30 days).",
			Schema: schema(
				intArray("group_ids", "Agent group ids to compare").req(),
				str("created_after", "Lower creation bound: "+dateBoundHelp),
				str("created_before", "Upper creation bound: "+dateBoundHelp),
			),
			Handler: func(ctx context.Context, args Args) Result {
				ids, err := args.Ints("group_ids")
				if err != nil {
					return Invalid("group_ids: %v", err)
				}
				res, err := svc.CompareTeams(ctx, analytics.ComparisonParams{
					GroupIDs:      ids,
					CreatedAfter:  args.StringOr("created_after", ""),
					CreatedBefore: args.StringOr("created_before", ""),
				})
				if err != nil {
					return FromError(err)
				}
				return OK(res)
			},
		},
	}
}
