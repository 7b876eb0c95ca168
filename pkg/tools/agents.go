package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
)

// AgentTools returns the agent and agent group tools.
func AgentTools(c *client.Client, collector *pagination.Collector) []Tool {
	return []Tool{
		{
			Name:        "get_agent",
			Description: "Fetch one agent.",
			Schema:      schema(integer("agent_id", "Agent id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("agent_id")
				return getJSON(ctx, c, idPath("/agents", id), nil)
			},
		},
		{
			Name:        "get_all_agents",
			Description: "List agents one page at a time.",
			Schema:      schema(pageFields()...),
			Handler: func(ctx context.Context, args Args) Result {
				return listPage(ctx, c, "/agents", "agents", args, nil)
			},
		},
		{
			Name: "filter_agents",
			Description: "Return every agent matching a filter expression, " +
				"e.g. department_id:5 AND active:true. Follows all pages.",
			Schema: schema(str("query", "Freshservice agent filter expression").req()),
			Handler: func(ctx context.Context, args Args) Result {
				query := strings.TrimSpace(args.StringOr("query", ""))
				if query == "" {
					return Invalid("query must not be empty")
				}
				res, err := collector.Collect(ctx, pagination.Request{
					Collection: "agents",
					Key:        "agents",
					Query:      query,
				}, pagination.Options{})
				if err != nil {
					return FromError(err)
				}
				agents := res.Items
				if agents == nil {
					agents = []json.RawMessage{}
				}
				return OK(map[string]any{
					"agents":        agents,
					"total_fetched": res.TotalFetched,
					"pages_fetched": res.PagesFetched,
				})
			},
		},
		{
			Name:        "get_agent_fields",
			Description: "List agent fields.",
			Schema:      schema(),
			Handler: func(ctx context.Context, _ Args) Result {
				return getJSON(ctx, c, "/agent_fields", nil)
			},
		},
		{
			Name:        "get_all_agent_groups",
			Description: "List agent groups one page at a time.",
			Schema:      schema(pageFields()...),
			Handler: func(ctx context.Context, args Args) Result {
				return listPage(ctx, c, "/groups", "groups", args, nil)
			},
		},
		{
			Name:        "get_agent_group_by_id",
			Description: "Fetch one agent group.",
			Schema:      schema(integer("group_id", "Agent group id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("group_id")
				return getJSON(ctx, c, idPath("/groups", id), nil)
			},
		},
	}
}
