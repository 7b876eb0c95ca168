package tools

import (
	"context"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
)

// WorkspaceTools returns the workspace tools.
func WorkspaceTools(c *client.Client) []Tool {
	return []Tool{
		{
			Name:        "list_all_workspaces",
			Description: "List workspaces.",
			Schema:      schema(),
			Handler: func(ctx context.Context, _ Args) Result {
				return getJSON(ctx, c, "/workspaces", nil)
			},
		},
		{
			Name:        "get_workspace",
			Description: "Fetch one workspace.",
			Schema:      schema(integer("workspace_id", "Workspace id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("workspace_id")
				return getJSON(ctx, c, idPath("/workspaces", id), nil)
			},
		},
	}
}
