package tools

import (
	"context"
	"net/url"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
)

// AssetTools returns the asset tools.
func AssetTools(c *client.Client) []Tool {
	return []Tool{
		{
			Name:        "get_assets",
			Description: "List assets one page at a time.",
			Schema: schema(append(pageFields(),
				boolean("include_type_fields", "Include asset type specific fields"),
				integer("workspace_id", "Restrict to a workspace"),
			)...),
			Handler: func(ctx context.Context, args Args) Result {
				q := workspaceQuery(args)
				if include, _ := args.Bool("include_type_fields"); include {
					if q == nil {
						q = url.Values{}
					}
					q.Set("include", "type_fields")
				}
				return listPage(ctx, c, "/assets", "assets", args, q)
			},
		},
		{
			Name:        "get_asset_by_id",
			Description: "Fetch one asset by its display id.",
			Schema:      schema(integer("display_id", "Asset display id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("display_id")
				return getJSON(ctx, c, idPath("/assets", id), nil)
			},
		},
		{
			Name: "search_assets",
			Description: "Search assets, e.g. name:'laptop' or serial_number:'ABC123'. " +
				"Returns one page.",
			Schema: schema(append(pageFields(),
				str("search", "Asset search expression").req(),
			)...),
			Handler: func(ctx context.Context, args Args) Result {
				q := url.Values{"search": {`"` + args.StringOr("search", "") + `"`}}
				return listPage(ctx, c, "/assets", "assets", args, q)
			},
		},
	}
}
