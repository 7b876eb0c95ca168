package tools

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
)

// ChangeStatusClosed is the Freshservice status code of a closed change.
const ChangeStatusClosed = 6

// ChangeTools returns the change management tools.
func ChangeTools(c *client.Client) []Tool {
	return []Tool{
		{
			Name:        "get_changes",
			Description: "List changes one page at a time, optionally filtered, viewed or sorted.",
			Schema: schema(append(pageFields(),
				str("query", "Filter expression, e.g. status:<6 AND priority:4 (not combinable with view)"),
				str("view", "View name or id, e.g. my_open"),
				str("sort", "Sort field, e.g. created_at"),
				str("order_by", "asc or desc"),
				str("updated_since", "Only changes updated since this ISO timestamp"),
				integer("workspace_id", "Restrict to a workspace (0 for all)"),
			)...),
			Handler: func(ctx context.Context, args Args) Result {
				if args.Has("query") && args.Has("view") {
					return Invalid("query and view cannot be used together")
				}
				return listPage(ctx, c, "/changes", "changes", args, changeQuery(args))
			},
		},
		{
			Name:        "filter_changes",
			Description: "List changes matching a filter expression, e.g. approval_status:1 AND status:3.",
			Schema: schema(append(pageFields(),
				str("query", "Filter expression").req(),
				str("sort", "Sort field"),
				str("order_by", "asc or desc"),
				integer("workspace_id", "Restrict to a workspace (0 for all)"),
			)...),
			Handler: func(ctx context.Context, args Args) Result {
				return listPage(ctx, c, "/changes", "changes", args, changeQuery(args))
			},
		},
		{
			Name:        "get_change_by_id",
			Description: "Fetch one change.",
			Schema:      schema(integer("change_id", "Change id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				return getJSON(ctx, c, idPath("/changes", id), nil)
			},
		},
		{
			Name:        "create_change",
			Description: "Create a change request.",
			Schema: schema(
				integer("requester_id", "Requester id").req(),
				str("subject", "Change subject").req(),
				str("description", "HTML description").req(),
				integer("priority", "1 Low, 2 Medium, 3 High, 4 Urgent").enum(1, 2, 3, 4).req(),
				integer("impact", "1 Low, 2 Medium, 3 High").enum(1, 2, 3).req(),
				integer("status", "1 Open, 2 Planning, 3 Awaiting Approval, 4 Pending Release, 5 Pending Review, 6 Closed").enum(1, 2, 3, 4, 5, 6).req(),
				integer("risk", "1 Low, 2 Medium, 3 High, 4 Very High").enum(1, 2, 3, 4).req(),
				integer("change_type", "1 Minor, 2 Standard, 3 Major, 4 Emergency").enum(1, 2, 3, 4).req(),
				integer("group_id", "Agent group id"),
				integer("agent_id", "Assigned agent id"),
				integer("department_id", "Department id"),
				str("planned_start_date", "ISO timestamp"),
				str("planned_end_date", "ISO timestamp"),
				str("reason_for_change", "Planning: reason for change"),
				str("change_impact", "Planning: impact"),
				str("rollout_plan", "Planning: rollout plan"),
				str("backout_plan", "Planning: backout plan"),
				object("custom_fields", "Custom field values by name"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				body := pick(args, "requester_id", "subject", "description", "priority", "impact",
					"status", "risk", "change_type", "group_id", "agent_id", "department_id",
					"planned_start_date", "planned_end_date", "custom_fields")
				if planning := planningFields(args); len(planning) > 0 {
					body["planning_fields"] = planning
				}
				return sendJSON(ctx, c, http.MethodPost, "/changes", body)
			},
		},
		{
			Name:        "update_change",
			Description: "Update fields of a change.",
			Schema: schema(
				integer("change_id", "Change id").req(),
				object("change_fields", "Fields to change").req(),
			),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				fields := args.Object("change_fields")
				if len(fields) == 0 {
					return Invalid("change_fields must not be empty")
				}
				return sendJSON(ctx, c, http.MethodPut, idPath("/changes", id), fields)
			},
		},
		{
			Name:        "close_change",
			Description: "Close a change and record the result explanation.",
			Schema: schema(
				integer("change_id", "Change id").req(),
				str("change_result_explanation", "What happened").req(),
				object("custom_fields", "Additional custom field values"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				return sendJSON(ctx, c, http.MethodPut, idPath("/changes", id), closeChangeBody(args))
			},
		},
		{
			Name:        "delete_change",
			Description: "Delete a change.",
			Schema:      schema(integer("change_id", "Change id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				return deleted(ctx, c, idPath("/changes", id), "Change")
			},
		},
		{
			Name:        "list_change_notes",
			Description: "List the notes on a change.",
			Schema:      schema(integer("change_id", "Change id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				return getJSON(ctx, c, idPath("/changes", id)+"/notes", nil)
			},
		},
		{
			Name:        "create_change_note",
			Description: "Add a note to a change.",
			Schema: schema(
				integer("change_id", "Change id").req(),
				str("body", "HTML note body").req(),
			),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				body := map[string]any{"body": args.StringOr("body", "")}
				return sendJSON(ctx, c, http.MethodPost, idPath("/changes", id)+"/notes", body)
			},
		},
		{
			Name:        "get_change_tasks",
			Description: "List the tasks of a change.",
			Schema:      schema(integer("change_id", "Change id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("change_id")
				return getJSON(ctx, c, idPath("/changes", id)+"/tasks", nil)
			},
		},
	}
}

func changeQuery(args Args) url.Values {
	q := url.Values{}
	if s, ok := args.String("query"); ok && s != "" {
		q.Set("query", `"`+s+`"`)
	}
	for _, name := range []string{"view", "sort", "order_by", "updated_since"} {
		if s, ok := args.String(name); ok && s != "" {
			q.Set(name, s)
		}
	}
	for k, v := range workspaceQuery(args) {
		q[k] = v
	}
	return q
}

func planningFields(args Args) map[string]any {
	out := map[string]any{}
	for _, name := range []string{"reason_for_change", "change_impact", "rollout_plan", "backout_plan"} {
		if s, ok := args.String(name); ok && s != "" {
			out[name] = map[string]any{"description": s}
		}
	}
	return out
}

// closeChangeBody sets the closed status and merges the result explanation
// into any extra custom fields.
func closeChangeBody(args Args) map[string]any {
	custom := map[string]any{}
	for k, v := range args.Object("custom_fields") {
		custom[k] = v
	}
	custom["change_result_explanation"] = args.StringOr("change_result_explanation", "")
	return map[string]any{
		"status":        ChangeStatusClosed,
		"custom_fields": custom,
	}
}
