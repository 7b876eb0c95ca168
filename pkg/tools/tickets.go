package tools

import (
	"context"
	"net/http"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
)

// TicketTools returns the ticket tools.
func TicketTools(c *client.Client) []Tool {
	return []Tool{
		{
			Name:        "get_tickets",
			Description: "List tickets one page at a time.",
			Schema: schema(append(pageFields(),
				integer("workspace_id", "Restrict to a workspace"),
			)...),
			Handler: func(ctx context.Context, args Args) Result {
				return listPage(ctx, c, "/tickets", "tickets", args, workspaceQuery(args))
			},
		},
		{
			Name:        "get_ticket_by_id",
			Description: "Fetch one ticket.",
			Schema:      schema(integer("ticket_id", "Ticket id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("ticket_id")
				return getJSON(ctx, c, idPath("/tickets", id), nil)
			},
		},
		{
			Name:        "filter_tickets",
			Description: "Run one page of a ticket filter query, e.g. status:2 AND priority:3.",
			Schema: schema(
				str("query", "Freshservice filter expression").req(),
				integer("page", "Page number (starts at 1)").min(1),
				integer("workspace_id", "Restrict to a workspace"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				return filterPage(ctx, c, "/tickets/filter", "tickets", args.StringOr("query", ""), args, workspaceQuery(args))
			},
		},
		{
			Name:        "create_ticket",
			Description: "Create a ticket. Either email or requester_id is required.",
			Schema: schema(
				str("subject", "Ticket subject").req(),
				str("description", "HTML description").req(),
				integer("source", "1 Email, 2 Portal, 3 Phone, 4 Chat, 5 Feedback widget, 6 Yammer, 7 AWS Cloudwatch, 8 Pagerduty, 9 Walkup, 10 Slack").min(1).max(10).req(),
				integer("priority", "1 Low, 2 Medium, 3 High, 4 Urgent").enum(1, 2, 3, 4).req(),
				integer("status", "2 Open, 3 Pending, 4 Resolved, 5 Closed").enum(2, 3, 4, 5).req(),
				str("email", "Requester email"),
				integer("requester_id", "Requester id"),
				integer("group_id", "Agent group id"),
				integer("responder_id", "Assigned agent id"),
				integer("workspace_id", "Workspace id"),
				object("custom_fields", "Custom field values by name"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				if !args.Has("email") && !args.Has("requester_id") {
					return Invalid("either email or requester_id must be provided")
				}
				body := pick(args, "subject", "description", "source", "priority", "status",
					"email", "requester_id", "group_id", "responder_id", "workspace_id", "custom_fields")
				return sendJSON(ctx, c, http.MethodPost, "/tickets", body)
			},
		},
		{
			Name:        "update_ticket",
			Description: "Update fields of a ticket.",
			Schema: schema(
				integer("ticket_id", "Ticket id").req(),
				object("ticket_fields", "Fields to change, e.g. {\"status\": 4}").req(),
			),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("ticket_id")
				fields := args.Object("ticket_fields")
				if len(fields) == 0 {
					return Invalid("ticket_fields must not be empty")
				}
				return sendJSON(ctx, c, http.MethodPut, idPath("/tickets", id), fields)
			},
		},
		{
			Name:        "delete_ticket",
			Description: "Delete a ticket.",
			Schema:      schema(integer("ticket_id", "Ticket id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("ticket_id")
				return deleted(ctx, c, idPath("/tickets", id), "Ticket")
			},
		},
		{
			Name:        "create_ticket_note",
			Description: "Add a note to a ticket. Notes are private unless private is false.",
			Schema: schema(
				integer("ticket_id", "Ticket id").req(),
				str("body", "HTML note body").req(),
				boolean("private", "Hide the note from the requester (default true)"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("ticket_id")
				private := true
				if v, ok := args.Bool("private"); ok {
					private = v
				}
				body := map[string]any{"body": args.StringOr("body", ""), "private": private}
				return sendJSON(ctx, c, http.MethodPost, idPath("/tickets", id)+"/notes", body)
			},
		},
		{
			Name:        "send_ticket_reply",
			Description: "Send a public reply on a ticket.",
			Schema: schema(
				integer("ticket_id", "Ticket id").req(),
				str("body", "HTML reply body").req(),
				str("from_email", "Sender address"),
				integer("user_id", "Sending agent id"),
				strArray("cc_emails", "CC addresses"),
				strArray("bcc_emails", "BCC addresses"),
			),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("ticket_id")
				body := pick(args, "body", "from_email", "user_id", "cc_emails", "bcc_emails")
				return sendJSON(ctx, c, http.MethodPost, idPath("/tickets", id)+"/reply", body)
			},
		},
		{
			Name:        "list_ticket_conversations",
			Description: "List replies and notes on a ticket.",
			Schema:      schema(integer("ticket_id", "Ticket id").req()),
			Handler: func(ctx context.Context, args Args) Result {
				id, _ := args.Int("ticket_id")
				return getJSON(ctx, c, idPath("/tickets", id)+"/conversations", nil)
			},
		},
		{
			Name:        "get_ticket_fields",
			Description: "List ticket form fields, including custom fields and their choices.",
			Schema:      schema(integer("workspace_id", "Restrict to a workspace")),
			Handler: func(ctx context.Context, args Args) Result {
				return getJSON(ctx, c, "/ticket_form_fields", workspaceQuery(args))
			},
		},
	}
}

// pick copies the named arguments that are present into a request body.
func pick(args Args, names ...string) map[string]any {
	body := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := args[name]; ok && v != nil {
			body[name] = v
		}
	}
	return body
}
