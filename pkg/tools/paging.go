package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
)

const defaultPerPage = 30

// Paging is the pagination block returned by paged list tools.
type Paging struct {
	CurrentPage int64 `json:"current_page"`
	NextPage    *int  `json:"next_page"`
	PrevPage    *int  `json:"prev_page"`
	PerPage     int64 `json:"per_page"`
}

func pageFields() []field {
	return []field{
		integer("page", "Page number (starts at 1)").min(1),
		integer("per_page", "Items per page (1-100, default 30)").min(1).max(100),
	}
}

// listPage fetches one page of a collection and reports Link-header paging.
func listPage(ctx context.Context, c *client.Client, path, key string, args Args, extra url.Values) Result {
	page := args.IntOr("page", 1)
	perPage := args.IntOr("per_page", defaultPerPage)
	if page < 1 {
		return Invalid("page must be at least 1")
	}
	if perPage < 1 || perPage > 100 {
		return Invalid("per_page must be between 1 and 100")
	}

	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("page", strconv.FormatInt(page, 10))
	q.Set("per_page", strconv.FormatInt(perPage, 10))

	return pagedGet(ctx, c, path, key, q, page, perPage)
}

// filterPage runs one page of a Freshservice filter query.
func filterPage(ctx context.Context, c *client.Client, path, key, query string, args Args, extra url.Values) Result {
	page := args.IntOr("page", 1)
	if page < 1 {
		return Invalid("page must be at least 1")
	}

	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("query", `"`+query+`"`)
	q.Set("page", strconv.FormatInt(page, 10))

	return pagedGet(ctx, c, path, key, q, page, pagination.PageSize)
}

func pagedGet(ctx context.Context, c *client.Client, path, key string, q url.Values, page, perPage int64) Result {
	resp, err := c.Get(ctx, path, q)
	if err != nil {
		return FromError(err)
	}

	var envelope map[string]json.RawMessage
	if err := resp.Decode(&envelope); err != nil {
		return Fail(KindInternal, err)
	}
	items, ok := envelope[key]
	if !ok || string(items) == "null" {
		items = json.RawMessage("[]")
	}

	links := pagination.ParseLink(resp.Header.Get("Link"))
	out := map[string]any{
		key: items,
		"pagination": Paging{
			CurrentPage: page,
			NextPage:    pageRef(links.Next),
			PrevPage:    pageRef(links.Prev),
			PerPage:     perPage,
		},
	}
	if total, ok := envelope["total"]; ok {
		out["total"] = total
	}
	return OK(out)
}

func pageRef(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// getJSON returns the raw upstream document of a GET.
func getJSON(ctx context.Context, c *client.Client, path string, q url.Values) Result {
	resp, err := c.Get(ctx, path, q)
	if err != nil {
		return FromError(err)
	}
	return OK(resp.JSON())
}

// sendJSON performs a write and returns the upstream document.
func sendJSON(ctx context.Context, c *client.Client, method, path string, body any) Result {
	resp, err := c.Do(ctx, method, path, nil, body)
	if err != nil {
		return FromError(err)
	}
	return OK(resp.JSON())
}

// deleted performs a DELETE and reports it.
func deleted(ctx context.Context, c *client.Client, path, what string) Result {
	if _, err := c.Delete(ctx, path); err != nil {
		return FromError(err)
	}
	return OK(map[string]any{"message": what + " deleted successfully"})
}

func idPath(format string, id int64) string {
	return format + "/" + strconv.FormatInt(id, 10)
}

func workspaceQuery(args Args) url.Values {
	if id, ok := args.Int("workspace_id"); ok {
		return url.Values{"workspace_id": {strconv.FormatInt(id, 10)}}
	}
	return nil
}
