// Package testutil provides testing utilities for the Freshservice client.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path prefix of the Freshservice v2 API.
const APIPrefix = "/api/v2"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is a request seen by the mock server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// MockFreshservice is a configurable mock Freshservice server for testing.
// Tickets, agents and groups are served page by page like the real API:
// plain listings honor per_page, /tickets/filter is fixed at 30 per page
// and understands group_id:<n> and agent_id:<n> terms.
type MockFreshservice struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	tickets []map[string]any
	agents  []map[string]any
	groups  []map[string]any

	// LinkHints controls whether rel="next" Link headers are sent.
	LinkHints bool

	requests []RecordedRequest
}

// NewMockFreshservice creates a new mock Freshservice server.
func NewMockFreshservice() *MockFreshservice {
	mock := &MockFreshservice{
		handlers:  make(map[string]http.HandlerFunc),
		LinkHints: true,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.Path, APIPrefix),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
		}
		if r.Body != nil {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
			rec.Body = body
		}

		mock.mu.Lock()
		mock.requests = append(mock.requests, rec)
		handler, exists := mock.handlers[rec.Method+" "+rec.Path]
		if !exists {
			handler, exists = mock.handlers[rec.Path]
		}
		mock.mu.Unlock()

		w.Header().Set("X-Ratelimit-Total", "140")
		w.Header().Set("X-Ratelimit-Remaining", "139")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r, rec.Path)
	}))

	return mock
}

// URL returns the API root of the mock server (".../api/v2").
func (m *MockFreshservice) URL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockFreshservice) Close() {
	m.server.Close()
}

// Reset clears recorded requests.
func (m *MockFreshservice) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
}

// SetTickets replaces the ticket data set.
func (m *MockFreshservice) SetTickets(tickets []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = tickets
}

// SetAgents replaces the agent data set.
func (m *MockFreshservice) SetAgents(agents []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agents = agents
}

// SetGroups replaces the group data set.
func (m *MockFreshservice) SetGroups(groups []map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = groups
}

// SetHandler sets a custom handler for a path relative to /api/v2.
// The key may be prefixed with a method, e.g. "POST /tickets".
func (m *MockFreshservice) SetHandler(key string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockFreshservice) SetResponse(key string, resp MockResponse) {
	m.SetHandler(key, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// Requests returns a copy of the recorded requests.
func (m *MockFreshservice) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests made to path ("" for all).
func (m *MockFreshservice) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return len(m.requests)
	}
	n := 0
	for _, r := range m.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// PagesRequested returns the page numbers requested for path, in order.
func (m *MockFreshservice) PagesRequested(path string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pages []int
	for _, r := range m.requests {
		if r.Path != path {
			continue
		}
		p, _ := strconv.Atoi(r.Query.Get("page"))
		pages = append(pages, p)
	}
	return pages
}

func (m *MockFreshservice) defaultHandler(w http.ResponseWriter, r *http.Request, path string) {
	m.mu.RLock()
	tickets, agents, groups := m.tickets, m.agents, m.groups
	m.mu.RUnlock()

	switch path {
	case "/tickets":
		m.servePage(w, r, "tickets", tickets, perPage(r, 30))
	case "/tickets/filter":
		filtered := filterTickets(tickets, strings.Trim(r.URL.Query().Get("query"), `"`))
		m.servePage(w, r, "tickets", filtered, 30)
	case "/agents":
		m.servePage(w, r, "agents", agents, perPage(r, 30))
	case "/groups":
		m.servePage(w, r, "groups", groups, perPage(r, 30))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"description":"Resource not found","errors":[]}`))
	}
}

func (m *MockFreshservice) servePage(w http.ResponseWriter, r *http.Request, key string, items []map[string]any, size int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	chunk := items[start:end]
	if chunk == nil {
		chunk = []map[string]any{}
	}

	if m.LinkHints && end < len(items) {
		next := *r.URL
		q := next.Query()
		q.Set("page", strconv.Itoa(page+1))
		next.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<http://%s%s>; rel="next"`, r.Host, next.RequestURI()))
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{key: chunk})
}

func perPage(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || n < 1 {
		return def
	}
	return n
}

var filterTerm = regexp.MustCompile(`(group_id|agent_id):(\d+)`)

// filterTickets applies group_id and agent_id terms; other terms match all.
func filterTickets(tickets []map[string]any, query string) []map[string]any {
	terms := filterTerm.FindAllStringSubmatch(query, -1)
	if len(terms) == 0 {
		return tickets
	}

	var out []map[string]any
	for _, t := range tickets {
		match := true
		for _, term := range terms {
			field := term[1]
			if field == "agent_id" {
				field = "responder_id"
			}
			want, _ := strconv.ParseInt(term[2], 10, 64)
			if !numberEquals(t[field], want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, t)
		}
	}
	return out
}

func numberEquals(v any, want int64) bool {
	switch n := v.(type) {
	case int:
		return int64(n) == want
	case int64:
		return n == want
	case float64:
		return int64(n) == want
	default:
		return false
	}
}

// Tickets generates n tickets with ids 1..n, cycling through statuses
// Open, Pending, Resolved and Closed.
func Tickets(n int) []map[string]any {
	statuses := []int{2, 3, 4, 5}
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		created := base.Add(time.Duration(i) * time.Hour)
		t := map[string]any{
			"id":         i,
			"subject":    fmt.Sprintf("Ticket %d", i),
			"status":     statuses[(i-1)%len(statuses)],
			"priority":   (i-1)%4 + 1,
			"type":       "Incident",
			"created_at": created.Format(time.RFC3339),
			"updated_at": created.Add(2 * time.Hour).Format(time.RFC3339),
		}
		out = append(out, t)
	}
	return out
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"description":"You have exceeded the limit of requests per minute"}`,
		Headers: map[string]string{
			"Retry-After":           strconv.Itoa(retryAfter),
			"X-Ratelimit-Remaining": "0",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"description":"Internal server error"}`,
	}
}

// NewNotFoundResponse creates a 404 response with a Freshservice error body.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"description":"Resource not found","errors":[]}`,
	}
}
