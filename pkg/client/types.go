package client

import (
	"fmt"
	"strings"
)

// Freshservice ticket status codes.
const (
	StatusOpen     = 2
	StatusPending  = 3
	StatusResolved = 4
	StatusClosed   = 5
)

// Ticket is the subset of a Freshservice ticket used by analytics.
// Timestamps stay raw so a malformed value only drops out of resolution
// statistics instead of failing the whole page.
type Ticket struct {
	ID          int64        `json:"id"`
	Subject     string       `json:"subject,omitempty"`
	Status      int          `json:"status"`
	Priority    int          `json:"priority"`
	Type        string       `json:"type"`
	ResponderID *int64       `json:"responder_id"`
	GroupID     *int64       `json:"group_id"`
	WorkspaceID *int64       `json:"workspace_id,omitempty"`
	CreatedAt   string       `json:"created_at"`
	UpdatedAt   string       `json:"updated_at"`
	ResolvedAt  string       `json:"resolved_at,omitempty"`
	Stats       *TicketStats `json:"stats,omitempty"`
}

// TicketStats holds the lifecycle timestamps returned with include=stats.
type TicketStats struct {
	ResolvedAt string `json:"resolved_at,omitempty"`
	ClosedAt   string `json:"closed_at,omitempty"`
}

// IsResolved reports whether the ticket is in the Resolved or Closed state.
func (t Ticket) IsResolved() bool {
	return t.Status == StatusResolved || t.Status == StatusClosed
}

// ResolutionTimestamp returns the raw resolution time of the ticket, or "".
// Tickets that were resolved without a recorded resolved_at fall back to
// their last update.
func (t Ticket) ResolutionTimestamp() string {
	if t.ResolvedAt != "" {
		return t.ResolvedAt
	}
	if t.Stats != nil && t.Stats.ResolvedAt != "" {
		return t.Stats.ResolvedAt
	}
	if t.IsResolved() {
		return t.UpdatedAt
	}
	return ""
}

// Agent is a Freshservice agent.
type Agent struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// DisplayName returns "first last", or the email when both are empty.
func (a Agent) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Email
	}
	return name
}

// Group is a Freshservice agent group.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DisplayName returns the group name, or Group-<id> when it is empty.
func (g Group) DisplayName() string {
	if g.Name == "" {
		return fmt.Sprintf("Group-%d", g.ID)
	}
	return g.Name
}
