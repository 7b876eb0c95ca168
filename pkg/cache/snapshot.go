package cache

import (
	"time"
)

// AgentInfo is the cached identity of an agent.
type AgentInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot is one consistent copy of the reference data. A snapshot is never
// modified after it has been stored in the cache.
type Snapshot struct {
	Agents    map[int64]AgentInfo
	Groups    map[int64]string
	FetchedAt time.Time
}

// Lookup is a read-only view of a snapshot handed to callers.
type Lookup struct {
	snapshot *Snapshot

	// Stale is set when the snapshot is past its TTL because a refresh failed.
	Stale bool

	// Age is how old the snapshot was when it was resolved.
	Age time.Duration

	// TTL is the configured snapshot lifetime.
	TTL time.Duration
}

// AgentName returns the display name of an agent.
func (l *Lookup) AgentName(id int64) (string, bool) {
	a, ok := l.snapshot.Agents[id]
	return a.Name, ok
}

// AgentEmail returns the email of an agent, or "".
func (l *Lookup) AgentEmail(id int64) string {
	return l.snapshot.Agents[id].Email
}

// GroupName returns the name of a group.
func (l *Lookup) GroupName(id int64) (string, bool) {
	name, ok := l.snapshot.Groups[id]
	return name, ok
}

// CachedAt returns when the snapshot was fetched.
func (l *Lookup) CachedAt() time.Time {
	return l.snapshot.FetchedAt
}

// Agents returns the agent table. Callers must not modify it.
func (l *Lookup) Agents() map[int64]AgentInfo {
	return l.snapshot.Agents
}

// Groups returns the group table. Callers must not modify it.
func (l *Lookup) Groups() map[int64]string {
	return l.snapshot.Groups
}
