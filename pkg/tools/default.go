package tools

import (
	"github.com/Sternrassler/freshservice-mcp/pkg/analytics"
	"github.com/Sternrassler/freshservice-mcp/pkg/client"
	"github.com/Sternrassler/freshservice-mcp/pkg/pagination"
)

// Deps are the services the default tool set is built on.
type Deps struct {
	Client    *client.Client
	Collector *pagination.Collector
	Analytics *analytics.Service
}

// Default builds a registry with every Freshservice tool.
func Default(d Deps) *Registry {
	r := NewRegistry()
	r.MustRegister(AnalyticsTools(d.Analytics)...)
	r.MustRegister(TicketTools(d.Client)...)
	r.MustRegister(ChangeTools(d.Client)...)
	r.MustRegister(AssetTools(d.Client)...)
	r.MustRegister(AgentTools(d.Client, d.Collector)...)
	r.MustRegister(WorkspaceTools(d.Client)...)
	return r
}
