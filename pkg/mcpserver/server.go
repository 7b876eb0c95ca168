// Package mcpserver exposes a tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	stdlog "log"

	"github.com/Sternrassler/freshservice-mcp/pkg/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Name is the server name announced to MCP clients.
const Name = "freshservice-mcp"

// Server adapts a tools.Registry onto an MCP server.
type Server struct {
	mcp      *server.MCPServer
	registry *tools.Registry
	logger   zerolog.Logger
}

// New creates an MCP server advertising every tool in registry.
func New(registry *tools.Registry, version string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(Name, version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		registry: registry,
		logger:   log.With().Str("component", "mcpserver").Logger(),
	}

	for _, t := range registry.Tools() {
		s.mcp.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, t.Schema), s.handler(t.Name))
	}

	s.logger.Info().Int("tools", len(registry.Tools())).Msg("MCP tools registered")
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over in and out until ctx is cancelled or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(stdlog.New(s.logger, "", 0))

	s.logger.Info().Msg("Serving MCP over stdio")
	return stdio.Listen(ctx, in, out)
}

// handler runs the named tool and renders its Result as JSON text. Failed
// results are flagged as tool errors so clients can tell them apart.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := s.registry.Call(ctx, name, req.GetArguments())

		buf, err := json.Marshal(res)
		if err != nil {
			s.logger.Error().Err(err).Str("tool", name).Msg("Encode tool result")
			return mcp.NewToolResultError(`{"success":false,"kind":"internal","error":"encode result"}`), nil
		}
		if !res.IsOK() {
			return mcp.NewToolResultError(string(buf)), nil
		}
		return mcp.NewToolResultText(string(buf)), nil
	}
}
