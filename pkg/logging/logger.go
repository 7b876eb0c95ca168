// Package logging provides structured logging configuration using zerolog.
//
// The MCP stdio transport owns stdout, so every log line goes to stderr
// unless a test supplies its own writer.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string

	// Pretty switches from JSON lines to zerolog's console format.
	Pretty bool

	// Output receives the log lines; nil means os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().Timestamp().Str("service", "freshservice-mcp").Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. Unknown names map to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: page-by-page progress, lookup cache hits, tool call success
// Info: collection run completion, lookup refreshes, analytics results, startup
// Warn: stale lookup served, rate limit pacing, failed tool calls
// Error: lookup refresh without fallback, handler panics, fatal startup errors
//
// Context Fields:
//   - component: emitting package (freshservice-client, pagination, lookup-cache, analytics, tools, mcpserver)
//   - collection: paged endpoint, e.g. tickets/filter
//   - page, items, pages: pagination progress
//   - tool, kind, duration: tool call outcome
//   - status_code, error_class: upstream failures
