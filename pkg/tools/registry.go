// Package tools declares the Freshservice tool surface exposed over MCP.
//
// Each tool is a name, a description, a JSON Schema for its arguments and a
// handler. The registry validates arguments against the schema before the
// handler runs and turns every outcome, including panics, into a Result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Prometheus metrics for tool calls.
var (
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "freshservice_tool_calls_total",
		Help: "Total tool calls by tool and outcome",
	}, []string{"tool", "outcome"})

	toolCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freshservice_tool_call_duration_seconds",
		Help:    "Tool call duration in seconds by tool",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60},
	}, []string{"tool"})
)

// Handler runs a tool with validated arguments.
type Handler func(ctx context.Context, args Args) Result

// Tool is one callable tool.
type Tool struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Handler     Handler

	compiled *gojsonschema.Schema
}

// Registry holds tools by name.
type Registry struct {
	tools  map[string]*Tool
	order  []string
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: log.With().Str("component", "tools").Logger(),
	}
}

// Register adds a tool. The schema must compile and the name must be unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", t.Name)
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	if len(t.Schema) == 0 {
		t.Schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(t.Schema))
	if err != nil {
		return fmt.Errorf("tool %s: compile schema: %w", t.Name, err)
	}
	t.compiled = compiled

	r.tools[t.Name] = &t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister is Register for static tool tables; it panics on error.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Call validates args and runs the named tool. It never panics.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (result Result) {
	start := time.Now()
	logger := r.logger.With().Str("tool", name).Logger()

	defer func() {
		if p := recover(); p != nil {
			logger.Error().Interface("panic", p).Msg("Tool handler panicked")
			result = Fail(KindInternal, fmt.Errorf("tool %s panicked: %v", name, p))
		}

		outcome := "success"
		if !result.IsOK() {
			outcome = string(result.Kind())
		}
		toolCallsTotal.WithLabelValues(name, outcome).Inc()
		toolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if result.IsOK() {
			logger.Debug().Dur("duration", time.Since(start)).Msg("Tool call succeeded")
		} else {
			logger.Warn().
				Err(result.Err()).
				Str("kind", string(result.Kind())).
				Dur("duration", time.Since(start)).
				Msg("Tool call failed")
		}
	}()

	t, ok := r.tools[name]
	if !ok {
		return Invalid("unknown tool %q", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	if res := r.validate(t, args); !res.IsOK() {
		return res
	}
	return t.Handler(ctx, Args(args))
}

func (r *Registry) validate(t *Tool, args map[string]any) Result {
	res, err := t.compiled.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return Invalid("invalid arguments: %v", err)
	}
	if res.Valid() {
		return OK(nil)
	}

	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	failed := Invalid("invalid arguments: %s", strings.Join(msgs, "; "))
	if details, err := json.Marshal(msgs); err == nil {
		failed.details = details
	}
	return failed
}
