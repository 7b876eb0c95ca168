package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/freshservice-mcp/pkg/analytics"
	"github.com/Sternrassler/freshservice-mcp/pkg/client"
)

// Kind classifies a failed tool call.
type Kind string

const (
	// KindUpstream is a Freshservice failure (HTTP status or transport).
	KindUpstream Kind = "upstream"

	// KindValidation is bad input, reported before any upstream call.
	KindValidation Kind = "validation"

	// KindInternal is anything else, including recovered panics.
	KindInternal Kind = "internal"
)

// Result is the outcome of a tool call: either a payload or a classified
// failure. The zero value is not valid; use OK, Fail or FromError.
type Result struct {
	ok         bool
	payload    any
	kind       Kind
	err        error
	statusCode int
	details    json.RawMessage
}

// OK wraps a successful payload. Object payloads are flattened next to
// "success"; anything else is returned under "data".
func OK(payload any) Result {
	return Result{ok: true, payload: payload}
}

// Fail wraps a failure of the given kind.
func Fail(kind Kind, err error) Result {
	return Result{kind: kind, err: err}
}

// FromError classifies err into a failed Result.
func FromError(err error) Result {
	var vErr *analytics.ValidationError
	if errors.As(err, &vErr) {
		return Fail(KindValidation, err)
	}
	if apiErr, ok := client.IsAPIError(err); ok {
		r := Fail(KindUpstream, err)
		r.statusCode = apiErr.StatusCode
		r.details = apiErr.Body
		return r
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Fail(KindUpstream, err)
	}
	return Fail(KindInternal, err)
}

// Invalid is a validation failure with a formatted message.
func Invalid(format string, args ...any) Result {
	return Fail(KindValidation, fmt.Errorf(format, args...))
}

// IsOK reports whether the call succeeded.
func (r Result) IsOK() bool {
	return r.ok
}

// Kind returns the failure kind, or "" on success.
func (r Result) Kind() Kind {
	return r.kind
}

// Err returns the failure, or nil on success.
func (r Result) Err() error {
	return r.err
}

// Payload returns the success payload.
func (r Result) Payload() any {
	return r.payload
}

// StatusCode returns the upstream HTTP status of an upstream failure.
func (r Result) StatusCode() int {
	return r.statusCode
}

type failure struct {
	Success    bool            `json:"success"`
	Kind       Kind            `json:"kind"`
	Error      string          `json:"error"`
	StatusCode int             `json:"status_code,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.ok {
		msg := "unknown error"
		if r.err != nil {
			msg = r.err.Error()
		}
		return json.Marshal(failure{
			Success:    false,
			Kind:       r.kind,
			Error:      msg,
			StatusCode: r.statusCode,
			Details:    r.details,
		})
	}

	buf, err := json.Marshal(r.payload)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if len(buf) > 0 && buf[0] == '{' {
		if err := json.Unmarshal(buf, &fields); err != nil {
			return nil, err
		}
	} else {
		fields = map[string]json.RawMessage{"data": buf}
	}
	fields["success"] = json.RawMessage("true")
	return json.Marshal(fields)
}
