package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited is returned when the local rate limiter refuses a request
// because the Freshservice budget is exhausted.
var ErrRateLimited = errors.New("request blocked: freshservice rate limit critical")

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses and local rate limit blocks.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport and timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// APIError is a failed Freshservice call. Body carries the upstream JSON
// error document when there was one.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Body       json.RawMessage
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("freshservice %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("freshservice %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to an error class.
// Successful codes map to the empty class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// upstreamMessage extracts a human readable message from a Freshservice error
// body ({"description": "...", "errors": [...]}), falling back to status.
func upstreamMessage(status string, body []byte) string {
	var doc struct {
		Description string `json:"description"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &doc); err == nil {
		if doc.Description != "" {
			return doc.Description
		}
		if doc.Message != "" {
			return doc.Message
		}
	}
	return status
}
