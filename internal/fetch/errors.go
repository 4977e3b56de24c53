package fetch

import (
	"fmt"
	"strings"
)

// AuthError indicates a rejected or missing credential (HTTP 401/403).
// Fatal: the caller should not retry with the same key.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected: status %d: %s", e.StatusCode, truncate(e.Body))
}

// RateLimitError indicates the upstream throttled the request (HTTP 429).
// The caller may back off and retry.
type RateLimitError struct {
	StatusCode int
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: status %d: %s", e.StatusCode, truncate(e.Body))
}

// GraphQLError is one entry of a GraphQL errors payload.
type GraphQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// UpstreamError indicates any other non-2xx status, or a 200 response whose
// body carries a GraphQL errors array. Not retried by this layer.
type UpstreamError struct {
	StatusCode int
	Errors     []GraphQLError
	Body       string
}

func (e *UpstreamError) Error() string {
	if len(e.Errors) > 0 {
		msgs := make([]string, 0, len(e.Errors))
		for _, g := range e.Errors {
			msgs = append(msgs, g.Message)
		}
		return fmt.Sprintf("upstream query failed: %s", strings.Join(msgs, "; "))
	}
	return fmt.Sprintf("upstream error: status %d: %s", e.StatusCode, truncate(e.Body))
}

// TransportError indicates a connection failure or a malformed response
// body. The caller may retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func truncate(s string) string {
	const max = 256
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
