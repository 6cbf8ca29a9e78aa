package gemini

import (
	"errors"
	"fmt"
)

// ErrNoAPIKey means Generate was called without a key. The check happens
// before any network traffic.
var ErrNoAPIKey = errors.New("no API key configured")

// TransportError is a non-2xx response from the generation endpoint.
// Reason carries the endpoint's own error message when it sent one.
type TransportError struct {
	Status int
	Reason string
}

func (e *TransportError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("generation endpoint returned %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("generation endpoint returned %d", e.Status)
}

// TruncatedError means generation stopped at the output-token limit. The
// partial text is kept for diagnostics only; it is never handed to the
// parser, since the balancer could turn a cut-off reply into a parseable
// object that silently lost its trailing entries.
type TruncatedError struct {
	Text string
}

func (e *TruncatedError) Error() string {
	return "model output truncated at token limit"
}

// FormatError means the endpoint answered 2xx but none of the documented
// envelope shapes carried text.
type FormatError struct {
	Detail string
}

func (e *FormatError) Error() string {
	return "unexpected response envelope: " + e.Detail
}
