package anthropic

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoMessageStop is returned when a stream ends before message_stop.
	ErrNoMessageStop = errors.New("no final message_stop event received")
	// ErrMissingMessageStart is returned when an event arrives before message_start.
	ErrMissingMessageStart = errors.New("message_start must precede all other events")
	// ErrDuplicateMessageStart is returned when message_start is seen twice.
	ErrDuplicateMessageStart = errors.New("message_start received more than once")
	// ErrUnsupportedMediaType is returned when attachment bytes match no known signature.
	ErrUnsupportedMediaType = errors.New("anthropic: unsupported media type")
)

// ValidationError reports a required field that was left empty.
type ValidationError struct {
	Type  string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("anthropic: %s: %s cannot be empty", e.Type, e.Field)
}

func required(typ, field string, empty bool) error {
	if empty {
		return &ValidationError{Type: typ, Field: field}
	}
	return nil
}

// DecodeError is returned when a JSON document cannot be mapped onto one of
// the known shapes. Raw holds the offending element.
type DecodeError struct {
	Kind string
	Type string
	Raw  string
	Err  error
}

func (e *DecodeError) Error() string {
	msg := "anthropic: cannot decode " + e.Kind
	if e.Type != "" {
		msg += fmt.Sprintf(" of type %q", e.Type)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProtocolError is returned by the stream assembler when events arrive in an
// order the Messages API never produces.
type ProtocolError struct {
	Event string
	Err   error
}

func (e *ProtocolError) Error() string {
	if e.Event == "" {
		return "anthropic: stream protocol error: " + e.Err.Error()
	}
	return fmt.Sprintf("anthropic: stream protocol error at %s: %v", e.Event, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// APIError carries an error payload returned by the API, either as an HTTP
// error body or as an error event inside a stream. Errors raised mid-stream
// have no status line and use http.StatusInternalServerError.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("anthropic: api error %d %s: %s", e.StatusCode, e.Type, e.Message)
}

func newStreamAPIError(detail ErrorDetail) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Type:       detail.Type,
		Message:    detail.Message,
	}
}
