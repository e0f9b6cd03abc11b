package core

import "errors"

// Error codes for protocol errors.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
)

var ErrHubStopped = errors.New("hub stopped")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds an error event.
func NewError(code, msg string) *Event {
	return &Event{Kind: EventError, Error: &CoreError{Code: code, Message: msg}}
}
