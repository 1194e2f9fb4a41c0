package apiclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/johndosdos/eventhub/internal/model"
)

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
	Body    model.ErrorResponse
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Banned reports whether the server message signals a banned account.
func (e *Error) Banned() bool {
	return strings.Contains(e.Message, "banned")
}

func (e *Error) RequiresVerification() bool {
	return e.Body.RequiresVerification
}

// TransportError is a request that never produced a response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the server-provided message carried by err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Body.Message != "" {
		return apiErr.Body.Message
	}
	return fallback
}
