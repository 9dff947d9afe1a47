// Package apierr defines the error taxonomy of the backend client and maps
// errors to the messages shown to users.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrAborted matches every AbortError, whether the deadline fired or the
// caller canceled.
var ErrAborted = errors.New("request aborted")

// TransportError is a failure below HTTP: DNS, refused connection, reset.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AbortError reports a request that was canceled before completing.
// Timeout is set when the request deadline caused the cancellation.
type AbortError struct {
	Timeout bool
	After   time.Duration
	Err     error
}

func (e *AbortError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out after %s", e.After)
	}
	return "request canceled"
}

func (e *AbortError) Unwrap() error { return e.Err }

func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// HTTPStatusError is a response with a non-2xx status.
type HTTPStatusError struct {
	Code   int
	Status string
	Body   []byte
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.StatusText())
}

// StatusText returns the reason phrase without the numeric prefix.
func (e *HTTPStatusError) StatusText() string {
	text := strings.TrimSpace(strings.TrimPrefix(e.Status, fmt.Sprint(e.Code)))
	if text == "" {
		text = http.StatusText(e.Code)
	}
	return text
}

// BackendMessage extracts the "message" field of a JSON error body.
func (e *HTTPStatusError) BackendMessage() string {
	var body struct {
		Message string `json:"message"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Title
}

// ApplicationError carries the message of an envelope with success=false.
// Resource clients never return it; controllers build it when they branch
// on the envelope.
type ApplicationError struct {
	Message string
}

func (e *ApplicationError) Error() string { return e.Message }

// Application returns an ApplicationError with message, or fallback when
// the backend sent none.
func Application(message, fallback string) error {
	if strings.TrimSpace(message) == "" {
		message = fallback
	}
	return &ApplicationError{Message: message}
}

// ParseError is a body that was expected to be JSON and was not.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid response body: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExportError is a failed binary download.
type ExportError struct {
	Resource string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s export failed: %v", e.Resource, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// ResourceError is what resource clients return for transport-level
// failures: a stable message for the operation plus the underlying cause.
type ResourceError struct {
	Resource string
	Op       string
	Key      string
	Message  string
	Err      error
}

func (e *ResourceError) Error() string { return e.Message }

func (e *ResourceError) Unwrap() error { return e.Err }
