package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Category groups errors by how they are presented.
type Category int

const (
	CategoryNone Category = iota
	CategoryConnectivity
	CategoryServer
	CategoryNotFound
	CategoryInvalidInput
	CategoryStatus
	CategoryApplication
	CategoryParse
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryConnectivity:
		return "connectivity"
	case CategoryServer:
		return "server"
	case CategoryNotFound:
		return "not-found"
	case CategoryInvalidInput:
		return "invalid-input"
	case CategoryStatus:
		return "status"
	case CategoryApplication:
		return "application"
	case CategoryParse:
		return "parse"
	case CategoryOther:
		return "other"
	default:
		return "none"
	}
}

// Classification is the user-facing view of an error.
type Classification struct {
	Category  Category
	Code      int
	Operation string
	Message   string
	Hints     []string
}

// Text renders the classification as a single block of text.
func (c Classification) Text() string {
	if c.Category == CategoryNone {
		return ""
	}
	var b strings.Builder
	if c.Operation != "" && c.Operation != c.Message {
		b.WriteString(c.Operation)
		b.WriteString(": ")
	}
	b.WriteString(c.Message)
	for _, hint := range c.Hints {
		b.WriteString("\n  • ")
		b.WriteString(hint)
	}
	return b.String()
}

var serverErrorHints = []string{
	"the format may be unsupported (.xlsx is recommended)",
	"the file may be corrupt or password protected",
	"the workbook may contain formula errors",
	"the file may be too large (10MB max recommended)",
	"re-save the file as .xlsx and try again",
	"check the backend logs",
}

var invalidInputHints = []string{
	"only .xlsx and .xls files are supported",
	"file names must not contain special characters",
}

// Classify maps err to its presentation. key names the entity the request
// addressed (a file name, "row 42") and appears in not-found messages.
func Classify(err error, key string) Classification {
	if err == nil {
		return Classification{}
	}

	var c Classification
	var resErr *ResourceError
	if errors.As(err, &resErr) {
		c.Operation = resErr.Message
		if key == "" {
			key = resErr.Key
		}
	}

	var (
		appErr    *ApplicationError
		abortErr  *AbortError
		transErr  *TransportError
		statusErr *HTTPStatusError
		parseErr  *ParseError
	)
	switch {
	case errors.As(err, &appErr):
		c.Category = CategoryApplication
		c.Message = appErr.Message
	case errors.As(err, &abortErr):
		c.Category = CategoryConnectivity
		if abortErr.Timeout {
			c.Message = fmt.Sprintf("Backend did not respond within %s - is the service running?", abortErr.After)
		} else {
			c.Message = "Request canceled"
		}
	case errors.As(err, &transErr):
		c.Category = CategoryConnectivity
		c.Message = "Cannot reach the backend - " + networkDetail(transErr.Err)
	case errors.As(err, &statusErr):
		c.Code = statusErr.Code
		classifyStatus(&c, statusErr, key)
	case errors.As(err, &parseErr):
		c.Category = CategoryParse
		c.Message = "Unexpected response from the backend (body is not valid JSON)"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.Category = CategoryConnectivity
		c.Message = "Request canceled"
	default:
		c.Category = CategoryOther
		c.Message = err.Error()
	}
	return c
}

// Message is shorthand for Classify(err, key).Text().
func Message(err error, key string) string {
	return Classify(err, key).Text()
}

func classifyStatus(c *Classification, e *HTTPStatusError, key string) {
	switch {
	case e.Code == 500:
		c.Category = CategoryServer
		if key != "" {
			c.Message = fmt.Sprintf("Server error while processing %q", key)
		} else {
			c.Message = "Server error while processing the request"
		}
		c.Hints = serverErrorHints
	case e.Code == 404:
		c.Category = CategoryNotFound
		if key != "" {
			c.Message = fmt.Sprintf("Not found: %s - check that it still exists", key)
		} else {
			c.Message = "Not found"
		}
	case e.Code == 400:
		c.Category = CategoryInvalidInput
		c.Message = "Invalid input"
		if msg := e.BackendMessage(); msg != "" {
			c.Message += ": " + msg
		}
		c.Hints = invalidInputHints
	default:
		c.Category = CategoryStatus
		c.Message = fmt.Sprintf("HTTP %d: %s", e.Code, e.StatusText())
	}
}

// networkDetail describes a transport failure. Typed errors are checked
// first; the string checks catch errors that lost their type on the way.
func networkDetail(err error) string {
	if err == nil {
		return "unknown network error"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "connection timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "DNS lookup failed for " + dnsErr.Name
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return "connection refused, check that the backend is running and the port is correct"
		case syscall.ECONNRESET:
			return "connection reset by the backend"
		case syscall.ENETUNREACH:
			return "network unreachable"
		case syscall.EHOSTUNREACH:
			return "host unreachable"
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Timeout() {
		return "connection timed out"
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "connection refused"):
		return "connection refused, check that the backend is running and the port is correct"
	case strings.Contains(lower, "no such host"):
		return "DNS lookup failed"
	case strings.Contains(lower, "connection reset"):
		return "connection reset by the backend"
	case strings.Contains(lower, "eof"):
		return "connection closed unexpectedly"
	case strings.Contains(lower, "unsupported protocol"):
		return "invalid base URL, check the profile"
	}
	return err.Error()
}
