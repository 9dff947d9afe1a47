package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	refused := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}

	tests := []struct {
		name     string
		err      error
		key      string
		category Category
		contains string
	}{
		{
			name:     "nil",
			err:      nil,
			category: CategoryNone,
		},
		{
			name:     "connection refused",
			err:      &TransportError{Method: "GET", URL: "http://localhost:5002/api/excel/files", Err: refused},
			category: CategoryConnectivity,
			contains: "connection refused",
		},
		{
			name:     "dns failure",
			err:      &TransportError{Err: &net.DNSError{Name: "backend.local", Err: "no such host"}},
			category: CategoryConnectivity,
			contains: "backend.local",
		},
		{
			name:     "timeout",
			err:      &AbortError{Timeout: true, After: 30 * time.Second, Err: context.DeadlineExceeded},
			category: CategoryConnectivity,
			contains: "30s",
		},
		{
			name:     "server error names key",
			err:      &HTTPStatusError{Code: 500, Status: "500 Internal Server Error"},
			key:      "report.xlsx",
			category: CategoryServer,
			contains: `"report.xlsx"`,
		},
		{
			name:     "not found names row",
			err:      &HTTPStatusError{Code: 404, Status: "404 Not Found"},
			key:      "row 42",
			category: CategoryNotFound,
			contains: "row 42",
		},
		{
			name:     "bad request carries backend message",
			err:      &HTTPStatusError{Code: 400, Status: "400 Bad Request", Body: []byte(`{"message":"sheet missing"}`)},
			category: CategoryInvalidInput,
			contains: "sheet missing",
		},
		{
			name:     "other status",
			err:      &HTTPStatusError{Code: 503, Status: "503 Service Unavailable"},
			category: CategoryStatus,
			contains: "HTTP 503: Service Unavailable",
		},
		{
			name:     "application",
			err:      Application("", "Could not load data"),
			category: CategoryApplication,
			contains: "Could not load data",
		},
		{
			name:     "parse",
			err:      &ParseError{Err: errors.New("invalid character '<'")},
			category: CategoryParse,
			contains: "not valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.key)
			if got.Category != tt.category {
				t.Errorf("Category = %v, want %v", got.Category, tt.category)
			}
			if tt.contains != "" && !strings.Contains(got.Text(), tt.contains) {
				t.Errorf("Text() = %q, want it to contain %q", got.Text(), tt.contains)
			}
		})
	}
}

func TestClassifyThroughResourceError(t *testing.T) {
	cause := &HTTPStatusError{Code: 404, Status: "404 Not Found"}
	err := &ResourceError{
		Resource: "files",
		Op:       "delete-row",
		Key:      "row 42",
		Message:  "Failed to delete row",
		Err:      cause,
	}

	got := Classify(fmt.Errorf("confirm delete: %w", err), "")
	if got.Category != CategoryNotFound {
		t.Fatalf("Category = %v, want not-found", got.Category)
	}
	if !strings.Contains(got.Text(), "row 42") {
		t.Errorf("Text() = %q, want the row key from the resource error", got.Text())
	}
	if !strings.HasPrefix(got.Text(), "Failed to delete row: ") {
		t.Errorf("Text() = %q, want the operation prefix", got.Text())
	}
}

func TestAbortErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"timeout", &AbortError{Timeout: true, Err: context.DeadlineExceeded}},
		{"cancel", &AbortError{Err: context.Canceled}},
		{"wrapped", fmt.Errorf("list files: %w", &AbortError{Err: context.Canceled})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, ErrAborted) {
				t.Errorf("errors.Is(%v, ErrAborted) = false", tt.err)
			}
		})
	}
}

func TestServerErrorHasHints(t *testing.T) {
	got := Classify(&HTTPStatusError{Code: 500}, "")
	if len(got.Hints) == 0 {
		t.Fatal("expected remediation hints for a server error")
	}
	if !strings.Contains(got.Text(), ".xlsx") {
		t.Errorf("Text() = %q, want format hint", got.Text())
	}
}
