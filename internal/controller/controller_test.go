package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/mock"
	"github.com/studiowebux/sheetdesk/internal/shell"
)

// seedFile builds a one-sheet workbook of n rows keyed "<prefix>-<i>".
func seedFile(name, sheet, prefix string, n int) mock.SeedFile {
	s := mock.SeedSheet{Name: sheet, Columns: []string{"Code", "Qty"}}
	for i := 1; i <= n; i++ {
		s.Rows = append(s.Rows, []any{fmt.Sprintf("%s-%d", prefix, i), i})
	}
	return mock.SeedFile{Name: name, Sheets: []mock.SeedSheet{s}}
}

func newBackend(t *testing.T, files ...mock.SeedFile) (*api.Client, *mock.Backend) {
	t.Helper()
	backend := mock.NewBackend(&mock.Config{Logging: true, User: "seed", Files: files})
	return newClient(t, backend.Handler(), backend.BasePath()), backend
}

func newClient(t *testing.T, h http.Handler, basePath string) *api.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return clientFor(srv.URL + basePath)
}

func clientFor(baseURL string) *api.Client {
	return api.New(executor.New(baseURL), nil)
}

// countRequests counts logged requests with the given method.
func countRequests(b *mock.Backend, method string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func runFetches(t *testing.T, fetches []shell.Fetch) {
	t.Helper()
	if err := shell.Run(context.Background(), fetches); err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
}
