package app

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/mock"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

func TestOpenFileDrivesSubscribedControllers(t *testing.T) {
	backend := mock.NewBackend(mock.DefaultConfig())
	server := httptest.NewServer(backend.Handler())
	defer server.Close()

	j, err := journal.Open(":memory:", "test", nil)
	if err != nil {
		t.Fatal(err)
	}

	a := New(types.Profile{Name: "test", BaseURL: server.URL + backend.BasePath(), User: "alice"}, Options{Journal: j})
	defer a.Close()

	if a.Profile.PageSize != 50 {
		t.Errorf("PageSize default = %d, want 50", a.Profile.PageSize)
	}

	fetches := a.Shell.Open("inventory.xlsx")
	if len(fetches) != 2 {
		t.Fatalf("Open() returned %d fetches, want data and history", len(fetches))
	}
	if err := shell.Run(context.Background(), fetches); err != nil {
		t.Fatalf("fetches failed: %v", err)
	}

	if got := a.Data.FileName(); got != "inventory.xlsx" {
		t.Errorf("data viewer file = %q", got)
	}
	if got := a.History.FileName(); got != "inventory.xlsx" {
		t.Errorf("history file = %q", got)
	}
	if len(a.Data.Rows()) == 0 {
		t.Error("data viewer loaded no rows")
	}

	n, err := j.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("journal recorded no requests")
	}
}

func TestComparisonPrefilledFromSelection(t *testing.T) {
	a := New(types.Profile{Name: "offline", BaseURL: "http://127.0.0.1:1"}, Options{})
	a.Shell.SelectFile("a.xlsx")

	if file1, _, _ := a.Comparison.Selected(); file1 != "a.xlsx" {
		t.Errorf("comparison file1 = %q, want a.xlsx", file1)
	}
}
