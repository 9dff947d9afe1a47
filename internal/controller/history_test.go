package controller

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/mock"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// editRows sets Qty on the first n rows of the file to a value naming
// user, one change each.
func editRows(t *testing.T, client *api.Client, file string, n int, user string) {
	t.Helper()
	ctx := context.Background()
	page, err := client.Files.Data(ctx, api.DataQuery{FileName: file, Page: 1, PageSize: n})
	if err != nil {
		t.Fatalf("Data failed: %v", err)
	}
	for _, row := range page.Data {
		data := row.Data.Clone()
		data.Set("Qty", fmt.Sprintf("%s-%d", user, row.ID))
		if _, err := client.Files.Update(ctx, types.DataUpdate{ID: row.ID, Data: data, ModifiedBy: user}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
}

func lastQuery(t *testing.T, b *mock.Backend, pathSuffix string) url.Values {
	t.Helper()
	logs := b.Requests()
	for i := len(logs) - 1; i >= 0; i-- {
		if strings.HasSuffix(logs[i].Path, pathSuffix) {
			q, err := url.ParseQuery(logs[i].Query)
			if err != nil {
				t.Fatal(err)
			}
			return q
		}
	}
	t.Fatalf("no request to %s", pathSuffix)
	return nil
}

func TestHistoryFollowsSelection(t *testing.T) {
	client, _ := newBackend(t, seedFile("a.xlsx", "items", "A", 5), seedFile("b.xlsx", "parts", "B", 5))
	editRows(t, client, "a.xlsx", 3, "alice")
	editRows(t, client, "b.xlsx", 1, "bob")

	sh := shell.New()
	h := NewHistory(client, "alice", 50)
	sh.Subscribe(h)

	runFetches(t, sh.SelectFile("a.xlsx"))
	if len(h.Entries()) != 3 {
		t.Errorf("Entries() = %d, want 3", len(h.Entries()))
	}
	if sheets := h.Sheets(); len(sheets) != 1 || sheets[0] != "items" {
		t.Errorf("Sheets() = %v", sheets)
	}

	runFetches(t, []shell.Fetch{h.SetSheet("items")})
	fetches := sh.SelectFile("b.xlsx")
	if h.Filters().Sheet != "" || len(h.Entries()) != 0 || h.Page() != 1 {
		t.Errorf("state not reset: %+v entries=%d page=%d", h.Filters(), len(h.Entries()), h.Page())
	}
	runFetches(t, fetches)
	entries := h.Entries()
	if len(entries) != 1 || entries[0].Actor() != "bob" {
		t.Errorf("Entries() = %+v", entries)
	}
}

func TestHistoryFiltersRefetch(t *testing.T) {
	client, backend := newBackend(t, seedFile("a.xlsx", "items", "A", 5))
	editRows(t, client, "a.xlsx", 2, "alice")
	if _, err := client.Files.DeleteRow(context.Background(), 5, "alice"); err != nil {
		t.Fatal(err)
	}

	sh := shell.New()
	h := NewHistory(client, "alice", 2)
	sh.Subscribe(h)
	runFetches(t, sh.SelectFile("a.xlsx"))
	if !h.HasNext() {
		t.Fatal("expected a second page")
	}
	runFetches(t, []shell.Fetch{h.NextPage()})
	if h.Page() != 2 {
		t.Fatalf("Page() = %d", h.Page())
	}

	fetch := h.SetOperation("Delete")
	if fetch == nil {
		t.Fatal("changing the operation should fetch")
	}
	if h.Page() != 1 {
		t.Errorf("Page() = %d after a filter change, want 1", h.Page())
	}
	runFetches(t, []shell.Fetch{fetch})
	if entries := h.Entries(); len(entries) != 1 || entries[0].Kind() != "Delete" {
		t.Errorf("Entries() = %+v", entries)
	}
	q := lastQuery(t, backend, "/history/changes")
	if q.Get("operation") != "Delete" || q.Get("fileName") != "a.xlsx" || q.Get("page") != "1" {
		t.Errorf("query = %v", q)
	}
	if q.Has("sheetName") || q.Has("startDate") {
		t.Errorf("absent filters were sent: %v", q)
	}

	if h.SetOperation("Delete") != nil {
		t.Error("setting the same operation should not fetch")
	}
	if h.Apply() == nil {
		t.Error("Apply() should always fetch")
	}
}

func TestHistoryDateRange(t *testing.T) {
	client, backend := newBackend(t, seedFile("a.xlsx", "items", "A", 2))
	editRows(t, client, "a.xlsx", 2, "alice")

	h := NewHistory(client, "alice", 50)
	start := time.Now().Add(24 * time.Hour)
	runFetches(t, []shell.Fetch{h.SetDateRange(&start, nil)})
	if len(h.Entries()) != 0 {
		t.Errorf("Entries() = %d for a future range, want 0", len(h.Entries()))
	}
	q := lastQuery(t, backend, "/history/changes")
	if got := q.Get("startDate"); got != types.ISOTime(start) {
		t.Errorf("startDate = %q, want %q", got, types.ISOTime(start))
	}
	if h.SetDateRange(&start, nil) != nil {
		t.Error("same range should not fetch")
	}

	runFetches(t, []shell.Fetch{h.SetDateRange(nil, nil)})
	if len(h.Entries()) != 2 {
		t.Errorf("Entries() = %d, want 2", len(h.Entries()))
	}
}

func TestHistorySearch(t *testing.T) {
	client, backend := newBackend(t, seedFile("a.xlsx", "items", "A", 3))
	editRows(t, client, "a.xlsx", 1, "alice")
	editRows(t, client, "a.xlsx", 3, "zoe")

	h := NewHistory(client, "alice", 50)
	runFetches(t, []shell.Fetch{h.SetSearch("zoe")})
	if len(h.Entries()) != 3 {
		t.Errorf("Entries() = %d, want 3", len(h.Entries()))
	}
	if q := lastQuery(t, backend, "/history/search"); q.Get("q") != "zoe" {
		t.Errorf("search query = %v", q)
	}
}

func TestHistoryRevertNeedsConfirmation(t *testing.T) {
	client, backend := newBackend(t, seedFile("a.xlsx", "items", "A", 1))
	editRows(t, client, "a.xlsx", 1, "alice")

	h := NewHistory(client, "carol", 50)
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	id := h.Entries()[0].ID

	h.RequestRevert(id)
	h.CancelRevert()
	if err := h.ConfirmRevert(context.Background(), "oops"); err != nil {
		t.Fatalf("ConfirmRevert without a target failed: %v", err)
	}
	if countRequests(backend, http.MethodPost) != 0 {
		t.Fatal("revert sent after cancel")
	}

	h.RequestRevert(id)
	if pending, ok := h.PendingRevert(); !ok || pending != id {
		t.Fatalf("PendingRevert() = %d, %v", pending, ok)
	}
	if err := h.ConfirmRevert(context.Background(), "oops"); err != nil {
		t.Fatalf("ConfirmRevert failed: %v", err)
	}
	entries := h.Entries()
	if len(entries) != 2 || entries[0].Actor() != "carol" {
		t.Errorf("Entries() after revert = %+v", entries)
	}

	var body string
	for _, r := range backend.Requests() {
		if r.Method == http.MethodPost {
			body = r.Body
		}
	}
	if !strings.Contains(body, `"revertedBy":"carol"`) || !strings.Contains(body, `"reason":"oops"`) {
		t.Errorf("revert body = %s", body)
	}
}

func TestHistoryStatsAndExport(t *testing.T) {
	client, _ := newBackend(t, seedFile("a.xlsx", "items", "A", 3))
	editRows(t, client, "a.xlsx", 3, "alice")

	sh := shell.New()
	h := NewHistory(client, "alice", 50)
	sh.Subscribe(h)
	runFetches(t, sh.SelectFile("a.xlsx"))

	if err := h.LoadStats(context.Background()); err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	stats, ok := h.Stats()
	if !ok || stats.TotalChanges != 3 || stats.UserCounts["alice"] != 3 {
		t.Errorf("Stats() = %+v, %v", stats, ok)
	}

	resp, err := h.Export(context.Background(), types.ExportCSV)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(resp.Body)), "\n")
	if len(lines) != 4 {
		t.Errorf("csv lines = %d, want 4", len(lines))
	}
}
