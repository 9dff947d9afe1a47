package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDashboardSummarizesFiles(t *testing.T) {
	client, backend := newBackend(t, seedFile("seeded.xlsx", "s", "S", 5))
	ctx := context.Background()

	base := time.Date(2099, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"jan.xlsx", "feb.xlsx", "mar.xlsx"} {
		at := base.Add(time.Duration(i) * time.Hour)
		backend.SetClock(func() time.Time { return at })
		if _, err := client.Files.Upload(ctx, name, []byte("x"), "alice"); err != nil {
			t.Fatalf("Upload(%s) failed: %v", name, err)
		}
	}

	d := NewDashboard(client)
	if err := d.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if d.Connection() != ConnectionUp {
		t.Errorf("Connection() = %v", d.Connection())
	}

	stats := d.Stats()
	if stats.TotalFiles != 4 || stats.TotalRecords != 5 {
		t.Errorf("totals = %d files, %d records", stats.TotalFiles, stats.TotalRecords)
	}
	if len(stats.Recent) != RecentFileCount {
		t.Fatalf("Recent = %d, want %d", len(stats.Recent), RecentFileCount)
	}
	want := []string{"mar.xlsx", "feb.xlsx", "jan.xlsx"}
	for i, f := range stats.Recent {
		if f.FileName != want[i] {
			t.Errorf("Recent[%d] = %s, want %s", i, f.FileName, want[i])
		}
	}
	if !stats.LastUpload.Time.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("LastUpload = %v", stats.LastUpload)
	}
}

func TestDashboardSkipsListWhenDisconnected(t *testing.T) {
	var calls atomic.Int32
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}), "/api")

	d := NewDashboard(client)
	if err := d.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
	if d.Connection() != ConnectionDown {
		t.Errorf("Connection() = %v", d.Connection())
	}
	if d.ErrorMessage() == "" {
		t.Error("no error message")
	}
}

func TestDashboardUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	d := NewDashboard(clientFor(srv.URL))
	if err := d.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if d.Stats().TotalFiles != 0 {
		t.Error("stats should be empty")
	}
}
