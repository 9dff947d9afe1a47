package journal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studiowebux/sheetdesk/internal/executor"
)

func openMemory(t *testing.T, profile string) *Manager {
	t.Helper()
	m, err := Open(":memory:", profile, nil)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRecordAndRecent(t *testing.T) {
	m := openMemory(t, "dev")
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)

	m.Record(executor.Call{StartedAt: base, Method: "GET", URL: "http://x/api/excel/files", Status: 200, Duration: 12 * time.Millisecond})
	m.Record(executor.Call{StartedAt: base.Add(time.Second), Method: "DELETE", URL: "http://x/api/excel/row/7", Status: 404})
	m.Record(executor.Call{StartedAt: base.Add(2 * time.Second), Method: "GET", URL: "http://x/api/excel/test", Err: errors.New("connection refused")})

	all, err := m.Recent(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent() returned %d entries, want 3", len(all))
	}
	if all[0].Error != "connection refused" {
		t.Errorf("newest entry error = %q", all[0].Error)
	}
	if all[2].Duration != 12*time.Millisecond {
		t.Errorf("oldest entry duration = %v, want 12ms", all[2].Duration)
	}
	if all[0].ID == all[1].ID {
		t.Error("entry ids are not unique")
	}

	failed, err := m.Recent(Query{FailedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 2 {
		t.Errorf("failed entries = %d, want 2", len(failed))
	}

	limited, _ := m.Recent(Query{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limited entries = %d, want 1", len(limited))
	}
}

func TestProfilesAreSeparate(t *testing.T) {
	m := openMemory(t, "a")
	m.Record(executor.Call{StartedAt: time.Now(), Method: "GET", URL: "u", Status: 200})

	other := &Manager{db: m.db, profile: "b", logger: m.logger}
	other.Record(executor.Call{StartedAt: time.Now(), Method: "GET", URL: "u", Status: 200})

	if n, _ := m.Count(); n != 1 {
		t.Errorf("Count(a) = %d, want 1", n)
	}
	all, _ := m.Recent(Query{AllProfile: true})
	if len(all) != 2 {
		t.Errorf("all-profile entries = %d, want 2", len(all))
	}

	removed, err := m.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("Clear() removed %d, want 1", removed)
	}
	if n, _ := other.Count(); n != 1 {
		t.Errorf("Count(b) after clearing a = %d, want 1", n)
	}
}

func TestOneEntryPerExecutedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	m := openMemory(t, "dev")
	exec := executor.New(server.URL, executor.WithRecorder(m))

	for range 3 {
		if _, err := exec.Do(context.Background(), &executor.Request{Method: http.MethodGet, Path: "/excel/test"}); err != nil {
			t.Fatal(err)
		}
	}

	if n, _ := m.Count(); n != 3 {
		t.Errorf("journal entries = %d, want 3", n)
	}
}
