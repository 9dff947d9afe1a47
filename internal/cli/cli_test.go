package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/app"
	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/mock"
	"github.com/studiowebux/sheetdesk/internal/types"
)

type harness struct {
	runner  *Runner
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	backend *mock.Backend
}

func newHarness(t *testing.T, format string) *harness {
	t.Helper()
	backend := mock.NewBackend(mock.DefaultConfig())
	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	j, err := journal.Open(":memory:", "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	a := app.New(types.Profile{Name: "test", BaseURL: srv.URL + backend.BasePath(), User: "alice"}, app.Options{Journal: j})
	t.Cleanup(func() { a.Close() })

	h := &harness{out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, backend: backend}
	h.runner = &Runner{
		App: a,
		Out: &Printer{Out: h.out, Format: format},
		In:  strings.NewReader(""),
		Err: h.errOut,
	}
	return h
}

func TestListFilesJSON(t *testing.T) {
	h := newHarness(t, FormatJSON)

	if err := h.runner.ListFiles(context.Background(), ""); err != nil {
		t.Fatalf("ListFiles() failed: %v", err)
	}
	var files []types.FileRecord
	if err := json.Unmarshal(h.out.Bytes(), &files); err != nil {
		t.Fatalf("output is not a JSON file list: %v\n%s", err, h.out)
	}
	if len(files) != 1 || files[0].FileName != "inventory.xlsx" {
		t.Errorf("files = %+v", files)
	}
}

func TestListFilesTableAndQuery(t *testing.T) {
	h := newHarness(t, FormatTable)
	if err := h.runner.ListFiles(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.out.String(), "inventory.xlsx") || !strings.Contains(h.out.String(), "1 file(s)") {
		t.Errorf("table output missing content:\n%s", h.out)
	}

	h.out.Reset()
	h.runner.Out.Query = "[0].recordCount"
	if err := h.runner.ListFiles(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(h.out.String()); got != "5" {
		t.Errorf("query output = %q, want 5", got)
	}
}

func TestDeleteFileNeedsConfirmation(t *testing.T) {
	h := newHarness(t, FormatText)
	h.runner.In = strings.NewReader("n\n")

	err := h.runner.DeleteFile(context.Background(), "inventory.xlsx")
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("DeleteFile() error = %v, want ErrCancelled", err)
	}
	for _, r := range h.backend.Requests() {
		if r.Method == "DELETE" {
			t.Fatal("DELETE sent without confirmation")
		}
	}

	h.runner.In = strings.NewReader("yes\n")
	if err := h.runner.DeleteFile(context.Background(), "inventory.xlsx"); err != nil {
		t.Fatalf("confirmed DeleteFile() failed: %v", err)
	}
	if !strings.Contains(h.out.String(), "inventory.xlsx deleted") {
		t.Errorf("output = %q", h.out)
	}
}

func TestDeleteMissingRowIsClassified(t *testing.T) {
	h := newHarness(t, FormatText)
	h.runner.Yes = true

	err := h.runner.DeleteRow(context.Background(), 999)
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("DeleteRow() error = %v, want *Failure", err)
	}
	if !strings.Contains(failure.Message, "Failed to delete row") || !strings.Contains(failure.Message, "row 999") {
		t.Errorf("message = %q", failure.Message)
	}
}

func TestUpdateRowThenHistory(t *testing.T) {
	h := newHarness(t, FormatJSON)
	ctx := context.Background()

	if err := h.runner.UpdateRow(ctx, 1, []string{"Quantity=150"}); err != nil {
		t.Fatalf("UpdateRow() failed: %v", err)
	}

	h.out.Reset()
	if err := h.runner.FileHistory(ctx, "inventory.xlsx", HistoryOptions{}); err != nil {
		t.Fatal(err)
	}
	var page types.Page[types.ChangeRecord]
	if err := json.Unmarshal(h.out.Bytes(), &page); err != nil {
		t.Fatalf("history output: %v\n%s", err, h.out)
	}
	if len(page.Data) != 1 {
		t.Fatalf("changes = %d, want 1", len(page.Data))
	}
	if c := page.Data[0]; c.ColumnName != "Quantity" || c.Actor() != "alice" {
		t.Errorf("change = %+v", c)
	}
}

func TestDataPageFooter(t *testing.T) {
	h := newHarness(t, FormatText)
	if err := h.runner.DataPage(context.Background(), "inventory.xlsx", PageOptions{Sheet: "suppliers"}); err != nil {
		t.Fatal(err)
	}
	out := h.out.String()
	if !strings.Contains(out, "Globex") || !strings.Contains(out, "page 1, 2 row(s)") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "next:") {
		t.Error("short page advertises a next page")
	}
}

func TestExportWritesAttachment(t *testing.T) {
	h := newHarness(t, FormatText)
	out := filepath.Join(t.TempDir(), "out.xlsx")

	if err := h.runner.Export(context.Background(), "inventory.xlsx", ExportOptions{Sheet: "stok", Out: out}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		t.Fatalf("export not written: %v", err)
	}
}

func TestDiagnose(t *testing.T) {
	h := newHarness(t, FormatJSON)
	if err := h.runner.Diagnose(context.Background(), DiagnoseOptions{File: "inventory.xlsx"}); err != nil {
		t.Fatalf("Diagnose() failed: %v\n%s", err, h.out)
	}
	var steps []Step
	if err := json.Unmarshal(h.out.Bytes(), &steps); err != nil {
		t.Fatal(err)
	}
	if len(steps) != 6 {
		t.Errorf("steps = %d, want 6", len(steps))
	}
}

func TestDiagnoseUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	var out bytes.Buffer
	r := &Runner{
		App: app.New(types.Profile{Name: "down", BaseURL: srv.URL + "/api", TimeoutSeconds: 2}, app.Options{}),
		Out: &Printer{Out: &out, Format: FormatText},
		Err: &bytes.Buffer{},
	}
	err := r.Diagnose(context.Background(), DiagnoseOptions{File: "x.xlsx"})
	if !errors.Is(err, ErrDiagnosticsFailed) {
		t.Fatalf("Diagnose() error = %v, want ErrDiagnosticsFailed", err)
	}
	if !strings.Contains(out.String(), "FAIL") {
		t.Errorf("output has no failed step:\n%s", out.String())
	}
	if strings.Contains(out.String(), "first page") {
		t.Error("file checks ran although the backend is down")
	}
}

func TestJournalListsRequests(t *testing.T) {
	h := newHarness(t, FormatJSON)
	if err := h.runner.Test(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.out.Reset()
	if err := h.runner.JournalList(journal.Query{}); err != nil {
		t.Fatal(err)
	}
	var entries []journal.Entry
	if err := json.Unmarshal(h.out.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || !strings.HasSuffix(entries[0].URL, "/excel/test") {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParseAssignments(t *testing.T) {
	data, err := ParseAssignments([]string{"Qty=12", "Name=Bolt M6", "Active=true", "Note=", "Empty=null"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Qty", "Name", "Active", "Note", "Empty"}
	if got := data.Keys(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if v, _ := data.Get("Qty"); v != json.Number("12") {
		t.Errorf("Qty = %#v, want json.Number", v)
	}
	if v, _ := data.Get("Active"); v != true {
		t.Errorf("Active = %#v", v)
	}

	for _, bad := range [][]string{{"novalue"}, {"=1"}, nil} {
		if _, err := ParseAssignments(bad); err == nil {
			t.Errorf("ParseAssignments(%q) succeeded", bad)
		}
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-06-01T08:00:00Z", time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), false},
		{"7d", now.AddDate(0, 0, -7), false},
		{"36h", now.Add(-36 * time.Hour), false},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in, now)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got, err := ParseDate("", now); got != nil || err != nil {
		t.Errorf("ParseDate(\"\") = %v, %v", got, err)
	}
}

func TestPrinterFormats(t *testing.T) {
	value := []types.SheetRef{{Name: "stok", RowCount: 3}}
	tests := []struct {
		format string
		want   string
	}{
		{FormatJSON, `"rowCount": 3`},
		{FormatYAML, "rowCount: 3"},
		{FormatTable, "stok"},
		{FormatText, "stok"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		p := &Printer{Out: &buf, Format: tt.format}
		if err := p.Print(value, func() Table { return sheetsTable(value) }); err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("%s output missing %q:\n%s", tt.format, tt.want, buf.String())
		}
	}

	if err := (&Printer{Out: &bytes.Buffer{}, Format: "xml"}).Print(value, nil); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	got := Truncate("日本語のテキストです", 8)
	if w := len([]rune(got)); w > 5 {
		t.Errorf("Truncate(wide) = %q, too long", got)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"\n", false},
		{"", false},
		{"nope\n", false},
	}
	for _, tt := range tests {
		if got := Confirm(strings.NewReader(tt.input), &bytes.Buffer{}, "ok?"); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestBulkUpdate(t *testing.T) {
	h := newHarness(t, FormatText)
	h.runner.In = strings.NewReader(`[
  // restock
  {"id": 1, "data": {"Quantity": 150}},
  {"id": 2, "data": {"Quantity": 300}}
]`)
	ctx := context.Background()

	if err := h.runner.BulkUpdate(ctx, "-"); err != nil {
		t.Fatalf("BulkUpdate() failed: %v", err)
	}

	env, err := h.runner.App.API.Files.Data(ctx, api.DataQuery{FileName: "inventory.xlsx", SheetName: "stok", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	want := map[int64]string{1: "150", 2: "300"}
	seen := 0
	for _, row := range env.Data {
		w, ok := want[row.ID]
		if !ok {
			continue
		}
		seen++
		got, _ := row.Data.Get("Quantity")
		if types.FormatScalar(got) != w {
			t.Errorf("row %d Quantity = %v, want %s", row.ID, got, w)
		}
		if row.ModifiedBy != "alice" {
			t.Errorf("row %d ModifiedBy = %v, want alice", row.ID, row.ModifiedBy)
		}
	}
	if seen != len(want) {
		t.Errorf("found %d of the updated rows", seen)
	}
}

func TestReadUpdatesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "id=1"},
		{"empty list", "[]"},
		{"missing id", `[{"data": {"A": 1}}]`},
		{"no columns", `[{"id": 3, "data": {}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadUpdates("-", strings.NewReader(tt.input)); err == nil {
				t.Errorf("ReadUpdates(%q) succeeded, want an error", tt.input)
			}
		})
	}

	path := filepath.Join(t.TempDir(), "updates.json")
	if err := os.WriteFile(path, []byte(`[{"id": 4, "data": {"Item": "Nut"}}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	updates, err := ReadUpdates(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(updates) != 1 || updates[0].ID != 4 {
		t.Errorf("updates = %+v", updates)
	}
}
