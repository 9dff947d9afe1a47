package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/studiowebux/sheetdesk/internal/app"
	"github.com/studiowebux/sheetdesk/internal/keybinds"
	"github.com/studiowebux/sheetdesk/internal/mock"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// newTestModel starts a mock backend with two versions of the inventory
// workbook and returns a sized, initialized model.
func newTestModel(t *testing.T, keys *keybinds.Registry) *Model {
	t.Helper()
	return newWrappedModel(t, keys, nil)
}

// newWrappedModel is newTestModel with wrap, when set, placed in front of
// the backend handler.
func newWrappedModel(t *testing.T, keys *keybinds.Registry, wrap func(http.Handler) http.Handler) *Model {
	t.Helper()

	cfg := mock.DefaultConfig()
	cfg.Files = append(cfg.Files, mock.SeedFile{
		Name: "inventory_v2.xlsx",
		Sheets: []mock.SeedSheet{{
			Name:    "stok",
			Columns: []string{"Code", "Item", "Quantity", "Price"},
			Rows: [][]any{
				{"A-100", "Bolt", 150, 0.25},
				{"A-101", "Nut", 340, 0.1},
				{"B-200", "Washer", 75, 0.05},
			},
		}},
	})
	backend := mock.NewBackend(cfg)
	handler := backend.Handler()
	if wrap != nil {
		handler = wrap(handler)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	a := app.New(types.Profile{Name: "test", BaseURL: server.URL + backend.BasePath(), User: "alice"}, app.Options{})
	t.Cleanup(func() { a.Close() })

	m := New(context.Background(), a, keys)
	m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	drain(t, m, m.Init())
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// drain runs cmd and feeds the background results back into the model
// until nothing is left. Timer messages are dropped.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case resultMsg, viewMsg:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(t *testing.T, m *Model, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := m.Update(keyMsg(k))
		drain(t, m, cmd)
	}
}

// typeText sends each rune as its own key press.
func typeText(t *testing.T, m *Model, text string) {
	t.Helper()
	for _, r := range text {
		press(t, m, string(r))
	}
}

func openInventory(t *testing.T, m *Model) {
	t.Helper()
	press(t, m, "2")
	for i, f := range m.app.Files.Files() {
		if f.FileName == "inventory.xlsx" {
			m.cursor[shell.Files] = i
		}
	}
	press(t, m, "enter")
	if m.screen() != shell.Data {
		t.Fatalf("screen = %s after open, want data", m.screen().Title())
	}
}

func cell(row types.DataRow, column string) string {
	v, _ := row.Data.Get(column)
	return types.FormatScalar(v)
}

func TestDashboardLoadsOnStart(t *testing.T) {
	m := newTestModel(t, nil)

	if got := m.app.Dashboard.Connection().String(); got != "connected" {
		t.Errorf("connection = %q", got)
	}
	if got := m.app.Dashboard.Stats().TotalFiles; got != 2 {
		t.Errorf("TotalFiles = %d, want 2", got)
	}
	view := m.View()
	for _, want := range []string{"inventory.xlsx", "Recent files", "1 Dashboard"} {
		if !strings.Contains(view, want) {
			t.Errorf("dashboard view missing %q", want)
		}
	}
	if m.pending != 0 {
		t.Errorf("pending = %d after drain", m.pending)
	}
}

func TestOpenFileShowsRows(t *testing.T) {
	m := newTestModel(t, nil)
	openInventory(t, m)

	if got := m.app.Data.FileName(); got != "inventory.xlsx" {
		t.Errorf("data file = %q", got)
	}
	if got := len(m.app.Data.Rows()); got != 3 {
		t.Fatalf("rows = %d, want 3", got)
	}
	if !strings.Contains(m.View(), "Washer") {
		t.Error("data view does not show the rows")
	}

	press(t, m, "]")
	if got := m.app.Data.Sheet(); got != "suppliers" {
		t.Errorf("sheet after ] = %q, want suppliers", got)
	}
	if got := len(m.app.Data.Rows()); got != 2 {
		t.Errorf("supplier rows = %d, want 2", got)
	}
}

func TestEditRowThenRevertFromHistory(t *testing.T) {
	m := newTestModel(t, nil)
	openInventory(t, m)

	press(t, m, "e")
	if m.mode != ModeEdit {
		t.Fatalf("mode = %d, want edit", m.mode)
	}
	for i, col := range m.edit.columns {
		if col == "Quantity" {
			m.edit.fields[i].SetValue("150")
		}
	}
	press(t, m, "enter")

	if m.mode != ModeNormal {
		t.Errorf("mode = %d after save", m.mode)
	}
	row := m.app.Data.Rows()[0]
	if got := cell(row, "Quantity"); got != "150" {
		t.Fatalf("Quantity = %q after edit, want 150", got)
	}

	press(t, m, "5", "r")
	entries := m.app.History.Entries()
	if len(entries) == 0 {
		t.Fatal("history is empty after an edit")
	}
	if got := entries[0].Actor(); got != "alice" {
		t.Errorf("change by %q, want alice", got)
	}

	press(t, m, "R")
	if m.mode != ModeConfirm {
		t.Fatalf("mode = %d after R, want confirm", m.mode)
	}
	press(t, m, "y")
	if m.mode != ModeInput {
		t.Fatalf("mode = %d after confirming, want the reason prompt", m.mode)
	}
	typeText(t, m, "typo")
	press(t, m, "enter")

	if err := shell.Run(context.Background(), []shell.Fetch{m.app.Data.Load}); err != nil {
		t.Fatal(err)
	}
	if got := cell(m.app.Data.Rows()[0], "Quantity"); got != "120" {
		t.Errorf("Quantity = %q after revert, want 120", got)
	}
}

func TestRowHistoryShowsBackendFailure(t *testing.T) {
	m := newWrappedModel(t, nil, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "/history/data/") {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"success":false,"message":"history store offline"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	openInventory(t, m)

	press(t, m, "H")
	if m.mode == ModeViewer {
		t.Fatalf("viewer opened for a failed lookup: %q", m.viewer.title)
	}
	if m.errorMsg != "history store offline" {
		t.Errorf("errorMsg = %q, want the backend message", m.errorMsg)
	}
}

func TestRowHistoryListsChanges(t *testing.T) {
	m := newTestModel(t, nil)
	openInventory(t, m)

	press(t, m, "H")
	if m.mode != ModeViewer {
		t.Fatalf("mode = %d, want viewer", m.mode)
	}
	if !strings.Contains(m.View(), "History of row") {
		t.Error("viewer title missing")
	}
}

func TestDeleteRowNeedsConfirmation(t *testing.T) {
	m := newTestModel(t, nil)
	openInventory(t, m)

	press(t, m, "d")
	if m.mode != ModeConfirm {
		t.Fatalf("mode = %d, want confirm", m.mode)
	}
	press(t, m, "n")
	if _, pending := m.app.Data.PendingDelete(); pending {
		t.Error("cancel left a pending delete")
	}
	if got := len(m.app.Data.Rows()); got != 3 {
		t.Fatalf("rows = %d after cancel", got)
	}

	press(t, m, "d", "y")
	if got := len(m.app.Data.Rows()); got != 2 {
		t.Errorf("rows = %d after delete, want 2", got)
	}
}

func TestFilterPromptIsLiveAndIsolated(t *testing.T) {
	m := newTestModel(t, nil)
	press(t, m, "2", "/")
	if m.mode != ModeInput {
		t.Fatalf("mode = %d, want input", m.mode)
	}

	// "2" would switch screens outside the prompt.
	typeText(t, m, "v2")
	if got := len(m.app.Files.Files()); got != 1 {
		t.Errorf("files while typing = %d, want 1", got)
	}
	if m.screen() != shell.Files {
		t.Errorf("typing moved to screen %s", m.screen().Title())
	}

	press(t, m, "esc")
	if got := m.app.Files.Filter(); got != "" {
		t.Errorf("filter after esc = %q, want it restored", got)
	}

	press(t, m, "/")
	typeText(t, m, "v2")
	press(t, m, "enter")
	if got := m.app.Files.Filter(); got != "v2" {
		t.Errorf("filter = %q, want v2", got)
	}
}

func TestCompareTwoFiles(t *testing.T) {
	m := newTestModel(t, nil)
	press(t, m, "4")
	if len(m.app.Comparison.Files()) != 2 {
		t.Fatalf("comparison files = %d, want 2", len(m.app.Comparison.Files()))
	}

	press(t, m, "a")
	if m.mode != ModePicker {
		t.Fatalf("mode = %d, want picker", m.mode)
	}
	press(t, m, "esc")
	m.app.Comparison.SetFile1("inventory.xlsx")

	// Only the other file is offered.
	press(t, m, "b")
	if got := m.picker.items; len(got) != 1 || got[0] != "inventory_v2.xlsx" {
		t.Fatalf("picker items = %v", got)
	}
	press(t, m, "enter")

	press(t, m, "s")
	typeText(t, m, "stok")
	press(t, m, "enter", "enter")

	result, ok := m.app.Comparison.Result()
	if !ok {
		t.Fatalf("no comparison result: %s", m.app.Comparison.ErrorMessage())
	}
	if len(result.Differences) != 1 {
		t.Fatalf("differences = %+v, want one", result.Differences)
	}
	if d := result.Differences[0]; d.ColumnName != "Quantity" {
		t.Errorf("difference in %q, want Quantity", d.ColumnName)
	}
	if !strings.Contains(m.View(), "Quantity") {
		t.Error("comparison view does not list the difference")
	}
}

func TestHelpAndQuit(t *testing.T) {
	m := newTestModel(t, nil)

	press(t, m, "?")
	if m.mode != ModeHelp {
		t.Fatalf("mode = %d, want help", m.mode)
	}
	if !strings.Contains(m.View(), "Everywhere") {
		t.Error("help does not list global keys")
	}
	press(t, m, "x")
	if m.mode != ModeNormal {
		t.Errorf("help did not close")
	}

	_, cmd := m.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestCustomKeybinds(t *testing.T) {
	keys := keybinds.NewDefaultRegistry()
	keys.Register(keybinds.ContextGlobal, "F", keybinds.ActionFiles)
	m := newTestModel(t, keys)

	press(t, m, "F")
	if m.screen() != shell.Files {
		t.Errorf("screen = %s, want files", m.screen().Title())
	}
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		cursor, height, want int
	}{
		{0, 10, 0},
		{9, 10, 0},
		{10, 10, 1},
		{25, 10, 16},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := windowStart(tt.cursor, tt.height); got != tt.want {
			t.Errorf("windowStart(%d, %d) = %d, want %d", tt.cursor, tt.height, got, tt.want)
		}
	}
}

func TestCycle(t *testing.T) {
	ops := []string{"", "Update", "Insert"}
	if got := cycle(ops, ""); got != "Update" {
		t.Errorf("cycle from empty = %q", got)
	}
	if got := cycle(ops, "Insert"); got != "" {
		t.Errorf("cycle wraps to %q", got)
	}
	if got := cycle(ops, "unknown"); got != "" {
		t.Errorf("cycle from unknown = %q", got)
	}
}
