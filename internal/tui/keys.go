package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/studiowebux/sheetdesk/internal/cli"
	"github.com/studiowebux/sheetdesk/internal/keybinds"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// pageStep is how far page up and page down move a list cursor.
const pageStep = 10

var screenContexts = map[shell.Screen]keybinds.Context{
	shell.Dashboard:  keybinds.ContextDashboard,
	shell.Files:      keybinds.ContextFiles,
	shell.Data:       keybinds.ContextData,
	shell.Comparison: keybinds.ContextComparison,
	shell.History:    keybinds.ContextHistory,
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if action, ok := m.keys.Lookup(keybinds.ContextGlobal, key); ok && action == keybinds.ActionQuitForce {
		return m, tea.Quit
	}

	switch m.mode {
	case ModeConfirm:
		return m.updateConfirm(key)
	case ModeInput:
		return m.updateInput(msg)
	case ModeEdit:
		return m.updateEdit(msg)
	case ModeViewer:
		return m.updateViewer(msg)
	case ModePicker:
		return m.updatePicker(msg)
	case ModeHelp:
		if action, ok := m.keys.Lookup(keybinds.ContextViewer, key); ok && action != keybinds.ActionClose {
			var cmd tea.Cmd
			m.helpView, cmd = m.helpView.Update(msg)
			return m, cmd
		}
		m.mode = ModeNormal
		return m, nil
	}

	screen := m.screen()
	action, ok, partial := m.keys.MatchSequence(key, screenContexts[screen], keybinds.ContextList)
	if partial || !ok {
		return m, nil
	}

	if m.moveCursor(action) {
		return m, nil
	}
	if cmd, handled := m.globalAction(action); handled {
		return m, cmd
	}

	switch screen {
	case shell.Dashboard:
		return m, m.dashboardAction(action)
	case shell.Files:
		return m, m.filesAction(action)
	case shell.Data:
		return m, m.dataAction(action)
	case shell.Comparison:
		return m, m.comparisonAction(action)
	case shell.History:
		return m, m.historyAction(action)
	}
	return m, nil
}

func (m *Model) globalAction(action keybinds.Action) (tea.Cmd, bool) {
	screens := shell.Screens()
	switch action {
	case keybinds.ActionQuit, keybinds.ActionQuitForce:
		return tea.Quit, true
	case keybinds.ActionNextScreen, keybinds.ActionPrevScreen:
		step := 1
		if action == keybinds.ActionPrevScreen {
			step = len(screens) - 1
		}
		for i, s := range screens {
			if s == m.screen() {
				return m.navigate(screens[(i+step)%len(screens)]), true
			}
		}
		return nil, true
	case keybinds.ActionDashboard:
		return m.navigate(shell.Dashboard), true
	case keybinds.ActionFiles:
		return m.navigate(shell.Files), true
	case keybinds.ActionData:
		return m.navigate(shell.Data), true
	case keybinds.ActionComparison:
		return m.navigate(shell.Comparison), true
	case keybinds.ActionHistory:
		return m.navigate(shell.History), true
	case keybinds.ActionRefresh:
		m.clearMessages()
		return m.refresh(m.screen()), true
	case keybinds.ActionHelp:
		m.helpView.SetContent(m.helpText())
		m.helpView.GotoTop()
		m.mode = ModeHelp
		return nil, true
	case keybinds.ActionCopy:
		m.copyText(m.selectionJSON())
		return nil, true
	case keybinds.ActionDismiss:
		m.clearMessages()
		st := m.state(m.screen())
		st.ClearError()
		st.ClearSuccess()
		return nil, true
	}
	return nil, false
}

// navigate switches screens and loads what the new screen shows.
func (m *Model) navigate(screen shell.Screen) tea.Cmd {
	fetches := m.app.Shell.Navigate(screen)
	return m.fetch(append(fetches, m.enter(screen)...)...)
}

// enter returns the loads a screen needs when it is shown.
func (m *Model) enter(screen shell.Screen) []shell.Fetch {
	switch screen {
	case shell.Dashboard:
		return []shell.Fetch{m.app.Dashboard.Load}
	case shell.Files:
		return []shell.Fetch{m.app.Files.Refresh}
	case shell.Comparison:
		if len(m.app.Comparison.Files()) == 0 {
			return []shell.Fetch{m.app.Comparison.Load}
		}
	case shell.History:
		if len(m.app.History.Entries()) == 0 {
			return []shell.Fetch{m.app.History.Load}
		}
	}
	return nil
}

func (m *Model) refresh(screen shell.Screen) tea.Cmd {
	switch screen {
	case shell.Data:
		if m.app.Data.FileName() == "" {
			return nil
		}
		return m.fetch(m.app.Data.Load)
	case shell.Comparison:
		return m.fetch(m.app.Comparison.Load)
	case shell.History:
		return m.fetch(m.app.History.Load)
	}
	return m.fetch(m.enter(screen)...)
}

// open selects a file and shows its rows.
func (m *Model) open(name string) tea.Cmd {
	m.cursor[shell.Data] = 0
	return m.fetch(m.app.Shell.Open(name)...)
}

func (m *Model) listLen(screen shell.Screen) int {
	switch screen {
	case shell.Dashboard:
		return len(m.app.Dashboard.Stats().Recent)
	case shell.Files:
		return len(m.app.Files.Files())
	case shell.Data:
		return len(m.app.Data.Rows())
	case shell.Comparison:
		result, _ := m.app.Comparison.Result()
		return len(result.Differences)
	case shell.History:
		return len(m.app.History.Entries())
	}
	return 0
}

func (m *Model) moveCursor(action keybinds.Action) bool {
	screen := m.screen()
	n := m.listLen(screen)
	c := m.cursor[screen]
	switch action {
	case keybinds.ActionUp:
		c--
	case keybinds.ActionDown:
		c++
	case keybinds.ActionPageUp:
		c -= pageStep
	case keybinds.ActionPageDown:
		c += pageStep
	case keybinds.ActionTop:
		c = 0
	case keybinds.ActionBottom:
		c = n - 1
	default:
		return false
	}
	m.cursor[screen] = max(0, min(c, n-1))
	return true
}

// clampCursor keeps every cursor inside its list after a reload.
func (m *Model) clampCursor() {
	for _, s := range shell.Screens() {
		n := m.listLen(s)
		m.cursor[s] = max(0, min(m.cursor[s], n-1))
	}
}

func (m *Model) selectedFile() (types.FileRecord, bool) {
	files := m.app.Files.Files()
	i := m.cursor[shell.Files]
	if i >= len(files) {
		return types.FileRecord{}, false
	}
	return files[i], true
}

func (m *Model) selectedRow() (types.DataRow, bool) {
	rows := m.app.Data.Rows()
	i := m.cursor[shell.Data]
	if i >= len(rows) {
		return types.DataRow{}, false
	}
	return rows[i], true
}

func (m *Model) selectedChange() (types.ChangeRecord, bool) {
	entries := m.app.History.Entries()
	i := m.cursor[shell.History]
	if i >= len(entries) {
		return types.ChangeRecord{}, false
	}
	return entries[i], true
}

// selectionJSON is the item under the cursor as indented JSON.
func (m *Model) selectionJSON() string {
	var v any
	switch m.screen() {
	case shell.Dashboard:
		recent := m.app.Dashboard.Stats().Recent
		if i := m.cursor[shell.Dashboard]; i < len(recent) {
			v = recent[i]
		}
	case shell.Files:
		if f, ok := m.selectedFile(); ok {
			v = f
		}
	case shell.Data:
		if r, ok := m.selectedRow(); ok {
			v = r.Data
		}
	case shell.Comparison:
		result, _ := m.app.Comparison.Result()
		if i := m.cursor[shell.Comparison]; i < len(result.Differences) {
			v = result.Differences[i]
		}
	case shell.History:
		if c, ok := m.selectedChange(); ok {
			v = c
		}
	}
	if v == nil {
		return ""
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func (m *Model) dashboardAction(action keybinds.Action) tea.Cmd {
	if action != keybinds.ActionOpen {
		return nil
	}
	recent := m.app.Dashboard.Stats().Recent
	i := m.cursor[shell.Dashboard]
	if i >= len(recent) {
		return nil
	}
	return m.open(recent[i].FileName)
}

func (m *Model) filesAction(action keybinds.Action) tea.Cmd {
	fm := m.app.Files

	switch action {
	case keybinds.ActionUpload:
		m.openInput("Upload workbook (.xlsx, .xls)", "path/to/workbook.xlsx", "", func(path string) tea.Cmd {
			if path == "" {
				return nil
			}
			return m.fetch(func(ctx context.Context) error { return fm.UploadPath(ctx, path) })
		})
		return nil
	case keybinds.ActionFilter:
		in := m.openInput("Filter files", "fuzzy match on the name", fm.Filter(), func(q string) tea.Cmd {
			fm.SetFilter(q)
			m.cursor[shell.Files] = 0
			return nil
		})
		previous := fm.Filter()
		in.onChange = fm.SetFilter
		in.onCancel = func() { fm.SetFilter(previous) }
		return nil
	}

	file, ok := m.selectedFile()
	if !ok {
		return nil
	}
	name := file.FileName

	switch action {
	case keybinds.ActionOpen:
		return m.open(name)
	case keybinds.ActionDelete:
		fm.RequestDelete(name)
		m.openConfirm(fmt.Sprintf("Delete %s and all of its data?", name),
			func() tea.Cmd { return m.fetch(fm.ConfirmDelete) },
			fm.CancelDelete)
	case keybinds.ActionReprocess:
		return m.fetch(func(ctx context.Context) error { return fm.Reprocess(ctx, name) })
	case keybinds.ActionCompareTo:
		m.app.Comparison.SetFile1(name)
		cmd := m.navigate(shell.Comparison)
		m.pickComparisonFile("Compare "+name+" with", name, m.app.Comparison.SetFile2)
		return cmd
	case keybinds.ActionRowHistory:
		fetches := m.app.Shell.SelectFile(name)
		return tea.Batch(m.fetch(fetches...), m.navigate(shell.History))
	}
	return nil
}

func (m *Model) dataAction(action keybinds.Action) tea.Cmd {
	v := m.app.Data
	if v.FileName() == "" {
		m.statusMsg = "Open a file from the Files screen first"
		return nil
	}

	switch action {
	case keybinds.ActionNextPage:
		if cmd := m.fetch(v.NextPage()); cmd != nil {
			m.cursor[shell.Data] = 0
			return cmd
		}
		m.statusMsg = "Last page"
		return nil
	case keybinds.ActionPrevPage:
		m.cursor[shell.Data] = 0
		return m.fetch(v.PrevPage())
	case keybinds.ActionNextSheet, keybinds.ActionPrevSheet:
		sheets := v.Sheets()
		if len(sheets) == 0 {
			return nil
		}
		step := 1
		if action == keybinds.ActionPrevSheet {
			step = len(sheets) - 1
		}
		next := 0
		for i, s := range sheets {
			if s.Name == v.Sheet() {
				next = (i + step) % len(sheets)
			}
		}
		m.cursor[shell.Data] = 0
		return m.fetch(v.SelectSheet(sheets[next].Name))
	case keybinds.ActionStats:
		return m.show("Statistics: "+v.FileName(), func(ctx context.Context) (string, string, error) {
			if err := v.LoadStatistics(ctx); err != nil {
				return "", "", err
			}
			stats, _ := v.Statistics()
			return renderStatistics(stats), toJSON(stats), nil
		})
	case keybinds.ActionExport:
		name := v.FileName()
		return m.task(func(ctx context.Context) (string, error) {
			resp, err := v.Export(ctx, false)
			if err != nil {
				return "", err
			}
			path, err := cli.SaveResponse(resp, "", name+"_export.xlsx")
			if err != nil {
				return "", err
			}
			return "Exported to " + path, nil
		})
	case keybinds.ActionReprocess:
		return m.fetch(v.Reprocess)
	}

	row, ok := m.selectedRow()
	if !ok {
		return nil
	}
	switch action {
	case keybinds.ActionEdit:
		if err := v.StartEdit(row.ID); err != nil {
			m.errorMsg = err.Error()
			return nil
		}
		columns := v.Columns()
		values := make([]string, len(columns))
		for i, col := range columns {
			val, _ := row.Data.Get(col)
			values[i] = types.FormatScalar(val)
		}
		m.openEdit(row.ID, columns, values)
	case keybinds.ActionDelete:
		v.RequestDeleteRow(row.ID)
		m.openConfirm(fmt.Sprintf("Delete row %d?", row.ID),
			func() tea.Cmd { return m.fetch(v.ConfirmDeleteRow) },
			v.CancelDelete)
	case keybinds.ActionRowHistory:
		id := row.ID
		h := m.app.History
		return m.show(fmt.Sprintf("History of row %d", id), func(ctx context.Context) (string, string, error) {
			changes, err := h.RowHistory(ctx, id)
			if err != nil {
				return "", "", err
			}
			return renderChangeList(changes), toJSON(changes), nil
		})
	}
	return nil
}

func (m *Model) saveEdit(form *editForm) tea.Cmd {
	v := m.app.Data
	changed := form.changed()
	if len(changed) == 0 {
		v.CancelEdit()
		m.statusMsg = "No changes"
		return nil
	}
	for col, value := range changed {
		if err := v.SetEditValue(col, value); err != nil {
			m.errorMsg = err.Error()
			return nil
		}
	}
	return m.fetch(v.SaveEdit)
}

// pickComparisonFile offers every known file except exclude.
func (m *Model) pickComparisonFile(title, exclude string, set func(string)) {
	var names []string
	for _, f := range m.app.Comparison.Files() {
		if f.FileName != exclude {
			names = append(names, f.FileName)
		}
	}
	if len(names) == 0 {
		for _, f := range m.app.Files.Files() {
			if f.FileName != exclude {
				names = append(names, f.FileName)
			}
		}
	}
	m.openPicker(title, names, func(name string) tea.Cmd {
		set(name)
		return nil
	})
}

var exportFormats = []string{string(types.ExportExcel), string(types.ExportCSV), string(types.ExportJSON)}

func (m *Model) comparisonAction(action keybinds.Action) tea.Cmd {
	c := m.app.Comparison
	file1, file2, _ := c.Selected()

	switch action {
	case keybinds.ActionPickFile1:
		m.pickComparisonFile("First file", file2, c.SetFile1)
	case keybinds.ActionPickFile2:
		m.pickComparisonFile("Second file", file1, c.SetFile2)
	case keybinds.ActionChooseSheet:
		_, _, sheet := c.Selected()
		m.openInput("Sheet to compare (empty for every sheet)", "Sheet1", sheet, func(s string) tea.Cmd {
			c.SetSheet(s)
			return nil
		})
	case keybinds.ActionToggleCase:
		s := c.Settings()
		s.IgnoreCase = !s.IgnoreCase
		c.SetSettings(s)
	case keybinds.ActionToggleWhitespace:
		s := c.Settings()
		s.IgnoreWhitespace = !s.IgnoreWhitespace
		c.SetSettings(s)
	case keybinds.ActionNextTemplate:
		templates := c.Templates()
		if len(templates) == 0 {
			m.statusMsg = "No saved templates"
			return nil
		}
		m.templateIndex = (m.templateIndex + 1) % len(templates)
		if err := c.ApplyTemplate(m.templateIndex); err != nil {
			m.errorMsg = err.Error()
			return nil
		}
		m.statusMsg = "Template: " + templates[m.templateIndex].Name
	case keybinds.ActionCompare:
		m.cursor[shell.Comparison] = 0
		m.clearMessages()
		return m.fetch(c.Compare)
	case keybinds.ActionExport:
		result, ok := c.Result()
		if !ok {
			m.statusMsg = "Run a comparison first"
			return nil
		}
		m.openPicker("Export format", exportFormats, func(f string) tea.Cmd {
			format := types.ExportFormat(f)
			return m.task(func(ctx context.Context) (string, error) {
				resp, err := c.Export(ctx, format)
				if err != nil {
					return "", err
				}
				path, err := cli.SaveResponse(resp, "", "comparison_"+result.ComparisonID+format.Extension())
				if err != nil {
					return "", err
				}
				return "Exported to " + path, nil
			})
		})
	}
	return nil
}

// historyOperations is the cycle of the operation filter.
var historyOperations = []string{"", string(types.ChangeUpdate), string(types.ChangeInsert), string(types.ChangeDelete)}

func (m *Model) historyAction(action keybinds.Action) tea.Cmd {
	h := m.app.History
	filters := h.Filters()

	switch action {
	case keybinds.ActionSearch:
		m.openInput("Search changes", "value, column or description", filters.Search, func(term string) tea.Cmd {
			m.cursor[shell.History] = 0
			return m.fetch(h.SetSearch(term))
		})
		return nil
	case keybinds.ActionNextOperation:
		m.cursor[shell.History] = 0
		return m.fetch(h.SetOperation(cycle(historyOperations, filters.Operation)))
	case keybinds.ActionNextSheet:
		m.cursor[shell.History] = 0
		return m.fetch(h.SetSheet(cycle(append([]string{""}, h.Sheets()...), filters.Sheet)))
	case keybinds.ActionNextPage:
		if cmd := m.fetch(h.NextPage()); cmd != nil {
			m.cursor[shell.History] = 0
			return cmd
		}
		m.statusMsg = "Last page"
		return nil
	case keybinds.ActionPrevPage:
		m.cursor[shell.History] = 0
		return m.fetch(h.PrevPage())
	case keybinds.ActionClearFilters:
		changed := false
		for _, f := range []func() bool{
			func() bool { return h.SetSearch("") != nil },
			func() bool { return h.SetOperation("") != nil },
			func() bool { return h.SetSheet("") != nil },
			func() bool { return h.SetDateRange(nil, nil) != nil },
		} {
			changed = f() || changed
		}
		if !changed {
			return nil
		}
		m.cursor[shell.History] = 0
		return m.fetch(h.Load)
	case keybinds.ActionStats:
		return m.show("Change statistics", func(ctx context.Context) (string, string, error) {
			if err := h.LoadStats(ctx); err != nil {
				return "", "", err
			}
			stats, _ := h.Stats()
			return renderHistoryStats(stats), toJSON(stats), nil
		})
	case keybinds.ActionExport:
		m.openPicker("Export format", exportFormats, func(f string) tea.Cmd {
			format := types.ExportFormat(f)
			return m.task(func(ctx context.Context) (string, error) {
				resp, err := h.Export(ctx, format)
				if err != nil {
					return "", err
				}
				path, err := cli.SaveResponse(resp, "", "history_export"+format.Extension())
				if err != nil {
					return "", err
				}
				return "Exported to " + path, nil
			})
		})
		return nil
	}

	change, ok := m.selectedChange()
	if !ok {
		return nil
	}
	switch action {
	case keybinds.ActionDetails:
		id := change.ID
		return m.show(fmt.Sprintf("Change %d", id), func(ctx context.Context) (string, string, error) {
			c, err := h.Details(ctx, id)
			if err != nil {
				return "", "", err
			}
			return renderChange(c), toJSON(c), nil
		})
	case keybinds.ActionRevert:
		id := change.ID
		h.RequestRevert(id)
		m.openConfirm(fmt.Sprintf("Revert change %d (%s %s)?", id, change.Kind(), change.ColumnName),
			func() tea.Cmd {
				in := m.openInput("Reason for the revert (optional)", "", "", func(reason string) tea.Cmd {
					return m.fetch(func(ctx context.Context) error { return h.ConfirmRevert(ctx, reason) })
				})
				in.onCancel = h.CancelRevert
				return nil
			},
			h.CancelRevert)
	}
	return nil
}

// cycle returns the element after current, wrapping around.
func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// windowStart is the first visible index that keeps cursor on screen.
func windowStart(cursor, height int) int {
	if height <= 0 || cursor < height {
		return 0
	}
	return cursor - height + 1
}
