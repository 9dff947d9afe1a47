package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/studiowebux/sheetdesk/internal/controller"
	"github.com/studiowebux/sheetdesk/internal/keybinds"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// maxCellWidth caps a table column.
const maxCellWidth = 28

// chromeHeight is the lines taken by the header, status bar and footer.
const chromeHeight = 6

func (m *Model) View() string {
	header := m.renderHeader()
	status := m.renderStatus()
	footer := m.renderFooter()

	bodyHeight := max(3, m.height-chromeHeight)
	var body string
	if modal := m.renderModal(); modal != "" {
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, modal)
	} else {
		body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Padding(0, 1).Render(m.renderScreen(bodyHeight))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, footer)
}

func (m *Model) renderHeader() string {
	current := m.screen()
	var tabs []string
	for i, s := range shell.Screens() {
		label := fmt.Sprintf("%d %s", i+1, s.Title())
		if s == current {
			tabs = append(tabs, styleTabActive.Render(label))
		} else {
			tabs = append(tabs, styleTab.Render(label))
		}
	}

	conn := m.app.Dashboard.Connection()
	connStyle := styleSubtle
	switch conn {
	case controller.ConnectionUp:
		connStyle = styleSuccess
	case controller.ConnectionDown:
		connStyle = styleError
	}
	right := styleSubtle.Render(m.app.Profile.Name+" @ "+m.app.Executor.BaseURL()) + " " + connStyle.Render("● "+conn.String())

	left := styleTitle.Render("sheetdesk") + "  " + strings.Join(tabs, "")
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	line := left + strings.Repeat(" ", gap) + right
	return line + "\n" + styleSubtle.Render(strings.Repeat("─", max(0, m.width)))
}

func (m *Model) renderStatus() string {
	st := m.state(m.screen())
	var line string
	switch {
	case m.errorMsg != "":
		line = styleError.Render("✗ " + m.errorMsg)
	case st.ErrorMessage() != "":
		line = styleError.Render("✗ " + st.ErrorMessage())
	case m.statusMsg != "":
		line = styleSuccess.Render(m.statusMsg)
	case st.SuccessMessage() != "":
		line = styleSuccess.Render("✓ " + st.SuccessMessage())
	}
	if m.busy() {
		line = m.spinner.View() + " " + styleSubtle.Render("loading") + "  " + line
	}
	return truncate(line, m.width)
}

func (m *Model) renderFooter() string {
	ctx := screenContexts[m.screen()]
	hints := []string{}
	for _, b := range m.keys.ListBindings(ctx) {
		hints = append(hints, b.Key+" "+strings.ToLower(b.Action.Description()))
	}
	sort.Strings(hints)
	hints = append(hints, m.keys.KeyString(keybinds.ContextGlobal, keybinds.ActionHelp)+" help",
		m.keys.KeyString(keybinds.ContextGlobal, keybinds.ActionQuit)+" quit")
	return styleSubtle.Render(truncate(strings.Join(hints, " • "), m.width))
}

func (m *Model) renderScreen(height int) string {
	switch m.screen() {
	case shell.Files:
		return m.renderFiles(height)
	case shell.Data:
		return m.renderData(height)
	case shell.Comparison:
		return m.renderComparison(height)
	case shell.History:
		return m.renderHistory(height)
	default:
		return m.renderDashboard(height)
	}
}

func (m *Model) renderDashboard(height int) string {
	stats := m.app.Dashboard.Stats()
	var sb strings.Builder

	sb.WriteString(styleHeader.Render("Overview") + "\n")
	fmt.Fprintf(&sb, "  Connection     %s\n", m.app.Dashboard.Connection())
	fmt.Fprintf(&sb, "  Files          %d\n", stats.TotalFiles)
	fmt.Fprintf(&sb, "  Records        %s\n", humanize.Comma(int64(stats.TotalRecords)))
	fmt.Fprintf(&sb, "  Last upload    %s\n", when(stats.LastUpload))
	if m.app.Journal != nil {
		if n, err := m.app.Journal.Count(); err == nil {
			fmt.Fprintf(&sb, "  Journal        %d request(s) recorded\n", n)
		}
	}
	sb.WriteString("\n" + styleHeader.Render("Recent files") + "\n")

	if len(stats.Recent) == 0 {
		sb.WriteString(styleSubtle.Render("  No files yet. Upload one from the Files screen (2)."))
		return sb.String()
	}
	rows := make([][]string, len(stats.Recent))
	for i, f := range stats.Recent {
		rows[i] = []string{f.FileName, humanize.Bytes(uint64(f.Size)), strconv.Itoa(f.Records()), f.UploadedBy, when(f.UploadDate)}
	}
	sb.WriteString(renderTable([]string{"File", "Size", "Records", "Uploaded by", "Uploaded"}, rows, m.cursor[shell.Dashboard], height-9))
	return sb.String()
}

func (m *Model) renderFiles(height int) string {
	files := m.app.Files.Files()
	var sb strings.Builder
	title := fmt.Sprintf("%d file(s)", len(files))
	if q := m.app.Files.Filter(); q != "" {
		title += styleWarning.Render("  filter: " + q)
	}
	sb.WriteString(styleHeader.Render("Files") + "  " + styleSubtle.Render(title) + "\n\n")

	if len(files) == 0 {
		sb.WriteString(styleSubtle.Render("No files. Press u to upload a workbook."))
		return sb.String()
	}
	rows := make([][]string, len(files))
	for i, f := range files {
		records := "-"
		if f.RecordCount != nil {
			records = strconv.Itoa(*f.RecordCount)
		}
		rows[i] = []string{f.FileName, humanize.Bytes(uint64(f.Size)), records, f.UploadedBy, when(f.UploadDate)}
	}
	sb.WriteString(renderTable([]string{"File", "Size", "Records", "Uploaded by", "Uploaded"}, rows, m.cursor[shell.Files], height-3))
	return sb.String()
}

func (m *Model) renderData(height int) string {
	v := m.app.Data
	if v.FileName() == "" {
		return styleSubtle.Render("No file selected. Open one from the Files screen (2).")
	}

	var sb strings.Builder
	sb.WriteString(styleHeader.Render(v.FileName()) + "  ")
	for _, s := range v.Sheets() {
		label := fmt.Sprintf("%s (%d)", s.Name, s.RowCount)
		if s.Name == v.Sheet() {
			sb.WriteString(styleTabActive.Render(label))
		} else {
			sb.WriteString(styleTab.Render(label))
		}
	}
	rows := v.Rows()
	pageInfo := fmt.Sprintf("page %d • %d row(s)", v.Page(), len(rows))
	if v.HasNext() {
		pageInfo += " • more"
	}
	sb.WriteString("  " + styleSubtle.Render(pageInfo) + "\n\n")

	if len(rows) == 0 {
		sb.WriteString(styleSubtle.Render("This page is empty."))
		return sb.String()
	}
	columns := v.Columns()
	header := append([]string{"ID"}, columns...)
	table := make([][]string, len(rows))
	for i, row := range rows {
		line := []string{strconv.FormatInt(row.ID, 10)}
		for _, col := range columns {
			val, _ := row.Data.Get(col)
			line = append(line, types.FormatScalar(val))
		}
		table[i] = line
	}
	sb.WriteString(renderTable(header, table, m.cursor[shell.Data], height-3))
	return sb.String()
}

func (m *Model) renderComparison(height int) string {
	c := m.app.Comparison
	file1, file2, sheet := c.Selected()
	settings := c.Settings()

	var sb strings.Builder
	sb.WriteString(styleHeader.Render("Compare") + "\n")
	fmt.Fprintf(&sb, "  First file   %s\n", orDash(file1))
	fmt.Fprintf(&sb, "  Second file  %s\n", orDash(file2))
	fmt.Fprintf(&sb, "  Sheet        %s\n", orValue(sheet, "all sheets"))
	fmt.Fprintf(&sb, "  Settings     %s  %s\n",
		toggle("ignore case", settings.IgnoreCase), toggle("ignore whitespace", settings.IgnoreWhitespace))

	result, ok := c.Result()
	if !ok {
		sb.WriteString("\n" + styleSubtle.Render("Choose two files (a, b) and press enter to compare."))
		return sb.String()
	}

	s := result.Summary
	fmt.Fprintf(&sb, "\n%s  %s\n", styleHeader.Render("Result"),
		styleSubtle.Render(fmt.Sprintf("%d rows: %d modified, %d added, %d deleted, %d unchanged",
			s.TotalRows, s.ModifiedRows, s.AddedRows, s.DeletedRows, s.UnchangedRows)))
	if w := c.Warning(); w != "" {
		sb.WriteString(styleWarning.Render("  "+w) + "\n")
	}
	if len(result.Differences) == 0 {
		sb.WriteString(styleSuccess.Render("  The files are identical."))
		return sb.String()
	}
	rows := make([][]string, len(result.Differences))
	for i, d := range result.Differences {
		rows[i] = []string{string(d.Type), strconv.Itoa(d.RowIndex), d.ColumnName,
			types.FormatScalar(d.OldValue), types.FormatScalar(d.NewValue)}
	}
	sb.WriteString(renderTable([]string{"Type", "Row", "Column", "Old", "New"}, rows, m.cursor[shell.Comparison], height-10))
	return sb.String()
}

func (m *Model) renderHistory(height int) string {
	h := m.app.History
	f := h.Filters()

	var sb strings.Builder
	scope := "all files"
	if name := h.FileName(); name != "" {
		scope = name
	}
	total, pages := h.Totals()
	sb.WriteString(styleHeader.Render("History") + "  " + styleSubtle.Render(fmt.Sprintf("%s • page %d/%d • %d change(s)", scope, h.Page(), max(pages, 1), total)) + "\n")

	var filters []string
	if f.Search != "" {
		filters = append(filters, "search: "+f.Search)
	}
	if f.Operation != "" {
		filters = append(filters, "operation: "+f.Operation)
	}
	if f.Sheet != "" {
		filters = append(filters, "sheet: "+f.Sheet)
	}
	if len(filters) > 0 {
		sb.WriteString(styleWarning.Render("  "+strings.Join(filters, "  ")) + "\n")
	}
	sb.WriteString("\n")

	entries := h.Entries()
	if len(entries) == 0 {
		sb.WriteString(styleSubtle.Render("No changes."))
		return sb.String()
	}
	sb.WriteString(renderTable(changeHeader, changeRows(entries), m.cursor[shell.History], height-4))
	return sb.String()
}

var changeHeader = []string{"ID", "When", "Type", "By", "File", "Sheet", "Row", "Column", "Old", "New"}

func changeRows(entries []types.ChangeRecord) [][]string {
	rows := make([][]string, len(entries))
	for i, c := range entries {
		rows[i] = []string{
			strconv.FormatInt(c.ID, 10), when(c.When()), c.Kind(), c.Actor(), c.FileName, c.SheetName,
			strconv.Itoa(c.RowIndex), c.ColumnName, types.FormatScalar(c.OldValue), types.FormatScalar(c.NewValue),
		}
	}
	return rows
}

func renderChangeList(entries []types.ChangeRecord) string {
	if len(entries) == 0 {
		return "No changes recorded for this row."
	}
	return renderTable(changeHeader, changeRows(entries), -1, 0)
}

func renderChange(c types.ChangeRecord) string {
	return keyValues(
		"ID", strconv.FormatInt(c.ID, 10),
		"Type", c.Kind(),
		"When", when(c.When()),
		"By", c.Actor(),
		"File", c.FileName,
		"Sheet", c.SheetName,
		"Row", strconv.Itoa(c.RowIndex),
		"Column", c.ColumnName,
		"Old value", types.FormatScalar(c.OldValue),
		"New value", types.FormatScalar(c.NewValue),
		"Description", c.Description,
	)
}

func renderStatistics(s types.DataStatistics) string {
	return keyValues(
		"Rows", strconv.Itoa(s.TotalRows),
		"Columns", strconv.Itoa(s.TotalColumns),
		"Last modified", when(s.LastModified),
		"Modified by", s.ModifiedBy,
		"Version", strconv.Itoa(s.Version),
	)
}

func renderHistoryStats(s types.HistoryStats) string {
	var sb strings.Builder
	sb.WriteString(keyValues("Total changes", strconv.Itoa(s.TotalChanges)))
	section := func(title string, counts map[string]int) {
		if len(counts) == 0 {
			return
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
		sb.WriteString("\n" + styleHeader.Render(title) + "\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %-24s %d\n", runewidth.Truncate(k, 24, "…"), counts[k])
		}
	}
	section("By operation", s.OperationCounts)
	section("By user", s.UserCounts)
	section("By file", s.FileCounts)
	if len(s.DailyActivity) > 0 {
		sb.WriteString("\n" + styleHeader.Render("Daily activity") + "\n")
		for _, d := range s.DailyActivity {
			fmt.Fprintf(&sb, "  %s %s %d\n", d.Date, strings.Repeat("▇", min(d.Count, 40)), d.Count)
		}
	}
	return sb.String()
}

// renderTable lays rows out in columns, highlighting cursor and showing at
// most height rows around it. A non-positive height shows every row.
func renderTable(header []string, rows [][]string, cursor, height int) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = min(maxCellWidth, max(widths[i], runewidth.StringWidth(cell)))
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = runewidth.FillRight(runewidth.Truncate(cell, widths[i], "…"), widths[i])
		}
		return strings.Join(parts, "  ")
	}

	var sb strings.Builder
	sb.WriteString(styleHeader.Render(line(header)) + "\n")
	start, end := 0, len(rows)
	if height > 0 {
		start = windowStart(cursor, height)
		end = min(len(rows), start+height)
	}
	for i := start; i < end; i++ {
		text := line(rows[i])
		if i == cursor {
			text = styleSelected.Render(text)
		}
		sb.WriteString(text + "\n")
	}
	if end < len(rows) {
		sb.WriteString(styleSubtle.Render(fmt.Sprintf("… %d more", len(rows)-end)) + "\n")
	}
	return sb.String()
}

func keyValues(pairs ...string) string {
	width := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		width = max(width, runewidth.StringWidth(pairs[i]))
	}
	var sb strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		sb.WriteString(styleHeader.Render(runewidth.FillRight(pairs[i], width)) + "  " + pairs[i+1] + "\n")
	}
	return sb.String()
}

func (m *Model) helpText() string {
	ctx := screenContexts[m.screen()]
	var sb strings.Builder
	for _, section := range []struct {
		title   string
		context keybinds.Context
	}{
		{m.screen().Title(), ctx},
		{"Lists", keybinds.ContextList},
		{"Everywhere", keybinds.ContextGlobal},
	} {
		sb.WriteString(styleHeader.Render(section.title) + "\n")
		for _, b := range m.keys.ListBindings(section.context) {
			fmt.Fprintf(&sb, "  %-12s %s\n", b.Key, b.Action.Description())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func when(ts types.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return humanize.Time(ts.Time)
}

func orDash(s string) string { return orValue(s, "-") }

func orValue(s, fallback string) string {
	if s == "" {
		return styleSubtle.Render(fallback)
	}
	return s
}

func toggle(label string, on bool) string {
	if on {
		return styleSuccess.Render("[x] " + label)
	}
	return styleSubtle.Render("[ ] " + label)
}

// truncate cuts styled text to one line of width cells.
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).MaxHeight(1).Render(s)
}
