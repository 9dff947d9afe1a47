package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/studiowebux/sheetdesk/internal/keybinds"
)

type confirmModal struct {
	question string
	onYes    func() tea.Cmd
	onNo     func()
}

type inputModal struct {
	title    string
	field    textinput.Model
	onSubmit func(string) tea.Cmd
	onChange func(string)
	onCancel func()
}

// editForm edits the columns of one row.
type editForm struct {
	rowID    int64
	columns  []string
	original []string
	fields   []textinput.Model
	focus    int
}

type viewerModal struct {
	title string
	view  viewport.Model
	copy  string
}

// pickerModal is a fuzzy-filtered list of choices.
type pickerModal struct {
	title   string
	items   []string
	matches []string
	filter  textinput.Model
	cursor  int
	onPick  func(string) tea.Cmd
}

func newField(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.SetValue(value)
	ti.CursorEnd()
	ti.Cursor.SetMode(cursor.CursorStatic)
	ti.Prompt = ""
	ti.Width = 48
	return ti
}

func (m *Model) openConfirm(question string, onYes func() tea.Cmd, onNo func()) {
	m.confirm = &confirmModal{question: question, onYes: onYes, onNo: onNo}
	m.mode = ModeConfirm
}

func (m *Model) updateConfirm(key string) (tea.Model, tea.Cmd) {
	action, _ := m.keys.Lookup(keybinds.ContextConfirm, key)
	c := m.confirm
	switch action {
	case keybinds.ActionConfirm:
		m.confirm, m.mode = nil, ModeNormal
		if c.onYes != nil {
			return m, c.onYes()
		}
	case keybinds.ActionCancel:
		m.confirm, m.mode = nil, ModeNormal
		if c.onNo != nil {
			c.onNo()
		}
	}
	return m, nil
}

func (m *Model) openInput(title, placeholder, value string, onSubmit func(string) tea.Cmd) *inputModal {
	field := newField(placeholder, value)
	field.Focus()
	m.input = &inputModal{title: title, field: field, onSubmit: onSubmit}
	m.mode = ModeInput
	return m.input
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	in := m.input
	action, _ := m.keys.Lookup(keybinds.ContextInput, msg.String())
	switch action {
	case keybinds.ActionSubmit:
		m.input, m.mode = nil, ModeNormal
		if in.onSubmit != nil {
			return m, in.onSubmit(strings.TrimSpace(in.field.Value()))
		}
		return m, nil
	case keybinds.ActionCancel:
		m.input, m.mode = nil, ModeNormal
		if in.onCancel != nil {
			in.onCancel()
		}
		return m, nil
	}

	before := in.field.Value()
	var cmd tea.Cmd
	in.field, cmd = in.field.Update(msg)
	if in.onChange != nil && in.field.Value() != before {
		in.onChange(in.field.Value())
		m.clampCursor()
	}
	return m, cmd
}

func (m *Model) openEdit(rowID int64, columns, values []string) {
	form := &editForm{rowID: rowID, columns: columns, original: values}
	for i, col := range columns {
		f := newField(col, values[i])
		form.fields = append(form.fields, f)
	}
	if len(form.fields) > 0 {
		form.fields[0].Focus()
	}
	m.edit = form
	m.mode = ModeEdit
}

func (f *editForm) move(delta int) {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	f.fields[f.focus].Focus()
}

// changed returns the columns whose text differs from the original.
func (f *editForm) changed() map[string]string {
	out := make(map[string]string)
	for i, field := range f.fields {
		if field.Value() != f.original[i] {
			out[f.columns[i]] = field.Value()
		}
	}
	return out
}

func (m *Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	form := m.edit
	key := msg.String()
	action, _ := m.keys.Lookup(keybinds.ContextInput, key)
	switch {
	case action == keybinds.ActionSubmit:
		m.edit, m.mode = nil, ModeNormal
		return m, m.saveEdit(form)
	case action == keybinds.ActionCancel:
		m.edit, m.mode = nil, ModeNormal
		m.app.Data.CancelEdit()
		return m, nil
	case action == keybinds.ActionNext:
		form.move(1)
		return m, nil
	case key == "shift+tab" || key == "up":
		form.move(-1)
		return m, nil
	}

	if len(form.fields) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	form.fields[form.focus], cmd = form.fields[form.focus].Update(msg)
	return m, cmd
}

func (m *Model) openViewer(title, content, copy string) {
	v := &viewerModal{title: title, copy: copy, view: viewport.New(0, 0)}
	v.resize(m.width, m.height)
	v.view.SetContent(content)
	m.viewer = v
	m.mode = ModeViewer
}

func (v *viewerModal) resize(width, height int) {
	v.view.Width = max(20, width-10)
	v.view.Height = max(5, height-10)
}

func (m *Model) updateViewer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action, _ := m.keys.Lookup(keybinds.ContextViewer, msg.String())
	switch action {
	case keybinds.ActionClose:
		m.viewer, m.mode = nil, ModeNormal
		return m, nil
	case keybinds.ActionCopy:
		m.copyText(m.viewer.copy)
		return m, nil
	case keybinds.ActionTop:
		m.viewer.view.GotoTop()
		return m, nil
	case keybinds.ActionBottom:
		m.viewer.view.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewer.view, cmd = m.viewer.view.Update(msg)
	return m, cmd
}

func (m *Model) openPicker(title string, items []string, onPick func(string) tea.Cmd) {
	if len(items) == 0 {
		m.errorMsg = "Nothing to choose from"
		return
	}
	filter := newField("type to filter", "")
	filter.Focus()
	m.picker = &pickerModal{title: title, items: items, matches: items, filter: filter, onPick: onPick}
	m.mode = ModePicker
}

func (p *pickerModal) refilter() {
	query := p.filter.Value()
	if query == "" {
		p.matches = p.items
	} else {
		p.matches = nil
		for _, match := range fuzzy.Find(query, p.items) {
			p.matches = append(p.matches, p.items[match.Index])
		}
	}
	p.cursor = min(p.cursor, max(0, len(p.matches)-1))
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.picker
	key := msg.String()
	action, _ := m.keys.Lookup(keybinds.ContextInput, key)
	switch {
	case action == keybinds.ActionSubmit:
		m.picker, m.mode = nil, ModeNormal
		if len(p.matches) == 0 {
			return m, nil
		}
		return m, p.onPick(p.matches[p.cursor])
	case action == keybinds.ActionCancel:
		m.picker, m.mode = nil, ModeNormal
		return m, nil
	case action == keybinds.ActionNext:
		if p.cursor < len(p.matches)-1 {
			p.cursor++
		}
		return m, nil
	case key == "up" || key == "shift+tab":
		if p.cursor > 0 {
			p.cursor--
		}
		return m, nil
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	p.refilter()
	return m, cmd
}

func (m *Model) copyText(text string) {
	if text == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.errorMsg = "Clipboard unavailable: " + err.Error()
		return
	}
	m.statusMsg = "Copied to clipboard"
}

// renderModal draws the open modal, or "" when none is open.
func (m *Model) renderModal() string {
	width := min(m.width-6, 90)
	switch m.mode {
	case ModeConfirm:
		body := styleWarning.Render(m.confirm.question) + "\n\n" +
			styleSubtle.Render(m.keys.KeyString(keybinds.ContextConfirm, keybinds.ActionConfirm)+" confirm  "+
				m.keys.KeyString(keybinds.ContextConfirm, keybinds.ActionCancel)+" cancel")
		return styleDanger.Width(width).Render(body)

	case ModeInput:
		body := styleTitle.Render(m.input.title) + "\n\n" + m.input.field.View() + "\n\n" +
			styleSubtle.Render("enter submit  esc cancel")
		return styleModal.Width(width).Render(body)

	case ModeEdit:
		var sb strings.Builder
		sb.WriteString(styleTitle.Render("Edit row "+itoa(m.edit.rowID)) + "\n\n")
		labelWidth := 0
		for _, col := range m.edit.columns {
			labelWidth = max(labelWidth, lipgloss.Width(col))
		}
		for i, col := range m.edit.columns {
			label := lipgloss.NewStyle().Width(labelWidth + 2).Render(col)
			if i == m.edit.focus {
				label = styleHeader.Width(labelWidth + 2).Render(col)
			}
			sb.WriteString(label + m.edit.fields[i].View() + "\n")
		}
		sb.WriteString("\n" + styleSubtle.Render("tab next field  enter save  esc cancel"))
		return styleModal.Width(width).Render(sb.String())

	case ModeViewer:
		footer := styleSubtle.Render("j/k scroll  y copy  esc close")
		return styleModal.Width(m.viewer.view.Width + 4).Render(
			styleTitle.Render(m.viewer.title) + "\n\n" + m.viewer.view.View() + "\n" + footer)

	case ModePicker:
		p := m.picker
		var sb strings.Builder
		sb.WriteString(styleTitle.Render(p.title) + "\n\n> " + p.filter.View() + "\n\n")
		height := max(3, m.height-14)
		start := windowStart(p.cursor, height)
		for i := start; i < len(p.matches) && i < start+height; i++ {
			line := "  " + p.matches[i]
			if i == p.cursor {
				line = styleSelected.Render("> " + p.matches[i])
			}
			sb.WriteString(line + "\n")
		}
		if len(p.matches) == 0 {
			sb.WriteString(styleSubtle.Render("  no match") + "\n")
		}
		return styleModal.Width(width).Render(sb.String())

	case ModeHelp:
		return styleModal.Width(m.helpView.Width + 4).Render(
			styleTitle.Render("Keys") + "\n\n" + m.helpView.View() + "\n" + styleSubtle.Render("any key to close"))
	}
	return ""
}
