package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/app"
	"github.com/studiowebux/sheetdesk/internal/config"
	"github.com/studiowebux/sheetdesk/internal/controller"
	"github.com/studiowebux/sheetdesk/internal/keybinds"
	"github.com/studiowebux/sheetdesk/internal/shell"
)

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeHelp
	ModeConfirm
	ModeInput
	ModeEdit
	ModeViewer
	ModePicker
)

// Model represents the TUI state. Screen state lives in the controllers;
// the model only keeps cursors and whichever modal is open.
type Model struct {
	ctx  context.Context
	app  *app.App
	keys *keybinds.Registry
	mode Mode

	width   int
	height  int
	spinner spinner.Model
	pending int

	cursor        map[shell.Screen]int
	templateIndex int

	statusMsg string
	errorMsg  string

	confirm  *confirmModal
	input    *inputModal
	edit     *editForm
	viewer   *viewerModal
	picker   *pickerModal
	helpView viewport.Model
}

// resultMsg reports a finished background call.
type resultMsg struct {
	status string
	err    error
	// tracked is set when a controller already recorded the outcome.
	tracked bool
}

// viewMsg opens a viewer with the outcome of a background call.
type viewMsg struct {
	title   string
	content string
	copy    string
	err     error
}

// New creates a new TUI model
func New(ctx context.Context, a *app.App, keys *keybinds.Registry) *Model {
	if keys == nil {
		keys = keybinds.NewDefaultRegistry()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styleTitle

	return &Model{
		ctx:      ctx,
		app:      a,
		keys:     keys,
		mode:     ModeNormal,
		width:    100,
		height:   30,
		spinner:  s,
		cursor:   make(map[shell.Screen]int),
		helpView: viewport.New(80, 20),
	}
}

// Run starts the TUI
func Run(ctx context.Context, a *app.App) error {
	keys, err := keybinds.LoadOrDefault(config.KeybindsFile)
	if err != nil {
		return err
	}

	p := tea.NewProgram(New(ctx, a, keys), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(m.app.Dashboard.Load))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.helpView.Width = msg.Width - 10
		m.helpView.Height = msg.Height - 8
		if m.viewer != nil {
			m.viewer.resize(m.width, m.height)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.finish()
		switch {
		case msg.err == nil:
			if msg.status != "" {
				m.statusMsg = msg.status
			}
		case errors.Is(msg.err, controller.ErrSuperseded):
		case !msg.tracked:
			m.errorMsg = describe(msg.err)
		}
		m.clampCursor()
		return m, nil

	case viewMsg:
		m.finish()
		if msg.err != nil {
			m.errorMsg = describe(msg.err)
			return m, nil
		}
		m.openViewer(msg.title, msg.content, msg.copy)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) finish() {
	if m.pending > 0 {
		m.pending--
	}
}

// fetch runs fetches concurrently. Controllers record their own outcome.
func (m *Model) fetch(fetches ...shell.Fetch) tea.Cmd {
	var run []shell.Fetch
	for _, f := range fetches {
		if f != nil {
			run = append(run, f)
		}
	}
	if len(run) == 0 {
		return nil
	}
	m.pending++
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{err: shell.Run(ctx, run), tracked: true}
	}
}

// task runs fn in the background and reports its status line or error.
func (m *Model) task(fn func(ctx context.Context) (string, error)) tea.Cmd {
	m.clearMessages()
	m.pending++
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		return resultMsg{status: status, err: err}
	}
}

// show runs fn in the background and opens its output in a viewer.
func (m *Model) show(title string, fn func(ctx context.Context) (content, clip string, err error)) tea.Cmd {
	m.clearMessages()
	m.pending++
	ctx := m.ctx
	return func() tea.Msg {
		content, clip, err := fn(ctx)
		return viewMsg{title: title, content: content, copy: clip, err: err}
	}
}

func (m *Model) clearMessages() {
	m.statusMsg, m.errorMsg = "", ""
}

// describe turns an error into a status line.
func describe(err error) string {
	return apierr.Message(err, "")
}

// screenState is the common state of every controller.
type screenState interface {
	Loading() bool
	ErrorMessage() string
	SuccessMessage() string
	ClearError()
	ClearSuccess()
}

func (m *Model) screen() shell.Screen {
	return m.app.Shell.Selection().Screen
}

func (m *Model) state(screen shell.Screen) screenState {
	switch screen {
	case shell.Files:
		return m.app.Files
	case shell.Data:
		return m.app.Data
	case shell.Comparison:
		return m.app.Comparison
	case shell.History:
		return m.app.History
	default:
		return m.app.Dashboard
	}
}

func (m *Model) busy() bool {
	return m.pending > 0 || m.state(m.screen()).Loading()
}
