/*
Package tui implements the interactive terminal interface of sheetdesk.

# Architecture

The TUI follows the Bubble Tea framework's Model-Update-View pattern. The
model does not own screen data: each screen renders straight from its
controller (dashboard, files, data, comparison, history), and key presses
call controller methods from tea.Cmd goroutines. A finished call sends a
resultMsg back so the view redraws.

  - model.go: Model, background command helpers, message handling
  - keys.go: key routing per screen, built on the keybinds registry
  - modals.go: confirmations, prompts, the row edit form, viewers and
    the fuzzy picker
  - render.go: header, screen bodies, status bar

# Selection

Opening a file goes through shell.Shell, which resets the data and history
controllers and returns the loads they need. Controllers drop responses
that arrive after a newer request, so switching files quickly never shows
rows of the previous file.

# Modes

ModeNormal routes keys to the current screen. Every other mode belongs to
one modal; while it is open, keys go to that modal only and typed text is
never read as a shortcut.
*/
package tui
