package keybinds

// Action is what a key press asks the TUI to do.
type Action string

// Context is the part of the UI a binding applies in.
type Context string

const (
	ContextGlobal     Context = "global"     // Every screen, unless shadowed
	ContextList       Context = "list"       // Cursor movement on list screens
	ContextDashboard  Context = "dashboard"  // Dashboard screen
	ContextFiles      Context = "files"      // File manager screen
	ContextData       Context = "data"       // Data viewer screen
	ContextComparison Context = "comparison" // Comparison screen
	ContextHistory    Context = "history"    // History screen
	ContextViewer     Context = "viewer"     // Scrollable detail modals
	ContextConfirm    Context = "confirm"    // Yes/no confirmations
	ContextInput      Context = "input"      // Text prompts and the edit form
)

// Contexts lists every context a config file may name.
func Contexts() []Context {
	return []Context{
		ContextGlobal, ContextList, ContextDashboard, ContextFiles, ContextData,
		ContextComparison, ContextHistory, ContextViewer, ContextConfirm, ContextInput,
	}
}

const (
	// Global
	ActionQuit       Action = "quit"
	ActionQuitForce  Action = "quit_force"
	ActionNextScreen Action = "next_screen"
	ActionPrevScreen Action = "prev_screen"
	ActionDashboard  Action = "goto_dashboard"
	ActionFiles      Action = "goto_files"
	ActionData       Action = "goto_data"
	ActionComparison Action = "goto_comparison"
	ActionHistory    Action = "goto_history"
	ActionRefresh    Action = "refresh"
	ActionHelp       Action = "help"
	ActionCopy       Action = "copy"
	ActionDismiss    Action = "dismiss"

	// Lists and viewers
	ActionUp         Action = "navigate_up"
	ActionDown       Action = "navigate_down"
	ActionPageUp     Action = "page_up"
	ActionPageDown   Action = "page_down"
	ActionTop        Action = "go_to_top"
	ActionTopPrepare Action = "go_to_top_prepare"
	ActionBottom     Action = "go_to_bottom"
	ActionClose      Action = "close"

	// Files
	ActionOpen      Action = "open"
	ActionUpload    Action = "upload"
	ActionDelete    Action = "delete"
	ActionReprocess Action = "reprocess"
	ActionFilter    Action = "filter"
	ActionCompareTo Action = "compare_with"

	// Data
	ActionEdit       Action = "edit"
	ActionNextPage   Action = "next_page"
	ActionPrevPage   Action = "prev_page"
	ActionNextSheet  Action = "next_sheet"
	ActionPrevSheet  Action = "prev_sheet"
	ActionStats      Action = "stats"
	ActionExport     Action = "export"
	ActionRowHistory Action = "row_history"

	// Comparison
	ActionPickFile1        Action = "pick_file1"
	ActionPickFile2        Action = "pick_file2"
	ActionToggleCase       Action = "toggle_ignore_case"
	ActionToggleWhitespace Action = "toggle_ignore_whitespace"
	ActionNextTemplate     Action = "next_template"
	ActionCompare          Action = "compare"
	ActionChooseSheet      Action = "choose_sheet"

	// History
	ActionSearch        Action = "search"
	ActionNextOperation Action = "next_operation"
	ActionDetails       Action = "details"
	ActionRevert        Action = "revert"
	ActionClearFilters  Action = "clear_filters"

	// Confirm and input
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
	ActionSubmit  Action = "submit"
	ActionNext    Action = "next_field"
)

// Description is the help text of an action.
func (a Action) Description() string {
	if d, ok := descriptions[a]; ok {
		return d
	}
	return string(a)
}

var descriptions = map[Action]string{
	ActionQuit:             "Quit",
	ActionQuitForce:        "Quit immediately",
	ActionNextScreen:       "Next screen",
	ActionPrevScreen:       "Previous screen",
	ActionDashboard:        "Dashboard",
	ActionFiles:            "Files",
	ActionData:             "Data",
	ActionComparison:       "Compare",
	ActionHistory:          "History",
	ActionRefresh:          "Reload the screen",
	ActionHelp:             "Toggle help",
	ActionCopy:             "Copy selection as JSON",
	ActionDismiss:          "Dismiss message",
	ActionUp:               "Move up",
	ActionDown:             "Move down",
	ActionPageUp:           "Page up",
	ActionPageDown:         "Page down",
	ActionTop:              "Go to top",
	ActionBottom:           "Go to bottom",
	ActionClose:            "Close",
	ActionOpen:             "Open in data viewer",
	ActionUpload:           "Upload a workbook",
	ActionDelete:           "Delete",
	ActionReprocess:        "Reprocess",
	ActionFilter:           "Filter",
	ActionCompareTo:        "Compare with...",
	ActionEdit:             "Edit row",
	ActionNextPage:         "Next page",
	ActionPrevPage:         "Previous page",
	ActionNextSheet:        "Next sheet",
	ActionPrevSheet:        "Previous sheet",
	ActionStats:            "Statistics",
	ActionExport:           "Export",
	ActionRowHistory:       "History of this row",
	ActionPickFile1:        "Choose first file",
	ActionPickFile2:        "Choose second file",
	ActionToggleCase:       "Toggle ignore case",
	ActionToggleWhitespace: "Toggle ignore whitespace",
	ActionNextTemplate:     "Apply next template",
	ActionCompare:          "Run comparison",
	ActionChooseSheet:      "Restrict to one sheet",
	ActionSearch:           "Search",
	ActionNextOperation:    "Cycle operation filter",
	ActionDetails:          "Show details",
	ActionRevert:           "Revert change",
	ActionClearFilters:     "Clear filters",
	ActionConfirm:          "Confirm",
	ActionCancel:           "Cancel",
	ActionSubmit:           "Submit",
	ActionNext:             "Next field",
}

// Known reports whether a is an action the TUI handles.
func (a Action) Known() bool {
	_, ok := descriptions[a]
	return ok || a == ActionTopPrepare
}
