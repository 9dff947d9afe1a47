package keybinds

// NewDefaultRegistry creates a registry with all default keybindings
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	registerGlobalBindings(r)
	registerListBindings(r)
	registerFilesBindings(r)
	registerDataBindings(r)
	registerComparisonBindings(r)
	registerHistoryBindings(r)
	registerModalBindings(r)

	return r
}

func registerGlobalBindings(r *Registry) {
	r.Register(ContextGlobal, "ctrl+c", ActionQuitForce)
	r.Register(ContextGlobal, "q", ActionQuit)
	r.Register(ContextGlobal, "tab", ActionNextScreen)
	r.Register(ContextGlobal, "shift+tab", ActionPrevScreen)
	r.Register(ContextGlobal, "1", ActionDashboard)
	r.Register(ContextGlobal, "2", ActionFiles)
	r.Register(ContextGlobal, "3", ActionData)
	r.Register(ContextGlobal, "4", ActionComparison)
	r.Register(ContextGlobal, "5", ActionHistory)
	r.RegisterMultiple(ContextGlobal, []string{"r", "ctrl+r"}, ActionRefresh)
	r.Register(ContextGlobal, "?", ActionHelp)
	r.Register(ContextGlobal, "y", ActionCopy)
	r.Register(ContextGlobal, "esc", ActionDismiss)
}

// registerListBindings sets up cursor movement shared by list screens and
// viewers.
func registerListBindings(r *Registry) {
	for _, c := range []Context{ContextList, ContextViewer} {
		r.RegisterMultiple(c, []string{"up", "k"}, ActionUp)
		r.RegisterMultiple(c, []string{"down", "j"}, ActionDown)
		r.RegisterMultiple(c, []string{"pgup", "ctrl+u"}, ActionPageUp)
		r.RegisterMultiple(c, []string{"pgdown", "ctrl+d"}, ActionPageDown)
		r.Register(c, "g", ActionTopPrepare)
		r.RegisterMultiple(c, []string{"gg", "home"}, ActionTop)
		r.RegisterMultiple(c, []string{"G", "end"}, ActionBottom)
	}
	r.RegisterMultiple(ContextViewer, []string{"esc", "q", "enter"}, ActionClose)
	r.Register(ContextViewer, "y", ActionCopy)
}

func registerFilesBindings(r *Registry) {
	r.Register(ContextFiles, "enter", ActionOpen)
	r.Register(ContextFiles, "u", ActionUpload)
	r.Register(ContextFiles, "d", ActionDelete)
	r.Register(ContextFiles, "p", ActionReprocess)
	r.Register(ContextFiles, "/", ActionFilter)
	r.Register(ContextFiles, "c", ActionCompareTo)
	r.Register(ContextFiles, "h", ActionRowHistory)

	r.Register(ContextDashboard, "enter", ActionOpen)
}

func registerDataBindings(r *Registry) {
	r.Register(ContextData, "enter", ActionEdit)
	r.Register(ContextData, "e", ActionEdit)
	r.Register(ContextData, "d", ActionDelete)
	r.RegisterMultiple(ContextData, []string{"n", "right", "l"}, ActionNextPage)
	r.RegisterMultiple(ContextData, []string{"b", "left", "h"}, ActionPrevPage)
	r.Register(ContextData, "]", ActionNextSheet)
	r.Register(ContextData, "[", ActionPrevSheet)
	r.Register(ContextData, "s", ActionStats)
	r.Register(ContextData, "x", ActionExport)
	r.Register(ContextData, "p", ActionReprocess)
	r.Register(ContextData, "H", ActionRowHistory)
}

func registerComparisonBindings(r *Registry) {
	r.Register(ContextComparison, "a", ActionPickFile1)
	r.Register(ContextComparison, "b", ActionPickFile2)
	r.Register(ContextComparison, "s", ActionChooseSheet)
	r.Register(ContextComparison, "i", ActionToggleCase)
	r.Register(ContextComparison, "w", ActionToggleWhitespace)
	r.Register(ContextComparison, "t", ActionNextTemplate)
	r.RegisterMultiple(ContextComparison, []string{"enter", "c"}, ActionCompare)
	r.Register(ContextComparison, "x", ActionExport)
}

func registerHistoryBindings(r *Registry) {
	r.Register(ContextHistory, "/", ActionSearch)
	r.Register(ContextHistory, "o", ActionNextOperation)
	r.Register(ContextHistory, "]", ActionNextSheet)
	r.RegisterMultiple(ContextHistory, []string{"n", "right", "l"}, ActionNextPage)
	r.RegisterMultiple(ContextHistory, []string{"b", "left", "h"}, ActionPrevPage)
	r.Register(ContextHistory, "enter", ActionDetails)
	r.Register(ContextHistory, "R", ActionRevert)
	r.Register(ContextHistory, "s", ActionStats)
	r.Register(ContextHistory, "x", ActionExport)
	r.Register(ContextHistory, "ctrl+l", ActionClearFilters)
}

// registerModalBindings covers confirmations and text prompts. Keys not
// bound in ContextInput are typed into the focused field.
func registerModalBindings(r *Registry) {
	r.RegisterMultiple(ContextConfirm, []string{"y", "Y", "enter"}, ActionConfirm)
	r.RegisterMultiple(ContextConfirm, []string{"n", "N", "esc", "q"}, ActionCancel)

	r.Register(ContextInput, "enter", ActionSubmit)
	r.Register(ContextInput, "esc", ActionCancel)
	r.RegisterMultiple(ContextInput, []string{"tab", "down"}, ActionNext)
	r.Register(ContextInput, "ctrl+c", ActionQuitForce)
}
