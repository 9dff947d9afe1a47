// Package keybinds maps key presses to TUI actions.
//
// Bindings live in contexts: one per screen, plus list movement, modal
// viewers, confirmations and text input. Match checks the given contexts
// in order and falls back to the global one, so a screen can shadow a
// global key such as "r".
//
// Users override the defaults with keybinds.json in the config directory:
//
//	{
//	  "data": { "ctrl+n": "next_page" },
//	  "global": { "y": "" } // unbind
//	}
//
// ctrl+c always force-quits; LoadOrDefault rejects configurations that
// rebind it or leave a modal without a way out.
package keybinds
