package keybinds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRegistryIsValid(t *testing.T) {
	result := NewValidator().ValidateRegistry(NewDefaultRegistry())
	if result.HasErrors() || result.HasWarnings() {
		t.Errorf("default registry has issues:\n%s", result)
	}
}

func TestMatchFallsBackToGlobal(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name     string
		key      string
		contexts []Context
		want     Action
	}{
		{"screen binding", "d", []Context{ContextData, ContextList}, ActionDelete},
		{"list binding", "j", []Context{ContextData, ContextList}, ActionDown},
		{"global fallback", "tab", []Context{ContextData, ContextList}, ActionNextScreen},
		{"screen shadows global", "y", []Context{ContextConfirm}, ActionConfirm},
		{"order matters", "h", []Context{ContextData, ContextList}, ActionPrevPage},
		{"files uses h for history", "h", []Context{ContextFiles, ContextList}, ActionRowHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Match(tt.key, tt.contexts...)
			if !ok || got != tt.want {
				t.Errorf("Match(%q) = %q, %v; want %q", tt.key, got, ok, tt.want)
			}
		})
	}

	if _, ok := r.Match("F12", ContextData); ok {
		t.Error("unbound key matched")
	}
}

func TestMatchSequence(t *testing.T) {
	r := NewDefaultRegistry()

	if _, ok, partial := r.MatchSequence("g", ContextList); ok || !partial {
		t.Fatalf("first g: ok=%v partial=%v, want a partial match", ok, partial)
	}
	action, ok, _ := r.MatchSequence("g", ContextList)
	if !ok || action != ActionTop {
		t.Errorf("gg = %q, %v; want %q", action, ok, ActionTop)
	}

	// A broken sequence falls back to the single key.
	r.MatchSequence("g", ContextList)
	action, ok, _ = r.MatchSequence("j", ContextList)
	if !ok || action != ActionDown {
		t.Errorf("g then j = %q, %v; want %q", action, ok, ActionDown)
	}
}

func TestKeyString(t *testing.T) {
	r := NewDefaultRegistry()
	if got := r.KeyString(ContextData, ActionNextPage); got != "l/n/right" {
		t.Errorf("KeyString(next_page) = %q", got)
	}
	if got := r.KeyString(ContextData, ActionHelp); got != "?" {
		t.Errorf("KeyString(help) falls back to global: got %q", got)
	}
	if got := r.KeyString(ContextData, ActionCompare); got != "unbound" {
		t.Errorf("KeyString(compare) in data = %q, want unbound", got)
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file gives defaults", func(t *testing.T) {
		r, err := LoadOrDefault(filepath.Join(dir, "absent.json"))
		if err != nil {
			t.Fatalf("LoadOrDefault: %v", err)
		}
		if a, _ := r.Match("q"); a != ActionQuit {
			t.Errorf("q = %q", a)
		}
	})

	t.Run("overrides and unbinds", func(t *testing.T) {
		path := filepath.Join(dir, "keybinds.json")
		content := `{
			// page with ctrl+n
			"data": { "ctrl+n": "next_page", },
			"global": { "y": "" },
		}`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		r, err := LoadOrDefault(path)
		if err != nil {
			t.Fatalf("LoadOrDefault: %v", err)
		}
		if a, _ := r.Match("ctrl+n", ContextData); a != ActionNextPage {
			t.Errorf("ctrl+n = %q", a)
		}
		if r.HasBinding(ContextGlobal, "y") {
			t.Error("y should be unbound")
		}
	})

	errorCases := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown action", `{"data": {"z": "explode"}}`, "unknown action"},
		{"unknown context", `{"sidebar": {"z": "quit"}}`, "unknown context"},
		{"reserved key", `{"global": {"ctrl+c": "help"}}`, "reserved key"},
		{"locked modal", `{"confirm": {"n": "", "N": "", "esc": "", "q": ""}}`, "no key bound to cancel"},
		{"bad json", `{"data": `, "invalid keybinds.json"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadOrDefault(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("LoadOrDefault error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestCheckShadowing(t *testing.T) {
	result := NewValidator().ValidateConfig(Config{
		ContextData: {"tab": ActionNextSheet},
	})
	if result.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", result)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("got %d warnings, want 1:\n%s", len(result.Warnings), result)
	}
	w := result.Warnings[0]
	if w.Context != ContextData || w.Key != "tab" || !strings.Contains(w.Message, "next_screen -> next_sheet") {
		t.Errorf("warning = %+v", w)
	}
}

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Type: "conflict", Context: ContextGlobal, Key: "ctrl+c", Message: "reserved"}
	if got, want := err.Error(), "[conflict] ctrl+c in context 'global': reserved"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"a", false},
		{"ctrl+n", false},
		{"shift+tab", false},
		{"", true},
		{"ctrl+", true},
		{"alt+", true},
	}
	for _, tt := range tests {
		if err := ValidateKey(tt.key); (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
	}
}

func TestLookupSkipsGlobal(t *testing.T) {
	r := NewDefaultRegistry()
	if _, ok := r.Lookup(ContextInput, "q"); ok {
		t.Error("q must reach the text field")
	}
	if a, ok := r.Lookup(ContextInput, "enter"); !ok || a != ActionSubmit {
		t.Errorf("enter = %q, %v", a, ok)
	}
}
