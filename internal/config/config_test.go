package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/jsonc"
)

func TestResolveDirHonorsEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)

	if got := ResolveDir(); got != dir {
		t.Errorf("ResolveDir() = %q, want %q", got, dir)
	}
}

func TestResolveDirFallsBackToXDG(t *testing.T) {
	t.Setenv(DirEnv, "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(t.TempDir(), "cfg"))

	got := ResolveDir()
	if filepath.Base(got) != "sheetdesk" {
		t.Errorf("ResolveDir() = %q, want a sheetdesk directory", got)
	}
}

func TestInitializeCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(DirEnv, dir)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	for _, path := range []string{SessionFile, ProfilesFile, ExportsDir} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not created: %v", path, err)
		}
	}

	data, err := os.ReadFile(ProfilesFile)
	if err != nil {
		t.Fatal(err)
	}
	if !jsoncValid(data) {
		t.Errorf("default profiles file is not valid JSON with comments:\n%s", data)
	}

	// A second run keeps existing files.
	if err := os.WriteFile(SessionFile, []byte(`{"activeProfile":"staging"}`), FilePermissions); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("second Initialize() failed: %v", err)
	}
	got, _ := os.ReadFile(SessionFile)
	if string(got) != `{"activeProfile":"staging"}` {
		t.Errorf("session file overwritten: %s", got)
	}
}

func jsoncValid(data []byte) bool {
	clean := jsonc.ToJSON(data)
	return len(clean) > 0 && clean[0] == '['
}
