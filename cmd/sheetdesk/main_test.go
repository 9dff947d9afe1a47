package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/studiowebux/sheetdesk/internal/mock"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	paths := [][]string{
		{"test"},
		{"files", "list"},
		{"files", "export"},
		{"data", "page"},
		{"data", "update"},
		{"data", "bulk-update"},
		{"compare", "run"},
		{"compare", "cell"},
		{"compare", "templates", "save"},
		{"history", "changes"},
		{"history", "revert"},
		{"journal", "list"},
		{"profile", "use"},
		{"mock"},
	}
	for _, p := range paths {
		cmd, rest, err := root.Find(p)
		if err != nil || len(rest) != 0 || cmd.Name() != p[len(p)-1] {
			t.Errorf("command %q not found (got %v, rest %v, err %v)", strings.Join(p, " "), cmd.Name(), rest, err)
		}
	}

	for _, flag := range []string{"profile", "output", "query", "yes", "no-journal", "debug"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing global flag --%s", flag)
		}
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, false},
		{"-3", -3, false},
		{"4.5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestVersionArgs(t *testing.T) {
	file, v1, v2, err := versionArgs([]string{"a.xlsx", "1", "3"})
	if err != nil {
		t.Fatal(err)
	}
	if file != "a.xlsx" || v1 != 1 || v2 != 3 {
		t.Errorf("versionArgs = %q %d %d", file, v1, v2)
	}
	if _, _, _, err := versionArgs([]string{"a.xlsx", "1", "latest"}); err == nil {
		t.Error("expected an error for a non-numeric version")
	}
}

func TestHistoryFlagsFilter(t *testing.T) {
	h := historyFlags{file: "a.xlsx", operation: "UPDATE", user: "alice", sheet: "stok", since: "2024-01-02"}
	f, err := h.filter()
	if err != nil {
		t.Fatal(err)
	}
	if f.FileName != "a.xlsx" || f.Operation != "UPDATE" || f.UserID != "alice" || f.SheetName != "stok" {
		t.Errorf("filter = %+v", f)
	}
	if f.StartDate == nil || f.StartDate.Format("2006-01-02") != "2024-01-02" {
		t.Errorf("StartDate = %v", f.StartDate)
	}
	if f.EndDate != nil {
		t.Errorf("EndDate = %v, want unset", f.EndDate)
	}

	h.until = "yesterday"
	if _, err := h.filter(); err == nil {
		t.Error("expected an error for an unparsable --until")
	}
}

func TestOptionalBool(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Bool("ignore-case", false, "")
	cmd.Flags().Bool("ignore-whitespace", true, "")
	if err := cmd.ParseFlags([]string{"--ignore-case=false"}); err != nil {
		t.Fatal(err)
	}

	if got := optionalBool(cmd, "ignore-case"); got == nil || *got {
		t.Errorf("explicit false = %v", got)
	}
	if got := optionalBool(cmd, "ignore-whitespace"); got != nil {
		t.Errorf("unset flag = %v, want nil so the template value wins", *got)
	}
}

func TestLoadMockConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	seed := mock.DefaultConfig()
	seed.Port = 6001
	if err := mock.SaveConfig(seed, path); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadMockConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != 6001 || len(cfg.Files) == 0 || cfg.Files[0].Name != "inventory.xlsx" {
		t.Errorf("loaded seed = port %d, %d file(s)", cfg.Port, len(cfg.Files))
	}

	if _, err := loadMockConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing seed")
	}
}
