package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigureLevels(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{"info", false, false},
		{"debug", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := Configure(Options{Debug: tt.debug, Writer: &buf})
			if err != nil {
				t.Fatal(err)
			}
			logger.Debug("detail", "k", 1)
			logger.Info("started")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			gotDebug := len(lines) == 2
			if gotDebug != tt.wantDebug {
				t.Errorf("debug record written = %v, want %v (%q)", gotDebug, tt.wantDebug, buf.String())
			}

			var rec map[string]any
			if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
				t.Fatalf("record is not JSON: %v", err)
			}
			if rec["msg"] != "started" {
				t.Errorf("msg = %v, want started", rec["msg"])
			}
		})
	}
}

func TestConfigureCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, err := Configure(Options{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { Close() })

	logger.Warn("backend unreachable", "url", "http://localhost:5002/api")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("backend unreachable")) {
		t.Errorf("log file missing record: %s", data)
	}
}
