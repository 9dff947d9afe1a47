// Package logging configures the process-wide structured logger. The TUI
// owns the terminal, so records go to a file rather than stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const defaultLogFile = "sheetdesk.log"

var (
	mu     sync.Mutex
	output io.Closer
)

// Options controls Configure.
type Options struct {
	// Path of the log file. Empty falls back to sheetdesk.log in the working directory.
	Path  string
	Debug bool
	// Writer, when set, replaces the file.
	Writer io.Writer
}

// Configure installs a JSON slog handler as the default logger and returns it.
// Directories are created when missing. Call Close on exit.
func Configure(opts Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	w := opts.Writer
	var closer io.Closer
	if w == nil {
		path := opts.Path
		if path == "" {
			path = defaultLogFile
		}
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	mu.Lock()
	prev := output
	output = closer
	mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return logger, nil
}

// Close releases the log file opened by Configure.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if output == nil {
		return nil
	}
	err := output.Close()
	output = nil
	return err
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
