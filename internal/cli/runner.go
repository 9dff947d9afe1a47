// Package cli implements the non-interactive sheetdesk commands. Each
// command is a Runner method; cmd/sheetdesk binds them to cobra.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/app"
	"github.com/studiowebux/sheetdesk/internal/config"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// Runner carries what every command needs.
type Runner struct {
	App *app.App
	Out *Printer
	In  io.Reader
	// Err receives prompts and progress so Out stays machine readable.
	Err io.Writer
	// Yes skips confirmations.
	Yes bool
}

// Failure is a command error already rendered for the user. The cause
// stays reachable through errors.As.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// fail classifies err for display. key names the addressed entity.
func fail(err error, key string) error {
	if err == nil {
		return nil
	}
	return &Failure{Message: apierr.Message(err, key), Err: err}
}

// unwrap turns a transport error or an unsuccessful envelope into a Failure.
func unwrap[T any](env types.Envelope[T], err error, resource, op, key string) (T, error) {
	if err != nil {
		var zero T
		return zero, fail(err, key)
	}
	if !env.Success {
		var zero T
		return zero, fail(apierr.Application(env.Message, api.FailureMessage(resource, op)), key)
	}
	return env.Data, nil
}

// confirm returns ErrCancelled unless the user agrees or --yes was given.
func (r *Runner) confirm(question string) error {
	if r.Yes {
		return nil
	}
	if !Confirm(r.In, r.Err, question) {
		return ErrCancelled
	}
	return nil
}

func (r *Runner) user() string {
	return r.App.Profile.User
}

// save writes a binary response to path. An empty path uses the attachment
// name in the exports directory; "-" writes to Out.
func (r *Runner) save(resp *executor.Response, path, fallback string) error {
	if path == "-" {
		_, err := r.Out.Out.Write(resp.Body)
		return err
	}
	path, err := SaveResponse(resp, path, fallback)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Err, "Saved %s (%s)\n", path, Size(int64(len(resp.Body))))
	return nil
}

// SaveResponse writes resp.Body to path and returns where it went. An empty
// path uses the attachment name, or fallback, in the exports directory.
func SaveResponse(resp *executor.Response, path, fallback string) (string, error) {
	if path == "" {
		name := executor.AttachmentName(resp)
		if name == "" {
			name = fallback
		}
		dir := config.ExportsDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, filepath.Base(name))
	}
	if err := os.WriteFile(path, resp.Body, config.FilePermissions); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ParseAssignments turns col=value pairs into row data. Numbers, booleans
// and null are decoded as JSON; everything else stays a string.
func ParseAssignments(pairs []string) (types.RowData, error) {
	var data types.RowData
	for _, pair := range pairs {
		col, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(col) == "" {
			return data, fmt.Errorf("invalid assignment %q (want column=value)", pair)
		}
		data.Set(strings.TrimSpace(col), parseValue(value))
	}
	if data.Len() == 0 {
		return data, fmt.Errorf("no column=value assignments given")
	}
	return data, nil
}

func parseValue(s string) any {
	switch s {
	case "true", "false":
		b, _ := strconv.ParseBool(s)
		return b
	case "null":
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return json.Number(s)
	}
	return s
}

// ParseDate accepts RFC 3339, a plain date, or an age such as 7d or 36h
// counted back from now.
func ParseDate(s string, now time.Time) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return &t, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil && n >= 0 {
			t := now.AddDate(0, 0, -n)
			return &t, nil
		}
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		t := now.Add(-d)
		return &t, nil
	}
	return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD, RFC 3339 or an age like 7d)", s)
}

// ParseExportFormat validates a comparison or history export format.
func ParseExportFormat(s string) (types.ExportFormat, error) {
	switch f := types.ExportFormat(strings.ToLower(s)); f {
	case types.ExportExcel, types.ExportJSON, types.ExportCSV:
		return f, nil
	case "xlsx":
		return types.ExportExcel, nil
	}
	return "", fmt.Errorf("invalid export format %q (want excel, json or csv)", s)
}
