package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// controllerFailure reports err with the message the controller recorded.
func controllerFailure(msg string, err error) error {
	if err == nil {
		return nil
	}
	if msg == "" {
		return fail(err, "")
	}
	return &Failure{Message: msg, Err: err}
}

// Test checks backend connectivity.
func (r *Runner) Test(ctx context.Context) error {
	res, err := r.App.API.Files.Test(ctx)
	if err != nil {
		return fail(err, "")
	}
	return r.Out.Print(res, func() Table {
		return keyValueTable("Backend", r.App.Executor.BaseURL(), "Status", "connected", "Message", res.Message)
	})
}

func (r *Runner) ListFiles(ctx context.Context, query string) error {
	fm := r.App.Files
	if err := fm.Refresh(ctx); err != nil {
		return controllerFailure(fm.ErrorMessage(), err)
	}
	fm.SetFilter(query)
	files := fm.Files()
	return r.Out.Print(files, func() Table { return filesTable(files) })
}

// Upload sends a workbook and has the backend process it.
func (r *Runner) Upload(ctx context.Context, path string) error {
	fm := r.App.Files
	if err := fm.UploadPath(ctx, path); err != nil {
		return controllerFailure(fm.ErrorMessage(), err)
	}
	r.Out.Message("%s", fm.SuccessMessage())
	files := fm.Files()
	return r.Out.Print(files, func() Table { return filesTable(files) })
}

func (r *Runner) DeleteFile(ctx context.Context, name string) error {
	if err := r.confirm(fmt.Sprintf("Delete %s and all of its data?", name)); err != nil {
		return err
	}
	fm := r.App.Files
	fm.RequestDelete(name)
	if err := fm.ConfirmDelete(ctx); err != nil {
		return controllerFailure(fm.ErrorMessage(), err)
	}
	r.Out.Message("%s", fm.SuccessMessage())
	return nil
}

// Process asks the backend to parse a workbook, optionally one sheet only.
func (r *Runner) Process(ctx context.Context, name, sheet string) error {
	env, err := r.App.API.Files.Read(ctx, name, sheet)
	if _, err := unwrap(env, err, "files", "read", name); err != nil {
		return err
	}
	r.Out.Message("%s", env.MessageOr(name+" processed"))
	if r.Out.Format == FormatJSON || r.Out.Format == FormatYAML {
		return r.Out.Print(env, nil)
	}
	return nil
}

func (r *Runner) Sheets(ctx context.Context, name string) error {
	env, err := r.App.API.Files.Sheets(ctx, name)
	sheets, err := unwrap(env, err, "files", "sheets", name)
	if err != nil {
		return err
	}
	return r.Out.Print(sheets, func() Table { return sheetsTable(sheets) })
}

func (r *Runner) Statistics(ctx context.Context, name, sheet string) error {
	env, err := r.App.API.Files.Statistics(ctx, name, sheet)
	stats, err := unwrap(env, err, "files", "statistics", name)
	if err != nil {
		return err
	}
	return r.Out.Print(stats, func() Table {
		return keyValueTable(
			"Rows", strconv.Itoa(stats.TotalRows),
			"Columns", strconv.Itoa(stats.TotalColumns),
			"Last modified", When(stats.LastModified),
			"Modified by", stats.ModifiedBy,
			"Version", strconv.Itoa(stats.Version),
		)
	})
}

func (r *Runner) Download(ctx context.Context, name, out string) error {
	resp, err := r.App.API.Files.Download(ctx, name)
	if err != nil {
		return fail(err, name)
	}
	return r.save(resp, out, name)
}

// ExportOptions selects what "files export" writes.
type ExportOptions struct {
	Sheet          string
	RowIDs         []int64
	IncludeHistory bool
	Out            string
}

func (r *Runner) Export(ctx context.Context, name string, opts ExportOptions) error {
	resp, err := r.App.API.Files.Export(ctx, types.ExportRequest{
		FileName:                   name,
		SheetName:                  opts.Sheet,
		RowIDs:                     opts.RowIDs,
		IncludeModificationHistory: opts.IncludeHistory,
	})
	if err != nil {
		return fail(err, name)
	}
	return r.save(resp, opts.Out, name+"_export.xlsx")
}

// PageOptions selects one page of rows.
type PageOptions struct {
	Sheet    string
	Page     int
	PageSize int
}

func (r *Runner) DataPage(ctx context.Context, name string, opts PageOptions) error {
	if opts.PageSize <= 0 {
		opts.PageSize = r.App.Profile.PageSize
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	env, err := r.App.API.Files.Data(ctx, api.DataQuery{
		FileName:  name,
		SheetName: opts.Sheet,
		Page:      opts.Page,
		PageSize:  opts.PageSize,
	})
	rows, err := unwrap(env, err, "files", "data", name)
	if err != nil {
		return err
	}
	size := api.EffectivePageSize(opts.Sheet, opts.PageSize)
	return r.Out.Print(rows, func() Table {
		t := rowsTable(rows)
		t.Footer = fmt.Sprintf("page %d, %d row(s)", opts.Page, len(rows))
		if len(rows) >= size {
			t.Footer += fmt.Sprintf(", next: --page %d", opts.Page+1)
		}
		return t
	})
}

// UpdateRow sends the assigned columns of one row.
func (r *Runner) UpdateRow(ctx context.Context, id int64, assignments []string) error {
	data, err := ParseAssignments(assignments)
	if err != nil {
		return err
	}
	env, err := r.App.API.Files.Update(ctx, types.DataUpdate{ID: id, Data: data, ModifiedBy: r.user()})
	if _, err := unwrap(env, err, "files", "update", api.RowKey(id)); err != nil {
		return err
	}
	r.Out.Message("%s", env.MessageOr("Row updated"))
	return nil
}

// ReadUpdates parses a JSON list of {"id", "data"} row updates. Comments
// are allowed. path "-" reads from in.
func ReadUpdates(path string, in io.Reader) ([]types.DataUpdate, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read updates: %w", err)
	}
	var updates []types.DataUpdate
	if err := json.Unmarshal(jsonc.ToJSON(raw), &updates); err != nil {
		return nil, fmt.Errorf("invalid updates file: %w", err)
	}
	if len(updates) == 0 {
		return nil, errors.New("the updates file lists no rows")
	}
	for i, u := range updates {
		if u.ID <= 0 || u.Data.Len() == 0 {
			return nil, fmt.Errorf("update %d needs an id and at least one column", i+1)
		}
	}
	return updates, nil
}

// BulkUpdate sends every update of the file in one request.
func (r *Runner) BulkUpdate(ctx context.Context, path string) error {
	updates, err := ReadUpdates(path, r.In)
	if err != nil {
		return err
	}
	env, err := r.App.API.Files.BulkUpdate(ctx, types.BulkUpdate{Updates: updates, ModifiedBy: r.user()})
	if _, err := unwrap(env, err, "files", "bulk-update", ""); err != nil {
		return err
	}
	r.Out.Message("%s", env.MessageOr(fmt.Sprintf("%d row(s) updated", len(updates))))
	return nil
}

func (r *Runner) AddRow(ctx context.Context, name, sheet string, assignments []string) error {
	data, err := ParseAssignments(assignments)
	if err != nil {
		return err
	}
	env, err := r.App.API.Files.AddRow(ctx, types.AddRowRequest{FileName: name, SheetName: sheet, RowData: data, AddedBy: r.user()})
	if _, err := unwrap(env, err, "files", "add-row", name); err != nil {
		return err
	}
	r.Out.Message("%s", env.MessageOr("Row added"))
	return nil
}

func (r *Runner) DeleteRow(ctx context.Context, id int64) error {
	if err := r.confirm(fmt.Sprintf("Delete row %d?", id)); err != nil {
		return err
	}
	env, err := r.App.API.Files.DeleteRow(ctx, id, r.user())
	if _, err := unwrap(env, err, "files", "delete-row", api.RowKey(id)); err != nil {
		return err
	}
	r.Out.Message("%s", env.MessageOr("Row deleted"))
	return nil
}
