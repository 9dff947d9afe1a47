package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// HistoryOptions are the filters and paging shared by the history commands.
type HistoryOptions struct {
	Filter   types.HistoryFilter
	Page     int
	PageSize int
}

func (o HistoryOptions) paging(fallback int) (int, int) {
	page, size := o.Page, o.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = fallback
	}
	return page, size
}

func (r *Runner) printChanges(p types.Page[types.ChangeRecord]) error {
	return r.Out.Print(p, func() Table {
		t := changesTable(p.Data)
		t.Footer = pageFooter(p)
		return t
	})
}

func (r *Runner) Changes(ctx context.Context, opts HistoryOptions) error {
	page, size := opts.paging(r.App.Profile.PageSize)
	env, err := r.App.API.History.Changes(ctx, page, size, opts.Filter)
	p, err := unwrap(env, err, "history", "changes", opts.Filter.FileName)
	if err != nil {
		return err
	}
	return r.printChanges(p)
}

func (r *Runner) FileHistory(ctx context.Context, name string, opts HistoryOptions) error {
	page, size := opts.paging(r.App.Profile.PageSize)
	env, err := r.App.API.History.FileHistory(ctx, name, page, size)
	p, err := unwrap(env, err, "history", "file", name)
	if err != nil {
		return err
	}
	return r.printChanges(p)
}

func (r *Runner) RowHistory(ctx context.Context, id int64, opts HistoryOptions) error {
	page, size := opts.paging(r.App.Profile.PageSize)
	env, err := r.App.API.History.DataHistory(ctx, id, page, size)
	p, err := unwrap(env, err, "history", "data", api.RowKey(id))
	if err != nil {
		return err
	}
	return r.printChanges(p)
}

func (r *Runner) Search(ctx context.Context, term string, opts HistoryOptions) error {
	page, size := opts.paging(r.App.Profile.PageSize)
	env, err := r.App.API.History.Search(ctx, term, page, size)
	p, err := unwrap(env, err, "history", "search", term)
	if err != nil {
		return err
	}
	return r.printChanges(p)
}

func (r *Runner) HistoryStats(ctx context.Context, fileName string, start, end *time.Time) error {
	env, err := r.App.API.History.Stats(ctx, fileName, start, end)
	stats, err := unwrap(env, err, "history", "stats", fileName)
	if err != nil {
		return err
	}
	return r.Out.Print(stats, func() Table { return historyStatsTable(stats) })
}

func (r *Runner) UserActivity(ctx context.Context, user string, start, end *time.Time) error {
	env, err := r.App.API.History.UserActivity(ctx, user, start, end)
	stats, err := unwrap(env, err, "history", "user-activity", user)
	if err != nil {
		return err
	}
	return r.Out.Print(stats, func() Table { return historyStatsTable(stats) })
}

func (r *Runner) ShowChange(ctx context.Context, id int64) error {
	env, err := r.App.API.History.ChangeDetails(ctx, id)
	c, err := unwrap(env, err, "history", "change", "change "+strconv.FormatInt(id, 10))
	if err != nil {
		return err
	}
	return r.Out.Print(c, func() Table {
		return keyValueTable(
			"ID", strconv.FormatInt(c.ID, 10),
			"Type", c.Kind(),
			"When", When(c.When()),
			"By", c.Actor(),
			"File", c.FileName,
			"Sheet", c.SheetName,
			"Row", strconv.Itoa(c.RowIndex),
			"Column", c.ColumnName,
			"Old value", types.FormatScalar(c.OldValue),
			"New value", types.FormatScalar(c.NewValue),
			"Description", c.Description,
		)
	})
}

// Revert undoes one change after confirmation, through the history controller.
func (r *Runner) Revert(ctx context.Context, id int64, reason string) error {
	if err := r.confirm(fmt.Sprintf("Revert change %d?", id)); err != nil {
		return err
	}
	h := r.App.History
	h.RequestRevert(id)
	if err := h.ConfirmRevert(ctx, reason); err != nil {
		return controllerFailure(h.ErrorMessage(), err)
	}
	r.Out.Message("%s", h.SuccessMessage())
	return nil
}

func (r *Runner) ExportHistory(ctx context.Context, filter types.HistoryFilter, format types.ExportFormat, out string) error {
	resp, err := r.App.API.History.Export(ctx, filter, format)
	if err != nil {
		return fail(err, filter.FileName)
	}
	return r.save(resp, out, "history_export"+format.Extension())
}
