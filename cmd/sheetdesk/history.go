package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/studiowebux/sheetdesk/internal/cli"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// historyFlags are the filter and paging flags shared by the history
// commands.
type historyFlags struct {
	file, operation, user, sheet string
	since, until                 string
	page, pageSize               int
}

func (h *historyFlags) registerPaging(cmd *cobra.Command) {
	cmd.Flags().IntVar(&h.page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&h.pageSize, "page-size", 0, "Entries per page (default: the profile's)")
}

func (h *historyFlags) registerRange(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.since, "since", "", "Start date (RFC3339, 2006-01-02, 7d or 36h)")
	cmd.Flags().StringVar(&h.until, "until", "", "End date, same forms as --since")
}

func (h *historyFlags) registerFilters(cmd *cobra.Command) {
	cmd.Flags().StringVar(&h.file, "file", "", "Only changes to this file")
	cmd.Flags().StringVar(&h.operation, "operation", "", "Only this operation (UPDATE, INSERT, DELETE...)")
	cmd.Flags().StringVar(&h.user, "user", "", "Only changes by this user")
	cmd.Flags().StringVar(&h.sheet, "sheet", "", "Only changes to this sheet")
	h.registerRange(cmd)
}

func (h *historyFlags) dates() (*time.Time, *time.Time, error) {
	now := time.Now()
	start, err := cli.ParseDate(h.since, now)
	if err != nil {
		return nil, nil, err
	}
	end, err := cli.ParseDate(h.until, now)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func (h *historyFlags) filter() (types.HistoryFilter, error) {
	start, end, err := h.dates()
	if err != nil {
		return types.HistoryFilter{}, err
	}
	return types.HistoryFilter{
		FileName:  h.file,
		Operation: h.operation,
		UserID:    h.user,
		SheetName: h.sheet,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func (h *historyFlags) options() (cli.HistoryOptions, error) {
	f, err := h.filter()
	if err != nil {
		return cli.HistoryOptions{}, err
	}
	return cli.HistoryOptions{Filter: f, Page: h.page, PageSize: h.pageSize}, nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"h"},
		Short:   "Browse and revert the change history",
	}

	var changesFlags historyFlags
	changes := &cobra.Command{
		Use:   "changes",
		Short: "List changes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := changesFlags.options()
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Changes(ctx, opts)
			})(cmd, args)
		},
	}
	changesFlags.registerFilters(changes)
	changesFlags.registerPaging(changes)

	var fileFlags historyFlags
	file := &cobra.Command{
		Use:   "file [file]",
		Short: "List the changes of one file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _ := fileFlags.options()
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.FileHistory(ctx, name, opts)
			})(cmd, args)
		},
	}
	fileFlags.registerPaging(file)

	var rowFlags historyFlags
	row := &cobra.Command{
		Use:   "data <row-id>",
		Short: "List the changes of one row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts, _ := rowFlags.options()
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.RowHistory(ctx, id, opts)
			})(cmd, args)
		},
	}
	rowFlags.registerPaging(row)

	var searchFlags historyFlags
	search := &cobra.Command{
		Use:   "search <term>",
		Short: "Search change descriptions and values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, _ := searchFlags.options()
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Search(ctx, args[0], opts)
			})(cmd, args)
		},
	}
	searchFlags.registerPaging(search)

	var statsFlags historyFlags
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show change statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := statsFlags.dates()
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.HistoryStats(ctx, statsFlags.file, start, end)
			})(cmd, args)
		},
	}
	stats.Flags().StringVar(&statsFlags.file, "file", "", "Restrict to one file")
	statsFlags.registerRange(stats)

	var activityFlags historyFlags
	activity := &cobra.Command{
		Use:   "activity <user>",
		Short: "Show the activity of one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := activityFlags.dates()
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.UserActivity(ctx, args[0], start, end)
			})(cmd, args)
		},
	}
	activityFlags.registerRange(activity)

	show := &cobra.Command{
		Use:   "show <change-id>",
		Short: "Show one change in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.ShowChange(ctx, id)
			})(cmd, args)
		},
	}

	var reason string
	revert := &cobra.Command{
		Use:   "revert <change-id>",
		Short: "Revert one change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Revert(ctx, id, reason)
			})(cmd, args)
		},
	}
	revert.Flags().StringVar(&reason, "reason", "", "Reason recorded with the revert")

	var (
		exportFlags          historyFlags
		exportFormat, expOut string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exportFlags.filter()
			if err != nil {
				return err
			}
			format, err := cli.ParseExportFormat(exportFormat)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.ExportHistory(ctx, f, format, expOut)
			})(cmd, args)
		},
	}
	exportFlags.registerFilters(export)
	export.Flags().StringVarP(&exportFormat, "format", "F", string(types.ExportExcel), "Export format (excel/json/csv)")
	export.Flags().StringVar(&expOut, "out", "", "Destination path, or - for stdout")

	cmd.AddCommand(changes, file, row, search, stats, activity, show, revert, export)
	return cmd
}
