package main

import (
	"context"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/studiowebux/sheetdesk/internal/cli"
)

// fileArg returns args[0], or lets the user pick a file when none was given
// and stdin is a terminal.
func fileArg(ctx context.Context, r *cli.Runner, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errFileRequired
	}
	env, err := r.App.API.Files.List(ctx)
	if err != nil {
		return "", err
	}
	return cli.PickFile("Select a file", env.Data)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errInvalidID(s)
	}
	return id, nil
}

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"f"},
		Short:   "Manage uploaded workbooks",
	}

	var filterQuery string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List uploaded files",
		Args:    cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.ListFiles(ctx, filterQuery)
		}),
	}
	list.Flags().StringVarP(&filterQuery, "filter", "f", "", "Fuzzy filter on the file name")

	upload := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a workbook and process it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Upload(ctx, args[0])
			})(cmd, args)
		},
	}

	del := &cobra.Command{
		Use:     "delete [file]",
		Aliases: []string{"rm"},
		Short:   "Delete a file and all of its data",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.DeleteFile(ctx, name)
			})(cmd, args)
		},
	}

	var processSheet string
	process := &cobra.Command{
		Use:   "process [file]",
		Short: "Ask the backend to (re)parse a workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.Process(ctx, name, processSheet)
			})(cmd, args)
		},
	}
	process.Flags().StringVarP(&processSheet, "sheet", "s", "", "Process a single sheet")

	sheets := &cobra.Command{
		Use:   "sheets [file]",
		Short: "List the sheets of a workbook",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.Sheets(ctx, name)
			})(cmd, args)
		},
	}

	var statsSheet string
	stats := &cobra.Command{
		Use:   "stats [file]",
		Short: "Show row and column statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.Statistics(ctx, name, statsSheet)
			})(cmd, args)
		},
	}
	stats.Flags().StringVarP(&statsSheet, "sheet", "s", "", "Restrict to one sheet")

	var downloadOut string
	download := &cobra.Command{
		Use:   "download [file]",
		Short: "Download the stored workbook",
		Long: `Download the stored workbook.

Without --out the file is written to the exports directory under the name the
backend sends. Use --out - to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.Download(ctx, name, downloadOut)
			})(cmd, args)
		},
	}
	download.Flags().StringVar(&downloadOut, "out", "", "Destination path, or - for stdout")

	var exportOpts cli.ExportOptions
	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Export rows, optionally with their modification history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.Export(ctx, name, exportOpts)
			})(cmd, args)
		},
	}
	export.Flags().StringVarP(&exportOpts.Sheet, "sheet", "s", "", "Sheet to export")
	export.Flags().Int64SliceVar(&exportOpts.RowIDs, "rows", nil, "Row ids to export (default: all)")
	export.Flags().BoolVar(&exportOpts.IncludeHistory, "history", false, "Include the modification history")
	export.Flags().StringVar(&exportOpts.Out, "out", "", "Destination path, or - for stdout")

	cmd.AddCommand(list, upload, del, process, sheets, stats, download, export)
	return cmd
}

func newDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "data",
		Aliases: []string{"d"},
		Short:   "View and edit sheet rows",
	}

	var pageOpts cli.PageOptions
	page := &cobra.Command{
		Use:   "page [file]",
		Short: "Show one page of rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				name, err := fileArg(ctx, r, args)
				if err != nil {
					return err
				}
				return r.DataPage(ctx, name, pageOpts)
			})(cmd, args)
		},
	}
	page.Flags().StringVarP(&pageOpts.Sheet, "sheet", "s", "", "Sheet to read (default: the first)")
	page.Flags().IntVar(&pageOpts.Page, "page", 1, "Page number, starting at 1")
	page.Flags().IntVar(&pageOpts.PageSize, "page-size", 0, "Rows per page (default: the profile's)")

	update := &cobra.Command{
		Use:   "update <row-id> <column=value>...",
		Short: "Update columns of a row",
		Long: `Update columns of a row. Only the assigned columns are sent.

Values are read as JSON scalars when they parse (numbers, true, false, null)
and as text otherwise.

Example:
  sheetdesk data update 12 Quantity=150 Name="Hex bolt"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.UpdateRow(ctx, id, args[1:])
			})(cmd, args)
		},
	}

	var updatesFile string
	bulk := &cobra.Command{
		Use:   "bulk-update",
		Short: "Update many rows in one request",
		Long: `Update many rows in one request. The file holds a JSON list of updates;
comments are allowed. Use --file - to read it from stdin.

Example file:
  [
    {"id": 12, "data": {"Quantity": 150}},
    {"id": 13, "data": {"Price": 0.3}}
  ]`,
		Args: cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.BulkUpdate(ctx, updatesFile)
		}),
	}
	bulk.Flags().StringVarP(&updatesFile, "file", "f", "", "JSON file of updates, - for stdin")
	bulk.MarkFlagRequired("file") //nolint:errcheck

	var addSheet string
	add := &cobra.Command{
		Use:   "add <file> <column=value>...",
		Short: "Append a row to a sheet",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.AddRow(ctx, args[0], addSheet, args[1:])
			})(cmd, args)
		},
	}
	add.Flags().StringVarP(&addSheet, "sheet", "s", "", "Target sheet")

	del := &cobra.Command{
		Use:     "delete <row-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a row",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.DeleteRow(ctx, id)
			})(cmd, args)
		},
	}

	cmd.AddCommand(page, update, bulk, add, del)
	return cmd
}
