package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/studiowebux/sheetdesk/internal/cli"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// optionalBool returns a pointer to the flag value when the flag was set.
func optionalBool(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// versionArgs parses "<file> <v1> <v2>".
func versionArgs(args []string) (string, int64, int64, error) {
	v1, err := parseID(args[1])
	if err != nil {
		return "", 0, 0, err
	}
	v2, err := parseID(args[2])
	if err != nil {
		return "", 0, 0, err
	}
	return args[0], v1, v2, nil
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "compare",
		Aliases: []string{"cmp"},
		Short:   "Compare files and versions",
	}

	var (
		runOpts   cli.CompareOptions
		runExport string
	)
	runCmd := &cobra.Command{
		Use:   "run <file1> <file2>",
		Short: "Compare two files cell by cell",
		Long: `Compare two files cell by cell.

Settings start from the defaults, then the named --template, then the
individual flags.

Examples:
  sheetdesk compare run a.xlsx b.xlsx --sheet stok
  sheetdesk compare run a.xlsx b.xlsx --template strict --export csv`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runOpts.IgnoreCase = optionalBool(cmd, "ignore-case")
			runOpts.IgnoreWhitespace = optionalBool(cmd, "ignore-whitespace")
			if runExport != "" {
				format, err := cli.ParseExportFormat(runExport)
				if err != nil {
					return err
				}
				runOpts.Export = format
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Compare(ctx, args[0], args[1], runOpts)
			})(cmd, args)
		},
	}
	runCmd.Flags().StringVarP(&runOpts.Sheet, "sheet", "s", "", "Compare a single sheet")
	runCmd.Flags().StringVarP(&runOpts.Template, "template", "t", "", "Saved settings template to apply")
	runCmd.Flags().Bool("ignore-case", false, "Ignore letter case")
	runCmd.Flags().Bool("ignore-whitespace", true, "Ignore surrounding whitespace")
	runCmd.Flags().StringVar(&runExport, "export", "", "Also export the result (excel/json/csv)")
	runCmd.Flags().StringVar(&runOpts.Out, "out", "", "Export destination, or - for stdout")

	files := &cobra.Command{
		Use:   "files",
		Short: "List files available for comparison",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.ComparisonFiles(ctx)
		}),
	}

	versions := &cobra.Command{
		Use:   "versions <file>",
		Short: "List the stored versions of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Versions(ctx, args[0])
			})(cmd, args)
		},
	}

	diffVersions := &cobra.Command{
		Use:   "diff-versions <file> <old-version> <new-version>",
		Short: "Compare two stored versions of a file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, v1, v2, err := versionArgs(args)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.CompareVersions(ctx, name, v1, v2)
			})(cmd, args)
		},
	}

	var (
		diffSheet          string
		diffStart, diffEnd int
	)
	differences := &cobra.Command{
		Use:   "differences <file> <v1> <v2>",
		Short: "List cell differences between two versions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, v1, v2, err := versionArgs(args)
			if err != nil {
				return err
			}
			rng := types.DifferenceRange{SheetName: diffSheet}
			if cmd.Flags().Changed("start-row") {
				rng.StartRow = &diffStart
			}
			if cmd.Flags().Changed("end-row") {
				rng.EndRow = &diffEnd
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.Differences(ctx, name, v1, v2, rng)
			})(cmd, args)
		},
	}
	differences.Flags().StringVarP(&diffSheet, "sheet", "s", "", "Restrict to one sheet")
	differences.Flags().IntVar(&diffStart, "start-row", 0, "First row")
	differences.Flags().IntVar(&diffEnd, "end-row", 0, "Last row")

	var cellSheet string
	cell := &cobra.Command{
		Use:   "cell <file> <v1> <v2> <row> <column>",
		Short: "Show the difference of a single cell",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, v1, v2, err := versionArgs(args)
			if err != nil {
				return err
			}
			row, err := strconv.Atoi(args[3])
			if err != nil {
				return errInvalidID(args[3])
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.CellDifference(ctx, name, v1, v2, cellSheet, row, args[4])
			})(cmd, args)
		},
	}
	cell.Flags().StringVarP(&cellSheet, "sheet", "s", "", "Sheet of the cell")

	summary := &cobra.Command{
		Use:   "summary <comparison-id>",
		Short: "Show the summary of a stored comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.ComparisonSummary(ctx, args[0])
			})(cmd, args)
		},
	}

	var exportFormat, exportOut string
	export := &cobra.Command{
		Use:   "export <comparison-id>",
		Short: "Export a stored comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cli.ParseExportFormat(exportFormat)
			if err != nil {
				return err
			}
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.ExportComparison(ctx, args[0], format, exportOut)
			})(cmd, args)
		},
	}
	export.Flags().StringVarP(&exportFormat, "format", "F", string(types.ExportExcel), "Export format (excel/json/csv)")
	export.Flags().StringVar(&exportOut, "out", "", "Destination path, or - for stdout")

	cmd.AddCommand(runCmd, files, versions, diffVersions, differences, cell, summary, export, newTemplatesCmd())
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List saved comparison templates",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.Templates(ctx)
		}),
	}

	var (
		description string
		settings    = types.DefaultComparisonSettings()
	)
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a comparison settings template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, r *cli.Runner) error {
				return r.SaveTemplate(ctx, args[0], description, settings)
			})(cmd, args)
		},
	}
	f := save.Flags()
	f.StringVarP(&description, "description", "d", "", "Template description")
	f.BoolVar(&settings.IgnoreCase, "ignore-case", settings.IgnoreCase, "Ignore letter case")
	f.BoolVar(&settings.IgnoreWhitespace, "ignore-whitespace", settings.IgnoreWhitespace, "Ignore surrounding whitespace")
	f.BoolVar(&settings.CompareFormulas, "formulas", settings.CompareFormulas, "Compare formulas")
	f.BoolVar(&settings.CompareFormats, "formats", settings.CompareFormats, "Compare cell formats")
	f.BoolVar(&settings.HighlightChanges, "highlight", settings.HighlightChanges, "Highlight changes in exports")
	f.BoolVar(&settings.IncludeRowNumbers, "row-numbers", settings.IncludeRowNumbers, "Include row numbers")

	cmd.AddCommand(save)
	return cmd
}
