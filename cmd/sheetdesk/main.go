package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/studiowebux/sheetdesk/internal/app"
	"github.com/studiowebux/sheetdesk/internal/cli"
	"github.com/studiowebux/sheetdesk/internal/config"
	"github.com/studiowebux/sheetdesk/internal/filter"
	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/logging"
	"github.com/studiowebux/sheetdesk/internal/session"
	"github.com/studiowebux/sheetdesk/internal/tui"
)

var (
	version = "0.1.0"
)

// Global flags
var (
	flagProfile   string
	flagOutput    string
	flagQuery     string
	flagDebug     bool
	flagYes       bool
	flagNoJournal bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logging.Close()
	if err != nil {
		if !errors.Is(err, cli.ErrCancelled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sheetdesk",
		Short: "Terminal client for a spreadsheet data backend",
		Long: `sheetdesk manages, views, compares and audits spreadsheet data served by
a sheet backend.

Run without arguments to start the interactive TUI, or use a subcommand
for scripting. Backends are configured as profiles in .profiles.json.

Examples:
  sheetdesk                                  # Start the TUI
  sheetdesk files list -o table              # List uploaded workbooks
  sheetdesk files upload report.xlsx         # Upload and process a workbook
  sheetdesk data page report.xlsx --sheet stok
  sheetdesk compare run a.xlsx b.xlsx --ignore-case
  sheetdesk history changes --file a.xlsx --since 7d
  sheetdesk files list -q "[].fileName"      # JMESPath query over the result
  sheetdesk mock                             # Local stand-in backend on :5002`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd)
			if err != nil {
				return err
			}
			defer env.close()
			return tui.Run(cmd.Context(), env.app)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&flagProfile, "profile", "p", "", "Profile to use (default: the active profile)")
	flags.StringVarP(&flagOutput, "output", "o", "", "Output format (json/yaml/table/text)")
	flags.StringVarP(&flagQuery, "query", "q", "", "JMESPath query applied to the result, or $(command)")
	flags.BoolVar(&flagDebug, "debug", false, "Write debug records to the log file")
	flags.BoolVarP(&flagYes, "yes", "y", false, "Do not ask for confirmation")
	flags.BoolVar(&flagNoJournal, "no-journal", false, "Do not record requests in the journal")

	root.AddCommand(
		newTestCmd(),
		newFilesCmd(),
		newDataCmd(),
		newCompareCmd(),
		newHistoryCmd(),
		newDiagnoseCmd(),
		newJournalCmd(),
		newProfileCmd(),
		newMockCmd(),
	)
	return root
}

// environment is what a command needs once the configuration is loaded.
type environment struct {
	app    *app.App
	runner *cli.Runner
}

func (e *environment) close() {
	if e.app != nil {
		e.app.Close()
	}
}

// setup loads the configuration and profile, opens the journal and wires
// the client.
func setup(cmd *cobra.Command) (*environment, error) {
	if err := config.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	logger, err := logging.Configure(logging.Options{Path: config.LogFile, Debug: flagDebug})
	if err != nil {
		return nil, err
	}
	if err := session.ValidateOutput(flagOutput); err != nil {
		return nil, err
	}
	if err := filter.Validate(flagQuery); err != nil {
		return nil, err
	}

	mgr := session.NewManager()
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	profile := mgr.GetActiveProfile()
	if flagProfile != "" {
		if profile, err = mgr.Profile(flagProfile); err != nil {
			return nil, err
		}
	}

	opts := app.Options{Logger: logger}
	if mgr.IsJournalEnabled() && !flagNoJournal {
		j, err := journal.Open(config.DatabasePath, profile.Name, logger)
		if err != nil {
			// The journal is diagnostic; a broken database must not block the client.
			logger.Warn("journal unavailable", "path", config.DatabasePath, "error", err)
		} else {
			opts.Journal = j
		}
	}
	a := app.New(profile, opts)

	format := flagOutput
	if format == "" {
		format = profile.Output
	}
	return &environment{
		app: a,
		runner: &cli.Runner{
			App: a,
			Out: cli.NewPrinter(format, flagQuery),
			In:  os.Stdin,
			Err: os.Stderr,
			Yes: flagYes,
		},
	}, nil
}

// run wraps a Runner call in the standard setup and teardown.
func run(fn func(ctx context.Context, r *cli.Runner) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.close()
		return fn(cmd.Context(), env.runner)
	}
}

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check connectivity to the backend",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.Test(ctx)
		}),
	}
}
