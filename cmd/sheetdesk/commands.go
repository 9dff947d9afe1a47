package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studiowebux/sheetdesk/internal/cli"
	"github.com/studiowebux/sheetdesk/internal/config"
	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/logging"
	"github.com/studiowebux/sheetdesk/internal/mock"
	"github.com/studiowebux/sheetdesk/internal/session"
)

var errFileRequired = errors.New("a file name is required when stdin is not a terminal")

func errInvalidID(s string) error {
	return fmt.Errorf("invalid id %q: expected a whole number", s)
}

func newDiagnoseCmd() *cobra.Command {
	var opts cli.DiagnoseOptions
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Run connectivity and data checks against the backend",
		Long: `Run connectivity and data checks against the backend.

The backend checks run in order and stop at the first failure. With --local a
workbook on disk is inspected at the same time, and --probe also requests the
server root directly.`,
		Args: cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.Diagnose(ctx, opts)
		}),
	}
	cmd.Flags().StringVar(&opts.File, "file", "", "Also check sheets and data of this uploaded file")
	cmd.Flags().StringVar(&opts.Local, "local", "", "Inspect a workbook on disk")
	cmd.Flags().BoolVar(&opts.Probe, "probe", false, "Probe the server origin and API root")
	return cmd
}

func newJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local request journal",
	}

	var q journal.Query
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded requests, newest first",
		Args:    cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.JournalList(q)
		}),
	}
	list.Flags().IntVarP(&q.Limit, "limit", "n", 50, "Maximum number of entries")
	list.Flags().BoolVar(&q.FailedOnly, "failed", false, "Only failed requests")
	list.Flags().BoolVar(&q.AllProfile, "all-profiles", false, "Include every profile")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the journal entries of the current profile",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, r *cli.Runner) error {
			return r.JournalClear()
		}),
	}

	toggle := func(enabled bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := config.Initialize(); err != nil {
				return err
			}
			mgr := session.NewManager()
			if err := mgr.Load(); err != nil {
				return err
			}
			return mgr.SetJournalEnabled(enabled)
		}
	}
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Record requests in the journal",
		Args:  cobra.NoArgs,
		RunE:  toggle(true),
	}
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Stop recording requests",
		Args:  cobra.NoArgs,
		RunE:  toggle(false),
	}

	cmd.AddCommand(list, clearCmd, enable, disable)
	return cmd
}

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "List and switch backend profiles",
	}

	load := func() (*session.Manager, error) {
		if err := config.Initialize(); err != nil {
			return nil, err
		}
		mgr := session.NewManager()
		return mgr, mgr.Load()
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := load()
			if err != nil {
				return err
			}
			return cli.ListProfiles(cli.NewPrinter(flagOutput, flagQuery), mgr)
		},
	}

	use := &cobra.Command{
		Use:   "use <name>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := load()
			if err != nil {
				return err
			}
			if err := mgr.SetActiveProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active profile: %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, use)
	return cmd
}

func newMockCmd() *cobra.Command {
	var (
		port       int
		host       string
		configPath string
		delay      int
		writeSeed  string
		quiet      bool
	)
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a local stand-in backend",
		Long: `Run a local stand-in backend with seeded workbooks.

The seed is read from --config, then from mock.yaml in the config directory,
and falls back to a small built-in inventory workbook. Use --write-seed to
write the built-in seed to a file as a starting point.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeSeed != "" {
				if err := mock.SaveConfig(mock.DefaultConfig(), writeSeed); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seed written to %s\n", writeSeed)
				return nil
			}

			if err := config.Initialize(); err != nil {
				return err
			}
			logger, err := logging.Configure(logging.Options{Path: config.LogFile, Debug: flagDebug})
			if err != nil {
				return err
			}

			cfg, err := loadMockConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("delay") {
				cfg.Delay = delay
			}

			srv := mock.NewServer(cfg, logger.With("component", "mock"))
			if err := srv.Start(); err != nil {
				return err
			}
			defer srv.Stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mock backend listening on %s (Ctrl+C to stop)\n", srv.Address())
			backend := srv.Backend()
			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					fmt.Fprintln(out, "\nStopping mock backend")
					return nil
				case <-backend.NotifyChannel():
					if quiet {
						backend.ClearRequests()
						continue
					}
					for _, req := range backend.Requests() {
						path := req.Path
						if req.Query != "" {
							path += "?" + req.Query
						}
						fmt.Fprintf(out, "%s %-6s %d %s %s\n",
							req.Timestamp.Format(time.TimeOnly), req.Method, req.Status, path, cli.Duration(req.Duration))
					}
					backend.ClearRequests()
				}
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", 5002, "Port to listen on")
	cmd.Flags().StringVar(&host, "host", "localhost", "Host to bind")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Seed file (.yaml, .yml or .json)")
	cmd.Flags().IntVar(&delay, "delay", 0, "Response delay in milliseconds")
	cmd.Flags().StringVar(&writeSeed, "write-seed", "", "Write the built-in seed to this path and exit")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not print requests")
	return cmd
}

func loadMockConfig(path string) (*mock.Config, error) {
	if path != "" {
		return mock.LoadConfig(path)
	}
	if _, err := os.Stat(config.MockSeedFile); err == nil {
		return mock.LoadConfig(config.MockSeedFile)
	}
	return mock.DefaultConfig(), nil
}
