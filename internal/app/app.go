// Package app assembles one backend profile into a ready client: the
// executor, the typed resource clients, the selection shell and the
// controllers subscribed to it.
package app

import (
	"log/slog"
	"net/http"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/controller"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/session"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

type Options struct {
	Logger *slog.Logger
	// Journal, when set, records every executed request.
	Journal    *journal.Manager
	HTTPClient *http.Client
}

type App struct {
	Profile  types.Profile
	Logger   *slog.Logger
	Executor *executor.Executor
	API      *api.Client
	Shell    *shell.Shell
	Journal  *journal.Manager

	Dashboard  *controller.Dashboard
	Files      *controller.FileManager
	Data       *controller.DataViewer
	Comparison *controller.Comparison
	History    *controller.History
}

func New(profile types.Profile, opts Options) *App {
	profile = session.WithDefaults(profile)
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("profile", profile.Name)

	execOpts := []executor.Option{
		executor.WithTimeout(profile.Timeout(executor.DefaultTimeout)),
		executor.WithHeaders(profile.Headers),
		executor.WithLogger(logger),
		executor.WithHTTPClient(opts.HTTPClient),
	}
	if opts.Journal != nil {
		execOpts = append(execOpts, executor.WithRecorder(opts.Journal))
	}
	exec := executor.New(profile.BaseURL, execOpts...)
	client := api.New(exec, logger)

	a := &App{
		Profile:  profile,
		Logger:   logger,
		Executor: exec,
		API:      client,
		Shell:    shell.New(),
		Journal:  opts.Journal,

		Dashboard:  controller.NewDashboard(client),
		Files:      controller.NewFileManager(client, profile.User),
		Data:       controller.NewDataViewer(client, profile.User, profile.PageSize),
		Comparison: controller.NewComparison(client),
		History:    controller.NewHistory(client, profile.User, profile.PageSize),
	}
	a.Shell.Subscribe(a.Data)
	a.Shell.Subscribe(a.Comparison)
	a.Shell.Subscribe(a.History)

	logger.Debug("client ready", "baseUrl", profile.BaseURL, "timeout", exec.Timeout(), "user", profile.User)
	return a
}

// Close releases the journal, if any.
func (a *App) Close() error {
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}
