package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/controller"
)

// diagnosePageSize is the page size of the sample data request.
const diagnosePageSize = 10

// Step is the outcome of one diagnostic check.
type Step struct {
	Name     string        `json:"name" yaml:"name"`
	Pass     bool          `json:"pass" yaml:"pass"`
	Status   int           `json:"status,omitempty" yaml:"status,omitempty"`
	Detail   string        `json:"detail" yaml:"detail"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// DiagnoseOptions selects the optional checks.
type DiagnoseOptions struct {
	// File runs the sheet, process and sample-page checks against it.
	File string
	// Local inspects a workbook on disk.
	Local string
	// Probe requests the server root and API root as well.
	Probe bool
}

// ErrDiagnosticsFailed is returned when at least one step failed.
var ErrDiagnosticsFailed = errors.New("diagnostics failed")

// Diagnose runs the backend checks in order and the local inspection
// alongside them, then prints every step.
func (r *Runner) Diagnose(ctx context.Context, opts DiagnoseOptions) error {
	var backend, local, probes []Step

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		backend = r.backendSteps(gctx, opts.File)
		return nil
	})
	if opts.Local != "" {
		g.Go(func() error {
			local = inspectWorkbook(opts.Local)
			return nil
		})
	}
	if opts.Probe {
		g.Go(func() error {
			probes = r.probe(gctx)
			return nil
		})
	}
	_ = g.Wait()

	steps := []Step{r.configStep()}
	steps = append(steps, backend...)
	steps = append(steps, probes...)
	steps = append(steps, local...)

	if err := r.Out.Print(steps, func() Table { return stepsTable(steps) }); err != nil {
		return err
	}
	failed := 0
	for _, s := range steps {
		if !s.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d steps", ErrDiagnosticsFailed, failed, len(steps))
	}
	return nil
}

func stepsTable(steps []Step) Table {
	t := Table{Header: []string{"Step", "Result", "Status", "Time", "Detail"}}
	for _, s := range steps {
		result := "PASS"
		if !s.Pass {
			result = "FAIL"
		}
		status := ""
		if s.Status != 0 {
			status = fmt.Sprint(s.Status)
		}
		t.Rows = append(t.Rows, []string{s.Name, result, status, Duration(s.Duration), s.Detail})
	}
	return t
}

func (r *Runner) configStep() Step {
	exec := r.App.Executor
	headers := exec.Headers()
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + ": " + headers[k]
	}

	detail := fmt.Sprintf("profile %s, base URL %s, timeout %s, headers [%s]",
		r.App.Profile.Name, exec.BaseURL(), exec.Timeout(), strings.Join(pairs, ", "))
	_, err := url.ParseRequestURI(exec.BaseURL())
	if err != nil {
		return Step{Name: "configuration", Detail: "invalid base URL: " + err.Error()}
	}
	return Step{Name: "configuration", Pass: true, Detail: detail}
}

// check times fn and turns its error into a failed step.
func check(name string, fn func() (string, error)) Step {
	start := time.Now()
	detail, err := fn()
	step := Step{Name: name, Pass: err == nil, Detail: detail, Duration: time.Since(start)}
	if err != nil {
		step.Detail = strings.ReplaceAll(apierr.Message(err, ""), "\n  • ", "; ")
		var statusErr *apierr.HTTPStatusError
		if errors.As(err, &statusErr) {
			step.Status = statusErr.Code
		}
	}
	return step
}

func (r *Runner) backendSteps(ctx context.Context, file string) []Step {
	files := r.App.API.Files
	steps := []Step{check("connectivity", func() (string, error) {
		res, err := files.Test(ctx)
		return res.Message, err
	})}
	if !steps[0].Pass {
		return steps
	}

	steps = append(steps, check("file list", func() (string, error) {
		env, err := files.List(ctx)
		list, err := unwrap(env, err, "files", "list", "")
		return fmt.Sprintf("%d file(s)", len(list)), err
	}))
	if file == "" {
		return steps
	}

	steps = append(steps,
		check("sheets of "+file, func() (string, error) {
			env, err := files.Sheets(ctx, file)
			sheets, err := unwrap(env, err, "files", "sheets", file)
			names := make([]string, len(sheets))
			for i, s := range sheets {
				names[i] = s.Name
			}
			return strings.Join(names, ", "), err
		}),
		check("process "+file, func() (string, error) {
			env, err := files.Read(ctx, file, "")
			_, err = unwrap(env, err, "files", "read", file)
			return env.MessageOr("processed"), err
		}),
		check("first page of "+file, func() (string, error) {
			env, err := files.Data(ctx, api.DataQuery{FileName: file, Page: 1, PageSize: diagnosePageSize})
			rows, err := unwrap(env, err, "files", "data", file)
			return fmt.Sprintf("%d row(s)", len(rows)), err
		}),
	)
	return steps
}

// probe requests the server origin and the API root directly. Any HTTP
// answer, even a 404, proves the host is reachable.
func (r *Runner) probe(ctx context.Context) []Step {
	base := r.App.Executor.BaseURL()
	targets := []string{base}
	if u, err := url.Parse(base); err == nil && u.Path != "" && u.Path != "/" {
		targets = append([]string{u.Scheme + "://" + u.Host}, targets...)
	}

	steps := make([]Step, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		g.Go(func() error {
			start := time.Now()
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, target, nil)
			if err != nil {
				steps[i] = Step{Name: "probe " + target, Detail: err.Error()}
				return nil
			}
			client := &http.Client{Timeout: r.App.Executor.Timeout()}
			resp, err := client.Do(req)
			if err != nil {
				steps[i] = Step{Name: "probe " + target, Detail: err.Error(), Duration: time.Since(start)}
				return nil
			}
			resp.Body.Close()
			steps[i] = Step{Name: "probe " + target, Pass: true, Status: resp.StatusCode, Detail: resp.Status, Duration: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return steps
}

// inspectWorkbook reports what the backend should see in a local file:
// whether it passes upload validation and the sheets with their row counts.
func inspectWorkbook(path string) []Step {
	name := "local " + path
	start := time.Now()
	info, err := os.Stat(path)
	if err != nil {
		return []Step{{Name: name, Detail: err.Error()}}
	}
	steps := []Step{{Name: name + " upload check", Pass: true, Detail: Size(info.Size())}}
	if err := controller.ValidateUpload(path, info.Size()); err != nil {
		steps[0].Pass = false
		steps[0].Detail = err.Error()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return append(steps, Step{Name: name + " workbook", Detail: "cannot open workbook: " + err.Error(), Duration: time.Since(start)})
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		step := Step{Name: name + " sheet " + sheet, Pass: err == nil, Duration: time.Since(start)}
		if err != nil {
			step.Detail = err.Error()
		} else {
			data := max(len(rows)-1, 0)
			cols := 0
			if len(rows) > 0 {
				cols = len(rows[0])
			}
			step.Detail = fmt.Sprintf("%d data row(s), %d column(s)", data, cols)
		}
		steps = append(steps, step)
	}
	return steps
}
