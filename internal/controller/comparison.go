package controller

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

var (
	ErrFilesNotSelected = errors.New("select two files to compare")
	ErrSameFile         = errors.New("select two different files")
	ErrNoComparison     = errors.New("run a comparison first")
)

// Comparison diffs two files, or two versions of one file.
type Comparison struct {
	state
	client *api.Client

	loadSeq    sequence
	compareSeq sequence
	comparing  bool

	files     []types.ComparisonFile
	templates []types.ComparisonTemplate
	file1     string
	file2     string
	sheet     string
	settings  types.ComparisonSettings
	result    *types.ComparisonResult
	warning   string
}

func NewComparison(client *api.Client) *Comparison {
	return &Comparison{client: client, settings: types.DefaultComparisonSettings()}
}

// SelectionChanged pre-fills the first file with the shell selection when
// it is still empty.
func (c *Comparison) SelectionChanged(prev, next shell.Selection) shell.Fetch {
	if prev.FileName == next.FileName || next.FileName == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file1 == "" {
		c.file1 = next.FileName
	}
	return nil
}

// Load fetches the comparable files and the saved templates concurrently.
// A template failure does not fail the load.
func (c *Comparison) Load(ctx context.Context) error {
	c.mu.Lock()
	token := c.loadSeq.next()
	c.startLocked()
	c.mu.Unlock()

	var (
		files        types.Envelope[[]types.ComparisonFile]
		templates    types.Envelope[[]types.ComparisonTemplate]
		templatesErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = c.client.Comparison.Files(gctx)
		return err
	})
	g.Go(func() error {
		templates, templatesErr = c.client.Comparison.Templates(gctx)
		return nil
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loadSeq.current(token) {
		return ErrSuperseded
	}
	if err != nil {
		c.failLocked(apierr.Message(err, ""))
		return err
	}
	if !files.Success {
		err := apierr.Application(files.Message, "Could not load files")
		c.failLocked(err.Error())
		return err
	}
	c.files = files.Data
	if templatesErr == nil && templates.Success {
		c.templates = templates.Data
	}
	c.doneLocked("")
	return nil
}

func (c *Comparison) SetFile1(name string) { c.setSelection(&c.file1, name) }

func (c *Comparison) SetFile2(name string) { c.setSelection(&c.file2, name) }

// SetSheet restricts the comparison to one sheet; empty compares all.
func (c *Comparison) SetSheet(name string) { c.setSelection(&c.sheet, name) }

// setSelection drops a result computed for a different selection.
func (c *Comparison) setSelection(field *string, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *field == value {
		return
	}
	*field = value
	c.result = nil
	c.warning = ""
	c.compareSeq.next()
	if c.comparing {
		// The running compare will be discarded and nothing replaces it.
		c.comparing = false
		c.resetLocked()
	}
}

func (c *Comparison) SetSettings(s types.ComparisonSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// ApplyTemplate copies the settings of a loaded template.
func (c *Comparison) ApplyTemplate(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.templates) {
		return fmt.Errorf("no template at index %d", index)
	}
	c.settings = c.templates[index].Effective()
	return nil
}

// Compare diffs file1 against file2.
func (c *Comparison) Compare(ctx context.Context) error {
	c.mu.Lock()
	req := types.CompareRequest{FileName1: c.file1, FileName2: c.file2, SheetName: c.sheet}
	settings := c.settings
	req.Settings = &settings
	switch {
	case req.FileName1 == "" || req.FileName2 == "":
		c.failLocked(ErrFilesNotSelected.Error())
		c.mu.Unlock()
		return ErrFilesNotSelected
	case req.FileName1 == req.FileName2:
		c.failLocked(ErrSameFile.Error())
		c.mu.Unlock()
		return ErrSameFile
	}
	token := c.compareSeq.next()
	c.comparing = true
	c.startLocked()
	c.mu.Unlock()

	env, err := c.client.Comparison.Compare(ctx, req)
	return c.applyResult(token, env, err, req.FileName1+" / "+req.FileName2)
}

// CompareVersions diffs two stored versions of one file.
func (c *Comparison) CompareVersions(ctx context.Context, fileName string, oldID, newID int64) error {
	c.mu.Lock()
	settings := c.settings
	token := c.compareSeq.next()
	c.comparing = true
	c.startLocked()
	c.mu.Unlock()

	env, err := c.client.Comparison.CompareVersions(ctx, fileName, types.CompareVersionsRequest{
		OldVersionID: oldID,
		NewVersionID: newID,
		Settings:     &settings,
	})
	return c.applyResult(token, env, err, fileName)
}

func (c *Comparison) applyResult(token uint64, env types.Envelope[types.ComparisonResult], err error, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.compareSeq.current(token) {
		return ErrSuperseded
	}
	c.comparing = false
	if err != nil {
		c.failLocked(apierr.Message(err, key))
		return err
	}
	if !env.Success {
		err := apierr.Application(env.Message, "Comparison failed")
		c.failLocked("Comparison failed: " + err.Error())
		return err
	}

	result := env.Data
	c.result = &result
	c.warning = ""
	if s := result.Summary; !s.Consistent() {
		c.warning = fmt.Sprintf("Summary does not add up: %d total rows but %d modified + %d added + %d deleted + %d unchanged",
			s.TotalRows, s.ModifiedRows, s.AddedRows, s.DeletedRows, s.UnchangedRows)
	}
	c.doneLocked(fmt.Sprintf("%d differences found", len(result.Differences)))
	return nil
}

// Versions lists the stored versions of a file.
func (c *Comparison) Versions(ctx context.Context, fileName string) ([]types.ComparisonVersion, error) {
	env, err := c.client.Comparison.Versions(ctx, fileName)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, apierr.Application(env.Message, "Could not load versions")
	}
	return env.Data, nil
}

// Export downloads the current result.
func (c *Comparison) Export(ctx context.Context, format types.ExportFormat) (*executor.Response, error) {
	c.mu.RLock()
	var id string
	if c.result != nil {
		id = c.result.ComparisonID
	}
	c.mu.RUnlock()
	if id == "" {
		return nil, ErrNoComparison
	}

	resp, err := c.client.Comparison.Export(ctx, id, format)
	if err != nil {
		c.fail(apierr.Message(err, id))
		return nil, err
	}
	return resp, nil
}

// SaveTemplate stores the current settings and reloads the template list.
func (c *Comparison) SaveTemplate(ctx context.Context, name, description string) error {
	c.mu.RLock()
	req := types.SaveTemplateRequest{Name: name, Description: description, Settings: c.settings}
	c.mu.RUnlock()

	env, err := c.client.Comparison.SaveTemplate(ctx, req)
	if err == nil && !env.Success {
		err = apierr.Application(env.Message, "Could not save template")
	}
	if err != nil {
		c.fail(apierr.Message(err, name))
		return err
	}

	templates, err := c.client.Comparison.Templates(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil && templates.Success {
		c.templates = templates.Data
	}
	c.okMsg = fmt.Sprintf("Template %q saved", name)
	return nil
}

func (c *Comparison) Files() []types.ComparisonFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.ComparisonFile(nil), c.files...)
}

func (c *Comparison) Templates() []types.ComparisonTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]types.ComparisonTemplate(nil), c.templates...)
}

// Selected returns file1, file2 and the sheet restriction.
func (c *Comparison) Selected() (string, string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file1, c.file2, c.sheet
}

func (c *Comparison) Settings() types.ComparisonSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *Comparison) Result() (types.ComparisonResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.result == nil {
		return types.ComparisonResult{}, false
	}
	return *c.result, true
}

// Warning is set when the result summary is inconsistent.
func (c *Comparison) Warning() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warning
}

func (c *Comparison) fail(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failLocked(msg)
}
