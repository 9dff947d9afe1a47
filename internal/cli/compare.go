package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/studiowebux/sheetdesk/internal/types"
)

// CompareOptions configures "compare run".
type CompareOptions struct {
	Sheet string
	// Template names a saved settings preset applied before the flags.
	Template         string
	IgnoreCase       *bool
	IgnoreWhitespace *bool
	// Export, when set, downloads the result in that format.
	Export types.ExportFormat
	Out    string
}

// Compare diffs two files through the comparison controller.
func (r *Runner) Compare(ctx context.Context, file1, file2 string, opts CompareOptions) error {
	c := r.App.Comparison
	if opts.Template != "" {
		if err := c.Load(ctx); err != nil {
			return controllerFailure(c.ErrorMessage(), err)
		}
		index := -1
		for i, tpl := range c.Templates() {
			if strings.EqualFold(tpl.Name, opts.Template) {
				index = i
				break
			}
		}
		if index < 0 {
			return fmt.Errorf("template %q not found", opts.Template)
		}
		if err := c.ApplyTemplate(index); err != nil {
			return err
		}
	}

	settings := c.Settings()
	if opts.IgnoreCase != nil {
		settings.IgnoreCase = *opts.IgnoreCase
	}
	if opts.IgnoreWhitespace != nil {
		settings.IgnoreWhitespace = *opts.IgnoreWhitespace
	}
	c.SetSettings(settings)
	c.SetFile1(file1)
	c.SetFile2(file2)
	c.SetSheet(opts.Sheet)

	if err := c.Compare(ctx); err != nil {
		return controllerFailure(c.ErrorMessage(), err)
	}
	result, _ := c.Result()
	if w := c.Warning(); w != "" {
		fmt.Fprintln(r.Err, "warning:", w)
	}
	if err := r.Out.Print(result, func() Table { return comparisonTable(result) }); err != nil {
		return err
	}

	if opts.Export == "" {
		return nil
	}
	resp, err := c.Export(ctx, opts.Export)
	if err != nil {
		return controllerFailure(c.ErrorMessage(), err)
	}
	return r.save(resp, opts.Out, "comparison_"+result.ComparisonID+opts.Export.Extension())
}

func (r *Runner) ComparisonFiles(ctx context.Context) error {
	env, err := r.App.API.Comparison.Files(ctx)
	files, err := unwrap(env, err, "comparison", "files", "")
	if err != nil {
		return err
	}
	return r.Out.Print(files, func() Table { return comparisonFilesTable(files) })
}

func (r *Runner) Versions(ctx context.Context, name string) error {
	versions, err := r.App.Comparison.Versions(ctx, name)
	if err != nil {
		return fail(err, name)
	}
	return r.Out.Print(versions, func() Table { return versionsTable(versions) })
}

// CompareVersions diffs two stored versions of one file.
func (r *Runner) CompareVersions(ctx context.Context, name string, oldID, newID int64) error {
	c := r.App.Comparison
	if err := c.CompareVersions(ctx, name, oldID, newID); err != nil {
		return controllerFailure(c.ErrorMessage(), err)
	}
	result, _ := c.Result()
	if w := c.Warning(); w != "" {
		fmt.Fprintln(r.Err, "warning:", w)
	}
	return r.Out.Print(result, func() Table { return comparisonTable(result) })
}

func (r *Runner) Differences(ctx context.Context, name string, v1, v2 int64, rng types.DifferenceRange) error {
	env, err := r.App.API.Comparison.Differences(ctx, name, v1, v2, rng)
	diffs, err := unwrap(env, err, "comparison", "differences", name)
	if err != nil {
		return err
	}
	return r.Out.Print(diffs, func() Table { return cellDifferencesTable(diffs) })
}

func (r *Runner) CellDifference(ctx context.Context, name string, v1, v2 int64, sheet string, row int, column string) error {
	env, err := r.App.API.Comparison.CellDifferences(ctx, name, v1, v2, sheet, row, column)
	diff, err := unwrap(env, err, "comparison", "cell-differences", name)
	if err != nil {
		return err
	}
	return r.Out.Print(diff, func() Table { return cellDifferencesTable([]types.CellDifference{diff}) })
}

func (r *Runner) ComparisonSummary(ctx context.Context, id string) error {
	env, err := r.App.API.Comparison.Summary(ctx, id)
	s, err := unwrap(env, err, "comparison", "summary", id)
	if err != nil {
		return err
	}
	return r.Out.Print(s, func() Table {
		return keyValueTable(
			"Comparison", s.ComparisonID,
			"Files", s.FileName1+" vs "+s.FileName2,
			"Differences", fmt.Sprint(s.TotalDifferences),
			"Modified rows", fmt.Sprint(s.ModifiedRows),
			"Added rows", fmt.Sprint(s.AddedRows),
			"Deleted rows", fmt.Sprint(s.DeletedRows),
			"Compared", When(s.ComparisonDate),
			"Compared by", s.ComparedBy,
		)
	})
}

func (r *Runner) ExportComparison(ctx context.Context, id string, format types.ExportFormat, out string) error {
	resp, err := r.App.API.Comparison.Export(ctx, id, format)
	if err != nil {
		return fail(err, id)
	}
	return r.save(resp, out, "comparison_"+id+format.Extension())
}

func (r *Runner) Templates(ctx context.Context) error {
	env, err := r.App.API.Comparison.Templates(ctx)
	templates, err := unwrap(env, err, "comparison", "templates", "")
	if err != nil {
		return err
	}
	return r.Out.Print(templates, func() Table { return templatesTable(templates) })
}

// SaveTemplate stores a settings preset built from the defaults and flags.
func (r *Runner) SaveTemplate(ctx context.Context, name, description string, settings types.ComparisonSettings) error {
	c := r.App.Comparison
	c.SetSettings(settings)
	if err := c.SaveTemplate(ctx, name, description); err != nil {
		return controllerFailure(c.ErrorMessage(), err)
	}
	r.Out.Message("%s", c.SuccessMessage())
	return nil
}
