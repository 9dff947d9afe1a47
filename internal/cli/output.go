package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/studiowebux/sheetdesk/internal/filter"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
	FormatText  = "text"
)

// maxCellWidth bounds table cells; longer values are truncated.
const maxCellWidth = 40

// Table is the tabular rendering of a result.
type Table struct {
	Header []string
	Rows   [][]string
	// Footer is printed under the table in table and text formats.
	Footer string
}

// Printer writes command results in the selected format.
type Printer struct {
	Out    io.Writer
	Format string
	Query  string
	// Color enables JSON highlighting. Set by NewPrinter when Out is a terminal.
	Color bool
}

// NewPrinter targets stdout, highlighting JSON when stdout is a terminal.
// An empty format resolves to table on a terminal and json otherwise.
func NewPrinter(format, query string) *Printer {
	tty := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if format == "" {
		format = FormatJSON
		if tty {
			format = FormatTable
		}
	}
	return &Printer{Out: os.Stdout, Format: format, Query: query, Color: tty}
}

// Print renders v. tab builds the table view and may be nil, in which case
// table and text formats fall back to a generic rendering of v.
func (p *Printer) Print(v any, tab func() Table) error {
	if p.Query != "" {
		result, err := filter.Apply(v, p.Query)
		if err != nil {
			return err
		}
		v, tab = result, nil
	}

	switch p.Format {
	case FormatJSON:
		return p.printJSON(v)
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = p.Out.Write(data)
		return err
	case FormatTable, FormatText:
		t, ok := genericTable(v)
		if tab != nil {
			t, ok = tab(), true
		}
		if !ok {
			return p.printScalar(v)
		}
		p.printTable(t)
		return nil
	default:
		return fmt.Errorf("invalid output format %q (want json, yaml, table or text)", p.Format)
	}
}

// Message prints a line of human text. It is suppressed for json and yaml
// output so scripts only ever see the document.
func (p *Printer) Message(format string, args ...any) {
	if p.Format == FormatJSON || p.Format == FormatYAML {
		return
	}
	fmt.Fprintf(p.Out, format+"\n", args...)
}

func (p *Printer) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal json: %w", err)
	}
	if p.Color {
		var buf bytes.Buffer
		if err := quick.Highlight(&buf, string(data), "json", "terminal256", "monokai"); err == nil {
			fmt.Fprintln(p.Out, buf.String())
			return nil
		}
	}
	_, err = fmt.Fprintln(p.Out, string(data))
	return err
}

func (p *Printer) printScalar(v any) error {
	switch val := v.(type) {
	case nil:
		fmt.Fprintln(p.Out, "null")
	case string:
		fmt.Fprintln(p.Out, val)
	case float64, bool, json.Number:
		fmt.Fprintln(p.Out, types.FormatScalar(val))
	default:
		return p.printJSON(v)
	}
	return nil
}

func (p *Printer) printTable(t Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(p.Out)
	if p.Format == FormatText {
		tw.SetStyle(plainStyle())
	} else {
		tw.SetStyle(table.StyleLight)
	}

	if len(t.Header) > 0 {
		header := make(table.Row, len(t.Header))
		for i, h := range t.Header {
			header[i] = h
		}
		tw.AppendHeader(header)
	}
	for _, row := range t.Rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = Truncate(cell, maxCellWidth)
		}
		tw.AppendRow(r)
	}
	tw.Render()
	if t.Footer != "" {
		fmt.Fprintln(p.Out, t.Footer)
	}
}

func plainStyle() table.Style {
	style := table.StyleDefault
	style.Options = table.OptionsNoBordersAndSeparators
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "  "
	style.Format.Header = 0
	return style
}

// Truncate shortens s to width display cells, accounting for wide runes.
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// genericTable renders query results: a list of objects becomes one column
// per key, a single object becomes key/value rows.
func genericTable(v any) (Table, bool) {
	switch val := v.(type) {
	case []any:
		var keys []string
		for _, item := range val {
			obj, ok := item.(map[string]any)
			if !ok {
				rows := make([][]string, len(val))
				for i, it := range val {
					rows[i] = []string{cell(it)}
				}
				return Table{Rows: rows}, true
			}
			for k := range obj {
				if !slices.Contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
		slices.Sort(keys)
		t := Table{Header: keys}
		for _, item := range val {
			obj := item.(map[string]any)
			row := make([]string, len(keys))
			for i, k := range keys {
				row[i] = cell(obj[k])
			}
			t.Rows = append(t.Rows, row)
		}
		return t, true
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		t := Table{Header: []string{"Key", "Value"}}
		for _, k := range keys {
			t.Rows = append(t.Rows, []string{k, cell(val[k])})
		}
		return t, true
	}
	return Table{}, false
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		data, _ := json.Marshal(val)
		return string(data)
	default:
		return types.FormatScalar(val)
	}
}

// Size renders a byte count for humans.
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// When renders a timestamp with its relative age.
func When(ts types.Timestamp) string {
	if ts.Time.IsZero() {
		return ts.Raw
	}
	return fmt.Sprintf("%s (%s)", ts.Time.Local().Format("2006-01-02 15:04"), humanize.Time(ts.Time))
}

// Duration renders an elapsed time.
func Duration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Round(10 * time.Millisecond).String()
}
