package mock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// table is one worksheet flattened to a header and positional rows.
type table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// maxSheetName is the worksheet name limit imposed by the xlsx format.
const maxSheetName = 31

// readWorkbook parses an uploaded workbook. The first row of every sheet
// is its header.
func readWorkbook(content []byte) ([]table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var tables []table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		t := table{Name: name}
		if len(rows) == 0 {
			tables = append(tables, t)
			continue
		}

		for i, header := range rows[0] {
			header = strings.TrimSpace(header)
			if header == "" {
				header = "Column " + strconv.Itoa(i+1)
			}
			t.Columns = append(t.Columns, header)
		}
		for _, raw := range rows[1:] {
			if blankRow(raw) {
				continue
			}
			values := make([]any, len(t.Columns))
			for i := range t.Columns {
				if i < len(raw) {
					values[i] = cellValue(raw[i])
				}
			}
			t.Rows = append(t.Rows, values)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// cellValue keeps numeric cells numeric on the wire.
func cellValue(s string) any {
	if s == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return json.Number(s)
	}
	return s
}

// writeWorkbook renders tables as an xlsx file.
func writeWorkbook(tables []table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	for i, t := range tables {
		name := sheetName(t.Name, i)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return nil, fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
		}

		header := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			header[j] = c
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, err
		}
		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			values := make([]any, len(row))
			for j, v := range row {
				values[j] = cellOut(v)
			}
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func sheetName(name string, index int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Sheet" + strconv.Itoa(index+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func cellOut(v any) any {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case nil, string, bool, int, int64, float64:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
