package mock

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// sheetDiff is a difference tagged with the sheet it was found in.
type sheetDiff struct {
	sheet string
	types.Difference
}

// diffTables compares two workbooks row by row, matching rows by position
// within each sheet.
func diffTables(before, after []table, sheet string, settings types.ComparisonSettings) ([]sheetDiff, types.ComparisonSummary) {
	var names []string
	for _, t := range slices.Concat(before, after) {
		if !slices.Contains(names, t.Name) && (sheet == "" || t.Name == sheet) {
			names = append(names, t.Name)
		}
	}

	var (
		diffs   []sheetDiff
		summary types.ComparisonSummary
	)
	for _, name := range names {
		old, _ := findTable(before, name)
		cur, _ := findTable(after, name)
		n := max(len(old.Rows), len(cur.Rows))
		summary.TotalRows += n

		for i := range n {
			switch {
			case i >= len(old.Rows):
				summary.AddedRows++
				diffs = append(diffs, sheetDiff{name, types.Difference{
					RowIndex: i + 1, Type: types.DifferenceAdded, NewValue: rowObject(cur, i),
				}})
			case i >= len(cur.Rows):
				summary.DeletedRows++
				diffs = append(diffs, sheetDiff{name, types.Difference{
					RowIndex: i + 1, Type: types.DifferenceDeleted, OldValue: rowObject(old, i),
				}})
			default:
				modified := false
				for _, col := range unionColumns(old.Columns, cur.Columns) {
					ov, nv := cell(old, i, col), cell(cur, i, col)
					if equalCells(ov, nv, settings) {
						continue
					}
					modified = true
					diffs = append(diffs, sheetDiff{name, types.Difference{
						RowIndex: i + 1, ColumnName: col, OldValue: ov, NewValue: nv, Type: types.DifferenceModified,
					}})
				}
				if modified {
					summary.ModifiedRows++
				} else {
					summary.UnchangedRows++
				}
			}
		}
	}
	return diffs, summary
}

func findTable(tables []table, name string) (table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return table{Name: name}, false
}

func unionColumns(a, b []string) []string {
	out := slices.Clone(a)
	for _, c := range b {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func cell(t table, row int, column string) any {
	i := slices.Index(t.Columns, column)
	if i < 0 || i >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][i]
}

func rowObject(t table, row int) types.RowData {
	data := types.NewRowData()
	for _, col := range t.Columns {
		data.Set(col, cell(t, row, col))
	}
	return data
}

func equalCells(a, b any, settings types.ComparisonSettings) bool {
	x, y := types.FormatScalar(a), types.FormatScalar(b)
	if settings.IgnoreWhitespace {
		x, y = strings.Join(strings.Fields(x), " "), strings.Join(strings.Fields(y), " ")
	}
	if settings.IgnoreCase {
		return strings.EqualFold(x, y)
	}
	return x == y
}

func (b *Backend) storeComparison(file1, file2 string, diffs []sheetDiff, summary types.ComparisonSummary) types.ComparisonResult {
	result := types.ComparisonResult{
		ComparisonID:   uuid.NewString(),
		File1Name:      file1,
		File2Name:      file2,
		ComparisonDate: b.stamp(),
		Differences:    make([]types.Difference, 0, len(diffs)),
		Summary:        summary,
	}
	for _, d := range diffs {
		result.Differences = append(result.Differences, d.Difference)
	}
	b.comparisons[result.ComparisonID] = result
	return result
}

func (b *Backend) handleComparisonFiles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	files := make([]types.ComparisonFile, 0, len(b.order))
	for _, name := range b.order {
		wb := b.files[name]
		files = append(files, types.ComparisonFile{
			FileName:   name,
			UploadDate: wb.record.UploadDate,
			UploadedBy: wb.record.UploadedBy,
			Version:    len(wb.versions),
		})
	}
	writeData(w, files, "")
}

func (b *Backend) handleVersions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	versions := make([]types.ComparisonVersion, 0, len(wb.versions))
	for _, v := range slices.Backward(wb.versions) {
		versions = append(versions, types.ComparisonVersion{
			ID:         v.id,
			FileName:   wb.record.FileName,
			Version:    v.number,
			UploadDate: types.Timestamp{Time: v.uploadDate},
			UploadedBy: v.uploadedBy,
			Size:       v.size,
		})
	}
	writeData(w, versions, "")
}

func (b *Backend) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req types.CompareRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.FileName1 == "" || req.FileName2 == "" {
		writeFailure(w, http.StatusBadRequest, "fileName1 and fileName2 are required")
		return
	}
	settings := types.DefaultComparisonSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wb1, ok := b.lookup(w, req.FileName1)
	if !ok {
		return
	}
	wb2, ok := b.lookup(w, req.FileName2)
	if !ok {
		return
	}
	for _, wb := range []*workbook{wb1, wb2} {
		if !wb.processed {
			writeFailure(w, http.StatusBadRequest, fmt.Sprintf("File %q has not been processed", wb.record.FileName))
			return
		}
	}

	diffs, summary := diffTables(b.currentTables(wb1, ""), b.currentTables(wb2, ""), req.SheetName, settings)
	result := b.storeComparison(req.FileName1, req.FileName2, diffs, summary)
	writeData(w, result, "Comparison completed")
}

func (b *Backend) findVersion(w http.ResponseWriter, wb *workbook, id int64) (*version, bool) {
	for _, v := range wb.versions {
		if v.id == id {
			return v, true
		}
	}
	writeFailure(w, http.StatusNotFound, fmt.Sprintf("Version %d of %q not found", id, wb.record.FileName))
	return nil, false
}

// versionPair resolves the file and both version ids of a request.
func (b *Backend) versionPair(w http.ResponseWriter, file string, v1, v2 int64) (*workbook, *version, *version, bool) {
	wb, ok := b.lookup(w, file)
	if !ok {
		return nil, nil, nil, false
	}
	old, ok := b.findVersion(w, wb, v1)
	if !ok {
		return nil, nil, nil, false
	}
	cur, ok := b.findVersion(w, wb, v2)
	if !ok {
		return nil, nil, nil, false
	}
	return wb, old, cur, true
}

func (b *Backend) handleCompareVersions(w http.ResponseWriter, r *http.Request) {
	var req types.CompareVersionsRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	settings := types.DefaultComparisonSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wb, old, cur, ok := b.versionPair(w, r.PathValue("file"), req.OldVersionID, req.NewVersionID)
	if !ok {
		return
	}
	diffs, summary := diffTables(old.tables, cur.tables, "", settings)
	result := b.storeComparison(versionLabel(wb, old), versionLabel(wb, cur), diffs, summary)
	writeData(w, result, "Comparison completed")
}

func versionLabel(wb *workbook, v *version) string {
	return fmt.Sprintf("%s (v%d)", wb.record.FileName, v.number)
}

func (b *Backend) versionDiffs(w http.ResponseWriter, r *http.Request) (*workbook, *version, *version, []sheetDiff, bool) {
	v1, ok1 := pathID(r, "v1")
	v2, ok2 := pathID(r, "v2")
	if !ok1 || !ok2 {
		writeFailure(w, http.StatusBadRequest, "Invalid version id")
		return nil, nil, nil, nil, false
	}
	wb, old, cur, ok := b.versionPair(w, r.PathValue("file"), v1, v2)
	if !ok {
		return nil, nil, nil, nil, false
	}
	diffs, _ := diffTables(old.tables, cur.tables, r.URL.Query().Get("sheetName"), types.DefaultComparisonSettings())
	return wb, old, cur, diffs, true
}

func (b *Backend) handleDifferences(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, old, cur, diffs, ok := b.versionDiffs(w, r)
	if !ok {
		return
	}
	start := queryInt(r, "startRow", 1)
	end := queryInt(r, "endRow", int(^uint(0)>>1))

	out := []types.CellDifference{}
	for _, d := range diffs {
		if d.RowIndex < start || d.RowIndex > end {
			continue
		}
		out = append(out, types.CellDifference{
			Difference: d.Difference,
			FileName1:  versionLabel(wb, old),
			FileName2:  versionLabel(wb, cur),
			Confidence: 1,
		})
	}
	writeData(w, out, "")
}

func (b *Backend) handleCellDifferences(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, old, cur, diffs, ok := b.versionDiffs(w, r)
	if !ok {
		return
	}
	row, _ := strconv.Atoi(r.URL.Query().Get("row"))
	column := r.URL.Query().Get("column")
	for _, d := range diffs {
		if d.RowIndex == row && (d.ColumnName == column || d.ColumnName == "") {
			writeData(w, types.CellDifference{
				Difference: d.Difference,
				FileName1:  versionLabel(wb, old),
				FileName2:  versionLabel(wb, cur),
				Confidence: 1,
			}, "")
			return
		}
	}
	writeFailure(w, http.StatusNotFound, fmt.Sprintf("No difference at row %d column %q", row, column))
}

func (b *Backend) comparison(w http.ResponseWriter, r *http.Request) (types.ComparisonResult, bool) {
	result, ok := b.comparisons[r.PathValue("id")]
	if !ok {
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("Comparison %q not found", r.PathValue("id")))
	}
	return result, ok
}

func (b *Backend) handleSummary(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, ok := b.comparison(w, r)
	if !ok {
		return
	}
	writeData(w, types.FileComparisonSummary{
		ComparisonID:     result.ComparisonID,
		FileName1:        result.File1Name,
		FileName2:        result.File2Name,
		TotalDifferences: len(result.Differences),
		AddedRows:        result.Summary.AddedRows,
		DeletedRows:      result.Summary.DeletedRows,
		ModifiedRows:     result.Summary.ModifiedRows,
		ComparisonDate:   result.ComparisonDate,
	}, "")
}

func (b *Backend) handleComparisonExport(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, ok := b.comparison(w, r)
	if !ok {
		return
	}

	diffTable := table{Name: "Differences", Columns: []string{"Row", "Column", "Type", "Old Value", "New Value"}}
	for _, d := range result.Differences {
		diffTable.Rows = append(diffTable.Rows, []any{
			d.RowIndex, d.ColumnName, string(d.Type), types.FormatScalar(d.OldValue), types.FormatScalar(d.NewValue),
		})
	}

	name := "comparison_" + result.ComparisonID
	format := types.ExportFormat(r.URL.Query().Get("format"))
	switch format {
	case types.ExportJSON:
		body, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, jsonContentType, name+format.Extension(), body)
	case types.ExportCSV:
		body, err := csvBytes(diffTable)
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, csvContentType, name+format.Extension(), body)
	default:
		s := result.Summary
		summary := table{
			Name:    "Summary",
			Columns: []string{"Total", "Modified", "Added", "Deleted", "Unchanged"},
			Rows:    [][]any{{s.TotalRows, s.ModifiedRows, s.AddedRows, s.DeletedRows, s.UnchangedRows}},
		}
		body, err := writeWorkbook([]table{summary, diffTable})
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, xlsxContentType, name+types.ExportExcel.Extension(), body)
	}
}

func csvBytes(t table) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(t.Columns); err != nil {
		return nil, err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = types.FormatScalar(v)
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

func (b *Backend) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req types.SaveTemplateRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeFailure(w, http.StatusBadRequest, "Template name is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.templates = slices.DeleteFunc(b.templates, func(t types.SaveTemplateRequest) bool { return t.Name == req.Name })
	b.templates = append(b.templates, req)
	writeData(w, req, "Template saved")
}

func (b *Backend) handleTemplates(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, append([]types.SaveTemplateRequest{}, b.templates...), "")
}
