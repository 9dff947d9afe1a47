package cli

import (
	"fmt"
	"strconv"

	"github.com/studiowebux/sheetdesk/internal/journal"
	"github.com/studiowebux/sheetdesk/internal/types"
)

func filesTable(files []types.FileRecord) Table {
	t := Table{Header: []string{"File", "Size", "Records", "Uploaded by", "Uploaded"}}
	for _, f := range files {
		records := "-"
		if f.RecordCount != nil {
			records = strconv.Itoa(*f.RecordCount)
		}
		t.Rows = append(t.Rows, []string{f.FileName, Size(f.Size), records, f.UploadedBy, When(f.UploadDate)})
	}
	t.Footer = fmt.Sprintf("%d file(s)", len(files))
	return t
}

func sheetsTable(sheets []types.SheetRef) Table {
	t := Table{Header: []string{"Sheet", "Rows"}}
	for _, s := range sheets {
		t.Rows = append(t.Rows, []string{s.Name, strconv.Itoa(s.RowCount)})
	}
	return t
}

// rowsTable shows the id, then each column in the order the backend sent.
func rowsTable(rows []types.DataRow) Table {
	cols := types.Columns(rows)
	t := Table{Header: append([]string{"ID", "Row"}, cols...)}
	t.Header = append(t.Header, "Ver", "Modified by")
	for _, row := range rows {
		line := []string{strconv.FormatInt(row.ID, 10), strconv.Itoa(row.RowIndex)}
		for _, col := range cols {
			v, _ := row.Data.Get(col)
			line = append(line, types.FormatScalar(v))
		}
		line = append(line, strconv.Itoa(row.Version), row.ModifiedBy)
		t.Rows = append(t.Rows, line)
	}
	return t
}

func changesTable(changes []types.ChangeRecord) Table {
	t := Table{Header: []string{"ID", "When", "Type", "File", "Sheet", "Row", "Column", "Old", "New", "By"}}
	for _, c := range changes {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.When().String(),
			c.Kind(),
			c.FileName,
			c.SheetName,
			strconv.Itoa(c.RowIndex),
			c.ColumnName,
			types.FormatScalar(c.OldValue),
			types.FormatScalar(c.NewValue),
			c.Actor(),
		})
	}
	return t
}

func pageFooter(p types.Page[types.ChangeRecord]) string {
	if p.TotalPages == 0 {
		return fmt.Sprintf("%d change(s)", len(p.Data))
	}
	return fmt.Sprintf("page %d of %d, %d change(s) total", p.Page, p.TotalPages, p.TotalCount)
}

func historyStatsTable(s types.HistoryStats) Table {
	t := Table{Header: []string{"Metric", "Value"}}
	t.Rows = append(t.Rows, []string{"Total changes", strconv.Itoa(s.TotalChanges)})
	for _, op := range []string{string(types.ChangeInsert), string(types.ChangeUpdate), string(types.ChangeDelete)} {
		if n, ok := s.OperationCounts[op]; ok {
			t.Rows = append(t.Rows, []string{op, strconv.Itoa(n)})
		}
	}
	for _, u := range s.TopUsers {
		name := u.UserName
		if name == "" {
			name = u.UserID
		}
		t.Rows = append(t.Rows, []string{"User " + name, strconv.Itoa(u.ChangeCount)})
	}
	for _, f := range s.TopFiles {
		t.Rows = append(t.Rows, []string{"File " + f.FileName, strconv.Itoa(f.ChangeCount)})
	}
	for _, d := range s.DailyActivity {
		t.Rows = append(t.Rows, []string{"Day " + d.Date, strconv.Itoa(d.Count)})
	}
	return t
}

func comparisonTable(r types.ComparisonResult) Table {
	t := Table{Header: []string{"Type", "Row", "Column", "Old", "New"}}
	for _, d := range r.Differences {
		t.Rows = append(t.Rows, []string{
			string(d.Type),
			strconv.Itoa(d.RowIndex),
			d.ColumnName,
			types.FormatScalar(d.OldValue),
			types.FormatScalar(d.NewValue),
		})
	}
	s := r.Summary
	t.Footer = fmt.Sprintf("%s vs %s (%s): %d rows, %d modified, %d added, %d deleted, %d unchanged",
		r.File1Name, r.File2Name, r.ComparisonID, s.TotalRows, s.ModifiedRows, s.AddedRows, s.DeletedRows, s.UnchangedRows)
	if !s.Consistent() {
		t.Footer += "\nwarning: summary counts do not add up to the total row count"
	}
	return t
}

func cellDifferencesTable(diffs []types.CellDifference) Table {
	t := Table{Header: []string{"Type", "Row", "Column", "Old", "New", "Confidence"}}
	for _, d := range diffs {
		t.Rows = append(t.Rows, []string{
			string(d.Type),
			strconv.Itoa(d.RowIndex),
			d.ColumnName,
			types.FormatScalar(d.OldValue),
			types.FormatScalar(d.NewValue),
			strconv.FormatFloat(d.Confidence, 'f', 2, 64),
		})
	}
	return t
}

func comparisonFilesTable(files []types.ComparisonFile) Table {
	t := Table{Header: []string{"File", "Version", "Uploaded by", "Uploaded"}}
	for _, f := range files {
		t.Rows = append(t.Rows, []string{f.FileName, strconv.Itoa(f.Version), f.UploadedBy, When(f.UploadDate)})
	}
	return t
}

func versionsTable(versions []types.ComparisonVersion) Table {
	t := Table{Header: []string{"ID", "Version", "Size", "Uploaded by", "Uploaded"}}
	for _, v := range versions {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(v.ID, 10), strconv.Itoa(v.Version), Size(v.Size), v.UploadedBy, When(v.UploadDate),
		})
	}
	return t
}

func templatesTable(templates []types.ComparisonTemplate) Table {
	t := Table{Header: []string{"#", "Name", "Description", "Ignore case", "Ignore whitespace"}}
	for i, tpl := range templates {
		s := tpl.Effective()
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1), tpl.Name, tpl.Description, strconv.FormatBool(s.IgnoreCase), strconv.FormatBool(s.IgnoreWhitespace),
		})
	}
	return t
}

func journalTable(entries []journal.Entry) Table {
	t := Table{Header: []string{"When", "Profile", "Method", "URL", "Status", "Duration", "Error"}}
	for _, e := range entries {
		status := "-"
		if e.Status != 0 {
			status = strconv.Itoa(e.Status)
		}
		t.Rows = append(t.Rows, []string{
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Profile, e.Method, e.URL, status, Duration(e.Duration), e.Error,
		})
	}
	return t
}

func keyValueTable(pairs ...string) Table {
	t := Table{Header: []string{"Field", "Value"}}
	for i := 0; i+1 < len(pairs); i += 2 {
		t.Rows = append(t.Rows, []string{pairs[i], pairs[i+1]})
	}
	return t
}
