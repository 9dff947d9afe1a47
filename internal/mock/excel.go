package mock

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/studiowebux/sheetdesk/internal/types"
)

const maxUploadMemory = 32 << 20

var uploadExtensions = []string{".xlsx", ".xls"}

func (b *Backend) handleTest(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]any{"service": "sheetdesk mock backend", "status": "ok"}, "Mock backend is running")
}

func (b *Backend) handleListFiles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	files := make([]types.FileRecord, 0, len(b.order))
	for _, name := range b.order {
		wb := b.files[name]
		rec := wb.record
		if wb.processed {
			count := b.fileCount(name)
			rec.RecordCount = &count
		}
		files = append(files, rec)
	}
	writeData(w, files, "")
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !slices.Contains(uploadExtensions, strings.ToLower(filepath.Ext(name))) {
		writeFailure(w, http.StatusBadRequest, "Only Excel files (.xlsx, .xls) are allowed")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "Could not read upload: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.files[name]
	if !ok {
		wb = &workbook{}
	}
	wb.record = types.FileRecord{
		FileName:   name,
		UploadDate: b.stamp(),
		UploadedBy: r.FormValue("uploadedBy"),
		Size:       int64(len(content)),
	}
	wb.content = content
	wb.seed = nil
	wb.processed = false
	b.addFile(wb)

	writeData(w, map[string]any{"fileName": name, "size": len(content)}, "File uploaded successfully")
}

func (b *Backend) lookup(w http.ResponseWriter, name string) (*workbook, bool) {
	wb, ok := b.files[name]
	if !ok {
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("File %q not found", name))
	}
	return wb, ok
}

func (b *Backend) handleRead(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	if !wb.processed {
		tables := wb.seed
		if wb.content != nil {
			parsed, err := readWorkbook(wb.content)
			if err != nil {
				writeFailure(w, http.StatusBadRequest, "Could not read workbook: "+err.Error())
				return
			}
			tables = parsed
		}
		b.importTables(wb, tables)
	}

	if sheet := r.URL.Query().Get("sheetName"); sheet != "" && !slices.Contains(wb.sheets, sheet) {
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("Sheet %q not found", sheet))
		return
	}
	writeData(w, map[string]any{
		"fileName": wb.record.FileName,
		"sheets":   len(wb.sheets),
		"rows":     b.fileCount(wb.record.FileName),
	}, "File processed successfully")
}

func (b *Backend) handleSheets(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	sheets := make([]types.SheetRef, 0, len(wb.sheets))
	if wb.processed {
		for _, name := range wb.sheets {
			sheets = append(sheets, types.SheetRef{Name: name, RowCount: len(b.sheetRows(wb, name))})
		}
	}
	writeData(w, sheets, "")
}

func (b *Backend) handleData(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	sheet := r.URL.Query().Get("sheetName")
	if sheet != "" && !slices.Contains(wb.sheets, sheet) {
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("Sheet %q not found", sheet))
		return
	}

	rows := b.sheetRows(wb, sheet)
	values := make([]types.DataRow, len(rows))
	for i, row := range rows {
		values[i] = *row
	}
	page := paginate(values, queryInt(r, "page", 1), queryInt(r, "pageSize", 50))
	writeData(w, page.Data, "")
}

// updateRow applies data to row and records one change per modified cell.
// It returns the number of cells that changed.
func (b *Backend) updateRow(row *types.DataRow, data types.RowData, user string) int {
	changed := 0
	for _, key := range data.Keys() {
		next, _ := data.Get(key)
		prev, had := row.Data.Get(key)
		if had && types.FormatScalar(prev) == types.FormatScalar(next) {
			continue
		}
		changed++
		row.Data.Set(key, next)
		dataID := row.ID
		b.recordChange(types.ChangeRecord{
			FileName:   row.FileName,
			SheetName:  row.SheetName,
			RowIndex:   row.RowIndex,
			ColumnName: key,
			OldValue:   prev,
			NewValue:   next,
			ChangeType: types.ChangeUpdate,
			ChangedBy:  user,
			Version:    row.Version + 1,
			DataID:     &dataID,
		})
	}
	if changed > 0 {
		row.Version++
		modified := b.stamp()
		row.ModifiedDate = &modified
		row.ModifiedBy = user
	}
	return changed
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var update types.DataUpdate
	if err := decodeBody(r, &update); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.rows[update.ID]
	if !ok {
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("Row %d not found", update.ID))
		return
	}
	changed := b.updateRow(row, update.Data, update.ModifiedBy)
	writeData(w, map[string]any{"id": row.ID, "changedCells": changed, "version": row.Version}, "Data updated successfully")
}

func (b *Backend) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var bulk types.BulkUpdate
	if err := decodeBody(r, &bulk); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	updated := 0
	missing := []int64{}
	for _, u := range bulk.Updates {
		row, ok := b.rows[u.ID]
		if !ok {
			missing = append(missing, u.ID)
			continue
		}
		user := u.ModifiedBy
		if user == "" {
			user = bulk.ModifiedBy
		}
		b.updateRow(row, u.Data, user)
		updated++
	}
	if updated == 0 && len(missing) > 0 {
		writeFailure(w, http.StatusNotFound, "None of the rows were found")
		return
	}
	writeData(w, map[string]any{"updated": updated, "missing": missing},
		fmt.Sprintf("%d rows updated", updated))
}

func (b *Backend) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var req types.AddRowRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, req.FileName)
	if !ok {
		return
	}
	if req.SheetName == "" {
		writeFailure(w, http.StatusBadRequest, "sheetName is required")
		return
	}
	if !slices.Contains(wb.sheets, req.SheetName) {
		wb.sheets = append(wb.sheets, req.SheetName)
	}

	index := 0
	for _, row := range b.sheetRows(wb, req.SheetName) {
		index = max(index, row.RowIndex)
	}
	b.nextRow++
	row := &types.DataRow{
		ID:          b.nextRow,
		FileName:    req.FileName,
		SheetName:   req.SheetName,
		RowIndex:    index + 1,
		Data:        req.RowData.Clone(),
		CreatedDate: b.stamp(),
		Version:     1,
		ModifiedBy:  req.AddedBy,
	}
	b.rows[row.ID] = row

	dataID := row.ID
	b.recordChange(types.ChangeRecord{
		FileName:   row.FileName,
		SheetName:  row.SheetName,
		RowIndex:   row.RowIndex,
		NewValue:   row.Data.Clone(),
		ChangeType: types.ChangeInsert,
		ChangedBy:  req.AddedBy,
		Version:    1,
		DataID:     &dataID,
	})
	writeData(w, row, "Row added successfully")
}

// deleteRow removes a row and records the deletion with its last data.
func (b *Backend) deleteRow(row *types.DataRow, user string) {
	delete(b.rows, row.ID)
	dataID := row.ID
	b.recordChange(types.ChangeRecord{
		FileName:   row.FileName,
		SheetName:  row.SheetName,
		RowIndex:   row.RowIndex,
		OldValue:   row.Data.Clone(),
		ChangeType: types.ChangeDelete,
		ChangedBy:  user,
		Version:    row.Version,
		DataID:     &dataID,
	})
}

func (b *Backend) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid row id")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.rows[id]
	if !ok {
		writeFailure(w, http.StatusNotFound, fmt.Sprintf("Row %d not found", id))
		return
	}
	b.deleteRow(row, r.URL.Query().Get("deletedBy"))
	writeData(w, nil, "Row deleted successfully")
}

func (b *Backend) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	b.removeFile(wb.record.FileName)
	writeData(w, nil, "File deleted successfully")
}

func (b *Backend) handleExport(w http.ResponseWriter, r *http.Request) {
	var req types.ExportRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, req.FileName)
	if !ok {
		return
	}
	tables := b.currentTables(wb, req.SheetName)
	if len(req.RowIDs) > 0 {
		tables = b.selectRows(wb, req.SheetName, req.RowIDs)
	}
	if req.IncludeModificationHistory {
		tables = append(tables, changesTable("History", b.filterChanges(changeQuery{fileName: req.FileName})))
	}

	content, err := writeWorkbook(tables)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, err.Error())
		return
	}
	base := strings.TrimSuffix(req.FileName, filepath.Ext(req.FileName))
	writeAttachment(w, xlsxContentType, base+"_export.xlsx", content)
}

// selectRows renders only the listed rows, one table per sheet.
func (b *Backend) selectRows(wb *workbook, sheet string, ids []int64) []table {
	var tables []table
	for _, t := range b.currentTables(wb, sheet) {
		rows := b.sheetRows(wb, t.Name)
		filtered := table{Name: t.Name, Columns: t.Columns}
		for i, row := range rows {
			if slices.Contains(ids, row.ID) {
				filtered.Rows = append(filtered.Rows, t.Rows[i])
			}
		}
		tables = append(tables, filtered)
	}
	return tables
}

func (b *Backend) handleStatistics(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	rows := b.sheetRows(wb, r.URL.Query().Get("sheetName"))

	stats := types.DataStatistics{TotalRows: len(rows)}
	values := make([]types.DataRow, len(rows))
	for i, row := range rows {
		values[i] = *row
		when := row.CreatedDate
		if row.ModifiedDate != nil {
			when = *row.ModifiedDate
			if when.Time.After(stats.LastModified.Time) {
				stats.ModifiedBy = row.ModifiedBy
			}
		}
		if when.Time.After(stats.LastModified.Time) {
			stats.LastModified = when
		}
		stats.Version = max(stats.Version, row.Version)
	}
	stats.TotalColumns = len(types.Columns(values))
	writeData(w, stats, "")
}

func (b *Backend) handleDownload(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, ok := b.lookup(w, r.PathValue("file"))
	if !ok {
		return
	}
	content := wb.content
	if content == nil {
		var err error
		if content, err = writeWorkbook(b.currentTables(wb, "")); err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeAttachment(w, xlsxContentType, wb.record.FileName, content)
}
