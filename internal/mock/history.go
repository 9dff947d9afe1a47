package mock

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/studiowebux/sheetdesk/internal/types"
)

// changeQuery holds the history filters a request may carry.
type changeQuery struct {
	fileName  string
	operation string
	userID    string
	sheetName string
	term      string
	start     *time.Time
	end       *time.Time
	dataID    *int64
}

func changeQueryFrom(r *http.Request) changeQuery {
	q := r.URL.Query()
	cq := changeQuery{
		fileName:  q.Get("fileName"),
		operation: q.Get("operation"),
		userID:    q.Get("userId"),
		sheetName: q.Get("sheetName"),
	}
	if ts := types.ParseTimestamp(q.Get("startDate")); !ts.Time.IsZero() {
		cq.start = &ts.Time
	}
	if ts := types.ParseTimestamp(q.Get("endDate")); !ts.Time.IsZero() {
		cq.end = &ts.Time
	}
	return cq
}

func (q changeQuery) match(c types.ChangeRecord) bool {
	switch {
	case q.fileName != "" && c.FileName != q.fileName:
		return false
	case q.operation != "" && !strings.EqualFold(c.Kind(), q.operation):
		return false
	case q.userID != "" && c.Actor() != q.userID:
		return false
	case q.sheetName != "" && c.SheetName != q.sheetName:
		return false
	case q.dataID != nil && (c.DataID == nil || *c.DataID != *q.dataID):
		return false
	case q.start != nil && c.When().Time.Before(*q.start):
		return false
	case q.end != nil && c.When().Time.After(*q.end):
		return false
	}
	if q.term == "" {
		return true
	}
	term := strings.ToLower(q.term)
	for _, field := range []string{
		c.FileName, c.SheetName, c.ColumnName, c.Actor(), c.Kind(),
		types.FormatScalar(c.OldValue), types.FormatScalar(c.NewValue),
	} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// filterChanges returns the matching changes, newest first.
func (b *Backend) filterChanges(q changeQuery) []types.ChangeRecord {
	out := []types.ChangeRecord{}
	for _, c := range slices.Backward(b.changes) {
		if q.match(c) {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) writeChanges(w http.ResponseWriter, r *http.Request, q changeQuery) {
	b.mu.Lock()
	defer b.mu.Unlock()
	page := paginate(b.filterChanges(q), queryInt(r, "page", 1), queryInt(r, "pageSize", 50))
	writeData(w, page, "")
}

func (b *Backend) handleChanges(w http.ResponseWriter, r *http.Request) {
	b.writeChanges(w, r, changeQueryFrom(r))
}

func (b *Backend) handleFileHistory(w http.ResponseWriter, r *http.Request) {
	b.writeChanges(w, r, changeQuery{fileName: r.PathValue("file")})
}

func (b *Backend) handleDataHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid data id")
		return
	}
	b.writeChanges(w, r, changeQuery{dataID: &id})
}

func (b *Backend) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeFailure(w, http.StatusBadRequest, "Search term is required")
		return
	}
	b.writeChanges(w, r, changeQuery{term: term})
}

func historyStats(changes []types.ChangeRecord) types.HistoryStats {
	stats := types.HistoryStats{
		TotalChanges:    len(changes),
		OperationCounts: make(map[string]int),
		UserCounts:      make(map[string]int),
		FileCounts:      make(map[string]int),
	}
	daily := make(map[string]int)
	for _, c := range changes {
		stats.OperationCounts[c.Kind()]++
		stats.UserCounts[c.Actor()]++
		stats.FileCounts[c.FileName]++
		daily[c.When().Time.UTC().Format("2006-01-02")]++
	}

	for _, day := range slices.Sorted(maps.Keys(daily)) {
		stats.DailyActivity = append(stats.DailyActivity, types.DailyCount{Date: day, Count: daily[day]})
	}
	for user, n := range stats.UserCounts {
		stats.TopUsers = append(stats.TopUsers, types.UserCount{UserID: user, UserName: user, ChangeCount: n})
	}
	slices.SortFunc(stats.TopUsers, func(a, b types.UserCount) int {
		return cmp.Or(b.ChangeCount-a.ChangeCount, strings.Compare(a.UserID, b.UserID))
	})
	for file, n := range stats.FileCounts {
		stats.TopFiles = append(stats.TopFiles, types.FileCount{FileName: file, ChangeCount: n})
	}
	slices.SortFunc(stats.TopFiles, func(a, b types.FileCount) int {
		return cmp.Or(b.ChangeCount-a.ChangeCount, strings.Compare(a.FileName, b.FileName))
	})
	return stats
}

func (b *Backend) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, historyStats(b.filterChanges(changeQueryFrom(r))), "")
}

func (b *Backend) handleUserActivity(w http.ResponseWriter, r *http.Request) {
	q := changeQueryFrom(r)
	if q.userID == "" {
		writeFailure(w, http.StatusBadRequest, "userId is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	writeData(w, historyStats(b.filterChanges(q)), "")
}

func (b *Backend) findChange(w http.ResponseWriter, r *http.Request) (types.ChangeRecord, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeFailure(w, http.StatusBadRequest, "Invalid change id")
		return types.ChangeRecord{}, false
	}
	for _, c := range b.changes {
		if c.ID == id {
			return c, true
		}
	}
	writeFailure(w, http.StatusNotFound, fmt.Sprintf("Change %d not found", id))
	return types.ChangeRecord{}, false
}

func (b *Backend) handleChange(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.findChange(w, r); ok {
		writeData(w, c, "")
	}
}

// handleRevert undoes a change by applying its inverse, which is itself
// recorded as a new change.
func (b *Backend) handleRevert(w http.ResponseWriter, r *http.Request) {
	var req types.RevertRequest
	if err := decodeBody(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	change, ok := b.findChange(w, r)
	if !ok {
		return
	}
	if change.DataID == nil {
		writeFailure(w, http.StatusBadRequest, "Change cannot be reverted")
		return
	}
	row := b.rows[*change.DataID]

	switch types.ChangeType(change.Kind()) {
	case types.ChangeUpdate:
		if row == nil {
			writeFailure(w, http.StatusNotFound, fmt.Sprintf("Row %d no longer exists", *change.DataID))
			return
		}
		b.updateRow(row, types.NewRowData(change.ColumnName, change.OldValue), req.RevertedBy)
	case types.ChangeInsert:
		if row == nil {
			writeFailure(w, http.StatusNotFound, fmt.Sprintf("Row %d no longer exists", *change.DataID))
			return
		}
		b.deleteRow(row, req.RevertedBy)
	case types.ChangeDelete:
		if row != nil {
			writeFailure(w, http.StatusBadRequest, fmt.Sprintf("Row %d already exists", *change.DataID))
			return
		}
		data, ok := change.OldValue.(types.RowData)
		if !ok {
			writeFailure(w, http.StatusBadRequest, "Deleted row data is not available")
			return
		}
		restored := &types.DataRow{
			ID:          *change.DataID,
			FileName:    change.FileName,
			SheetName:   change.SheetName,
			RowIndex:    change.RowIndex,
			Data:        data.Clone(),
			CreatedDate: b.stamp(),
			Version:     change.Version + 1,
			ModifiedBy:  req.RevertedBy,
		}
		b.rows[restored.ID] = restored
		dataID := restored.ID
		b.recordChange(types.ChangeRecord{
			FileName:   restored.FileName,
			SheetName:  restored.SheetName,
			RowIndex:   restored.RowIndex,
			NewValue:   data.Clone(),
			ChangeType: types.ChangeInsert,
			ChangedBy:  req.RevertedBy,
			Version:    restored.Version,
			DataID:     &dataID,
		})
	default:
		writeFailure(w, http.StatusBadRequest, "Change cannot be reverted")
		return
	}

	writeData(w, nil, fmt.Sprintf("Change %d reverted", change.ID))
}

func changesTable(name string, changes []types.ChangeRecord) table {
	t := table{
		Name:    name,
		Columns: []string{"ID", "Date", "File", "Sheet", "Row", "Column", "Type", "Old Value", "New Value", "Changed By"},
	}
	for _, c := range changes {
		t.Rows = append(t.Rows, []any{
			c.ID, c.When().Time.UTC().Format(time.RFC3339), c.FileName, c.SheetName, c.RowIndex, c.ColumnName,
			c.Kind(), types.FormatScalar(c.OldValue), types.FormatScalar(c.NewValue), c.Actor(),
		})
	}
	return t
}

func (b *Backend) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	changes := b.filterChanges(changeQueryFrom(r))
	format := types.ExportFormat(r.URL.Query().Get("format"))
	name := "history" + format.Extension()

	switch format {
	case types.ExportJSON:
		body, err := json.MarshalIndent(changes, "", "  ")
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, jsonContentType, name, body)
	case types.ExportCSV:
		body, err := csvBytes(changesTable("History", changes))
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, csvContentType, name, body)
	default:
		body, err := writeWorkbook([]table{changesTable("History", changes)})
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAttachment(w, xlsxContentType, name, body)
	}
}
