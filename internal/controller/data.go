package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

var (
	ErrNoFile     = errors.New("no file selected")
	ErrNoEdit     = errors.New("no row is being edited")
	ErrUnknownRow = errors.New("row is not on the current page")
)

// EditBuffer holds the pending changes to one row.
type EditBuffer struct {
	RowID    int64
	Data     types.RowData
	Original types.RowData
}

// DataViewer pages through the rows of one sheet and edits them in place.
type DataViewer struct {
	state
	client   *api.Client
	user     string
	pageSize int

	seq      sequence
	sheetSeq sequence
	statsSeq sequence

	fileName      string
	sheets        []types.SheetRef
	sheet         string
	page          int
	rows          []types.DataRow
	hasNext       bool
	edit          *EditBuffer
	pendingDelete *int64
	stats         *types.DataStatistics
}

func NewDataViewer(client *api.Client, user string, pageSize int) *DataViewer {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &DataViewer{client: client, user: user, pageSize: pageSize, page: 1}
}

// SelectionChanged resets everything tied to the previous file before the
// sheets of the new one are fetched.
func (v *DataViewer) SelectionChanged(prev, next shell.Selection) shell.Fetch {
	if prev.FileName == next.FileName {
		return nil
	}

	v.mu.Lock()
	v.fileName = next.FileName
	v.sheets = nil
	v.sheet = ""
	v.page = 1
	v.rows = nil
	v.hasNext = false
	v.edit = nil
	v.pendingDelete = nil
	v.stats = nil
	v.seq.next()
	v.sheetSeq.next()
	v.statsSeq.next()
	v.resetLocked()
	v.mu.Unlock()

	if next.FileName == "" {
		return nil
	}
	return v.LoadSheets
}

// LoadSheets fetches the sheet list, selects the first sheet when none is
// selected and loads its first page.
func (v *DataViewer) LoadSheets(ctx context.Context) error {
	v.mu.Lock()
	file := v.fileName
	if file == "" {
		v.mu.Unlock()
		return ErrNoFile
	}
	token := v.sheetSeq.next()
	v.startLocked()
	v.mu.Unlock()

	env, err := v.client.Files.Sheets(ctx, file)

	v.mu.Lock()
	if !v.sheetSeq.current(token) {
		v.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		v.failLocked(apierr.Message(err, file))
		v.mu.Unlock()
		return err
	}
	if !env.Success {
		err := apierr.Application(env.Message, "Could not load sheets")
		v.failLocked(err.Error())
		v.mu.Unlock()
		return err
	}
	v.sheets = env.Data
	if v.sheet == "" && len(v.sheets) > 0 {
		v.sheet = v.sheets[0].Name
	}
	if len(v.sheets) == 0 {
		v.doneLocked("")
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	return v.Load(ctx)
}

// Load confirms the file is processed and fetches the current page. An
// empty page is a valid state.
func (v *DataViewer) Load(ctx context.Context) error {
	v.mu.Lock()
	file, sheet, page := v.fileName, v.sheet, v.page
	if file == "" {
		v.mu.Unlock()
		return ErrNoFile
	}
	token := v.seq.next()
	v.startLocked()
	v.mu.Unlock()

	read, err := v.client.Files.Read(ctx, file, sheet)
	if err == nil && !read.Success {
		err = apierr.Application(read.Message, "the file may not have been processed yet")
	}
	if err != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
		if !v.seq.current(token) {
			return ErrSuperseded
		}
		v.rows = nil
		v.hasNext = false
		v.failLocked("File could not be processed: " + apierr.Message(err, file))
		return err
	}

	env, err := v.client.Files.Data(ctx, api.DataQuery{
		FileName:  file,
		SheetName: sheet,
		Page:      page,
		PageSize:  v.pageSize,
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.seq.current(token) {
		return ErrSuperseded
	}
	if err != nil {
		v.rows = nil
		v.hasNext = false
		v.failLocked(apierr.Message(err, file))
		return err
	}
	if !env.Success {
		v.rows = nil
		v.hasNext = false
		err := apierr.Application(env.Message, "Could not load data")
		v.failLocked(err.Error())
		return err
	}
	v.rows = env.Data
	v.hasNext = len(v.rows) >= api.EffectivePageSize(sheet, v.pageSize)
	v.doneLocked("")
	return nil
}

// SelectSheet switches sheets, starting again from the first page.
func (v *DataViewer) SelectSheet(name string) shell.Fetch {
	v.mu.Lock()
	defer v.mu.Unlock()
	if name == v.sheet {
		return nil
	}
	v.sheet = name
	v.page = 1
	v.rows = nil
	v.edit = nil
	v.pendingDelete = nil
	v.stats = nil
	return v.Load
}

// NextPage advances the cursor unless the last page came back short.
func (v *DataViewer) NextPage() shell.Fetch {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.hasNext {
		return nil
	}
	v.page++
	v.edit = nil
	return v.Load
}

func (v *DataViewer) PrevPage() shell.Fetch {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page <= 1 {
		return nil
	}
	v.page--
	v.edit = nil
	return v.Load
}

// StartEdit opens an edit buffer for a row of the current page.
func (v *DataViewer) StartEdit(rowID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, row := range v.rows {
		if row.ID == rowID {
			v.edit = &EditBuffer{RowID: rowID, Data: row.Data.Clone(), Original: row.Data.Clone()}
			return nil
		}
	}
	return ErrUnknownRow
}

// SetEditValue stores input for column, keeping numeric cells numeric.
func (v *DataViewer) SetEditValue(column, input string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.edit == nil {
		return ErrNoEdit
	}
	original, _ := v.edit.Original.Get(column)
	v.edit.Data.Set(column, types.CoerceLike(original, input))
	return nil
}

// Edit returns a copy of the edit buffer.
func (v *DataViewer) Edit() (EditBuffer, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.edit == nil {
		return EditBuffer{}, false
	}
	return EditBuffer{RowID: v.edit.RowID, Data: v.edit.Data.Clone(), Original: v.edit.Original.Clone()}, true
}

// CancelEdit drops the buffer without sending anything.
func (v *DataViewer) CancelEdit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.edit = nil
}

// SaveEdit sends the buffer. On success the buffer is dropped and the page
// reloaded; on failure the buffer is kept.
func (v *DataViewer) SaveEdit(ctx context.Context) error {
	v.mu.Lock()
	if v.edit == nil {
		v.mu.Unlock()
		return ErrNoEdit
	}
	update := types.DataUpdate{ID: v.edit.RowID, Data: v.edit.Data.Clone(), ModifiedBy: v.user}
	v.startLocked()
	v.mu.Unlock()

	env, err := v.client.Files.Update(ctx, update)
	if err == nil && !env.Success {
		err = apierr.Application(env.Message, "unknown error")
		v.fail("Update failed: " + err.Error())
		return err
	}
	if err != nil {
		v.fail(apierr.Message(err, api.RowKey(update.ID)))
		return err
	}

	v.mu.Lock()
	if v.edit != nil && v.edit.RowID == update.ID {
		v.edit = nil
	}
	v.doneLocked("Row updated")
	v.mu.Unlock()
	return v.Load(ctx)
}

// RequestDeleteRow marks a row for deletion. Nothing is sent until
// ConfirmDeleteRow.
func (v *DataViewer) RequestDeleteRow(rowID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = &rowID
}

func (v *DataViewer) PendingDelete() (int64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pendingDelete == nil {
		return 0, false
	}
	return *v.pendingDelete, true
}

func (v *DataViewer) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = nil
}

// ConfirmDeleteRow deletes the pending row and reloads the page.
func (v *DataViewer) ConfirmDeleteRow(ctx context.Context) error {
	v.mu.Lock()
	if v.pendingDelete == nil {
		v.mu.Unlock()
		return nil
	}
	id := *v.pendingDelete
	v.pendingDelete = nil
	v.startLocked()
	v.mu.Unlock()

	env, err := v.client.Files.DeleteRow(ctx, id, v.user)
	if err == nil && !env.Success {
		err = apierr.Application(env.Message, "unknown error")
		v.fail("Delete failed: " + err.Error())
		return err
	}
	if err != nil {
		v.fail(apierr.Message(err, api.RowKey(id)))
		return err
	}

	v.mu.Lock()
	v.doneLocked("Row deleted")
	v.mu.Unlock()
	return v.Load(ctx)
}

// Reprocess asks the backend to parse the whole workbook again and reloads
// the sheets.
func (v *DataViewer) Reprocess(ctx context.Context) error {
	v.mu.Lock()
	file := v.fileName
	if file == "" {
		v.mu.Unlock()
		return ErrNoFile
	}
	v.startLocked()
	v.mu.Unlock()

	env, err := v.client.Files.Read(ctx, file, "")
	if err == nil && !env.Success {
		err = apierr.Application(env.Message, "unknown error")
	}
	if err != nil {
		v.fail("Processing failed: " + apierr.Message(err, file))
		return err
	}

	v.mu.Lock()
	v.doneLocked(fmt.Sprintf("%s processed", file))
	v.mu.Unlock()
	return v.LoadSheets(ctx)
}

// TestConnection reports backend reachability through the message channels.
func (v *DataViewer) TestConnection(ctx context.Context) error {
	env, err := v.client.Files.Test(ctx)
	if err != nil {
		v.fail(apierr.Message(err, ""))
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.okMsg = "Backend connection successful: " + env.MessageOr("ok")
	return nil
}

// LoadStatistics fetches row statistics for the current sheet.
func (v *DataViewer) LoadStatistics(ctx context.Context) error {
	v.mu.Lock()
	file, sheet := v.fileName, v.sheet
	if file == "" {
		v.mu.Unlock()
		return ErrNoFile
	}
	token := v.statsSeq.next()
	v.mu.Unlock()

	env, err := v.client.Files.Statistics(ctx, file, sheet)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.statsSeq.current(token) {
		return ErrSuperseded
	}
	if err != nil {
		return err
	}
	if !env.Success {
		return apierr.Application(env.Message, "Could not load statistics")
	}
	stats := env.Data
	v.stats = &stats
	return nil
}

// Export downloads the current sheet as a workbook.
func (v *DataViewer) Export(ctx context.Context, includeHistory bool) (*executor.Response, error) {
	v.mu.RLock()
	req := types.ExportRequest{FileName: v.fileName, SheetName: v.sheet, IncludeModificationHistory: includeHistory}
	v.mu.RUnlock()
	if req.FileName == "" {
		return nil, ErrNoFile
	}

	resp, err := v.client.Files.Export(ctx, req)
	if err != nil {
		v.fail(apierr.Message(err, req.FileName))
		return nil, err
	}
	return resp, nil
}

func (v *DataViewer) FileName() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fileName
}

func (v *DataViewer) Sheets() []types.SheetRef {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]types.SheetRef(nil), v.sheets...)
}

func (v *DataViewer) Sheet() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sheet
}

func (v *DataViewer) Page() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

func (v *DataViewer) Rows() []types.DataRow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]types.DataRow(nil), v.rows...)
}

func (v *DataViewer) Columns() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return types.Columns(v.rows)
}

// HasNext reports whether the last page came back full.
func (v *DataViewer) HasNext() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hasNext
}

func (v *DataViewer) HasPrev() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page > 1
}

// PageSize returns the size sent for the current sheet.
func (v *DataViewer) PageSize() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return api.EffectivePageSize(v.sheet, v.pageSize)
}

func (v *DataViewer) Statistics() (types.DataStatistics, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.stats == nil {
		return types.DataStatistics{}, false
	}
	return *v.stats, true
}

func (v *DataViewer) fail(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failLocked(msg)
}
