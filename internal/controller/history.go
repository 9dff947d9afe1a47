package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studiowebux/sheetdesk/internal/api"
	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/shell"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// HistoryFilters is the filter state of the history screen.
type HistoryFilters struct {
	Sheet     string
	Operation string
	Search    string
	Start     *time.Time
	End       *time.Time
}

// History lists audited changes for the selected file, or for every file
// when none is selected.
type History struct {
	state
	client   *api.Client
	user     string
	pageSize int

	seq      sequence
	sheetSeq sequence
	statsSeq sequence

	fileName      string
	sheets        []string
	filters       HistoryFilters
	page          int
	entries       []types.ChangeRecord
	total         int
	totalPages    int
	hasNext       bool
	stats         *types.HistoryStats
	pendingRevert *int64
}

func NewHistory(client *api.Client, user string, pageSize int) *History {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &History{client: client, user: user, pageSize: pageSize, page: 1}
}

// SelectionChanged drops the sheet filter, page cursor and entries of the
// previous file before reloading.
func (h *History) SelectionChanged(prev, next shell.Selection) shell.Fetch {
	if prev.FileName == next.FileName {
		return nil
	}

	h.mu.Lock()
	h.fileName = next.FileName
	h.sheets = nil
	h.filters.Sheet = ""
	h.page = 1
	h.entries = nil
	h.total, h.totalPages = 0, 0
	h.hasNext = false
	h.stats = nil
	h.pendingRevert = nil
	h.seq.next()
	h.sheetSeq.next()
	h.statsSeq.next()
	h.resetLocked()
	h.mu.Unlock()

	return func(ctx context.Context) error {
		err := h.Load(ctx)
		if next.FileName != "" {
			err = errors.Join(err, h.LoadSheets(ctx))
		}
		return err
	}
}

// Load fetches the current page, using the search endpoint when a search
// term is set.
func (h *History) Load(ctx context.Context) error {
	h.mu.Lock()
	token := h.seq.next()
	file, page, filters := h.fileName, h.page, h.filters
	h.startLocked()
	h.mu.Unlock()

	var (
		env api.ChangePage
		err error
	)
	if term := strings.TrimSpace(filters.Search); term != "" {
		env, err = h.client.History.Search(ctx, term, page, h.pageSize)
	} else {
		env, err = h.client.History.Changes(ctx, page, h.pageSize, types.HistoryFilter{
			FileName:  file,
			Operation: filters.Operation,
			SheetName: filters.Sheet,
			StartDate: filters.Start,
			EndDate:   filters.End,
		})
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.seq.current(token) {
		return ErrSuperseded
	}
	if err != nil {
		h.entries = nil
		h.failLocked(apierr.Message(err, file))
		return err
	}
	if !env.Success {
		h.entries = nil
		err := apierr.Application(env.Message, "Could not load change history")
		h.failLocked(err.Error())
		return err
	}

	result := env.Data
	h.entries = result.Data
	h.total = result.TotalCount
	h.totalPages = result.TotalPages
	if result.TotalPages > 0 {
		h.hasNext = result.HasNextPage
	} else {
		h.hasNext = len(result.Data) >= h.pageSize
	}
	h.doneLocked("")
	return nil
}

// LoadSheets fetches the sheet names offered by the sheet filter.
func (h *History) LoadSheets(ctx context.Context) error {
	h.mu.Lock()
	file := h.fileName
	if file == "" {
		h.mu.Unlock()
		return nil
	}
	token := h.sheetSeq.next()
	h.mu.Unlock()

	env, err := h.client.Files.Sheets(ctx, file)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.sheetSeq.current(token) {
		return ErrSuperseded
	}
	if err != nil {
		return err
	}
	if !env.Success {
		return apierr.Application(env.Message, "Could not load sheets")
	}
	names := make([]string, 0, len(env.Data))
	for _, s := range env.Data {
		names = append(names, s.Name)
	}
	h.sheets = names
	return nil
}

// LoadStats fetches change statistics for the file and date range.
func (h *History) LoadStats(ctx context.Context) error {
	h.mu.Lock()
	token := h.statsSeq.next()
	file, start, end := h.fileName, h.filters.Start, h.filters.End
	h.mu.Unlock()

	env, err := h.client.History.Stats(ctx, file, start, end)

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.statsSeq.current(token) {
		return ErrSuperseded
	}
	if err != nil {
		return err
	}
	if !env.Success {
		return apierr.Application(env.Message, "Could not load statistics")
	}
	stats := env.Data
	h.stats = &stats
	return nil
}

// The filter setters change state immediately and return the reload.
// They return nil when the value did not change.

func (h *History) SetSheet(sheet string) shell.Fetch {
	return h.setFilter(func(f *HistoryFilters) { f.Sheet = sheet })
}

func (h *History) SetOperation(op string) shell.Fetch {
	return h.setFilter(func(f *HistoryFilters) { f.Operation = op })
}

func (h *History) SetSearch(term string) shell.Fetch {
	return h.setFilter(func(f *HistoryFilters) { f.Search = term })
}

// SetDateRange filters by change date. Either bound may be nil.
func (h *History) SetDateRange(start, end *time.Time) shell.Fetch {
	return h.setFilter(func(f *HistoryFilters) {
		f.Start = start
		f.End = end
	})
}

func (h *History) setFilter(mutate func(*HistoryFilters)) shell.Fetch {
	h.mu.Lock()
	defer h.mu.Unlock()
	before := h.filters
	mutate(&h.filters)
	if sameFilters(before, h.filters) {
		return nil
	}
	h.page = 1
	return h.Load
}

func sameFilters(a, b HistoryFilters) bool {
	return a.Sheet == b.Sheet &&
		a.Operation == b.Operation &&
		a.Search == b.Search &&
		sameTime(a.Start, b.Start) &&
		sameTime(a.End, b.End)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// Apply reloads with the current filters.
func (h *History) Apply() shell.Fetch {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.page = 1
	return h.Load
}

func (h *History) NextPage() shell.Fetch {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasNext {
		return nil
	}
	h.page++
	return h.Load
}

func (h *History) PrevPage() shell.Fetch {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.page <= 1 {
		return nil
	}
	h.page--
	return h.Load
}

// Details fetches one change.
func (h *History) Details(ctx context.Context, id int64) (types.ChangeRecord, error) {
	env, err := h.client.History.ChangeDetails(ctx, id)
	if err != nil {
		return types.ChangeRecord{}, err
	}
	if !env.Success {
		return types.ChangeRecord{}, apierr.Application(env.Message, "Could not load change")
	}
	return env.Data, nil
}

// RowHistory fetches the first page of changes to one row.
func (h *History) RowHistory(ctx context.Context, dataID int64) ([]types.ChangeRecord, error) {
	env, err := h.client.History.DataHistory(ctx, dataID, 1, h.pageSize)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, apierr.Application(env.Message, api.FailureMessage("history", "data"))
	}
	return env.Data.Data, nil
}

// RequestRevert marks a change for reverting. Nothing is sent until
// ConfirmRevert.
func (h *History) RequestRevert(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pendingRevert = &id
}

func (h *History) PendingRevert() (int64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.pendingRevert == nil {
		return 0, false
	}
	return *h.pendingRevert, true
}

func (h *History) CancelRevert() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pendingRevert = nil
}

// ConfirmRevert reverts the pending change and reloads.
func (h *History) ConfirmRevert(ctx context.Context, reason string) error {
	h.mu.Lock()
	if h.pendingRevert == nil {
		h.mu.Unlock()
		return nil
	}
	id := *h.pendingRevert
	h.pendingRevert = nil
	h.startLocked()
	h.mu.Unlock()

	env, err := h.client.History.Revert(ctx, id, types.RevertRequest{RevertedBy: h.user, Reason: reason})
	if err == nil && !env.Success {
		err = apierr.Application(env.Message, "unknown error")
		h.fail("Revert failed: " + err.Error())
		return err
	}
	if err != nil {
		h.fail(apierr.Message(err, fmt.Sprintf("change %d", id)))
		return err
	}

	h.mu.Lock()
	h.doneLocked(fmt.Sprintf("Change %d reverted", id))
	h.mu.Unlock()
	return h.Load(ctx)
}

// Export downloads the history matching the current filters.
func (h *History) Export(ctx context.Context, format types.ExportFormat) (*executor.Response, error) {
	h.mu.RLock()
	filter := types.HistoryFilter{
		FileName:  h.fileName,
		Operation: h.filters.Operation,
		SheetName: h.filters.Sheet,
		StartDate: h.filters.Start,
		EndDate:   h.filters.End,
	}
	h.mu.RUnlock()

	resp, err := h.client.History.Export(ctx, filter, format)
	if err != nil {
		h.fail(apierr.Message(err, filter.FileName))
		return nil, err
	}
	return resp, nil
}

func (h *History) FileName() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.fileName
}

func (h *History) Filters() HistoryFilters {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filters
}

func (h *History) Sheets() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.sheets...)
}

func (h *History) Entries() []types.ChangeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]types.ChangeRecord(nil), h.entries...)
}

func (h *History) Page() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.page
}

// Totals returns the entry count and page count reported by the backend.
func (h *History) Totals() (int, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total, h.totalPages
}

func (h *History) HasNext() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hasNext
}

func (h *History) Stats() (types.HistoryStats, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.stats == nil {
		return types.HistoryStats{}, false
	}
	return *h.stats, true
}

func (h *History) fail(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failLocked(msg)
}
