package mock

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/studiowebux/sheetdesk/internal/types"
)

const (
	defaultBasePath = "/api"
	maxLogs         = 1000
)

// workbook is an uploaded file and the versions produced by processing it.
type workbook struct {
	record    types.FileRecord
	content   []byte
	seed      []table
	processed bool
	sheets    []string
	versions  []*version
}

// version is a snapshot of a workbook's rows taken when it was processed.
type version struct {
	id         int64
	number     int
	uploadDate time.Time
	uploadedBy string
	size       int64
	tables     []table
}

// Backend is an in-memory implementation of the spreadsheet data API.
type Backend struct {
	mu          sync.Mutex
	basePath    string
	delay       time.Duration
	logging     bool
	now         func() time.Time
	files       map[string]*workbook
	order       []string
	rows        map[int64]*types.DataRow
	changes     []types.ChangeRecord
	comparisons map[string]types.ComparisonResult
	templates   []types.SaveTemplateRequest
	nextRow     int64
	nextChange  int64
	nextVersion int64

	logsMutex sync.RWMutex
	logs      []RequestLog
	notifyCh  chan struct{}
}

// NewBackend creates a backend seeded from cfg. A nil cfg starts empty.
func NewBackend(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	b := &Backend{
		basePath:    strings.TrimSuffix(cfg.BasePath, "/"),
		delay:       time.Duration(cfg.Delay) * time.Millisecond,
		logging:     cfg.Logging,
		now:         time.Now,
		files:       make(map[string]*workbook),
		rows:        make(map[int64]*types.DataRow),
		comparisons: make(map[string]types.ComparisonResult),
		notifyCh:    make(chan struct{}, 100),
	}
	if cfg.BasePath == "" {
		b.basePath = defaultBasePath
	}

	user := cfg.User
	if user == "" {
		user = "mock"
	}
	for _, f := range cfg.Files {
		tables := make([]table, 0, len(f.Sheets))
		for _, s := range f.Sheets {
			tables = append(tables, table{Name: s.Name, Columns: s.Columns, Rows: s.Rows})
		}
		wb := &workbook{
			record: types.FileRecord{FileName: f.Name, UploadDate: b.stamp(), UploadedBy: user},
			seed:   tables,
		}
		b.addFile(wb)
		b.importTables(wb, tables)
	}
	return b
}

// SetClock replaces the time source. Used by tests.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// BasePath returns the prefix every route is mounted under.
func (b *Backend) BasePath() string {
	return b.basePath
}

// Handler returns the HTTP handler serving the API under BasePath.
func (b *Backend) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+b.basePath+path, h)
	}

	route("GET /excel/test", b.handleTest)
	route("GET /excel/files", b.handleListFiles)
	route("POST /excel/upload", b.handleUpload)
	route("POST /excel/read/{file}", b.handleRead)
	route("GET /excel/sheets/{file}", b.handleSheets)
	route("GET /excel/data/{file}", b.handleData)
	route("PUT /excel/data", b.handleUpdate)
	route("PUT /excel/data/bulk", b.handleBulkUpdate)
	route("POST /excel/data", b.handleAddRow)
	route("DELETE /excel/data/{id}", b.handleDeleteRow)
	route("DELETE /excel/files/{file}", b.handleDeleteFile)
	route("POST /excel/export", b.handleExport)
	route("GET /excel/statistics/{file}", b.handleStatistics)
	route("GET /excel/files/{file}/download", b.handleDownload)

	route("GET /comparison/files", b.handleComparisonFiles)
	route("GET /comparison/versions/{file}", b.handleVersions)
	route("POST /comparison/compare", b.handleCompare)
	route("POST /comparison/compare-versions/{file}", b.handleCompareVersions)
	route("GET /comparison/differences/{file}/{v1}/{v2}", b.handleDifferences)
	route("GET /comparison/summary/{id}", b.handleSummary)
	route("GET /comparison/export/{id}", b.handleComparisonExport)
	route("POST /comparison/templates", b.handleSaveTemplate)
	route("GET /comparison/templates", b.handleTemplates)
	route("GET /comparison/cell-differences/{file}/{v1}/{v2}", b.handleCellDifferences)

	route("GET /history/changes", b.handleChanges)
	route("GET /history/file/{file}", b.handleFileHistory)
	route("GET /history/data/{id}", b.handleDataHistory)
	route("GET /history/stats", b.handleHistoryStats)
	route("GET /history/change/{id}", b.handleChange)
	route("POST /history/revert/{id}", b.handleRevert)
	route("GET /history/export", b.handleHistoryExport)
	route("GET /history/user-activity", b.handleUserActivity)
	route("GET /history/search", b.handleSearch)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, "No route for "+r.Method+" "+r.URL.Path)
	})

	return b.instrument(mux)
}

// instrument applies the configured delay and records the request log.
func (b *Backend) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var body []byte
		if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
			r.Body = io.NopCloser(strings.NewReader(string(body)))
		}

		if b.delay > 0 {
			select {
			case <-time.After(b.delay):
			case <-r.Context().Done():
				return
			}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if b.logging {
			b.logRequest(RequestLog{
				Timestamp: start,
				Method:    r.Method,
				Path:      r.URL.Path,
				Query:     r.URL.RawQuery,
				Headers:   flattenHeaders(r.Header),
				Body:      string(body),
				Status:    rec.status,
				Duration:  time.Since(start),
			})
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (b *Backend) logRequest(log RequestLog) {
	b.logsMutex.Lock()
	defer b.logsMutex.Unlock()

	b.logs = append(b.logs, log)
	if len(b.logs) > maxLogs {
		b.logs = b.logs[len(b.logs)-maxLogs:]
	}

	select {
	case b.notifyCh <- struct{}{}:
	default:
	}
}

// NotifyChannel signals every logged request.
func (b *Backend) NotifyChannel() <-chan struct{} {
	return b.notifyCh
}

// Requests returns a copy of the request log.
func (b *Backend) Requests() []RequestLog {
	b.logsMutex.RLock()
	defer b.logsMutex.RUnlock()
	return slices.Clone(b.logs)
}

func (b *Backend) ClearRequests() {
	b.logsMutex.Lock()
	defer b.logsMutex.Unlock()
	b.logs = nil
}

// flattenHeaders converts http.Header to map[string]string (first value only)
func flattenHeaders(headers http.Header) map[string]string {
	result := make(map[string]string)
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return result
}

// The helpers below expect b.mu to be held.

func (b *Backend) stamp() types.Timestamp {
	return types.Timestamp{Time: b.now().UTC()}
}

func (b *Backend) addFile(wb *workbook) {
	if _, ok := b.files[wb.record.FileName]; !ok {
		b.order = append(b.order, wb.record.FileName)
	}
	b.files[wb.record.FileName] = wb
}

func (b *Backend) removeFile(name string) {
	delete(b.files, name)
	b.order = slices.DeleteFunc(b.order, func(n string) bool { return n == name })
	for id, row := range b.rows {
		if row.FileName == name {
			delete(b.rows, id)
		}
	}
}

// importTables replaces the rows of wb and snapshots a new version.
func (b *Backend) importTables(wb *workbook, tables []table) {
	name := wb.record.FileName
	for id, row := range b.rows {
		if row.FileName == name {
			delete(b.rows, id)
		}
	}

	wb.sheets = wb.sheets[:0]
	for _, t := range tables {
		wb.sheets = append(wb.sheets, t.Name)
		for i, values := range t.Rows {
			data := types.NewRowData()
			for j, col := range t.Columns {
				var v any
				if j < len(values) {
					v = values[j]
				}
				data.Set(col, v)
			}
			b.nextRow++
			b.rows[b.nextRow] = &types.DataRow{
				ID:          b.nextRow,
				FileName:    name,
				SheetName:   t.Name,
				RowIndex:    i + 1,
				Data:        data,
				CreatedDate: b.stamp(),
				Version:     1,
			}
		}
	}
	wb.processed = true

	b.nextVersion++
	wb.versions = append(wb.versions, &version{
		id:         b.nextVersion,
		number:     len(wb.versions) + 1,
		uploadDate: wb.record.UploadDate.Time,
		uploadedBy: wb.record.UploadedBy,
		size:       wb.record.Size,
		tables:     cloneTables(tables),
	})
}

// sheetRows returns the rows of one sheet, or of every sheet when sheet
// is empty, ordered by sheet position then row index.
func (b *Backend) sheetRows(wb *workbook, sheet string) []*types.DataRow {
	var out []*types.DataRow
	for _, row := range b.rows {
		if row.FileName != wb.record.FileName {
			continue
		}
		if sheet != "" && row.SheetName != sheet {
			continue
		}
		out = append(out, row)
	}
	slices.SortFunc(out, func(x, y *types.DataRow) int {
		if x.SheetName != y.SheetName {
			return slices.Index(wb.sheets, x.SheetName) - slices.Index(wb.sheets, y.SheetName)
		}
		if x.RowIndex != y.RowIndex {
			return x.RowIndex - y.RowIndex
		}
		return int(x.ID - y.ID)
	})
	return out
}

// currentTables renders the live rows of wb back into tables.
func (b *Backend) currentTables(wb *workbook, sheet string) []table {
	var tables []table
	for _, name := range wb.sheets {
		if sheet != "" && name != sheet {
			continue
		}
		rows := b.sheetRows(wb, name)
		dataRows := make([]types.DataRow, len(rows))
		for i, r := range rows {
			dataRows[i] = *r
		}
		t := table{Name: name, Columns: types.Columns(dataRows)}
		for _, r := range rows {
			values := make([]any, len(t.Columns))
			for i, col := range t.Columns {
				values[i], _ = r.Data.Get(col)
			}
			t.Rows = append(t.Rows, values)
		}
		tables = append(tables, t)
	}
	return tables
}

func (b *Backend) recordChange(c types.ChangeRecord) types.ChangeRecord {
	b.nextChange++
	c.ID = b.nextChange
	c.ChangeDate = b.stamp()
	b.changes = append(b.changes, c)
	return c
}

func (b *Backend) fileCount(name string) int {
	n := 0
	for _, row := range b.rows {
		if row.FileName == name {
			n++
		}
	}
	return n
}

func cloneTables(tables []table) []table {
	out := make([]table, len(tables))
	for i, t := range tables {
		out[i] = table{Name: t.Name, Columns: slices.Clone(t.Columns)}
		for _, r := range t.Rows {
			out[i].Rows = append(out[i].Rows, slices.Clone(r))
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, types.Envelope[any]{Success: true, Data: data, Message: message})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.Envelope[any]{Success: false, Message: message})
}

func writeAttachment(w http.ResponseWriter, contentType, fileName string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(key), 10, 64)
	return id, err == nil
}

// paginate slices items into the requested 1-based page.
func paginate[T any](items []T, page, pageSize int) types.Page[T] {
	total := len(items)
	pages := (total + pageSize - 1) / pageSize
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return types.Page[T]{
		Data:            append(make([]T, 0, end-start), items[start:end]...),
		TotalCount:      total,
		Page:            page,
		PageSize:        pageSize,
		TotalPages:      pages,
		HasNextPage:     page < pages,
		HasPreviousPage: page > 1,
	}
}

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv"
	jsonContentType = "application/json"
)
