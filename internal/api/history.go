package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// HistoryClient covers the change audit log.
type HistoryClient struct {
	resource
}

type ChangePage = types.Envelope[types.Page[types.ChangeRecord]]

func (c *HistoryClient) Changes(ctx context.Context, page, pageSize int, filter types.HistoryFilter) (ChangePage, error) {
	q := url.Values{}
	setPage(q, page, pageSize)
	filter.Apply(q)
	return call[types.Page[types.ChangeRecord]](ctx, c.resource, "changes", filter.FileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/changes",
		Query:  q,
	})
}

func (c *HistoryClient) FileHistory(ctx context.Context, fileName string, page, pageSize int) (ChangePage, error) {
	q := url.Values{}
	setPage(q, page, pageSize)
	return call[types.Page[types.ChangeRecord]](ctx, c.resource, "file", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/file/" + seg(fileName),
		Query:  q,
	})
}

func (c *HistoryClient) DataHistory(ctx context.Context, dataID int64, page, pageSize int) (ChangePage, error) {
	q := url.Values{}
	setPage(q, page, pageSize)
	return call[types.Page[types.ChangeRecord]](ctx, c.resource, "data", RowKey(dataID), &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/data/" + strconv.FormatInt(dataID, 10),
		Query:  q,
	})
}

func dateRange(q url.Values, start, end *time.Time) {
	if start != nil {
		q.Set("startDate", types.ISOTime(*start))
	}
	if end != nil {
		q.Set("endDate", types.ISOTime(*end))
	}
}

func (c *HistoryClient) Stats(ctx context.Context, fileName string, start, end *time.Time) (types.Envelope[types.HistoryStats], error) {
	q := url.Values{}
	setIf(q, "fileName", fileName)
	dateRange(q, start, end)
	return call[types.HistoryStats](ctx, c.resource, "stats", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/stats",
		Query:  q,
	})
}

func changeKey(id int64) string {
	return "change " + strconv.FormatInt(id, 10)
}

func (c *HistoryClient) ChangeDetails(ctx context.Context, changeID int64) (types.Envelope[types.ChangeRecord], error) {
	return call[types.ChangeRecord](ctx, c.resource, "change", changeKey(changeID), &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/change/" + strconv.FormatInt(changeID, 10),
	})
}

func (c *HistoryClient) Revert(ctx context.Context, changeID int64, req types.RevertRequest) (Result, error) {
	return call[any](ctx, c.resource, "revert", changeKey(changeID), &executor.Request{
		Method: http.MethodPost,
		Path:   "/history/revert/" + strconv.FormatInt(changeID, 10),
		Body:   req,
	})
}

func (c *HistoryClient) Export(ctx context.Context, filter types.HistoryFilter, format types.ExportFormat) (*executor.Response, error) {
	if format == "" {
		format = types.ExportExcel
	}
	q := url.Values{"format": {string(format)}}
	filter.Apply(q)
	return download(ctx, c.resource, "export", filter.FileName, &executor.Request{
		Method:  http.MethodGet,
		Path:    "/history/export",
		Query:   q,
		Headers: map[string]string{"Accept": "*/*"},
	})
}

func (c *HistoryClient) UserActivity(ctx context.Context, userID string, start, end *time.Time) (types.Envelope[types.HistoryStats], error) {
	q := url.Values{"userId": {userID}}
	dateRange(q, start, end)
	return call[types.HistoryStats](ctx, c.resource, "user-activity", userID, &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/user-activity",
		Query:  q,
	})
}

func (c *HistoryClient) Search(ctx context.Context, term string, page, pageSize int) (ChangePage, error) {
	q := url.Values{"q": {term}}
	setPage(q, page, pageSize)
	return call[types.Page[types.ChangeRecord]](ctx, c.resource, "search", term, &executor.Request{
		Method: http.MethodGet,
		Path:   "/history/search",
		Query:  q,
	})
}
