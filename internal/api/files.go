package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// FilesClient covers uploaded workbooks and their rows.
type FilesClient struct {
	resource
}

// DataQuery selects one page of rows. Page is 1-based.
type DataQuery struct {
	FileName  string
	SheetName string
	Page      int
	PageSize  int
}

// Test checks connectivity. Any 2xx counts as connected: an envelope with
// success=true is preferred, then any 2xx, then any bare JSON object.
func (c *FilesClient) Test(ctx context.Context) (Result, error) {
	resp, err := c.doer.Do(ctx, &executor.Request{Method: http.MethodGet, Path: "/excel/test"})
	if err != nil {
		return Result{}, c.fail("test", "", err)
	}
	if !executor.IsSuccessStatus(resp.Status) {
		return Result{}, c.fail("test", "", &apierr.HTTPStatusError{Code: resp.Status, Status: resp.StatusText, Body: resp.Body})
	}
	return normalizeConnectivity(resp.Body), nil
}

func normalizeConnectivity(body []byte) Result {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return Result{Success: true, Message: "Connection successful but unexpected response format"}
	}

	result := Result{Success: true, Message: "Connection successful"}
	if msg, ok := obj["message"].(string); ok && msg != "" {
		result.Message = msg
	}
	if data, ok := obj["data"]; ok && data != nil {
		result.Data = data
	} else {
		result.Data = obj
	}
	return result
}

func (c *FilesClient) List(ctx context.Context) (types.Envelope[[]types.FileRecord], error) {
	return call[[]types.FileRecord](ctx, c.resource, "list", "", &executor.Request{
		Method: http.MethodGet,
		Path:   "/excel/files",
	})
}

// Upload sends the workbook as multipart fields "file" and "uploadedBy".
func (c *FilesClient) Upload(ctx context.Context, fileName string, content []byte, uploadedBy string) (Result, error) {
	return call[any](ctx, c.resource, "upload", fileName, &executor.Request{
		Method: http.MethodPost,
		Path:   "/excel/upload",
		Form: &executor.Form{
			Files:  []executor.FormFile{{Field: "file", FileName: fileName, Data: content}},
			Fields: []executor.FormField{{Name: "uploadedBy", Value: uploadedBy}},
		},
	})
}

// Read asks the backend to parse the workbook. An empty sheetName
// processes every sheet.
func (c *FilesClient) Read(ctx context.Context, fileName, sheetName string) (Result, error) {
	q := url.Values{}
	setIf(q, "sheetName", sheetName)
	return call[any](ctx, c.resource, "read", fileName, &executor.Request{
		Method: http.MethodPost,
		Path:   "/excel/read/" + seg(fileName),
		Query:  q,
	})
}

func (c *FilesClient) Sheets(ctx context.Context, fileName string) (types.Envelope[[]types.SheetRef], error) {
	return call[[]types.SheetRef](ctx, c.resource, "sheets", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/excel/sheets/" + seg(fileName),
	})
}

// Data fetches one page of rows using the effective page size.
func (c *FilesClient) Data(ctx context.Context, query DataQuery) (types.Envelope[[]types.DataRow], error) {
	q := url.Values{}
	setPage(q, query.Page, EffectivePageSize(query.SheetName, query.PageSize))
	setIf(q, "sheetName", query.SheetName)
	return call[[]types.DataRow](ctx, c.resource, "data", query.FileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/excel/data/" + seg(query.FileName),
		Query:  q,
	})
}

func (c *FilesClient) Update(ctx context.Context, update types.DataUpdate) (Result, error) {
	return call[any](ctx, c.resource, "update", RowKey(update.ID), &executor.Request{
		Method: http.MethodPut,
		Path:   "/excel/data",
		Body:   update,
	})
}

func (c *FilesClient) BulkUpdate(ctx context.Context, bulk types.BulkUpdate) (Result, error) {
	return call[any](ctx, c.resource, "bulk-update", "", &executor.Request{
		Method: http.MethodPut,
		Path:   "/excel/data/bulk",
		Body:   bulk,
	})
}

func (c *FilesClient) AddRow(ctx context.Context, req types.AddRowRequest) (Result, error) {
	return call[any](ctx, c.resource, "add-row", req.FileName, &executor.Request{
		Method: http.MethodPost,
		Path:   "/excel/data",
		Body:   req,
	})
}

func (c *FilesClient) DeleteRow(ctx context.Context, id int64, deletedBy string) (Result, error) {
	q := url.Values{}
	setIf(q, "deletedBy", deletedBy)
	return call[any](ctx, c.resource, "delete-row", RowKey(id), &executor.Request{
		Method: http.MethodDelete,
		Path:   "/excel/data/" + strconv.FormatInt(id, 10),
		Query:  q,
	})
}

func (c *FilesClient) DeleteFile(ctx context.Context, fileName string) (Result, error) {
	return call[any](ctx, c.resource, "delete-file", fileName, &executor.Request{
		Method: http.MethodDelete,
		Path:   "/excel/files/" + seg(fileName),
	})
}

// Export returns the exported workbook bytes.
func (c *FilesClient) Export(ctx context.Context, req types.ExportRequest) (*executor.Response, error) {
	return download(ctx, c.resource, "export", req.FileName, &executor.Request{
		Method: http.MethodPost,
		Path:   "/excel/export",
		Body:   req,
	})
}

func (c *FilesClient) Statistics(ctx context.Context, fileName, sheetName string) (types.Envelope[types.DataStatistics], error) {
	q := url.Values{}
	setIf(q, "sheetName", sheetName)
	return call[types.DataStatistics](ctx, c.resource, "statistics", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/excel/statistics/" + seg(fileName),
		Query:  q,
	})
}

// Download fetches the originally uploaded workbook.
func (c *FilesClient) Download(ctx context.Context, fileName string) (*executor.Response, error) {
	return download(ctx, c.resource, "download", fileName, &executor.Request{
		Method:  http.MethodGet,
		Path:    "/excel/files/" + seg(fileName) + "/download",
		Headers: map[string]string{"Accept": "*/*"},
	})
}
