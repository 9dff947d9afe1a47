package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// ComparisonClient covers file and version diffs computed by the backend.
type ComparisonClient struct {
	resource
}

func (c *ComparisonClient) Files(ctx context.Context) (types.Envelope[[]types.ComparisonFile], error) {
	return call[[]types.ComparisonFile](ctx, c.resource, "files", "", &executor.Request{
		Method: http.MethodGet,
		Path:   "/comparison/files",
	})
}

func (c *ComparisonClient) Versions(ctx context.Context, fileName string) (types.Envelope[[]types.ComparisonVersion], error) {
	return call[[]types.ComparisonVersion](ctx, c.resource, "versions", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   "/comparison/versions/" + seg(fileName),
	})
}

func (c *ComparisonClient) Compare(ctx context.Context, req types.CompareRequest) (types.Envelope[types.ComparisonResult], error) {
	return call[types.ComparisonResult](ctx, c.resource, "compare", req.FileName1+" / "+req.FileName2, &executor.Request{
		Method: http.MethodPost,
		Path:   "/comparison/compare",
		Body:   req,
	})
}

func (c *ComparisonClient) CompareVersions(ctx context.Context, fileName string, req types.CompareVersionsRequest) (types.Envelope[types.ComparisonResult], error) {
	return call[types.ComparisonResult](ctx, c.resource, "compare-versions", fileName, &executor.Request{
		Method: http.MethodPost,
		Path:   "/comparison/compare-versions/" + seg(fileName),
		Body:   req,
	})
}

func versionsPath(prefix, fileName string, v1, v2 int64) string {
	return prefix + seg(fileName) + "/" + strconv.FormatInt(v1, 10) + "/" + strconv.FormatInt(v2, 10)
}

func (c *ComparisonClient) Differences(ctx context.Context, fileName string, v1, v2 int64, rng types.DifferenceRange) (types.Envelope[[]types.CellDifference], error) {
	q := url.Values{}
	setIf(q, "sheetName", rng.SheetName)
	if rng.StartRow != nil {
		q.Set("startRow", strconv.Itoa(*rng.StartRow))
	}
	if rng.EndRow != nil {
		q.Set("endRow", strconv.Itoa(*rng.EndRow))
	}
	return call[[]types.CellDifference](ctx, c.resource, "differences", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   versionsPath("/comparison/differences/", fileName, v1, v2),
		Query:  q,
	})
}

func (c *ComparisonClient) Summary(ctx context.Context, comparisonID string) (types.Envelope[types.FileComparisonSummary], error) {
	return call[types.FileComparisonSummary](ctx, c.resource, "summary", comparisonID, &executor.Request{
		Method: http.MethodGet,
		Path:   "/comparison/summary/" + seg(comparisonID),
	})
}

func (c *ComparisonClient) Export(ctx context.Context, comparisonID string, format types.ExportFormat) (*executor.Response, error) {
	if format == "" {
		format = types.ExportExcel
	}
	return download(ctx, c.resource, "export", comparisonID, &executor.Request{
		Method:  http.MethodGet,
		Path:    "/comparison/export/" + seg(comparisonID),
		Query:   url.Values{"format": {string(format)}},
		Headers: map[string]string{"Accept": "*/*"},
	})
}

func (c *ComparisonClient) SaveTemplate(ctx context.Context, req types.SaveTemplateRequest) (Result, error) {
	return call[any](ctx, c.resource, "save-template", req.Name, &executor.Request{
		Method: http.MethodPost,
		Path:   "/comparison/templates",
		Body:   req,
	})
}

func (c *ComparisonClient) Templates(ctx context.Context) (types.Envelope[[]types.ComparisonTemplate], error) {
	return call[[]types.ComparisonTemplate](ctx, c.resource, "templates", "", &executor.Request{
		Method: http.MethodGet,
		Path:   "/comparison/templates",
	})
}

func (c *ComparisonClient) CellDifferences(ctx context.Context, fileName string, v1, v2 int64, sheetName string, row int, column string) (types.Envelope[types.CellDifference], error) {
	q := url.Values{}
	q.Set("sheetName", sheetName)
	q.Set("row", strconv.Itoa(row))
	q.Set("column", column)
	return call[types.CellDifference](ctx, c.resource, "cell-differences", fileName, &executor.Request{
		Method: http.MethodGet,
		Path:   versionsPath("/comparison/cell-differences/", fileName, v1, v2),
		Query:  q,
	})
}
