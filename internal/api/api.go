// Package api maps backend operations to typed Go methods.
//
// Envelope responses are returned verbatim, including success=false ones.
// Transport failures, timeouts, non-2xx statuses and unparseable bodies come
// back as *apierr.ResourceError with a stable per-operation message; the
// cause is logged and stays reachable through errors.As.
package api

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// StokPageSize is the fixed page size of the "stok" sheet.
const StokPageSize = 50

// Result is an envelope whose data the client does not interpret.
type Result = types.Envelope[any]

// Client groups the resource clients of one backend.
type Client struct {
	Files      *FilesClient
	Comparison *ComparisonClient
	History    *HistoryClient
}

func New(d executor.Doer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		Files:      &FilesClient{resource{doer: d, logger: logger, name: "files"}},
		Comparison: &ComparisonClient{resource{doer: d, logger: logger, name: "comparison"}},
		History:    &HistoryClient{resource{doer: d, logger: logger, name: "history"}},
	}
}

// EffectivePageSize applies the per-sheet override to the configured size.
func EffectivePageSize(sheetName string, configured int) int {
	if strings.EqualFold(strings.TrimSpace(sheetName), "stok") {
		return StokPageSize
	}
	return configured
}

// RowKey names a row in user-facing messages.
func RowKey(id int64) string {
	return "row " + strconv.FormatInt(id, 10)
}

var failureMessages = map[string]string{
	"files.test":                  "Backend connection could not be established",
	"files.list":                  "Failed to load files",
	"files.upload":                "Failed to upload file",
	"files.read":                  "Failed to process file",
	"files.sheets":                "Failed to load sheets",
	"files.data":                  "Failed to load data",
	"files.update":                "Failed to update row",
	"files.bulk-update":           "Bulk update failed",
	"files.add-row":               "Failed to add row",
	"files.delete-row":            "Failed to delete row",
	"files.delete-file":           "Failed to delete file",
	"files.export":                "Failed to export data",
	"files.statistics":            "Failed to load statistics",
	"files.download":              "Failed to download file",
	"comparison.files":            "Failed to load comparison files",
	"comparison.versions":         "Failed to load file versions",
	"comparison.compare":          "File comparison failed",
	"comparison.compare-versions": "Version comparison failed",
	"comparison.differences":      "Failed to load differences",
	"comparison.summary":          "Failed to load comparison summary",
	"comparison.export":           "Failed to export comparison",
	"comparison.save-template":    "Failed to save comparison template",
	"comparison.templates":        "Failed to load comparison templates",
	"comparison.cell-differences": "Failed to load cell differences",
	"history.changes":             "Failed to load change history",
	"history.file":                "Failed to load file history",
	"history.data":                "Failed to load row history",
	"history.stats":               "Failed to load history statistics",
	"history.change":              "Failed to load change details",
	"history.revert":              "Failed to revert change",
	"history.export":              "Failed to export history",
	"history.user-activity":       "Failed to load user activity",
	"history.search":              "History search failed",
}

// FailureMessage returns the stable message of a resource operation.
func FailureMessage(resource, op string) string {
	if msg, ok := failureMessages[resource+"."+op]; ok {
		return msg
	}
	return "Request to " + resource + " failed"
}

type resource struct {
	doer   executor.Doer
	logger *slog.Logger
	name   string
}

func (r resource) fail(op, key string, err error) error {
	r.logger.Warn("backend request failed", "resource", r.name, "op", op, "key", key, "error", err)
	return &apierr.ResourceError{
		Resource: r.name,
		Op:       op,
		Key:      key,
		Message:  FailureMessage(r.name, op),
		Err:      err,
	}
}

func call[T any](ctx context.Context, r resource, op, key string, req *executor.Request) (types.Envelope[T], error) {
	env, err := executor.Envelope[T](ctx, r.doer, req)
	if err != nil {
		return env, r.fail(op, key, err)
	}
	return env, nil
}

func download(ctx context.Context, r resource, op, key string, req *executor.Request) (*executor.Response, error) {
	resp, err := executor.Binary(ctx, r.doer, req)
	if err != nil {
		return nil, r.fail(op, key, &apierr.ExportError{Resource: r.name, Err: err})
	}
	return resp, nil
}

func seg(s string) string {
	return url.PathEscape(s)
}

func setPage(q url.Values, page, pageSize int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
