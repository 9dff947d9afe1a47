package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/executor"
	"github.com/studiowebux/sheetdesk/internal/types"
)

type fakeDoer struct {
	reqs []*executor.Request
	resp *executor.Response
	err  error
}

func (f *fakeDoer) Do(ctx context.Context, req *executor.Request) (*executor.Response, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func (f *fakeDoer) last() *executor.Request {
	return f.reqs[len(f.reqs)-1]
}

func jsonResponse(status int, body string) *executor.Response {
	return &executor.Response{
		Status:     status,
		StatusText: http.StatusText(status),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}
}

func TestFileNamesRoundTripThroughURL(t *testing.T) {
	names := []string{
		"report.xlsx",
		"Q1 report.xlsx",
		"a/b.xlsx",
		"şube raporu ğüçö.xlsx",
		"100% #1 (final)?&=.xlsx",
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		mu.Unlock()
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	client := New(executor.New(server.URL+"/api"), nil)
	ctx := context.Background()

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			mu.Lock()
			paths = nil
			mu.Unlock()
			client.Files.Sheets(ctx, name)
			client.Files.Read(ctx, name, "")
			client.Files.Data(ctx, DataQuery{FileName: name, Page: 1, PageSize: 10})
			client.Files.DeleteFile(ctx, name)
			client.Comparison.Versions(ctx, name)
			client.History.FileHistory(ctx, name, 1, 10)

			prefixes := []string{
				"/api/excel/sheets/",
				"/api/excel/read/",
				"/api/excel/data/",
				"/api/excel/files/",
				"/api/comparison/versions/",
				"/api/history/file/",
			}
			mu.Lock()
			defer mu.Unlock()
			if len(paths) != len(prefixes) {
				t.Fatalf("got %d requests, want %d", len(paths), len(prefixes))
			}
			for i, p := range paths {
				if !strings.HasPrefix(p, prefixes[i]) {
					t.Errorf("path %q, want prefix %q", p, prefixes[i])
					continue
				}
				decoded, err := url.PathUnescape(strings.TrimPrefix(p, prefixes[i]))
				if err != nil {
					t.Errorf("PathUnescape(%q) error = %v", p, err)
					continue
				}
				if decoded != name {
					t.Errorf("decoded %q, want %q", decoded, name)
				}
			}
		})
	}
}

func TestDataUsesEffectivePageSize(t *testing.T) {
	tests := []struct {
		sheet      string
		configured int
		want       string
	}{
		{"stok", 25, "50"},
		{"STOK", 100, "50"},
		{"Stok", 10, "50"},
		{"Sheet1", 25, "25"},
		{"stok2", 25, "25"},
		{"", 75, "75"},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			doer := &fakeDoer{resp: jsonResponse(200, `{"success":true,"data":[]}`)}
			client := New(doer, nil)
			if _, err := client.Files.Data(context.Background(), DataQuery{FileName: "data.xlsx", SheetName: tt.sheet, Page: 1, PageSize: tt.configured}); err != nil {
				t.Fatalf("Data() error = %v", err)
			}
			if got := doer.last().Query.Get("pageSize"); got != tt.want {
				t.Errorf("pageSize = %s, want %s", got, tt.want)
			}
			_, hasSheet := doer.last().Query["sheetName"]
			if hasSheet != (tt.sheet != "") {
				t.Errorf("sheetName present = %v for sheet %q", hasSheet, tt.sheet)
			}
		})
	}
}

func TestOptionalFiltersAreOmitted(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(200, `{"success":true,"data":{"data":[]}}`)}
	client := New(doer, nil)
	ctx := context.Background()

	client.History.Changes(ctx, 1, 50, types.HistoryFilter{})
	q := doer.last().Query
	if len(q) != 2 || q.Get("page") != "1" || q.Get("pageSize") != "50" {
		t.Errorf("Changes query = %v, want only page and pageSize", q)
	}

	client.Files.Statistics(ctx, "data.xlsx", "")
	if len(doer.last().Query) != 0 {
		t.Errorf("Statistics query = %v, want empty", doer.last().Query)
	}

	client.Files.DeleteRow(ctx, 42, "")
	if len(doer.last().Query) != 0 {
		t.Errorf("DeleteRow query = %v, want empty", doer.last().Query)
	}

	client.Comparison.Differences(ctx, "a.xlsx", 1, 2, types.DifferenceRange{})
	if len(doer.last().Query) != 0 {
		t.Errorf("Differences query = %v, want empty", doer.last().Query)
	}
}

func TestConnectivityNormalization(t *testing.T) {
	tests := []struct {
		name    string
		resp    *executor.Response
		wantErr bool
		message string
	}{
		{"envelope", jsonResponse(200, `{"success":true,"message":"Excel API is up"}`), false, "Excel API is up"},
		{"envelope says false on 2xx", jsonResponse(200, `{"success":false}`), false, "Connection successful"},
		{"plain object", jsonResponse(200, `{"status":"healthy"}`), false, "Connection successful"},
		{"not an object", jsonResponse(200, `"pong"`), false, "Connection successful but unexpected response format"},
		{"not json", jsonResponse(200, `pong`), false, "Connection successful but unexpected response format"},
		{"server down", jsonResponse(503, ``), true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(&fakeDoer{resp: tt.resp}, nil)
			got, err := client.Files.Test(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("Test() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Test() error = %v", err)
			}
			if !got.Success {
				t.Error("Success = false, want true")
			}
			if got.Message != tt.message {
				t.Errorf("Message = %q, want %q", got.Message, tt.message)
			}
		})
	}
}

func TestConnectivityIsStable(t *testing.T) {
	client := New(&fakeDoer{resp: jsonResponse(200, `{"ok":true}`)}, nil)
	first, err1 := client.Files.Test(context.Background())
	second, err2 := client.Files.Test(context.Background())
	if (err1 == nil) != (err2 == nil) || first.Success != second.Success {
		t.Errorf("connectivity check changed between calls: %v/%v, %v/%v", first.Success, err1, second.Success, err2)
	}
}

func TestTransportFailureBecomesResourceError(t *testing.T) {
	cause := &apierr.TransportError{Method: "GET", URL: "http://localhost:5002/api/excel/files", Err: errors.New("connection refused")}
	client := New(&fakeDoer{err: cause}, nil)

	_, err := client.Files.List(context.Background())
	var resErr *apierr.ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("List() error = %v, want ResourceError", err)
	}
	if err.Error() != "Failed to load files" {
		t.Errorf("Error() = %q, want stable message", err.Error())
	}
	var transportErr *apierr.TransportError
	if !errors.As(err, &transportErr) {
		t.Error("cause is not reachable through errors.As")
	}
}

func TestApplicationFailureIsReturnedAsData(t *testing.T) {
	client := New(&fakeDoer{resp: jsonResponse(200, `{"success":false,"message":"Sheet is locked"}`)}, nil)
	env, err := client.Files.Update(context.Background(), types.DataUpdate{ID: 1})
	if err != nil {
		t.Fatalf("Update() error = %v, want nil for success=false", err)
	}
	if env.Success || env.Message != "Sheet is locked" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestDeleteRowNotFoundCarriesRowKey(t *testing.T) {
	client := New(&fakeDoer{resp: jsonResponse(404, `{"success":false,"message":"not found"}`)}, nil)
	_, err := client.Files.DeleteRow(context.Background(), 42, "alice")
	if err == nil {
		t.Fatal("DeleteRow() error = nil")
	}
	msg := apierr.Message(err, "")
	if !strings.Contains(msg, "row 42") {
		t.Errorf("message = %q, want it to name row 42", msg)
	}
	if apierr.Classify(err, "").Category != apierr.CategoryNotFound {
		t.Errorf("category = %v", apierr.Classify(err, "").Category)
	}
}

func TestExportFailureIsExportError(t *testing.T) {
	client := New(&fakeDoer{resp: jsonResponse(500, `boom`)}, nil)
	tests := []struct {
		name string
		call func() error
	}{
		{"files", func() error { _, err := client.Files.Export(context.Background(), types.ExportRequest{FileName: "a.xlsx"}); return err }},
		{"comparison", func() error { _, err := client.Comparison.Export(context.Background(), "cmp-1", types.ExportCSV); return err }},
		{"history", func() error { _, err := client.History.Export(context.Background(), types.HistoryFilter{}, ""); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var exportErr *apierr.ExportError
			if err := tt.call(); !errors.As(err, &exportErr) {
				t.Errorf("error = %v, want ExportError", err)
			}
		})
	}
}

func TestExportReturnsRawBytes(t *testing.T) {
	payload := "PK\x03\x04binary"
	client := New(&fakeDoer{resp: &executor.Response{Status: 200, Header: http.Header{}, Body: []byte(payload)}}, nil)
	resp, err := client.Comparison.Export(context.Background(), "cmp-1", "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(resp.Body) != payload {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestRequestBodies(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(200, `{"success":true}`)}
	client := New(doer, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func()
		want string
	}{
		{
			name: "update",
			call: func() {
				client.Files.Update(ctx, types.DataUpdate{ID: 7, Data: types.NewRowData("Ad", "Ali"), ModifiedBy: "alice"})
			},
			want: `{"id":7,"data":{"Ad":"Ali"},"modifiedBy":"alice"}`,
		},
		{
			name: "bulk update",
			call: func() {
				client.Files.BulkUpdate(ctx, types.BulkUpdate{Updates: []types.DataUpdate{{ID: 1, Data: types.NewRowData("x", 1)}}, ModifiedBy: "bob"})
			},
			want: `{"updates":[{"id":1,"data":{"x":1}}],"modifiedBy":"bob"}`,
		},
		{
			name: "compare without sheet",
			call: func() {
				client.Comparison.Compare(ctx, types.CompareRequest{FileName1: "v1.xlsx", FileName2: "v2.xlsx"})
			},
			want: `{"fileName1":"v1.xlsx","fileName2":"v2.xlsx"}`,
		},
		{
			name: "revert",
			call: func() {
				client.History.Revert(ctx, 9, types.RevertRequest{RevertedBy: "alice", Reason: "typo"})
			},
			want: `{"revertedBy":"alice","reason":"typo"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call()
			got, err := json.Marshal(doer.last().Body)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUploadSendsMultipartFields(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(200, `{"success":true}`)}
	client := New(doer, nil)
	client.Files.Upload(context.Background(), "report.xlsx", []byte("PK"), "alice")

	req := doer.last()
	if req.Form == nil {
		t.Fatal("Upload() did not send a multipart form")
	}
	if len(req.Form.Files) != 1 || req.Form.Files[0].Field != "file" || req.Form.Files[0].FileName != "report.xlsx" {
		t.Errorf("files = %+v", req.Form.Files)
	}
	if len(req.Form.Fields) != 1 || req.Form.Fields[0] != (executor.FormField{Name: "uploadedBy", Value: "alice"}) {
		t.Errorf("fields = %+v", req.Form.Fields)
	}
	if req.Body != nil {
		t.Error("Upload() set a JSON body next to the form")
	}
}

func TestHistoryDatesAreISO(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(200, `{"success":true,"data":{}}`)}
	client := New(doer, nil)
	client.History.UserActivity(context.Background(), "alice", nil, nil)

	q := doer.last().Query
	if q.Get("userId") != "alice" {
		t.Errorf("userId = %q", q.Get("userId"))
	}
	if _, ok := q["startDate"]; ok {
		t.Error("startDate sent although unset")
	}
}
