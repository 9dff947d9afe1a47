package executor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/studiowebux/sheetdesk/internal/apierr"
)

type recorderStub struct {
	mu    sync.Mutex
	calls []Call
}

func (r *recorderStub) Record(call Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func TestDoMergesHeadersCallerWins(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	exec := New(server.URL, WithHeaders(map[string]string{"X-Tenant": "default", "X-Trace": "profile"}))
	_, err := exec.Do(context.Background(), &Request{
		Method:  http.MethodPut,
		Path:    "/excel/data",
		Body:    map[string]int{"id": 1},
		Headers: map[string]string{"X-Trace": "caller"},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if ct := got.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if v := got.Get("X-Tenant"); v != "default" {
		t.Errorf("X-Tenant = %q, want default", v)
	}
	if v := got.Get("X-Trace"); v != "caller" {
		t.Errorf("X-Trace = %q, want caller header to win", v)
	}
}

func TestDoMultipartSuppressesDefaultContentType(t *testing.T) {
	var (
		contentType string
		fileBody    string
		uploadedBy  string
		fieldCount  int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			return
		}
		fieldCount = len(r.MultipartForm.Value) + len(r.MultipartForm.File)
		uploadedBy = r.FormValue("uploadedBy")
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		fileBody = string(b)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	exec := New(server.URL)
	_, err := exec.Do(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/excel/upload",
		Form: &Form{
			Files:  []FormFile{{Field: "file", FileName: "report.xlsx", Data: []byte("PK-data")}},
			Fields: []FormField{{Name: "uploadedBy", Value: "alice"}},
		},
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if !strings.HasPrefix(contentType, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q, want multipart boundary type", contentType)
	}
	if fileBody != "PK-data" {
		t.Errorf("file = %q", fileBody)
	}
	if uploadedBy != "alice" {
		t.Errorf("uploadedBy = %q", uploadedBy)
	}
	if fieldCount != 2 {
		t.Errorf("form has %d parts, want 2", fieldCount)
	}
}

func TestDoTimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	timeout := 100 * time.Millisecond
	exec := New(server.URL, WithTimeout(timeout))

	start := time.Now()
	_, err := exec.Do(context.Background(), &Request{Method: http.MethodGet, Path: "/excel/test"})
	elapsed := time.Since(start)

	if !errors.Is(err, apierr.ErrAborted) {
		t.Fatalf("Do() error = %v, want abort", err)
	}
	var abortErr *apierr.AbortError
	if !errors.As(err, &abortErr) || !abortErr.Timeout {
		t.Errorf("error = %#v, want AbortError with Timeout set", err)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("Do() returned after %v, want about %v", elapsed, timeout)
	}
}

func TestDoCallerCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := New(server.URL).Do(ctx, &Request{Method: http.MethodGet, Path: "/excel/files"})
	var abortErr *apierr.AbortError
	if !errors.As(err, &abortErr) {
		t.Fatalf("Do() error = %v, want AbortError", err)
	}
	if abortErr.Timeout {
		t.Error("Timeout = true for a caller cancel")
	}
}

func TestDoTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	_, err := New(addr).Do(context.Background(), &Request{Method: http.MethodGet, Path: "/excel/test"})
	var transportErr *apierr.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Do() error = %v, want TransportError", err)
	}
}

func TestDoPreservesEscapedPath(t *testing.T) {
	var rawPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawPath = r.URL.EscapedPath()
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	name := "Q1/Q2 rapor ü.xlsx"
	_, err := New(server.URL + "/api").Do(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/excel/sheets/" + url.PathEscape(name),
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	segment := strings.TrimPrefix(rawPath, "/api/excel/sheets/")
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		t.Fatalf("PathUnescape() error = %v", err)
	}
	if decoded != name {
		t.Errorf("decoded path segment = %q, want %q", decoded, name)
	}
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr any
		success bool
	}{
		{name: "success", status: 200, body: `{"success":true,"data":[1,2]}`, success: true},
		{name: "application failure is data", status: 200, body: `{"success":false,"message":"no"}`},
		{name: "status error", status: 404, body: `{"message":"missing"}`, wantErr: &apierr.HTTPStatusError{}},
		{name: "parse error", status: 200, body: `<html>`, wantErr: &apierr.ParseError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			env, err := Envelope[[]int](context.Background(), New(server.URL), &Request{Method: http.MethodGet, Path: "/x"})
			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("Envelope() error = %v", err)
				}
				if env.Success != tt.success {
					t.Errorf("Success = %v, want %v", env.Success, tt.success)
				}
			case *apierr.HTTPStatusError:
				if !errors.As(err, &want) {
					t.Errorf("error = %v, want HTTPStatusError", err)
				} else if want.Code != tt.status {
					t.Errorf("Code = %d, want %d", want.Code, tt.status)
				}
			case *apierr.ParseError:
				if !errors.As(err, &want) {
					t.Errorf("error = %v, want ParseError", err)
				}
			}
		})
	}
}

func TestRecorderSeesEveryCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	rec := &recorderStub{}
	exec := New(server.URL, WithRecorder(rec))
	ctx := context.Background()
	exec.Do(ctx, &Request{Method: http.MethodGet, Path: "/ok"})
	exec.Do(ctx, &Request{Method: http.MethodGet, Path: "/fail"})
	Binary(ctx, exec, &Request{Method: http.MethodGet, Path: "/fail"})

	if len(rec.calls) != 3 {
		t.Fatalf("recorded %d calls, want 3", len(rec.calls))
	}
	if rec.calls[1].Status != http.StatusInternalServerError {
		t.Errorf("calls[1].Status = %d", rec.calls[1].Status)
	}
}

func TestAttachmentName(t *testing.T) {
	resp := &Response{Header: http.Header{}}
	resp.Header.Set("Content-Disposition", `attachment; filename="export.xlsx"`)
	if got := AttachmentName(resp); got != "export.xlsx" {
		t.Errorf("AttachmentName() = %q", got)
	}
	if got := AttachmentName(&Response{Header: http.Header{}}); got != "" {
		t.Errorf("AttachmentName() = %q, want empty", got)
	}
}
