package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/studiowebux/sheetdesk/internal/apierr"
	"github.com/studiowebux/sheetdesk/internal/types"
)

// DefaultTimeout bounds every request unless the profile overrides it.
const DefaultTimeout = 30 * time.Second

// Doer executes a request. *Executor is the production implementation.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request describes one backend call. Path must already be escaped.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Form    *Form
	Headers map[string]string
}

// Form is a multipart body.
type Form struct {
	Fields []FormField
	Files  []FormFile
}

type FormField struct {
	Name  string
	Value string
}

type FormFile struct {
	Field    string
	FileName string
	Data     []byte
}

type Response struct {
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// Call is what the Recorder sees for each executed request.
type Call struct {
	StartedAt    time.Time
	Method       string
	URL          string
	Status       int
	Duration     time.Duration
	RequestSize  int
	ResponseSize int
	Err          error
}

type Recorder interface {
	Record(call Call)
}

type Executor struct {
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	headers  map[string]string
	recorder Recorder
	logger   *slog.Logger
}

type Option func(*Executor)

func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithHeaders adds headers to the default set.
func WithHeaders(headers map[string]string) Option {
	return func(e *Executor) {
		maps.Copy(e.headers, headers)
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(e *Executor) {
		if client != nil {
			e.client = client
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// DefaultHeaders returns the headers every request starts from.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

func New(baseURL string, opts ...Option) *Executor {
	e := &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: http.DefaultTransport},
		timeout: DefaultTimeout,
		headers: DefaultHeaders(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) BaseURL() string { return e.baseURL }

func (e *Executor) Timeout() time.Duration { return e.timeout }

// Headers returns a copy of the default header set.
func (e *Executor) Headers() map[string]string { return maps.Clone(e.headers) }

// URL joins the base URL with an escaped path and the query.
func (e *Executor) URL(path string, query url.Values) string {
	target := e.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// Do sends req once, bounded by the executor timeout.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	target := e.URL(req.Path, req.Query)
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	requestSize := body.Len()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range e.headers {
		if req.Form != nil && strings.EqualFold(key, "Content-Type") {
			continue
		}
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	call := Call{StartedAt: time.Now(), Method: req.Method, URL: target, RequestSize: requestSize}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		err = e.wrapError(ctx, req.Method, target, err)
		e.finish(call, nil, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err = e.wrapError(ctx, req.Method, target, fmt.Errorf("failed to read response body: %w", err))
		e.finish(call, nil, err)
		return nil, err
	}

	result := &Response{
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Header:     resp.Header,
		Body:       data,
		Duration:   time.Since(call.StartedAt),
	}
	e.finish(call, result, nil)
	return result, nil
}

func (e *Executor) wrapError(ctx context.Context, method, target string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &apierr.AbortError{
			Timeout: errors.Is(ctxErr, context.DeadlineExceeded),
			After:   e.timeout,
			Err:     err,
		}
	}
	return &apierr.TransportError{Method: method, URL: target, Err: err}
}

func (e *Executor) finish(call Call, resp *Response, err error) {
	call.Duration = time.Since(call.StartedAt)
	call.Err = err
	if resp != nil {
		call.Status = resp.Status
		call.ResponseSize = len(resp.Body)
	}

	if err != nil {
		e.logger.Debug("request failed", "method", call.Method, "url", call.URL, "duration", call.Duration, "error", err)
	} else {
		e.logger.Debug("request", "method", call.Method, "url", call.URL, "status", call.Status, "duration", call.Duration)
	}

	if e.recorder != nil {
		e.recorder.Record(call)
	}
}

func encodeBody(req *Request) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	if req.Form != nil {
		w := multipart.NewWriter(buf)
		for _, f := range req.Form.Files {
			part, err := w.CreateFormFile(f.Field, f.FileName)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(f.Data); err != nil {
				return nil, "", err
			}
		}
		for _, f := range req.Form.Fields {
			if err := w.WriteField(f.Name, f.Value); err != nil {
				return nil, "", err
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf, w.FormDataContentType(), nil
	}
	if req.Body == nil {
		return buf, "", nil
	}
	if err := json.NewEncoder(buf).Encode(req.Body); err != nil {
		return nil, "", err
	}
	return buf, "", nil
}

// DecodeEnvelope turns a response into an envelope. The envelope is
// returned as-is when success is false.
func DecodeEnvelope[T any](resp *Response) (types.Envelope[T], error) {
	var env types.Envelope[T]
	if !IsSuccessStatus(resp.Status) {
		return env, &apierr.HTTPStatusError{Code: resp.Status, Status: resp.StatusText, Body: resp.Body}
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return env, &apierr.ParseError{Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return env, &apierr.ParseError{Err: err}
	}
	return env, nil
}

// Envelope executes req and decodes the JSON envelope.
func Envelope[T any](ctx context.Context, d Doer, req *Request) (types.Envelope[T], error) {
	resp, err := d.Do(ctx, req)
	if err != nil {
		var zero types.Envelope[T]
		return zero, err
	}
	return DecodeEnvelope[T](resp)
}

// Binary executes req and returns the raw body.
func Binary(ctx context.Context, d Doer, req *Request) (*Response, error) {
	resp, err := d.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !IsSuccessStatus(resp.Status) {
		return nil, &apierr.HTTPStatusError{Code: resp.Status, Status: resp.StatusText, Body: resp.Body}
	}
	return resp, nil
}

// AttachmentName returns the file name from Content-Disposition, if any.
func AttachmentName(resp *Response) string {
	if resp == nil {
		return ""
	}
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

// FormatDuration formats a duration to a short human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// IsSuccessStatus returns true if status code is 2xx
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
