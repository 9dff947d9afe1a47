package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Envelope is the uniform wrapper the backend puts around every
// non-binary response.
type Envelope[T any] struct {
	Success bool   `json:"success" yaml:"success"`
	Data    T      `json:"data,omitempty" yaml:"data,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// MessageOr returns the backend message, or fallback when none was sent.
func (e Envelope[T]) MessageOr(fallback string) string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fallback
}

// Page is the paginated list shape returned by the history endpoints.
type Page[T any] struct {
	Data            []T  `json:"data" yaml:"data"`
	TotalCount      int  `json:"totalCount" yaml:"totalCount"`
	Page            int  `json:"page" yaml:"page"`
	PageSize        int  `json:"pageSize" yaml:"pageSize"`
	TotalPages      int  `json:"totalPages" yaml:"totalPages"`
	HasNextPage     bool `json:"hasNextPage" yaml:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage" yaml:"hasPreviousPage"`
}

// UnmarshalJSON accepts both the paginated object and a bare array.
// Older backends return the array directly.
func (p *Page[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*p = Page[T]{Data: items, TotalCount: len(items)}
		return nil
	}

	var raw struct {
		Data            []T  `json:"data"`
		TotalCount      int  `json:"totalCount"`
		Page            int  `json:"page"`
		PageSize        int  `json:"pageSize"`
		TotalPages      int  `json:"totalPages"`
		HasNextPage     bool `json:"hasNextPage"`
		HasPreviousPage bool `json:"hasPreviousPage"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*p = Page[T]{
		Data:            raw.Data,
		TotalCount:      raw.TotalCount,
		Page:            raw.Page,
		PageSize:        raw.PageSize,
		TotalPages:      raw.TotalPages,
		HasNextPage:     raw.HasNextPage,
		HasPreviousPage: raw.HasPreviousPage,
	}
	return nil
}

// Timestamp is a backend date. The backend is not consistent about zones
// and precision, so the raw string is kept when no known layout matches.
type Timestamp struct {
	time.Time
	Raw string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses s with the layouts the backend is known to emit.
func ParseTimestamp(s string) Timestamp {
	ts := Timestamp{Raw: s}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			ts.Time = parsed
			break
		}
	}
	return ts
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*t = ParseTimestamp(s)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		if t.Raw == "" {
			return []byte("null"), nil
		}
		return json.Marshal(t.Raw)
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// IsZero reports whether neither a parsed time nor a raw value is set.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero() && t.Raw == ""
}

func (t Timestamp) String() string {
	if !t.Time.IsZero() {
		return t.Time.Local().Format("2006-01-02 15:04")
	}
	return t.Raw
}

// ISOTime formats t the way the history endpoints expect date filters:
// UTC with millisecond precision.
func ISOTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// FormatScalar renders a cell value for display.
func FormatScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// CoerceLike converts edited text back to the kind of the original cell
// value, so numeric cells stay numeric when the input is a valid number.
func CoerceLike(original any, input string) any {
	switch original.(type) {
	case json.Number, float64:
		trimmed := strings.TrimSpace(input)
		if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return json.Number(trimmed)
		}
	case bool:
		if b, err := strconv.ParseBool(strings.TrimSpace(input)); err == nil {
			return b
		}
	case nil:
		if input == "" {
			return nil
		}
	}
	return input
}
