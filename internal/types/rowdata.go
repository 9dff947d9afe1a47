package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RowData is a column→value mapping that remembers the column order the
// backend sent, so tables render columns the way the sheet has them.
type RowData struct {
	keys   []string
	values map[string]any
}

// NewRowData builds a RowData from alternating key/value pairs.
func NewRowData(pairs ...any) RowData {
	var r RowData
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

func (r RowData) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r RowData) Len() int {
	return len(r.keys)
}

func (r RowData) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Set replaces the value for key, appending the key if it is new.
func (r *RowData) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r RowData) Clone() RowData {
	out := RowData{keys: append([]string(nil), r.keys...), values: make(map[string]any, len(r.values))}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Map returns an unordered copy.
func (r RowData) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *RowData) UnmarshalJSON(b []byte) error {
	*r = RowData{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("row data: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row data: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("row data: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("row data: unexpected key %v", keyTok)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("row data %q: %w", key, err)
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

func (r RowData) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("row data %q: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r RowData) MarshalYAML() (interface{}, error) {
	return r.Map(), nil
}
