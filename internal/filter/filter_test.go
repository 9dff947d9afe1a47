package filter

import (
	"reflect"
	"testing"
	"time"

	"github.com/studiowebux/sheetdesk/internal/types"
)

func TestApply(t *testing.T) {
	files := []types.FileRecord{
		{FileName: "a.xlsx", UploadedBy: "alice", Size: 10, UploadDate: types.Timestamp{Time: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}},
		{FileName: "b.xlsx", UploadedBy: "bob", Size: 20, UploadDate: types.Timestamp{Time: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}},
	}

	tests := []struct {
		name    string
		query   string
		want    any
		wantErr bool
	}{
		{"names", "[].fileName", []any{"a.xlsx", "b.xlsx"}, false},
		{"filter", "[?uploadedBy=='bob'].fileName | [0]", "b.xlsx", false},
		{"length", "length(@)", float64(2), false},
		{"missing", "[0].nothing", nil, false},
		{"invalid", "[?", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(files, tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestApplyEmptyQueryReturnsValue(t *testing.T) {
	in := map[string]int{"a": 1}
	got, err := Apply(in, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, in) {
		t.Errorf("Apply(empty) = %v, want input unchanged", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		query   string
		wantErr bool
	}{
		{"", false},
		{"data[].id", false},
		{"$(wc -c)", false},
		{"data[", true},
	}
	for _, tt := range tests {
		if err := Validate(tt.query); (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.query, err, tt.wantErr)
		}
	}
}
