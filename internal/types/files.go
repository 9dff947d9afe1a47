package types

import (
	"bytes"
	"encoding/json"
)

// FileRecord is an uploaded workbook as listed by the backend.
// FileName is the key every other resource is addressed by.
type FileRecord struct {
	FileName    string    `json:"fileName" yaml:"fileName"`
	UploadDate  Timestamp `json:"uploadDate,omitzero" yaml:"uploadDate"`
	UploadedBy  string    `json:"uploadedBy" yaml:"uploadedBy"`
	Size        int64     `json:"size" yaml:"size"`
	RecordCount *int      `json:"recordCount,omitempty" yaml:"recordCount,omitempty"`
}

// Records returns the record count, zero when the backend did not send one.
func (f FileRecord) Records() int {
	if f.RecordCount == nil {
		return 0
	}
	return *f.RecordCount
}

// SheetRef names a worksheet inside a workbook.
type SheetRef struct {
	Name     string `json:"name" yaml:"name"`
	RowCount int    `json:"rowCount" yaml:"rowCount"`
}

// UnmarshalJSON accepts either {"name","rowCount"} or a bare sheet name.
func (s *SheetRef) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*s = SheetRef{Name: name}
		return nil
	}
	var raw struct {
		Name     string `json:"name"`
		RowCount int    `json:"rowCount"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*s = SheetRef{Name: raw.Name, RowCount: raw.RowCount}
	return nil
}

// DataRow is one spreadsheet row stored by the backend.
type DataRow struct {
	ID           int64      `json:"id" yaml:"id"`
	FileName     string     `json:"fileName" yaml:"fileName"`
	SheetName    string     `json:"sheetName" yaml:"sheetName"`
	RowIndex     int        `json:"rowIndex" yaml:"rowIndex"`
	Data         RowData    `json:"data" yaml:"data"`
	CreatedDate  Timestamp  `json:"createdDate,omitzero" yaml:"createdDate"`
	ModifiedDate *Timestamp `json:"modifiedDate,omitempty" yaml:"modifiedDate,omitempty"`
	Version      int        `json:"version" yaml:"version"`
	ModifiedBy   string     `json:"modifiedBy,omitempty" yaml:"modifiedBy,omitempty"`
}

// Columns returns the union of column names over rows, in first-seen order.
func Columns(rows []DataRow) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for _, key := range row.Data.Keys() {
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
		}
	}
	return cols
}

// DataUpdate replaces the data of a single row.
type DataUpdate struct {
	ID         int64   `json:"id" yaml:"id"`
	Data       RowData `json:"data" yaml:"data"`
	ModifiedBy string  `json:"modifiedBy,omitempty" yaml:"modifiedBy,omitempty"`
}

type BulkUpdate struct {
	Updates    []DataUpdate `json:"updates" yaml:"updates"`
	ModifiedBy string       `json:"modifiedBy,omitempty" yaml:"modifiedBy,omitempty"`
}

type AddRowRequest struct {
	FileName  string  `json:"fileName" yaml:"fileName"`
	SheetName string  `json:"sheetName" yaml:"sheetName"`
	RowData   RowData `json:"rowData" yaml:"rowData"`
	AddedBy   string  `json:"addedBy,omitempty" yaml:"addedBy,omitempty"`
}

// ExportRequest selects rows for a workbook export.
type ExportRequest struct {
	FileName                   string  `json:"fileName" yaml:"fileName"`
	SheetName                  string  `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	RowIDs                     []int64 `json:"rowIds,omitempty" yaml:"rowIds,omitempty"`
	IncludeModificationHistory bool    `json:"includeModificationHistory" yaml:"includeModificationHistory"`
}

type DataStatistics struct {
	TotalRows    int       `json:"totalRows" yaml:"totalRows"`
	TotalColumns int       `json:"totalColumns" yaml:"totalColumns"`
	LastModified Timestamp `json:"lastModified,omitzero" yaml:"lastModified"`
	ModifiedBy   string    `json:"modifiedBy" yaml:"modifiedBy"`
	Version      int       `json:"version" yaml:"version"`
}
