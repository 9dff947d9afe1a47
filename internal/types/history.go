package types

import (
	"net/url"
	"strconv"
	"time"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "Insert"
	ChangeUpdate ChangeType = "Update"
	ChangeDelete ChangeType = "Delete"
)

// ChangeRecord is one audit log entry. The history service and the older
// change feed use different field names; both decode into this struct.
type ChangeRecord struct {
	ID         int64      `json:"id" yaml:"id"`
	FileName   string     `json:"fileName" yaml:"fileName"`
	SheetName  string     `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	RowIndex   int        `json:"rowIndex,omitempty" yaml:"rowIndex,omitempty"`
	ColumnName string     `json:"columnName,omitempty" yaml:"columnName,omitempty"`
	OldValue   any        `json:"oldValue,omitempty" yaml:"oldValue,omitempty"`
	NewValue   any        `json:"newValue,omitempty" yaml:"newValue,omitempty"`
	ChangeType ChangeType `json:"changeType,omitempty" yaml:"changeType,omitempty"`
	ChangeDate Timestamp  `json:"changeDate,omitzero" yaml:"changeDate,omitempty"`
	ChangedBy  string     `json:"changedBy,omitempty" yaml:"changedBy,omitempty"`
	Version    int        `json:"version,omitempty" yaml:"version,omitempty"`

	Operation   string         `json:"operation,omitempty" yaml:"operation,omitempty"`
	DataID      *int64         `json:"dataId,omitempty" yaml:"dataId,omitempty"`
	UserID      string         `json:"userId,omitempty" yaml:"userId,omitempty"`
	UserName    string         `json:"userName,omitempty" yaml:"userName,omitempty"`
	Timestamp   Timestamp      `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Kind returns the change type, falling back to the operation name.
func (c ChangeRecord) Kind() string {
	if c.ChangeType != "" {
		return string(c.ChangeType)
	}
	return c.Operation
}

func (c ChangeRecord) When() Timestamp {
	if !c.ChangeDate.IsZero() {
		return c.ChangeDate
	}
	return c.Timestamp
}

func (c ChangeRecord) Actor() string {
	switch {
	case c.ChangedBy != "":
		return c.ChangedBy
	case c.UserName != "":
		return c.UserName
	default:
		return c.UserID
	}
}

// HistoryFilter holds the optional history filters. Unset fields are
// never sent.
type HistoryFilter struct {
	FileName  string
	Operation string
	UserID    string
	SheetName string
	StartDate *time.Time
	EndDate   *time.Time
	DataID    *int64
}

// Apply adds the present filters to q.
func (f HistoryFilter) Apply(q url.Values) {
	if f.FileName != "" {
		q.Set("fileName", f.FileName)
	}
	if f.Operation != "" {
		q.Set("operation", f.Operation)
	}
	if f.UserID != "" {
		q.Set("userId", f.UserID)
	}
	if f.StartDate != nil {
		q.Set("startDate", ISOTime(*f.StartDate))
	}
	if f.EndDate != nil {
		q.Set("endDate", ISOTime(*f.EndDate))
	}
	if f.SheetName != "" {
		q.Set("sheetName", f.SheetName)
	}
	if f.DataID != nil {
		q.Set("dataId", strconv.FormatInt(*f.DataID, 10))
	}
}

type HistoryStats struct {
	TotalChanges    int            `json:"totalChanges" yaml:"totalChanges"`
	OperationCounts map[string]int `json:"operationCounts,omitempty" yaml:"operationCounts,omitempty"`
	UserCounts      map[string]int `json:"userCounts,omitempty" yaml:"userCounts,omitempty"`
	FileCounts      map[string]int `json:"fileCounts,omitempty" yaml:"fileCounts,omitempty"`
	DailyActivity   []DailyCount   `json:"dailyActivity,omitempty" yaml:"dailyActivity,omitempty"`
	TopUsers        []UserCount    `json:"topUsers,omitempty" yaml:"topUsers,omitempty"`
	TopFiles        []FileCount    `json:"topFiles,omitempty" yaml:"topFiles,omitempty"`
}

type DailyCount struct {
	Date  string `json:"date" yaml:"date"`
	Count int    `json:"count" yaml:"count"`
}

type UserCount struct {
	UserID      string `json:"userId" yaml:"userId"`
	UserName    string `json:"userName" yaml:"userName"`
	ChangeCount int    `json:"changeCount" yaml:"changeCount"`
}

type FileCount struct {
	FileName    string `json:"fileName" yaml:"fileName"`
	ChangeCount int    `json:"changeCount" yaml:"changeCount"`
}

type RevertRequest struct {
	RevertedBy string `json:"revertedBy" yaml:"revertedBy"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ExportFormat is the output format of comparison and history exports.
type ExportFormat string

const (
	ExportExcel ExportFormat = "excel"
	ExportJSON  ExportFormat = "json"
	ExportCSV   ExportFormat = "csv"
)

// Extension returns the file extension matching the format.
func (f ExportFormat) Extension() string {
	switch f {
	case ExportJSON:
		return ".json"
	case ExportCSV:
		return ".csv"
	default:
		return ".xlsx"
	}
}
