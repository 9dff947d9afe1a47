package types

type DifferenceType string

const (
	DifferenceModified DifferenceType = "Modified"
	DifferenceAdded    DifferenceType = "Added"
	DifferenceDeleted  DifferenceType = "Deleted"
)

// ComparisonResult is computed by the backend per request and never cached.
type ComparisonResult struct {
	ComparisonID   string            `json:"comparisonId" yaml:"comparisonId"`
	File1Name      string            `json:"file1Name" yaml:"file1Name"`
	File2Name      string            `json:"file2Name" yaml:"file2Name"`
	ComparisonDate Timestamp         `json:"comparisonDate,omitzero" yaml:"comparisonDate"`
	Differences    []Difference      `json:"differences" yaml:"differences"`
	Summary        ComparisonSummary `json:"summary" yaml:"summary"`
}

type Difference struct {
	RowIndex   int            `json:"rowIndex" yaml:"rowIndex"`
	ColumnName string         `json:"columnName" yaml:"columnName"`
	OldValue   any            `json:"oldValue" yaml:"oldValue"`
	NewValue   any            `json:"newValue" yaml:"newValue"`
	Type       DifferenceType `json:"type" yaml:"type"`
}

type ComparisonSummary struct {
	TotalRows     int `json:"totalRows" yaml:"totalRows"`
	ModifiedRows  int `json:"modifiedRows" yaml:"modifiedRows"`
	AddedRows     int `json:"addedRows" yaml:"addedRows"`
	DeletedRows   int `json:"deletedRows" yaml:"deletedRows"`
	UnchangedRows int `json:"unchangedRows" yaml:"unchangedRows"`
}

// Consistent reports whether the category counts add up to TotalRows.
func (s ComparisonSummary) Consistent() bool {
	return s.TotalRows == s.ModifiedRows+s.AddedRows+s.DeletedRows+s.UnchangedRows
}

// CountByType tallies differences per category.
func CountByType(diffs []Difference) map[DifferenceType]int {
	counts := make(map[DifferenceType]int, 3)
	for _, d := range diffs {
		counts[d.Type]++
	}
	return counts
}

type ComparisonFile struct {
	FileName   string    `json:"fileName" yaml:"fileName"`
	UploadDate Timestamp `json:"uploadDate,omitzero" yaml:"uploadDate"`
	UploadedBy string    `json:"uploadedBy" yaml:"uploadedBy"`
	Version    int       `json:"version" yaml:"version"`
}

type ComparisonVersion struct {
	ID         int64     `json:"id" yaml:"id"`
	FileName   string    `json:"fileName" yaml:"fileName"`
	Version    int       `json:"version" yaml:"version"`
	UploadDate Timestamp `json:"uploadDate,omitzero" yaml:"uploadDate"`
	UploadedBy string    `json:"uploadedBy" yaml:"uploadedBy"`
	Size       int64     `json:"size" yaml:"size"`
}

type ComparisonSettings struct {
	IgnoreCase        bool `json:"ignoreCase" yaml:"ignoreCase"`
	IgnoreWhitespace  bool `json:"ignoreWhitespace" yaml:"ignoreWhitespace"`
	CompareFormulas   bool `json:"compareFormulas" yaml:"compareFormulas"`
	CompareFormats    bool `json:"compareFormats" yaml:"compareFormats"`
	HighlightChanges  bool `json:"highlightChanges" yaml:"highlightChanges"`
	IncludeRowNumbers bool `json:"includeRowNumbers" yaml:"includeRowNumbers"`
}

// DefaultComparisonSettings are the settings a fresh comparison starts with.
func DefaultComparisonSettings() ComparisonSettings {
	return ComparisonSettings{
		IgnoreWhitespace:  true,
		HighlightChanges:  true,
		IncludeRowNumbers: true,
	}
}

// ComparisonTemplate is a saved settings preset. Some backends return the
// settings object bare, which lands in the embedded fields.
type ComparisonTemplate struct {
	Name        string              `json:"name,omitempty" yaml:"name,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Settings    *ComparisonSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
	ComparisonSettings
}

// Effective returns the nested settings when present, else the inline ones.
func (t ComparisonTemplate) Effective() ComparisonSettings {
	if t.Settings != nil {
		return *t.Settings
	}
	return t.ComparisonSettings
}

type CompareRequest struct {
	FileName1 string              `json:"fileName1" yaml:"fileName1"`
	FileName2 string              `json:"fileName2" yaml:"fileName2"`
	SheetName string              `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	Settings  *ComparisonSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

type CompareVersionsRequest struct {
	OldVersionID int64               `json:"oldVersionId" yaml:"oldVersionId"`
	NewVersionID int64               `json:"newVersionId" yaml:"newVersionId"`
	Settings     *ComparisonSettings `json:"settings,omitempty" yaml:"settings,omitempty"`
}

type SaveTemplateRequest struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Settings    ComparisonSettings `json:"settings" yaml:"settings"`
}

// CellDifference is a difference annotated with both file names.
type CellDifference struct {
	Difference
	FileName1  string  `json:"fileName1" yaml:"fileName1"`
	FileName2  string  `json:"fileName2" yaml:"fileName2"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DifferenceRange narrows a version diff. Nil bounds are not sent.
type DifferenceRange struct {
	SheetName string
	StartRow  *int
	EndRow    *int
}

type FileComparisonSummary struct {
	ComparisonID     string    `json:"comparisonId" yaml:"comparisonId"`
	FileName1        string    `json:"fileName1" yaml:"fileName1"`
	FileName2        string    `json:"fileName2" yaml:"fileName2"`
	TotalDifferences int       `json:"totalDifferences" yaml:"totalDifferences"`
	AddedRows        int       `json:"addedRows" yaml:"addedRows"`
	DeletedRows      int       `json:"deletedRows" yaml:"deletedRows"`
	ModifiedRows     int       `json:"modifiedRows" yaml:"modifiedRows"`
	ComparisonDate   Timestamp `json:"comparisonDate,omitzero" yaml:"comparisonDate"`
	ComparedBy       string    `json:"comparedBy" yaml:"comparedBy"`
}
