package sheetmap

import (
	"sort"
	"strings"
)

// Ranking constants
const (
	// DefaultTableSuggestionLimit is the default number of ranked table candidates per sheet
	DefaultTableSuggestionLimit = 5
	// DefaultColumnSuggestionLimit is the default number of ranked column candidates per header
	DefaultColumnSuggestionLimit = 3
	// DefaultSampleRows is the default number of data rows retained in a SheetSnapshot sample
	DefaultSampleRows = 50
	// MaxIdentifierLength is the longest SQL identifier produced by sanitization (Postgres limit)
	MaxIdentifierLength = 63
)

// Confidence thresholds. These values are empirically chosen; they are
// exposed as named constants so deployments can retune them through
// EngineBuilder without touching the ranking code.
const (
	// HighConfidenceThreshold is the minimum score for ConfidenceHigh
	HighConfidenceThreshold = 0.8
	// MediumConfidenceThreshold is the minimum score for ConfidenceMedium
	MediumConfidenceThreshold = 0.5
	// MinTableScore filters out table candidates with negligible combined scores
	MinTableScore = 0.1
	// PerfectNameTypeMismatchScore is awarded when names match exactly but types do not
	PerfectNameTypeMismatchScore = 0.9
)

// newTablePrefix marks a selected table that does not exist yet.
const newTablePrefix = "new:"

// NewTableSelection returns the selectedTable sentinel for a table that
// should be created with the given name.
func NewTableSelection(name string) string {
	return newTablePrefix + name
}

// IsNewTableSelection reports whether a selectedTable value is a new-table sentinel.
func IsNewTableSelection(selected string) bool {
	return strings.HasPrefix(selected, newTablePrefix)
}

// NewTableName extracts the table name from a new-table sentinel.
// It returns the input unchanged when the sentinel prefix is absent.
func NewTableName(selected string) string {
	return strings.TrimPrefix(selected, newTablePrefix)
}

// InferredType is the semantic type assigned to a column by type inference.
type InferredType string

const (
	// TypeString represents free-text columns
	TypeString InferredType = "string"
	// TypeNumber represents numeric columns
	TypeNumber InferredType = "number"
	// TypeBoolean represents boolean columns
	TypeBoolean InferredType = "boolean"
	// TypeDate represents date or timestamp columns
	TypeDate InferredType = "date"
)

// SQLType returns the SQL column type used when a new column is created
// for a column of this inferred type.
func (t InferredType) SQLType() string {
	switch t {
	case TypeNumber:
		return "NUMERIC"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "TIMESTAMP WITH TIME ZONE"
	default:
		return "TEXT"
	}
}

// ConfidenceLevel is the discretized bucket derived from a confidence score.
type ConfidenceLevel string

const (
	// ConfidenceHigh indicates a score at or above HighConfidenceThreshold
	ConfidenceHigh ConfidenceLevel = "high"
	// ConfidenceMedium indicates a score at or above MediumConfidenceThreshold
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceLow indicates a score below MediumConfidenceThreshold
	ConfidenceLow ConfidenceLevel = "low"
)

// confidenceLevelOf buckets a continuous score into a ConfidenceLevel.
func confidenceLevelOf(score float64) ConfidenceLevel {
	switch {
	case score >= HighConfidenceThreshold:
		return ConfidenceHigh
	case score >= MediumConfidenceThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// MappingAction is the resolved action for one header.
type MappingAction string

const (
	// ActionMap writes the header's values into an existing column
	ActionMap MappingAction = "map"
	// ActionCreate proposes a new column for the header
	ActionCreate MappingAction = "create"
	// ActionSkip drops the header from the import
	ActionSkip MappingAction = "skip"
)

// MappingStatus is the mechanical processing status of one header's mapping.
type MappingStatus string

const (
	// MappingPending means inference has not produced a suggestion yet
	MappingPending MappingStatus = "pending"
	// MappingSuggested means inference produced the current mapping
	MappingSuggested MappingStatus = "suggested"
	// MappingUserModified means a user edit replaced the inferred mapping
	MappingUserModified MappingStatus = "userModified"
	// MappingError means inference failed for this header
	MappingError MappingStatus = "error"
)

// ReviewStatus is the human-approval state of a mapping decision.
type ReviewStatus string

const (
	// ReviewPending means the mapping awaits human review
	ReviewPending ReviewStatus = "pending"
	// ReviewApproved means the mapping was accepted
	ReviewApproved ReviewStatus = "approved"
	// ReviewModified means the mapping was edited and then accepted
	ReviewModified ReviewStatus = "modified"
	// ReviewRejected means the mapping was declined
	ReviewRejected ReviewStatus = "rejected"
)

// SheetStatus is the lifecycle state of a sheet in the import workflow.
type SheetStatus string

const (
	// SheetPending means the sheet was read but not yet analyzed
	SheetPending SheetStatus = "pending"
	// SheetAnalyzing means the sheet has been handed to inference
	SheetAnalyzing SheetStatus = "analyzing"
	// SheetProcessing means re-analysis after a table change is underway
	SheetProcessing SheetStatus = "processing"
	// SheetReady means inference resolved a target table
	SheetReady SheetStatus = "ready"
	// SheetNeedsReview means no target table could be resolved
	SheetNeedsReview SheetStatus = "needsReview"
	// SheetCommitting means the external import layer is writing rows
	SheetCommitting SheetStatus = "committing"
	// SheetCommitted means the external import layer finished writing
	SheetCommitted SheetStatus = "committed"
	// SheetError means analysis or import failed for the whole sheet
	SheetError SheetStatus = "error"
)

// SheetReviewStatus is the aggregate human-approval state of a sheet.
type SheetReviewStatus string

const (
	// SheetReviewPending means no mapping on the sheet has been approved
	SheetReviewPending SheetReviewStatus = "pending"
	// SheetReviewApproved means every mapping on the sheet is approved
	SheetReviewApproved SheetReviewStatus = "approved"
	// SheetReviewRejected means the sheet was declined as a whole
	SheetReviewRejected SheetReviewStatus = "rejected"
	// SheetReviewPartial means some but not all mappings are approved
	SheetReviewPartial SheetReviewStatus = "partiallyApproved"
)

// SheetSnapshot is the immutable per-sheet input to the engine: the sheet
// name, its headers in spreadsheet order, a bounded sample of data rows
// keyed by header, and the total row count. Sample rows are used only for
// inference and are never written.
type SheetSnapshot struct {
	// SheetName is the spreadsheet tab name
	SheetName string
	// Headers are the column headers in insertion order
	Headers []string
	// SampleData is a bounded sample of rows, each keyed by header
	SampleData []map[string]any
	// RowCount is the total number of data rows in the sheet
	RowCount int
}

// columnValues collects the sampled values for one header in row order.
func (s SheetSnapshot) columnValues(header string) []any {
	values := make([]any, 0, len(s.SampleData))
	for _, row := range s.SampleData {
		values = append(values, row[header])
	}
	return values
}

// firstSampleValue returns the first non-empty sampled value for a header,
// or nil when every sampled value is empty.
func (s SheetSnapshot) firstSampleValue(header string) any {
	for _, row := range s.SampleData {
		if v, ok := row[header]; ok && !isEmptyValue(v) {
			return v
		}
	}
	return nil
}

// ColumnSnapshot describes one column of a destination table.
type ColumnSnapshot struct {
	// Name is the column name
	Name string
	// DataType is the declared SQL data type
	DataType string
	// IsNullable reports whether the column accepts NULL
	IsNullable bool
}

// TableSnapshot describes one destination table.
type TableSnapshot struct {
	// Name is the table name
	Name string
	// Columns are the table's columns
	Columns []ColumnSnapshot
}

// SchemaSnapshot is a read-only view of the destination database, loaded
// once per import session. The engine never mutates it; creation of new
// tables and columns is requested through proposals and executed by the
// external persistence layer.
type SchemaSnapshot struct {
	// Tables maps table name to its snapshot
	Tables map[string]TableSnapshot
}

// Table looks up a table by name.
func (s SchemaSnapshot) Table(name string) (TableSnapshot, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// TableNames returns the schema's table names in sorted order so that
// iteration over candidates is deterministic.
func (s SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableSuggestion is one ranked destination-table candidate for a sheet.
type TableSuggestion struct {
	// TableName is the candidate table, or the synthesized name for a new table
	TableName string
	// ConfidenceScore is the combined heuristic score in [0,1]
	ConfidenceScore float64
	// ConfidenceLevel is the discretized bucket of ConfidenceScore
	ConfidenceLevel ConfidenceLevel
	// IsNewTableProposal marks the single synthesized new-table entry
	IsNewTableProposal bool
}

// ColumnSuggestion is one ranked destination-column candidate for a header.
type ColumnSuggestion struct {
	// ColumnName is the candidate column
	ColumnName string
	// ConfidenceScore is the combined heuristic score in [0,1]
	ConfidenceScore float64
	// IsTypeCompatible reports whether the inferred type fits the column's SQL type
	IsTypeCompatible bool
	// ConfidenceLevel is the discretized bucket of ConfidenceScore
	ConfidenceLevel ConfidenceLevel
}

// NewColumnProposal is a structured request to create a column that does
// not exist yet. It is generated from inference and requires explicit
// approval before the schema-migration collaborator executes it.
type NewColumnProposal struct {
	// ColumnName is the SQL-safe identifier derived from the header
	ColumnName string
	// SQLType is the proposed SQL column type
	SQLType string
	// IsNullable reports whether the proposed column accepts NULL
	IsNullable bool
	// SourceSheet is the sheet the proposal originated from
	SourceSheet string
	// SourceHeader is the header the proposal originated from
	SourceHeader string
}

// ColumnMapping is the per-header mapping record, the core mutable unit
// reviewed by the user.
//
// Invariants:
//   - Action == ActionMap implies MappedColumn != "" and NewColumn == nil
//   - Action == ActionCreate implies NewColumn != nil and MappedColumn == NewColumn.ColumnName
//   - Action == ActionSkip implies MappedColumn == "" and NewColumn == nil
type ColumnMapping struct {
	// Header is the spreadsheet header this mapping belongs to
	Header string
	// SampleValue is the first non-empty sampled value, for review display
	SampleValue any
	// Action is the resolved action for the header
	Action MappingAction
	// MappedColumn is the destination column for ActionMap and ActionCreate
	MappedColumn string
	// NewColumn is the proposal attached to ActionCreate
	NewColumn *NewColumnProposal
	// SuggestedColumns are the ranked candidates shown during review
	SuggestedColumns []ColumnSuggestion
	// InferredType is the semantic type inferred from samples and header
	InferredType InferredType
	// ConfidenceScore is the top suggestion's score, or 0 when none exists
	ConfidenceScore float64
	// ConfidenceLevel is the discretized bucket of ConfidenceScore
	ConfidenceLevel ConfidenceLevel
	// Status is the mechanical processing status
	Status MappingStatus
	// ReviewStatus is the human-approval state
	ReviewStatus ReviewStatus
	// Err holds the per-header inference error message when Status is MappingError
	Err string
}

// SheetState is the aggregate per-sheet output of the engine, consumed by
// the review UI and, after approval, by the external import layer.
type SheetState struct {
	// SheetName identifies the sheet; it is the upsert key for sessions
	SheetName string
	// Headers are the sheet headers in spreadsheet order
	Headers []string
	// SampleData is the bounded sample carried through from the snapshot
	SampleData []map[string]any
	// RowCount is the total number of data rows
	RowCount int
	// SelectedTable is the resolved target: an existing table name, a
	// "new:<name>" sentinel, or "" when no target was resolved
	SelectedTable string
	// IsNewTable reports whether SelectedTable is a new-table sentinel
	IsNewTable bool
	// TableSuggestions are the ranked table candidates
	TableSuggestions []TableSuggestion
	// TableConfidenceScore is the resolved table's suggestion score
	TableConfidenceScore float64
	// ColumnMappings maps header to its mapping record
	ColumnMappings map[string]*ColumnMapping
	// SchemaProposals flattens every NewColumnProposal for create-table flows
	SchemaProposals []NewColumnProposal
	// Status is the sheet lifecycle state
	Status SheetStatus
	// ReviewStatus is the aggregate human-approval state
	ReviewStatus SheetReviewStatus
	// Err holds the sheet-level error message when Status is SheetError
	Err string
}

// Mapping returns the mapping record for a header.
func (s *SheetState) Mapping(header string) (*ColumnMapping, bool) {
	m, ok := s.ColumnMappings[header]
	return m, ok
}

// refreshSchemaProposals rebuilds the flattened proposal list from the
// current column mappings, preserving header order.
func (s *SheetState) refreshSchemaProposals() {
	s.SchemaProposals = s.SchemaProposals[:0]
	for _, header := range s.Headers {
		m, ok := s.ColumnMappings[header]
		if !ok || m.NewColumn == nil || m.Action != ActionCreate {
			continue
		}
		s.SchemaProposals = append(s.SchemaProposals, *m.NewColumn)
	}
}

// refreshReviewStatus recomputes the aggregate review status from the
// per-header review states. Errored and skipped headers do not count
// against approval.
func (s *SheetState) refreshReviewStatus() {
	if s.ReviewStatus == SheetReviewRejected {
		return
	}
	total := 0
	approved := 0
	for _, header := range s.Headers {
		m, ok := s.ColumnMappings[header]
		if !ok || m.Status == MappingError || m.Action == ActionSkip {
			continue
		}
		total++
		if m.ReviewStatus == ReviewApproved || m.ReviewStatus == ReviewModified {
			approved++
		}
	}
	switch {
	case total == 0 || approved == 0:
		s.ReviewStatus = SheetReviewPending
	case approved == total:
		s.ReviewStatus = SheetReviewApproved
	default:
		s.ReviewStatus = SheetReviewPartial
	}
}

// SanitizeIdentifier converts a free-text header or sheet name into a
// SQL-safe identifier: lowercase, non [a-z0-9_] replaced with underscores,
// underscore runs collapsed, leading and trailing underscores stripped,
// truncated to MaxIdentifierLength, and prefixed with an underscore when
// the result starts with a digit.
func SanitizeIdentifier(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range lowered {
		valid := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case valid:
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	result := strings.Trim(b.String(), "_")
	if len(result) > MaxIdentifierLength {
		result = strings.Trim(result[:MaxIdentifierLength], "_")
	}
	if result == "" {
		return "column"
	}
	if result[0] >= '0' && result[0] <= '9' {
		result = "_" + result
	}
	return result
}

// isEmptyValue reports whether a sampled cell value carries no information
// for inference: nil or a blank string.
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
