package sheetmap

import (
	"context"
	"fmt"
)

// ProcessOptions tunes one sheet analysis.
type ProcessOptions struct {
	// SelectedTable is an optional pre-selected target: an existing table
	// name or a "new:<name>" sentinel. A valid pre-selection always wins
	// over the ranked suggestions; an invalid one falls back to them.
	SelectedTable string
	// RequireReview disables auto-approval of high-confidence mappings
	RequireReview bool
	// PriorMappings pre-populates column mappings from a previously
	// approved template instead of recomputing them
	PriorMappings map[string]*ColumnMapping
}

// ProcessSheet analyzes one sheet against the schema snapshot and returns
// its complete processing state. It is a pure function of its inputs and
// never fails across the call boundary: analysis problems are recorded in
// the returned state, per header where possible, on the sheet as a whole
// otherwise. Invocations are independent and hold no shared mutable
// state, so callers may run them sequentially or in parallel.
func (e *Engine) ProcessSheet(ctx context.Context, sheet SheetSnapshot, schema SchemaSnapshot, opts ProcessOptions) (state *SheetState) {
	state = &SheetState{
		SheetName:    sheet.SheetName,
		Headers:      sheet.Headers,
		SampleData:   sheet.SampleData,
		RowCount:     sheet.RowCount,
		Status:       SheetAnalyzing,
		ReviewStatus: SheetReviewPending,
	}

	defer func() {
		if r := recover(); r != nil {
			state.Status = SheetError
			state.Err = fmt.Sprintf("sheet analysis failed: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		state.Status = SheetError
		state.Err = ErrContextCancelled.Error()
		return state
	}
	if len(sheet.Headers) == 0 {
		state.Status = SheetError
		state.Err = ErrEmptySheet.Error()
		return state
	}

	state.TableSuggestions = e.RankTables(sheet, schema)
	e.resolveTargetTable(state, schema, opts.SelectedTable)

	// Offer a synthesized new-table proposal whenever no existing table
	// matched confidently and the user has not already picked one.
	if state.SelectedTable == "" || state.IsNewTable {
		state.TableSuggestions = append(state.TableSuggestions, newTableSuggestion(sheet.SheetName))
	}

	if err := ctx.Err(); err != nil {
		state.Status = SheetError
		state.Err = ErrContextCancelled.Error()
		return state
	}

	inferred := inferHeaderTypes(sheet)
	switch {
	case opts.PriorMappings != nil:
		state.ColumnMappings = cloneMappings(opts.PriorMappings)
	case state.SelectedTable == "":
		state.ColumnMappings = pendingMappings(sheet, inferred)
	case state.IsNewTable:
		state.ColumnMappings = e.buildMappings(sheet, nil, inferred, true, false)
	default:
		table, _ := schema.Table(state.SelectedTable)
		suggestions := e.RankColumns(sheet, table)
		autoApprove := !opts.RequireReview
		state.ColumnMappings = e.buildMappings(sheet, suggestions, inferred, false, autoApprove)
	}

	if state.SelectedTable == "" {
		state.Status = SheetNeedsReview
	} else {
		state.Status = SheetReady
	}
	state.refreshSchemaProposals()
	state.refreshReviewStatus()
	return state
}

// resolveTargetTable picks the sheet's destination table. A valid caller
// pre-selection is never overridden by the heuristics; an invalid one
// silently falls back to the ranked suggestions, since failing the sheet
// would leave it unmapped either way. Without a pre-selection the top
// suggestion is adopted only at high confidence; anything weaker is left
// for the user to confirm.
func (e *Engine) resolveTargetTable(state *SheetState, schema SchemaSnapshot, preselected string) {
	if preselected != "" {
		if IsNewTableSelection(preselected) {
			state.SelectedTable = preselected
			state.IsNewTable = true
			state.TableConfidenceScore = 1
			return
		}
		if _, ok := schema.Table(preselected); ok {
			state.SelectedTable = preselected
			state.TableConfidenceScore = e.suggestionScore(state.TableSuggestions, preselected)
			return
		}
	}

	for _, suggestion := range state.TableSuggestions {
		if suggestion.IsNewTableProposal {
			continue
		}
		if suggestion.ConfidenceLevel == ConfidenceHigh {
			state.SelectedTable = suggestion.TableName
			state.TableConfidenceScore = suggestion.ConfidenceScore
		}
		return // only the top-ranked entry is considered
	}
}

// suggestionScore finds the ranked score for a table, or 1 for an
// explicit user choice the ranker did not surface.
func (e *Engine) suggestionScore(suggestions []TableSuggestion, tableName string) float64 {
	for _, s := range suggestions {
		if s.TableName == tableName && !s.IsNewTableProposal {
			return s.ConfidenceScore
		}
	}
	return 1
}

// pendingMappings builds placeholder records for a sheet with no resolved
// target. Types are already inferred so the review UI can display them;
// actions stay skip until a table is chosen.
func pendingMappings(sheet SheetSnapshot, inferred map[string]InferredType) map[string]*ColumnMapping {
	mappings := make(map[string]*ColumnMapping, len(sheet.Headers))
	for _, header := range sheet.Headers {
		mappings[header] = &ColumnMapping{
			Header:          header,
			SampleValue:     sheet.firstSampleValue(header),
			Action:          ActionSkip,
			InferredType:    inferred[header],
			ConfidenceLevel: ConfidenceLow,
			Status:          MappingPending,
			ReviewStatus:    ReviewPending,
		}
	}
	return mappings
}

// cloneMappings deep-copies a prior mapping seed so the new state never
// aliases the template storage.
func cloneMappings(prior map[string]*ColumnMapping) map[string]*ColumnMapping {
	mappings := make(map[string]*ColumnMapping, len(prior))
	for header, mapping := range prior {
		copied := *mapping
		if mapping.NewColumn != nil {
			proposal := *mapping.NewColumn
			copied.NewColumn = &proposal
		}
		copied.SuggestedColumns = append([]ColumnSuggestion(nil), mapping.SuggestedColumns...)
		mappings[header] = &copied
	}
	return mappings
}

// MarkCommitting records that the external import layer started writing
// the sheet. Errored sheets are left untouched.
func (s *SheetState) MarkCommitting() {
	if s.Status == SheetError {
		return
	}
	s.Status = SheetCommitting
}

// MarkCommitted records that the external import layer finished writing.
// Errored sheets are left untouched: a failed sheet never becomes committed.
func (s *SheetState) MarkCommitted() {
	if s.Status == SheetError {
		return
	}
	s.Status = SheetCommitted
}

// MarkCommitFailed records an import failure reported by the external
// import layer. A sheet that already failed keeps its original error.
func (s *SheetState) MarkCommitFailed(message string) {
	if s.Status == SheetError {
		return
	}
	s.Status = SheetError
	s.Err = message
}
