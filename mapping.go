package sheetmap

import (
	"fmt"
)

// buildMappings turns ranked column suggestions into the per-header
// mapping records, applying the confidence decision table:
//
//   - High top suggestion: map, auto-approved only when the target table
//     pre-exists and the caller did not demand review
//   - Medium top suggestion: map, awaiting human approval
//   - below Medium or no suggestion: propose a new column
//
// For a brand-new target table every header resolves to a create proposal
// regardless of suggestion scores, since there is no existing schema to
// map onto. Each header is built in isolation: a failure is recorded on
// that header's record and never aborts the sheet.
func (e *Engine) buildMappings(sheet SheetSnapshot, suggestions map[string][]ColumnSuggestion, inferred map[string]InferredType, isNewTable, autoApprove bool) map[string]*ColumnMapping {
	mappings := make(map[string]*ColumnMapping, len(sheet.Headers))
	for _, header := range sheet.Headers {
		mappings[header] = e.buildMapping(sheet, header, suggestions[header], inferred[header], isNewTable, autoApprove)
	}
	return mappings
}

// buildMapping builds one header's record, converting panics from
// malformed sample data into a per-header error status.
func (e *Engine) buildMapping(sheet SheetSnapshot, header string, ranked []ColumnSuggestion, inferredType InferredType, isNewTable, autoApprove bool) (mapping *ColumnMapping) {
	defer func() {
		if r := recover(); r != nil {
			mapping = &ColumnMapping{
				Header:       header,
				InferredType: TypeString,
				Status:       MappingError,
				ReviewStatus: ReviewPending,
				Err:          fmt.Sprintf("column analysis failed: %v", r),
			}
		}
	}()

	mapping = &ColumnMapping{
		Header:           header,
		SampleValue:      sheet.firstSampleValue(header),
		SuggestedColumns: ranked,
		InferredType:     inferredType,
		Status:           MappingSuggested,
		ReviewStatus:     ReviewPending,
	}

	var top *ColumnSuggestion
	if len(ranked) > 0 {
		top = &ranked[0]
		mapping.ConfidenceScore = top.ConfidenceScore
		mapping.ConfidenceLevel = top.ConfidenceLevel
	} else {
		mapping.ConfidenceLevel = ConfidenceLow
	}

	if isNewTable || top == nil || top.ConfidenceLevel == ConfidenceLow {
		proposal := e.proposalForHeader(sheet, header, inferredType)
		mapping.Action = ActionCreate
		mapping.NewColumn = &proposal
		mapping.MappedColumn = proposal.ColumnName
		return mapping
	}

	mapping.Action = ActionMap
	mapping.MappedColumn = top.ColumnName
	if top.ConfidenceLevel == ConfidenceHigh && autoApprove {
		mapping.ReviewStatus = ReviewApproved
	}
	return mapping
}

// proposalForHeader synthesizes the new-column proposal for an unmatched
// header. Proposed columns are nullable so existing rows in the target
// table stay valid.
func (e *Engine) proposalForHeader(sheet SheetSnapshot, header string, inferredType InferredType) NewColumnProposal {
	return NewColumnProposal{
		ColumnName:   SanitizeIdentifier(header),
		SQLType:      inferredType.SQLType(),
		IsNullable:   true,
		SourceSheet:  sheet.SheetName,
		SourceHeader: header,
	}
}

// unknownHeader builds the error for an edit addressing a header the
// sheet does not hold.
func (s *SheetState) unknownHeader(header string) error {
	return NewErrorContext("mapping edit", s.SheetName).
		WithHeader(header).
		Error(ErrUnknownHeader)
}

// MapHeader is a user edit pointing a header at an existing column. The
// record becomes userModified and its approval resets to pending.
func (s *SheetState) MapHeader(header, column string) error {
	mapping, ok := s.ColumnMappings[header]
	if !ok {
		return s.unknownHeader(header)
	}
	mapping.Action = ActionMap
	mapping.MappedColumn = column
	mapping.NewColumn = nil
	mapping.Status = MappingUserModified
	mapping.ReviewStatus = ReviewPending
	mapping.Err = ""
	s.refreshSchemaProposals()
	s.refreshReviewStatus()
	return nil
}

// CreateHeader is a user edit replacing a header's mapping with a
// new-column proposal. The record becomes userModified and its approval
// resets to pending.
func (s *SheetState) CreateHeader(header string, proposal NewColumnProposal) error {
	mapping, ok := s.ColumnMappings[header]
	if !ok {
		return s.unknownHeader(header)
	}
	proposal.ColumnName = SanitizeIdentifier(proposal.ColumnName)
	if proposal.SourceSheet == "" {
		proposal.SourceSheet = s.SheetName
	}
	if proposal.SourceHeader == "" {
		proposal.SourceHeader = header
	}
	mapping.Action = ActionCreate
	mapping.NewColumn = &proposal
	mapping.MappedColumn = proposal.ColumnName
	mapping.Status = MappingUserModified
	mapping.ReviewStatus = ReviewPending
	mapping.Err = ""
	s.refreshSchemaProposals()
	s.refreshReviewStatus()
	return nil
}

// SkipHeader is a user edit dropping a header from the import. Skipping
// is an explicit decision, so the record counts as reviewed.
func (s *SheetState) SkipHeader(header string) error {
	mapping, ok := s.ColumnMappings[header]
	if !ok {
		return s.unknownHeader(header)
	}
	mapping.Action = ActionSkip
	mapping.MappedColumn = ""
	mapping.NewColumn = nil
	mapping.Status = MappingUserModified
	mapping.ReviewStatus = ReviewApproved
	mapping.Err = ""
	s.refreshSchemaProposals()
	s.refreshReviewStatus()
	return nil
}

// ApproveHeader marks a header's mapping as accepted. A mapping the user
// previously edited is recorded as modified rather than approved. Errored
// records sit outside the review flow entirely, so approving one is a
// no-op, matching their exclusion from ApproveAllHeaders and from the
// sheet-level review aggregate.
func (s *SheetState) ApproveHeader(header string) error {
	mapping, ok := s.ColumnMappings[header]
	if !ok {
		return s.unknownHeader(header)
	}
	if mapping.Status == MappingError {
		return nil
	}
	if mapping.Status == MappingUserModified {
		mapping.ReviewStatus = ReviewModified
	} else {
		mapping.ReviewStatus = ReviewApproved
	}
	s.refreshReviewStatus()
	return nil
}

// RejectHeader marks a header's mapping as declined.
func (s *SheetState) RejectHeader(header string) error {
	mapping, ok := s.ColumnMappings[header]
	if !ok {
		return s.unknownHeader(header)
	}
	mapping.ReviewStatus = ReviewRejected
	s.refreshReviewStatus()
	return nil
}

// ApproveAllHeaders accepts every non-errored, non-skipped mapping on the sheet.
func (s *SheetState) ApproveAllHeaders() {
	for _, header := range s.Headers {
		mapping, ok := s.ColumnMappings[header]
		if !ok || mapping.Status == MappingError || mapping.Action == ActionSkip {
			continue
		}
		if mapping.Status == MappingUserModified {
			mapping.ReviewStatus = ReviewModified
		} else {
			mapping.ReviewStatus = ReviewApproved
		}
	}
	s.refreshReviewStatus()
}
