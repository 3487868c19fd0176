package sheetmap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMappingInvariants checks the structural rules every mapping record
// must satisfy regardless of how it was produced.
func assertMappingInvariants(t *testing.T, m *ColumnMapping) {
	t.Helper()
	switch m.Action {
	case ActionMap:
		assert.NotEmpty(t, m.MappedColumn, "header %q: map action without a mapped column", m.Header)
		assert.Nil(t, m.NewColumn, "header %q: map action with a new-column proposal", m.Header)
	case ActionCreate:
		require.NotNil(t, m.NewColumn, "header %q: create action without a proposal", m.Header)
		assert.Equal(t, m.NewColumn.ColumnName, m.MappedColumn, "header %q: create action column mismatch", m.Header)
	case ActionSkip:
		assert.Empty(t, m.MappedColumn, "header %q: skip action with a mapped column", m.Header)
		assert.Nil(t, m.NewColumn, "header %q: skip action with a proposal", m.Header)
	}
}

func suggestionAt(score float64) []ColumnSuggestion {
	return []ColumnSuggestion{{
		ColumnName:       "target_column",
		ConfidenceScore:  score,
		IsTypeCompatible: true,
		ConfidenceLevel:  confidenceLevelOf(score),
	}}
}

func TestBuildMappings_DecisionTable(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	sheet := SheetSnapshot{
		SheetName: "Data",
		Headers:   []string{"Field"},
		SampleData: []map[string]any{
			{"Field": "value"},
		},
		RowCount: 1,
	}
	inferred := map[string]InferredType{"Field": TypeString}

	tests := []struct {
		name        string
		suggestions []ColumnSuggestion
		isNewTable  bool
		autoApprove bool
		wantAction  MappingAction
		wantReview  ReviewStatus
	}{
		{
			name:        "High confidence auto-approves",
			suggestions: suggestionAt(0.95),
			autoApprove: true,
			wantAction:  ActionMap,
			wantReview:  ReviewApproved,
		},
		{
			name:        "High confidence stays pending when review is required",
			suggestions: suggestionAt(0.95),
			autoApprove: false,
			wantAction:  ActionMap,
			wantReview:  ReviewPending,
		},
		{
			name:        "Medium confidence maps but never auto-approves",
			suggestions: suggestionAt(0.6),
			autoApprove: true,
			wantAction:  ActionMap,
			wantReview:  ReviewPending,
		},
		{
			name:        "Low confidence proposes a new column",
			suggestions: suggestionAt(0.3),
			autoApprove: true,
			wantAction:  ActionCreate,
			wantReview:  ReviewPending,
		},
		{
			name:        "Borderline below medium proposes a new column",
			suggestions: suggestionAt(0.45),
			autoApprove: true,
			wantAction:  ActionCreate,
			wantReview:  ReviewPending,
		},
		{
			name:       "No suggestion proposes a new column",
			wantAction: ActionCreate,
			wantReview: ReviewPending,
		},
		{
			name:        "New table forces creation even with a perfect suggestion",
			suggestions: suggestionAt(1.0),
			isNewTable:  true,
			autoApprove: true,
			wantAction:  ActionCreate,
			wantReview:  ReviewPending,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			suggestions := map[string][]ColumnSuggestion{"Field": tt.suggestions}
			mappings := engine.buildMappings(sheet, suggestions, inferred, tt.isNewTable, tt.autoApprove)

			m := mappings["Field"]
			require.NotNil(t, m)
			assert.Equal(t, tt.wantAction, m.Action)
			assert.Equal(t, tt.wantReview, m.ReviewStatus)
			assert.Equal(t, MappingSuggested, m.Status)
			assertMappingInvariants(t, m)
		})
	}
}

func TestBuildMappings_CreateProposalShape(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	sheet := SheetSnapshot{
		SheetName: "Remittance",
		Headers:   []string{"Paid Thru Date"},
		SampleData: []map[string]any{
			{"Paid Thru Date": "2024-01-15"},
		},
		RowCount: 1,
	}
	inferred := map[string]InferredType{"Paid Thru Date": TypeDate}

	mappings := engine.buildMappings(sheet, nil, inferred, true, false)
	m := mappings["Paid Thru Date"]
	require.NotNil(t, m)
	require.NotNil(t, m.NewColumn)
	assert.Equal(t, "paid_thru_date", m.NewColumn.ColumnName)
	assert.Equal(t, "TIMESTAMP WITH TIME ZONE", m.NewColumn.SQLType)
	assert.True(t, m.NewColumn.IsNullable)
	assert.Equal(t, "Remittance", m.NewColumn.SourceSheet)
	assert.Equal(t, "Paid Thru Date", m.NewColumn.SourceHeader)
	assert.Equal(t, "2024-01-15", m.SampleValue)
}

func reviewSheetState(t *testing.T) *SheetState {
	t.Helper()
	engine := NewEngine()
	state := engine.ProcessSheet(context.Background(), loanSheet(), loanSchema(), ProcessOptions{RequireReview: true})
	require.Equal(t, SheetReady, state.Status)
	return state
}

func TestSheetState_MapHeader(t *testing.T) {
	t.Parallel()

	state := reviewSheetState(t)
	require.NoError(t, state.MapHeader("Borrower Name", "borrower_name"))

	m, ok := state.Mapping("Borrower Name")
	require.True(t, ok)
	assert.Equal(t, ActionMap, m.Action)
	assert.Equal(t, "borrower_name", m.MappedColumn)
	assert.Equal(t, MappingUserModified, m.Status)
	assert.Equal(t, ReviewPending, m.ReviewStatus)
	assertMappingInvariants(t, m)

	assert.ErrorIs(t, state.MapHeader("No Such Header", "anything"), ErrUnknownHeader)
}

func TestSheetState_CreateHeader(t *testing.T) {
	t.Parallel()

	state := reviewSheetState(t)
	err := state.CreateHeader("Current UPB", NewColumnProposal{
		ColumnName: "Unpaid Principal Balance",
		SQLType:    "NUMERIC",
		IsNullable: true,
	})
	require.NoError(t, err)

	m, ok := state.Mapping("Current UPB")
	require.True(t, ok)
	assert.Equal(t, ActionCreate, m.Action)
	require.NotNil(t, m.NewColumn)
	assert.Equal(t, "unpaid_principal_balance", m.NewColumn.ColumnName)
	assert.Equal(t, "Loans", m.NewColumn.SourceSheet)
	assert.Equal(t, "Current UPB", m.NewColumn.SourceHeader)
	assertMappingInvariants(t, m)

	// The flattened proposal list follows the edit.
	require.Len(t, state.SchemaProposals, 1)
	assert.Equal(t, "unpaid_principal_balance", state.SchemaProposals[0].ColumnName)

	assert.ErrorIs(t, state.CreateHeader("No Such Header", NewColumnProposal{}), ErrUnknownHeader)
}

func TestSheetState_SkipHeader(t *testing.T) {
	t.Parallel()

	state := reviewSheetState(t)
	require.NoError(t, state.SkipHeader("Borrower Name"))

	m, ok := state.Mapping("Borrower Name")
	require.True(t, ok)
	assert.Equal(t, ActionSkip, m.Action)
	assert.Empty(t, m.MappedColumn)
	// Skipping is an explicit decision, so it counts as reviewed.
	assert.Equal(t, ReviewApproved, m.ReviewStatus)
	assertMappingInvariants(t, m)

	assert.ErrorIs(t, state.SkipHeader("No Such Header"), ErrUnknownHeader)
}

func TestSheetState_ApproveAndReject(t *testing.T) {
	t.Parallel()

	t.Run("Approving an untouched mapping", func(t *testing.T) {
		t.Parallel()

		state := reviewSheetState(t)
		require.NoError(t, state.ApproveHeader("Loan ID"))
		m, _ := state.Mapping("Loan ID")
		assert.Equal(t, ReviewApproved, m.ReviewStatus)
		assert.Equal(t, SheetReviewPartial, state.ReviewStatus)
	})

	t.Run("Approving an edited mapping records modified", func(t *testing.T) {
		t.Parallel()

		state := reviewSheetState(t)
		require.NoError(t, state.MapHeader("Loan ID", "loan_id"))
		require.NoError(t, state.ApproveHeader("Loan ID"))
		m, _ := state.Mapping("Loan ID")
		assert.Equal(t, ReviewModified, m.ReviewStatus)
	})

	t.Run("Rejecting a mapping", func(t *testing.T) {
		t.Parallel()

		state := reviewSheetState(t)
		require.NoError(t, state.RejectHeader("Loan ID"))
		m, _ := state.Mapping("Loan ID")
		assert.Equal(t, ReviewRejected, m.ReviewStatus)
	})

	t.Run("Errored records cannot be approved", func(t *testing.T) {
		t.Parallel()

		state := reviewSheetState(t)
		m, _ := state.Mapping("Loan ID")
		m.Status = MappingError
		m.Err = "column analysis failed: malformed sample"

		require.NoError(t, state.ApproveHeader("Loan ID"))
		assert.Equal(t, ReviewPending, m.ReviewStatus)
		assert.Equal(t, MappingError, m.Status)
	})

	t.Run("Unknown header", func(t *testing.T) {
		t.Parallel()

		state := reviewSheetState(t)
		assert.ErrorIs(t, state.ApproveHeader("No Such Header"), ErrUnknownHeader)
		assert.ErrorIs(t, state.RejectHeader("No Such Header"), ErrUnknownHeader)
	})
}

func TestSheetState_ApproveAllHeaders(t *testing.T) {
	t.Parallel()

	state := reviewSheetState(t)
	require.NoError(t, state.MapHeader("Borrower Name", "borrower_name"))
	state.ApproveAllHeaders()

	loanID, _ := state.Mapping("Loan ID")
	assert.Equal(t, ReviewApproved, loanID.ReviewStatus)
	borrower, _ := state.Mapping("Borrower Name")
	assert.Equal(t, ReviewModified, borrower.ReviewStatus)
	assert.Equal(t, SheetReviewApproved, state.ReviewStatus)
}
