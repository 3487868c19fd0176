package sheetmap

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionSnapshots() []SheetSnapshot {
	return []SheetSnapshot{
		loanSheet(),
		{
			SheetName: "Payments",
			Headers:   []string{"Payment ID", "Amount", "Paid At"},
			SampleData: []map[string]any{
				{"Payment ID": "P-1001", "Amount": "$135.50", "Paid At": "2024-01-15"},
			},
			RowCount: 1,
		},
		{
			SheetName: "Broken",
			RowCount:  0,
		},
	}
}

func TestSession_Analyze(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), sessionSnapshots()))

	t.Run("Results merge in first-seen order", func(t *testing.T) {
		states := session.Sheets()
		require.Len(t, states, 3)
		assert.Equal(t, "Loans", states[0].SheetName)
		assert.Equal(t, "Payments", states[1].SheetName)
		assert.Equal(t, "Broken", states[2].SheetName)
	})

	t.Run("Confident sheets resolve their table", func(t *testing.T) {
		state, ok := session.Sheet("Loans")
		require.True(t, ok)
		assert.Equal(t, SheetReady, state.Status)
		assert.Equal(t, "loans", state.SelectedTable)
	})

	t.Run("Headerless sheets fail in isolation", func(t *testing.T) {
		state, ok := session.Sheet("Broken")
		require.True(t, ok)
		assert.Equal(t, SheetError, state.Status)
		assert.Equal(t, ErrEmptySheet.Error(), state.Err)
	})

	t.Run("Unknown sheets report absence", func(t *testing.T) {
		_, ok := session.Sheet("Missing")
		assert.False(t, ok)
	})
}

func TestSession_AnalyzeRejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	err := session.Analyze(context.Background(), []SheetSnapshot{
		loanSheet(),
		loanSheet(),
	})
	assert.ErrorIs(t, err, ErrDuplicateSheet)
	assert.Empty(t, session.Sheets())
}

func TestSession_AnalyzeManySheetsConcurrently(t *testing.T) {
	t.Parallel()

	snapshots := make([]SheetSnapshot, 0, 20)
	for i := 0; i < 20; i++ {
		snapshots = append(snapshots, SheetSnapshot{
			SheetName: fmt.Sprintf("Sheet %02d", i),
			Headers:   []string{"Loan ID", "Current UPB"},
			SampleData: []map[string]any{
				{"Loan ID": "0000123", "Current UPB": "$150,000.00"},
			},
			RowCount: 1,
		})
	}

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), snapshots))

	states := session.Sheets()
	require.Len(t, states, 20)
	for i, state := range states {
		assert.Equal(t, fmt.Sprintf("Sheet %02d", i), state.SheetName)
		assert.NotEqual(t, SheetError, state.Status)
	}
}

func TestSession_Reanalyze(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), sessionSnapshots()))

	t.Run("Retargeting a sheet", func(t *testing.T) {
		state, err := session.Reanalyze(context.Background(), "Loans", ProcessOptions{
			SelectedTable: "payments",
		})
		require.NoError(t, err)
		assert.Equal(t, "payments", state.SelectedTable)

		current, ok := session.Sheet("Loans")
		require.True(t, ok)
		assert.Same(t, state, current)
	})

	t.Run("Later calls supersede earlier results", func(t *testing.T) {
		_, err := session.Reanalyze(context.Background(), "Payments", ProcessOptions{
			SelectedTable: NewTableSelection("remittance"),
		})
		require.NoError(t, err)
		state, err := session.Reanalyze(context.Background(), "Payments", ProcessOptions{
			SelectedTable: "payments",
		})
		require.NoError(t, err)

		current, ok := session.Sheet("Payments")
		require.True(t, ok)
		assert.Same(t, state, current)
		assert.Equal(t, "payments", current.SelectedTable)
	})

	t.Run("Unknown sheet", func(t *testing.T) {
		_, err := session.Reanalyze(context.Background(), "Missing", ProcessOptions{})
		assert.ErrorIs(t, err, ErrUnknownSheet)
	})
}

func TestSession_SelectTable(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), sessionSnapshots()))

	t.Run("Existing table", func(t *testing.T) {
		state, err := session.SelectTable(context.Background(), "Loans", "payments")
		require.NoError(t, err)
		assert.Equal(t, "payments", state.SelectedTable)
		assert.Equal(t, SheetReady, state.Status)
	})

	t.Run("New table sentinel", func(t *testing.T) {
		state, err := session.SelectTable(context.Background(), "Payments", NewTableSelection("remittance"))
		require.NoError(t, err)
		assert.True(t, state.IsNewTable)
	})

	t.Run("Unknown table is rejected", func(t *testing.T) {
		_, err := session.SelectTable(context.Background(), "Loans", "no_such_table")
		assert.ErrorIs(t, err, ErrUnknownTable)
		assert.Contains(t, err.Error(), "no_such_table")

		// The rejection leaves the current state untouched.
		state, ok := session.Sheet("Loans")
		require.True(t, ok)
		assert.NotEqual(t, "no_such_table", state.SelectedTable)
	})

	t.Run("Unknown sheet", func(t *testing.T) {
		_, err := session.SelectTable(context.Background(), "Missing", "loans")
		assert.ErrorIs(t, err, ErrUnknownSheet)
	})
}

func TestSession_StaleResultsAreDiscarded(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), []SheetSnapshot{loanSheet()}))

	t.Run("Superseded sequence number", func(t *testing.T) {
		token := session.currentToken()
		state := &SheetState{SheetName: "Loans"}
		// Sequence 1 was consumed by Analyze; a result carrying it is stale.
		assert.False(t, session.apply("Loans", 0, token, state))

		current, ok := session.Sheet("Loans")
		require.True(t, ok)
		assert.NotSame(t, state, current)
	})

	t.Run("Result computed before a reset", func(t *testing.T) {
		token := session.currentToken()
		session.mu.Lock()
		session.seq["Loans"]++
		seq := session.seq["Loans"]
		session.mu.Unlock()

		session.Reset()
		assert.False(t, session.apply("Loans", seq, token, &SheetState{SheetName: "Loans"}))
		_, ok := session.Sheet("Loans")
		assert.False(t, ok)
	})
}

func TestSession_Reset(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), sessionSnapshots()))
	require.NotEmpty(t, session.Sheets())

	session.Reset()

	assert.Empty(t, session.Sheets())
	_, ok := session.Sheet("Loans")
	assert.False(t, ok)
	_, err := session.Reanalyze(context.Background(), "Loans", ProcessOptions{})
	assert.ErrorIs(t, err, ErrUnknownSheet)

	// A fresh batch is accepted after the reset.
	require.NoError(t, session.Analyze(context.Background(), []SheetSnapshot{loanSheet()}))
	assert.Len(t, session.Sheets(), 1)
}

func TestSession_SelectableSheetsExcludeErrored(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), sessionSnapshots()))

	assert.Equal(t, []string{"Loans", "Payments"}, session.SelectableSheets())
}

func TestSession_ApproveAll(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), sessionSnapshots()))

	session.ApproveAll()

	loans, ok := session.Sheet("Loans")
	require.True(t, ok)
	assert.Equal(t, SheetReviewApproved, loans.ReviewStatus)

	broken, ok := session.Sheet("Broken")
	require.True(t, ok)
	assert.Equal(t, SheetError, broken.Status)
	assert.NotEqual(t, SheetReviewApproved, broken.ReviewStatus)
}

func TestSession_CommitSignals(t *testing.T) {
	t.Parallel()

	session := NewSession(NewEngine(), loanSchema())
	require.NoError(t, session.Analyze(context.Background(), []SheetSnapshot{loanSheet()}))

	require.NoError(t, session.MarkCommitting("Loans"))
	state, _ := session.Sheet("Loans")
	assert.Equal(t, SheetCommitting, state.Status)

	require.NoError(t, session.MarkCommitted("Loans"))
	state, _ = session.Sheet("Loans")
	assert.Equal(t, SheetCommitted, state.Status)

	require.NoError(t, session.MarkCommitFailed("Loans", "disk full"))
	state, _ = session.Sheet("Loans")
	assert.Equal(t, SheetError, state.Status)
	assert.Equal(t, "disk full", state.Err)

	assert.ErrorIs(t, session.MarkCommitting("Missing"), ErrUnknownSheet)
	assert.ErrorIs(t, session.MarkCommitted("Missing"), ErrUnknownSheet)
	assert.ErrorIs(t, session.MarkCommitFailed("Missing", "x"), ErrUnknownSheet)
}

func TestNewSession_NilEngineUsesDefaults(t *testing.T) {
	t.Parallel()

	session := NewSession(nil, loanSchema())
	require.NoError(t, session.Analyze(context.Background(), []SheetSnapshot{loanSheet()}))
	state, ok := session.Sheet("Loans")
	require.True(t, ok)
	assert.Equal(t, "loans", state.SelectedTable)
}
