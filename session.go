package sheetmap

import (
	"context"
	"fmt"
	"sync"
)

// Session aggregates per-sheet processing states for one import workflow.
// Sheet analyses are independent computations; the session's only job is
// to merge their self-contained results by sheet name, guarantee that at
// most one result per sheet is ever current, and discard results that
// arrive after a reset.
//
// All methods are safe for concurrent use.
type Session struct {
	engine *Engine
	schema SchemaSnapshot

	mu         sync.Mutex
	snapshots  map[string]SheetSnapshot
	sheets     map[string]*SheetState
	order      []string
	seq        map[string]uint64
	resetToken uint64
}

// NewSession creates a session over a schema snapshot. The snapshot is
// loaded once per import session and treated as read-only for its
// lifetime; call Reset and build a new session to pick up schema changes.
func NewSession(engine *Engine, schema SchemaSnapshot) *Session {
	if engine == nil {
		engine = NewEngine()
	}
	return &Session{
		engine:    engine,
		schema:    schema,
		snapshots: make(map[string]SheetSnapshot),
		sheets:    make(map[string]*SheetState),
		seq:       make(map[string]uint64),
	}
}

// Analyze runs inference for every snapshot and merges the results into
// the session, bounded by the engine's worker count. Per-sheet failures
// are recorded in that sheet's state; Analyze itself fails only on
// malformed input (duplicate sheet names) or context cancellation.
func (s *Session) Analyze(ctx context.Context, snapshots []SheetSnapshot) error {
	if err := s.admit(snapshots); err != nil {
		return err
	}

	token := s.currentToken()
	type task struct {
		snapshot SheetSnapshot
		seq      uint64
	}
	tasks := make([]task, 0, len(snapshots))
	s.mu.Lock()
	for _, snapshot := range snapshots {
		s.seq[snapshot.SheetName]++
		tasks = append(tasks, task{snapshot: snapshot, seq: s.seq[snapshot.SheetName]})
	}
	s.mu.Unlock()

	work := make(chan task)
	var wg sync.WaitGroup
	for i := 0; i < s.engine.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range work {
				state := s.engine.ProcessSheet(ctx, t.snapshot, s.schema, ProcessOptions{})
				s.apply(t.snapshot.SheetName, t.seq, token, state)
			}
		}()
	}

	for _, t := range tasks {
		select {
		case work <- t:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		}
	}
	close(work)
	wg.Wait()
	return ctx.Err()
}

// Reanalyze re-runs inference for one sheet, typically after the user
// changed its target table. The result supersedes any prior or in-flight
// result for the sheet: a later call always wins, and a stale result is
// discarded with ErrStaleAnalysis.
func (s *Session) Reanalyze(ctx context.Context, sheetName string, opts ProcessOptions) (*SheetState, error) {
	s.mu.Lock()
	snapshot, ok := s.snapshots[sheetName]
	if !ok {
		s.mu.Unlock()
		return nil, NewErrorContext("re-analysis", sheetName).Error(ErrUnknownSheet)
	}
	if current, exists := s.sheets[sheetName]; exists {
		current.Status = SheetProcessing
	}
	s.seq[sheetName]++
	mySeq := s.seq[sheetName]
	token := s.resetToken
	s.mu.Unlock()

	state := s.engine.ProcessSheet(ctx, snapshot, s.schema, opts)
	if !s.apply(sheetName, mySeq, token, state) {
		if s.currentToken() != token {
			return nil, ErrSessionReset
		}
		return nil, ErrStaleAnalysis
	}
	return state, nil
}

// SelectTable points a sheet at a destination table and re-runs inference
// against it. Unlike the heuristic fallback in plain re-analysis, an
// explicit selection is validated: the table must exist in the schema or
// be a new-table sentinel.
func (s *Session) SelectTable(ctx context.Context, sheetName, tableName string) (*SheetState, error) {
	if !IsNewTableSelection(tableName) {
		if _, ok := s.schema.Table(tableName); !ok {
			return nil, NewErrorContext("table selection", sheetName).
				WithTable(tableName).
				Error(ErrUnknownTable)
		}
	}
	return s.Reanalyze(ctx, sheetName, ProcessOptions{SelectedTable: tableName})
}

// Sheet returns the current state for a sheet name.
func (s *Session) Sheet(name string) (*SheetState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sheets[name]
	return state, ok
}

// Sheets returns every current sheet state in first-seen order.
func (s *Session) Sheets() []*SheetState {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make([]*SheetState, 0, len(s.order))
	for _, name := range s.order {
		if state, ok := s.sheets[name]; ok {
			states = append(states, state)
		}
	}
	return states
}

// SelectableSheets returns the sheet names eligible for batch operations.
// Errored sheets are inert and excluded.
func (s *Session) SelectableSheets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.order))
	for _, name := range s.order {
		if state, ok := s.sheets[name]; ok && state.Status != SheetError {
			names = append(names, name)
		}
	}
	return names
}

// ApproveAll accepts every mapping on every non-errored sheet.
func (s *Session) ApproveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		state, ok := s.sheets[name]
		if !ok || state.Status == SheetError {
			continue
		}
		state.ApproveAllHeaders()
	}
}

// MarkCommitting forwards the external import layer's start-of-write
// signal to one sheet.
func (s *Session) MarkCommitting(name string) error {
	return s.withSheet(name, (*SheetState).MarkCommitting)
}

// MarkCommitted forwards the external import layer's completion signal to
// one sheet.
func (s *Session) MarkCommitted(name string) error {
	return s.withSheet(name, (*SheetState).MarkCommitted)
}

// MarkCommitFailed forwards an import failure to one sheet.
func (s *Session) MarkCommitFailed(name, message string) error {
	return s.withSheet(name, func(state *SheetState) {
		state.MarkCommitFailed(message)
	})
}

// Reset discards every sheet and invalidates in-flight analyses: any
// result computed before the reset is ignored when it arrives.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetToken++
	s.snapshots = make(map[string]SheetSnapshot)
	s.sheets = make(map[string]*SheetState)
	s.order = nil
	s.seq = make(map[string]uint64)
}

// admit registers snapshots, rejecting duplicate names within one batch.
func (s *Session) admit(snapshots []SheetSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(snapshots))
	for _, snapshot := range snapshots {
		if seen[snapshot.SheetName] {
			return NewErrorContext("analysis", snapshot.SheetName).
				WithDetails("name appears twice in one batch").
				Error(ErrDuplicateSheet)
		}
		seen[snapshot.SheetName] = true
	}
	for _, snapshot := range snapshots {
		if _, known := s.snapshots[snapshot.SheetName]; !known {
			s.order = append(s.order, snapshot.SheetName)
		}
		s.snapshots[snapshot.SheetName] = snapshot
	}
	return nil
}

// apply merges one analysis result, keyed by sheet name. The result is
// dropped when the session was reset or a later request for the same
// sheet superseded it.
func (s *Session) apply(sheetName string, seq, token uint64, state *SheetState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetToken != token || s.seq[sheetName] != seq {
		return false
	}
	s.sheets[sheetName] = state
	return true
}

// currentToken reads the reset token under the lock.
func (s *Session) currentToken() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetToken
}

// withSheet runs an operation against one sheet under the session lock.
func (s *Session) withSheet(name string, op func(*SheetState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.sheets[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSheet, name)
	}
	op(state)
	return nil
}
