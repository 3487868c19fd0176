// Package sheetmap infers how spreadsheet data maps onto a relational
// schema. Given a sheet's headers and a sample of its rows, it suggests
// destination tables and columns, infers a semantic type per column, and
// produces a reviewable per-sheet mapping state that an import pipeline
// and its review UI consume.
//
// sheetmap only decides what to map. Reading spreadsheet bytes, executing
// SQL, and creating tables or columns belong to external collaborators:
// the source package turns files into SheetSnapshot values, the
// introspect package turns a live database into a SchemaSnapshot, and
// approved NewColumnProposal values are handed to whatever runs the DDL.
//
// # Features
//
//   - Ranked destination-table candidates per sheet, blending name
//     similarity with aggregate type and content compatibility
//   - Ranked destination-column candidates per header, with duplicate
//     target claims demoted instead of silently double-mapped
//   - Semantic type inference (string, number, boolean, date) from sample
//     values and field names, including spreadsheet quirks such as Excel
//     date serials, leading-zero identifiers, and currency decorations
//   - New-column and new-table proposals with SQL-safe identifiers
//   - A per-sheet review state machine with user edits, approval
//     tracking, and commit observation
//   - Sessions that analyze sheets concurrently, merge results by sheet
//     name, and discard superseded or reset work
//
// # Basic Usage
//
// Analyze a single sheet against a schema snapshot:
//
//	engine := sheetmap.NewEngine()
//	state := engine.ProcessSheet(ctx, sheet, schema, sheetmap.ProcessOptions{})
//	for _, header := range state.Headers {
//	    m, _ := state.Mapping(header)
//	    fmt.Println(header, m.Action, m.MappedColumn, m.ConfidenceLevel)
//	}
//
// # Advanced Usage
//
// For multi-sheet workflows, use a Session; for custom thresholds or
// synonym tables, use the EngineBuilder:
//
//	engine, err := sheetmap.NewEngineBuilder().
//	    WithTableSuggestionLimit(10).
//	    WithSynonyms(map[string]string{"p&i advance": "master_servicer_p_i_advance"}).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	session := sheetmap.NewSession(engine, schema)
//	if err := session.Analyze(ctx, snapshots); err != nil {
//	    log.Fatal(err)
//	}
//
// User decisions feed back through the state's edit methods (MapHeader,
// CreateHeader, SkipHeader, ApproveHeader) and through Session.Reanalyze
// when the target table changes. Errors are data at this boundary: a
// malformed sheet yields a state with status "error" rather than a
// failure that aborts the batch.
package sheetmap
