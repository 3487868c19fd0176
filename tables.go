package sheetmap

import (
	"sort"
)

// NewTableProposalScore is the confidence attached to the synthesized
// new-table suggestion. It sits below the Medium threshold so a proposal
// never outranks a plausible existing table.
const NewTableProposalScore = 0.3

// RankTables scores every table in the schema as a destination candidate
// for the sheet and returns the ranked list, best first, capped to the
// engine's table suggestion limit.
//
// A perfect name match dominates: its combined score is 1.0 outright.
// Otherwise the combined score averages name similarity with aggregate
// type and content compatibility between the sheet's columns and the
// table's. Candidates at or below the engine's minimum table score are
// dropped. The ranker never appends a new-table proposal; that is the
// orchestrator's call.
func (e *Engine) RankTables(sheet SheetSnapshot, schema SchemaSnapshot) []TableSuggestion {
	inferred := inferHeaderTypes(sheet)

	suggestions := make([]TableSuggestion, 0, len(schema.Tables))
	for _, tableName := range schema.TableNames() {
		table := schema.Tables[tableName]
		score := e.scoreTable(sheet, table, inferred)
		if score <= e.minTableScore {
			continue
		}
		suggestions = append(suggestions, TableSuggestion{
			TableName:       tableName,
			ConfidenceScore: score,
			ConfidenceLevel: e.levelOf(score),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].ConfidenceScore != suggestions[j].ConfidenceScore {
			return suggestions[i].ConfidenceScore > suggestions[j].ConfidenceScore
		}
		return suggestions[i].TableName < suggestions[j].TableName
	})

	if len(suggestions) > e.tableLimit {
		suggestions = suggestions[:e.tableLimit]
	}
	return suggestions
}

// scoreTable combines the table-level heuristic signals for one candidate.
func (e *Engine) scoreTable(sheet SheetSnapshot, table TableSnapshot, inferred map[string]InferredType) float64 {
	nameScore := Similarity(sheet.SheetName, table.Name)
	if nameScore == 1 {
		return 1
	}

	typeScore := tableTypeScore(sheet, table, inferred)
	contentScore := tableContentScore(sheet, table)
	return (nameScore + typeScore + contentScore) / 3
}

// tableTypeScore is the fraction of sheet headers whose inferred type is
// compatible with at least one of the table's columns.
func tableTypeScore(sheet SheetSnapshot, table TableSnapshot, inferred map[string]InferredType) float64 {
	if len(sheet.Headers) == 0 || len(table.Columns) == 0 {
		return 0
	}
	compatible := 0
	for _, header := range sheet.Headers {
		for _, column := range table.Columns {
			if isTypeCompatible(inferred[header], column.DataType) {
				compatible++
				break
			}
		}
	}
	return float64(compatible) / float64(len(sheet.Headers))
}

// tableContentScore averages, across headers, the best content-pattern
// score each header achieves against any column of the table. Each column
// is judged as the destination, so the pattern target is the column's own
// name and declared type family.
func tableContentScore(sheet SheetSnapshot, table TableSnapshot) float64 {
	if len(sheet.Headers) == 0 || len(table.Columns) == 0 {
		return 0
	}
	total := 0.0
	for _, header := range sheet.Headers {
		values := sheet.columnValues(header)
		best := 0.0
		for _, column := range table.Columns {
			score := PatternScore(values, column.Name, sqlTypeFamily(column.DataType))
			if score > best {
				best = score
			}
		}
		total += best
	}
	return total / float64(len(sheet.Headers))
}

// newTableSuggestion synthesizes the single new-table proposal for a
// sheet, named by a SQL-safe transform of the sheet name.
func newTableSuggestion(sheetName string) TableSuggestion {
	return TableSuggestion{
		TableName:          SanitizeIdentifier(sheetName),
		ConfidenceScore:    NewTableProposalScore,
		ConfidenceLevel:    confidenceLevelOf(NewTableProposalScore),
		IsNewTableProposal: true,
	}
}

// inferHeaderTypes runs type inference for every header in the sheet once,
// so table and column ranking share the results.
func inferHeaderTypes(sheet SheetSnapshot) map[string]InferredType {
	types := make(map[string]InferredType, len(sheet.Headers))
	for _, header := range sheet.Headers {
		types[header] = InferType(sheet.columnValues(header), header)
	}
	return types
}
