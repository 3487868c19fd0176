package sheetmap

import (
	"sort"
	"strings"
)

// Column scoring weights. Name similarity dominates; type compatibility
// and content patterns refine the ranking.
const (
	// NameWeight scales name similarity in the combined column score
	NameWeight = 0.6
	// TypeWeight scales type compatibility in the combined column score
	TypeWeight = 0.3
	// PatternWeight scales content-pattern fit in the combined column score
	PatternWeight = 0.1
	// DuplicateClaimPenalty halves the score of a suggestion whose column
	// was already claimed by an earlier header
	DuplicateClaimPenalty = 0.5
)

// RankColumns scores every column of the target table as a destination
// candidate for each header and returns the ranked candidates per header,
// best first, capped to the engine's column suggestion limit.
//
// The combined score is name*0.6 + type*0.3 + pattern*0.1, with two
// short-circuits: a perfect name match with a compatible type scores 1.0,
// and a perfect name match alone scores 0.9. Once a column has been
// claimed as the top high-confidence suggestion of one header, later
// headers proposing the same column have that suggestion's score halved
// and its confidence forced to Low, steering them toward a create-new
// recommendation instead of silently double-mapping.
func (e *Engine) RankColumns(sheet SheetSnapshot, table TableSnapshot) map[string][]ColumnSuggestion {
	inferred := inferHeaderTypes(sheet)
	claimed := make(map[string]bool, len(table.Columns))
	result := make(map[string][]ColumnSuggestion, len(sheet.Headers))

	for _, header := range sheet.Headers {
		values := sheet.columnValues(header)
		suggestions := make([]ColumnSuggestion, 0, len(table.Columns))

		for _, column := range table.Columns {
			score, compatible := e.scoreColumn(header, values, inferred[header], column)
			suggestion := ColumnSuggestion{
				ColumnName:       column.Name,
				ConfidenceScore:  score,
				IsTypeCompatible: compatible,
				ConfidenceLevel:  e.levelOf(score),
			}
			if claimed[column.Name] {
				suggestion.ConfidenceScore *= DuplicateClaimPenalty
				suggestion.ConfidenceLevel = ConfidenceLow
			}
			suggestions = append(suggestions, suggestion)
		}

		sort.SliceStable(suggestions, func(i, j int) bool {
			if suggestions[i].ConfidenceScore != suggestions[j].ConfidenceScore {
				return suggestions[i].ConfidenceScore > suggestions[j].ConfidenceScore
			}
			return suggestions[i].ColumnName < suggestions[j].ColumnName
		})
		if len(suggestions) > e.columnLimit {
			suggestions = suggestions[:e.columnLimit]
		}

		if len(suggestions) > 0 && suggestions[0].ConfidenceLevel == ConfidenceHigh {
			claimed[suggestions[0].ColumnName] = true
		}
		result[header] = suggestions
	}
	return result
}

// scoreColumn combines the per-column heuristic signals for one header.
func (e *Engine) scoreColumn(header string, values []any, inferredType InferredType, column ColumnSnapshot) (float64, bool) {
	compatible := isTypeCompatible(inferredType, column.DataType)

	nameScore := Similarity(header, column.Name)
	if e.synonymTarget(header) == column.Name {
		nameScore = 1
	}

	if nameScore == 1 {
		if compatible {
			return 1, true
		}
		return PerfectNameTypeMismatchScore, false
	}

	typeScore := 0.0
	if compatible {
		typeScore = 1
	}
	// Content patterns are judged against the destination: the column's
	// name and declared type family, not the source header's inferred type.
	patternScore := PatternScore(values, column.Name, sqlTypeFamily(column.DataType))

	return nameScore*NameWeight + typeScore*TypeWeight + patternScore*PatternWeight, compatible
}

// SQL type families used for compatibility checks
var (
	numericSQLTypes = []string{
		"int", "integer", "bigint", "smallint", "serial", "numeric",
		"decimal", "real", "double", "float", "money",
	}
	booleanSQLTypes = []string{"bool", "boolean", "bit"}
	dateSQLTypes    = []string{"date", "time", "timestamp", "datetime", "interval"}
)

// isTypeCompatible reports whether an inferred semantic type can be
// written into a column of the declared SQL type. Text-family columns
// accept everything.
func isTypeCompatible(inferred InferredType, sqlType string) bool {
	family := sqlTypeFamily(sqlType)
	if family == TypeString {
		return true
	}
	return family == inferred
}

// sqlTypeFamily folds a declared SQL type into a semantic family.
func sqlTypeFamily(sqlType string) InferredType {
	lowered := strings.ToLower(strings.TrimSpace(sqlType))
	for _, t := range booleanSQLTypes {
		if strings.Contains(lowered, t) {
			return TypeBoolean
		}
	}
	for _, t := range dateSQLTypes {
		if strings.Contains(lowered, t) {
			return TypeDate
		}
	}
	for _, t := range numericSQLTypes {
		if strings.Contains(lowered, t) {
			return TypeNumber
		}
	}
	return TypeString
}
