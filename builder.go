package sheetmap

import (
	"errors"
	"fmt"
)

// Engine runs mapping inference with a fixed configuration. The zero
// configuration produced by NewEngine matches the documented defaults;
// use NewEngineBuilder to retune thresholds, suggestion limits, or the
// synonym table for a deployment.
//
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	// tableLimit caps ranked table suggestions per sheet
	tableLimit int
	// columnLimit caps ranked column suggestions per header
	columnLimit int
	// highThreshold is the minimum score bucketed as ConfidenceHigh
	highThreshold float64
	// mediumThreshold is the minimum score bucketed as ConfidenceMedium
	mediumThreshold float64
	// minTableScore filters negligible table candidates
	minTableScore float64
	// synonyms maps a normalized source name to the destination column it
	// is known to mean, scoring 1.0 regardless of lexical distance
	synonyms map[string]string
	// workers bounds parallel sheet analysis in sessions
	workers int
}

// DefaultWorkers is the default number of concurrent sheet analyses in a Session.
const DefaultWorkers = 4

// DefaultSynonyms returns the built-in synonym table. The entries cover
// known dataset-specific column aliases that lexical similarity cannot
// bridge; deployments extend or replace the table through the builder.
func DefaultSynonyms() map[string]string {
	return map[string]string{
		"p and i amount":  "master_servicer_p_i_advance",
		"p and i advance": "master_servicer_p_i_advance",
		"t and i amount":  "master_servicer_t_i_advance",
		"t and i advance": "master_servicer_t_i_advance",
	}
}

// NewEngine returns an Engine with the default configuration.
func NewEngine() *Engine {
	engine, _ := NewEngineBuilder().Build() // defaults always validate
	return engine
}

// levelOf buckets a score using the engine's thresholds.
func (e *Engine) levelOf(score float64) ConfidenceLevel {
	switch {
	case score >= e.highThreshold:
		return ConfidenceHigh
	case score >= e.mediumThreshold:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// synonymTarget returns the destination column a source name is a known
// alias for, or "" when the table has no entry.
func (e *Engine) synonymTarget(sourceName string) string {
	return e.synonyms[normalizeName(sourceName)]
}

// EngineBuilder configures and validates an Engine. Chain the With methods
// and finish with Build:
//
//	engine, err := sheetmap.NewEngineBuilder().
//		WithTableSuggestionLimit(10).
//		WithSynonyms(customAliases).
//		Build()
type EngineBuilder struct {
	tableLimit      int
	columnLimit     int
	highThreshold   float64
	mediumThreshold float64
	minTableScore   float64
	synonyms        map[string]string
	workers         int
}

// NewEngineBuilder creates a builder preloaded with the default configuration.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{
		tableLimit:      DefaultTableSuggestionLimit,
		columnLimit:     DefaultColumnSuggestionLimit,
		highThreshold:   HighConfidenceThreshold,
		mediumThreshold: MediumConfidenceThreshold,
		minTableScore:   MinTableScore,
		synonyms:        DefaultSynonyms(),
		workers:         DefaultWorkers,
	}
}

// WithTableSuggestionLimit caps ranked table suggestions per sheet.
// Returns the builder for method chaining.
func (b *EngineBuilder) WithTableSuggestionLimit(limit int) *EngineBuilder {
	b.tableLimit = limit
	return b
}

// WithColumnSuggestionLimit caps ranked column suggestions per header.
// Returns the builder for method chaining.
func (b *EngineBuilder) WithColumnSuggestionLimit(limit int) *EngineBuilder {
	b.columnLimit = limit
	return b
}

// WithConfidenceThresholds overrides the High and Medium confidence cut
// points. Returns the builder for method chaining.
func (b *EngineBuilder) WithConfidenceThresholds(high, medium float64) *EngineBuilder {
	b.highThreshold = high
	b.mediumThreshold = medium
	return b
}

// WithMinTableScore overrides the floor below which table candidates are
// dropped. Returns the builder for method chaining.
func (b *EngineBuilder) WithMinTableScore(score float64) *EngineBuilder {
	b.minTableScore = score
	return b
}

// WithSynonyms replaces the synonym table. Keys are matched against
// normalized source names. Returns the builder for method chaining.
func (b *EngineBuilder) WithSynonyms(synonyms map[string]string) *EngineBuilder {
	normalized := make(map[string]string, len(synonyms))
	for source, target := range synonyms {
		normalized[normalizeName(source)] = target
	}
	b.synonyms = normalized
	return b
}

// WithWorkers bounds concurrent sheet analysis in sessions.
// Returns the builder for method chaining.
func (b *EngineBuilder) WithWorkers(workers int) *EngineBuilder {
	b.workers = workers
	return b
}

// Build validates the configuration and returns the Engine.
func (b *EngineBuilder) Build() (*Engine, error) {
	if b.tableLimit < 1 {
		return nil, fmt.Errorf("sheetmap: table suggestion limit must be at least 1, got %d", b.tableLimit)
	}
	if b.columnLimit < 1 {
		return nil, fmt.Errorf("sheetmap: column suggestion limit must be at least 1, got %d", b.columnLimit)
	}
	if b.highThreshold <= 0 || b.highThreshold > 1 {
		return nil, fmt.Errorf("sheetmap: high confidence threshold must be in (0,1], got %v", b.highThreshold)
	}
	if b.mediumThreshold <= 0 || b.mediumThreshold >= b.highThreshold {
		return nil, errors.New("sheetmap: medium confidence threshold must be positive and below the high threshold")
	}
	if b.minTableScore < 0 || b.minTableScore >= 1 {
		return nil, fmt.Errorf("sheetmap: minimum table score must be in [0,1), got %v", b.minTableScore)
	}
	if b.workers < 1 {
		return nil, fmt.Errorf("sheetmap: workers must be at least 1, got %d", b.workers)
	}

	synonyms := make(map[string]string, len(b.synonyms))
	for source, target := range b.synonyms {
		synonyms[source] = target
	}

	return &Engine{
		tableLimit:      b.tableLimit,
		columnLimit:     b.columnLimit,
		highThreshold:   b.highThreshold,
		mediumThreshold: b.mediumThreshold,
		minTableScore:   b.minTableScore,
		synonyms:        synonyms,
		workers:         b.workers,
	}, nil
}
