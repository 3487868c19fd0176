package sheetmap

import (
	"regexp"
	"strconv"
	"strings"
)

// Content pattern bounds for named target fields
const (
	// MinAge and MaxAge bound plausible values for age-named targets
	MinAge = 0
	MaxAge = 120
	// MinYear and MaxYear bound plausible values for year-named targets
	MinYear = 1900
	MaxYear = 2100
)

var (
	emailRegex       = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	canadianZipRegex = regexp.MustCompile(`^[A-Za-z]\d[A-Za-z][ -]?\d[A-Za-z]\d$`)

	emailFieldPattern  = regexp.MustCompile(`(?i)e?mail`)
	phoneFieldPattern  = regexp.MustCompile(`(?i)(phone|mobile|tel|fax)`)
	zipFieldPattern    = regexp.MustCompile(`(?i)(zip|postal)`)
	ageFieldPattern    = regexp.MustCompile(`(?i)(^|[\s_-])age([\s_-]|$)`)
	yearFieldPattern   = regexp.MustCompile(`(?i)(^|[\s_-])(year|yr)([\s_-]|$)`)
	moneyFieldPattern  = regexp.MustCompile(`(?i)(price|amount|amt|cost|balance|payment)`)
)

// PatternScore measures how well sampled values match the content expected
// for a named target field, in [0,1]. Independent signals add up and the
// total is capped at 1.0: email shape for email-named targets, phone digit
// counts for phone-named targets, US and Canadian postal codes for
// zip-named targets, bounded numeric ranges for age, year, and monetary
// targets, and date parseability for date-typed targets. An empty sample
// set scores 0.
func PatternScore(samples []any, targetField string, targetType InferredType) float64 {
	values := nonEmptyValues(samples)
	if len(values) == 0 {
		return 0
	}

	score := 0.0
	if emailFieldPattern.MatchString(targetField) {
		score += matchRatio(values, func(v string) bool { return emailRegex.MatchString(v) })
	}
	if phoneFieldPattern.MatchString(targetField) {
		score += matchRatio(values, isPhoneValue)
	}
	if zipFieldPattern.MatchString(targetField) {
		score += matchRatio(values, func(v string) bool {
			return zipRegex.MatchString(v) || canadianZipRegex.MatchString(v)
		})
	}
	if ageFieldPattern.MatchString(targetField) {
		score += matchRatio(values, func(v string) bool { return inNumericRange(v, MinAge, MaxAge) })
	}
	if yearFieldPattern.MatchString(targetField) {
		score += matchRatio(values, func(v string) bool { return inNumericRange(v, MinYear, MaxYear) })
	}
	if moneyFieldPattern.MatchString(targetField) {
		score += matchRatio(values, isNonNegativeNumeric)
	}
	if targetType == TypeDate {
		score += matchRatio(values, isDateValue)
	}

	if score > 1 {
		return 1
	}
	return score
}

// inNumericRange checks that a value parses as a number within [lo, hi].
func inNumericRange(v string, lo, hi float64) bool {
	n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return false
	}
	return n >= lo && n <= hi
}

// isNonNegativeNumeric accepts numeric values at or above zero, including
// currency-decorated ones.
func isNonNegativeNumeric(v string) bool {
	if !isNumericValue(v) {
		return false
	}
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", "%", "").Replace(strings.TrimSpace(v))
	if strings.HasPrefix(cleaned, "(") || strings.HasPrefix(cleaned, "-") {
		return false
	}
	return true
}
