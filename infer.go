package sheetmap

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type inference constants
const (
	// MinSufficientSamples is the number of non-empty samples required
	// before content detection is trusted over the field name
	MinSufficientSamples = 5
	// TypeMatchThreshold is the fraction of samples that must match a
	// content family before the column takes that type
	TypeMatchThreshold = 0.9
	// LooseNumericThreshold is the relaxed fraction used as a late numeric check
	LooseNumericThreshold = 0.75
	// MaxExcelDateSerial is the Excel serial for 9999-12-31; positive
	// integers below it can encode dates
	MaxExcelDateSerial = 2958466
	// CreditScoreMin and CreditScoreMax bound the FICO range. Integers in
	// this range are scores, not Excel date serials or ZIP codes.
	CreditScoreMin = 300
	CreditScoreMax = 850
)

// Common datetime patterns to detect
var datetimePatterns = []struct {
	pattern *regexp.Regexp
	formats []string // Multiple formats for the same pattern
}{
	// ISO8601 formats with timezone
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`),
		[]string{time.RFC3339, time.RFC3339Nano},
	},
	// ISO8601 formats without timezone
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02T15:04:05", "2006-01-02T15:04:05.000"},
	},
	// ISO8601 date and time with space
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`),
		[]string{"2006-01-02 15:04:05", "2006-01-02 15:04:05.000"},
	},
	// ISO8601 date only
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	// US formats
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}:\d{2}( (AM|PM))?$`),
		[]string{"1/2/2006 15:04:05", "1/2/2006 3:04:05 PM", "01/02/2006 15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		[]string{"1/2/2006", "01/02/2006"},
	},
	// European formats
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`),
		[]string{"2.1.2006", "02.01.2006"},
	},
	// Written-out month
	{
		regexp.MustCompile(`^[A-Za-z]{3,9} \d{1,2}, \d{4}$`),
		[]string{"January 2, 2006", "Jan 2, 2006"},
	},
}

// Field-name pattern families. Identifier patterns always force string so
// numeric-looking values keep their leading zeros; rate patterns always
// force number even when samples carry percent signs or currency symbols.
var (
	forcedStringNamePattern = regexp.MustCompile(
		`(?i)(loan[\s_-]*(id|num(ber)?|no)?$|^loan$|mers([\s_-]*(min|id))?|case[\s_-]*(id|num(ber)?|no)|pool[\s_-]*(id|num(ber)?|no))`)
	forcedNumberNamePattern = regexp.MustCompile(
		`(?i)(^|[\s_-])(upb|dti|apr|ltv|cltv)([\s_-]|$)|interest[\s_-]*rate|note[\s_-]*rate`)

	idNamePattern      = regexp.MustCompile(`(?i)(^id$|[\s_-]id$|_id$|identifier|code$|number$|[\s_-]no$|^num |ssn|zip|postal)`)
	dateNamePattern    = regexp.MustCompile(`(?i)(date|[\s_-]dt$|_at$|time(stamp)?$|month|year[\s_-]*(end|start)|maturity|origination|closing|paid[\s_-]*(thru|through))`)
	numericNamePattern = regexp.MustCompile(`(?i)(amount|amt|balance|price|cost|total|count|qty|quantity|rate|ratio|pct|percent|score|fico|age|term|payment|principal|interest|fee)`)
	booleanNamePattern = regexp.MustCompile(`(?i)(^is[\s_-]|^has[\s_-]|flag$|indicator$|[\s_-]yn$|active$|enabled$)`)

	scoreNamePattern = regexp.MustCompile(`(?i)(score|fico)`)
	zipNamePattern   = regexp.MustCompile(`(?i)(zip|postal)`)
)

// Content format regexes
var (
	zipRegex         = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	ssnRegex         = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	phoneRegex       = regexp.MustCompile(`^[+]?[\d\s().-]{10,17}$`)
	leadingZeroRegex = regexp.MustCompile(`^0\d+$`)
	eightDigitRegex  = regexp.MustCompile(`^\d{8}$`)
	currencyRegex    = regexp.MustCompile(`^[($€£¥-]*[\d,]+(\.\d+)?[)%]*$`)
)

// InferType infers the semantic type of a column from its sampled values
// and its field name. The function is pure: identical inputs always produce
// identical output, since the result feeds confidence scoring downstream.
//
// Priority order:
//  1. Field-name overrides for domain-known exceptions (identifier fields
//     that must stay strings, rate fields that must stay numbers) win over
//     any sample content.
//  2. With at least MinSufficientSamples non-empty samples, content
//     detection is trusted: special string formats, then boolean, date,
//     and numeric families at TypeMatchThreshold, then a loose numeric
//     check, then narrow field-name exceptions.
//  3. With fewer samples, field-name hints are consulted before the date
//     and numeric checks because sparse samples are unreliable.
//  4. With no samples at all, the field name alone decides.
func InferType(samples []any, fieldName string) InferredType {
	if forcedStringNamePattern.MatchString(fieldName) {
		return TypeString
	}
	if forcedNumberNamePattern.MatchString(fieldName) {
		return TypeNumber
	}

	values := nonEmptyValues(samples)
	if len(values) == 0 {
		return inferTypeFromName(fieldName)
	}

	if len(values) >= MinSufficientSamples {
		return inferFromContent(values, fieldName)
	}
	return inferFromSparseContent(values, fieldName)
}

// inferFromContent runs content detection over a sufficient sample set.
func inferFromContent(values []string, fieldName string) InferredType {
	if hasSpecialStringFormat(values) {
		return TypeString
	}
	if matchRatio(values, isBooleanValue) >= TypeMatchThreshold {
		return TypeBoolean
	}
	if matchRatio(values, isDateValue) >= TypeMatchThreshold {
		return TypeDate
	}
	if matchRatio(values, isNumericValue) >= TypeMatchThreshold {
		return TypeNumber
	}
	if matchRatio(values, isNumericValue) >= LooseNumericThreshold {
		return TypeNumber
	}
	if scoreNamePattern.MatchString(fieldName) && matchRatio(values, isNumericValue) > 0 {
		return TypeNumber
	}
	if zipNamePattern.MatchString(fieldName) {
		return TypeString
	}
	return TypeString
}

// inferFromSparseContent handles columns with fewer than
// MinSufficientSamples values, where name hints outrank content.
func inferFromSparseContent(values []string, fieldName string) InferredType {
	if hasSpecialStringFormat(values) {
		return TypeString
	}
	if matchRatio(values, isBooleanValue) >= TypeMatchThreshold {
		return TypeBoolean
	}
	if hint := inferTypeFromNameHint(fieldName); hint != "" {
		return hint
	}
	if matchRatio(values, isDateValue) >= TypeMatchThreshold {
		return TypeDate
	}
	if matchRatio(values, isNumericValue) >= TypeMatchThreshold {
		return TypeNumber
	}
	return TypeString
}

// inferTypeFromName decides a type from the field name alone.
func inferTypeFromName(fieldName string) InferredType {
	if hint := inferTypeFromNameHint(fieldName); hint != "" {
		return hint
	}
	return TypeString
}

// inferTypeFromNameHint returns the name-derived type, or "" when no
// pattern family matches. Identifier patterns are checked first so that
// "customer_id" stays a string even though it often holds digits.
func inferTypeFromNameHint(fieldName string) InferredType {
	if fieldName == "" {
		return ""
	}
	if idNamePattern.MatchString(fieldName) {
		return TypeString
	}
	if dateNamePattern.MatchString(fieldName) {
		return TypeDate
	}
	if booleanNamePattern.MatchString(fieldName) {
		return TypeBoolean
	}
	if numericNamePattern.MatchString(fieldName) {
		return TypeNumber
	}
	return ""
}

// nonEmptyValues stringifies samples and strips nil and blank entries.
func nonEmptyValues(samples []any) []string {
	values := make([]string, 0, len(samples))
	for _, sample := range samples {
		if isEmptyValue(sample) {
			continue
		}
		values = append(values, stringifyValue(sample))
	}
	return values
}

// stringifyValue renders a raw sampled cell value for pattern checks.
// Floats that carry no fraction render without a decimal point so Excel
// serials and integer scores are recognized.
func stringifyValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		if value == math.Trunc(value) && math.Abs(value) < 1e15 {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return stringifyValue(float64(value))
	case time.Time:
		return value.Format(time.RFC3339)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// matchRatio returns the fraction of values accepted by the predicate.
func matchRatio(values []string, predicate func(string) bool) float64 {
	if len(values) == 0 {
		return 0
	}
	matched := 0
	for _, v := range values {
		if predicate(v) {
			matched++
		}
	}
	return float64(matched) / float64(len(values))
}

// hasSpecialStringFormat reports whether the sample set looks like one of
// the string families that would otherwise be misread as numbers: ZIP
// codes, phone numbers, SSNs, or numerics with leading zeros.
func hasSpecialStringFormat(values []string) bool {
	zip, ssn, phone, leadingZero := 0, 0, 0, 0
	for _, v := range values {
		switch {
		case leadingZeroRegex.MatchString(v):
			leadingZero++
		case zipRegex.MatchString(v):
			zip++
		case ssnRegex.MatchString(v):
			ssn++
		case isPhoneValue(v):
			phone++
		}
	}
	total := float64(len(values))
	return float64(leadingZero)/total >= TypeMatchThreshold ||
		float64(zip)/total >= TypeMatchThreshold ||
		float64(ssn)/total >= TypeMatchThreshold ||
		float64(phone)/total >= TypeMatchThreshold
}

// isPhoneValue checks for a 10 or 11 digit phone number under common punctuation.
func isPhoneValue(v string) bool {
	if !phoneRegex.MatchString(v) {
		return false
	}
	digits := countDigits(v)
	return digits == 10 || digits == 11
}

// countDigits counts ASCII digits in a string.
func countDigits(v string) int {
	n := 0
	for _, r := range v {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// booleanVocabulary is the set of values accepted as booleans. Bare 0/1
// are excluded so binary numeric columns stay numeric.
var booleanVocabulary = map[string]bool{
	"true": true, "false": true,
	"yes": true, "no": true,
	"y": true, "n": true,
	"t": true, "f": true,
}

// isBooleanValue checks membership in the boolean vocabulary.
func isBooleanValue(v string) bool {
	return booleanVocabulary[strings.ToLower(v)]
}

// isDateValue reports whether a value reads as a date. Plain integers are
// interpreted as Excel date serials when positive and below
// MaxExcelDateSerial, unless they sit in the FICO score range or read as a
// ZIP code. 8-digit numbers are probed as YYYYMMDD before rejection.
func isDateValue(v string) bool {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n >= CreditScoreMin && n <= CreditScoreMax {
			return false
		}
		if zipRegex.MatchString(v) {
			return false
		}
		if eightDigitRegex.MatchString(v) {
			_, err := time.Parse("20060102", v)
			return err == nil
		}
		return n > 0 && n < MaxExcelDateSerial
	}

	for _, dp := range datetimePatterns {
		if dp.pattern.MatchString(v) {
			for _, format := range dp.formats {
				if _, err := time.Parse(format, v); err == nil {
					return true
				}
			}
		}
	}
	return false
}

// isNumericValue reports whether a value reads as a number after common
// spreadsheet decorations are removed: currency symbols, thousands
// separators, percent signs, and parenthesized negatives. Pipe-delimited
// multi-values count when every part is numeric.
func isNumericValue(v string) bool {
	if strings.Contains(v, "|") {
		parts := strings.Split(v, "|")
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" || !isNumericValue(part) {
				return false
			}
		}
		return true
	}

	cleaned := strings.TrimSpace(v)
	if cleaned == "" || !currencyRegex.MatchString(cleaned) {
		// Fall back to a plain float parse for scientific notation and
		// signs the regex does not cover.
		_, err := strconv.ParseFloat(cleaned, 64)
		return err == nil
	}

	negative := strings.HasPrefix(cleaned, "(") && strings.HasSuffix(strings.TrimSuffix(cleaned, "%"), ")")
	replacer := strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", "(", "", ")", "", "%", "")
	cleaned = strings.TrimSpace(replacer.Replace(cleaned))
	if cleaned == "" {
		return false
	}
	if negative {
		cleaned = "-" + strings.TrimPrefix(cleaned, "-")
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}
