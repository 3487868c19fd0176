package sheetmap

import (
	"strings"
)

// Similarity scoring constants
const (
	// ContainmentBaseScore is the floor for one normalized name containing the other
	ContainmentBaseScore = 0.5
	// ContainmentLengthWeight scales the containment score by length ratio
	ContainmentLengthWeight = 0.4
)

// separatorReplacer folds the separator characters found in spreadsheet
// headers and SQL identifiers into a single class before comparison.
var separatorReplacer = strings.NewReplacer("-", " ", "_", " ", ".", " ", "/", " ")

// Similarity scores how alike two free-text identifiers are, in [0,1].
// Names are normalized before comparison: lowercased, ampersands expanded
// to "and", and hyphen/underscore/space runs folded to one separator. An
// exact match under any separator variant (including no separator at all,
// so "P&I" matches "p_i" and "pi") scores 1.0. Otherwise the score falls
// back to substring containment scaled by length ratio, or a normalized
// edit-distance measure, whichever is higher.
//
// The function is symmetric: Similarity(a, b) == Similarity(b, a).
func Similarity(a, b string) float64 {
	na := normalizeName(a)
	nb := normalizeName(b)
	if na == "" || nb == "" {
		if na == nb {
			return 1
		}
		return 0
	}
	if na == nb {
		return 1
	}

	// Compare every ampersand variant with separators removed entirely so
	// "p&i" meets "p_i", "p i", "pi", and "p and i" alike.
	for _, ca := range compactVariants(a) {
		for _, cb := range compactVariants(b) {
			if ca == cb {
				return 1
			}
		}
	}

	ca := strings.ReplaceAll(na, " ", "")
	cb := strings.ReplaceAll(nb, " ", "")
	containment := containmentScore(ca, cb)
	edit := editDistanceScore(na, nb)
	if containment > edit {
		return containment
	}
	return edit
}

// normalizeName lowercases a name, expands ampersands, and collapses
// separator runs to single spaces.
func normalizeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	lowered = strings.ReplaceAll(lowered, "&", " and ")
	lowered = separatorReplacer.Replace(lowered)
	return strings.Join(strings.Fields(lowered), " ")
}

// compactVariants renders a name with every separator stripped, once with
// ampersands expanded to "and" and once with them treated as plain
// separators.
func compactVariants(name string) []string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	expanded := strings.ReplaceAll(lowered, "&", " and ")
	dropped := strings.ReplaceAll(lowered, "&", " ")

	variants := make([]string, 0, 2)
	for _, v := range []string{expanded, dropped} {
		v = separatorReplacer.Replace(v)
		v = strings.Join(strings.Fields(v), "")
		variants = append(variants, v)
	}
	if variants[0] == variants[1] {
		return variants[:1]
	}
	return variants
}

// containmentScore scores one compact name containing the other, scaled by
// how much of the longer name the shorter one covers.
func containmentScore(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) == 0 || !strings.Contains(longer, shorter) {
		return 0
	}
	ratio := float64(len(shorter)) / float64(len(longer))
	return ContainmentBaseScore + ContainmentLengthWeight*ratio
}

// editDistanceScore converts Levenshtein distance into a similarity in [0,1].
func editDistanceScore(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes the classic edit distance with a two-row table.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// minInt returns the smallest of its arguments.
func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
