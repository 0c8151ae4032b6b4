package grading

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SimilarityThreshold is the minimum normalized similarity for a fuzzy
// roster match.
const SimilarityThreshold = 0.85

// FormatCutoff is the date the submission form switched to a roster
// dropdown. Entries at or after it must match "Last, First" exactly;
// earlier free-text entries fall back to fuzzy matching.
var FormatCutoff = time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)

// Match resolves a student name from a reflection row to an OrgDefinedId.
func (r *Roster) Match(studentName string, entryTime time.Time) (string, bool) {
	key := normalizeName(studentName)
	if key == "" {
		return "", false
	}

	if !entryTime.Before(FormatCutoff) {
		orgID, ok := r.byLastFirst[key]
		return orgID, ok
	}

	// Before the cutoff: exact match in either order first.
	if orgID, ok := r.byLastFirst[key]; ok {
		return orgID, true
	}
	if orgID, ok := r.byFirstLast[key]; ok {
		return orgID, true
	}

	// Fuzzy fallback: best normalized similarity over all name variations.
	bestScore := 0.0
	bestID := ""
	for _, entry := range r.names {
		score := similarity(key, normalizeName(entry.Name))
		if score > bestScore {
			bestScore = score
			bestID = entry.OrgID
		}
	}
	if bestScore >= SimilarityThreshold {
		return bestID, true
	}
	return "", false
}

var nameNormalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)), // strip diacritics
	norm.NFC,
)

// normalizeName case-folds, strips diacritics and collapses whitespace so
// "García,  José" and "garcia, jose" compare equal.
func normalizeName(s string) string {
	stripped, _, err := transform.String(nameNormalizer, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}

// similarity is a normalized Levenshtein ratio in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
