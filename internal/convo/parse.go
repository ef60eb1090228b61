package convo

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	zipPattern     = regexp.MustCompile(`\b(\d{5})\b`)
	ordinalPattern = regexp.MustCompile(`\b(\d{1,2})\b`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern   = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
)

// Ordinal words take precedence over bare number words so that "the
// second one" resolves to 2, not 1.
var ordinalWords = []struct {
	word string
	n    int
}{
	{"first", 1}, {"second", 2}, {"third", 3}, {"fourth", 4}, {"fifth", 5},
	{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
}

// extractZip pulls a five-digit ZIP code out of free text.
func extractZip(text string) (string, bool) {
	m := zipPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// extractOrdinal pulls a 1-based list choice out of free text, either a
// bare number ("2") or an ordinal word ("the second one").
func extractOrdinal(text string) (int, bool) {
	lower := strings.ToLower(text)
	for _, ow := range ordinalWords {
		if containsWord(lower, ow.word) {
			return ow.n, true
		}
	}
	if m := ordinalPattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 {
			return n, true
		}
	}
	return 0, false
}

// extractEmail pulls the first email address out of free text.
func extractEmail(text string) (string, bool) {
	m := emailPattern.FindString(text)
	return m, m != ""
}

// extractPhone pulls the first US-style phone number out of free text.
func extractPhone(text string) (string, bool) {
	m := phonePattern.FindString(text)
	return m, m != ""
}

var affirmatives = []string{"yes", "yep", "yeah", "confirm", "sure", "correct", "ok", "okay", "y"}

var negatives = []string{"no", "nope", "nah", "cancel", "stop", "n"}

// isAffirmative reports whether the message confirms a pending action.
func isAffirmative(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range affirmatives {
		if lower == w || containsWord(lower, w) {
			return true
		}
	}
	return false
}

// isNegative reports whether the message declines a pending action.
func isNegative(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range negatives {
		if lower == w || containsWord(lower, w) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isAlnum(text[start-1])
		afterOK := end == len(text) || !isAlnum(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
