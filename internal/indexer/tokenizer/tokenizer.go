// Package tokenizer normalises raw text into index terms. It lower-cases
// input, treats everything outside ASCII letters and digits as a separator,
// and drops short tokens and stop-words. No stemming is applied.
package tokenizer

import (
	"strings"
	"unicode"
)

// MinTermLength is the shortest token kept; shorter tokens are noise.
const MinTermLength = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "a": {}, "an": {}, "of": {}, "in": {},
	"on": {}, "to": {}, "is": {}, "are": {}, "for": {}, "with": {},
	"that": {}, "this": {}, "it": {}, "as": {}, "by": {}, "at": {},
	"from": {}, "be": {}, "or": {}, "we": {}, "you": {},
}

// Tokenize breaks text into lowercased terms with stop-words and tokens of
// two characters or fewer removed. The result may be empty but is never nil.
func Tokenize(text string) []string {
	normalized := strings.Map(normalizeRune, strings.ToLower(text))
	words := strings.Fields(normalized)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < MinTermLength {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// IsStopWord reports whether term belongs to the fixed stop-word set.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// Counts returns the raw occurrence count of every term.
func Counts(terms []string) map[string]int {
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}

// normalizeRune keeps [a-z0-9] and whitespace; line breaks and every other
// rune become a plain space.
func normalizeRune(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return r
	case r == '\r' || r == '\n':
		return ' '
	case unicode.IsSpace(r):
		return r
	default:
		return ' '
	}
}
