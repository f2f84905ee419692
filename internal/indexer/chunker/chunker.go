// Package chunker splits extracted document text into bounded passages.
// Paragraphs are packed greedily into chunks of at most maxChars characters;
// a paragraph that is longer than the bound on its own is sliced.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is used when the caller passes a bound below 1.
const DefaultMaxChars = 1200

const paragraphSeparator = "\n\n"

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Chunk returns the passages of text in document order. No passage is longer
// than maxChars runes. Empty or whitespace-only input yields no chunks.
func Chunk(text string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = DefaultMaxChars
	}
	chunks := make([]string, 0)
	emit := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			chunks = append(chunks, s)
		}
	}

	var buf []rune
	for _, para := range paragraphs(text) {
		p := []rune(para)
		if joinedLen(buf, p) <= maxChars {
			if len(buf) > 0 {
				buf = append(buf, []rune(paragraphSeparator)...)
			}
			buf = append(buf, p...)
			continue
		}
		emit(string(buf))
		buf = p
		for len(buf) > maxChars {
			emit(string(buf[:maxChars]))
			buf = buf[maxChars:]
		}
	}
	emit(string(buf))
	return chunks
}

func paragraphs(text string) []string {
	parts := lineBreaks.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinedLen(buf, para []rune) int {
	if len(buf) == 0 {
		return len(para)
	}
	return len(buf) + utf8.RuneCountInString(paragraphSeparator) + len(para)
}
