// Package extract turns uploaded file bytes into plain text. The Dispatcher
// picks a format from the filename and content type; each format has its own
// Extractor so callers and tests can swap them out.
package extract

import (
	"context"
	"strings"
)

// Extractor converts raw file content to text.
type Extractor interface {
	Extract(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Func adapts an ordinary function to the Extractor interface.
type Func func(ctx context.Context, filename, contentType string, data []byte) (string, error)

func (f Func) Extract(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	return f(ctx, filename, contentType, data)
}

// Format identifies which extractor handles a file.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatWord Format = "docx"
	FormatText Format = "text"
)

// Detect applies the dispatch rule: a ".pdf" suffix or the exact PDF media
// type selects PDF, then a ".docx" suffix or any content type mentioning
// "word" selects Word, and everything else is decoded as UTF-8 text.
func Detect(filename, contentType string) Format {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".pdf") || contentType == "application/pdf":
		return FormatPDF
	case strings.HasSuffix(name, ".docx") || strings.Contains(contentType, "word"):
		return FormatWord
	default:
		return FormatText
	}
}

// Dispatcher routes each file to the extractor for its format.
type Dispatcher struct {
	PDF  Extractor
	Word Extractor
	Text Extractor
}

// NewDispatcher returns a Dispatcher wired with the built-in extractors.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		PDF:  PDF{},
		Word: DOCX{},
		Text: Text{},
	}
}

func (d *Dispatcher) Extract(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch Detect(filename, contentType) {
	case FormatPDF:
		return d.PDF.Extract(ctx, filename, contentType, data)
	case FormatWord:
		return d.Word.Extract(ctx, filename, contentType, data)
	default:
		return d.Text.Extract(ctx, filename, contentType, data)
	}
}
