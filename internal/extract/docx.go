package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

const documentPart = "word/document.xml"

// DOCX extracts raw text from an Office Open XML word-processing document.
// Paragraphs, including those inside table cells, are separated by a blank
// line; tabs and line breaks inside a run are kept.
type DOCX struct{}

func (DOCX) Extract(ctx context.Context, _, _ string, data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx: %w", err)
	}
	// Parse only names the document once it has decoded the main part.
	if doc.Document.XMLName.Local != "document" {
		return "", errors.New("opening docx: missing " + documentPart)
	}

	w := &docxWriter{ctx: ctx}
	for _, item := range doc.Document.Body.Items {
		if err := w.item(item); err != nil {
			return "", err
		}
	}
	return w.out.String(), nil
}

type docxWriter struct {
	ctx        context.Context
	out        strings.Builder
	paragraphs int
}

func (w *docxWriter) item(item interface{}) error {
	switch v := item.(type) {
	case *docx.Paragraph:
		return w.paragraph(v)
	case *docx.Table:
		return w.table(v)
	}
	return nil
}

func (w *docxWriter) table(t *docx.Table) error {
	for _, row := range t.TableRows {
		for _, cell := range row.TableCells {
			for _, p := range cell.Paragraphs {
				if err := w.paragraph(p); err != nil {
					return err
				}
			}
			for _, nested := range cell.Tables {
				if err := w.table(nested); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *docxWriter) paragraph(p *docx.Paragraph) error {
	if w.paragraphs%64 == 0 {
		if err := w.ctx.Err(); err != nil {
			return err
		}
	}
	if w.out.Len() > 0 {
		w.out.WriteString("\n\n")
	}
	w.paragraphs++
	for _, child := range p.Children {
		switch c := child.(type) {
		case *docx.Run:
			w.run(c)
		case *docx.Hyperlink:
			w.run(&c.Run)
		}
	}
	return nil
}

func (w *docxWriter) run(r *docx.Run) {
	for _, child := range r.Children {
		switch c := child.(type) {
		case *docx.Text:
			w.out.WriteString(c.Text)
		case *docx.Tab:
			w.out.WriteByte('\t')
		case *docx.BarterRabbet:
			w.out.WriteByte('\n')
		}
	}
}
