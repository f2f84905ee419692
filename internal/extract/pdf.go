package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the plain text layer of a PDF document.
type PDF struct{}

func (PDF) Extract(ctx context.Context, _, _ string, data []byte) (text string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parsing pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}
