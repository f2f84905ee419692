package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        Format
	}{
		{"report.pdf", "", FormatPDF},
		{"REPORT.PDF", "application/octet-stream", FormatPDF},
		{"blob", "application/pdf", FormatPDF},
		{"notes.docx", "", FormatWord},
		{"Notes.DOCX", "text/plain", FormatWord},
		{"upload", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", FormatWord},
		{"legacy.doc", "application/msword", FormatWord},
		{"notes.txt", "text/plain", FormatText},
		{"data.csv", "", FormatText},
		{"weird.pdf.txt", "application/pdf-ish", FormatText},
		// pdf wins over word when both match
		{"both.pdf", "application/msword", FormatPDF},
	}
	for _, tt := range tests {
		t.Run(tt.filename+"|"+tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.filename, tt.contentType))
		})
	}
}

func TestDispatcher_Routes(t *testing.T) {
	called := ""
	stub := func(name string) Extractor {
		return Func(func(context.Context, string, string, []byte) (string, error) {
			called = name
			return name, nil
		})
	}
	d := &Dispatcher{PDF: stub("pdf"), Word: stub("word"), Text: stub("text")}

	for filename, want := range map[string]string{"a.pdf": "pdf", "a.docx": "word", "a.md": "text"} {
		got, err := d.Extract(context.Background(), filename, "", nil)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, want, called)
	}
}

func TestText_ReplacesInvalidUTF8(t *testing.T) {
	got, err := Text{}.Extract(context.Background(), "a.txt", "", []byte("ok \xff\xfe done"))
	require.NoError(t, err)
	assert.Equal(t, "ok \uFFFD done", got)
}

func TestDOCX_ExtractsParagraphs(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Zephyrquartz</w:t></w:r><w:r><w:t xml:space="preserve"> crystals</w:t></w:r></w:p>
    <w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t></w:r></w:p>
    <w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildDOCX(t, map[string]string{
		"[Content_Types].xml": `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   doc,
	})

	got, err := DOCX{}.Extract(context.Background(), "a.docx", "", data)
	require.NoError(t, err)
	assert.Equal(t, "Zephyrquartz crystals\n\nCol A\tCol B\n\nline one\nline two", got)
}

func TestDOCX_IgnoresTabStopDefinitions(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/><w:tab w:val="right" w:pos="9000"/></w:tabs></w:pPr>
      <w:r><w:t>Invoice</w:t></w:r><w:r><w:tab/><w:t>Total</w:t></w:r>
    </w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Cell one</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Cell two</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`
	data := buildDOCX(t, map[string]string{"word/document.xml": doc})

	got, err := DOCX{}.Extract(context.Background(), "a.docx", "", data)
	require.NoError(t, err)
	assert.Equal(t, "Invoice\tTotal\n\nCell one\n\nCell two", got)
}

func TestDOCX_Errors(t *testing.T) {
	_, err := DOCX{}.Extract(context.Background(), "a.docx", "", []byte("not a zip"))
	assert.Error(t, err)

	noBody := buildDOCX(t, map[string]string{"other.xml": "<x/>"})
	_, err = DOCX{}.Extract(context.Background(), "a.docx", "", noBody)
	assert.ErrorContains(t, err, "word/document.xml")
}

func TestPDF_RejectsGarbage(t *testing.T) {
	_, err := PDF{}.Extract(context.Background(), "a.pdf", "application/pdf", []byte("%PDF-1.4 truncated"))
	assert.Error(t, err)

	_, err = PDF{}.Extract(context.Background(), "a.pdf", "", nil)
	assert.Error(t, err)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDispatcher().Extract(ctx, "a.txt", "", []byte("hello"))
	assert.ErrorIs(t, err, context.Canceled)
}

func buildDOCX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
