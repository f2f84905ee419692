package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *ingestion.IngestRequest
		maxBytes int64
		wantErr  error
	}{
		{"nil", nil, 0, apperrors.ErrMissingInput},
		{"no file", &ingestion.IngestRequest{}, 0, apperrors.ErrMissingInput},
		{"empty file with name", &ingestion.IngestRequest{Filename: "a.txt"}, 0, nil},
		{"ok", &ingestion.IngestRequest{Filename: "a.txt", Data: []byte("hi")}, 10, nil},
		{"too large", &ingestion.IngestRequest{Filename: "a.txt", Data: []byte("hello world")}, 5, apperrors.ErrPayloadTooLarge},
		{"long name", &ingestion.IngestRequest{Filename: strings.Repeat("n", 2000), Data: []byte("x")}, 0, apperrors.ErrMalformedRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(tt.req, tt.maxBytes)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateIngestRequest_MissingFileMessage(t *testing.T) {
	err := ValidateIngestRequest(nil, 0)
	assert.Equal(t, "No file uploaded (field name must be `file`)", apperrors.Message(err))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "notes.pdf", DisplayName("notes.pdf"))
	assert.Equal(t, "report.docx", DisplayName(`C:\Users\me\report.docx`))
	assert.Equal(t, "a b.txt", DisplayName("dir/sub/a b.txt"))
	assert.Equal(t, "untitled", DisplayName(""))
	assert.Equal(t, "untitled", DisplayName("  "))
}
