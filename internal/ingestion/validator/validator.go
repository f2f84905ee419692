// Package validator checks ingestion requests before any extraction work is
// done and derives the document's display name.
package validator

import (
	"net/http"
	"path"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const maxFilenameLength = 1024

// ValidateIngestRequest rejects a request with no file, a file over
// maxBytes (when positive), or an oversized filename.
func ValidateIngestRequest(req *ingestion.IngestRequest, maxBytes int64) error {
	if req == nil || (req.Filename == "" && len(req.Data) == 0) {
		return apperrors.MissingFile()
	}
	if maxBytes > 0 && int64(len(req.Data)) > maxBytes {
		return apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
			"File exceeds the %d byte upload limit", maxBytes)
	}
	if len(req.Filename) > maxFilenameLength {
		return apperrors.Newf(apperrors.ErrMalformedRequest, http.StatusBadRequest,
			"Filename must be at most %d bytes", maxFilenameLength)
	}
	return nil
}

// DisplayName returns the filename without any client-side directory.
func DisplayName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "untitled"
	}
	return name
}
