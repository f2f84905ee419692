package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// multipartOverhead is added to the file limit to leave room for part
// headers and boundaries.
const multipartOverhead = 64 << 10

type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResult, error)
	Documents(ctx context.Context) ([]index.DocumentMeta, error)
	Document(ctx context.Context, id string) (index.DocumentMeta, bool, error)
}

type Handler struct {
	ingester Ingester
	maxBytes int64
	logger   *slog.Logger
}

func New(ing Ingester, maxUploadBytes int64) *Handler {
	return &Handler{
		ingester: ing,
		maxBytes: maxUploadBytes,
		logger:   slog.Default().With("component", "upload-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/upload", h.Upload)
	mux.HandleFunc("GET /api/v1/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
}

// Upload accepts POST /api/upload with the document in multipart field
// "file".
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx).With("component", "upload-handler")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, apperrors.MethodNotAllowed(r.Method))
		return
	}

	req, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.ingester.Ingest(ctx, req)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("ingestion failed", "name", req.Filename, "error", err)
		} else {
			log.Info("upload rejected", "name", req.Filename, "code", apperrors.Code(err))
		}
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*ingestion.IngestRequest, error) {
	tooLargeErr := apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
		"File exceeds the %d byte upload limit", h.maxBytes)
	if h.maxBytes > 0 {
		if r.ContentLength > h.maxBytes+multipartOverhead {
			return nil, tooLargeErr
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
	case errors.As(err, &tooLarge):
		return nil, tooLargeErr
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return nil, apperrors.MissingFile()
	default:
		return nil, apperrors.Wrap(apperrors.ErrMalformedRequest, err, "Request must be multipart/form-data")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedRequest, err, "Could not read uploaded file")
	}
	return &ingestion.IngestRequest{
		Filename:    header.Filename,
		ContentType: contentType(header),
		Data:        data,
	}, nil
}

func contentType(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.ingester.Documents(r.Context())
	if err != nil {
		h.logger.Error("listing documents failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	meta, ok, err := h.ingester.Document(r.Context(), id)
	if err != nil {
		h.logger.Error("loading document failed", "doc_id", id, "error", err)
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "document not found",
			"code":  "not_found",
		})
		return
	}
	h.writeJSON(w, http.StatusOK, meta)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{
		"error": apperrors.Message(err),
		"code":  apperrors.Code(err),
	})
}
