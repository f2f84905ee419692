package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

const maxChatBodyBytes = 1 << 20

type QueryExecutor interface {
	Execute(ctx context.Context, req *executor.Request) (*executor.Result, error)
}

// Tracker receives analytics events. It must not block.
type Tracker interface {
	Track(event analytics.Event)
}

type Handler struct {
	executor QueryExecutor
	cache    *cache.QueryCache
	tracker  Tracker
	logger   *slog.Logger
}

// New builds the query handler. queryCache and tracker may be nil.
func New(exec QueryExecutor, queryCache *cache.QueryCache, tracker Tracker) *Handler {
	return &Handler{
		executor: exec,
		cache:    queryCache,
		tracker:  tracker,
		logger:   slog.Default().With("component", "chat-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/chat", h.Chat)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Chat answers POST /api/chat with a JSON body {message, topK, docs}.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx).With("component", "chat-handler")

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, apperrors.MethodNotAllowed(r.Method))
		return
	}

	req, err := decodeRequest(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.executor.Execute(ctx, req)
	if err != nil {
		if apperrors.HTTPStatusCode(err) >= http.StatusInternalServerError {
			log.Error("query failed", "error", err)
		}
		h.track(ctx, start, req, nil, err)
		h.writeError(w, err)
		return
	}

	h.track(ctx, start, req, result, nil)
	h.writeJSON(w, http.StatusOK, result)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*executor.Request, error) {
	body := http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	var req executor.Request
	err := json.NewDecoder(body).Decode(&req)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return &req, nil
	case errors.As(err, &tooLarge):
		return nil, apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
			"Request body exceeds %d bytes", tooLarge.Limit)
	default:
		return nil, apperrors.Wrap(apperrors.ErrMalformedRequest, err, "Request body must be a JSON object")
	}
}

func (h *Handler) track(ctx context.Context, start time.Time, req *executor.Request, result *executor.Result, err error) {
	if h.tracker == nil {
		return
	}
	event := analytics.Event{
		Type:      analytics.EventQuery,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		DocFilter: len(req.Docs),
	}
	if err != nil {
		event.Outcome = "error"
		event.ErrorCode = apperrors.Code(err)
	} else {
		event.Terms = result.Terms
		event.Outcome = string(result.Outcome)
		event.Returned = len(result.Sources)
		event.CacheHit = result.CacheHit
		if len(result.Sources) > 0 {
			event.TopScore = result.Sources[0].Score
		}
	}
	h.tracker.Track(event)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.cache.Stats()
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"backend":  stats.Backend,
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled", "code": "cache_disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.Wrap(apperrors.ErrInternal, err, "cache invalidation failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
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
