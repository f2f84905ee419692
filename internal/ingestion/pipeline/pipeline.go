// Package pipeline turns an uploaded file into indexed chunks: it extracts
// text, appends the document to the index under a single-writer lock, and
// persists the result.
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// Tracker receives analytics events. It must not block.
type Tracker interface {
	Track(event analytics.Event)
}

type Pipeline struct {
	store     store.Store
	extractor extract.Extractor
	cfg       config.IngestConfig
	cache     *cache.QueryCache
	metrics   *metrics.Metrics
	tracker   Tracker

	// mu serializes writers within the process; the store's Locker, when
	// present, extends that across processes.
	mu     sync.Mutex
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
}

// New builds a Pipeline. queryCache, m and tracker may be nil.
func New(st store.Store, ex extract.Extractor, cfg config.IngestConfig, queryCache *cache.QueryCache, m *metrics.Metrics, tracker Tracker) *Pipeline {
	return &Pipeline{
		store:     st,
		extractor: ex,
		cfg:       cfg,
		cache:     queryCache,
		metrics:   m,
		tracker:   tracker,
		newID:     uuid.NewString,
		now:       time.Now,
		logger:    slog.Default().With("component", "ingest-pipeline"),
	}
}

// Ingest indexes one file and returns its generated id, display name and
// chunk count. On any failure the persisted index is left unchanged.
func (p *Pipeline) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResult, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "ingest")
	defer span.End()

	result, err := p.ingest(ctx, req)
	p.record(ctx, start, req, result, err)
	return result, err
}

func (p *Pipeline) ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResult, error) {
	log := logger.FromContext(ctx).With("component", "ingest-pipeline")

	if err := validator.ValidateIngestRequest(req, p.cfg.MaxUploadBytes); err != nil {
		return nil, err
	}
	name := validator.DisplayName(req.Filename)

	extractCtx, extractSpan := tracing.Start(ctx, "extract")
	extractSpan.SetAttr("format", string(extract.Detect(req.Filename, req.ContentType)))
	text, err := resilience.WithTimeout(extractCtx, p.cfg.ExtractTimeout, "extract",
		func(ctx context.Context) (string, error) {
			return p.extractor.Extract(ctx, req.Filename, req.ContentType, req.Data)
		})
	extractSpan.End()
	if err != nil {
		log.Warn("extraction failed", "name", name, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrExtraction, err, "Could not extract text from file")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.EmptyContent()
	}

	docID := p.newID()
	chunks, stats, err := p.commit(ctx, docID, name, text)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			log.Warn("query cache invalidation failed", "error", err)
		}
	}
	if p.metrics != nil {
		p.metrics.SetIndexSize(stats.Documents, stats.Chunks, stats.Terms)
	}

	log.Info("document ingested",
		"doc_id", docID,
		"name", name,
		"chunks", chunks,
		"total_chunks", stats.Chunks,
	)
	return &ingestion.IngestResult{ID: docID, Name: name, Chunks: chunks}, nil
}

// commit is the single-writer region: load, append, save.
func (p *Pipeline) commit(ctx context.Context, docID, name, text string) (int, index.Stats, error) {
	ctx, span := tracing.Start(ctx, "commit")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	if locker, ok := p.store.(store.Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			return 0, index.Stats{}, apperrors.Wrap(apperrors.ErrInternal, err, "acquiring index lock")
		}
		defer func() {
			if err := unlock(); err != nil {
				p.logger.Warn("releasing index lock failed", "error", err)
			}
		}()
	}

	idx, err := p.store.Load(ctx)
	if err != nil {
		return 0, index.Stats{}, apperrors.Wrap(apperrors.ErrInternal, err, "loading index")
	}
	chunks, err := idx.AddDocument(docID, name, text, index.AddOptions{
		MaxChars: p.cfg.MaxChars,
		NewID:    p.newID,
		Now:      p.now,
	})
	if err != nil {
		return 0, index.Stats{}, err
	}
	span.SetAttr("chunks", chunks)
	if err := p.store.Save(ctx, idx); err != nil {
		return 0, index.Stats{}, apperrors.Wrap(apperrors.ErrInternal, err, "saving index")
	}
	return chunks, idx.Stats(), nil
}

func (p *Pipeline) record(ctx context.Context, start time.Time, req *ingestion.IngestRequest, result *ingestion.IngestResult, err error) {
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.IngestDuration.Observe(elapsed.Seconds())
		if err != nil {
			p.metrics.IngestFailuresTotal.WithLabelValues(apperrors.Code(err)).Inc()
		} else {
			p.metrics.DocumentsIngestedTotal.Inc()
			p.metrics.ChunksIndexedTotal.Add(float64(result.Chunks))
		}
	}
	if p.tracker == nil {
		return
	}
	event := analytics.Event{
		Type:      analytics.EventIngest,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
		LatencyMs: elapsed.Milliseconds(),
	}
	if req != nil {
		event.Name = validator.DisplayName(req.Filename)
		event.SizeBytes = len(req.Data)
	}
	if err != nil {
		event.ErrorCode = apperrors.Code(err)
	} else {
		event.DocumentID = result.ID
		event.Chunks = result.Chunks
	}
	p.tracker.Track(event)
}

// Documents lists every indexed document in upload order.
func (p *Pipeline) Documents(ctx context.Context) ([]index.DocumentMeta, error) {
	idx, err := p.store.Load(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err, "loading index")
	}
	return idx.ListDocuments(), nil
}

// Document returns one document's metadata.
func (p *Pipeline) Document(ctx context.Context, id string) (index.DocumentMeta, bool, error) {
	idx, err := p.store.Load(ctx)
	if err != nil {
		return index.DocumentMeta{}, false, apperrors.Wrap(apperrors.ErrInternal, err, "loading index")
	}
	meta, ok := idx.Document(id)
	return meta, ok, nil
}
