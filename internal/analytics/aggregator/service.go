package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

const DefaultSnapshotInterval = time.Minute

// Service consumes analytics events from Kafka into an Aggregator and, when
// a database is available, restores and snapshots the totals.
type Service struct {
	agg      *analytics.Aggregator
	store    *Store
	interval time.Duration
	logger   *slog.Logger
}

// NewService wires the consumer for cfg's analytics topic. db may be nil,
// in which case totals start from zero on every boot.
func NewService(cfg config.KafkaConfig, db *postgres.Client) *Service {
	agg := analytics.NewAggregator(nil)
	agg.SetConsumer(kafka.NewConsumer(cfg, cfg.Topics.AnalyticsEvents, analytics.HandleEvent(agg)))
	s := &Service{
		agg:      agg,
		interval: DefaultSnapshotInterval,
		logger:   slog.Default().With("component", "analytics-service"),
	}
	if db != nil {
		s.store = NewStore(db)
	}
	return s
}

func (s *Service) Aggregator() *analytics.Aggregator {
	return s.agg
}

// Run restores the latest snapshot, starts periodic saving and consumes
// until ctx is done. Snapshot failures only disable persistence.
func (s *Service) Run(ctx context.Context) error {
	if s.store != nil {
		s.restore(ctx)
	}
	return s.agg.Start(ctx)
}

func (s *Service) restore(ctx context.Context) {
	if err := s.store.EnsureSchema(ctx); err != nil {
		s.logger.Warn("analytics snapshots unavailable", "error", err)
		return
	}
	latest, err := s.store.LatestSnapshot(ctx)
	if err != nil {
		s.logger.Warn("loading analytics snapshot failed", "error", err)
	} else if latest != nil {
		s.agg.Restore(*latest)
	}
	s.store.StartPeriodicSave(ctx, s.agg, s.interval)
}
