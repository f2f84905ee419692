// Command analytics runs the analytics aggregator as its own process.
//
// It consumes query and ingest events from Kafka, keeps the running totals
// (outcomes, cache hit rate, latency percentiles, top and unanswered terms)
// and serves them at GET /api/v1/analytics. When the store backend is
// postgres the totals are snapshotted there and restored on boot.
//
// Run it alongside servers configured with kafka.aggregate: false so only
// one process owns the consumer group.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/production.yaml] [-port 8085]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8085, "HTTP port for the analytics API")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		fmt.Fprintln(os.Stderr, "kafka brokers are required")
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.AnalyticsEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *port); err != nil {
		slog.Error("analytics service stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config, port int) error {
	var db *postgres.Client
	if cfg.Store.Backend == config.StoreBackendPostgres {
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			db = client
			defer db.Close()
		}
	}

	svc := aggregator.NewService(cfg.Kafka, db)

	probe := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer probe.Close()
	checker := health.NewChecker()
	checker.Register("kafka", health.PingCheck(probe.Ping))
	if db != nil {
		checker.RegisterOptional("postgres", health.PingCheck(db.Ping))
	}

	handler := router.New(cfg.Server, router.Options{
		Metrics: metrics.New(),
		Health:  checker,
	}, analytics.NewHandler(svc.Aggregator()))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
