// Command server runs the document Q&A service.
//
// It accepts uploads on POST /api/upload, answers questions on POST
// /api/chat by TF-IDF retrieval over the stored chunks, and exposes document
// listing, cache, analytics and health endpoints. Prometheus metrics are
// served on a separate port.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml]
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
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/gateway/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/gateway/router"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/store"
	ingesthandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/pipeline"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	searchhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// tracker is satisfied by analytics.Collector and left nil when analytics is
// off, so handlers skip event emission entirely.
type tracker interface {
	Track(event analytics.Event)
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
	slog.Info("starting docsearch",
		"port", cfg.Server.Port,
		"store", cfg.Store.Backend,
		"cache", cfg.Cache.Backend,
		"kafka", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("docsearch stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("docsearch stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()

	opened, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer opened.Close()

	if idx, err := opened.Store.Load(ctx); err == nil {
		stats := idx.Stats()
		m.SetIndexSize(stats.Documents, stats.Chunks, stats.Terms)
		slog.Info("index loaded", "documents", stats.Documents, "chunks", stats.Chunks, "terms", stats.Terms)
	}

	queryCache, redisClient, err := cache.Open(cfg, m)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	checker := health.NewChecker()
	checker.Register("store", health.PingCheck(opened.Ping))
	if redisClient != nil {
		checker.RegisterOptional("redis", health.PingCheck(redisClient.Ping))
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		events       tracker
		collector    *analytics.Collector
		registrars   []router.Registrar
		shutdownHTTP []func(context.Context) error
	)
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.AnalyticsEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()

		// Runs until Close so events from requests finishing during
		// shutdown are still published.
		collector = analytics.NewCollector(producer, 10000)
		collector.Start(context.WithoutCancel(gctx))
		events = collector

		if cfg.Kafka.Aggregate {
			svc := aggregator.NewService(cfg.Kafka, opened.DB)
			g.Go(func() error {
				if err := svc.Run(gctx); err != nil {
					slog.Error("analytics aggregator stopped", "error", err)
				}
				return nil
			})
			registrars = append(registrars, analytics.NewHandler(svc.Aggregator()))
		}

		checker.RegisterOptional("kafka", health.PingCheck(producer.Ping))
		slog.Info("analytics enabled", "topic", topic, "brokers", cfg.Kafka.Brokers, "aggregate", cfg.Kafka.Aggregate)
	}

	exec := executor.New(opened.Store, cfg.Search, queryCache, m)
	pipe := pipeline.New(opened.Store, extract.NewDispatcher(), cfg.Ingest, queryCache, m, events)
	registrars = append(registrars,
		searchhandler.New(exec, queryCache, events),
		ingesthandler.New(pipe, cfg.Ingest.MaxUploadBytes),
	)

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter = ratelimit.New(cfg.Server.RateLimitPerMinute, time.Minute)
		g.Go(func() error {
			limiter.Run(gctx, 5*time.Minute)
			return nil
		})
	}

	handler := router.New(cfg.Server, router.Options{
		Metrics: m,
		Limiter: limiter,
		Health:  checker,
	}, registrars...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	shutdownHTTP = append(shutdownHTTP, server.Shutdown)
	if cfg.Metrics.Enabled {
		shutdownHTTP = append(shutdownHTTP, metrics.StartServer(cfg.Metrics.Port))
	}

	g.Go(func() error {
		slog.Info("docsearch listening", "addr", server.Addr)
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
		for _, shutdown := range shutdownHTTP {
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("server shutdown error", "error", err)
			}
		}
		if collector != nil {
			collector.Close()
		}
		return nil
	})

	return g.Wait()
}
