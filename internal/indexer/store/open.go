package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Opened is a ready store plus the database client behind it, which is nil
// for the file backend.
type Opened struct {
	Store Store
	DB    *postgres.Client
}

// Close releases the database client, if any.
func (o *Opened) Close() error {
	if o.DB == nil {
		return nil
	}
	return o.DB.Close()
}

// Ping reports whether the backing storage is reachable.
func (o *Opened) Ping(ctx context.Context) error {
	if o.DB != nil {
		return o.DB.Ping(ctx)
	}
	_, err := o.Store.Load(ctx)
	return err
}

// Open builds the configured store. The postgres backend is dialled with
// retries and its table created if missing.
func Open(ctx context.Context, cfg *config.Config) (*Opened, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendFile:
		return &Opened{Store: NewFileStore(cfg.Store.Path)}, nil
	case config.StoreBackendPostgres:
		var client *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		}, func(context.Context) error {
			c, err := postgres.New(cfg.Postgres)
			if err != nil {
				return err
			}
			client = c
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		st := NewPostgresStore(client, cfg.Store.Table, cfg.Store.Key)
		if err := st.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, err
		}
		slog.Info("postgres index store ready",
			"host", cfg.Postgres.Host,
			"database", cfg.Postgres.Database,
			"table", cfg.Store.Table,
		)
		return &Opened{Store: st, DB: client}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
