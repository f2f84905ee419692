package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// PostgresStore keeps the index as a JSONB document in one row of table,
// addressed by key. Several indexes can share a table under different keys.
type PostgresStore struct {
	client *postgres.Client
	table  string
	key    string
	lockID int64
	logger *slog.Logger
}

func NewPostgresStore(client *postgres.Client, table, key string) *PostgresStore {
	h := fnv.New64a()
	h.Write([]byte(table + "/" + key))
	return &PostgresStore{
		client: client,
		table:  pq.QuoteIdentifier(table),
		key:    key,
		lockID: int64(h.Sum64()),
		logger: slog.Default().With("component", "postgres-store", "table", table, "key", key),
	}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key        TEXT PRIMARY KEY,
		record     JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, s.table)
	if _, err := s.client.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating index table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*index.Index, error) {
	var record []byte
	query := fmt.Sprintf(`SELECT record FROM %s WHERE key = $1`, s.table)
	err := s.client.DB.QueryRowContext(ctx, query, s.key).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug("no index row yet, starting empty")
		return index.New(), nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternal, err, "loading index")
	}
	return decode(s.logger, "postgres", record), nil
}

func (s *PostgresStore) Save(ctx context.Context, idx *index.Index) error {
	data, err := encode(idx)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (key, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`, s.table)
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, s.key, data); err != nil {
			return fmt.Errorf("upserting index row: %w", err)
		}
		return nil
	})
}

// Lock takes a session-level advisory lock derived from table and key. The
// lock lives on a dedicated connection that is returned to the pool on
// unlock.
func (s *PostgresStore) Lock(ctx context.Context) (func() error, error) {
	conn, err := s.client.Session(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, s.lockID); err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquiring advisory lock: %w", err)
	}
	return func() error {
		_, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, s.lockID)
		if cerr := conn.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
