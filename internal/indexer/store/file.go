package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps the index as one JSON document on disk. Writes go through
// a temp file and rename so readers never observe a partial record.
type FileStore struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: slog.Default().With("component", "file-store", "path", path),
	}
}

// Path is the JSON file the record is written to.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the record. A missing file is a fresh, empty index.
func (s *FileStore) Load(ctx context.Context) (*index.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("index file not found, starting empty")
			return index.New(), nil
		}
		s.logger.Warn("index file unreadable, starting from an empty index", "error", err)
		return index.New(), nil
	}
	return decode(s.logger, s.path, data), nil
}

func (s *FileStore) Save(ctx context.Context, idx *index.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(idx)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing index file: %w", err)
	}
	s.logger.Debug("index saved", "bytes", len(data), "chunks", idx.TotalChunks)
	return nil
}

// Lock takes an exclusive advisory lock on a sibling ".lock" file, polling
// until ctx is done.
func (s *FileStore) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: lock held by another writer", s.lock.Path())
	}
	return s.lock.Unlock, nil
}
