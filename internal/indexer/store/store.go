// Package store persists the term-statistics index. Every load returns a
// private copy so retrieval can read a snapshot without coordinating with
// writers; writers serialize through a Locker when the backend offers one.
package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// Store loads and saves the whole index record.
type Store interface {
	Load(ctx context.Context) (*index.Index, error)
	Save(ctx context.Context, idx *index.Index) error
}

// Locker is implemented by stores that can exclude writers in other
// processes. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// decode turns a persisted record into an Index. A record that does not
// decode or fails validation is replaced with an empty index and reported
// at WARN; the next save overwrites it.
func decode(logger *slog.Logger, source string, data []byte) *index.Index {
	var idx index.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		logger.Warn("index record is corrupt, starting from an empty index",
			"source", source,
			"error", err,
		)
		return index.New()
	}
	idx.Normalize()
	if err := idx.Validate(); err != nil {
		logger.Warn("index record failed validation, starting from an empty index",
			"source", source,
			"error", err,
		)
		return index.New()
	}
	return &idx
}

func encode(idx *index.Index) ([]byte, error) {
	idx.Normalize()
	return json.Marshal(idx)
}
