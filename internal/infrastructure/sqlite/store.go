package sqlite

import (
	"context"
	"database/sql"
	"sync"
)

// Store implements store.Store on a single SQLite file. It serializes
// every multi-statement mutation behind mu, matching spec.md §4.2's
// single-writer-lock contract: readers proceed concurrently with each
// other and always see a pre- or post-write state, never a partial one.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if necessary) the SQLite database at path and
// ensures its schema.
func New(path string) (*Store, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

const timeLayout = "2006-01-02T15:04:05.999999999Z07:00"
