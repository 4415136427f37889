// Package store is the Postgres repository behind the standings engine. Every
// method takes a bun.IDB so the caller decides whether it runs inside the
// cascade transaction; a nil IDB uses the store's own connection pool.
package store

import (
	"errors"

	"github.com/uptrace/bun"
)

// ErrNotFound indicates the requested race, stage or championship does not exist.
var ErrNotFound = errors.New("not found")

// Store implements the engine's read interfaces and the derived-data writes.
type Store struct {
	db *bun.DB
}

// New creates a Store on db.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) idb(db bun.IDB) bun.IDB {
	if db == nil {
		return s.db
	}
	return db
}
