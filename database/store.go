package database

import "database/sql"

// Store handles all database operations for the application. Methods are
// grouped by entity across the files in this package.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for liveness probes.
func (s *Store) DB() *sql.DB {
	return s.db
}
