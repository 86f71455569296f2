// Package postgres implements the outreach repositories against PostgreSQL
// using database/sql and lib/pq. Queries use positional parameters and wrap
// errors with operation context; sql.ErrNoRows maps to outreach.ErrNotFound.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Store bundles the repositories over one connection pool. The message
// repository doubles as the worker's message store.
type Store struct {
	Leads    *LeadRepo
	Messages *MessageRepo
	Runs     *RunRepo
}

// NewStore creates all repositories over a shared pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Leads:    NewLeadRepo(db),
		Messages: NewMessageRepo(db),
		Runs:     NewRunRepo(db),
	}
}
