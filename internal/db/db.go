// Package db provides PostgreSQL access to the marketplace stores: contracts,
// submissions, agents, results, and the goal intake queue. Writes are
// single-row and field-scoped; there are no cross-row transactions, so
// consistency is row-scoped and eventual.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Notification channels used for change delivery. Payload is the relevant
// contract or queue id.
const (
	// ChannelSubmissions fires when a new submission row is written.
	ChannelSubmissions = "agora_submissions"
	// ChannelGoals fires when a goal is enqueued for decomposition.
	ChannelGoals = "agora_goals"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a PostgreSQL connection pool. Every row operation runs under the
// configured per-call timeout.
type DB struct {
	pool        *pgxpool.Pool
	callTimeout time.Duration
}

// Connect establishes a connection pool to the database. callTimeout bounds
// each subsequent row operation; zero leaves them unbounded.
func Connect(ctx context.Context, databaseURL string, callTimeout time.Duration) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, callTimeout: callTimeout}, nil
}

// boundCtx applies the per-call timeout to one storage operation.
func (db *DB) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if db.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.callTimeout)
}

// EnsureSchema creates the marketplace tables and indexes if missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool for callers that need a dedicated
// connection, such as the notification listener.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
