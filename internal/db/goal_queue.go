package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// QueuedGoal is one goal description awaiting decomposition. Delivery is
// at least once: a claimed goal that is never completed is requeued by the
// sweep, so the decomposer must tolerate reprocessing (the gateway cache
// makes the model call itself idempotent).
type QueuedGoal struct {
	ID          int64
	GoalID      string
	Description string
	EnqueuedAt  time.Time
}

// EnqueueGoal queues a goal description for decomposition and fires the
// change notification in the same transaction.
func (db *DB) EnqueueGoal(ctx context.Context, goalID, description string) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin goal enqueue: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO goal_queue (goal_id, description, status) VALUES ($1, $2, 'pending')`,
		goalID, description,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue goal %s: %w", goalID, err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChannelGoals, goalID); err != nil {
		return fmt.Errorf("failed to notify goal enqueue: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit goal enqueue %s: %w", goalID, err)
	}
	return nil
}

// ClaimNextGoal atomically claims the oldest pending goal. Returns
// ErrNotFound when the queue is empty. SKIP LOCKED keeps concurrent workers
// from claiming the same row.
func (db *DB) ClaimNextGoal(ctx context.Context) (*QueuedGoal, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	row := db.pool.QueryRow(ctx,
		`UPDATE goal_queue SET status = 'processing', claimed_at = now()
		 WHERE id = (
		     SELECT id FROM goal_queue WHERE status = 'pending'
		     ORDER BY enqueued_at LIMIT 1 FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, goal_id, description, enqueued_at`,
	)

	var g QueuedGoal
	err := row.Scan(&g.ID, &g.GoalID, &g.Description, &g.EnqueuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim goal: %w", err)
	}
	return &g, nil
}

// CompleteGoal marks a claimed goal as done.
func (db *DB) CompleteGoal(ctx context.Context, id int64) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx, `UPDATE goal_queue SET status = 'done' WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to complete goal %d: %w", id, err)
	}
	return nil
}

// ReleaseGoal returns a claimed goal to pending for redelivery after a
// processing failure.
func (db *DB) ReleaseGoal(ctx context.Context, id int64) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx, `UPDATE goal_queue SET status = 'pending', claimed_at = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to release goal %d: %w", id, err)
	}
	return nil
}

// RequeueStaleGoals returns goals stuck in processing longer than maxAge to
// pending. This is the redelivery path for workers that died mid-claim.
func (db *DB) RequeueStaleGoals(ctx context.Context, maxAge time.Duration) (int64, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		`UPDATE goal_queue SET status = 'pending', claimed_at = NULL
		 WHERE status = 'processing' AND claimed_at < now() - $1::interval`,
		fmt.Sprintf("%d seconds", int(maxAge.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale goals: %w", err)
	}
	return tag.RowsAffected(), nil
}
