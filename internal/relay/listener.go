package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mykola/agora/internal/db"
)

// Handlers receives delivered change events. Delivery is at least once: a
// handler error is logged and the event is left for the periodic sweep to
// pick up again, so every handler must be idempotent.
type Handlers struct {
	// OnSubmission is called with the contract id a new submission landed on.
	OnSubmission func(ctx context.Context, contractID string) error
	// OnGoal is called when a goal was enqueued for decomposition.
	OnGoal func(ctx context.Context)
	// Sweep runs on the sweep interval and whenever the channel has been
	// quiet for that long. It is the redelivery backstop for notifications
	// lost to disconnects or handler failures.
	Sweep func(ctx context.Context)
}

// Listener delivers database change notifications to the critic and the
// decomposer worker. It holds one dedicated connection in LISTEN mode.
type Listener struct {
	pool          *pgxpool.Pool
	handlers      Handlers
	sweepInterval time.Duration
}

// NewListener builds a Listener over the shared pool.
func NewListener(pool *pgxpool.Pool, handlers Handlers, sweepInterval time.Duration) *Listener {
	return &Listener{pool: pool, handlers: handlers, sweepInterval: sweepInterval}
}

// Run listens until the context is cancelled. A broken listen connection is
// returned to the caller, who decides whether to restart; events that fired
// while disconnected are recovered by the next sweep.
func (l *Listener) Run(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	defer conn.Release()

	pgConn := conn.Conn()
	for _, channel := range []string{db.ChannelSubmissions, db.ChannelGoals} {
		if _, err := pgConn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
	}

	// Catch up on anything that happened before we started listening.
	l.sweep(ctx)

	for {
		waitCtx, cancel := context.WithTimeout(ctx, l.sweepInterval)
		notification, err := pgConn.WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				l.sweep(ctx)
				continue
			}
			return fmt.Errorf("listen connection failed: %w", err)
		}

		switch notification.Channel {
		case db.ChannelSubmissions:
			if l.handlers.OnSubmission != nil {
				if err := l.handlers.OnSubmission(ctx, notification.Payload); err != nil {
					fmt.Printf("Warning: submission event for contract %s failed, sweep will retry: %v\n", notification.Payload, err)
				}
			}
		case db.ChannelGoals:
			if l.handlers.OnGoal != nil {
				l.handlers.OnGoal(ctx)
			}
		}
	}
}

func (l *Listener) sweep(ctx context.Context) {
	if l.handlers.Sweep != nil {
		l.handlers.Sweep(ctx)
	}
}
