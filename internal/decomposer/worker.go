package decomposer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mykola/agora/internal/db"
)

// staleClaimAge is how long a claimed goal may sit in processing before the
// sweep assumes its worker died and requeues it.
const staleClaimAge = 5 * time.Minute

// GoalSource is the queue surface the worker consumes. *db.DB implements it.
type GoalSource interface {
	ClaimNextGoal(ctx context.Context) (*db.QueuedGoal, error)
	CompleteGoal(ctx context.Context, id int64) error
	ReleaseGoal(ctx context.Context, id int64) error
	RequeueStaleGoals(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Worker drains the goal queue, decomposing each goal into contracts.
// Delivery is at least once: a goal that fails processing is released back
// to the queue instead of being lost, and failures on one goal never block
// the other queued goals.
type Worker struct {
	planner *Planner
	source  GoalSource
}

// NewWorker creates a queue worker over the given planner and source.
func NewWorker(planner *Planner, source GoalSource) *Worker {
	return &Worker{planner: planner, source: source}
}

// Drain claims and processes queued goals until the queue is empty. Returns
// the number of goals successfully decomposed.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	processed := 0
	for {
		goal, err := w.source.ClaimNextGoal(ctx)
		if errors.Is(err, db.ErrNotFound) {
			return processed, nil
		}
		if err != nil {
			return processed, fmt.Errorf("failed to claim next goal: %w", err)
		}

		contracts, err := w.planner.ProcessGoal(ctx, goal.GoalID, goal.Description)
		if err != nil {
			if errors.Is(err, ErrNoContracts) {
				// Terminal for this goal: redelivery would replay the same
				// cached decomposition and fail identically.
				fmt.Printf("Goal %s produced no contracts; dropping it.\n", goal.GoalID)
				if err := w.source.CompleteGoal(ctx, goal.ID); err != nil {
					fmt.Printf("Warning: failed to complete goal %d: %v\n", goal.ID, err)
				}
				continue
			}

			fmt.Printf("Error processing goal %s, releasing for redelivery: %v\n", goal.GoalID, err)
			if releaseErr := w.source.ReleaseGoal(ctx, goal.ID); releaseErr != nil {
				fmt.Printf("Warning: failed to release goal %d: %v\n", goal.ID, releaseErr)
			}
			continue
		}

		fmt.Printf("Decomposed goal %s into %d contracts.\n", goal.GoalID, len(contracts))
		if err := w.source.CompleteGoal(ctx, goal.ID); err != nil {
			fmt.Printf("Warning: failed to complete goal %d: %v\n", goal.ID, err)
		}
		processed++
	}
}

// Sweep requeues goals stuck in processing, then drains the queue. Called on
// a timer as the redelivery backstop for notifications missed while no
// listener was connected.
func (w *Worker) Sweep(ctx context.Context) {
	if n, err := w.source.RequeueStaleGoals(ctx, staleClaimAge); err != nil {
		fmt.Printf("Warning: stale goal requeue failed: %v\n", err)
	} else if n > 0 {
		fmt.Printf("Requeued %d stale goals.\n", n)
	}

	if _, err := w.Drain(ctx); err != nil {
		fmt.Printf("Warning: goal queue drain failed: %v\n", err)
	}
}
