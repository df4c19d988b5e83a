package decomposer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykola/agora/internal/db"
	"github.com/mykola/agora/internal/types"
)

// fakeGoalSource is an in-memory goal queue.
type fakeGoalSource struct {
	pending   []*db.QueuedGoal
	completed []int64
	released  []int64
}

func (f *fakeGoalSource) ClaimNextGoal(_ context.Context) (*db.QueuedGoal, error) {
	if len(f.pending) == 0 {
		return nil, db.ErrNotFound
	}
	goal := f.pending[0]
	f.pending = f.pending[1:]
	return goal, nil
}

func (f *fakeGoalSource) CompleteGoal(_ context.Context, id int64) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeGoalSource) ReleaseGoal(_ context.Context, id int64) error {
	f.released = append(f.released, id)
	return nil
}

func (f *fakeGoalSource) RequeueStaleGoals(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func TestWorker_DrainProcessesAllGoals(t *testing.T) {
	inv := &stubInvoker{document: coffeeBrandResponse}
	store := &memoryContractStore{}
	source := &fakeGoalSource{pending: []*db.QueuedGoal{
		{ID: 1, GoalID: "goal-1", Description: "coffee brand"},
		{ID: 2, GoalID: "goal-2", Description: "board game"},
	}}

	worker := NewWorker(NewPlanner(inv, store), source)
	processed, err := worker.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, processed)
	assert.Equal(t, []int64{1, 2}, source.completed)
	assert.Empty(t, source.released)
	assert.Len(t, store.contracts, 6)
}

func TestWorker_EmptyDecompositionIsNotRedelivered(t *testing.T) {
	inv := &stubInvoker{document: `{"contracts": []}`}
	source := &fakeGoalSource{pending: []*db.QueuedGoal{
		{ID: 7, GoalID: "goal-7", Description: "hopeless goal"},
	}}

	worker := NewWorker(NewPlanner(inv, &memoryContractStore{}), source)
	processed, err := worker.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, processed)
	assert.Equal(t, []int64{7}, source.completed, "terminal failures must not loop forever")
	assert.Empty(t, source.released)
}

func TestWorker_StorageFailureReleasesForRedelivery(t *testing.T) {
	inv := &stubInvoker{document: coffeeBrandResponse}
	store := &memoryContractStore{err: errors.New("storage throttled")}
	source := &fakeGoalSource{pending: []*db.QueuedGoal{
		{ID: 3, GoalID: "goal-3", Description: "coffee brand"},
		{ID: 4, GoalID: "goal-4", Description: "tea brand"},
	}}

	worker := NewWorker(NewPlanner(inv, store), source)
	processed, err := worker.Drain(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, processed)
	assert.Equal(t, []int64{3, 4}, source.released, "one goal's failure must not block the rest of the batch")
	assert.Empty(t, source.completed)
}

func TestWorker_ContractsCarryGoalID(t *testing.T) {
	inv := &stubInvoker{document: coffeeBrandResponse}
	store := &memoryContractStore{}
	source := &fakeGoalSource{pending: []*db.QueuedGoal{
		{ID: 1, GoalID: "goal-abc", Description: "coffee brand"},
	}}

	worker := NewWorker(NewPlanner(inv, store), source)
	_, err := worker.Drain(context.Background())
	require.NoError(t, err)

	for _, c := range store.contracts {
		assert.Equal(t, "goal-abc", c.GoalID)
		assert.Equal(t, types.StatusOpen, c.Status)
	}
}
