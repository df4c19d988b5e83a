package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// stubInvoker implements gateway.Invoker with canned behavior.
type stubInvoker struct {
	objectFunc func(prompt string, out any) error
	textFunc   func(prompt string) (string, error)
	prompts    []string
}

func (s *stubInvoker) InvokeObject(_ context.Context, prompt string, _ llm.ModelTier, out any) error {
	s.prompts = append(s.prompts, prompt)
	if s.objectFunc != nil {
		return s.objectFunc(prompt, out)
	}
	return nil
}

func (s *stubInvoker) InvokeText(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.textFunc != nil {
		return s.textFunc(prompt)
	}
	return "", nil
}

// memoryQueue records enqueued goals.
type memoryQueue struct {
	goals map[string]string
	err   error
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{goals: make(map[string]string)}
}

func (q *memoryQueue) EnqueueGoal(_ context.Context, goalID, description string) error {
	if q.err != nil {
		return q.err
	}
	q.goals[goalID] = description
	return nil
}

func sufficientInvoker() *stubInvoker {
	return &stubInvoker{objectFunc: func(_ string, out any) error {
		*out.(*Assessment) = Assessment{Sufficient: true}
		return nil
	}}
}

func TestAssess_FailsOpenOnError(t *testing.T) {
	inv := &stubInvoker{objectFunc: func(string, any) error {
		return errors.New("classifier unavailable")
	}}

	assessment := Assess(context.Background(), inv, "make me a logo")
	assert.True(t, assessment.Sufficient, "classifier failure must not block a goal")
	assert.Empty(t, assessment.ClarifyingQuestion)
}

func TestSubmitGoal_SufficientEnqueuesImmediately(t *testing.T) {
	queue := newMemoryQueue()
	in := New(sufficientInvoker(), queue)

	outcome, err := in.SubmitGoal(context.Background(), "Launch a coffee brand with a logo and slogans")
	require.NoError(t, err)

	assert.True(t, outcome.Accepted)
	assert.NotEmpty(t, outcome.GoalID)
	assert.Equal(t, "Launch a coffee brand with a logo and slogans", queue.goals[outcome.GoalID])
}

func TestSubmitGoal_VagueOpensConversation(t *testing.T) {
	inv := &stubInvoker{objectFunc: func(_ string, out any) error {
		*out.(*Assessment) = Assessment{
			Sufficient:         false,
			ClarifyingQuestion: "Could you tell me more about your project?",
		}
		return nil
	}}
	queue := newMemoryQueue()
	in := New(inv, queue)

	outcome, err := in.SubmitGoal(context.Background(), "make me a logo")
	require.NoError(t, err)

	assert.False(t, outcome.Accepted)
	assert.NotEmpty(t, outcome.ConversationID)
	assert.Equal(t, "Could you tell me more about your project?", outcome.ClarifyingQuestion)
	require.Len(t, outcome.History, 1)
	assert.Equal(t, "user", outcome.History[0].Role)
	assert.Empty(t, queue.goals, "vague goals must not be enqueued yet")
}

func TestSubmitGoal_EmptyDescriptionRejected(t *testing.T) {
	in := New(sufficientInvoker(), newMemoryQueue())

	_, err := in.SubmitGoal(context.Background(), "   ")
	require.Error(t, err)
}

func TestContinueConversation_CombinesHistoryInOrder(t *testing.T) {
	queue := newMemoryQueue()
	in := New(sufficientInvoker(), queue)

	history := []types.ConversationTurn{
		{Role: "user", Content: "make me a logo"},
		{Role: "assistant", Content: "What is the project about?"},
	}

	goalID, err := in.ContinueConversation(context.Background(), "conv-123", history, "It is for an artisanal coffee brand")
	require.NoError(t, err)

	assert.Equal(t, "conv-123", goalID, "conversation id becomes the goal id")
	assert.Equal(t, "make me a logo It is for an artisanal coffee brand", queue.goals["conv-123"])
}

func TestContinueConversation_EmptyMessageRejected(t *testing.T) {
	in := New(sufficientInvoker(), newMemoryQueue())

	_, err := in.ContinueConversation(context.Background(), "conv-1", nil, "")
	require.Error(t, err)
}

func TestCombineDescription_SkipsAssistantTurns(t *testing.T) {
	history := []types.ConversationTurn{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "ignored"},
		{Role: "user", Content: "second"},
	}
	assert.Equal(t, "first second third", CombineDescription(history, "third"))
}

func TestBuildAssessmentPrompt_ContainsGoal(t *testing.T) {
	prompt := buildAssessmentPrompt("Launch a coffee brand")
	assert.Contains(t, prompt, "Launch a coffee brand")
	assert.Contains(t, prompt, "is_sufficient")
}
