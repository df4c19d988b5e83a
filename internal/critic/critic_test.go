package critic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mykola/agora/internal/db"
	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// stubInvoker scripts gateway responses. pickObject, when set, derives the
// verdict from the prompt so tests can make the judge deterministic.
type stubInvoker struct {
	objectJSON string
	objectErr  error
	textResp   string
	textErr    error

	pickObject func(prompt string) string

	objectPrompts []string
	textPrompts   []string
}

func (s *stubInvoker) InvokeObject(_ context.Context, prompt string, _ llm.ModelTier, out any) error {
	s.objectPrompts = append(s.objectPrompts, prompt)
	if s.objectErr != nil {
		return s.objectErr
	}
	payload := s.objectJSON
	if s.pickObject != nil {
		payload = s.pickObject(prompt)
	}
	return json.Unmarshal([]byte(payload), out)
}

func (s *stubInvoker) InvokeText(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	s.textPrompts = append(s.textPrompts, prompt)
	return s.textResp, s.textErr
}

// memoryStore backs all four critic store interfaces for tests.
type memoryStore struct {
	contracts   map[string]types.Contract
	created     []types.Contract
	submissions map[string][]types.Submission
	winners     []string
	reputations map[string]int
	results     []types.Result

	transitionResult *bool
	incrementErr     error
	resultErr        error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		contracts:   make(map[string]types.Contract),
		submissions: make(map[string][]types.Submission),
		reputations: make(map[string]int),
	}
}

func (m *memoryStore) GetContract(_ context.Context, contractID string) (types.Contract, error) {
	contract, ok := m.contracts[contractID]
	if !ok {
		return types.Contract{}, fmt.Errorf("contract %s: %w", contractID, db.ErrNotFound)
	}
	return contract, nil
}

func (m *memoryStore) CreateContract(_ context.Context, contract types.Contract) error {
	m.contracts[contract.ContractID] = contract
	m.created = append(m.created, contract)
	return nil
}

func (m *memoryStore) TransitionContract(_ context.Context, contractID string, to types.ContractStatus) (bool, error) {
	if m.transitionResult != nil {
		return *m.transitionResult, nil
	}
	contract := m.contracts[contractID]
	if contract.Status != types.StatusOpen {
		return false, nil
	}
	contract.Status = to
	m.contracts[contractID] = contract
	return true, nil
}

func (m *memoryStore) ListSubmissionsByContract(_ context.Context, contractID string) ([]types.Submission, error) {
	return m.submissions[contractID], nil
}

func (m *memoryStore) MarkWinner(_ context.Context, submissionID string) error {
	m.winners = append(m.winners, submissionID)
	return nil
}

func (m *memoryStore) GetReputations(_ context.Context, agentIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(agentIDs))
	for _, id := range agentIDs {
		if rep, ok := m.reputations[id]; ok {
			out[id] = rep
		}
	}
	return out, nil
}

func (m *memoryStore) IncrementReputation(_ context.Context, agentID string, delta int) error {
	if m.incrementErr != nil {
		return m.incrementErr
	}
	m.reputations[agentID] += delta
	return nil
}

func (m *memoryStore) SaveResult(_ context.Context, result types.Result) error {
	if m.resultErr != nil {
		return m.resultErr
	}
	m.results = append(m.results, result)
	return nil
}

func criticOver(inv *stubInvoker, store *memoryStore) *Critic {
	return New(inv, store, store, store, store)
}

func seedContract(store *memoryStore, status types.ContractStatus) types.Contract {
	contract := types.Contract{
		ContractID:   "contract-1",
		GoalID:       "goal-1",
		Status:       status,
		Title:        "Design a logo",
		Description:  "A logo for an eco-friendly coffee brand",
		ContractType: types.ContractTypeImage,
		Budget:       50,
		CreatedAt:    time.Now().UTC(),
	}
	store.contracts[contract.ContractID] = contract
	return contract
}

func seedSubmission(store *memoryStore, contractID, subID, agentID, data string) {
	store.submissions[contractID] = append(store.submissions[contractID], types.Submission{
		SubmissionID:   subID,
		ContractID:     contractID,
		AgentID:        agentID,
		SubmissionData: data,
	})
}

func TestEvaluateSelectsWinnerAndClosesContract(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-artist-1", "images/a.png")
	seedSubmission(store, "contract-1", "sub-2", "agent-artist-2", "images/b.png")
	store.reputations["agent-artist-2"] = 3

	inv := &stubInvoker{objectJSON: `{"winning_submission_id": "sub-2", "justification": "Cleaner composition."}`}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))

	assert.Equal(t, types.StatusClosed, store.contracts["contract-1"].Status)
	assert.Equal(t, []string{"sub-2"}, store.winners)
	assert.Equal(t, 4, store.reputations["agent-artist-2"], "winner's reputation bumped by one")

	require.Len(t, store.results, 1)
	result := store.results[0]
	assert.Equal(t, "goal-1", result.GoalID)
	assert.Equal(t, "sub-2", result.WinningSubmissionID)
	assert.Equal(t, "agent-artist-2", result.WinningAgentID)
	assert.Equal(t, "images/b.png", result.SubmissionData)
	assert.Equal(t, types.ContractTypeImage, result.ContractType)

	// The judge saw every submission with its author's reputation.
	require.Len(t, inv.objectPrompts, 1)
	prompt := inv.objectPrompts[0]
	assert.Contains(t, prompt, "sub-1")
	assert.Contains(t, prompt, "sub-2")
	assert.Contains(t, prompt, "agent_reputation: 3")
	assert.Contains(t, prompt, "higher reputation")
}

func TestEvaluateIsNoOpOnClosedContract(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusClosed)
	seedSubmission(store, "contract-1", "sub-1", "agent-1", "payload")

	inv := &stubInvoker{}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))

	assert.Empty(t, inv.objectPrompts, "no model call on a finished contract")
	assert.Empty(t, store.winners)
	assert.Empty(t, store.results)
	assert.Equal(t, types.StatusClosed, store.contracts["contract-1"].Status)
}

func TestEvaluateFailsOnUnknownContract(t *testing.T) {
	c := criticOver(&stubInvoker{}, newMemoryStore())
	err := c.Evaluate(context.Background(), "contract-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestEvaluateFailsWhenJudgeNamesUnknownSubmission(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-1", "payload")

	inv := &stubInvoker{objectJSON: `{"winning_submission_id": "sub-999", "justification": "?"}`}
	c := criticOver(inv, store)

	err := c.Evaluate(context.Background(), "contract-1")
	require.Error(t, err)

	var noWinner *NoWinnerError
	require.ErrorAs(t, err, &noWinner)
	assert.Equal(t, "contract-1", noWinner.ContractID)

	// No state mutated on a fatal verdict.
	assert.Equal(t, types.StatusOpen, store.contracts["contract-1"].Status)
	assert.Empty(t, store.winners)
	assert.Empty(t, store.results)
}

func TestEvaluateFailsWhenJudgeReturnsEmptyWinner(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-1", "payload")

	inv := &stubInvoker{objectJSON: `{"winning_submission_id": "", "justification": "could not decide"}`}
	c := criticOver(inv, store)

	var noWinner *NoWinnerError
	require.ErrorAs(t, c.Evaluate(context.Background(), "contract-1"), &noWinner)
	assert.Equal(t, types.StatusOpen, store.contracts["contract-1"].Status)
}

func TestEvaluateStandsDownWhenRaceIsLost(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-1", "payload")
	lost := false
	store.transitionResult = &lost

	inv := &stubInvoker{objectJSON: `{"winning_submission_id": "sub-1", "justification": "ok"}`}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))
	// The loser's writes replayed the same cached verdict the race winner
	// already committed, so they are duplicates of the recorded outcome,
	// not a second outcome.
	assert.Equal(t, []string{"sub-1"}, store.winners)
	require.Len(t, store.results, 1)
	assert.Equal(t, "sub-1", store.results[0].WinningSubmissionID)
}

func TestEvaluateRetriesAfterResultWriteFailure(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-1", "payload")
	store.resultErr = errors.New("results table unavailable")

	inv := &stubInvoker{objectJSON: `{"winning_submission_id": "sub-1", "justification": "ok"}`}
	c := criticOver(inv, store)

	require.Error(t, c.Evaluate(context.Background(), "contract-1"))
	assert.Equal(t, types.StatusOpen, store.contracts["contract-1"].Status,
		"the contract stays claimable while its result is unrecorded")
	assert.Empty(t, store.results)

	// The redelivered trigger after the storage blip finds the contract
	// still OPEN, records the result, and closes it.
	store.resultErr = nil
	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))
	require.Len(t, store.results, 1)
	assert.Equal(t, "sub-1", store.results[0].WinningSubmissionID)
	assert.Equal(t, types.StatusClosed, store.contracts["contract-1"].Status)
}

func TestEvaluateTreatsReputationFailureAsNonFatal(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-1", "payload")
	store.incrementErr = errors.New("agents table unavailable")

	inv := &stubInvoker{objectJSON: `{"winning_submission_id": "sub-1", "justification": "ok"}`}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))
	assert.Equal(t, []string{"sub-1"}, store.winners)
	require.Len(t, store.results, 1)
	assert.Equal(t, types.StatusClosed, store.contracts["contract-1"].Status)
}

func TestEvaluateReformulatesContractWithNoSubmissions(t *testing.T) {
	store := newMemoryStore()
	original := seedContract(store, types.StatusOpen)

	inv := &stubInvoker{textResp: "A bold, memorable logo for an eco-friendly coffee brand, with two concept variations."}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))

	assert.Equal(t, types.StatusFailedReposted, store.contracts["contract-1"].Status)
	require.Len(t, store.created, 1, "exactly one repost")

	repost := store.created[0]
	assert.NotEqual(t, original.ContractID, repost.ContractID, "repost gets a fresh id")
	assert.Equal(t, original.GoalID, repost.GoalID)
	assert.Equal(t, types.StatusOpen, repost.Status)
	assert.Equal(t, original.Title+" (V2)", repost.Title)
	assert.Equal(t, inv.textResp, repost.Description)
	assert.Equal(t, original.ContractType, repost.ContractType)
	assert.Equal(t, original.Budget, repost.Budget)

	assert.Empty(t, store.winners)
	assert.Empty(t, store.results)
}

func TestReformulationFallsBackToOriginalDescription(t *testing.T) {
	store := newMemoryStore()
	original := seedContract(store, types.StatusOpen)

	inv := &stubInvoker{textErr: errors.New("backend timeout")}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))

	require.Len(t, store.created, 1)
	assert.Equal(t, original.Description+" (reformulation failed, please try again)", store.created[0].Description)
	assert.Equal(t, types.StatusFailedReposted, store.contracts["contract-1"].Status)
}

func TestReformulationStandsDownWhenRaceIsLost(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	lost := false
	store.transitionResult = &lost

	inv := &stubInvoker{textResp: "improved"}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))
	assert.Empty(t, store.created, "no repost after losing the race")
}

func TestEvaluationPromptIsStableAcrossSubmissionOrder(t *testing.T) {
	contract := types.Contract{
		ContractID:   "contract-1",
		GoalID:       "goal-1",
		Title:        "Slogans",
		Description:  "Slogans for a coffee brand",
		ContractType: types.ContractTypeText,
	}
	a := types.Submission{SubmissionID: "sub-a", AgentID: "agent-1", SubmissionData: "one"}
	b := types.Submission{SubmissionID: "sub-b", AgentID: "agent-2", SubmissionData: "two"}

	// Same set, different order: the prompt (and so the cache fingerprint)
	// must not change.
	assert.Equal(t,
		buildEvaluationPrompt(contract, []types.Submission{a, b}),
		buildEvaluationPrompt(contract, []types.Submission{b, a}),
	)

	// Adding a submission must change it.
	extra := types.Submission{SubmissionID: "sub-c", AgentID: "agent-3", SubmissionData: "three"}
	assert.NotEqual(t,
		buildEvaluationPrompt(contract, []types.Submission{a, b}),
		buildEvaluationPrompt(contract, []types.Submission{a, b, extra}),
	)
}

// TestTieBreakPrefersHigherReputation drives the judge with a deterministic
// stub that applies the tie-break instruction literally: among near-tied
// submissions, pick the highest reputation listed in the prompt.
func TestTieBreakPrefersHigherReputation(t *testing.T) {
	store := newMemoryStore()
	seedContract(store, types.StatusOpen)
	seedSubmission(store, "contract-1", "sub-1", "agent-low", "Slogan one")
	seedSubmission(store, "contract-1", "sub-2", "agent-mid", "Slogan two")
	seedSubmission(store, "contract-1", "sub-3", "agent-high", "Slogan three")
	store.reputations["agent-mid"] = 5
	store.reputations["agent-high"] = 5

	blockPattern := regexp.MustCompile(`submission_id: (\S+)\n\s+agent_id: \S+\n\s+agent_reputation: (\d+)`)
	inv := &stubInvoker{pickObject: func(prompt string) string {
		best, bestRep := "", -1
		for _, match := range blockPattern.FindAllStringSubmatch(prompt, -1) {
			rep := 0
			fmt.Sscanf(match[2], "%d", &rep)
			if rep > bestRep {
				best, bestRep = match[1], rep
			}
		}
		return fmt.Sprintf(`{"winning_submission_id": %q, "justification": "tie-break"}`, best)
	}}
	c := criticOver(inv, store)

	require.NoError(t, c.Evaluate(context.Background(), "contract-1"))
	require.Len(t, store.winners, 1)
	winner := store.winners[0]
	assert.Contains(t, []string{"sub-2", "sub-3"}, winner, "a reputation-5 author wins the near-tie")
}

func TestReformulationPromptCarriesOriginalDescription(t *testing.T) {
	contract := types.Contract{Title: "Design a logo", Description: "A logo for a coffee brand"}
	prompt := buildReformulationPrompt(contract)
	assert.Contains(t, prompt, "Creative Director")
	assert.Contains(t, prompt, "zero submissions")
	assert.True(t, strings.Contains(prompt, contract.Description))
}
