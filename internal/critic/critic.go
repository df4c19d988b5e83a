// Package critic implements the automated judge for marketplace contracts.
// An evaluation either selects a winning submission and closes the contract,
// or reformulates a contract nobody bid on and reposts it.
package critic

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mykola/agora/internal/gateway"
	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// ContractStore is the contract-side storage the critic needs.
type ContractStore interface {
	GetContract(ctx context.Context, contractID string) (types.Contract, error)
	CreateContract(ctx context.Context, contract types.Contract) error
	// TransitionContract moves an OPEN contract to the given status. It
	// reports false when the contract was no longer OPEN, which means a
	// concurrent evaluation won the race.
	TransitionContract(ctx context.Context, contractID string, to types.ContractStatus) (bool, error)
}

// SubmissionStore is the submission-side storage the critic needs.
type SubmissionStore interface {
	ListSubmissionsByContract(ctx context.Context, contractID string) ([]types.Submission, error)
	MarkWinner(ctx context.Context, submissionID string) error
}

// AgentStore provides reputation reads and the winner's reputation bump.
type AgentStore interface {
	GetReputations(ctx context.Context, agentIDs []string) (map[string]int, error)
	IncrementReputation(ctx context.Context, agentID string, delta int) error
}

// ResultStore records the durable outcome of a closed contract.
type ResultStore interface {
	SaveResult(ctx context.Context, result types.Result) error
}

// Critic judges contracts. All model calls go through the caching gateway,
// so re-evaluating a contract with an unchanged submission set replays the
// cached verdict instead of re-asking the backend.
type Critic struct {
	inv         gateway.Invoker
	contracts   ContractStore
	submissions SubmissionStore
	agents      AgentStore
	results     ResultStore
}

// New builds a Critic over the given stores.
func New(inv gateway.Invoker, contracts ContractStore, submissions SubmissionStore, agents AgentStore, results ResultStore) *Critic {
	return &Critic{
		inv:         inv,
		contracts:   contracts,
		submissions: submissions,
		agents:      agents,
		results:     results,
	}
}

// verdict is the judge model's selection.
type verdict struct {
	WinningSubmissionID string `json:"winning_submission_id"`
	Justification       string `json:"justification"`
}

// Evaluate judges one contract. Triggers are at-least-once and may race:
// a contract found in any non-OPEN state is a finished evaluation and the
// call returns immediately with no error. Storage errors propagate so the
// delivery mechanism can redeliver the trigger.
func (c *Critic) Evaluate(ctx context.Context, contractID string) error {
	contract, err := c.contracts.GetContract(ctx, contractID)
	if err != nil {
		return fmt.Errorf("failed to load contract %s: %w", contractID, err)
	}

	if contract.Status != types.StatusOpen {
		fmt.Printf("Contract %s is already %s, nothing to evaluate.\n", contractID, contract.Status)
		return nil
	}

	submissions, err := c.submissions.ListSubmissionsByContract(ctx, contractID)
	if err != nil {
		return fmt.Errorf("failed to list submissions for contract %s: %w", contractID, err)
	}

	if len(submissions) == 0 {
		return c.reformulate(ctx, contract)
	}
	return c.selectWinner(ctx, contract, submissions)
}

// selectWinner runs the judging path: enrich submissions with author
// reputation, ask the judge model for a winner, then commit the outcome.
func (c *Critic) selectWinner(ctx context.Context, contract types.Contract, submissions []types.Submission) error {
	c.enrichReputations(ctx, submissions)

	prompt := buildEvaluationPrompt(contract, submissions)

	var v verdict
	if err := c.inv.InvokeObject(ctx, prompt, llm.TierDeliberate, &v); err != nil {
		return fmt.Errorf("judging call failed for contract %s: %w", contract.ContractID, err)
	}

	winner, ok := findSubmission(submissions, v.WinningSubmissionID)
	if !ok {
		return &NoWinnerError{ContractID: contract.ContractID, ReturnedID: v.WinningSubmissionID}
	}
	fmt.Printf("Contract %s: winner %s (%s). %s\n", contract.ContractID, winner.SubmissionID, winner.AgentID, v.Justification)

	// Outcome writes come before the status flip and are idempotent: the
	// winner mark is a repeatable flip and the result insert is an upsert.
	// A transient storage failure therefore leaves the contract OPEN, and
	// the redelivered trigger replays the cached verdict to the same
	// outcome instead of stranding a CLOSED contract with no result.
	if err := c.submissions.MarkWinner(ctx, winner.SubmissionID); err != nil {
		return fmt.Errorf("failed to mark winner for contract %s: %w", contract.ContractID, err)
	}

	// Reputation is best effort and may double-count across redeliveries;
	// a failed increment is logged and the evaluation still counts.
	if err := c.agents.IncrementReputation(ctx, winner.AgentID, 1); err != nil {
		fmt.Printf("Warning: failed to bump reputation for agent %s: %v\n", winner.AgentID, err)
	}

	result := types.Result{
		GoalID:              contract.GoalID,
		ContractID:          contract.ContractID,
		WinningSubmissionID: winner.SubmissionID,
		WinningAgentID:      winner.AgentID,
		SubmissionData:      winner.SubmissionData,
		ContractType:        contract.ContractType,
		EvaluatedAt:         time.Now().UTC(),
	}
	if err := c.results.SaveResult(ctx, result); err != nil {
		return fmt.Errorf("failed to record result for contract %s: %w", contract.ContractID, err)
	}

	// The conditional flip commits the evaluation last. Losing it means a
	// concurrent evaluation of the same cached verdict already wrote the
	// identical outcome, so standing down discards nothing.
	claimed, err := c.contracts.TransitionContract(ctx, contract.ContractID, types.StatusClosed)
	if err != nil {
		return fmt.Errorf("failed to close contract %s: %w", contract.ContractID, err)
	}
	if !claimed {
		fmt.Printf("Contract %s was closed by a concurrent evaluation, standing down.\n", contract.ContractID)
	}
	return nil
}

// reformulate handles a contract that attracted no submissions: improve its
// description, retire the original as FAILED_REPOSTED, and post a fresh OPEN
// contract for the same goal.
func (c *Critic) reformulate(ctx context.Context, contract types.Contract) error {
	improved := c.improveDescription(ctx, contract)

	// Claim first: a redelivered trigger that arrives after the claim sees a
	// non-OPEN contract and cannot repost a second time.
	claimed, err := c.contracts.TransitionContract(ctx, contract.ContractID, types.StatusFailedReposted)
	if err != nil {
		return fmt.Errorf("failed to retire contract %s: %w", contract.ContractID, err)
	}
	if !claimed {
		fmt.Printf("Contract %s was already handled by a concurrent evaluation, standing down.\n", contract.ContractID)
		return nil
	}

	repost := types.Contract{
		ContractID:   "contract-" + uuid.New().String(),
		GoalID:       contract.GoalID,
		Status:       types.StatusOpen,
		Title:        contract.Title + " (V2)",
		Description:  improved,
		ContractType: contract.ContractType,
		Budget:       contract.Budget,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.contracts.CreateContract(ctx, repost); err != nil {
		return fmt.Errorf("failed to repost contract %s: %w", contract.ContractID, err)
	}

	fmt.Printf("Contract %s had no submissions; reposted as %s.\n", contract.ContractID, repost.ContractID)
	return nil
}

// improveDescription asks for a rewritten contract description. The call is
// cached by the original description, so repeated triggers on the same dead
// contract do not re-spend. On failure the original description is reused
// with a retry note rather than failing the reformulation.
func (c *Critic) improveDescription(ctx context.Context, contract types.Contract) string {
	improved, err := c.inv.InvokeText(ctx, buildReformulationPrompt(contract), llm.TierFast)
	if err != nil {
		fmt.Printf("Warning: reformulation call failed for contract %s, reposting original description: %v\n", contract.ContractID, err)
		return contract.Description + " (reformulation failed, please try again)"
	}
	improved = strings.TrimSpace(improved)
	if improved == "" {
		return contract.Description + " (reformulation failed, please try again)"
	}
	return improved
}

// enrichReputations attaches each author's current reputation to their
// submission. The lookup is best effort; unknown or unfetchable authors
// judge at reputation zero.
func (c *Critic) enrichReputations(ctx context.Context, submissions []types.Submission) {
	agentIDs := make([]string, 0, len(submissions))
	seen := make(map[string]bool, len(submissions))
	for _, s := range submissions {
		if !seen[s.AgentID] {
			seen[s.AgentID] = true
			agentIDs = append(agentIDs, s.AgentID)
		}
	}

	reputations, err := c.agents.GetReputations(ctx, agentIDs)
	if err != nil {
		fmt.Printf("Warning: reputation lookup failed, judging at reputation zero: %v\n", err)
		reputations = map[string]int{}
	}
	for i := range submissions {
		submissions[i].AgentReputation = reputations[submissions[i].AgentID]
	}
}

func findSubmission(submissions []types.Submission, submissionID string) (types.Submission, bool) {
	for _, s := range submissions {
		if s.SubmissionID == submissionID {
			return s, true
		}
	}
	return types.Submission{}, false
}

// buildEvaluationPrompt lists the full submission set for the judge. The
// submissions are ordered by id so the prompt, and therefore the cache
// fingerprint, is stable for an unchanged set; any new submission changes
// the fingerprint and forces a fresh judgment.
func buildEvaluationPrompt(contract types.Contract, submissions []types.Submission) string {
	ordered := make([]types.Submission, len(submissions))
	copy(ordered, submissions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SubmissionID < ordered[j].SubmissionID })

	var sb strings.Builder
	sb.WriteString("You are an exacting Art Director and Chief Editor judging a competitive freelance marketplace.\n")
	sb.WriteString("Select the single best submission for the contract below.\n\n")
	sb.WriteString(fmt.Sprintf("Contract Title: %s\n", contract.Title))
	sb.WriteString(fmt.Sprintf("Contract Type: %s\n", contract.ContractType))
	sb.WriteString(fmt.Sprintf("Contract Description: %s\n\n", contract.Description))
	sb.WriteString("Submissions:\n")
	for _, s := range ordered {
		sb.WriteString(fmt.Sprintf("- submission_id: %s\n  agent_id: %s\n  agent_reputation: %d\n  content: %s\n",
			s.SubmissionID, s.AgentID, s.AgentReputation, s.SubmissionData))
	}
	sb.WriteString("\nJudge on quality and fit to the contract description.\n")
	sb.WriteString("If several submissions are of comparably high quality, prefer the one from the author with the higher reputation.\n\n")
	sb.WriteString("Respond with ONLY a single, raw JSON object in this format:\n")
	sb.WriteString("{\n  \"winning_submission_id\": \"<submission_id>\",\n  \"justification\": \"<one or two sentences>\"\n}\n")
	return sb.String()
}

// buildReformulationPrompt asks for a clearer rewrite of a contract nobody
// worked on.
func buildReformulationPrompt(contract types.Contract) string {
	var sb strings.Builder
	sb.WriteString("You are a Creative Director. A freelance contract was posted on a marketplace and received zero submissions.\n")
	sb.WriteString("Rewrite its description to be clearer, more specific and more attractive to freelancers, while keeping the original intent.\n\n")
	sb.WriteString(fmt.Sprintf("Contract Title: %s\n", contract.Title))
	sb.WriteString(fmt.Sprintf("Original Description: %s\n\n", contract.Description))
	sb.WriteString("Respond with ONLY the improved description text. No preamble, no markdown.\n")
	return sb.String()
}
