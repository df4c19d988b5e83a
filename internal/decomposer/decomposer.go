// Package decomposer turns a high-level user goal into a set of structured,
// budget-allocated contracts and persists them to the contract store.
package decomposer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mykola/agora/internal/gateway"
	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// BudgetPool is the total credit pool distributed across one goal's contracts.
const BudgetPool = 100

// ErrNoContracts is the terminal failure for a goal whose decomposition
// produced no usable contracts. Nothing is persisted in that case.
var ErrNoContracts = errors.New("decomposition produced no valid contracts")

// ContractStore is the persistence surface the decomposer writes to.
type ContractStore interface {
	CreateContracts(ctx context.Context, contracts []types.Contract) error
}

// decompositionResponse is the JSON shape the model is instructed to return.
type decompositionResponse struct {
	Contracts []types.ContractDraft `json:"contracts"`
}

// Decompose asks the model to break a goal description into contract drafts.
// Malformed drafts are dropped with a warning; an empty result after
// validation is reported as ErrNoContracts.
func Decompose(ctx context.Context, inv gateway.Invoker, goalDescription string) ([]types.ContractDraft, error) {
	prompt := buildDecompositionPrompt(goalDescription)

	var response decompositionResponse
	if err := inv.InvokeObject(ctx, prompt, llm.TierDeliberate, &response); err != nil {
		return nil, fmt.Errorf("failed to decompose goal: %w", err)
	}

	valid := make([]types.ContractDraft, 0, len(response.Contracts))
	for _, draft := range response.Contracts {
		if err := validateDraft(draft); err != nil {
			fmt.Printf("Warning: dropping malformed contract draft %q: %v\n", draft.Title, err)
			continue
		}
		valid = append(valid, draft)
	}

	if len(valid) == 0 {
		return nil, ErrNoContracts
	}
	return valid, nil
}

// Planner persists decomposition output as OPEN contracts.
type Planner struct {
	inv   gateway.Invoker
	store ContractStore
}

// NewPlanner creates a planner over the given gateway and store.
func NewPlanner(inv gateway.Invoker, store ContractStore) *Planner {
	return &Planner{inv: inv, store: store}
}

// ProcessGoal decomposes a goal description and persists the resulting
// contracts under the shared goal id, each with a fresh contract id and OPEN
// status.
func (p *Planner) ProcessGoal(ctx context.Context, goalID, description string) ([]types.Contract, error) {
	drafts, err := Decompose(ctx, p.inv, description)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	contracts := make([]types.Contract, 0, len(drafts))
	for _, draft := range drafts {
		contracts = append(contracts, types.Contract{
			ContractID:   fmt.Sprintf("contract-%s", uuid.New()),
			GoalID:       goalID,
			Status:       types.StatusOpen,
			Title:        draft.Title,
			Description:  draft.Description,
			ContractType: types.ContractType(draft.ContractType),
			Budget:       draft.Budget,
			CreatedAt:    now,
		})
	}

	if err := p.store.CreateContracts(ctx, contracts); err != nil {
		return nil, fmt.Errorf("failed to persist contracts for goal %s: %w", goalID, err)
	}
	return contracts, nil
}

// buildDecompositionPrompt constructs the structured decomposition prompt:
// think step by step in a scratchpad, then emit raw JSON only.
func buildDecompositionPrompt(goalDescription string) string {
	var sb strings.Builder

	sb.WriteString("You are the Agent-Manager of a highly-structured marketplace for AI agents.\n")
	sb.WriteString("Your primary function is to deconstruct a high-level user goal into a series of precise, machine-readable contracts and allocate a budget for each.\n\n")
	sb.WriteString("Follow this process:\n")
	sb.WriteString("1. Think step-by-step inside a <scratchpad> block: analyze the user's goal, break it down into fundamental needs, identify the distinct creative assets required, determine the most appropriate contract_type for each, formulate a clear and detailed prompt (description) for the specialist agent, and decide on a fair budget allocation for each task from the total pool, considering its complexity.\n")
	sb.WriteString("2. After the scratchpad, generate a single, raw JSON object with one key: \"contracts\", a list of the contract objects you designed.\n\n")
	sb.WriteString(fmt.Sprintf("Total available budget for this goal is %d credits.\n\n", BudgetPool))
	sb.WriteString("Available agent specializations (contract_type) and their relative complexity:\n")
	sb.WriteString("- \"IMAGE\": a complex and valuable task (should receive a significant portion of the budget).\n")
	sb.WriteString("- \"RESEARCH\": an important, foundational task (should receive a medium to high portion of the budget).\n")
	sb.WriteString("- \"TEXT\": a standard, less complex task (should receive a smaller portion of the budget).\n\n")
	sb.WriteString(fmt.Sprintf("User Goal: %q\n\n", goalDescription))
	sb.WriteString("Each contract object must contain:\n")
	sb.WriteString("1. title: a short, descriptive title for the task.\n")
	sb.WriteString("2. description: a detailed prompt for the specialist agent who will perform the task.\n")
	sb.WriteString("3. contract_type: one of \"IMAGE\", \"TEXT\", or \"RESEARCH\".\n")
	sb.WriteString(fmt.Sprintf("4. budget: a number allocating a portion of the %d credits to this task. The sum of all budgets should not exceed %d.\n\n", BudgetPool, BudgetPool))
	sb.WriteString("Your final output MUST contain ONLY the raw JSON object. Do not include the <scratchpad> block or any other text outside the final JSON structure.\n")

	return sb.String()
}

// marshalDraft is a helper for schema validation.
func marshalDraft(draft types.ContractDraft) ([]byte, error) {
	return json.Marshal(draft)
}
