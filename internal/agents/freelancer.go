// Package agents implements the freelancer agents that compete for
// marketplace contracts: Artist (IMAGE), Copywriter (TEXT) and Analyst
// (RESEARCH). Each agent consumes one contract, produces one submission, and
// hands it to the submission relay under a fresh per-execution agent id.
package agents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mykola/agora/internal/types"
)

// Submitter is the relay agents hand finished work to. It is expected to
// reject submissions against contracts that are no longer OPEN.
type Submitter interface {
	PostSubmission(ctx context.Context, contractID, agentID, submissionData string) (string, error)
}

// Freelancer is one contract-fulfilling worker type.
type Freelancer interface {
	// Type is the single contract type this freelancer handles.
	Type() types.ContractType
	// Execute performs the contract's task and submits the result.
	Execute(ctx context.Context, contract types.Contract) error
}

// newAgentID mints the per-execution agent identity recorded on submissions.
func newAgentID(role string) string {
	return fmt.Sprintf("agent-%s-%s", role, uuid.New())
}

// checkOpen rejects work on a contract that is no longer accepting
// submissions. The dispatch layer already filters to OPEN contracts; this is
// defense in depth for contracts closed between listing and execution.
func checkOpen(contract types.Contract) error {
	if contract.Status != types.StatusOpen {
		return fmt.Errorf("contract %s is %s, not accepting work", contract.ContractID, contract.Status)
	}
	return nil
}
