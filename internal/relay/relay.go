// Package relay accepts finished work from freelancer agents and gates it
// against the contract lifecycle: submissions land only on OPEN contracts,
// and every accepted submission fires a change notification for the critic.
package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mykola/agora/internal/types"
)

// ContractGetter looks up the contract a submission targets.
type ContractGetter interface {
	GetContract(ctx context.Context, contractID string) (types.Contract, error)
}

// SubmissionWriter persists accepted submissions.
type SubmissionWriter interface {
	InsertSubmission(ctx context.Context, s types.Submission) error
}

// ContractClosedError rejects a submission against a contract that is no
// longer accepting work. No row is written.
type ContractClosedError struct {
	ContractID string
	Status     types.ContractStatus
}

func (e *ContractClosedError) Error() string {
	return fmt.Sprintf("contract %s is %s and not accepting submissions", e.ContractID, e.Status)
}

// Relay is the submission intake gate.
type Relay struct {
	contracts   ContractGetter
	submissions SubmissionWriter
}

// New builds a Relay over the given stores.
func New(contracts ContractGetter, submissions SubmissionWriter) *Relay {
	return &Relay{contracts: contracts, submissions: submissions}
}

// PostSubmission records one agent's work against a contract and returns the
// new submission id. Submissions against contracts that are not OPEN are
// rejected with a ContractClosedError before anything is written.
func (r *Relay) PostSubmission(ctx context.Context, contractID, agentID, submissionData string) (string, error) {
	if strings.TrimSpace(contractID) == "" || strings.TrimSpace(agentID) == "" {
		return "", fmt.Errorf("contract id and agent id are required")
	}
	if strings.TrimSpace(submissionData) == "" {
		return "", fmt.Errorf("submission data is required")
	}

	contract, err := r.contracts.GetContract(ctx, contractID)
	if err != nil {
		return "", fmt.Errorf("failed to load contract %s: %w", contractID, err)
	}
	if contract.Status != types.StatusOpen {
		return "", &ContractClosedError{ContractID: contractID, Status: contract.Status}
	}

	submission := types.Submission{
		SubmissionID:   "sub-" + uuid.New().String(),
		ContractID:     contractID,
		AgentID:        agentID,
		SubmissionData: submissionData,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.submissions.InsertSubmission(ctx, submission); err != nil {
		return "", fmt.Errorf("failed to store submission for contract %s: %w", contractID, err)
	}
	return submission.SubmissionID, nil
}
