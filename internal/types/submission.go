package types

import "time"

// Submission is one agent's completed attempt at a contract. Many submissions
// may exist per contract; at most one may be marked the winner.
type Submission struct {
	SubmissionID   string    `json:"submission_id"`
	ContractID     string    `json:"contract_id"`
	AgentID        string    `json:"agent_id"`
	SubmissionData string    `json:"submission_data"`
	IsWinner       bool      `json:"is_winner"`
	CreatedAt      time.Time `json:"created_at"`

	// AgentReputation is the submitting agent's reputation at evaluation
	// time. Filled in by the critic's enrichment pass; not persisted on the
	// submission row itself.
	AgentReputation int `json:"agent_reputation,omitempty"`
}
