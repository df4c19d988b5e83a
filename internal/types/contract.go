// Package types provides type definitions for the marketplace records shared
// across the agora system.
package types

import (
	"fmt"
	"time"
)

// ContractType identifies which freelancer specialization a contract targets.
type ContractType string

// The closed set of contract types. Unknown values are rejected at the
// boundary rather than deep in dispatch logic.
const (
	// ContractTypeImage is an image-generation task.
	ContractTypeImage ContractType = "IMAGE"
	// ContractTypeText is a copywriting task.
	ContractTypeText ContractType = "TEXT"
	// ContractTypeResearch is a research/analysis task.
	ContractTypeResearch ContractType = "RESEARCH"
)

// ParseContractType validates a raw string against the closed contract type set.
func ParseContractType(raw string) (ContractType, error) {
	switch ContractType(raw) {
	case ContractTypeImage, ContractTypeText, ContractTypeResearch:
		return ContractType(raw), nil
	default:
		return "", fmt.Errorf("unknown contract type %q", raw)
	}
}

// ContractStatus represents the lifecycle state of a contract.
type ContractStatus string

// Contract lifecycle states. Transitions are one-directional:
// OPEN -> CLOSED or OPEN -> FAILED_REPOSTED, never back.
const (
	// StatusOpen means the contract accepts submissions.
	StatusOpen ContractStatus = "OPEN"
	// StatusClosed means a winner was selected and the contract is final.
	StatusClosed ContractStatus = "CLOSED"
	// StatusFailedReposted means the contract attracted no submissions and was
	// replaced by a reformulated copy.
	StatusFailedReposted ContractStatus = "FAILED_REPOSTED"
)

// Contract is one unit of work derived from a goal, open for competitive
// submission by freelancer agents.
type Contract struct {
	ContractID   string         `json:"contract_id"`
	GoalID       string         `json:"goal_id"`
	Status       ContractStatus `json:"status"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	ContractType ContractType   `json:"contract_type"`
	Budget       float64        `json:"budget"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ContractDraft is a contract as produced by goal decomposition, before it is
// assigned an id, a goal and an OPEN status.
type ContractDraft struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	ContractType string  `json:"contract_type"`
	Budget       float64 `json:"budget"`
}

// Complete reports whether a draft carries all four required fields.
// Malformed drafts are dropped by the decomposer, not persisted.
func (d ContractDraft) Complete() bool {
	if d.Title == "" || d.Description == "" {
		return false
	}
	if _, err := ParseContractType(d.ContractType); err != nil {
		return false
	}
	return d.Budget >= 0
}
