package types

import "time"

// Agent is a registered marketplace participant. Reputation is a monotonic
// counter incremented only by the critic when the agent's submission wins.
type Agent struct {
	AgentID      string    `json:"agent_id"`
	AgentType    string    `json:"agent_type"`
	Reputation   int       `json:"reputation"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Result is the durable winning outcome for one (goal, contract) pair.
type Result struct {
	GoalID              string       `json:"goal_id"`
	ContractID          string       `json:"contract_id"`
	WinningSubmissionID string       `json:"winning_submission_id"`
	WinningAgentID      string       `json:"winning_agent_id"`
	SubmissionData      string       `json:"submission_data"`
	ContractType        ContractType `json:"contract_type"`
	EvaluatedAt         time.Time    `json:"evaluated_at"`
}
