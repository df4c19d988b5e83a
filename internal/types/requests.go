package types

import "github.com/go-playground/validator/v10"

// CreateGoalRequest is the payload for submitting a new high-level goal.
type CreateGoalRequest struct {
	Description string `json:"description" validate:"required,min=1"`
}

// Validate validates the CreateGoalRequest using the validator.
func (r *CreateGoalRequest) Validate() error {
	return validator.New().Struct(r)
}

// ContinueConversationRequest is the payload for answering a clarifying
// question in an open goal conversation.
type ContinueConversationRequest struct {
	Message string             `json:"message" validate:"required,min=1"`
	History []ConversationTurn `json:"history"`
}

// ConversationTurn is one message in a clarification dialogue.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validate validates the ContinueConversationRequest using the validator.
func (r *ContinueConversationRequest) Validate() error {
	return validator.New().Struct(r)
}

// PostSubmissionRequest is the payload for submitting work to a contract.
type PostSubmissionRequest struct {
	AgentID        string `json:"agent_id" validate:"required,min=1"`
	SubmissionData string `json:"submission_data" validate:"required,min=1"`
}

// Validate validates the PostSubmissionRequest using the validator.
func (r *PostSubmissionRequest) Validate() error {
	return validator.New().Struct(r)
}

// RegisterAgentRequest is the payload for registering a marketplace agent.
type RegisterAgentRequest struct {
	AgentID   string `json:"agent_id" validate:"required,min=1"`
	AgentType string `json:"agent_type" validate:"required,min=1"`
}

// Validate validates the RegisterAgentRequest using the validator.
func (r *RegisterAgentRequest) Validate() error {
	return validator.New().Struct(r)
}
