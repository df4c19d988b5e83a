package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mykola/agora/internal/types"
)

// handleCreateGoal accepts a new goal. Sufficient goals are queued for
// decomposition immediately; vague ones come back with a clarifying question
// and a conversation id to answer on.
func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req types.CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.failWith(w, err)
		return
	}

	outcome, err := s.intake.SubmitGoal(r.Context(), req.Description)
	if err != nil {
		s.failWith(w, err)
		return
	}

	if outcome.Accepted {
		s.jsonResponse(w, http.StatusAccepted, map[string]string{
			"status":  "accepted",
			"goal_id": outcome.GoalID,
		})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":          "clarification_needed",
		"conversation_id": outcome.ConversationID,
		"question":        outcome.ClarifyingQuestion,
		"history":         outcome.History,
	})
}

// handleContinueConversation folds the user's answer into an open
// clarification dialogue and queues the combined goal. The conversation id
// becomes the goal id to poll for results.
func (s *Server) handleContinueConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversation_id")

	var req types.ContinueConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.failWith(w, err)
		return
	}

	goalID, err := s.intake.ContinueConversation(r.Context(), conversationID, req.History, req.Message)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"goal_id": goalID,
	})
}

// handleGoalResults reports the durable outcomes for a goal. The goal reads
// COMPLETED once every contract derived from it has a recorded result, and
// PROCESSING before that, including while the goal is still queued for
// decomposition.
func (s *Server) handleGoalResults(w http.ResponseWriter, r *http.Request) {
	goalID := r.PathValue("goal_id")

	contracts, err := s.store.ListContractsByGoal(r.Context(), goalID)
	if err != nil {
		s.failWith(w, err)
		return
	}
	results, err := s.store.ListResultsByGoal(r.Context(), goalID)
	if err != nil {
		s.failWith(w, err)
		return
	}

	status := "PROCESSING"
	if len(contracts) > 0 && allTerminal(contracts) {
		status = "COMPLETED"
	}
	if results == nil {
		results = []types.Result{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"goal_id": goalID,
		"status":  status,
		"results": results,
	})
}

// allTerminal reports whether no contract for the goal is still open.
func allTerminal(contracts []types.Contract) bool {
	for _, c := range contracts {
		if c.Status == types.StatusOpen {
			return false
		}
	}
	return true
}

// handleListContracts returns the contracts currently open for submission.
func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.store.ListOpenContracts(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	if contracts == nil {
		contracts = []types.Contract{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"contracts": contracts})
}

// handlePostSubmission records an agent's work against an open contract.
func (s *Server) handlePostSubmission(w http.ResponseWriter, r *http.Request) {
	contractID := r.PathValue("contract_id")

	var req types.PostSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.failWith(w, err)
		return
	}

	submissionID, err := s.relay.PostSubmission(r.Context(), contractID, req.AgentID, req.SubmissionData)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"submission_id": submissionID})
}

// handleEvaluate triggers a judging pass for one contract. Re-evaluating a
// finished contract is a successful no-op.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	contractID := r.PathValue("contract_id")

	if err := s.critic.Evaluate(r.Context(), contractID); err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":      "evaluated",
		"contract_id": contractID,
	})
}

// marketplaceEntry pairs an open contract with the submissions competing on
// it.
type marketplaceEntry struct {
	Contract    types.Contract     `json:"contract"`
	Submissions []types.Submission `json:"submissions"`
}

// handleMarketplace returns a snapshot of the open marketplace: every open
// contract with its current submissions.
func (s *Server) handleMarketplace(w http.ResponseWriter, r *http.Request) {
	contracts, err := s.store.ListOpenContracts(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}

	entries := make([]marketplaceEntry, 0, len(contracts))
	for _, contract := range contracts {
		submissions, err := s.store.ListSubmissionsByContract(r.Context(), contract.ContractID)
		if err != nil {
			s.failWith(w, err)
			return
		}
		if submissions == nil {
			submissions = []types.Submission{}
		}
		entries = append(entries, marketplaceEntry{Contract: contract, Submissions: submissions})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"marketplace": entries})
}

// handleRegisterAgent registers a marketplace agent. Re-registering an
// existing agent refreshes its activity timestamp without touching its
// reputation.
func (s *Server) handleRegisterAgent(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.failWith(w, err)
		return
	}

	now := time.Now().UTC()
	agent := types.Agent{
		AgentID:      req.AgentID,
		AgentType:    req.AgentType,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := s.store.RegisterAgent(r.Context(), agent); err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{"agent_id": agent.AgentID})
}

// handleLeaderboard returns all agents ordered by reputation, best first.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgentsByReputation(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	if agents == nil {
		agents = []types.Agent{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"agents": agents})
}

// handleUploadURL issues a presigned PUT for an image artifact.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "artifact storage is not configured")
		return
	}
	url, key, err := s.artifacts.PresignPut(r.Context())
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"upload_url": url,
		"key":        key,
	})
}

// handleDownloadURL issues a presigned GET for a stored artifact key.
func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "artifact storage is not configured")
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		s.errorResponse(w, http.StatusBadRequest, "key query parameter is required")
		return
	}
	url, err := s.artifacts.PresignGet(r.Context(), key)
	if err != nil {
		s.failWith(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"download_url": url})
}
