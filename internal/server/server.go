package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mykola/agora/internal/intake"
	"github.com/mykola/agora/internal/types"
)

// Store is the read/write storage surface the API serves from.
type Store interface {
	ListOpenContracts(ctx context.Context) ([]types.Contract, error)
	ListContractsByGoal(ctx context.Context, goalID string) ([]types.Contract, error)
	ListSubmissionsByContract(ctx context.Context, contractID string) ([]types.Submission, error)
	ListResultsByGoal(ctx context.Context, goalID string) ([]types.Result, error)
	RegisterAgent(ctx context.Context, a types.Agent) error
	ListAgentsByReputation(ctx context.Context) ([]types.Agent, error)
}

// GoalIntake accepts new goals and clarification answers.
type GoalIntake interface {
	SubmitGoal(ctx context.Context, description string) (*intake.Outcome, error)
	ContinueConversation(ctx context.Context, conversationID string, history []types.ConversationTurn, message string) (string, error)
}

// SubmissionRelay accepts agent work against a contract.
type SubmissionRelay interface {
	PostSubmission(ctx context.Context, contractID, agentID, submissionData string) (string, error)
}

// Evaluator triggers a judging pass for one contract.
type Evaluator interface {
	Evaluate(ctx context.Context, contractID string) error
}

// ArtifactPresigner issues presigned artifact upload and download URLs.
type ArtifactPresigner interface {
	PresignPut(ctx context.Context) (url, key string, err error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	store      Store
	intake     GoalIntake
	relay      SubmissionRelay
	critic     Evaluator
	artifacts  ArtifactPresigner
}

// Config holds server configuration
type Config struct {
	Port int
}

// New creates a new server instance. The artifacts presigner may be nil when
// no bucket is configured; the presign endpoints then report unavailability.
func New(cfg Config, store Store, goalIntake GoalIntake, submissionRelay SubmissionRelay, evaluator Evaluator, artifacts ArtifactPresigner) *Server {
	s := &Server{
		store:     store,
		intake:    goalIntake,
		relay:     submissionRelay,
		critic:    evaluator,
		artifacts: artifacts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /goals", s.handleCreateGoal)
	mux.HandleFunc("POST /goals/conversation/{conversation_id}", s.handleContinueConversation)
	mux.HandleFunc("GET /goals/{goal_id}", s.handleGoalResults)
	mux.HandleFunc("GET /contracts", s.handleListContracts)
	mux.HandleFunc("POST /contracts/{contract_id}/submissions", s.handlePostSubmission)
	mux.HandleFunc("POST /contracts/{contract_id}/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /marketplace", s.handleMarketplace)
	mux.HandleFunc("POST /agents", s.handleRegisterAgent)
	mux.HandleFunc("GET /agents/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /submissions/upload-url", s.handleUploadURL)
	mux.HandleFunc("GET /submissions/download-url", s.handleDownloadURL)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Run listens for requests until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("Server stopped")
	return nil
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failWith maps an error to its HTTP status and writes the payload.
func (s *Server) failWith(w http.ResponseWriter, err error) {
	s.errorResponse(w, HTTPStatus(err), err.Error())
}
