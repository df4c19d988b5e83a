// Package intake handles goal arrival: it assesses whether a goal description
// is specific enough to decompose, runs at most one clarifying exchange with
// the user, and hands the final description to the decomposition queue.
package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mykola/agora/internal/gateway"
	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// Assessment is the classifier's verdict on a goal description.
type Assessment struct {
	Sufficient         bool   `json:"is_sufficient"`
	ClarifyingQuestion string `json:"clarifying_question"`
}

// GoalQueue is the destination for accepted goal descriptions.
type GoalQueue interface {
	EnqueueGoal(ctx context.Context, goalID, description string) error
}

// Outcome describes what happened to a submitted goal: either it was
// accepted for decomposition, or a clarification conversation was opened.
type Outcome struct {
	Accepted           bool                     `json:"accepted"`
	GoalID             string                   `json:"goal_id,omitempty"`
	ConversationID     string                   `json:"conversation_id,omitempty"`
	ClarifyingQuestion string                   `json:"next_question,omitempty"`
	History            []types.ConversationTurn `json:"history,omitempty"`
}

// Intake wires the assessment classifier to the goal queue.
type Intake struct {
	inv   gateway.Invoker
	queue GoalQueue
}

// New creates an intake front end.
func New(inv gateway.Invoker, queue GoalQueue) *Intake {
	return &Intake{inv: inv, queue: queue}
}

// Assess classifies whether a goal description is detailed enough to act on.
// Any classifier failure fails open: a broken classifier must never block a
// goal indefinitely, so errors are reported as "sufficient".
func Assess(ctx context.Context, inv gateway.Invoker, goalText string) Assessment {
	prompt := buildAssessmentPrompt(goalText)

	var assessment Assessment
	if err := inv.InvokeObject(ctx, prompt, llm.TierFast, &assessment); err != nil {
		fmt.Printf("Warning: goal assessment failed, assuming sufficient: %v\n", err)
		return Assessment{Sufficient: true}
	}
	return assessment
}

// SubmitGoal runs the clarification pre-step on a new goal. Sufficient goals
// are enqueued immediately under a fresh goal id; vague goals open an
// ephemeral conversation and return the clarifying question.
func (in *Intake) SubmitGoal(ctx context.Context, description string) (*Outcome, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("goal description must not be empty")
	}

	assessment := Assess(ctx, in.inv, description)
	if assessment.Sufficient {
		goalID := fmt.Sprintf("goal-%s", uuid.New())
		if err := in.queue.EnqueueGoal(ctx, goalID, description); err != nil {
			return nil, fmt.Errorf("failed to enqueue goal: %w", err)
		}
		return &Outcome{Accepted: true, GoalID: goalID}, nil
	}

	return &Outcome{
		Accepted:           false,
		ConversationID:     fmt.Sprintf("conv-%s", uuid.New()),
		ClarifyingQuestion: assessment.ClarifyingQuestion,
		History:            []types.ConversationTurn{{Role: "user", Content: description}},
	}, nil
}

// ContinueConversation folds one more user message into an open conversation
// and forwards the combined description for decomposition. The conversation
// id becomes the goal id the caller can poll for results.
func (in *Intake) ContinueConversation(ctx context.Context, conversationID string, history []types.ConversationTurn, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("conversation message must not be empty")
	}
	if conversationID == "" {
		return "", fmt.Errorf("conversation id is required")
	}

	combined := CombineDescription(history, message)
	if err := in.queue.EnqueueGoal(ctx, conversationID, combined); err != nil {
		return "", fmt.Errorf("failed to enqueue combined goal: %w", err)
	}
	return conversationID, nil
}

// CombineDescription concatenates all user turns and the newest message, in
// order, into the final goal description.
func CombineDescription(history []types.ConversationTurn, message string) string {
	var parts []string
	for _, turn := range history {
		if turn.Role == "user" && turn.Content != "" {
			parts = append(parts, turn.Content)
		}
	}
	parts = append(parts, message)
	return strings.Join(parts, " ")
}

// buildAssessmentPrompt constructs the classification+generation prompt.
func buildAssessmentPrompt(goalText string) string {
	var sb strings.Builder

	sb.WriteString("You are an AI assistant that analyzes user requests. Your task is to determine if a user's goal description is detailed enough to be broken down into concrete tasks for creative AI agents (like generating a logo, a slogan, or doing research).\n\n")
	sb.WriteString("A detailed request typically mentions the subject (e.g., a company name), the desired outputs (e.g., \"logo\", \"slogan\"), and some context (e.g., \"coffee brand\", \"sci-fi game\").\n")
	sb.WriteString("A vague request is very short and lacks these details (e.g., \"make me a logo\").\n\n")
	sb.WriteString(fmt.Sprintf("User's Goal: %q\n\n", goalText))
	sb.WriteString("Analyze the goal and respond with ONLY a single, raw JSON object. Do not add any text before or after the JSON object.\n")
	sb.WriteString("If the goal is detailed enough:\n")
	sb.WriteString("{\n  \"is_sufficient\": true,\n  \"clarifying_question\": null\n}\n\n")
	sb.WriteString("If the goal is too vague:\n")
	sb.WriteString("{\n  \"is_sufficient\": false,\n  \"clarifying_question\": \"<one friendly, open-ended question to get more details>\"\n}\n")

	return sb.String()
}
