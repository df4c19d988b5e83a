package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

const (
	// maxCorrectionCycles bounds the generate-critique loop. This is a
	// quality gate, not a retry-until-success loop: exhausting the cycles
	// fails the contract with no submission.
	maxCorrectionCycles = 2
	// qualityThreshold is the minimum self-critique score (out of 10) a
	// candidate set must reach to be submitted.
	qualityThreshold = 7
	// maxParseAttempts bounds regeneration when the model's list output does
	// not parse.
	maxParseAttempts = 2
)

// Copywriter fulfills TEXT contracts. It generates candidate slogans,
// critiques its own output with a second model call, and regenerates with
// the critique folded into the prompt until the quality gate passes or the
// cycle budget runs out.
type Copywriter struct {
	client    llm.Client
	submitter Submitter
}

// NewCopywriter creates a Copywriter freelancer.
func NewCopywriter(client llm.Client, submitter Submitter) *Copywriter {
	return &Copywriter{client: client, submitter: submitter}
}

// Type returns the contract type the Copywriter handles.
func (c *Copywriter) Type() types.ContractType {
	return types.ContractTypeText
}

// Execute runs the self-correction loop and submits the first accepted
// candidate. A contract whose candidates never pass the quality gate is
// failed without a submission.
func (c *Copywriter) Execute(ctx context.Context, contract types.Contract) error {
	if err := checkOpen(contract); err != nil {
		return err
	}

	loop := &selfCorrection{
		client:     c.client,
		basePrompt: contract.Description,
		maxCycles:  maxCorrectionCycles,
		threshold:  qualityThreshold,
	}

	slogans, err := loop.run(ctx)
	if err != nil {
		return fmt.Errorf("copywriter failed contract %s: %w", contract.ContractID, err)
	}

	if _, err := c.submitter.PostSubmission(ctx, contract.ContractID, newAgentID("copywriter"), slogans[0]); err != nil {
		return fmt.Errorf("copywriter failed to submit for contract %s: %w", contract.ContractID, err)
	}
	return nil
}

// critiqueResult is the self-critique model's verdict.
type critiqueResult struct {
	QualityScore  int    `json:"quality_score"`
	Justification string `json:"justification"`
}

// selfCorrection is the bounded-attempt state machine behind the
// Copywriter's quality gate: an attempt counter, an exit predicate (score at
// or above the threshold), and accumulated-feedback prompt mutation between
// cycles.
type selfCorrection struct {
	client     llm.Client
	basePrompt string
	maxCycles  int
	threshold  int

	attempts int
	prompt   string
}

// run executes generation cycles until a candidate set passes the quality
// gate or the cycle budget is exhausted.
func (s *selfCorrection) run(ctx context.Context) ([]string, error) {
	s.prompt = s.basePrompt

	for s.attempts < s.maxCycles {
		s.attempts++

		slogans, err := s.generateCandidates(ctx)
		if err != nil {
			return nil, err
		}

		critique := s.critique(ctx, slogans)
		fmt.Printf("Copywriter cycle %d scored %d/10.\n", s.attempts, critique.QualityScore)

		if critique.QualityScore >= s.threshold {
			return slogans, nil
		}

		// Fold the critique into the next cycle's prompt so the model sees
		// what was wrong with its previous attempt.
		justification := critique.Justification
		if justification == "" {
			justification = "No specific feedback."
		}
		s.prompt += fmt.Sprintf(
			"\n\nYour previous attempt was rated %d/10. Critique: %s. Please generate a much better, more creative set of slogans based on this feedback.",
			critique.QualityScore, justification,
		)
	}

	return nil, fmt.Errorf("no candidate set passed the quality gate after %d cycles", s.maxCycles)
}

// generateCandidates asks for a JSON array of slogans, retrying generation a
// bounded number of times when the output does not parse as a list.
func (s *selfCorrection) generateCandidates(ctx context.Context) ([]string, error) {
	hardened := buildGenerationPrompt(s.prompt)

	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		raw, err := s.client.Generate(ctx, hardened, llm.TierFast)
		if err != nil {
			return nil, fmt.Errorf("generation call failed: %w", err)
		}

		arrayText, err := llm.ExtractJSONArray(raw)
		if err != nil {
			fmt.Printf("Copywriter could not find a list in the response (attempt %d of %d).\n", attempt, maxParseAttempts)
			continue
		}

		var slogans []string
		if err := json.Unmarshal([]byte(arrayText), &slogans); err != nil {
			fmt.Printf("Copywriter could not parse the list (attempt %d of %d): %v\n", attempt, maxParseAttempts, err)
			continue
		}
		if len(slogans) > 0 {
			return slogans, nil
		}
	}

	return nil, fmt.Errorf("failed to get a valid list from the model after %d attempts", maxParseAttempts)
}

// critique scores the candidate set with a second model call. An unparseable
// critique is treated as the lowest score so a broken critic cannot wave
// low-quality work through.
func (s *selfCorrection) critique(ctx context.Context, slogans []string) critiqueResult {
	prompt := buildCritiquePrompt(s.basePrompt, slogans)

	raw, err := s.client.Generate(ctx, prompt, llm.TierFast)
	if err != nil {
		return critiqueResult{QualityScore: 1, Justification: "Critique call failed."}
	}

	objectText, err := llm.ExtractJSONObject(raw)
	if err != nil {
		return critiqueResult{QualityScore: 1, Justification: "Failed to parse critique response."}
	}

	var result critiqueResult
	if err := json.Unmarshal([]byte(objectText), &result); err != nil {
		return critiqueResult{QualityScore: 1, Justification: "Failed to parse critique response."}
	}
	return result
}

// buildGenerationPrompt wraps the working prompt with strict JSON-only
// output instructions.
func buildGenerationPrompt(prompt string) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that ONLY responds with JSON.\n")
	sb.WriteString("Perform the user's request and format the entire output as a single, raw JSON array of strings.\n")
	sb.WriteString("Do not under any circumstances include explanatory text, markdown, or any characters before or after the JSON array.\n\n")
	sb.WriteString(fmt.Sprintf("User Request: %q\n", prompt))
	return sb.String()
}

// buildCritiquePrompt asks the model to score its own candidates against the
// original request.
func buildCritiquePrompt(originalPrompt string, slogans []string) string {
	encoded, _ := json.Marshal(slogans)

	var sb strings.Builder
	sb.WriteString("You are a Quality Assurance critic. Evaluate a list of generated slogans against the original request.\n\n")
	sb.WriteString(fmt.Sprintf("Original Request: %q\n\n", originalPrompt))
	sb.WriteString(fmt.Sprintf("Generated Slogans to Evaluate:\n%s\n\n", encoded))
	sb.WriteString("Assess the slogans on creativity, relevance to the request, and overall quality.\n")
	sb.WriteString("Provide a quality score from 1 (very bad) to 10 (perfect) and a brief justification.\n\n")
	sb.WriteString("Respond with ONLY a single, raw JSON object in this format:\n")
	sb.WriteString("{\n  \"quality_score\": <number>,\n  \"justification\": \"<brief justification>\"\n}\n")
	return sb.String()
}
