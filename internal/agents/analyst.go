package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/types"
)

// Analyst fulfills RESEARCH contracts with a single deliberate-tier model
// call. Research briefs have no mechanical pass/fail check, so there is no
// correction loop; the final judging pass is the quality gate.
type Analyst struct {
	client    llm.Client
	submitter Submitter
}

// NewAnalyst creates an Analyst freelancer.
func NewAnalyst(client llm.Client, submitter Submitter) *Analyst {
	return &Analyst{client: client, submitter: submitter}
}

// Type returns the contract type the Analyst handles.
func (a *Analyst) Type() types.ContractType {
	return types.ContractTypeResearch
}

// Execute produces a research brief for the contract and submits it.
func (a *Analyst) Execute(ctx context.Context, contract types.Contract) error {
	if err := checkOpen(contract); err != nil {
		return err
	}

	report, err := a.client.Generate(ctx, buildResearchPrompt(contract), llm.TierDeliberate)
	if err != nil {
		return fmt.Errorf("analyst failed contract %s: %w", contract.ContractID, err)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return fmt.Errorf("analyst produced an empty report for contract %s", contract.ContractID)
	}

	if _, err := a.submitter.PostSubmission(ctx, contract.ContractID, newAgentID("analyst"), report); err != nil {
		return fmt.Errorf("analyst failed to submit for contract %s: %w", contract.ContractID, err)
	}
	return nil
}

func buildResearchPrompt(contract types.Contract) string {
	var sb strings.Builder
	sb.WriteString("You are a senior Market Research Analyst. A client has hired you to complete the following research task.\n\n")
	sb.WriteString(fmt.Sprintf("Task: %s\n\n", contract.Description))
	sb.WriteString("Produce a concise, well-structured research brief that directly answers the task.\n")
	sb.WriteString("Cover the key findings, notable trends, and a short actionable conclusion.\n")
	sb.WriteString("Write in plain prose with clear section headings. Do not pad the report with filler.\n")
	return sb.String()
}
