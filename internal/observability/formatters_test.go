package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mykola/agora/internal/types"
)

func TestPrintContracts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintContracts([]types.Contract{
		{ContractID: "contract-1", Title: "Design a logo", ContractType: types.ContractTypeImage, Status: types.StatusOpen, Budget: 50},
		{ContractID: "contract-2", Title: "Write slogans", ContractType: types.ContractTypeText, Status: types.StatusClosed, Budget: 20},
	})
	output := buf.String()

	assert.Contains(t, output, "CONTRACTS")
	assert.Contains(t, output, "Design a logo")
	assert.Contains(t, output, "contract-1")
	assert.Contains(t, output, "IMAGE")
	assert.Contains(t, output, "budget 50")
	assert.Contains(t, output, "Write slogans")
}

func TestPrintContracts_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintContracts(nil)

	assert.Contains(t, buf.String(), "No contracts.")
}

func TestPrintContracts_TruncatesLongList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	contracts := make([]types.Contract, 8)
	for i := range contracts {
		contracts[i] = types.Contract{ContractID: "contract", Title: "T", ContractType: types.ContractTypeText, Status: types.StatusOpen}
	}
	p.PrintContracts(contracts)

	assert.Contains(t, buf.String(), "and 3 more contracts")
}

func TestPrintSubmissionsMarksWinner(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSubmissions([]types.Submission{
		{SubmissionID: "sub-1", AgentID: "agent-1", SubmissionData: "first"},
		{SubmissionID: "sub-2", AgentID: "agent-2", SubmissionData: "second", IsWinner: true},
	})
	output := buf.String()

	assert.Contains(t, output, "SUBMISSIONS")
	assert.Contains(t, output, "★ sub-2")
	assert.NotContains(t, output, "★ sub-1")
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResults("goal-1", []types.Result{
		{ContractID: "contract-1", ContractType: types.ContractTypeText, WinningAgentID: "agent-7", SubmissionData: "Every cup plants a tree"},
	})
	output := buf.String()

	assert.Contains(t, output, "GOAL RESULTS")
	assert.Contains(t, output, "goal-1")
	assert.Contains(t, output, "agent-7")
	assert.Contains(t, output, "Every cup plants a tree")
}

func TestPrintResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResults("goal-1", nil)

	assert.Contains(t, buf.String(), "no results yet")
}

func TestPrintClarification(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintClarification("What industry is the brand in?")

	assert.Contains(t, buf.String(), "CLARIFICATION NEEDED")
	assert.Contains(t, buf.String(), "What industry")
}

func TestPrintClarification_Accepted(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintClarification("")

	assert.Contains(t, buf.String(), "GOAL ACCEPTED")
}

func TestBoxTruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintContracts([]types.Contract{{
		ContractID:   strings.Repeat("x", 100),
		Title:        "T",
		ContractType: types.ContractTypeText,
		Status:       types.StatusOpen,
	}})

	for _, line := range strings.Split(buf.String(), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
}
