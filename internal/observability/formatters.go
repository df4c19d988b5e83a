// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/mykola/agora/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintContracts outputs a human-readable summary of a contract list.
func (p *Printer) PrintContracts(contracts []types.Contract) {
	if len(contracts) == 0 {
		p.printBox("CONTRACTS", "No contracts.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total contracts: %d\n\n", len(contracts)))

	count := min(len(contracts), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := contracts[i]
		title := c.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, title))
		sb.WriteString(fmt.Sprintf("    %s · %s · budget %.0f\n", c.ContractType, c.Status, c.Budget))
		sb.WriteString(fmt.Sprintf("    %s\n", c.ContractID))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(contracts) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more contracts", len(contracts)-maxItemsToShow))
	}

	p.printBox("CONTRACTS", sb.String())
}

// PrintSubmissions outputs the submissions made against one contract.
func (p *Printer) PrintSubmissions(submissions []types.Submission) {
	if len(submissions) == 0 {
		p.printBox("SUBMISSIONS", "No submissions yet.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total submissions: %d\n\n", len(submissions)))

	count := min(len(submissions), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := submissions[i]
		data := s.SubmissionData
		if len(data) > 45 {
			data = data[:42] + "..."
		}
		marker := " "
		if s.IsWinner {
			marker = "★"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", marker, s.SubmissionID))
		sb.WriteString(fmt.Sprintf("  by %s\n", s.AgentID))
		sb.WriteString(fmt.Sprintf("  %s\n", data))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}

	if len(submissions) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more submissions", len(submissions)-maxItemsToShow))
	}

	p.printBox("SUBMISSIONS", sb.String())
}

// PrintResults outputs the durable outcomes recorded for a goal.
func (p *Printer) PrintResults(goalID string, results []types.Result) {
	if len(results) == 0 {
		p.printBox("GOAL RESULTS", fmt.Sprintf("Goal %s has no results yet.", goalID))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Goal: %s\n", goalID))
	sb.WriteString(fmt.Sprintf("Completed contracts: %d\n\n", len(results)))

	for i, r := range results {
		data := r.SubmissionData
		if len(data) > 45 {
			data = data[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s (%s)\n", r.ContractID, r.ContractType))
		sb.WriteString(fmt.Sprintf("  won by %s\n", r.WinningAgentID))
		sb.WriteString(fmt.Sprintf("  %s\n", data))
		if i < len(results)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("GOAL RESULTS", sb.String())
}

// PrintClarification outputs a clarification question the intake asked.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintClarification(question string) {
	if question == "" {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "GOAL ACCEPTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}
	p.printBox("CLARIFICATION NEEDED", question)
}
