package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mykola/agora/internal/observability"
)

var goalCmd = &cobra.Command{
	Use:   "goal <description>",
	Short: "Submit a goal to the marketplace",
	Long:  `Submit a high-level goal. A vague goal triggers one clarification round on the terminal before it is queued for decomposition.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGoal,
}

func init() {
	rootCmd.AddCommand(goalCmd)
}

func runGoal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	description := strings.Join(args, " ")
	printer := observability.NewPrinter(os.Stdout)

	outcome, err := a.intake.SubmitGoal(ctx, description)
	if err != nil {
		return err
	}

	if outcome.Accepted {
		printer.PrintClarification("")
		fmt.Printf("Goal queued as %s. Poll it with: GET /goals/%s\n", outcome.GoalID, outcome.GoalID)
		return nil
	}

	printer.PrintClarification(outcome.ClarifyingQuestion)
	fmt.Print("> ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read clarification answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fmt.Errorf("clarification answer must not be empty")
	}

	goalID, err := a.intake.ContinueConversation(ctx, outcome.ConversationID, outcome.History, answer)
	if err != nil {
		return err
	}
	fmt.Printf("Goal queued as %s. Poll it with: GET /goals/%s\n", goalID, goalID)
	return nil
}
