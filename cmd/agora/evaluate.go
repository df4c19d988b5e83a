package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mykola/agora/internal/observability"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <contract-id>",
	Short: "Run the critic against one contract",
	Long:  `Manually trigger a judging pass for a contract. A contract with submissions gets a winner; one without gets reformulated and reposted. Evaluating a finished contract is a no-op.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	contractID := args[0]

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.critic.Evaluate(ctx, contractID); err != nil {
		return err
	}

	submissions, err := a.database.ListSubmissionsByContract(ctx, contractID)
	if err != nil {
		return fmt.Errorf("evaluation succeeded but listing submissions failed: %w", err)
	}
	observability.NewPrinter(os.Stdout).PrintSubmissions(submissions)
	return nil
}
