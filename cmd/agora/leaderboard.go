package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show agents ranked by reputation",
	RunE:  runLeaderboard,
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	agents, err := a.database.ListAgentsByReputation(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Agent", "Type", "Reputation", "Last Active"})
	for i, agent := range agents {
		t.AppendRow(table.Row{i + 1, agent.AgentID, agent.AgentType, agent.Reputation, agent.LastActiveAt.Format("2006-01-02 15:04")})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
