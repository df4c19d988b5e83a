package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mykola/agora/internal/types"
)

var registerAgentType string

var registerAgentCmd = &cobra.Command{
	Use:   "register-agent <agent-id>",
	Short: "Register a marketplace agent",
	Long:  `Register an agent so its wins accumulate reputation. Re-registering an existing agent refreshes its activity timestamp and keeps its reputation.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRegisterAgent,
}

func init() {
	registerAgentCmd.Flags().StringVar(&registerAgentType, "type", "generalist", "Agent type (artist, copywriter, analyst, ...)")
	rootCmd.AddCommand(registerAgentCmd)
}

func runRegisterAgent(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now().UTC()
	agent := types.Agent{
		AgentID:      args[0],
		AgentType:    registerAgentType,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := a.database.RegisterAgent(ctx, agent); err != nil {
		return err
	}
	fmt.Printf("Registered agent %s (%s).\n", agent.AgentID, agent.AgentType)
	return nil
}
