package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mykola/agora/internal/agents"
	"github.com/mykola/agora/internal/orchestrator"
	"github.com/mykola/agora/internal/relay"
	"github.com/mykola/agora/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the marketplace: API, orchestrator, decomposer and critic",
	Long:  `Start the HTTP API alongside the background loops: the decomposer worker that turns queued goals into contracts, the orchestrator that dispatches open contracts to freelancer agents, and the critic listener that judges incoming submissions.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != 0 {
		a.cfg.Port = servePort
	}

	freelancers := []agents.Freelancer{
		agents.NewCopywriter(a.client, a.relay),
		agents.NewAnalyst(a.client, a.relay),
	}
	if a.artifacts != nil {
		freelancers = append(freelancers, agents.NewArtist(a.client, a.artifacts, a.relay))
	} else {
		log.Println("No artifact store: IMAGE contracts will not be worked")
	}

	dispatch, err := orchestrator.New(a.database, freelancers...)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	sweep := func(ctx context.Context) {
		a.worker.Sweep(ctx)
		ids, err := a.database.ListOpenContractIDsWithSubmissions(ctx)
		if err != nil {
			log.Printf("Warning: evaluation sweep failed: %v", err)
			return
		}
		for _, id := range ids {
			if err := a.critic.Evaluate(ctx, id); err != nil {
				log.Printf("Warning: sweep evaluation of contract %s failed: %v", id, err)
			}
		}
	}

	listener := relay.NewListener(a.database.Pool(), relay.Handlers{
		OnSubmission: a.critic.Evaluate,
		OnGoal: func(ctx context.Context) {
			if _, err := a.worker.Drain(ctx); err != nil {
				log.Printf("Warning: goal drain failed: %v", err)
			}
		},
		Sweep: sweep,
	}, a.cfg.SweepInterval)

	var presigner server.ArtifactPresigner
	if a.artifacts != nil {
		presigner = a.artifacts
	}
	api := server.New(server.Config{Port: a.cfg.Port}, a.database, a.intake, a.relay, a.critic, presigner)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Run(ctx) })
	g.Go(func() error { return listener.Run(ctx) })
	g.Go(func() error {
		dispatch.Run(ctx, a.cfg.PollInterval)
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
