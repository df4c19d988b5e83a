package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mykola/agora/internal/artifacts"
	"github.com/mykola/agora/internal/config"
	"github.com/mykola/agora/internal/critic"
	"github.com/mykola/agora/internal/db"
	"github.com/mykola/agora/internal/decomposer"
	"github.com/mykola/agora/internal/gateway"
	"github.com/mykola/agora/internal/intake"
	"github.com/mykola/agora/internal/llm"
	"github.com/mykola/agora/internal/relay"
)

// app holds the wired marketplace components a command runs against.
type app struct {
	cfg      *config.Config
	database *db.DB
	client   llm.Client
	gw       *gateway.Gateway
	cache    *gateway.RedisCache // nil when using the in-memory cache

	intake    *intake.Intake
	planner   *decomposer.Planner
	worker    *decomposer.Worker
	critic    *critic.Critic
	relay     *relay.Relay
	artifacts *artifacts.Store // nil when no bucket is configured
}

// newApp loads configuration and connects every component. Call Close when
// done.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL, cfg.CallTimeout)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.Timeout = cfg.CallTimeout
	client, err := llm.NewGeminiClient(ctx, llmCfg, cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	a := &app{cfg: cfg, database: database, client: client}

	var cache gateway.Cache
	if cfg.RedisAddr != "" {
		a.cache = gateway.NewRedisCache(cfg.RedisAddr)
		cache = a.cache
	} else {
		log.Println("REDIS_ADDR not set, using in-memory model-response cache")
		cache = gateway.NewMemoryCache()
	}
	a.gw = gateway.New(client, cache)

	if cfg.ArtifactsBucket != "" {
		store, err := artifacts.NewStore(ctx, cfg.ArtifactsBucket, cfg.AWSRegion)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create artifact store: %w", err)
		}
		a.artifacts = store
	} else {
		log.Println("ARTIFACTS_BUCKET not set, image artifact storage disabled")
	}

	a.intake = intake.New(a.gw, database)
	a.planner = decomposer.NewPlanner(a.gw, database)
	a.worker = decomposer.NewWorker(a.planner, database)
	a.critic = critic.New(a.gw, database, database, database, database)
	a.relay = relay.New(database, database)
	return a, nil
}

// Close releases the app's connections.
func (a *app) Close() {
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.database != nil {
		a.database.Close()
	}
}
