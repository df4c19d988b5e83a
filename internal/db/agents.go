package db

import (
	"context"
	"fmt"

	"github.com/mykola/agora/internal/types"
)

// RegisterAgent creates an agent record, refreshing last_active_at when the
// id is already registered. Reputation is never reset by re-registration.
func (db *DB) RegisterAgent(ctx context.Context, a types.Agent) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO agents (agent_id, agent_type, reputation, created_at, last_active_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (agent_id) DO UPDATE SET agent_type = $2, last_active_at = $5`,
		a.AgentID, a.AgentType, a.Reputation, a.CreatedAt, a.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("failed to register agent %s: %w", a.AgentID, err)
	}
	return nil
}

// GetReputations batch-fetches the reputation counters for a set of agents.
// Unknown agents are simply absent from the returned map.
func (db *DB) GetReputations(ctx context.Context, agentIDs []string) (map[string]int, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	if len(agentIDs) == 0 {
		return map[string]int{}, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT agent_id, reputation FROM agents WHERE agent_id = ANY($1)`,
		agentIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reputations: %w", err)
	}
	defer rows.Close()

	reputations := make(map[string]int, len(agentIDs))
	for rows.Next() {
		var id string
		var rep int
		if err := rows.Scan(&id, &rep); err != nil {
			return nil, fmt.Errorf("failed to scan reputation row: %w", err)
		}
		reputations[id] = rep
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reputation rows error: %w", err)
	}
	return reputations, nil
}

// IncrementReputation atomically adds delta to an agent's reputation counter.
func (db *DB) IncrementReputation(ctx context.Context, agentID string, delta int) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		`UPDATE agents SET reputation = reputation + $2, last_active_at = now() WHERE agent_id = $1`,
		agentID, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to increment reputation for agent %s: %w", agentID, err)
	}
	return nil
}

// ListAgentsByReputation returns all agents, highest reputation first.
func (db *DB) ListAgentsByReputation(ctx context.Context) ([]types.Agent, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT agent_id, agent_type, reputation, created_at, last_active_at
		 FROM agents ORDER BY reputation DESC, agent_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []types.Agent
	for rows.Next() {
		var a types.Agent
		if err := rows.Scan(&a.AgentID, &a.AgentType, &a.Reputation, &a.CreatedAt, &a.LastActiveAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent row: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("agent rows error: %w", err)
	}
	return agents, nil
}
