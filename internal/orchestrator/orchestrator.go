// Package orchestrator polls the marketplace for OPEN contracts and
// dispatches each one to the freelancer registered for its contract type.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mykola/agora/internal/agents"
	"github.com/mykola/agora/internal/types"
)

// maxConcurrentContracts bounds how many contracts are worked at once within
// a single tick.
const maxConcurrentContracts = 4

// ContractLister provides the open side of the marketplace.
type ContractLister interface {
	ListOpenContracts(ctx context.Context) ([]types.Contract, error)
}

// Orchestrator routes open contracts to freelancers by contract type.
type Orchestrator struct {
	contracts ContractLister
	registry  map[types.ContractType]agents.Freelancer
}

// New builds an Orchestrator over the given freelancers. Each freelancer
// registers itself under its own contract type; registering two freelancers
// for the same type is a wiring bug.
func New(contracts ContractLister, freelancers ...agents.Freelancer) (*Orchestrator, error) {
	registry := make(map[types.ContractType]agents.Freelancer, len(freelancers))
	for _, f := range freelancers {
		if _, dup := registry[f.Type()]; dup {
			return nil, fmt.Errorf("duplicate freelancer registered for contract type %s", f.Type())
		}
		registry[f.Type()] = f
	}
	return &Orchestrator{contracts: contracts, registry: registry}, nil
}

// Tick lists the currently open contracts and dispatches them concurrently.
// A contract whose type has no registered freelancer is skipped. A failing
// freelancer never blocks the other contracts in the tick; the contract
// simply stays open for a later pass.
func (o *Orchestrator) Tick(ctx context.Context) error {
	open, err := o.contracts.ListOpenContracts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open contracts: %w", err)
	}
	if len(open) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentContracts)

	for _, contract := range open {
		freelancer, ok := o.registry[contract.ContractType]
		if !ok {
			fmt.Printf("Warning: no freelancer for contract type %s, skipping contract %s.\n", contract.ContractType, contract.ContractID)
			continue
		}

		g.Go(func() error {
			if err := freelancer.Execute(ctx, contract); err != nil {
				fmt.Printf("Contract %s failed: %v\n", contract.ContractID, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Run ticks on the given interval until the context is cancelled. Errors
// listing contracts are logged and the loop continues; transient database
// trouble should not kill the dispatch loop.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := o.Tick(ctx); err != nil {
			fmt.Printf("Warning: orchestrator tick failed: %v\n", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
