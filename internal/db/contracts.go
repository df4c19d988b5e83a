package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mykola/agora/internal/types"
)

// CreateContract persists a single contract row.
func (db *DB) CreateContract(ctx context.Context, c types.Contract) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO contracts (contract_id, goal_id, status, title, description, contract_type, budget, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ContractID, c.GoalID, c.Status, c.Title, c.Description, c.ContractType, c.Budget, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contract %s: %w", c.ContractID, err)
	}
	return nil
}

// CreateContracts persists a batch of contracts. Contracts are independent
// work items, so each insert is issued on its own; the first failure aborts
// the remainder and is reported to the caller for redelivery.
func (db *DB) CreateContracts(ctx context.Context, contracts []types.Contract) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	for _, c := range contracts {
		if err := db.CreateContract(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// GetContract fetches a single contract by id. Returns ErrNotFound when the
// id is unknown.
func (db *DB) GetContract(ctx context.Context, contractID string) (types.Contract, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	row := db.pool.QueryRow(ctx,
		`SELECT contract_id, goal_id, status, title, description, contract_type, budget, created_at
		 FROM contracts WHERE contract_id = $1`,
		contractID,
	)

	var c types.Contract
	err := row.Scan(&c.ContractID, &c.GoalID, &c.Status, &c.Title, &c.Description, &c.ContractType, &c.Budget, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Contract{}, fmt.Errorf("contract %s: %w", contractID, ErrNotFound)
	}
	if err != nil {
		return types.Contract{}, fmt.Errorf("failed to get contract %s: %w", contractID, err)
	}
	return c, nil
}

// ListOpenContracts returns every contract currently accepting submissions.
func (db *DB) ListOpenContracts(ctx context.Context) ([]types.Contract, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT contract_id, goal_id, status, title, description, contract_type, budget, created_at
		 FROM contracts WHERE status = $1 ORDER BY created_at`,
		types.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// ListContractsByGoal returns all contracts derived from one goal.
func (db *DB) ListContractsByGoal(ctx context.Context, goalID string) ([]types.Contract, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT contract_id, goal_id, status, title, description, contract_type, budget, created_at
		 FROM contracts WHERE goal_id = $1 ORDER BY created_at`,
		goalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// TransitionContract performs the conditional OPEN -> target status write.
// It reports whether this caller won the transition; a false return with nil
// error means another evaluation got there first and the caller should
// no-op rather than fail.
func (db *DB) TransitionContract(ctx context.Context, contractID string, to types.ContractStatus) (bool, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx,
		`UPDATE contracts SET status = $2 WHERE contract_id = $1 AND status = $3`,
		contractID, to, types.StatusOpen,
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition contract %s to %s: %w", contractID, to, err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanContracts(rows pgx.Rows) ([]types.Contract, error) {
	var contracts []types.Contract
	for rows.Next() {
		var c types.Contract
		if err := rows.Scan(&c.ContractID, &c.GoalID, &c.Status, &c.Title, &c.Description, &c.ContractType, &c.Budget, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contract row: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contract rows error: %w", err)
	}
	return contracts, nil
}
