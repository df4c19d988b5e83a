package db

import (
	"context"
	"fmt"

	"github.com/mykola/agora/internal/types"
)

// SaveResult records the finalized winning outcome for a (goal, contract)
// pair. The upsert keeps re-evaluation replays idempotent.
func (db *DB) SaveResult(ctx context.Context, r types.Result) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO results (goal_id, contract_id, winning_submission_id, winning_agent_id, submission_data, contract_type, evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (goal_id, contract_id) DO NOTHING`,
		r.GoalID, r.ContractID, r.WinningSubmissionID, r.WinningAgentID, r.SubmissionData, r.ContractType, r.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save result for contract %s: %w", r.ContractID, err)
	}
	return nil
}

// ListResultsByGoal returns every finalized outcome recorded for a goal.
func (db *DB) ListResultsByGoal(ctx context.Context, goalID string) ([]types.Result, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT goal_id, contract_id, winning_submission_id, winning_agent_id, submission_data, contract_type, evaluated_at
		 FROM results WHERE goal_id = $1 ORDER BY evaluated_at`,
		goalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list results for goal %s: %w", goalID, err)
	}
	defer rows.Close()

	var results []types.Result
	for rows.Next() {
		var r types.Result
		if err := rows.Scan(&r.GoalID, &r.ContractID, &r.WinningSubmissionID, &r.WinningAgentID, &r.SubmissionData, &r.ContractType, &r.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("result rows error: %w", err)
	}
	return results, nil
}
