package db

import (
	"context"
	"fmt"

	"github.com/mykola/agora/internal/types"
)

// InsertSubmission writes a submission row and fires the change notification
// in the same transaction, so a committed row always has a delivery attempt
// behind it.
func (db *DB) InsertSubmission(ctx context.Context, s types.Submission) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin submission insert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO submissions (submission_id, contract_id, agent_id, submission_data, is_winner, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.SubmissionID, s.ContractID, s.AgentID, s.SubmissionData, s.IsWinner, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission %s: %w", s.SubmissionID, err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, ChannelSubmissions, s.ContractID); err != nil {
		return fmt.Errorf("failed to notify submission insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit submission %s: %w", s.SubmissionID, err)
	}
	return nil
}

// ListSubmissionsByContract returns every submission made against a contract,
// oldest first.
func (db *DB) ListSubmissionsByContract(ctx context.Context, contractID string) ([]types.Submission, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT submission_id, contract_id, agent_id, submission_data, is_winner, created_at
		 FROM submissions WHERE contract_id = $1 ORDER BY created_at`,
		contractID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for contract %s: %w", contractID, err)
	}
	defer rows.Close()

	var submissions []types.Submission
	for rows.Next() {
		var s types.Submission
		if err := rows.Scan(&s.SubmissionID, &s.ContractID, &s.AgentID, &s.SubmissionData, &s.IsWinner, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("submission rows error: %w", err)
	}
	return submissions, nil
}

// ListOpenContractIDsWithSubmissions returns the ids of OPEN contracts that
// have at least one submission waiting. The listener's periodic sweep uses
// this as the redelivery backstop for missed submission notifications.
func (db *DB) ListOpenContractIDsWithSubmissions(ctx context.Context) ([]string, error) {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT s.contract_id
		 FROM submissions s
		 JOIN contracts c ON c.contract_id = s.contract_id
		 WHERE c.status = $1`,
		types.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending contracts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contract id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending contract rows error: %w", err)
	}
	return ids, nil
}

// MarkWinner flips is_winner on the selected submission. The field-scoped
// update never touches the rest of the row.
func (db *DB) MarkWinner(ctx context.Context, submissionID string) error {
	ctx, cancel := db.boundCtx(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		`UPDATE submissions SET is_winner = TRUE WHERE submission_id = $1`,
		submissionID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark submission %s as winner: %w", submissionID, err)
	}
	return nil
}
