package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/book-foundry/internal/types"
)

// RunRecord is a persisted pipeline run row.
type RunRecord struct {
	ID          uuid.UUID       `json:"id"`
	Config      json.RawMessage `json:"config"`
	Status      string          `json:"status"`
	Revisions   int             `json:"revisions"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// CreateRun inserts a new pipeline run record
func (db *DB) CreateRun(ctx context.Context, run *types.Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO runs (id, config, status, created_at)
		 VALUES ($1, $2, $3, $4)`,
		run.ID, cfgJSON, string(run.Status), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a pipeline run as finished with its terminal status
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status types.RunStatus) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		string(status), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// RecordStageResult appends a stage result row for a run
func (db *DB) RecordStageResult(ctx context.Context, runID uuid.UUID, res types.StageResult) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO stage_results (run_id, stage, status, artifact_ref, error_detail, duration_ms, retries)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, string(res.Stage), res.Status, res.ArtifactRef, res.ErrorDetail,
		res.Duration.Milliseconds(), res.Retries,
	)
	if err != nil {
		return fmt.Errorf("failed to record stage result: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by ID. Returns nil when no row exists.
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*RunRecord, error) {
	var rec RunRecord
	err := db.pool.QueryRow(ctx,
		`SELECT id, config, status, revisions, created_at, completed_at
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&rec.ID, &rec.Config, &rec.Status, &rec.Revisions, &rec.CreatedAt, &rec.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &rec, nil
}

// ListStageResults retrieves the stage result log for a run in append order
func (db *DB) ListStageResults(ctx context.Context, runID uuid.UUID) ([]types.StageResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT stage, status, artifact_ref, error_detail, duration_ms, retries
		 FROM stage_results WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage results: %w", err)
	}
	defer rows.Close()

	var results []types.StageResult
	for rows.Next() {
		var res types.StageResult
		var stage string
		var durationMs int64
		if err := rows.Scan(&stage, &res.Status, &res.ArtifactRef, &res.ErrorDetail, &durationMs, &res.Retries); err != nil {
			return nil, fmt.Errorf("failed to scan stage result: %w", err)
		}
		res.Stage = types.Stage(stage)
		res.Duration = time.Duration(durationMs) * time.Millisecond
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stage results: %w", err)
	}
	return results, nil
}
