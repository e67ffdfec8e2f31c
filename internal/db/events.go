package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/book-foundry/internal/types"
)

// RecordEvent persists a monitoring event. The monitor treats failures here
// as best-effort, so this only wraps and returns the error.
func (db *DB) RecordEvent(ctx context.Context, ev types.Event) error {
	var payload []byte
	if ev.Payload != nil {
		var err error
		payload, err = json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO events (run_id, stage, status, occurred_at, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.RunID, string(ev.Stage), ev.Status, ev.Timestamp, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListEvents retrieves the recorded events for a run in occurrence order
func (db *DB) ListEvents(ctx context.Context, runID uuid.UUID) ([]types.Event, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT run_id, stage, status, occurred_at, payload
		 FROM events WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var ev types.Event
		var stage string
		var payload []byte
		if err := rows.Scan(&ev.RunID, &stage, &ev.Status, &ev.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Stage = types.Stage(stage)
		if payload != nil {
			var decoded any
			if err := json.Unmarshal(payload, &decoded); err == nil {
				ev.Payload = decoded
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}
