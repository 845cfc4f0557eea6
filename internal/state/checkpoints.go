package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

// SaveCheckpoint upserts the checkpoint for (run, wave, task).
func (db *DB) SaveCheckpoint(ctx context.Context, cp models.Checkpoint) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, wave_index, task_id, status, attempt, started_at, ended_at, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, wave_index, task_id) DO UPDATE SET
			status = excluded.status,
			attempt = excluded.attempt,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			result = excluded.result,
			error = excluded.error
	`, cp.RunID, cp.WaveIndex, cp.TaskID, string(cp.Status), cp.Attempt,
		nullableTime(cp.StartedAt), nullableTime(cp.EndedAt), cp.Result, cp.Error)
	if err != nil {
		return fmt.Errorf("save checkpoint %s/%d/%s: %w", cp.RunID, cp.WaveIndex, cp.TaskID, err)
	}
	return nil
}

// AppendAttempt records one attempt in the task's history.
func (db *DB) AppendAttempt(ctx context.Context, cp models.Checkpoint) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO checkpoint_attempts (run_id, wave_index, task_id, attempt, status, started_at, ended_at, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cp.RunID, cp.WaveIndex, cp.TaskID, cp.Attempt, string(cp.Status),
		nullableTime(cp.StartedAt), nullableTime(cp.EndedAt), cp.Result, cp.Error)
	if err != nil {
		return fmt.Errorf("append attempt %s/%s#%d: %w", cp.RunID, cp.TaskID, cp.Attempt, err)
	}
	return nil
}

// ListCheckpoints returns every checkpoint of a run ordered by wave.
func (db *DB) ListCheckpoints(ctx context.Context, runID string) ([]models.Checkpoint, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, wave_index, task_id, status, attempt, started_at, ended_at, result, error
		FROM checkpoints WHERE run_id = ?
		ORDER BY wave_index, task_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()
	return scanCheckpoints(rows)
}

// ListAttempts returns the attempt history for a task, or the whole run
// when taskID is empty.
func (db *DB) ListAttempts(ctx context.Context, runID, taskID string) ([]models.Checkpoint, error) {
	query := `
		SELECT run_id, wave_index, task_id, status, attempt, started_at, ended_at, result, error
		FROM checkpoint_attempts WHERE run_id = ?
	`
	args := []any{runID}
	if taskID != "" {
		query += " AND task_id = ?"
		args = append(args, taskID)
	}
	query += " ORDER BY id"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()
	return scanCheckpoints(rows)
}

func scanCheckpoints(rows *sql.Rows) ([]models.Checkpoint, error) {
	var out []models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		var startedAt, endedAt sql.NullString
		if err := rows.Scan(&cp.RunID, &cp.WaveIndex, &cp.TaskID, &cp.Status, &cp.Attempt,
			&startedAt, &endedAt, &cp.Result, &cp.Error); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.StartedAt = parseNullableTime(startedAt)
		cp.EndedAt = parseNullableTime(endedAt)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// SaveDecision appends a scaling decision to the run's log.
func (db *DB) SaveDecision(ctx context.Context, runID string, d models.ScalingDecision) error {
	rationale, err := json.Marshal(d.Rationale)
	if err != nil {
		return fmt.Errorf("marshal rationale: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO scaling_decisions (run_id, wave_index, concurrency, mode, resource_class, task_count, rationale, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, d.WaveIndex, d.Concurrency, string(d.Mode), string(d.ResourceClass), d.TaskCount,
		string(rationale), formatTime(d.DecidedAt))
	if err != nil {
		return fmt.Errorf("save decision for wave %d: %w", d.WaveIndex, err)
	}
	return nil
}

// ListDecisions returns a run's scaling decisions in the order they were made.
func (db *DB) ListDecisions(ctx context.Context, runID string) ([]models.ScalingDecision, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT wave_index, concurrency, mode, resource_class, task_count, rationale, decided_at
		FROM scaling_decisions WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []models.ScalingDecision
	for rows.Next() {
		var d models.ScalingDecision
		var rationale, decidedAt string
		if err := rows.Scan(&d.WaveIndex, &d.Concurrency, &d.Mode, &d.ResourceClass, &d.TaskCount,
			&rationale, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if err := json.Unmarshal([]byte(rationale), &d.Rationale); err != nil {
			return nil, fmt.Errorf("unmarshal rationale: %w", err)
		}
		d.DecidedAt, _ = parseTime(decidedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// RecordBarrier upserts the barrier record for a wave.
func (db *DB) RecordBarrier(ctx context.Context, b Barrier) error {
	if b.CompletedAt.IsZero() {
		b.CompletedAt = time.Now()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO wave_barriers (run_id, wave_index, state, succeeded, failed, skipped, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, wave_index) DO UPDATE SET
			state = excluded.state,
			succeeded = excluded.succeeded,
			failed = excluded.failed,
			skipped = excluded.skipped,
			completed_at = excluded.completed_at
	`, b.RunID, b.WaveIndex, string(b.State), b.Succeeded, b.Failed, b.Skipped, formatTime(b.CompletedAt))
	if err != nil {
		return fmt.Errorf("record barrier for wave %d: %w", b.WaveIndex, err)
	}
	return nil
}

// ListBarriers returns a run's barrier records ordered by wave.
func (db *DB) ListBarriers(ctx context.Context, runID string) ([]Barrier, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, wave_index, state, succeeded, failed, skipped, completed_at
		FROM wave_barriers WHERE run_id = ?
		ORDER BY wave_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list barriers: %w", err)
	}
	defer rows.Close()

	var out []Barrier
	for rows.Next() {
		var b Barrier
		var completedAt string
		if err := rows.Scan(&b.RunID, &b.WaveIndex, &b.State, &b.Succeeded, &b.Failed, &b.Skipped, &completedAt); err != nil {
			return nil, fmt.Errorf("scan barrier: %w", err)
		}
		b.CompletedAt, _ = parseTime(completedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
