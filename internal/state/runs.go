package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

// CreateRun inserts a new run or reopens an existing one for resumption.
func (db *DB) CreateRun(ctx context.Context, r *Run) (bool, error) {
	resumed := false
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var hash string
		err := tx.QueryRowContext(ctx, `SELECT task_hash FROM runs WHERE id = ?`, r.ID).Scan(&hash)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `
				INSERT INTO runs (id, task_hash, status, reason, stopped_at_wave, task_count, wave_count, started_at)
				VALUES (?, ?, ?, '', -1, ?, ?, ?)
			`, r.ID, r.Fingerprint, string(models.RunStatusRunning), r.TaskCount, r.WaveCount, formatTime(r.StartedAt))
			if err != nil {
				return fmt.Errorf("create run: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("lookup run: %w", err)
		}

		if hash != r.Fingerprint {
			return fmt.Errorf("%w: %s", ErrFingerprintMismatch, r.ID)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE runs SET status = ?, reason = '', stopped_at_wave = -1, ended_at = NULL,
				task_count = ?, wave_count = ?
			WHERE id = ?
		`, string(models.RunStatusRunning), r.TaskCount, r.WaveCount, r.ID)
		if err != nil {
			return fmt.Errorf("reopen run: %w", err)
		}
		resumed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	r.Status = models.RunStatusRunning
	r.StoppedAtWave = -1
	return resumed, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, task_hash, status, reason, stopped_at_wave, task_count, wave_count, started_at, ended_at
		FROM runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// FinishRun records the terminal status of a run.
func (db *DB) FinishRun(ctx context.Context, id string, status models.RunStatus, reason string, stoppedAtWave int, endedAt time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE runs SET status = ?, reason = ?, stopped_at_wave = ?, ended_at = ?
		WHERE id = ?
	`, string(status), reason, stoppedAtWave, formatTime(endedAt), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit of 0 returns all runs.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, task_hash, status, reason, stopped_at_wave, task_count, wave_count, started_at, ended_at
		FROM runs ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var startedAt string
	var endedAt sql.NullString
	if err := s.Scan(&r.ID, &r.Fingerprint, &r.Status, &r.Reason, &r.StoppedAtWave,
		&r.TaskCount, &r.WaveCount, &startedAt, &endedAt); err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.EndedAt = parseNullableTime(endedAt)
	return &r, nil
}
