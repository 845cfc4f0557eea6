package state

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

var (
	// ErrFingerprintMismatch indicates a run id was reused with a different task set.
	ErrFingerprintMismatch = errors.New("run exists with a different task set")
	// ErrRunNotFound indicates an operation referenced an unknown run.
	ErrRunNotFound = errors.New("run not found")
)

// Run is the persisted header of an execution run.
type Run struct {
	ID string `json:"id"`
	// Fingerprint identifies the task set the run was created for.
	Fingerprint   string           `json:"fingerprint"`
	Status        models.RunStatus `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	StoppedAtWave int              `json:"stopped_at_wave"`
	TaskCount     int              `json:"task_count"`
	WaveCount     int              `json:"wave_count"`
	StartedAt     time.Time        `json:"started_at"`
	EndedAt       time.Time        `json:"ended_at,omitempty"`
}

// Barrier records a wave passing its barrier.
type Barrier struct {
	RunID       string           `json:"run_id"`
	WaveIndex   int              `json:"wave_index"`
	State       models.WaveState `json:"state"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Skipped     int              `json:"skipped"`
	CompletedAt time.Time        `json:"completed_at"`
}

// RunStore handles run header persistence.
type RunStore interface {
	// CreateRun inserts a run, or reopens an existing run with the same
	// fingerprint. It reports whether the run already existed.
	CreateRun(ctx context.Context, r *Run) (resumed bool, err error)
	// GetRun returns nil, nil when the run does not exist.
	GetRun(ctx context.Context, id string) (*Run, error)
	FinishRun(ctx context.Context, id string, status models.RunStatus, reason string, stoppedAtWave int, endedAt time.Time) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// CheckpointStore handles task outcome persistence.
type CheckpointStore interface {
	// SaveCheckpoint upserts the record keyed by (run, wave, task).
	SaveCheckpoint(ctx context.Context, cp models.Checkpoint) error
	// AppendAttempt adds one attempt to the task's history.
	AppendAttempt(ctx context.Context, cp models.Checkpoint) error
	ListCheckpoints(ctx context.Context, runID string) ([]models.Checkpoint, error)
	// ListAttempts returns attempts for a task in the order they were appended.
	// An empty taskID lists every attempt of the run.
	ListAttempts(ctx context.Context, runID, taskID string) ([]models.Checkpoint, error)
}

// DecisionStore handles scaling decision persistence.
type DecisionStore interface {
	SaveDecision(ctx context.Context, runID string, d models.ScalingDecision) error
	ListDecisions(ctx context.Context, runID string) ([]models.ScalingDecision, error)
}

// BarrierStore handles wave barrier persistence.
type BarrierStore interface {
	RecordBarrier(ctx context.Context, b Barrier) error
	ListBarriers(ctx context.Context, runID string) ([]Barrier, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for checkpoint persistence.
// The coordinator depends on this interface, not on the SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	RunStore
	CheckpointStore
	DecisionStore
	BarrierStore
	PurgeOldRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Compile-time verification that both stores implement all interfaces.
var (
	_ Store = (*DB)(nil)
	_ Store = (*Memory)(nil)
)
