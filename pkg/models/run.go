package models

import "time"

// RunStatus represents the state of an execution run.
type RunStatus string

const (
	// RunStatusRunning indicates waves are still being executed.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates every wave reached its barrier.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusAborted indicates the run stopped early.
	RunStatusAborted RunStatus = "aborted"
)

// Valid returns true if the status is a known value.
func (s RunStatus) Valid() bool {
	switch s {
	case RunStatusRunning, RunStatusCompleted, RunStatusAborted:
		return true
	default:
		return false
	}
}

// WaveState is the lifecycle position of a single wave.
type WaveState string

const (
	WaveStatePending         WaveState = "pending"
	WaveStateDispatching     WaveState = "dispatching"
	WaveStateAwaitingBarrier WaveState = "awaiting_barrier"
	WaveStateDone            WaveState = "done"
)

// Wave is a set of tasks eligible to run concurrently.
type Wave struct {
	// Index is the position of the wave, starting at 0.
	Index int `json:"index"`
	// TaskIDs lists the wave's tasks in input order.
	TaskIDs []string `json:"task_ids"`
}

// Checkpoint is the durable outcome record of one task within a run.
// It is keyed by (RunID, WaveIndex, TaskID).
type Checkpoint struct {
	RunID     string     `json:"run_id"`
	WaveIndex int        `json:"wave_index"`
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	// Attempt is the 1-indexed attempt that produced this record.
	Attempt   int       `json:"attempt"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether the checkpoint records a final task outcome.
func (c Checkpoint) Terminal() bool {
	return c.Status == TaskStatusSucceeded || c.Status == TaskStatusFailed
}

// TaskResult is the per-task entry of a wave report.
type TaskResult struct {
	TaskID     string     `json:"task_id"`
	Status     TaskStatus `json:"status"`
	Attempts   int        `json:"attempts"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at,omitempty"`
	EndedAt    time.Time  `json:"ended_at,omitempty"`
	Restored   bool       `json:"restored,omitempty"`
	SkipReason string     `json:"skip_reason,omitempty"`
}

// WaveReport summarizes one wave of a run.
type WaveReport struct {
	Index    int              `json:"index"`
	TaskIDs  []string         `json:"task_ids"`
	Decision *ScalingDecision `json:"scaling_decision,omitempty"`
	Results  []TaskResult     `json:"results"`
}

// TaskFailure describes one terminally failed task.
type TaskFailure struct {
	TaskID    string `json:"task_id"`
	WaveIndex int    `json:"wave_index"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error"`
}

// FailureSummary aggregates task outcomes across the run.
type FailureSummary struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Failures  []TaskFailure `json:"failures,omitempty"`
}

// FinalReport is the outcome of an execution run.
type FinalReport struct {
	RunID  string    `json:"run_id"`
	Status RunStatus `json:"run_status"`
	// Reason explains why an aborted run stopped.
	Reason string `json:"reason,omitempty"`
	// StoppedAtWave is the wave index where an aborted run stopped, or -1.
	StoppedAtWave int          `json:"stopped_at_wave"`
	Waves         []WaveReport `json:"waves"`
	TotalElapsed  time.Duration `json:"total_elapsed"`
	// SequentialBaseline is the sum of every task's estimated duration.
	SequentialBaseline time.Duration  `json:"sequential_baseline_estimate"`
	FailureSummary     FailureSummary `json:"failure_summary"`
}
