package orchestrator

import (
	"time"
)

// EventType represents the type of coordinator event.
type EventType string

const (
	// EventRunStarted indicates a run has begun or resumed.
	EventRunStarted EventType = "run_started"
	// EventWaveStarted indicates a wave is about to dispatch.
	EventWaveStarted EventType = "wave_started"
	// EventScalingDecided carries the concurrency chosen for a wave.
	EventScalingDecided EventType = "scaling_decided"
	// EventTaskStarted indicates an attempt has been dispatched.
	EventTaskStarted EventType = "task_started"
	// EventTaskRetrying indicates a failed attempt will be retried.
	EventTaskRetrying EventType = "task_retrying"
	// EventTaskSucceeded indicates a task completed successfully.
	EventTaskSucceeded EventType = "task_succeeded"
	// EventTaskFailed indicates a task failed terminally.
	EventTaskFailed EventType = "task_failed"
	// EventTaskSkipped indicates a task was never dispatched.
	EventTaskSkipped EventType = "task_skipped"
	// EventTaskRestored indicates a task outcome was taken from a checkpoint.
	EventTaskRestored EventType = "task_restored"
	// EventWaveThrottled indicates the wave's dispatch limit was reduced.
	EventWaveThrottled EventType = "wave_throttled"
	// EventWaveBarrier indicates every task in a wave is terminal.
	EventWaveBarrier EventType = "wave_barrier"
	// EventRunFinished indicates the run is completed or aborted.
	EventRunFinished EventType = "run_finished"
)

// Event represents an event emitted by the coordinator.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID is the run the event belongs to.
	RunID string
	// WaveIndex is the related wave, or -1 for run-level events.
	WaveIndex int
	// TaskID is the related task, if applicable.
	TaskID string
	// Attempt is the 1-indexed attempt for task events.
	Attempt int
	// Concurrency is the wave limit for scaling and throttle events.
	Concurrency int
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
