package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not been considered yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusReady indicates every dependency succeeded and the task awaits a slot.
	TaskStatusReady TaskStatus = "ready"
	// TaskStatusRunning indicates an attempt is in flight.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusSucceeded indicates the task completed successfully.
	TaskStatusSucceeded TaskStatus = "succeeded"
	// TaskStatusFailed indicates the task failed after exhausting its retries.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusSkipped indicates the task was never dispatched.
	TaskStatusSkipped TaskStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusReady, TaskStatusRunning,
		TaskStatusSucceeded, TaskStatusFailed, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status is final for a run.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed || s == TaskStatusSkipped
}

// Confidence tags how much an estimate can be trusted.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Estimate is a duration estimate with a confidence tag.
type Estimate struct {
	// Seconds is the expected wall-clock duration of one attempt.
	Seconds float64 `json:"seconds"`
	// Confidence is how reliable Seconds is. Empty means unknown.
	Confidence Confidence `json:"confidence,omitempty"`
}

// Duration returns the estimate as a time.Duration.
func (e Estimate) Duration() time.Duration {
	return time.Duration(e.Seconds * float64(time.Second))
}

// TaskNode is one unit of work in a dependency graph.
type TaskNode struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the human-readable statement of the work.
	Description string `json:"description,omitempty"`
	// DependsOn lists task IDs that must succeed before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// EstimatedDuration is the expected duration of one attempt.
	EstimatedDuration Estimate `json:"estimated_duration"`
	// ResourceClass selects the concurrency cap for this task.
	ResourceClass ResourceClass `json:"resource_class"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// SkipReason explains why a skipped task was never dispatched.
	SkipReason string `json:"skip_reason,omitempty"`
}
