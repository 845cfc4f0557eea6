package models

import "time"

// ScalingMode records how a concurrency limit was chosen.
type ScalingMode string

const (
	// ScalingAuto means the ROI model picked the limit.
	ScalingAuto ScalingMode = "auto"
	// ScalingOverride means the caller supplied the limit.
	ScalingOverride ScalingMode = "override"
)

// ScalingRationale holds the numbers behind a scaling decision.
type ScalingRationale struct {
	SequentialSeconds float64 `json:"sequential_seconds"`
	ParallelSeconds   float64 `json:"parallel_seconds"`
	OverheadSeconds   float64 `json:"overhead_seconds"`
	TimeSavedSeconds  float64 `json:"time_saved_seconds"`
	// ROI is TimeSavedSeconds / OverheadSeconds at the chosen concurrency.
	ROI float64 `json:"roi"`
	// Capacity is the estimator's answer for the class; -1 means no cap.
	Capacity   int  `json:"capacity"`
	CapApplied bool `json:"cap_applied"`
	// Steps lists the policy steps that shaped the result, in order.
	Steps    []string `json:"steps,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ScalingDecision is the concurrency limit chosen for one wave.
// It is immutable once logged.
type ScalingDecision struct {
	WaveIndex     int              `json:"wave_index"`
	Concurrency   int              `json:"concurrency"`
	Mode          ScalingMode      `json:"mode"`
	ResourceClass ResourceClass    `json:"resource_class"`
	TaskCount     int              `json:"task_count"`
	Rationale     ScalingRationale `json:"rationale"`
	DecidedAt     time.Time        `json:"decided_at"`
}

// HasWarnings reports whether the rationale carries any warning.
func (d ScalingDecision) HasWarnings() bool {
	return len(d.Rationale.Warnings) > 0
}
