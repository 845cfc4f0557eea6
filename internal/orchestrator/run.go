package orchestrator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/pkg/models"
)

var (
	// ErrRunFinalized is returned when a finished run is transitioned or run again.
	ErrRunFinalized = errors.New("run already finalized")
	// ErrInvalidRun is returned when a run has no id or no graph.
	ErrInvalidRun = errors.New("invalid execution run")
)

// ExecutionRun is one orchestration of a dependency graph.
// Waves are computed once at construction; decisions and checkpoints
// accumulate in wave order while the run executes.
type ExecutionRun struct {
	ID       string
	Graph    *graph.DependencyGraph
	Waves    []models.Wave
	Override *int

	mu          sync.Mutex
	status      models.RunStatus
	decisions   []models.ScalingDecision
	checkpoints []models.Checkpoint
}

// NewExecutionRun layers g and returns a run in the running state.
func NewExecutionRun(id string, g *graph.DependencyGraph, override *int) *ExecutionRun {
	r := &ExecutionRun{
		ID:       id,
		Graph:    g,
		Override: override,
		status:   models.RunStatusRunning,
	}
	if g != nil {
		r.Waves = Layer(g)
	}
	return r
}

func (r *ExecutionRun) validate() error {
	if r == nil || r.Graph == nil {
		return fmt.Errorf("%w: missing graph", ErrInvalidRun)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRun)
	}
	return nil
}

// Status returns the current run status.
func (r *ExecutionRun) Status() models.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Finish moves a running run to completed or aborted. It succeeds once.
func (r *ExecutionRun) Finish(status models.RunStatus) error {
	if status != models.RunStatusCompleted && status != models.RunStatusAborted {
		return fmt.Errorf("invalid final status %q", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != models.RunStatusRunning {
		return fmt.Errorf("%w: %s is %s", ErrRunFinalized, r.ID, r.status)
	}
	r.status = status
	return nil
}

// Decisions returns the scaling decisions recorded so far.
func (r *ExecutionRun) Decisions() []models.ScalingDecision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ScalingDecision(nil), r.decisions...)
}

// Checkpoints returns the terminal checkpoints recorded so far.
func (r *ExecutionRun) Checkpoints() []models.Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Checkpoint(nil), r.checkpoints...)
}

func (r *ExecutionRun) addDecision(d models.ScalingDecision) {
	r.mu.Lock()
	r.decisions = append(r.decisions, d)
	r.mu.Unlock()
}

func (r *ExecutionRun) addCheckpoint(cp models.Checkpoint) {
	r.mu.Lock()
	r.checkpoints = append(r.checkpoints, cp)
	r.mu.Unlock()
}
