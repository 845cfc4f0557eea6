package executor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

// SimulatedConfig configures the simulated executor.
type SimulatedConfig struct {
	// TimeScale multiplies each task's estimate to get the sleep time.
	// Zero completes tasks immediately.
	TimeScale float64
	// FailIDs always fail.
	FailIDs []string
	// FlakyIDs fail their first N attempts, then succeed.
	FlakyIDs map[string]int
	// FailureRate fails this fraction of remaining attempts at random.
	FailureRate float64
	// Seed makes random failures reproducible.
	Seed uint64
}

// Simulated stands in for real work in dry runs and demos.
type Simulated struct {
	cfg  SimulatedConfig
	fail map[string]bool

	mu    sync.Mutex
	rng   *rand.Rand
	seen  map[string]int
	calls int
}

// NewSimulated creates a simulated executor.
func NewSimulated(cfg SimulatedConfig) *Simulated {
	fail := make(map[string]bool, len(cfg.FailIDs))
	for _, id := range cfg.FailIDs {
		fail[id] = true
	}
	return &Simulated{
		cfg:  cfg,
		fail: fail,
		rng:  rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		seen: make(map[string]int),
	}
}

// Execute sleeps for the scaled estimate, then succeeds or fails.
func (s *Simulated) Execute(ctx context.Context, task models.TaskNode) (*Result, error) {
	s.mu.Lock()
	s.calls++
	s.seen[task.ID]++
	attempt := s.seen[task.ID]
	roll := s.rng.Float64()
	s.mu.Unlock()

	start := time.Now()
	if d := time.Duration(task.EstimatedDuration.Seconds * s.cfg.TimeScale * float64(time.Second)); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("task %s: %w", task.ID, ctx.Err())
		case <-timer.C:
		}
	}

	switch {
	case s.fail[task.ID]:
		return nil, fmt.Errorf("task %s: simulated failure", task.ID)
	case attempt <= s.cfg.FlakyIDs[task.ID]:
		return nil, fmt.Errorf("task %s: simulated transient failure on attempt %d", task.ID, attempt)
	case roll < s.cfg.FailureRate:
		return nil, fmt.Errorf("task %s: simulated random failure", task.ID)
	}

	return &Result{
		Output:   fmt.Sprintf("simulated %s", task.ID),
		Duration: time.Since(start),
	}, nil
}

// Calls returns the total number of attempts executed.
func (s *Simulated) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// CallsFor returns the number of attempts executed for one task.
func (s *Simulated) CallsFor(taskID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[taskID]
}
