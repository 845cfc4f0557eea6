package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

type checkpointKey struct {
	runID  string
	wave   int
	taskID string
}

// Memory is an in-process Store for dry runs and tests.
// Nothing survives the process.
type Memory struct {
	mu          sync.RWMutex
	runs        map[string]*Run
	checkpoints map[checkpointKey]models.Checkpoint
	attempts    map[string][]models.Checkpoint
	decisions   map[string][]models.ScalingDecision
	barriers    map[string]map[int]Barrier
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		runs:        make(map[string]*Run),
		checkpoints: make(map[checkpointKey]models.Checkpoint),
		attempts:    make(map[string][]models.Checkpoint),
		decisions:   make(map[string][]models.ScalingDecision),
		barriers:    make(map[string]map[int]Barrier),
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Migrate is a no-op.
func (m *Memory) Migrate() error { return nil }

// CreateRun inserts a run or reopens one with the same fingerprint.
func (m *Memory) CreateRun(_ context.Context, r *Run) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.Status = models.RunStatusRunning
	r.StoppedAtWave = -1

	if existing, ok := m.runs[r.ID]; ok {
		if existing.Fingerprint != r.Fingerprint {
			return false, fmt.Errorf("%w: %s", ErrFingerprintMismatch, r.ID)
		}
		existing.Status = models.RunStatusRunning
		existing.Reason = ""
		existing.StoppedAtWave = -1
		existing.EndedAt = time.Time{}
		existing.TaskCount = r.TaskCount
		existing.WaveCount = r.WaveCount
		return true, nil
	}

	cp := *r
	m.runs[r.ID] = &cp
	return false, nil
}

// GetRun returns nil, nil for unknown runs.
func (m *Memory) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

// FinishRun records the terminal status of a run.
func (m *Memory) FinishRun(_ context.Context, id string, status models.RunStatus, reason string, stoppedAtWave int, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	r.Status = status
	r.Reason = reason
	r.StoppedAtWave = stoppedAtWave
	r.EndedAt = endedAt
	return nil
}

// ListRuns returns the most recent runs first.
func (m *Memory) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) requireRun(runID string) error {
	if _, ok := m.runs[runID]; !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// SaveCheckpoint upserts the checkpoint for (run, wave, task).
func (m *Memory) SaveCheckpoint(_ context.Context, cp models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireRun(cp.RunID); err != nil {
		return err
	}
	m.checkpoints[checkpointKey{cp.RunID, cp.WaveIndex, cp.TaskID}] = cp
	return nil
}

// AppendAttempt records one attempt in the task's history.
func (m *Memory) AppendAttempt(_ context.Context, cp models.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireRun(cp.RunID); err != nil {
		return err
	}
	m.attempts[cp.RunID] = append(m.attempts[cp.RunID], cp)
	return nil
}

// ListCheckpoints returns every checkpoint of a run ordered by wave.
func (m *Memory) ListCheckpoints(_ context.Context, runID string) ([]models.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Checkpoint
	for k, cp := range m.checkpoints {
		if k.runID == runID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WaveIndex != out[j].WaveIndex {
			return out[i].WaveIndex < out[j].WaveIndex
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out, nil
}

// ListAttempts returns attempts in append order.
func (m *Memory) ListAttempts(_ context.Context, runID, taskID string) ([]models.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Checkpoint
	for _, cp := range m.attempts[runID] {
		if taskID == "" || cp.TaskID == taskID {
			out = append(out, cp)
		}
	}
	return out, nil
}

// SaveDecision appends a scaling decision.
func (m *Memory) SaveDecision(_ context.Context, runID string, d models.ScalingDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireRun(runID); err != nil {
		return err
	}
	m.decisions[runID] = append(m.decisions[runID], d)
	return nil
}

// ListDecisions returns decisions in the order they were made.
func (m *Memory) ListDecisions(_ context.Context, runID string) ([]models.ScalingDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ScalingDecision(nil), m.decisions[runID]...), nil
}

// RecordBarrier upserts the barrier record for a wave.
func (m *Memory) RecordBarrier(_ context.Context, b Barrier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.requireRun(b.RunID); err != nil {
		return err
	}
	if b.CompletedAt.IsZero() {
		b.CompletedAt = time.Now()
	}
	if m.barriers[b.RunID] == nil {
		m.barriers[b.RunID] = make(map[int]Barrier)
	}
	m.barriers[b.RunID][b.WaveIndex] = b
	return nil
}

// ListBarriers returns barrier records ordered by wave.
func (m *Memory) ListBarriers(_ context.Context, runID string) ([]Barrier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Barrier, 0, len(m.barriers[runID]))
	for _, b := range m.barriers[runID] {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WaveIndex < out[j].WaveIndex })
	return out, nil
}

// PurgeOldRuns deletes finished runs that started before olderThan ago.
func (m *Memory) PurgeOldRuns(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var n int64
	for id, r := range m.runs {
		if r.Status == models.RunStatusRunning || !r.StartedAt.Before(cutoff) {
			continue
		}
		delete(m.runs, id)
		delete(m.attempts, id)
		delete(m.decisions, id)
		delete(m.barriers, id)
		for k := range m.checkpoints {
			if k.runID == id {
				delete(m.checkpoints, k)
			}
		}
		n++
	}
	return n, nil
}
