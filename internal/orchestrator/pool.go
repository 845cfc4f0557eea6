package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrPoolBusy is returned by Resize while slots are held.
var ErrPoolBusy = errors.New("worker pool has slots in use")

// WorkerPool bounds the number of task attempts running at once.
// It is sized before the first wave and resized only between waves.
type WorkerPool struct {
	mu    sync.Mutex
	sem   *semaphore.Weighted
	size  int
	inUse int
}

// NewWorkerPool creates a pool with size slots. Sizes below 1 become 1.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *WorkerPool) Acquire(ctx context.Context) error {
	p.mu.Lock()
	sem := p.sem
	p.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire worker slot: %w", err)
	}

	p.mu.Lock()
	p.inUse++
	p.mu.Unlock()
	return nil
}

// Release returns a slot acquired with Acquire.
func (p *WorkerPool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse == 0 {
		return
	}
	p.inUse--
	p.sem.Release(1)
}

// Resize changes the slot count. It fails with ErrPoolBusy unless idle.
func (p *WorkerPool) Resize(size int) error {
	if size < 1 {
		size = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse > 0 {
		return fmt.Errorf("%w: %d", ErrPoolBusy, p.inUse)
	}
	if size == p.size {
		return nil
	}
	p.sem = semaphore.NewWeighted(int64(size))
	p.size = size
	return nil
}

// Size returns the number of slots.
func (p *WorkerPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

// InUse returns the number of held slots.
func (p *WorkerPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}
