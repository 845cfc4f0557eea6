// Package executor provides the task executors that perform one attempt of a task.
package executor

import (
	"context"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

// Result is the outcome of a successful attempt.
type Result struct {
	// Output is the executor's result payload.
	Output string
	// Duration is the wall time the attempt took.
	Duration time.Duration
}

// TaskExecutor runs one attempt of a task.
// A non-nil error marks the attempt failed. Implementations must be safe for
// concurrent use across distinct tasks and must not retain the node.
type TaskExecutor interface {
	Execute(ctx context.Context, task models.TaskNode) (*Result, error)
}

// Func adapts a plain function to the TaskExecutor interface.
type Func func(ctx context.Context, task models.TaskNode) (*Result, error)

// Execute calls f.
func (f Func) Execute(ctx context.Context, task models.TaskNode) (*Result, error) {
	return f(ctx, task)
}

type attemptKey struct{}

// WithAttempt returns a context carrying the 1-indexed attempt number.
func WithAttempt(ctx context.Context, attempt int) context.Context {
	return context.WithValue(ctx, attemptKey{}, attempt)
}

// AttemptFrom returns the attempt number carried by ctx, or 1.
func AttemptFrom(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok && n > 0 {
		return n
	}
	return 1
}

// truncate shortens s to at most limit bytes, marking the cut.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "...[truncated]"
}

// compile-time interface checks
var (
	_ TaskExecutor = Func(nil)
	_ TaskExecutor = (*Shell)(nil)
	_ TaskExecutor = (*Anthropic)(nil)
	_ TaskExecutor = (*Simulated)(nil)
)
