package orchestrator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/surge/internal/executor"
	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
	"github.com/ShayCichocki/surge/internal/resource"
	"github.com/ShayCichocki/surge/internal/state"
)

// RequiredConfig contains the minimal required configuration for a Coordinator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Executor runs one task attempt.
	Executor executor.TaskExecutor
	// Store persists runs, checkpoints, decisions and barriers.
	Store state.Store
}

// Option configures a Coordinator. Use With* functions to create Options.
type Option func(*coordinatorOptions)

// coordinatorOptions holds all optional configuration.
type coordinatorOptions struct {
	policyConfig *policy.Config
	estimator    resource.Estimator
	logger       zerolog.Logger
	eventBuffer  int
	retryFailed  bool
	now          func() time.Time
	random       func() float64
}

func defaultOptions() coordinatorOptions {
	return coordinatorOptions{
		policyConfig: policy.Default(),
		estimator:    resource.Unbounded(),
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithPolicy sets the policy configuration.
func WithPolicy(p *policy.Config) Option {
	return func(o *coordinatorOptions) { o.policyConfig = p }
}

// WithEstimator sets the resource estimator consulted for class caps.
func WithEstimator(e resource.Estimator) Option {
	return func(o *coordinatorOptions) { o.estimator = e }
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *coordinatorOptions) { o.logger = l }
}

// WithEventBuffer enables the event stream with the given buffer size.
func WithEventBuffer(n int) Option {
	return func(o *coordinatorOptions) { o.eventBuffer = n }
}

// WithRetryFailed re-executes tasks whose checkpoint recorded a failure
// when a run is resumed. Succeeded checkpoints are always restored.
func WithRetryFailed(b bool) Option {
	return func(o *coordinatorOptions) { o.retryFailed = b }
}

// WithClock replaces time.Now for timestamps and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(o *coordinatorOptions) { o.now = now }
}

// withRandom fixes the jitter source in tests.
func withRandom(f func() float64) Option {
	return func(o *coordinatorOptions) { o.random = f }
}
