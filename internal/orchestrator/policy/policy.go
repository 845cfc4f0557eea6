// Package policy defines configurable policy parameters for orchestrator behavior.
// It centralizes the thresholds used by the scaling calculator, the retry
// loop, per-attempt timeouts, and the failure-threshold bands.
package policy

import (
	"math"
	"time"
)

// Config contains all configurable policy parameters for the orchestrator.
type Config struct {
	// Scaling policies
	Scaling ScalingPolicy

	// Retry policies
	Retry RetryPolicy

	// Timeout policies
	Timeout TimeoutPolicy

	// Failure threshold policies
	Failure FailurePolicy
}

// ScalingPolicy controls the ROI model that picks per-wave concurrency.
type ScalingPolicy struct {
	// PerAgentOverhead is the coordination cost charged for each concurrent slot.
	PerAgentOverhead time.Duration

	// LargeConcurrencyThreshold is the concurrency above which MinLargeROI applies.
	LargeConcurrencyThreshold int

	// MinLargeROI is the ROI ratio required to keep concurrency above the threshold.
	MinLargeROI float64

	// ShortTaskSeconds marks tasks short enough to cap overhead relative to work.
	ShortTaskSeconds float64

	// LongTaskSeconds marks tasks long enough that overhead is ignored.
	LongTaskSeconds float64

	// MaxOverheadFraction is the share of sequential work overhead may consume
	// for short tasks.
	MaxOverheadFraction float64

	// DefaultEstimateSeconds is used for tasks that carry no estimate.
	DefaultEstimateSeconds float64
}

// RetryPolicy controls bounded task retries.
type RetryPolicy struct {
	// MaxRetries is the number of extra attempts after the first.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential delay.
	MaxBackoff time.Duration

	// Multiplier grows the delay between attempts.
	Multiplier float64

	// Jitter adds up to this fraction of randomness to each delay.
	Jitter float64
}

// TimeoutPolicy controls per-attempt timeouts.
type TimeoutPolicy struct {
	// Multiplier is applied to the duration estimate.
	Multiplier float64

	// Min is the lower bound for any attempt.
	Min time.Duration

	// Max is the upper bound for any attempt.
	Max time.Duration

	// Default applies when a task has no estimate.
	Default time.Duration
}

// FailurePolicy maps a wave's failure rate onto a response band.
type FailurePolicy struct {
	// ThrottleRate is the failure rate at which dispatch is throttled.
	ThrottleRate float64

	// DrainRate is the failure rate at which the run aborts after the wave.
	DrainRate float64

	// HaltRate is the failure rate at which dispatch stops immediately.
	HaltRate float64

	// ThrottleFactor is the fraction the dispatch limit is reduced by.
	ThrottleFactor float64

	// MinSample is the number of terminal tasks required before the rate is trusted.
	// The effective sample is never larger than the wave.
	MinSample int
}

// Band is the response selected by the failure-threshold policy.
type Band int

const (
	// BandTransient retries failures and continues.
	BandTransient Band = iota
	// BandThrottle reduces the dispatch limit for the rest of the wave.
	BandThrottle
	// BandDrain finishes the wave, then aborts the run.
	BandDrain
	// BandHalt stops dispatching and aborts the run.
	BandHalt
)

// String returns the band name.
func (b Band) String() string {
	switch b {
	case BandTransient:
		return "transient"
	case BandThrottle:
		return "throttle"
	case BandDrain:
		return "drain"
	case BandHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// AllowsRetry reports whether failed attempts may be retried in this band.
func (b Band) AllowsRetry() bool {
	return b == BandTransient || b == BandThrottle
}

// Aborts reports whether the band ends the run after the current wave.
func (b Band) Aborts() bool {
	return b >= BandDrain
}

// Evaluate returns the band for the terminal tasks observed so far in a wave.
func (p FailurePolicy) Evaluate(failed, succeeded, waveSize int) Band {
	terminal := failed + succeeded
	if terminal == 0 {
		return BandTransient
	}

	sample := p.MinSample
	if waveSize < sample {
		sample = waveSize
	}
	if terminal < sample {
		return BandTransient
	}

	rate := float64(failed) / float64(terminal)
	switch {
	case rate >= p.HaltRate:
		return BandHalt
	case rate >= p.DrainRate:
		return BandDrain
	case rate >= p.ThrottleRate:
		return BandThrottle
	default:
		return BandTransient
	}
}

// Throttle returns the reduced dispatch limit, never below 1.
func (p FailurePolicy) Throttle(limit int) int {
	reduced := int(math.Floor(float64(limit) * (1 - p.ThrottleFactor)))
	if reduced < 1 {
		return 1
	}
	return reduced
}

// TimeoutFor derives an attempt timeout from an estimate in seconds.
func (p TimeoutPolicy) TimeoutFor(estimateSeconds float64) time.Duration {
	if estimateSeconds <= 0 {
		return p.Default
	}
	d := time.Duration(estimateSeconds * p.Multiplier * float64(time.Second))
	if d < p.Min {
		return p.Min
	}
	if d > p.Max {
		return p.Max
	}
	return d
}

// Default returns the default policy configuration.
func Default() *Config {
	return &Config{
		Scaling: ScalingPolicy{
			PerAgentOverhead:          100 * time.Millisecond,
			LargeConcurrencyThreshold: 1000,
			MinLargeROI:               10,
			ShortTaskSeconds:          60,
			LongTaskSeconds:           20 * 60,
			MaxOverheadFraction:       0.10,
			DefaultEstimateSeconds:    30,
		},
		Retry: RetryPolicy{
			MaxRetries:     2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			Multiplier:     2,
			Jitter:         0.2,
		},
		Timeout: TimeoutPolicy{
			Multiplier: 3,
			Min:        5 * time.Second,
			Max:        2 * time.Hour,
			Default:    10 * time.Minute,
		},
		Failure: FailurePolicy{
			ThrottleRate:   0.01,
			DrainRate:      0.10,
			HaltRate:       0.50,
			ThrottleFactor: 0.25,
			MinSample:      10,
		},
	}
}

// Normalized returns a validated copy, leaving c untouched.
func (c *Config) Normalized() *Config {
	out := *c
	// Validate repairs values instead of rejecting them, so it cannot fail.
	_ = out.Validate()
	return &out
}

// Validate checks that policy values are within acceptable ranges.
// Out-of-range values are reset to their defaults.
func (c *Config) Validate() error {
	d := Default()

	if c.Scaling.PerAgentOverhead <= 0 {
		c.Scaling.PerAgentOverhead = d.Scaling.PerAgentOverhead
	}
	if c.Scaling.LargeConcurrencyThreshold < 1 {
		c.Scaling.LargeConcurrencyThreshold = d.Scaling.LargeConcurrencyThreshold
	}
	if c.Scaling.MinLargeROI <= 0 {
		c.Scaling.MinLargeROI = d.Scaling.MinLargeROI
	}
	if c.Scaling.ShortTaskSeconds <= 0 {
		c.Scaling.ShortTaskSeconds = d.Scaling.ShortTaskSeconds
	}
	if c.Scaling.LongTaskSeconds < c.Scaling.ShortTaskSeconds {
		c.Scaling.LongTaskSeconds = math.Max(d.Scaling.LongTaskSeconds, c.Scaling.ShortTaskSeconds)
	}
	if c.Scaling.MaxOverheadFraction <= 0 || c.Scaling.MaxOverheadFraction >= 1 {
		c.Scaling.MaxOverheadFraction = d.Scaling.MaxOverheadFraction
	}
	if c.Scaling.DefaultEstimateSeconds <= 0 {
		c.Scaling.DefaultEstimateSeconds = d.Scaling.DefaultEstimateSeconds
	}

	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if c.Retry.InitialBackoff < 0 {
		c.Retry.InitialBackoff = d.Retry.InitialBackoff
	}
	if c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		c.Retry.MaxBackoff = c.Retry.InitialBackoff
	}
	if c.Retry.Multiplier < 1 {
		c.Retry.Multiplier = d.Retry.Multiplier
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		c.Retry.Jitter = d.Retry.Jitter
	}

	if c.Timeout.Multiplier < 1 {
		c.Timeout.Multiplier = d.Timeout.Multiplier
	}
	if c.Timeout.Min <= 0 {
		c.Timeout.Min = d.Timeout.Min
	}
	if c.Timeout.Max < c.Timeout.Min {
		c.Timeout.Max = c.Timeout.Min
	}
	if c.Timeout.Default <= 0 {
		c.Timeout.Default = d.Timeout.Default
	}

	f := &c.Failure
	if f.ThrottleRate <= 0 || f.DrainRate <= f.ThrottleRate || f.HaltRate <= f.DrainRate || f.HaltRate > 1 {
		f.ThrottleRate = d.Failure.ThrottleRate
		f.DrainRate = d.Failure.DrainRate
		f.HaltRate = d.Failure.HaltRate
	}
	if f.ThrottleFactor <= 0 || f.ThrottleFactor >= 1 {
		f.ThrottleFactor = d.Failure.ThrottleFactor
	}
	if f.MinSample < 1 {
		f.MinSample = d.Failure.MinSample
	}
	return nil
}
