package orchestrator

import (
	"fmt"
	"math"
	"time"

	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
	"github.com/ShayCichocki/surge/internal/resource"
	"github.com/ShayCichocki/surge/pkg/models"
)

// ScalingCalculator chooses a concurrency limit for each wave.
// It trades projected time saved against per-slot coordination overhead and
// bounds the result by the estimator's capacity for the wave's resource class.
type ScalingCalculator struct {
	policy    policy.ScalingPolicy
	estimator resource.Estimator
	now       func() time.Time
}

// NewScalingCalculator creates a calculator. A nil estimator means no class caps.
func NewScalingCalculator(p policy.ScalingPolicy, est resource.Estimator) *ScalingCalculator {
	if est == nil {
		est = resource.Unbounded()
	}
	return &ScalingCalculator{
		policy:    p,
		estimator: est,
		now:       time.Now,
	}
}

// projection is the modeled cost of running n tasks at concurrency c.
type projection struct {
	sequential float64
	parallel   float64
	overhead   float64
	saved      float64
	roi        float64
}

func (s *ScalingCalculator) project(n, c int, avg float64) projection {
	per := s.policy.PerAgentOverhead.Seconds()
	p := projection{sequential: avg * float64(n)}
	if c < 1 {
		c = 1
	}
	p.overhead = per * float64(c)
	rounds := math.Ceil(float64(n) / float64(c))
	if n == 0 {
		rounds = 0
	}
	p.parallel = avg*rounds + p.overhead
	p.saved = p.sequential - p.parallel
	if p.overhead > 0 {
		p.roi = p.saved / p.overhead
	}
	return p
}

// Decide returns the scaling decision for one wave.
// The result always carries a concrete concurrency of at least 1.
func (s *ScalingCalculator) Decide(waveIndex, taskCount int, avgSeconds float64, class models.ResourceClass, override *int) models.ScalingDecision {
	if taskCount < 0 {
		taskCount = 0
	}
	if avgSeconds < 0 || math.IsNaN(avgSeconds) || math.IsInf(avgSeconds, 0) {
		avgSeconds = 0
	}
	if class == "" {
		class = models.ResourceGeneral
	}

	d := models.ScalingDecision{
		WaveIndex:     waveIndex,
		Mode:          models.ScalingAuto,
		ResourceClass: class,
		TaskCount:     taskCount,
		DecidedAt:     s.now(),
	}
	r := &d.Rationale
	r.Capacity = s.estimator.CapacityFor(class)

	var c int
	if override != nil {
		c = s.decideOverride(r, *override, class)
		d.Mode = models.ScalingOverride
	} else {
		c = s.decideAuto(r, taskCount, avgSeconds, class)
	}

	p := s.project(taskCount, c, avgSeconds)
	r.SequentialSeconds = p.sequential
	r.ParallelSeconds = p.parallel
	r.OverheadSeconds = p.overhead
	r.TimeSavedSeconds = p.saved
	r.ROI = p.roi
	d.Concurrency = c
	return d
}

func (s *ScalingCalculator) decideOverride(r *models.ScalingRationale, override int, class models.ResourceClass) int {
	c := override
	if c < 1 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("override %d is not positive; using 1", override))
		c = 1
	}
	r.Steps = append(r.Steps, fmt.Sprintf("override: concurrency %d", c))

	if r.Capacity != resource.NoCap {
		safe := r.Capacity
		if safe < 1 {
			safe = 1
		}
		if c > safe {
			r.Warnings = append(r.Warnings,
				fmt.Sprintf("override %d exceeds estimated safe capacity %d for class %s", c, safe, class))
		}
	}
	return c
}

func (s *ScalingCalculator) decideAuto(r *models.ScalingRationale, n int, avg float64, class models.ResourceClass) int {
	// 1. Nothing to parallelize.
	if n <= 1 {
		r.Steps = append(r.Steps, fmt.Sprintf("single task: %d in wave", n))
		return 1
	}

	// 2-4. Full parallelism unless its savings do not cover its overhead.
	c := n
	full := s.project(n, n, avg)
	if full.saved <= full.overhead {
		c = 1
		for try := n; try >= 1; try-- {
			p := s.project(n, try, avg)
			if p.saved > p.overhead {
				c = try
				break
			}
		}
		r.Steps = append(r.Steps, fmt.Sprintf(
			"roi: full parallelism saves %.2fs against %.2fs overhead; reduced to %d",
			full.saved, full.overhead, c))
	} else {
		r.Steps = append(r.Steps, fmt.Sprintf(
			"roi: full parallelism saves %.2fs against %.2fs overhead", full.saved, full.overhead))
	}

	// 5. Resource class cap.
	switch {
	case r.Capacity == resource.NoCap:
		r.Steps = append(r.Steps, fmt.Sprintf("capacity: no cap for class %s", class))
	case r.Capacity < 1:
		r.Warnings = append(r.Warnings,
			fmt.Sprintf("estimator reported capacity %d for class %s; using 1", r.Capacity, class))
		c = 1
		r.CapApplied = true
		r.Steps = append(r.Steps, "capacity: degraded to 1")
	case c > r.Capacity:
		c = r.Capacity
		r.CapApplied = true
		r.Steps = append(r.Steps, fmt.Sprintf("capacity: capped at %d for class %s", c, class))
	}

	// 6. Very high concurrency must clear a higher ROI bar.
	if c > s.policy.LargeConcurrencyThreshold {
		p := s.project(n, c, avg)
		if p.roi < s.policy.MinLargeROI {
			scaled := int(math.Floor(float64(c)*p.roi/s.policy.MinLargeROI + 1e-9))
			if scaled < 1 {
				scaled = 1
			}
			r.Steps = append(r.Steps, fmt.Sprintf(
				"large: roi %.2f below %.0fx at %d; scaled to %d", p.roi, s.policy.MinLargeROI, c, scaled))
			c = scaled
		}
	}

	// 7. Keep overhead a small share of short work.
	switch {
	case avg < s.policy.ShortTaskSeconds:
		per := s.policy.PerAgentOverhead.Seconds()
		maxC := int(math.Floor(s.policy.MaxOverheadFraction*avg*float64(n)/per + 1e-9))
		if maxC < 1 {
			maxC = 1
		}
		if c > maxC {
			r.Steps = append(r.Steps, fmt.Sprintf(
				"short tasks: overhead held under %.0f%% of work; capped at %d",
				s.policy.MaxOverheadFraction*100, maxC))
			c = maxC
		}
	case avg >= s.policy.LongTaskSeconds:
		r.Steps = append(r.Steps, "long tasks: overhead cap skipped")
	}

	return c
}

// WaveProfile summarizes the tasks of a wave for Decide. The average uses
// the default estimate for tasks without one. The class is the one most
// tasks share; ties go to the class with the lowest capacity.
func (s *ScalingCalculator) WaveProfile(tasks []models.TaskNode) (float64, models.ResourceClass) {
	if len(tasks) == 0 {
		return 0, models.ResourceGeneral
	}

	var total float64
	counts := make(map[models.ResourceClass]int)
	var order []models.ResourceClass
	for _, t := range tasks {
		secs := t.EstimatedDuration.Seconds
		if secs <= 0 {
			secs = s.policy.DefaultEstimateSeconds
		}
		total += secs

		class := t.ResourceClass
		if class == "" {
			class = models.ResourceGeneral
		}
		if counts[class] == 0 {
			order = append(order, class)
		}
		counts[class]++
	}

	best := order[0]
	bestCap := effectiveCapacity(s.estimator.CapacityFor(best))
	for _, class := range order[1:] {
		switch {
		case counts[class] > counts[best]:
			best = class
			bestCap = effectiveCapacity(s.estimator.CapacityFor(class))
		case counts[class] == counts[best]:
			if c := effectiveCapacity(s.estimator.CapacityFor(class)); c < bestCap {
				best, bestCap = class, c
			}
		}
	}

	return total / float64(len(tasks)), best
}

// effectiveCapacity orders capacities with NoCap as infinite.
func effectiveCapacity(c int) int {
	if c == resource.NoCap {
		return math.MaxInt
	}
	return c
}

// Plan previews the decision for every wave using all of its tasks.
func (s *ScalingCalculator) Plan(waves []models.Wave, g *graph.DependencyGraph, override *int) []models.ScalingDecision {
	out := make([]models.ScalingDecision, 0, len(waves))
	for _, w := range waves {
		tasks := make([]models.TaskNode, 0, len(w.TaskIDs))
		for _, id := range w.TaskIDs {
			if t, ok := g.Task(id); ok {
				tasks = append(tasks, t)
			}
		}
		avg, class := s.WaveProfile(tasks)
		out = append(out, s.Decide(w.Index, len(tasks), avg, class, override))
	}
	return out
}
