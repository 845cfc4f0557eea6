package orchestrator

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
	"github.com/ShayCichocki/surge/internal/resource"
	"github.com/ShayCichocki/surge/pkg/models"
)

func capacities(caps map[models.ResourceClass]int) resource.Estimator {
	return resource.Func(func(class models.ResourceClass) int {
		if c, ok := caps[class]; ok {
			return c
		}
		return resource.NoCap
	})
}

func newCalculator(est resource.Estimator) *ScalingCalculator {
	return NewScalingCalculator(policy.Default().Scaling, est)
}

func intPtr(v int) *int { return &v }

func hasWarning(d models.ScalingDecision, substr string) bool {
	for _, w := range d.Rationale.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestDecideSingleTask(t *testing.T) {
	calc := newCalculator(nil)
	for _, n := range []int{0, 1} {
		d := calc.Decide(0, n, 120, models.ResourceGeneral, nil)
		if d.Concurrency != 1 {
			t.Errorf("n=%d: expected concurrency 1, got %d", n, d.Concurrency)
		}
		if d.Mode != models.ScalingAuto {
			t.Errorf("n=%d: expected auto mode, got %s", n, d.Mode)
		}
	}
}

func TestDecideIndependentGeneralTasks(t *testing.T) {
	d := newCalculator(nil).Decide(0, 5, 30, models.ResourceGeneral, nil)
	if d.Concurrency != 5 {
		t.Errorf("expected concurrency 5, got %d (steps %v)", d.Concurrency, d.Rationale.Steps)
	}
	if d.Rationale.CapApplied {
		t.Error("expected no cap for general class")
	}
	if d.Rationale.SequentialSeconds != 150 {
		t.Errorf("expected sequential 150s, got %v", d.Rationale.SequentialSeconds)
	}
}

func TestDecideCapsAtClassCapacity(t *testing.T) {
	calc := newCalculator(capacities(map[models.ResourceClass]int{models.ResourceCPU: 4}))
	d := calc.Decide(2, 16, 90, models.ResourceCPU, nil)
	if d.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", d.Concurrency)
	}
	if !d.Rationale.CapApplied || d.Rationale.Capacity != 4 {
		t.Errorf("expected cap 4 applied, got %+v", d.Rationale)
	}
	if d.WaveIndex != 2 || d.TaskCount != 16 {
		t.Errorf("unexpected decision header: %+v", d)
	}
}

func TestDecideROIDegradation(t *testing.T) {
	tests := []struct {
		name string
		n    int
		avg  float64
		want int
	}{
		{"overhead dominates", 100, 0.01, 1},
		{"short tasks capped by overhead share", 100, 0.5, 50},
	}

	calc := newCalculator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := calc.Decide(0, tt.n, tt.avg, models.ResourceGeneral, nil)
			if d.Concurrency >= tt.n {
				t.Errorf("expected concurrency below %d, got %d", tt.n, d.Concurrency)
			}
			if d.Concurrency != tt.want {
				t.Errorf("expected concurrency %d, got %d (steps %v)", tt.want, d.Concurrency, d.Rationale.Steps)
			}
		})
	}
}

func TestDecideOverrideHonoredWithWarning(t *testing.T) {
	calc := newCalculator(capacities(map[models.ResourceClass]int{models.ResourceNetwork: 10}))
	d := calc.Decide(0, 50, 30, models.ResourceNetwork, intPtr(20))

	if d.Concurrency != 20 {
		t.Errorf("expected concurrency 20, got %d", d.Concurrency)
	}
	if d.Mode != models.ScalingOverride {
		t.Errorf("expected override mode, got %s", d.Mode)
	}
	if !hasWarning(d, "exceeds estimated safe capacity 10") {
		t.Errorf("expected capacity warning, got %v", d.Rationale.Warnings)
	}
}

func TestDecideOverrideWithinCapacity(t *testing.T) {
	calc := newCalculator(capacities(map[models.ResourceClass]int{models.ResourceNetwork: 10}))
	d := calc.Decide(0, 50, 30, models.ResourceNetwork, intPtr(8))
	if d.Concurrency != 8 || d.HasWarnings() {
		t.Errorf("expected 8 without warnings, got %d %v", d.Concurrency, d.Rationale.Warnings)
	}
}

func TestDecideOverrideNonPositive(t *testing.T) {
	d := newCalculator(nil).Decide(0, 5, 30, models.ResourceGeneral, intPtr(0))
	if d.Concurrency != 1 {
		t.Errorf("expected concurrency 1, got %d", d.Concurrency)
	}
	if !hasWarning(d, "not positive") {
		t.Errorf("expected coercion warning, got %v", d.Rationale.Warnings)
	}
}

func TestDecideLargeFileIOWave(t *testing.T) {
	calc := newCalculator(capacities(map[models.ResourceClass]int{models.ResourceFileIO: 10000}))
	d := calc.Decide(0, 10000, 3, models.ResourceFileIO, nil)
	if d.Concurrency != 10000 {
		t.Errorf("expected concurrency 10000, got %d (steps %v)", d.Concurrency, d.Rationale.Steps)
	}
	if d.Rationale.ROI < 10 {
		t.Errorf("expected ROI above 10, got %v", d.Rationale.ROI)
	}
}

func TestDecideLargeConcurrencyROIShortfall(t *testing.T) {
	d := newCalculator(nil).Decide(0, 5000, 1, models.ResourceGeneral, nil)
	if d.Concurrency >= 5000 || d.Concurrency <= 1000 {
		t.Errorf("expected proportional scale-down into (1000, 5000), got %d", d.Concurrency)
	}
	found := false
	for _, step := range d.Rationale.Steps {
		if strings.HasPrefix(step, "large:") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected large-concurrency step, got %v", d.Rationale.Steps)
	}
}

func TestDecideMisbehavingEstimator(t *testing.T) {
	for _, capacity := range []int{0, -7} {
		calc := newCalculator(resource.Func(func(models.ResourceClass) int { return capacity }))
		d := calc.Decide(0, 20, 45, models.ResourceRateLimited, nil)
		if d.Concurrency != 1 {
			t.Errorf("capacity %d: expected degrade to 1, got %d", capacity, d.Concurrency)
		}
		if !d.HasWarnings() {
			t.Errorf("capacity %d: expected a warning", capacity)
		}
	}
}

func TestDecideLongTasksSkipOverheadCap(t *testing.T) {
	d := newCalculator(nil).Decide(0, 40, 1800, models.ResourceGeneral, nil)
	if d.Concurrency != 40 {
		t.Errorf("expected full parallelism, got %d", d.Concurrency)
	}
	last := d.Rationale.Steps[len(d.Rationale.Steps)-1]
	if !strings.Contains(last, "skipped") {
		t.Errorf("expected skipped overhead step, got %v", d.Rationale.Steps)
	}
}

func TestDecideAlwaysPositive(t *testing.T) {
	calc := newCalculator(capacities(map[models.ResourceClass]int{models.ResourceCPU: 2}))
	for _, n := range []int{0, 1, 2, 3, 10, 999, 1001, 20000} {
		for _, avg := range []float64{0, 0.001, 1, 59, 60, 600, 3600} {
			for _, class := range models.AllResourceClasses() {
				if d := calc.Decide(0, n, avg, class, nil); d.Concurrency < 1 {
					t.Fatalf("n=%d avg=%v class=%s: concurrency %d", n, avg, class, d.Concurrency)
				}
			}
		}
	}
}

func TestWaveProfile(t *testing.T) {
	est := capacities(map[models.ResourceClass]int{
		models.ResourceNetwork: 100,
		models.ResourceCPU:     4,
	})
	calc := newCalculator(est)

	tasks := []models.TaskNode{
		{ID: "a", ResourceClass: models.ResourceNetwork, EstimatedDuration: models.Estimate{Seconds: 10}},
		{ID: "b", ResourceClass: models.ResourceCPU, EstimatedDuration: models.Estimate{Seconds: 20}},
		{ID: "c", ResourceClass: models.ResourceNetwork},
		{ID: "d", ResourceClass: models.ResourceCPU, EstimatedDuration: models.Estimate{Seconds: 40}},
	}

	avg, class := calc.WaveProfile(tasks)
	// c falls back to the 30s default.
	if avg != 25 {
		t.Errorf("expected avg 25, got %v", avg)
	}
	if class != models.ResourceCPU {
		t.Errorf("expected tie broken toward cpu, got %s", class)
	}

	_, class = calc.WaveProfile(tasks[:3])
	if class != models.ResourceNetwork {
		t.Errorf("expected majority network, got %s", class)
	}
}

func TestPlanDiamond(t *testing.T) {
	g := mustBuild(t, []models.TaskNode{
		node("A"),
		node("B", "A"),
		node("C", "A"),
		node("D", "B", "C"),
	})
	decisions := newCalculator(nil).Plan(Layer(g), g, nil)

	if len(decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(decisions))
	}
	want := []int{1, 2, 1}
	for i, d := range decisions {
		if d.WaveIndex != i || d.Concurrency != want[i] {
			t.Errorf("wave %d: got index %d concurrency %d, want %d", i, d.WaveIndex, d.Concurrency, want[i])
		}
	}
}
