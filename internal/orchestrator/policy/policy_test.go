package policy

import (
	"testing"
	"time"
)

func TestEvaluateBands(t *testing.T) {
	p := Default().Failure

	tests := []struct {
		name      string
		failed    int
		succeeded int
		waveSize  int
		want      Band
	}{
		{"no terminal tasks", 0, 0, 10, BandTransient},
		{"below sample", 5, 0, 10, BandTransient},
		{"clean wave", 0, 200, 200, BandTransient},
		{"under one percent", 1, 199, 200, BandTransient},
		{"one percent", 2, 198, 200, BandThrottle},
		{"nine percent", 9, 91, 100, BandThrottle},
		{"ten percent", 1, 9, 10, BandDrain},
		{"forty nine percent", 49, 51, 100, BandDrain},
		{"majority", 6, 4, 10, BandHalt},
		{"half", 5, 5, 10, BandHalt},
		{"small wave uses wave size as sample", 1, 0, 1, BandHalt},
		{"small wave partial", 1, 0, 3, BandTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Evaluate(tt.failed, tt.succeeded, tt.waveSize); got != tt.want {
				t.Errorf("Evaluate(%d, %d, %d) = %s, want %s",
					tt.failed, tt.succeeded, tt.waveSize, got, tt.want)
			}
		})
	}
}

func TestBandPredicates(t *testing.T) {
	if !BandTransient.AllowsRetry() || !BandThrottle.AllowsRetry() {
		t.Error("transient and throttle bands should allow retries")
	}
	if BandDrain.AllowsRetry() || BandHalt.AllowsRetry() {
		t.Error("drain and halt bands should not allow retries")
	}
	if BandThrottle.Aborts() || !BandDrain.Aborts() || !BandHalt.Aborts() {
		t.Error("only drain and halt should abort")
	}
	if BandHalt.String() != "halt" || Band(42).String() != "unknown" {
		t.Errorf("unexpected band names: %s %s", BandHalt, Band(42))
	}
}

func TestThrottle(t *testing.T) {
	p := Default().Failure
	tests := []struct {
		limit int
		want  int
	}{
		{100, 75},
		{8, 6},
		{3, 2},
		{1, 1},
	}
	for _, tt := range tests {
		if got := p.Throttle(tt.limit); got != tt.want {
			t.Errorf("Throttle(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestTimeoutFor(t *testing.T) {
	p := Default().Timeout
	tests := []struct {
		name     string
		estimate float64
		want     time.Duration
	}{
		{"no estimate", 0, p.Default},
		{"scaled", 60, 3 * time.Minute},
		{"clamped low", 0.1, p.Min},
		{"clamped high", 100000, p.Max},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.TimeoutFor(tt.estimate); got != tt.want {
				t.Errorf("TimeoutFor(%v) = %v, want %v", tt.estimate, got, tt.want)
			}
		})
	}
}

func TestValidateCoercesInvalidValues(t *testing.T) {
	c := &Config{}
	c.Failure.ThrottleRate = 0.2
	c.Failure.DrainRate = 0.1
	c.Retry.MaxRetries = -1
	c.Timeout.Min = time.Minute
	c.Timeout.Max = time.Second

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	d := Default()
	if c.Scaling.PerAgentOverhead != d.Scaling.PerAgentOverhead {
		t.Errorf("expected default overhead, got %v", c.Scaling.PerAgentOverhead)
	}
	if c.Retry.MaxRetries != d.Retry.MaxRetries {
		t.Errorf("expected default retries, got %d", c.Retry.MaxRetries)
	}
	if !(c.Failure.ThrottleRate < c.Failure.DrainRate && c.Failure.DrainRate < c.Failure.HaltRate) {
		t.Errorf("bands out of order: %+v", c.Failure)
	}
	if c.Timeout.Max < c.Timeout.Min {
		t.Errorf("timeout max %v below min %v", c.Timeout.Max, c.Timeout.Min)
	}
}

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	before := *c
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if *c != before {
		t.Errorf("Validate changed default config: %+v", c)
	}
}

func TestNormalizedLeavesReceiverUntouched(t *testing.T) {
	c := &Config{}
	c.Retry.MaxRetries = -1

	n := c.Normalized()

	if c.Retry.MaxRetries != -1 || c.Scaling.PerAgentOverhead != 0 {
		t.Errorf("receiver was modified: %+v", c)
	}
	if n.Retry.MaxRetries != Default().Retry.MaxRetries {
		t.Errorf("expected default retries in copy, got %d", n.Retry.MaxRetries)
	}
	if n == c {
		t.Error("expected a distinct copy")
	}
}
