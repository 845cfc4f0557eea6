package orchestrator

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
)

// backoff returns the delay before retry number attempt (1-indexed):
// initial * multiplier^(attempt-1), jittered by +/- Jitter, capped at MaxBackoff.
func backoff(p policy.RetryPolicy, attempt int, random func() float64) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	d := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.Jitter > 0 {
		if random == nil {
			random = rand.Float64
		}
		d += (random()*2 - 1) * d * p.Jitter
	}
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	if d < 0 {
		d = float64(p.InitialBackoff)
	}
	return time.Duration(d)
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
