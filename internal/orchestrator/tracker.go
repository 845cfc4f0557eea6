package orchestrator

import (
	"sync"

	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
)

// waveTracker counts terminal outcomes within one wave and holds the
// band chosen by the failure policy. Bands only escalate.
type waveTracker struct {
	mu        sync.Mutex
	policy    policy.FailurePolicy
	size      int
	limit     int
	succeeded int
	failed    int
	band      policy.Band
	throttled bool
}

func newWaveTracker(p policy.FailurePolicy, size, limit int) *waveTracker {
	if limit < 1 {
		limit = 1
	}
	return &waveTracker{policy: p, size: size, limit: limit}
}

// seed adds outcomes restored from checkpoints so a resumed wave is judged
// on everything that already ran in it. Seeding never throttles on its own;
// the throttle step happens in setLimit once the wave's limit is known.
func (t *waveTracker) seed(succeeded, failed int) policy.Band {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.succeeded += succeeded
	t.failed += failed
	if b := t.policy.Evaluate(t.failed, t.succeeded, t.size); b > t.band {
		t.band = b
	}
	return t.band
}

// setLimit sets the dispatch limit chosen for the wave, applying the throttle
// step if seeded outcomes already put the wave in the throttle band.
func (t *waveTracker) setLimit(limit int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if limit < 1 {
		limit = 1
	}
	t.limit = limit
	if t.band == policy.BandThrottle && !t.throttled {
		t.limit = t.policy.Throttle(t.limit)
		t.throttled = true
		return true
	}
	return false
}

// record adds a terminal outcome. It reports the resulting band and whether
// this outcome triggered the wave's one throttle step.
func (t *waveTracker) record(succeeded bool) (policy.Band, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if succeeded {
		t.succeeded++
	} else {
		t.failed++
	}

	if b := t.policy.Evaluate(t.failed, t.succeeded, t.size); b > t.band {
		t.band = b
	}

	throttledNow := false
	if t.band == policy.BandThrottle && !t.throttled {
		t.limit = t.policy.Throttle(t.limit)
		t.throttled = true
		throttledNow = true
	}
	return t.band, throttledNow
}

func (t *waveTracker) currentBand() policy.Band {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.band
}

func (t *waveTracker) currentLimit() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.limit
}

func (t *waveTracker) counts() (succeeded, failed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.succeeded, t.failed
}
