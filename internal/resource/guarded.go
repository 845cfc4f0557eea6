package resource

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/surge/pkg/models"
)

// Defaults for Guarded.
const (
	DefaultProbeTimeout = 250 * time.Millisecond
	DefaultCacheTTL     = 30 * time.Second
)

// Guarded wraps an untrusted Estimator with a per-class TTL cache and a
// bounded probe. A probe that is slow or panics falls back to the last known
// value for the class, or to 1 when none exists.
type Guarded struct {
	inner   Estimator
	timeout time.Duration
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	mu    sync.Mutex
	cache map[models.ResourceClass]cacheEntry
}

type cacheEntry struct {
	capacity  int
	expiresAt time.Time
}

// GuardOption configures a Guarded estimator.
type GuardOption func(*Guarded)

// WithProbeTimeout bounds each call into the wrapped estimator.
func WithProbeTimeout(d time.Duration) GuardOption {
	return func(g *Guarded) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithCacheTTL sets how long a probed value is reused. Zero disables caching.
func WithCacheTTL(d time.Duration) GuardOption {
	return func(g *Guarded) {
		if d >= 0 {
			g.ttl = d
		}
	}
}

// WithGuardLogger sets the logger used for fallback warnings.
func WithGuardLogger(l zerolog.Logger) GuardOption {
	return func(g *Guarded) {
		g.logger = l
	}
}

// withNow overrides the clock in tests.
func withNow(now func() time.Time) GuardOption {
	return func(g *Guarded) {
		g.now = now
	}
}

// NewGuarded wraps inner.
func NewGuarded(inner Estimator, opts ...GuardOption) *Guarded {
	g := &Guarded{
		inner:   inner,
		timeout: DefaultProbeTimeout,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
		logger:  zerolog.Nop(),
		cache:   make(map[models.ResourceClass]cacheEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type probeResult struct {
	capacity int
	err      error
}

// CapacityFor returns a cached or freshly probed capacity.
func (g *Guarded) CapacityFor(class models.ResourceClass) int {
	now := g.now()

	g.mu.Lock()
	entry, cached := g.cache[class]
	g.mu.Unlock()

	if cached && now.Before(entry.expiresAt) {
		return entry.capacity
	}

	done := make(chan probeResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeResult{err: fmt.Errorf("estimator panic: %v", r)}
			}
		}()
		done <- probeResult{capacity: g.inner.CapacityFor(class)}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	var res probeResult
	select {
	case res = <-done:
	case <-timer.C:
		res.err = fmt.Errorf("estimator probe exceeded %s", g.timeout)
	}

	if res.err != nil {
		fallback := 1
		if cached {
			fallback = entry.capacity
		}
		g.logger.Warn().
			Err(res.err).
			Str("class", string(class)).
			Int("fallback", fallback).
			Msg("capacity probe failed")
		return fallback
	}

	g.mu.Lock()
	g.cache[class] = cacheEntry{capacity: res.capacity, expiresAt: now.Add(g.ttl)}
	g.mu.Unlock()

	return res.capacity
}

// Invalidate drops all cached values.
func (g *Guarded) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[models.ResourceClass]cacheEntry)
}
