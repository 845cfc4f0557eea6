package resource

import (
	"runtime"

	"github.com/ShayCichocki/surge/pkg/models"
)

// StaticConfig describes machine capacity in the units each class is limited by.
// Zero values fall back to defaults; negative values mean no cap.
type StaticConfig struct {
	// CPU is the concurrent cpu-bound task limit. Defaults to runtime.NumCPU().
	CPU int `mapstructure:"cpu"`

	// DiskIOPS is the sustained IOPS the storage can serve.
	DiskIOPS int `mapstructure:"disk_iops"`
	// PerTaskIOPS is the IOPS one file-io task is expected to consume.
	PerTaskIOPS int `mapstructure:"per_task_iops"`

	// MaxConnections caps concurrent network tasks.
	MaxConnections int `mapstructure:"max_connections"`

	// RequestsPerSecond is the upstream rate limit for rate-limited tasks.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// RateWindowSeconds is how long one rate-limited task holds its request budget.
	RateWindowSeconds float64 `mapstructure:"rate_window_seconds"`

	// General caps general tasks. Zero means no cap.
	General int `mapstructure:"general"`
}

// DefaultStaticConfig returns conservative defaults for a single machine.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		CPU:               runtime.NumCPU(),
		DiskIOPS:          3000,
		PerTaskIOPS:       50,
		MaxConnections:    256,
		RequestsPerSecond: 50,
		RateWindowSeconds: 1,
	}
}

// Static derives capacities once from configuration.
type Static struct {
	caps map[models.ResourceClass]int
}

// NewStatic builds a Static estimator from cfg.
func NewStatic(cfg StaticConfig) *Static {
	d := DefaultStaticConfig()
	caps := make(map[models.ResourceClass]int, len(models.AllResourceClasses()))

	switch {
	case cfg.CPU < 0:
		caps[models.ResourceCPU] = NoCap
	case cfg.CPU == 0:
		caps[models.ResourceCPU] = d.CPU
	default:
		caps[models.ResourceCPU] = cfg.CPU
	}

	iops, perTask := cfg.DiskIOPS, cfg.PerTaskIOPS
	if iops == 0 {
		iops = d.DiskIOPS
	}
	if perTask <= 0 {
		perTask = d.PerTaskIOPS
	}
	if iops < 0 {
		caps[models.ResourceFileIO] = NoCap
	} else {
		caps[models.ResourceFileIO] = atLeastOne(iops / perTask)
	}

	switch {
	case cfg.MaxConnections < 0:
		caps[models.ResourceNetwork] = NoCap
	case cfg.MaxConnections == 0:
		caps[models.ResourceNetwork] = d.MaxConnections
	default:
		caps[models.ResourceNetwork] = cfg.MaxConnections
	}

	rps, window := cfg.RequestsPerSecond, cfg.RateWindowSeconds
	if rps == 0 {
		rps = d.RequestsPerSecond
	}
	if window <= 0 {
		window = d.RateWindowSeconds
	}
	if rps < 0 {
		caps[models.ResourceRateLimited] = NoCap
	} else {
		caps[models.ResourceRateLimited] = atLeastOne(int(rps * window))
	}

	if cfg.General > 0 {
		caps[models.ResourceGeneral] = cfg.General
	} else {
		caps[models.ResourceGeneral] = NoCap
	}

	return &Static{caps: caps}
}

// CapacityFor returns the configured capacity. Unknown classes have no cap.
func (s *Static) CapacityFor(class models.ResourceClass) int {
	if c, ok := s.caps[class]; ok {
		return c
	}
	return NoCap
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
