package models

import "fmt"

// ResourceClass is the coarse category a task's load falls into.
// The scaling calculator looks up a concurrency cap per class.
type ResourceClass string

const (
	// ResourceCPU is compute-bound work capped by core count.
	ResourceCPU ResourceClass = "cpu"
	// ResourceFileIO is disk-bound work capped by sustainable IOPS.
	ResourceFileIO ResourceClass = "file-io"
	// ResourceNetwork is connection-bound work capped by open connections.
	ResourceNetwork ResourceClass = "network"
	// ResourceRateLimited is work against an external quota.
	ResourceRateLimited ResourceClass = "rate-limited"
	// ResourceGeneral has no class-specific cap.
	ResourceGeneral ResourceClass = "general"
)

// Valid returns true if the class is a known value.
func (c ResourceClass) Valid() bool {
	switch c {
	case ResourceCPU, ResourceFileIO, ResourceNetwork, ResourceRateLimited, ResourceGeneral:
		return true
	default:
		return false
	}
}

// AllResourceClasses returns every resource class in a stable order.
func AllResourceClasses() []ResourceClass {
	return []ResourceClass{ResourceCPU, ResourceFileIO, ResourceNetwork, ResourceRateLimited, ResourceGeneral}
}

// ParseResourceClass converts a string into a ResourceClass.
// An empty string maps to ResourceGeneral.
func ParseResourceClass(s string) (ResourceClass, error) {
	if s == "" {
		return ResourceGeneral, nil
	}
	c := ResourceClass(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown resource class %q", s)
	}
	return c, nil
}
