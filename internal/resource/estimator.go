// Package resource reports per-class concurrency capacity for the scaling calculator.
package resource

import "github.com/ShayCichocki/surge/pkg/models"

// NoCap means the class has no class-specific concurrency cap.
const NoCap = -1

// Estimator reports the safe concurrency for a resource class.
// Results are advisory. Implementations return a positive integer or NoCap;
// callers treat any other non-positive value as a capacity of 1.
type Estimator interface {
	CapacityFor(class models.ResourceClass) int
}

// Func adapts a plain function to the Estimator interface.
type Func func(class models.ResourceClass) int

// CapacityFor calls f.
func (f Func) CapacityFor(class models.ResourceClass) int {
	return f(class)
}

// Unbounded returns NoCap for every class.
func Unbounded() Estimator {
	return Func(func(models.ResourceClass) int { return NoCap })
}

// compile-time interface checks
var (
	_ Estimator = Func(nil)
	_ Estimator = (*Static)(nil)
	_ Estimator = (*Guarded)(nil)
)
