// Package orchestrator executes a dependency graph of tasks in waves.
//
// The orchestrator package provides:
//   - Wave layering: grouping tasks so every dependency runs in an earlier wave
//   - Scaling: choosing each wave's concurrency from an ROI model bounded by
//     resource-class capacity
//   - Coordination: dispatching each wave through a bounded worker pool with
//     per-attempt timeouts, bounded retries, checkpointing and failure bands
//
// Example usage:
//
//	g, err := graph.Build(tasks, edges)
//	run := orchestrator.NewExecutionRun(uuid.NewString(), g, nil)
//	coord := orchestrator.NewCoordinator(orchestrator.RequiredConfig{
//		Executor: exec,
//		Store:    store,
//	}, orchestrator.WithEstimator(est))
//	report, err := coord.Run(ctx, run)
package orchestrator
