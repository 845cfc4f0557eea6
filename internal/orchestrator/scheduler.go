package orchestrator

import (
	"sort"

	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/pkg/models"
)

// Layer partitions a validated graph into waves using Kahn's algorithm.
// Wave k holds every task whose dependencies all sit in waves before k.
// Tasks keep input order within a wave. An empty graph yields no waves.
func Layer(g *graph.DependencyGraph) []models.Wave {
	ids := g.IDs()
	if len(ids) == 0 {
		return nil
	}

	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		inDegree[id] = len(g.Dependencies(id))
	}

	var current []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			current = append(current, id)
		}
	}

	var waves []models.Wave
	placed := 0
	for len(current) > 0 {
		waves = append(waves, models.Wave{Index: len(waves), TaskIDs: current})
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, dep := range g.Dependents(id) {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}

		// Restore input order within the next wave.
		sort.Slice(next, func(i, j int) bool {
			return g.Order(next[i]) < g.Order(next[j])
		})
		current = next
	}

	// Build guarantees acyclicity, so every task is placed.
	if placed != len(ids) {
		panic("orchestrator: graph contains a cycle")
	}
	return waves
}

// MaxParallelDepth returns the number of waves, which equals the longest
// dependency chain in the graph.
func MaxParallelDepth(waves []models.Wave) int {
	return len(waves)
}

// WaveIndex maps each task ID to the index of its wave.
func WaveIndex(waves []models.Wave) map[string]int {
	idx := make(map[string]int)
	for _, w := range waves {
		for _, id := range w.TaskIDs {
			idx[id] = w.Index
		}
	}
	return idx
}
