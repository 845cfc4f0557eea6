// Package graph provides a dependency graph for task scheduling.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ShayCichocki/surge/pkg/models"
)

var (
	// ErrCycleDetected indicates a circular dependency was found in the task graph.
	ErrCycleDetected = errors.New("circular dependency detected")
	// ErrUnresolvedDependency indicates an edge references a task that does not exist.
	ErrUnresolvedDependency = errors.New("unresolved dependency")
	// ErrDuplicateTask indicates two tasks share an ID.
	ErrDuplicateTask = errors.New("duplicate task id")
	// ErrUnknownTask is returned by accessors given an ID outside the graph.
	ErrUnknownTask = errors.New("unknown task")
)

// CycleError reports the dependency cycle that rejected a graph.
// Path starts and ends with the same task ID.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// UnresolvedDependencyError reports an edge whose endpoint is missing.
type UnresolvedDependencyError struct {
	TaskID    string
	MissingID string
}

func (e *UnresolvedDependencyError) Error() string {
	if e.TaskID == e.MissingID {
		return fmt.Sprintf("%s: edge targets unknown task %s", ErrUnresolvedDependency, e.MissingID)
	}
	return fmt.Sprintf("task %s depends on unknown task %s", e.TaskID, e.MissingID)
}

func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

// DuplicateTaskError reports a task ID that appears more than once.
type DuplicateTaskError struct {
	ID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateTask, e.ID)
}

func (e *DuplicateTaskError) Unwrap() error { return ErrDuplicateTask }

// Edge is a dependency relationship: To depends on From.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// DependencyGraph is a validated directed acyclic graph of tasks.
// Edges point from a dependency to its dependents.
//
// The structure is frozen after Build; only task status changes afterwards,
// so concurrent readers need no coordination beyond the status lock.
type DependencyGraph struct {
	mu sync.RWMutex
	// order lists task IDs in input order.
	order []string
	// index maps task ID to its input position.
	index map[string]int
	// nodes maps task ID to the task itself.
	nodes map[string]*models.TaskNode
	// deps maps task ID to IDs of tasks it depends on.
	deps map[string][]string
	// dependents maps task ID to IDs of tasks that depend on it.
	dependents map[string][]string
}

// Build constructs and validates a dependency graph.
// Dependencies come from each task's DependsOn plus the explicit edges.
// Tasks are copied; the caller's slice is never mutated.
func Build(tasks []models.TaskNode, edges []Edge) (*DependencyGraph, error) {
	g := &DependencyGraph{
		order:      make([]string, 0, len(tasks)),
		index:      make(map[string]int, len(tasks)),
		nodes:      make(map[string]*models.TaskNode, len(tasks)),
		deps:       make(map[string][]string, len(tasks)),
		dependents: make(map[string][]string, len(tasks)),
	}

	// First pass: register all tasks as nodes.
	for i := range tasks {
		task := tasks[i]
		if _, exists := g.nodes[task.ID]; exists {
			return nil, &DuplicateTaskError{ID: task.ID}
		}
		task.DependsOn = nil
		if task.Status == "" {
			task.Status = models.TaskStatusPending
		}
		if task.ResourceClass == "" {
			task.ResourceClass = models.ResourceGeneral
		}
		g.index[task.ID] = i
		g.order = append(g.order, task.ID)
		g.nodes[task.ID] = &task
	}

	// Second pass: collect edges in input order, collapsing duplicates.
	all := make([]Edge, 0, len(edges))
	for _, task := range tasks {
		for _, depID := range task.DependsOn {
			all = append(all, Edge{From: depID, To: task.ID})
		}
	}
	all = append(all, edges...)

	seen := make(map[Edge]bool, len(all))
	var dangling []Edge
	for _, e := range all {
		if seen[e] {
			continue
		}
		seen[e] = true
		_, fromOK := g.nodes[e.From]
		_, toOK := g.nodes[e.To]
		if !fromOK || !toOK {
			dangling = append(dangling, e)
			continue
		}
		g.deps[e.To] = append(g.deps[e.To], e.From)
		g.dependents[e.From] = append(g.dependents[e.From], e.To)
	}

	if path := g.findCycle(); path != nil {
		return nil, &CycleError{Path: path}
	}

	for _, e := range dangling {
		missing := e.From
		if _, ok := g.nodes[e.From]; ok {
			missing = e.To
		}
		return nil, &UnresolvedDependencyError{TaskID: e.To, MissingID: missing}
	}

	for id, node := range g.nodes {
		node.DependsOn = append([]string(nil), g.deps[id]...)
	}

	return g, nil
}

// findCycle runs an iterative depth-first search with three-color marking.
// It returns the first cycle found as a closed path, or nil.
func (g *DependencyGraph) findCycle() []string {
	const (
		white = iota // unvisited
		gray         // in progress
		black        // done
	)

	type frame struct {
		id   string
		next int
	}

	colors := make(map[string]int, len(g.nodes))

	for _, root := range g.order {
		if colors[root] != white {
			continue
		}

		stack := []frame{{id: root}}
		colors[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.dependents[top.id]

			if top.next >= len(children) {
				colors[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}

			child := children[top.next]
			top.next++

			switch colors[child] {
			case gray:
				// Back edge: the cycle is the stack suffix starting at child.
				var path []string
				for i := range stack {
					if stack[i].id == child {
						for _, f := range stack[i:] {
							path = append(path, f.id)
						}
						break
					}
				}
				return append(path, child)
			case white:
				colors[child] = gray
				stack = append(stack, frame{id: child})
			}
			// black means already processed, skip.
		}
	}

	return nil
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.order)
}

// IDs returns task IDs in input order.
func (g *DependencyGraph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Order returns the input position of a task, or -1 if unknown.
func (g *DependencyGraph) Order(taskID string) int {
	if i, ok := g.index[taskID]; ok {
		return i
	}
	return -1
}

// Task returns a copy of the task for a given ID.
func (g *DependencyGraph) Task(taskID string) (models.TaskNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[taskID]
	if !ok {
		return models.TaskNode{}, false
	}
	cp := *node
	cp.DependsOn = append([]string(nil), node.DependsOn...)
	return cp, true
}

// Tasks returns copies of every task in input order.
func (g *DependencyGraph) Tasks() []models.TaskNode {
	out := make([]models.TaskNode, 0, len(g.order))
	for _, id := range g.order {
		t, _ := g.Task(id)
		out = append(out, t)
	}
	return out
}

// Dependencies returns the IDs of tasks that the given task depends on.
func (g *DependencyGraph) Dependencies(taskID string) []string {
	return append([]string(nil), g.deps[taskID]...)
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	return append([]string(nil), g.dependents[taskID]...)
}

// Status returns the current status of a task.
func (g *DependencyGraph) Status(taskID string) models.TaskStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if node, ok := g.nodes[taskID]; ok {
		return node.Status
	}
	return ""
}

// SetStatus records a task status change during execution.
func (g *DependencyGraph) SetStatus(taskID string, status models.TaskStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	node.Status = status
	return nil
}

// SetSkipped marks a task skipped with a reason.
func (g *DependencyGraph) SetSkipped(taskID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[taskID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	node.Status = models.TaskStatusSkipped
	node.SkipReason = reason
	return nil
}

// Fingerprint returns a stable hash of the task set and its edges.
// Status is excluded so the value is the same before and after a run.
func (g *DependencyGraph) Fingerprint() string {
	h := sha256.New()
	for _, id := range g.order {
		node := g.nodes[id]
		deps := append([]string(nil), g.deps[id]...)
		sort.Strings(deps)
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\n",
			id,
			node.Description,
			strings.Join(deps, ","),
			strconv.FormatFloat(node.EstimatedDuration.Seconds, 'g', -1, 64),
			node.ResourceClass,
		)
	}
	return hex.EncodeToString(h.Sum(nil))
}
