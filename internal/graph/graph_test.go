package graph

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/ShayCichocki/surge/pkg/models"
)

func task(id string, deps ...string) models.TaskNode {
	return models.TaskNode{ID: id, Description: "Task " + id, DependsOn: deps}
}

func TestBuildEmpty(t *testing.T) {
	g, err := Build(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Size() != 0 {
		t.Errorf("expected empty graph, got size %d", g.Size())
	}
}

func TestBuildWithDependencies(t *testing.T) {
	tasks := []models.TaskNode{
		task("task-1"),
		task("task-2", "task-1"),
		task("task-3", "task-1", "task-2"),
	}

	g, err := Build(tasks, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected size 3, got %d", g.Size())
	}
	if deps := g.Dependencies("task-3"); len(deps) != 2 {
		t.Errorf("expected 2 dependencies for task-3, got %d", len(deps))
	}
	if dependents := g.Dependents("task-1"); len(dependents) != 2 {
		t.Errorf("expected 2 dependents of task-1, got %d", len(dependents))
	}
}

func TestBuildDefaults(t *testing.T) {
	g, err := Build([]models.TaskNode{{ID: "a"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, ok := g.Task("a")
	if !ok {
		t.Fatal("expected task a")
	}
	if a.Status != models.TaskStatusPending {
		t.Errorf("expected pending status, got %s", a.Status)
	}
	if a.ResourceClass != models.ResourceGeneral {
		t.Errorf("expected general class, got %s", a.ResourceClass)
	}
}

func TestBuildMergesExplicitEdges(t *testing.T) {
	tasks := []models.TaskNode{task("a"), task("b", "a"), task("c")}
	edges := []Edge{
		{From: "a", To: "b"}, // duplicate of DependsOn
		{From: "b", To: "c"},
	}

	g, err := Build(tasks, edges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := g.Dependencies("b"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("expected b to depend on [a], got %v", got)
	}
	c, _ := g.Task("c")
	if !reflect.DeepEqual(c.DependsOn, []string{"b"}) {
		t.Errorf("expected c.DependsOn [b], got %v", c.DependsOn)
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	tasks := []models.TaskNode{task("a"), task("b")}
	if _, err := Build(tasks, []Edge{{From: "a", To: "b"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks[1].DependsOn) != 0 {
		t.Errorf("input task mutated: %v", tasks[1].DependsOn)
	}
	if tasks[0].Status != "" {
		t.Errorf("input status mutated: %q", tasks[0].Status)
	}
}

func TestBuildDuplicateTask(t *testing.T) {
	_, err := Build([]models.TaskNode{task("a"), task("a")}, nil)
	if !errors.Is(err, ErrDuplicateTask) {
		t.Fatalf("expected ErrDuplicateTask, got %v", err)
	}
	var dup *DuplicateTaskError
	if !errors.As(err, &dup) || dup.ID != "a" {
		t.Errorf("expected DuplicateTaskError for a, got %v", err)
	}
}

func TestBuildUnresolvedDependency(t *testing.T) {
	tests := []struct {
		name    string
		tasks   []models.TaskNode
		edges   []Edge
		taskID  string
		missing string
	}{
		{
			name:    "depends_on",
			tasks:   []models.TaskNode{task("task-1", "unknown-task")},
			taskID:  "task-1",
			missing: "unknown-task",
		},
		{
			name:    "edge source",
			tasks:   []models.TaskNode{task("b")},
			edges:   []Edge{{From: "ghost", To: "b"}},
			taskID:  "b",
			missing: "ghost",
		},
		{
			name:    "edge target",
			tasks:   []models.TaskNode{task("a")},
			edges:   []Edge{{From: "a", To: "ghost"}},
			taskID:  "ghost",
			missing: "ghost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.tasks, tt.edges)
			if !errors.Is(err, ErrUnresolvedDependency) {
				t.Fatalf("expected ErrUnresolvedDependency, got %v", err)
			}
			var ue *UnresolvedDependencyError
			if !errors.As(err, &ue) {
				t.Fatalf("expected UnresolvedDependencyError, got %T", err)
			}
			if ue.TaskID != tt.taskID || ue.MissingID != tt.missing {
				t.Errorf("got task=%s missing=%s, want task=%s missing=%s",
					ue.TaskID, ue.MissingID, tt.taskID, tt.missing)
			}
		})
	}
}

func TestBuildCycleDetection(t *testing.T) {
	tests := []struct {
		name  string
		tasks []models.TaskNode
		edges []Edge
		path  []string
	}{
		{
			name:  "self loop",
			tasks: []models.TaskNode{task("a", "a")},
			path:  []string{"a", "a"},
		},
		{
			name:  "direct",
			tasks: []models.TaskNode{task("A", "B"), task("B", "A")},
			path:  []string{"A", "B", "A"},
		},
		{
			name:  "three node",
			tasks: []models.TaskNode{task("A"), task("B"), task("C")},
			edges: []Edge{{From: "A", To: "B"}, {From: "B", To: "C"}, {From: "C", To: "A"}},
			path:  []string{"A", "B", "C", "A"},
		},
		{
			name: "cycle behind acyclic prefix",
			tasks: []models.TaskNode{
				task("root"),
				task("x", "root", "z"),
				task("y", "x"),
				task("z", "y"),
			},
			path: []string{"x", "y", "z", "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.tasks, tt.edges)
			if !errors.Is(err, ErrCycleDetected) {
				t.Fatalf("expected ErrCycleDetected, got %v", err)
			}
			var ce *CycleError
			if !errors.As(err, &ce) {
				t.Fatalf("expected CycleError, got %T", err)
			}
			if !reflect.DeepEqual(ce.Path, tt.path) {
				t.Errorf("expected path %v, got %v", tt.path, ce.Path)
			}
		})
	}
}

func TestBuildCycleReportedBeforeDangling(t *testing.T) {
	tasks := []models.TaskNode{task("a", "b", "missing"), task("b", "a")}
	_, err := Build(tasks, nil)
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected cycle to win over dangling edge, got %v", err)
	}
}

func TestTasksInputOrder(t *testing.T) {
	tasks := []models.TaskNode{task("c"), task("a"), task("b", "c")}
	g, err := Build(tasks, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ids []string
	for _, n := range g.Tasks() {
		ids = append(ids, n.ID)
	}
	if !reflect.DeepEqual(ids, []string{"c", "a", "b"}) {
		t.Errorf("expected input order, got %v", ids)
	}
	if g.Order("b") != 2 || g.Order("nope") != -1 {
		t.Errorf("unexpected order values: b=%d nope=%d", g.Order("b"), g.Order("nope"))
	}
}

func TestSetStatus(t *testing.T) {
	g, err := Build([]models.TaskNode{task("a")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := g.SetStatus("a", models.TaskStatusRunning); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if g.Status("a") != models.TaskStatusRunning {
		t.Errorf("expected running, got %s", g.Status("a"))
	}
	if err := g.SetStatus("nope", models.TaskStatusRunning); !errors.Is(err, ErrUnknownTask) {
		t.Errorf("expected ErrUnknownTask, got %v", err)
	}

	if err := g.SetSkipped("a", "dependency_failed:x"); err != nil {
		t.Fatalf("SetSkipped: %v", err)
	}
	a, _ := g.Task("a")
	if a.Status != models.TaskStatusSkipped || a.SkipReason != "dependency_failed:x" {
		t.Errorf("unexpected skipped state: %+v", a)
	}
}

func TestConcurrentStatusUpdates(t *testing.T) {
	var tasks []models.TaskNode
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		tasks = append(tasks, task(id))
	}
	g, err := Build(tasks, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for _, n := range tasks {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = g.SetStatus(id, models.TaskStatusSucceeded)
			_, _ = g.Task(id)
		}(n.ID)
	}
	wg.Wait()

	for _, n := range g.Tasks() {
		if n.Status != models.TaskStatusSucceeded {
			t.Errorf("task %s: expected succeeded, got %s", n.ID, n.Status)
		}
	}
}

func TestFingerprint(t *testing.T) {
	build := func(t *testing.T, tasks []models.TaskNode) *DependencyGraph {
		t.Helper()
		g, err := Build(tasks, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return g
	}

	base := build(t, []models.TaskNode{task("a"), task("b", "a")})
	same := build(t, []models.TaskNode{task("a"), task("b", "a")})
	changed := build(t, []models.TaskNode{task("a"), task("b")})

	if base.Fingerprint() != same.Fingerprint() {
		t.Error("expected identical task sets to share a fingerprint")
	}
	if base.Fingerprint() == changed.Fingerprint() {
		t.Error("expected dependency change to alter fingerprint")
	}

	before := base.Fingerprint()
	_ = base.SetStatus("a", models.TaskStatusSucceeded)
	if base.Fingerprint() != before {
		t.Error("expected status changes to leave fingerprint unchanged")
	}
}
