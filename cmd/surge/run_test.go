package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/internal/state"
	"github.com/ShayCichocki/surge/pkg/models"
)

// testProject isolates config lookup and runs the test from an empty
// project directory containing the given task file.
func testProject(t *testing.T, taskfile string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("SURGE_LOG_LEVEL", "error")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Chdir(dir)

	path := filepath.Join(dir, "tasks.yaml")
	if err := os.WriteFile(path, []byte(taskfile), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const diamondTasks = `
tasks:
  - id: a
    description: echo a
    estimated_duration_seconds: 1
  - id: b
    description: echo b
    depends_on: [a]
    estimated_duration_seconds: 1
  - id: c
    description: echo c
    depends_on: [a]
    estimated_duration_seconds: 1
  - id: d
    description: echo d
    depends_on: [b, c]
    estimated_duration_seconds: 1
`

func decodeReport(t *testing.T, data []byte) models.FinalReport {
	t.Helper()
	var r models.FinalReport
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("decode report: %v\n%s", err, data)
	}
	return r
}

func TestRunTaskFileDryRun(t *testing.T) {
	path := testProject(t, diamondTasks)

	var stdout, stderr bytes.Buffer
	err := runTaskFile(context.Background(), path, runFlags{dryRun: true, jsonOutput: true, quiet: true}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("runTaskFile: %v", err)
	}

	r := decodeReport(t, stdout.Bytes())
	if r.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", r.Status, r.Reason)
	}
	if len(r.Waves) != 3 || r.FailureSummary.Succeeded != 4 {
		t.Errorf("expected 3 waves and 4 successes, got %d waves %+v", len(r.Waves), r.FailureSummary)
	}
	if r.RunID == "" {
		t.Error("expected a generated run id")
	}
	if _, err := os.Stat(state.ProjectDBPath(".")); !os.IsNotExist(err) {
		t.Errorf("dry run must not create a database, stat err %v", err)
	}
}

func TestRunTaskFileShellResume(t *testing.T) {
	path := testProject(t, diamondTasks)
	db := filepath.Join(t.TempDir(), "state.db")

	var stdout, stderr bytes.Buffer
	opts := runFlags{runID: "r1", db: db, executor: "shell", jsonOutput: true, quiet: true}
	if err := runTaskFile(context.Background(), path, opts, &stdout, &stderr); err != nil {
		t.Fatalf("first run: %v\n%s", err, stderr.String())
	}
	first := decodeReport(t, stdout.Bytes())
	if first.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", first.Status, first.Reason)
	}
	for _, w := range first.Waves {
		for _, res := range w.Results {
			if res.Result != res.TaskID {
				t.Errorf("task %s: expected echoed id, got %q", res.TaskID, res.Result)
			}
		}
	}

	stdout.Reset()
	opts.resume = true
	if err := runTaskFile(context.Background(), path, opts, &stdout, &stderr); err != nil {
		t.Fatalf("resume: %v", err)
	}
	second := decodeReport(t, stdout.Bytes())
	for _, w := range second.Waves {
		if w.Decision != nil {
			t.Errorf("wave %d: restored wave should not be re-decided", w.Index)
		}
		for _, res := range w.Results {
			if !res.Restored {
				t.Errorf("task %s: expected restored result", res.TaskID)
			}
		}
	}
}

func TestRunTaskFileAborts(t *testing.T) {
	path := testProject(t, `
tasks:
  - id: ok
    description: "true"
  - id: bad
    description: exit 3
  - id: after
    description: "true"
    depends_on: [ok, bad]
`)

	var stdout, stderr bytes.Buffer
	opts := runFlags{runID: "r-abort", db: filepath.Join(t.TempDir(), "state.db"), executor: "shell", quiet: true}
	err := runTaskFile(context.Background(), path, opts, &stdout, &stderr)
	if !errors.Is(err, errRunAborted) {
		t.Fatalf("expected errRunAborted, got %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"aborted", "bad", "--resume --run-id r-abort"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestRunTaskFileErrors(t *testing.T) {
	path := testProject(t, diamondTasks)
	db := filepath.Join(t.TempDir(), "state.db")

	tests := []struct {
		name string
		path string
		opts runFlags
		want string
	}{
		{"resume needs id", path, runFlags{resume: true}, "--resume requires --run-id"},
		{"unknown executor", path, runFlags{executor: "carrier-pigeon", db: db}, "unknown executor"},
		{"resume unknown run", path, runFlags{resume: true, runID: "nope", db: db}, "not found"},
		{"missing task file", filepath.Join(filepath.Dir(path), "missing.yaml"), runFlags{dryRun: true}, "missing.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := runTaskFile(context.Background(), tt.path, tt.opts, &stdout, &stderr)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunTaskFileRejectsCycle(t *testing.T) {
	path := testProject(t, `
tasks:
  - id: a
    description: echo a
    depends_on: [b]
  - id: b
    description: echo b
    depends_on: [a]
`)
	var stdout, stderr bytes.Buffer
	err := runTaskFile(context.Background(), path, runFlags{dryRun: true}, &stdout, &stderr)
	if !errors.Is(err, graph.ErrCycleDetected) {
		t.Errorf("expected cycle error, got %v", err)
	}
}

func TestRunTaskFileEmpty(t *testing.T) {
	path := testProject(t, "tasks: []\n")

	var stdout, stderr bytes.Buffer
	err := runTaskFile(context.Background(), path, runFlags{dryRun: true, jsonOutput: true, quiet: true}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("runTaskFile: %v", err)
	}
	r := decodeReport(t, stdout.Bytes())
	if r.Status != models.RunStatusCompleted || len(r.Waves) != 0 {
		t.Errorf("expected completed run with no waves, got %s with %d waves", r.Status, len(r.Waves))
	}
}
