package taskfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/pkg/models"
)

const diamondYAML = `
concurrency_override: 3
tasks:
  - id: A
    description: fetch
    estimated_duration_seconds: 30
    confidence: high
    resource_class: network
  - id: B
    description: parse
    depends_on: [A]
    resource_class: cpu
  - id: C
    description: lint
    depends_on: [A]
  - id: D
    description: report
edges:
  - {from: B, to: D}
  - {from: C, to: D}
`

func TestParseYAML(t *testing.T) {
	sub, err := Parse([]byte(diamondYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if sub.Override == nil || *sub.Override != 3 {
		t.Errorf("expected override 3, got %v", sub.Override)
	}
	if len(sub.Tasks) != 4 || len(sub.Edges) != 2 {
		t.Fatalf("expected 4 tasks and 2 edges, got %d and %d", len(sub.Tasks), len(sub.Edges))
	}

	a := sub.Tasks[0]
	if a.ResourceClass != models.ResourceNetwork || a.EstimatedDuration.Seconds != 30 || a.EstimatedDuration.Confidence != models.ConfidenceHigh {
		t.Errorf("unexpected task A: %+v", a)
	}
	if c := sub.Tasks[2]; c.ResourceClass != models.ResourceGeneral {
		t.Errorf("expected default general class, got %s", c.ResourceClass)
	}
	if sub.Edges[0] != (graph.Edge{From: "B", To: "D"}) {
		t.Errorf("unexpected edge: %+v", sub.Edges[0])
	}

	g, err := graph.Build(sub.Tasks, sub.Edges)
	if err != nil {
		t.Fatalf("graph.Build: %v", err)
	}
	if deps := g.Dependencies("D"); len(deps) != 2 {
		t.Errorf("expected D to have 2 dependencies, got %v", deps)
	}
}

func TestParseJSON(t *testing.T) {
	data := `{"tasks": [{"id": "x", "description": "run x", "estimated_duration_seconds": 1.5}]}`
	sub, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sub.Override != nil {
		t.Errorf("expected no override, got %d", *sub.Override)
	}
	if len(sub.Tasks) != 1 || sub.Tasks[0].EstimatedDuration.Seconds != 1.5 {
		t.Errorf("unexpected tasks: %+v", sub.Tasks)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{
			name:  "missing id",
			data:  "tasks:\n  - description: x\n",
			field: "tasks[0].id",
		},
		{
			name:  "bad class",
			data:  "tasks:\n  - id: a\n    description: x\n    resource_class: gpu\n",
			field: "tasks[0].resource_class",
		},
		{
			name:  "negative estimate",
			data:  "tasks:\n  - id: a\n    description: x\n    estimated_duration_seconds: -1\n",
			field: "tasks[0].estimated_duration_seconds",
		},
		{
			name:  "bad confidence",
			data:  "tasks:\n  - id: a\n    description: x\n    confidence: maybe\n",
			field: "tasks[0].confidence",
		},
		{
			name:  "empty edge",
			data:  "tasks:\n  - id: a\n    description: x\nedges:\n  - {from: a}\n",
			field: "edges[0].to",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %s, got %v", tt.field, verr)
			}
		})
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("tasks:\n  - id: a\n    description: x\n    priority: 1\n"))
	if err == nil || !strings.Contains(err.Error(), "priority") {
		t.Errorf("expected unknown field error, got %v", err)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, data := range []string{"", "tasks: []\n", "{\"tasks\": []}"} {
		sub, err := Parse([]byte(data))
		if err != nil {
			t.Errorf("Parse(%q): %v", data, err)
			continue
		}
		if len(sub.Tasks) != 0 || len(sub.Edges) != 0 || sub.Override != nil {
			t.Errorf("Parse(%q): expected empty submission, got %+v", data, sub)
		}
	}
}

func TestParseEdgesWithoutTasks(t *testing.T) {
	sub, err := Parse([]byte("edges:\n  - {from: a, to: b}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := graph.Build(sub.Tasks, sub.Edges); !errors.Is(err, graph.ErrUnresolvedDependency) {
		t.Errorf("expected ErrUnresolvedDependency, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(path, []byte(diamondYAML), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sub, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sub.Tasks) != 4 {
		t.Errorf("expected 4 tasks, got %d", len(sub.Tasks))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
