// Package taskfile loads task submissions from YAML or JSON files.
//
//	concurrency_override: 8
//	tasks:
//	  - id: fetch
//	    description: download the corpus
//	    estimated_duration_seconds: 30
//	    resource_class: network
//	  - id: index
//	    description: build the index
//	    depends_on: [fetch]
//	edges:
//	  - {from: fetch, to: report}
package taskfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/pkg/models"
)

// File is the on-disk task submission.
type File struct {
	ConcurrencyOverride *int   `yaml:"concurrency_override,omitempty" json:"concurrency_override,omitempty"`
	Tasks               []Task `yaml:"tasks" json:"tasks" validate:"dive"`
	Edges               []Edge `yaml:"edges,omitempty" json:"edges,omitempty" validate:"dive"`
}

// Edge declares that To depends on From.
type Edge struct {
	From string `yaml:"from" json:"from" validate:"required"`
	To   string `yaml:"to" json:"to" validate:"required"`
}

// Task is one submitted task.
type Task struct {
	ID                       string   `yaml:"id" json:"id" validate:"required"`
	Description              string   `yaml:"description" json:"description" validate:"required"`
	DependsOn                []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty" validate:"dive,required"`
	EstimatedDurationSeconds float64  `yaml:"estimated_duration_seconds,omitempty" json:"estimated_duration_seconds,omitempty" validate:"gte=0"`
	Confidence               string   `yaml:"confidence,omitempty" json:"confidence,omitempty" validate:"omitempty,oneof=low medium high"`
	ResourceClass            string   `yaml:"resource_class,omitempty" json:"resource_class,omitempty" validate:"omitempty,oneof=cpu file-io network rate-limited general"`
}

// Submission is a parsed task file ready for graph.Build.
type Submission struct {
	Tasks    []models.TaskNode
	Edges    []graph.Edge
	Override *int
}

// FieldError describes one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every invalid field in a task file.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "invalid task file: " + strings.Join(msgs, "; ")
}

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use yaml tag names for field names in error messages
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Load reads and parses a task file.
func Load(path string) (*Submission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	sub, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sub, nil
}

// Parse decodes YAML or JSON task data. Unknown keys are rejected.
// Empty input is an empty submission, which runs as zero waves.
func Parse(data []byte) (*Submission, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode task file: %w", err)
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f.Submission(), nil
}

// Validate checks field constraints.
func (f *File) Validate() error {
	err := getValidator().Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate task file: %w", err)
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, e := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   strings.TrimPrefix(e.Namespace(), "File."),
			Message: formatValidationError(e),
		})
	}
	return out
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// Submission converts the file into graph inputs.
func (f *File) Submission() *Submission {
	sub := &Submission{
		Tasks:    make([]models.TaskNode, 0, len(f.Tasks)),
		Edges:    make([]graph.Edge, 0, len(f.Edges)),
		Override: f.ConcurrencyOverride,
	}
	for _, e := range f.Edges {
		sub.Edges = append(sub.Edges, graph.Edge{From: e.From, To: e.To})
	}
	for _, t := range f.Tasks {
		class, _ := models.ParseResourceClass(t.ResourceClass)
		sub.Tasks = append(sub.Tasks, models.TaskNode{
			ID:          t.ID,
			Description: t.Description,
			DependsOn:   append([]string(nil), t.DependsOn...),
			EstimatedDuration: models.Estimate{
				Seconds:    t.EstimatedDurationSeconds,
				Confidence: models.Confidence(t.Confidence),
			},
			ResourceClass: class,
			Status:        models.TaskStatusPending,
		})
	}
	return sub
}
