package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ShayCichocki/surge/pkg/models"
)

func TestAttemptFromContext(t *testing.T) {
	if got := AttemptFrom(context.Background()); got != 1 {
		t.Errorf("expected default attempt 1, got %d", got)
	}
	if got := AttemptFrom(WithAttempt(context.Background(), 3)); got != 3 {
		t.Errorf("expected attempt 3, got %d", got)
	}
}

func TestFuncExecutor(t *testing.T) {
	exec := Func(func(_ context.Context, task models.TaskNode) (*Result, error) {
		return &Result{Output: task.ID}, nil
	})
	res, err := exec.Execute(context.Background(), models.TaskNode{ID: "x"})
	if err != nil || res.Output != "x" {
		t.Errorf("unexpected result %v %v", res, err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456789...[truncated]" {
		t.Errorf("truncate long = %q", got)
	}
}

func TestShellExecutesWithTaskEnv(t *testing.T) {
	sh := NewShell(ShellConfig{
		Command: `echo "$SURGE_TASK_ID|$SURGE_TASK_CLASS|$SURGE_TASK_ATTEMPT|$SURGE_TASK_DESCRIPTION"`,
	})
	task := models.TaskNode{ID: "build", Description: "compile it", ResourceClass: models.ResourceCPU}

	res, err := sh.Execute(WithAttempt(context.Background(), 2), task)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "build|cpu|2|compile it" {
		t.Errorf("unexpected output %q", res.Output)
	}
}

func TestShellRunsDescriptionWithoutCommand(t *testing.T) {
	sh := NewShell(ShellConfig{WorkDir: t.TempDir()})
	res, err := sh.Execute(context.Background(), models.TaskNode{ID: "t", Description: "printf hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "hello" {
		t.Errorf("expected hello, got %q", res.Output)
	}
}

func TestShellFailure(t *testing.T) {
	sh := NewShell(ShellConfig{Command: "echo nope >&2; exit 3"})
	_, err := sh.Execute(context.Background(), models.TaskNode{ID: "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "exit status 3") || !strings.Contains(err.Error(), "nope") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestShellHonorsContext(t *testing.T) {
	sh := NewShell(ShellConfig{Command: "sleep 5"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sh.Execute(ctx, models.TaskNode{ID: "slow"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestShellEmptyCommand(t *testing.T) {
	if _, err := NewShell(ShellConfig{}).Execute(context.Background(), models.TaskNode{ID: "t"}); err == nil {
		t.Error("expected error for empty command")
	}
}

func TestSimulated(t *testing.T) {
	sim := NewSimulated(SimulatedConfig{
		FailIDs:  []string{"bad"},
		FlakyIDs: map[string]int{"flaky": 1},
	})
	ctx := context.Background()

	if _, err := sim.Execute(ctx, models.TaskNode{ID: "good"}); err != nil {
		t.Errorf("good: unexpected error %v", err)
	}
	if _, err := sim.Execute(ctx, models.TaskNode{ID: "bad"}); err == nil {
		t.Error("bad: expected failure")
	}
	if _, err := sim.Execute(ctx, models.TaskNode{ID: "flaky"}); err == nil {
		t.Error("flaky: expected first attempt to fail")
	}
	if _, err := sim.Execute(ctx, models.TaskNode{ID: "flaky"}); err != nil {
		t.Errorf("flaky: expected second attempt to succeed, got %v", err)
	}
	if sim.Calls() != 4 || sim.CallsFor("flaky") != 2 {
		t.Errorf("unexpected call counts: total=%d flaky=%d", sim.Calls(), sim.CallsFor("flaky"))
	}
}

func TestSimulatedSeededFailuresReproducible(t *testing.T) {
	run := func() []bool {
		sim := NewSimulated(SimulatedConfig{FailureRate: 0.5, Seed: 42})
		var out []bool
		for i := 0; i < 20; i++ {
			_, err := sim.Execute(context.Background(), models.TaskNode{ID: "t"})
			out = append(out, err != nil)
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("failure sequence differs at %d", i)
		}
	}
}

func TestSimulatedSleepsAndCancels(t *testing.T) {
	sim := NewSimulated(SimulatedConfig{TimeScale: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sim.Execute(ctx, models.TaskNode{ID: "t", EstimatedDuration: models.Estimate{Seconds: 10}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

type fakeMessages struct {
	got  anthropic.MessageNewParams
	resp *anthropic.Message
	err  error
}

func (f *fakeMessages) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.got = body
	return f.resp, f.err
}

func TestAnthropicExecute(t *testing.T) {
	fake := &fakeMessages{resp: &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: "hello "},
			{Type: "text", Text: "world"},
		},
		Usage: anthropic.Usage{InputTokens: 12, OutputTokens: 5},
	}}
	a := newAnthropic(fake, DefaultModel, AnthropicConfig{SystemPrompt: "be brief"})

	res, err := a.Execute(context.Background(), models.TaskNode{ID: "t", Description: "greet"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Output != "hello world" {
		t.Errorf("unexpected output %q", res.Output)
	}
	if fake.got.MaxTokens != DefaultMaxTokens {
		t.Errorf("expected default max tokens, got %d", fake.got.MaxTokens)
	}
	if len(fake.got.System) != 1 || fake.got.System[0].Text != "be brief" {
		t.Errorf("unexpected system prompt %+v", fake.got.System)
	}
	in, out := a.Tracker().Total()
	if in != 12 || out != 5 || a.Tracker().Calls() != 1 {
		t.Errorf("unexpected token usage in=%d out=%d calls=%d", in, out, a.Tracker().Calls())
	}
}

func TestAnthropicExecuteErrors(t *testing.T) {
	fake := &fakeMessages{err: errors.New("overloaded")}
	a := newAnthropic(fake, DefaultModel, AnthropicConfig{})

	if _, err := a.Execute(context.Background(), models.TaskNode{ID: "t", Description: "x"}); err == nil {
		t.Error("expected API error to fail the attempt")
	}
	if _, err := a.Execute(context.Background(), models.TaskNode{ID: "t"}); err == nil {
		t.Error("expected empty description to fail")
	}

	fake.err = nil
	fake.resp = &anthropic.Message{StopReason: anthropic.StopReasonMaxTokens}
	if _, err := a.Execute(context.Background(), models.TaskNode{ID: "t", Description: "x"}); err == nil {
		t.Error("expected truncated response to fail")
	}
}

func TestNewAnthropic_RequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropic(AnthropicConfig{}); err == nil {
		t.Error("expected missing key error")
	}

	a, err := NewAnthropic(AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
	if a.Model() != DefaultModel {
		t.Errorf("expected default model, got %s", a.Model())
	}
}

func TestBedrockModel(t *testing.T) {
	if got := bedrockModel(anthropic.ModelClaudeSonnet4_20250514); got != "us.anthropic.claude-sonnet-4-20250514-v1:0" {
		t.Errorf("unexpected bedrock model %s", got)
	}
	if got := bedrockModel("custom-model"); got != "custom-model" {
		t.Errorf("expected passthrough, got %s", got)
	}
}
