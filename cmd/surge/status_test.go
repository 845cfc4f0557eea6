package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/surge/internal/state"
	"github.com/ShayCichocki/surge/pkg/models"
)

func seedStore(t *testing.T) state.Store {
	t.Helper()
	ctx := context.Background()
	store := state.NewMemory()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, id := range []string{"finished", "crashed"} {
		if _, err := store.CreateRun(ctx, &state.Run{ID: id, Fingerprint: "fp", Status: models.RunStatusRunning,
			StoppedAtWave: -1, TaskCount: 2, WaveCount: 1, StartedAt: start}); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.FinishRun(ctx, "finished", models.RunStatusCompleted, "", -1, start.Add(90*time.Second)); err != nil {
		t.Fatal(err)
	}
	checkpoints := []models.Checkpoint{
		{RunID: "finished", TaskID: "a", Status: models.TaskStatusSucceeded, Attempt: 1, StartedAt: start, EndedAt: start.Add(time.Second)},
		{RunID: "finished", TaskID: "b", Status: models.TaskStatusFailed, Attempt: 3, Error: "exit status 2"},
		{RunID: "crashed", TaskID: "a", Status: models.TaskStatusFailed, Attempt: 3},
	}
	for _, cp := range checkpoints {
		if err := store.SaveCheckpoint(ctx, cp); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SaveDecision(ctx, "finished", models.ScalingDecision{WaveIndex: 0, Concurrency: 2}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordBarrier(ctx, state.Barrier{RunID: "finished", WaveIndex: 0, State: models.WaveStateDone,
		Succeeded: 1, Failed: 1, CompletedAt: start.Add(90 * time.Second)}); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestListRuns(t *testing.T) {
	statusLimit, statusJSON = 10, false
	var buf bytes.Buffer
	if err := listRuns(context.Background(), &buf, seedStore(t)); err != nil {
		t.Fatalf("listRuns: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"finished", "completed", "1m30s", "unfinished: crashed has 1 of 2 tasks", "--retry-failed to re-run 1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "unfinished: finished") {
		t.Error("finished run reported as unfinished")
	}
}

func TestShowRun(t *testing.T) {
	statusJSON = false
	store := seedStore(t)

	var buf bytes.Buffer
	if err := showRun(context.Background(), &buf, store, "finished"); err != nil {
		t.Fatalf("showRun: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Run finished", "tasks: 2 in 1 waves", "exit status 2", "1.0s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	if err := showRun(context.Background(), &buf, store, "missing"); err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("expected run not found, got %v", err)
	}
}
