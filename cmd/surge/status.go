package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/surge/internal/state"
	"github.com/ShayCichocki/surge/pkg/models"
)

var (
	statusLimit int
	statusDB    string
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recorded runs and their checkpoints",
	Long: `Without arguments, list the most recent runs in the checkpoint store.

With a run id, show the run header, the barrier of every wave that passed
one, and each task's checkpointed outcome.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "Number of runs to list")
	statusCmd.Flags().StringVar(&statusDB, "db", "", "Checkpoint database path (default: .surge/state.db)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	out := cmd.OutOrStdout()
	path := dbPath(cfg, statusDB, cwd)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "No runs recorded. Run 'surge run <taskfile>' to start.")
		return nil
	}

	store, err := openStore(cfg, path, false)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		return showRun(cmd.Context(), out, store, args[0])
	}
	return listRuns(cmd.Context(), out, store)
}

func listRuns(ctx context.Context, w io.Writer, store state.Store) error {
	runs, err := store.ListRuns(ctx, statusLimit)
	if err != nil {
		return err
	}
	if statusJSON {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	t := newTable("Run", "Status", "Tasks", "Waves", "Started", "Duration", "Reason")
	for _, r := range runs {
		t.Row(r.ID, colorStatus(string(r.Status)), strconv.Itoa(r.TaskCount), strconv.Itoa(r.WaveCount),
			r.StartedAt.Local().Format(time.DateTime), runDuration(r), r.Reason)
	}
	fmt.Fprintln(w, t.String())

	interrupted, err := state.FindInterrupted(ctx, store, statusLimit)
	if err != nil {
		return err
	}
	for _, ir := range interrupted {
		fmt.Fprintf(w, "%s %s has %d of %d tasks checkpointed. If its process is gone, resume with:\n  surge run <taskfile> --resume --run-id %s",
			color.YellowString("unfinished:"), ir.Run.ID, ir.Terminal, ir.Run.TaskCount, ir.Run.ID)
		if ir.Failed > 0 {
			fmt.Fprintf(w, " [--retry-failed to re-run %d failed]", ir.Failed)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// runStatusView is the JSON form of a single run.
type runStatusView struct {
	Run         *state.Run               `json:"run"`
	Decisions   []models.ScalingDecision `json:"scaling_decisions"`
	Barriers    []state.Barrier          `json:"barriers"`
	Checkpoints []models.Checkpoint      `json:"checkpoints"`
}

func showRun(ctx context.Context, w io.Writer, store state.Store, id string) error {
	r, err := store.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: %s", state.ErrRunNotFound, id)
	}
	view := runStatusView{Run: r}
	if view.Decisions, err = store.ListDecisions(ctx, id); err != nil {
		return err
	}
	if view.Barriers, err = store.ListBarriers(ctx, id); err != nil {
		return err
	}
	if view.Checkpoints, err = store.ListCheckpoints(ctx, id); err != nil {
		return err
	}
	if statusJSON {
		return writeJSON(w, view)
	}

	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Run "+r.ID), colorStatus(string(r.Status)))
	fmt.Fprintf(w, "  started: %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), runDuration(*r))
	fmt.Fprintf(w, "  tasks: %d in %d waves\n", r.TaskCount, r.WaveCount)
	if r.Reason != "" {
		fmt.Fprintf(w, "  reason: %s (wave %d)\n", r.Reason, r.StoppedAtWave)
	}

	decided := make(map[int]models.ScalingDecision, len(view.Decisions))
	for _, d := range view.Decisions {
		decided[d.WaveIndex] = d
	}
	if len(view.Barriers) > 0 {
		t := newTable("Wave", "Concurrency", "Succeeded", "Failed", "Skipped", "Barrier")
		for _, b := range view.Barriers {
			concurrency := "-"
			if d, ok := decided[b.WaveIndex]; ok {
				concurrency = strconv.Itoa(d.Concurrency)
			}
			t.Row(strconv.Itoa(b.WaveIndex), concurrency, strconv.Itoa(b.Succeeded),
				strconv.Itoa(b.Failed), strconv.Itoa(b.Skipped), b.CompletedAt.Local().Format(time.TimeOnly))
		}
		fmt.Fprintln(w, t.String())
	}

	if len(view.Checkpoints) > 0 {
		t := newTable("Wave", "Task", "Status", "Attempt", "Duration", "Error")
		for _, cp := range view.Checkpoints {
			dur := "-"
			if !cp.StartedAt.IsZero() && !cp.EndedAt.IsZero() {
				dur = formatDuration(cp.EndedAt.Sub(cp.StartedAt))
			}
			t.Row(strconv.Itoa(cp.WaveIndex), cp.TaskID, colorStatus(string(cp.Status)),
				strconv.Itoa(cp.Attempt), dur, firstLine(cp.Error))
		}
		fmt.Fprintln(w, t.String())
	}
	return nil
}

func runDuration(r state.Run) string {
	if r.EndedAt.IsZero() {
		return "running " + formatDuration(time.Since(r.StartedAt).Round(time.Second))
	}
	return formatDuration(r.EndedAt.Sub(r.StartedAt))
}
