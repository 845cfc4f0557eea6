package state

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/surge/pkg/models"
)

// InterruptedRun is a run whose header is still marked running. Either its
// process is active elsewhere or it died before reaching FinishRun.
type InterruptedRun struct {
	Run Run
	// Terminal counts the tasks a resume would restore.
	Terminal int
	// Failed counts restored failures a resume with retry would re-run.
	Failed int
}

// FindInterrupted returns unfinished runs, most recent first, scanning at
// most limit runs. A limit of 0 scans every run.
func FindInterrupted(ctx context.Context, store Store, limit int) ([]InterruptedRun, error) {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	var out []InterruptedRun
	for _, r := range runs {
		if r.Status != models.RunStatusRunning {
			continue
		}
		cps, err := store.ListCheckpoints(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("list checkpoints for %s: %w", r.ID, err)
		}
		ir := InterruptedRun{Run: r}
		for _, cp := range cps {
			if !cp.Terminal() {
				continue
			}
			ir.Terminal++
			if cp.Status == models.TaskStatusFailed {
				ir.Failed++
			}
		}
		out = append(out, ir)
	}
	return out, nil
}
