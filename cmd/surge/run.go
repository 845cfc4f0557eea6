package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/surge/internal/config"
	"github.com/ShayCichocki/surge/internal/logging"
	"github.com/ShayCichocki/surge/internal/orchestrator"
	"github.com/ShayCichocki/surge/internal/signals"
	"github.com/ShayCichocki/surge/pkg/models"
)

// runFlags holds the flags of the run command.
type runFlags struct {
	concurrency int
	runID       string
	resume      bool
	retryFailed bool
	executor    string
	dryRun      bool
	jsonOutput  bool
	db          string
	quiet       bool

	concurrencySet bool
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run <taskfile>",
	Short: "Execute a task file wave by wave",
	Long: `Execute the tasks in a YAML or JSON task file.

Tasks run in waves: every task in a wave has all of its dependencies
complete. Each wave gets a concurrency from the scaling model unless
--concurrency (or concurrency_override in the file) forces one.

Every task outcome is checkpointed. Re-running with --resume --run-id <id>
skips tasks that already reached a terminal state; add --retry-failed to
run failed tasks again.

Stop a run with Ctrl-C, or from another shell with 'surge stop'.

Examples:
  surge run tasks.yaml
  surge run tasks.yaml --concurrency 8
  surge run tasks.yaml --dry-run          # simulated executor, nothing persisted
  surge run tasks.yaml --resume --run-id 3f2a...
  surge run tasks.yaml --json > report.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := runOpts
		opts.concurrencySet = cmd.Flags().Changed("concurrency")
		return runTaskFile(cmd.Context(), args[0], opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&runOpts.concurrency, "concurrency", "c", 0, "Force the concurrency of every wave")
	f.StringVar(&runOpts.runID, "run-id", "", "Run identifier (default: a new UUID)")
	f.BoolVar(&runOpts.resume, "resume", false, "Resume the run named by --run-id from its checkpoints")
	f.BoolVar(&runOpts.retryFailed, "retry-failed", false, "When resuming, run failed tasks again")
	f.StringVarP(&runOpts.executor, "executor", "e", "", "Executor: shell, anthropic or simulated (default from config)")
	f.BoolVar(&runOpts.dryRun, "dry-run", false, "Use the simulated executor and an in-memory store")
	f.BoolVar(&runOpts.jsonOutput, "json", false, "Print the final report as JSON")
	f.StringVar(&runOpts.db, "db", "", "Checkpoint database path (default: .surge/state.db)")
	f.BoolVarP(&runOpts.quiet, "quiet", "q", false, "Do not print per-task progress")
}

// runTaskFile loads, executes and reports one task file. It returns
// errRunAborted when the run stops early so the process exits non-zero.
func runTaskFile(ctx context.Context, path string, opts runFlags, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.resume && opts.runID == "" {
		return errors.New("--resume requires --run-id")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	projectDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	logger, err := newLogger(cfg, projectDir)
	if err != nil {
		return err
	}
	defer logger.Close()

	g, sub, err := loadGraph(path)
	if err != nil {
		return err
	}
	override := sub.Override
	if opts.concurrencySet {
		c := opts.concurrency
		override = &c
	}

	kind := cfg.Executor.Kind
	if opts.executor != "" {
		kind = opts.executor
	}
	if opts.dryRun {
		kind = config.ExecutorSimulated
	}
	taskExec, err := newExecutor(cfg, kind)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, dbPath(cfg, opts.db, projectDir), opts.dryRun)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	runID := opts.runID
	switch {
	case opts.resume:
		existing, err := store.GetRun(ctx, runID)
		if err != nil {
			return fmt.Errorf("look up run %s: %w", runID, err)
		}
		if existing == nil {
			return fmt.Errorf("run %s not found; nothing to resume", runID)
		}
	case runID == "":
		runID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, watcher, err := signals.Watch(ctx, signals.Dir(projectDir), logging.Component(logger.Logger, "signals"))
	if err != nil {
		return fmt.Errorf("watch signals: %w", err)
	}
	defer watcher.Close()

	coord := orchestrator.NewCoordinator(
		orchestrator.RequiredConfig{Executor: taskExec, Store: store},
		orchestrator.WithPolicy(cfg.Policy()),
		orchestrator.WithEstimator(newEstimator(cfg, logger.Logger)),
		orchestrator.WithLogger(logger.Logger),
		orchestrator.WithEventBuffer(cfg.Execution.EventBuffer),
		orchestrator.WithRetryFailed(opts.retryFailed),
	)

	var wg sync.WaitGroup
	if events := coord.Events(); events != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range events {
				if opts.quiet {
					continue
				}
				if line := formatEvent(e); line != "" {
					fmt.Fprintln(stderr, line)
				}
			}
		}()
	}

	report, runErr := coord.Run(ctx, orchestrator.NewExecutionRun(runID, g, override))
	coord.Close()
	wg.Wait()
	if runErr != nil {
		return runErr
	}

	if dropped := coord.DroppedEvents(); dropped > 0 {
		logger.Warn().Uint64("dropped", dropped).Msg("progress events dropped")
	}

	if opts.jsonOutput {
		if err := writeJSON(stdout, report); err != nil {
			return err
		}
	} else {
		renderReport(stdout, report)
		if report.Status == models.RunStatusAborted && !opts.dryRun {
			fmt.Fprintf(stdout, "\nResume with: surge run %s --resume --run-id %s\n", path, runID)
		}
	}

	if report.Status == models.RunStatusAborted {
		return errRunAborted
	}
	return nil
}
