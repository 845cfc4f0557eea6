package main

import (
	"fmt"
	"os"

	"github.com/ShayCichocki/surge/internal/config"
	"github.com/ShayCichocki/surge/internal/executor"
	"github.com/ShayCichocki/surge/internal/graph"
	"github.com/ShayCichocki/surge/internal/logging"
	"github.com/ShayCichocki/surge/internal/resource"
	"github.com/ShayCichocki/surge/internal/state"
	"github.com/ShayCichocki/surge/internal/taskfile"
	"github.com/rs/zerolog"
)

// newLogger builds the process logger. Console output goes to stderr so
// --json reports on stdout stay machine readable.
func newLogger(cfg *config.Config, projectDir string) (*logging.Logger, error) {
	opts := logging.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stderr,
		NoColor: noColor,
	}
	if cfg.Log.File {
		opts.FilePath = logging.ProjectLogPath(projectDir)
	}
	return logging.New(opts)
}

// dbPath resolves the checkpoint database: the flag, then config, then the
// project default.
func dbPath(cfg *config.Config, flag, projectDir string) string {
	switch {
	case flag != "":
		return flag
	case cfg.State.Path != "":
		return cfg.State.Path
	default:
		return state.ProjectDBPath(projectDir)
	}
}

// openStore opens and migrates the checkpoint store. Dry runs keep
// checkpoints in memory.
func openStore(cfg *config.Config, path string, dryRun bool) (state.Store, error) {
	if dryRun {
		return state.NewMemory(), nil
	}
	db, err := state.OpenWithDriver(cfg.State.Driver, path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// newEstimator wraps the configured static capacities in the guard that
// bounds probe time and caches results.
func newEstimator(cfg *config.Config, logger zerolog.Logger) resource.Estimator {
	return resource.NewGuarded(
		resource.NewStatic(cfg.Resources.StaticConfig),
		resource.WithProbeTimeout(cfg.Resources.ProbeTimeout),
		resource.WithCacheTTL(cfg.Resources.CacheTTL),
		resource.WithGuardLogger(logging.Component(logger, "resources")),
	)
}

// newExecutor builds the executor named by kind.
func newExecutor(cfg *config.Config, kind string) (executor.TaskExecutor, error) {
	switch kind {
	case "", config.ExecutorShell:
		return executor.NewShell(executor.ShellConfig{
			Command:     cfg.Executor.Shell.Command,
			WorkDir:     cfg.Executor.Shell.WorkDir,
			OutputLimit: cfg.Executor.Shell.OutputLimit,
		}), nil
	case config.ExecutorSimulated:
		return executor.NewSimulated(executor.SimulatedConfig{
			TimeScale:   cfg.Executor.Simulated.TimeScale,
			FailureRate: cfg.Executor.Simulated.FailureRate,
			Seed:        cfg.Executor.Simulated.Seed,
		}), nil
	case config.ExecutorAnthropic:
		key, _, err := config.GetAPIKey(cfg)
		if err != nil && !cfg.Anthropic.UseBedrock {
			return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or anthropic.api_key", err)
		}
		return executor.NewAnthropic(executor.AnthropicConfig{
			Model:         cfg.Anthropic.Model,
			APIKey:        key,
			MaxTokens:     cfg.Anthropic.MaxTokens,
			SystemPrompt:  cfg.Anthropic.SystemPrompt,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.AWSRegion,
			AWSProfile:    cfg.Anthropic.AWSProfile,
		})
	default:
		return nil, fmt.Errorf("unknown executor %q (want %s, %s or %s)",
			kind, config.ExecutorShell, config.ExecutorAnthropic, config.ExecutorSimulated)
	}
}

// loadGraph parses a task file and builds its dependency graph.
func loadGraph(path string) (*graph.DependencyGraph, *taskfile.Submission, error) {
	sub, err := taskfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(sub.Tasks, sub.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("build graph: %w", err)
	}
	return g, sub, nil
}
