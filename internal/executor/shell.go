package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/ShayCichocki/surge/pkg/models"
)

// DefaultOutputLimit caps captured command output.
const DefaultOutputLimit = 64 * 1024

// shellWaitDelay bounds how long output pipes may outlive a killed shell.
const shellWaitDelay = 500 * time.Millisecond

// ShellConfig configures the shell executor.
type ShellConfig struct {
	// Command is run through "sh -c". When empty the task description is run.
	Command string
	// WorkDir is the working directory. Empty means the current directory.
	WorkDir string
	// Env is appended to the inherited environment.
	Env []string
	// OutputLimit caps the captured output in bytes.
	OutputLimit int
}

// Shell runs each task as a shell command.
// The task is exposed through SURGE_TASK_ID, SURGE_TASK_DESCRIPTION,
// SURGE_TASK_CLASS and SURGE_TASK_ATTEMPT.
type Shell struct {
	cfg ShellConfig
}

// NewShell creates a shell executor.
func NewShell(cfg ShellConfig) *Shell {
	if cfg.OutputLimit <= 0 {
		cfg.OutputLimit = DefaultOutputLimit
	}
	return &Shell{cfg: cfg}
}

// Execute runs the command and returns its combined output.
func (s *Shell) Execute(ctx context.Context, task models.TaskNode) (*Result, error) {
	command := s.cfg.Command
	if command == "" {
		command = task.Description
	}
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("task %s: no command to run", task.ID)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.WaitDelay = shellWaitDelay
	if s.cfg.WorkDir != "" {
		cmd.Dir = s.cfg.WorkDir
	}
	cmd.Env = append(os.Environ(), s.cfg.Env...)
	cmd.Env = append(cmd.Env,
		"SURGE_TASK_ID="+task.ID,
		"SURGE_TASK_DESCRIPTION="+task.Description,
		"SURGE_TASK_CLASS="+string(task.ResourceClass),
		"SURGE_TASK_ATTEMPT="+strconv.Itoa(AttemptFrom(ctx)),
	)

	start := time.Now()
	out, err := cmd.CombinedOutput()
	output := truncate(strings.TrimRight(string(out), "\n"), s.cfg.OutputLimit)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("task %s: %w", task.ID, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("task %s: exit status %d: %s", task.ID, exitErr.ExitCode(), output)
		}
		return nil, fmt.Errorf("task %s: %w", task.ID, err)
	}

	return &Result{Output: output, Duration: elapsed}, nil
}
