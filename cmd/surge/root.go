package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/surge/internal/config"
)

var (
	configPath string
	noColor    bool
)

// errRunAborted makes the process exit non-zero after the report is printed.
var errRunAborted = errors.New("run aborted")

var rootCmd = &cobra.Command{
	Use:   "surge",
	Short: "Wave-based parallel task orchestration",
	Long: `Surge runs a dependency graph of tasks in waves.

Each wave holds the tasks whose dependencies are all complete. Surge picks a
concurrency for every wave from a cost model and the machine's capacity for
the wave's resource class, retries transient failures, throttles or aborts
on failure bursts, and checkpoints every outcome so a run can be resumed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunAborted) {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}

// loadConfig reads --config when given, otherwise the layered user and
// project configuration.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/surge/config.yaml and .surge.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
