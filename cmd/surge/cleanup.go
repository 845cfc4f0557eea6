package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	cleanupOlderThan time.Duration
	cleanupDB        string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge old finished runs from the checkpoint store",
	Long: `Delete finished runs, with their checkpoints, attempts, decisions and
barriers, that started longer ago than the retention window. Running runs are
never purged.

Examples:
  surge cleanup                    # use state.retention from config (default 30 days)
  surge cleanup --older-than 72h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}

		retention := cfg.State.Retention
		if cmd.Flags().Changed("older-than") {
			retention = cleanupOlderThan
		}
		if retention <= 0 {
			return fmt.Errorf("retention must be positive, got %s", retention)
		}

		path := dbPath(cfg, cleanupDB, cwd)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No checkpoint database found.")
			return nil
		}
		store, err := openStore(cfg, path, false)
		if err != nil {
			return fmt.Errorf("open checkpoint store: %w", err)
		}
		defer store.Close()

		n, err := store.PurgeOldRuns(cmd.Context(), retention)
		if err != nil {
			return fmt.Errorf("purge runs: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d run(s) older than %s.\n", n, formatDuration(retention))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "Purge finished runs started more than this long ago")
	cleanupCmd.Flags().StringVar(&cleanupDB, "db", "", "Checkpoint database path (default: .surge/state.db)")
}
