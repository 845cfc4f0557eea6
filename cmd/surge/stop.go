package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/surge/internal/signals"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the run active in this project",
	Long: `Write a kill signal into .surge/signals. A run started from this
directory cancels at once: in-flight attempts are abandoned, undispatched
tasks are skipped, and the run is checkpointed as aborted so it can be
resumed later.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
		if err := signals.SendKill(signals.Dir(cwd)); err != nil {
			return fmt.Errorf("send kill signal: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Kill signal sent.")
		return nil
	},
}
