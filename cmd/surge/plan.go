package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/surge/internal/orchestrator"
	"github.com/ShayCichocki/surge/pkg/models"
)

var (
	planConcurrency int
	planJSON        bool
	planVerbose     bool
)

var planCmd = &cobra.Command{
	Use:   "plan <taskfile>",
	Short: "Show the waves and concurrency a run would use",
	Long: `Validate a task file and preview its execution plan without running it.

Prints every wave with the concurrency the scaling model picks for it, the
projected time saved and the ROI of that choice. Use -v to list each wave's
tasks and the policy steps behind every decision.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		g, sub, err := loadGraph(args[0])
		if err != nil {
			return err
		}
		override := sub.Override
		if cmd.Flags().Changed("concurrency") {
			override = &planConcurrency
		}

		waves := orchestrator.Layer(g)
		calc := orchestrator.NewScalingCalculator(cfg.Policy().Scaling, newEstimator(cfg, zerolog.Nop()))
		decisions := calc.Plan(waves, g, override)

		if planJSON {
			return writeJSON(cmd.OutOrStdout(), struct {
				Waves     []models.Wave            `json:"waves"`
				Decisions []models.ScalingDecision `json:"scaling_decisions"`
			}{waves, decisions})
		}
		renderPlan(cmd.OutOrStdout(), waves, decisions, planVerbose)
		return nil
	},
}

func init() {
	planCmd.Flags().IntVarP(&planConcurrency, "concurrency", "c", 0, "Preview a forced concurrency")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the plan as JSON")
	planCmd.Flags().BoolVarP(&planVerbose, "verbose", "v", false, "List tasks and decision steps per wave")
}
