package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/surge/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long: `Display the effective configuration after merging defaults, the user
config (~/.config/surge/config.yaml), the project .surge.yaml and SURGE_*
environment variables. The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		displayConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file locations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "user:    %s\n", config.GetUserConfigPath())
		project := config.GetProjectConfigPath()
		if project == "" {
			project = "(none, create " + config.ProjectConfigName + ")"
		}
		fmt.Fprintf(out, "project: %s\n", project)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default user config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.GetUserConfigPath()
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing config")
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

// configEntries lists the displayed settings in a stable order.
func configEntries(cfg *config.Config) [][2]string {
	key, source, err := config.GetAPIKey(cfg)
	apiKey := config.MaskAPIKey(key)
	if err == nil {
		apiKey += " (" + string(source) + ")"
	}

	ftoa := func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
	return [][2]string{
		{"scaling.per_agent_overhead", cfg.Scaling.PerAgentOverhead.String()},
		{"scaling.large_concurrency_threshold", strconv.Itoa(cfg.Scaling.LargeConcurrencyThreshold)},
		{"scaling.min_large_roi", ftoa(cfg.Scaling.MinLargeROI)},
		{"scaling.short_task_seconds", ftoa(cfg.Scaling.ShortTaskSeconds)},
		{"scaling.long_task_seconds", ftoa(cfg.Scaling.LongTaskSeconds)},
		{"scaling.max_overhead_fraction", ftoa(cfg.Scaling.MaxOverheadFraction)},
		{"scaling.default_estimate_seconds", ftoa(cfg.Scaling.DefaultEstimateSeconds)},
		{"execution.max_retries", strconv.Itoa(cfg.Execution.MaxRetries)},
		{"execution.initial_backoff", cfg.Execution.InitialBackoff.String()},
		{"execution.max_backoff", cfg.Execution.MaxBackoff.String()},
		{"execution.timeout_multiplier", ftoa(cfg.Execution.TimeoutMultiplier)},
		{"execution.min_task_timeout", cfg.Execution.MinTaskTimeout.String()},
		{"execution.max_task_timeout", cfg.Execution.MaxTaskTimeout.String()},
		{"failure.throttle_rate", ftoa(cfg.Failure.ThrottleRate)},
		{"failure.drain_rate", ftoa(cfg.Failure.DrainRate)},
		{"failure.halt_rate", ftoa(cfg.Failure.HaltRate)},
		{"failure.min_sample", strconv.Itoa(cfg.Failure.MinSample)},
		{"state.driver", cfg.State.Driver},
		{"state.retention", cfg.State.Retention.String()},
		{"log.level", cfg.Log.Level},
		{"log.format", cfg.Log.Format},
		{"executor.kind", cfg.Executor.Kind},
		{"anthropic.model", cfg.Anthropic.Model},
		{"anthropic.use_bedrock", strconv.FormatBool(cfg.Anthropic.UseBedrock)},
		{"anthropic.api_key", apiKey},
	}
}

func displayConfig(w io.Writer, cfg *config.Config) {
	for _, e := range configEntries(cfg) {
		fmt.Fprintf(w, "%s: %s\n", e[0], e[1])
	}
}
