// Package config handles configuration loading and management for surge.
// It supports XDG config paths, project-level overrides, a .env file, and
// SURGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ShayCichocki/surge/internal/orchestrator/policy"
	"github.com/ShayCichocki/surge/internal/resource"
)

// ProjectConfigName is the project-level config file searched upward from
// the working directory.
const ProjectConfigName = ".surge.yaml"

// Executor kinds.
const (
	ExecutorShell     = "shell"
	ExecutorAnthropic = "anthropic"
	ExecutorSimulated = "simulated"
)

// Config holds all configuration for surge.
type Config struct {
	Scaling   ScalingConfig   `mapstructure:"scaling"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Failure   FailureConfig   `mapstructure:"failure"`
	Resources ResourcesConfig `mapstructure:"resources"`
	State     StateConfig     `mapstructure:"state"`
	Log       LogConfig       `mapstructure:"log"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// ScalingConfig holds the ROI model parameters.
type ScalingConfig struct {
	PerAgentOverhead          time.Duration `mapstructure:"per_agent_overhead"`
	LargeConcurrencyThreshold int           `mapstructure:"large_concurrency_threshold"`
	MinLargeROI               float64       `mapstructure:"min_large_roi"`
	ShortTaskSeconds          float64       `mapstructure:"short_task_seconds"`
	LongTaskSeconds           float64       `mapstructure:"long_task_seconds"`
	MaxOverheadFraction       float64       `mapstructure:"max_overhead_fraction"`
	DefaultEstimateSeconds    float64       `mapstructure:"default_estimate_seconds"`
}

// ExecutionConfig holds retry, timeout and event settings.
type ExecutionConfig struct {
	MaxRetries         int           `mapstructure:"max_retries"`
	InitialBackoff     time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff         time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier  float64       `mapstructure:"backoff_multiplier"`
	Jitter             float64       `mapstructure:"jitter"`
	TimeoutMultiplier  float64       `mapstructure:"timeout_multiplier"`
	MinTaskTimeout     time.Duration `mapstructure:"min_task_timeout"`
	MaxTaskTimeout     time.Duration `mapstructure:"max_task_timeout"`
	DefaultTaskTimeout time.Duration `mapstructure:"default_task_timeout"`
	EventBuffer        int           `mapstructure:"event_buffer"`
}

// FailureConfig holds the failure-threshold bands.
type FailureConfig struct {
	ThrottleRate   float64 `mapstructure:"throttle_rate"`
	DrainRate      float64 `mapstructure:"drain_rate"`
	HaltRate       float64 `mapstructure:"halt_rate"`
	ThrottleFactor float64 `mapstructure:"throttle_factor"`
	MinSample      int     `mapstructure:"min_sample"`
}

// ResourcesConfig holds machine capacity and estimator guard settings.
type ResourcesConfig struct {
	resource.StaticConfig `mapstructure:",squash"`

	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

// StateConfig holds checkpoint store settings.
type StateConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	// Path overrides the project database location.
	Path string `mapstructure:"path"`
	// Retention is how long finished runs are kept by cleanup.
	Retention time.Duration `mapstructure:"retention"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables an additional JSON log under the project's .surge/logs.
	File bool `mapstructure:"file"`
}

// ExecutorConfig selects and configures the task executor.
type ExecutorConfig struct {
	Kind      string                  `mapstructure:"kind"`
	Shell     ShellExecutorConfig     `mapstructure:"shell"`
	Simulated SimulatedExecutorConfig `mapstructure:"simulated"`
}

// ShellExecutorConfig configures the shell executor.
type ShellExecutorConfig struct {
	Command     string `mapstructure:"command"`
	WorkDir     string `mapstructure:"workdir"`
	OutputLimit int    `mapstructure:"output_limit"`
}

// SimulatedExecutorConfig configures the simulated executor.
type SimulatedExecutorConfig struct {
	TimeScale   float64 `mapstructure:"time_scale"`
	FailureRate float64 `mapstructure:"failure_rate"`
	Seed        uint64  `mapstructure:"seed"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	MaxTokens    int64  `mapstructure:"max_tokens"`
	SystemPrompt string `mapstructure:"system_prompt"`
	UseBedrock   bool   `mapstructure:"use_bedrock"`
	AWSRegion    string `mapstructure:"aws_region"`
	AWSProfile   string `mapstructure:"aws_profile"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SURGE_*, ANTHROPIC_API_KEY), including a .env file
// 2. Project config (.surge.yaml in current directory or parent)
// 3. User config (~/.config/surge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file plus environment overrides.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SURGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("anthropic.api_key", "SURGE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// loadDotEnv loads path into the environment if it exists.
// Variables already set are not overwritten.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	return SaveTo(GetUserConfigPath(), cfg)
}

// SaveTo writes the configuration to path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	for key, value := range cfg.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// settings flattens cfg into viper keys. The API key is never written.
func (cfg *Config) settings() map[string]any {
	return map[string]any{
		"scaling.per_agent_overhead":          cfg.Scaling.PerAgentOverhead.String(),
		"scaling.large_concurrency_threshold": cfg.Scaling.LargeConcurrencyThreshold,
		"scaling.min_large_roi":               cfg.Scaling.MinLargeROI,
		"scaling.short_task_seconds":          cfg.Scaling.ShortTaskSeconds,
		"scaling.long_task_seconds":           cfg.Scaling.LongTaskSeconds,
		"scaling.max_overhead_fraction":       cfg.Scaling.MaxOverheadFraction,
		"scaling.default_estimate_seconds":    cfg.Scaling.DefaultEstimateSeconds,

		"execution.max_retries":          cfg.Execution.MaxRetries,
		"execution.initial_backoff":      cfg.Execution.InitialBackoff.String(),
		"execution.max_backoff":          cfg.Execution.MaxBackoff.String(),
		"execution.backoff_multiplier":   cfg.Execution.BackoffMultiplier,
		"execution.jitter":               cfg.Execution.Jitter,
		"execution.timeout_multiplier":   cfg.Execution.TimeoutMultiplier,
		"execution.min_task_timeout":     cfg.Execution.MinTaskTimeout.String(),
		"execution.max_task_timeout":     cfg.Execution.MaxTaskTimeout.String(),
		"execution.default_task_timeout": cfg.Execution.DefaultTaskTimeout.String(),
		"execution.event_buffer":         cfg.Execution.EventBuffer,

		"failure.throttle_rate":   cfg.Failure.ThrottleRate,
		"failure.drain_rate":      cfg.Failure.DrainRate,
		"failure.halt_rate":       cfg.Failure.HaltRate,
		"failure.throttle_factor": cfg.Failure.ThrottleFactor,
		"failure.min_sample":      cfg.Failure.MinSample,

		"resources.cpu":                 cfg.Resources.CPU,
		"resources.disk_iops":           cfg.Resources.DiskIOPS,
		"resources.per_task_iops":       cfg.Resources.PerTaskIOPS,
		"resources.max_connections":     cfg.Resources.MaxConnections,
		"resources.requests_per_second": cfg.Resources.RequestsPerSecond,
		"resources.rate_window_seconds": cfg.Resources.RateWindowSeconds,
		"resources.general":             cfg.Resources.General,
		"resources.probe_timeout":       cfg.Resources.ProbeTimeout.String(),
		"resources.cache_ttl":           cfg.Resources.CacheTTL.String(),

		"state.driver":    cfg.State.Driver,
		"state.path":      cfg.State.Path,
		"state.retention": cfg.State.Retention.String(),

		"log.level":  cfg.Log.Level,
		"log.format": cfg.Log.Format,
		"log.file":   cfg.Log.File,

		"executor.kind":                   cfg.Executor.Kind,
		"executor.shell.command":          cfg.Executor.Shell.Command,
		"executor.shell.workdir":          cfg.Executor.Shell.WorkDir,
		"executor.shell.output_limit":     cfg.Executor.Shell.OutputLimit,
		"executor.simulated.time_scale":   cfg.Executor.Simulated.TimeScale,
		"executor.simulated.failure_rate": cfg.Executor.Simulated.FailureRate,
		"executor.simulated.seed":         cfg.Executor.Simulated.Seed,

		"anthropic.model":         cfg.Anthropic.Model,
		"anthropic.max_tokens":    cfg.Anthropic.MaxTokens,
		"anthropic.system_prompt": cfg.Anthropic.SystemPrompt,
		"anthropic.use_bedrock":   cfg.Anthropic.UseBedrock,
		"anthropic.aws_region":    cfg.Anthropic.AWSRegion,
		"anthropic.aws_profile":   cfg.Anthropic.AWSProfile,
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults registers every key so environment overrides apply on Unmarshal.
func setDefaults(v *viper.Viper) {
	for key, value := range Default().settings() {
		v.SetDefault(key, value)
	}
	v.SetDefault("anthropic.api_key", "")
}

// getUserConfigDir returns the XDG config directory for surge.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "surge")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "surge")
	}
	return filepath.Join(home, ".config", "surge")
}

// findProjectConfig searches for .surge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	p := policy.Default()
	return &Config{
		Scaling: ScalingConfig{
			PerAgentOverhead:          p.Scaling.PerAgentOverhead,
			LargeConcurrencyThreshold: p.Scaling.LargeConcurrencyThreshold,
			MinLargeROI:               p.Scaling.MinLargeROI,
			ShortTaskSeconds:          p.Scaling.ShortTaskSeconds,
			LongTaskSeconds:           p.Scaling.LongTaskSeconds,
			MaxOverheadFraction:       p.Scaling.MaxOverheadFraction,
			DefaultEstimateSeconds:    p.Scaling.DefaultEstimateSeconds,
		},
		Execution: ExecutionConfig{
			MaxRetries:         p.Retry.MaxRetries,
			InitialBackoff:     p.Retry.InitialBackoff,
			MaxBackoff:         p.Retry.MaxBackoff,
			BackoffMultiplier:  p.Retry.Multiplier,
			Jitter:             p.Retry.Jitter,
			TimeoutMultiplier:  p.Timeout.Multiplier,
			MinTaskTimeout:     p.Timeout.Min,
			MaxTaskTimeout:     p.Timeout.Max,
			DefaultTaskTimeout: p.Timeout.Default,
			EventBuffer:        256,
		},
		Failure: FailureConfig{
			ThrottleRate:   p.Failure.ThrottleRate,
			DrainRate:      p.Failure.DrainRate,
			HaltRate:       p.Failure.HaltRate,
			ThrottleFactor: p.Failure.ThrottleFactor,
			MinSample:      p.Failure.MinSample,
		},
		Resources: ResourcesConfig{
			StaticConfig: resource.DefaultStaticConfig(),
			ProbeTimeout: 250 * time.Millisecond,
			CacheTTL:     30 * time.Second,
		},
		State: StateConfig{
			Driver:    "sqlite",
			Retention: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Executor: ExecutorConfig{
			Kind: ExecutorShell,
			Simulated: SimulatedExecutorConfig{
				TimeScale: 0.01,
				Seed:      1,
			},
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
			AWSRegion: "us-west-2",
		},
	}
}

// Policy maps the engine sections into a validated policy configuration.
func (cfg *Config) Policy() *policy.Config {
	p := &policy.Config{
		Scaling: policy.ScalingPolicy{
			PerAgentOverhead:          cfg.Scaling.PerAgentOverhead,
			LargeConcurrencyThreshold: cfg.Scaling.LargeConcurrencyThreshold,
			MinLargeROI:               cfg.Scaling.MinLargeROI,
			ShortTaskSeconds:          cfg.Scaling.ShortTaskSeconds,
			LongTaskSeconds:           cfg.Scaling.LongTaskSeconds,
			MaxOverheadFraction:       cfg.Scaling.MaxOverheadFraction,
			DefaultEstimateSeconds:    cfg.Scaling.DefaultEstimateSeconds,
		},
		Retry: policy.RetryPolicy{
			MaxRetries:     cfg.Execution.MaxRetries,
			InitialBackoff: cfg.Execution.InitialBackoff,
			MaxBackoff:     cfg.Execution.MaxBackoff,
			Multiplier:     cfg.Execution.BackoffMultiplier,
			Jitter:         cfg.Execution.Jitter,
		},
		Timeout: policy.TimeoutPolicy{
			Multiplier: cfg.Execution.TimeoutMultiplier,
			Min:        cfg.Execution.MinTaskTimeout,
			Max:        cfg.Execution.MaxTaskTimeout,
			Default:    cfg.Execution.DefaultTaskTimeout,
		},
		Failure: policy.FailurePolicy{
			ThrottleRate:   cfg.Failure.ThrottleRate,
			DrainRate:      cfg.Failure.DrainRate,
			HaltRate:       cfg.Failure.HaltRate,
			ThrottleFactor: cfg.Failure.ThrottleFactor,
			MinSample:      cfg.Failure.MinSample,
		},
	}
	_ = p.Validate()
	return p
}
