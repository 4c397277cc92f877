// Package config handles configuration loading for Foreman.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/foremanhq/foreman/internal/distribution"
)

// Config holds all configuration for Foreman.
type Config struct {
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	Project      ProjectConfig      `mapstructure:"project"`
	Intervals    IntervalsConfig    `mapstructure:"intervals"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	TUI          TUIConfig          `mapstructure:"tui"`
}

// AnthropicConfig holds the Claude executor settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key; ${VAR} references are expanded.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default Claude model.
	Model string `mapstructure:"model"`
	// UseBedrock routes requests through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile for Bedrock.
	AWSProfile string `mapstructure:"aws_profile"`
	// MaxTokens bounds the response size per task.
	MaxTokens int64 `mapstructure:"max_tokens"`
}

// ProjectConfig identifies the project being coordinated.
type ProjectConfig struct {
	// ID names the project in snapshots and reports.
	ID string `mapstructure:"id"`
	// FleetPath points at the fleet definition file.
	FleetPath string `mapstructure:"fleet_path"`
}

// IntervalsConfig holds the periodic loop intervals.
type IntervalsConfig struct {
	// Dispatch is the message dispatch tick.
	Dispatch time.Duration `mapstructure:"dispatch"`
	// Sample is the progress sampling tick.
	Sample time.Duration `mapstructure:"sample"`
}

// DistributionConfig selects how tasks are matched to agents.
type DistributionConfig struct {
	// Strategy is the default distribution strategy name.
	Strategy string `mapstructure:"strategy"`
}

// TUIConfig holds dashboard display settings.
type TUIConfig struct {
	// RefreshRate is how often the dashboard redraws.
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.foreman.yaml in current directory or parent)
// 3. User config (~/.config/foreman/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks interval and strategy settings.
func (c *Config) Validate() error {
	if c.Intervals.Dispatch <= 0 {
		return fmt.Errorf("intervals.dispatch must be positive, got %v", c.Intervals.Dispatch)
	}
	if c.Intervals.Sample <= 0 {
		return fmt.Errorf("intervals.sample must be positive, got %v", c.Intervals.Sample)
	}

	switch c.Distribution.Strategy {
	case distribution.StrategyIntelligent, distribution.StrategyRoundRobin,
		distribution.StrategyCapabilityBased, distribution.StrategyLoadBalanced:
	default:
		return fmt.Errorf("unknown distribution strategy %q", c.Distribution.Strategy)
	}
	return nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.max_tokens", 4096)

	v.SetDefault("project.id", "default")
	v.SetDefault("project.fleet_path", "fleet.yaml")

	v.SetDefault("intervals.dispatch", "1s")
	v.SetDefault("intervals.sample", "30s")

	v.SetDefault("distribution.strategy", distribution.StrategyIntelligent)

	v.SetDefault("tui.refresh_rate", "500ms")
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{MaxTokens: 4096},
		Project:   ProjectConfig{ID: "default", FleetPath: "fleet.yaml"},
		Intervals: IntervalsConfig{
			Dispatch: time.Second,
			Sample:   30 * time.Second,
		},
		Distribution: DistributionConfig{Strategy: distribution.StrategyIntelligent},
		TUI:          TUIConfig{RefreshRate: 500 * time.Millisecond},
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// getUserConfigDir returns the XDG config directory for Foreman.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "foreman")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "foreman")
	}
	return filepath.Join(home, ".config", "foreman")
}

// findProjectConfig searches for .foreman.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".foreman.yaml")
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
