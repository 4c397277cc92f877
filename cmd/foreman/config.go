package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Foreman configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/foreman/config.yaml
Project-specific overrides can be placed in .foreman.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
			return nil
		case 1:
			return displayConfigKey(cfg, args[0])
		default:
			return setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
	fmt.Printf("project.id: %s\n", cfg.Project.ID)
	fmt.Printf("project.fleet_path: %s\n", cfg.Project.FleetPath)
	fmt.Printf("intervals.dispatch: %s\n", cfg.Intervals.Dispatch)
	fmt.Printf("intervals.sample: %s\n", cfg.Intervals.Sample)
	fmt.Printf("distribution.strategy: %s\n", cfg.Distribution.Strategy)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) error {
	switch key {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey != "" {
			fmt.Println("****")
		} else {
			fmt.Println("(not set)")
		}
	case "anthropic.model":
		fmt.Println(cfg.Anthropic.Model)
	case "anthropic.use_bedrock":
		fmt.Println(cfg.Anthropic.UseBedrock)
	case "anthropic.max_tokens":
		fmt.Println(cfg.Anthropic.MaxTokens)
	case "project.id":
		fmt.Println(cfg.Project.ID)
	case "project.fleet_path":
		fmt.Println(cfg.Project.FleetPath)
	case "intervals.dispatch":
		fmt.Println(cfg.Intervals.Dispatch)
	case "intervals.sample":
		fmt.Println(cfg.Intervals.Sample)
	case "distribution.strategy":
		fmt.Println(cfg.Distribution.Strategy)
	case "tui.refresh_rate":
		fmt.Println(cfg.TUI.RefreshRate)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// setConfigKey sets a value, validates the result, and writes the user
// config file.
func setConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock = value == "true"
	case "project.id":
		cfg.Project.ID = value
	case "project.fleet_path":
		cfg.Project.FleetPath = value
	case "intervals.dispatch", "intervals.sample", "tui.refresh_rate":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		switch key {
		case "intervals.dispatch":
			cfg.Intervals.Dispatch = d
		case "intervals.sample":
			cfg.Intervals.Sample = d
		default:
			cfg.TUI.RefreshRate = d
		}
	case "distribution.strategy":
		cfg.Distribution.Strategy = value
	default:
		return fmt.Errorf("unknown or read-only config key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := saveUserConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Set %s\n", key)
	return nil
}

// saveUserConfig writes the user config file under ~/.config/foreman.
func saveUserConfig(cfg *config.Config) error {
	path := config.GetUserConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	content := fmt.Sprintf(`anthropic:
  api_key: %q
  model: %q
  use_bedrock: %t
  max_tokens: %d
project:
  id: %q
  fleet_path: %q
intervals:
  dispatch: %s
  sample: %s
distribution:
  strategy: %s
tui:
  refresh_rate: %s
`,
		cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.UseBedrock,
		cfg.Anthropic.MaxTokens, cfg.Project.ID, cfg.Project.FleetPath,
		cfg.Intervals.Dispatch, cfg.Intervals.Sample,
		cfg.Distribution.Strategy, cfg.TUI.RefreshRate)

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
