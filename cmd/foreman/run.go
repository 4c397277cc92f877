package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/config"
	"github.com/foremanhq/foreman/internal/coordinator"
	"github.com/foremanhq/foreman/internal/distribution"
	"github.com/foremanhq/foreman/internal/monitor"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/internal/tui"
)

var (
	runHeadless bool
	runTemplate string
	runFleet    string
	runStrategy string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start coordinating the agent fleet",
	Long: `Start the coordinator, the progress monitor, and the dashboard.

Reads the fleet definition, registers one agent runtime per entry, and
begins dispatching tasks from the project database. With --template, the
task board is seeded from a project template file first.

Examples:
  foreman run                          # Coordinate with the configured fleet
  foreman run --template project.yaml  # Seed tasks, then coordinate
  foreman run --headless               # No dashboard, logs to stderr
  foreman run --strategy load_balanced # Override the default strategy`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "Run without the dashboard")
	runCmd.Flags().StringVar(&runTemplate, "template", "", "Seed tasks from a project template file")
	runCmd.Flags().StringVar(&runFleet, "fleet", "", "Override the fleet definition path")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Override the default distribution strategy")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if runStrategy != "" {
		cfg.Distribution.Strategy = runStrategy
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	logger, err := buildLogger(cwd, runHeadless)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.OpenProject(cwd)
	if err != nil {
		return fmt.Errorf("open project database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	fleetPath := runFleet
	if fleetPath == "" {
		fleetPath = cfg.Project.FleetPath
	}
	fleet, err := config.LoadFleet(fleetPath)
	if err != nil {
		return err
	}

	client, err := agent.NewClaudeClient(agent.ClaudeConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		MaxTokens:     cfg.Anthropic.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("create Claude client: %w", err)
	}

	signals, err := coordinator.NewSignalManager(cwd)
	if err != nil {
		return fmt.Errorf("set up signal files: %w", err)
	}
	defer signals.Close()

	engine := distribution.NewEngine(logger)
	if err := engine.SetDefaultStrategy(cfg.Distribution.Strategy); err != nil {
		return err
	}

	coord := coordinator.New(db, db, engine, logger,
		coordinator.WithDispatchInterval(cfg.Intervals.Dispatch),
		coordinator.WithSignalManager(signals),
		coordinator.WithAgentConfig(agent.Config{
			Credentials: credentialLabel(cfg),
			WorkingDir:  cwd,
		}),
	)

	for _, def := range fleet.Agents {
		executors := agent.NewExecutorRegistry()
		executors.RegisterFallback(client.Executor(def.Role))
		coord.RegisterAgent(agent.NewRuntime(def.ID, def.Capabilities(), executors, logger))
	}

	if runTemplate != "" {
		tmpl, err := coordinator.LoadProjectTemplate(runTemplate)
		if err != nil {
			return err
		}
		tasks, err := coord.SeedProject(tmpl)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d task(s) from %s\n", len(tasks), runTemplate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coord.Start(ctx); err != nil {
		return err
	}
	defer coord.Stop()

	mon := monitor.New(cfg.Project.ID, db, coord, logger,
		monitor.WithSampleInterval(cfg.Intervals.Sample))
	mon.Start(ctx)
	defer mon.Stop()

	if runHeadless {
		<-ctx.Done()
		return nil
	}

	app := tui.NewApp(cfg.Project.ID, db, coord,
		tui.WithRefreshRate(cfg.TUI.RefreshRate))
	return tui.Run(ctx, app, coord.Events(), mon.Alerts())
}

// credentialLabel picks the credential string handed to agent runtimes.
// Bedrock runs have no API key; the AWS SDK resolves credentials itself.
func credentialLabel(cfg *config.Config) string {
	if cfg.Anthropic.UseBedrock {
		return "aws-bedrock"
	}
	return cfg.Anthropic.APIKey
}

// buildLogger writes JSON logs to .foreman/foreman.log so the dashboard
// owns the terminal. Headless runs log to stderr instead.
func buildLogger(projectRoot string, headless bool) (*zap.Logger, error) {
	if headless {
		return zap.NewProduction()
	}

	logDir := filepath.Join(projectRoot, ".foreman")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(logDir, "foreman.log")}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
