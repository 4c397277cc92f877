package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/config"
	"github.com/foremanhq/foreman/internal/coordinator"
	"github.com/foremanhq/foreman/internal/monitor"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the project task board",
	Long: `Open the dashboard over the project database without starting the
coordinator. Useful for watching a headless run from another terminal.

Agent panels stay empty; agent state lives with the coordinating
process. Task progress, blockers, and forecasts come from the shared
database.`,
	RunE: runMonitor,
}

// observedFleet is the empty fleet a read-only dashboard renders.
type observedFleet struct{}

func (observedFleet) Agents() []*agent.Runtime { return nil }

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := store.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No project state found. Run 'foreman run' first.")
		return nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon := monitor.New(cfg.Project.ID, db, observedFleet{}, zap.NewNop(),
		monitor.WithSampleInterval(cfg.Intervals.Sample))
	mon.Start(ctx)
	defer mon.Stop()

	app := tui.NewApp(cfg.Project.ID, db, observedFleet{},
		tui.WithRefreshRate(cfg.TUI.RefreshRate))

	events := make(chan coordinator.Event)
	return tui.Run(ctx, app, events, mon.Alerts())
}
