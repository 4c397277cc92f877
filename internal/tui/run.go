package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/foremanhq/foreman/internal/coordinator"
	"github.com/foremanhq/foreman/internal/monitor"
)

// Run starts the dashboard and pumps coordinator events and monitor
// alerts into it until the context ends or the user quits.
func Run(ctx context.Context, app *App, events <-chan coordinator.Event, alerts <-chan monitor.ProgressAlert) error {
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				program.Send(EventMsg{Event: event})
			case alert, ok := <-alerts:
				if !ok {
					return
				}
				program.Send(AlertMsg{Alert: alert})
			}
		}
	}()

	_, err := program.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		// Context cancellation is a normal shutdown, not a failure.
		return nil
	}
	return err
}
