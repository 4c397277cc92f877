package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project task board",
	Long: `Display the state of the project task board.

Shows:
  - Task counts by status
  - Tasks in flight and who they are assigned to
  - Blocked tasks and their blockers`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := store.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No project state found. Run 'foreman run --template <file>' to start.")
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

	tasks, err := db.GetTasks(store.TaskFilter{})
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("Task board is empty.")
		return nil
	}

	printSummary(tasks)
	printInFlight(tasks)
	printBlocked(tasks)
	return nil
}

func printSummary(tasks []*models.Task) {
	counts := make(map[models.TaskStatus]int)
	for _, task := range tasks {
		counts[task.Status]++
	}

	bold := color.New(color.Bold)
	bold.Printf("Tasks (%d total)\n", len(tasks))

	order := []models.TaskStatus{
		models.TaskStatusNotStarted,
		models.TaskStatusInProgress,
		models.TaskStatusReview,
		models.TaskStatusTesting,
		models.TaskStatusBlocked,
		models.TaskStatusCompleted,
		models.TaskStatusDeferred,
	}
	for _, status := range order {
		if counts[status] == 0 {
			continue
		}
		statusColor(status).Printf("  %-12s %d\n", status, counts[status])
	}
	fmt.Println()
}

func printInFlight(tasks []*models.Task) {
	var active []*models.Task
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusInProgress, models.TaskStatusReview, models.TaskStatusTesting:
			active = append(active, task)
		}
	}
	if len(active) == 0 {
		return
	}

	color.New(color.Bold).Println("In flight")
	for _, task := range active {
		assignee := task.AssignedTo
		if assignee == "" {
			assignee = "unassigned"
		}
		fmt.Printf("  %s %s (%s → %s)\n",
			color.GreenString("▶"), task.Title, task.Priority, assignee)
	}
	fmt.Println()
}

func printBlocked(tasks []*models.Task) {
	var blocked []*models.Task
	for _, task := range tasks {
		if task.Status == models.TaskStatusBlocked {
			blocked = append(blocked, task)
		}
	}
	if len(blocked) == 0 {
		return
	}

	color.New(color.Bold).Println("Blocked")
	for _, task := range blocked {
		fmt.Printf("  %s %s\n", color.YellowString("⚠"), task.Title)
		if len(task.Blockers) > 0 {
			fmt.Printf("      %s\n", strings.Join(task.Blockers, "; "))
		}
	}
	fmt.Println()
}

func statusColor(status models.TaskStatus) *color.Color {
	switch status {
	case models.TaskStatusCompleted:
		return color.New(color.FgGreen)
	case models.TaskStatusInProgress, models.TaskStatusReview, models.TaskStatusTesting:
		return color.New(color.FgCyan)
	case models.TaskStatusBlocked:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}
