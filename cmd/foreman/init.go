package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a Foreman project",
	Long: `Initialize a directory for use with Foreman.

This command sets up everything needed to run Foreman:
  - Creates the .foreman state directory
  - Writes an example fleet definition (fleet.yaml)
  - Writes an example project template (project.yaml)

The directory argument is optional and defaults to the current directory.

Examples:
  foreman init              # Initialize current directory
  foreman init ./myproject  # Initialize specific directory
  foreman init --force      # Overwrite existing example files`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing example files")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	green := color.New(color.FgGreen)

	stateDir := filepath.Join(absPath, ".foreman")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	green.Println("✓ Created .foreman directory")

	if err := writeExample(filepath.Join(absPath, "fleet.yaml"), exampleFleet); err != nil {
		return err
	}
	if err := writeExample(filepath.Join(absPath, "project.yaml"), exampleProject); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit fleet.yaml to describe your agents")
	fmt.Println("  2. Edit project.yaml to describe your tasks")
	fmt.Println("  3. export ANTHROPIC_API_KEY=...")
	fmt.Println("  4. foreman run --template project.yaml")
	return nil
}

// writeExample writes a starter file, refusing to clobber unless --force.
func writeExample(path string, content string) error {
	if _, err := os.Stat(path); err == nil && !initForce {
		color.New(color.FgYellow).Printf("- %s already exists, skipping (use --force to overwrite)\n", filepath.Base(path))
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	color.New(color.FgGreen).Printf("✓ Wrote %s\n", filepath.Base(path))
	return nil
}

const exampleFleet = `agents:
  - id: backend-1
    role: backend engineer
    task_types: [backend, integration]
    skill_level: senior
    max_concurrent_tasks: 2
    estimated_hours:
      backend: 6
  - id: frontend-1
    role: frontend engineer
    task_types: [frontend]
    skill_level: mid
  - id: qa-1
    role: QA engineer
    task_types: [testing]
    skill_level: mid
`

const exampleProject = `name: example project
tasks:
  - key: api
    title: Build the orders API
    type: backend
    priority: high
    estimated_hours: 8
    phase: build
  - key: ui
    title: Build the orders page
    type: frontend
    priority: medium
    estimated_hours: 6
    phase: build
    depends_on: [api]
  - key: e2e
    title: End-to-end order flow tests
    type: testing
    priority: medium
    estimated_hours: 4
    phase: verify
    depends_on: [api, ui]
`
