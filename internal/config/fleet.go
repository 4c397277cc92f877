package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/foremanhq/foreman/pkg/models"
)

// AgentDefinition declares one agent in the fleet file.
type AgentDefinition struct {
	// ID identifies the agent; must be unique within the fleet.
	ID string `yaml:"id"`
	// Role is the human-readable role fed into the executor prompt.
	Role string `yaml:"role"`
	// TaskTypes lists the task types the agent supports.
	TaskTypes []models.TaskType `yaml:"task_types"`
	// SkillLevel grades the agent's proficiency.
	SkillLevel models.SkillLevel `yaml:"skill_level"`
	// MaxConcurrentTasks bounds the agent's concurrency. Defaults to 1.
	MaxConcurrentTasks int `yaml:"max_concurrent_tasks,omitempty"`
	// EstimatedHours maps task types to expected effort.
	EstimatedHours map[models.TaskType]float64 `yaml:"estimated_hours,omitempty"`
}

// Capabilities converts the definition into the runtime declaration.
func (d AgentDefinition) Capabilities() models.AgentCapabilities {
	return models.AgentCapabilities{
		SupportedTaskTypes:    append([]models.TaskType(nil), d.TaskTypes...),
		SkillLevel:            d.SkillLevel,
		MaxConcurrentTasks:    d.MaxConcurrentTasks,
		EstimatedTaskDuration: d.EstimatedHours,
	}
}

// Fleet is the set of agents defined for a project.
type Fleet struct {
	Agents []AgentDefinition `yaml:"agents"`
}

// LoadFleet reads and validates a fleet definition file.
func LoadFleet(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet file: %w", err)
	}

	var fleet Fleet
	if err := yaml.Unmarshal(data, &fleet); err != nil {
		return nil, fmt.Errorf("parsing fleet file %s: %w", path, err)
	}
	if err := fleet.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fleet file %s: %w", path, err)
	}
	return &fleet, nil
}

// Validate checks IDs, task types, and skill levels.
func (f *Fleet) Validate() error {
	if len(f.Agents) == 0 {
		return fmt.Errorf("fleet defines no agents")
	}

	seen := make(map[string]bool, len(f.Agents))
	for i, def := range f.Agents {
		if def.ID == "" {
			return fmt.Errorf("agent %d has no id", i)
		}
		if seen[def.ID] {
			return fmt.Errorf("duplicate agent id %q", def.ID)
		}
		seen[def.ID] = true

		if len(def.TaskTypes) == 0 {
			return fmt.Errorf("agent %q supports no task types", def.ID)
		}
		for _, taskType := range def.TaskTypes {
			if !taskType.Valid() {
				return fmt.Errorf("agent %q has unknown task type %q", def.ID, taskType)
			}
		}
		if !def.SkillLevel.Valid() {
			return fmt.Errorf("agent %q has unknown skill level %q", def.ID, def.SkillLevel)
		}
		if def.MaxConcurrentTasks < 0 {
			return fmt.Errorf("agent %q has negative max_concurrent_tasks", def.ID)
		}
	}
	return nil
}
