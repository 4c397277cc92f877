package coordinator

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/foremanhq/foreman/pkg/models"
)

// TaskTemplate describes one task in a project template. Dependencies
// reference other templates by key, not by task ID; keys are resolved
// to generated IDs when the project is seeded.
type TaskTemplate struct {
	Key            string              `yaml:"key"`
	Title          string              `yaml:"title"`
	Description    string              `yaml:"description,omitempty"`
	Type           models.TaskType     `yaml:"type"`
	Priority       models.TaskPriority `yaml:"priority"`
	DependsOn      []string            `yaml:"depends_on,omitempty"`
	EstimatedHours float64             `yaml:"estimated_hours,omitempty"`
	Phase          string              `yaml:"phase,omitempty"`
	Tags           []string            `yaml:"tags,omitempty"`
}

// ProjectTemplate is the YAML shape of a seedable project plan.
type ProjectTemplate struct {
	Name  string         `yaml:"name"`
	Tasks []TaskTemplate `yaml:"tasks"`
}

// LoadProjectTemplate reads and validates a project template file.
func LoadProjectTemplate(path string) (*ProjectTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project template: %w", err)
	}

	var tmpl ProjectTemplate
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing project template %s: %w", path, err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project template %s: %w", path, err)
	}
	return &tmpl, nil
}

// Validate checks template keys, types, priorities, and dependency
// references before any task is created.
func (t *ProjectTemplate) Validate() error {
	if len(t.Tasks) == 0 {
		return fmt.Errorf("template defines no tasks")
	}

	keys := make(map[string]bool, len(t.Tasks))
	for i, task := range t.Tasks {
		if task.Key == "" {
			return fmt.Errorf("task %d has no key", i)
		}
		if keys[task.Key] {
			return fmt.Errorf("duplicate task key %q", task.Key)
		}
		keys[task.Key] = true

		if task.Title == "" {
			return fmt.Errorf("task %q has no title", task.Key)
		}
		if !task.Type.Valid() {
			return fmt.Errorf("task %q has unknown type %q", task.Key, task.Type)
		}
		if task.Priority != "" && !task.Priority.Valid() {
			return fmt.Errorf("task %q has unknown priority %q", task.Key, task.Priority)
		}
	}

	for _, task := range t.Tasks {
		for _, dep := range task.DependsOn {
			if !keys[dep] {
				return fmt.Errorf("task %q depends on unknown key %q", task.Key, dep)
			}
		}
	}
	return nil
}

// SeedProject creates one task per template entry, resolving key-based
// dependencies into generated task IDs. Returns the created tasks in
// template order. Nothing is created when validation fails.
func (c *Coordinator) SeedProject(tmpl *ProjectTemplate) ([]*models.Task, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	idByKey := make(map[string]string, len(tmpl.Tasks))
	for _, tt := range tmpl.Tasks {
		idByKey[tt.Key] = uuid.NewString()
	}

	now := time.Now()
	created := make([]*models.Task, 0, len(tmpl.Tasks))
	for _, tt := range tmpl.Tasks {
		priority := tt.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}

		deps := make([]string, 0, len(tt.DependsOn))
		for _, dep := range tt.DependsOn {
			deps = append(deps, idByKey[dep])
		}

		task := &models.Task{
			ID:             idByKey[tt.Key],
			Title:          tt.Title,
			Description:    tt.Description,
			Type:           tt.Type,
			Priority:       priority,
			Status:         models.TaskStatusNotStarted,
			Dependencies:   deps,
			EstimatedHours: tt.EstimatedHours,
			Tags:           append([]string(nil), tt.Tags...),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if tt.Phase != "" {
			task.Metadata = map[string]string{"phase": tt.Phase}
		}

		if err := c.tasks.CreateTask(task); err != nil {
			return created, fmt.Errorf("creating task %q: %w", tt.Key, err)
		}
		created = append(created, task)
	}

	c.logger.Info("project seeded",
		zap.String("project", tmpl.Name),
		zap.Int("tasks", len(created)))
	return created, nil
}
