// Package models defines the shared data types for the Foreman scheduler:
// tasks, agents, messages, and execution results.
package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusNotStarted indicates the task has not been picked up.
	TaskStatusNotStarted TaskStatus = "not_started"
	// TaskStatusInProgress indicates an agent is working on the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusBlocked indicates the task cannot proceed.
	TaskStatusBlocked TaskStatus = "blocked"
	// TaskStatusReview indicates the task output is awaiting review.
	TaskStatusReview TaskStatus = "review"
	// TaskStatusTesting indicates the task output is being verified.
	TaskStatusTesting TaskStatus = "testing"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusDeferred indicates the task was postponed indefinitely.
	TaskStatusDeferred TaskStatus = "deferred"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusReview, TaskStatusTesting, TaskStatusCompleted, TaskStatusDeferred:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status represents finished work.
// Completed and deferred tasks contribute nothing to remaining effort.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusDeferred
}

// TaskType classifies the kind of development work a task requires.
type TaskType string

const (
	// TaskTypeArchitecture covers system design and technical planning work.
	TaskTypeArchitecture TaskType = "architecture"
	// TaskTypeFrontend covers UI and client-side work.
	TaskTypeFrontend TaskType = "frontend"
	// TaskTypeBackend covers server-side and API work.
	TaskTypeBackend TaskType = "backend"
	// TaskTypeTesting covers QA and test-authoring work.
	TaskTypeTesting TaskType = "testing"
	// TaskTypeDeployment covers release and infrastructure work.
	TaskTypeDeployment TaskType = "deployment"
	// TaskTypeIntegration covers cross-component wiring work.
	TaskTypeIntegration TaskType = "integration"
)

// Valid returns true if the type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeArchitecture, TaskTypeFrontend, TaskTypeBackend,
		TaskTypeTesting, TaskTypeDeployment, TaskTypeIntegration:
		return true
	default:
		return false
	}
}

// TaskPriority ranks how urgent a task is.
type TaskPriority string

const (
	// PriorityCritical marks tasks whose delay endangers the project.
	PriorityCritical TaskPriority = "critical"
	// PriorityHigh marks important near-term tasks.
	PriorityHigh TaskPriority = "high"
	// PriorityMedium marks normal-priority tasks.
	PriorityMedium TaskPriority = "medium"
	// PriorityLow marks tasks that can wait.
	PriorityLow TaskPriority = "low"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns the priority on a 1-4 scale where critical is 4.
// Unknown priorities rank lowest.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description,omitempty"`
	// Type classifies the development work required.
	Type TaskType `json:"type"`
	// Priority ranks how urgent the task is.
	Priority TaskPriority `json:"priority"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// AssignedTo is the ID of the agent working on this task.
	// An in-progress task always has an assignee.
	AssignedTo string `json:"assigned_to,omitempty"`
	// Dependencies lists task IDs that must complete before this task.
	Dependencies []string `json:"dependencies,omitempty"`
	// Blockers describes conditions currently preventing progress.
	Blockers []string `json:"blockers,omitempty"`
	// EstimatedHours is the effort estimate for the task.
	EstimatedHours float64 `json:"estimated_hours"`
	// ActualHours is the effort spent so far, if tracked.
	ActualHours float64 `json:"actual_hours,omitempty"`
	// Tags holds free-form labels for filtering.
	Tags []string `json:"tags,omitempty"`
	// Metadata holds arbitrary key-value context, e.g. the project phase
	// under the "phase" key.
	Metadata map[string]string `json:"metadata,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last modified.
	UpdatedAt time.Time `json:"updated_at"`
	// DueDate is the target completion date, if any.
	DueDate *time.Time `json:"due_date,omitempty"`
}

// Phase returns the project phase recorded in the task metadata,
// or "unphased" when none is set.
func (t *Task) Phase() string {
	if t.Metadata != nil {
		if phase, ok := t.Metadata["phase"]; ok && phase != "" {
			return phase
		}
	}
	return "unphased"
}
