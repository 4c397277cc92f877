package store

import "github.com/foremanhq/foreman/pkg/models"

// TaskFilter narrows a task listing. Zero-value fields are ignored.
type TaskFilter struct {
	// Status filters by task status.
	Status models.TaskStatus
	// AssignedTo filters by assignee agent ID.
	AssignedTo string
	// Type filters by task type.
	Type models.TaskType
	// Priority filters by task priority.
	Priority models.TaskPriority
}

// TaskStore is the persistence collaborator for tasks. The coordinator is
// the only writer; every status transition passes through it.
type TaskStore interface {
	CreateTask(task *models.Task) error
	UpdateTask(id string, update TaskUpdate) error
	GetTask(id string) (*models.Task, error)
	GetTasks(filter TaskFilter) ([]*models.Task, error)
	DeleteTask(id string) error
}

// TaskUpdate is a partial task mutation. Nil fields are left unchanged.
type TaskUpdate struct {
	Status      *models.TaskStatus
	AssignedTo  *string
	Blockers    *[]string
	ActualHours *float64
	Metadata    *map[string]string
}

// MessageLog is the persistence collaborator for bus messages.
type MessageLog interface {
	SaveMessage(msg *models.AgentMessage) error
	// GetUnprocessedMessages returns pending messages addressed to the
	// agent plus pending broadcasts, oldest first. An empty agentID
	// returns every pending message.
	GetUnprocessedMessages(agentID string) ([]*models.AgentMessage, error)
	MarkMessageProcessed(id string) error
}
