// Package agent provides the per-agent runtime: lifecycle state machine,
// task execution bookkeeping, and health reporting.
package agent

import (
	"context"
	"sync"

	"github.com/foremanhq/foreman/pkg/models"
)

// TaskExecutor performs the actual work for one task. It is the injection
// point for task-specific behavior; the scheduler only depends on its
// return contract. Implementations may block for a long time and should
// honor context cancellation.
type TaskExecutor func(ctx context.Context, task *models.Task) (*models.TaskResult, error)

// ExecutorRegistry maps task types to executors. A runtime consults the
// registry when a task is accepted; the registry itself is populated once
// at startup by the hosting application.
type ExecutorRegistry struct {
	mu       sync.RWMutex
	byType   map[models.TaskType]TaskExecutor
	fallback TaskExecutor
}

// NewExecutorRegistry creates an empty registry.
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{
		byType: make(map[models.TaskType]TaskExecutor),
	}
}

// Register binds an executor to a task type, replacing any previous binding.
func (r *ExecutorRegistry) Register(taskType models.TaskType, exec TaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[taskType] = exec
}

// RegisterFallback binds an executor used for task types with no
// specific binding.
func (r *ExecutorRegistry) RegisterFallback(exec TaskExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = exec
}

// Lookup returns the executor for a task type, falling back to the
// default executor when no specific binding exists.
func (r *ExecutorRegistry) Lookup(taskType models.TaskType) (TaskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if exec, ok := r.byType[taskType]; ok {
		return exec, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}
