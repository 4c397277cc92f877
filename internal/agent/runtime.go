package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/pkg/models"
)

// ErrInvalidTransition indicates an invalid lifecycle transition was attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// Config holds what a runtime needs before it can accept work.
type Config struct {
	// Credentials is the API credential the executor will use.
	Credentials string
	// WorkingDir is the directory the agent operates in. Must exist.
	WorkingDir string
}

// validTransitions defines the allowed lifecycle transitions.
// ERROR is additionally reachable from every state.
var validTransitions = map[models.AgentStatus]map[models.AgentStatus]bool{
	models.AgentStatusInitializing: {
		models.AgentStatusReady:   true,
		models.AgentStatusOffline: true,
	},
	models.AgentStatusReady: {
		models.AgentStatusBusy:    true,
		models.AgentStatusBlocked: true,
		models.AgentStatusOffline: true,
	},
	models.AgentStatusBusy: {
		models.AgentStatusReady:   true,
		models.AgentStatusOffline: true,
	},
	models.AgentStatusBlocked: {
		models.AgentStatusReady:   true,
		models.AgentStatusOffline: true,
	},
	// Offline is terminal until Restart re-enters initializing.
	models.AgentStatusOffline: {
		models.AgentStatusInitializing: true,
	},
	models.AgentStatusError: {},
}

// CanTransition checks whether a lifecycle transition is valid.
// ERROR is reachable from every state.
func CanTransition(from, to models.AgentStatus) bool {
	if to == models.AgentStatusError {
		return true
	}
	return validTransitions[from][to]
}

// Runtime wraps one worker's lifecycle and task-execution bookkeeping.
// It exclusively owns its status, current task set, and progress records;
// other components only read them through accessor methods.
type Runtime struct {
	id        string
	caps      models.AgentCapabilities
	executors *ExecutorRegistry
	logger    *zap.Logger

	mu           sync.RWMutex
	status       models.AgentStatus
	currentTasks map[string]time.Time
	progress     map[string]*models.TaskProgress
	readyAt      time.Time
	lastError    string

	// completion counters, folded under mu; reset only by Restart.
	completed  int
	succeeded  int
	totalHours float64
}

// NewRuntime creates a runtime in the INITIALIZING state.
// The capabilities are fixed for the life of the runtime.
func NewRuntime(id string, caps models.AgentCapabilities, executors *ExecutorRegistry, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	if caps.MaxConcurrentTasks <= 0 {
		caps.MaxConcurrentTasks = 1
	}
	return &Runtime{
		id:           id,
		caps:         caps,
		executors:    executors,
		logger:       logger.With(zap.String("agent", id)),
		status:       models.AgentStatusInitializing,
		currentTasks: make(map[string]time.Time),
		progress:     make(map[string]*models.TaskProgress),
	}
}

// ID returns the runtime's identifier.
func (r *Runtime) ID() string {
	return r.id
}

// Capabilities returns the immutable capability declaration.
func (r *Runtime) Capabilities() models.AgentCapabilities {
	return r.caps
}

// Status returns the current lifecycle state.
func (r *Runtime) Status() models.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Initialize validates the runtime configuration and transitions to READY.
// Missing credentials or working directory fail with CONFIG_INVALID; any
// initialization failure leaves the runtime in ERROR and is reported as
// AGENT_INIT_FAILED.
func (r *Runtime) Initialize(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !CanTransition(r.status, models.AgentStatusReady) {
		return fmt.Errorf("%w: initialize from %s", ErrInvalidTransition, r.status)
	}

	if err := validateConfig(cfg); err != nil {
		r.status = models.AgentStatusError
		r.lastError = err.Error()
		r.logger.Error("initialization failed", zap.Error(err))
		return fault.Wrap(fault.AgentInitFailed, err, "agent %s failed to initialize", r.id)
	}

	r.status = models.AgentStatusReady
	r.readyAt = time.Now()
	r.logger.Info("agent ready",
		zap.String("skill", string(r.caps.SkillLevel)),
		zap.Int("max_concurrent", r.caps.MaxConcurrentTasks))
	return nil
}

// validateConfig checks the required credentials and working directory.
func validateConfig(cfg Config) error {
	if cfg.Credentials == "" {
		return fault.New(fault.ConfigInvalid, "credentials are required")
	}
	if cfg.WorkingDir == "" {
		return fault.New(fault.ConfigInvalid, "working directory is required")
	}
	info, err := os.Stat(cfg.WorkingDir)
	if err != nil || !info.IsDir() {
		return fault.New(fault.ConfigInvalid, "working directory %s does not exist", cfg.WorkingDir)
	}
	return nil
}

// CanHandleTask reports whether the runtime could take the task right now:
// the task type is supported and a concurrency slot is free. Pure read,
// no side effects.
func (r *Runtime) CanHandleTask(task *models.Task) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canHandleLocked(task)
}

func (r *Runtime) canHandleLocked(task *models.Task) bool {
	return r.caps.Supports(task.Type) && len(r.currentTasks) < r.caps.MaxConcurrentTasks
}

// accepting reports whether the lifecycle state admits new work.
// BUSY counts as accepting: capacity is gated by CanHandleTask, so a
// multi-slot agent keeps taking tasks until its slots fill up.
func (r *Runtime) acceptingLocked() bool {
	return r.status == models.AgentStatusReady || r.status == models.AgentStatusBusy
}

// ExecuteTask runs a task to completion on this runtime.
// It fails with TASK_NOT_SUPPORTED when CanHandleTask is false and
// AGENT_NOT_READY when the lifecycle state does not admit work.
// Executor errors and panics are converted into a FAILURE result;
// they never propagate as errors and never crash the runtime.
func (r *Runtime) ExecuteTask(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
	r.mu.Lock()

	if !r.acceptingLocked() {
		status := r.status
		r.mu.Unlock()
		return nil, fault.New(fault.AgentNotReady, "agent %s is %s", r.id, status)
	}
	if !r.canHandleLocked(task) {
		r.mu.Unlock()
		return nil, fault.New(fault.TaskNotSupported, "agent %s cannot handle task %s (type %s)", r.id, task.ID, task.Type)
	}

	exec, ok := r.executors.Lookup(task.Type)
	if !ok {
		r.mu.Unlock()
		return nil, fault.New(fault.TaskNotSupported, "no executor registered for task type %s", task.Type)
	}

	accepted := time.Now()
	r.currentTasks[task.ID] = accepted
	r.progress[task.ID] = &models.TaskProgress{
		Percentage:  0,
		CurrentStep: "starting",
		LastUpdate:  accepted,
	}
	r.status = models.AgentStatusBusy
	r.mu.Unlock()

	r.logger.Info("executing task",
		zap.String("task", task.ID),
		zap.String("type", string(task.Type)))

	result := r.runExecutor(ctx, exec, task)
	result.TaskID = task.ID
	result.Duration = time.Since(accepted)

	r.finishTask(task, result)
	return result, nil
}

// runExecutor invokes the executor, converting errors and panics into a
// failure result.
func (r *Runtime) runExecutor(ctx context.Context, exec TaskExecutor, task *models.Task) (result *models.TaskResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("executor panicked",
				zap.String("task", task.ID),
				zap.Any("panic", rec))
			result = &models.TaskResult{
				Status: models.ResultFailure,
				Errors: []string{fmt.Sprintf("executor panic: %v", rec)},
			}
		}
	}()

	res, err := exec(ctx, task)
	if err != nil {
		r.logger.Warn("executor failed",
			zap.String("task", task.ID),
			zap.Error(err))
		return &models.TaskResult{
			Status: models.ResultFailure,
			Errors: []string{err.Error()},
		}
	}
	if res == nil {
		return &models.TaskResult{
			Status: models.ResultFailure,
			Errors: []string{"executor returned no result"},
		}
	}
	return res
}

// finishTask removes the task from the active set, folds completion
// metrics, and recomputes the lifecycle state.
func (r *Runtime) finishTask(task *models.Task, result *models.TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.currentTasks, task.ID)
	delete(r.progress, task.ID)

	r.completed++
	if result.Status == models.ResultSuccess {
		r.succeeded++
	}
	r.totalHours += result.Duration.Hours()

	// A stop or fault during execution wins over the normal recompute.
	if r.status == models.AgentStatusBusy {
		if len(r.currentTasks) > 0 {
			r.status = models.AgentStatusBusy
		} else {
			r.status = models.AgentStatusReady
		}
	}
}

// UpdateTaskProgress records a progress report for an in-flight task.
// Updates are last-write-wins; reports for unknown tasks are ignored.
func (r *Runtime) UpdateTaskProgress(taskID string, percentage float64, step string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	accepted, ok := r.currentTasks[taskID]
	if !ok {
		return
	}

	r.progress[taskID] = &models.TaskProgress{
		Percentage:  percentage,
		CurrentStep: step,
		TimeSpent:   time.Since(accepted),
		LastUpdate:  time.Now(),
	}
}

// TaskProgress returns the progress record for a task, or nil when the
// task is not in flight on this runtime.
func (r *Runtime) TaskProgress(taskID string) *models.TaskProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.progress[taskID]
	if !ok {
		return nil
	}
	copied := *p
	return &copied
}

// CurrentTaskIDs returns the IDs of tasks currently in flight.
func (r *Runtime) CurrentTaskIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.currentTasks))
	for id := range r.currentTasks {
		ids = append(ids, id)
	}
	return ids
}

// Metrics derives the runtime's workload metrics from its counters.
// A runtime with no completions yet reports a full success rate so new
// agents are not penalized by assignment strategies.
func (r *Runtime) Metrics() models.WorkloadMetrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := models.WorkloadMetrics{
		CurrentTasks: len(r.currentTasks),
		SuccessRate:  1.0,
	}
	if r.caps.MaxConcurrentTasks > 0 {
		m.EstimatedLoad = float64(len(r.currentTasks)) / float64(r.caps.MaxConcurrentTasks) * 100
	}
	if r.completed > 0 {
		m.SuccessRate = float64(r.succeeded) / float64(r.completed)
		m.AverageCompletionTime = r.totalHours / float64(r.completed)
	}
	if uptime := r.uptimeLocked(); uptime > time.Minute {
		m.TasksPerHour = float64(r.completed) / uptime.Hours()
	}
	m.Specializations = append(m.Specializations, r.caps.SupportedTaskTypes...)
	return m
}

// Stop takes the runtime offline and cancels bookkeeping for every
// assigned task. Cancellation is cooperative: in-flight executors are not
// preempted, but their completions no longer mutate runtime state.
func (r *Runtime) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == models.AgentStatusOffline {
		return
	}

	dropped := len(r.currentTasks)
	r.currentTasks = make(map[string]time.Time)
	r.progress = make(map[string]*models.TaskProgress)
	r.status = models.AgentStatusOffline

	r.logger.Info("agent stopped", zap.Int("cancelled_tasks", dropped))
}

// Restart re-enters the lifecycle from OFFLINE, clearing counters and the
// last error. Restarting a runtime that is not offline is an error.
func (r *Runtime) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !CanTransition(r.status, models.AgentStatusInitializing) {
		return fmt.Errorf("%w: restart from %s", ErrInvalidTransition, r.status)
	}

	r.status = models.AgentStatusInitializing
	r.lastError = ""
	r.completed = 0
	r.succeeded = 0
	r.totalHours = 0
	r.readyAt = time.Time{}
	return nil
}

// Fault moves the runtime into ERROR from any state, recording the cause.
func (r *Runtime) Fault(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status = models.AgentStatusError
	r.lastError = reason
	r.logger.Error("agent faulted", zap.String("reason", reason))
}

// uptimeLocked returns how long the runtime has been available.
func (r *Runtime) uptimeLocked() time.Duration {
	if r.readyAt.IsZero() {
		return 0
	}
	return time.Since(r.readyAt)
}
