package agent

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/pkg/models"
)

// newTestRuntime returns a READY runtime with the given capabilities and
// a registry whose fallback executor reports success.
func newTestRuntime(t *testing.T, caps models.AgentCapabilities, exec TaskExecutor) *Runtime {
	t.Helper()

	registry := NewExecutorRegistry()
	if exec == nil {
		exec = func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
			return &models.TaskResult{Status: models.ResultSuccess, Output: "done"}, nil
		}
	}
	registry.RegisterFallback(exec)

	rt := NewRuntime("agent-1", caps, registry, zap.NewNop())
	if err := rt.Initialize(Config{Credentials: "test-key", WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return rt
}

func backendTask(id string) *models.Task {
	return &models.Task{
		ID:       id,
		Title:    "task " + id,
		Type:     models.TaskTypeBackend,
		Priority: models.PriorityMedium,
		Status:   models.TaskStatusNotStarted,
	}
}

func TestInitializeMissingCredentials(t *testing.T) {
	rt := NewRuntime("agent-1", models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
	}, NewExecutorRegistry(), zap.NewNop())

	err := rt.Initialize(Config{WorkingDir: t.TempDir()})
	if !fault.IsKind(err, fault.AgentInitFailed) {
		t.Errorf("expected AGENT_INIT_FAILED, got %v", err)
	}
	if !errors.Is(err, fault.New(fault.ConfigInvalid, "")) {
		t.Errorf("expected CONFIG_INVALID cause, got %v", err)
	}
	if rt.Status() != models.AgentStatusError {
		t.Errorf("expected ERROR status, got %s", rt.Status())
	}
}

func TestInitializeMissingWorkingDir(t *testing.T) {
	rt := NewRuntime("agent-1", models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
	}, NewExecutorRegistry(), zap.NewNop())

	err := rt.Initialize(Config{Credentials: "key", WorkingDir: "/does/not/exist"})
	if !fault.IsKind(err, fault.AgentInitFailed) {
		t.Errorf("expected AGENT_INIT_FAILED, got %v", err)
	}
}

func TestCanHandleTask(t *testing.T) {
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeTesting},
		MaxConcurrentTasks: 1,
	}, nil)

	qaTask := &models.Task{ID: "t-1", Type: models.TaskTypeTesting}
	backend := &models.Task{ID: "t-2", Type: models.TaskTypeBackend}

	if !rt.CanHandleTask(qaTask) {
		t.Error("expected testing task to be handleable")
	}
	if rt.CanHandleTask(backend) {
		t.Error("expected backend task to be rejected")
	}
}

func TestExecuteTaskSuccess(t *testing.T) {
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, nil)

	result, err := rt.ExecuteTask(context.Background(), backendTask("t-1"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Status != models.ResultSuccess {
		t.Errorf("expected success, got %s", result.Status)
	}
	if result.TaskID != "t-1" {
		t.Errorf("expected task id t-1, got %s", result.TaskID)
	}
	if rt.Status() != models.AgentStatusReady {
		t.Errorf("expected READY after completion, got %s", rt.Status())
	}
	if len(rt.CurrentTaskIDs()) != 0 {
		t.Errorf("expected no current tasks, got %v", rt.CurrentTaskIDs())
	}
}

func TestExecuteTaskUnsupportedType(t *testing.T) {
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeTesting},
		MaxConcurrentTasks: 1,
	}, nil)

	_, err := rt.ExecuteTask(context.Background(), backendTask("t-1"))
	if !fault.IsKind(err, fault.TaskNotSupported) {
		t.Errorf("expected TASK_NOT_SUPPORTED, got %v", err)
	}
}

func TestExecuteTaskNotReady(t *testing.T) {
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, nil)
	rt.Stop()

	_, err := rt.ExecuteTask(context.Background(), backendTask("t-1"))
	if !fault.IsKind(err, fault.AgentNotReady) {
		t.Errorf("expected AGENT_NOT_READY, got %v", err)
	}
}

func TestExecuteTaskExecutorErrorBecomesFailureResult(t *testing.T) {
	exec := func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		return nil, errors.New("model unavailable")
	}
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, exec)

	result, err := rt.ExecuteTask(context.Background(), backendTask("t-1"))
	if err != nil {
		t.Fatalf("executor error should not propagate, got %v", err)
	}
	if result.Status != models.ResultFailure {
		t.Errorf("expected failure result, got %s", result.Status)
	}
	if len(result.Errors) == 0 {
		t.Error("expected error details in result")
	}
	if rt.Status() != models.AgentStatusReady {
		t.Errorf("runtime should recover to READY, got %s", rt.Status())
	}
}

func TestExecuteTaskExecutorPanicBecomesFailureResult(t *testing.T) {
	exec := func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		panic("boom")
	}
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, exec)

	result, err := rt.ExecuteTask(context.Background(), backendTask("t-1"))
	if err != nil {
		t.Fatalf("executor panic should not propagate, got %v", err)
	}
	if result.Status != models.ResultFailure {
		t.Errorf("expected failure result, got %s", result.Status)
	}
	if rt.Status() != models.AgentStatusReady {
		t.Errorf("runtime should survive a panic, got %s", rt.Status())
	}
}

func TestStatusInspectionDuringExecution(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	exec := func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		close(started)
		<-release
		return &models.TaskResult{Status: models.ResultSuccess}, nil
	}
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, exec)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rt.ExecuteTask(context.Background(), backendTask("t-1"))
	}()

	<-started

	// Status and health queries must not block while a task is in flight.
	if rt.Status() != models.AgentStatusBusy {
		t.Errorf("expected BUSY during execution, got %s", rt.Status())
	}
	health := rt.GetHealthStatus()
	if health.ActiveTasks != 1 {
		t.Errorf("expected 1 active task, got %d", health.ActiveTasks)
	}

	rt.UpdateTaskProgress("t-1", 50, "halfway")
	progress := rt.TaskProgress("t-1")
	if progress == nil || progress.Percentage != 50 {
		t.Errorf("expected 50%% progress, got %+v", progress)
	}

	close(release)
	wg.Wait()
}

func TestUpdateTaskProgressUnknownTaskIsNoop(t *testing.T) {
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, nil)

	rt.UpdateTaskProgress("unknown", 80, "step")
	if rt.TaskProgress("unknown") != nil {
		t.Error("progress should not exist for unknown task")
	}
}

func TestStopCancelsBookkeeping(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	exec := func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		close(started)
		<-release
		return &models.TaskResult{Status: models.ResultSuccess}, nil
	}
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, exec)

	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.ExecuteTask(context.Background(), backendTask("t-1"))
	}()

	<-started
	rt.Stop()

	if rt.Status() != models.AgentStatusOffline {
		t.Errorf("expected OFFLINE, got %s", rt.Status())
	}
	if len(rt.CurrentTaskIDs()) != 0 {
		t.Errorf("expected cleared task set, got %v", rt.CurrentTaskIDs())
	}

	// The in-flight executor finishes, but its completion must not flip
	// the runtime back out of OFFLINE.
	close(release)
	<-done
	if rt.Status() != models.AgentStatusOffline {
		t.Errorf("completion should not resurrect a stopped runtime, got %s", rt.Status())
	}
}

func TestRestart(t *testing.T) {
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 1,
	}, nil)

	if _, err := rt.ExecuteTask(context.Background(), backendTask("t-1")); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if err := rt.Restart(); err == nil {
		t.Error("restart should fail while runtime is not offline")
	}

	rt.Stop()
	if err := rt.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if rt.Status() != models.AgentStatusInitializing {
		t.Errorf("expected INITIALIZING after restart, got %s", rt.Status())
	}

	// Restart resets the completion counters.
	if err := rt.Initialize(Config{Credentials: "key", WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	m := rt.Metrics()
	if m.SuccessRate != 1.0 || m.AverageCompletionTime != 0 {
		t.Errorf("expected reset metrics, got %+v", m)
	}
}

func TestHealthLevels(t *testing.T) {
	rt := NewRuntime("agent-1", models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
	}, NewExecutorRegistry(), zap.NewNop())

	if got := rt.GetHealthStatus().Level; got != HealthDegraded {
		t.Errorf("initializing runtime should be degraded, got %s", got)
	}

	if err := rt.Initialize(Config{Credentials: "key", WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	// Freshly ready runtimes stay degraded through the warmup period.
	if got := rt.GetHealthStatus().Level; got != HealthDegraded {
		t.Errorf("warming runtime should be degraded, got %s", got)
	}

	rt.Stop()
	if got := rt.GetHealthStatus().Level; got != HealthUnhealthy {
		t.Errorf("offline runtime should be unhealthy, got %s", got)
	}
}

func TestMetricsFoldCompletions(t *testing.T) {
	failing := func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		return &models.TaskResult{Status: models.ResultFailure}, nil
	}
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 2,
	}, nil)
	rt.executors.Register(models.TaskTypeBackend, failing)

	if _, err := rt.ExecuteTask(context.Background(), backendTask("t-1")); err != nil {
		t.Fatalf("execute: %v", err)
	}

	m := rt.Metrics()
	if m.SuccessRate != 0 {
		t.Errorf("expected 0 success rate after one failure, got %v", m.SuccessRate)
	}
	if m.CurrentTasks != 0 {
		t.Errorf("expected 0 current tasks, got %d", m.CurrentTasks)
	}
}

func TestMultiSlotConcurrency(t *testing.T) {
	release := make(chan struct{})
	var startedMu sync.Mutex
	started := 0
	ready := make(chan struct{}, 2)
	exec := func(ctx context.Context, task *models.Task) (*models.TaskResult, error) {
		startedMu.Lock()
		started++
		startedMu.Unlock()
		ready <- struct{}{}
		<-release
		return &models.TaskResult{Status: models.ResultSuccess}, nil
	}
	rt := newTestRuntime(t, models.AgentCapabilities{
		SupportedTaskTypes: []models.TaskType{models.TaskTypeBackend},
		MaxConcurrentTasks: 2,
	}, exec)

	var wg sync.WaitGroup
	for _, id := range []string{"t-1", "t-2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := rt.ExecuteTask(context.Background(), backendTask(id)); err != nil {
				t.Errorf("execute %s: %v", id, err)
			}
		}(id)
	}

	<-ready
	<-ready

	// Both slots full: a third task is rejected by capacity.
	if rt.CanHandleTask(backendTask("t-3")) {
		t.Error("expected capacity to be exhausted")
	}

	close(release)
	wg.Wait()

	if rt.Status() != models.AgentStatusReady {
		t.Errorf("expected READY after both complete, got %s", rt.Status())
	}

	startedMu.Lock()
	defer startedMu.Unlock()
	if started != 2 {
		t.Errorf("expected 2 concurrent executions, got %d", started)
	}
}
