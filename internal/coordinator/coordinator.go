package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/distribution"
	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/pkg/models"
)

// busSender is the sender name the coordinator stamps on its own messages.
const busSender = "coordinator"

// defaultDispatchInterval is how often the dispatch loop drains the bus.
const defaultDispatchInterval = time.Second

// Coordinator owns the agent registry and the task-to-agent binding.
// All task state transitions are persisted through the task store, and
// all agent communication flows through the message log.
type Coordinator struct {
	tasks    store.TaskStore
	messages store.MessageLog
	engine   *distribution.Engine
	emitter  *Emitter
	logger   *zap.Logger
	signals  *SignalManager
	broker   DecisionBroker

	agentCfg         agent.Config
	dispatchInterval time.Duration

	mu      sync.RWMutex
	agents  map[string]*agent.Runtime
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDispatchInterval overrides the 1-second dispatch tick.
func WithDispatchInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.dispatchInterval = d
		}
	}
}

// WithAgentConfig sets the configuration passed to every agent on start.
func WithAgentConfig(cfg agent.Config) Option {
	return func(c *Coordinator) { c.agentCfg = cfg }
}

// WithSignalManager attaches a filesystem signal watcher; the dispatch
// loop honors its pause and stop signals.
func WithSignalManager(sm *SignalManager) Option {
	return func(c *Coordinator) { c.signals = sm }
}

// WithDecisionBroker attaches the human decision collaborator.
func WithDecisionBroker(b DecisionBroker) Option {
	return func(c *Coordinator) { c.broker = b }
}

// WithEmitter replaces the default event emitter.
func WithEmitter(e *Emitter) Option {
	return func(c *Coordinator) { c.emitter = e }
}

// New creates a coordinator over the given collaborators.
func New(tasks store.TaskStore, messages store.MessageLog, engine *distribution.Engine, logger *zap.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Coordinator{
		tasks:            tasks,
		messages:         messages,
		engine:           engine,
		logger:           logger,
		dispatchInterval: defaultDispatchInterval,
		agents:           make(map[string]*agent.Runtime),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.emitter == nil {
		c.emitter = NewEmitter(256, logger)
	}
	return c
}

// Events exposes the coordinator's event stream.
func (c *Coordinator) Events() <-chan Event {
	return c.emitter.Events()
}

// RegisterAgent adds a runtime to the registry and starts tracking its
// workload. Registering the same ID twice replaces the previous entry.
func (c *Coordinator) RegisterAgent(rt *agent.Runtime) {
	c.mu.Lock()
	c.agents[rt.ID()] = rt
	c.mu.Unlock()

	c.engine.Workloads().Track(rt.ID())
	c.logger.Info("agent registered", zap.String("agent", rt.ID()))
	c.emitter.Emit(Event{Type: EventAgentRegistered, AgentID: rt.ID()})
}

// Agents returns every registered runtime, sorted by ID. The monitor
// samples fleet state through this; runtimes are never mutated by readers.
func (c *Coordinator) Agents() []*agent.Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*agent.Runtime, 0, len(c.agents))
	for _, id := range c.sortedIDsLocked() {
		out = append(out, c.agents[id])
	}
	return out
}

// Agent returns the registered runtime for an ID, or nil.
func (c *Coordinator) Agent(id string) *agent.Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.agents[id]
}

// agentIDs returns the registered agent IDs, sorted for determinism.
func (c *Coordinator) agentIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sortedIDsLocked()
}

// AssignTask binds a task to an agent: it persists the IN_PROGRESS
// transition, charges the agent's workload, and enqueues a
// TASK_ASSIGNMENT message for delivery on the next dispatch tick.
// Fails with TASK_NOT_FOUND, AGENT_NOT_FOUND, or
// AGENT_CANNOT_HANDLE_TASK; on failure the stored task is unchanged.
func (c *Coordinator) AssignTask(ctx context.Context, taskID, agentID string) error {
	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		return err
	}

	rt := c.Agent(agentID)
	if rt == nil {
		return fault.New(fault.AgentNotFound, "agent %s is not registered", agentID)
	}
	if !rt.CanHandleTask(task) {
		return fault.New(fault.AgentCannotHandleTask, "agent %s cannot handle task %s (%s)", agentID, taskID, task.Type)
	}

	status := models.TaskStatusInProgress
	if err := c.tasks.UpdateTask(taskID, store.TaskUpdate{Status: &status, AssignedTo: &agentID}); err != nil {
		return fmt.Errorf("persisting assignment of task %s: %w", taskID, err)
	}

	c.engine.Workloads().RecordAssignment(agentID, task)

	msg := &models.AgentMessage{
		ID:        uuid.NewString(),
		Type:      models.MessageTaskAssignment,
		Sender:    busSender,
		Recipient: agentID,
		Timestamp: time.Now(),
		Payload: map[string]string{
			"task_id": taskID,
			"title":   task.Title,
		},
		Priority:         messagePriorityFor(task.Priority),
		RequiresResponse: true,
	}
	if err := c.messages.SaveMessage(msg); err != nil {
		c.logger.Error("failed to enqueue assignment message",
			zap.String("task", taskID), zap.Error(err))
	}

	c.logger.Info("task assigned",
		zap.String("task", taskID),
		zap.String("agent", agentID))
	c.emitter.Emit(Event{Type: EventTaskAssigned, TaskID: taskID, AgentID: agentID})
	return nil
}

// messagePriorityFor maps task priority onto bus delivery priority.
func messagePriorityFor(p models.TaskPriority) models.MessagePriority {
	switch p {
	case models.PriorityCritical:
		return models.MessagePriorityUrgent
	case models.PriorityLow:
		return models.MessagePriorityLow
	default:
		return models.MessagePriorityNormal
	}
}

// DistributeTask picks the best agent for a task via the named strategy
// (empty for the default) and assigns it. A nil assignment with a nil
// error means no agent qualified and the task remains unassigned.
func (c *Coordinator) DistributeTask(ctx context.Context, taskID, strategyName string) (*models.TaskAssignment, error) {
	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		return nil, err
	}

	assignment, err := c.engine.DistributeTask(task, c.candidates(), strategyName)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, nil
	}

	if err := c.AssignTask(ctx, taskID, assignment.AgentID); err != nil {
		return nil, err
	}
	return assignment, nil
}

// DistributeReady submits every unblocked NOT_STARTED task to the
// distribution engine. Tasks whose dependencies have not completed, or
// whose dependencies finished without clearing their quality gate, are
// left alone. Returns the number of tasks assigned.
func (c *Coordinator) DistributeReady(ctx context.Context, strategyName string) (int, error) {
	all, err := c.tasks.GetTasks(store.TaskFilter{})
	if err != nil {
		return 0, err
	}

	graph, err := distribution.AnalyzeDependencies(all)
	if err != nil {
		return 0, fmt.Errorf("analyzing dependencies: %w", err)
	}

	byID := make(map[string]*models.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}

	assigned := 0
	for _, task := range graph.Ready() {
		if !c.dependentsMayProceed(task, byID) {
			continue
		}
		assignment, err := c.engine.DistributeTask(task, c.candidates(), strategyName)
		if err != nil {
			return assigned, err
		}
		if assignment == nil {
			continue
		}
		if err := c.AssignTask(ctx, task.ID, assignment.AgentID); err != nil {
			return assigned, err
		}
		assigned++
	}
	return assigned, nil
}

// dependentsMayProceed checks the quality gates of a task's completed
// dependencies. A dependency that finished without clearing its gate
// blocks the task from auto-progressing.
func (c *Coordinator) dependentsMayProceed(task *models.Task, byID map[string]*models.Task) bool {
	for _, depID := range task.Dependencies {
		dep, ok := byID[depID]
		if !ok {
			continue
		}
		if dep.Status == models.TaskStatusCompleted && !distribution.EvaluateQualityGates(dep).Passed {
			return false
		}
	}
	return true
}

// candidates snapshots the registry for the distribution engine.
func (c *Coordinator) candidates() []distribution.Candidate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]distribution.Candidate, 0, len(c.agents))
	for _, rt := range c.agents {
		out = append(out, distribution.Candidate{
			ID:           rt.ID(),
			Status:       rt.Status(),
			Capabilities: rt.Capabilities(),
		})
	}
	return out
}

// GetAvailableTasks returns tasks that have not been picked up yet.
func (c *Coordinator) GetAvailableTasks() ([]*models.Task, error) {
	return c.tasks.GetTasks(store.TaskFilter{Status: models.TaskStatusNotStarted})
}

// GetAvailableAgents returns registered agents that can accept work,
// optionally narrowed to those supporting a task type.
func (c *Coordinator) GetAvailableAgents(taskType models.TaskType) []*agent.Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*agent.Runtime
	for _, id := range c.sortedIDsLocked() {
		rt := c.agents[id]
		switch rt.Status() {
		case models.AgentStatusReady, models.AgentStatusBusy:
		default:
			continue
		}
		if taskType != "" && !rt.Capabilities().Supports(taskType) {
			continue
		}
		out = append(out, rt)
	}
	return out
}

func (c *Coordinator) sortedIDsLocked() []string {
	ids := make([]string, 0, len(c.agents))
	for id := range c.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start initializes every registered agent, recovers persisted task
// state, and begins the dispatch loop. Agents that fail initialization
// are left in ERROR and logged; the fleet starts without them.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already running")
	}
	c.running = true
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	agents := make([]*agent.Runtime, 0, len(c.agents))
	for _, rt := range c.agents {
		agents = append(agents, rt)
	}
	c.mu.Unlock()

	for _, rt := range agents {
		if err := rt.Initialize(c.agentCfg); err != nil {
			c.logger.Error("agent failed to start",
				zap.String("agent", rt.ID()), zap.Error(err))
		}
	}

	if err := c.recoverState(); err != nil {
		c.logger.Error("state recovery failed", zap.Error(err))
	}

	c.wg.Add(1)
	go c.dispatchLoop(loopCtx)

	c.logger.Info("coordinator started",
		zap.Int("agents", len(agents)),
		zap.Duration("dispatch_interval", c.dispatchInterval))
	return nil
}

// recoverState reconciles persisted tasks against the live registry
// after a restart. In-progress tasks whose assignee is missing or not
// accepting work are returned to the pool.
func (c *Coordinator) recoverState() error {
	inProgress, err := c.tasks.GetTasks(store.TaskFilter{Status: models.TaskStatusInProgress})
	if err != nil {
		return err
	}

	for _, task := range inProgress {
		rt := c.Agent(task.AssignedTo)
		if rt != nil && (rt.Status() == models.AgentStatusReady || rt.Status() == models.AgentStatusBusy) {
			continue
		}

		status := models.TaskStatusNotStarted
		unassigned := ""
		if err := c.tasks.UpdateTask(task.ID, store.TaskUpdate{Status: &status, AssignedTo: &unassigned}); err != nil {
			return fmt.Errorf("recovering task %s: %w", task.ID, err)
		}
		c.logger.Warn("orphaned task returned to pool",
			zap.String("task", task.ID),
			zap.String("was_assigned_to", task.AssignedTo))
	}
	return nil
}

// Stop shuts the fleet down: every agent is stopped first (each cancels
// its own in-flight bookkeeping), then the dispatch loop is halted.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	agents := make([]*agent.Runtime, 0, len(c.agents))
	for _, rt := range c.agents {
		agents = append(agents, rt)
	}
	c.mu.Unlock()

	for _, rt := range agents {
		rt.Stop()
	}
	cancel()
	c.wg.Wait()

	c.logger.Info("coordinator stopped")
}

// Running reports whether the dispatch loop is active.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}
