package distribution

import (
	"sync"

	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/pkg/models"
)

// Engine matches tasks to agents. It owns the strategy registry and the
// fleet workload tracker; the coordinator feeds it candidates and acts
// on the assignments it returns.
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	defaultStr string
	workloads  *WorkloadTracker
	logger     *zap.Logger
}

// NewEngine creates an engine with the four built-in strategies
// registered and intelligent as the default.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		strategies: make(map[string]Strategy),
		defaultStr: StrategyIntelligent,
		workloads:  NewWorkloadTracker(),
		logger:     logger,
	}

	e.RegisterStrategy(IntelligentStrategy{})
	e.RegisterStrategy(&RoundRobinStrategy{})
	e.RegisterStrategy(CapabilityBasedStrategy{})
	e.RegisterStrategy(LoadBalancedStrategy{})

	return e
}

// RegisterStrategy adds or replaces a strategy under its name.
func (e *Engine) RegisterStrategy(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// SetDefaultStrategy changes which strategy an empty name resolves to.
// Returns STRATEGY_NOT_FOUND when the name is not registered.
func (e *Engine) SetDefaultStrategy(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.strategies[name]; !ok {
		return fault.New(fault.StrategyNotFound, "unknown distribution strategy: %s", name)
	}
	e.defaultStr = name
	return nil
}

// Workloads exposes the engine-owned workload tracker. The coordinator
// records assignments and completions through it so strategy scoring
// always sees the latest load.
func (e *Engine) Workloads() *WorkloadTracker {
	return e.workloads
}

// DistributeTask picks the best agent for the task using the named
// strategy (empty means the default). Returns nil with no error when no
// candidate qualifies; a nil result is a normal outcome, not a failure.
func (e *Engine) DistributeTask(task *models.Task, candidates []Candidate, strategyName string) (*models.TaskAssignment, error) {
	e.mu.RLock()
	if strategyName == "" {
		strategyName = e.defaultStr
	}
	strategy, ok := e.strategies[strategyName]
	e.mu.RUnlock()

	if !ok {
		return nil, fault.New(fault.StrategyNotFound, "unknown distribution strategy: %s", strategyName)
	}

	// Refresh each candidate's workload from the tracker so callers
	// don't have to assemble consistent numbers themselves.
	for i := range candidates {
		candidates[i].Workload = e.workloads.Metrics(candidates[i].ID)
	}

	ranked := strategy.Evaluate(task, candidates)
	if len(ranked) == 0 {
		e.logger.Info("no qualified agent for task",
			zap.String("task", task.ID),
			zap.String("strategy", strategyName))
		return nil, nil
	}

	best := ranked[0]
	e.logger.Info("task distributed",
		zap.String("task", task.ID),
		zap.String("agent", best.AgentID),
		zap.Float64("confidence", best.Confidence),
		zap.String("strategy", strategyName))
	return &best, nil
}

// RankCandidates returns the full ranked assignment list instead of
// just the winner, for diagnostics and dry runs.
func (e *Engine) RankCandidates(task *models.Task, candidates []Candidate, strategyName string) ([]models.TaskAssignment, error) {
	e.mu.RLock()
	if strategyName == "" {
		strategyName = e.defaultStr
	}
	strategy, ok := e.strategies[strategyName]
	e.mu.RUnlock()

	if !ok {
		return nil, fault.New(fault.StrategyNotFound, "unknown distribution strategy: %s", strategyName)
	}

	for i := range candidates {
		candidates[i].Workload = e.workloads.Metrics(candidates[i].ID)
	}
	return strategy.Evaluate(task, candidates), nil
}
