package distribution

import (
	"fmt"
	"sort"
	"sync"

	"github.com/foremanhq/foreman/pkg/models"
)

// Candidate is the engine's view of one agent at scoring time: its
// declared capabilities plus the tracker's current workload numbers.
type Candidate struct {
	// ID identifies the agent.
	ID string
	// Status is the agent's current lifecycle state.
	Status models.AgentStatus
	// Capabilities is the agent's immutable capability declaration.
	Capabilities models.AgentCapabilities
	// Workload is the tracker's snapshot for this agent.
	Workload models.WorkloadMetrics
}

// CanHandle reports whether the candidate supports the task type and
// has a free concurrency slot.
func (c Candidate) CanHandle(task *models.Task) bool {
	max := c.Capabilities.MaxConcurrentTasks
	if max <= 0 {
		max = 1
	}
	return c.Capabilities.Supports(task.Type) && c.Workload.CurrentTasks < max
}

// available reports whether the candidate is in a state that accepts work.
func (c Candidate) available() bool {
	return c.Status == models.AgentStatusReady || c.Status == models.AgentStatusBusy
}

// Strategy scores candidates for a task and returns ranked assignments,
// best first. An empty result means no candidate qualified.
type Strategy interface {
	// Name returns the strategy's registry key.
	Name() string
	// Evaluate ranks the candidates for the task.
	Evaluate(task *models.Task, candidates []Candidate) []models.TaskAssignment
}

// Strategy registry keys.
const (
	StrategyIntelligent     = "intelligent"
	StrategyRoundRobin      = "round_robin"
	StrategyCapabilityBased = "capability_based"
	StrategyLoadBalanced    = "load_balanced"
)

// minConfidence is the floor below which intelligent assignments are
// discarded rather than handed to a barely-qualified agent.
const minConfidence = 0.3

// IntelligentStrategy is the default scorer. It blends capability fit,
// current load, and track record, with a bonus for urgent tasks:
//
//	confidence = 0.4*capability + 0.3*(1 - load/100) + 0.2*successRate + priorityBonus
//
// Candidates scoring at or below 0.3 are dropped.
type IntelligentStrategy struct{}

// Name implements Strategy.
func (IntelligentStrategy) Name() string { return StrategyIntelligent }

// Evaluate implements Strategy.
func (IntelligentStrategy) Evaluate(task *models.Task, candidates []Candidate) []models.TaskAssignment {
	var ranked []models.TaskAssignment

	for _, c := range candidates {
		if !c.available() || !c.CanHandle(task) {
			continue
		}

		capScore := capabilityScore(task, c)
		loadScore := 1 - c.Workload.EstimatedLoad/100
		if loadScore < 0 {
			loadScore = 0
		}

		confidence := 0.4*capScore + 0.3*loadScore + 0.2*c.Workload.SuccessRate + priorityBonus(task.Priority)
		confidence = clamp01(confidence)
		if confidence <= minConfidence {
			continue
		}

		ranked = append(ranked, models.TaskAssignment{
			AgentID:           c.ID,
			Confidence:        confidence,
			EstimatedDuration: c.Capabilities.DurationFor(task.Type, taskHours(task)),
			Prerequisites:     append([]string(nil), task.Dependencies...),
			Reasoning: fmt.Sprintf("capability %.2f, load %.0f%%, success rate %.2f, priority %s",
				capScore, c.Workload.EstimatedLoad, c.Workload.SuccessRate, task.Priority),
		})
	}

	sortByConfidence(ranked)
	return ranked
}

// capabilityScore rates how well a candidate's skills fit the task.
// Every supporting agent starts at 0.5; skill level adds up to 0.4, and
// a complexity match adds 0.1: expert agents on complex tasks, junior
// agents on simple ones.
func capabilityScore(task *models.Task, c Candidate) float64 {
	score := 0.5 + c.Capabilities.SkillLevel.Bonus()

	complex := taskHours(task) >= 8 || task.Priority == models.PriorityCritical
	simple := taskHours(task) <= 2 && task.Priority != models.PriorityCritical
	switch {
	case complex && c.Capabilities.SkillLevel == models.SkillExpert:
		score += 0.1
	case simple && c.Capabilities.SkillLevel == models.SkillJunior:
		score += 0.1
	}

	return clamp01(score)
}

// priorityBonus nudges urgent tasks toward assignment.
func priorityBonus(p models.TaskPriority) float64 {
	switch p {
	case models.PriorityCritical:
		return 0.1
	case models.PriorityHigh:
		return 0.05
	default:
		return 0
	}
}

// RoundRobinStrategy hands tasks out in rotation among capable READY
// agents, ignoring load and skill. Every pick carries a fixed 0.7
// confidence since no scoring informs it.
type RoundRobinStrategy struct {
	mu   sync.Mutex
	next int
}

// Name implements Strategy.
func (*RoundRobinStrategy) Name() string { return StrategyRoundRobin }

// Evaluate implements Strategy.
func (s *RoundRobinStrategy) Evaluate(task *models.Task, candidates []Candidate) []models.TaskAssignment {
	var eligible []Candidate
	for _, c := range candidates {
		if c.Status == models.AgentStatusReady && c.CanHandle(task) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	s.mu.Lock()
	pick := eligible[s.next%len(eligible)]
	s.next++
	s.mu.Unlock()

	return []models.TaskAssignment{{
		AgentID:           pick.ID,
		Confidence:        0.7,
		EstimatedDuration: pick.Capabilities.DurationFor(task.Type, taskHours(task)),
		Prerequisites:     append([]string(nil), task.Dependencies...),
		Reasoning:         "round-robin rotation",
	}}
}

// CapabilityBasedStrategy ranks purely on capability fit, ignoring
// current load. Candidates must clear a 0.5 capability score, which in
// practice means any agent with a declared skill level qualifies.
type CapabilityBasedStrategy struct{}

// Name implements Strategy.
func (CapabilityBasedStrategy) Name() string { return StrategyCapabilityBased }

// Evaluate implements Strategy.
func (CapabilityBasedStrategy) Evaluate(task *models.Task, candidates []Candidate) []models.TaskAssignment {
	var ranked []models.TaskAssignment

	for _, c := range candidates {
		if !c.available() || !c.CanHandle(task) {
			continue
		}

		score := capabilityScore(task, c)
		if score <= 0.5 {
			continue
		}

		ranked = append(ranked, models.TaskAssignment{
			AgentID:           c.ID,
			Confidence:        score,
			EstimatedDuration: c.Capabilities.DurationFor(task.Type, taskHours(task)),
			Prerequisites:     append([]string(nil), task.Dependencies...),
			Reasoning:         fmt.Sprintf("capability score %.2f at %s skill", score, c.Capabilities.SkillLevel),
		})
	}

	sortByConfidence(ranked)
	return ranked
}

// LoadBalancedStrategy routes work to the least-loaded capable agent.
// Confidence is the agent's idle fraction with a 0.1 floor, so even a
// saturated fleet still yields a ranking.
type LoadBalancedStrategy struct{}

// Name implements Strategy.
func (LoadBalancedStrategy) Name() string { return StrategyLoadBalanced }

// Evaluate implements Strategy.
func (LoadBalancedStrategy) Evaluate(task *models.Task, candidates []Candidate) []models.TaskAssignment {
	var ranked []models.TaskAssignment

	for _, c := range candidates {
		if !c.available() || !c.CanHandle(task) {
			continue
		}

		confidence := 1 - c.Workload.EstimatedLoad/100
		if confidence < 0.1 {
			confidence = 0.1
		}

		ranked = append(ranked, models.TaskAssignment{
			AgentID:           c.ID,
			Confidence:        clamp01(confidence),
			EstimatedDuration: c.Capabilities.DurationFor(task.Type, taskHours(task)),
			Prerequisites:     append([]string(nil), task.Dependencies...),
			Reasoning:         fmt.Sprintf("estimated load %.0f%%", c.Workload.EstimatedLoad),
		})
	}

	sortByConfidence(ranked)
	return ranked
}

// sortByConfidence orders assignments best-first, breaking ties by
// agent ID for deterministic results.
func sortByConfidence(assignments []models.TaskAssignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].Confidence != assignments[j].Confidence {
			return assignments[i].Confidence > assignments[j].Confidence
		}
		return assignments[i].AgentID < assignments[j].AgentID
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
