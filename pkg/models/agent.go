package models

import "time"

// AgentStatus represents the lifecycle state of an agent runtime.
type AgentStatus string

const (
	// AgentStatusInitializing indicates the agent is validating its configuration.
	AgentStatusInitializing AgentStatus = "initializing"
	// AgentStatusReady indicates the agent can accept tasks.
	AgentStatusReady AgentStatus = "ready"
	// AgentStatusBusy indicates the agent has at least one task in flight.
	AgentStatusBusy AgentStatus = "busy"
	// AgentStatusBlocked indicates the agent is waiting on an external condition.
	AgentStatusBlocked AgentStatus = "blocked"
	// AgentStatusError indicates the agent hit an unrecoverable fault.
	AgentStatusError AgentStatus = "error"
	// AgentStatusOffline indicates the agent has been stopped.
	AgentStatusOffline AgentStatus = "offline"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusInitializing, AgentStatusReady, AgentStatusBusy,
		AgentStatusBlocked, AgentStatusError, AgentStatusOffline:
		return true
	default:
		return false
	}
}

// SkillLevel grades an agent's proficiency.
type SkillLevel string

const (
	// SkillJunior is the entry proficiency level.
	SkillJunior SkillLevel = "junior"
	// SkillMid is the intermediate proficiency level.
	SkillMid SkillLevel = "mid"
	// SkillSenior is the advanced proficiency level.
	SkillSenior SkillLevel = "senior"
	// SkillExpert is the highest proficiency level.
	SkillExpert SkillLevel = "expert"
)

// Valid returns true if the skill level is a known value.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillJunior, SkillMid, SkillSenior, SkillExpert:
		return true
	default:
		return false
	}
}

// Bonus returns the confidence-score contribution of the skill level.
func (s SkillLevel) Bonus() float64 {
	switch s {
	case SkillJunior:
		return 0.1
	case SkillMid:
		return 0.2
	case SkillSenior:
		return 0.3
	case SkillExpert:
		return 0.4
	default:
		return 0
	}
}

// AgentCapabilities is the immutable per-agent declaration of what work
// the agent can take on. Set at construction and never mutated.
type AgentCapabilities struct {
	// SupportedTaskTypes lists the task types the agent can execute.
	SupportedTaskTypes []TaskType `json:"supported_task_types" yaml:"supported_task_types"`
	// SkillLevel grades the agent's proficiency.
	SkillLevel SkillLevel `json:"skill_level" yaml:"skill_level"`
	// MaxConcurrentTasks bounds how many tasks the agent runs at once.
	MaxConcurrentTasks int `json:"max_concurrent_tasks" yaml:"max_concurrent_tasks"`
	// EstimatedTaskDuration maps task types to expected hours of work.
	EstimatedTaskDuration map[TaskType]float64 `json:"estimated_task_duration,omitempty" yaml:"estimated_task_duration,omitempty"`
}

// Supports returns true if the agent declares support for the task type.
func (c AgentCapabilities) Supports(t TaskType) bool {
	for _, supported := range c.SupportedTaskTypes {
		if supported == t {
			return true
		}
	}
	return false
}

// DurationFor returns the expected hours for a task type, falling back to
// the given default when the agent declares no estimate.
func (c AgentCapabilities) DurationFor(t TaskType, fallback float64) float64 {
	if c.EstimatedTaskDuration != nil {
		if hours, ok := c.EstimatedTaskDuration[t]; ok && hours > 0 {
			return hours
		}
	}
	return fallback
}

// TaskProgress tracks how far along an agent is on one task.
// Updates are last-write-wins within a single runtime.
type TaskProgress struct {
	// Percentage is the completion estimate in [0,100].
	Percentage float64 `json:"percentage"`
	// CurrentStep describes what the agent is doing right now.
	CurrentStep string `json:"current_step"`
	// TimeSpent is how long the task has been in flight.
	TimeSpent time.Duration `json:"time_spent"`
	// LastUpdate is when the progress was last reported.
	LastUpdate time.Time `json:"last_update"`
}

// WorkloadMetrics aggregates an agent's load and track record.
// Values adjust monotonically; they reset only when the agent restarts.
type WorkloadMetrics struct {
	// CurrentTasks is the number of tasks currently assigned.
	CurrentTasks int `json:"current_tasks"`
	// EstimatedLoad is the agent's utilization on a 0-100 scale.
	EstimatedLoad float64 `json:"estimated_load"`
	// AverageCompletionTime is the mean hours per completed task.
	AverageCompletionTime float64 `json:"average_completion_time"`
	// SuccessRate is the fraction of completed tasks that succeeded.
	SuccessRate float64 `json:"success_rate"`
	// Specializations lists the task types the agent has completed most.
	Specializations []TaskType `json:"specializations,omitempty"`
	// TasksPerHour is the observed completion velocity.
	TasksPerHour float64 `json:"tasks_per_hour"`
}

// TaskAssignment is the ephemeral product of the distribution engine:
// a ranked recommendation to hand a task to one agent. It is consumed
// immediately by the coordinator and never persisted.
type TaskAssignment struct {
	// AgentID identifies the recommended agent.
	AgentID string `json:"agent_id"`
	// Confidence is the [0,1] fitness score for this pairing.
	Confidence float64 `json:"confidence"`
	// EstimatedDuration is the expected hours for the agent to finish.
	EstimatedDuration float64 `json:"estimated_duration"`
	// Prerequisites lists task IDs that should complete first.
	Prerequisites []string `json:"prerequisites,omitempty"`
	// Reasoning explains how the score was derived.
	Reasoning string `json:"reasoning"`
}
