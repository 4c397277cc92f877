// Package monitor turns live task and agent state into progress
// snapshots, completion forecasts, and advisory alerts. It only reads
// the state it samples; nothing here mutates a task or an agent.
package monitor

import (
	"sort"
	"strings"
	"time"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/distribution"
	"github.com/foremanhq/foreman/pkg/models"
)

// BlockerType classifies what is holding a task up.
type BlockerType string

const (
	// BlockerDependency indicates the task waits on other tasks.
	BlockerDependency BlockerType = "DEPENDENCY"
	// BlockerResource indicates missing capacity, quota, or infrastructure.
	BlockerResource BlockerType = "RESOURCE"
	// BlockerApproval indicates the task waits on a human decision.
	BlockerApproval BlockerType = "APPROVAL"
	// BlockerExternal indicates a third party is holding the task up.
	BlockerExternal BlockerType = "EXTERNAL"
	// BlockerTechnical is the default class for implementation problems.
	BlockerTechnical BlockerType = "TECHNICAL"
)

// BlockerImpact grades how badly a blocker hurts the schedule.
// It is derived from the blocked task's priority.
type BlockerImpact string

const (
	ImpactCritical BlockerImpact = "CRITICAL"
	ImpactHigh     BlockerImpact = "HIGH"
	ImpactMedium   BlockerImpact = "MEDIUM"
	ImpactLow      BlockerImpact = "LOW"
)

// ProgressBlocker is one blocked task's classified blocking condition.
type ProgressBlocker struct {
	// TaskID is the blocked task.
	TaskID string `json:"task_id"`
	// Description is the blocker text recorded on the task.
	Description string `json:"description"`
	// Type classifies the blocker by keyword match on its description.
	Type BlockerType `json:"type"`
	// Impact is derived from the task's priority.
	Impact BlockerImpact `json:"impact"`
}

// PhaseProgress summarizes one project phase.
type PhaseProgress struct {
	// Phase is the phase name from task metadata.
	Phase string `json:"phase"`
	// TotalTasks counts the tasks in the phase.
	TotalTasks int `json:"total_tasks"`
	// CompletedTasks counts the phase's finished tasks.
	CompletedTasks int `json:"completed_tasks"`
	// ActualProgress is CompletedTasks/TotalTasks on a 0-100 scale.
	ActualProgress float64 `json:"actual_progress"`
	// ExpectedProgress is the share of phase tasks already past due.
	ExpectedProgress float64 `json:"expected_progress"`
	// OnTrack is true when actual progress meets expectations.
	OnTrack bool `json:"on_track"`
}

// AgentProgressStatus is one agent's health and velocity at sample time.
type AgentProgressStatus struct {
	// AgentID identifies the agent.
	AgentID string `json:"agent_id"`
	// Status is the agent's lifecycle state.
	Status models.AgentStatus `json:"status"`
	// Health is the derived health grade.
	Health agent.HealthLevel `json:"health"`
	// ActiveTasks counts the agent's in-flight tasks.
	ActiveTasks int `json:"active_tasks"`
	// TasksPerHour is the observed completion velocity.
	TasksPerHour float64 `json:"tasks_per_hour"`
}

// QualityMetrics aggregates quality gate results over completed tasks.
type QualityMetrics struct {
	// AverageGateScore is the mean overall gate score.
	AverageGateScore float64 `json:"average_gate_score"`
	// GatesPassed counts completed tasks that cleared their gate.
	GatesPassed int `json:"gates_passed"`
	// GatesFailed counts completed tasks that did not.
	GatesFailed int `json:"gates_failed"`
}

// ProgressSnapshot is an immutable point-in-time aggregate of project
// state. Once captured it is never mutated; history keeps it as-is.
type ProgressSnapshot struct {
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
	// ProjectID identifies the project.
	ProjectID string `json:"project_id"`
	// OverallProgress is completed/total on a 0-100 scale.
	OverallProgress float64 `json:"overall_progress"`
	// Phases breaks progress down by project phase.
	Phases []PhaseProgress `json:"phases"`
	// Agents holds the fleet's per-agent status.
	Agents []AgentProgressStatus `json:"agents"`
	// Blockers lists the classified blocking conditions.
	Blockers []ProgressBlocker `json:"blockers"`
	// Prediction is the completion forecast derived from this state.
	Prediction ProgressPrediction `json:"prediction"`
	// Quality aggregates gate results.
	Quality QualityMetrics `json:"quality"`
}

// CaptureSnapshot aggregates tasks and agents into a snapshot. The
// inputs are read, never mutated.
func CaptureSnapshot(projectID string, agents []*agent.Runtime, tasks []*models.Task, now time.Time) *ProgressSnapshot {
	snap := &ProgressSnapshot{
		Timestamp: now,
		ProjectID: projectID,
	}

	completed := 0
	for _, task := range tasks {
		if task.Status == models.TaskStatusCompleted {
			completed++
		}
	}
	if len(tasks) > 0 {
		snap.OverallProgress = float64(completed) / float64(len(tasks)) * 100
	}

	snap.Phases = phaseProgress(tasks, now)
	snap.Agents = agentStatuses(agents)
	snap.Blockers = collectBlockers(tasks)
	snap.Quality = qualityMetrics(tasks)
	snap.Prediction = Predict(snap.Agents, tasks, snap.Blockers, now)

	return snap
}

// phaseProgress groups tasks by their metadata phase.
func phaseProgress(tasks []*models.Task, now time.Time) []PhaseProgress {
	byPhase := make(map[string][]*models.Task)
	for _, task := range tasks {
		phase := task.Phase()
		byPhase[phase] = append(byPhase[phase], task)
	}

	names := make([]string, 0, len(byPhase))
	for name := range byPhase {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]PhaseProgress, 0, len(names))
	for _, name := range names {
		group := byPhase[name]
		pp := PhaseProgress{Phase: name, TotalTasks: len(group)}

		due := 0
		for _, task := range group {
			if task.Status == models.TaskStatusCompleted {
				pp.CompletedTasks++
			}
			if task.DueDate != nil && task.DueDate.Before(now) {
				due++
			}
		}
		pp.ActualProgress = float64(pp.CompletedTasks) / float64(pp.TotalTasks) * 100
		pp.ExpectedProgress = float64(due) / float64(pp.TotalTasks) * 100
		pp.OnTrack = pp.ActualProgress >= pp.ExpectedProgress

		out = append(out, pp)
	}
	return out
}

// agentStatuses reads health and metrics from each runtime.
func agentStatuses(agents []*agent.Runtime) []AgentProgressStatus {
	out := make([]AgentProgressStatus, 0, len(agents))
	for _, rt := range agents {
		health := rt.GetHealthStatus()
		metrics := rt.Metrics()
		out = append(out, AgentProgressStatus{
			AgentID:      rt.ID(),
			Status:       health.Status,
			Health:       health.Level,
			ActiveTasks:  health.ActiveTasks,
			TasksPerHour: metrics.TasksPerHour,
		})
	}
	return out
}

// collectBlockers extracts and classifies blockers from blocked tasks.
func collectBlockers(tasks []*models.Task) []ProgressBlocker {
	var out []ProgressBlocker
	for _, task := range tasks {
		if task.Status != models.TaskStatusBlocked {
			continue
		}
		for _, desc := range task.Blockers {
			out = append(out, ProgressBlocker{
				TaskID:      task.ID,
				Description: desc,
				Type:        ClassifyBlocker(desc),
				Impact:      impactFor(task.Priority),
			})
		}
	}
	return out
}

// blockerKeywords maps description keywords to blocker classes.
// Checked in a fixed order; the first class with a match wins.
var blockerKeywords = []struct {
	class BlockerType
	words []string
}{
	{BlockerDependency, []string{"depend", "waiting on task", "blocked by", "prerequisite"}},
	{BlockerResource, []string{"resource", "capacity", "quota", "infrastructure", "hardware"}},
	{BlockerApproval, []string{"approval", "approve", "sign-off", "decision", "permission", "review required"}},
	{BlockerExternal, []string{"external", "vendor", "third-party", "third party", "upstream"}},
}

// ClassifyBlocker assigns a blocker class by keyword match against the
// description. Unmatched descriptions default to TECHNICAL.
func ClassifyBlocker(description string) BlockerType {
	lower := strings.ToLower(description)
	for _, entry := range blockerKeywords {
		for _, word := range entry.words {
			if strings.Contains(lower, word) {
				return entry.class
			}
		}
	}
	return BlockerTechnical
}

// impactFor maps task priority onto blocker impact.
func impactFor(p models.TaskPriority) BlockerImpact {
	switch p {
	case models.PriorityCritical:
		return ImpactCritical
	case models.PriorityHigh:
		return ImpactHigh
	case models.PriorityMedium:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// qualityMetrics re-evaluates the quality gate of every completed task.
func qualityMetrics(tasks []*models.Task) QualityMetrics {
	var qm QualityMetrics
	var total float64
	scored := 0

	for _, task := range tasks {
		if task.Status != models.TaskStatusCompleted {
			continue
		}
		report := distribution.EvaluateQualityGates(task)
		total += report.Overall
		scored++
		if report.Passed {
			qm.GatesPassed++
		} else {
			qm.GatesFailed++
		}
	}
	if scored > 0 {
		qm.AverageGateScore = total / float64(scored)
	}
	return qm
}
