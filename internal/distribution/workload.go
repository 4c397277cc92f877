package distribution

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/foremanhq/foreman/pkg/models"
)

// hoursPerLoadPoint converts estimated task hours into utilization points
// on the 0-100 load scale. An 8-hour task is worth 20 points, so an agent
// saturates around a 40-hour backlog.
const hoursPerLoadPoint = 0.4

// defaultTaskHours is the effort assumed for tasks with no estimate.
const defaultTaskHours = 4

// agentWorkload is the tracker's internal per-agent record.
type agentWorkload struct {
	currentTasks int
	load         float64
	completed    int
	succeeded    int
	hoursSpent   float64
	byType       map[models.TaskType]int
	trackedSince time.Time
}

// WorkloadTracker owns the fleet's workload metrics. All load mutations
// flow through RecordAssignment and RecordCompletion so that the numbers
// the strategies score against stay consistent with what was handed out.
type WorkloadTracker struct {
	mu     sync.RWMutex
	agents map[string]*agentWorkload
	now    func() time.Time
}

// NewWorkloadTracker creates an empty tracker.
func NewWorkloadTracker() *WorkloadTracker {
	return &WorkloadTracker{
		agents: make(map[string]*agentWorkload),
		now:    time.Now,
	}
}

// Track registers an agent with zeroed metrics. Safe to call twice;
// an already-tracked agent keeps its record.
func (w *WorkloadTracker) Track(agentID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ensureLocked(agentID)
}

// Forget removes an agent's record, e.g. when it goes offline for good.
func (w *WorkloadTracker) Forget(agentID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.agents, agentID)
}

func (w *WorkloadTracker) ensureLocked(agentID string) *agentWorkload {
	wl, ok := w.agents[agentID]
	if !ok {
		wl = &agentWorkload{
			byType:       make(map[models.TaskType]int),
			trackedSince: w.now(),
		}
		w.agents[agentID] = wl
	}
	return wl
}

// RecordAssignment charges one task's worth of load to the agent.
// Current task count rises by one and estimated load by the task's
// effort; the increase is never zero even for unestimated tasks.
func (w *WorkloadTracker) RecordAssignment(agentID string, task *models.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wl := w.ensureLocked(agentID)
	wl.currentTasks++
	wl.load += loadFor(task)
}

// ReleaseAssignment undoes a charge for a task that never ran, e.g. when
// the target agent rejected it. Unlike RecordCompletion, nothing is
// folded into the agent's track record.
func (w *WorkloadTracker) ReleaseAssignment(agentID string, task *models.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wl := w.ensureLocked(agentID)
	if wl.currentTasks > 0 {
		wl.currentTasks--
	}
	wl.load -= loadFor(task)
	if wl.load < 0 {
		wl.load = 0
	}
}

// RecordCompletion releases the task's load and folds the outcome into
// the agent's track record. Load never goes below zero.
func (w *WorkloadTracker) RecordCompletion(agentID string, task *models.Task, result *models.TaskResult) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wl := w.ensureLocked(agentID)
	if wl.currentTasks > 0 {
		wl.currentTasks--
	}
	wl.load -= loadFor(task)
	if wl.load < 0 {
		wl.load = 0
	}

	wl.completed++
	if result != nil && result.Status == models.ResultSuccess {
		wl.succeeded++
	}

	hours := task.ActualHours
	if hours <= 0 {
		hours = taskHours(task)
	}
	wl.hoursSpent += hours
	wl.byType[task.Type]++
}

// Metrics returns a snapshot of one agent's workload. Unknown agents
// report zeroed metrics with a perfect success rate, matching how a
// fresh agent should be scored.
func (w *WorkloadTracker) Metrics(agentID string) models.WorkloadMetrics {
	w.mu.RLock()
	defer w.mu.RUnlock()

	wl, ok := w.agents[agentID]
	if !ok {
		return models.WorkloadMetrics{SuccessRate: 1.0}
	}
	return wl.snapshot(w.now())
}

func (wl *agentWorkload) snapshot(now time.Time) models.WorkloadMetrics {
	m := models.WorkloadMetrics{
		CurrentTasks:  wl.currentTasks,
		EstimatedLoad: wl.load,
		SuccessRate:   1.0,
	}

	if wl.completed > 0 {
		m.SuccessRate = float64(wl.succeeded) / float64(wl.completed)
		m.AverageCompletionTime = wl.hoursSpent / float64(wl.completed)
	}

	if hours := now.Sub(wl.trackedSince).Hours(); hours > 0 && wl.completed > 0 {
		m.TasksPerHour = float64(wl.completed) / hours
	}

	// Specializations: task types sorted by completion count, most first.
	type typeCount struct {
		t models.TaskType
		n int
	}
	var counts []typeCount
	for t, n := range wl.byType {
		counts = append(counts, typeCount{t, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].n != counts[j].n {
			return counts[i].n > counts[j].n
		}
		return counts[i].t < counts[j].t
	})
	for _, c := range counts {
		m.Specializations = append(m.Specializations, c.t)
	}

	return m
}

// FleetAverageLoad returns the mean estimated load across tracked agents.
func (w *WorkloadTracker) FleetAverageLoad() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(w.agents) == 0 {
		return 0
	}
	var total float64
	for _, wl := range w.agents {
		total += wl.load
	}
	return total / float64(len(w.agents))
}

// loadFor converts a task into utilization points.
func loadFor(task *models.Task) float64 {
	return taskHours(task) / hoursPerLoadPoint
}

// taskHours returns the task's effort estimate, defaulting when unset.
func taskHours(task *models.Task) float64 {
	if task.EstimatedHours > 0 {
		return task.EstimatedHours
	}
	return defaultTaskHours
}

// ReassignmentSuggestion proposes moving future work between agents.
// Suggestions are advisory; nothing is moved automatically.
type ReassignmentSuggestion struct {
	// FromAgent is the overloaded agent to take work away from.
	FromAgent string
	// ToAgent is the underutilized agent to route work toward.
	ToAgent string
	// Reason explains the imbalance in human terms.
	Reason string
}

// WorkloadPlan is the product of a balancing pass over the fleet.
type WorkloadPlan struct {
	// AverageLoad is the fleet-wide mean estimated load.
	AverageLoad float64
	// Overloaded lists agents above 1.5x the fleet average.
	Overloaded []string
	// Underutilized lists agents below 0.5x the fleet average.
	Underutilized []string
	// Suggestions pairs overloaded agents with underutilized ones.
	Suggestions []ReassignmentSuggestion
}

// OptimizeWorkload compares every tracked agent against the fleet mean
// and pairs overloaded agents with underutilized ones. The thresholds
// are 1.5x the mean for overloaded and 0.5x for underutilized.
func (w *WorkloadTracker) OptimizeWorkload() *WorkloadPlan {
	w.mu.RLock()
	defer w.mu.RUnlock()

	plan := &WorkloadPlan{}
	if len(w.agents) == 0 {
		return plan
	}

	var total float64
	for _, wl := range w.agents {
		total += wl.load
	}
	plan.AverageLoad = total / float64(len(w.agents))

	var ids []string
	for id := range w.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		load := w.agents[id].load
		switch {
		case load > plan.AverageLoad*1.5:
			plan.Overloaded = append(plan.Overloaded, id)
		case load < plan.AverageLoad*0.5:
			plan.Underutilized = append(plan.Underutilized, id)
		}
	}

	for i, from := range plan.Overloaded {
		if i >= len(plan.Underutilized) {
			break
		}
		to := plan.Underutilized[i]
		plan.Suggestions = append(plan.Suggestions, ReassignmentSuggestion{
			FromAgent: from,
			ToAgent:   to,
			Reason: fmt.Sprintf("agent %s carries %.0f load against a fleet average of %.0f; %s has capacity",
				from, w.agents[from].load, plan.AverageLoad, to),
		})
	}

	return plan
}
