// Package distribution selects the best agent for a task and maintains
// the project's dependency structure: assignment strategies, the task
// dependency graph with its critical path, quality gates, and workload
// balancing.
package distribution

import (
	"errors"
	"fmt"
	"sync"

	"github.com/foremanhq/foreman/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyNode is the derived graph view of one task. The full set of
// nodes forms a DAG; it is rebuilt whenever a task is (re)submitted.
type DependencyNode struct {
	// TaskID identifies the task.
	TaskID string
	// Dependencies lists task IDs this task is blocked by.
	Dependencies []string
	// Dependents lists task IDs blocked by this task.
	Dependents []string
	// Priority is the task priority on a 1-4 scale.
	Priority int
	// CriticalPath flags tasks tracked for schedule risk.
	CriticalPath bool
}

// DependencyGraph is a directed acyclic graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[string]*DependencyNode
	tasks map[string]*models.Task
}

// AnalyzeDependencies builds the dependency graph from a task set.
// Dependents are back-filled by inverting the dependency edges, and the
// critical path is flagged. Returns an error when a dependency references
// an unknown task or the graph contains a cycle.
func AnalyzeDependencies(tasks []*models.Task) (*DependencyGraph, error) {
	g := &DependencyGraph{
		nodes: make(map[string]*DependencyNode),
		tasks: make(map[string]*models.Task),
	}

	// First pass: register all tasks as nodes.
	for _, task := range tasks {
		g.nodes[task.ID] = &DependencyNode{
			TaskID:       task.ID,
			Dependencies: append([]string(nil), task.Dependencies...),
			Priority:     task.Priority.Rank(),
		}
		g.tasks[task.ID] = task
	}

	// Second pass: validate edges and invert them into dependents.
	for _, task := range tasks {
		for _, depID := range task.Dependencies {
			dep, exists := g.nodes[depID]
			if !exists {
				return nil, fmt.Errorf("task %s depends on unknown task %s", task.ID, depID)
			}
			dep.Dependents = append(dep.Dependents, task.ID)
		}
	}

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	g.markCriticalPathLocked()
	return g, nil
}

// hasCycleLocked detects cycles with depth-first search coloring.
// Caller must hold the lock (or own the graph exclusively, as during build).
func (g *DependencyGraph) hasCycleLocked() bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range g.nodes[id].Dependencies {
			switch colors[depID] {
			case 1:
				// Back edge: cycle.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range g.nodes {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// markCriticalPathLocked flags the schedule-critical nodes: tasks with no
// unresolved dependency, or with priority at HIGH or above. This is a
// heuristic, not a weighted longest-path computation.
func (g *DependencyGraph) markCriticalPathLocked() {
	for id, node := range g.nodes {
		node.CriticalPath = g.unresolvedDepsLocked(id) == 0 || node.Priority >= models.PriorityHigh.Rank()
	}
}

// unresolvedDepsLocked counts dependencies that have not reached a
// terminal status.
func (g *DependencyGraph) unresolvedDepsLocked(taskID string) int {
	count := 0
	for _, depID := range g.nodes[taskID].Dependencies {
		if dep, ok := g.tasks[depID]; ok && !dep.Status.Terminal() {
			count++
		}
	}
	return count
}

// Node returns the graph node for a task, or nil when the task is unknown.
func (g *DependencyGraph) Node(taskID string) *DependencyNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[taskID]
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// CriticalPath returns the IDs of all tasks flagged critical.
func (g *DependencyGraph) CriticalPath() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ids []string
	for id, node := range g.nodes {
		if node.CriticalPath {
			ids = append(ids, id)
		}
	}
	return ids
}

// Dependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) Dependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[taskID]
	if !ok {
		return nil
	}
	return append([]string(nil), node.Dependents...)
}

// Ready returns tasks that are not started and have no unresolved
// dependencies. These can be distributed immediately.
func (g *DependencyGraph) Ready() []*models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []*models.Task
	for id, task := range g.tasks {
		if task.Status != models.TaskStatusNotStarted {
			continue
		}
		if g.unresolvedDepsLocked(id) == 0 {
			ready = append(ready, task)
		}
	}
	return ready
}
