package distribution

import (
	"errors"
	"sort"
	"testing"

	"github.com/foremanhq/foreman/pkg/models"
)

func TestAnalyzeDependenciesBuildsDependents(t *testing.T) {
	design := testTask("design", models.TaskTypeArchitecture, models.PriorityMedium)
	api := testTask("api", models.TaskTypeBackend, models.PriorityMedium)
	api.Dependencies = []string{"design"}
	ui := testTask("ui", models.TaskTypeFrontend, models.PriorityMedium)
	ui.Dependencies = []string{"design", "api"}

	g, err := AnalyzeDependencies([]*models.Task{design, api, ui})
	if err != nil {
		t.Fatalf("AnalyzeDependencies() error = %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}

	dependents := g.Dependents("design")
	sort.Strings(dependents)
	want := []string{"api", "ui"}
	if len(dependents) != len(want) {
		t.Fatalf("Dependents(design) = %v, want %v", dependents, want)
	}
	for i := range want {
		if dependents[i] != want[i] {
			t.Errorf("Dependents(design) = %v, want %v", dependents, want)
		}
	}
}

func TestAnalyzeDependenciesRejectsUnknownTask(t *testing.T) {
	orphan := testTask("orphan", models.TaskTypeBackend, models.PriorityMedium)
	orphan.Dependencies = []string{"ghost"}

	if _, err := AnalyzeDependencies([]*models.Task{orphan}); err == nil {
		t.Error("expected an error for a dependency on an unknown task")
	}
}

func TestAnalyzeDependenciesDetectsCycle(t *testing.T) {
	a := testTask("a", models.TaskTypeBackend, models.PriorityMedium)
	a.Dependencies = []string{"c"}
	b := testTask("b", models.TaskTypeBackend, models.PriorityMedium)
	b.Dependencies = []string{"a"}
	c := testTask("c", models.TaskTypeBackend, models.PriorityMedium)
	c.Dependencies = []string{"b"}

	_, err := AnalyzeDependencies([]*models.Task{a, b, c})
	if !errors.Is(err, ErrCycleDetected) {
		t.Errorf("error = %v, want ErrCycleDetected", err)
	}
}

func TestCriticalPathFlagsUrgentAndUnblockedTasks(t *testing.T) {
	// A critical-priority task with unresolved dependencies is still on
	// the critical path; a low-priority dependent task is not.
	root := testTask("root", models.TaskTypeArchitecture, models.PriorityLow)
	urgent := testTask("urgent", models.TaskTypeBackend, models.PriorityCritical)
	urgent.Dependencies = []string{"root"}
	minor := testTask("minor", models.TaskTypeFrontend, models.PriorityLow)
	minor.Dependencies = []string{"root"}

	g, err := AnalyzeDependencies([]*models.Task{root, urgent, minor})
	if err != nil {
		t.Fatalf("AnalyzeDependencies() error = %v", err)
	}

	onPath := make(map[string]bool)
	for _, id := range g.CriticalPath() {
		onPath[id] = true
	}

	if !onPath["root"] {
		t.Error("root has no dependencies and should be on the critical path")
	}
	if !onPath["urgent"] {
		t.Error("critical-priority task should be on the critical path despite its dependency")
	}
	if onPath["minor"] {
		t.Error("low-priority blocked task should not be on the critical path")
	}
}

func TestCriticalPathCountsCompletedDepsAsResolved(t *testing.T) {
	done := testTask("done", models.TaskTypeArchitecture, models.PriorityLow)
	done.Status = models.TaskStatusCompleted
	next := testTask("next", models.TaskTypeBackend, models.PriorityLow)
	next.Dependencies = []string{"done"}

	g, err := AnalyzeDependencies([]*models.Task{done, next})
	if err != nil {
		t.Fatalf("AnalyzeDependencies() error = %v", err)
	}

	node := g.Node("next")
	if node == nil {
		t.Fatal("Node(next) = nil")
	}
	if !node.CriticalPath {
		t.Error("task with only completed dependencies should be on the critical path")
	}
}

func TestReadyReturnsUnblockedNotStartedTasks(t *testing.T) {
	done := testTask("done", models.TaskTypeArchitecture, models.PriorityMedium)
	done.Status = models.TaskStatusCompleted
	ready := testTask("ready", models.TaskTypeBackend, models.PriorityMedium)
	ready.Dependencies = []string{"done"}
	blocked := testTask("blocked", models.TaskTypeFrontend, models.PriorityMedium)
	blocked.Dependencies = []string{"ready"}
	running := testTask("running", models.TaskTypeBackend, models.PriorityMedium)
	running.Status = models.TaskStatusInProgress

	g, err := AnalyzeDependencies([]*models.Task{done, ready, blocked, running})
	if err != nil {
		t.Fatalf("AnalyzeDependencies() error = %v", err)
	}

	got := g.Ready()
	if len(got) != 1 {
		t.Fatalf("Ready() returned %d tasks, want 1", len(got))
	}
	if got[0].ID != "ready" {
		t.Errorf("Ready()[0].ID = %q, want ready", got[0].ID)
	}
}
