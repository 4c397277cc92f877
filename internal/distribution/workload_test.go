package distribution

import (
	"testing"

	"github.com/foremanhq/foreman/pkg/models"
)

func TestWorkloadTrackerAssignmentIncreasesLoad(t *testing.T) {
	tracker := NewWorkloadTracker()
	task := testTask("t1", models.TaskTypeBackend, models.PriorityMedium)

	before := tracker.Metrics("a1")
	tracker.RecordAssignment("a1", task)
	after := tracker.Metrics("a1")

	if after.CurrentTasks != before.CurrentTasks+1 {
		t.Errorf("CurrentTasks = %d, want %d", after.CurrentTasks, before.CurrentTasks+1)
	}
	if after.EstimatedLoad <= before.EstimatedLoad {
		t.Errorf("EstimatedLoad did not increase: %.2f -> %.2f", before.EstimatedLoad, after.EstimatedLoad)
	}
}

func TestWorkloadTrackerUnestimatedTaskStillCharges(t *testing.T) {
	tracker := NewWorkloadTracker()
	task := testTask("t1", models.TaskTypeBackend, models.PriorityMedium)
	task.EstimatedHours = 0

	tracker.RecordAssignment("a1", task)
	if got := tracker.Metrics("a1").EstimatedLoad; got <= 0 {
		t.Errorf("EstimatedLoad = %.2f, want a positive charge for an unestimated task", got)
	}
}

func TestWorkloadTrackerCompletionReleasesLoad(t *testing.T) {
	tracker := NewWorkloadTracker()
	task := testTask("t1", models.TaskTypeBackend, models.PriorityMedium)

	tracker.RecordAssignment("a1", task)
	tracker.RecordCompletion("a1", task, &models.TaskResult{TaskID: "t1", Status: models.ResultSuccess})

	m := tracker.Metrics("a1")
	if m.CurrentTasks != 0 {
		t.Errorf("CurrentTasks = %d, want 0", m.CurrentTasks)
	}
	if m.EstimatedLoad != 0 {
		t.Errorf("EstimatedLoad = %.2f, want 0", m.EstimatedLoad)
	}
	if m.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %.2f, want 1.0", m.SuccessRate)
	}
}

func TestWorkloadTrackerSuccessRateFoldsFailures(t *testing.T) {
	tracker := NewWorkloadTracker()
	ok := testTask("ok", models.TaskTypeBackend, models.PriorityMedium)
	bad := testTask("bad", models.TaskTypeBackend, models.PriorityMedium)

	tracker.RecordAssignment("a1", ok)
	tracker.RecordCompletion("a1", ok, &models.TaskResult{TaskID: "ok", Status: models.ResultSuccess})
	tracker.RecordAssignment("a1", bad)
	tracker.RecordCompletion("a1", bad, &models.TaskResult{TaskID: "bad", Status: models.ResultFailure})

	if got := tracker.Metrics("a1").SuccessRate; got != 0.5 {
		t.Errorf("SuccessRate = %.2f, want 0.5", got)
	}
}

func TestWorkloadTrackerSpecializations(t *testing.T) {
	tracker := NewWorkloadTracker()
	success := &models.TaskResult{Status: models.ResultSuccess}

	for i := 0; i < 3; i++ {
		task := testTask("be", models.TaskTypeBackend, models.PriorityMedium)
		tracker.RecordAssignment("a1", task)
		tracker.RecordCompletion("a1", task, success)
	}
	fe := testTask("fe", models.TaskTypeFrontend, models.PriorityMedium)
	tracker.RecordAssignment("a1", fe)
	tracker.RecordCompletion("a1", fe, success)

	specs := tracker.Metrics("a1").Specializations
	if len(specs) != 2 {
		t.Fatalf("Specializations = %v, want two entries", specs)
	}
	if specs[0] != models.TaskTypeBackend {
		t.Errorf("Specializations[0] = %s, want backend first", specs[0])
	}
}

func TestOptimizeWorkloadFlagsImbalance(t *testing.T) {
	tracker := NewWorkloadTracker()

	heavy := testTask("heavy", models.TaskTypeBackend, models.PriorityMedium)
	heavy.EstimatedHours = 16
	light := testTask("light", models.TaskTypeBackend, models.PriorityMedium)
	light.EstimatedHours = 2

	mid := testTask("m", models.TaskTypeBackend, models.PriorityMedium)
	mid.EstimatedHours = 8

	// Loads: over=80, mid=20, under=5. Mean is 35; over > 52.5, under < 17.5.
	tracker.RecordAssignment("over", heavy)
	tracker.RecordAssignment("over", heavy)
	tracker.RecordAssignment("mid", mid)
	tracker.RecordAssignment("under", light)

	plan := tracker.OptimizeWorkload()
	if len(plan.Overloaded) != 1 || plan.Overloaded[0] != "over" {
		t.Errorf("Overloaded = %v, want [over]", plan.Overloaded)
	}
	if len(plan.Underutilized) != 1 || plan.Underutilized[0] != "under" {
		t.Errorf("Underutilized = %v, want [under]", plan.Underutilized)
	}
	if len(plan.Suggestions) != 1 {
		t.Fatalf("Suggestions = %v, want one pairing", plan.Suggestions)
	}
	if plan.Suggestions[0].FromAgent != "over" || plan.Suggestions[0].ToAgent != "under" {
		t.Errorf("Suggestion = %+v, want over -> under", plan.Suggestions[0])
	}
}

func TestOptimizeWorkloadEmptyFleet(t *testing.T) {
	plan := NewWorkloadTracker().OptimizeWorkload()
	if len(plan.Overloaded) != 0 || len(plan.Underutilized) != 0 || len(plan.Suggestions) != 0 {
		t.Errorf("empty fleet produced a non-empty plan: %+v", plan)
	}
}
