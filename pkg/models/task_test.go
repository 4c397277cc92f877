package models

import "testing"

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{
		TaskStatusNotStarted, TaskStatusInProgress, TaskStatusBlocked,
		TaskStatusReview, TaskStatusTesting, TaskStatusCompleted, TaskStatusDeferred,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if TaskStatus("unknown").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestTaskStatusTerminal(t *testing.T) {
	if !TaskStatusCompleted.Terminal() {
		t.Error("completed should be terminal")
	}
	if !TaskStatusDeferred.Terminal() {
		t.Error("deferred should be terminal")
	}
	if TaskStatusInProgress.Terminal() {
		t.Error("in_progress should not be terminal")
	}
	if TaskStatusBlocked.Terminal() {
		t.Error("blocked should not be terminal")
	}
}

func TestTaskPriorityRank(t *testing.T) {
	tests := []struct {
		priority TaskPriority
		want     int
	}{
		{PriorityCritical, 4},
		{PriorityHigh, 3},
		{PriorityMedium, 2},
		{PriorityLow, 1},
		{TaskPriority("bogus"), 0},
	}

	for _, tt := range tests {
		if got := tt.priority.Rank(); got != tt.want {
			t.Errorf("Rank(%q) = %d, want %d", tt.priority, got, tt.want)
		}
	}
}

func TestTaskTypeValid(t *testing.T) {
	if !TaskTypeBackend.Valid() {
		t.Error("backend should be valid")
	}
	if TaskType("kernel").Valid() {
		t.Error("kernel should be invalid")
	}
}

func TestTaskPhase(t *testing.T) {
	task := &Task{ID: "t-1"}
	if got := task.Phase(); got != "unphased" {
		t.Errorf("expected unphased, got %q", got)
	}

	task.Metadata = map[string]string{"phase": "foundation"}
	if got := task.Phase(); got != "foundation" {
		t.Errorf("expected foundation, got %q", got)
	}
}
