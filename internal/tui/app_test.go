package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/coordinator"
	"github.com/foremanhq/foreman/internal/monitor"
	"github.com/foremanhq/foreman/pkg/models"
)

type emptyFleet struct{}

func (emptyFleet) Agents() []*agent.Runtime { return nil }

func boardTask(id string, status models.TaskStatus) *models.Task {
	return &models.Task{
		ID:     id,
		Title:  "Task " + id,
		Type:   models.TaskTypeBackend,
		Status: status,
	}
}

func TestCountTasks(t *testing.T) {
	tasks := []*models.Task{
		boardTask("a", models.TaskStatusNotStarted),
		boardTask("b", models.TaskStatusInProgress),
		boardTask("c", models.TaskStatusReview),
		boardTask("d", models.TaskStatusBlocked),
		boardTask("e", models.TaskStatusCompleted),
	}

	counts := countTasks(tasks)

	if counts.Pending != 1 {
		t.Errorf("Pending = %d, want 1", counts.Pending)
	}
	if counts.Active != 2 {
		t.Errorf("Active = %d, want 2", counts.Active)
	}
	if counts.Blocked != 1 {
		t.Errorf("Blocked = %d, want 1", counts.Blocked)
	}
	if counts.Completed != 1 {
		t.Errorf("Completed = %d, want 1", counts.Completed)
	}
}

func TestAppTabSwitching(t *testing.T) {
	app := NewApp("demo", nil, emptyFleet{})

	if app.activeTab != TabBoard {
		t.Fatalf("initial tab = %d, want TabBoard", app.activeTab)
	}

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	if app.activeTab != TabFeed {
		t.Errorf("tab after '2' = %d, want TabFeed", app.activeTab)
	}

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.activeTab != TabBoard {
		t.Errorf("tab after tab key = %d, want TabBoard", app.activeTab)
	}
}

func TestAppQuitKey(t *testing.T) {
	app := NewApp("demo", nil, emptyFleet{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if !app.quitting {
		t.Error("app should be quitting after 'q'")
	}
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
}

func TestTasksPanelGroupsByStatus(t *testing.T) {
	panel := NewTasksPanel()
	panel.SetSize(80, 24)
	panel.SetTasks([]*models.Task{
		boardTask("a", models.TaskStatusInProgress),
		boardTask("b", models.TaskStatusNotStarted),
		boardTask("c", models.TaskStatusCompleted),
	})

	view := panel.View()

	for _, want := range []string{"In Flight", "Queued", "Done", "Task a", "Task b", "Task c"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
	if strings.Contains(view, "Blocked (") {
		t.Error("empty sections should be omitted")
	}
}

func TestTasksPanelShowsBlocker(t *testing.T) {
	panel := NewTasksPanel()
	panel.SetSize(80, 24)
	blocked := boardTask("a", models.TaskStatusBlocked)
	blocked.Blockers = []string{"waiting on task b"}
	panel.SetTasks([]*models.Task{blocked})

	if view := panel.View(); !strings.Contains(view, "waiting on task b") {
		t.Error("view should surface the first blocker")
	}
}

func TestAgentsPanelRendersRows(t *testing.T) {
	panel := NewAgentsPanel()
	panel.SetSize(40, 24)
	panel.SetAgents([]monitor.AgentProgressStatus{
		{AgentID: "be-1", Status: models.AgentStatusReady, Health: agent.HealthHealthy},
		{AgentID: "qa-1", Status: models.AgentStatusError, Health: agent.HealthUnhealthy},
	})

	view := panel.View()

	if !strings.Contains(view, "be-1") || !strings.Contains(view, "qa-1") {
		t.Error("view should list both agents")
	}
	if !strings.Contains(view, "unhealthy") {
		t.Error("view should flag the unhealthy agent")
	}
}

func TestAgentsPanelEmpty(t *testing.T) {
	panel := NewAgentsPanel()
	panel.SetSize(40, 24)

	if view := panel.View(); !strings.Contains(view, "no agents registered") {
		t.Error("empty panel should render a placeholder")
	}
}

func TestFeedPanelCapsLines(t *testing.T) {
	panel := NewFeedPanel()
	panel.SetSize(80, 24)

	for i := 0; i < feedCap+25; i++ {
		panel.AddEvent(coordinator.Event{
			Type:      coordinator.EventTaskAssigned,
			TaskID:    "t",
			Timestamp: time.Now(),
		})
	}

	if panel.Len() != feedCap {
		t.Errorf("feed holds %d lines, want %d", panel.Len(), feedCap)
	}
}

func TestFeedPanelShowsAlert(t *testing.T) {
	panel := NewFeedPanel()
	panel.SetSize(80, 24)
	panel.AddAlert(monitor.ProgressAlert{
		Type:      monitor.AlertTimelineRisk,
		Message:   "completion confidence at 45%",
		Timestamp: time.Now(),
	})

	if view := panel.View(); !strings.Contains(view, "completion confidence at 45%") {
		t.Error("view should contain the alert message")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"a longer title here", 8, "a longe…"},
		{"x", 0, "x"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
