// Package tui provides the terminal dashboard for Foreman.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/coordinator"
	"github.com/foremanhq/foreman/internal/monitor"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/pkg/models"
)

// View tab indices.
const (
	TabBoard = 0 // Agents + tasks combined
	TabFeed  = 1 // Full-screen event and alert feed
)

// defaultRefreshRate is how often the dashboard re-reads state.
const defaultRefreshRate = 500 * time.Millisecond

// refreshMsg carries a fresh read of coordinator and monitor state.
type refreshMsg struct {
	agents   []monitor.AgentProgressStatus
	tasks    []*models.Task
	snapshot *monitor.ProgressSnapshot
}

// EventMsg wraps a coordinator event for display in the feed.
type EventMsg struct {
	Event coordinator.Event
}

// AlertMsg wraps a monitor alert for display in the feed.
type AlertMsg struct {
	Alert monitor.ProgressAlert
}

// DoneMsg signals that the coordination run has ended.
type DoneMsg struct {
	Success bool
	Message string
}

// Fleet is the read side of the coordinator the dashboard needs.
type Fleet interface {
	Agents() []*agent.Runtime
}

// App is the main bubbletea model for the Foreman dashboard.
type App struct {
	projectID string
	tasks     store.TaskStore
	fleet     Fleet
	refresh   time.Duration

	header      *Header
	agentsPanel *AgentsPanel
	tasksPanel  *TasksPanel
	feedPanel   *FeedPanel
	footer      *Footer

	activeTab int
	width     int
	height    int
	quitting  bool
}

// AppOption configures an App.
type AppOption func(*App)

// WithRefreshRate overrides the 500ms refresh tick.
func WithRefreshRate(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.refresh = d
		}
	}
}

// NewApp creates the dashboard over the given collaborators.
func NewApp(projectID string, tasks store.TaskStore, fleet Fleet, opts ...AppOption) *App {
	a := &App{
		projectID:   projectID,
		tasks:       tasks,
		fleet:       fleet,
		refresh:     defaultRefreshRate,
		header:      NewHeader(projectID),
		agentsPanel: NewAgentsPanel(),
		tasksPanel:  NewTasksPanel(),
		feedPanel:   NewFeedPanel(),
		footer:      NewFooter(),
		activeTab:   TabBoard,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadState, a.tick())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "1":
			a.setTab(TabBoard)
		case "2":
			a.setTab(TabFeed)
		case "tab":
			if a.activeTab == TabBoard {
				a.setTab(TabFeed)
			} else {
				a.setTab(TabBoard)
			}
		default:
			if a.activeTab == TabFeed {
				a.feedPanel.Update(msg)
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()

	case refreshMsg:
		a.agentsPanel.SetAgents(msg.agents)
		a.tasksPanel.SetTasks(msg.tasks)
		a.header.SetSnapshot(msg.snapshot)
		a.footer.SetTaskCounts(countTasks(msg.tasks))

	case EventMsg:
		a.feedPanel.AddEvent(msg.Event)

	case AlertMsg:
		a.feedPanel.AddAlert(msg.Alert)
		a.footer.BumpAlerts()

	case DoneMsg:
		a.footer.SetDone(msg.Success, msg.Message)

	case tickMsg:
		return a, tea.Batch(a.loadState, a.tick())
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	sections := []string{a.header.View()}
	switch a.activeTab {
	case TabFeed:
		sections = append(sections, a.feedPanel.View())
	default:
		board := lipgloss.JoinHorizontal(lipgloss.Top,
			a.tasksPanel.View(), a.agentsPanel.View())
		sections = append(sections, board)
	}
	sections = append(sections, a.footer.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type tickMsg time.Time

func (a *App) tick() tea.Cmd {
	return tea.Tick(a.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadState reads tasks and agent health and derives a snapshot for the
// header. Runs off the update loop as a tea.Cmd.
func (a *App) loadState() tea.Msg {
	tasks, err := a.tasks.GetTasks(store.TaskFilter{})
	if err != nil {
		// Keep rendering the last good state; the next tick retries.
		return nil
	}

	agents := a.fleet.Agents()
	snap := monitor.CaptureSnapshot(a.projectID, agents, tasks, time.Now())
	return refreshMsg{
		agents:   snap.Agents,
		tasks:    tasks,
		snapshot: snap,
	}
}

func (a *App) setTab(tab int) {
	if a.activeTab == tab {
		return
	}
	a.activeTab = tab
	a.footer.SetActiveTab(tab)
	a.layout()
}

// layout distributes the terminal area between the panels.
func (a *App) layout() {
	bodyHeight := a.height - a.header.Height() - a.footer.Height()
	if bodyHeight < 4 {
		bodyHeight = 4
	}

	a.header.SetWidth(a.width)
	a.footer.SetWidth(a.width)
	a.feedPanel.SetSize(a.width, bodyHeight)

	taskWidth := a.width * 3 / 5
	a.tasksPanel.SetSize(taskWidth, bodyHeight)
	a.agentsPanel.SetSize(a.width-taskWidth, bodyHeight)
}

// countTasks tallies tasks by status for the footer.
func countTasks(tasks []*models.Task) TaskCounts {
	var counts TaskCounts
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusCompleted:
			counts.Completed++
		case models.TaskStatusInProgress, models.TaskStatusReview, models.TaskStatusTesting:
			counts.Active++
		case models.TaskStatusBlocked:
			counts.Blocked++
		default:
			counts.Pending++
		}
	}
	return counts
}
