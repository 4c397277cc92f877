package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/foremanhq/foreman/pkg/models"
)

// taskSections is the display order of the board columns.
var taskSections = []struct {
	title    string
	statuses []models.TaskStatus
}{
	{"In Flight", []models.TaskStatus{models.TaskStatusInProgress, models.TaskStatusReview, models.TaskStatusTesting}},
	{"Blocked", []models.TaskStatus{models.TaskStatusBlocked}},
	{"Queued", []models.TaskStatus{models.TaskStatusNotStarted}},
	{"Done", []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusDeferred}},
}

// TasksPanel displays the task board grouped by status.
type TasksPanel struct {
	tasks  []*models.Task
	width  int
	height int

	titleStyle   lipgloss.Style
	borderStyle  lipgloss.Style
	sectionStyle lipgloss.Style
	emptyStyle   lipgloss.Style
	pendingStyle lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	blockedStyle lipgloss.Style
	dimStyle     lipgloss.Style
}

// NewTasksPanel creates a new TasksPanel instance.
func NewTasksPanel() *TasksPanel {
	return &TasksPanel{
		tasks: make([]*models.Task, 0),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")),

		sectionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		emptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),

		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")),

		blockedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// SetTasks replaces the displayed task list.
func (p *TasksPanel) SetTasks(tasks []*models.Task) {
	p.tasks = tasks
}

// SetSize updates the panel dimensions.
func (p *TasksPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the task board.
func (p *TasksPanel) View() string {
	var b strings.Builder

	b.WriteString(p.titleStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(p.tasks) == 0 {
		b.WriteString(p.emptyStyle.Render("  no tasks yet"))
		return p.borderStyle.Width(max(p.width-2, 10)).Render(b.String())
	}

	lines := 0
	maxLines := p.height - 4
	if maxLines < 4 {
		maxLines = 4
	}

	for _, section := range taskSections {
		tasks := p.filter(section.statuses)
		if len(tasks) == 0 {
			continue
		}
		if lines >= maxLines {
			break
		}

		b.WriteString(p.sectionStyle.Render(fmt.Sprintf(" %s (%d)", section.title, len(tasks))))
		b.WriteString("\n")
		lines++

		for _, task := range tasks {
			if lines >= maxLines {
				b.WriteString(p.dimStyle.Render("  …"))
				b.WriteString("\n")
				lines++
				break
			}
			b.WriteString(p.renderTask(task))
			b.WriteString("\n")
			lines++
		}
	}

	return p.borderStyle.Width(max(p.width-2, 10)).Render(strings.TrimRight(b.String(), "\n"))
}

func (p *TasksPanel) filter(statuses []models.TaskStatus) []*models.Task {
	var out []*models.Task
	for _, task := range p.tasks {
		for _, status := range statuses {
			if task.Status == status {
				out = append(out, task)
				break
			}
		}
	}
	return out
}

func (p *TasksPanel) renderTask(task *models.Task) string {
	marker := p.taskStyle(task.Status).Render(taskGlyph(task.Status))
	title := truncate(task.Title, max(p.width-24, 16))

	suffix := ""
	if task.AssignedTo != "" {
		suffix = p.dimStyle.Render(" → " + task.AssignedTo)
	}
	if task.Status == models.TaskStatusBlocked && len(task.Blockers) > 0 {
		suffix = p.blockedStyle.Render(" ⚑ " + truncate(task.Blockers[0], 40))
	}

	return fmt.Sprintf("  %s %s%s", marker, title, suffix)
}

func (p *TasksPanel) taskStyle(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.TaskStatusInProgress, models.TaskStatusReview, models.TaskStatusTesting:
		return p.runningStyle
	case models.TaskStatusCompleted:
		return p.doneStyle
	case models.TaskStatusBlocked:
		return p.blockedStyle
	default:
		return p.pendingStyle
	}
}

// taskGlyph maps a task status to a one-character marker.
func taskGlyph(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusCompleted:
		return "✓"
	case models.TaskStatusInProgress:
		return "▶"
	case models.TaskStatusReview, models.TaskStatusTesting:
		return "◆"
	case models.TaskStatusBlocked:
		return "⚠"
	case models.TaskStatusDeferred:
		return "–"
	default:
		return "○"
	}
}

// truncate shortens s to width runes with an ellipsis.
func truncate(s string, width int) string {
	if width < 1 {
		width = 1
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
