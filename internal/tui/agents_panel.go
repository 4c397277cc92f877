package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/monitor"
	"github.com/foremanhq/foreman/pkg/models"
)

// AgentsPanel displays one line per agent with status and throughput.
type AgentsPanel struct {
	agents []monitor.AgentProgressStatus
	width  int
	height int

	titleStyle   lipgloss.Style
	borderStyle  lipgloss.Style
	emptyStyle   lipgloss.Style
	readyStyle   lipgloss.Style
	busyStyle    lipgloss.Style
	blockedStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
}

// NewAgentsPanel creates a new AgentsPanel instance.
func NewAgentsPanel() *AgentsPanel {
	return &AgentsPanel{
		agents: make([]monitor.AgentProgressStatus, 0),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		borderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")),

		emptyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),

		readyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		busyStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")),

		blockedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
}

// SetAgents replaces the displayed agent rows.
func (p *AgentsPanel) SetAgents(agents []monitor.AgentProgressStatus) {
	p.agents = agents
}

// SetSize updates the panel dimensions.
func (p *AgentsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// View renders the agents panel.
func (p *AgentsPanel) View() string {
	var b strings.Builder

	b.WriteString(p.titleStyle.Render("Agents"))
	b.WriteString("\n")

	if len(p.agents) == 0 {
		b.WriteString(p.emptyStyle.Render("  no agents registered"))
	}

	maxRows := p.height - 4
	if maxRows < 1 {
		maxRows = 1
	}
	for i, row := range p.agents {
		if i >= maxRows {
			b.WriteString(p.dimStyle.Render(fmt.Sprintf("  … %d more", len(p.agents)-i)))
			break
		}
		b.WriteString(p.renderRow(row))
		if i < len(p.agents)-1 {
			b.WriteString("\n")
		}
	}

	return p.borderStyle.Width(max(p.width-2, 10)).Render(b.String())
}

func (p *AgentsPanel) renderRow(row monitor.AgentProgressStatus) string {
	marker := p.statusStyle(row.Status).Render(statusGlyph(row.Status))
	name := lipgloss.NewStyle().Bold(true).Render(row.AgentID)

	detail := fmt.Sprintf("%s · %d active · %.1f/h", row.Status, row.ActiveTasks, row.TasksPerHour)
	if row.Health == agent.HealthUnhealthy {
		detail = p.errorStyle.Render(detail + " · unhealthy")
	} else if row.Health == agent.HealthDegraded {
		detail = p.blockedStyle.Render(detail + " · degraded")
	} else {
		detail = p.dimStyle.Render(detail)
	}

	return fmt.Sprintf(" %s %s  %s", marker, name, detail)
}

func (p *AgentsPanel) statusStyle(status models.AgentStatus) lipgloss.Style {
	switch status {
	case models.AgentStatusReady:
		return p.readyStyle
	case models.AgentStatusBusy:
		return p.busyStyle
	case models.AgentStatusBlocked:
		return p.blockedStyle
	case models.AgentStatusError, models.AgentStatusOffline:
		return p.errorStyle
	default:
		return p.dimStyle
	}
}

// statusGlyph maps an agent status to a one-character marker.
func statusGlyph(status models.AgentStatus) string {
	switch status {
	case models.AgentStatusReady:
		return "●"
	case models.AgentStatusBusy:
		return "◐"
	case models.AgentStatusBlocked:
		return "◌"
	case models.AgentStatusError, models.AgentStatusOffline:
		return "✗"
	default:
		return "○"
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
