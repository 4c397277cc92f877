package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/foremanhq/foreman/internal/coordinator"
	"github.com/foremanhq/foreman/internal/monitor"
)

// feedCap bounds how many feed lines are kept.
const feedCap = 500

// feedLine is one rendered entry in the feed.
type feedLine struct {
	text  string
	alert bool
}

// FeedPanel displays the scrollable stream of coordinator events and
// monitor alerts.
type FeedPanel struct {
	viewport viewport.Model
	lines    []feedLine
	width    int
	height   int

	titleStyle  lipgloss.Style
	borderStyle lipgloss.Style
	emptyStyle  lipgloss.Style
	timeStyle   lipgloss.Style
	alertStyle  lipgloss.Style
	eventStyle  lipgloss.Style
}

// NewFeedPanel creates a new FeedPanel instance.
func NewFeedPanel() *FeedPanel {
	return &FeedPanel{
		viewport: viewport.New(80, 20),
		lines:    make([]feedLine, 0),

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

		timeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		alertStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		eventStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
	}
}

// AddEvent appends a coordinator event to the feed.
func (p *FeedPanel) AddEvent(event coordinator.Event) {
	text := fmt.Sprintf("%s %s %s",
		p.timeStyle.Render(event.Timestamp.Format("15:04:05")),
		p.eventStyle.Render(string(event.Type)),
		p.describe(event.TaskID, event.AgentID, event.Message))
	p.push(feedLine{text: text})
}

// AddAlert appends a monitor alert to the feed.
func (p *FeedPanel) AddAlert(alert monitor.ProgressAlert) {
	text := fmt.Sprintf("%s %s %s",
		p.timeStyle.Render(alert.Timestamp.Format("15:04:05")),
		p.alertStyle.Render(string(alert.Type)),
		p.describe(alert.TaskID, alert.AgentID, alert.Message))
	p.push(feedLine{text: text, alert: true})
}

func (p *FeedPanel) describe(taskID, agentID, message string) string {
	var parts []string
	if taskID != "" {
		parts = append(parts, "task="+taskID)
	}
	if agentID != "" {
		parts = append(parts, "agent="+agentID)
	}
	if message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, " ")
}

func (p *FeedPanel) push(line feedLine) {
	p.lines = append(p.lines, line)
	if len(p.lines) > feedCap {
		p.lines = p.lines[len(p.lines)-feedCap:]
	}

	atBottom := p.viewport.AtBottom()
	p.viewport.SetContent(p.content())
	if atBottom {
		p.viewport.GotoBottom()
	}
}

// Len returns how many feed lines are held.
func (p *FeedPanel) Len() int {
	return len(p.lines)
}

// SetSize updates the panel dimensions.
func (p *FeedPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.viewport.Width = max(width-4, 10)
	p.viewport.Height = max(height-3, 1)
	p.viewport.SetContent(p.content())
}

// Update forwards scrolling keys to the viewport.
func (p *FeedPanel) Update(msg tea.Msg) {
	p.viewport, _ = p.viewport.Update(msg)
}

// View renders the feed panel.
func (p *FeedPanel) View() string {
	var b strings.Builder
	b.WriteString(p.titleStyle.Render("Activity"))
	b.WriteString("\n")

	if len(p.lines) == 0 {
		b.WriteString(p.emptyStyle.Render("  nothing yet"))
	} else {
		b.WriteString(p.viewport.View())
	}

	return p.borderStyle.Width(max(p.width-2, 10)).Render(b.String())
}

func (p *FeedPanel) content() string {
	texts := make([]string, len(p.lines))
	for i, line := range p.lines {
		texts[i] = line.text
	}
	return strings.Join(texts, "\n")
}
