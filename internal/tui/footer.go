package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// TaskCounts holds the per-status task tallies shown in the footer.
type TaskCounts struct {
	Pending   int
	Active    int
	Blocked   int
	Completed int
}

// Footer renders the status bar and keyboard hints.
type Footer struct {
	width      int
	activeTab  int
	taskCounts TaskCounts
	alertCount int
	done       bool
	success    bool
	message    string

	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	hintStyle    lipgloss.Style
	countStyle   lipgloss.Style
	alertStyle   lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter() *Footer {
	return &Footer{
		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		countStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),

		alertStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
	}
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// SetActiveTab records which tab is shown so the hints match.
func (f *Footer) SetActiveTab(tab int) {
	f.activeTab = tab
}

// SetTaskCounts updates the task tallies.
func (f *Footer) SetTaskCounts(counts TaskCounts) {
	f.taskCounts = counts
}

// BumpAlerts increments the alert counter.
func (f *Footer) BumpAlerts() {
	f.alertCount++
}

// SetDone marks the run as finished.
func (f *Footer) SetDone(success bool, message string) {
	f.done = true
	f.success = success
	f.message = message
}

// View renders the footer.
func (f *Footer) View() string {
	counts := f.countStyle.Render(fmt.Sprintf(
		" %d queued · %d active · %d blocked · %d done",
		f.taskCounts.Pending, f.taskCounts.Active, f.taskCounts.Blocked, f.taskCounts.Completed))

	alerts := ""
	if f.alertCount > 0 {
		alerts = f.alertStyle.Render(fmt.Sprintf("  ⚑ %d alert(s)", f.alertCount))
	}

	status := ""
	if f.done {
		if f.success {
			status = f.successStyle.Render("  ✓ " + f.message)
		} else {
			status = f.errorStyle.Render("  ✗ " + f.message)
		}
	}

	hints := f.hintStyle.Render("  [1] board  [2] activity  [tab] switch  [q] quit")
	if f.activeTab == TabFeed {
		hints = f.hintStyle.Render("  [1] board  [2] activity  [↑/↓] scroll  [q] quit")
	}

	return counts + alerts + status + hints
}

// Height returns the footer height in lines.
func (f *Footer) Height() int {
	return 1
}
