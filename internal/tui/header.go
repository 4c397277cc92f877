package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/foremanhq/foreman/internal/monitor"
)

// Header renders the title bar with overall progress and confidence.
type Header struct {
	projectID string
	width     int
	snapshot  *monitor.ProgressSnapshot

	titleStyle    lipgloss.Style
	progressStyle lipgloss.Style
	warnStyle     lipgloss.Style
	dimStyle      lipgloss.Style
}

// NewHeader creates a new Header.
func NewHeader(projectID string) *Header {
	return &Header{
		projectID: projectID,
		width:     80,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")).
			Padding(0, 1),

		progressStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		warnStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetSnapshot updates the progress data shown in the header.
func (h *Header) SetSnapshot(snap *monitor.ProgressSnapshot) {
	h.snapshot = snap
}

// View renders the header.
func (h *Header) View() string {
	title := h.titleStyle.Render(fmt.Sprintf("FOREMAN · %s", h.projectID))

	status := h.dimStyle.Render("waiting for first snapshot")
	if h.snapshot != nil {
		progress := h.progressStyle.Render(
			fmt.Sprintf("%.0f%% complete", h.snapshot.OverallProgress))

		confidence := fmt.Sprintf("confidence %.0f%%", h.snapshot.Prediction.Confidence*100)
		if h.snapshot.Prediction.Confidence < 0.6 {
			confidence = h.warnStyle.Render(confidence)
		} else {
			confidence = h.dimStyle.Render(confidence)
		}

		blockers := h.dimStyle.Render(fmt.Sprintf("%d blocker(s)", len(h.snapshot.Blockers)))
		status = lipgloss.JoinHorizontal(lipgloss.Top,
			progress, h.dimStyle.Render("  ·  "), confidence, h.dimStyle.Render("  ·  "), blockers)
	}

	bar := lipgloss.NewStyle().
		Width(h.width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("240"))

	return bar.Render(lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", status))
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 2 // title line + border
}
