package monitor

import (
	"fmt"
	"time"
)

// ReportPeriod selects the history window a report summarizes.
type ReportPeriod string

const (
	// ReportDaily covers the last 24 hours.
	ReportDaily ReportPeriod = "DAILY"
	// ReportWeekly covers the last 7 days.
	ReportWeekly ReportPeriod = "WEEKLY"
	// ReportMilestone covers the last 30 days.
	ReportMilestone ReportPeriod = "MILESTONE"
)

// Trend describes the direction progress is moving in.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendSteady    Trend = "steady"
	TrendDeclining Trend = "declining"
)

// ProgressReport summarizes a slice of snapshot history.
type ProgressReport struct {
	// Period is the window the report covers.
	Period ReportPeriod `json:"period"`
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`
	// WindowStart is the cutoff of the sampled window.
	WindowStart time.Time `json:"window_start"`
	// Samples is the number of snapshots in the window.
	Samples int `json:"samples"`
	// ProgressDelta is the change in overall progress across the window.
	ProgressDelta float64 `json:"progress_delta"`
	// Trend is the direction derived from the delta.
	Trend Trend `json:"trend"`
	// Achievements lists positive developments in the window.
	Achievements []string `json:"achievements,omitempty"`
	// Challenges lists open problems at the end of the window.
	Challenges []string `json:"challenges,omitempty"`
	// Latest is the newest snapshot in the window.
	Latest *ProgressSnapshot `json:"latest,omitempty"`
}

// windowFor maps a period onto its lookback duration.
func windowFor(period ReportPeriod) time.Duration {
	switch period {
	case ReportDaily:
		return 24 * time.Hour
	case ReportWeekly:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// GenerateReport slices the history by the period's window and
// summarizes the progress delta, achievements, and challenges.
func GenerateReport(history *History, period ReportPeriod, now time.Time) *ProgressReport {
	cutoff := now.Add(-windowFor(period))
	window := history.Since(cutoff)

	report := &ProgressReport{
		Period:      period,
		GeneratedAt: now,
		WindowStart: cutoff,
		Samples:     len(window),
	}
	if len(window) == 0 {
		report.Trend = TrendSteady
		return report
	}

	first := window[0]
	last := window[len(window)-1]
	report.Latest = last
	report.ProgressDelta = last.OverallProgress - first.OverallProgress

	switch {
	case report.ProgressDelta > 1:
		report.Trend = TrendImproving
	case report.ProgressDelta < -1:
		report.Trend = TrendDeclining
	default:
		report.Trend = TrendSteady
	}

	report.Achievements = achievements(first, last, report.ProgressDelta)
	report.Challenges = challenges(last)
	return report
}

// achievements derives positive developments from the window's endpoints.
func achievements(first, last *ProgressSnapshot, delta float64) []string {
	var out []string

	if delta > 0 {
		out = append(out, fmt.Sprintf("overall progress advanced %.1f%%", delta))
	}
	if resolved := len(first.Blockers) - len(last.Blockers); resolved > 0 {
		out = append(out, fmt.Sprintf("%d blocker(s) resolved", resolved))
	}
	for _, phase := range last.Phases {
		if phase.OnTrack && phase.CompletedTasks == phase.TotalTasks && phase.TotalTasks > 0 {
			out = append(out, fmt.Sprintf("phase %q completed", phase.Phase))
		}
	}
	if last.Quality.GatesPassed > first.Quality.GatesPassed {
		out = append(out, fmt.Sprintf("%d task(s) cleared quality gates", last.Quality.GatesPassed-first.Quality.GatesPassed))
	}

	return out
}

// challenges derives open problems from the newest snapshot.
func challenges(last *ProgressSnapshot) []string {
	var out []string

	if n := len(last.Blockers); n > 0 {
		out = append(out, fmt.Sprintf("%d blocker(s) still open", n))
	}
	for _, phase := range last.Phases {
		if !phase.OnTrack {
			out = append(out, fmt.Sprintf("phase %q is behind schedule", phase.Phase))
		}
	}
	if last.Prediction.Confidence < timelineConfidenceThreshold {
		out = append(out, fmt.Sprintf("forecast confidence down to %.2f", last.Prediction.Confidence))
	}
	if last.Quality.GatesFailed > 0 {
		out = append(out, fmt.Sprintf("%d task(s) failed quality gates", last.Quality.GatesFailed))
	}

	return out
}
