package monitor

import (
	"fmt"
	"time"

	"github.com/foremanhq/foreman/internal/agent"
)

// AlertType identifies a class of progress alert.
type AlertType string

const (
	// AlertCriticalBlocker fires for blockers on critical-priority tasks.
	AlertCriticalBlocker AlertType = "CRITICAL_BLOCKER"
	// AlertAgentHealth fires for agents that cannot do work.
	AlertAgentHealth AlertType = "AGENT_HEALTH"
	// AlertTimelineRisk fires when forecast confidence drops too low.
	AlertTimelineRisk AlertType = "TIMELINE_RISK"
)

// timelineConfidenceThreshold is the forecast confidence below which a
// timeline risk alert is raised.
const timelineConfidenceThreshold = 0.6

// ProgressAlert is an advisory signal for external consumers. Alerts
// are never exceptions; raising one changes no task or agent state.
type ProgressAlert struct {
	// Type classifies the alert.
	Type AlertType `json:"type"`
	// Message explains the condition.
	Message string `json:"message"`
	// TaskID is the related task, if applicable.
	TaskID string `json:"task_id,omitempty"`
	// AgentID is the related agent, if applicable.
	AgentID string `json:"agent_id,omitempty"`
	// Timestamp is when the alert was raised.
	Timestamp time.Time `json:"timestamp"`
}

// CheckForAlerts derives the alert set from one snapshot: a
// CRITICAL_BLOCKER per critical-impact blocker, an AGENT_HEALTH per
// unhealthy agent, and a TIMELINE_RISK when confidence is below 0.6.
func CheckForAlerts(snap *ProgressSnapshot) []ProgressAlert {
	var alerts []ProgressAlert

	for _, blocker := range snap.Blockers {
		if blocker.Impact != ImpactCritical {
			continue
		}
		alerts = append(alerts, ProgressAlert{
			Type:      AlertCriticalBlocker,
			Message:   fmt.Sprintf("critical task %s is blocked: %s", blocker.TaskID, blocker.Description),
			TaskID:    blocker.TaskID,
			Timestamp: snap.Timestamp,
		})
	}

	for _, status := range snap.Agents {
		if status.Health != agent.HealthUnhealthy {
			continue
		}
		alerts = append(alerts, ProgressAlert{
			Type:      AlertAgentHealth,
			Message:   fmt.Sprintf("agent %s is %s and cannot take work", status.AgentID, status.Status),
			AgentID:   status.AgentID,
			Timestamp: snap.Timestamp,
		})
	}

	if snap.Prediction.Confidence < timelineConfidenceThreshold {
		alerts = append(alerts, ProgressAlert{
			Type: AlertTimelineRisk,
			Message: fmt.Sprintf("forecast confidence %.2f is below %.1f",
				snap.Prediction.Confidence, timelineConfidenceThreshold),
			Timestamp: snap.Timestamp,
		})
	}

	return alerts
}
