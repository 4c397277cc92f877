package agent

import (
	"time"

	"github.com/foremanhq/foreman/pkg/models"
)

// HealthLevel grades how well a runtime is doing.
type HealthLevel string

const (
	// HealthHealthy indicates the runtime is available and working normally.
	HealthHealthy HealthLevel = "healthy"
	// HealthDegraded indicates the runtime is up but not fully operational.
	HealthDegraded HealthLevel = "degraded"
	// HealthUnhealthy indicates the runtime cannot do work.
	HealthUnhealthy HealthLevel = "unhealthy"
)

// warmupPeriod is how long a freshly-ready runtime reports degraded health
// while its metrics are still meaningless.
const warmupPeriod = 30 * time.Second

// HealthStatus is a point-in-time health report for one runtime.
type HealthStatus struct {
	// Level grades the runtime's health.
	Level HealthLevel
	// Status is the lifecycle state the grade was derived from.
	Status models.AgentStatus
	// Uptime is how long the runtime has been available.
	Uptime time.Duration
	// ActiveTasks is the number of tasks in flight.
	ActiveTasks int
	// LastError is the most recent fault message, if any.
	LastError string
}

// GetHealthStatus derives the runtime's health purely from its lifecycle
// state and uptime. Side-effect free; safe to call while tasks execute.
func (r *Runtime) GetHealthStatus() HealthStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := HealthStatus{
		Status:      r.status,
		Uptime:      r.uptimeLocked(),
		ActiveTasks: len(r.currentTasks),
		LastError:   r.lastError,
	}

	switch r.status {
	case models.AgentStatusError, models.AgentStatusOffline:
		status.Level = HealthUnhealthy
	case models.AgentStatusInitializing, models.AgentStatusBlocked:
		status.Level = HealthDegraded
	default:
		if status.Uptime < warmupPeriod {
			status.Level = HealthDegraded
		} else {
			status.Level = HealthHealthy
		}
	}

	return status
}
