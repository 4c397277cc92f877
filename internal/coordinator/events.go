// Package coordinator is the single authoritative owner of the agent
// registry and the task-to-agent binding. It drives the asynchronous
// message bus, invokes the distribution engine for assignment, and
// marshals every task state transition through the task store.
package coordinator

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventType identifies the kind of coordinator event.
type EventType string

const (
	// EventAgentRegistered indicates an agent joined the registry.
	EventAgentRegistered EventType = "agent_registered"
	// EventTaskAssigned indicates a task was bound to an agent.
	EventTaskAssigned EventType = "task_assigned"
	// EventTaskCompleted indicates a task finished and passed its gates.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task execution returned a failure.
	EventTaskFailed EventType = "task_failed"
	// EventTaskBlocked indicates a task entered the blocked state.
	EventTaskBlocked EventType = "task_blocked"
	// EventGateFailed indicates a finished task did not clear its quality gate.
	EventGateFailed EventType = "gate_failed"
	// EventMessageDropped indicates a bus message could not be delivered.
	EventMessageDropped EventType = "message_dropped"
	// EventDecisionRequested indicates a human decision was requested.
	EventDecisionRequested EventType = "decision_requested"
	// EventDecisionTimeout indicates a decision request expired unanswered.
	EventDecisionTimeout EventType = "decision_timeout"
	// EventStopRequested indicates a stop signal was observed.
	EventStopRequested EventType = "stop_requested"
)

// Event is emitted by the coordinator for external observers such as
// the dashboard. Events are advisory; dropping one loses no state.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the related task, if applicable.
	TaskID string
	// AgentID is the related agent, if applicable.
	AgentID string
	// Message provides additional context.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emitter fans coordinator events out to one subscriber over a buffered
// channel. Sends never block the dispatch path: when the buffer is full
// the event is dropped and counted.
type Emitter struct {
	events  chan Event
	dropped atomic.Uint64
	logger  *zap.Logger
}

// NewEmitter creates an emitter with the given buffer size.
func NewEmitter(bufferSize int, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		events: make(chan Event, bufferSize),
		logger: logger,
	}
}

// Emit sends an event without blocking. Full buffer drops the event.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
	default:
		count := e.dropped.Add(1)
		if count%10 == 1 {
			e.logger.Warn("event channel full, dropping",
				zap.String("type", string(event.Type)),
				zap.Uint64("total_dropped", count))
		}
	}
}

// Events returns the read side of the event channel.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// DroppedCount returns how many events have been dropped so far.
func (e *Emitter) DroppedCount() uint64 {
	return e.dropped.Load()
}

// Close closes the event channel. Call only after the coordinator has
// fully stopped; emitting on a closed emitter panics.
func (e *Emitter) Close() {
	close(e.events)
}
