package models

import "time"

// MessageType identifies the kind of message on the coordinator bus.
type MessageType string

const (
	// MessageTaskAssignment tells an agent it has been assigned a task.
	MessageTaskAssignment MessageType = "task_assignment"
	// MessageStatusUpdate carries an agent lifecycle change.
	MessageStatusUpdate MessageType = "status_update"
	// MessageProgressUpdate carries a task progress report.
	MessageProgressUpdate MessageType = "progress_update"
	// MessageTaskResult carries the outcome of a finished task.
	MessageTaskResult MessageType = "task_result"
	// MessageDecisionRequest asks a human for input on a task.
	MessageDecisionRequest MessageType = "decision_request"
	// MessageCoordination carries fleet-wide announcements.
	MessageCoordination MessageType = "coordination"
)

// Valid returns true if the message type is a known value.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTaskAssignment, MessageStatusUpdate, MessageProgressUpdate,
		MessageTaskResult, MessageDecisionRequest, MessageCoordination:
		return true
	default:
		return false
	}
}

// MessagePriority ranks delivery urgency on the bus.
type MessagePriority string

const (
	// MessagePriorityUrgent messages are delivered before all others.
	MessagePriorityUrgent MessagePriority = "urgent"
	// MessagePriorityNormal is the default delivery priority.
	MessagePriorityNormal MessagePriority = "normal"
	// MessagePriorityLow messages are delivered last.
	MessagePriorityLow MessagePriority = "low"
)

// AgentMessage is the envelope for messages passed through the coordinator.
// A message is created once, consumed once, then marked processed.
type AgentMessage struct {
	// ID is the unique identifier for this message.
	ID string `json:"id"`
	// Type is the kind of message.
	Type MessageType `json:"type"`
	// Sender is the component or agent that produced the message.
	Sender string `json:"sender"`
	// Recipient is the target agent ID. Empty means broadcast.
	Recipient string `json:"recipient,omitempty"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
	// Payload carries message-specific data.
	Payload map[string]string `json:"payload,omitempty"`
	// Priority ranks delivery urgency.
	Priority MessagePriority `json:"priority"`
	// RequiresResponse indicates the sender expects a reply and is
	// responsible for re-issuing if none arrives.
	RequiresResponse bool `json:"requires_response"`
	// CorrelationID links a reply back to the originating message.
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Broadcast returns true if the message has no named recipient.
func (m *AgentMessage) Broadcast() bool {
	return m.Recipient == ""
}
