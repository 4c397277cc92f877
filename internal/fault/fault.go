// Package fault defines the error taxonomy shared across the scheduler.
// Every surfaced error carries a Kind so callers can branch on the class
// of failure without string matching.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a scheduler error.
type Kind string

const (
	// ConfigInvalid indicates missing credentials or working directory.
	ConfigInvalid Kind = "CONFIG_INVALID"
	// AgentInitFailed indicates an agent could not complete initialization.
	AgentInitFailed Kind = "AGENT_INIT_FAILED"
	// AgentNotReady indicates a task was offered to an agent that cannot accept work.
	AgentNotReady Kind = "AGENT_NOT_READY"
	// TaskNotSupported indicates the task type is outside the agent's capabilities.
	TaskNotSupported Kind = "TASK_NOT_SUPPORTED"
	// AgentNotFound indicates a lookup for an unregistered agent.
	AgentNotFound Kind = "AGENT_NOT_FOUND"
	// TaskNotFound indicates a lookup for a task missing from the store.
	TaskNotFound Kind = "TASK_NOT_FOUND"
	// AgentCannotHandleTask indicates an assignment to an agent that fails canHandleTask.
	AgentCannotHandleTask Kind = "AGENT_CANNOT_HANDLE_TASK"
	// StrategyNotFound indicates an unknown distribution strategy name.
	StrategyNotFound Kind = "STRATEGY_NOT_FOUND"
	// MessageSendFailed indicates a bus delivery failure.
	MessageSendFailed Kind = "MESSAGE_SEND_FAILED"
	// DecisionTimeout indicates a human decision request expired unanswered.
	DecisionTimeout Kind = "DECISION_TIMEOUT"
)

// Error is a classified scheduler error.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Msg is the human-readable description.
	Msg string
	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a fault of the same kind.
// This makes errors.Is(err, &fault.Error{Kind: k}) work across wrapping.
func (e *Error) Is(target error) bool {
	var fe *Error
	if errors.As(target, &fe) {
		return e.Kind == fe.Kind
	}
	return false
}

// New creates a classified error.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a classified error around a cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of a classified error, or the empty Kind
// when the error carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
