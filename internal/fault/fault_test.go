package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(AgentNotFound, "agent %s is not registered", "agent-1")

	if got := KindOf(err); got != AgentNotFound {
		t.Errorf("expected kind %q, got %q", AgentNotFound, got)
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := New(TaskNotFound, "task t-1 missing")
	outer := fmt.Errorf("assign task: %w", inner)

	if !IsKind(outer, TaskNotFound) {
		t.Error("expected wrapped error to keep its kind")
	}
	if IsKind(outer, AgentNotFound) {
		t.Error("wrong kind matched")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty kind for plain error, got %q", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(AgentInitFailed, cause, "initialize agent-2")

	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestErrorMessage(t *testing.T) {
	err := New(StrategyNotFound, "no strategy named %q", "greedy")
	want := `STRATEGY_NOT_FOUND: no strategy named "greedy"`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
