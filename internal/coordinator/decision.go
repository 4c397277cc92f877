package coordinator

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/pkg/models"
)

// defaultDecisionTimeout bounds how long an unanswered decision request
// is allowed to hold a task before it is treated as a blocking condition.
const defaultDecisionTimeout = 30 * time.Minute

// DecisionRequest asks a human to resolve a question an agent cannot
// decide on its own.
type DecisionRequest struct {
	// ID is assigned by the coordinator when the request is submitted.
	ID string
	// TaskID is the task the decision is about.
	TaskID string
	// AgentID is the agent that raised the question.
	AgentID string
	// Question is the prompt presented to the human.
	Question string
	// Options optionally constrains the answer to a fixed choice set.
	Options []string
	// Urgency ranks the request on the bus.
	Urgency models.MessagePriority
	// Timeout bounds the wait; zero means the default.
	Timeout time.Duration
}

// DecisionBroker is the human-decision collaborator. RequestDecision
// blocks until an answer arrives or the context expires.
type DecisionBroker interface {
	RequestDecision(ctx context.Context, req DecisionRequest) (string, error)
}

// RequestDecision forwards a question to the decision broker and waits
// for the answer within the request's timeout. An expired request marks
// the task blocked and fails with DECISION_TIMEOUT; the decision itself
// is also logged on the bus so observers see it was asked.
func (c *Coordinator) RequestDecision(ctx context.Context, req DecisionRequest) (string, error) {
	if c.broker == nil {
		return "", fault.New(fault.DecisionTimeout, "no decision broker configured")
	}

	req.ID = uuid.NewString()
	if req.Timeout <= 0 {
		req.Timeout = defaultDecisionTimeout
	}
	if req.Urgency == "" {
		req.Urgency = models.MessagePriorityNormal
	}

	msg := &models.AgentMessage{
		ID:        req.ID,
		Type:      models.MessageDecisionRequest,
		Sender:    req.AgentID,
		Timestamp: time.Now(),
		Payload: map[string]string{
			"task_id":  req.TaskID,
			"question": req.Question,
			"options":  strings.Join(req.Options, ", "),
		},
		Priority:         req.Urgency,
		RequiresResponse: true,
	}
	if err := c.messages.SaveMessage(msg); err != nil {
		c.logger.Error("failed to log decision request",
			zap.String("task", req.TaskID), zap.Error(err))
	}
	c.emitter.Emit(Event{Type: EventDecisionRequested, TaskID: req.TaskID, AgentID: req.AgentID, Message: req.Question})

	waitCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	answer, err := c.broker.RequestDecision(waitCtx, req)
	if err != nil {
		if waitCtx.Err() != nil {
			c.blockTaskOnDecision(req)
			c.emitter.Emit(Event{Type: EventDecisionTimeout, TaskID: req.TaskID, AgentID: req.AgentID})
			return "", fault.Wrap(fault.DecisionTimeout, err,
				"decision %s for task %s expired after %s", req.ID, req.TaskID, req.Timeout)
		}
		return "", err
	}

	c.logger.Info("decision received",
		zap.String("task", req.TaskID),
		zap.String("decision", req.ID))
	return answer, nil
}

// blockTaskOnDecision records the unanswered decision as a blocker on
// the requesting task.
func (c *Coordinator) blockTaskOnDecision(req DecisionRequest) {
	task, err := c.tasks.GetTask(req.TaskID)
	if err != nil {
		c.logger.Error("cannot block task for expired decision",
			zap.String("task", req.TaskID), zap.Error(err))
		return
	}

	status := models.TaskStatusBlocked
	blockers := append(append([]string(nil), task.Blockers...),
		"awaiting approval: "+req.Question)
	if err := c.tasks.UpdateTask(req.TaskID, store.TaskUpdate{Status: &status, Blockers: &blockers}); err != nil {
		c.logger.Error("failed to persist decision blocker",
			zap.String("task", req.TaskID), zap.Error(err))
		return
	}
	c.emitter.Emit(Event{Type: EventTaskBlocked, TaskID: req.TaskID, AgentID: req.AgentID})
}
