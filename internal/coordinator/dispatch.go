package coordinator

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/distribution"
	"github.com/foremanhq/foreman/internal/fault"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/pkg/models"
)

// dispatchLoop runs the coordination tick: distribute ready tasks with
// the default strategy, then drain the message log. The loop honors the
// signal manager's pause and stop files and exits when the context is
// cancelled.
func (c *Coordinator) dispatchLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.dispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.signals != nil {
				if c.signals.ShouldStop() {
					c.logger.Info("stop signal observed, shutting down")
					c.emitter.Emit(Event{Type: EventStopRequested})
					go c.Stop()
					return
				}
				if c.signals.ShouldPause() {
					continue
				}
			}
			if _, err := c.DistributeReady(ctx, ""); err != nil {
				c.logger.Error("distribution pass failed", zap.Error(err))
			}
			c.drainMessages(ctx)
		}
	}
}

// drainMessages delivers every pending message once. Addressed messages
// go to the named runtime; broadcasts go to every registered runtime.
// Delivery failures are logged and the message is dropped; there is no
// automatic retry, so senders that set requiresResponse must re-issue
// themselves when no response arrives.
func (c *Coordinator) drainMessages(ctx context.Context) {
	seen := make(map[string]bool)

	for _, agentID := range c.agentIDs() {
		msgs, err := c.messages.GetUnprocessedMessages(agentID)
		if err != nil {
			c.logger.Error("failed to read message queue",
				zap.String("agent", agentID), zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			if seen[msg.ID] {
				continue
			}
			seen[msg.ID] = true

			if msg.Broadcast() {
				for _, id := range c.agentIDs() {
					if rt := c.Agent(id); rt != nil {
						c.deliverOne(ctx, msg, rt)
					}
				}
			} else if rt := c.Agent(msg.Recipient); rt != nil {
				c.deliverOne(ctx, msg, rt)
			}

			if err := c.messages.MarkMessageProcessed(msg.ID); err != nil {
				c.logger.Error("failed to mark message processed",
					zap.String("message", msg.ID), zap.Error(err))
			}
		}
	}
}

// deliverOne hands a message to a runtime. Failures are logged and
// counted as dropped deliveries.
func (c *Coordinator) deliverOne(ctx context.Context, msg *models.AgentMessage, rt *agent.Runtime) {
	if err := c.deliver(ctx, msg, rt); err != nil {
		wrapped := fault.Wrap(fault.MessageSendFailed, err,
			"delivering %s message %s to agent %s", msg.Type, msg.ID, rt.ID())
		c.logger.Warn("message delivery failed", zap.Error(wrapped))
		c.emitter.Emit(Event{
			Type:    EventMessageDropped,
			AgentID: rt.ID(),
			Message: wrapped.Error(),
		})
	}
}

// deliver routes one message by type.
func (c *Coordinator) deliver(ctx context.Context, msg *models.AgentMessage, rt *agent.Runtime) error {
	switch msg.Type {
	case models.MessageTaskAssignment:
		return c.deliverAssignment(ctx, msg, rt)

	case models.MessageProgressUpdate:
		taskID := msg.Payload["task_id"]
		pct, err := strconv.ParseFloat(msg.Payload["percentage"], 64)
		if err != nil {
			return fault.New(fault.MessageSendFailed, "progress update %s has bad percentage %q", msg.ID, msg.Payload["percentage"])
		}
		rt.UpdateTaskProgress(taskID, pct, msg.Payload["step"])
		return nil

	default:
		// Status updates, results, decision requests, and coordination
		// notices carry no action for a runtime; delivery is observation.
		c.logger.Debug("message delivered",
			zap.String("message", msg.ID),
			zap.String("type", string(msg.Type)),
			zap.String("agent", rt.ID()))
		return nil
	}
}

// deliverAssignment launches the assigned task on the target runtime.
// Execution runs outside the dispatch tick so a slow executor never
// stalls the bus.
func (c *Coordinator) deliverAssignment(ctx context.Context, msg *models.AgentMessage, rt *agent.Runtime) error {
	taskID := msg.Payload["task_id"]
	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.executeAssignment(ctx, rt, task)
	}()
	return nil
}

// executeAssignment runs the task on the runtime and finalizes the
// outcome. Runtime rejections (a race against a competing assignment or
// a stop) return the task to the pool.
func (c *Coordinator) executeAssignment(ctx context.Context, rt *agent.Runtime, task *models.Task) {
	result, err := rt.ExecuteTask(ctx, task)
	if err != nil {
		c.engine.Workloads().ReleaseAssignment(rt.ID(), task)

		status := models.TaskStatusNotStarted
		unassigned := ""
		if uerr := c.tasks.UpdateTask(task.ID, store.TaskUpdate{Status: &status, AssignedTo: &unassigned}); uerr != nil {
			c.logger.Error("failed to return rejected task to pool",
				zap.String("task", task.ID), zap.Error(uerr))
		}
		c.logger.Warn("agent rejected assignment",
			zap.String("task", task.ID),
			zap.String("agent", rt.ID()),
			zap.Error(err))
		return
	}

	c.finalizeResult(rt, task, result)
}

// finalizeResult folds a task result into the store and the workload
// tracker. Successful results must clear the quality gate before the
// task is marked completed; failures become blockers, never crashes.
func (c *Coordinator) finalizeResult(rt *agent.Runtime, task *models.Task, result *models.TaskResult) {
	c.engine.Workloads().RecordCompletion(rt.ID(), task, result)

	var (
		status   models.TaskStatus
		blockers []string
	)
	switch result.Status {
	case models.ResultSuccess:
		if gate := distribution.EvaluateQualityGates(task); !gate.Passed {
			status = models.TaskStatusReview
			blockers = append([]string{"quality gate not cleared"}, gate.Failures...)
			c.emitter.Emit(Event{Type: EventGateFailed, TaskID: task.ID, AgentID: rt.ID()})
		} else {
			status = models.TaskStatusCompleted
		}
	case models.ResultPartial:
		status = models.TaskStatusReview
	default:
		status = models.TaskStatusBlocked
		blockers = result.Errors
		if len(blockers) == 0 {
			blockers = []string{"task execution failed"}
		}
	}

	hours := result.Duration.Hours()
	update := store.TaskUpdate{Status: &status}
	if hours > 0 {
		update.ActualHours = &hours
	}
	if len(blockers) > 0 {
		update.Blockers = &blockers
	}
	if err := c.tasks.UpdateTask(task.ID, update); err != nil {
		c.logger.Error("failed to persist task result",
			zap.String("task", task.ID), zap.Error(err))
	}

	report := &models.AgentMessage{
		ID:        uuid.NewString(),
		Type:      models.MessageTaskResult,
		Sender:    rt.ID(),
		Timestamp: time.Now(),
		Payload: map[string]string{
			"task_id": task.ID,
			"status":  string(result.Status),
		},
		Priority: models.MessagePriorityNormal,
	}
	if err := c.messages.SaveMessage(report); err != nil {
		c.logger.Error("failed to log task result message",
			zap.String("task", task.ID), zap.Error(err))
	}

	switch status {
	case models.TaskStatusCompleted:
		c.emitter.Emit(Event{Type: EventTaskCompleted, TaskID: task.ID, AgentID: rt.ID()})
	case models.TaskStatusBlocked:
		c.emitter.Emit(Event{Type: EventTaskBlocked, TaskID: task.ID, AgentID: rt.ID()})
		c.emitter.Emit(Event{Type: EventTaskFailed, TaskID: task.ID, AgentID: rt.ID(), Message: result.Output})
	}

	c.logger.Info("task finished",
		zap.String("task", task.ID),
		zap.String("agent", rt.ID()),
		zap.String("result", string(result.Status)),
		zap.String("status", string(status)))
}
