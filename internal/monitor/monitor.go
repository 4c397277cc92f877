package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/store"
)

// defaultSampleInterval is how often the monitor loop captures a snapshot.
const defaultSampleInterval = 30 * time.Second

// Fleet provides read access to the registered agent runtimes.
// The coordinator satisfies this.
type Fleet interface {
	Agents() []*agent.Runtime
}

// Monitor periodically samples coordinator and agent state into
// snapshots, maintains the history ring, and publishes alerts. It holds
// read-only references; it never mutates a task or an agent.
type Monitor struct {
	projectID string
	tasks     store.TaskStore
	fleet     Fleet
	history   *History
	logger    *zap.Logger
	interval  time.Duration

	alerts  chan ProgressAlert
	dropped atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithSampleInterval overrides the 30-second sampling tick.
func WithSampleInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// New creates a monitor over the given collaborators.
func New(projectID string, tasks store.TaskStore, fleet Fleet, logger *zap.Logger, opts ...MonitorOption) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Monitor{
		projectID: projectID,
		tasks:     tasks,
		fleet:     fleet,
		history:   NewHistory(),
		logger:    logger,
		interval:  defaultSampleInterval,
		alerts:    make(chan ProgressAlert, 128),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// History exposes the snapshot ring for reports and dashboards.
func (m *Monitor) History() *History {
	return m.history
}

// Alerts returns the alert stream. Alerts are dropped, not queued
// indefinitely, when no consumer keeps up.
func (m *Monitor) Alerts() <-chan ProgressAlert {
	return m.alerts
}

// DroppedAlerts returns how many alerts were dropped so far.
func (m *Monitor) DroppedAlerts() uint64 {
	return m.dropped.Load()
}

// Start begins the sampling loop.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.wg.Add(1)
	go m.loop(loopCtx)

	m.logger.Info("monitor started",
		zap.String("project", m.projectID),
		zap.Duration("interval", m.interval))
}

// Stop halts the sampling loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sample(); err != nil {
				m.logger.Error("sampling failed", zap.Error(err))
			}
		}
	}
}

// Sample captures one snapshot, appends it to the history, and raises
// any derived alerts. Exposed so callers can sample on demand between
// ticks.
func (m *Monitor) Sample() (*ProgressSnapshot, error) {
	tasks, err := m.tasks.GetTasks(store.TaskFilter{})
	if err != nil {
		return nil, err
	}

	snap := CaptureSnapshot(m.projectID, m.fleet.Agents(), tasks, time.Now())
	m.history.Push(snap)

	for _, alert := range CheckForAlerts(snap) {
		m.publish(alert)
	}

	m.logger.Debug("snapshot captured",
		zap.Float64("overall_progress", snap.OverallProgress),
		zap.Int("blockers", len(snap.Blockers)),
		zap.Float64("confidence", snap.Prediction.Confidence))
	return snap, nil
}

// Report summarizes the history over the given period.
func (m *Monitor) Report(period ReportPeriod) *ProgressReport {
	return GenerateReport(m.history, period, time.Now())
}

// publish sends an alert without blocking the sampling loop.
func (m *Monitor) publish(alert ProgressAlert) {
	select {
	case m.alerts <- alert:
	default:
		count := m.dropped.Add(1)
		if count%10 == 1 {
			m.logger.Warn("alert channel full, dropping",
				zap.String("type", string(alert.Type)),
				zap.Uint64("total_dropped", count))
		}
	}
}
