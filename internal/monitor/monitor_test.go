package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/foremanhq/foreman/internal/agent"
	"github.com/foremanhq/foreman/internal/store"
	"github.com/foremanhq/foreman/pkg/models"
)

func snapTask(id string, status models.TaskStatus, priority models.TaskPriority) *models.Task {
	return &models.Task{
		ID:             id,
		Title:          "task " + id,
		Type:           models.TaskTypeBackend,
		Priority:       priority,
		Status:         status,
		EstimatedHours: 4,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func TestCaptureSnapshotOverallProgress(t *testing.T) {
	tasks := []*models.Task{
		snapTask("t1", models.TaskStatusCompleted, models.PriorityMedium),
		snapTask("t2", models.TaskStatusInProgress, models.PriorityMedium),
		snapTask("t3", models.TaskStatusNotStarted, models.PriorityMedium),
		snapTask("t4", models.TaskStatusNotStarted, models.PriorityMedium),
	}

	snap := CaptureSnapshot("proj", nil, tasks, time.Now())
	if snap.OverallProgress != 25 {
		t.Errorf("OverallProgress = %.1f, want 25", snap.OverallProgress)
	}
}

func TestCaptureSnapshotEmptyProject(t *testing.T) {
	snap := CaptureSnapshot("proj", nil, nil, time.Now())
	if snap.OverallProgress != 0 {
		t.Errorf("OverallProgress = %.1f, want 0 for an empty project", snap.OverallProgress)
	}
	if len(snap.Blockers) != 0 {
		t.Errorf("Blockers = %v, want none", snap.Blockers)
	}
}

func TestPhaseProgressGroupsByMetadata(t *testing.T) {
	done := snapTask("t1", models.TaskStatusCompleted, models.PriorityMedium)
	done.Metadata = map[string]string{"phase": "planning"}
	open := snapTask("t2", models.TaskStatusNotStarted, models.PriorityMedium)
	open.Metadata = map[string]string{"phase": "build"}
	stray := snapTask("t3", models.TaskStatusNotStarted, models.PriorityMedium)

	snap := CaptureSnapshot("proj", nil, []*models.Task{done, open, stray}, time.Now())
	if len(snap.Phases) != 3 {
		t.Fatalf("got %d phases, want 3 (build, planning, unphased)", len(snap.Phases))
	}

	byName := make(map[string]PhaseProgress)
	for _, p := range snap.Phases {
		byName[p.Phase] = p
	}
	if byName["planning"].ActualProgress != 100 {
		t.Errorf("planning progress = %.1f, want 100", byName["planning"].ActualProgress)
	}
	if byName["build"].ActualProgress != 0 {
		t.Errorf("build progress = %.1f, want 0", byName["build"].ActualProgress)
	}
	if _, ok := byName["unphased"]; !ok {
		t.Error("tasks without a phase should group under unphased")
	}
}

func TestPhaseProgressOverdueTasksFallBehind(t *testing.T) {
	overdue := time.Now().Add(-24 * time.Hour)
	late := snapTask("t1", models.TaskStatusInProgress, models.PriorityMedium)
	late.DueDate = &overdue
	late.Metadata = map[string]string{"phase": "build"}

	snap := CaptureSnapshot("proj", nil, []*models.Task{late}, time.Now())
	if len(snap.Phases) != 1 {
		t.Fatalf("got %d phases, want 1", len(snap.Phases))
	}
	if snap.Phases[0].OnTrack {
		t.Error("phase with an overdue unfinished task should not be on track")
	}
}

func TestClassifyBlocker(t *testing.T) {
	tests := []struct {
		description string
		want        BlockerType
	}{
		{"depends on the schema migration", BlockerDependency},
		{"waiting on task t-42", BlockerDependency},
		{"no GPU capacity left in the cluster", BlockerResource},
		{"needs sign-off from the security team", BlockerApproval},
		{"awaiting approval: deploy to production?", BlockerApproval},
		{"vendor API is down", BlockerExternal},
		{"segfault in the parser", BlockerTechnical},
		{"", BlockerTechnical},
	}

	for _, tt := range tests {
		if got := ClassifyBlocker(tt.description); got != tt.want {
			t.Errorf("ClassifyBlocker(%q) = %s, want %s", tt.description, got, tt.want)
		}
	}
}

func TestCollectBlockersDerivesImpactFromPriority(t *testing.T) {
	blocked := snapTask("t1", models.TaskStatusBlocked, models.PriorityCritical)
	blocked.Blockers = []string{"vendor API is down"}

	snap := CaptureSnapshot("proj", nil, []*models.Task{blocked}, time.Now())
	if len(snap.Blockers) != 1 {
		t.Fatalf("got %d blockers, want 1", len(snap.Blockers))
	}
	b := snap.Blockers[0]
	if b.Impact != ImpactCritical {
		t.Errorf("Impact = %s, want CRITICAL", b.Impact)
	}
	if b.Type != BlockerExternal {
		t.Errorf("Type = %s, want EXTERNAL", b.Type)
	}
}

func TestPredictScenarios(t *testing.T) {
	agents := []AgentProgressStatus{
		{AgentID: "a1", TasksPerHour: 1.0, ActiveTasks: 1},
		{AgentID: "a2", TasksPerHour: 2.0, ActiveTasks: 1},
	}
	tasks := []*models.Task{
		snapTask("t1", models.TaskStatusNotStarted, models.PriorityMedium),
		snapTask("t2", models.TaskStatusInProgress, models.PriorityMedium),
		snapTask("t3", models.TaskStatusCompleted, models.PriorityMedium),
	}

	now := time.Now()
	p := Predict(agents, tasks, nil, now)

	if p.AverageVelocity != 1.5 {
		t.Errorf("AverageVelocity = %.2f, want 1.5", p.AverageVelocity)
	}
	if p.RemainingHours != 8 {
		t.Errorf("RemainingHours = %.1f, want 8 (completed tasks excluded)", p.RemainingHours)
	}
	if len(p.Scenarios) != 3 {
		t.Fatalf("got %d scenarios, want 3", len(p.Scenarios))
	}

	// realistic: now + 8/(1.5*1.0) hours
	realistic := p.Scenarios[1]
	if realistic.Name != "realistic" || realistic.Probability != 0.6 {
		t.Errorf("Scenarios[1] = %+v, want realistic with probability 0.6", realistic)
	}
	wantRealistic := now.Add(time.Duration(8 / 1.5 * float64(time.Hour)))
	if diff := realistic.CompletionDate.Sub(wantRealistic); diff < -time.Second || diff > time.Second {
		t.Errorf("realistic completion = %v, want %v", realistic.CompletionDate, wantRealistic)
	}

	optimistic, pessimistic := p.Scenarios[0], p.Scenarios[2]
	if !optimistic.CompletionDate.Before(realistic.CompletionDate) {
		t.Error("optimistic scenario should finish before realistic")
	}
	if !pessimistic.CompletionDate.After(realistic.CompletionDate) {
		t.Error("pessimistic scenario should finish after realistic")
	}
	if p.Confidence != 1.0 {
		t.Errorf("Confidence = %.2f, want 1.0 with no risks", p.Confidence)
	}
}

func TestSlowFleetRaisesTimelineRisk(t *testing.T) {
	agents := []AgentProgressStatus{
		{AgentID: "a1", TasksPerHour: 0.3, ActiveTasks: 1},
		{AgentID: "a2", TasksPerHour: 0.3, ActiveTasks: 2},
	}
	tasks := []*models.Task{snapTask("t1", models.TaskStatusInProgress, models.PriorityMedium)}

	p := Predict(agents, tasks, nil, time.Now())

	found := false
	for _, risk := range p.Risks {
		if risk.Kind == RiskAgentOverload {
			found = true
		}
	}
	if !found {
		t.Fatalf("Risks = %+v, want an AGENT_OVERLOAD risk", p.Risks)
	}
	if p.Confidence >= 0.6 {
		t.Errorf("Confidence = %.2f, want below 0.6", p.Confidence)
	}

	snap := &ProgressSnapshot{Timestamp: time.Now(), Prediction: p}
	alerts := CheckForAlerts(snap)
	foundAlert := false
	for _, alert := range alerts {
		if alert.Type == AlertTimelineRisk {
			foundAlert = true
		}
	}
	if !foundAlert {
		t.Errorf("alerts = %+v, want a TIMELINE_RISK alert", alerts)
	}
}

func TestIdleSlowAgentsAreNotOverloaded(t *testing.T) {
	// A fresh agent with no completions has zero velocity but no work;
	// that is not overload.
	agents := []AgentProgressStatus{{AgentID: "a1", TasksPerHour: 0, ActiveTasks: 0}}
	p := Predict(agents, nil, nil, time.Now())
	if len(p.Risks) != 0 {
		t.Errorf("Risks = %+v, want none for an idle fleet", p.Risks)
	}
}

func TestCheckForAlertsCriticalBlockerAndHealth(t *testing.T) {
	snap := &ProgressSnapshot{
		Timestamp: time.Now(),
		Blockers: []ProgressBlocker{
			{TaskID: "t1", Description: "vendor API down", Type: BlockerExternal, Impact: ImpactCritical},
			{TaskID: "t2", Description: "flaky test", Type: BlockerTechnical, Impact: ImpactLow},
		},
		Agents: []AgentProgressStatus{
			{AgentID: "a1", Status: models.AgentStatusError, Health: agent.HealthUnhealthy},
			{AgentID: "a2", Status: models.AgentStatusReady, Health: agent.HealthHealthy},
		},
		Prediction: ProgressPrediction{Confidence: 0.9},
	}

	alerts := CheckForAlerts(snap)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2 (critical blocker + agent health): %+v", len(alerts), alerts)
	}
	if alerts[0].Type != AlertCriticalBlocker || alerts[0].TaskID != "t1" {
		t.Errorf("alerts[0] = %+v, want CRITICAL_BLOCKER for t1", alerts[0])
	}
	if alerts[1].Type != AlertAgentHealth || alerts[1].AgentID != "a1" {
		t.Errorf("alerts[1] = %+v, want AGENT_HEALTH for a1", alerts[1])
	}
}

func TestHistoryRingEvictsOldest(t *testing.T) {
	h := NewHistory()
	base := time.Now()

	for i := 0; i < historyCap+1; i++ {
		h.Push(&ProgressSnapshot{Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	if h.Len() != historyCap {
		t.Errorf("Len() = %d, want %d", h.Len(), historyCap)
	}
	if oldest := h.Oldest(); !oldest.Timestamp.Equal(base.Add(time.Second)) {
		t.Errorf("Oldest() = %v, want the second pushed snapshot", oldest.Timestamp)
	}
	if latest := h.Latest(); !latest.Timestamp.Equal(base.Add(historyCap * time.Second)) {
		t.Errorf("Latest() = %v, want the last pushed snapshot", latest.Timestamp)
	}
}

func TestHistorySince(t *testing.T) {
	h := NewHistory()
	base := time.Now()
	for i := 0; i < 10; i++ {
		h.Push(&ProgressSnapshot{Timestamp: base.Add(time.Duration(i) * time.Hour)})
	}

	got := h.Since(base.Add(7 * time.Hour))
	if len(got) != 3 {
		t.Fatalf("Since() returned %d snapshots, want 3", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(7 * time.Hour)) {
		t.Errorf("Since()[0] = %v, want the cutoff snapshot", got[0].Timestamp)
	}
}

func TestGenerateReportTrend(t *testing.T) {
	h := NewHistory()
	now := time.Now()
	h.Push(&ProgressSnapshot{Timestamp: now.Add(-6 * time.Hour), OverallProgress: 20,
		Blockers: []ProgressBlocker{{TaskID: "t1"}}})
	h.Push(&ProgressSnapshot{Timestamp: now.Add(-1 * time.Hour), OverallProgress: 45,
		Prediction: ProgressPrediction{Confidence: 1.0}})

	report := GenerateReport(h, ReportDaily, now)
	if report.Samples != 2 {
		t.Fatalf("Samples = %d, want 2", report.Samples)
	}
	if report.ProgressDelta != 25 {
		t.Errorf("ProgressDelta = %.1f, want 25", report.ProgressDelta)
	}
	if report.Trend != TrendImproving {
		t.Errorf("Trend = %s, want improving", report.Trend)
	}

	foundResolved := false
	for _, a := range report.Achievements {
		if a == "1 blocker(s) resolved" {
			foundResolved = true
		}
	}
	if !foundResolved {
		t.Errorf("Achievements = %v, want a resolved-blocker entry", report.Achievements)
	}
}

func TestGenerateReportEmptyWindow(t *testing.T) {
	report := GenerateReport(NewHistory(), ReportWeekly, time.Now())
	if report.Samples != 0 {
		t.Errorf("Samples = %d, want 0", report.Samples)
	}
	if report.Trend != TrendSteady {
		t.Errorf("Trend = %s, want steady for an empty window", report.Trend)
	}
}

type staticFleet struct{ agents []*agent.Runtime }

func (f staticFleet) Agents() []*agent.Runtime { return f.agents }

func TestMonitorSampleAppendsHistoryAndAlerts(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	blocked := snapTask("t1", models.TaskStatusBlocked, models.PriorityCritical)
	blocked.Blockers = []string{"needs sign-off from security"}
	if err := db.CreateTask(blocked); err != nil {
		t.Fatalf("create task: %v", err)
	}

	m := New("proj", db, staticFleet{}, nil)
	snap, err := m.Sample()
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}

	if m.History().Len() != 1 {
		t.Errorf("history length = %d, want 1", m.History().Len())
	}
	if len(snap.Blockers) != 1 || snap.Blockers[0].Type != BlockerApproval {
		t.Errorf("Blockers = %+v, want one APPROVAL blocker", snap.Blockers)
	}

	select {
	case alert := <-m.Alerts():
		if alert.Type != AlertCriticalBlocker {
			t.Errorf("alert type = %s, want CRITICAL_BLOCKER", alert.Type)
		}
	default:
		t.Error("expected a critical blocker alert")
	}
}
