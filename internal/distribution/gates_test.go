package distribution

import (
	"math"
	"strings"
	"testing"

	"github.com/foremanhq/foreman/pkg/models"
)

func TestScoreGatesWeightedAverage(t *testing.T) {
	report := ScoreGates("t1", GateScores{
		Complexity:  0.9,
		Coverage:    0.6,
		Security:    0.9,
		Performance: 0.9,
	})

	// 0.3*0.9 + 0.4*0.6 + 0.2*0.9 + 0.1*0.9 = 0.78
	if math.Abs(report.Overall-0.78) > 1e-9 {
		t.Errorf("Overall = %.4f, want 0.78", report.Overall)
	}
	if report.Passed {
		t.Error("gate should fail below the 0.8 threshold")
	}

	if len(report.Failures) != 1 {
		t.Fatalf("Failures = %v, want exactly the coverage check", report.Failures)
	}
	if !strings.HasPrefix(report.Failures[0], "coverage") {
		t.Errorf("Failures[0] = %q, want a coverage failure", report.Failures[0])
	}
}

func TestScoreGatesPassesAtThreshold(t *testing.T) {
	report := ScoreGates("t1", GateScores{
		Complexity:  0.8,
		Coverage:    0.8,
		Security:    0.8,
		Performance: 0.8,
	})

	if math.Abs(report.Overall-0.8) > 1e-9 {
		t.Errorf("Overall = %.4f, want 0.80", report.Overall)
	}
	if !report.Passed {
		t.Error("gate should pass at exactly the threshold")
	}
}

func TestEvaluateQualityGatesReadsMetadata(t *testing.T) {
	task := testTask("t1", models.TaskTypeBackend, models.PriorityMedium)
	task.Metadata = map[string]string{
		"gate.complexity":  "0.9",
		"gate.coverage":    "0.95",
		"gate.security":    "0.9",
		"gate.performance": "0.9",
	}

	report := EvaluateQualityGates(task)
	if !report.Passed {
		t.Errorf("gate should pass with strong metadata scores, got overall %.2f", report.Overall)
	}
	if report.Scores.Coverage != 0.95 {
		t.Errorf("Coverage = %.2f, want the metadata value 0.95", report.Scores.Coverage)
	}
}

func TestEvaluateQualityGatesIgnoresBadMetadata(t *testing.T) {
	task := testTask("t1", models.TaskTypeBackend, models.PriorityMedium)
	task.Metadata = map[string]string{
		"gate.coverage": "not a number",
		"gate.security": "1.7",
	}

	report := EvaluateQualityGates(task)
	if report.Scores.Coverage != 0.5 {
		t.Errorf("Coverage = %.2f, want the 0.5 fallback", report.Scores.Coverage)
	}
	if report.Scores.Security != 0.8 {
		t.Errorf("Security = %.2f, want the 0.8 fallback", report.Scores.Security)
	}
}

func TestComplexityHeuristicTracksEffort(t *testing.T) {
	tests := []struct {
		hours float64
		want  float64
	}{
		{2, 0.9},
		{8, 0.8},
		{16, 0.6},
		{40, 0.4},
	}

	for _, tt := range tests {
		task := testTask("t", models.TaskTypeBackend, models.PriorityMedium)
		task.EstimatedHours = tt.hours
		if got := complexityHeuristic(task); got != tt.want {
			t.Errorf("complexityHeuristic(%v hours) = %.2f, want %.2f", tt.hours, got, tt.want)
		}
	}
}
