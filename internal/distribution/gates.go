package distribution

import (
	"fmt"
	"strconv"

	"github.com/foremanhq/foreman/pkg/models"
)

// Gate weights. The four checks contribute a weighted average and the
// combined score must reach the pass threshold before a task may leave
// review.
const (
	gateWeightComplexity  = 0.3
	gateWeightCoverage    = 0.4
	gateWeightSecurity    = 0.2
	gateWeightPerformance = 0.1
	gatePassThreshold     = 0.8
)

// GateScores holds the per-check scores, each in [0,1].
type GateScores struct {
	// Complexity rates how manageable the task's implementation is.
	Complexity float64 `json:"complexity"`
	// Coverage rates the test coverage of the task output.
	Coverage float64 `json:"coverage"`
	// Security rates the output against security review criteria.
	Security float64 `json:"security"`
	// Performance rates the output against performance criteria.
	Performance float64 `json:"performance"`
}

// GateReport is the outcome of a quality gate evaluation.
type GateReport struct {
	// TaskID identifies the evaluated task.
	TaskID string `json:"task_id"`
	// Scores are the individual check results.
	Scores GateScores `json:"scores"`
	// Overall is the weighted combined score.
	Overall float64 `json:"overall"`
	// Passed is true when the overall score meets the threshold.
	Passed bool `json:"passed"`
	// Failures names the checks that scored below the threshold.
	Failures []string `json:"failures,omitempty"`
}

// ScoreGates combines the four check scores into a pass/fail report.
// Weights: complexity 0.3, coverage 0.4, security 0.2, performance 0.1.
// The gate passes at an overall score of 0.8 or above.
func ScoreGates(taskID string, scores GateScores) GateReport {
	report := GateReport{
		TaskID: taskID,
		Scores: scores,
		Overall: gateWeightComplexity*scores.Complexity +
			gateWeightCoverage*scores.Coverage +
			gateWeightSecurity*scores.Security +
			gateWeightPerformance*scores.Performance,
	}
	report.Passed = report.Overall >= gatePassThreshold

	checks := []struct {
		name  string
		score float64
	}{
		{"complexity", scores.Complexity},
		{"coverage", scores.Coverage},
		{"security", scores.Security},
		{"performance", scores.Performance},
	}
	for _, c := range checks {
		if c.score < gatePassThreshold {
			report.Failures = append(report.Failures, fmt.Sprintf("%s scored %.2f", c.name, c.score))
		}
	}

	return report
}

// EvaluateQualityGates derives the check scores for a task and combines
// them. Scores reported by the agent in task metadata (gate.complexity,
// gate.coverage, gate.security, gate.performance) take precedence;
// missing checks fall back to effort-based heuristics.
func EvaluateQualityGates(task *models.Task) GateReport {
	scores := GateScores{
		Complexity:  gateScore(task, "gate.complexity", complexityHeuristic(task)),
		Coverage:    gateScore(task, "gate.coverage", 0.5),
		Security:    gateScore(task, "gate.security", 0.8),
		Performance: gateScore(task, "gate.performance", 0.8),
	}
	return ScoreGates(task.ID, scores)
}

// gateScore reads an explicit score from task metadata, falling back to
// the heuristic default. Out-of-range or unparseable values are ignored.
func gateScore(task *models.Task, key string, fallback float64) float64 {
	if task.Metadata != nil {
		if raw, ok := task.Metadata[key]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
				return v
			}
		}
	}
	return fallback
}

// complexityHeuristic scores manageability from the effort estimate:
// small tasks are easy to review, multi-day tasks are not.
func complexityHeuristic(task *models.Task) float64 {
	switch hours := taskHours(task); {
	case hours <= 4:
		return 0.9
	case hours <= 8:
		return 0.8
	case hours <= 16:
		return 0.6
	default:
		return 0.4
	}
}
