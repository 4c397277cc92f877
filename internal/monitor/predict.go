package monitor

import (
	"fmt"
	"time"

	"github.com/foremanhq/foreman/pkg/models"
)

// RiskKind identifies a class of schedule risk.
type RiskKind string

const (
	// RiskAgentOverload indicates agents completing work too slowly.
	RiskAgentOverload RiskKind = "AGENT_OVERLOAD"
	// RiskUnresolvedBlockers indicates open blockers on the board.
	RiskUnresolvedBlockers RiskKind = "UNRESOLVED_BLOCKERS"
)

// overloadVelocityThreshold is the tasks-per-hour floor under which a
// working agent counts as overloaded.
const overloadVelocityThreshold = 0.5

// RiskFactor is one identified schedule risk. Probability and impact
// are both on a [0,1] scale and feed the prediction confidence.
type RiskFactor struct {
	// Kind classifies the risk.
	Kind RiskKind `json:"kind"`
	// Description explains the risk in human terms.
	Description string `json:"description"`
	// Probability is how likely the risk is to materialize.
	Probability float64 `json:"probability"`
	// Impact is how badly the schedule slips if it does.
	Impact float64 `json:"impact"`
}

// Scenario is one completion-date projection.
type Scenario struct {
	// Name is optimistic, realistic, or pessimistic.
	Name string `json:"name"`
	// CompletionDate is the projected finish. Zero when the fleet has
	// no measurable velocity.
	CompletionDate time.Time `json:"completion_date"`
	// Probability is the weight given to this scenario.
	Probability float64 `json:"probability"`
}

// ProgressPrediction is the forecast derived from one snapshot.
type ProgressPrediction struct {
	// AverageVelocity is the fleet's mean tasks per hour.
	AverageVelocity float64 `json:"average_velocity"`
	// RemainingHours sums the estimates of unfinished tasks.
	RemainingHours float64 `json:"remaining_hours"`
	// Scenarios holds the optimistic/realistic/pessimistic projections.
	Scenarios []Scenario `json:"scenarios"`
	// Risks lists the identified schedule risks.
	Risks []RiskFactor `json:"risks"`
	// Confidence is the [0.1,1] confidence in the realistic scenario.
	Confidence float64 `json:"confidence"`
}

// scenarioShapes fixes the velocity factor and weight of each projection.
var scenarioShapes = []struct {
	name        string
	factor      float64
	probability float64
}{
	{"optimistic", 1.3, 0.2},
	{"realistic", 1.0, 0.6},
	{"pessimistic", 0.7, 0.2},
}

// Predict computes completion scenarios and schedule risks from the
// sampled fleet state. Remaining work is the estimate sum over tasks
// that are neither completed nor deferred; each scenario projects
// now + remaining/(velocity*factor).
func Predict(agents []AgentProgressStatus, tasks []*models.Task, blockers []ProgressBlocker, now time.Time) ProgressPrediction {
	p := ProgressPrediction{}

	var velocitySum float64
	for _, a := range agents {
		velocitySum += a.TasksPerHour
	}
	if len(agents) > 0 {
		p.AverageVelocity = velocitySum / float64(len(agents))
	}

	for _, task := range tasks {
		if !task.Status.Terminal() {
			p.RemainingHours += task.EstimatedHours
		}
	}

	for _, shape := range scenarioShapes {
		s := Scenario{Name: shape.name, Probability: shape.probability}
		if v := p.AverageVelocity * shape.factor; v > 0 {
			s.CompletionDate = now.Add(time.Duration(p.RemainingHours / v * float64(time.Hour)))
		}
		p.Scenarios = append(p.Scenarios, s)
	}

	p.Risks = identifyRiskFactors(agents, blockers)
	p.Confidence = confidenceFrom(p.Risks)
	return p
}

// identifyRiskFactors inspects the fleet for schedule risks: working
// agents below the velocity threshold, and any open blockers.
func identifyRiskFactors(agents []AgentProgressStatus, blockers []ProgressBlocker) []RiskFactor {
	var risks []RiskFactor

	slow := 0
	for _, a := range agents {
		if a.ActiveTasks > 0 && a.TasksPerHour < overloadVelocityThreshold {
			slow++
		}
	}
	if slow > 0 {
		risks = append(risks, RiskFactor{
			Kind:        RiskAgentOverload,
			Description: fmt.Sprintf("%d agent(s) completing fewer than %.1f tasks/hour while loaded", slow, overloadVelocityThreshold),
			Probability: 0.7,
			Impact:      0.6,
		})
	}

	if len(blockers) > 0 {
		risks = append(risks, RiskFactor{
			Kind:        RiskUnresolvedBlockers,
			Description: fmt.Sprintf("%d unresolved blocker(s) on the board", len(blockers)),
			Probability: 0.6,
			Impact:      0.5,
		})
	}

	return risks
}

// confidenceFrom folds risks into a confidence level:
// max(0.1, 1 - mean(probability*impact)). No risks means full confidence.
func confidenceFrom(risks []RiskFactor) float64 {
	if len(risks) == 0 {
		return 1.0
	}

	var sum float64
	for _, r := range risks {
		sum += r.Probability * r.Impact
	}
	confidence := 1 - sum/float64(len(risks))
	if confidence < 0.1 {
		confidence = 0.1
	}
	return confidence
}
