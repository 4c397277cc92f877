package models

import "time"

// ResultStatus classifies the outcome of a task execution.
type ResultStatus string

const (
	// ResultSuccess indicates the task finished as intended.
	ResultSuccess ResultStatus = "success"
	// ResultFailure indicates the task did not finish.
	ResultFailure ResultStatus = "failure"
	// ResultPartial indicates the task finished with caveats.
	ResultPartial ResultStatus = "partial"
)

// Valid returns true if the result status is a known value.
func (s ResultStatus) Valid() bool {
	switch s {
	case ResultSuccess, ResultFailure, ResultPartial:
		return true
	default:
		return false
	}
}

// TaskResult is what an executor returns for one task. Executor faults are
// converted into a failure result at the runtime boundary; they never
// propagate as errors.
type TaskResult struct {
	// TaskID identifies the task this result belongs to.
	TaskID string `json:"task_id"`
	// Status classifies the outcome.
	Status ResultStatus `json:"status"`
	// Output is the primary textual output of the execution.
	Output string `json:"output,omitempty"`
	// Artifacts lists files or resources produced by the execution.
	Artifacts []string `json:"artifacts,omitempty"`
	// Duration is how long the execution took.
	Duration time.Duration `json:"duration"`
	// Errors lists failures encountered during execution.
	Errors []string `json:"errors,omitempty"`
	// Warnings lists non-fatal issues encountered during execution.
	Warnings []string `json:"warnings,omitempty"`
	// NextSteps suggests follow-up work identified by the executor.
	NextSteps []string `json:"next_steps,omitempty"`
}
