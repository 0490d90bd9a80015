// Package runner coordinates workflow execution: matrix fan-out, job
// dependency ordering, step gating, and event reporting.
package runner

import (
	"time"

	"github.com/kestrelci/kestrel/pkg/models"
)

// EventType represents the type of runner event.
type EventType string

const (
	// EventRunStarted indicates a workflow run has started.
	EventRunStarted EventType = "run_started"
	// EventRunFinished indicates the run reached a terminal status.
	EventRunFinished EventType = "run_finished"
	// EventJobStarted indicates a matrix cell has started executing.
	EventJobStarted EventType = "job_started"
	// EventJobFinished indicates a matrix cell reached a terminal status.
	EventJobFinished EventType = "job_finished"
	// EventJobSkipped indicates a job was skipped because a dependency failed.
	EventJobSkipped EventType = "job_skipped"
	// EventStepStarted indicates a step has started within a cell.
	EventStepStarted EventType = "step_started"
	// EventStepFinished indicates a step finished, with its outcome.
	EventStepFinished EventType = "step_finished"
	// EventStepOutput carries one line of step output.
	EventStepOutput EventType = "step_output"
	// EventWarning carries a non-fatal problem, e.g. an advisory step
	// failure or an artifact that could not be collected.
	EventWarning EventType = "warning"
)

// Event represents an event emitted during a run. Events feed the
// plain reporter and the TUI.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID is the ID of the run.
	RunID string
	// Job is the job name, if applicable.
	Job string
	// Cell is the matrix cell display name, if applicable.
	Cell string
	// Step is the step display name, for step events.
	Step string
	// StepIndex is the zero-based step position, for step events.
	StepIndex int
	// Status is the terminal status for finished events.
	Status models.Status
	// Line is one line of output, for step_output events.
	Line string
	// Stderr marks the output line as coming from standard error.
	Stderr bool
	// Message provides additional context, e.g. warning text.
	Message string
	// Err contains error details for failure events.
	Err error
	// Duration is the elapsed time for finished events.
	Duration time.Duration
	// Timestamp is when the event occurred.
	Timestamp time.Time
}
