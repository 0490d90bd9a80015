package models

import "time"

// Status represents the state of a run, job, or step.
type Status string

const (
	// StatusPending indicates execution has not started.
	StatusPending Status = "pending"
	// StatusRunning indicates execution is in progress.
	StatusRunning Status = "running"
	// StatusSuccess indicates execution completed successfully.
	StatusSuccess Status = "success"
	// StatusFailed indicates execution failed.
	StatusFailed Status = "failed"
	// StatusCancelled indicates execution was cancelled before completion.
	StatusCancelled Status = "cancelled"
	// StatusSkipped indicates execution was skipped, e.g. because a
	// dependency failed or a trigger did not match.
	StatusSkipped Status = "skipped"
	// StatusWarning indicates a step failed but was marked
	// continue-on-error, so the failure did not gate the job.
	StatusWarning Status = "warning"
)

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed,
		StatusCancelled, StatusSkipped, StatusWarning:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status represents a finished state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusSkipped, StatusWarning:
		return true
	default:
		return false
	}
}

// Gating returns true if the status should fail the enclosing job or run.
// Warnings and skips do not gate.
func (s Status) Gating() bool {
	return s == StatusFailed || s == StatusCancelled
}

// Run represents one execution of a workflow.
type Run struct {
	// ID is the unique identifier for this run.
	ID string `json:"id"`
	// Workflow is the name of the workflow that was executed.
	Workflow string `json:"workflow"`
	// WorkflowPath is the path of the workflow file.
	WorkflowPath string `json:"workflow_path,omitempty"`
	// Event is the triggering event kind, if one was supplied.
	Event string `json:"event,omitempty"`
	// Branch is the target branch of the triggering event.
	Branch string `json:"branch,omitempty"`
	// Status is the overall run status.
	Status Status `json:"status"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run finished, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// JobRun represents the execution of a single matrix cell of a job.
type JobRun struct {
	// ID is the unique identifier for this job run.
	ID string `json:"id"`
	// RunID is the ID of the enclosing run.
	RunID string `json:"run_id"`
	// Job is the job name from the workflow definition.
	Job string `json:"job"`
	// Cell is the display name including matrix values,
	// e.g. "test (ubuntu-22.04, 3.11)".
	Cell string `json:"cell"`
	// Matrix holds the axis values assigned to this cell.
	Matrix map[string]string `json:"matrix,omitempty"`
	// RunsOn is the interpolated runs-on value.
	RunsOn string `json:"runs_on,omitempty"`
	// Container is the interpolated container image, if the job ran in one.
	Container string `json:"container,omitempty"`
	// Status is the current state of the job run.
	Status Status `json:"status"`
	// Error contains the failure message if the job run failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the job run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the job run finished, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StepRun represents the execution of one step within a job run.
type StepRun struct {
	// ID is the unique identifier for this step run.
	ID string `json:"id"`
	// JobRunID is the ID of the enclosing job run.
	JobRunID string `json:"job_run_id"`
	// Index is the zero-based position of the step within the job.
	Index int `json:"index"`
	// Name is the step name, or the command if the step is unnamed.
	Name string `json:"name"`
	// Command is the interpolated command that was executed.
	Command string `json:"command,omitempty"`
	// Status is the step outcome.
	Status Status `json:"status"`
	// ExitCode is the process exit code, when the step ran a process.
	ExitCode int `json:"exit_code"`
	// OutputTail holds the last portion of combined output for display.
	OutputTail string `json:"output_tail,omitempty"`
	// StartedAt is when the step began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the step finished, if it has.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
