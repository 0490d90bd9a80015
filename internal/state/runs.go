package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kestrelci/kestrel/pkg/models"
)

// Run CRUD operations

// CreateRun inserts a new run record.
func (db *DB) CreateRun(r *models.Run) error {
	_, err := db.Exec(`
		INSERT INTO runs (id, workflow, workflow_path, event, branch, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Workflow, r.WorkflowPath, r.Event, r.Branch, string(r.Status), formatTime(r.StartedAt), nullableTime(r.FinishedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// UpdateRun updates the mutable fields of a run.
func (db *DB) UpdateRun(r *models.Run) error {
	_, err := db.Exec(`
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, string(r.Status), nullableTime(r.FinishedAt), r.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, or by unambiguous ID prefix.
// Returns nil without error when nothing matches, and an error when
// the prefix matches more than one run.
func (db *DB) GetRun(id string) (*models.Run, error) {
	rows, err := db.Query(`
		SELECT id, workflow, workflow_path, event, branch, status, started_at, finished_at
		FROM runs WHERE id = ? OR id LIKE ? || '%' LIMIT 2
	`, id, id)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []*models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	}
	for _, m := range matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("ambiguous run id %q", id)
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, workflow, workflow_path, event, branch, status, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var r models.Run
	var startedAt string
	var finishedAt sql.NullString
	err := row.Scan(&r.ID, &r.Workflow, &r.WorkflowPath, &r.Event, &r.Branch, &r.Status, &startedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = scanNullableTime(finishedAt)
	return &r, nil
}

// JobRun CRUD operations

// CreateJobRun inserts a new job run record.
func (db *DB) CreateJobRun(j *models.JobRun) error {
	matrixJSON, err := json.Marshal(j.Matrix)
	if err != nil {
		return fmt.Errorf("marshal matrix: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO job_runs (id, run_id, job, cell, matrix, runs_on, container, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.RunID, j.Job, j.Cell, string(matrixJSON), j.RunsOn, j.Container, string(j.Status), j.Error, formatTime(j.StartedAt), nullableTime(j.FinishedAt))
	if err != nil {
		return fmt.Errorf("create job run: %w", err)
	}
	return nil
}

// UpdateJobRun updates the mutable fields of a job run.
func (db *DB) UpdateJobRun(j *models.JobRun) error {
	_, err := db.Exec(`
		UPDATE job_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(j.Status), j.Error, nullableTime(j.FinishedAt), j.ID)
	if err != nil {
		return fmt.Errorf("update job run: %w", err)
	}
	return nil
}

// ListJobRuns returns the job runs of a run in insertion order.
func (db *DB) ListJobRuns(runID string) ([]models.JobRun, error) {
	rows, err := db.Query(`
		SELECT id, run_id, job, cell, matrix, runs_on, container, status, error, started_at, finished_at
		FROM job_runs WHERE run_id = ? ORDER BY started_at, cell
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var jobs []models.JobRun
	for rows.Next() {
		var j models.JobRun
		var matrixJSON sql.NullString
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&j.ID, &j.RunID, &j.Job, &j.Cell, &matrixJSON, &j.RunsOn, &j.Container, &j.Status, &j.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		if matrixJSON.Valid && matrixJSON.String != "" && matrixJSON.String != "null" {
			if err := json.Unmarshal([]byte(matrixJSON.String), &j.Matrix); err != nil {
				return nil, fmt.Errorf("unmarshal matrix for %s: %w", j.ID, err)
			}
		}
		j.StartedAt, _ = parseTime(startedAt)
		j.FinishedAt = scanNullableTime(finishedAt)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// StepRun CRUD operations

// CreateStepRun inserts a new step run record.
func (db *DB) CreateStepRun(s *models.StepRun) error {
	_, err := db.Exec(`
		INSERT INTO step_runs (id, job_run_id, idx, name, command, status, exit_code, output_tail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.JobRunID, s.Index, s.Name, s.Command, string(s.Status), s.ExitCode, s.OutputTail, formatTime(s.StartedAt), nullableTime(s.FinishedAt))
	if err != nil {
		return fmt.Errorf("create step run: %w", err)
	}
	return nil
}

// UpdateStepRun updates the mutable fields of a step run.
func (db *DB) UpdateStepRun(s *models.StepRun) error {
	_, err := db.Exec(`
		UPDATE step_runs SET status = ?, exit_code = ?, output_tail = ?, finished_at = ? WHERE id = ?
	`, string(s.Status), s.ExitCode, s.OutputTail, nullableTime(s.FinishedAt), s.ID)
	if err != nil {
		return fmt.Errorf("update step run: %w", err)
	}
	return nil
}

// ListStepRuns returns the step runs of a job run ordered by step index.
func (db *DB) ListStepRuns(jobRunID string) ([]models.StepRun, error) {
	rows, err := db.Query(`
		SELECT id, job_run_id, idx, name, command, status, exit_code, output_tail, started_at, finished_at
		FROM step_runs WHERE job_run_id = ? ORDER BY idx
	`, jobRunID)
	if err != nil {
		return nil, fmt.Errorf("list step runs: %w", err)
	}
	defer rows.Close()

	var steps []models.StepRun
	for rows.Next() {
		var s models.StepRun
		var startedAt string
		var finishedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.JobRunID, &s.Index, &s.Name, &s.Command, &s.Status, &s.ExitCode, &s.OutputTail, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan step run: %w", err)
		}
		s.StartedAt, _ = parseTime(startedAt)
		s.FinishedAt = scanNullableTime(finishedAt)
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
