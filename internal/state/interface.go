// Package state provides SQLite-based run history for kestrel.
package state

import (
	"io"

	"github.com/kestrelci/kestrel/pkg/models"
)

// RunStore handles run-level persistence operations.
type RunStore interface {
	CreateRun(r *models.Run) error
	UpdateRun(r *models.Run) error
	GetRun(id string) (*models.Run, error)
	ListRuns(limit int) ([]models.Run, error)
}

// JobRunStore handles job-run persistence operations.
type JobRunStore interface {
	CreateJobRun(j *models.JobRun) error
	UpdateJobRun(j *models.JobRun) error
	ListJobRuns(runID string) ([]models.JobRun, error)
}

// StepRunStore handles step-run persistence operations.
type StepRunStore interface {
	CreateStepRun(s *models.StepRun) error
	UpdateStepRun(s *models.StepRun) error
	ListStepRuns(jobRunID string) ([]models.StepRun, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for run-history persistence. The runner
// works against this interface so it can execute with the SQLite
// implementation or with no persistence at all.
type Store interface {
	io.Closer
	Migrator
	RunStore
	JobRunStore
	StepRunStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ RunStore     = (*DB)(nil)
	_ JobRunStore  = (*DB)(nil)
	_ StepRunStore = (*DB)(nil)
)

// NoopStore discards everything. Used when history is disabled.
type NoopStore struct{}

func (NoopStore) Close() error                                  { return nil }
func (NoopStore) Migrate() error                                { return nil }
func (NoopStore) CreateRun(*models.Run) error                   { return nil }
func (NoopStore) UpdateRun(*models.Run) error                   { return nil }
func (NoopStore) GetRun(string) (*models.Run, error)            { return nil, nil }
func (NoopStore) ListRuns(int) ([]models.Run, error)            { return nil, nil }
func (NoopStore) CreateJobRun(*models.JobRun) error             { return nil }
func (NoopStore) UpdateJobRun(*models.JobRun) error             { return nil }
func (NoopStore) ListJobRuns(string) ([]models.JobRun, error)   { return nil, nil }
func (NoopStore) CreateStepRun(*models.StepRun) error           { return nil }
func (NoopStore) UpdateStepRun(*models.StepRun) error           { return nil }
func (NoopStore) ListStepRuns(string) ([]models.StepRun, error) { return nil, nil }

var _ Store = NoopStore{}
