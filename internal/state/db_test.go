package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelci/kestrel/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Errorf("second Migrate failed: %v", err)
	}
}

func TestRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	run := &models.Run{
		ID:           "run-0001",
		Workflow:     "ci",
		WorkflowPath: ".kestrel.yml",
		Event:        "pull_request",
		Branch:       "main",
		Status:       models.StatusRunning,
		StartedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun("run-0001")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.Workflow != "ci" || got.Event != "pull_request" || got.Status != models.StatusRunning {
		t.Errorf("GetRun = %+v", got)
	}
	if got.FinishedAt != nil {
		t.Error("FinishedAt should be nil before the run finishes")
	}

	finished := time.Now().UTC().Truncate(time.Second)
	run.Status = models.StatusSuccess
	run.FinishedAt = &finished
	if err := db.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	got, err = db.GetRun("run-0001")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != models.StatusSuccess {
		t.Errorf("Status = %q, want success", got.Status)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	db := openTestDB(t)

	run := &models.Run{ID: "abcd1234-5678", Workflow: "ci", Status: models.StatusSuccess, StartedAt: time.Now()}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := db.GetRun("abcd1234")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.ID != "abcd1234-5678" {
		t.Errorf("GetRun by prefix = %+v", got)
	}
}

func TestGetRunAmbiguousPrefix(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"abc111", "abc222"} {
		run := &models.Run{ID: id, Workflow: "ci", Status: models.StatusSuccess, StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun(%s) failed: %v", id, err)
		}
	}

	if _, err := db.GetRun("abc"); err == nil {
		t.Error("GetRun with a prefix matching two runs should error")
	}

	got, err := db.GetRun("abc1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.ID != "abc111" {
		t.Errorf("GetRun by unique prefix = %+v", got)
	}
}

func TestGetRunExactIDWinsOverPrefix(t *testing.T) {
	db := openTestDB(t)

	for _, id := range []string{"abc", "abcdef"} {
		run := &models.Run{ID: id, Workflow: "ci", Status: models.StatusSuccess, StartedAt: time.Now()}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun(%s) failed: %v", id, err)
		}
	}

	got, err := db.GetRun("abc")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.ID != "abc" {
		t.Errorf("GetRun = %+v, want the exact match", got)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetRun = %+v, want nil", got)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"old", "mid", "new"} {
		run := &models.Run{
			ID:        id,
			Workflow:  "ci",
			Status:    models.StatusSuccess,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun(%s) failed: %v", id, err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("runs = [%s %s], want [new mid]", runs[0].ID, runs[1].ID)
	}
}

func TestJobRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	run := &models.Run{ID: "r1", Workflow: "ci", Status: models.StatusRunning, StartedAt: time.Now()}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	job := &models.JobRun{
		ID:        "j1",
		RunID:     "r1",
		Job:       "test",
		Cell:      "test (linux, 3.11)",
		Matrix:    map[string]string{"os": "linux", "py": "3.11"},
		RunsOn:    "linux",
		Status:    models.StatusRunning,
		StartedAt: time.Now(),
	}
	if err := db.CreateJobRun(job); err != nil {
		t.Fatalf("CreateJobRun failed: %v", err)
	}

	job.Status = models.StatusFailed
	job.Error = "step 2 exited with code 1"
	now := time.Now()
	job.FinishedAt = &now
	if err := db.UpdateJobRun(job); err != nil {
		t.Fatalf("UpdateJobRun failed: %v", err)
	}

	jobs, err := db.ListJobRuns("r1")
	if err != nil {
		t.Fatalf("ListJobRuns failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
	got := jobs[0]
	if got.Status != models.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Error == "" {
		t.Error("Error should round-trip")
	}
	if got.Matrix["py"] != "3.11" {
		t.Errorf("Matrix = %v", got.Matrix)
	}
}

func TestStepRunRoundTrip(t *testing.T) {
	db := openTestDB(t)

	run := &models.Run{ID: "r1", Workflow: "ci", Status: models.StatusRunning, StartedAt: time.Now()}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	job := &models.JobRun{ID: "j1", RunID: "r1", Job: "lint", Cell: "lint", Status: models.StatusRunning, StartedAt: time.Now()}
	if err := db.CreateJobRun(job); err != nil {
		t.Fatalf("CreateJobRun failed: %v", err)
	}

	for i, name := range []string{"gating", "advisory"} {
		step := &models.StepRun{
			ID:        name,
			JobRunID:  "j1",
			Index:     i,
			Name:      name,
			Command:   "flake8 .",
			Status:    models.StatusRunning,
			StartedAt: time.Now(),
		}
		if err := db.CreateStepRun(step); err != nil {
			t.Fatalf("CreateStepRun(%s) failed: %v", name, err)
		}
	}

	advisory := &models.StepRun{ID: "advisory", Status: models.StatusWarning, ExitCode: 1, OutputTail: "W291 trailing whitespace"}
	if err := db.UpdateStepRun(advisory); err != nil {
		t.Fatalf("UpdateStepRun failed: %v", err)
	}

	steps, err := db.ListStepRuns("j1")
	if err != nil {
		t.Fatalf("ListStepRuns failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(steps))
	}
	if steps[0].Name != "gating" || steps[1].Name != "advisory" {
		t.Errorf("step order = [%s %s]", steps[0].Name, steps[1].Name)
	}
	if steps[1].Status != models.StatusWarning || steps[1].ExitCode != 1 {
		t.Errorf("advisory step = %+v", steps[1])
	}
}
