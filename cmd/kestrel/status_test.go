package main

import (
	"strings"
	"testing"
	"time"

	"github.com/kestrelci/kestrel/internal/state"
	"github.com/kestrelci/kestrel/pkg/models"
)

func openTestDB(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.OpenProject(t.TempDir())
	if err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestShowRunUnknownID(t *testing.T) {
	db := openTestDB(t)

	err := showRun(db, "deadbeef")
	if err == nil {
		t.Fatal("showRun with an unknown id should fail, not panic")
	}
	if !strings.Contains(err.Error(), "deadbeef") {
		t.Errorf("error %q does not name the id", err)
	}
}

func TestShowRunKnownID(t *testing.T) {
	db := openTestDB(t)
	run := &models.Run{
		ID:        "aaaa1111-0000-0000-0000-000000000000",
		Workflow:  "ci",
		Status:    models.StatusSuccess,
		StartedAt: time.Now(),
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := showRun(db, "aaaa1111"); err != nil {
		t.Errorf("showRun() error = %v", err)
	}
}
