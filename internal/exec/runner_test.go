package exec

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestHostRunnerSuccess(t *testing.T) {
	r := NewHostRunner()
	var out, errOut bytes.Buffer

	code, err := r.Run(context.Background(), Command{Script: "echo hello"}, &out, &errOut)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if got := strings.TrimSpace(out.String()); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
}

func TestHostRunnerNonZeroExit(t *testing.T) {
	r := NewHostRunner()
	var out, errOut bytes.Buffer

	code, err := r.Run(context.Background(), Command{Script: "exit 7"}, &out, &errOut)
	if err != nil {
		t.Fatalf("non-zero exit should not be an error, got %v", err)
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
}

func TestHostRunnerStderr(t *testing.T) {
	r := NewHostRunner()
	var out, errOut bytes.Buffer

	_, err := r.Run(context.Background(), Command{Script: "echo oops >&2"}, &out, &errOut)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.TrimSpace(errOut.String()); got != "oops" {
		t.Errorf("stderr = %q, want %q", got, "oops")
	}
	if out.Len() != 0 {
		t.Errorf("stdout = %q, want empty", out.String())
	}
}

func TestHostRunnerEnv(t *testing.T) {
	r := NewHostRunner()
	var out, errOut bytes.Buffer

	cmd := Command{
		Script: "echo $KESTREL_TEST_VALUE",
		Env:    []string{"PATH=/usr/bin:/bin", "KESTREL_TEST_VALUE=present"},
	}
	if _, err := r.Run(context.Background(), cmd, &out, &errOut); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "present" {
		t.Errorf("stdout = %q, want %q", got, "present")
	}
}

func TestHostRunnerContextCancellation(t *testing.T) {
	r := NewHostRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out, errOut bytes.Buffer
	start := time.Now()
	_, err := r.Run(ctx, Command{Script: "sleep 30"}, &out, &errOut)
	if err == nil {
		t.Fatal("Run should fail when the context expires")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Run did not return promptly after cancellation")
	}
}

func TestHostRunnerBashShell(t *testing.T) {
	if !LookPath("bash") {
		t.Skip("bash not installed")
	}
	r := NewHostRunner()
	var out, errOut bytes.Buffer

	code, err := r.Run(context.Background(), Command{Shell: "bash", Script: "echo $0"}, &out, &errOut)
	if err != nil || code != 0 {
		t.Fatalf("Run = (%d, %v)", code, err)
	}
	if !strings.Contains(out.String(), "bash") {
		t.Errorf("stdout = %q, want it to mention bash", out.String())
	}
}

func TestHostRunnerCancellationKillsChildren(t *testing.T) {
	r := NewHostRunner()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// A background child inherits the output pipes; Run must not wait
	// for it after the shell is killed.
	var out, errOut bytes.Buffer
	start := time.Now()
	_, err := r.Run(ctx, Command{Script: "sleep 30 & sleep 30"}, &out, &errOut)
	if err == nil {
		t.Fatal("Run should fail when the context expires")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run blocked %s after cancellation", elapsed)
	}
}
