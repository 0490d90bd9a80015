package exec

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// waitDelay bounds how long Run waits for output pipes to drain after
// the context is cancelled. Without it, a killed shell's surviving
// children hold the pipes open and block Wait for their full runtime.
const waitDelay = 5 * time.Second

// HostRunner implements CommandRunner on the host shell using os/exec.
type HostRunner struct{}

// NewHostRunner creates a new HostRunner.
func NewHostRunner() *HostRunner {
	return &HostRunner{}
}

// Run executes the command through "<shell> -c".
func (r *HostRunner) Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (int, error) {
	shell := cmd.Shell
	if shell == "" {
		shell = "sh"
	}

	c := exec.CommandContext(ctx, shell, "-c", cmd.Script)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = stdout
	c.Stderr = stderr

	// The shell gets its own process group so cancellation kills the
	// whole process tree, not just the shell itself.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
	c.WaitDelay = waitDelay

	err := c.Run()
	if err == nil {
		return 0, nil
	}

	// A cancelled context kills the process; report the cancellation,
	// not the resulting signal exit.
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// LookPath reports whether the given binary is available on PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Verify HostRunner implements CommandRunner at compile time.
var _ CommandRunner = (*HostRunner)(nil)
