// Package exec provides an interface for running workflow step commands.
package exec

import (
	"context"
	"io"
)

// Command describes one shell invocation.
type Command struct {
	// Shell is the interpreter, "sh" when empty.
	Shell string
	// Script is the command text passed to the interpreter with -c.
	Script string
	// Dir is the working directory; empty means the process default.
	Dir string
	// Env is the full environment in KEY=VALUE form. A nil Env runs
	// with the parent process environment.
	Env []string
}

// CommandRunner defines the interface for executing step commands.
// This abstraction allows mocking command execution in tests and
// swapping the host shell for a container backend.
type CommandRunner interface {
	// Run executes the command, streaming output to stdout and stderr.
	// A non-zero process exit is not an error: it comes back as the
	// exit code with a nil error. The error is reserved for failures
	// to run at all, including context cancellation.
	Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) (exitCode int, err error)
}
