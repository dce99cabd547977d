// internal/cargo/runner.go
package cargo

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

// CommandSpec describes one external invocation.
type CommandSpec struct {
	Name string
	Args []string
	Dir  string
}

// Runner executes a command to completion and reports its exit code. The
// returned error covers launch failures and abnormal termination; a nonzero
// exit is reported through the code, with the *exec.ExitError attached.
type Runner interface {
	Run(ctx context.Context, spec CommandSpec, stdout, stderr io.Writer) (int, error)
}

// OSRunner runs commands with os/exec. The context bounds the process
// lifetime: cancellation or deadline expiry kills the child.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, spec CommandSpec, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = os.Environ()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return -1, err
}
