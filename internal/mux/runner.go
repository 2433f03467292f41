package mux

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// Runner executes multiplexer subprocesses. Backends issue every command
// through a Runner so tests can script the multiplexer instead of
// requiring a live tmux server.
type Runner interface {
	// Run executes name with args and returns captured stdout and stderr.
	// A non-zero exit is returned as an error alongside whatever stderr
	// the process produced.
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

	// LookPath reports whether the named binary is on PATH.
	LookPath(name string) bool
}

// execRunner is the exec-backed default Runner.
type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	return strings.TrimRight(outBuf.String(), "\n"), strings.TrimRight(errBuf.String(), "\n"), err
}

func (execRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
