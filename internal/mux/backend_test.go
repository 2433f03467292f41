package mux

import (
	"testing"

	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/errors"
)

// availabilityRunner only answers LookPath; detection never runs commands.
type availabilityRunner struct {
	fakeRunner
}

func newAvailabilityRunner(binaries ...string) *availabilityRunner {
	r := &availabilityRunner{}
	r.available = make(map[string]bool)
	r.sessions = make(map[string][]string)
	for _, b := range binaries {
		r.available[b] = true
	}
	return r
}

func TestDetect_InsideTmux(t *testing.T) {
	t.Setenv(envTmux, "/tmp/tmux-1000/default,1234,0")
	t.Setenv(envTmuxPane, "%7")
	t.Setenv(envTermProgram, "")
	ResetDetection()
	t.Cleanup(ResetDetection)

	b, err := Detect(newAvailabilityRunner("tmux"), config.Default(), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if b.Type() != BackendTmux {
		t.Errorf("expected tmux backend, got %s", b.Type())
	}
	if !b.IsRunningInside() {
		t.Error("backend should be in-session")
	}
}

func TestDetect_InsideITerm(t *testing.T) {
	t.Setenv(envTmux, "")
	t.Setenv(envTermProgram, itermProgram)
	ResetDetection()
	t.Cleanup(ResetDetection)

	b, err := Detect(newAvailabilityRunner("it2"), config.Default(), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if b.Type() != BackendITerm {
		t.Errorf("expected iterm2 backend, got %s", b.Type())
	}
}

func TestDetect_TmuxWinsWhenInsideBoth(t *testing.T) {
	t.Setenv(envTmux, "present")
	t.Setenv(envTermProgram, itermProgram)
	ResetDetection()
	t.Cleanup(ResetDetection)

	b, err := Detect(newAvailabilityRunner("tmux", "it2"), config.Default(), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if b.Type() != BackendTmux {
		t.Errorf("tmux should win, got %s", b.Type())
	}
}

func TestDetect_ExternalTmuxFallback(t *testing.T) {
	t.Setenv(envTmux, "")
	t.Setenv(envTermProgram, "")
	ResetDetection()
	t.Cleanup(ResetDetection)

	b, err := Detect(newAvailabilityRunner("tmux"), config.Default(), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if b.Type() != BackendTmux {
		t.Errorf("expected tmux backend, got %s", b.Type())
	}
	if b.IsRunningInside() {
		t.Error("fallback backend should run in external mode")
	}
}

func TestDetect_NothingAvailable(t *testing.T) {
	t.Setenv(envTmux, "")
	t.Setenv(envTermProgram, "")
	ResetDetection()
	t.Cleanup(ResetDetection)

	_, err := Detect(newAvailabilityRunner(), config.Default(), nil)
	if !errors.Is(err, errors.ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestDetect_Cached(t *testing.T) {
	t.Setenv(envTmux, "present")
	t.Setenv(envTermProgram, "")
	ResetDetection()
	t.Cleanup(ResetDetection)

	first, err := Detect(newAvailabilityRunner("tmux"), config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// The environment changes, but the cached backend sticks until reset.
	t.Setenv(envTmux, "")
	second, err := Detect(newAvailabilityRunner("tmux"), config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("detection should be cached")
	}

	ResetDetection()
	third, err := Detect(newAvailabilityRunner("tmux"), config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.IsRunningInside() {
		t.Error("after reset, detection should re-probe the environment")
	}
}
