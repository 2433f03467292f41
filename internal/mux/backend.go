// Package mux abstracts terminal multiplexers behind a single Backend
// interface with two implementations: tmux (full capability set, two
// topology strategies) and iTerm2 (linear split chain, reduced
// capability set).
//
// Capability calls a backend cannot perform return (false, nil): the
// operation was not applied, but that is not an error. Callers must
// treat a false return as "skipped", never as failure.
package mux

import (
	"context"
	"os"
	"sync"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
)

// Backend type identifiers.
const (
	BackendTmux  = "tmux"
	BackendITerm = "iterm2"
)

// PaneResult describes the pane created for a teammate.
type PaneResult struct {
	// PaneID is the backend-native pane or session identifier.
	PaneID string
	// IsFirstTeammate is true when this pane is the first teammate pane,
	// which some callers use to trigger one-time window setup.
	IsFirstTeammate bool
}

// Backend is the capability set of a terminal multiplexer. Every method
// is required; implementations that lack a capability return (false, nil)
// from it rather than erroring.
type Backend interface {
	// Type returns the backend identifier, BackendTmux or BackendITerm.
	Type() string

	// IsAvailable reports whether the backend's binary is usable.
	IsAvailable() bool

	// IsRunningInside reports whether the current process runs inside
	// this multiplexer.
	IsRunningInside() bool

	// CreatePane creates a pane for the named teammate and returns its
	// identifier. Pane-mutating calls on one backend instance are
	// serialized.
	CreatePane(ctx context.Context, name string, color agent.Color) (PaneResult, error)

	// SendCommand types a command into a pane and submits it.
	SendCommand(ctx context.Context, paneID, command string) error

	// SetPaneBorderColor colors a pane's border. Unsupported: (false, nil).
	SetPaneBorderColor(ctx context.Context, paneID string, color agent.Color) (bool, error)

	// SetPaneTitle titles a pane. Unsupported: (false, nil).
	SetPaneTitle(ctx context.Context, paneID, title string) (bool, error)

	// EnablePaneBorderStatus turns on per-pane border titles for the
	// current window. Unsupported: (false, nil).
	EnablePaneBorderStatus(ctx context.Context) (bool, error)

	// RebalancePanes re-applies the backend's layout after a topology
	// change. Unsupported: (false, nil).
	RebalancePanes(ctx context.Context) (bool, error)

	// KillPane destroys a pane.
	KillPane(ctx context.Context, paneID string) error

	// HidePane moves a pane out of view without destroying it.
	// Unsupported: (false, nil).
	HidePane(ctx context.Context, paneID string) (bool, error)

	// ShowPane returns a hidden pane to the swarm view.
	// Unsupported: (false, nil).
	ShowPane(ctx context.Context, paneID string) (bool, error)
}

// Environment variables consulted for backend detection.
const (
	envTmux        = "TMUX"
	envTmuxPane    = "TMUX_PANE"
	envTermProgram = "TERM_PROGRAM"
	itermProgram   = "iTerm.app"
)

var (
	detectMu     sync.Mutex
	detected     Backend
	detectionSet bool
)

// Detect chooses a backend for this process and caches the result until
// ResetDetection. Preference order: tmux when running inside a tmux
// client with the binary available; else iTerm2 under the same
// conditions; else tmux on availability alone, which supports spawning
// an external session from a plain shell.
func Detect(runner Runner, cfg *config.Config, logger *logging.Logger) (Backend, error) {
	detectMu.Lock()
	defer detectMu.Unlock()
	if detectionSet {
		if detected == nil {
			return nil, errors.ErrBackendUnavailable
		}
		return detected, nil
	}

	backend := detect(runner, cfg, logger)
	detected = backend
	detectionSet = true
	if backend == nil {
		return nil, errors.ErrBackendUnavailable
	}
	return backend, nil
}

// ResetDetection clears the cached backend so the next Detect call
// re-probes the environment.
func ResetDetection() {
	detectMu.Lock()
	defer detectMu.Unlock()
	detected = nil
	detectionSet = false
}

func detect(runner Runner, cfg *config.Config, logger *logging.Logger) Backend {
	insideTmux := os.Getenv(envTmux) != ""
	insideITerm := os.Getenv(envTermProgram) == itermProgram
	tmuxAvailable := runner.LookPath("tmux")

	if insideTmux && tmuxAvailable {
		return NewTmuxBackend(TmuxOptions{
			Runner:        runner,
			Logger:        logger,
			Config:        cfg.Tmux,
			InsideSession: true,
			LeaderPane:    os.Getenv(envTmuxPane),
		})
	}
	if insideITerm && runner.LookPath(cfg.ITerm.CLIPath) {
		return NewITermBackend(ITermOptions{
			Runner:        runner,
			Logger:        logger,
			Config:        cfg.ITerm,
			InsideSession: true,
		})
	}
	if tmuxAvailable {
		return NewTmuxBackend(TmuxOptions{
			Runner: runner,
			Logger: logger,
			Config: cfg.Tmux,
		})
	}
	return nil
}
