package mux

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
)

// ITermOptions configures an ITermBackend.
type ITermOptions struct {
	Runner Runner
	Logger *logging.Logger
	Config config.ITermConfig

	// InsideSession reports whether the process runs inside iTerm2.
	InsideSession bool
}

// ITermBackend drives iTerm2 through its CLI. Splits form a strict
// linked chain: the first teammate splits from the current session, each
// later teammate from the previous teammate's session. The CLI has no
// border, title, layout, or hide primitives, so those calls are silent
// no-ops returning false.
type ITermBackend struct {
	mu     sync.Mutex
	runner Runner
	logger *logging.Logger
	cfg    config.ITermConfig

	inSession   bool
	lastSession string
}

// NewITermBackend creates an iTerm2 backend. A nil logger is replaced
// with a no-op logger.
func NewITermBackend(opts ITermOptions) *ITermBackend {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ITermBackend{
		runner:    opts.Runner,
		logger:    logger,
		cfg:       opts.Config,
		inSession: opts.InsideSession,
	}
}

// Type returns BackendITerm.
func (b *ITermBackend) Type() string { return BackendITerm }

// IsAvailable reports whether the iTerm2 CLI is on PATH.
func (b *ITermBackend) IsAvailable() bool { return b.runner.LookPath(b.cfg.CLIPath) }

// IsRunningInside reports whether the process runs inside iTerm2.
func (b *ITermBackend) IsRunningInside() bool {
	return b.inSession || os.Getenv(envTermProgram) == itermProgram
}

// run executes one CLI command, returning trimmed stdout.
func (b *ITermBackend) run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := b.runner.Run(ctx, b.cfg.CLIPath, args...)
	if err != nil {
		return "", errors.NewPaneError(
			fmt.Sprintf("%s %s failed", b.cfg.CLIPath, strings.Join(args[:2], " ")),
			errors.ErrMultiplexerCommand,
		).WithStderr(strings.TrimSpace(stderr))
	}
	return strings.TrimSpace(stdout), nil
}

// CreatePane splits a new iTerm2 session for a teammate. The color is
// accepted for interface compatibility; iTerm2 applies no styling.
func (b *ITermBackend) CreatePane(ctx context.Context, name string, color agent.Color) (PaneResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	args := []string{"session", "split", "--vertical"}
	first := b.lastSession == ""
	if !first {
		args = append(args, "--session", b.lastSession)
	}

	out, err := b.run(ctx, args...)
	if err != nil {
		return PaneResult{}, err
	}
	sessionID := firstLine(out)
	if sessionID == "" {
		return PaneResult{}, errors.NewPaneError("iterm2 split produced no session id", errors.ErrPaneNotFound)
	}

	b.lastSession = sessionID
	b.logger.Info("pane created", "pane", sessionID, "teammate", name, "first", first)
	return PaneResult{PaneID: sessionID, IsFirstTeammate: first}, nil
}

// SendCommand runs a command in a session.
func (b *ITermBackend) SendCommand(ctx context.Context, paneID, command string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.run(ctx, "session", "run", "--session", paneID, command)
	return err
}

// SetPaneBorderColor is unsupported on iTerm2.
func (b *ITermBackend) SetPaneBorderColor(ctx context.Context, paneID string, color agent.Color) (bool, error) {
	return false, nil
}

// SetPaneTitle is unsupported on iTerm2.
func (b *ITermBackend) SetPaneTitle(ctx context.Context, paneID, title string) (bool, error) {
	return false, nil
}

// EnablePaneBorderStatus is unsupported on iTerm2.
func (b *ITermBackend) EnablePaneBorderStatus(ctx context.Context) (bool, error) {
	return false, nil
}

// RebalancePanes is unsupported on iTerm2; splits stay a linear chain.
func (b *ITermBackend) RebalancePanes(ctx context.Context) (bool, error) {
	return false, nil
}

// KillPane closes a session.
func (b *ITermBackend) KillPane(ctx context.Context, paneID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.run(ctx, "session", "close", "--session", paneID)
	if err == nil && b.lastSession == paneID {
		b.lastSession = ""
	}
	return err
}

// HidePane is unsupported on iTerm2.
func (b *ITermBackend) HidePane(ctx context.Context, paneID string) (bool, error) {
	return false, nil
}

// ShowPane is unsupported on iTerm2.
func (b *ITermBackend) ShowPane(ctx context.Context, paneID string) (bool, error) {
	return false, nil
}

// firstLine returns the first line of subprocess output.
func firstLine(out string) string {
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		return strings.TrimSpace(out[:i])
	}
	return strings.TrimSpace(out)
}
