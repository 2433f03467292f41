package mux

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
)

// settlePollInterval is the interval between list-panes polls while
// waiting for the tmux pane registry to reflect a layout mutation.
const settlePollInterval = 20 * time.Millisecond

// TmuxOptions configures a TmuxBackend.
type TmuxOptions struct {
	Runner Runner
	Logger *logging.Logger
	Config config.TmuxConfig

	// InsideSession selects the in-session topology strategy: panes are
	// split off the caller's own tmux window. When false the backend
	// drives a detached session on the leader socket instead.
	InsideSession bool
	// LeaderPane is the caller's own pane ID (from $TMUX_PANE). Only
	// meaningful in-session; queried from tmux when empty.
	LeaderPane string
}

// TmuxBackend drives tmux. In-session mode splits teammate panes off the
// leader's window in a balanced binary tiling; external mode manages a
// detached session on a dedicated socket.
//
// The mutex serializes every pane-mutating call: the algorithm reads the
// current pane list, computes a split target, then mutates, and two
// interleaved calls would compute against the same stale state.
type TmuxBackend struct {
	mu     sync.Mutex
	runner Runner
	logger *logging.Logger
	cfg    config.TmuxConfig

	inSession  bool
	leaderPane string

	externalInitialUsed bool
}

// NewTmuxBackend creates a tmux backend. A nil logger is replaced with a
// no-op logger.
func NewTmuxBackend(opts TmuxOptions) *TmuxBackend {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &TmuxBackend{
		runner:     opts.Runner,
		logger:     logger,
		cfg:        opts.Config,
		inSession:  opts.InsideSession,
		leaderPane: opts.LeaderPane,
	}
}

// Type returns BackendTmux.
func (b *TmuxBackend) Type() string { return BackendTmux }

// IsAvailable reports whether the tmux binary is on PATH.
func (b *TmuxBackend) IsAvailable() bool { return b.runner.LookPath("tmux") }

// IsRunningInside reports whether the backend runs in-session.
func (b *TmuxBackend) IsRunningInside() bool { return b.inSession }

// socketArgs returns the socket scope for tmux commands: none in-session
// (the caller's own server), the leader socket otherwise.
func (b *TmuxBackend) socketArgs() []string {
	if b.inSession {
		return nil
	}
	return []string{"-L", b.cfg.LeaderSocket}
}

// run executes one tmux command, returning trimmed stdout. Failures wrap
// the captured stderr.
func (b *TmuxBackend) run(ctx context.Context, args ...string) (string, error) {
	full := append(append([]string{}, b.socketArgs()...), args...)
	stdout, stderr, err := b.runner.Run(ctx, "tmux", full...)
	if err != nil {
		return "", errors.NewPaneError(
			fmt.Sprintf("tmux %s failed", args[0]),
			errors.ErrMultiplexerCommand,
		).WithStderr(strings.TrimSpace(stderr))
	}
	return strings.TrimSpace(stdout), nil
}

// CreatePane creates a teammate pane using the strategy matching the
// backend's mode, then applies border color, title, and layout.
func (b *TmuxBackend) CreatePane(ctx context.Context, name string, color agent.Color) (PaneResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var result PaneResult
	var err error
	if b.inSession {
		result, err = b.createInSession(ctx)
	} else {
		result, err = b.createExternal(ctx)
	}
	if err != nil {
		return PaneResult{}, err
	}

	if _, err := b.setBorderColor(ctx, result.PaneID, color); err != nil {
		b.logger.Warn("failed to color pane border", "pane", result.PaneID, "error", err.Error())
	}
	if _, err := b.setTitle(ctx, result.PaneID, name); err != nil {
		b.logger.Warn("failed to title pane", "pane", result.PaneID, "error", err.Error())
	}
	if _, err := b.rebalance(ctx); err != nil {
		b.logger.Warn("failed to rebalance panes", "error", err.Error())
	}

	b.logger.Info("pane created",
		"pane", result.PaneID,
		"teammate", name,
		"first", result.IsFirstTeammate,
		"mode", b.modeName())
	return result, nil
}

func (b *TmuxBackend) modeName() string {
	if b.inSession {
		return "in-session"
	}
	return "external"
}

// createInSession splits a teammate pane off the leader's window. The
// first teammate takes a horizontal split sized FirstSplitPercent; later
// teammates split an existing teammate pane, alternating direction by
// pane count parity and targeting the pane at index (count-1)/2, which
// grows a roughly balanced binary tiling instead of a linear chain.
func (b *TmuxBackend) createInSession(ctx context.Context) (PaneResult, error) {
	leader, err := b.leader(ctx)
	if err != nil {
		return PaneResult{}, err
	}

	panes, err := b.listPanes(ctx)
	if err != nil {
		return PaneResult{}, err
	}

	var teammates []string
	for _, p := range panes {
		if p != leader {
			teammates = append(teammates, p)
		}
	}

	var paneID string
	first := len(teammates) == 0
	if first {
		paneID, err = b.run(ctx, "split-window",
			"-h", "-p", fmt.Sprint(b.cfg.FirstSplitPercent),
			"-t", leader,
			"-P", "-F", "#{pane_id}")
	} else {
		count := len(teammates)
		direction := "-h"
		if count%2 == 1 {
			direction = "-v"
		}
		idx := (count - 1) / 2
		if idx >= len(teammates) {
			idx = len(teammates) - 1
		}
		paneID, err = b.run(ctx, "split-window",
			direction,
			"-t", teammates[idx],
			"-P", "-F", "#{pane_id}")
	}
	if err != nil {
		return PaneResult{}, err
	}

	b.settle(ctx, len(panes)+1)
	return PaneResult{PaneID: paneID, IsFirstTeammate: first}, nil
}

// createExternal creates a teammate pane in the detached swarm session on
// the leader socket, creating the session on demand. The first teammate
// reuses the session's initial pane; later teammates follow the same
// parity rule as in-session but over the full pane list, since there is
// no leader pane to exclude.
func (b *TmuxBackend) createExternal(ctx context.Context) (PaneResult, error) {
	created, err := b.ensureSwarmSession(ctx)
	if err != nil {
		return PaneResult{}, err
	}

	panes, err := b.listSessionPanes(ctx, b.cfg.SwarmSession)
	if err != nil {
		return PaneResult{}, err
	}
	if len(panes) == 0 {
		return PaneResult{}, errors.NewPaneError("swarm session has no panes", errors.ErrPaneNotFound)
	}

	if created || (len(panes) == 1 && !b.externalInitialUsed) {
		b.externalInitialUsed = true
		return PaneResult{PaneID: panes[0], IsFirstTeammate: true}, nil
	}

	count := len(panes)
	direction := "-h"
	if count%2 == 1 {
		direction = "-v"
	}
	idx := (count - 1) / 2
	if idx >= len(panes) {
		idx = len(panes) - 1
	}
	paneID, err := b.run(ctx, "split-window",
		direction,
		"-t", panes[idx],
		"-P", "-F", "#{pane_id}")
	if err != nil {
		return PaneResult{}, err
	}

	if _, err := b.run(ctx, "select-layout", "-t", b.cfg.SwarmSession, "tiled"); err != nil {
		b.logger.Warn("failed to apply tiled layout", "error", err.Error())
	}
	b.settleSession(ctx, b.cfg.SwarmSession, len(panes)+1)
	return PaneResult{PaneID: paneID, IsFirstTeammate: false}, nil
}

// ensureSwarmSession creates the detached swarm session if it does not
// exist. Returns true when this call created it.
func (b *TmuxBackend) ensureSwarmSession(ctx context.Context) (bool, error) {
	if _, err := b.run(ctx, "has-session", "-t", b.cfg.SwarmSession); err == nil {
		return false, nil
	}
	if _, err := b.run(ctx, "new-session", "-d", "-s", b.cfg.SwarmSession); err != nil {
		return false, err
	}
	return true, nil
}

// leader returns the leader pane ID, querying tmux when it was not
// supplied at construction.
func (b *TmuxBackend) leader(ctx context.Context) (string, error) {
	if b.leaderPane != "" {
		return b.leaderPane, nil
	}
	paneID, err := b.run(ctx, "display-message", "-p", "#{pane_id}")
	if err != nil {
		return "", err
	}
	b.leaderPane = paneID
	return paneID, nil
}

// listPanes returns the pane IDs of the current window.
func (b *TmuxBackend) listPanes(ctx context.Context) ([]string, error) {
	out, err := b.run(ctx, "list-panes", "-F", "#{pane_id}")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// listSessionPanes returns every pane ID in a session.
func (b *TmuxBackend) listSessionPanes(ctx context.Context, session string) ([]string, error) {
	out, err := b.run(ctx, "list-panes", "-s", "-t", session, "-F", "#{pane_id}")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// settle polls the current window's pane list until it reflects at least
// want panes or the settle deadline passes. tmux's pane registry can be
// transiently stale right after a topology change; polling bounds the
// wait instead of sleeping a fixed interval.
func (b *TmuxBackend) settle(ctx context.Context, want int) {
	b.settleWith(ctx, want, func() (int, error) {
		panes, err := b.listPanes(ctx)
		return len(panes), err
	})
}

// settleSession is settle over a named session's full pane list.
func (b *TmuxBackend) settleSession(ctx context.Context, session string, want int) {
	b.settleWith(ctx, want, func() (int, error) {
		panes, err := b.listSessionPanes(ctx, session)
		return len(panes), err
	})
}

func (b *TmuxBackend) settleWith(ctx context.Context, want int, count func() (int, error)) {
	deadline := time.Now().Add(b.cfg.SettleTimeout())
	for {
		n, err := count()
		if err == nil && n >= want {
			return
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			b.logger.Debug("pane registry did not settle before deadline", "want", want)
			return
		}
		time.Sleep(settlePollInterval)
	}
}

// SendCommand types a command into a pane and submits it with Enter.
func (b *TmuxBackend) SendCommand(ctx context.Context, paneID, command string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.run(ctx, "send-keys", "-t", paneID, command, "Enter")
	return err
}

// SetPaneBorderColor colors a pane's border.
func (b *TmuxBackend) SetPaneBorderColor(ctx context.Context, paneID string, color agent.Color) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setBorderColor(ctx, paneID, color)
}

func (b *TmuxBackend) setBorderColor(ctx context.Context, paneID string, color agent.Color) (bool, error) {
	if color == "" {
		return false, nil
	}
	if _, err := b.run(ctx, "select-pane", "-t", paneID, "-P", "fg="+tmuxColor(color)); err != nil {
		return false, err
	}
	return true, nil
}

// SetPaneTitle titles a pane.
func (b *TmuxBackend) SetPaneTitle(ctx context.Context, paneID, title string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setTitle(ctx, paneID, title)
}

func (b *TmuxBackend) setTitle(ctx context.Context, paneID, title string) (bool, error) {
	if _, err := b.run(ctx, "select-pane", "-t", paneID, "-T", title); err != nil {
		return false, err
	}
	return true, nil
}

// EnablePaneBorderStatus turns on per-pane border titles.
func (b *TmuxBackend) EnablePaneBorderStatus(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	args := []string{"set-option", "-w"}
	if !b.inSession {
		args = append(args, "-t", b.cfg.SwarmSession)
	}
	args = append(args, "pane-border-status", "top")
	if _, err := b.run(ctx, args...); err != nil {
		return false, err
	}
	return true, nil
}

// RebalancePanes re-applies the mode's layout: main-vertical with the
// leader resized in-session, tiled externally.
func (b *TmuxBackend) RebalancePanes(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rebalance(ctx)
}

func (b *TmuxBackend) rebalance(ctx context.Context) (bool, error) {
	if !b.inSession {
		if _, err := b.run(ctx, "select-layout", "-t", b.cfg.SwarmSession, "tiled"); err != nil {
			return false, err
		}
		return true, nil
	}

	if _, err := b.run(ctx, "select-layout", "main-vertical"); err != nil {
		return false, err
	}
	leader, err := b.leader(ctx)
	if err != nil {
		return false, err
	}
	width := fmt.Sprintf("%d%%", b.cfg.LeaderWidthPercent)
	if _, err := b.run(ctx, "resize-pane", "-t", leader, "-x", width); err != nil {
		return false, err
	}
	return true, nil
}

// KillPane destroys a pane.
func (b *TmuxBackend) KillPane(ctx context.Context, paneID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.run(ctx, "kill-pane", "-t", paneID)
	return err
}

// HidePane breaks a pane out into the hidden session, creating that
// session on demand. The pane keeps running out of view.
func (b *TmuxBackend) HidePane(ctx context.Context, paneID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.run(ctx, "has-session", "-t", b.cfg.HiddenSession); err != nil {
		if _, err := b.run(ctx, "new-session", "-d", "-s", b.cfg.HiddenSession); err != nil {
			return false, err
		}
	}
	if _, err := b.run(ctx, "break-pane", "-d", "-s", paneID, "-t", b.cfg.HiddenSession+":"); err != nil {
		return false, err
	}
	return true, nil
}

// ShowPane joins a hidden pane back into the swarm view and re-applies
// the layout.
func (b *TmuxBackend) ShowPane(ctx context.Context, paneID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var target string
	if b.inSession {
		leader, err := b.leader(ctx)
		if err != nil {
			return false, err
		}
		target = leader
	} else {
		target = b.cfg.SwarmSession
	}
	if _, err := b.run(ctx, "join-pane", "-h", "-s", paneID, "-t", target); err != nil {
		return false, err
	}
	if _, err := b.rebalance(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// tmuxColor maps a palette color to the tmux color name. Orange and
// purple have no named tmux color and use 256-color indexes.
func tmuxColor(c agent.Color) string {
	switch c {
	case agent.ColorOrange:
		return "colour208"
	case agent.ColorPurple:
		return "colour93"
	default:
		return c.String()
	}
}

// splitLines splits newline-delimited subprocess output, dropping empty
// lines.
func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
