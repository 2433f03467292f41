// Package testutil provides shared fixtures for swarmux tests: temp data
// roots, on-disk team configs, and a scripted terminal backend.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/mux"
	"github.com/swarmux/swarmux/internal/swarm"
)

// TempConfig returns a default config whose data root points at a fresh
// temp directory, so tests never touch the real ~/.claude tree.
func TempConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.DataRoot = t.TempDir()
	return cfg
}

// WriteTeamConfig writes a team config under dataRoot using the same
// layout the coordinator reads: teams/<name>/config.json. Zero timestamps
// are filled in. Returns the config file path.
func WriteTeamConfig(t *testing.T, dataRoot string, cfg *swarm.TeamConfig) string {
	t.Helper()

	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now()
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = cfg.CreatedAt
	}

	dir := filepath.Join(dataRoot, "teams", cfg.TeamName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create team dir: %v", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal team config: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write team config: %v", err)
	}
	return path
}

// ReadTeamConfig reads a team config back from dataRoot.
func ReadTeamConfig(t *testing.T, dataRoot, teamName string) *swarm.TeamConfig {
	t.Helper()

	path := filepath.Join(dataRoot, "teams", teamName, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read team config: %v", err)
	}

	var cfg swarm.TeamConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to unmarshal team config: %v", err)
	}
	return &cfg
}

// SkipIfNoTmux skips the test if tmux is not installed.
func SkipIfNoTmux(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not found in PATH, skipping test")
	}
}

// ScriptedBackend is an in-memory mux.Backend for tests. It records every
// pane operation and can be scripted to fail pane creation or refuse hide
// support. The zero value is a fully capable tmux-flavored backend.
type ScriptedBackend struct {
	mu sync.Mutex

	// BackendType overrides the reported backend type. Default: tmux.
	BackendType string
	// CreateErr, when set, is returned from CreatePane.
	CreateErr error
	// NoHideSupport makes HidePane and ShowPane report (false, nil).
	NoHideSupport bool

	nextPane int
	created  []string
	killed   []string
	hidden   map[string]bool
	commands map[string][]string
}

var _ mux.Backend = (*ScriptedBackend)(nil)

func (b *ScriptedBackend) Type() string {
	if b.BackendType != "" {
		return b.BackendType
	}
	return mux.BackendTmux
}

func (b *ScriptedBackend) IsAvailable() bool     { return true }
func (b *ScriptedBackend) IsRunningInside() bool { return true }

func (b *ScriptedBackend) CreatePane(ctx context.Context, name string, color agent.Color) (mux.PaneResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.CreateErr != nil {
		return mux.PaneResult{}, b.CreateErr
	}
	id := fmt.Sprintf("%%%d", b.nextPane+1)
	b.nextPane++
	b.created = append(b.created, id)
	return mux.PaneResult{PaneID: id, IsFirstTeammate: len(b.created) == 1}, nil
}

func (b *ScriptedBackend) SendCommand(ctx context.Context, paneID, command string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.commands == nil {
		b.commands = make(map[string][]string)
	}
	b.commands[paneID] = append(b.commands[paneID], command)
	return nil
}

func (b *ScriptedBackend) SetPaneBorderColor(ctx context.Context, paneID string, color agent.Color) (bool, error) {
	return true, nil
}

func (b *ScriptedBackend) SetPaneTitle(ctx context.Context, paneID, title string) (bool, error) {
	return true, nil
}

func (b *ScriptedBackend) EnablePaneBorderStatus(ctx context.Context) (bool, error) {
	return true, nil
}

func (b *ScriptedBackend) RebalancePanes(ctx context.Context) (bool, error) {
	return true, nil
}

func (b *ScriptedBackend) KillPane(ctx context.Context, paneID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.killed = append(b.killed, paneID)
	return nil
}

func (b *ScriptedBackend) HidePane(ctx context.Context, paneID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.NoHideSupport {
		return false, nil
	}
	if b.hidden == nil {
		b.hidden = make(map[string]bool)
	}
	b.hidden[paneID] = true
	return true, nil
}

func (b *ScriptedBackend) ShowPane(ctx context.Context, paneID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.NoHideSupport {
		return false, nil
	}
	if b.hidden == nil {
		b.hidden = make(map[string]bool)
	}
	b.hidden[paneID] = false
	return true, nil
}

// Created returns the pane IDs created so far, in order.
func (b *ScriptedBackend) Created() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.created...)
}

// Killed returns the pane IDs killed so far, in order.
func (b *ScriptedBackend) Killed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.killed...)
}

// Hidden reports whether a pane is currently hidden.
func (b *ScriptedBackend) Hidden(paneID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hidden[paneID]
}

// Commands returns the commands sent to a pane, in order.
func (b *ScriptedBackend) Commands(paneID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.commands[paneID]...)
}
