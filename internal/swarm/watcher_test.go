package swarm

import (
	"testing"
	"time"
)

func TestWatcher_DeliversReloadedConfig(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")

	reloaded := make(chan *TeamConfig, 4)
	w, err := NewWatcher(c, "acme", func(cfg *TeamConfig) {
		reloaded <- cfg
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.Start()
	defer w.Stop()

	// Simulate an external writer rewriting the config file.
	writer := NewCoordinator(CoordinatorConfig{DataRoot: c.dataRoot})
	cfg := writer.LoadTeamConfig("acme")
	cfg.Description = "rewritten elsewhere"
	if err := writer.SaveTeamConfig(cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Description != "rewritten elsewhere" {
			t.Errorf("expected reloaded description, got %q", got.Description)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not deliver the reloaded config")
	}
}

func TestWatcher_StopIsClean(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "")

	w, err := NewWatcher(c, "acme", nil)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.Start()
	w.Stop()
}
