package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/bus"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/mux"
	"github.com/swarmux/swarmux/internal/swarm"
)

// fakeBackend records pane operations without touching a multiplexer.
type fakeBackend struct {
	nextPane   int
	killed     []string
	hidden     map[string]bool
	failCreate bool
	canHide    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hidden: make(map[string]bool), canHide: true}
}

func (f *fakeBackend) Type() string          { return mux.BackendTmux }
func (f *fakeBackend) IsAvailable() bool     { return true }
func (f *fakeBackend) IsRunningInside() bool { return true }

func (f *fakeBackend) CreatePane(ctx context.Context, name string, color agent.Color) (mux.PaneResult, error) {
	if f.failCreate {
		return mux.PaneResult{}, fmt.Errorf("no space for new pane")
	}
	f.nextPane++
	return mux.PaneResult{
		PaneID:          fmt.Sprintf("%%%d", f.nextPane),
		IsFirstTeammate: f.nextPane == 1,
	}, nil
}

func (f *fakeBackend) SendCommand(ctx context.Context, paneID, command string) error { return nil }

func (f *fakeBackend) SetPaneBorderColor(ctx context.Context, paneID string, color agent.Color) (bool, error) {
	return true, nil
}

func (f *fakeBackend) SetPaneTitle(ctx context.Context, paneID, title string) (bool, error) {
	return true, nil
}

func (f *fakeBackend) EnablePaneBorderStatus(ctx context.Context) (bool, error) { return true, nil }
func (f *fakeBackend) RebalancePanes(ctx context.Context) (bool, error)         { return true, nil }

func (f *fakeBackend) KillPane(ctx context.Context, paneID string) error {
	f.killed = append(f.killed, paneID)
	return nil
}

func (f *fakeBackend) HidePane(ctx context.Context, paneID string) (bool, error) {
	if !f.canHide {
		return false, nil
	}
	f.hidden[paneID] = true
	return true, nil
}

func (f *fakeBackend) ShowPane(ctx context.Context, paneID string) (bool, error) {
	if !f.canHide {
		return false, nil
	}
	delete(f.hidden, paneID)
	return true, nil
}

func newTestOrchestrator(t *testing.T, backend mux.Backend) *Orchestrator {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataRoot = t.TempDir()

	o := New(Options{Config: cfg, Backend: backend})
	t.Cleanup(o.Close)
	if _, err := o.Swarm.CreateTeam("acme", "", "lead-1"); err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	return o
}

func TestAddTeammate(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(t, backend)

	member, err := o.AddTeammate(context.Background(), "alice", "worker")
	if err != nil {
		t.Fatalf("AddTeammate failed: %v", err)
	}
	if member.PaneID != "%1" {
		t.Errorf("expected pane %%1 on the member record, got %s", member.PaneID)
	}

	// Pane ID recorded on the agent too.
	info, ok := o.Agents.GetByName("alice")
	if !ok {
		t.Fatal("agent should be registered")
	}
	if info.PaneID != "%1" {
		t.Errorf("expected pane %%1 on the agent record, got %s", info.PaneID)
	}
	if info.Status != agent.StatusRunning {
		t.Errorf("agent should be running, got %s", info.Status)
	}
}

func TestAddTeammate_RollbackOnPaneFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failCreate = true
	o := newTestOrchestrator(t, backend)

	_, err := o.AddTeammate(context.Background(), "alice", "worker")
	if err == nil {
		t.Fatal("expected pane creation failure")
	}

	// No partial registry entry on either side.
	if _, ok := o.Agents.GetByName("alice"); ok {
		t.Error("agent should be rolled back")
	}
	for _, m := range o.Swarm.Teammates() {
		if m.Name == "alice" {
			t.Error("member should be rolled back")
		}
	}

	// The name is reusable after rollback.
	backend.failCreate = false
	if _, err := o.AddTeammate(context.Background(), "alice", "worker"); err != nil {
		t.Errorf("retry after rollback should succeed: %v", err)
	}
}

func TestAddTeammate_MemberConflictRollsBackAgent(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(t, backend)

	// A member registered out-of-band conflicts with the new teammate.
	if _, err := o.Swarm.AddMember(swarm.TeamMember{Name: "bob"}); err != nil {
		t.Fatal(err)
	}

	_, err := o.AddTeammate(context.Background(), "bob", "")
	if err == nil {
		t.Fatal("expected duplicate member error")
	}
	if o.Agents.Count() != 0 {
		t.Errorf("spawned agent should be rolled back, got %d agents", o.Agents.Count())
	}
}

func TestShutdownTeammate(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(t, backend)
	o.Bus.SetSelfName("team-lead")

	if _, err := o.AddTeammate(context.Background(), "alice", ""); err != nil {
		t.Fatal(err)
	}

	var received []bus.Message
	o.Bus.OnMessage("alice", func(m bus.Message) { received = append(received, m) })

	if err := o.ShutdownTeammate(context.Background(), "alice", "work complete"); err != nil {
		t.Fatalf("ShutdownTeammate failed: %v", err)
	}

	// The shutdown request travels over the bus as an embedded payload.
	var sawRequest bool
	for _, m := range received {
		if req := bus.ParseShutdownRequest(m.Text); req != nil {
			if req.Reason != "work complete" {
				t.Errorf("expected reason in request, got %q", req.Reason)
			}
			sawRequest = true
		}
	}
	if !sawRequest {
		t.Error("expected a shutdown request on the bus")
	}

	info, _ := o.Agents.GetByName("alice")
	if info.Status != agent.StatusCancelled {
		t.Errorf("agent should be cancelled, got %s", info.Status)
	}
	if len(backend.killed) != 1 || backend.killed[0] != "%1" {
		t.Errorf("pane should be killed, got %v", backend.killed)
	}

	active := o.Swarm.ActiveMembers()
	for _, m := range active {
		if m.Name == "alice" {
			t.Error("alice should be deactivated")
		}
	}
}

func TestHideAndShowTeammate(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(t, backend)

	if _, err := o.AddTeammate(context.Background(), "alice", ""); err != nil {
		t.Fatal(err)
	}

	applied, err := o.HideTeammate(context.Background(), "alice")
	if err != nil || !applied {
		t.Fatalf("HideTeammate: applied=%v err=%v", applied, err)
	}
	if !o.Swarm.IsPaneHidden("%1") {
		t.Error("coordinator should track the hidden pane")
	}
	info, _ := o.Agents.GetByName("alice")
	if !info.Hidden {
		t.Error("agent record should be hidden")
	}

	applied, err = o.ShowTeammate(context.Background(), "alice")
	if err != nil || !applied {
		t.Fatalf("ShowTeammate: applied=%v err=%v", applied, err)
	}
	if o.Swarm.IsPaneHidden("%1") {
		t.Error("pane should no longer be hidden")
	}
	info, _ = o.Agents.GetByName("alice")
	if info.Hidden {
		t.Error("agent record should no longer be hidden")
	}
}

func TestHideTeammate_UnsupportedBackend(t *testing.T) {
	backend := newFakeBackend()
	backend.canHide = false
	o := newTestOrchestrator(t, backend)

	if _, err := o.AddTeammate(context.Background(), "alice", ""); err != nil {
		t.Fatal(err)
	}

	applied, err := o.HideTeammate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unsupported hide should not error: %v", err)
	}
	if applied {
		t.Error("unsupported hide should report false")
	}
	if len(o.Swarm.HiddenPanes()) != 0 {
		t.Error("nothing should be tracked as hidden")
	}
}

func TestLifecycleEventsReachBus(t *testing.T) {
	backend := newFakeBackend()
	o := newTestOrchestrator(t, backend)
	o.Bus.SetSelfName("team-lead")

	var system []bus.Message
	o.Bus.OnBroadcast(func(m bus.Message) {
		if m.Type == bus.MessageSystem {
			system = append(system, m)
		}
	})

	if _, err := o.AddTeammate(context.Background(), "alice", ""); err != nil {
		t.Fatal(err)
	}

	// Spawn and start both produce system broadcasts.
	if len(system) < 2 {
		t.Errorf("expected lifecycle broadcasts, got %d: %v", len(system), system)
	}
}
