package swarm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/errors"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return NewCoordinator(CoordinatorConfig{DataRoot: t.TempDir()})
}

func boolPtr(b bool) *bool { return &b }

func TestCreateTeam(t *testing.T) {
	c := newTestCoordinator(t)

	cfg, err := c.CreateTeam("acme", "test team", "agent-lead-1")
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	if cfg.TeamName != "acme" {
		t.Errorf("expected team name acme, got %s", cfg.TeamName)
	}
	if len(cfg.Members) != 1 || cfg.Members[0].Name != LeadMemberName {
		t.Errorf("expected seeded lead member, got %+v", cfg.Members)
	}
	if cfg.Members[0].AgentID != "agent-lead-1" {
		t.Errorf("lead agent ID not recorded: %+v", cfg.Members[0])
	}

	if _, err := os.Stat(c.ConfigPath("acme")); err != nil {
		t.Errorf("config file should exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.dataRoot, "tasks", "acme")); err != nil {
		t.Errorf("tasks directory should exist: %v", err)
	}

	// Agent names are now namespaced by the team.
	if got := c.Agents().TeamName(); got != "acme" {
		t.Errorf("agent manager should be re-scoped to acme, got %q", got)
	}
}

func TestCreateTeam_NoLead(t *testing.T) {
	c := newTestCoordinator(t)

	cfg, err := c.CreateTeam("acme", "", "")
	if err != nil {
		t.Fatalf("CreateTeam failed: %v", err)
	}
	if len(cfg.Members) != 0 {
		t.Errorf("expected no seeded members, got %+v", cfg.Members)
	}
}

func TestCreateTeam_Duplicate(t *testing.T) {
	c := newTestCoordinator(t)

	if _, err := c.CreateTeam("acme", "", ""); err != nil {
		t.Fatalf("first CreateTeam failed: %v", err)
	}
	_, err := c.CreateTeam("acme", "", "")
	if err == nil {
		t.Fatal("expected duplicate team error")
	}
	var exists *errors.AlreadyExistsError
	if !errors.As(err, &exists) {
		t.Errorf("expected AlreadyExistsError, got %T", err)
	}
}

func TestCreateTeam_EmptyName(t *testing.T) {
	c := newTestCoordinator(t)

	if _, err := c.CreateTeam("  ", "", ""); err == nil {
		t.Fatal("expected validation error for empty name")
	}
}

func TestLoadTeamConfig_RoundTrip(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "described", "lead-1")

	// A second coordinator over the same root sees the team.
	c2 := NewCoordinator(CoordinatorConfig{DataRoot: c.dataRoot})
	cfg := c2.LoadTeamConfig("acme")
	if cfg == nil {
		t.Fatal("LoadTeamConfig should find the team")
	}
	if cfg.Description != "described" {
		t.Errorf("expected description to persist, got %q", cfg.Description)
	}
	if c2.TeamName() != "acme" {
		t.Errorf("loaded team should become active, got %q", c2.TeamName())
	}
}

func TestLoadTeamConfig_MissingOrCorrupt(t *testing.T) {
	c := newTestCoordinator(t)

	if cfg := c.LoadTeamConfig("ghost"); cfg != nil {
		t.Errorf("missing team should load as nil, got %+v", cfg)
	}

	dir := c.teamDir("broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.ConfigPath("broken"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cfg := c.LoadTeamConfig("broken"); cfg != nil {
		t.Errorf("corrupt team should load as nil, got %+v", cfg)
	}
}

func TestSaveTeamConfig_RefreshesUpdatedAt(t *testing.T) {
	c := newTestCoordinator(t)
	cfg, _ := c.CreateTeam("acme", "", "")

	before := cfg.UpdatedAt
	cfg.Description = "updated"
	if err := c.SaveTeamConfig(cfg); err != nil {
		t.Fatalf("SaveTeamConfig failed: %v", err)
	}
	if !cfg.UpdatedAt.After(before) && !cfg.UpdatedAt.Equal(before) {
		t.Error("UpdatedAt should be refreshed on save")
	}

	reloaded := c.LoadTeamConfig("acme")
	if reloaded.Description != "updated" {
		t.Errorf("save did not persist, got %q", reloaded.Description)
	}
}

func TestAddMember(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")

	m, err := c.AddMember(TeamMember{Name: "alice"})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if m.Color == "" {
		t.Error("expected an assigned color")
	}

	// Duplicate name rejected, including the reserved lead.
	if _, err := c.AddMember(TeamMember{Name: "alice"}); err == nil {
		t.Error("expected duplicate member error")
	}
	if _, err := c.AddMember(TeamMember{Name: LeadMemberName}); err == nil {
		t.Error("expected duplicate error for reserved lead name")
	}

	// Persisted.
	reloaded := NewCoordinator(CoordinatorConfig{DataRoot: c.dataRoot}).LoadTeamConfig("acme")
	if reloaded.Member("alice") == nil {
		t.Error("added member should be persisted")
	}
}

func TestAddMember_NoTeam(t *testing.T) {
	c := newTestCoordinator(t)

	_, err := c.AddMember(TeamMember{Name: "alice"})
	if !errors.Is(err, errors.ErrTeamNotLoaded) {
		t.Errorf("expected ErrTeamNotLoaded, got %v", err)
	}
}

func TestAddMember_IndependentColorCounter(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "")

	// Burn two colors on the agent side; the coordinator's own counter
	// must be unaffected.
	c.Agents().ColorFor("x")
	c.Agents().ColorFor("y")

	m, _ := c.AddMember(TeamMember{Name: "alice"})
	if m.Color != agent.Palette()[0] {
		t.Errorf("coordinator counter should start fresh, got %s", m.Color)
	}
}

func TestRemoveMember(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")
	_, _ = c.AddMember(TeamMember{Name: "alice"})

	removed, err := c.RemoveMember("alice")
	if err != nil || !removed {
		t.Fatalf("RemoveMember failed: removed=%v err=%v", removed, err)
	}

	removed, err = c.RemoveMember("ghost")
	if err != nil {
		t.Errorf("missing member should not error: %v", err)
	}
	if removed {
		t.Error("missing member should report false")
	}

	if _, err := c.RemoveMember(LeadMemberName); !errors.Is(err, errors.ErrLeadImmutable) {
		t.Errorf("removing the lead should fail with ErrLeadImmutable, got %v", err)
	}
}

func TestUpdateMember(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")
	_, _ = c.AddMember(TeamMember{Name: "alice", AgentType: "worker"})

	pane := "%3"
	updated := c.UpdateMember("alice", MemberUpdate{
		PaneID:   &pane,
		IsActive: boolPtr(false),
	})
	if updated == nil {
		t.Fatal("UpdateMember should find alice")
	}
	if updated.PaneID != "%3" {
		t.Errorf("expected pane %%3, got %s", updated.PaneID)
	}
	if updated.Active() {
		t.Error("expected alice to be inactive")
	}
	if updated.AgentType != "worker" {
		t.Errorf("untouched field changed: %q", updated.AgentType)
	}

	if got := c.UpdateMember("ghost", MemberUpdate{}); got != nil {
		t.Errorf("missing member should update as nil, got %+v", got)
	}

	c2 := newTestCoordinator(t)
	if got := c2.UpdateMember("alice", MemberUpdate{}); got != nil {
		t.Errorf("no loaded team should update as nil, got %+v", got)
	}
}

func TestMemberQueries(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")
	_, _ = c.AddMember(TeamMember{Name: "alice"})
	_, _ = c.AddMember(TeamMember{Name: "bob", IsActive: boolPtr(false)})

	if got := len(c.AllMembers()); got != 3 {
		t.Errorf("expected 3 members, got %d", got)
	}
	teammates := c.Teammates()
	if len(teammates) != 2 {
		t.Errorf("expected 2 teammates, got %d", len(teammates))
	}
	active := c.ActiveMembers()
	if len(active) != 1 || active[0].Name != "alice" {
		t.Errorf("expected only alice active, got %+v", active)
	}
}

func TestCleanupTeam(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")
	_, _ = c.AddMember(TeamMember{Name: "alice"})

	err := c.CleanupTeam("acme")
	if !errors.Is(err, errors.ErrMembersActive) {
		t.Fatalf("cleanup with active member should fail, got %v", err)
	}

	c.UpdateMember("alice", MemberUpdate{IsActive: boolPtr(false)})
	if err := c.CleanupTeam("acme"); err != nil {
		t.Fatalf("cleanup after deactivation should succeed: %v", err)
	}

	if _, err := os.Stat(c.ConfigPath("acme")); !os.IsNotExist(err) {
		t.Error("config file should be removed")
	}
	if c.TeamName() != "" {
		t.Errorf("active team should be cleared, got %q", c.TeamName())
	}
}

func TestCleanupTeam_Missing(t *testing.T) {
	c := newTestCoordinator(t)

	err := c.CleanupTeam("ghost")
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestPaneHiddenTracking(t *testing.T) {
	c := newTestCoordinator(t)

	c.SetPaneHidden("%1", true)
	c.SetPaneHidden("%2", true)
	c.SetPaneHidden("%1", false)

	if c.IsPaneHidden("%1") {
		t.Error("%1 should not be hidden")
	}
	if !c.IsPaneHidden("%2") {
		t.Error("%2 should be hidden")
	}
	panes := c.HiddenPanes()
	if len(panes) != 1 || panes[0] != "%2" {
		t.Errorf("expected [%%2], got %v", panes)
	}
}

func TestCreateTeamContext(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")
	_, _ = c.AddMember(TeamMember{Name: "alice"})
	_, _ = c.AddMember(TeamMember{Name: "bob"})

	ctx := c.CreateTeamContext("alice")
	if ctx == nil {
		t.Fatal("expected a team context")
	}
	if ctx.TeamName != "acme" || ctx.SelfAgentName != "alice" {
		t.Errorf("unexpected context: %+v", ctx)
	}
	if ctx.SelfAgentColor == "" {
		t.Error("expected self color from the member record")
	}
	for _, tm := range ctx.Teammates {
		if tm.Name == "alice" {
			t.Error("teammates should exclude self")
		}
	}
	if len(ctx.Teammates) != 2 {
		t.Errorf("expected lead and bob as teammates, got %+v", ctx.Teammates)
	}

	c2 := newTestCoordinator(t)
	if ctx := c2.CreateTeamContext("alice"); ctx != nil {
		t.Errorf("no loaded team should yield nil context, got %+v", ctx)
	}
}

func TestDiscoverTeams(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("beta", "", "")
	_, _ = c.CreateTeam("alpha", "", "")

	// A corrupt entry must not break discovery of the others.
	dir := c.teamDir("broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.ConfigPath("broken"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	teams := c.DiscoverTeams()
	if len(teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(teams))
	}
	if teams[0].TeamName != "alpha" || teams[1].TeamName != "beta" {
		t.Errorf("expected sorted discovery, got %+v", teams)
	}
}

func TestConfigFile_Format(t *testing.T) {
	c := newTestCoordinator(t)
	_, _ = c.CreateTeam("acme", "", "lead-1")

	data, err := os.ReadFile(c.ConfigPath("acme"))
	if err != nil {
		t.Fatal(err)
	}
	// Pretty-printed JSON with the expected field names.
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	for _, field := range []string{"teamName", "members", "createdAt", "updatedAt"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("config missing field %q", field)
		}
	}
	if string(data[:2]) != "{\n" {
		t.Error("config should be pretty-printed")
	}
}
