package swarm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
)

// Coordinator owns team lifecycle and membership, backed by one JSON file
// per team. It holds its own agent.Manager scoped to the active team, and
// its own color registry: member colors and agent colors are assigned
// from independent round-robin counters.
type Coordinator struct {
	mu       sync.Mutex
	logger   *logging.Logger
	colors   *agent.ColorRegistry
	agents   *agent.Manager
	dataRoot string

	team        *TeamConfig
	hiddenPanes map[string]bool
}

// CoordinatorConfig holds dependencies for creating a Coordinator.
type CoordinatorConfig struct {
	Logger   *logging.Logger // Optional; NopLogger is used when nil
	Agents   *agent.Manager  // Optional; a fresh manager is created when nil
	DataRoot string          // Root for teams/ and tasks/ directories
}

// NewCoordinator creates a Coordinator rooted at cfg.DataRoot.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	agents := cfg.Agents
	if agents == nil {
		agents = agent.NewManager(agent.ManagerConfig{Logger: logger})
	}
	return &Coordinator{
		logger:      logger,
		colors:      agent.NewColorRegistry(),
		agents:      agents,
		dataRoot:    cfg.DataRoot,
		hiddenPanes: make(map[string]bool),
	}
}

// Agents returns the coordinator's agent manager.
func (c *Coordinator) Agents() *agent.Manager {
	return c.agents
}

// TeamName returns the active team's name, or empty if none is loaded.
func (c *Coordinator) TeamName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil {
		return ""
	}
	return c.team.TeamName
}

// ActiveTeam returns a copy of the active team config, or nil.
func (c *Coordinator) ActiveTeam() *TeamConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil {
		return nil
	}
	return copyConfig(c.team)
}

// teamDir returns the directory holding a team's config file.
func (c *Coordinator) teamDir(teamName string) string {
	return filepath.Join(c.dataRoot, "teams", teamName)
}

// ConfigPath returns the path of a team's config file.
func (c *Coordinator) ConfigPath(teamName string) string {
	return filepath.Join(c.teamDir(teamName), "config.json")
}

// tasksDir returns a team's task directory, created at team creation but
// not populated here.
func (c *Coordinator) tasksDir(teamName string) string {
	return filepath.Join(c.dataRoot, "tasks", teamName)
}

// CreateTeam creates the on-disk structure for a new team, seeds the lead
// member when leadAgentID is given, persists the initial config, and
// makes the team active. The agent manager is re-scoped so agent names
// are now unique within this team.
func (c *Coordinator) CreateTeam(teamName, description, leadAgentID string) (*TeamConfig, error) {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return nil, errors.NewValidationError("team name cannot be empty").WithField("teamName")
	}

	configPath := c.ConfigPath(teamName)
	if _, err := os.Stat(configPath); err == nil {
		return nil, errors.NewAlreadyExistsError("team", teamName).WithCause(errors.ErrTeamExists)
	}

	if err := os.MkdirAll(c.teamDir(teamName), 0o755); err != nil {
		return nil, errors.NewTeamError("failed to create team directory", err).WithTeamName(teamName)
	}
	if err := os.MkdirAll(c.tasksDir(teamName), 0o755); err != nil {
		return nil, errors.NewTeamError("failed to create tasks directory", err).WithTeamName(teamName)
	}

	now := time.Now()
	cfg := &TeamConfig{
		TeamName:    teamName,
		Description: description,
		LeadAgentID: leadAgentID,
		Members:     []TeamMember{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if leadAgentID != "" {
		cfg.Members = append(cfg.Members, TeamMember{
			Name:    LeadMemberName,
			AgentID: leadAgentID,
		})
	}

	if err := c.writeConfig(cfg); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.team = cfg
	c.hiddenPanes = make(map[string]bool)
	c.mu.Unlock()
	c.agents.SetTeamName(teamName)

	c.logger.Info("team created", "team", teamName, "lead_agent_id", leadAgentID)
	return copyConfig(cfg), nil
}

// LoadTeamConfig reads a team's config file and makes it the active team.
// Load failures return nil and are logged, never raised: a missing or
// corrupt file is an ordinary condition for callers probing for teams.
func (c *Coordinator) LoadTeamConfig(teamName string) *TeamConfig {
	cfg := c.readConfig(teamName)
	if cfg == nil {
		return nil
	}

	c.mu.Lock()
	c.team = cfg
	c.hiddenPanes = make(map[string]bool)
	c.mu.Unlock()
	c.agents.SetTeamName(teamName)

	return copyConfig(cfg)
}

// readConfig parses a team config from disk without activating it.
func (c *Coordinator) readConfig(teamName string) *TeamConfig {
	data, err := os.ReadFile(c.ConfigPath(teamName))
	if err != nil {
		c.logger.Debug("team config not readable", "team", teamName, "error", err.Error())
		return nil
	}
	var cfg TeamConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		c.logger.Warn("team config not parsable", "team", teamName, "error", err.Error())
		return nil
	}
	return &cfg
}

// SaveTeamConfig persists a team config with a refreshed UpdatedAt. When
// the given config is the active team the in-memory copy is replaced too.
func (c *Coordinator) SaveTeamConfig(cfg *TeamConfig) error {
	if cfg == nil {
		return errors.NewValidationError("team config cannot be nil")
	}
	if err := c.writeConfig(cfg); err != nil {
		return err
	}

	c.mu.Lock()
	if c.team != nil && c.team.TeamName == cfg.TeamName {
		c.team = copyConfig(cfg)
	}
	c.mu.Unlock()
	return nil
}

// writeConfig performs the full-file rewrite, refreshing UpdatedAt.
func (c *Coordinator) writeConfig(cfg *TeamConfig) error {
	cfg.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.NewTeamError("failed to encode team config", err).WithTeamName(cfg.TeamName)
	}
	path := c.ConfigPath(cfg.TeamName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewTeamError("failed to create team directory", err).WithTeamName(cfg.TeamName)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewTeamError("failed to write team config", err).WithTeamName(cfg.TeamName)
	}
	return nil
}

// CleanupTeam removes a team's on-disk state. It fails while any non-lead
// member is still active: callers must shut agents down first. If the
// team was active, in-memory state is cleared and color assignments
// reset.
func (c *Coordinator) CleanupTeam(teamName string) error {
	cfg := c.readConfig(teamName)
	if cfg == nil {
		return errors.NewNotFoundError("team", teamName).WithCause(errors.ErrTeamNotFound)
	}

	for _, m := range cfg.Members {
		if !m.IsLead() && m.Active() {
			return errors.NewTeamError(
				"cannot clean up team while member "+m.Name+" is active",
				errors.ErrMembersActive,
			).WithTeamName(teamName)
		}
	}

	if err := os.Remove(c.ConfigPath(teamName)); err != nil {
		return errors.NewTeamError("failed to remove team config", err).WithTeamName(teamName)
	}
	// Best effort; the directory may hold user files.
	_ = os.Remove(c.teamDir(teamName))

	c.mu.Lock()
	wasActive := c.team != nil && c.team.TeamName == teamName
	if wasActive {
		c.team = nil
		c.hiddenPanes = make(map[string]bool)
	}
	c.mu.Unlock()

	if wasActive {
		c.colors.Reset()
		c.agents.SetTeamName("")
	}

	c.logger.Info("team cleaned up", "team", teamName)
	return nil
}

// AddMember appends a member to the active team and persists the config.
// A member with no color gets the next one from the coordinator's own
// round-robin registry.
func (c *Coordinator) AddMember(member TeamMember) (*TeamMember, error) {
	member.Name = strings.TrimSpace(member.Name)
	if member.Name == "" {
		return nil, errors.NewValidationError("member name cannot be empty").WithField("name")
	}

	c.mu.Lock()
	if c.team == nil {
		c.mu.Unlock()
		return nil, errors.ErrTeamNotLoaded
	}
	if c.team.Member(member.Name) != nil {
		name := member.Name
		c.mu.Unlock()
		return nil, errors.NewAlreadyExistsError("member", name)
	}

	if member.Color == "" {
		member.Color = c.colors.ColorFor(member.Name)
	}
	c.team.Members = append(c.team.Members, member)
	snapshot := copyConfig(c.team)
	c.mu.Unlock()

	if err := c.writeConfig(snapshot); err != nil {
		return nil, err
	}
	c.logger.Info("member added", "team", snapshot.TeamName, "member", member.Name, "color", member.Color.String())
	out := member
	return &out, nil
}

// RemoveMember removes a member from the active team and persists. The
// reserved lead can never be removed. Returns false when the member does
// not exist.
func (c *Coordinator) RemoveMember(name string) (bool, error) {
	if name == LeadMemberName {
		return false, errors.NewTeamError("the team lead cannot be removed", errors.ErrLeadImmutable)
	}

	c.mu.Lock()
	if c.team == nil {
		c.mu.Unlock()
		return false, errors.ErrTeamNotLoaded
	}

	idx := -1
	for i := range c.team.Members {
		if c.team.Members[i].Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return false, nil
	}
	c.team.Members = append(c.team.Members[:idx], c.team.Members[idx+1:]...)
	snapshot := copyConfig(c.team)
	c.mu.Unlock()

	if err := c.writeConfig(snapshot); err != nil {
		return false, err
	}
	c.logger.Info("member removed", "team", snapshot.TeamName, "member", name)
	return true, nil
}

// UpdateMember applies a shallow merge of the given fields to a member
// and persists. Returns nil when no team is loaded or the member is
// missing. Name and AgentID never change.
func (c *Coordinator) UpdateMember(name string, update MemberUpdate) *TeamMember {
	c.mu.Lock()
	if c.team == nil {
		c.mu.Unlock()
		return nil
	}
	member := c.team.Member(name)
	if member == nil {
		c.mu.Unlock()
		return nil
	}

	if update.AgentType != nil {
		member.AgentType = *update.AgentType
	}
	if update.Color != nil {
		member.Color = *update.Color
	}
	if update.PaneID != nil {
		member.PaneID = *update.PaneID
	}
	if update.Cwd != nil {
		member.Cwd = *update.Cwd
	}
	if update.WorktreePath != nil {
		member.WorktreePath = *update.WorktreePath
	}
	if update.IsActive != nil {
		active := *update.IsActive
		member.IsActive = &active
	}
	if update.BackendType != nil {
		member.BackendType = *update.BackendType
	}
	if update.Mode != nil {
		member.Mode = *update.Mode
	}

	out := *member
	snapshot := copyConfig(c.team)
	c.mu.Unlock()

	if err := c.writeConfig(snapshot); err != nil {
		c.logger.Error("failed to persist member update", "member", name, "error", err.Error())
	}
	return &out
}

// AllMembers returns a copy of every member of the active team.
func (c *Coordinator) AllMembers() []TeamMember {
	return c.members(func(m TeamMember) bool { return true })
}

// ActiveMembers returns active members, excluding the lead.
func (c *Coordinator) ActiveMembers() []TeamMember {
	return c.members(func(m TeamMember) bool { return !m.IsLead() && m.Active() })
}

// Teammates returns every member except the lead, active or not.
func (c *Coordinator) Teammates() []TeamMember {
	return c.members(func(m TeamMember) bool { return !m.IsLead() })
}

func (c *Coordinator) members(pred func(TeamMember) bool) []TeamMember {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil {
		return nil
	}
	var out []TeamMember
	for _, m := range c.team.Members {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// SetPaneHidden records whether a pane is hidden. This is session-local
// view state and never persisted to the team file.
func (c *Coordinator) SetPaneHidden(paneID string, hidden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hidden {
		c.hiddenPanes[paneID] = true
	} else {
		delete(c.hiddenPanes, paneID)
	}
}

// IsPaneHidden reports whether a pane is currently hidden.
func (c *Coordinator) IsPaneHidden(paneID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hiddenPanes[paneID]
}

// HiddenPanes returns the hidden pane IDs in sorted order.
func (c *Coordinator) HiddenPanes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.hiddenPanes))
	for id := range c.hiddenPanes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// CreateTeamContext builds the per-agent view of the active team for the
// named agent: teammates exclude selfName. Returns nil when no team is
// loaded.
func (c *Coordinator) CreateTeamContext(selfName string) *TeamContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team == nil {
		return nil
	}

	ctx := &TeamContext{
		TeamName:      c.team.TeamName,
		SelfAgentName: selfName,
	}
	for _, m := range c.team.Members {
		if m.Name == selfName {
			ctx.SelfAgentColor = m.Color
			continue
		}
		ctx.Teammates = append(ctx.Teammates, m)
	}
	return ctx
}

// DiscoverTeams scans the teams directory and returns every parsable team
// config, sorted by name. Unreadable or malformed entries are skipped.
func (c *Coordinator) DiscoverTeams() []TeamConfig {
	entries, err := os.ReadDir(filepath.Join(c.dataRoot, "teams"))
	if err != nil {
		c.logger.Debug("teams directory not readable", "error", err.Error())
		return nil
	}

	var out []TeamConfig
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if cfg := c.readConfig(entry.Name()); cfg != nil {
			out = append(out, *cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamName < out[j].TeamName })
	return out
}

// copyConfig deep-copies a team config so callers cannot mutate the
// coordinator's state through returned pointers.
func copyConfig(cfg *TeamConfig) *TeamConfig {
	out := *cfg
	out.Members = make([]TeamMember, len(cfg.Members))
	copy(out.Members, cfg.Members)
	return &out
}
