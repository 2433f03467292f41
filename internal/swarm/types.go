package swarm

import (
	"time"

	"github.com/swarmux/swarmux/internal/agent"
)

// LeadMemberName is the reserved name for the team lead. The lead entry
// can never be removed from a team.
const LeadMemberName = "team-lead"

// TeamMember is one member entry in a team's config file.
//
// IsActive is tri-state on disk: absent means active, so only an
// explicit false marks a member inactive. Use Active() rather than
// reading the pointer directly.
type TeamMember struct {
	Name         string      `json:"name"`
	AgentID      string      `json:"agentId,omitempty"`
	AgentType    string      `json:"agentType,omitempty"`
	Color        agent.Color `json:"color,omitempty"`
	PaneID       string      `json:"tmuxPaneId,omitempty"`
	Cwd          string      `json:"cwd,omitempty"`
	WorktreePath string      `json:"worktreePath,omitempty"`
	IsActive     *bool       `json:"isActive,omitempty"`
	BackendType  string      `json:"backendType,omitempty"`
	Mode         string      `json:"mode,omitempty"`
}

// Active reports whether the member is considered active. An unset flag
// counts as active.
func (m TeamMember) Active() bool {
	return m.IsActive == nil || *m.IsActive
}

// IsLead reports whether this member is the reserved team lead.
func (m TeamMember) IsLead() bool {
	return m.Name == LeadMemberName
}

// TeamConfig is the persisted state of one team, stored as pretty-printed
// JSON at <root>/teams/<name>/config.json.
type TeamConfig struct {
	TeamName    string       `json:"teamName"`
	Description string       `json:"description,omitempty"`
	LeadAgentID string       `json:"leadAgentId,omitempty"`
	Members     []TeamMember `json:"members"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Member returns a pointer to the member with the given name, or nil.
func (c *TeamConfig) Member(name string) *TeamMember {
	for i := range c.Members {
		if c.Members[i].Name == name {
			return &c.Members[i]
		}
	}
	return nil
}

// TeamContext is the per-agent view of a team: who am I, what color am I,
// and who else is on the team.
type TeamContext struct {
	TeamName       string       `json:"teamName"`
	SelfAgentName  string       `json:"selfAgentName"`
	SelfAgentColor agent.Color  `json:"selfAgentColor,omitempty"`
	Teammates      []TeamMember `json:"teammates"`
}

// MemberUpdate carries the fields UpdateMember may change. Nil fields are
// left untouched; Name and AgentID are immutable and have no update slot.
type MemberUpdate struct {
	AgentType    *string
	Color        *agent.Color
	PaneID       *string
	Cwd          *string
	WorktreePath *string
	IsActive     *bool
	BackendType  *string
	Mode         *string
}
