package agent

import "time"

// Status represents the lifecycle state of an agent.
type Status string

const (
	// StatusPending indicates the agent has been spawned but not yet started.
	StatusPending Status = "pending"

	// StatusRunning indicates the agent is actively working.
	StatusRunning Status = "running"

	// StatusIdle indicates the agent is running but waiting for work.
	StatusIdle Status = "idle"

	// StatusCompleted indicates the agent finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the agent failed.
	StatusFailed Status = "failed"

	// StatusCancelled indicates the agent was shut down before completing.
	StatusCancelled Status = "cancelled"

	// StatusHidden indicates the agent's pane has been moved out of view.
	StatusHidden Status = "hidden"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
// Terminal agents accept no further lifecycle transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IsActive returns true if the agent is running or idle.
func (s Status) IsActive() bool {
	return s == StatusRunning || s == StatusIdle
}

// Identity carries the immutable identity of an agent. Only the team
// assignment may change after creation.
type Identity struct {
	AgentID   string `json:"agentId"`
	Name      string `json:"agentName"`
	AgentType string `json:"agentType,omitempty"`
	Color     Color  `json:"color,omitempty"`
	TeamName  string `json:"teamName,omitempty"`
}

// RuntimeInfo is the mutable runtime record for one agent. It is owned
// exclusively by the Manager; callers receive copies.
type RuntimeInfo struct {
	AgentID      string    `json:"agentId"`
	Name         string    `json:"name"`
	Status       Status    `json:"status"`
	AgentType    string    `json:"agentType,omitempty"`
	Model        string    `json:"model"`
	Color        Color     `json:"color"`
	PaneID       string    `json:"tmuxPaneId,omitempty"`
	Cwd          string    `json:"cwd,omitempty"`
	WorktreePath string    `json:"worktreePath,omitempty"`
	Hidden       bool      `json:"isHidden,omitempty"`
	BackendType  string    `json:"backendType,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	SpawnedAt    time.Time `json:"spawnedAt"`
}

// SpawnConfig configures a new agent.
type SpawnConfig struct {
	Name         string
	AgentType    string
	Model        string
	Color        Color
	Cwd          string
	WorktreePath string
	BackendType  string
	Mode         string
}

// EventType identifies a lifecycle event.
type EventType string

const (
	EventSpawned   EventType = "spawned"
	EventStarted   EventType = "started"
	EventIdle      EventType = "idle"
	EventResumed   EventType = "resumed"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventShutdown  EventType = "shutdown"
)

// Event is emitted to lifecycle callbacks on every agent transition.
type Event struct {
	Type      EventType
	Agent     RuntimeInfo
	Payload   string // result, error message, or shutdown reason
	Timestamp time.Time
}

// EventCallback receives lifecycle events. Callbacks must not assume they
// run on any particular goroutine; the Manager invokes them synchronously
// at the transition site.
type EventCallback func(Event)
