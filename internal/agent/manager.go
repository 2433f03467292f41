package agent

import (
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
)

// ManagerConfig holds dependencies for creating a Manager.
type ManagerConfig struct {
	Logger *logging.Logger // Optional; NopLogger is used when nil
	Colors *ColorRegistry  // Optional; a fresh registry is created when nil

	// DefaultModel is assigned when an agent type has no mapping.
	DefaultModel string
	// ModelsByType maps agent types to default models.
	ModelsByType map[string]string
}

// Manager is the authoritative in-memory registry of agents, their
// identities, and their lifecycle. All mutation goes through the Manager;
// queries return copies.
type Manager struct {
	mu       sync.RWMutex
	logger   *logging.Logger
	colors   *ColorRegistry
	teamName string

	defaultModel string
	modelsByType map[string]string

	byID     map[string]*RuntimeInfo
	idByName map[string]string // composite name key -> agent ID

	callbacks map[string]EventCallback
	nextSubID int
}

// NewManager creates a Manager with the given configuration.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	colors := cfg.Colors
	if colors == nil {
		colors = NewColorRegistry()
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "sonnet"
	}

	return &Manager{
		logger:       logger,
		colors:       colors,
		defaultModel: model,
		modelsByType: cfg.ModelsByType,
		byID:         make(map[string]*RuntimeInfo),
		idByName:     make(map[string]string),
		callbacks:    make(map[string]EventCallback),
	}
}

// SetTeamName re-scopes the agent name namespace to the given team.
// Existing registrations keep their original namespace keys.
func (m *Manager) SetTeamName(teamName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teamName = teamName
}

// TeamName returns the current team namespace.
func (m *Manager) TeamName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.teamName
}

// nameKey returns the composite registry key for a name. Names are unique
// within a team namespace when a team is set, otherwise globally.
func (m *Manager) nameKey(name string) string {
	if m.teamName != "" {
		return m.teamName + ":" + name
	}
	return name
}

// Spawn registers a new agent in the pending state and emits a "spawned"
// lifecycle event. It fails if the name is empty or already taken within
// the current team namespace.
func (m *Manager) Spawn(cfg SpawnConfig) (RuntimeInfo, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return RuntimeInfo{}, errors.NewValidationError("agent name cannot be empty").WithField("name")
	}

	m.mu.Lock()
	key := m.nameKey(name)
	if _, taken := m.idByName[key]; taken {
		m.mu.Unlock()
		return RuntimeInfo{}, errors.NewAlreadyExistsError("agent", name)
	}

	color := cfg.Color
	if color == "" {
		color = m.colors.ColorFor(name)
	}

	model := cfg.Model
	if model == "" {
		model = m.modelFor(cfg.AgentType)
	}

	info := &RuntimeInfo{
		AgentID:      generateAgentID(),
		Name:         name,
		Status:       StatusPending,
		AgentType:    cfg.AgentType,
		Model:        model,
		Color:        color,
		Cwd:          cfg.Cwd,
		WorktreePath: cfg.WorktreePath,
		BackendType:  cfg.BackendType,
		Mode:         cfg.Mode,
		SpawnedAt:    time.Now(),
	}

	m.byID[info.AgentID] = info
	m.idByName[key] = info.AgentID
	snapshot := *info
	m.mu.Unlock()

	m.logger.Info("agent spawned",
		"agent_id", snapshot.AgentID,
		"name", snapshot.Name,
		"model", snapshot.Model,
		"color", snapshot.Color.String())

	m.emit(Event{Type: EventSpawned, Agent: snapshot, Timestamp: time.Now()})
	return snapshot, nil
}

// modelFor resolves the default model for an agent type.
func (m *Manager) modelFor(agentType string) string {
	if model, ok := m.modelsByType[agentType]; ok {
		return model
	}
	return m.defaultModel
}

// Start transitions a pending agent to running and emits "started".
// It fails if the agent is unknown or not pending.
func (m *Manager) Start(agentID string) error {
	m.mu.Lock()
	info, ok := m.byID[agentID]
	if !ok {
		m.mu.Unlock()
		return errors.NewNotFoundError("agent", agentID)
	}
	if info.Status != StatusPending {
		status := info.Status
		m.mu.Unlock()
		return errors.NewAgentError(
			fmt.Sprintf("cannot start agent in status %q", status),
			errors.ErrAgentNotPending,
		).WithAgentID(agentID)
	}
	info.Status = StatusRunning
	snapshot := *info
	m.mu.Unlock()

	m.emit(Event{Type: EventStarted, Agent: snapshot, Timestamp: time.Now()})
	return nil
}

// SetIdle transitions a running agent to idle. Calls from any other state
// are silent no-ops: idle/resume signals can arrive out of order and the
// registry tolerates that rather than erroring.
func (m *Manager) SetIdle(agentID string) {
	m.toggleActive(agentID, StatusRunning, StatusIdle, EventIdle)
}

// Resume transitions an idle agent back to running. A no-op from any
// other state, mirroring SetIdle.
func (m *Manager) Resume(agentID string) {
	m.toggleActive(agentID, StatusIdle, StatusRunning, EventResumed)
}

// toggleActive performs the strict running<->idle toggle.
func (m *Manager) toggleActive(agentID string, from, to Status, event EventType) {
	m.mu.Lock()
	info, ok := m.byID[agentID]
	if !ok || info.Status != from {
		m.mu.Unlock()
		return
	}
	info.Status = to
	snapshot := *info
	m.mu.Unlock()

	m.emit(Event{Type: event, Agent: snapshot, Timestamp: time.Now()})
}

// Complete transitions an agent to completed with an optional result.
// A no-op if the agent is unknown or already terminal.
func (m *Manager) Complete(agentID, result string) {
	m.terminate(agentID, StatusCompleted, EventCompleted, result)
}

// Fail transitions an agent to failed, recording the error message.
// A no-op if the agent is unknown or already terminal.
func (m *Manager) Fail(agentID, errMsg string) {
	m.terminate(agentID, StatusFailed, EventFailed, errMsg)
}

// Shutdown transitions an agent to cancelled with an optional reason.
// A no-op if the agent is unknown or already terminal.
func (m *Manager) Shutdown(agentID, reason string) {
	m.terminate(agentID, StatusCancelled, EventShutdown, reason)
}

// terminate applies a terminal transition idempotently.
func (m *Manager) terminate(agentID string, to Status, event EventType, payload string) {
	m.mu.Lock()
	info, ok := m.byID[agentID]
	if !ok || info.Status.IsTerminal() {
		m.mu.Unlock()
		return
	}
	info.Status = to
	snapshot := *info
	m.mu.Unlock()

	m.logger.Info("agent terminated",
		"agent_id", agentID,
		"status", to.String(),
		"payload", payload)

	m.emit(Event{Type: event, Agent: snapshot, Payload: payload, Timestamp: time.Now()})
}

// SetPaneID records the multiplexer pane handle for an agent.
// Returns false if the agent is unknown.
func (m *Manager) SetPaneID(agentID, paneID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.byID[agentID]
	if !ok {
		return false
	}
	info.PaneID = paneID
	return true
}

// SetHidden records whether an agent's pane is hidden.
// Returns false if the agent is unknown.
func (m *Manager) SetHidden(agentID string, hidden bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.byID[agentID]
	if !ok {
		return false
	}
	info.Hidden = hidden
	return true
}

// Get returns a copy of the agent record, or false if not found.
func (m *Manager) Get(agentID string) (RuntimeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.byID[agentID]
	if !ok {
		return RuntimeInfo{}, false
	}
	return *info, true
}

// GetByName returns a copy of the agent record registered under name
// within the current team namespace, or false if not found.
func (m *Manager) GetByName(name string) (RuntimeInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.idByName[m.nameKey(name)]
	if !ok {
		return RuntimeInfo{}, false
	}
	return *m.byID[id], true
}

// All returns copies of every registered agent, sorted by spawn time.
func (m *Manager) All() []RuntimeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RuntimeInfo, 0, len(m.byID))
	for _, info := range m.byID {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpawnedAt.Before(out[j].SpawnedAt) })
	return out
}

// Active returns all agents that are running or idle.
func (m *Manager) Active() []RuntimeInfo {
	return m.filter(func(info *RuntimeInfo) bool { return info.Status.IsActive() })
}

// Idle returns all agents currently idle.
func (m *Manager) Idle() []RuntimeInfo {
	return m.filter(func(info *RuntimeInfo) bool { return info.Status == StatusIdle })
}

// filter returns copies of agents matching the predicate, sorted by spawn time.
func (m *Manager) filter(pred func(*RuntimeInfo) bool) []RuntimeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RuntimeInfo
	for _, info := range m.byID {
		if pred(info) {
			out = append(out, *info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpawnedAt.Before(out[j].SpawnedAt) })
	return out
}

// Count returns the total number of registered agents.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// ActiveCount returns the number of running or idle agents.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, info := range m.byID {
		if info.Status.IsActive() {
			count++
		}
	}
	return count
}

// ColorFor returns the stable round-robin color for an agent name.
func (m *Manager) ColorFor(name string) Color {
	return m.colors.ColorFor(name)
}

// ResetColorAssignments clears the color registry, used on team cleanup.
func (m *Manager) ResetColorAssignments() {
	m.colors.Reset()
}

// OnLifecycleEvent registers a callback for agent lifecycle events and
// returns an unsubscribe function. Callback panics are recovered and
// logged; they never propagate to the transition site.
func (m *Manager) OnLifecycleEvent(cb EventCallback) func() {
	m.mu.Lock()
	m.nextSubID++
	id := fmt.Sprintf("sub-%d", m.nextSubID)
	m.callbacks[id] = cb
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.callbacks, id)
		m.mu.Unlock()
	}
}

// emit dispatches an event to all registered callbacks in stable order.
func (m *Manager) emit(event Event) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.callbacks))
	for id := range m.callbacks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	cbs := make([]EventCallback, 0, len(ids))
	for _, id := range ids {
		cbs = append(cbs, m.callbacks[id])
	}
	m.mu.RUnlock()

	for _, cb := range cbs {
		m.safeCall(cb, event)
	}
}

// safeCall invokes a callback and recovers from any panic, so one
// misbehaving subscriber cannot break delivery to the others.
func (m *Manager) safeCall(cb EventCallback, event Event) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("lifecycle callback panicked",
				"event", string(event.Type),
				"agent_id", event.Agent.AgentID,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	cb(event)
}

// Remove deletes an agent from both the ID and name indexes.
// Returns false if the agent is unknown.
func (m *Manager) Remove(agentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(agentID)
}

// removeLocked deletes an agent. Must be called with m.mu held.
func (m *Manager) removeLocked(agentID string) bool {
	if _, ok := m.byID[agentID]; !ok {
		return false
	}
	delete(m.byID, agentID)
	for key, id := range m.idByName {
		if id == agentID {
			delete(m.idByName, key)
			break
		}
	}
	return true
}

// PruneTerminated removes every agent in a terminal state and returns
// the number removed.
func (m *Manager) PruneTerminated() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var terminal []string
	for id, info := range m.byID {
		if info.Status.IsTerminal() {
			terminal = append(terminal, id)
		}
	}
	for _, id := range terminal {
		m.removeLocked(id)
	}
	return len(terminal)
}

// Clear resets the whole registry and the color assignment state.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.byID = make(map[string]*RuntimeInfo)
	m.idByName = make(map[string]string)
	m.mu.Unlock()

	m.colors.Reset()
}

// generateAgentID produces a unique agent ID from a millisecond timestamp
// and a random suffix.
func generateAgentID() string {
	return fmt.Sprintf("agent-%d-%06x", time.Now().UnixMilli(), rand.IntN(1<<24))
}
