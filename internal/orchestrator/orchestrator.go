// Package orchestrator ties the core subsystems together: one
// Orchestrator owns one agent manager, one swarm coordinator, one
// message bus, and one terminal backend, and passes references to
// whoever needs them. Tests construct fresh Orchestrators instead of
// resetting shared state.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/swarmux/swarmux/internal/agent"
	"github.com/swarmux/swarmux/internal/bus"
	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/errors"
	"github.com/swarmux/swarmux/internal/logging"
	"github.com/swarmux/swarmux/internal/mux"
	"github.com/swarmux/swarmux/internal/swarm"
)

// Orchestrator is the explicit ownership context for one swarm.
type Orchestrator struct {
	Agents  *agent.Manager
	Swarm   *swarm.Coordinator
	Bus     *bus.Bus
	Backend mux.Backend
	Logger  *logging.Logger
	Config  *config.Config

	unsubscribe func()
}

// Options configures a new Orchestrator. Zero-value fields get working
// defaults; Backend is required for pane operations but may be left nil
// for registry-only use.
type Options struct {
	Logger  *logging.Logger
	Config  *config.Config
	Backend mux.Backend
}

// New wires up a fresh Orchestrator. Agent lifecycle events are
// forwarded onto the bus as system broadcasts.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	agents := agent.NewManager(agent.ManagerConfig{
		Logger:       logger,
		DefaultModel: cfg.Agent.DefaultModel,
		ModelsByType: cfg.Agent.ModelsByType,
	})
	coord := swarm.NewCoordinator(swarm.CoordinatorConfig{
		Logger:   logger,
		Agents:   agents,
		DataRoot: cfg.Paths.ResolveDataRoot(),
	})
	b := bus.NewBus(logger)

	o := &Orchestrator{
		Agents:  agents,
		Swarm:   coord,
		Bus:     b,
		Backend: opts.Backend,
		Logger:  logger,
		Config:  cfg,
	}
	o.unsubscribe = agents.OnLifecycleEvent(o.forwardLifecycleEvent)
	return o
}

// Close detaches the orchestrator from its agent manager.
func (o *Orchestrator) Close() {
	if o.unsubscribe != nil {
		o.unsubscribe()
		o.unsubscribe = nil
	}
}

// forwardLifecycleEvent republishes agent transitions as system messages
// so bus subscribers can track the swarm without holding the manager.
func (o *Orchestrator) forwardLifecycleEvent(e agent.Event) {
	text := fmt.Sprintf("agent %s %s", e.Agent.Name, e.Type)
	if e.Payload != "" {
		text += ": " + e.Payload
	}
	o.Bus.Broadcast(bus.NewSystemMessage(e.Agent.Name, text), true)
}

// AddTeammate spawns an agent, registers the team member, and creates a
// pane for it. The pane ID is recorded on both the agent and the member
// record. On pane failure the agent and member are rolled back so no
// partial registry entry survives.
func (o *Orchestrator) AddTeammate(ctx context.Context, name, agentType string) (*swarm.TeamMember, error) {
	if o.Backend == nil {
		return nil, errors.ErrBackendUnavailable
	}

	info, err := o.Agents.Spawn(agent.SpawnConfig{
		Name:        name,
		AgentType:   agentType,
		BackendType: o.Backend.Type(),
	})
	if err != nil {
		return nil, err
	}

	member, err := o.Swarm.AddMember(swarm.TeamMember{
		Name:        name,
		AgentID:     info.AgentID,
		AgentType:   agentType,
		BackendType: o.Backend.Type(),
	})
	if err != nil {
		o.Agents.Remove(info.AgentID)
		return nil, err
	}

	result, err := o.Backend.CreatePane(ctx, name, member.Color)
	if err != nil {
		o.Agents.Remove(info.AgentID)
		if _, rbErr := o.Swarm.RemoveMember(name); rbErr != nil {
			o.Logger.Error("rollback failed", "member", name, "error", rbErr.Error())
		}
		return nil, err
	}

	o.Agents.SetPaneID(info.AgentID, result.PaneID)
	member = o.Swarm.UpdateMember(name, swarm.MemberUpdate{PaneID: &result.PaneID})
	if err := o.Agents.Start(info.AgentID); err != nil {
		o.Logger.Warn("failed to start agent", "agent", name, "error", err.Error())
	}

	o.Logger.Info("teammate added",
		"team", o.Swarm.TeamName(),
		"member", name,
		"pane", result.PaneID,
		"first", result.IsFirstTeammate)
	return member, nil
}

// ShutdownTeammate sends a shutdown request over the bus, marks the
// agent cancelled, deactivates the member, and kills its pane.
func (o *Orchestrator) ShutdownTeammate(ctx context.Context, name, reason string) error {
	info, ok := o.Agents.GetByName(name)
	if !ok {
		return errors.NewNotFoundError("agent", name)
	}

	req := bus.NewShutdownRequest(o.Bus.SelfName(), reason)
	o.Bus.Send(name, bus.NewSystemMessage(o.Bus.SelfName(), bus.Encode(req)))

	o.Agents.Shutdown(info.AgentID, reason)

	inactive := false
	o.Swarm.UpdateMember(name, swarm.MemberUpdate{IsActive: &inactive})

	if info.PaneID != "" && o.Backend != nil {
		if err := o.Backend.KillPane(ctx, info.PaneID); err != nil {
			return err
		}
	}
	return nil
}

// HideTeammate moves a teammate's pane out of view and records the
// hidden state on both the coordinator and the agent record. Returns
// false when the backend cannot hide panes.
func (o *Orchestrator) HideTeammate(ctx context.Context, name string) (bool, error) {
	info, ok := o.Agents.GetByName(name)
	if !ok {
		return false, errors.NewNotFoundError("agent", name)
	}
	if info.PaneID == "" || o.Backend == nil {
		return false, nil
	}

	applied, err := o.Backend.HidePane(ctx, info.PaneID)
	if err != nil || !applied {
		return applied, err
	}
	o.Swarm.SetPaneHidden(info.PaneID, true)
	o.Agents.SetHidden(info.AgentID, true)
	return true, nil
}

// ShowTeammate returns a hidden teammate's pane to the swarm view.
func (o *Orchestrator) ShowTeammate(ctx context.Context, name string) (bool, error) {
	info, ok := o.Agents.GetByName(name)
	if !ok {
		return false, errors.NewNotFoundError("agent", name)
	}
	if info.PaneID == "" || o.Backend == nil {
		return false, nil
	}

	applied, err := o.Backend.ShowPane(ctx, info.PaneID)
	if err != nil || !applied {
		return applied, err
	}
	o.Swarm.SetPaneHidden(info.PaneID, false)
	o.Agents.SetHidden(info.AgentID, false)
	return true, nil
}
