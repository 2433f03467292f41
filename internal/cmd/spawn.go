package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/swarmux/swarmux/internal/mux"
	"github.com/swarmux/swarmux/internal/orchestrator"
)

var spawnCmd = &cobra.Command{
	Use:   "spawn",
	Short: "Spawn a teammate agent in a new pane",
	RunE:  runSpawn,
}

var (
	spawnTeam string
	spawnName string
	spawnType string
)

func init() {
	spawnCmd.Flags().StringVar(&spawnTeam, "team", "", "team to join (required)")
	spawnCmd.Flags().StringVar(&spawnName, "name", "", "teammate name (required)")
	spawnCmd.Flags().StringVar(&spawnType, "type", "", "agent type (e.g. worker, reviewer)")
	_ = spawnCmd.MarkFlagRequired("team")
	_ = spawnCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(spawnCmd)
}

func runSpawn(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	logger := newLogger(cfg)

	backend, err := mux.Detect(mux.NewRunner(), cfg, logger)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{
		Logger:  logger,
		Config:  cfg,
		Backend: backend,
	})
	defer orch.Close()

	if orch.Swarm.LoadTeamConfig(spawnTeam) == nil {
		return fmt.Errorf("team %q not found", spawnTeam)
	}

	member, err := orch.AddTeammate(context.Background(), spawnName, spawnType)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s in team %s\n",
		okStyle.Render("Spawned"),
		memberLabel(member.Name, member.Color),
		headerStyle.Render(spawnTeam))
	fmt.Printf("  pane: %s  backend: %s\n", member.PaneID, backend.Type())
	return nil
}
