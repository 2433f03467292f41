package cmd

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/swarmux/swarmux/internal/config"
	"github.com/swarmux/swarmux/internal/logging"
	"github.com/swarmux/swarmux/internal/swarm"
	"github.com/swarmux/swarmux/internal/util"
)

// descriptionWidth caps team descriptions in list and status output.
const descriptionWidth = 48

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage agent teams",
}

var teamCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new team",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamCreate,
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all teams",
	RunE:  runTeamList,
}

var teamCleanupCmd = &cobra.Command{
	Use:   "cleanup NAME",
	Short: "Remove a team whose members have all been shut down",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamCleanup,
}

var teamStatusCmd = &cobra.Command{
	Use:   "status NAME",
	Short: "Show a team's members",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamStatus,
}

var (
	teamDescription string
	teamLeadAgentID string
	teamListFilter  string
)

func init() {
	teamCreateCmd.Flags().StringVarP(&teamDescription, "description", "d", "", "team description")
	teamCreateCmd.Flags().StringVar(&teamLeadAgentID, "lead-agent-id", "", "agent ID to seed as team-lead")
	teamListCmd.Flags().StringVar(&teamListFilter, "filter", "", "glob pattern to filter team names (e.g. 'proj-*')")

	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamCleanupCmd)
	teamCmd.AddCommand(teamStatusCmd)
	rootCmd.AddCommand(teamCmd)
}

// newCoordinator builds a coordinator over the configured data root.
func newCoordinator() (*swarm.Coordinator, *config.Config) {
	cfg := config.Get()
	return swarm.NewCoordinator(swarm.CoordinatorConfig{
		Logger:   newLogger(cfg),
		DataRoot: cfg.Paths.ResolveDataRoot(),
	}), cfg
}

// newLogger builds the command logger, falling back to a no-op logger
// when logging is disabled or the log directory is unwritable.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLogger(config.ConfigDir(), cfg.Logging.Level)
	if err != nil {
		return logging.NopLogger()
	}
	return logger
}

func runTeamCreate(cmd *cobra.Command, args []string) error {
	coord, _ := newCoordinator()

	cfg, err := coord.CreateTeam(args[0], teamDescription, teamLeadAgentID)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", okStyle.Render("Created team"), headerStyle.Render(cfg.TeamName))
	fmt.Printf("  config: %s\n", dimStyle.Render(coord.ConfigPath(cfg.TeamName)))
	return nil
}

func runTeamList(cmd *cobra.Command, args []string) error {
	coord, _ := newCoordinator()

	var matcher glob.Glob
	if teamListFilter != "" {
		var err error
		matcher, err = glob.Compile(teamListFilter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern %q: %w", teamListFilter, err)
		}
	}

	teams := coord.DiscoverTeams()
	shown := 0
	for _, team := range teams {
		if matcher != nil && !matcher.Match(team.TeamName) {
			continue
		}
		shown++
		fmt.Printf("%s  %d member(s)", headerStyle.Render(team.TeamName), len(team.Members))
		if team.Description != "" {
			fmt.Printf("  %s", util.TruncateANSI(dimStyle.Render(team.Description), descriptionWidth))
		}
		fmt.Println()
	}

	if shown == 0 {
		fmt.Println(dimStyle.Render("no teams found"))
	}
	return nil
}

func runTeamCleanup(cmd *cobra.Command, args []string) error {
	coord, _ := newCoordinator()

	if err := coord.CleanupTeam(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", okStyle.Render("Cleaned up team"), headerStyle.Render(args[0]))
	return nil
}

func runTeamStatus(cmd *cobra.Command, args []string) error {
	coord, _ := newCoordinator()

	team := coord.LoadTeamConfig(args[0])
	if team == nil {
		return fmt.Errorf("team %q not found", args[0])
	}

	fmt.Printf("%s", headerStyle.Render(team.TeamName))
	if team.Description != "" {
		fmt.Printf("  %s", util.TruncateANSI(dimStyle.Render(team.Description), descriptionWidth))
	}
	fmt.Printf("\n  created %s, updated %s\n\n",
		team.CreatedAt.Format("2006-01-02 15:04:05"),
		team.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(team.Members) == 0 {
		fmt.Println(dimStyle.Render("  no members"))
		return nil
	}
	for _, m := range team.Members {
		fmt.Printf("  %s  %s", memberLabel(m.Name, m.Color), activeMark(m.Active()))
		if m.AgentType != "" {
			fmt.Printf("  %s", m.AgentType)
		}
		if m.PaneID != "" {
			fmt.Printf("  %s", dimStyle.Render("pane "+m.PaneID))
		}
		fmt.Println()
	}
	return nil
}
