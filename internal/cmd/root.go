package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swarmux/swarmux/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "swarmux",
	Short: "Terminal-multiplexer agent swarm orchestrator",
	Long: `Swarmux runs a team of coding agents side by side in terminal
multiplexer panes, managing team membership, agent lifecycle, and
inter-agent messaging from a single leader pane.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/swarmux/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/swarmux")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SWARMUX")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SWARMUX_TMUX_LEADER_SOCKET for tmux.leader_socket
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
