// Package config defines the swarmux configuration, loaded through viper
// from a YAML config file, environment variables, and CLI flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete swarmux configuration.
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Tmux    TmuxConfig    `mapstructure:"tmux"`
	ITerm   ITermConfig   `mapstructure:"iterm"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PathsConfig controls where swarmux stores data.
type PathsConfig struct {
	// DataRoot is the root directory for team and task state.
	// Team configs live at {DataRoot}/teams/{team}/config.json and
	// task directories at {DataRoot}/tasks/{team}/.
	// If empty, defaults to ~/.claude. Supports ~ expansion.
	DataRoot string `mapstructure:"data_root"`
}

// TmuxConfig controls the tmux backend.
type TmuxConfig struct {
	// LeaderSocket is the tmux socket name used for externally spawned
	// swarm sessions, isolating them from the user's default tmux server.
	LeaderSocket string `mapstructure:"leader_socket"`
	// SwarmSession is the session name used on the leader socket.
	SwarmSession string `mapstructure:"swarm_session"`
	// HiddenSession is the session that holds panes moved aside by hide.
	HiddenSession string `mapstructure:"hidden_session"`
	// LeaderWidthPercent is the width reserved for the leader pane after
	// a main-vertical rebalance (default: 30).
	LeaderWidthPercent int `mapstructure:"leader_width_percent"`
	// FirstSplitPercent is the width given to the first teammate pane
	// when splitting off the leader (default: 70).
	FirstSplitPercent int `mapstructure:"first_split_percent"`
	// SettleTimeoutMs bounds the wait for the tmux pane registry to
	// reflect a layout mutation before proceeding (default: 200).
	SettleTimeoutMs int `mapstructure:"settle_timeout_ms"`
}

// ITermConfig controls the iTerm2 backend.
type ITermConfig struct {
	// CLIPath is the iTerm2 CLI binary used for session operations (default: "it2").
	CLIPath string `mapstructure:"cli_path"`
}

// AgentConfig controls agent defaults.
type AgentConfig struct {
	// DefaultModel is the model assigned when an agent type has no mapping.
	DefaultModel string `mapstructure:"default_model"`
	// ModelsByType maps agent types to their default models.
	ModelsByType map[string]string `mapstructure:"models_by_type"`
}

// LoggingConfig controls debug logging.
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true).
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info").
	Level string `mapstructure:"level"`
}

// SettleTimeout returns the tmux settle timeout as a time.Duration.
func (c *TmuxConfig) SettleTimeout() time.Duration {
	return time.Duration(c.SettleTimeoutMs) * time.Millisecond
}

// ResolveDataRoot resolves the data root directory, expanding ~ and
// falling back to ~/.claude when unset.
func (p *PathsConfig) ResolveDataRoot() string {
	dir := p.DataRoot
	if dir == "" {
		return defaultDataRoot()
	}

	if dir == "~" || len(dir) > 1 && dir[:2] == "~/" {
		home := userHome()
		if home != "" {
			if dir == "~" {
				return home
			}
			return filepath.Join(home, dir[2:])
		}
	}
	return dir
}

// defaultDataRoot returns ~/.claude, honoring USERPROFILE on Windows.
func defaultDataRoot() string {
	home := userHome()
	if home == "" {
		return ".claude"
	}
	return filepath.Join(home, ".claude")
}

// userHome returns the user's home directory from HOME or USERPROFILE.
func userHome() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	return os.Getenv("USERPROFILE")
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			DataRoot: "",
		},
		Tmux: TmuxConfig{
			LeaderSocket:       "swarmux",
			SwarmSession:       "swarmux-swarm",
			HiddenSession:      "swarmux-hidden",
			LeaderWidthPercent: 30,
			FirstSplitPercent:  70,
			SettleTimeoutMs:    200,
		},
		ITerm: ITermConfig{
			CLIPath: "it2",
		},
		Agent: AgentConfig{
			DefaultModel: "sonnet",
			ModelsByType: map[string]string{
				"architect": "opus",
				"reviewer":  "opus",
				"worker":    "sonnet",
				"scout":     "haiku",
			},
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("paths.data_root", defaults.Paths.DataRoot)

	viper.SetDefault("tmux.leader_socket", defaults.Tmux.LeaderSocket)
	viper.SetDefault("tmux.swarm_session", defaults.Tmux.SwarmSession)
	viper.SetDefault("tmux.hidden_session", defaults.Tmux.HiddenSession)
	viper.SetDefault("tmux.leader_width_percent", defaults.Tmux.LeaderWidthPercent)
	viper.SetDefault("tmux.first_split_percent", defaults.Tmux.FirstSplitPercent)
	viper.SetDefault("tmux.settle_timeout_ms", defaults.Tmux.SettleTimeoutMs)

	viper.SetDefault("iterm.cli_path", defaults.ITerm.CLIPath)

	viper.SetDefault("agent.default_model", defaults.Agent.DefaultModel)
	viper.SetDefault("agent.models_by_type", defaults.Agent.ModelsByType)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function).
// Falls back to defaults if unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "swarmux")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swarmux"
	}
	return filepath.Join(home, ".config", "swarmux")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
