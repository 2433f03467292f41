package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "tmux.leader_width_percent")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// socketNameRegex validates tmux socket and session name characters.
// Names should start with alphanumeric and can contain alphanumeric, hyphen, underscore.
var socketNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTmux()...)
	errors = append(errors, c.validateITerm()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateTmux() []ValidationError {
	var errors []ValidationError

	if !socketNameRegex.MatchString(c.Tmux.LeaderSocket) {
		errors = append(errors, ValidationError{
			Field:   "tmux.leader_socket",
			Value:   c.Tmux.LeaderSocket,
			Message: "must start with a letter and contain only letters, digits, hyphens, underscores",
		})
	}
	if !socketNameRegex.MatchString(c.Tmux.SwarmSession) {
		errors = append(errors, ValidationError{
			Field:   "tmux.swarm_session",
			Value:   c.Tmux.SwarmSession,
			Message: "must start with a letter and contain only letters, digits, hyphens, underscores",
		})
	}
	if !socketNameRegex.MatchString(c.Tmux.HiddenSession) {
		errors = append(errors, ValidationError{
			Field:   "tmux.hidden_session",
			Value:   c.Tmux.HiddenSession,
			Message: "must start with a letter and contain only letters, digits, hyphens, underscores",
		})
	}
	if c.Tmux.LeaderWidthPercent < 10 || c.Tmux.LeaderWidthPercent > 90 {
		errors = append(errors, ValidationError{
			Field:   "tmux.leader_width_percent",
			Value:   c.Tmux.LeaderWidthPercent,
			Message: "must be between 10 and 90",
		})
	}
	if c.Tmux.FirstSplitPercent < 10 || c.Tmux.FirstSplitPercent > 90 {
		errors = append(errors, ValidationError{
			Field:   "tmux.first_split_percent",
			Value:   c.Tmux.FirstSplitPercent,
			Message: "must be between 10 and 90",
		})
	}
	if c.Tmux.SettleTimeoutMs < 0 || c.Tmux.SettleTimeoutMs > 5000 {
		errors = append(errors, ValidationError{
			Field:   "tmux.settle_timeout_ms",
			Value:   c.Tmux.SettleTimeoutMs,
			Message: "must be between 0 and 5000",
		})
	}

	return errors
}

func (c *Config) validateITerm() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.ITerm.CLIPath) == "" {
		errors = append(errors, ValidationError{
			Field:   "iterm.cli_path",
			Value:   c.ITerm.CLIPath,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
