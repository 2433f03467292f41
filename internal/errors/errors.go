// Package errors provides centralized error definitions and error handling
// utilities for the swarmux codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - TeamError: errors related to team configuration and membership
//   - AgentError: errors related to agent lifecycle management
//   - PaneError: errors related to terminal multiplexer operations
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewPaneError("split failed", errors.ErrMultiplexerCommand)
//
//	// Semantic error
//	err := errors.NewAlreadyExistsError("team", "acme")
//
//	// With context wrapping
//	err := errors.NewAgentError("cannot start", baseErr).WithAgentID("agent-1")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrAgentNotFound) { ... }
//
//	// Check for error types
//	var teamErr *errors.TeamError
//	if errors.As(err, &teamErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Team-related sentinel errors
var (
	// ErrTeamNotFound indicates that a team config could not be found.
	ErrTeamNotFound = New("team not found")
	// ErrTeamExists indicates that a team with the given name already exists.
	ErrTeamExists = New("team already exists")
	// ErrTeamNotLoaded indicates that no team is currently loaded.
	ErrTeamNotLoaded = New("no team loaded")
	// ErrLeadImmutable indicates an attempt to remove the reserved team lead.
	ErrLeadImmutable = New("team lead cannot be removed")
	// ErrMembersActive indicates cleanup was attempted with active members.
	ErrMembersActive = New("team has active members")
)

// Agent-related sentinel errors
var (
	// ErrAgentNotFound indicates that an agent could not be found.
	ErrAgentNotFound = New("agent not found")
	// ErrAgentExists indicates that an agent name is already taken.
	ErrAgentExists = New("agent name already taken")
	// ErrAgentNotPending indicates a start was attempted on a non-pending agent.
	ErrAgentNotPending = New("agent is not pending")
	// ErrAgentTerminal indicates the agent has reached a terminal state.
	ErrAgentTerminal = New("agent is in a terminal state")
)

// Multiplexer-related sentinel errors
var (
	// ErrBackendUnavailable indicates no terminal multiplexer backend is usable.
	ErrBackendUnavailable = New("no terminal backend available")
	// ErrMultiplexerCommand indicates a multiplexer subprocess exited non-zero.
	ErrMultiplexerCommand = New("multiplexer command failed")
	// ErrPaneNotFound indicates that a pane could not be found.
	ErrPaneNotFound = New("pane not found")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// TeamError represents errors related to team configuration and membership.
//
// Example:
//
//	err := errors.NewTeamError("failed to persist config", cause)
//	err = err.WithTeamName("acme")
type TeamError struct {
	baseError
	TeamName string
}

// NewTeamError creates a new TeamError.
func NewTeamError(message string, cause error) *TeamError {
	return &TeamError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithTeamName adds a team name to the error context.
func (e *TeamError) WithTeamName(name string) *TeamError {
	e.TeamName = name
	return e
}

// Error returns the formatted error message.
func (e *TeamError) Error() string {
	prefix := "team error"
	if e.TeamName != "" {
		prefix = fmt.Sprintf("team error [team=%s]", e.TeamName)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TeamError) Is(target error) bool {
	if _, ok := target.(*TeamError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AgentError represents errors related to agent lifecycle management.
//
// Example:
//
//	err := errors.NewAgentError("cannot start", errors.ErrAgentNotPending)
//	err = err.WithAgentID("agent-1").WithAgentName("alice")
type AgentError struct {
	baseError
	AgentID   string
	AgentName string
}

// NewAgentError creates a new AgentError.
func NewAgentError(message string, cause error) *AgentError {
	return &AgentError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithAgentID adds an agent ID to the error context.
func (e *AgentError) WithAgentID(id string) *AgentError {
	e.AgentID = id
	return e
}

// WithAgentName adds an agent name to the error context.
func (e *AgentError) WithAgentName(name string) *AgentError {
	e.AgentName = name
	return e
}

// Error returns the formatted error message.
func (e *AgentError) Error() string {
	var parts []string
	if e.AgentID != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.AgentID))
	}
	if e.AgentName != "" {
		parts = append(parts, fmt.Sprintf("name=%s", e.AgentName))
	}

	prefix := "agent error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("agent error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *AgentError) Is(target error) bool {
	if _, ok := target.(*AgentError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PaneError represents errors related to terminal multiplexer operations.
// Stderr captured from the failed subprocess is carried alongside the cause.
//
// Example:
//
//	err := errors.NewPaneError("split-window failed", cause).
//		WithPaneID("%12").
//		WithStderr("no space for new pane")
type PaneError struct {
	baseError
	PaneID string
	Stderr string
}

// NewPaneError creates a new PaneError.
func NewPaneError(message string, cause error) *PaneError {
	return &PaneError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPaneID adds a pane ID to the error context.
func (e *PaneError) WithPaneID(id string) *PaneError {
	e.PaneID = id
	return e
}

// WithStderr attaches captured subprocess stderr to the error.
func (e *PaneError) WithStderr(stderr string) *PaneError {
	e.Stderr = strings.TrimSpace(stderr)
	return e
}

// Error returns the formatted error message.
func (e *PaneError) Error() string {
	prefix := "pane error"
	if e.PaneID != "" {
		prefix = fmt.Sprintf("pane error [pane=%s]", e.PaneID)
	}

	msg := e.message
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *PaneError) Is(target error) bool {
	if _, ok := target.(*PaneError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("agent", "agent-1")
//	fmt.Println(err) // "agent 'agent-1' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("team", "acme")
//	fmt.Println(err) // "team 'acme' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("agent name cannot be empty")
//	err = err.WithField("name").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// Wrap wraps an error with an additional message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// GetSeverity returns the severity of an error. Errors that don't implement
// the Severity method default to SeverityError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var sev interface{ Severity() Severity }
	if errors.As(err, &sev) {
		return sev.Severity()
	}
	return SeverityError
}

// IsUserFacing returns true if the error message is safe to display to users.
// Errors that don't implement the IsUserFacing method default to false.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var uf interface{ IsUserFacing() bool }
	if errors.As(err, &uf) {
		return uf.IsUserFacing()
	}
	return false
}
