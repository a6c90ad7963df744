// Package errors defines the taxonomy of errors the engine raises at
// the command boundary, as opposed to rule-evaluation failures which
// are always swallowed to false (see internal/rules).
package errors

import "fmt"

// LoadError reports that rules JSON failed to parse into valid
// StaticData: missing required structure, a dangling reference, or an
// incompatible player id. A LoadError never partially replaces the
// previous StaticData — the caller keeps what it had.
type LoadError struct {
	PlayerID string
	Message  string
	Cause    error
}

func (e *LoadError) Error() string {
	if e.PlayerID != "" {
		return fmt.Sprintf("load error for player %s: %s", e.PlayerID, e.Message)
	}
	return fmt.Sprintf("load error: %s", e.Message)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// NewLoadError constructs a LoadError.
func NewLoadError(playerID, message string, cause error) *LoadError {
	return &LoadError{PlayerID: playerID, Message: message, Cause: cause}
}

// AccessDeniedError is raised by checkLocation when the location is not
// accessible and forceCheck was not set.
type AccessDeniedError struct {
	LocationName string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("location %q is not accessible", e.LocationName)
}

// NewAccessDeniedError constructs an AccessDeniedError.
func NewAccessDeniedError(locationName string) *AccessDeniedError {
	return &AccessDeniedError{LocationName: locationName}
}

// UnknownNameError reports a reference to an item, location, or region
// that does not exist in the currently loaded StaticData.
type UnknownNameError struct {
	Kind string // "item", "location", "region", "exit"
	Name string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Kind, e.Name)
}

// NewUnknownNameError constructs an UnknownNameError.
func NewUnknownNameError(kind, name string) *UnknownNameError {
	return &UnknownNameError{Kind: kind, Name: name}
}

// RuleEvaluationError is never returned to a caller — it is attached to
// a diagnostic log entry when a rule node is an unknown kind or
// references a missing helper. Evaluation always still produces false
// for the offending node; this type exists so the diagnostic carries a
// structured Cause instead of a bare string.
type RuleEvaluationError struct {
	NodeKind string
	Detail   string
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule evaluation issue at node %q: %s", e.NodeKind, e.Detail)
}

// NewRuleEvaluationError constructs a RuleEvaluationError.
func NewRuleEvaluationError(nodeKind, detail string) *RuleEvaluationError {
	return &RuleEvaluationError{NodeKind: nodeKind, Detail: detail}
}

// WorkerFatalError is the only error that cascades globally: the worker
// cannot continue processing any command. All pending proxy futures
// must reject and the proxy must require reinitialisation.
type WorkerFatalError struct {
	Message string
	Cause   error
}

func (e *WorkerFatalError) Error() string {
	return fmt.Sprintf("worker fatal: %s", e.Message)
}

func (e *WorkerFatalError) Unwrap() error { return e.Cause }

// NewWorkerFatalError constructs a WorkerFatalError.
func NewWorkerFatalError(message string, cause error) *WorkerFatalError {
	return &WorkerFatalError{Message: message, Cause: cause}
}

// CommandError is the uniform envelope a failed command is reported
// with over the wire: the original command name plus the underlying
// typed error.
type CommandError struct {
	Command string
	Cause   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: %s", e.Command, e.Cause)
}

func (e *CommandError) Unwrap() error { return e.Cause }

// NewCommandError constructs a CommandError.
func NewCommandError(command string, cause error) *CommandError {
	return &CommandError{Command: command, Cause: cause}
}
