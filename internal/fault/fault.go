// Package fault defines the error kinds the gateway distinguishes at its
// handler boundary: input validation failures, trust-boundary violations,
// downstream tool failures, and opaque backend errors.
package fault

import "fmt"

// ValidationError reports caller input that violates a size or emptiness
// constraint. Recoverable by the caller adjusting input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validationf builds a ValidationError for the given field.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// SecurityError reports a request that would cross a trust boundary:
// a disallowed URL or path, or a capability that was not opted in.
// Terminal for the request; never downgraded to a warning.
type SecurityError struct {
	Reason string
}

func (e *SecurityError) Error() string {
	return e.Reason
}

// Securityf builds a SecurityError.
func Securityf(format string, args ...any) *SecurityError {
	return &SecurityError{Reason: fmt.Sprintf(format, args...)}
}

// ToolExecutionError reports an operational failure in a downstream
// operation (fetch, file I/O, command). Timeout is set when the failure
// was a wall-clock timeout rather than an ordinary error.
type ToolExecutionError struct {
	Tool    string
	Reason  string
	Timeout bool
	Cause   error
}

func (e *ToolExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Tool, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Cause
}

// UpstreamError wraps a failure from the backend model call. The gateway
// does not interpret or retry it.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("backend model call failed: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
