// Package errors provides a lightweight structured error type (HookError)
// for category-based classification and operator remediation hints in the CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a buildhook error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Compile step errors
	CategoryCompiler   ErrorCategory = "compiler"
	CategoryArtifact   ErrorCategory = "artifact"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// HookError is a structured error with category, severity, and an optional
// remediation message telling the operator how to fix the environment.
type HookError struct {
	Category    ErrorCategory `json:"category"`
	Severity    ErrorSeverity `json:"severity"`
	Message     string        `json:"message"`
	Remediation string        `json:"remediation,omitempty"`
	Cause       error         `json:"cause,omitempty"`
	Context     ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for HookError
type ContextFields map[string]any

// Error implements the error interface
func (e *HookError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *HookError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *HookError) WithContext(key string, value any) *HookError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithRemediation attaches an operator-facing remediation message.
func (e *HookError) WithRemediation(msg string) *HookError {
	e.Remediation = msg
	return e
}

// New creates a new HookError
func New(category ErrorCategory, severity ErrorSeverity, message string) *HookError {
	return &HookError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new HookError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *HookError {
	return &HookError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Fatal creates a new fatal HookError
func Fatal(category ErrorCategory, message string) *HookError {
	return New(category, SeverityFatal, message)
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if he, ok := err.(*HookError); ok {
		return he.Category == category
	}
	return false
}

// IsFatal checks if an error carries fatal severity
func IsFatal(err error) bool {
	if he, ok := err.(*HookError); ok {
		return he.Severity == SeverityFatal
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a HookError
func GetCategory(err error) ErrorCategory {
	if he, ok := err.(*HookError); ok {
		return he.Category
	}
	return CategoryInternal
}

// GetRemediation extracts the remediation message from an error, if any.
func GetRemediation(err error) string {
	if he, ok := err.(*HookError); ok {
		return he.Remediation
	}
	return ""
}

// ValidationError creates a new validation error
func ValidationError(message string) *HookError {
	return &HookError{
		Category: CategoryValidation,
		Severity: SeverityWarning,
		Message:  message,
	}
}

// WrapError wraps an existing error with a new HookError at error severity
func WrapError(err error, category ErrorCategory, message string) *HookError {
	return &HookError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}
