// Package errors provides a lightweight structured error type (DocGenError)
// for category-based classification and retry semantics across the generation
// pipeline and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a DocGen error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// External system integration errors
	CategoryQuota   ErrorCategory = "quota"
	CategoryNetwork ErrorCategory = "network"
	CategoryGit     ErrorCategory = "git"

	// Generation and processing errors
	CategoryPlan       ErrorCategory = "plan"
	CategoryRender     ErrorCategory = "render"
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
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// DocGenError is a structured error with category, retryability, and context
type DocGenError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Exhausted bool          `json:"exhausted,omitempty"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for DocGenError
type ContextFields map[string]any

// Error implements the error interface
func (e *DocGenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *DocGenError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DocGenError) WithContext(key string, value any) *DocGenError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new DocGenError
func New(category ErrorCategory, severity ErrorSeverity, message string) *DocGenError {
	return &DocGenError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new DocGenError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocGenError {
	return &DocGenError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// Retryable creates a new retryable DocGenError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *DocGenError {
	return &DocGenError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// WrapRetryable creates a new retryable DocGenError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocGenError {
	return &DocGenError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if dge, ok := err.(*DocGenError); ok {
		return dge.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if dge, ok := err.(*DocGenError); ok {
		return dge.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity
func IsFatal(err error) bool {
	if dge, ok := err.(*DocGenError); ok {
		return dge.Severity == SeverityFatal
	}
	return false
}

// IsExhausted checks if an error marks exhausted retries
func IsExhausted(err error) bool {
	if dge, ok := err.(*DocGenError); ok {
		return dge.Exhausted
	}
	return false
}
