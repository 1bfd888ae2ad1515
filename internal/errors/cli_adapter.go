package errors

import (
	"fmt"
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if dge, ok := err.(*DocGenError); ok {
		return a.exitCodeFromDocGen(dge)
	}

	return 1
}

// exitCodeFromDocGen maps DocGenError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromDocGen(err *DocGenError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryAuth:
		return 5 // Auth error
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryQuota, CategoryNetwork, CategoryGit:
		return 8 // External system error
	case CategoryPlan, CategoryRender, CategoryFileSystem:
		return 11 // Generation error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if dge, ok := err.(*DocGenError); ok {
		return a.formatDocGen(dge)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatDocGen formats a DocGenError for display.
func (a *CLIErrorAdapter) formatDocGen(err *DocGenError) string {
	if a.verbose {
		return err.Error()
	}

	switch err.Category {
	case CategoryAuth:
		return fmt.Sprintf("Authentication failed: %s\nCheck your API key configuration.", err.Message)
	case CategoryQuota:
		if err.Exhausted {
			return fmt.Sprintf("API quota persistently exceeded: %s\nLower throttle.max_per_minute or try again later.", err.Message)
		}
		return fmt.Sprintf("API quota error: %s", err.Message)
	case CategoryConfig:
		return fmt.Sprintf("Configuration error: %s", err.Message)
	default:
		return fmt.Sprintf("Error: %s", err.Message)
	}
}

// LogError logs an error with structured fields appropriate to its severity.
func (a *CLIErrorAdapter) LogError(err error) {
	if err == nil {
		return
	}
	dge, ok := err.(*DocGenError)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []any{
		"category", string(dge.Category),
		"retryable", dge.Retryable,
	}
	for k, v := range dge.Context {
		attrs = append(attrs, k, v)
	}
	if dge.Cause != nil {
		attrs = append(attrs, "cause", dge.Cause.Error())
	}
	switch dge.Severity {
	case SeverityWarning:
		a.logger.Warn(dge.Message, attrs...)
	case SeverityInfo:
		a.logger.Info(dge.Message, attrs...)
	default:
		a.logger.Error(dge.Message, attrs...)
	}
}
