package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
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

	if he, ok := err.(*HookError); ok {
		return a.exitCodeFromHookError(he)
	}

	return 1
}

// exitCodeFromHookError maps HookError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromHookError(err *HookError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryCompiler, CategoryArtifact, CategoryFileSystem:
		return 11 // Compile step error
	case CategoryRuntime:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// FormatError formats an error for user-friendly display, appending the
// remediation message when one is attached.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}

	if he, ok := err.(*HookError); ok {
		return a.formatHookError(he)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatHookError formats a HookError for display.
func (a *CLIErrorAdapter) formatHookError(err *HookError) string {
	var base string
	if a.verbose {
		base = err.Error()
	} else {
		switch err.Category {
		case CategoryConfig, CategoryValidation:
			base = err.Message
		default:
			base = fmt.Sprintf("%s: %s", err.Category, err.Message)
		}
	}
	if err.Remediation != "" {
		return fmt.Sprintf("%s\n%s", base, err.Remediation)
	}
	return base
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.shouldLog(err) {
		a.logError(err)
	}

	fmt.Fprintf(os.Stderr, "%s\n", message)
	os.Exit(exitCode)
}

// shouldLog determines if an error should be logged.
func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}

	if he, ok := err.(*HookError); ok {
		return he.Category == CategoryInternal ||
			he.Category == CategoryRuntime ||
			he.Severity == SeverityFatal
	}

	return true
}

// logError logs an error with appropriate level and context.
func (a *CLIErrorAdapter) logError(err error) {
	if he, ok := err.(*HookError); ok {
		level := a.slogLevelFromSeverity(he.Severity)
		attrs := []slog.Attr{
			slog.String("category", string(he.Category)),
		}
		if he.Remediation != "" {
			attrs = append(attrs, slog.String("remediation", he.Remediation))
		}

		a.logger.LogAttrs(nil, level, he.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}

// slogLevelFromSeverity converts HookError severity to slog level.
func (a *CLIErrorAdapter) slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityWarning:
		return slog.LevelWarn
	case SeverityFatal:
		return slog.LevelError
	default:
		return slog.LevelError
	}
}
