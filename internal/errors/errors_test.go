package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestHookError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HookError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestHookError_WithRemediation(t *testing.T) {
	err := Fatal(CategoryArtifact, "compiler unavailable and no fallback artifact present").
		WithRemediation("Please install Cython: pip install cython")

	if err.Remediation == "" {
		t.Fatal("Remediation should not be empty")
	}
	if got := GetRemediation(err); got != "Please install Cython: pip install cython" {
		t.Errorf("GetRemediation() = %q", got)
	}
	if GetRemediation(fmt.Errorf("plain")) != "" {
		t.Error("plain errors should carry no remediation")
	}
}

func TestHookError_WithContext(t *testing.T) {
	err := New(CategoryCompiler, SeverityWarning, "tool exited nonzero").
		WithContext("tool", "cython").
		WithContext("step", "core")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}
	if err.Context["tool"] != "cython" {
		t.Errorf("Context[tool] = %v, want cython", err.Context["tool"])
	}
	if err.Context["step"] != "core" {
		t.Errorf("Context[step] = %v, want core", err.Context["step"])
	}
}

func TestIsCategory(t *testing.T) {
	configErr := New(CategoryConfig, SeverityFatal, "config error")
	compilerErr := New(CategoryCompiler, SeverityWarning, "compiler error")
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"config error matches config category", configErr, CategoryConfig, true},
		{"config error doesn't match compiler category", configErr, CategoryCompiler, false},
		{"compiler error matches compiler category", compilerErr, CategoryCompiler, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsCategory(test.err, test.category); got != test.expected {
				t.Errorf("IsCategory() = %v, want %v", got, test.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(Fatal(CategoryArtifact, "missing artifact")) {
		t.Error("Fatal() error should be fatal")
	}
	if IsFatal(ValidationError("bad input")) {
		t.Error("validation errors are not fatal")
	}
	if IsFatal(fmt.Errorf("plain")) {
		t.Error("plain errors are not fatal")
	}
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil error", nil, 0},
		{"validation", ValidationError("bad flag"), 2},
		{"config", New(CategoryConfig, SeverityFatal, "no config"), 7},
		{"artifact", Fatal(CategoryArtifact, "missing artifact"), 11},
		{"compiler", New(CategoryCompiler, SeverityError, "tool failed"), 11},
		{"internal", New(CategoryInternal, SeverityError, "bug"), 10},
		{"plain error", fmt.Errorf("plain"), 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := adapter.ExitCodeFor(test.err); got != test.code {
				t.Errorf("ExitCodeFor() = %d, want %d", got, test.code)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatIncludesRemediation(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)
	err := Fatal(CategoryArtifact, "compiler unavailable and no fallback artifact present").
		WithRemediation("install the missing tool and re-run the build")

	msg := adapter.FormatError(err)
	if !strings.Contains(msg, "install the missing tool") {
		t.Errorf("formatted message should include remediation, got %q", msg)
	}
}
