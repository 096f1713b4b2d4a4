package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buildhook.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
steps:
  - tool: cython
    input: bt/core.py
    output: bt/core.c
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(cfg.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(cfg.Steps))
	}

	step := cfg.Steps[0]
	if step.Name != "core.c" {
		t.Errorf("default name = %q, want core.c", step.Name)
	}
	if step.OutputFlag != "-o" {
		t.Errorf("default output flag = %q, want -o", step.OutputFlag)
	}
	if step.Remediation == "" {
		t.Error("default remediation should not be empty")
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("BUILDHOOK_TEST_TOOL", "cython")

	path := writeConfig(t, `
steps:
  - name: core
    tool: ${BUILDHOOK_TEST_TOOL}
    input: bt/core.py
    output: bt/core.c
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Steps[0].Tool != "cython" {
		t.Errorf("Tool = %q, want cython", cfg.Steps[0].Tool)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name: "valid",
			content: `
steps:
  - name: core
    tool: cython
    input: bt/core.py
    output: bt/core.c
`,
			wantErr: false,
		},
		{
			name:    "no steps",
			content: `steps: []`,
			wantErr: true,
		},
		{
			name: "missing tool",
			content: `
steps:
  - name: core
    input: bt/core.py
    output: bt/core.c
`,
			wantErr: true,
		},
		{
			name: "absolute input",
			content: `
steps:
  - name: core
    tool: cython
    input: /abs/core.py
    output: bt/core.c
`,
			wantErr: true,
		},
		{
			name: "duplicate names",
			content: `
steps:
  - name: core
    tool: cython
    input: bt/core.py
    output: bt/core.c
  - name: core
    tool: cython
    input: bt/other.py
    output: bt/other.c
`,
			wantErr: true,
		},
		{
			name: "events without url",
			content: `
steps:
  - name: core
    tool: cython
    input: bt/core.py
    output: bt/core.c
events:
  subject: buildhook.results
`,
			wantErr: true,
		},
		{
			name: "bad debounce",
			content: `
steps:
  - name: core
    tool: cython
    input: bt/core.py
    output: bt/core.c
watch:
  debounce: banana
`,
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, test.content))
			if (err != nil) != test.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, test.wantErr)
			}
		})
	}
}

func TestWatchConfigDurations(t *testing.T) {
	w := WatchConfig{}
	if w.DebounceDuration() != 2*time.Second {
		t.Errorf("default debounce = %v, want 2s", w.DebounceDuration())
	}
	if w.IntervalDuration() != 0 {
		t.Errorf("default interval = %v, want 0", w.IntervalDuration())
	}

	w = WatchConfig{Debounce: "500ms", Interval: "10m"}
	if w.DebounceDuration() != 500*time.Millisecond {
		t.Errorf("debounce = %v, want 500ms", w.DebounceDuration())
	}
	if w.IntervalDuration() != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", w.IntervalDuration())
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildhook.yaml")

	if err := Init(path, false); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	// Generated example must itself load cleanly.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("example config doesn't load: %v", err)
	}
	if len(cfg.Steps) != 1 || cfg.Steps[0].Tool != "cython" {
		t.Errorf("unexpected example config: %+v", cfg.Steps)
	}

	// Second Init without force must refuse.
	if err := Init(path, false); err == nil {
		t.Error("expected error when config exists and force is false")
	}
	if err := Init(path, true); err != nil {
		t.Errorf("Init(force) error: %v", err)
	}
}
