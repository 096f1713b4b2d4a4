package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/buildhook/internal/config"
	herrors "git.home.luguber.info/inful/buildhook/internal/errors"
)

func TestParseBuildData(t *testing.T) {
	data := parseBuildData([]string{"artifact=wheel", "tag=1.2.3", "malformed"})
	if len(data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(data))
	}
	if data["artifact"] != "wheel" || data["tag"] != "1.2.3" {
		t.Errorf("unexpected build data: %+v", data)
	}

	if parseBuildData(nil) != nil {
		t.Error("empty input should produce nil build data")
	}
}

func TestRunCheck_FailsWhenNothingAvailable(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Steps: []config.Step{{
		Name:        "core",
		Tool:        filepath.Join(root, "no-such-tool"),
		Input:       "bt/core.py",
		Output:      "bt/core.c",
		Remediation: "Please install Cython: pip install cython",
	}}}

	err := runCheck(cfg, root)
	if err == nil {
		t.Fatal("expected error when tool and fallback are both missing")
	}
	var herr *herrors.HookError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HookError, got %T", err)
	}
	if herr.Remediation == "" {
		t.Error("check failure should carry the remediation message")
	}
}

func TestRunCheck_PassesWithFallbackArtifact(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "bt", "core.c"), []byte("/* c */"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := &config.Config{Steps: []config.Step{{
		Name:   "core",
		Tool:   filepath.Join(root, "no-such-tool"),
		Input:  "bt/core.py",
		Output: "bt/core.c",
	}}}

	if err := runCheck(cfg, root); err != nil {
		t.Errorf("runCheck() error: %v", err)
	}
}

func TestRunCheck_OptionalStepDoesNotFail(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{Steps: []config.Step{{
		Name:     "opt",
		Tool:     filepath.Join(root, "no-such-tool"),
		Input:    "bt/core.py",
		Output:   "bt/core.c",
		Optional: true,
	}}}

	if err := runCheck(cfg, root); err != nil {
		t.Errorf("optional step must not fail check: %v", err)
	}
}
