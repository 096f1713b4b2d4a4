package main

import (
	"fmt"
	"log/slog"
	"os/exec"

	"git.home.luguber.info/inful/buildhook/internal/artifact"
	"git.home.luguber.info/inful/buildhook/internal/config"
	herrors "git.home.luguber.info/inful/buildhook/internal/errors"
)

// runCheck reports, per step, whether the compiler tool is available and
// whether a fallback artifact exists. It fails with the same fatal kind as a
// real run would when a step has neither, but compiles nothing.
func runCheck(cfg *config.Config, buildRoot string) error {
	var firstErr error

	for _, step := range cfg.Steps {
		toolOK := true
		if _, err := exec.LookPath(step.Tool); err != nil {
			toolOK = false
		}

		fallbackOK, err := artifact.Exists(buildRoot, step.Output)
		if err != nil {
			return herrors.Wrap(err, herrors.CategoryFileSystem, herrors.SeverityError,
				fmt.Sprintf("failed to check fallback artifact for step %s", step.Name))
		}

		slog.Info("Step environment",
			"step", step.Name,
			"tool", step.Tool,
			"tool_available", toolOK,
			"fallback_present", fallbackOK)

		if !toolOK && !fallbackOK && !step.Optional && firstErr == nil {
			firstErr = herrors.Fatal(herrors.CategoryArtifact,
				fmt.Sprintf("compiler %q unavailable and no pre-compiled %s present", step.Tool, step.Output)).
				WithRemediation(step.Remediation).
				WithContext("step", step.Name)
		}
	}

	if firstErr != nil {
		return firstErr
	}
	slog.Info("All steps can be satisfied", "steps", len(cfg.Steps))
	return nil
}
