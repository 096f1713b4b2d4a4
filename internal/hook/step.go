// Package hook implements the pre-packaging compile hook: steps that run an
// external compiler over a source file and fall back to a pre-existing
// generated artifact when the tool is unavailable.
package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/buildhook/internal/artifact"
	"git.home.luguber.info/inful/buildhook/internal/compiler"
	"git.home.luguber.info/inful/buildhook/internal/config"
	herrors "git.home.luguber.info/inful/buildhook/internal/errors"
)

// Outcome classifies how a step satisfied (or failed) its artifact invariant.
type Outcome string

const (
	// OutcomeGenerated means the compiler ran and produced a fresh artifact.
	OutcomeGenerated Outcome = "generated"
	// OutcomeReused means the compiler was unavailable but a pre-existing
	// artifact satisfied the step.
	OutcomeReused Outcome = "reused"
	// OutcomeFailed means neither the compiler nor a fallback artifact was
	// available.
	OutcomeFailed Outcome = "failed"
)

// Result is the outcome of a single step execution.
type Result struct {
	Step        string
	Tool        string
	Outcome     Outcome
	Duration    time.Duration
	Fingerprint string
	Err         error
}

// Step is one compile step. Attempting the compiler and checking the fallback
// artifact are two explicit phases so each failure mode tests in isolation.
type Step struct {
	Name        string
	Tool        string
	Args        []string
	Input       string
	Output      string
	OutputFlag  string
	Remediation string
	Optional    bool

	compiler compiler.Compiler
	logger   *slog.Logger
}

// NewStep builds a Step from its configuration, using the real binary compiler.
func NewStep(cfg config.Step) *Step {
	return &Step{
		Name:        cfg.Name,
		Tool:        cfg.Tool,
		Args:        cfg.Args,
		Input:       cfg.Input,
		Output:      cfg.Output,
		OutputFlag:  cfg.OutputFlag,
		Remediation: cfg.Remediation,
		Optional:    cfg.Optional,
		compiler:    &compiler.BinaryCompiler{},
		logger:      slog.Default(),
	}
}

// WithCompiler injects a custom compiler (tests, alternative strategies).
func (s *Step) WithCompiler(c compiler.Compiler) *Step {
	if c != nil {
		s.compiler = c
	}
	return s
}

// WithLogger sets a custom logger.
func (s *Step) WithLogger(logger *slog.Logger) *Step {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Step) invocation(buildRoot string) compiler.Invocation {
	return compiler.Invocation{
		Tool:       s.Tool,
		Args:       s.Args,
		Input:      s.Input,
		Output:     s.Output,
		OutputFlag: s.OutputFlag,
		Dir:        buildRoot,
	}
}

// Run executes the step against the given build root. On success the output
// artifact exists on disk, freshly generated or reused from a prior run.
func (s *Step) Run(ctx context.Context, buildRoot string) (Result, error) {
	start := time.Now()
	res := Result{Step: s.Name, Tool: s.Tool}

	s.logger.Info("Compiling",
		"step", s.Name,
		"tool", s.Tool,
		"input", s.Input,
		"output", s.Output)

	err := s.compiler.Compile(ctx, s.invocation(buildRoot))
	if err == nil {
		res.Outcome = OutcomeGenerated
		res.Duration = time.Since(start)
		s.fingerprint(buildRoot, &res)
		s.logger.Info("Compilation successful", "step", s.Name, "output", s.Output)
		return res, nil
	}

	// Recoverable condition: log the reason and fall back to a pre-existing
	// artifact. A missing executable and a nonzero exit are reported apart.
	if errors.Is(err, compiler.ErrToolNotFound) {
		s.logger.Warn("Compiler tool not found, checking for pre-compiled artifact",
			"step", s.Name, "tool", s.Tool, "error", err)
	} else {
		s.logger.Warn("Compilation failed, checking for pre-compiled artifact",
			"step", s.Name, "tool", s.Tool, "error", err)
	}

	exists, statErr := artifact.Exists(buildRoot, s.Output)
	if statErr != nil {
		res.Outcome = OutcomeFailed
		res.Duration = time.Since(start)
		herr := herrors.Wrap(statErr, herrors.CategoryFileSystem, herrors.SeverityFatal,
			fmt.Sprintf("failed to check fallback artifact %s", s.Output)).
			WithContext("step", s.Name)
		res.Err = herr
		return res, herr
	}

	if exists {
		if stale, serr := artifact.IsStale(buildRoot, s.Input, s.Output); serr == nil && stale {
			s.logger.Warn("Pre-compiled artifact is older than its source",
				"step", s.Name, "input", s.Input, "output", s.Output)
		}
		res.Outcome = OutcomeReused
		res.Duration = time.Since(start)
		s.fingerprint(buildRoot, &res)
		s.logger.Info("Using pre-compiled artifact", "step", s.Name, "output", s.Output)
		return res, nil
	}

	res.Outcome = OutcomeFailed
	res.Duration = time.Since(start)
	herr := herrors.Fatal(herrors.CategoryArtifact,
		fmt.Sprintf("compiler %q unavailable and no pre-compiled %s present", s.Tool, s.Output)).
		WithRemediation(s.Remediation).
		WithContext("step", s.Name)
	herr.Cause = err
	res.Err = herr
	return res, herr
}

func (s *Step) fingerprint(buildRoot string, res *Result) {
	fp, err := artifact.Fingerprint(buildRoot, s.Output)
	if err != nil {
		s.logger.Warn("Failed to fingerprint artifact", "step", s.Name, "output", s.Output, "error", err)
		return
	}
	res.Fingerprint = fp
}
