// Package compiler abstracts the external source-to-source compiler tool
// invoked by compile steps.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// Sentinel errors distinguishing the two tool failure modes. A missing
// executable and a nonzero exit are both recoverable for the caller, but
// they are reported differently.
var (
	// ErrToolNotFound indicates the compiler executable could not be located.
	ErrToolNotFound = errors.New("compiler tool not found")

	// ErrToolFailed indicates the compiler ran but exited with a nonzero status.
	ErrToolFailed = errors.New("compiler invocation failed")
)

// Invocation describes a single compiler run: tool, extra arguments, and the
// input/output pair, resolved relative to Dir (the build root).
type Invocation struct {
	Tool       string
	Args       []string // extra arguments placed before the input path
	Input      string   // source path, relative to Dir
	Output     string   // destination path, relative to Dir
	OutputFlag string   // flag requesting output redirection, e.g. "-o"
	Dir        string   // working directory for the subprocess
}

// argv builds the full argument vector: extra args, input, output flag, output.
func (inv Invocation) argv() []string {
	args := make([]string, 0, len(inv.Args)+3)
	args = append(args, inv.Args...)
	args = append(args, inv.Input)
	if inv.OutputFlag != "" {
		args = append(args, inv.OutputFlag)
	}
	args = append(args, inv.Output)
	return args
}

// Compiler abstracts how a compile step produces its output artifact. This
// allows swapping the external binary (BinaryCompiler) with alternative
// strategies (e.g., a fake for tests) without changing step orchestration.
type Compiler interface {
	Compile(ctx context.Context, inv Invocation) error
}

// BinaryCompiler invokes the configured tool binary present on PATH.
type BinaryCompiler struct{}

func (b *BinaryCompiler) Compile(ctx context.Context, inv Invocation) error {
	if _, err := exec.LookPath(inv.Tool); err != nil {
		return fmt.Errorf("%w: %w", ErrToolNotFound, err)
	}

	// Check build root exists before invoking the tool
	if stat, err := os.Stat(inv.Dir); err != nil {
		return fmt.Errorf("build root not found: %w", err)
	} else if !stat.IsDir() {
		return fmt.Errorf("build root is not a directory: %s", inv.Dir)
	}

	cmd := exec.CommandContext(ctx, inv.Tool, inv.argv()...)
	cmd.Dir = inv.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("BinaryCompiler invoking tool",
		"tool", inv.Tool,
		"input", inv.Input,
		"output", inv.Output,
		"dir", inv.Dir)

	err := cmd.Run()

	// Always log tool output when non-empty to diagnose issues
	outStr := stdout.String()
	errStr := stderr.String()
	if outStr != "" {
		slog.Debug("compiler stdout", "tool", inv.Tool, "output", outStr)
	}
	if errStr != "" {
		slog.Warn("compiler stderr", "tool", inv.Tool, "error_output", errStr)
	}

	if err != nil {
		// Include both streams in the error; tools write errors to either
		output := errStr
		if output == "" {
			output = outStr
		} else if outStr != "" {
			output = outStr + "\n" + errStr
		}

		if output != "" {
			return fmt.Errorf("%w: %w: %s", ErrToolFailed, err, output)
		}
		return fmt.Errorf("%w: %w", ErrToolFailed, err)
	}

	return nil
}
