package compiler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// FakeCompiler is a Compiler for tests. It records invocations, optionally
// writes the output file, and returns a fixed error.
type FakeCompiler struct {
	mu sync.Mutex

	// Err is returned from every Compile call.
	Err error

	// Output, when non-nil, is written to the invocation's output path on
	// successful calls.
	Output []byte

	// Invocations records every Compile call in order.
	Invocations []Invocation
}

func (f *FakeCompiler) Compile(_ context.Context, inv Invocation) error {
	f.mu.Lock()
	f.Invocations = append(f.Invocations, inv)
	f.mu.Unlock()

	if f.Err != nil {
		return f.Err
	}
	if f.Output != nil {
		dest := filepath.Join(inv.Dir, inv.Output)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dest, f.Output, 0o644)
	}
	return nil
}

// CallCount returns the number of recorded invocations.
func (f *FakeCompiler) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Invocations)
}
