package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRequiresRebuildCallback(t *testing.T) {
	if _, err := New(t.TempDir(), []string{"bt/core.py"}, time.Second, 0, nil); err == nil {
		t.Error("expected error for nil rebuild callback")
	}
}

func TestWatcherTriggersRebuildOnWrite(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	input := filepath.Join(root, "bt", "core.py")
	if err := os.WriteFile(input, []byte("def f(): pass\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rebuilt := make(chan struct{}, 1)
	w, err := New(root, []string{"bt/core.py"}, 20*time.Millisecond, 0, func(context.Context) {
		select {
		case rebuilt <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop(context.Background())

	// Give the watch loop a moment to come up before writing.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(input, []byte("def f(): return 1\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild not triggered after input write")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "bt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	input := filepath.Join(root, "bt", "core.py")
	if err := os.WriteFile(input, []byte("def f(): pass\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	rebuilt := make(chan struct{}, 1)
	w, err := New(root, []string{"bt/core.py"}, 20*time.Millisecond, 0, func(context.Context) {
		select {
		case rebuilt <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer w.Stop(context.Background())

	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "bt", "unrelated.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-rebuilt:
		t.Fatal("rebuild triggered for an unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestTriggerRebuildCoalesces(t *testing.T) {
	w := &Watcher{rebuildChan: make(chan struct{}, 1)}

	w.triggerRebuild()
	w.triggerRebuild()
	w.triggerRebuild()

	if len(w.rebuildChan) != 1 {
		t.Errorf("pending rebuilds = %d, want 1", len(w.rebuildChan))
	}
}
