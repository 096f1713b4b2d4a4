// Package watch re-runs compile steps when their input files change, with an
// optional fixed-interval rebuild for environments where file events are
// unreliable (network mounts, some containers).
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
)

// Watcher monitors step input files and triggers debounced rebuilds.
type Watcher struct {
	buildRoot    string
	inputs       map[string]bool // absolute input paths
	rebuild      func(context.Context)
	watcher      *fsnotify.Watcher
	scheduler    gocron.Scheduler
	mu           sync.RWMutex
	stopChan     chan struct{}
	rebuildChan  chan struct{}
	debounceTime time.Duration
	interval     time.Duration
}

// New creates a watcher over the given input files (relative to buildRoot).
// rebuild is invoked after changes settle for debounce; when interval is
// nonzero a periodic rebuild is scheduled as well.
func New(buildRoot string, inputs []string, debounce, interval time.Duration, rebuild func(context.Context)) (*Watcher, error) {
	if rebuild == nil {
		return nil, fmt.Errorf("rebuild callback is required")
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absRoot, err := filepath.Abs(buildRoot)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve build root: %w", err)
	}

	abs := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		abs[filepath.Join(absRoot, in)] = true
	}

	return &Watcher{
		buildRoot:    absRoot,
		inputs:       abs,
		rebuild:      rebuild,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		rebuildChan:  make(chan struct{}, 1),
		debounceTime: debounce,
		interval:     interval,
	}, nil
}

// Start begins monitoring input files and, if configured, the periodic rebuild.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Watch the directories containing the inputs (more reliable than
	// watching the files directly; editors replace files on save).
	dirs := make(map[string]bool)
	for input := range w.inputs {
		dirs[filepath.Dir(input)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	slog.Info("Starting input watcher",
		"build_root", w.buildRoot,
		"inputs", len(w.inputs),
		"debounce", w.debounceTime)

	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)

	if w.interval > 0 {
		if err := w.startScheduler(); err != nil {
			return err
		}
	}

	return nil
}

// startScheduler schedules the periodic rebuild job.
func (w *Watcher) startScheduler() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.triggerRebuild),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return fmt.Errorf("failed to create periodic rebuild job: %w", err)
	}
	w.scheduler = s
	s.Start()
	slog.Info("Periodic rebuild scheduled", "interval", w.interval)
	return nil
}

// Stop stops the watcher and the periodic scheduler.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	slog.Info("Stopping input watcher")

	close(w.stopChan)

	if w.scheduler != nil {
		if err := w.scheduler.Shutdown(); err != nil {
			slog.Error("Error shutting down scheduler", "error", err)
		}
	}
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			slog.Error("Error closing file watcher", "error", err)
		}
	}

	return nil
}

// watchLoop monitors file system events.
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Only process events for watched input files.
			if !w.inputs[filepath.Clean(event.Name)] {
				continue
			}

			switch {
			case event.Op&fsnotify.Write == fsnotify.Write:
				slog.Debug("Input write detected", "file", event.Name)
				w.triggerRebuild()
			case event.Op&fsnotify.Create == fsnotify.Create:
				slog.Debug("Input create detected", "file", event.Name)
				w.triggerRebuild()
			case event.Op&fsnotify.Rename == fsnotify.Rename:
				slog.Debug("Input rename detected", "file", event.Name)
				w.triggerRebuild()
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				slog.Warn("Input file removed", "file", event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Input watcher error", "error", err)
		}
	}
}

// rebuildLoop handles debounced rebuilds.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	var rebuildTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			return
		case <-w.stopChan:
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			return
		case <-w.rebuildChan:
			// Reset/start debounce timer
			if rebuildTimer != nil {
				rebuildTimer.Stop()
			}
			rebuildTimer = time.AfterFunc(w.debounceTime, func() {
				w.rebuild(ctx)
			})
		}
	}
}

// triggerRebuild triggers a debounced rebuild.
func (w *Watcher) triggerRebuild() {
	select {
	case w.rebuildChan <- struct{}{}:
		// Rebuild triggered
	default:
		// Rebuild already pending
	}
}
