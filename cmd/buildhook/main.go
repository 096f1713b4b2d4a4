package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/buildhook/internal/config"
	herrors "git.home.luguber.info/inful/buildhook/internal/errors"
	"git.home.luguber.info/inful/buildhook/internal/events"
	"git.home.luguber.info/inful/buildhook/internal/history"
	"git.home.luguber.info/inful/buildhook/internal/hook"
	"github.com/alecthomas/kong"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"buildhook.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Run struct {
		BuildRoot  string   `short:"r" help:"Build root directory" default:"."`
		VersionTag string   `help:"Package version being built (passed through by the host build system)"`
		BuildData  []string `help:"Host build data entries as key=value (annotated with step outcomes)"`
	} `cmd:"" help:"Run all compile steps once before packaging"`

	Check struct {
		BuildRoot string `short:"r" help:"Build root directory" default:"."`
	} `cmd:"" help:"Report tool availability and fallback artifacts without compiling"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Watch struct {
		BuildRoot string `short:"r" help:"Build root directory" default:"."`
	} `cmd:"" help:"Watch input files and recompile on change"`

	History struct {
		Limit int `short:"n" help:"Number of records to show" default:"20"`
	} `cmd:"" help:"Show recent step results from the history store"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	adapter := herrors.NewCLIErrorAdapter(CLI.Verbose, logger)

	// Execute command
	switch ctx.Command() {
	case "run":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			adapter.HandleError(herrors.Wrap(err, herrors.CategoryConfig, herrors.SeverityFatal, "failed to load configuration"))
		}
		adapter.HandleError(runRun(cfg, CLI.Run.BuildRoot, CLI.Run.VersionTag, CLI.Run.BuildData))
	case "check":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			adapter.HandleError(herrors.Wrap(err, herrors.CategoryConfig, herrors.SeverityFatal, "failed to load configuration"))
		}
		adapter.HandleError(runCheck(cfg, CLI.Check.BuildRoot))
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			adapter.HandleError(herrors.Wrap(err, herrors.CategoryConfig, herrors.SeverityError, "init failed"))
		}
		slog.Info("Configuration initialized", "path", CLI.Config)
	case "watch":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			adapter.HandleError(herrors.Wrap(err, herrors.CategoryConfig, herrors.SeverityFatal, "failed to load configuration"))
		}
		adapter.HandleError(runWatch(cfg, CLI.Watch.BuildRoot))
	case "history":
		cfg, err := config.Load(CLI.Config)
		if err != nil {
			adapter.HandleError(herrors.Wrap(err, herrors.CategoryConfig, herrors.SeverityFatal, "failed to load configuration"))
		}
		adapter.HandleError(runHistory(cfg, CLI.History.Limit))
	}
}

func runRun(cfg *config.Config, buildRoot, versionTag string, buildDataKVs []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, cleanup, err := buildRunner(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	buildData := parseBuildData(buildDataKVs)

	if err := hook.Initialize(ctx, versionTag, buildData, runner, buildRoot); err != nil {
		return err
	}

	if len(buildData) > 0 {
		slog.Debug("Build data after hook", "build_data", buildData)
	}
	return nil
}

// buildRunner wires the runner with the optional history store and event
// publisher. The returned cleanup closes both.
func buildRunner(cfg *config.Config) (*hook.Runner, func(), error) {
	steps := make([]*hook.Step, 0, len(cfg.Steps))
	for _, sc := range cfg.Steps {
		steps = append(steps, hook.NewStep(sc))
	}
	runner := hook.NewRunner(steps)

	var cleanups []func()
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}

	if cfg.History.Path != "" {
		store, err := history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, cleanup, herrors.Wrap(err, herrors.CategoryRuntime, herrors.SeverityError, "failed to open history store")
		}
		cleanups = append(cleanups, func() {
			if err := store.Close(); err != nil {
				slog.Warn("Failed to close history store", "error", err)
			}
		})
		runner.WithHistory(store)
	}

	// Event publishing is best effort: an unreachable broker must not block
	// the build.
	if cfg.Events != nil {
		pub, err := events.NewNATSPublisher(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			slog.Warn("Event publishing disabled", "error", err)
		} else {
			cleanups = append(cleanups, pub.Close)
			runner.WithPublisher(pub)
		}
	}

	return runner, cleanup, nil
}

// parseBuildData converts key=value CLI entries into the host build data map.
func parseBuildData(kvs []string) hook.BuildData {
	if len(kvs) == 0 {
		return nil
	}
	data := make(hook.BuildData, len(kvs))
	for _, kv := range kvs {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			slog.Warn("Ignoring malformed build data entry", "entry", kv)
			continue
		}
		data[parts[0]] = parts[1]
	}
	return data
}

func runHistory(cfg *config.Config, limit int) error {
	if cfg.History.Path == "" {
		return herrors.New(herrors.CategoryConfig, herrors.SeverityError, "history is not configured (set history.path)")
	}

	store, err := history.NewStore(cfg.History.Path)
	if err != nil {
		return herrors.Wrap(err, herrors.CategoryRuntime, herrors.SeverityError, "failed to open history store")
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), limit)
	if err != nil {
		return herrors.Wrap(err, herrors.CategoryRuntime, herrors.SeverityError, "failed to query history")
	}

	if len(records) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, rec := range records {
		commit := rec.Commit
		if commit == "" {
			commit = "-"
		} else if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Printf("%s  %-10s %-10s %-9s %8s  %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Step,
			rec.Tool,
			rec.Outcome,
			rec.Duration,
			commit)
	}
	return nil
}
