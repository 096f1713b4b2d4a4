package hook

import (
	"context"
	"log/slog"
)

// BuildData is the host build system's mutable build metadata. The hook may
// annotate it with step outcomes; the host is free to ignore the annotation.
type BuildData = map[string]any

// Initialize is the lifecycle entry point invoked by the host build system
// before packaging. The version argument identifies the package version
// being built and is currently unused beyond logging; buildData, when
// non-nil, is annotated with the per-step outcomes under "buildhook".
func Initialize(ctx context.Context, version string, buildData BuildData, r *Runner, buildRoot string) error {
	slog.Debug("Hook initialize", "version", version, "build_root", buildRoot)

	report, err := r.Run(ctx, buildRoot)

	if buildData != nil && report != nil {
		buildData["buildhook"] = report.Outcomes()
	}

	return err
}
