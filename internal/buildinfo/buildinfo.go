// Package buildinfo stamps hook runs with the source revision of the build root.
package buildinfo

import (
	"log/slog"

	git "github.com/go-git/go-git/v5"
)

// Stamp identifies the source revision a hook run operated on. The zero
// value means the build root is not inside a git repository.
type Stamp struct {
	Commit string `json:"commit,omitempty"`
	Dirty  bool   `json:"dirty,omitempty"`
}

// Describe resolves the git HEAD commit and worktree cleanliness for the
// given directory. Failures degrade to an empty stamp; builds outside a
// repository are a supported case, not an error.
func Describe(dir string) Stamp {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("Build root is not a git repository", "dir", dir, "error", err)
		return Stamp{}
	}

	head, err := repo.Head()
	if err != nil {
		slog.Debug("Failed to resolve HEAD", "dir", dir, "error", err)
		return Stamp{}
	}

	stamp := Stamp{Commit: head.Hash().String()}

	wt, err := repo.Worktree()
	if err != nil {
		slog.Debug("Failed to open worktree", "dir", dir, "error", err)
		return stamp
	}
	status, err := wt.Status()
	if err != nil {
		slog.Debug("Failed to compute worktree status", "dir", dir, "error", err)
		return stamp
	}
	stamp.Dirty = !status.IsClean()

	return stamp
}
