package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/logscan"
)

const auxWorktreeRelPath = ".git/gitsync-worktree"

// overwrite implements §4.6.7: lazily create an auxiliary detached
// worktree of source, check out the changed paths there, then move the
// updated files into the target tree and delete the removed ones.
func (a *Applier) overwrite(ctx context.Context, entry logscan.Entry) error {
	worktreeDir := filepath.Join(a.Deps.SourceDir, auxWorktreeRelPath)
	if err := ensureWorktree(ctx, a.Deps.SourceDriver, a.Deps.SourceDir, worktreeDir); err != nil {
		return err
	}

	deletions, updates, err := a.changedFiles(ctx, entry)
	if err != nil {
		return err
	}

	var targetPaths []string
	for _, f := range deletions {
		targetPath, ok := a.rejoinTargetPath(f)
		if !ok {
			continue
		}
		if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove deleted file %s: %w", targetPath, err)
		}
		targetPaths = append(targetPaths, targetPath)
	}

	if len(updates) > 0 {
		if err := a.Deps.SourceDriver.CheckoutPaths(ctx, worktreeDir, entry.Hash, updates); err != nil {
			return fmt.Errorf("checkout updated paths into auxiliary worktree: %w", err)
		}
		for _, f := range updates {
			targetPath, ok := a.rejoinTargetPath(f)
			if !ok {
				continue
			}
			auxPath := filepath.Join(worktreeDir, f)
			if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", targetPath, err)
			}
			if err := os.Rename(auxPath, targetPath); err != nil {
				return fmt.Errorf("move %s into target tree: %w", f, err)
			}
			targetPaths = append(targetPaths, targetPath)
		}
	}

	if len(targetPaths) > 0 {
		if err := a.Deps.TargetDriver.AddPaths(ctx, a.Deps.TargetDir, targetPaths); err != nil {
			return err
		}
	}
	return nil
}

// changedFiles returns the deleted and updated paths (relative to the
// source repository root) for entry, unioned across every parent per
// §4.6.7's per-parent diff-tree.
func (a *Applier) changedFiles(ctx context.Context, entry logscan.Entry) (deletions, updates []string, err error) {
	seen := make(map[string]bool)
	for _, parent := range entry.Parents() {
		out, err := a.Deps.SourceDriver.DiffTreeNameStatus(ctx, a.Deps.SourceDir, parent, entry.Hash, a.Deps.SourcePaths)
		if err != nil {
			return nil, nil, err
		}
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			status, path := fields[0], fields[len(fields)-1]
			if seen[path] {
				continue
			}
			seen[path] = true
			if strings.HasPrefix(status, "D") {
				deletions = append(deletions, path)
			} else {
				updates = append(updates, path)
			}
		}
	}
	return deletions, updates, nil
}

// rejoinTargetPath strips the source subdir prefix from a repo-relative
// path and rejoins the remainder against the target subdir and target
// repo root. Paths outside the configured source subdir are rejected,
// enforcing path isolation (P3).
func (a *Applier) rejoinTargetPath(repoRelPath string) (string, bool) {
	rel := repoRelPath
	if a.Deps.SourceSubdir != "" && a.Deps.SourceSubdir != "./" {
		prefix := strings.TrimSuffix(a.Deps.SourceSubdir, "/")
		if !strings.HasPrefix(rel, prefix+"/") && rel != prefix {
			return "", false
		}
		rel = strings.TrimPrefix(strings.TrimPrefix(rel, prefix), "/")
	}
	targetSubdir := a.Deps.TargetSubdir
	if targetSubdir == "" || targetSubdir == "./" {
		return filepath.Join(a.Deps.TargetDir, rel), true
	}
	return filepath.Join(a.Deps.TargetDir, strings.TrimSuffix(targetSubdir, "/"), rel), true
}

// TeardownAuxWorktree removes the auxiliary worktree this applier may have
// created during the run, if any. Safe to call even when no overwrite
// ever ran.
func (a *Applier) TeardownAuxWorktree(ctx context.Context) error {
	worktreeDir := filepath.Join(a.Deps.SourceDir, auxWorktreeRelPath)
	return teardownWorktree(ctx, a.Deps.SourceDriver, a.Deps.SourceDir, worktreeDir)
}

func ensureWorktree(ctx context.Context, driver *gitcmd.Driver, repoDir, worktreeDir string) error {
	if _, err := os.Stat(worktreeDir); err == nil {
		return nil
	}
	return driver.WorktreeAdd(ctx, repoDir, worktreeDir)
}

// teardownWorktree removes the auxiliary worktree created during a run, if
// any was created.
func teardownWorktree(ctx context.Context, driver *gitcmd.Driver, repoDir, worktreeDir string) error {
	if _, err := os.Stat(worktreeDir); err != nil {
		return nil
	}
	return driver.WorktreeRemove(ctx, repoDir, worktreeDir)
}
