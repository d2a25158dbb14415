package squash

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

const auxWorktreeRelPath = ".git/gitsync-squash-worktree"

// overwriteRange replaces the target working tree's copy of every path
// touched between start and end with the source side's content at end,
// the same fallback policy the patch applier uses when a three-way apply
// fails, scoped to an arbitrary range rather than a single commit's
// parents.
func (s *Syncer) overwriteRange(ctx context.Context, start, end string) error {
	changed, err := s.Deps.SourceDriver.DiffTreeNameStatus(ctx, s.Deps.SourceDir, start, end, s.Deps.SourcePaths)
	if err != nil {
		return err
	}

	var deletions, updates []string
	for _, line := range strings.Split(changed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status, path := fields[0], fields[len(fields)-1]
		if strings.HasPrefix(status, "D") {
			deletions = append(deletions, path)
		} else {
			updates = append(updates, path)
		}
	}

	for _, rel := range deletions {
		target, ok := s.rejoinTargetPath(rel)
		if !ok {
			continue
		}
		_ = os.Remove(target)
	}

	if len(updates) == 0 {
		return nil
	}

	worktreeDir := filepath.Join(s.Deps.TargetDir, auxWorktreeRelPath)
	if err := s.Deps.SourceDriver.WorktreeAdd(ctx, s.Deps.SourceDir, worktreeDir); err != nil {
		return err
	}
	defer func() { _ = s.Deps.SourceDriver.WorktreeRemove(ctx, s.Deps.SourceDir, worktreeDir) }()

	if err := s.Deps.SourceDriver.CheckoutPaths(ctx, worktreeDir, end, updates); err != nil {
		return err
	}

	var rejoined []string
	for _, rel := range updates {
		target, ok := s.rejoinTargetPath(rel)
		if !ok {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.Rename(filepath.Join(worktreeDir, rel), target); err != nil {
			return err
		}
		rejoined = append(rejoined, target)
	}

	return s.Deps.TargetDriver.AddPaths(ctx, s.Deps.TargetDir, rejoined)
}

// rejoinTargetPath strips the source subdir prefix from a repo-relative
// path and rejoins it under the target subdir, rejecting anything outside
// the source subdir.
func (s *Syncer) rejoinTargetPath(repoRelPath string) (string, bool) {
	rel, ok := stripSubdir(repoRelPath, s.Deps.SourceSubdir)
	if !ok {
		return "", false
	}
	return filepath.Join(s.Deps.TargetDir, s.Deps.TargetSubdir, rel), true
}

func stripSubdir(repoRelPath, subdir string) (string, bool) {
	subdir = strings.TrimPrefix(subdir, "./")
	if subdir == "" {
		return repoRelPath, true
	}
	if !strings.HasSuffix(subdir, "/") {
		subdir += "/"
	}
	if !strings.HasPrefix(repoRelPath, subdir) {
		return "", false
	}
	return strings.TrimPrefix(repoRelPath, subdir), true
}
