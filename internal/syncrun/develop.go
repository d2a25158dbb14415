package syncrun

import (
	"context"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

// deleteDevelopBranches implements spec.md §4.11's "Develop branches"
// step: every source branch matching one of the configured globs is
// force-deleted on the target. Deleting the target's currently checked
// out branch is fatal before any deletion happens.
func deleteDevelopBranches(ctx context.Context, targetDriver *gitcmd.Driver, targetDir string, sourceBranches []string, globs []string, currentBranch string) error {
	if len(globs) == 0 {
		return nil
	}

	var toDelete []string
	for _, branch := range sourceBranches {
		matched, err := matchesAnyGlob(globs, branch)
		if err != nil {
			return err
		}
		if matched {
			toDelete = append(toDelete, branch)
		}
	}

	for _, branch := range toDelete {
		if branch == currentBranch {
			return &ErrDevelopBranchCheckedOut{Name: branch}
		}
	}

	for _, branch := range toDelete {
		if _, err := targetDriver.RevParseQuiet(ctx, targetDir, branch); err != nil {
			return err
		}
		if err := targetDriver.DeleteBranch(ctx, targetDir, branch); err != nil {
			return fmt.Errorf("delete develop branch %q: %w", branch, err)
		}
	}
	return nil
}

func matchesAnyGlob(globs []string, name string) (bool, error) {
	for _, g := range globs {
		ok, err := doublestar.Match(g, name)
		if err != nil {
			return false, fmt.Errorf("invalid develop-branches glob %q: %w", g, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// resetOriginRemote removes and re-adds the `origin` remote by URL, a
// deliberate reset of remote-tracking refs after develop-branch deletion.
// TODO pull back after sync or ignore remote log and branch on sync — the
// re-add is not atomic with the removal.
func resetOriginRemote(ctx context.Context, targetDriver *gitcmd.Driver, targetDir string) error {
	url, err := targetDriver.RemoteURL(ctx, targetDir, "origin")
	if err != nil || url == "" {
		return nil
	}
	if err := targetDriver.RemoveRemote(ctx, targetDir, "origin"); err != nil {
		return err
	}
	return targetDriver.AddRemote(ctx, targetDir, "origin", url)
}
