package gitcmd

import "context"

// WorktreeAdd runs `git worktree add -f <dir> --no-checkout --detach`, the
// scratch worktree the patch applier's overwrite fallback and squash mode
// check out source paths into without disturbing the caller's current
// checkout.
func (d *Driver) WorktreeAdd(ctx context.Context, repoDir, worktreeDir string) error {
	_, err := d.run(ctx, repoDir, "worktree", "add", "-f", worktreeDir, "--no-checkout", "--detach")
	return err
}

// WorktreeRemove runs `git worktree remove -f <dir>` to tear down a scratch
// worktree created by WorktreeAdd.
func (d *Driver) WorktreeRemove(ctx context.Context, repoDir, worktreeDir string) error {
	_, err := d.run(ctx, repoDir, "worktree", "remove", "-f", worktreeDir)
	return err
}
