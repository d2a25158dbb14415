package gitcmd

import (
	"context"
	"fmt"
)

// ListBranches runs `git branch -a` and returns the raw lines, one per ref,
// with git's two-character status prefix still attached. Callers that need
// the ref-inventory semantics (stripping the prefix, rewriting
// remotes/origin/X to origin/X and dropping it when a local X exists,
// rejecting conflict branches) live in package refs, not here.
func (d *Driver) ListBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := d.run(ctx, dir, "branch", "-a")
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// CreateOrResetBranch creates branch name at hash, or moves it there if it
// already exists (`git branch -f`).
func (d *Driver) CreateOrResetBranch(ctx context.Context, dir, name, hash string) error {
	_, err := d.run(ctx, dir, "branch", "-f", name, hash)
	return err
}

// CreateBranch creates a new branch at hash. Fails if it already exists.
func (d *Driver) CreateBranch(ctx context.Context, dir, name, hash string) error {
	_, err := d.run(ctx, dir, "branch", name, hash)
	return err
}

// DeleteBranch force-deletes a local branch (`git branch -D`).
func (d *Driver) DeleteBranch(ctx context.Context, dir, name string) error {
	_, err := d.run(ctx, dir, "branch", "-D", name)
	return err
}

// Checkout switches the working tree to ref.
func (d *Driver) Checkout(ctx context.Context, dir, ref string) error {
	_, err := d.run(ctx, dir, "checkout", ref)
	return err
}

// CheckoutNewBranch creates and switches to a new branch at ref
// (`git checkout -b`), or resets and switches when force is true
// (`git checkout -B`).
func (d *Driver) CheckoutNewBranch(ctx context.Context, dir, name, ref string, force bool) error {
	flag := "-b"
	if force {
		flag = "-B"
	}
	args := []string{"checkout", flag, name}
	if ref != "" {
		args = append(args, ref)
	}
	_, err := d.run(ctx, dir, args...)
	return err
}

// CheckoutOrphan starts a new parentless branch (`git checkout --orphan
// <name>`) followed by clearing the index, used by squash mode to seed the
// squash base branch in a target repository that has never seen it. The
// index-clear is muted: against a brand-new repository with no commits ever
// made, the index is already empty and `git rm` errors with "pathspec '.'
// did not match any files" rather than treating it as a no-op.
func (d *Driver) CheckoutOrphan(ctx context.Context, dir, name string) error {
	if _, err := d.run(ctx, dir, "checkout", "--orphan", name); err != nil {
		return err
	}
	_, err := d.runMuted(ctx, dir, "rm", "-rf", "--cached", ".")
	return err
}

// CheckoutTheirs resolves a half-merged worktree by taking the incoming
// side for every conflicted path (`git checkout --theirs .`).
func (d *Driver) CheckoutTheirs(ctx context.Context, dir string) error {
	_, err := d.run(ctx, dir, "checkout", "--theirs", ".")
	return err
}

// CheckoutPaths restores the given paths from ref into the working tree
// (`git checkout -f <ref> -- <paths>`), used against the auxiliary source
// worktree during a patch-apply-failure overwrite.
func (d *Driver) CheckoutPaths(ctx context.Context, dir, ref string, paths []string) error {
	args := append([]string{"checkout", "-f", ref, "--"}, paths...)
	_, err := d.run(ctx, dir, args...)
	return err
}

// ResetHard resets the working tree and index to ref ("" means HEAD).
func (d *Driver) ResetHard(ctx context.Context, dir, ref string) error {
	args := []string{"reset", "--hard"}
	if ref != "" {
		args = append(args, ref)
	}
	_, err := d.run(ctx, dir, args...)
	return err
}

// Merge runs a no-commit, no-fast-forward merge of the given refs, returning
// the error unwrapped so callers can swallow it per the spec's "merge may
// fail" contract.
func (d *Driver) Merge(ctx context.Context, dir string, refs []string) error {
	args := append([]string{"merge", "--no-ff", "--no-commit"}, refs...)
	_, err := d.run(ctx, dir, args...)
	return err
}

// RemoveRemote removes a configured remote.
func (d *Driver) RemoveRemote(ctx context.Context, dir, name string) error {
	_, err := d.run(ctx, dir, "remote", "rm", name)
	return err
}

// AddRemote adds a remote pointing at url.
func (d *Driver) AddRemote(ctx context.Context, dir, name, url string) error {
	_, err := d.run(ctx, dir, "remote", "add", name, url)
	return err
}

// RemoteURL returns the configured URL for a remote, or "" if unset.
func (d *Driver) RemoteURL(ctx context.Context, dir, name string) (string, error) {
	out, err := d.runMuted(ctx, dir, "config", "--get", fmt.Sprintf("remote.%s.url", name))
	if err != nil {
		return "", nil
	}
	return out, nil
}
