package gitcmd

import "context"

// EmptyTreeHash is git's well-known empty-tree object id, used to model the
// absence of a parent commit.
const EmptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// IsClean reports whether `git status --short` produced no output.
func (d *Driver) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := d.run(ctx, dir, "status", "--short")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// RevParse resolves a single ref to its commit hash.
func (d *Driver) RevParse(ctx context.Context, dir, ref string) (string, error) {
	return d.run(ctx, dir, "rev-parse", ref)
}

// RevParseQuiet resolves a ref, returning ("", nil) instead of an error when
// the ref does not exist.
func (d *Driver) RevParseQuiet(ctx context.Context, dir, ref string) (string, error) {
	out, err := d.runMuted(ctx, dir, "rev-parse", "--verify", "--quiet", ref)
	if err != nil {
		return "", nil
	}
	return out, nil
}

// CurrentBranch resolves the target's checked-out branch name
// (`git rev-parse --abbrev-ref HEAD`), used by the orchestrator to record
// and later restore `origBranch`.
func (d *Driver) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return d.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
}

// MergeBase returns the best common ancestor of a and b.
func (d *Driver) MergeBase(ctx context.Context, dir, a, b string) (string, error) {
	return d.run(ctx, dir, "merge-base", a, b)
}

// BranchContains returns the branches (no leading markers, no color) that
// contain the given commit.
func (d *Driver) BranchContains(ctx context.Context, dir, hash string) ([]string, error) {
	out, err := d.run(ctx, dir, "branch", "--no-color", "--contains", hash)
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}
