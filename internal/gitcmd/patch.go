package gitcmd

import (
	"context"
	"strconv"
)

// FormatPatch builds the single-commit patch spec.md §4.6 step 4 applies:
// `git log -p --reverse -m --stat --binary -1 --color=never --format=%n <hash>`
// scoped by paths.
func (d *Driver) FormatPatch(ctx context.Context, dir, hash string, paths []string) (string, error) {
	args := []string{"log", "-p", "--reverse", "-m", "--stat", "--binary", "-1", "--color=never", "--format=%n", hash}
	args = appendPathArgs(args, paths)
	return d.run(ctx, dir, args...)
}

// DiffStat builds the squash-mode range diff:
// `git diff --stat --binary --color=never <start>..<end>` scoped by paths.
func (d *Driver) DiffStat(ctx context.Context, dir, start, end string, paths []string) (string, error) {
	args := []string{"diff", "--stat", "--binary", "--color=never", start + ".." + end}
	args = appendPathArgs(args, paths)
	return d.run(ctx, dir, args...)
}

// ApplyOptions configures `git apply -3`.
type ApplyOptions struct {
	// Depth is the -p<N> strip count, derived from the source subdir's path
	// segment count (1 at repository root).
	Depth int
	// Directory is passed as --directory when the target subdir is not root.
	Directory string
}

// Apply feeds patch on stdin to `git apply -3 --ignore-whitespace -p<N>
// [--directory <dir>]`. A merge/reject failure is returned unwrapped so
// callers (the patch applier's conflict shim) can detect and swallow it.
func (d *Driver) Apply(ctx context.Context, dir string, patch []byte, opts ApplyOptions) error {
	depth := opts.Depth
	if depth <= 0 {
		depth = 1
	}
	args := []string{"apply", "-3", "--ignore-whitespace", "-p" + strconv.Itoa(depth)}
	if opts.Directory != "" {
		args = append(args, "--directory", opts.Directory)
	}
	_, err := d.runWithStdin(ctx, dir, patch, args...)
	return err
}

// DiffTreeNameStatus returns the changed-file set with per-file status
// letters between two trees: `git diff-tree --name-status -r <a> <b>`
// scoped by paths.
func (d *Driver) DiffTreeNameStatus(ctx context.Context, dir, a, b string, paths []string) (string, error) {
	args := []string{"diff-tree", "--name-status", "-r", a, b}
	args = appendPathArgs(args, paths)
	return d.run(ctx, dir, args...)
}

// DiffTreeNameOnly returns the touched paths of a single commit relative to
// its first parent: `git diff-tree --no-commit-id --name-only -r <hash>`.
func (d *Driver) DiffTreeNameOnly(ctx context.Context, dir, hash string) (string, error) {
	return d.run(ctx, dir, "diff-tree", "--no-commit-id", "--name-only", "-r", hash)
}

// AddUpdated stages only tracked-file changes (`git add -u`), never `-A`.
func (d *Driver) AddUpdated(ctx context.Context, dir string) error {
	_, err := d.run(ctx, dir, "add", "-u")
	return err
}

// AddPaths stages specific paths (`git add <paths>`).
func (d *Driver) AddPaths(ctx context.Context, dir string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add"}, paths...)
	_, err := d.run(ctx, dir, args...)
	return err
}
