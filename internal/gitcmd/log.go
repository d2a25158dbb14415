package gitcmd

import (
	"context"

	"github.com/skaphos/gitsync/internal/pathspec"
)

// appendPathArgs appends `-- <paths>` to args, except when paths is the
// single root pathspec (`./`), per spec.md §4.2: the terminator is omitted
// for a root-scoped walk so empty-tree merge commits survive a path-scoped
// log that a `-- .` filter would otherwise drop.
func appendPathArgs(args []string, paths []string) []string {
	if len(paths) == 0 || !pathspec.NeedsPathTerminator(paths) {
		return args
	}
	args = append(args, "--")
	return append(args, paths...)
}

// GraphLogFormat is the log line format the log scanner (C4) depends on to
// recover hash, parents, author timestamp, and subject in one pass.
const GraphLogFormat = "#%H %P-%at %s"

// GraphLogOptions configures a scoped `git log --graph` invocation.
type GraphLogOptions struct {
	// Refs scopes the walk to one or more refs/ranges (e.g. "master",
	// "A..B"). Mutually exclusive in intent with All, though both may be
	// passed by a caller that wants git's own precedence rules.
	Refs []string
	// All walks every ref (`--all`), used when Refs is empty and the caller
	// wants the whole repository rather than a single branch.
	All bool
	// After restricts to commits after this unix timestamp, 0 disables it.
	After int64
	// MaxCount limits the number of entries (`-N`), 0 disables it.
	MaxCount int
	// Paths scopes the walk with `-- <paths>`, consumed verbatim (already
	// translated by package pathspec). Empty means "no pathspec filter".
	Paths []string
}

// GraphLog runs the `--graph --full-history --simplify-merges` walk spec.md
// §4.4 requires and returns the raw stdout, one line per row including the
// non-trunk `--graph` decoration rows the scanner must filter out.
func (d *Driver) GraphLog(ctx context.Context, dir string, opts GraphLogOptions) (string, error) {
	args := []string{"log", "--graph", "--format=" + GraphLogFormat, "--full-history", "--simplify-merges"}
	if opts.After > 0 {
		args = append(args, formatAfter(opts.After))
	}
	if opts.MaxCount > 0 {
		args = append(args, formatMaxCount(opts.MaxCount))
	}
	switch {
	case len(opts.Refs) > 0:
		args = append(args, opts.Refs...)
	case opts.All:
		args = append(args, "--all")
	}
	args = appendPathArgs(args, opts.Paths)
	return d.run(ctx, dir, args...)
}

// CommitMeta is the triple of fields the identity oracle's primary search
// needs from a single commit: committer timestamp, author timestamp, and
// the full message body.
type CommitMeta struct {
	CommitterTS int64
	AuthorTS    int64
	Body        string
}

// ShowCommitMeta runs `git log --format=%ct %at %B -1 <hash>` and parses the
// result.
func (d *Driver) ShowCommitMeta(ctx context.Context, dir, hash string) (CommitMeta, error) {
	out, err := d.run(ctx, dir, "log", "--format=%ct %at %B", "-1", hash)
	if err != nil {
		return CommitMeta{}, err
	}
	return parseCommitMeta(out)
}

// DescribeRef runs `git log --format=%D -1 <hash>` to list the refs pointing
// at a commit (branch/tag decoration).
func (d *Driver) DescribeRef(ctx context.Context, dir, hash string) (string, error) {
	return d.run(ctx, dir, "log", "--format=%D", "-1", hash)
}

// SearchByMessage implements the identity oracle's date/grep search:
// `git log --after --before --grep --fixed-strings --format=%H [--all] [-- paths]`.
// After/Before of 0 omit that bound (the oracle's fallback search).
type SearchByMessageOptions struct {
	After      int64
	Before     int64
	Grep       string
	All        bool
	Refs       []string
	Paths      []string
	WithAuthorTS bool // emits "%H %at" instead of "%H" when true
}

// SearchByMessage runs the scoped message search and returns raw stdout
// (one hash, or one "hash ts" pair, per line).
func (d *Driver) SearchByMessage(ctx context.Context, dir string, opts SearchByMessageOptions) (string, error) {
	format := "--format=%H"
	if opts.WithAuthorTS {
		format = "--format=%H %at"
	}
	args := []string{"log", format, "--fixed-strings", "--grep=" + opts.Grep}
	if opts.After > 0 {
		args = append(args, formatAfter(opts.After))
	}
	if opts.Before > 0 {
		args = append(args, formatBefore(opts.Before))
	}
	switch {
	case len(opts.Refs) > 0:
		args = append(args, opts.Refs...)
	case opts.All:
		args = append(args, "--all")
	}
	args = appendPathArgs(args, opts.Paths)
	return d.run(ctx, dir, args...)
}

// PriorCommitOnPath runs `git log --skip=1 --format=%ct %B -1 <ref>` scoped
// by paths, used by the conflict diverter to locate the commit preceding a
// divergent tip.
func (d *Driver) PriorCommitOnPath(ctx context.Context, dir, ref string, paths []string) (string, error) {
	args := []string{"log", "--skip=1", "--format=%ct %B", "-1", ref}
	args = appendPathArgs(args, paths)
	return d.run(ctx, dir, args...)
}

func formatAfter(ts int64) string  { return "--after=" + formatUnix(ts) }
func formatBefore(ts int64) string { return "--before=" + formatUnix(ts) }
func formatMaxCount(n int) string  { return "-" + itoa(n) }
