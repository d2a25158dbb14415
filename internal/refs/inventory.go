// Package refs enumerates and filters a repository's branches: the ref
// inventory component every reconciler and the log scanner consult to know
// which branches exist and are in scope for a run.
package refs

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

// ConflictBranchSuffix names the suffix a conflict-diverted branch carries.
// Ref inventory rejects repositories that already carry one on entry.
const ConflictBranchSuffix = "-gitsync-conflict"

// ErrConflictBranchesExist is returned by List when a repository already
// carries one or more unresolved conflict branches from a prior run.
type ErrConflictBranchesExist struct {
	Dir      string
	Branches []string
}

func (e *ErrConflictBranchesExist) Error() string {
	return fmt.Sprintf(`Repository %q has unmerged conflict branches %q, please merge or remove branches before syncing.`, e.Dir, strings.Join(e.Branches, ", "))
}

// FilterOptions is an include/exclude glob pair. An empty Include matches
// everything ("**" is synthesized).
type FilterOptions struct {
	Include []string
	Exclude []string
}

// List runs `git branch -a` against dir, normalizes the raw output into
// plain branch names (local names preferred over their origin/X shadow),
// and fails if any conflict-suffixed branch is already present.
func List(ctx context.Context, driver *gitcmd.Driver, dir string) ([]string, error) {
	raw, err := driver.ListBranches(ctx, dir)
	if err != nil {
		return nil, err
	}
	names := normalize(raw)

	var conflicted []string
	for _, n := range names {
		if strings.HasSuffix(n, ConflictBranchSuffix) {
			conflicted = append(conflicted, n)
		}
	}
	if len(conflicted) > 0 {
		return nil, &ErrConflictBranchesExist{Dir: dir, Branches: conflicted}
	}
	return names, nil
}

// normalize strips the two-character status prefix, drops the symbolic
// `remotes/origin/HEAD -> …` entry, rewrites `remotes/origin/X` to
// `origin/X`, and suppresses an `origin/X` shadow when local `X` exists.
func normalize(raw []string) []string {
	local := make(map[string]bool)
	var candidates []string
	for _, line := range raw {
		line = strings.TrimSpace(strings.TrimPrefix(line, "* "))
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "->") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "remotes/origin/"):
			name := "origin/" + strings.TrimPrefix(line, "remotes/origin/")
			candidates = append(candidates, name)
		default:
			local[line] = true
			candidates = append(candidates, line)
		}
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(c, "origin/") {
			if local[strings.TrimPrefix(c, "origin/")] {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// Apply filters names by the include/exclude glob pair. An empty Include
// list is treated as "**" (keep all).
func Apply(names []string, opts FilterOptions) ([]string, error) {
	include := opts.Include
	if len(include) == 0 {
		include = []string{"**"}
	}
	var out []string
	for _, n := range names {
		matched, err := matchesAny(include, n)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		excluded, err := matchesAny(opts.Exclude, n)
		if err != nil {
			return nil, err
		}
		if excluded {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func matchesAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
