package logscan

import (
	"context"
	"fmt"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

// Options configures a single scoped scan.
type Options struct {
	// Refs scopes the walk to one or more refs/ranges. Empty with All false
	// walks the repository's current branch only (git's own default).
	Refs []string
	// All walks every ref (`--all`), mutually exclusive in intent with Refs.
	All bool
	// After restricts to commits authored after this unix timestamp, 0
	// disables it.
	After int64
	// MaxCount limits the number of entries (`-N`), 0 disables it.
	MaxCount int
	// Paths scopes the walk by pathspec, already translated by package
	// pathspec.
	Paths []string
}

// Expander resolves a squash marker's source range against the *other*
// repository, returning the underlying entries it collapsed. Scan calls it
// with the same context it was given.
type Expander func(ctx context.Context, start, end string) ([]Entry, error)

// Scan runs a scoped `git log --graph` walk and returns its parsed, trunk-
// filtered entries, expanding any squash-marker commit into the range it
// collapsed via expand. onFirstHash, if non-nil, is invoked once with the
// hash of the first entry in raw scan order (before squash expansion),
// letting the caller capture the log's first-seen hash for branch
// selection.
func Scan(ctx context.Context, driver *gitcmd.Driver, dir string, opts Options, expand Expander, onFirstHash func(hash string)) ([]Entry, error) {
	out, err := driver.GraphLog(ctx, dir, gitcmd.GraphLogOptions{
		Refs:     opts.Refs,
		All:      opts.All,
		After:    opts.After,
		MaxCount: opts.MaxCount,
		Paths:    opts.Paths,
	})
	if err != nil {
		return nil, err
	}

	var entries []Entry
	firstHashCaptured := false
	for _, line := range splitLines(out) {
		entry, ok, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !firstHashCaptured {
			firstHashCaptured = true
			if onFirstHash != nil {
				onFirstHash(entry.Hash)
			}
		}

		if start, end, isSquash := SquashMarker(entry.Subject); isSquash {
			if expand == nil {
				return nil, fmt.Errorf("log scan hit squash marker %q but no expander was configured", entry.Subject)
			}
			expanded, err := expand(ctx, start, end)
			if err != nil {
				return nil, fmt.Errorf("expand squash range %s..%s: %w", start, end, err)
			}
			entries = append(entries, expanded...)
			continue
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
