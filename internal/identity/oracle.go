// Package identity resolves a source commit hash to the target hash of its
// projected counterpart, by content-and-time search, with a cache and two
// fallback strategies.
package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/logscan"
)

// Map is the source-hash → target-hash cache. Once a hash is set it is
// never rewritten within a run.
type Map struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMap creates an empty identity map.
func NewMap() *Map {
	return &Map{entries: make(map[string]string)}
}

// Get returns the cached target hash and whether it was present.
func (m *Map) Get(sourceHash string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.entries[sourceHash]
	return h, ok
}

// Set records the source→target correspondence. Panics if sourceHash is
// already mapped to a different hash, enforcing the "never rewritten"
// invariant.
func (m *Map) Set(sourceHash, targetHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.entries[sourceHash]; ok && existing != targetHash {
		panic(fmt.Sprintf("identity map: %s already resolved to %s, refusing to overwrite with %s", sourceHash, existing, targetHash))
	}
	m.entries[sourceHash] = targetHash
}

// SquashLookup resolves a source hash that falls inside a squashed range to
// the target hash representing that range, consulted when the oracle's own
// search fails to find a direct match.
type SquashLookup func(sourceHash string) (targetHash string, ok bool)

// Oracle resolves source hashes to target hashes against a target
// repository scoped by targetPaths.
type Oracle struct {
	Driver      *gitcmd.Driver
	TargetDir   string
	TargetPaths []string
	Map         *Map
	// Squash is consulted when the primary and fallback searches both come
	// up empty. May be nil.
	Squash SquashLookup
}

// New creates an Oracle backed by its own Map.
func New(driver *gitcmd.Driver, targetDir string, targetPaths []string, squash SquashLookup) *Oracle {
	return &Oracle{Driver: driver, TargetDir: targetDir, TargetPaths: targetPaths, Map: NewMap(), Squash: squash}
}

// Resolve maps sourceHash to its target counterpart, consulting the cache
// first. sourceDriver/sourceDir scope the metadata fetch against the
// *source* repository.
func (o *Oracle) Resolve(ctx context.Context, sourceDriver *gitcmd.Driver, sourceDir, sourceHash string) (string, error) {
	if hash, ok := o.Map.Get(sourceHash); ok {
		return hash, nil
	}

	meta, err := sourceDriver.ShowCommitMeta(ctx, sourceDir, sourceHash)
	if err != nil {
		return "", fmt.Errorf("fetch source commit metadata for %s: %w", sourceHash, err)
	}

	if _, end, ok := logscan.SquashMarker(gitcmd.FirstBodyLine(meta.Body)); ok {
		o.Map.Set(sourceHash, end)
		return end, nil
	}

	searchKey := gitcmd.FirstBodyLine(meta.Body)

	hash, err := o.primarySearch(ctx, meta.CommitterTS, searchKey)
	if err != nil {
		return "", err
	}
	if hash == "" {
		hash, err = o.fallbackSearch(ctx, meta.AuthorTS, searchKey)
		if err != nil {
			return "", err
		}
	}
	if hash == "" && o.Squash != nil {
		if sq, ok := o.Squash(sourceHash); ok {
			hash = sq
		}
	}
	if hash == "" {
		return "", nil
	}

	o.Map.Set(sourceHash, hash)
	return hash, nil
}

// primarySearch runs the date+grep query and returns a hash only when
// exactly one line matches.
func (o *Oracle) primarySearch(ctx context.Context, committerTS int64, searchKey string) (string, error) {
	out, err := o.Driver.SearchByMessage(ctx, o.TargetDir, gitcmd.SearchByMessageOptions{
		After:  committerTS,
		Before: committerTS,
		Grep:   searchKey,
		All:    true,
		Paths:  o.TargetPaths,
	})
	if err != nil {
		return "", err
	}
	lines := nonEmptyLines(out)
	if len(lines) == 1 {
		return lines[0], nil
	}
	return "", nil
}

// fallbackSearch drops the date constraint, keeping only rows whose author
// timestamp matches exactly, per the oracle's documented rebase-safe
// fallback.
func (o *Oracle) fallbackSearch(ctx context.Context, authorTS int64, searchKey string) (string, error) {
	out, err := o.Driver.SearchByMessage(ctx, o.TargetDir, gitcmd.SearchByMessageOptions{
		Grep:         searchKey,
		All:          true,
		Paths:        o.TargetPaths,
		WithAuthorTS: true,
	})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, line := range nonEmptyLines(out) {
		hash, ts, ok := splitHashAndTS(line)
		if !ok {
			continue
		}
		if ts == authorTS {
			matches = append(matches, hash)
		}
	}
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("Expected to return one commit, but returned more than one commit with the same message in the same second: %s", strings.Join(matches, ", "))
	}
}

func nonEmptyLines(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func splitHashAndTS(line string) (hash string, ts int64, ok bool) {
	idx := strings.LastIndexByte(line, ' ')
	if idx < 0 {
		return "", 0, false
	}
	hash = line[:idx]
	parsed, err := strconv.ParseInt(line[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return hash, parsed, true
}
