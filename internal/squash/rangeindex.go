// Package squash implements squash mode (C10): an alternative
// commit-projection strategy that collapses each source-branch range into
// one target commit, recording the collapsed range so tags and later
// identity lookups can still resolve into its middle.
package squash

import (
	"strings"
	"sync"
)

// RangeIndex is the grow-only target-hash → source-log-keys map spec.md
// §4.10 requires: once a range is recorded it is never rewritten, and a
// lookup scans recorded keys for the one whose hash segment matches.
type RangeIndex struct {
	mu     sync.Mutex
	ranges map[string][]string
}

// NewRangeIndex creates an empty index.
func NewRangeIndex() *RangeIndex {
	return &RangeIndex{ranges: make(map[string][]string)}
}

// Record associates targetHash with the source log keys (logscan.Entry.Key
// output) its squash commit subsumed.
func (r *RangeIndex) Record(targetHash string, sourceKeys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ranges[targetHash]; exists {
		return
	}
	r.ranges[targetHash] = sourceKeys
}

// Lookup implements identity.SquashLookup: it reports the target hash of
// the range whose recorded keys include sourceHash, if any.
func (r *RangeIndex) Lookup(sourceHash string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := "#" + sourceHash + " "
	for targetHash, keys := range r.ranges {
		for _, key := range keys {
			if strings.HasPrefix(key, prefix) {
				return targetHash, true
			}
		}
	}
	return "", false
}
