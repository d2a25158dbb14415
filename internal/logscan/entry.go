// Package logscan produces the ordered, path-filtered commit listing the
// rest of the engine diffs and projects from.
package logscan

import (
	"strconv"
	"strings"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

// Entry is a single parsed `git log --graph` row: a commit record plus
// whether it sits on the graph's trunk line.
type Entry struct {
	Hash          string
	ParentHashes  []string
	AuthorTS      int64
	Subject       string
	OnCurrentLine bool
}

// Key returns the log key `#<hash> <space-separated parents>` that
// set-difference operations are performed over.
func (e Entry) Key() string {
	if len(e.ParentHashes) == 0 {
		return "#" + e.Hash + " "
	}
	return "#" + e.Hash + " " + strings.Join(e.ParentHashes, " ")
}

// Value returns `<author_ts> <subject>`, the value side of the key/value
// pair a commit's "new in target" test compares.
func (e Entry) Value() string {
	return strconv.FormatInt(e.AuthorTS, 10) + " " + e.Subject
}

// Parents returns the commit's parent hashes, substituting the empty-tree
// sentinel when the commit has none.
func (e Entry) Parents() []string {
	if len(e.ParentHashes) == 0 {
		return []string{gitcmd.EmptyTreeHash}
	}
	return e.ParentHashes
}
