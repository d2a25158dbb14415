package syncrun

import (
	"github.com/skaphos/gitsync/internal/branches"
	"github.com/skaphos/gitsync/internal/tags"
)

// Summary is what a run reports back to its caller (the CLI layer) for
// the `Commits:`/`Branches:`/`Tags:` lines.
type Summary struct {
	CommitsNew    int
	CommitsExists int
	CommitsSource int
	CommitsTarget int

	Branches []branches.Result
	Tags     []tags.Result

	ConflictBranches []string
}

// CommitsLine renders the bit-exact `Commits:` summary line.
func (s Summary) CommitsLine() string {
	return commitsLine(s.CommitsNew, s.CommitsExists, s.CommitsSource, s.CommitsTarget)
}
