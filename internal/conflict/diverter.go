// Package conflict implements the conflict diverter (C7): when the source
// does not contain the target's divergent tip, it parks the target branch
// on a `<branch>-gitsync-conflict` branch rooted at the last common
// ancestor and lets the caller keep applying patches there.
package conflict

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

// ConflictBranchSuffix is the exact suffix a diverted branch carries.
const ConflictBranchSuffix = "-gitsync-conflict"

// BranchName returns the diverted branch name for branch.
func BranchName(branch string) string {
	return branch + ConflictBranchSuffix
}

// Diverter creates conflict branches against a target repository, locating
// the divergence anchor by searching the source.
type Diverter struct {
	SourceDriver *gitcmd.Driver
	SourceDir    string
	SourcePaths  []string

	TargetDriver *gitcmd.Driver
	TargetDir    string
	TargetPaths  []string
}

// New creates a Diverter.
func New(sourceDriver *gitcmd.Driver, sourceDir string, sourcePaths []string, targetDriver *gitcmd.Driver, targetDir string, targetPaths []string) *Diverter {
	return &Diverter{
		SourceDriver: sourceDriver,
		SourceDir:    sourceDir,
		SourcePaths:  sourcePaths,
		TargetDriver: targetDriver,
		TargetDir:    targetDir,
		TargetPaths:  targetPaths,
	}
}

// Divert runs the §4.7 sequence: resolve any half-merged state by taking
// the incoming side, locate the prior commit on the subpath and its target
// counterpart (falling back to the current target HEAD when not found),
// reset hard, and create+checkout `<currentBranch>-gitsync-conflict`
// rooted at the located hash. Returns the diverted branch's name.
func (d *Diverter) Divert(ctx context.Context, currentBranch string) (string, error) {
	// A merge --no-commit that failed outright leaves no unmerged paths to
	// resolve; CheckoutTheirs erroring in that case is expected and ignored.
	_ = d.TargetDriver.CheckoutTheirs(ctx, d.TargetDir)

	anchor, err := d.locateAnchor(ctx, currentBranch)
	if err != nil {
		return "", err
	}

	if err := d.TargetDriver.ResetHard(ctx, d.TargetDir, "HEAD"); err != nil {
		return "", fmt.Errorf("reset hard before diverting %q: %w", currentBranch, err)
	}

	diverted := BranchName(currentBranch)
	if err := d.TargetDriver.CheckoutNewBranch(ctx, d.TargetDir, diverted, anchor, true); err != nil {
		return "", fmt.Errorf("create conflict branch %q: %w", diverted, err)
	}
	return diverted, nil
}

// locateAnchor finds the commit preceding the source's divergent tip on
// the subpath, resolves its target counterpart by a date-and-grep search
// across every target ref, and falls back to the target's current HEAD
// when no counterpart is found.
func (d *Diverter) locateAnchor(ctx context.Context, currentBranch string) (string, error) {
	out, err := d.SourceDriver.PriorCommitOnPath(ctx, d.SourceDir, currentBranch, d.SourcePaths)
	if err != nil || out == "" {
		return d.fallbackHead(ctx)
	}

	ts, body, ok := splitTimestampAndBody(out)
	if !ok {
		return d.fallbackHead(ctx)
	}

	matches, err := d.TargetDriver.SearchByMessage(ctx, d.TargetDir, gitcmd.SearchByMessageOptions{
		After:  ts,
		Before: ts,
		Grep:   gitcmd.FirstBodyLine(body),
		All:    true,
		Paths:  d.TargetPaths,
	})
	if err != nil {
		return d.fallbackHead(ctx)
	}
	lines := nonEmptyLines(matches)
	if len(lines) != 1 {
		return d.fallbackHead(ctx)
	}
	return lines[0], nil
}

func (d *Diverter) fallbackHead(ctx context.Context) (string, error) {
	return d.TargetDriver.RevParseQuiet(ctx, d.TargetDir, "HEAD")
}

func splitTimestampAndBody(out string) (int64, string, bool) {
	idx := strings.IndexByte(out, ' ')
	if idx < 0 {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(out[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, out[idx+1:], true
}
