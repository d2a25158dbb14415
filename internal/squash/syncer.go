package squash

import (
	"context"
	"fmt"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/logscan"
)

// Subject is the literal squash-commit message format spec.md §4.10 and
// the log scanner's squash-marker regex (§4.4) both depend on.
const Subject = "chore(sync): squash commits from %s to %s"

// Deps wires the syncer's collaborators for a single run. SourceSubdir is
// used only by the worktree-overwrite fallback; TargetSubdir is used by
// that fallback and as the `git apply --directory` value.
type Deps struct {
	SourceDriver *gitcmd.Driver
	SourceDir    string
	SourcePaths  []string
	SourceSubdir string
	Depth        int

	TargetDriver *gitcmd.Driver
	TargetDir    string
	TargetSubdir string

	PreserveCommit bool
	GitsyncUpdate  string

	Ranges *RangeIndex
}

// Syncer projects source-branch ranges onto target as squash commits.
type Syncer struct {
	Deps Deps
}

// New creates a Syncer.
func New(deps Deps) *Syncer {
	return &Syncer{Deps: deps}
}

// Outcome classifies what a single branch squash pass produced.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeAdvanced Outcome = "advanced"
	OutcomeUpToDate Outcome = "up-to-date"
)

// Result reports the per-branch outcome.
type Result struct {
	Branch     string
	Outcome    Outcome
	TargetHash string
	Start      string
	End        string
}

// Input describes one source branch's squash pass.
type Input struct {
	Branch          string
	SourceBranchTip string
	SourceEntries   []logscan.Entry
	TargetEntries   []logscan.Entry
	TargetExists    bool
	IsBaseBranch    bool
	BaseTargetTip   string
}

// SyncBranch implements §4.10: absent branches are seeded from the squash
// base's target tip (or the empty tree, for the base branch itself) and
// get one squash commit spanning the whole branch; present branches are
// diffed for newly-arrived source commits and advanced by a squash commit
// spanning just the new range.
func (s *Syncer) SyncBranch(ctx context.Context, in Input) (Result, error) {
	var start string
	outcome := OutcomeAdvanced

	if !in.TargetExists {
		if in.IsBaseBranch {
			start = gitcmd.EmptyTreeHash
		} else {
			start = in.BaseTargetTip
		}
		outcome = OutcomeCreated
	} else {
		newEntries := logscan.NewInTarget(in.SourceEntries, in.TargetEntries)
		if len(newEntries) == 0 {
			return Result{Branch: in.Branch, Outcome: OutcomeUpToDate}, nil
		}
		start = newEntries[len(newEntries)-1].Hash
	}
	end := in.SourceBranchTip

	if err := s.prepareBranch(ctx, in); err != nil {
		return Result{}, err
	}

	targetHash, err := s.commitRange(ctx, start, end)
	if err != nil {
		return Result{}, err
	}

	keys := rangeKeys(in.SourceEntries, start, end)
	s.Deps.Ranges.Record(targetHash, keys)

	return Result{Branch: in.Branch, Outcome: outcome, TargetHash: targetHash, Start: start, End: end}, nil
}

func (s *Syncer) prepareBranch(ctx context.Context, in Input) error {
	if in.TargetExists {
		return s.Deps.TargetDriver.Checkout(ctx, s.Deps.TargetDir, in.Branch)
	}
	if in.IsBaseBranch {
		return s.Deps.TargetDriver.CheckoutOrphan(ctx, s.Deps.TargetDir, in.Branch)
	}
	return s.Deps.TargetDriver.CheckoutNewBranch(ctx, s.Deps.TargetDir, in.Branch, in.BaseTargetTip, true)
}

func (s *Syncer) commitRange(ctx context.Context, start, end string) (string, error) {
	diff, err := s.Deps.SourceDriver.DiffStat(ctx, s.Deps.SourceDir, start, end, s.Deps.SourcePaths)
	if err != nil {
		return "", err
	}

	applyErr := s.Deps.TargetDriver.Apply(ctx, s.Deps.TargetDir, []byte(diff+"\n\n"), gitcmd.ApplyOptions{Depth: s.Deps.Depth, Directory: applyDirectory(s.Deps.TargetSubdir)})
	if applyErr != nil {
		if err := s.overwriteRange(ctx, start, end); err != nil {
			return "", fmt.Errorf("squash overwrite fallback for range %s..%s: %w", start, end, err)
		}
	} else if err := s.Deps.TargetDriver.AddUpdated(ctx, s.Deps.TargetDir); err != nil {
		return "", err
	}

	opts := gitcmd.CommitOptions{
		Message:       fmt.Sprintf(Subject, start, end),
		GitsyncUpdate: s.Deps.GitsyncUpdate,
	}
	if s.Deps.PreserveCommit {
		identity, err := s.Deps.SourceDriver.ShowAuthorIdentity(ctx, s.Deps.SourceDir, end)
		if err == nil {
			opts.Identity = &identity
		}
	}
	if err := s.Deps.TargetDriver.Commit(ctx, s.Deps.TargetDir, opts); err != nil {
		return "", err
	}
	return s.Deps.TargetDriver.RevParse(ctx, s.Deps.TargetDir, "HEAD")
}

// rangeKeys collects the Key() of every source entry in [start, end] that
// the squash commit represents, for later oracle fallback lookups.
func rangeKeys(entries []logscan.Entry, start, end string) []string {
	var keys []string
	collecting := false
	for _, e := range entries {
		if e.Hash == end {
			collecting = true
		}
		if collecting {
			keys = append(keys, e.Key())
		}
		if e.Hash == start {
			break
		}
	}
	return keys
}

// applyDirectory derives the `git apply --directory` value from a
// configured subdir: trimmed of any trailing slash, empty at repo root.
func applyDirectory(subdir string) string {
	if subdir == "" || subdir == "." || subdir == "./" {
		return ""
	}
	if len(subdir) > 0 && subdir[len(subdir)-1] == '/' {
		return subdir[:len(subdir)-1]
	}
	return subdir
}
