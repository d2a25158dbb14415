// Package patch implements the patch applier (C6), the hot path that
// projects a single non-merge or merge commit from source onto target:
// building and applying a patch, falling back to worktree overwrite, and
// diverting to a conflict branch when neither succeeds.
package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/skaphos/gitsync/internal/conflict"
	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/identity"
	"github.com/skaphos/gitsync/internal/logscan"
)

// Deps wires the repositories, paths, and collaborators a single Applier
// instance needs for the lifetime of a run.
type Deps struct {
	SourceDriver *gitcmd.Driver
	SourceDir    string
	SourcePaths  []string
	// SourceSubdir is the configured source subdirectory within the source
	// repository (e.g. "pkg/", or "./" at root), used by the worktree
	// overwrite path to strip the scanned prefix off a repo-relative path.
	SourceSubdir string
	// SourceDepth is the `-p<N>` strip count `git apply` needs: one more
	// than the number of path segments in the source subdirectory (1 at
	// repository root, 2 for "pkg/").
	SourceDepth int
	// TargetDirectory is passed as `--directory` to `git apply` when the
	// target subdir is not root; "" means root.
	TargetDirectory string

	TargetDriver *gitcmd.Driver
	TargetDir    string
	TargetPaths  []string
	// TargetSubdir is the configured target subdirectory within the
	// target repository, used to rejoin a stripped source-relative path.
	TargetSubdir string

	Oracle   *identity.Oracle
	Diverter *conflict.Diverter

	PreserveCommit bool
	GitsyncUpdate  string

	// BeforeCommit, if non-nil, runs the plugin `beforeCommit` hook
	// immediately before `git commit`.
	BeforeCommit func(ctx context.Context, sourceHash string) error
}

// Context is the subset of the run's transient state the applier reads and
// updates on every call. The orchestrator owns the authoritative copy and
// feeds the updated values from Result back in before the next call.
type Context struct {
	CurrentBranch string
	DefaultBranch string
	IsContains    bool
	IsHistorical  bool
	// FirstFailureConsumed becomes true the first time a patch failure
	// triggers the "divert, then retry" path in a non-contains run; every
	// failure after that diverts without retrying.
	FirstFailureConsumed bool
}

// Result reports the state changes a single Apply produced.
type Result struct {
	TargetHash       string
	CurrentBranch    string
	NewTempBranch    string
	DivertedBranch   string
	FirstFailureUsed bool
}

// Applier projects commits per §4.6.
type Applier struct {
	Deps Deps
}

// New creates an Applier.
func New(deps Deps) *Applier {
	return &Applier{Deps: deps}
}

// Apply projects a single commit described by entry, given the run's
// current Context, and returns the updated branch/temp-branch/divert state
// plus the resulting target hash.
func (a *Applier) Apply(ctx context.Context, entry logscan.Entry, run Context) (Result, error) {
	res := Result{CurrentBranch: run.CurrentBranch}

	branch, err := a.selectBranch(ctx, entry, run, &res)
	if err != nil {
		return res, err
	}
	run.CurrentBranch = branch
	res.CurrentBranch = branch

	if len(entry.ParentHashes) > 1 {
		return a.applyMerge(ctx, entry, run, res)
	}
	return a.applySingleParent(ctx, entry, run, res)
}

// selectBranch implements §4.6 step 2: a non-trunk entry gets projected
// onto a fresh `sync-<parent>` branch rooted at the parent's target
// counterpart; a trunk entry moves to the default branch if not already
// there.
func (a *Applier) selectBranch(ctx context.Context, entry logscan.Entry, run Context, res *Result) (string, error) {
	if !entry.OnCurrentLine {
		parent := entry.Parents()[0]
		parentTarget, err := a.Deps.Oracle.Resolve(ctx, a.Deps.SourceDriver, a.Deps.SourceDir, parent)
		if err != nil {
			return "", fmt.Errorf("resolve parent %s for branch selection: %w", parent, err)
		}
		if parentTarget == "" {
			return "", fmt.Errorf("no target counterpart for parent %s of %s", parent, entry.Hash)
		}
		temp := "sync-" + parent
		if err := a.Deps.TargetDriver.CreateOrResetBranch(ctx, a.Deps.TargetDir, temp, parentTarget); err != nil {
			return "", err
		}
		if err := a.Deps.TargetDriver.Checkout(ctx, a.Deps.TargetDir, temp); err != nil {
			return "", err
		}
		res.NewTempBranch = temp
		return temp, nil
	}
	if run.CurrentBranch != run.DefaultBranch {
		if err := a.Deps.TargetDriver.Checkout(ctx, a.Deps.TargetDir, run.DefaultBranch); err != nil {
			return "", err
		}
		return run.DefaultBranch, nil
	}
	return run.CurrentBranch, nil
}

// applyMerge implements §4.6 step 3.
func (a *Applier) applyMerge(ctx context.Context, entry logscan.Entry, run Context, res Result) (Result, error) {
	var resolved []string
	for _, p := range entry.ParentHashes[1:] {
		target, err := a.Deps.Oracle.Resolve(ctx, a.Deps.SourceDriver, a.Deps.SourceDir, p)
		if err != nil {
			return res, fmt.Errorf("resolve merge parent %s: %w", p, err)
		}
		if target == "" {
			return res, fmt.Errorf("no target counterpart for merge parent %s of %s", p, entry.Hash)
		}
		resolved = append(resolved, target)
	}

	// A merge conflict is expected and swallowed; the shim below decides
	// the recovery path.
	_ = a.Deps.TargetDriver.Merge(ctx, a.Deps.TargetDir, resolved)

	if err := a.resolveShim(ctx, entry, run, &res, true); err != nil {
		return res, err
	}

	hash, err := a.commit(ctx, entry)
	if err != nil {
		return res, err
	}
	res.TargetHash = hash
	a.Deps.Oracle.Map.Set(entry.Hash, hash)
	return res, nil
}

// applySingleParent implements §4.6 step 4.
func (a *Applier) applySingleParent(ctx context.Context, entry logscan.Entry, run Context, res Result) (Result, error) {
	patchBytes, err := a.buildPatch(ctx, entry.Hash)
	if err != nil {
		return res, err
	}

	applyErr := a.Deps.TargetDriver.Apply(ctx, a.Deps.TargetDir, patchBytes, gitcmd.ApplyOptions{
		Depth:     a.Deps.SourceDepth,
		Directory: a.Deps.TargetDirectory,
	})
	if applyErr != nil {
		if err := a.resolveShim(ctx, entry, run, &res, false); err != nil {
			return res, err
		}
	}

	hash, err := a.commit(ctx, entry)
	if err != nil {
		return res, err
	}
	res.TargetHash = hash
	a.Deps.Oracle.Map.Set(entry.Hash, hash)
	return res, nil
}

// buildPatch builds the single-commit patch, appending a trailing blank
// line to work around git-apply's truncated-diagnostic handling of
// binary/corrupt-fake-ancestor hunks.
func (a *Applier) buildPatch(ctx context.Context, hash string) ([]byte, error) {
	raw, err := a.Deps.SourceDriver.FormatPatch(ctx, a.Deps.SourceDir, hash, a.Deps.SourcePaths)
	if err != nil {
		return nil, err
	}
	return []byte(raw + "\n\n"), nil
}

// resolveShim implements §4.6.5's conflict resolution shim, shared by the
// merge and single-parent paths.
func (a *Applier) resolveShim(ctx context.Context, entry logscan.Entry, run Context, res *Result, fromMerge bool) error {
	switch {
	case run.IsContains && run.IsHistorical:
		return a.divert(ctx, run, res)
	case run.IsContains:
		return a.overwrite(ctx, entry)
	case !run.FirstFailureConsumed:
		res.FirstFailureUsed = true
		if err := a.divert(ctx, run, res); err != nil {
			return err
		}
		if fromMerge {
			return nil
		}
		// Recursively retry the patch on the newly created conflict branch.
		patchBytes, err := a.buildPatch(ctx, entry.Hash)
		if err != nil {
			return err
		}
		_ = a.Deps.TargetDriver.Apply(ctx, a.Deps.TargetDir, patchBytes, gitcmd.ApplyOptions{
			Depth:     a.Deps.SourceDepth,
			Directory: a.Deps.TargetDirectory,
		})
		return nil
	default:
		return a.divert(ctx, run, res)
	}
}

func (a *Applier) divert(ctx context.Context, run Context, res *Result) error {
	diverted, err := a.Deps.Diverter.Divert(ctx, run.CurrentBranch)
	if err != nil {
		return err
	}
	res.DivertedBranch = diverted
	res.CurrentBranch = diverted
	return nil
}

// commit implements §4.6.6.
func (a *Applier) commit(ctx context.Context, entry logscan.Entry) (string, error) {
	if err := a.Deps.TargetDriver.AddUpdated(ctx, a.Deps.TargetDir); err != nil {
		return "", err
	}

	if a.Deps.BeforeCommit != nil {
		if err := a.Deps.BeforeCommit(ctx, entry.Hash); err != nil {
			return "", fmt.Errorf("beforeCommit hook for %s: %w", entry.Hash, err)
		}
	}

	id, err := a.Deps.SourceDriver.ShowAuthorIdentity(ctx, a.Deps.SourceDir, entry.Hash)
	if err != nil {
		return "", fmt.Errorf("fetch author identity for %s: %w", entry.Hash, err)
	}

	opts := gitcmd.CommitOptions{
		Message:       strings.TrimRight(id.Body, "\n"),
		GitsyncUpdate: a.Deps.GitsyncUpdate,
	}
	if a.Deps.PreserveCommit {
		opts.Identity = &id
	}
	if err := a.Deps.TargetDriver.Commit(ctx, a.Deps.TargetDir, opts); err != nil {
		return "", err
	}
	return a.Deps.TargetDriver.RevParse(ctx, a.Deps.TargetDir, "HEAD")
}
