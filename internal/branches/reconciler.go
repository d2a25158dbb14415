// Package branches implements the branch reconciler (C8): after commits
// are projected, it walks every included source branch and creates,
// fast-forwards, or diverts its target counterpart.
package branches

import (
	"context"
	"fmt"
	"strings"

	"github.com/skaphos/gitsync/internal/conflict"
	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/identity"
)

// Outcome classifies what a single branch reconciliation produced.
type Outcome string

const (
	OutcomeCreated      Outcome = "created"
	OutcomeFastForward  Outcome = "fast-forward"
	OutcomeUpToDate     Outcome = "up-to-date"
	OutcomeAhead        Outcome = "ahead"
	OutcomeSkippedEven  Outcome = "skipped-even"
	OutcomeNotFound     Outcome = "not-found"
	OutcomeDiverged     Outcome = "diverged"
	OutcomeCurrentSkip  Outcome = "current-branch-skip"
)

// Result reports the per-branch outcome.
type Result struct {
	Branch  string
	Outcome Outcome
	Detail  string
}

// Deps wires the reconciler's collaborators for a single run.
type Deps struct {
	SourceDriver *gitcmd.Driver
	SourceDir    string
	SourcePaths  []string

	TargetDriver *gitcmd.Driver
	TargetDir    string

	Oracle        *identity.Oracle
	Diverter      *conflict.Diverter
	SkipEven      bool
	CurrentBranch string
}

// localName collapses a local projection of origin/X into X.
func localName(branch string) string {
	return strings.TrimPrefix(branch, "origin/")
}

// Reconcile walks sourceBranches (already include/exclude filtered, in
// input order) and existingTargetBranches (the target's current branch
// inventory, used for the skip-even comparison and presence checks) and
// returns one Result per source branch.
func Reconcile(ctx context.Context, deps Deps, sourceBranches []string, existingTargetBranches map[string]string) ([]Result, error) {
	var results []Result
	for _, src := range sourceBranches {
		name := localName(src)
		res, err := reconcileOne(ctx, deps, src, name, existingTargetBranches)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if res.Outcome == OutcomeCreated || res.Outcome == OutcomeFastForward {
			hash, err := deps.TargetDriver.RevParseQuiet(ctx, deps.TargetDir, name)
			if err == nil && hash != "" {
				existingTargetBranches[name] = hash
			}
		}
	}
	return results, nil
}

func reconcileOne(ctx context.Context, deps Deps, sourceBranch, targetName string, existing map[string]string) (Result, error) {
	sourceTip, err := deps.SourceDriver.RevParseQuiet(ctx, deps.SourceDir, sourceBranch)
	if err != nil || sourceTip == "" {
		return Result{}, fmt.Errorf("resolve source branch %q: %w", sourceBranch, err)
	}

	resolvedTip, err := deps.Oracle.Resolve(ctx, deps.SourceDriver, deps.SourceDir, sourceTip)
	if err != nil {
		return Result{}, err
	}
	if resolvedTip == "" {
		return Result{Branch: targetName, Outcome: OutcomeNotFound, Detail: "Commit not found in target repository, branch: " + targetName}, nil
	}

	if deps.SkipEven {
		for other, hash := range existing {
			if other != targetName && hash == resolvedTip {
				return Result{Branch: targetName, Outcome: OutcomeSkippedEven, Detail: fmt.Sprintf(`Skip creating branch %q, which is even with: %s`, targetName, other)}, nil
			}
		}
	}

	currentTip, present := existing[targetName]
	if !present {
		if err := deps.TargetDriver.CreateOrResetBranch(ctx, deps.TargetDir, targetName, resolvedTip); err != nil {
			return Result{}, err
		}
		return Result{Branch: targetName, Outcome: OutcomeCreated}, nil
	}

	if currentTip == resolvedTip {
		return Result{Branch: targetName, Outcome: OutcomeUpToDate}, nil
	}

	mergeBase, err := deps.TargetDriver.MergeBase(ctx, deps.TargetDir, currentTip, resolvedTip)
	if err != nil {
		mergeBase = ""
	}
	switch mergeBase {
	case currentTip:
		if err := deps.TargetDriver.CreateOrResetBranch(ctx, deps.TargetDir, targetName, resolvedTip); err != nil {
			return Result{}, err
		}
		return Result{Branch: targetName, Outcome: OutcomeFastForward}, nil
	case resolvedTip:
		return Result{Branch: targetName, Outcome: OutcomeAhead}, nil
	default:
		if targetName == deps.CurrentBranch {
			return Result{Branch: targetName, Outcome: OutcomeCurrentSkip}, nil
		}
		diverted, err := deps.Diverter.Divert(ctx, targetName)
		if err != nil {
			return Result{}, err
		}
		return Result{Branch: targetName, Outcome: OutcomeDiverged, Detail: diverted}, nil
	}
}
