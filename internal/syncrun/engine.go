// Package syncrun implements the orchestrator (C11): it sequences the
// ref inventory, log scanner, identity oracle, patch applier, conflict
// diverter, branch/tag reconcilers, and squash mode into one sync run.
package syncrun

import (
	"context"
	"fmt"
	"strings"

	"github.com/skaphos/gitsync/internal/branches"
	"github.com/skaphos/gitsync/internal/conflict"
	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/identity"
	"github.com/skaphos/gitsync/internal/logscan"
	"github.com/skaphos/gitsync/internal/patch"
	"github.com/skaphos/gitsync/internal/pathspec"
	"github.com/skaphos/gitsync/internal/plugin"
	"github.com/skaphos/gitsync/internal/refs"
	"github.com/skaphos/gitsync/internal/squash"
	"github.com/skaphos/gitsync/internal/tags"
)

// Engine runs exactly one sync between a source and target repository.
// Not safe for concurrent Run calls — the engine drives the target's
// HEAD through a strict sequence of states with no safe checkpoint.
type Engine struct {
	SourceDriver *gitcmd.Driver
	TargetDriver *gitcmd.Driver
	Config       RunConfig

	// LastState is the transient state of the most recent Run call, kept
	// around so the CLI boundary can render RecoveryMessage after Run
	// has already returned.
	LastState *State
}

// New creates an Engine.
func New(sourceDriver, targetDriver *gitcmd.Driver, cfg RunConfig) *Engine {
	return &Engine{SourceDriver: sourceDriver, TargetDriver: targetDriver, Config: cfg}
}

// Run executes the full sequence described in spec.md §4.11. On any
// failure it tears down temp branches and the auxiliary worktree before
// returning; the returned error is the one the CLI boundary renders
// alongside the error-recovery recipe (see RecoveryMessage).
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	clean, err := e.TargetDriver.IsClean(ctx, e.Config.TargetDir)
	if err != nil {
		return Summary{}, err
	}
	if !clean {
		return Summary{}, &ErrTargetDirty{Dir: e.Config.TargetDir}
	}

	state := &State{}
	e.LastState = state
	state.InitHash, _ = e.TargetDriver.RevParseQuiet(ctx, e.Config.TargetDir, "HEAD")
	state.OrigBranch, _ = e.TargetDriver.CurrentBranch(ctx, e.Config.TargetDir)
	state.CurrentBranch = state.OrigBranch
	state.DefaultBranch = state.OrigBranch

	translation := pathspec.Translate(e.Config.SourceSubdir, e.Config.TargetSubdir, e.Config.Filters)

	oracle := identity.New(e.TargetDriver, e.Config.TargetDir, translation.TargetPaths, nil)
	hookCtx := plugin.HookContext{
		Source:        e.Config.SourceDir,
		Target:        e.Config.TargetDir,
		GetTargetHash: oracle.Map.Get,
	}

	for _, p := range e.Config.Plugins {
		if err := p.Prepare(ctx, hookCtx); err != nil {
			return Summary{}, fmt.Errorf("plugin %q prepare hook: %w", p.Path(), err)
		}
	}

	sourceBranchesRaw, err := refs.List(ctx, e.SourceDriver, e.Config.SourceDir)
	if err != nil {
		return Summary{}, e.fail(ctx, state, err)
	}
	sourceBranches, err := refs.Apply(sourceBranchesRaw, refs.FilterOptions{Include: e.Config.IncludeBranches, Exclude: e.Config.ExcludeBranches})
	if err != nil {
		return Summary{}, e.fail(ctx, state, err)
	}

	if err := deleteDevelopBranches(ctx, e.TargetDriver, e.Config.TargetDir, sourceBranchesRaw, e.Config.DevelopBranches, state.OrigBranch); err != nil {
		return Summary{}, e.fail(ctx, state, err)
	}
	if len(e.Config.DevelopBranches) > 0 {
		if err := resetOriginRemote(ctx, e.TargetDriver, e.Config.TargetDir); err != nil {
			return Summary{}, e.fail(ctx, state, err)
		}
	}

	diverter := conflict.New(e.SourceDriver, e.Config.SourceDir, translation.SourcePaths, e.TargetDriver, e.Config.TargetDir, translation.TargetPaths)

	var summary Summary
	if e.Config.Squash {
		summary, err = e.runSquash(ctx, state, translation, sourceBranches, oracle)
	} else {
		summary, err = e.runProjection(ctx, state, translation, sourceBranches, oracle, diverter, hookCtx)
	}
	if err != nil {
		return summary, e.fail(ctx, state, err)
	}

	if state.CurrentBranch != state.OrigBranch && state.OrigBranch != "" {
		if err := e.TargetDriver.Checkout(ctx, e.Config.TargetDir, state.OrigBranch); err != nil {
			return summary, e.fail(ctx, state, err)
		}
	}

	if len(state.ConflictBranches) > 0 {
		summary.ConflictBranches = state.ConflictBranches
		e.teardown(ctx, state)
		return summary, &ErrConflict{Branches: state.ConflictBranches}
	}

	if !e.Config.NoTags {
		tagResults, err := e.reconcileTags(ctx, translation, oracle)
		if err != nil {
			return summary, e.fail(ctx, state, err)
		}
		summary.Tags = tagResults
	}

	e.teardown(ctx, state)
	return summary, nil
}

func (e *Engine) runProjection(ctx context.Context, state *State, translation pathspec.Translation, sourceBranches []string, oracle *identity.Oracle, diverter *conflict.Diverter, hookCtx plugin.HookContext) (Summary, error) {
	sourceExpander := e.expander(e.SourceDriver, e.Config.SourceDir, translation.SourcePaths)
	targetExpander := e.expander(e.TargetDriver, e.Config.TargetDir, translation.TargetPaths)

	sourceEntries, err := logscan.Scan(ctx, e.SourceDriver, e.Config.SourceDir, logscan.Options{
		Refs:     sourceBranches,
		After:    e.Config.After,
		MaxCount: e.Config.MaxCount,
		Paths:    translation.SourcePaths,
	}, sourceExpander, nil)
	if err != nil {
		return Summary{}, err
	}

	targetEntries, err := logscan.Scan(ctx, e.TargetDriver, e.Config.TargetDir, logscan.Options{
		All:   true,
		Paths: translation.TargetPaths,
	}, targetExpander, nil)
	if err != nil {
		return Summary{}, err
	}

	newEntries := logscan.NewInTarget(sourceEntries, targetEntries)
	isContains, isHistorical := patch.ContainsHistorical(sourceEntries, targetEntries, newEntries)
	state.IsContains, state.IsHistorical = isContains, isHistorical

	applier := patch.New(patch.Deps{
		SourceDriver: e.SourceDriver,
		SourceDir:    e.Config.SourceDir,
		SourcePaths:  translation.SourcePaths,
		SourceSubdir: e.Config.SourceSubdir,
		SourceDepth:  pathDepth(e.Config.SourceSubdir),

		TargetDirectory: applyDirectoryFlag(e.Config.TargetSubdir),
		TargetDriver:    e.TargetDriver,
		TargetDir:       e.Config.TargetDir,
		TargetPaths:     translation.TargetPaths,
		TargetSubdir:    e.Config.TargetSubdir,

		Oracle:         oracle,
		Diverter:       diverter,
		PreserveCommit: e.Config.PreserveCommit,
		GitsyncUpdate:  e.Config.GitsyncUpdate,
		BeforeCommit:   e.beforeCommitHook(hookCtx),
	})

	// The overwrite fallback's auxiliary worktree lives for this projection
	// pass only; it is removed on every exit path.
	defer func() { _ = applier.TeardownAuxWorktree(ctx) }()

	runCtx := patch.Context{CurrentBranch: state.CurrentBranch, DefaultBranch: state.DefaultBranch, IsContains: isContains, IsHistorical: isHistorical}

	for i := len(newEntries) - 1; i >= 0; i-- {
		entry := newEntries[i]
		res, err := applier.Apply(ctx, entry, runCtx)
		if err != nil {
			return Summary{}, fmt.Errorf("project commit %s: %w", entry.Hash, err)
		}
		runCtx.CurrentBranch = res.CurrentBranch
		if res.FirstFailureUsed {
			runCtx.FirstFailureConsumed = true
		}
		if res.NewTempBranch != "" {
			state.TempBranches = append(state.TempBranches, res.NewTempBranch)
		}
		if res.DivertedBranch != "" {
			state.ConflictBranches = append(state.ConflictBranches, strings.TrimSuffix(res.DivertedBranch, conflict.ConflictBranchSuffix))
		}
	}
	state.CurrentBranch = runCtx.CurrentBranch

	targetBranchesRaw, err := refs.List(ctx, e.TargetDriver, e.Config.TargetDir)
	if err != nil {
		return Summary{}, err
	}
	existingTargetBranches := make(map[string]string, len(targetBranchesRaw))
	for _, b := range targetBranchesRaw {
		hash, err := e.TargetDriver.RevParseQuiet(ctx, e.Config.TargetDir, b)
		if err != nil {
			return Summary{}, err
		}
		if hash != "" {
			existingTargetBranches[b] = hash
		}
	}

	branchResults, err := branches.Reconcile(ctx, branches.Deps{
		SourceDriver: e.SourceDriver,
		SourceDir:    e.Config.SourceDir,
		SourcePaths:  translation.SourcePaths,
		TargetDriver: e.TargetDriver,
		TargetDir:    e.Config.TargetDir,
		Oracle:       oracle,
		Diverter:     diverter,
		SkipEven:     e.Config.SkipEvenBranch,
		CurrentBranch: state.OrigBranch,
	}, sourceBranches, existingTargetBranches)
	if err != nil {
		return Summary{}, err
	}
	for _, r := range branchResults {
		if r.Outcome == branches.OutcomeDiverged {
			state.ConflictBranches = append(state.ConflictBranches, r.Branch)
		}
	}

	return Summary{
		CommitsNew:    len(newEntries),
		CommitsExists: len(sourceEntries) - len(newEntries),
		CommitsSource: len(sourceEntries),
		CommitsTarget: len(targetEntries),
		Branches:      branchResults,
	}, nil
}

func (e *Engine) runSquash(ctx context.Context, state *State, translation pathspec.Translation, sourceBranches []string, oracle *identity.Oracle) (Summary, error) {
	ranges := squash.NewRangeIndex()
	oracle.Squash = ranges.Lookup

	syncer := squash.New(squash.Deps{
		SourceDriver: e.SourceDriver,
		SourceDir:    e.Config.SourceDir,
		SourcePaths:  translation.SourcePaths,
		SourceSubdir: e.Config.SourceSubdir,
		Depth:        pathDepth(e.Config.SourceSubdir),

		TargetDriver: e.TargetDriver,
		TargetDir:    e.Config.TargetDir,
		TargetSubdir: e.Config.TargetSubdir,

		PreserveCommit: e.Config.PreserveCommit,
		GitsyncUpdate:  e.Config.GitsyncUpdate,
		Ranges:         ranges,
	})

	baseBranch := e.Config.SquashBaseBranch
	if baseBranch == "" && len(sourceBranches) > 0 {
		baseBranch = sourceBranches[0]
	}
	if baseBranch != "" {
		if tip, err := e.SourceDriver.RevParseQuiet(ctx, e.Config.SourceDir, baseBranch); err != nil || tip == "" {
			return Summary{}, &ErrSquashBaseMissing{Branch: baseBranch}
		}
	}

	sourceExpander := e.expander(e.SourceDriver, e.Config.SourceDir, translation.SourcePaths)
	targetExpander := e.expander(e.TargetDriver, e.Config.TargetDir, translation.TargetPaths)

	var results []squash.Result
	var totalNew, totalSource int
	for _, branch := range sourceBranches {
		tip, err := e.SourceDriver.RevParseQuiet(ctx, e.Config.SourceDir, branch)
		if err != nil || tip == "" {
			continue
		}
		sourceEntries, err := logscan.Scan(ctx, e.SourceDriver, e.Config.SourceDir, logscan.Options{Refs: []string{branch}, Paths: translation.SourcePaths}, sourceExpander, nil)
		if err != nil {
			return Summary{}, err
		}
		totalSource += len(sourceEntries)

		existingTip, err := e.TargetDriver.RevParseQuiet(ctx, e.Config.TargetDir, branch)
		if err != nil {
			return Summary{}, err
		}
		var targetEntries []logscan.Entry
		if existingTip != "" {
			targetEntries, err = logscan.Scan(ctx, e.TargetDriver, e.Config.TargetDir, logscan.Options{Refs: []string{branch}, Paths: translation.TargetPaths}, targetExpander, nil)
			if err != nil {
				return Summary{}, err
			}
		}

		baseTip, _ := e.TargetDriver.RevParseQuiet(ctx, e.Config.TargetDir, baseBranch)
		res, err := syncer.SyncBranch(ctx, squash.Input{
			Branch:          branch,
			SourceBranchTip: tip,
			SourceEntries:   sourceEntries,
			TargetEntries:   targetEntries,
			TargetExists:    existingTip != "",
			IsBaseBranch:    branch == baseBranch,
			BaseTargetTip:   baseTip,
		})
		if err != nil {
			return Summary{}, fmt.Errorf("squash branch %q: %w", branch, err)
		}
		if res.Outcome != squash.OutcomeUpToDate {
			totalNew++
		}
		results = append(results, res)
	}

	return Summary{
		CommitsNew:    totalNew,
		CommitsSource: totalSource,
	}, nil
}

func (e *Engine) reconcileTags(ctx context.Context, translation pathspec.Translation, oracle *identity.Oracle) ([]tags.Result, error) {
	sourceOut, err := e.SourceDriver.ListTagsDeref(ctx, e.Config.SourceDir)
	if err != nil {
		return nil, err
	}
	targetOut, err := e.TargetDriver.ListTagsDeref(ctx, e.Config.TargetDir)
	if err != nil {
		return nil, err
	}

	sourceTags := tags.List(sourceOut)
	existingNames := make(map[string]bool)
	for _, t := range tags.List(targetOut) {
		existingNames[t.Name] = true
	}

	return tags.Reconcile(ctx, tags.Deps{
		SourceDriver: e.SourceDriver,
		SourceDir:    e.Config.SourceDir,
		TargetDriver: e.TargetDriver,
		TargetDir:    e.Config.TargetDir,
		Oracle:       oracle,
		Squash:       tags.SquashLookup(oracle.Squash),
	}, sourceTags, existingNames, tags.Options{
		AddTagPrefix:    e.Config.AddTagPrefix,
		RemoveTagPrefix: e.Config.RemoveTagPrefix,
		Include:         e.Config.IncludeTags,
		Exclude:         e.Config.ExcludeTags,
	})
}

func (e *Engine) expander(driver *gitcmd.Driver, dir string, paths []string) logscan.Expander {
	return func(ctx context.Context, start, end string) ([]logscan.Entry, error) {
		return logscan.Scan(ctx, driver, dir, logscan.Options{Refs: []string{start + ".." + end}, Paths: paths}, e.expander(driver, dir, paths), nil)
	}
}

func (e *Engine) beforeCommitHook(hookCtx plugin.HookContext) func(ctx context.Context, sourceHash string) error {
	if len(e.Config.Plugins) == 0 {
		return nil
	}
	return func(ctx context.Context, sourceHash string) error {
		for _, p := range e.Config.Plugins {
			if err := p.BeforeCommit(ctx, hookCtx, sourceHash); err != nil {
				return fmt.Errorf("plugin %q beforeCommit hook: %w", p.Path(), err)
			}
		}
		return nil
	}
}

func (e *Engine) fail(ctx context.Context, state *State, cause error) error {
	e.teardown(ctx, state)
	return cause
}

func (e *Engine) teardown(ctx context.Context, state *State) {
	for _, b := range state.TempBranches {
		_ = e.TargetDriver.DeleteBranch(ctx, e.Config.TargetDir, b)
	}
	for _, p := range e.Config.Plugins {
		_ = p.Close()
	}
}

// RecoveryMessage renders the bit-exact error-recovery recipe (spec.md
// §6) for a failed run, using the state captured by the most recent Run
// call. Safe to call with no prior Run (renders the empty-repository
// recipe).
func (e *Engine) RecoveryMessage() string {
	var initHash string
	if e.LastState != nil {
		initHash = e.LastState.InitHash
	}
	return errorRecoveryMessage(e.Config.Verbose, initHash)
}

// ConflictMessage renders the bit-exact conflict-recovery recipe for a
// run that failed with ErrConflict.
func (e *Engine) ConflictMessage(branchNames []string) string {
	return conflictRecoveryMessage(e.Config.TargetDir, e.Config.TargetSubdir, branchNames)
}

func pathDepth(subdir string) int {
	subdir = strings.Trim(subdir, "/")
	if subdir == "" || subdir == "." {
		return 1
	}
	return strings.Count(subdir, "/") + 2
}

// applyDirectoryFlag derives the `git apply --directory` value for the
// target side: the configured target subdir with any trailing slash
// trimmed, or empty when the target subdir is the repository root.
func applyDirectoryFlag(targetSubdir string) string {
	if targetSubdir == "" || targetSubdir == "./" || targetSubdir == "." {
		return ""
	}
	return strings.TrimSuffix(targetSubdir, "/")
}
