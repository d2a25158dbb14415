package gitsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitsync/internal/cliio"
	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/history"
	"github.com/skaphos/gitsync/internal/plugin"
	"github.com/skaphos/gitsync/internal/sortutil"
	"github.com/skaphos/gitsync/internal/syncrun"
	"github.com/skaphos/gitsync/internal/termstyle"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Project commits, branches, and tags from a source repository into a target repository",
	RunE:  runSync,
}

func init() {
	flags := syncCmd.Flags()
	flags.String("source", "", "path to the source repository (required)")
	flags.String("source-subdir", "", "subdirectory of the source repository to project")
	flags.String("target", "", "path to the target repository (required)")
	flags.String("target-subdir", "", "subdirectory of the target repository to write into")
	flags.StringSlice("include-branch", nil, "glob(s) of branches to include (default: all)")
	flags.StringSlice("exclude-branch", nil, "glob(s) of branches to exclude")
	flags.StringSlice("include-tag", nil, "glob(s) of tags to include (default: all)")
	flags.StringSlice("exclude-tag", nil, "glob(s) of tags to exclude")
	flags.String("add-tag-prefix", "", "prefix to add to every synced tag name")
	flags.String("remove-tag-prefix", "", "prefix to strip from every synced tag name")
	flags.Bool("no-tags", false, "skip tag reconciliation")
	flags.Bool("preserve-commit", false, "preserve the source commit's author/committer identity and timestamp")
	flags.StringSlice("filter", nil, "path filter(s) scoping which files are projected")
	flags.Bool("squash", false, "squash each branch's new commits into a single commit per sync instead of projecting them individually")
	flags.String("squash-base-branch", "", "branch the squash base commit is seeded from")
	flags.StringSlice("develop-branch", nil, "glob(s) of branches to delete from the target before syncing")
	flags.Bool("skip-even-branch", false, "skip a branch whose resolved tip is already the tip of another target branch")
	flags.StringSlice("plugin", nil, "path(s) to plugin sidecar executables")
	flags.Bool("yes", false, "skip the confirmation prompt before deleting develop branches")

	if err := syncCmd.MarkFlagRequired("source"); err != nil {
		panic(err)
	}
	if err := syncCmd.MarkFlagRequired("target"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	source, _ := flags.GetString("source")
	sourceSubdir, _ := flags.GetString("source-subdir")
	target, _ := flags.GetString("target")
	targetSubdir, _ := flags.GetString("target-subdir")
	includeBranch, _ := flags.GetStringSlice("include-branch")
	excludeBranch, _ := flags.GetStringSlice("exclude-branch")
	includeTag, _ := flags.GetStringSlice("include-tag")
	excludeTag, _ := flags.GetStringSlice("exclude-tag")
	addTagPrefix, _ := flags.GetString("add-tag-prefix")
	removeTagPrefix, _ := flags.GetString("remove-tag-prefix")
	noTags, _ := flags.GetBool("no-tags")
	preserveCommit, _ := flags.GetBool("preserve-commit")
	filters, _ := flags.GetStringSlice("filter")
	squash, _ := flags.GetBool("squash")
	squashBaseBranch, _ := flags.GetString("squash-base-branch")
	developBranch, _ := flags.GetStringSlice("develop-branch")
	skipEvenBranch, _ := flags.GetBool("skip-even-branch")
	pluginPaths, _ := flags.GetStringSlice("plugin")
	assumeYes, _ := flags.GetBool("yes")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(developBranch) > 0 && !assumeYes {
		confirmed, err := cliio.PromptYesNo(cmd.OutOrStdout(), cmd.InOrStdin(),
			fmt.Sprintf("This will delete target branches matching %v before syncing. Continue? [y/N] ", developBranch))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "aborted: develop-branch deletion declined")
			raiseExitCode(1)
			return nil
		}
	}

	plugins, closePlugins, err := loadPlugins(ctx, pluginPaths)
	if err != nil {
		return err
	}
	defer closePlugins()

	engine := syncrun.New(gitcmd.New(nil), gitcmd.New(nil), syncrun.RunConfig{
		SourceDir:        source,
		SourceSubdir:     sourceSubdir,
		TargetDir:        target,
		TargetSubdir:     targetSubdir,
		IncludeBranches:  includeBranch,
		ExcludeBranches:  excludeBranch,
		IncludeTags:      includeTag,
		ExcludeTags:      excludeTag,
		AddTagPrefix:     addTagPrefix,
		RemoveTagPrefix:  removeTagPrefix,
		NoTags:           noTags,
		PreserveCommit:   preserveCommit,
		Filters:          filters,
		Squash:           squash,
		SquashBaseBranch: squashBaseBranch,
		DevelopBranches:  developBranch,
		SkipEvenBranch:   skipEvenBranch,
		Plugins:          plugins,
		GitsyncUpdate:    os.Getenv("GITSYNC_UPDATE"),
		Verbose:          flagVerbose > 0,
	})

	slog.Info("sync starting", "source", source, "target", target, "squash", squash)
	summary, runErr := engine.Run(ctx)
	recordHistory(source, sourceSubdir, target, targetSubdir, summary, runErr)

	if runErr != nil {
		slog.Error("sync failed", "source", source, "target", target, "class", gitcmd.ClassifyError(runErr), "error", runErr)
		return reportSyncError(cmd, engine, runErr)
	}

	slog.Info("sync completed", "source", source, "target", target,
		"commits_new", summary.CommitsNew, "conflicts", len(summary.ConflictBranches))
	return reportSyncSummary(cmd, summary)
}

func loadPlugins(ctx context.Context, paths []string) ([]plugin.Plugin, func(), error) {
	if len(paths) == 0 {
		return nil, func() {}, nil
	}
	plugins := make([]plugin.Plugin, 0, len(paths))
	for _, p := range paths {
		sc, err := plugin.New(ctx, p)
		if err != nil {
			for _, loaded := range plugins {
				_ = loaded.Close()
			}
			return nil, func() {}, fmt.Errorf("load plugin %q: %w", p, err)
		}
		plugins = append(plugins, sc)
	}
	return plugins, func() {
		for _, p := range plugins {
			_ = p.Close()
		}
	}, nil
}

func reportSyncError(cmd *cobra.Command, engine *syncrun.Engine, runErr error) error {
	var conflict *syncrun.ErrConflict
	if errors.As(runErr, &conflict) {
		raiseExitCode(2)
		fmt.Fprintln(cmd.OutOrStdout(), engine.ConflictMessage(conflict.Branches))
		return nil
	}

	raiseExitCode(3)
	fmt.Fprintln(cmd.ErrOrStderr(), engine.RecoveryMessage())
	return runErr
}

func reportSyncSummary(cmd *cobra.Command, summary syncrun.Summary) error {
	sortutil.SortBranchResults(summary.Branches)
	sortutil.SortTagResults(summary.Tags)

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, summary.CommitsLine())

	color := shouldUseColorOutput(cmd)
	if len(summary.Branches) > 0 {
		fmt.Fprintln(out, "Branches:")
		rows := make([][]string, 0, len(summary.Branches))
		for _, b := range summary.Branches {
			rows = append(rows, []string{b.Branch, colorizeOutcome(color, string(b.Outcome))})
		}
		if err := cliio.WriteTable(out, true, true, nil, rows); err != nil {
			return err
		}
	}
	if len(summary.Tags) > 0 {
		fmt.Fprintln(out, "Tags:")
		rows := make([][]string, 0, len(summary.Tags))
		for _, t := range summary.Tags {
			rows = append(rows, []string{t.TargetName, colorizeOutcome(color, string(t.Outcome))})
		}
		if err := cliio.WriteTable(out, true, true, nil, rows); err != nil {
			return err
		}
	}
	return nil
}

// colorizeOutcome highlights diverged/unresolved outcomes in red and
// created/advanced outcomes in green, matching the teacher's status-table
// semantic palette.
func colorizeOutcome(enabled bool, outcome string) string {
	switch outcome {
	case "diverged", "unresolved", "not-found":
		return termstyle.Colorize(enabled, outcome, termstyle.Error)
	case "created", "fast-forward", "advanced":
		return termstyle.Colorize(enabled, outcome, termstyle.Healthy)
	default:
		return termstyle.Colorize(enabled, outcome, termstyle.Info)
	}
}

func recordHistory(sourceDir, sourceSubdir, targetDir, targetSubdir string, summary syncrun.Summary, runErr error) {
	path, err := history.DefaultPath()
	if err != nil {
		return
	}
	ledger, err := history.Load(path)
	if err != nil {
		return
	}

	run := history.Run{
		SourceDir:    sourceDir,
		SourceSubdir: sourceSubdir,
		TargetDir:    targetDir,
		TargetSubdir: targetSubdir,
		Outcome:      history.OutcomeSucceeded,
	}
	switch {
	case runErr != nil:
		run.Outcome = history.OutcomeFailed
		run.Detail = runErr.Error()
	case len(summary.ConflictBranches) > 0:
		run.Outcome = history.OutcomeConflict
		run.Detail = fmt.Sprintf("%d conflict branch(es)", len(summary.ConflictBranches))
	}

	ledger.Upsert(run)
	_ = history.Save(ledger, path)
}
