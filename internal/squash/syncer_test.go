package squash_test

import (
	"context"
	"strings"
	"testing"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/logscan"
	"github.com/skaphos/gitsync/internal/squash"
)

type keyedRunner struct {
	responses map[string]string
	errs      map[string]error
}

func (k *keyedRunner) Run(_ context.Context, dir string, args []string, _ gitcmd.RunOptions) (string, error) {
	key := dir + ":" + strings.Join(args, " ")
	if err, ok := k.errs[key]; ok {
		return "", err
	}
	return k.responses[key], nil
}

func TestSyncBranchCreatesBaseBranchFromEmptyTree(t *testing.T) {
	source := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/src:diff --stat --binary --color=never " + gitcmd.EmptyTreeHash + "..srctip": "1 file changed",
	}})
	target := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/tgt:checkout --orphan main":                                 "",
		"/tgt:rm -rf --cached .":                                      "",
		"/tgt:apply -3 --ignore-whitespace -p1":                       "",
		"/tgt:add -u":                                                 "",
		"/tgt:commit --allow-empty -am chore(sync): squash commits from " + gitcmd.EmptyTreeHash + " to srctip": "",
		"/tgt:rev-parse HEAD": "squashhash",
	}})

	syncer := squash.New(squash.Deps{
		SourceDriver: source,
		SourceDir:    "/src",
		Depth:        1,
		TargetDriver: target,
		TargetDir:    "/tgt",
		Ranges:       squash.NewRangeIndex(),
	})

	entries := []logscan.Entry{{Hash: "srctip", Subject: "add file"}}
	res, err := syncer.SyncBranch(context.Background(), squash.Input{
		Branch:          "main",
		SourceBranchTip: "srctip",
		SourceEntries:   entries,
		TargetExists:    false,
		IsBaseBranch:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != squash.OutcomeCreated || res.TargetHash != "squashhash" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if tgt, ok := syncer.Deps.Ranges.Lookup("srctip"); !ok || tgt != "squashhash" {
		t.Fatalf("expected range index lookup to resolve srctip, got %q, %v", tgt, ok)
	}
}

func TestSyncBranchUpToDateWhenNoNewCommits(t *testing.T) {
	syncer := squash.New(squash.Deps{
		SourceDriver: gitcmd.New(&keyedRunner{}),
		SourceDir:    "/src",
		TargetDriver: gitcmd.New(&keyedRunner{}),
		TargetDir:    "/tgt",
		Ranges:       squash.NewRangeIndex(),
	})

	entries := []logscan.Entry{{Hash: "srctip", AuthorTS: 1, Subject: "x"}}
	res, err := syncer.SyncBranch(context.Background(), squash.Input{
		Branch:          "main",
		SourceBranchTip: "srctip",
		SourceEntries:   entries,
		TargetEntries:   entries,
		TargetExists:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != squash.OutcomeUpToDate {
		t.Fatalf("expected up-to-date, got %+v", res)
	}
}

func TestSyncBranchAdvancesExistingBranchFromOldestNewEntry(t *testing.T) {
	source := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/src:diff --stat --binary --color=never old..new": "1 file changed",
	}})
	target := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/tgt:checkout main":                                                     "",
		"/tgt:apply -3 --ignore-whitespace -p1":                                  "",
		"/tgt:add -u":                                                            "",
		"/tgt:commit --allow-empty -am chore(sync): squash commits from old to new": "",
		"/tgt:rev-parse HEAD": "advancedhash",
	}})

	syncer := squash.New(squash.Deps{
		SourceDriver: source,
		SourceDir:    "/src",
		Depth:        1,
		TargetDriver: target,
		TargetDir:    "/tgt",
		Ranges:       squash.NewRangeIndex(),
	})

	sourceEntries := []logscan.Entry{
		{Hash: "new", AuthorTS: 2, Subject: "second"},
		{Hash: "old", AuthorTS: 1, Subject: "first"},
	}
	targetEntries := []logscan.Entry{
		{Hash: "prevsquash", AuthorTS: 0, Subject: "chore(sync): squash commits from a to b"},
	}

	res, err := syncer.SyncBranch(context.Background(), squash.Input{
		Branch:          "main",
		SourceBranchTip: "new",
		SourceEntries:   sourceEntries,
		TargetEntries:   targetEntries,
		TargetExists:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != squash.OutcomeAdvanced || res.Start != "old" || res.End != "new" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRangeIndexLookupFindsHashInsideRecordedRange(t *testing.T) {
	idx := squash.NewRangeIndex()
	idx.Record("tgt1", []string{"#a ", "#b a", "#c b"})

	if tgt, ok := idx.Lookup("b"); !ok || tgt != "tgt1" {
		t.Fatalf("expected lookup to find b in recorded range, got %q, %v", tgt, ok)
	}
	if _, ok := idx.Lookup("z"); ok {
		t.Fatalf("expected lookup for unrecorded hash to fail")
	}
}
