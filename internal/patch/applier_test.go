package patch_test

import (
	"context"
	"strings"
	"testing"

	"github.com/skaphos/gitsync/internal/conflict"
	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/identity"
	"github.com/skaphos/gitsync/internal/logscan"
	"github.com/skaphos/gitsync/internal/patch"
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

func TestApplySingleParentHappyPath(t *testing.T) {
	source := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/src:log -p --reverse -m --stat --binary -1 --color=never --format=%n abc123": "diff --git a/f b/f",
		"/src:show -s --format=%an|%ae|%ai|%cn|%ce|%ci|%B abc123":                       "Jane|jane@x.com|2024|Jane|jane@x.com|2024|add file",
	}})
	target := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/tgt:apply -3 --ignore-whitespace -p1":           "",
		"/tgt:add -u":                                     "",
		"/tgt:commit --allow-empty -am add file":          "",
		"/tgt:rev-parse HEAD":                              "deadbeef",
	}})

	oracle := identity.New(target, "/tgt", nil, nil)
	applier := patch.New(patch.Deps{
		SourceDriver: source,
		SourceDir:    "/src",
		SourceDepth:  1,
		TargetDriver: target,
		TargetDir:    "/tgt",
		Oracle:       oracle,
		Diverter:     conflict.New(source, "/src", nil, target, "/tgt", nil),
	})

	entry := logscan.Entry{Hash: "abc123", ParentHashes: []string{"parent1"}, OnCurrentLine: true, Subject: "add file"}
	res, err := applier.Apply(context.Background(), entry, patch.Context{CurrentBranch: "main", DefaultBranch: "main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TargetHash != "deadbeef" {
		t.Fatalf("unexpected target hash: %q", res.TargetHash)
	}
	if hash, ok := oracle.Map.Get("abc123"); !ok || hash != "deadbeef" {
		t.Fatalf("expected identity map entry, got %q, %v", hash, ok)
	}
}

func TestApplyNonTrunkEntryCreatesTempBranch(t *testing.T) {
	source := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/src:log --format=%ct %at %B -1 parent1":                                         "100 100 parent commit",
		"/src:log -p --reverse -m --stat --binary -1 --color=never --format=%n abc123":     "diff",
		"/src:show -s --format=%an|%ae|%ai|%cn|%ce|%ci|%B abc123":                          "Jane|jane@x.com|2024|Jane|jane@x.com|2024|branch commit",
	}})
	target := gitcmd.New(&keyedRunner{responses: map[string]string{
		"/tgt:log --format=%H --fixed-strings --grep=parent commit --after=100 --before=100 --all": "parenttgt\n",
		"/tgt:branch -f sync-parent1 parenttgt":  "",
		"/tgt:checkout sync-parent1":             "",
		"/tgt:apply -3 --ignore-whitespace -p1":  "",
		"/tgt:add -u":                            "",
		"/tgt:commit --allow-empty -am branch commit": "",
		"/tgt:rev-parse HEAD":                     "newhash",
	}})

	oracle := identity.New(target, "/tgt", nil, nil)
	applier := patch.New(patch.Deps{
		SourceDriver: source,
		SourceDir:    "/src",
		SourceDepth:  1,
		TargetDriver: target,
		TargetDir:    "/tgt",
		Oracle:       oracle,
		Diverter:     conflict.New(source, "/src", nil, target, "/tgt", nil),
	})

	entry := logscan.Entry{Hash: "abc123", ParentHashes: []string{"parent1"}, OnCurrentLine: false, Subject: "branch commit"}
	res, err := applier.Apply(context.Background(), entry, patch.Context{CurrentBranch: "main", DefaultBranch: "main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewTempBranch != "sync-parent1" {
		t.Fatalf("expected temp branch sync-parent1, got %q", res.NewTempBranch)
	}
	if res.CurrentBranch != "sync-parent1" {
		t.Fatalf("expected current branch to move to temp branch, got %q", res.CurrentBranch)
	}
}
