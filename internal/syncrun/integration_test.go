//go:build integration

package syncrun_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/syncrun"
)

// initRepo creates an empty repository at dir with a deterministic default
// branch and committer identity, mirroring the throwaway fixtures a real
// sync run is exercised against.
func initRepo(t *testing.T, dir string) {
	t.Helper()
	runGit(t, "", "init", "-q", "-b", "master", dir)
	runGit(t, dir, "config", "user.email", "gitsync-test@example.com")
	runGit(t, dir, "config", "user.name", "gitsync integration test")
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	baseArgs := []string{"-c", "commit.gpgsign=false"}
	cmd := exec.Command("git", append(baseArgs, args...)...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func newEngine(source, target string, cfg syncrun.RunConfig) *syncrun.Engine {
	cfg.SourceDir = source
	cfg.TargetDir = target
	return syncrun.New(gitcmd.New(nil), gitcmd.New(nil), cfg)
}

// TestBasicProjectSync is spec scenario 1: a single root-scoped commit
// projects into an empty target, and re-running is a no-op.
func TestBasicProjectSync(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source")
	target := filepath.Join(base, "target")
	initRepo(t, source)
	initRepo(t, target)

	writeFile(t, filepath.Join(source, "test.txt"), "hello\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "add test.txt")

	eng := newEngine(source, target, syncrun.RunConfig{SourceSubdir: "./", TargetSubdir: "./", PreserveCommit: true})
	summary, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if got := summary.CommitsLine(); got != "Commits: new: 1, exists: 0, source: 1, target: 0" {
		t.Fatalf("unexpected commits line: %q", got)
	}
	if got := readFile(t, filepath.Join(target, "test.txt")); got != "hello\n" {
		t.Fatalf("unexpected target content: %q", got)
	}

	summary2, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if got := summary2.CommitsLine(); got != "Commits: new: 0, exists: 1, source: 1, target: 1" {
		t.Fatalf("unexpected re-run commits line: %q", got)
	}
	if summary2.CommitsNew != 0 {
		t.Fatalf("expected idempotent re-run to add no commits, got %d", summary2.CommitsNew)
	}
}

// TestSubdirProjectionSync is spec scenario 2: projecting a source
// subdirectory strips its prefix on the way into a root target.
func TestSubdirProjectionSync(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source")
	target := filepath.Join(base, "target")
	initRepo(t, source)
	initRepo(t, target)

	writeFile(t, filepath.Join(source, "package-name", "package.txt"), "contents\n")
	runGit(t, source, "add", "package-name/package.txt")
	runGit(t, source, "commit", "-q", "-m", "add package.txt")

	eng := newEngine(source, target, syncrun.RunConfig{SourceSubdir: "package-name/", TargetSubdir: "./", PreserveCommit: true})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if _, err := os.Stat(filepath.Join(target, "package.txt")); err != nil {
		t.Fatalf("expected package.txt to exist in target: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "package-name")); !os.IsNotExist(err) {
		t.Fatalf("expected target/package-name to not exist, stat err: %v", err)
	}
}

// TestTagPrefixSync is spec scenario 3: an addTagPrefix option renames every
// projected tag.
func TestTagPrefixSync(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source")
	target := filepath.Join(base, "target")
	initRepo(t, source)
	initRepo(t, target)

	writeFile(t, filepath.Join(source, "test.txt"), "v1\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "v1")
	runGit(t, source, "tag", "0.1.0")

	writeFile(t, filepath.Join(source, "test.txt"), "v2\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "v2")
	runGit(t, source, "tag", "0.2.0")

	eng := newEngine(source, target, syncrun.RunConfig{SourceSubdir: "./", TargetSubdir: "./", AddTagPrefix: "v", PreserveCommit: true})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	tagOut := runGit(t, target, "tag", "--list")
	for _, want := range []string{"v0.1.0", "v0.2.0"} {
		if !strings.Contains(tagOut, want) {
			t.Fatalf("expected target tag %q, got tags: %q", want, tagOut)
		}
	}
}

// TestDivergenceCreatesConflictBranch is spec scenario 4: both sides edit
// the same file differently, and the source races ahead of the target.
func TestDivergenceCreatesConflictBranch(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source")
	target := filepath.Join(base, "target")
	initRepo(t, source)
	initRepo(t, target)

	writeFile(t, filepath.Join(source, "test.txt"), "base\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "base")

	eng := newEngine(source, target, syncrun.RunConfig{SourceSubdir: "./", TargetSubdir: "./", PreserveCommit: true})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("initial sync: %v", err)
	}

	writeFile(t, filepath.Join(target, "test.txt"), "new content by to repo\n")
	runGit(t, target, "add", "test.txt")
	runGit(t, target, "commit", "-q", "-m", "target diverges")

	writeFile(t, filepath.Join(source, "test.txt"), "new content by from repo\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "source diverges")

	writeFile(t, filepath.Join(source, "test.txt"), "further change\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "source diverges again")

	_, err := eng.Run(context.Background())
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if err.Error() != "conflict" {
		t.Fatalf("expected literal \"conflict\" error, got %v", err)
	}

	hash := strings.TrimSpace(runGit(t, target, "rev-parse", "--verify", "--quiet", "master-gitsync-conflict"))
	if hash == "" {
		t.Fatalf("expected master-gitsync-conflict to exist on target")
	}
	if got := readFile(t, filepath.Join(target, "test.txt")); got != "new content by to repo\n" {
		t.Fatalf("expected master's content to be unchanged, got %q", got)
	}
}

// TestMergeInHistorySync is spec scenario 5: a merge commit projects with
// its subject preserved.
func TestMergeInHistorySync(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source")
	target := filepath.Join(base, "target")
	initRepo(t, source)
	initRepo(t, target)

	writeFile(t, filepath.Join(source, "test.txt"), "base\n")
	runGit(t, source, "add", "test.txt")
	runGit(t, source, "commit", "-q", "-m", "base")

	runGit(t, source, "checkout", "-q", "-b", "branch")
	writeFile(t, filepath.Join(source, "feature.txt"), "feature\n")
	runGit(t, source, "add", "feature.txt")
	runGit(t, source, "commit", "-q", "-m", "feature work")

	runGit(t, source, "checkout", "-q", "master")
	runGit(t, source, "merge", "--no-ff", "-q", "-m", "Merge branch 'branch'", "branch")

	eng := newEngine(source, target, syncrun.RunConfig{SourceSubdir: "./", TargetSubdir: "./", PreserveCommit: true})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	subject := strings.TrimSpace(runGit(t, target, "log", "-1", "--format=%s"))
	if !strings.Contains(subject, "Merge branch 'branch'") {
		t.Fatalf("expected merge subject to be preserved, got %q", subject)
	}
}

// TestSquashToNewRepoSync is spec scenario 6: three source commits squash
// into a single target commit under a projected subdirectory.
func TestSquashToNewRepoSync(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "source")
	target := filepath.Join(base, "target")
	initRepo(t, source)
	initRepo(t, target)

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeFile(t, filepath.Join(source, name), name)
		runGit(t, source, "add", name)
		runGit(t, source, "commit", "-q", "-m", "add "+name)
	}
	sourceTip := strings.TrimSpace(runGit(t, source, "rev-parse", "HEAD"))

	eng := newEngine(source, target, syncrun.RunConfig{
		SourceSubdir: "./", TargetSubdir: "package-name/",
		Squash:         true,
		PreserveCommit: true,
	})
	if _, err := eng.Run(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	log := runGit(t, target, "log", "--format=%s")
	lines := strings.Split(strings.TrimSpace(log), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one target commit, got %d: %v", len(lines), lines)
	}
	want := "chore(sync): squash commits from " + gitcmd.EmptyTreeHash + " to " + sourceTip
	if lines[0] != want {
		t.Fatalf("unexpected squash subject: got %q, want %q", lines[0], want)
	}

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		if _, err := os.Stat(filepath.Join(target, "package-name", name)); err != nil {
			t.Fatalf("expected package-name/%s to exist: %v", name, err)
		}
	}
}
