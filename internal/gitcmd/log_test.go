package gitcmd_test

import (
	"context"
	"testing"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

func TestGraphLogBuildsArgsFromOptions(t *testing.T) {
	runner := &MockRunner{Responses: map[string]MockResponse{
		"/repo:log --graph --format=#%H %P-%at %s --full-history --simplify-merges --after=100 -5 main -- sub/dir": {
			Output: "#abc -100 msg",
		},
	}}
	d := gitcmd.New(runner)

	out, err := d.GraphLog(context.Background(), "/repo", gitcmd.GraphLogOptions{
		Refs:     []string{"main"},
		After:    100,
		MaxCount: 5,
		Paths:    []string{"sub/dir"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "#abc -100 msg" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestGraphLogOmitsPathTerminatorAtRoot(t *testing.T) {
	runner := &MockRunner{Responses: map[string]MockResponse{
		"/repo:log --graph --format=#%H %P-%at %s --full-history --simplify-merges": {
			Output: "#abc -100 msg",
		},
	}}
	d := gitcmd.New(runner)

	out, err := d.GraphLog(context.Background(), "/repo", gitcmd.GraphLogOptions{
		Paths: []string{"./"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "#abc -100 msg" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestShowCommitMetaParsesTriple(t *testing.T) {
	runner := &MockRunner{Responses: map[string]MockResponse{
		"/repo:log --format=%ct %at %B -1 abc123": {Output: "1000 900 subject line\nbody continues"},
	}}
	d := gitcmd.New(runner)

	meta, err := d.ShowCommitMeta(context.Background(), "/repo", "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.CommitterTS != 1000 || meta.AuthorTS != 900 {
		t.Fatalf("unexpected timestamps: %+v", meta)
	}
	if meta.Body != "subject line\nbody continues" {
		t.Fatalf("unexpected body: %q", meta.Body)
	}
}

func TestSearchByMessageOmitsPathTerminatorAtRoot(t *testing.T) {
	runner := &MockRunner{Responses: map[string]MockResponse{
		"/repo:log --format=%H --fixed-strings --grep=hello": {Output: "abc123\n"},
	}}
	d := gitcmd.New(runner)

	out, err := d.SearchByMessage(context.Background(), "/repo", gitcmd.SearchByMessageOptions{
		Grep:  "hello",
		Paths: []string{"./"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "abc123\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSearchByMessageWithAuthorTS(t *testing.T) {
	runner := &MockRunner{Responses: map[string]MockResponse{
		"/repo:log --format=%H %at --fixed-strings --grep=hello --all": {Output: "abc123 100\n"},
	}}
	d := gitcmd.New(runner)

	out, err := d.SearchByMessage(context.Background(), "/repo", gitcmd.SearchByMessageOptions{
		Grep:         "hello",
		All:          true,
		WithAuthorTS: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "abc123 100\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}
