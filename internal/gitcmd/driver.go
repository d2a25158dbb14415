// Package gitcmd is the sole component allowed to invoke the external git
// binary. Every other package drives git through the typed methods on
// [Driver], never through os/exec directly.
package gitcmd

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a git command in a given repository directory and returns
// its stdout. Implementations may be swapped in tests.
type Runner interface {
	// Run executes git with the given args inside dir. When opts.Stdin is
	// non-nil it is piped to the process. When opts.Env is non-nil it is
	// appended to the process environment (last write wins for duplicate
	// keys, matching os/exec.Cmd.Env semantics). When opts.Mute is true a
	// non-zero exit does not produce an error; stdout is still returned.
	Run(ctx context.Context, dir string, args []string, opts RunOptions) (string, error)
}

// RunOptions carries the optional inputs to a single git invocation.
type RunOptions struct {
	// Stdin is piped to the git process when non-nil.
	Stdin []byte
	// Env is appended to the inherited process environment.
	Env []string
	// Mute suppresses the non-zero-exit error; stderr is discarded on success
	// paths and retained on the returned error only when Mute is false.
	Mute bool
}

// GitRunner is the default Runner, shelling out to the installed git binary.
type GitRunner struct {
	// Bin is the path to the git binary. Defaults to "git".
	Bin string
}

// Run implements Runner.
func (g *GitRunner) Run(ctx context.Context, dir string, args []string, opts RunOptions) (string, error) {
	bin := g.Bin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if opts.Env != nil {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := strings.TrimRight(stdout.String(), "\n")
	if err != nil && !opts.Mute {
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return out, fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), errText, err)
		}
		return out, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Driver exposes the typed git surface the projection engine requires. It
// holds no repository state of its own — every method takes the working
// directory explicitly, mirroring the teacher package's free-function style
// over a shared Runner.
type Driver struct {
	Runner Runner
}

// New creates a Driver. A nil runner defaults to GitRunner.
func New(runner Runner) *Driver {
	if runner == nil {
		runner = &GitRunner{}
	}
	return &Driver{Runner: runner}
}

func (d *Driver) run(ctx context.Context, dir string, args ...string) (string, error) {
	return d.Runner.Run(ctx, dir, args, RunOptions{})
}

func (d *Driver) runMuted(ctx context.Context, dir string, args ...string) (string, error) {
	return d.Runner.Run(ctx, dir, args, RunOptions{Mute: true})
}

func (d *Driver) runWithStdin(ctx context.Context, dir string, stdin []byte, args ...string) (string, error) {
	return d.Runner.Run(ctx, dir, args, RunOptions{Stdin: stdin})
}

func (d *Driver) runWithEnv(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	return d.Runner.Run(ctx, dir, args, RunOptions{Env: env})
}
