// Package tags implements the tag reconciler (C9): projects source tags
// onto the target, preserving annotated-vs-lightweight status and
// applying prefix/include/exclude transforms.
package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/identity"
)

// Entry is a single enumerated tag: Hash is already peeled to the commit
// it ultimately points at (the dereferenced hash for an annotated tag, the
// ref hash itself for a lightweight one).
type Entry struct {
	Name      string
	Hash      string
	Annotated bool
}

// Options configures the prefix and include/exclude transforms.
type Options struct {
	AddTagPrefix    string
	RemoveTagPrefix string
	Include         []string
	Exclude         []string
}

// Outcome classifies what a single tag reconciliation produced.
type Outcome string

const (
	OutcomeCreated       Outcome = "created"
	OutcomeSkippedExists Outcome = "skipped-exists"
	OutcomeUnresolved    Outcome = "unresolved"
)

// Result reports the per-tag outcome.
type Result struct {
	SourceName string
	TargetName string
	Outcome    Outcome
	Detail     string
}

// List parses `git show-ref --tags -d` output into peeled Entry values.
func List(out string) []Entry {
	byName := make(map[string]*Entry)
	var order []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		hash, ref := fields[0], fields[1]
		if !strings.HasPrefix(ref, "refs/tags/") {
			continue
		}
		ref = strings.TrimPrefix(ref, "refs/tags/")
		if strings.HasSuffix(ref, "^{}") {
			name := strings.TrimSuffix(ref, "^{}")
			if e, ok := byName[name]; ok {
				e.Hash = hash
				e.Annotated = true
			}
			continue
		}
		if _, exists := byName[ref]; !exists {
			order = append(order, ref)
		}
		byName[ref] = &Entry{Name: ref, Hash: hash}
	}
	out2 := make([]Entry, 0, len(order))
	for _, name := range order {
		out2 = append(out2, *byName[name])
	}
	return out2
}

// TargetName applies the remove-then-add prefix transform to a source tag
// name.
func TargetName(sourceName string, opts Options) string {
	name := strings.TrimPrefix(sourceName, opts.RemoveTagPrefix)
	return opts.AddTagPrefix + name
}

// effectiveInclude synthesizes the implicit `<removeTagPrefix>*` include
// pattern when RemoveTagPrefix is set.
func effectiveInclude(opts Options) []string {
	include := opts.Include
	if opts.RemoveTagPrefix != "" {
		include = append(append([]string{}, include...), opts.RemoveTagPrefix+"*")
	}
	if len(include) == 0 {
		include = []string{"**"}
	}
	return include
}

func matches(name string, opts Options) (bool, error) {
	include := effectiveInclude(opts)
	included := false
	for _, p := range include {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid tag include glob %q: %w", p, err)
		}
		if ok {
			included = true
			break
		}
	}
	if !included {
		return false, nil
	}
	for _, p := range opts.Exclude {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("invalid tag exclude glob %q: %w", p, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

// SquashLookup resolves a source commit hash that falls inside a squashed
// range to the target hash representing that range.
type SquashLookup func(sourceHash string) (targetHash string, ok bool)

// Deps wires the reconciler's collaborators for a single run.
type Deps struct {
	SourceDriver *gitcmd.Driver
	SourceDir    string
	TargetDriver *gitcmd.Driver
	TargetDir    string
	Oracle       *identity.Oracle
	Squash       SquashLookup
}

// Reconcile diffs sourceTags against existingTargetNames by name, applies
// the include/exclude/prefix transforms, resolves each retained tag's
// commit, and creates it on target.
func Reconcile(ctx context.Context, deps Deps, sourceTags []Entry, existingTargetNames map[string]bool, opts Options) ([]Result, error) {
	var results []Result
	for _, tag := range sourceTags {
		targetName := TargetName(tag.Name, opts)

		ok, err := matches(tag.Name, opts)
		if err != nil {
			return results, err
		}
		if !ok {
			continue
		}
		if existingTargetNames[targetName] {
			results = append(results, Result{SourceName: tag.Name, TargetName: targetName, Outcome: OutcomeSkippedExists})
			continue
		}

		targetHash, err := deps.Oracle.Resolve(ctx, deps.SourceDriver, deps.SourceDir, tag.Hash)
		if err != nil {
			return results, err
		}
		if targetHash == "" && deps.Squash != nil {
			if h, ok := deps.Squash(tag.Hash); ok {
				targetHash = h
			}
		}
		if targetHash == "" {
			results = append(results, Result{SourceName: tag.Name, TargetName: targetName, Outcome: OutcomeUnresolved, Detail: fmt.Sprintf("Tag %q: commit not found in target repository, skipping", tag.Name)})
			continue
		}

		msg := ""
		if tag.Annotated {
			msg, err = deps.SourceDriver.TagMessage(ctx, deps.SourceDir, tag.Name)
			if err != nil {
				return results, err
			}
		}
		if err := deps.TargetDriver.CreateTag(ctx, deps.TargetDir, targetName, targetHash, msg); err != nil {
			return results, err
		}
		results = append(results, Result{SourceName: tag.Name, TargetName: targetName, Outcome: OutcomeCreated})
	}
	return results, nil
}
