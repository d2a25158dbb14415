// Package pathspec translates a configured subdirectory and a list of git
// pathspec filters into the parallel source/target path lists every other
// component scopes its git invocations with.
package pathspec

import "strings"

// magicPrefixes are the git pathspec "magic" prefixes recognized on a
// filter's head; the tail after the prefix is what gets rejoined against a
// subdir.
var magicPrefixes = []string{":^", ":!", ":/", ":("}

// Translation holds the parallel path lists a run scopes its git commands
// with.
type Translation struct {
	SourcePaths []string
	TargetPaths []string
}

// Normalize resolves the `##` escape and the `#<alias>` suffix on a raw
// subdir string, returning the cleaned subdir (still ending in `/`, or
// `./` for root) and the alias name, if any. The alias is not consumed by
// the engine; it exists for the config collaborator.
func Normalize(raw string) (subdir, alias string) {
	raw = strings.ReplaceAll(raw, "##", "\x00")
	if idx := strings.LastIndexByte(raw, '#'); idx >= 0 {
		alias = raw[idx+1:]
		raw = raw[:idx]
	}
	raw = strings.ReplaceAll(raw, "\x00", "#")
	if raw == "" || raw == "." {
		raw = "./"
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, alias
}

// Translate builds the parallel source/target path lists. When filters is
// empty, the subdir itself is emitted as the sole path on each side.
// Otherwise each filter's pathspec-magic prefix is preserved and its tail
// rejoined against the respective subdir.
func Translate(sourceSubdir, targetSubdir string, filters []string) Translation {
	if len(filters) == 0 {
		return Translation{
			SourcePaths: []string{sourceSubdir},
			TargetPaths: []string{targetSubdir},
		}
	}
	t := Translation{
		SourcePaths: make([]string, 0, len(filters)),
		TargetPaths: make([]string, 0, len(filters)),
	}
	for _, f := range filters {
		prefix, tail := splitMagic(f)
		t.SourcePaths = append(t.SourcePaths, prefix+joinSubdir(sourceSubdir, tail))
		t.TargetPaths = append(t.TargetPaths, prefix+joinSubdir(targetSubdir, tail))
	}
	return t
}

// NeedsPathTerminator reports whether a git invocation scoped by paths
// must append `-- <paths>`. It is false only for the single-path,
// subdir-is-root case, so root-scoped logs can still surface empty-tree
// merge commits that a `-- .` filter would otherwise drop.
func NeedsPathTerminator(paths []string) bool {
	return !(len(paths) == 1 && paths[0] == "./")
}

func splitMagic(filter string) (prefix, tail string) {
	for _, p := range magicPrefixes {
		if strings.HasPrefix(filter, p) {
			if p == ":(" {
				if idx := strings.IndexByte(filter, ')'); idx >= 0 {
					return filter[:idx+1], filter[idx+1:]
				}
			}
			return p, filter[len(p):]
		}
	}
	return "", filter
}

func joinSubdir(subdir, tail string) string {
	tail = strings.TrimPrefix(tail, "/")
	if subdir == "./" {
		if tail == "" {
			return "."
		}
		return tail
	}
	if tail == "" {
		return strings.TrimSuffix(subdir, "/")
	}
	return strings.TrimSuffix(subdir, "/") + "/" + tail
}
