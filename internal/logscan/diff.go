package logscan

// NewInTarget returns the entries from source whose value (`<author_ts>
// <subject>`) does not appear among target's values — a value-level
// comparison, not a key-level one, since the same commit carries different
// hashes on each side.
func NewInTarget(source, target []Entry) []Entry {
	targetValues := make(map[string]struct{}, len(target))
	for _, e := range target {
		targetValues[e.Value()] = struct{}{}
	}
	var out []Entry
	for _, e := range source {
		if _, exists := targetValues[e.Value()]; !exists {
			out = append(out, e)
		}
	}
	return out
}
