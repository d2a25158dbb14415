package logscan

import "regexp"

var squashMarkerPattern = regexp.MustCompile(`^chore\(sync\): squash commits from (\S+) to (\S+)$`)

// SquashMarker reports whether subject is a squash-commit marker, returning
// the range's start and end hashes when it is.
func SquashMarker(subject string) (start, end string, ok bool) {
	m := squashMarkerPattern.FindStringSubmatch(subject)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
