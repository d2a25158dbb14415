package logscan

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLine parses a single `--graph --format=#%H %P-%at %s` row. Only rows
// carrying a commit node marker `*` are kept; pure graph-art rows (`|\`,
// `|/`, …) are decoration-only and return ok=false. The position of `*`
// relative to the rest of the graph-art prefix determines OnCurrentLine.
func parseLine(line string) (Entry, bool, error) {
	starIdx := strings.IndexByte(line, '*')
	if starIdx < 0 {
		return Entry{}, false, nil
	}
	// A row sits on the current (trunk) line only when its node marker is
	// the first non-whitespace rune; anything preceded by `|`/`\`/`/` graph
	// art is a commit reached off the main line of the walk.
	onCurrentLine := strings.TrimSpace(line[:starIdx]) == ""

	idx := strings.IndexByte(line, '#')
	if idx < 0 {
		return Entry{}, false, nil
	}
	row := line[idx+1:]

	// Split on the first '-', the literal separator between %P and %at in
	// the format string. Hex hashes never contain '-', so this is
	// unambiguous regardless of subject content.
	dashIdx := strings.IndexByte(row, '-')
	if dashIdx < 0 {
		return Entry{}, false, fmt.Errorf("malformed log row: %q", line)
	}
	left := row[:dashIdx]
	right := row[dashIdx+1:]

	leftFields := strings.Fields(left)
	if len(leftFields) == 0 {
		return Entry{}, false, fmt.Errorf("malformed log row, missing hash: %q", line)
	}
	hash := leftFields[0]
	parents := leftFields[1:]

	spaceIdx := strings.IndexByte(right, ' ')
	var tsField, subject string
	if spaceIdx < 0 {
		tsField, subject = right, ""
	} else {
		tsField, subject = right[:spaceIdx], right[spaceIdx+1:]
	}
	ts, err := strconv.ParseInt(tsField, 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("malformed author timestamp in %q: %w", line, err)
	}

	return Entry{
		Hash:          hash,
		ParentHashes:  parents,
		AuthorTS:      ts,
		Subject:       subject,
		OnCurrentLine: onCurrentLine,
	}, true, nil
}
