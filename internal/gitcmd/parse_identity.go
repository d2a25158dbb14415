package gitcmd

import (
	"fmt"
	"strings"
)

// parseAuthorIdentity splits the `%an|%ae|%ai|%cn|%ce|%ci|%B` line. The body
// is the remainder after the sixth '|' and may itself contain '|' and
// newlines, so it is never split further.
func parseAuthorIdentity(out string) (AuthorIdentity, error) {
	parts := strings.SplitN(out, "|", 7)
	if len(parts) < 7 {
		return AuthorIdentity{}, fmt.Errorf("unexpected author identity output: %q", out)
	}
	return AuthorIdentity{
		AuthorName:     parts[0],
		AuthorEmail:    parts[1],
		AuthorDate:     parts[2],
		CommitterName:  parts[3],
		CommitterEmail: parts[4],
		CommitterDate:  parts[5],
		Body:           parts[6],
	}, nil
}
