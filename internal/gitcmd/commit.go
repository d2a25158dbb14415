package gitcmd

import "context"

// AuthorIdentity is the parsed `%an|%ae|%ai|%cn|%ce|%ci|%B` metadata spec.md
// §4.6.6 reads before committing, used to set GIT_AUTHOR_*/GIT_COMMITTER_*
// when preserveCommit is enabled.
type AuthorIdentity struct {
	AuthorName     string
	AuthorEmail    string
	AuthorDate     string
	CommitterName  string
	CommitterEmail string
	CommitterDate  string
	Body           string
}

// ShowAuthorIdentity runs
// `git show -s --format=%an|%ae|%ai|%cn|%ce|%ci|%B <hash>`.
func (d *Driver) ShowAuthorIdentity(ctx context.Context, dir, hash string) (AuthorIdentity, error) {
	out, err := d.run(ctx, dir, "show", "-s", "--format=%an|%ae|%ai|%cn|%ce|%ci|%B", hash)
	if err != nil {
		return AuthorIdentity{}, err
	}
	return parseAuthorIdentity(out)
}

// CommitOptions configures a single `git commit`.
type CommitOptions struct {
	// Message is the commit body (passed via -m).
	Message string
	// Identity carries GIT_AUTHOR_*/GIT_COMMITTER_* overrides. Nil means use
	// git's ambient identity.
	Identity *AuthorIdentity
	// GitsyncUpdate propagates GITSYNC_UPDATE into the commit's environment
	// when non-empty, so a sibling post-commit hook can suppress recursion.
	GitsyncUpdate string
}

// Commit runs `git commit --allow-empty -am <message>` with the identity and
// GITSYNC_UPDATE env overlay spec.md §4.6.6 describes.
func (d *Driver) Commit(ctx context.Context, dir string, opts CommitOptions) error {
	env := buildCommitEnv(opts)
	_, err := d.runWithEnv(ctx, dir, env, "commit", "--allow-empty", "-am", opts.Message)
	return err
}

func buildCommitEnv(opts CommitOptions) []string {
	var env []string
	if opts.Identity != nil {
		env = append(env,
			"GIT_AUTHOR_NAME="+opts.Identity.AuthorName,
			"GIT_AUTHOR_EMAIL="+opts.Identity.AuthorEmail,
			"GIT_AUTHOR_DATE="+opts.Identity.AuthorDate,
			"GIT_COMMITTER_NAME="+opts.Identity.CommitterName,
			"GIT_COMMITTER_EMAIL="+opts.Identity.CommitterEmail,
			"GIT_COMMITTER_DATE="+opts.Identity.CommitterDate,
		)
	}
	if opts.GitsyncUpdate != "" {
		env = append(env, "GITSYNC_UPDATE="+opts.GitsyncUpdate)
	}
	if len(env) == 0 {
		return nil
	}
	return env
}
