package gitcmd

import "context"

// ListTagsDeref runs `git show-ref --tags -d`, returning raw
// "<hash> refs/tags/<name>[^{}]" lines so the tag reconciler can tell
// annotated tags (which carry a trailing dereferenced line) from lightweight
// ones.
func (d *Driver) ListTagsDeref(ctx context.Context, dir string) (string, error) {
	return d.run(ctx, dir, "show-ref", "--tags", "-d")
}

// CreateTag runs `git tag <name> <hash>`, or `git tag <name> <hash> -m
// <msg>` when msg is non-empty, producing an annotated tag.
func (d *Driver) CreateTag(ctx context.Context, dir, name, hash, msg string) error {
	args := []string{"tag", name, hash}
	if msg != "" {
		args = append(args, "-m", msg)
	}
	_, err := d.run(ctx, dir, args...)
	return err
}

// TagMessage runs `git tag -l --format=%(contents) <name>` to read back an
// annotated tag's message, which the tag reconciler copies onto the tag it
// creates on the target.
func (d *Driver) TagMessage(ctx context.Context, dir, name string) (string, error) {
	return d.run(ctx, dir, "tag", "-l", "--format=%(contents)", name)
}

// DeleteTag runs `git tag -d <name>`.
func (d *Driver) DeleteTag(ctx context.Context, dir, name string) error {
	_, err := d.run(ctx, dir, "tag", "-d", name)
	return err
}
