package syncrun

import (
	"fmt"
	"strings"
)

// conflictRecoveryMessage reproduces spec.md §6's bit-exact conflict
// recovery recipe. targetDir/targetSubdir identify where the user should
// cd; branches lists the base branch names that diverged (each paired
// with its own "<name>-gitsync-conflict" counterpart).
func conflictRecoveryMessage(targetDir, targetSubdir string, branchNames []string) string {
	var lines []string
	for _, name := range branchNames {
		lines = append(lines, fmt.Sprintf("    %s conflict with %s-gitsync-conflict", name, name))
	}

	dir := targetDir
	if targetSubdir != "" && targetSubdir != "./" {
		dir = targetDir + "/" + strings.TrimSuffix(targetSubdir, "/")
	}

	return strings.Join([]string{
		"The target repository contains conflict branch[es], which need to be resolved manually.",
		"",
		"The conflict branch[es]:",
		"",
		strings.Join(lines, "\n"),
		"",
		"Please follow the steps to resolve the conflicts:",
		"",
		"    1. cd " + dir,
		"    2. git checkout BRANCH-NAME // Replace BRANCH-NAME to your branch name",
		"    3. git merge BRANCH-NAME-gitsync-conflict",
		"    4. // Follow the tips to resolve the conflicts",
		"    5. git branch -d BRANCH-NAME-gitsync-conflict // Remove temp branch",
		`    6. "gitsync ..." to sync changes back to current repository`,
	}, "\n")
}

// errorRecoveryMessage reproduces spec.md §6's bit-exact fatal-error
// recipe. verbose suppresses the "retry with verbose logs" paragraph;
// initHash is empty when the target repository was empty on entry.
func errorRecoveryMessage(verbose bool, initHash string) string {
	var b strings.Builder
	b.WriteString("Sorry, an error occurred during sync.\n")

	if !verbose {
		b.WriteString("\nTo retry your command with verbose logs, re-run with --verbose.\n")
	}

	b.WriteString("\nTo reset to previous HEAD:\n\n")
	if initHash != "" {
		b.WriteString("    git reset --hard " + initHash + "\n")
	} else {
		b.WriteString("    git rm --cached -r *\n")
		b.WriteString("    git update-ref -d HEAD\n")
	}
	return b.String()
}

// countingLine formats spec.md §6's `Commits:`/`Branches:`/`Tags:`
// summary lines: literal commas, no padding.
func countingLine(label string, counts ...string) string {
	return label + ": " + strings.Join(counts, ", ")
}

func commitsLine(newCount, existsCount, sourceCount, targetCount int) string {
	return countingLine("Commits",
		fmt.Sprintf("new: %d", newCount),
		fmt.Sprintf("exists: %d", existsCount),
		fmt.Sprintf("source: %d", sourceCount),
		fmt.Sprintf("target: %d", targetCount),
	)
}
