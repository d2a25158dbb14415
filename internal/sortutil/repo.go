package sortutil

import (
	"sort"

	"github.com/skaphos/gitsync/internal/branches"
	"github.com/skaphos/gitsync/internal/history"
	"github.com/skaphos/gitsync/internal/tags"
)

// LessRepoIDPath provides deterministic ordering by repository identity first,
// then by path, reused here for branch/tag names and history run keys.
func LessRepoIDPath(repoIDI, pathI, repoIDJ, pathJ string) bool {
	if repoIDI == repoIDJ {
		return pathI < pathJ
	}
	return repoIDI < repoIDJ
}

// SortBranchResults orders branch reconciliation results by name, for the
// `Branches:` summary section (§6).
func SortBranchResults(results []branches.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Branch < results[j].Branch
	})
}

// SortTagResults orders tag reconciliation results by target tag name, for
// the `Tags:` summary section.
func SortTagResults(results []tags.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return LessRepoIDPath(results[i].TargetName, results[i].SourceName, results[j].TargetName, results[j].SourceName)
	})
}

// SortHistoryRuns orders ledger records by source path, then target path,
// so a listing of them does not depend on ledger insertion order.
func SortHistoryRuns(runs []history.Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		return LessRepoIDPath(runs[i].SourceDir, runs[i].TargetDir, runs[j].SourceDir, runs[j].TargetDir)
	})
}
