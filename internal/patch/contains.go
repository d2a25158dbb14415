package patch

import "github.com/skaphos/gitsync/internal/logscan"

// ContainsHistorical derives the "contains"/"historical" flags §4.6.5
// describes from the scanned source/target logs and the new-in-target
// subset.
//
// isContains is true when the target holds no commits the source does not
// already account for (every target commit already matched an existing
// source commit). isHistorical is true when the newest new commit is not
// the newest commit in the source's scanned logs — i.e. the run is
// inserting older commits into the target's past rather than advancing its
// tip. Both entries lists are assumed newest-first, matching the log
// scanner's default git-log ordering.
func ContainsHistorical(source, target, newEntries []logscan.Entry) (isContains, isHistorical bool) {
	existingCount := len(source) - len(newEntries)
	isContains = len(target) == existingCount
	if len(newEntries) == 0 || len(source) == 0 {
		isHistorical = false
		return isContains, isHistorical
	}
	isHistorical = newEntries[0].Hash != source[0].Hash
	return isContains, isHistorical
}
