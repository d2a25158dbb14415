package syncrun

import "github.com/skaphos/gitsync/internal/plugin"

// RunConfig is the immutable configuration for a single sync run.
type RunConfig struct {
	SourceDir    string
	SourceSubdir string
	TargetDir    string
	TargetSubdir string

	IncludeBranches []string
	ExcludeBranches []string
	IncludeTags     []string
	ExcludeTags     []string
	AddTagPrefix    string
	RemoveTagPrefix string
	NoTags          bool

	After    int64
	MaxCount int

	PreserveCommit bool
	Filters        []string

	Squash           bool
	SquashBaseBranch string

	DevelopBranches []string
	SkipEvenBranch  bool

	Plugins []plugin.Plugin

	// GitsyncUpdate propagates GITSYNC_UPDATE into every commit made on
	// the target, letting a sibling post-commit hook suppress recursion.
	GitsyncUpdate string

	// Verbose gates the "retry with verbose logs" paragraph of the
	// error-recovery message.
	Verbose bool
}

// State is the transient, mutable state a single run accumulates.
type State struct {
	InitHash         string
	CurrentBranch    string
	DefaultBranch    string
	OrigBranch       string
	IsContains       bool
	IsHistorical     bool
	ConflictBranches []string
	TempBranches     []string
	AuxWorktree      string
}
