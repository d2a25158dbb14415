// Package history persists a per-machine ledger of completed sync runs,
// adapted from the teacher's repo registry: instead of tracking repo
// identities against local paths, it tracks (source, target) directory
// pairs against the outcome of their last sync. The sync command records
// the outcome, a detail string and the run time; no command reads the
// ledger back.
package history

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// Outcome mirrors a run's terminal state for ledger reporting.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeConflict  Outcome = "conflict"
	OutcomeFailed    Outcome = "failed"
)

// Run is a single ledger entry: the last known outcome for one
// (source, target) directory pair.
type Run struct {
	SourceDir    string    `yaml:"source_dir"`
	SourceSubdir string    `yaml:"source_subdir,omitempty"`
	TargetDir    string    `yaml:"target_dir"`
	TargetSubdir string    `yaml:"target_subdir,omitempty"`
	InitHash     string    `yaml:"init_hash,omitempty"`
	TargetHash   string    `yaml:"target_hash,omitempty"`
	Outcome      Outcome   `yaml:"outcome"`
	Detail       string    `yaml:"detail,omitempty"`
	LastRunAt    time.Time `yaml:"last_run_at,omitempty"`
}

// Key identifies a ledger entry by its (source, target) directory pair.
func (r Run) Key() string {
	return r.SourceDir + "|" + r.SourceSubdir + "->" + r.TargetDir + "|" + r.TargetSubdir
}

// Ledger is the per-machine run history, one entry per (source, target)
// directory pair.
type Ledger struct {
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
	Runs      []Run     `yaml:"runs"`
}

// Load reads a ledger file from the given path. A missing file is not an
// error; callers get an empty Ledger.
func Load(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Ledger{}, nil
		}
		return nil, err
	}
	var l Ledger
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Save writes the ledger to the given path, creating parent directories
// as needed.
func Save(l *Ledger, path string) error {
	if l == nil {
		return errors.New("ledger is nil")
	}
	l.UpdatedAt = time.Now()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Upsert records the outcome of a run, replacing any prior entry for the
// same (source, target) directory pair.
func (l *Ledger) Upsert(run Run) {
	run.LastRunAt = time.Now()
	for i := range l.Runs {
		if l.Runs[i].Key() == run.Key() {
			l.Runs[i] = run
			return
		}
	}
	l.Runs = append(l.Runs, run)
}

// Find returns the ledger entry for a (source, target) directory pair, or
// nil if none has run yet.
func (l *Ledger) Find(sourceDir, sourceSubdir, targetDir, targetSubdir string) *Run {
	want := Run{SourceDir: sourceDir, SourceSubdir: sourceSubdir, TargetDir: targetDir, TargetSubdir: targetSubdir}.Key()
	for i := range l.Runs {
		if l.Runs[i].Key() == want {
			return &l.Runs[i]
		}
	}
	return nil
}

// DefaultPath returns the platform-appropriate ledger file path, mirroring
// the run-configuration file's resolution precedence without an env var
// override (the ledger is always machine-local).
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gitsync", "history.yaml"), nil
}
