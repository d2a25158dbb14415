// Package config handles loading, saving, and resolving the gitsync
// run-configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

const (
	// LocalConfigFilename is the per-directory gitsync config file.
	LocalConfigFilename = ".gitsync.yaml"
	// ConfigAPIVersion is the current config schema apiVersion.
	ConfigAPIVersion = "skaphos.io/gitsync/v1beta1"
	// ConfigKind is the current config schema kind.
	ConfigKind = "GitSyncConfig"
	// configEnvVar overrides config resolution, same precedence the
	// teacher gives its own machine config env var.
	configEnvVar = "GITSYNC_CONFIG"
)

// Defaults holds the config file's `defaults:` block. The sync command
// does not load the config file, so these values do not reach a run.
type Defaults struct {
	RemoteName     string `yaml:"remote_name"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Endpoint describes one side of a sync (source or target).
type Endpoint struct {
	Dir    string `yaml:"dir"`
	Subdir string `yaml:"subdir,omitempty"`
}

// Run is a single named sync-run definition, as it would appear under a
// config file's `runs:` list.
type Run struct {
	Name   string   `yaml:"name"`
	Source Endpoint `yaml:"source"`
	Target Endpoint `yaml:"target"`

	IncludeBranches []string `yaml:"include_branches,omitempty"`
	ExcludeBranches []string `yaml:"exclude_branches,omitempty"`
	IncludeTags     []string `yaml:"include_tags,omitempty"`
	ExcludeTags     []string `yaml:"exclude_tags,omitempty"`
	AddTagPrefix    string   `yaml:"add_tag_prefix,omitempty"`
	RemoveTagPrefix string   `yaml:"remove_tag_prefix,omitempty"`
	NoTags          bool     `yaml:"no_tags,omitempty"`

	PreserveCommit bool     `yaml:"preserve_commit,omitempty"`
	Filters        []string `yaml:"filters,omitempty"`

	Squash           bool   `yaml:"squash,omitempty"`
	SquashBaseBranch string `yaml:"squash_base_branch,omitempty"`

	DevelopBranches []string `yaml:"develop_branches,omitempty"`
	SkipEvenBranch  bool     `yaml:"skip_even_branch,omitempty"`

	Plugins []string `yaml:"plugins,omitempty"`
}

// Config represents the on-disk gitsync run-configuration file.
type Config struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Exclude    []string `yaml:"exclude"`
	Defaults   Defaults `yaml:"defaults"`
	Runs       []Run    `yaml:"runs,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		APIVersion: ConfigAPIVersion,
		Kind:       ConfigKind,
		Exclude:    []string{"**/node_modules/**", "**/.terraform/**", "**/dist/**", "**/vendor/**"},
		Defaults: Defaults{
			RemoteName:     "origin",
			TimeoutSeconds: 60,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory path.
// It checks, in order: the override parameter, GITSYNC_CONFIG env var,
// and finally os.UserConfigDir()/gitsync.
func ConfigDir(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return filepath.Dir(override), nil
		}
		return override, nil
	}

	if env := os.Getenv(configEnvVar); env != "" {
		if isConfigFilePath(env) {
			return filepath.Dir(env), nil
		}
		return env, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gitsync"), nil
}

// ConfigPath resolves the config file path from override/env/defaults.
func ConfigPath(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return override, nil
		}
		return filepath.Join(override, "config.yaml"), nil
	}

	if env := os.Getenv(configEnvVar); env != "" {
		if isConfigFilePath(env) {
			return env, nil
		}
		return filepath.Join(env, "config.yaml"), nil
	}

	dir, err := ConfigDir("")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// InitConfigPath resolves the path a new config file is written to.
// Order: explicit override, GITSYNC_CONFIG, then local dotfile in cwd.
func InitConfigPath(override, cwd string) (string, error) {
	if override != "" || os.Getenv(configEnvVar) != "" {
		return ConfigPath(override)
	}

	if strings.TrimSpace(cwd) == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(cwd, LocalConfigFilename), nil
}

// ResolveConfigPath resolves config for runtime commands.
// Order: explicit override, GITSYNC_CONFIG, nearest local dotfile in cwd/parents,
// then global platform config path.
func ResolveConfigPath(override, cwd string) (string, error) {
	if override != "" || os.Getenv(configEnvVar) != "" {
		return ConfigPath(override)
	}

	if strings.TrimSpace(cwd) == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}

	localPath, err := FindNearestConfigPath(cwd)
	if err != nil {
		return "", err
	}
	if localPath != "" {
		return localPath, nil
	}

	return ConfigPath("")
}

// FindNearestConfigPath searches cwd and each parent directory for .gitsync.yaml.
// It returns an empty string when no local config file is found.
func FindNearestConfigPath(cwd string) (string, error) {
	dir := cwd
	for {
		candidate := filepath.Join(dir, LocalConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads the config file from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigGVK(&cfg)
	if err := validateConfigGVK(&cfg); err != nil {
		return nil, err
	}

	if cfg.Defaults.TimeoutSeconds == 0 {
		cfg.Defaults.TimeoutSeconds = DefaultConfig().Defaults.TimeoutSeconds
	}
	if cfg.Defaults.RemoteName == "" {
		cfg.Defaults.RemoteName = DefaultConfig().Defaults.RemoteName
	}

	return &cfg, nil
}

// Save writes the config to the given path.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	applyConfigGVK(cfg)
	if err := validateConfigGVK(cfg); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FindRun returns the named run definition, or nil if the config has no
// run by that name.
func (c *Config) FindRun(name string) *Run {
	for i := range c.Runs {
		if c.Runs[i].Name == name {
			return &c.Runs[i]
		}
	}
	return nil
}

func isConfigFilePath(path string) bool {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, "config.yaml") || strings.HasSuffix(lower, "config.yml") {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func applyConfigGVK(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = ConfigAPIVersion
	}
	if strings.TrimSpace(cfg.Kind) == "" {
		cfg.Kind = ConfigKind
	}
}

func validateConfigGVK(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.APIVersion != ConfigAPIVersion {
		return fmt.Errorf("unsupported config apiVersion %q (expected %q)", cfg.APIVersion, ConfigAPIVersion)
	}
	if cfg.Kind != ConfigKind {
		return fmt.Errorf("unsupported config kind %q (expected %q)", cfg.Kind, ConfigKind)
	}
	return nil
}
