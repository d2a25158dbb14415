// Package plugin implements the sidecar subprocess protocol the engine
// speaks with an external hook module: a plugin is an executable on
// $PATH or an absolute path, launched once per run, speaking
// newline-delimited JSON over its stdin/stdout.
package plugin

import (
	"context"
	"fmt"
)

// Recognized hook names. Any capability a plugin advertises outside this
// set is a fatal error at construction time.
const (
	MethodPrepare      = "prepare"
	MethodBeforeCommit = "beforeCommit"
)

var recognizedMethods = map[string]bool{
	MethodPrepare:      true,
	MethodBeforeCommit: true,
}

// HookContext is the object every hook invocation receives, mirroring
// spec.md's `{source, target, options, getTargetHash}`.
type HookContext struct {
	Source        string
	Target        string
	Options       map[string]any
	GetTargetHash func(sourceHash string) (string, bool)
}

// Plugin is the engine-facing surface of a loaded hook module. Prepare and
// BeforeCommit are no-ops when the underlying module did not export that
// capability.
type Plugin interface {
	Path() string
	Exports() []string
	Prepare(ctx context.Context, hc HookContext) error
	BeforeCommit(ctx context.Context, hc HookContext, sourceHash string) error
	Close() error
}

// ErrUnsupportedPluginMethod is returned by New when a plugin advertises a
// capability the engine does not recognize.
type ErrUnsupportedPluginMethod struct {
	Method string
	Path   string
}

func (e *ErrUnsupportedPluginMethod) Error() string {
	return fmt.Sprintf(`Unsupported method "%s" in plugin "%s", please remove it from export`, e.Method, e.Path)
}

func validateExports(path string, exports []string) error {
	for _, m := range exports {
		if !recognizedMethods[m] {
			return &ErrUnsupportedPluginMethod{Method: m, Path: path}
		}
	}
	return nil
}
