package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// Sidecar is a Plugin backed by a long-lived subprocess speaking the
// newline-delimited JSON protocol. One Sidecar is launched per run and
// torn down when the run completes.
type Sidecar struct {
	path    string
	exports []string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner

	mu      sync.Mutex
	pending map[string]chan response
}

// New launches the plugin at path, reads its capability advertisement off
// stdout, and validates it against the recognized hook names. The process
// is left running; call Close to terminate it.
func New(ctx context.Context, path string) (*Sidecar, error) {
	cmd := exec.CommandContext(ctx, path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open plugin %q stdin: %w", path, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open plugin %q stdout: %w", path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch plugin %q: %w", path, err)
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("plugin %q closed before advertising capabilities", path)
	}
	var advert capabilityAdvertisement
	if err := json.Unmarshal(scanner.Bytes(), &advert); err != nil {
		return nil, fmt.Errorf("plugin %q sent malformed capability advertisement: %w", path, err)
	}
	if err := validateExports(path, advert.Exports); err != nil {
		return nil, err
	}

	s := &Sidecar{
		path:    path,
		exports: advert.Exports,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  scanner,
		pending: make(map[string]chan response),
	}
	go s.readLoop()
	return s, nil
}

func (s *Sidecar) readLoop() {
	for s.stdout.Scan() {
		var resp response
		if err := json.Unmarshal(s.stdout.Bytes(), &resp); err != nil {
			continue
		}
		s.mu.Lock()
		ch, ok := s.pending[resp.ID]
		if ok {
			delete(s.pending, resp.ID)
		}
		s.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (s *Sidecar) Path() string      { return s.path }
func (s *Sidecar) Exports() []string { return s.exports }

func (s *Sidecar) hasExport(method string) bool {
	for _, m := range s.exports {
		if m == method {
			return true
		}
	}
	return false
}

func (s *Sidecar) call(ctx context.Context, method string, params requestParams) error {
	if !s.hasExport(method) {
		return nil
	}

	id := uuid.NewString()
	ch := make(chan response, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()

	req := request{ID: id, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode %s request to plugin %q: %w", method, s.path, err)
	}
	line = append(line, '\n')
	if _, err := s.stdin.Write(line); err != nil {
		return fmt.Errorf("write %s request to plugin %q: %w", method, s.path, err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return fmt.Errorf("plugin %q %s hook failed: %s", s.path, method, resp.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Prepare invokes the plugin's `prepare` hook, a no-op if it didn't
// export one.
func (s *Sidecar) Prepare(ctx context.Context, hc HookContext) error {
	return s.call(ctx, MethodPrepare, requestParams{Source: hc.Source, Target: hc.Target, Options: hc.Options})
}

// BeforeCommit invokes the plugin's `beforeCommit` hook immediately
// before the patch applier commits sourceHash's projection.
func (s *Sidecar) BeforeCommit(ctx context.Context, hc HookContext, sourceHash string) error {
	return s.call(ctx, MethodBeforeCommit, requestParams{Source: hc.Source, Target: hc.Target, Options: hc.Options, SourceHash: sourceHash})
}

// Close terminates the subprocess.
func (s *Sidecar) Close() error {
	_ = s.stdin.Close()
	return s.cmd.Wait()
}
