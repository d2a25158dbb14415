package gitcmd_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/skaphos/gitsync/internal/gitcmd"
)

// MockRunner implements gitcmd.Runner for testing.
type MockRunner struct {
	// Responses maps "dir:args" keys to (output, error) pairs.
	Responses map[string]MockResponse
}

type MockResponse struct {
	Output string
	Err    error
}

func (m *MockRunner) Run(_ context.Context, dir string, args []string, _ gitcmd.RunOptions) (string, error) {
	key := dir + ":" + strings.Join(args, " ")
	if resp, ok := m.Responses[key]; ok {
		return resp.Output, resp.Err
	}
	// Also try without dir for convenience
	keyNoDir := ":" + strings.Join(args, " ")
	if resp, ok := m.Responses[keyNoDir]; ok {
		return resp.Output, resp.Err
	}
	return "", fmt.Errorf("unexpected call: dir=%q args=%v", dir, args)
}
