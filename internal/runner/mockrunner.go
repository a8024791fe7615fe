package runner

import (
	"context"
	"time"
)

// MockRunner records every command and answers from a canned response
// table keyed by "name|arg1|arg2|...".
type MockRunner struct {
	Commands  []MockCommand
	Responses map[string]MockResponse
}

type MockCommand struct {
	Name string
	Args []string
}

type MockResponse struct {
	Output []byte
	Error  error
}

func NewMockRunner() *MockRunner {
	return &MockRunner{
		Commands:  []MockCommand{},
		Responses: make(map[string]MockResponse),
	}
}

func (m *MockRunner) Run(
	_ context.Context,
	_ time.Duration,
	name string,
	args ...string,
) ([]byte, error) {
	m.Commands = append(m.Commands, MockCommand{Name: name, Args: args})

	if resp, ok := m.Responses[cmdKey(name, args...)]; ok {
		return resp.Output, resp.Error
	}
	return []byte{}, nil
}

func (m *MockRunner) AddResponse(key string, output []byte, err error) {
	m.Responses[key] = MockResponse{
		Output: output,
		Error:  err,
	}
}

func cmdKey(name string, args ...string) string {
	key := name
	for _, arg := range args {
		key += "|" + arg
	}
	return key
}

func (m *MockRunner) VerifyCommand(name string, args ...string) bool {
	for _, cmd := range m.Commands {
		if cmd.Name == name && argsEqual(cmd.Args, args) {
			return true
		}
	}
	return false
}

func (m *MockRunner) VerifyRunCount(name string, count int) bool {
	runCount := 0
	for _, cmd := range m.Commands {
		if cmd.Name == name {
			runCount++
		}
	}
	return runCount == count
}

func argsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GitStatusClean makes `git status --porcelain` report an empty worktree.
func (m *MockRunner) GitStatusClean() {
	m.AddResponse("git|status|--porcelain", []byte(""), nil)
}

// GitStatusDirty makes `git status --porcelain` report pending changes.
func (m *MockRunner) GitStatusDirty(paths ...string) {
	var out string
	for _, p := range paths {
		out += " M " + p + "\n"
	}
	m.AddResponse("git|status|--porcelain", []byte(out), nil)
}

// GhToken makes `gh auth token` return the given token.
func (m *MockRunner) GhToken(token string) {
	m.AddResponse("gh|auth|token", []byte(token+"\n"), nil)
}
