// Package runner abstracts external process execution so the git and
// gh calls can be scripted in tests.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner runs one external command under a deadline and returns
// its stdout. Stderr stays out of the returned bytes, so porcelain and
// token output remain parseable; on failure it is folded into the
// error instead.
type CommandRunner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error)
}

type ExecRunner struct {
	// Dir, when set, is the working directory for every command.
	Dir string
}

func (r ExecRunner) Run(
	parent context.Context,
	timeout time.Duration,
	name string,
	args ...string,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%s timed out after %s: %w", name, timeout, err)
		}
	}
	return stdout.Bytes(), err
}
