// Package prompter is the tool's single interactive touchpoint. Every
// question is yes/no with a default, so a run whose stdin turns out to
// be closed picks the default instead of hanging or failing.
package prompter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Prompter interface {
	// Confirm asks a yes/no question. def is the answer for empty input
	// and for exhausted input.
	Confirm(question string, def bool) (bool, error)
}

// ConsolePrompter reads one answer line per question.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func New(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm renders the default in the suffix ([Y/n] or [y/N]). Only an
// explicit y/yes answers true; anything unrecognized answers false.
func (p *ConsolePrompter) Confirm(question string, def bool) (bool, error) {
	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	if _, err := fmt.Fprintf(p.out, "%s %s: ", question, suffix); err != nil {
		return def, err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return def, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
