package freshness

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/prompter"
	"github.com/researchartifacts/aestats/internal/service"
)

// State is the oracle's answer about a local copy of a remote file.
type State int

const (
	// Unknown means the comparison could not be made: probe failed,
	// header missing, or no local file to compare.
	Unknown State = iota
	// Fresh means the local copy is at least as new as the remote.
	Fresh
	// Stale means both timestamps resolved and the remote is newer.
	Stale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result carries the verdict plus the raw material behind it. ProbeErr
// is diagnostic only; Check never fails, it answers Unknown instead.
type Result struct {
	State       State
	LocalMTime  time.Time
	RemoteMTime time.Time
	LocalExists bool
	ProbeErr    error
}

// Oracle compares a local file's mtime against the Last-Modified header
// of its upstream URL. Read-only: it never downloads, never touches the
// local file.
type Oracle struct {
	Client  service.HTTPClient
	Timeout time.Duration
}

func New(client service.HTTPClient, timeout time.Duration) *Oracle {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = service.NewHTTPClient(timeout)
	}
	return &Oracle{Client: client, Timeout: timeout}
}

// Check answers Fresh, Stale or Unknown for localPath against
// remoteURL. Stale requires both timestamps: any probe failure, a
// missing Last-Modified header or a non-2xx status all land on Unknown.
func (o *Oracle) Check(ctx context.Context, localPath, remoteURL string) Result {
	var res Result

	info, err := os.Stat(localPath)
	if err == nil {
		res.LocalExists = true
		res.LocalMTime = info.ModTime()
	}

	probeCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	status, hdr, err := service.Head(probeCtx, o.Client, remoteURL)
	if err != nil {
		res.ProbeErr = err
		return res
	}
	if status < 200 || status >= 300 {
		res.ProbeErr = fmt.Errorf("probe returned status %d", status)
		return res
	}

	lm := hdr.Get("Last-Modified")
	if lm == "" {
		res.ProbeErr = fmt.Errorf("no Last-Modified header")
		return res
	}
	remote, err := http.ParseTime(lm)
	if err != nil {
		res.ProbeErr = fmt.Errorf("unparseable Last-Modified %q: %w", lm, err)
		return res
	}
	res.RemoteMTime = remote

	if !res.LocalExists {
		return res
	}
	if res.LocalMTime.Before(remote) {
		res.State = Stale
	} else {
		res.State = Fresh
	}
	return res
}

// Decide turns a Result into a refresh decision. Policy: a missing
// local file always refreshes; Stale refreshes; Fresh does not. Unknown
// fails open when unattended (keep the local copy rather than hammer
// the mirror on every run), and asks the operator when interactive.
func Decide(res Result, interactive bool, p prompter.Prompter, name string) bool {
	if !res.LocalExists {
		return true
	}

	switch res.State {
	case Stale:
		return true
	case Fresh:
		return false
	}

	if res.ProbeErr != nil {
		logger.Debug("freshness probe for %s inconclusive: %v", name, res.ProbeErr)
	}

	if interactive && p != nil {
		ok, err := p.Confirm(fmt.Sprintf("Could not tell whether %s is up to date. Re-download?", name), false)
		if err != nil {
			logger.Warn("prompt failed (%v); keeping local %s", err, name)
			return false
		}
		return ok
	}

	logger.Warn("cannot verify %s against upstream; keeping local copy", name)
	return false
}
