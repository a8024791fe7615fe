package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/researchartifacts/aestats/internal/errs"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/runner"
)

// RunOptions carries the raw flag values collected by the command layer.
type RunOptions struct {
	OutputDir   string
	ConfRegex   string
	CacheDir    string
	DBLPFile    string
	HTTPProxy   string
	HTTPSProxy  string
	SaveResults bool
	ResultsDir  string
	Push        bool
	Interactive bool
}

// Settings is the resolved configuration for one pipeline run. It is
// built once by LoadSettings and passed down explicitly; nothing reads
// the environment after this point.
type Settings struct {
	OutputDir   string
	ConfPattern *regexp.Regexp
	CacheDir    string
	DBLPFile    string

	HTTPProxy  string
	HTTPSProxy string

	GitHubToken string

	SaveResults bool
	ResultsDir  string
	Push        bool
	Interactive bool

	ProbeTimeout    time.Duration
	APITimeout      time.Duration
	DownloadTimeout time.Duration
}

const (
	DefaultConfRegex = `.*20[12][0-9]`

	defaultProbeTimeout    = 10 * time.Second
	defaultAPITimeout      = 30 * time.Second
	defaultDownloadTimeout = 15 * time.Minute
)

// LoadSettings validates opts, fills defaults from the environment and
// resolves the GitHub token. r is used to ask `gh auth token` when no
// token env var is set; pass nil to use the real runner.
func LoadSettings(opts RunOptions, r runner.CommandRunner) (*Settings, error) {
	if r == nil {
		r = runner.ExecRunner{}
	}

	if opts.OutputDir == "" {
		return nil, fmt.Errorf("%s", errs.Msg(errs.OutputDirRequired))
	}
	if opts.ResultsDir != "" && !opts.SaveResults {
		return nil, fmt.Errorf("%s", errs.Msg(errs.ResultsDirWithoutSave))
	}
	if opts.Push && !opts.SaveResults {
		return nil, fmt.Errorf("%s", errs.Msg(errs.PushWithoutSave))
	}

	pattern := opts.ConfRegex
	if pattern == "" {
		pattern = DefaultConfRegex
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%s", errs.Msg(errs.InvalidConfPattern, pattern))
	}

	cacheDir, err := CacheDir(opts.CacheDir)
	if err != nil {
		return nil, err
	}

	dblpFile := opts.DBLPFile
	if dblpFile == "" {
		dblpFile = filepath.Join(cacheDir, "dblp.xml.gz")
	}

	resultsDir := opts.ResultsDir
	if opts.SaveResults && resultsDir == "" {
		resultsDir = "results"
	}

	s := &Settings{
		OutputDir:   opts.OutputDir,
		ConfPattern: re,
		CacheDir:    cacheDir,
		DBLPFile:    dblpFile,
		HTTPProxy:   firstNonEmpty(opts.HTTPProxy, os.Getenv("http_proxy"), os.Getenv("HTTP_PROXY")),
		HTTPSProxy:  firstNonEmpty(opts.HTTPSProxy, os.Getenv("https_proxy"), os.Getenv("HTTPS_PROXY")),
		GitHubToken: resolveGitHubToken(r),
		SaveResults: opts.SaveResults,
		ResultsDir:  resultsDir,
		Push:        opts.Push,
		Interactive: opts.Interactive,

		ProbeTimeout:    defaultProbeTimeout,
		APITimeout:      defaultAPITimeout,
		DownloadTimeout: defaultDownloadTimeout,
	}
	return s, nil
}

// CacheDir resolves the content cache location: the override when set,
// otherwise a per-user default.
func CacheDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(base, "aestats"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveGitHubToken tries GITHUB_TOKEN, then GH_TOKEN, then the gh
// CLI. No token is not an error: API calls run anonymously with lower
// rate limits.
func resolveGitHubToken(r runner.CommandRunner) string {
	if tok := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); tok != "" {
		return tok
	}
	if tok := strings.TrimSpace(os.Getenv("GH_TOKEN")); tok != "" {
		return tok
	}

	out, err := r.Run(context.Background(), 10*time.Second, "gh", "auth", "token")
	if err != nil {
		logger.Debug("no GitHub token available (gh auth token: %v); running anonymously", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}
