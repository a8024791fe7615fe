// Package archive persists one pipeline run into a version-controlled
// results directory: the content cache as a single tarball, the small
// generated outputs file-by-file, and a checksum-only record of the
// bibliographic dump. Commits are suppressed when nothing changed.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/runner"
	"github.com/researchartifacts/aestats/internal/utils"
	"github.com/researchartifacts/aestats/internal/version"
)

const (
	cacheArchiveName = "cache.tar.gz"
	dumpRecordName   = "dblp_dump.yml"
	runMetaName      = "run.yml"
	runLogName       = "run.log"

	gitTimeout  = 2 * time.Minute
	pushTimeout = 5 * time.Minute
)

// outputGlobs are the diff-friendly outputs copied into the results
// tree one by one, so history shows per-file deltas.
var outputGlobs = []string{
	filepath.Join("_data", "*.yml"),
	filepath.Join("assets", "data", "*.json"),
	filepath.Join("assets", "charts", "*.html"),
}

// Snapshot describes one run to persist.
type Snapshot struct {
	OutputDir  string
	ResultsDir string
	CacheDir   string
	// DumpPath is the bibliographic dump, recorded by checksum only.
	// Empty or missing means no record is written.
	DumpPath string
	// Args is the invocation captured in the run metadata.
	Args []string
	// Report is the rendered stage report, stored as the run log.
	Report string
	Push   bool
}

// RunMeta is the run-argument snapshot committed with every run.
type RunMeta struct {
	Timestamp string   `yaml:"timestamp"`
	Version   string   `yaml:"version"`
	Args      []string `yaml:"args"`
}

// DumpRecord describes a large unversioned input without its content.
type DumpRecord struct {
	SHA256    string `yaml:"sha256"`
	SizeBytes int64  `yaml:"size_bytes"`
	Modified  string `yaml:"modified"`
}

// Archiver writes snapshots and drives git through a CommandRunner
// whose working directory must be the results directory.
type Archiver struct {
	runner runner.CommandRunner
	now    func() time.Time
}

func New(r runner.CommandRunner) *Archiver {
	return &Archiver{runner: r, now: time.Now}
}

// Save stages the snapshot files and commits when the worktree changed.
// A push failure is downgraded to a warning: the snapshot is already
// retained locally.
func (a *Archiver) Save(ctx context.Context, snap Snapshot) error {
	if err := os.MkdirAll(snap.ResultsDir, 0o755); err != nil {
		return err
	}

	if ok, _ := utils.DirExists(snap.CacheDir); ok {
		if err := TarGzDir(snap.CacheDir, filepath.Join(snap.ResultsDir, cacheArchiveName)); err != nil {
			return fmt.Errorf("archive cache: %w", err)
		}
	}

	if err := a.copyOutputs(snap.OutputDir, snap.ResultsDir); err != nil {
		return err
	}

	if snap.DumpPath != "" {
		if ok, _ := utils.FileExists(snap.DumpPath); ok {
			if err := a.recordDump(snap.DumpPath, snap.ResultsDir); err != nil {
				return err
			}
		}
	}

	ts := a.now().UTC().Format("2006-01-02 15:04:05 UTC")
	meta := RunMeta{Timestamp: ts, Version: version.Version, Args: snap.Args}
	if err := utils.CreateFile(filepath.Join(snap.ResultsDir, runMetaName), meta, utils.FileTypeYAML, 0o644); err != nil {
		return err
	}
	if snap.Report != "" {
		if err := utils.CreateFile(filepath.Join(snap.ResultsDir, runLogName), []byte(snap.Report), utils.FileTypeBinary, 0o644); err != nil {
			return err
		}
	}

	committed, err := a.commit(ctx, ts)
	if err != nil {
		return err
	}
	if committed {
		logger.Success("Snapshot committed")
	} else {
		logger.Info("Snapshot unchanged, nothing to commit")
	}

	// Push regardless of a fresh commit so an earlier failed push gets
	// another chance.
	if snap.Push {
		a.push(ctx)
	}
	return nil
}

func (a *Archiver) copyOutputs(outputDir, resultsDir string) error {
	for _, pattern := range outputGlobs {
		matches, err := filepath.Glob(filepath.Join(outputDir, pattern))
		if err != nil {
			return err
		}
		for _, src := range matches {
			rel, err := filepath.Rel(outputDir, src)
			if err != nil {
				return err
			}
			if err := utils.CopyFile(src, filepath.Join(resultsDir, rel)); err != nil {
				return fmt.Errorf("copy %s: %w", rel, err)
			}
		}
	}
	return nil
}

func (a *Archiver) recordDump(dumpPath, resultsDir string) error {
	sum, err := utils.SHA256File(dumpPath)
	if err != nil {
		return fmt.Errorf("checksum dump: %w", err)
	}
	info, err := os.Stat(dumpPath)
	if err != nil {
		return err
	}
	rec := DumpRecord{
		SHA256:    sum,
		SizeBytes: info.Size(),
		Modified:  info.ModTime().UTC().Format(time.RFC3339),
	}
	return utils.CreateFile(filepath.Join(resultsDir, dumpRecordName), rec, utils.FileTypeYAML, 0o644)
}

func (a *Archiver) commit(ctx context.Context, ts string) (bool, error) {
	out, err := a.runner.Run(ctx, gitTimeout, "git", "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return false, nil
	}

	if _, err := a.runner.Run(ctx, gitTimeout, "git", "add", "-A"); err != nil {
		return false, fmt.Errorf("git add: %w", err)
	}
	msg := "data snapshot " + ts
	if _, err := a.runner.Run(ctx, gitTimeout, "git", "commit", "-m", msg); err != nil {
		return false, fmt.Errorf("git commit: %w", err)
	}
	return true, nil
}

func (a *Archiver) push(ctx context.Context) {
	if _, err := a.runner.Run(ctx, pushTimeout, "git", "push"); err != nil {
		logger.Warn("Push failed, snapshot retained locally: %v", err)
		return
	}
	logger.Success("Snapshot pushed")
}
