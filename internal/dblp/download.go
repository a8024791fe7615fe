package dblp

import (
	"context"
	"fmt"

	"github.com/researchartifacts/aestats/internal/freshness"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/prompter"
	"github.com/researchartifacts/aestats/internal/service"
)

// The published dump is around 4 GB compressed.
const (
	maxDumpSize      = 8 << 30
	downloadAttempts = 3
)

// Downloader keeps a local copy of the DBLP dump aligned with the
// published one, asking the freshness oracle before moving gigabytes.
type Downloader struct {
	client service.HTTPClient
	oracle *freshness.Oracle
	prompt prompter.Prompter
	url    string
}

func NewDownloader(client service.HTTPClient, oracle *freshness.Oracle, p prompter.Prompter, url string) *Downloader {
	return &Downloader{client: client, oracle: oracle, prompt: p, url: url}
}

// Ensure downloads the dump to path when the remote copy is newer or no
// local copy exists, and keeps the local file whenever the probe is
// inconclusive. The returned flag reports whether a dump is available
// at path afterwards.
func (d *Downloader) Ensure(ctx context.Context, path string, interactive bool) (bool, error) {
	res := d.oracle.Check(ctx, path, d.url)
	logger.Debug("DBLP dump at %s is %s", path, res.State)

	if !freshness.Decide(res, interactive, d.prompt, "DBLP dump") {
		return res.LocalExists, nil
	}

	logger.Info("Downloading DBLP dump, this can take a while...")
	if err := service.DownloadToFile(ctx, d.client, d.url, path, maxDumpSize, downloadAttempts); err != nil {
		if res.LocalExists {
			logger.Warn("DBLP download failed, keeping the previous dump: %v", err)
			return true, nil
		}
		return false, fmt.Errorf("failed to download DBLP dump: %w", err)
	}

	logger.Success("DBLP dump refreshed")
	return true, nil
}
