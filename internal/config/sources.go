package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v3"
)

// Source describes one artifact-evaluation site hosted as a GitHub
// Pages repository with per-conference directories under _conferences/.
// APIBase and RawBase default to the public GitHub endpoints.
type Source struct {
	Name     string `yaml:"name"`
	Org      string `yaml:"org"`
	Repo     string `yaml:"repo"`
	Branch   string `yaml:"branch"`
	SiteURL  string `yaml:"site_url"`
	Category string `yaml:"category"`
	APIBase  string `yaml:"api_base,omitempty"`
	RawBase  string `yaml:"raw_base,omitempty"`
}

func (s Source) apiBase() string {
	if s.APIBase != "" {
		return s.APIBase
	}
	return "https://api.github.com"
}

func (s Source) rawBase() string {
	if s.RawBase != "" {
		return s.RawBase
	}
	return "https://raw.githubusercontent.com"
}

// ContentsURL is the GitHub contents API endpoint listing the
// per-conference directories.
func (s Source) ContentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/_conferences", s.apiBase(), s.Org, s.Repo)
}

// RawURL builds a raw file URL within the repo.
func (s Source) RawURL(parts ...string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s",
		s.rawBase(), s.Org, s.Repo, s.Branch, path.Join(parts...))
}

// PageURL builds a rendered-site URL, used for badge-table fallbacks.
func (s Source) PageURL(parts ...string) string {
	return s.SiteURL + "/" + path.Join(parts...)
}

func DefaultSources() []Source {
	return []Source{
		{
			Name:     "sysartifacts",
			Org:      "sysartifacts",
			Repo:     "sysartifacts.github.io",
			Branch:   "master",
			SiteURL:  "https://sysartifacts.github.io",
			Category: "systems",
		},
		{
			Name:     "secartifacts",
			Org:      "secartifacts",
			Repo:     "secartifacts.github.io",
			Branch:   "master",
			SiteURL:  "https://secartifacts.github.io",
			Category: "security",
		},
	}
}

// LoadSources reads source definitions from a YAML file, falling back
// to the built-in defaults when path is empty or the file is absent.
func LoadSources(path string) ([]Source, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSources(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var cfg struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources file: %w", err)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s lists no sources", path)
	}
	for i, s := range cfg.Sources {
		if s.Org == "" || s.Repo == "" {
			return nil, fmt.Errorf("source %d in %s is missing org or repo", i, path)
		}
		if s.Branch == "" {
			cfg.Sources[i].Branch = "main"
		}
		if s.Category == "" {
			cfg.Sources[i].Category = "security"
		}
	}
	return cfg.Sources, nil
}

// DBLPURL is the canonical bibliography dump location.
const DBLPURL = "https://dblp.org/xml/dblp.xml.gz"

// Cache namespaces. Each maps to one subdirectory of the cache dir.
const (
	NSListings = "listings"
	NSPages    = "pages"
	NSURLs     = "urls"
	NSStats    = "stats"
)

// Cache lifetimes. Conference pages and repo stats move slowly; a URL
// that resolved once stays trusted far longer than one that failed.
const (
	TTLDefault     = 30 * 24 * time.Hour
	TTLPositiveURL = 90 * 24 * time.Hour
	TTLNegativeURL = 7 * 24 * time.Hour
	TTLStats       = 30 * 24 * time.Hour
)
