package models

import "strings"

// Artifact is one evaluated artifact row from a conference results
// page. URL fields are already resolved: RepositoryURL is the best of
// the repository/github/bitbucket variants a page may carry, and
// ArtifactURL the first archive link (Zenodo, Figshare, DOI).
type Artifact struct {
	Title         string   `yaml:"title" json:"title"`
	Authors       string   `yaml:"authors,omitempty" json:"authors,omitempty"`
	Badges        []string `yaml:"badges" json:"badges"`
	RepositoryURL string   `yaml:"repository_url,omitempty" json:"repository_url"`
	ArtifactURL   string   `yaml:"artifact_url,omitempty" json:"artifact_url"`
	PaperURL      string   `yaml:"paper_url,omitempty" json:"paper_url,omitempty"`
	AppendixURL   string   `yaml:"appendix_url,omitempty" json:"appendix_url,omitempty"`

	// ExtraURLs keeps any further candidate links for existence checks.
	ExtraURLs []string `yaml:"-" json:"-"`
}

func (a Artifact) HasBadges() bool { return len(a.Badges) > 0 }

// URLs returns every link worth an existence check, primary first.
func (a Artifact) URLs() []string {
	var out []string
	for _, u := range append([]string{a.RepositoryURL, a.ArtifactURL}, a.ExtraURLs...) {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// BadgeCounts aggregates badge types over a set of artifacts.
type BadgeCounts struct {
	Available    int `yaml:"available" json:"available"`
	Functional   int `yaml:"functional" json:"functional"`
	Reproducible int `yaml:"reproducible" json:"reproducible"`
	Reusable     int `yaml:"reusable" json:"reusable"`
}

// CountBadges classifies badges by substring. Badge wording varies by
// venue and year ("Artifacts Available", "results replicated", ...);
// matching on fragments absorbs all of them.
func CountBadges(artifacts []Artifact) BadgeCounts {
	var c BadgeCounts
	for _, a := range artifacts {
		for _, b := range a.Badges {
			lower := strings.ToLower(b)
			if strings.Contains(lower, "available") {
				c.Available++
			}
			if strings.Contains(lower, "functional") {
				c.Functional++
			}
			if strings.Contains(lower, "reproduc") || strings.Contains(lower, "replicated") {
				c.Reproducible++
			}
			if strings.Contains(lower, "reusable") {
				c.Reusable++
			}
		}
	}
	return c
}

// NormalizeBadges accepts the two shapes results pages use, a
// comma-joined string or a list, and returns a trimmed list.
func NormalizeBadges(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, b := range strings.Split(t, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
