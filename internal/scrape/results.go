package scrape

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/service"
)

// Conferences publish results under either name.
var resultsFilenames = []string{"results.md", "result.md"}

// Results fetches and parses the artifact results page of one
// conference directory. Directories without a results page are common
// and return (nil, nil).
func (s *Scraper) Results(ctx context.Context, l Listing) ([]models.Artifact, error) {
	for _, fn := range resultsFilenames {
		url := l.Source.RawURL("_conferences", l.Name, fn)
		body, err := s.fetchCached(ctx, config.NSPages, url, config.TTLDefault, nil)
		if errors.Is(err, service.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s/%s: %w", l.Name, fn, err)
		}

		artifacts, err := ParseResults(string(body))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s/%s: %w", l.Name, fn, err)
		}
		return artifacts, nil
	}
	logger.Debug("%s: no results page", l.Name)
	return nil, nil
}

var frontMatterSep = regexp.MustCompile(`(?m)^---\s*$`)

// ParseResults extracts artifacts from a results page. YAML front
// matter is the primary format (EuroSys, SOSP, secartifacts venues);
// older USENIX pages keep HTML or raw markdown badge tables instead.
func ParseResults(content string) ([]models.Artifact, error) {
	if artifacts, ok := parseFrontMatter(content); ok {
		return artifacts, nil
	}

	artifacts, err := parseHTMLTable(content)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		artifacts = parseMarkdownTable(content)
	}
	return artifacts, nil
}

// parseFrontMatter handles the `artifacts:` list and the PETS-style
// `issues:` nesting. Tabs are mapped to spaces first, a few venues
// indent with them.
func parseFrontMatter(content string) ([]models.Artifact, bool) {
	parts := frontMatterSep.Split(content, 3)
	if len(parts) < 2 {
		return nil, false
	}
	yamlPart := strings.ReplaceAll(parts[1], "\t", "  ")

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(yamlPart), &doc); err != nil {
		logger.Debug("front matter is not YAML: %v", err)
		return nil, false
	}

	if raw, ok := doc["artifacts"].([]any); ok {
		return artifactsFromList(raw), true
	}
	if issues, ok := doc["issues"].([]any); ok {
		var all []models.Artifact
		for _, issue := range issues {
			m, ok := issue.(map[string]any)
			if !ok {
				continue
			}
			if raw, ok := m["artifacts"].([]any); ok {
				all = append(all, artifactsFromList(raw)...)
			}
		}
		if len(all) > 0 {
			return all, true
		}
	}
	return nil, false
}

func artifactsFromList(raw []any) []models.Artifact {
	var out []models.Artifact
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if a := artifactFromMap(m); a.Title != "" {
			out = append(out, a)
		}
	}
	return out
}

// artifactFromMap normalizes the loosely-schemaed front matter entries.
// Venues disagree on URL key names, so the repository link is resolved
// from every known variant, best first.
func artifactFromMap(m map[string]any) models.Artifact {
	a := models.Artifact{
		Title:       stringField(m, "title"),
		Authors:     authorsField(m),
		Badges:      models.NormalizeBadges(m["badges"]),
		PaperURL:    stringField(m, "paper_url"),
		AppendixURL: stringField(m, "appendix_url"),
	}

	repoKeys := []string{"repository_url", "github_url", "second_repository_url", "bitbucket_url"}
	for _, k := range repoKeys {
		if v := stringField(m, k); v != "" {
			if a.RepositoryURL == "" {
				a.RepositoryURL = v
			} else if v != a.RepositoryURL {
				a.ExtraURLs = append(a.ExtraURLs, v)
			}
		}
	}

	a.ArtifactURL = stringField(m, "artifact_url")
	if a.ArtifactURL == "" {
		if list, ok := m["artifact_urls"].([]any); ok && len(list) > 0 {
			if s, ok := list[0].(string); ok {
				a.ArtifactURL = strings.TrimSpace(s)
			}
		}
	}
	return a
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func authorsField(m map[string]any) string {
	switch v := m["authors"].(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var names []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				names = append(names, strings.TrimSpace(s))
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

// parseHTMLTable reads badge tables rendered as HTML rows. Badges live
// in spans with well-known ids: aa = available, af = functional,
// rr = reproduced.
func parseHTMLTable(content string) ([]models.Artifact, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var out []models.Artifact
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		titleCell := cells.Eq(0)
		titleLink := titleCell.Find("a").First()
		title := strings.TrimSpace(titleCell.Text())
		paperURL := ""
		if titleLink.Length() > 0 {
			title = strings.TrimSpace(titleLink.Text())
			paperURL, _ = titleLink.Attr("href")
		}
		if title == "" || strings.EqualFold(title, "paper title") {
			return
		}

		var badges []string
		cells.Eq(1).Find("span").Each(func(_ int, span *goquery.Selection) {
			id, _ := span.Attr("id")
			text := strings.ToLower(strings.TrimSpace(span.Text()))
			switch {
			case id == "aa" || strings.Contains(text, "available"):
				badges = append(badges, "available")
			case id == "af" || strings.Contains(text, "functional"):
				badges = append(badges, "functional")
			case id == "rr" || strings.Contains(text, "reproduc") || strings.Contains(text, "replicated"):
				badges = append(badges, "reproduced")
			}
		})

		var repoURL, artifactURL string
		if cells.Length() > 2 {
			cells.Eq(2).Find("a").Each(func(_ int, link *goquery.Selection) {
				href, _ := link.Attr("href")
				text := strings.ToLower(strings.TrimSpace(link.Text()))
				switch {
				case strings.Contains(text, "github") || strings.Contains(href, "github.com") ||
					strings.Contains(text, "gitlab") || strings.Contains(href, "gitlab") ||
					strings.Contains(text, "bitbucket"):
					repoURL = href
				case strings.Contains(text, "zenodo") || strings.Contains(href, "zenodo.org") ||
					strings.Contains(text, "figshare") || strings.Contains(href, "doi.org"):
					artifactURL = href
				case repoURL == "":
					repoURL = href
				}
			})
		}

		if len(badges) > 0 || repoURL != "" || artifactURL != "" {
			out = append(out, models.Artifact{
				Title:         title,
				Badges:        badges,
				PaperURL:      paperURL,
				RepositoryURL: repoURL,
				ArtifactURL:   artifactURL,
			})
		}
	})
	return out, nil
}

var (
	mdTitleRe   = regexp.MustCompile(`\[([^\]]+)\]`)
	mdLinkRe    = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	mdBareGitRe = regexp.MustCompile(`https?://github\.com/[^\s<|]+`)
)

// parseMarkdownTable is the last resort for tables the site generator
// never converted to HTML.
func parseMarkdownTable(content string) []models.Artifact {
	var out []models.Artifact
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || strings.Contains(line, ":-") {
			continue
		}

		cols := strings.Split(line, "|")
		if len(cols) < 4 {
			continue
		}
		cells := make([]string, 0, len(cols)-2)
		for _, c := range cols[1 : len(cols)-1] {
			cells = append(cells, strings.TrimSpace(c))
		}
		if len(cells) < 2 {
			continue
		}

		m := mdTitleRe.FindStringSubmatch(cells[0])
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[1])
		if title == "" || strings.EqualFold(title, "paper title") {
			continue
		}

		var badges []string
		badgeCell := cells[1]
		if strings.Contains(badgeCell, `id="aa"`) || strings.Contains(badgeCell, ">AVAILABLE<") {
			badges = append(badges, "available")
		}
		if strings.Contains(badgeCell, `id="af"`) || strings.Contains(badgeCell, ">FUNCTIONAL<") {
			badges = append(badges, "functional")
		}
		if strings.Contains(badgeCell, `id="rr"`) || strings.Contains(badgeCell, ">REPRODUCED<") ||
			strings.Contains(badgeCell, ">REPLICATED<") {
			badges = append(badges, "reproduced")
		}

		var repoURL, artifactURL string
		if len(cells) > 2 {
			for _, lm := range mdLinkRe.FindAllStringSubmatch(cells[2], -1) {
				text, href := strings.ToLower(lm[1]), lm[2]
				switch {
				case strings.Contains(text, "github") || strings.Contains(text, "gitlab") ||
					strings.Contains(text, "bitbucket"):
					repoURL = href
				case strings.Contains(text, "zenodo") || strings.Contains(text, "figshare") ||
					strings.Contains(text, "doi"):
					artifactURL = href
				case repoURL == "":
					repoURL = href
				}
			}
			if repoURL == "" {
				if bare := mdBareGitRe.FindString(cells[2]); bare != "" {
					repoURL = bare
				}
			}
		}

		if len(badges) > 0 || repoURL != "" || artifactURL != "" {
			out = append(out, models.Artifact{
				Title:         title,
				Badges:        badges,
				RepositoryURL: repoURL,
				ArtifactURL:   artifactURL,
			})
		}
	}
	return out
}
