// Package sitedata renders parsed conference results into the data
// files the Jekyll site consumes: YAML under _data/ and JSON under
// assets/data/.
package sitedata

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/utils"
)

// Summary is the shape of _data/summary.yml and assets/data/summary.json.
type Summary struct {
	TotalArtifacts      int      `yaml:"total_artifacts" json:"total_artifacts"`
	TotalConferences    int      `yaml:"total_conferences" json:"total_conferences"`
	SystemsArtifacts    int      `yaml:"systems_artifacts" json:"systems_artifacts"`
	SecurityArtifacts   int      `yaml:"security_artifacts" json:"security_artifacts"`
	ConferencesList     []string `yaml:"conferences_list" json:"conferences_list"`
	SystemsConferences  []string `yaml:"systems_conferences" json:"systems_conferences"`
	SecurityConferences []string `yaml:"security_conferences" json:"security_conferences"`
	YearRange           string   `yaml:"year_range" json:"year_range"`
	LastUpdated         string   `yaml:"last_updated" json:"last_updated"`
}

// ConferenceArtifacts is one _data/artifacts_by_conference.yml element.
type ConferenceArtifacts struct {
	Name           string       `yaml:"name" json:"name"`
	Category       string       `yaml:"category" json:"category"`
	VenueType      string       `yaml:"venue_type" json:"venue_type"`
	TotalArtifacts int          `yaml:"total_artifacts" json:"total_artifacts"`
	Years          []YearBadges `yaml:"years" json:"years"`
}

// YearBadges counts artifacts and badge grades for one conference year.
type YearBadges struct {
	Year         int `yaml:"year" json:"year"`
	Total        int `yaml:"total" json:"total"`
	Functional   int `yaml:"functional" json:"functional"`
	Reproducible int `yaml:"reproducible" json:"reproducible"`
	Available    int `yaml:"available" json:"available"`
	Reusable     int `yaml:"reusable" json:"reusable"`
}

// YearCount is one _data/artifacts_by_year.yml element.
type YearCount struct {
	Year     int `yaml:"year" json:"year"`
	Count    int `yaml:"count" json:"count"`
	Systems  int `yaml:"systems" json:"systems"`
	Security int `yaml:"security" json:"security"`
}

// CoverageRow records whether a discovered conference year produced
// parseable results, for the site's coverage table.
type CoverageRow struct {
	Conference    string `yaml:"conference" json:"conference"`
	Year          int    `yaml:"year" json:"year"`
	Category      string `yaml:"category" json:"category"`
	Parsed        bool   `yaml:"parsed" json:"parsed"`
	ArtifactCount int    `yaml:"artifact_count" json:"artifact_count"`
}

// SiteArtifact is one assets/data/artifacts.json element, the flat
// record the site's search and filter widgets consume.
type SiteArtifact struct {
	Conference    string   `json:"conference"`
	Category      string   `json:"category"`
	Year          int      `json:"year"`
	Title         string   `json:"title"`
	Badges        []string `json:"badges"`
	RepositoryURL string   `json:"repository_url"`
	ArtifactURL   string   `json:"artifact_url"`
}

// SiteData bundles everything the site-data stage emits.
type SiteData struct {
	Summary      Summary
	ByConference []ConferenceArtifacts
	ByYear       []YearCount
	Coverage     []CoverageRow
	Artifacts    []SiteArtifact
}

// Build aggregates conferences into the shapes above. Conferences that
// were discovered but yielded no artifacts appear only in the coverage
// table. Duplicate keys keep the first occurrence.
func Build(confs []*models.Conference, now time.Time) *SiteData {
	d := &SiteData{
		ByConference: []ConferenceArtifacts{},
		ByYear:       []YearCount{},
		Coverage:     []CoverageRow{},
		Artifacts:    []SiteArtifact{},
	}
	seen := make(map[string]bool)
	byConf := make(map[string]*ConferenceArtifacts)
	byYear := make(map[int]*YearCount)
	confSet := make(map[string]bool)
	yearSet := make(map[int]bool)

	for _, c := range confs {
		if c == nil || seen[c.Key] {
			continue
		}
		seen[c.Key] = true
		upper := strings.ToUpper(c.Name)

		if c.Year != 0 {
			d.Coverage = append(d.Coverage, CoverageRow{
				Conference:    upper,
				Year:          c.Year,
				Category:      c.Category,
				Parsed:        c.Parsed(),
				ArtifactCount: len(c.Artifacts),
			})
		}
		if !c.Parsed() {
			continue
		}

		if c.Category == models.CategorySystems {
			d.Summary.SystemsArtifacts += len(c.Artifacts)
		} else {
			d.Summary.SecurityArtifacts += len(c.Artifacts)
		}
		if c.Year == 0 {
			continue
		}
		confSet[upper] = true
		yearSet[c.Year] = true

		badges := models.CountBadges(c.Artifacts)
		ca := byConf[upper]
		if ca == nil {
			ca = &ConferenceArtifacts{Name: upper, VenueType: models.VenueType(c.Name)}
			byConf[upper] = ca
		}
		ca.Category = c.Category
		ca.TotalArtifacts += len(c.Artifacts)
		ca.Years = append(ca.Years, YearBadges{
			Year:         c.Year,
			Total:        len(c.Artifacts),
			Functional:   badges.Functional,
			Reproducible: badges.Reproducible,
			Available:    badges.Available,
			Reusable:     badges.Reusable,
		})

		yc := byYear[c.Year]
		if yc == nil {
			yc = &YearCount{Year: c.Year}
			byYear[c.Year] = yc
		}
		yc.Count += len(c.Artifacts)
		if c.Category == models.CategorySystems {
			yc.Systems += len(c.Artifacts)
		} else {
			yc.Security += len(c.Artifacts)
		}

		for _, a := range c.Artifacts {
			title := a.Title
			if title == "" {
				title = "Unknown"
			}
			bs := a.Badges
			if bs == nil {
				bs = []string{}
			}
			d.Artifacts = append(d.Artifacts, SiteArtifact{
				Conference:    upper,
				Category:      c.Category,
				Year:          c.Year,
				Title:         title,
				Badges:        bs,
				RepositoryURL: a.RepositoryURL,
				ArtifactURL:   a.ArtifactURL,
			})
		}
	}

	sort.SliceStable(d.Coverage, func(i, j int) bool {
		if d.Coverage[i].Conference != d.Coverage[j].Conference {
			return d.Coverage[i].Conference < d.Coverage[j].Conference
		}
		return d.Coverage[i].Year < d.Coverage[j].Year
	})

	names := make([]string, 0, len(byConf))
	for name := range byConf {
		names = append(names, name)
	}
	sort.Strings(names)

	d.Summary.SystemsConferences = []string{}
	d.Summary.SecurityConferences = []string{}
	for _, name := range names {
		ca := byConf[name]
		sort.SliceStable(ca.Years, func(i, j int) bool { return ca.Years[i].Year < ca.Years[j].Year })
		d.ByConference = append(d.ByConference, *ca)

		switch ca.Category {
		case models.CategorySystems:
			d.Summary.SystemsConferences = append(d.Summary.SystemsConferences, name)
		case models.CategorySecurity:
			d.Summary.SecurityConferences = append(d.Summary.SecurityConferences, name)
		}
	}

	years := make([]int, 0, len(byYear))
	for yr := range byYear {
		years = append(years, yr)
	}
	sort.Ints(years)
	for _, yr := range years {
		d.ByYear = append(d.ByYear, *byYear[yr])
	}

	d.Summary.TotalArtifacts = len(d.Artifacts)
	d.Summary.TotalConferences = len(confSet)
	d.Summary.ConferencesList = sortedKeys(confSet)
	d.Summary.YearRange = yearRange(yearSet)
	d.Summary.LastUpdated = now.UTC().Format("2006-01-02 15:04:05 UTC")
	return d
}

// Write renders the bundle under outputDir, YAML for the Jekyll _data
// directory and JSON for the client-side widgets.
func Write(outputDir string, d *SiteData) error {
	files := []struct {
		path     string
		fileType string
		data     any
	}{
		{filepath.Join(outputDir, "_data", "summary.yml"), utils.FileTypeYAML, d.Summary},
		{filepath.Join(outputDir, "_data", "artifacts_by_conference.yml"), utils.FileTypeYAML, d.ByConference},
		{filepath.Join(outputDir, "_data", "artifacts_by_year.yml"), utils.FileTypeYAML, d.ByYear},
		{filepath.Join(outputDir, "_data", "coverage.yml"), utils.FileTypeYAML, d.Coverage},
		{filepath.Join(outputDir, "assets", "data", "artifacts.json"), utils.FileTypeJSON, d.Artifacts},
		{filepath.Join(outputDir, "assets", "data", "summary.json"), utils.FileTypeJSON, d.Summary},
	}
	for _, f := range files {
		if err := utils.CreateFile(f.path, f.data, f.fileType, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(f.path), err)
		}
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func yearRange(years map[int]bool) string {
	if len(years) == 0 {
		return "N/A"
	}
	lo, hi := 0, 0
	first := true
	for y := range years {
		if first {
			lo, hi = y, y
			first = false
			continue
		}
		lo = min(lo, y)
		hi = max(hi, y)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}
