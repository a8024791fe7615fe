package dblp

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/utils"
)

// TitleMeta carries the artifact context a matched DBLP record joins
// back to.
type TitleMeta struct {
	Conference string
	Category   string
	Year       int
	Badges     []string
}

// TitleIndex maps normalized artifact titles to their context.
type TitleIndex map[string]TitleMeta

// BuildTitleIndex collects the unique, normalized artifact titles of
// all parsed conferences. Placeholder titles are not worth a DBLP scan.
func BuildTitleIndex(confs []*models.Conference) TitleIndex {
	idx := make(TitleIndex)
	for _, conf := range confs {
		name, year, _ := models.SplitConfKey(conf.Key)
		for _, a := range conf.Artifacts {
			if a.Title == "" || a.Title == "Unknown" {
				continue
			}
			norm := NormalizeTitle(a.Title)
			if _, dup := idx[norm]; dup {
				continue
			}
			idx[norm] = TitleMeta{
				Conference: strings.ToUpper(name),
				Category:   conf.Category,
				Year:       year,
				Badges:     a.Badges,
			}
		}
	}
	return idx
}

// Titles returns the normalized title set for the DBLP scan.
func (idx TitleIndex) Titles() map[string]bool {
	titles := make(map[string]bool, len(idx))
	for t := range idx {
		titles[t] = true
	}
	return titles
}

// AuthorPaper is one artifact paper under an author entry.
type AuthorPaper struct {
	Title      string   `yaml:"title" json:"title"`
	Conference string   `yaml:"conference" json:"conference"`
	Year       int      `yaml:"year" json:"year"`
	Badges     []string `yaml:"badges" json:"badges"`
	Category   string   `yaml:"category" json:"category"`
}

// AuthorStats is one author's artifact tally, the shape of
// _data/authors.yml entries.
type AuthorStats struct {
	Name               string        `yaml:"name" json:"name"`
	ArtifactCount      int           `yaml:"artifact_count" json:"artifact_count"`
	Category           string        `yaml:"category" json:"category"`
	Conferences        []string      `yaml:"conferences" json:"conferences"`
	Years              []int         `yaml:"years" json:"years"`
	YearRange          string        `yaml:"year_range" json:"year_range"`
	RecentCount        int           `yaml:"recent_count" json:"recent_count"`
	BadgesAvailable    int           `yaml:"badges_available" json:"badges_available"`
	BadgesFunctional   int           `yaml:"badges_functional" json:"badges_functional"`
	BadgesReproducible int           `yaml:"badges_reproducible" json:"badges_reproducible"`
	Papers             []AuthorPaper `yaml:"papers" json:"papers"`
}

// AuthorSummary is the shape of _data/author_summary.yml.
type AuthorSummary struct {
	TotalAuthors       int    `yaml:"total_authors" json:"total_authors"`
	TotalPapersMatched int    `yaml:"total_papers_matched" json:"total_papers_matched"`
	ActiveLastYears    int    `yaml:"active_last_years" json:"active_last_years"`
	MultiConference    int    `yaml:"multi_conference" json:"multi_conference"`
	SystemsAuthors     int    `yaml:"systems_authors" json:"systems_authors"`
	SecurityAuthors    int    `yaml:"security_authors" json:"security_authors"`
	CrossDomainAuthors int    `yaml:"cross_domain_authors" json:"cross_domain_authors"`
	LastUpdated        string `yaml:"last_updated" json:"last_updated"`
}

// AggregateAuthors joins matched DBLP records back to their artifacts
// and tallies per-author statistics, ordered by artifact count then
// name so reruns produce identical files.
func AggregateAuthors(papers []Paper, idx TitleIndex, now time.Time) ([]AuthorStats, AuthorSummary) {
	type acc struct {
		stats AuthorStats
		confs map[string]bool
		years map[int]bool
		cats  map[string]bool
	}
	authors := make(map[string]*acc)

	for _, p := range papers {
		meta := idx[NormalizeTitle(p.Title)]
		year := p.Year
		if year == 0 {
			year = meta.Year
		}

		for _, name := range p.Authors {
			if name == "" {
				continue
			}
			a := authors[name]
			if a == nil {
				a = &acc{
					stats: AuthorStats{Name: name},
					confs: make(map[string]bool),
					years: make(map[int]bool),
					cats:  make(map[string]bool),
				}
				authors[name] = a
			}
			a.stats.ArtifactCount++
			a.stats.Papers = append(a.stats.Papers, AuthorPaper{
				Title:      p.Title,
				Conference: meta.Conference,
				Year:       year,
				Badges:     meta.Badges,
				Category:   meta.Category,
			})
			a.confs[meta.Conference] = true
			a.years[year] = true
			a.cats[meta.Category] = true

			for _, badge := range meta.Badges {
				switch b := strings.ToLower(badge); {
				case strings.Contains(b, "available"):
					a.stats.BadgesAvailable++
				case strings.Contains(b, "functional"):
					a.stats.BadgesFunctional++
				case strings.Contains(b, "reproduc"):
					a.stats.BadgesReproducible++
				}
			}
		}
	}

	list := make([]AuthorStats, 0, len(authors))
	sum := AuthorSummary{
		TotalPapersMatched: len(papers),
		LastUpdated:        now.UTC().Format("2006-01-02 15:04:05 UTC"),
	}
	recentSince := now.Year() - 3

	for _, a := range authors {
		st := a.stats

		for c := range a.confs {
			st.Conferences = append(st.Conferences, c)
		}
		sort.Strings(st.Conferences)

		for y := range a.years {
			st.Years = append(st.Years, y)
			if y >= recentSince {
				st.RecentCount++
			}
		}
		sort.Ints(st.Years)
		if len(st.Years) > 0 {
			st.YearRange = yearRange(st.Years)
		}

		switch {
		case a.cats[models.CategorySystems] && a.cats[models.CategorySecurity]:
			st.Category = "both"
			sum.SystemsAuthors++
			sum.SecurityAuthors++
			sum.CrossDomainAuthors++
		case a.cats[models.CategorySystems]:
			st.Category = models.CategorySystems
			sum.SystemsAuthors++
		case a.cats[models.CategorySecurity]:
			st.Category = models.CategorySecurity
			sum.SecurityAuthors++
		default:
			st.Category = "unknown"
		}

		if st.RecentCount > 0 {
			sum.ActiveLastYears++
		}
		if len(st.Conferences) > 1 {
			sum.MultiConference++
		}
		list = append(list, st)
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ArtifactCount != list[j].ArtifactCount {
			return list[i].ArtifactCount > list[j].ArtifactCount
		}
		return list[i].Name < list[j].Name
	})
	sum.TotalAuthors = len(list)
	return list, sum
}

func yearRange(sorted []int) string {
	lo, hi := sorted[0], sorted[len(sorted)-1]
	return strconv.Itoa(lo) + "-" + strconv.Itoa(hi)
}

// WriteAuthorData writes the author files the site consumes: YAML for
// Jekyll plus a JSON download.
func WriteAuthorData(outputDir string, authors []AuthorStats, sum AuthorSummary) error {
	if err := utils.CreateFile(filepath.Join(outputDir, "_data", "authors.yml"), authors, utils.FileTypeYAML, 0o644); err != nil {
		return err
	}
	if err := utils.CreateFile(filepath.Join(outputDir, "_data", "author_summary.yml"), sum, utils.FileTypeYAML, 0o644); err != nil {
		return err
	}
	return utils.CreateFile(filepath.Join(outputDir, "assets", "data", "authors.json"), authors, utils.FileTypeJSON, 0o644)
}
