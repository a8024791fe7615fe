package stats

import (
	"math"
	"sort"
	"time"

	"github.com/researchartifacts/aestats/internal/models"
)

// Aggregated is the shape of _data/repo_stats.yml: one overall block
// plus per-conference and per-year rollups.
type Aggregated struct {
	Overall      Overall           `yaml:"overall" json:"overall"`
	ByConference []ConferenceStats `yaml:"by_conference" json:"by_conference"`
	ByYear       []YearStats       `yaml:"by_year" json:"by_year"`
}

type Overall struct {
	GithubRepos    int     `yaml:"github_repos" json:"github_repos"`
	TotalStars     int     `yaml:"total_stars" json:"total_stars"`
	TotalForks     int     `yaml:"total_forks" json:"total_forks"`
	MaxStars       int     `yaml:"max_stars" json:"max_stars"`
	MaxForks       int     `yaml:"max_forks" json:"max_forks"`
	ZenodoRepos    int     `yaml:"zenodo_repos" json:"zenodo_repos"`
	TotalViews     int     `yaml:"total_views" json:"total_views"`
	TotalDownloads int     `yaml:"total_downloads" json:"total_downloads"`
	AvgStars       float64 `yaml:"avg_stars" json:"avg_stars"`
	AvgForks       float64 `yaml:"avg_forks" json:"avg_forks"`
	LastUpdated    string  `yaml:"last_updated" json:"last_updated"`
}

type ConferenceStats struct {
	Name        string           `yaml:"name" json:"name"`
	GithubRepos int              `yaml:"github_repos" json:"github_repos"`
	TotalStars  int              `yaml:"total_stars" json:"total_stars"`
	TotalForks  int              `yaml:"total_forks" json:"total_forks"`
	AvgStars    float64          `yaml:"avg_stars" json:"avg_stars"`
	AvgForks    float64          `yaml:"avg_forks" json:"avg_forks"`
	MaxStars    int              `yaml:"max_stars" json:"max_stars"`
	MaxForks    int              `yaml:"max_forks" json:"max_forks"`
	Years       []ConferenceYear `yaml:"years" json:"years"`
	TopRepos    []TopRepo        `yaml:"top_repos" json:"top_repos"`
}

type ConferenceYear struct {
	Year        int     `yaml:"year" json:"year"`
	GithubRepos int     `yaml:"github_repos" json:"github_repos"`
	Stars       int     `yaml:"stars" json:"stars"`
	Forks       int     `yaml:"forks" json:"forks"`
	AvgStars    float64 `yaml:"avg_stars" json:"avg_stars"`
	AvgForks    float64 `yaml:"avg_forks" json:"avg_forks"`
}

type TopRepo struct {
	Title       string `yaml:"title" json:"title"`
	URL         string `yaml:"url" json:"url"`
	Year        int    `yaml:"year" json:"year"`
	Stars       int    `yaml:"stars" json:"stars"`
	Forks       int    `yaml:"forks" json:"forks"`
	Description string `yaml:"description" json:"description"`
	Language    string `yaml:"language" json:"language"`
	Name        string `yaml:"name" json:"name"`
	PushedAt    string `yaml:"pushed_at" json:"pushed_at"`
}

type YearStats struct {
	Year        int     `yaml:"year" json:"year"`
	GithubRepos int     `yaml:"github_repos" json:"github_repos"`
	TotalStars  int     `yaml:"total_stars" json:"total_stars"`
	TotalForks  int     `yaml:"total_forks" json:"total_forks"`
	AvgStars    float64 `yaml:"avg_stars" json:"avg_stars"`
	AvgForks    float64 `yaml:"avg_forks" json:"avg_forks"`
	MaxStars    int     `yaml:"max_stars" json:"max_stars"`
	MaxForks    int     `yaml:"max_forks" json:"max_forks"`
}

const topRepoCount = 5

// Aggregate rolls per-repository stats up into the overall,
// per-conference and per-year figures the site renders. Conferences are
// ordered by name, years ascending, top repos by stars.
func Aggregate(entries []models.StatsEntry, now time.Time) *Aggregated {
	type confAcc struct {
		stats ConferenceStats
		years map[int]*ConferenceYear
		repos []TopRepo
	}
	confs := make(map[string]*confAcc)
	years := make(map[int]*YearStats)
	agg := &Aggregated{}

	for _, e := range entries {
		switch e.Source {
		case SourceGitHub:
			stars, forks := e.GithubStars, e.GithubForks

			ca := confs[e.Conference]
			if ca == nil {
				ca = &confAcc{stats: ConferenceStats{Name: e.Conference}, years: make(map[int]*ConferenceYear)}
				confs[e.Conference] = ca
			}
			ca.stats.GithubRepos++
			ca.stats.TotalStars += stars
			ca.stats.TotalForks += forks
			ca.stats.MaxStars = max(ca.stats.MaxStars, stars)
			ca.stats.MaxForks = max(ca.stats.MaxForks, forks)

			cy := ca.years[e.Year]
			if cy == nil {
				cy = &ConferenceYear{Year: e.Year}
				ca.years[e.Year] = cy
			}
			cy.GithubRepos++
			cy.Stars += stars
			cy.Forks += forks

			ca.repos = append(ca.repos, TopRepo{
				Title:       e.Title,
				URL:         e.URL,
				Year:        e.Year,
				Stars:       stars,
				Forks:       forks,
				Description: truncate(e.Description, 120),
				Language:    e.Language,
				Name:        e.Name,
				PushedAt:    e.PushedAt,
			})

			ys := years[e.Year]
			if ys == nil {
				ys = &YearStats{Year: e.Year}
				years[e.Year] = ys
			}
			ys.GithubRepos++
			ys.TotalStars += stars
			ys.TotalForks += forks
			ys.MaxStars = max(ys.MaxStars, stars)
			ys.MaxForks = max(ys.MaxForks, forks)

			agg.Overall.GithubRepos++
			agg.Overall.TotalStars += stars
			agg.Overall.TotalForks += forks
			agg.Overall.MaxStars = max(agg.Overall.MaxStars, stars)
			agg.Overall.MaxForks = max(agg.Overall.MaxForks, forks)

		case SourceZenodo:
			agg.Overall.ZenodoRepos++
			agg.Overall.TotalViews += e.ZenodoViews
			agg.Overall.TotalDownloads += e.ZenodoDownloads
		}
	}

	if n := agg.Overall.GithubRepos; n > 0 {
		agg.Overall.AvgStars = round1(float64(agg.Overall.TotalStars) / float64(n))
		agg.Overall.AvgForks = round1(float64(agg.Overall.TotalForks) / float64(n))
	}
	agg.Overall.LastUpdated = now.UTC().Format("2006-01-02 15:04:05 UTC")

	names := make([]string, 0, len(confs))
	for name := range confs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ca := confs[name]
		if n := ca.stats.GithubRepos; n > 0 {
			ca.stats.AvgStars = round1(float64(ca.stats.TotalStars) / float64(n))
			ca.stats.AvgForks = round1(float64(ca.stats.TotalForks) / float64(n))
		}

		yrs := make([]int, 0, len(ca.years))
		for yr := range ca.years {
			yrs = append(yrs, yr)
		}
		sort.Ints(yrs)
		for _, yr := range yrs {
			cy := ca.years[yr]
			if cy.GithubRepos > 0 {
				cy.AvgStars = round1(float64(cy.Stars) / float64(cy.GithubRepos))
				cy.AvgForks = round1(float64(cy.Forks) / float64(cy.GithubRepos))
			}
			ca.stats.Years = append(ca.stats.Years, *cy)
		}

		sort.SliceStable(ca.repos, func(i, j int) bool { return ca.repos[i].Stars > ca.repos[j].Stars })
		if len(ca.repos) > topRepoCount {
			ca.repos = ca.repos[:topRepoCount]
		}
		ca.stats.TopRepos = ca.repos

		agg.ByConference = append(agg.ByConference, ca.stats)
	}

	yrs := make([]int, 0, len(years))
	for yr := range years {
		yrs = append(yrs, yr)
	}
	sort.Ints(yrs)
	for _, yr := range yrs {
		ys := years[yr]
		if ys.GithubRepos > 0 {
			ys.AvgStars = round1(float64(ys.TotalStars) / float64(ys.GithubRepos))
			ys.AvgForks = round1(float64(ys.TotalForks) / float64(ys.GithubRepos))
		}
		agg.ByYear = append(agg.ByYear, *ys)
	}

	return agg
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
