package models

// RepoStats is the per-repository answer from one hosting platform.
// Field names mirror the site's repo_stats.yml schema. NotFound marks a
// repository that answered 404/410: a definitive "gone", cached like
// any other value.
type RepoStats struct {
	Source   string `json:"source" yaml:"source"`
	NotFound bool   `json:"not_found,omitempty" yaml:"not_found,omitempty"`

	GithubStars int      `json:"github_stars,omitempty" yaml:"github_stars,omitempty"`
	GithubForks int      `json:"github_forks,omitempty" yaml:"github_forks,omitempty"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Language    string   `json:"language,omitempty" yaml:"language,omitempty"`
	License     string   `json:"license,omitempty" yaml:"license,omitempty"`
	Topics      []string `json:"topics,omitempty" yaml:"topics,omitempty"`

	ZenodoViews     int `json:"zenodo_views,omitempty" yaml:"zenodo_views,omitempty"`
	ZenodoDownloads int `json:"zenodo_downloads,omitempty" yaml:"zenodo_downloads,omitempty"`

	FigshareViews     int `json:"figshare_views,omitempty" yaml:"figshare_views,omitempty"`
	FigshareDownloads int `json:"figshare_downloads,omitempty" yaml:"figshare_downloads,omitempty"`

	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	PushedAt  string `json:"pushed_at,omitempty" yaml:"pushed_at,omitempty"`
}

// StatsEntry ties one repository's stats back to the artifact and
// conference it belongs to, for aggregation.
type StatsEntry struct {
	Conference string `yaml:"conference"`
	Year       int    `yaml:"year"`
	Title      string `yaml:"title"`
	URL        string `yaml:"url"`
	RepoStats  `yaml:",inline"`
}

// AuthorCount is one author's artifact tally from the bibliography
// cross-reference.
type AuthorCount struct {
	Name  string `yaml:"name" json:"name"`
	Count int    `yaml:"count" json:"count"`
}
