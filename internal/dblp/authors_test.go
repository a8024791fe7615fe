package dblp

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/utils"
)

func TestBuildTitleIndex(t *testing.T) {
	confs := []*models.Conference{
		{
			Key:      "osdi2024",
			Category: models.CategorySystems,
			Artifacts: []models.Artifact{
				{Title: "Fast Systems for Everyone", Badges: []string{"Artifacts Available"}},
				{Title: "Unknown"},
				{Title: ""},
			},
		},
		{
			Key:      "ccs2023",
			Category: models.CategorySecurity,
			Artifacts: []models.Artifact{
				{Title: "Fast Systems for Everyone"},
				{Title: "Widget: A Reusable Artifact?"},
			},
		},
	}

	idx := BuildTitleIndex(confs)
	require.Len(t, idx, 2)

	meta, ok := idx["fast systems for everyone"]
	require.True(t, ok)
	assert.Equal(t, "OSDI", meta.Conference, "first occurrence wins")
	assert.Equal(t, 2024, meta.Year)
	assert.Equal(t, []string{"Artifacts Available"}, meta.Badges)

	assert.Contains(t, idx, "widget a reusable artifact")
	assert.Len(t, idx.Titles(), 2)
}

func TestAggregateAuthors(t *testing.T) {
	idx := TitleIndex{
		"fast systems for everyone": {
			Conference: "OSDI", Category: models.CategorySystems, Year: 2024,
			Badges: []string{"Artifacts Available", "Artifacts Functional"},
		},
		"widget a reusable artifact": {
			Conference: "CCS", Category: models.CategorySecurity, Year: 2023,
			Badges: []string{"Results Reproduced"},
		},
	}
	papers := []Paper{
		{Title: "Fast Systems for Everyone.", Authors: []string{"Alice Example"}, Year: 2024, Venue: "OSDI"},
		{Title: "Widget: A Reusable Artifact?", Authors: []string{"Alice Example", "Bob Builder"}, Venue: "CCS"},
	}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	authors, sum := AggregateAuthors(papers, idx, now)
	require.Len(t, authors, 2)

	alice := authors[0]
	assert.Equal(t, "Alice Example", alice.Name, "most artifacts first")
	assert.Equal(t, 2, alice.ArtifactCount)
	assert.Equal(t, "both", alice.Category)
	assert.Equal(t, []string{"CCS", "OSDI"}, alice.Conferences)
	assert.Equal(t, []int{2023, 2024}, alice.Years, "missing DBLP year falls back to the conference year")
	assert.Equal(t, "2023-2024", alice.YearRange)
	assert.Equal(t, 2, alice.RecentCount)
	assert.Equal(t, 1, alice.BadgesAvailable)
	assert.Equal(t, 1, alice.BadgesFunctional)
	assert.Equal(t, 1, alice.BadgesReproducible)
	require.Len(t, alice.Papers, 2)

	bob := authors[1]
	assert.Equal(t, 1, bob.ArtifactCount)
	assert.Equal(t, models.CategorySecurity, bob.Category)

	assert.Equal(t, 2, sum.TotalAuthors)
	assert.Equal(t, 2, sum.TotalPapersMatched)
	assert.Equal(t, 2, sum.ActiveLastYears)
	assert.Equal(t, 1, sum.MultiConference)
	assert.Equal(t, 1, sum.SystemsAuthors)
	assert.Equal(t, 2, sum.SecurityAuthors)
	assert.Equal(t, 1, sum.CrossDomainAuthors)
	assert.Equal(t, "2025-03-01 12:00:00 UTC", sum.LastUpdated)
}

func TestWriteAuthorData(t *testing.T) {
	dir := t.TempDir()
	authors := []AuthorStats{{Name: "Alice Example", ArtifactCount: 2, Category: "both"}}
	sum := AuthorSummary{TotalAuthors: 1, TotalPapersMatched: 2}

	require.NoError(t, WriteAuthorData(dir, authors, sum))

	var back []AuthorStats
	require.NoError(t, utils.FileReader(filepath.Join(dir, "_data", "authors.yml"), utils.FileTypeYAML, &back))
	require.Len(t, back, 1)
	assert.Equal(t, "Alice Example", back[0].Name)

	var jsonBack []AuthorStats
	require.NoError(t, utils.FileReader(filepath.Join(dir, "assets", "data", "authors.json"), utils.FileTypeJSON, &jsonBack))
	assert.Equal(t, 2, jsonBack[0].ArtifactCount)

	var sumBack AuthorSummary
	require.NoError(t, utils.FileReader(filepath.Join(dir, "_data", "author_summary.yml"), utils.FileTypeYAML, &sumBack))
	assert.Equal(t, 1, sumBack.TotalAuthors)
}
