package charts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/sitedata"
)

func testSiteData() *sitedata.SiteData {
	return &sitedata.SiteData{
		ByConference: []sitedata.ConferenceArtifacts{
			{Name: "OSDI", Category: models.CategorySystems, VenueType: "conference", TotalArtifacts: 3,
				Years: []sitedata.YearBadges{
					{Year: 2023, Total: 2, Available: 1, Functional: 1},
					{Year: 2024, Total: 1, Available: 1, Reproducible: 1},
				}},
			{Name: "WOOT", Category: models.CategorySecurity, VenueType: "workshop", TotalArtifacts: 1,
				Years: []sitedata.YearBadges{
					{Year: 2023, Total: 1, Functional: 1},
				}},
		},
		ByYear: []sitedata.YearCount{
			{Year: 2023, Count: 3, Systems: 2, Security: 1},
			{Year: 2024, Count: 1, Systems: 1},
		},
		Artifacts: []sitedata.SiteArtifact{
			{Conference: "OSDI", Category: models.CategorySystems, Year: 2023, Title: "Widget",
				Badges: []string{"Artifacts Available", "Artifacts Functional"}},
			{Conference: "WOOT", Category: models.CategorySecurity, Year: 2023, Title: "Exploit Kit",
				Badges: []string{"Artifacts Evaluated - Functional"}},
		},
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Generate(dir, testSiteData()))

	for _, name := range []string{
		"total_artifacts.html",
		"badge_distribution.html",
		"badges_by_conference.html",
		"systems_artifacts.html",
		"security_artifacts.html",
	} {
		data, err := os.ReadFile(filepath.Join(dir, "assets", "charts", name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "echarts", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "assets", "charts", "total_artifacts.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Total Artifact Evaluations by Year")
	assert.Contains(t, string(data), "Systems")
	assert.Contains(t, string(data), "2024")
}

func TestGenerate_SkipsEmptyCategory(t *testing.T) {
	d := testSiteData()
	d.ByConference = d.ByConference[:1] // systems only
	dir := t.TempDir()
	require.NoError(t, Generate(dir, d))

	_, err := os.Stat(filepath.Join(dir, "assets", "charts", "security_artifacts.html"))
	assert.True(t, os.IsNotExist(err), "no security conferences, no security chart")
	_, err = os.Stat(filepath.Join(dir, "assets", "charts", "systems_artifacts.html"))
	assert.NoError(t, err)
}

func TestCategoryChart_WorkshopLabel(t *testing.T) {
	c := categoryChart(testSiteData().ByConference, models.CategorySecurity, "Security Artifacts by Conference")
	require.NotNil(t, c)

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.Contains(t, buf.String(), "WOOT (W)")
}

func TestBadgeTimeline_FirstMatchOnly(t *testing.T) {
	arts := []sitedata.SiteArtifact{
		// "available" matches before "functional"; the badge counts once.
		{Year: 2024, Badges: []string{"Available and Functional"}},
	}
	c := badgeTimeline(arts)

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "Available")
	assert.NotContains(t, out, "\"Functional\"", "all-zero series are dropped")
}
