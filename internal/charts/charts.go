// Package charts renders the site's overview charts from aggregated
// conference data. Output is self-contained HTML under assets/charts/,
// one file per chart.
package charts

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	echarts "github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/researchartifacts/aestats/internal/models"
	"github.com/researchartifacts/aestats/internal/sitedata"
	"github.com/researchartifacts/aestats/internal/utils"
)

const (
	chartWidth  = "900px"
	chartHeight = "500px"
)

type renderer interface {
	Render(w io.Writer) error
}

// Generate renders every chart under outputDir/assets/charts. Charts
// with no data (for example a category nothing parsed into) are skipped.
func Generate(outputDir string, d *sitedata.SiteData) error {
	dir := filepath.Join(outputDir, "assets", "charts")

	files := []struct {
		name  string
		chart renderer
	}{
		{"total_artifacts.html", totalsChart(d.ByYear)},
		{"badge_distribution.html", badgeTimeline(d.Artifacts)},
		{"badges_by_conference.html", badgesByConference(d.ByConference)},
	}
	if c := categoryChart(d.ByConference, models.CategorySystems, "Systems Artifacts by Conference"); c != nil {
		files = append(files, struct {
			name  string
			chart renderer
		}{"systems_artifacts.html", c})
	}
	if c := categoryChart(d.ByConference, models.CategorySecurity, "Security Artifacts by Conference"); c != nil {
		files = append(files, struct {
			name  string
			chart renderer
		}{"security_artifacts.html", c})
	}

	for _, f := range files {
		var buf bytes.Buffer
		if err := f.chart.Render(&buf); err != nil {
			return fmt.Errorf("render %s: %w", f.name, err)
		}
		if err := utils.CreateFile(filepath.Join(dir, f.name), buf.Bytes(), utils.FileTypeBinary, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newLine(title string) *echarts.Line {
	line := echarts.NewLine()
	line.SetGlobalOptions(
		echarts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: chartWidth, Height: chartHeight}),
		echarts.WithTitleOpts(opts.Title{Title: title}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		echarts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	return line
}

// totalsChart plots total, systems and security artifact counts per year.
func totalsChart(byYear []sitedata.YearCount) *echarts.Line {
	years := make([]string, 0, len(byYear))
	total := make([]opts.LineData, 0, len(byYear))
	systems := make([]opts.LineData, 0, len(byYear))
	security := make([]opts.LineData, 0, len(byYear))
	for _, y := range byYear {
		years = append(years, strconv.Itoa(y.Year))
		total = append(total, opts.LineData{Value: y.Count})
		systems = append(systems, opts.LineData{Value: y.Systems})
		security = append(security, opts.LineData{Value: y.Security})
	}

	line := newLine("Total Artifact Evaluations by Year")
	line.SetXAxis(years).
		AddSeries("Total", total).
		AddSeries("Systems", systems).
		AddSeries("Security", security)
	return line
}

// categoryChart plots one series per conference of the given category,
// artifact count by year. Workshops get a " (W)" label suffix. Returns
// nil when the category has no conferences.
func categoryChart(byConf []sitedata.ConferenceArtifacts, category, title string) *echarts.Line {
	type series struct {
		label  string
		counts map[int]int
	}
	var confs []series
	yearSet := make(map[int]bool)
	for _, c := range byConf {
		if c.Category != category {
			continue
		}
		label := c.Name
		if c.VenueType == "workshop" {
			label += " (W)"
		}
		counts := make(map[int]int, len(c.Years))
		for _, y := range c.Years {
			counts[y.Year] = y.Total
			yearSet[y.Year] = true
		}
		confs = append(confs, series{label, counts})
	}
	if len(confs) == 0 {
		return nil
	}
	sort.SliceStable(confs, func(i, j int) bool { return confs[i].label < confs[j].label })

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	xs := make([]string, 0, len(years))
	for _, y := range years {
		xs = append(xs, strconv.Itoa(y))
	}

	line := newLine(title)
	line.SetXAxis(xs)
	for _, cs := range confs {
		data := make([]opts.LineData, 0, len(years))
		for _, y := range years {
			data = append(data, opts.LineData{Value: cs.counts[y]})
		}
		line.AddSeries(cs.label, data)
	}
	return line
}

// badgeTimeline plots awarded badge counts per year. Unlike the table
// aggregation, each badge string counts toward its first matching grade
// only, and all-zero series are dropped.
func badgeTimeline(arts []sitedata.SiteArtifact) *echarts.Line {
	perYear := make(map[int]*models.BadgeCounts)
	for _, a := range arts {
		bc := perYear[a.Year]
		if bc == nil {
			bc = &models.BadgeCounts{}
			perYear[a.Year] = bc
		}
		for _, b := range a.Badges {
			lower := strings.ToLower(b)
			switch {
			case strings.Contains(lower, "available"):
				bc.Available++
			case strings.Contains(lower, "functional"):
				bc.Functional++
			case strings.Contains(lower, "reproduc"), strings.Contains(lower, "replicated"):
				bc.Reproducible++
			case strings.Contains(lower, "reusable"):
				bc.Reusable++
			}
		}
	}

	years := make([]int, 0, len(perYear))
	for y := range perYear {
		years = append(years, y)
	}
	sort.Ints(years)
	xs := make([]string, 0, len(years))
	for _, y := range years {
		xs = append(xs, strconv.Itoa(y))
	}

	line := newLine("Artifact Badge Distribution Over Time")
	line.SetXAxis(xs)
	for _, grade := range []struct {
		name string
		get  func(models.BadgeCounts) int
	}{
		{"Available", func(c models.BadgeCounts) int { return c.Available }},
		{"Functional", func(c models.BadgeCounts) int { return c.Functional }},
		{"Reproducible", func(c models.BadgeCounts) int { return c.Reproducible }},
		{"Reusable", func(c models.BadgeCounts) int { return c.Reusable }},
	} {
		data := make([]opts.LineData, 0, len(years))
		nonzero := false
		for _, y := range years {
			v := grade.get(*perYear[y])
			if v > 0 {
				nonzero = true
			}
			data = append(data, opts.LineData{Value: v})
		}
		if nonzero {
			line.AddSeries(grade.name, data)
		}
	}
	return line
}

// badgesByConference plots total badge grades per conference as grouped
// bars.
func badgesByConference(byConf []sitedata.ConferenceArtifacts) *echarts.Bar {
	names := make([]string, 0, len(byConf))
	available := make([]opts.BarData, 0, len(byConf))
	functional := make([]opts.BarData, 0, len(byConf))
	reproducible := make([]opts.BarData, 0, len(byConf))
	reusable := make([]opts.BarData, 0, len(byConf))
	for _, c := range byConf {
		var bc models.BadgeCounts
		for _, y := range c.Years {
			bc.Available += y.Available
			bc.Functional += y.Functional
			bc.Reproducible += y.Reproducible
			bc.Reusable += y.Reusable
		}
		names = append(names, c.Name)
		available = append(available, opts.BarData{Value: bc.Available})
		functional = append(functional, opts.BarData{Value: bc.Functional})
		reproducible = append(reproducible, opts.BarData{Value: bc.Reproducible})
		reusable = append(reusable, opts.BarData{Value: bc.Reusable})
	}

	bar := echarts.NewBar()
	bar.SetGlobalOptions(
		echarts.WithInitializationOpts(opts.Initialization{PageTitle: "Badge Grades by Conference", Width: chartWidth, Height: chartHeight}),
		echarts.WithTitleOpts(opts.Title{Title: "Badge Grades by Conference"}),
		echarts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		echarts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries("Available", available).
		AddSeries("Functional", functional).
		AddSeries("Reproducible", reproducible).
		AddSeries("Reusable", reusable)
	return bar
}
