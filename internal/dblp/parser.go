package dblp

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/researchartifacts/aestats/internal/logger"
	"github.com/researchartifacts/aestats/internal/utils"
)

// Paper is one DBLP record matched against an artifact title.
type Paper struct {
	Title   string
	Authors []string
	Year    int
	Venue   string
}

// record is the raw XML shape of an article/inproceedings entry. Year
// stays a string: a handful of records carry none and must not sink
// the whole element.
type record struct {
	Title     string   `xml:"title"`
	Authors   []string `xml:"author"`
	Year      string   `xml:"year"`
	Booktitle string   `xml:"booktitle"`
	Journal   string   `xml:"journal"`
}

var recordTags = map[string]bool{"article": true, "inproceedings": true}

var titlePunctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// NormalizeTitle lowercases a title, strips punctuation and collapses
// whitespace, so DBLP titles (which end with a period) and scraped
// titles compare equal.
func NormalizeTitle(title string) string {
	t := titlePunctRe.ReplaceAllString(strings.ToLower(title), "")
	return strings.Join(strings.Fields(t), " ")
}

const ctxCheckEvery = 100000

// MatchTitles streams the gzipped DBLP dump at path and returns the
// records whose normalized titles appear in titles. The dump holds
// millions of records, so elements are decoded one at a time and the
// scan stops as soon as every title has been found.
func MatchTitles(ctx context.Context, path string, titles map[string]bool) ([]Paper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DBLP dump: %w", err)
	}
	defer utils.Close(f)

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read DBLP dump: %w", err)
	}
	defer utils.Close(gz)

	// DBLP ships ISO-8859-1 XML full of DTD entities; non-strict mode
	// plus the HTML entity table covers what actually occurs.
	dec := xml.NewDecoder(gz)
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	want := make(map[string]bool, len(titles))
	for t := range titles {
		want[t] = true
	}

	var papers []Paper
	processed := 0
	for len(want) > 0 {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return papers, fmt.Errorf("failed to parse DBLP dump: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || !recordTags[se.Name.Local] {
			continue
		}

		var rec record
		if err := dec.DecodeElement(&rec, &se); err != nil {
			logger.Debug("skipping malformed DBLP record: %v", err)
			continue
		}

		processed++
		if processed%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return papers, err
			}
			logger.Debug("scanned %d DBLP records, %d titles left", processed, len(want))
		}

		norm := NormalizeTitle(rec.Title)
		if !want[norm] {
			continue
		}
		delete(want, norm)

		venue := rec.Booktitle
		if venue == "" {
			venue = rec.Journal
		}
		year, _ := strconv.Atoi(strings.TrimSpace(rec.Year))
		papers = append(papers, Paper{
			Title:   rec.Title,
			Authors: rec.Authors,
			Year:    year,
			Venue:   venue,
		})
	}

	if len(want) > 0 {
		logger.Debug("%d artifact titles not found in DBLP", len(want))
	}
	return papers, nil
}
