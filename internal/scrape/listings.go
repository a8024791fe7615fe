package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/researchartifacts/aestats/internal/config"
	"github.com/researchartifacts/aestats/internal/logger"
)

// Listing is one discovered conference directory on a source site.
type Listing struct {
	Name   string
	Source config.Source
}

// Conferences lists the per-conference directories of src via the
// GitHub contents API, keeping only names matching pattern.
func (s *Scraper) Conferences(ctx context.Context, src config.Source, pattern *regexp.Regexp) ([]Listing, error) {
	body, err := s.fetchCached(ctx, config.NSListings, src.ContentsURL(), config.TTLDefault, s.apiHeader())
	if err != nil {
		return nil, fmt.Errorf("failed to list conferences for %s: %w", src.Name, err)
	}

	var items []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode contents listing for %s: %w", src.Name, err)
	}

	var out []Listing
	for _, item := range items {
		if item.Type != "dir" {
			continue
		}
		if pattern != nil && !pattern.MatchString(item.Name) {
			continue
		}
		out = append(out, Listing{Name: item.Name, Source: src})
	}
	logger.Debug("%s: %d conference directories match", src.Name, len(out))
	return out, nil
}
