package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitConfKey(t *testing.T) {
	tests := []struct {
		key      string
		wantName string
		wantYear int
		wantOK   bool
	}{
		{"osdi2024", "osdi", 2024, true},
		{"usenixsec2023", "usenixsec", 2023, true},
		{"pets2021", "pets", 2021, true},
		{"notaconf", "notaconf", 0, false},
		{"osdi24", "osdi24", 0, false},
	}
	for _, tt := range tests {
		name, year, ok := SplitConfKey(tt.key)
		assert.Equal(t, tt.wantName, name, tt.key)
		assert.Equal(t, tt.wantYear, year, tt.key)
		assert.Equal(t, tt.wantOK, ok, tt.key)
	}
}

func TestVenueType(t *testing.T) {
	assert.Equal(t, "workshop", VenueType("woot"))
	assert.Equal(t, "workshop", VenueType("WOOT"))
	assert.Equal(t, "conference", VenueType("osdi"))
}

func TestCountBadges(t *testing.T) {
	artifacts := []Artifact{
		{Badges: []string{"available", "functional"}},
		{Badges: []string{"Artifacts Available", "Results Reproduced"}},
		{Badges: []string{"results replicated"}},
		{Badges: []string{"Artifacts Evaluated – Reusable"}},
		{Badges: nil},
	}

	c := CountBadges(artifacts)
	assert.Equal(t, 2, c.Available)
	assert.Equal(t, 1, c.Functional)
	assert.Equal(t, 2, c.Reproducible)
	assert.Equal(t, 1, c.Reusable)
}

func TestNormalizeBadges(t *testing.T) {
	assert.Equal(t, []string{"available", "functional"}, NormalizeBadges("available, functional"))
	assert.Equal(t, []string{"available"}, NormalizeBadges([]any{"available", ""}))
	assert.Equal(t, []string{"a", "b"}, NormalizeBadges([]string{" a", "b "}))
	assert.Nil(t, NormalizeBadges(nil))
	assert.Nil(t, NormalizeBadges(42))
}

func TestArtifactURLs(t *testing.T) {
	a := Artifact{
		RepositoryURL: "https://github.com/x/y",
		ArtifactURL:   "https://zenodo.org/records/1",
		ExtraURLs:     []string{"https://example.org/more"},
	}
	assert.Equal(t, []string{
		"https://github.com/x/y",
		"https://zenodo.org/records/1",
		"https://example.org/more",
	}, a.URLs())

	assert.Empty(t, Artifact{}.URLs())
}
