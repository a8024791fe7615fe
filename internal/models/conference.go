package models

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	CategorySystems  = "systems"
	CategorySecurity = "security"
)

// Conference is one conference-year ("osdi2024") with its parsed
// artifacts. Category follows the hosting source: sysartifacts venues
// are systems, secartifacts venues are security.
type Conference struct {
	Key       string
	Name      string
	Year      int
	Category  string
	Source    string
	Artifacts []Artifact
}

func (c Conference) Parsed() bool { return len(c.Artifacts) > 0 }

var confKeyRe = regexp.MustCompile(`^([a-zA-Z]+)(\d{4})$`)

// SplitConfKey decomposes "osdi2024" into ("osdi", 2024).
func SplitConfKey(key string) (name string, year int, ok bool) {
	m := confKeyRe.FindStringSubmatch(key)
	if m == nil {
		return key, 0, false
	}
	year, _ = strconv.Atoi(m[2])
	return m[1], year, true
}

// workshops are venues tracked alongside conferences but rendered
// differently on the site.
var workshops = map[string]bool{
	"woot":   true,
	"systex": true,
}

// VenueType distinguishes workshops from conferences by short name.
func VenueType(confName string) string {
	if workshops[strings.ToLower(confName)] {
		return "workshop"
	}
	return "conference"
}
