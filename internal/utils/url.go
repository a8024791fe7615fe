package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseSecureURL parses raw and requires an http(s) scheme and a host.
func ParseSecureURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in URL %q", raw)
	}
	return u, nil
}

// NormalizeDOI turns a bare DOI like "10.1145/3548606" into a
// resolvable https://doi.org/ link. Already-absolute URLs pass through.
func NormalizeDOI(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return link
	}
	if strings.HasPrefix(link, "10.") {
		return "https://doi.org/" + link
	}
	if strings.HasPrefix(link, "doi.org/") {
		return "https://" + link
	}
	return link
}
