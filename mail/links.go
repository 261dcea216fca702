package mail

import (
	"net/url"
	"strings"
)

const linkCutset = "<>()[]{}\"'.,;:!?"

// ExtractLinks returns every absolute http(s) URL found in body, in order
func ExtractLinks(body string) []*url.URL {
	var links []*url.URL
	for _, field := range strings.Fields(body) {
		candidate := strings.Trim(field, linkCutset)
		if !strings.Contains(candidate, "://") {
			continue
		}

		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}

		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}

		if u.Host == "" {
			continue
		}

		links = append(links, u)
	}
	return links
}

// FindLink returns the server relative form (path, query) of the first link
// on host whose path starts with prefix.
func FindLink(body, host, prefix string) (string, bool) {
	for _, u := range ExtractLinks(body) {
		if host != "" && !strings.EqualFold(u.Host, host) {
			continue
		}

		if !strings.HasPrefix(u.Path, prefix) {
			continue
		}

		return u.RequestURI(), true
	}
	return "", false
}
