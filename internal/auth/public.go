package auth

import (
	"net/url"
	"path"
	"strings"
)

// publicMatcher classifies request targets that must not carry a credential.
// A pattern matches when the request path ends with it, or when it is a glob
// that path.Match accepts against the full path.
type publicMatcher struct {
	patterns []string
}

func newPublicMatcher(patterns []string) publicMatcher {
	m := publicMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		m.patterns = append(m.patterns, strings.TrimRight(p, "/"))
	}
	return m
}

func (m publicMatcher) match(target string) bool {
	p := target
	if u, err := url.Parse(target); err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	for _, pattern := range m.patterns {
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := path.Match(pattern, p); ok {
				return true
			}
			continue
		}
		if p == pattern || strings.HasSuffix(p, pattern) {
			return true
		}
	}
	return false
}
