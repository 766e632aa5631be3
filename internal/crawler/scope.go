package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// Scope decides whether a discovered link is eligible for traversal.
// It is a pure predicate: no state, no side effects.
type Scope struct {
	// host is the site host links must match, compared case-insensitively.
	host string

	// basePath is the path prefix links must share. "/" allows the
	// whole site.
	basePath string

	// ignorePatterns are URL path glob patterns to skip.
	ignorePatterns []string

	// followPatterns restrict traversal to matching paths when set.
	followPatterns []string
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/search/*", "*.pdf").
func WithIgnorePatterns(patterns []string) ScopeOption {
	return func(s *Scope) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only URLs matching at least one pattern are crawled.
func WithFollowPatterns(patterns []string) ScopeOption {
	return func(s *Scope) {
		s.followPatterns = patterns
	}
}

// NewScope creates a Scope for the given site URL and base path.
// The site URL supplies the host; basePath is normalized to start with
// "/" and carry no trailing slash.
func NewScope(siteURL, basePath string, opts ...ScopeOption) (*Scope, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, err
	}

	if basePath == "" {
		basePath = "/"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if basePath != "/" {
		basePath = strings.TrimSuffix(basePath, "/")
	}

	s := &Scope{
		host:     u.Host,
		basePath: basePath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Allows reports whether the candidate URL is in scope: same host, path
// under the base path, and not excluded by the glob patterns.
func (s *Scope) Allows(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, s.host) {
		return false
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	if !s.underBasePath(path) {
		return false
	}

	for _, pattern := range s.ignorePatterns {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(s.followPatterns) > 0 {
		for _, pattern := range s.followPatterns {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// underBasePath checks the path prefix at segment granularity, so that
// basePath "/design" matches "/design" and "/design/colors" but not
// "/designers".
func (s *Scope) underBasePath(path string) bool {
	if s.basePath == "/" {
		return true
	}
	return path == s.basePath || strings.HasPrefix(path, s.basePath+"/")
}

// Canonicalize normalizes a URL for deduplication and page identity.
//
// Two URLs are the same page when they differ only by fragment, query
// string, host casing, or a trailing slash. Queries are stripped because
// the documentation sites this tool targets use them for tracking and
// search parameters, not for content addressing.
func Canonicalize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawQuery = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Path == "" {
		u.Path = "/"
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

// matchPattern checks if a path matches a glob pattern.
// Supported forms:
//   - "/search/*" matches "/search/anything" and "/search" itself
//   - "*.pdf" matches any path ending in .pdf
//   - otherwise standard filepath.Match semantics apply, with a second
//     try against the path's final element for bare "*"-patterns
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
