package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Page represents one crawled web page.
//
// Identity is the canonical URL: fragments and query strings are removed
// and host casing normalized before a Page is created, so two Pages never
// share a URL. Depth and parent are fixed at creation time; only Content
// is rewritten later by the HTML processing step.
type Page struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// Title is the page title, taken from the <title> tag or, if that is
	// empty, from the seed configuration.
	Title string `json:"title"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type from the Content-Type header.
	ContentType string `json:"content_type"`

	// Raw contains the response body as fetched, limited to MaxPageSize.
	Raw []byte `json:"-"` // Excluded from JSON to keep archives small

	// Content is the processed HTML fragment used for rendering.
	// Empty until the HTML processing step has run.
	Content string `json:"-"`

	// Depth is the discovery depth: 0 for seeds, parent depth + 1 otherwise.
	Depth int `json:"depth"`

	// ParentURL is the canonical URL of the page this one was discovered
	// from. Empty for seed pages.
	ParentURL string `json:"parent_url,omitempty"`

	// Section is the name of the section whose crawl produced this page.
	Section string `json:"section"`

	// Order is the explicit ordering hint from the seed configuration.
	// Zero means no hint; configured orders start at 1. Hints affect
	// display and bookmark sequencing only, never traversal.
	Order int `json:"order,omitempty"`

	// Seq is the discovery sequence number within the crawl, starting at 0.
	// Used as the ordering fallback when no explicit hint is present.
	Seq int `json:"seq"`

	// Boundary marks a page fetched at the depth limit under the
	// include-boundary-children policy. Its own links were not followed.
	Boundary bool `json:"boundary,omitempty"`

	// Hash is the SHA-256 hash of the raw content, used for change
	// detection when re-rendering from the archive.
	Hash string `json:"hash,omitempty"`
}

// MaxPageSize is the maximum raw body size stored per page.
// Larger bodies are truncated to keep memory and archive size bounded.
const MaxPageSize = 5 * 1024 * 1024 // 5 MB

// ComputeHash calculates and sets the SHA-256 hash of the raw content.
// Call after setting Raw.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(sum[:])
}

// TruncateRaw enforces MaxPageSize on the raw content.
func (p *Page) TruncateRaw() {
	if len(p.Raw) > MaxPageSize {
		p.Raw = p.Raw[:MaxPageSize]
	}
}

// IsHTML reports whether the content type indicates an HTML document.
func (p *Page) IsHTML() bool {
	return strings.HasPrefix(p.ContentType, "text/html") ||
		strings.HasPrefix(p.ContentType, "application/xhtml+xml")
}

// DisplayTitle returns the title to show in bookmarks and the table of
// contents, falling back to the URL when no title was extracted.
func (p *Page) DisplayTitle() string {
	if t := strings.TrimSpace(p.Title); t != "" {
		return t
	}
	return p.URL
}
