package anchor

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sitebook/sitebook/internal/model"
)

// Map is the injective mapping from canonical page URLs to anchor
// identifiers. Build one with BuildMap; a zero Map is empty.
type Map struct {
	anchors map[string]string
}

// FromPairs reconstructs a Map from a stored URL-to-anchor mapping,
// such as a volume's URLMap. The pairs are copied.
func FromPairs(pairs map[string]string) *Map {
	m := &Map{anchors: make(map[string]string, len(pairs))}
	for url, a := range pairs {
		m.anchors[url] = a
	}
	return m
}

// Anchor returns the anchor assigned to the canonical URL.
func (m *Map) Anchor(canonicalURL string) (string, bool) {
	a, ok := m.anchors[canonicalURL]
	return a, ok
}

// Len returns the number of mapped URLs.
func (m *Map) Len() int {
	return len(m.anchors)
}

// All returns a copy of the mapping, for reports and serialization.
func (m *Map) All() map[string]string {
	out := make(map[string]string, len(m.anchors))
	for k, v := range m.anchors {
		out[k] = v
	}
	return out
}

// BuildMap assigns an anchor to every page, in slice order, and returns
// the resulting map. Page order is the determinism contract: the same
// pages in the same order always produce the same anchors.
//
// The anchor is the slug of the page title. When two pages slug to the
// same value, later pages are disambiguated by appending the slug of the
// shortest suffix of their URL path that frees the anchor, and as a
// final resort a numeric counter.
func BuildMap(pages []*model.Page) *Map {
	m := &Map{anchors: make(map[string]string, len(pages))}
	taken := make(map[string]bool, len(pages))

	for _, page := range pages {
		if _, dup := m.anchors[page.URL]; dup {
			continue
		}
		a := assign(page, taken)
		m.anchors[page.URL] = a
		taken[a] = true
	}
	return m
}

// assign picks the first free anchor for the page.
func assign(page *model.Page, taken map[string]bool) string {
	base := Slug(page.Title)
	if base == "" {
		base = Slug(pathOf(page.URL))
	}
	if base == "" {
		base = "page"
	}
	if !taken[base] {
		return base
	}

	// Disambiguate with path suffixes, shortest first. The final path
	// segment usually repeats the title slug, so it is dropped before
	// building suffixes.
	segments := pathSegments(page.URL)
	if n := len(segments); n > 0 && Slug(segments[n-1]) == base {
		segments = segments[:n-1]
	}
	for i := len(segments) - 1; i >= 0; i-- {
		suffix := Slug(strings.Join(segments[i:], " "))
		if suffix == "" {
			continue
		}
		candidate := base + "-" + suffix
		if !taken[candidate] {
			return candidate
		}
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// Slug converts text into a lowercase identifier usable as an HTML
// anchor: diacritics folded, non-alphanumeric runs collapsed into
// single hyphens.
func Slug(s string) string {
	folded := foldDiacritics(s)

	var b strings.Builder
	b.Grow(len(folded))
	prevHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// foldDiacritics strips combining marks so "Café" slugs as "cafe".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// pathOf returns the URL path, or the input when it does not parse.
func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}

// pathSegments splits the URL path into its non-empty elements.
func pathSegments(rawURL string) []string {
	parts := strings.Split(strings.Trim(pathOf(rawURL), "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
