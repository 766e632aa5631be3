package config

import (
	"net/url"
	"strings"

	"github.com/sitebook/sitebook/internal/model"
)

// Book represents the parsed book file: the declarative description of
// which volumes to compile and which sections each volume crawls.
//
// Two layouts are accepted. The modern layout groups sections under
// named volumes for combined multi-section PDFs. The legacy layout lists
// sections at the top level, and each becomes its own single-section
// volume. Both run through the same assembly code; only the number of
// sections per volume differs.
type Book struct {
	// Defaults contains section settings applied to every section unless
	// overridden in the section itself.
	Defaults SectionDefaults `yaml:"defaults,omitempty"`

	// Volumes are multi-section PDF definitions.
	Volumes []Volume `yaml:"volumes,omitempty"`

	// Sections are top-level sections compiled as single-section volumes.
	Sections []Section `yaml:"sections,omitempty"`
}

// Volume defines one rendered PDF built from one or more sections.
type Volume struct {
	// Name identifies the volume in CLI filters and reports.
	Name string `yaml:"name"`

	// Output is the PDF filename. Defaults to a slug of Name.
	Output string `yaml:"output,omitempty"`

	// Metadata is free-form document metadata for the rendered output.
	Metadata model.Metadata `yaml:"metadata,omitempty"`

	// Sections are the crawl units, in render order.
	Sections []Section `yaml:"sections"`
}

// Section defines one URL-scoped crawl unit.
type Section struct {
	// Name identifies the section; it becomes a bookmark root label.
	Name string `yaml:"name"`

	// BaseURL is the site root, e.g. "https://www.digital.nsw.gov.au".
	// Relative seed URLs are resolved against it, and its host defines
	// the crawl scope.
	BaseURL string `yaml:"baseUrl"`

	// BasePath is the path prefix links must share to be in scope.
	// Defaults to "/".
	BasePath string `yaml:"basePath,omitempty"`

	// MaxDepth bounds traversal from the seeds. Nil means use the
	// defaults block or the global default. Zero fetches only seeds.
	MaxDepth *int `yaml:"maxDepth,omitempty"`

	// IncludeBoundary opts into crawling children of pages at MaxDepth,
	// recording them one level deeper as flagged boundary pages. The
	// default policy excludes them and counts the exclusions instead.
	IncludeBoundary *bool `yaml:"includeBoundary,omitempty"`

	// OutlinePolicy selects hierarchy derivation: "crawl-parent"
	// (default) or "url-path".
	OutlinePolicy string `yaml:"outlinePolicy,omitempty"`

	// IgnorePatterns are URL path glob patterns to skip.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict crawling to matching URL paths when set.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Headers are custom HTTP headers for requests to this section.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is an HTTP cookie header value for this section's requests.
	Cookie string `yaml:"cookie,omitempty"`

	// Seeds are the crawl entry points.
	Seeds []Seed `yaml:"seeds"`

	// Output is the PDF filename for legacy top-level sections.
	Output string `yaml:"output,omitempty"`

	// Metadata is used when this section compiles as its own volume.
	Metadata model.Metadata `yaml:"metadata,omitempty"`
}

// Seed is one crawl entry point with optional display ordering.
type Seed struct {
	// URL is absolute or relative to the section BaseURL.
	URL string `yaml:"url"`

	// Title overrides the extracted page title when non-empty.
	Title string `yaml:"title,omitempty"`

	// Order is the explicit display order hint, starting at 1.
	// Zero means unset; ordering falls back to discovery order.
	Order int `yaml:"order,omitempty"`
}

// SectionDefaults holds settings merged into every section.
type SectionDefaults struct {
	MaxDepth        *int              `yaml:"maxDepth,omitempty"`
	IncludeBoundary *bool             `yaml:"includeBoundary,omitempty"`
	OutlinePolicy   string            `yaml:"outlinePolicy,omitempty"`
	IgnorePatterns  []string          `yaml:"ignorePatterns,omitempty"`
	FollowPatterns  []string          `yaml:"followPatterns,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Cookie          string            `yaml:"cookie,omitempty"`
}

// AllVolumes returns every volume to compile: explicit volumes first,
// then each legacy top-level section wrapped as a single-section volume.
// Section defaults are merged in.
func (b *Book) AllVolumes() []Volume {
	volumes := make([]Volume, 0, len(b.Volumes)+len(b.Sections))

	for _, v := range b.Volumes {
		merged := v
		merged.Sections = make([]Section, len(v.Sections))
		for i, s := range v.Sections {
			merged.Sections[i] = b.mergeDefaults(s)
		}
		volumes = append(volumes, merged)
	}

	for _, s := range b.Sections {
		s = b.mergeDefaults(s)
		volumes = append(volumes, Volume{
			Name:     s.Name,
			Output:   s.Output,
			Metadata: s.Metadata,
			Sections: []Section{s},
		})
	}

	return volumes
}

// FindVolume returns the named volume, or ErrVolumeNotFound.
func (b *Book) FindVolume(name string) (Volume, error) {
	for _, v := range b.AllVolumes() {
		if v.Name == name {
			return v, nil
		}
	}
	return Volume{}, ErrVolumeNotFound
}

// FindSection returns the named section wrapped as a single-section
// volume, searching both layouts. Used by the --section CLI filter.
func (b *Book) FindSection(name string) (Volume, error) {
	for _, v := range b.AllVolumes() {
		for _, s := range v.Sections {
			if s.Name == name {
				meta := s.Metadata
				if meta.Title == "" {
					meta.Title = s.Name
				}
				return Volume{
					Name:     s.Name,
					Output:   s.Output,
					Metadata: meta,
					Sections: []Section{s},
				}, nil
			}
		}
	}
	return Volume{}, ErrSectionNotFound
}

// mergeDefaults fills unset section fields from the defaults block.
func (b *Book) mergeDefaults(s Section) Section {
	d := b.Defaults
	if s.MaxDepth == nil {
		s.MaxDepth = d.MaxDepth
	}
	if s.IncludeBoundary == nil {
		s.IncludeBoundary = d.IncludeBoundary
	}
	if s.OutlinePolicy == "" {
		s.OutlinePolicy = d.OutlinePolicy
	}
	if len(s.IgnorePatterns) == 0 {
		s.IgnorePatterns = d.IgnorePatterns
	}
	if len(s.FollowPatterns) == 0 {
		s.FollowPatterns = d.FollowPatterns
	}
	if s.Cookie == "" {
		s.Cookie = d.Cookie
	}
	if len(d.Headers) > 0 {
		merged := make(map[string]string, len(d.Headers)+len(s.Headers))
		for k, v := range d.Headers {
			merged[k] = v
		}
		for k, v := range s.Headers {
			merged[k] = v
		}
		s.Headers = merged
	}
	return s
}

// Validate checks a single section definition. Problems are per-entry:
// the caller fails this entry's compilation and continues with the rest.
func (s *Section) Validate(volume string) error {
	if s.Name == "" {
		return &EntryError{Volume: volume, Section: "(unnamed)", Reason: "section name is required"}
	}
	if s.BaseURL == "" {
		return &EntryError{Volume: volume, Section: s.Name, Reason: "baseUrl is required"}
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &EntryError{Volume: volume, Section: s.Name, Reason: "baseUrl must be an absolute http(s) URL"}
	}
	if len(s.Seeds) == 0 {
		return &EntryError{Volume: volume, Section: s.Name, Reason: "at least one seed is required"}
	}
	for _, seed := range s.Seeds {
		if seed.URL == "" {
			return &EntryError{Volume: volume, Section: s.Name, Reason: "seed url is required"}
		}
	}
	if s.MaxDepth != nil && *s.MaxDepth < 0 {
		return &EntryError{Volume: volume, Section: s.Name, Reason: "maxDepth must be non-negative"}
	}
	switch s.OutlinePolicy {
	case "", "crawl-parent", "url-path":
	default:
		return &EntryError{Volume: volume, Section: s.Name, Reason: "outlinePolicy must be \"crawl-parent\" or \"url-path\""}
	}
	return nil
}

// ResolvedDepth returns the section's depth limit, falling back to the
// global default when the section and defaults blocks leave it unset.
func (s *Section) ResolvedDepth(globalDefault int) int {
	if s.MaxDepth != nil {
		return *s.MaxDepth
	}
	return globalDefault
}

// BoundaryChildren reports whether the include-boundary-children policy
// is enabled for this section.
func (s *Section) BoundaryChildren() bool {
	return s.IncludeBoundary != nil && *s.IncludeBoundary
}

// EffectiveBasePath returns the scope path prefix, defaulting to "/".
func (s *Section) EffectiveBasePath() string {
	if s.BasePath == "" {
		return "/"
	}
	if !strings.HasPrefix(s.BasePath, "/") {
		return "/" + s.BasePath
	}
	return s.BasePath
}

// SeedURLs resolves all seeds to absolute URLs against BaseURL.
// Invalid seeds are returned as-is; the crawler reports them as fetch
// failures rather than aborting the section here.
func (s *Section) SeedURLs() []string {
	base, err := url.Parse(s.BaseURL)
	if err != nil {
		base = nil
	}

	urls := make([]string, 0, len(s.Seeds))
	for _, seed := range s.Seeds {
		u, err := url.Parse(seed.URL)
		if err != nil {
			urls = append(urls, seed.URL)
			continue
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		urls = append(urls, u.String())
	}
	return urls
}

// SeedFor returns the seed definition matching the given absolute URL,
// if any. Matching ignores trailing slashes.
func (s *Section) SeedFor(absURL string) (Seed, bool) {
	trim := func(u string) string { return strings.TrimSuffix(u, "/") }
	for i, resolved := range s.SeedURLs() {
		if trim(resolved) == trim(absURL) {
			return s.Seeds[i], true
		}
	}
	return Seed{}, false
}
