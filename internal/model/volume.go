package model

import "time"

// Section is a URL-scoped crawl unit: an ordered set of pages sharing a
// base path and depth limit. Sections are produced by the crawler and
// consumed by the assembler.
type Section struct {
	// Name is the section name from the book file.
	Name string `json:"name"`

	// Pages are the crawled pages in display order: explicit order hints
	// first, discovery order as the tiebreak.
	Pages []*Page `json:"pages"`

	// Stats describes the crawl that produced this section.
	Stats *CrawlStats `json:"stats,omitempty"`
}

// Metadata carries free-form document metadata from the book file.
type Metadata struct {
	// Title is the volume title, shown on the title page and in the PDF
	// document information dictionary.
	Title string `json:"title" yaml:"title"`

	// Author is the document author.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// Subject is the document subject line.
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// Volume is one or more sections combined for a single rendered PDF.
// The URL map and outline forest span every section so that links and
// bookmarks resolve across section boundaries.
type Volume struct {
	// Name is the volume name from the book file.
	Name string `json:"name"`

	// Meta is the document metadata.
	Meta Metadata `json:"meta"`

	// GeneratedAt is the assembly timestamp.
	GeneratedAt time.Time `json:"generated_at"`

	// Sections are the assembled sections in configuration order.
	Sections []*Section `json:"sections"`

	// URLMap maps every page's canonical URL to its in-document anchor.
	// The map is total and injective across all sections.
	URLMap map[string]string `json:"url_map"`

	// Outline is the bookmark forest. Roots correspond one-to-one, in
	// order, with Sections.
	Outline []*OutlineNode `json:"outline"`
}

// Pages returns all pages of the volume in section order.
func (v *Volume) Pages() []*Page {
	var pages []*Page
	for _, s := range v.Sections {
		pages = append(pages, s.Pages...)
	}
	return pages
}

// PageCount returns the total number of pages across all sections.
func (v *Volume) PageCount() int {
	n := 0
	for _, s := range v.Sections {
		n += len(s.Pages)
	}
	return n
}
