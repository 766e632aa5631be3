package htmlproc

import (
	"bytes"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/sitebook/sitebook/internal/anchor"
	"github.com/sitebook/sitebook/internal/crawler"
	"github.com/sitebook/sitebook/internal/model"
)

// contentSelectors are tried in order to locate the main content region.
// The first match wins; without a match the whole body is used.
var contentSelectors = []string{
	"main",
	"#main-content",
	"article",
	".content",
}

// pruneSelectors remove site chrome that has no place in a compiled
// document.
var pruneSelectors = []string{
	"nav",
	"header",
	"footer",
	"script",
	"style",
	"noscript",
	"iframe",
	"aside",
	"[role=navigation]",
	"[role=banner]",
	"[role=contentinfo]",
	".skip-link",
	".breadcrumb",
	".breadcrumbs",
	"#back-to-top",
}

// Processor rewrites fetched pages into render-ready fragments.
type Processor struct {
	anchors *anchor.Map
	policy  *bluemonday.Policy
	logger  *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithProcessorLogger sets the logger for per-page processing warnings.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor rewriting links through the given
// anchor map.
func NewProcessor(anchors *anchor.Map, opts ...ProcessorOption) *Processor {
	p := &Processor{
		anchors: anchors,
		policy:  sanitizePolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// sanitizePolicy builds the bluemonday policy applied before any DOM
// work. It is the UGC baseline widened with the structural elements and
// id/class attributes the later stages rely on.
func sanitizePolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("main", "article", "section", "nav", "header", "footer",
		"aside", "figure", "figcaption", "details", "summary")
	policy.AllowAttrs("id", "class", "role").Globally()
	policy.AllowAttrs("target", "rel").OnElements("a")
	policy.AllowAttrs("alt", "title", "width", "height").OnElements("img")
	policy.AllowDataURIImages()
	return policy
}

// Process sanitizes, extracts, and rewrites one page, storing the
// result in page.Content.
func (p *Processor) Process(page *model.Page) error {
	if len(page.Raw) == 0 {
		return fmt.Errorf("page %s has no content", page.URL)
	}

	base, err := url.Parse(page.URL)
	if err != nil {
		return fmt.Errorf("parse page URL: %w", err)
	}

	clean := p.policy.SanitizeBytes(page.Raw)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(clean))
	if err != nil {
		return fmt.Errorf("parse HTML of %s: %w", page.URL, err)
	}

	content := extractContent(doc)
	for _, sel := range pruneSelectors {
		content.Find(sel).Remove()
	}

	pageAnchor, _ := p.anchors.Anchor(page.URL)
	p.assignHeadingIDs(content, page, pageAnchor)
	p.rewriteLinks(content, base)
	p.absolutizeImages(content, base)
	normalizeTables(content)
	normalizeCode(content)

	html, err := content.Html()
	if err != nil {
		return fmt.Errorf("serialize content of %s: %w", page.URL, err)
	}
	page.Content = strings.TrimSpace(html)
	return nil
}

// extractContent picks the main content region, falling back to body.
func extractContent(doc *goquery.Document) *goquery.Selection {
	for _, sel := range contentSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Find("body").First()
}

// assignHeadingIDs gives every heading a slug ID and ties the lead
// heading to the page anchor so intra-document links land on it. A page
// without any h1 gets one synthesized from its title.
func (p *Processor) assignHeadingIDs(content *goquery.Selection, page *model.Page, pageAnchor string) {
	lead := content.Find("h1").First()
	if lead.Length() == 0 {
		content.PrependHtml(fmt.Sprintf("<h1>%s</h1>", html.EscapeString(page.DisplayTitle())))
		lead = content.Find("h1").First()
	}
	if pageAnchor != "" {
		lead.SetAttr("id", pageAnchor)
	}

	seen := map[string]bool{pageAnchor: true}
	content.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, h *goquery.Selection) {
		if _, ok := h.Attr("id"); ok {
			return
		}
		slug := anchor.Slug(h.Text())
		if slug == "" {
			return
		}
		id := slug
		if pageAnchor != "" {
			id = pageAnchor + "-" + slug
		}
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s-%d", slug, n)
			if pageAnchor != "" {
				id = fmt.Sprintf("%s-%s-%d", pageAnchor, slug, n)
			}
		}
		seen[id] = true
		h.SetAttr("id", id)
	})
}

// rewriteLinks converts links to crawled pages into internal anchor
// references and leaves everything else absolute, opening externally.
func (p *Processor) rewriteLinks(content *goquery.Selection, base *url.URL) {
	content.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref)

		if target, ok := p.anchors.Anchor(crawler.Canonicalize(absolute.String())); ok {
			a.SetAttr("href", "#"+target)
			a.AddClass("internal-link")
			return
		}

		a.SetAttr("href", absolute.String())
		a.SetAttr("target", "_blank")
		a.SetAttr("rel", "noopener")
		a.AddClass("external-link")
	})
}

// absolutizeImages resolves relative img sources so the embedding step
// can fetch them, and so unembedded images still reference a real URL.
func (p *Processor) absolutizeImages(content *goquery.Selection, base *url.URL) {
	content.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		img.SetAttr("src", base.ResolveReference(ref).String())
	})
}

// normalizeTables promotes leading all-header rows into thead and tags
// every table for the render styling pass.
func normalizeTables(content *goquery.Selection) {
	content.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.AddClass("pdf-table")

		if table.Find("thead").Length() > 0 {
			return
		}
		first := table.Find("tr").First()
		if first.Length() == 0 {
			return
		}
		cells := first.Children()
		if cells.Length() == 0 || cells.Length() != first.Children().Filter("th").Length() {
			return
		}
		headHTML, err := goquery.OuterHtml(first)
		if err != nil {
			return
		}
		first.Remove()
		table.PrependHtml("<thead>" + headHTML + "</thead>")
	})
}

// normalizeCode tags pre blocks for the render styling pass.
func normalizeCode(content *goquery.Selection) {
	content.Find("pre").AddClass("code-block")
}

