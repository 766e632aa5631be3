package crawler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sitebook/sitebook/internal/model"
	"github.com/sitebook/sitebook/internal/webclient"
)

// ErrSeedsUnreachable is returned when every seed of a crawl failed to
// fetch. Individual seed failures are tolerated as long as at least one
// seed produced a page.
var ErrSeedsUnreachable = errors.New("no seed URL was reachable")

// Seed is a crawl entry point together with its display metadata.
type Seed struct {
	// URL is the absolute seed URL.
	URL string

	// Title overrides the extracted page title when non-empty.
	Title string

	// Order is the explicit display order hint; zero means unset.
	Order int
}

// Spider performs the depth-bounded breadth-first crawl of one section.
//
// A Spider holds only configuration. All traversal state lives in a
// per-crawl object created inside Crawl and discarded when it returns,
// so one Spider can serve concurrent crawls of independent sections
// without shared mutable state.
type Spider struct {
	// fetcher retrieves raw page content. Retry mechanics live there.
	fetcher webclient.Fetcher

	// maxDepth limits traversal from the seeds. 0 fetches only seeds.
	maxDepth int

	// maxPages caps the total pages fetched in one crawl.
	maxPages int

	// delay is the politeness pause between fetches.
	delay time.Duration

	// boundaryChildren, when true, follows links of pages at maxDepth
	// one level further; those extra pages are flagged as boundary
	// pages. When false (default), such links are counted as excluded.
	boundaryChildren bool

	// section is the section name stamped onto produced pages.
	section string

	logger *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seeds, 1 = seeds plus directly linked pages, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages caps the number of pages fetched per crawl.
func WithMaxPages(n int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = n
	}
}

// WithDelay sets the politeness delay between fetches.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithBoundaryChildren enables the corrected depth-cutoff policy: pages
// linked from a page at maxDepth are fetched at maxDepth+1 and flagged
// as boundary pages instead of being silently dropped.
func WithBoundaryChildren(include bool) SpiderOption {
	return func(s *Spider) {
		s.boundaryChildren = include
	}
}

// WithSection sets the section name recorded on every produced page.
func WithSection(name string) SpiderOption {
	return func(s *Spider) {
		s.section = name
	}
}

// WithSpiderLogger sets the logger used for per-page progress and
// skipped-fetch warnings.
func WithSpiderLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// NewSpider creates a Spider using the given fetcher.
//
// Design decision: We require an external fetcher because transport
// configuration (timeouts, retries, credentials) is the webclient's
// concern, and tests can substitute an in-memory fetcher.
func NewSpider(fetcher webclient.Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		maxDepth: 2,
		maxPages: 500,
		delay:    time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// workItem is one frontier entry of the traversal.
type workItem struct {
	url    string // canonical
	depth  int
	parent string // canonical URL of the discovering page; "" for seeds
	seed   *Seed  // non-nil for seed items
}

// crawlState is the crawl-scoped mutable state: created at crawl start,
// discarded at crawl end. Never shared between crawls.
type crawlState struct {
	// seen holds every canonical URL ever enqueued. Marking at enqueue
	// time keeps a URL that is already on the frontier from being
	// miscounted as excluded when a page at the depth limit links to it.
	seen map[string]bool

	// excluded holds the URLs already counted in ExcludedAtBoundary, so
	// the same never-fetched URL linked from several pages at the depth
	// limit is counted once.
	excluded map[string]bool

	queue   []workItem
	pages   []*model.Page
	stats   model.CrawlStats
	seedHit bool
}

// Crawl explores outward from the seeds, breadth-first, up to the
// configured depth, and returns the discovered pages in first-discovery
// order together with the completeness statistics.
//
// Failure semantics: an individual fetch or parse failure is logged,
// counted, and skipped. Crawl returns ErrSeedsUnreachable only when no
// seed produced a page. Cancellation keeps already-fetched pages and
// marks the stats partial instead of discarding work.
func (s *Spider) Crawl(ctx context.Context, seeds []Seed, scope *Scope) ([]*model.Page, *model.CrawlStats, error) {
	st := &crawlState{
		seen:     make(map[string]bool),
		excluded: make(map[string]bool),
		pages:    make([]*model.Page, 0),
	}

	for i := range seeds {
		seed := seeds[i]
		canonical := Canonicalize(seed.URL)
		if st.seen[canonical] {
			continue
		}
		st.seen[canonical] = true
		st.queue = append(st.queue, workItem{
			url:  canonical,
			seed: &seed,
		})
	}

	// expandLimit is the deepest depth whose pages still have their
	// links followed.
	expandLimit := s.maxDepth
	if s.boundaryChildren {
		expandLimit = s.maxDepth + 1
	}

	for len(st.queue) > 0 && len(st.pages) < s.maxPages {
		select {
		case <-ctx.Done():
			st.stats.Partial = true
			s.logger.Warn("crawl cancelled, keeping fetched pages",
				"section", s.section,
				"pages", len(st.pages),
			)
			return st.pages, &st.stats, nil
		default:
		}

		item := st.queue[0]
		st.queue = st.queue[1:]

		page, links := s.fetchPage(ctx, item, st)
		if page == nil {
			continue
		}

		page.Seq = len(st.pages)
		st.pages = append(st.pages, page)
		st.stats.PagesFetched++
		if page.Boundary {
			st.stats.BoundaryPages++
		}

		s.enqueueLinks(item, links, scope, st, expandLimit)

		if s.delay > 0 && len(st.queue) > 0 {
			select {
			case <-ctx.Done():
				st.stats.Partial = true
				return st.pages, &st.stats, nil
			case <-time.After(s.delay):
			}
		}
	}

	if !st.seedHit {
		return nil, &st.stats, ErrSeedsUnreachable
	}
	return st.pages, &st.stats, nil
}

// fetchPage fetches one frontier item and builds its Page record.
// Returns a nil page when the URL must be skipped; the reason has
// already been counted and logged.
func (s *Spider) fetchPage(ctx context.Context, item workItem, st *crawlState) (*model.Page, []string) {
	resp, err := s.fetcher.Fetch(ctx, item.url)
	if err != nil {
		st.stats.FetchFailures++
		s.logger.Warn("skipping page after fetch failure",
			"url", item.url,
			"error", err,
		)
		return nil, nil
	}

	page := &model.Page{
		URL:         item.url,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Raw:         resp.Body,
		Depth:       item.depth,
		ParentURL:   item.parent,
		Section:     s.section,
	}
	page.TruncateRaw()
	page.ComputeHash()

	if !page.IsHTML() {
		st.stats.ParseFailures++
		s.logger.Warn("skipping non-HTML page",
			"url", item.url,
			"contentType", page.ContentType,
		)
		return nil, nil
	}

	var links []string
	parser, err := NewParser(item.url)
	if err == nil {
		result, perr := parser.Parse(bytes.NewReader(resp.Body))
		if perr != nil {
			st.stats.ParseFailures++
			s.logger.Warn("skipping unparseable page",
				"url", item.url,
				"error", perr,
			)
			return nil, nil
		}
		page.Title = result.Title
		links = result.Links
	}

	if item.seed != nil {
		st.seedHit = true
		if item.seed.Title != "" {
			page.Title = item.seed.Title
		}
		page.Order = item.seed.Order
	}

	// Boundary flag: at the depth limit under the default policy, or at
	// the extended limit under the include-boundary-children policy.
	switch {
	case s.boundaryChildren && item.depth == s.maxDepth+1:
		page.Boundary = true
	case !s.boundaryChildren && item.depth == s.maxDepth:
		page.Boundary = true
	}

	s.logger.Debug("fetched page",
		"url", item.url,
		"depth", item.depth,
		"title", page.Title,
	)
	return page, links
}

// enqueueLinks filters a page's links through the scope and either adds
// them to the frontier or, past the expansion limit, counts them as
// excluded by the depth cutoff.
//
// The queue is breadth-first, so by the time a page at the expansion
// limit is processed every shallower page has already enqueued its
// links. A URL absent from the seen set here is therefore genuinely
// unreachable within the depth bound.
func (s *Spider) enqueueLinks(item workItem, links []string, scope *Scope, st *crawlState, expandLimit int) {
	for _, link := range links {
		canonical := Canonicalize(link)
		if st.seen[canonical] || !scope.Allows(canonical) {
			continue
		}
		if item.depth >= expandLimit {
			// The child is in scope but the cutoff stops us. Count it
			// once so the completeness report can name the gap.
			if !st.excluded[canonical] {
				st.excluded[canonical] = true
				st.stats.ExcludedAtBoundary++
			}
			continue
		}
		st.seen[canonical] = true
		st.queue = append(st.queue, workItem{
			url:    canonical,
			depth:  item.depth + 1,
			parent: item.url,
		})
	}
}
