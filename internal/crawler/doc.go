// Package crawler implements the bounded recursive crawl: a worklist
// breadth-first traversal from configured seeds, constrained by a URL
// scope, a depth limit, and a page cap.
//
// The package has three parts:
//
//   - Scope: a pure predicate deciding whether a discovered link is
//     eligible for traversal (same host, base path prefix, glob
//     patterns), plus the URL canonicalization all deduplication
//     relies on.
//   - Parser: HTML title/link/image extraction built on
//     golang.org/x/net/html.
//   - Spider: the traversal itself. State (visited set, frontier,
//     counters) is created per crawl and discarded when the crawl
//     returns, so independent crawls can never interfere.
//
// The depth cutoff is an explicit policy, not a silent truncation:
// by default children of pages at the depth limit are excluded and
// counted, and WithBoundaryChildren includes them one level deeper as
// flagged boundary pages. Either way the completeness numbers end up in
// CrawlStats for the report.
package crawler
