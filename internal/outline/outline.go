package outline

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sitebook/sitebook/internal/anchor"
	"github.com/sitebook/sitebook/internal/model"
)

// Policy selects how pages are arranged into a hierarchy.
type Policy string

const (
	// PolicyCrawlParent nests each page under the page that discovered
	// it. This is the default because it reflects the site's own
	// navigation structure.
	PolicyCrawlParent Policy = "crawl-parent"

	// PolicyURLPath nests pages by URL path segments, inserting
	// placeholders for unfetched intermediate levels.
	PolicyURLPath Policy = "url-path"
)

// ErrUnknownPolicy is returned for a policy name that is neither
// crawl-parent nor url-path.
var ErrUnknownPolicy = errors.New("unknown outline policy")

// ParsePolicy converts a configuration string into a Policy.
// The empty string selects the default crawl-parent policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", string(PolicyCrawlParent):
		return PolicyCrawlParent, nil
	case string(PolicyURLPath):
		return PolicyURLPath, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Build derives the outline forest for the pages under the given policy.
// Anchors come from the already-built anchor map; a page missing from
// the map gets a node without an anchor rather than being dropped.
func Build(pages []*model.Page, policy Policy, anchors *anchor.Map) ([]*model.OutlineNode, error) {
	switch policy {
	case PolicyCrawlParent, "":
		return buildCrawlParent(pages, anchors), nil
	case PolicyURLPath:
		return buildURLPath(pages, anchors), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

// sortNode wraps an outline node with its ordering key during
// construction. Order hints win over discovery order; placeholders
// inherit the smallest key of their children.
type sortNode struct {
	node  *model.OutlineNode
	order int // 0 = unset
	seq   int

	children []*sortNode
}

func pageSortNode(p *model.Page, anchors *anchor.Map) *sortNode {
	a, _ := anchors.Anchor(p.URL)
	return &sortNode{
		node: &model.OutlineNode{
			Label:  p.DisplayTitle(),
			Anchor: a,
		},
		order: p.Order,
		seq:   p.Seq,
	}
}

// finish sorts siblings recursively and materializes Children slices.
func (s *sortNode) finish() *model.OutlineNode {
	sortSiblings(s.children)
	for _, c := range s.children {
		s.node.Children = append(s.node.Children, c.finish())
	}
	return s.node
}

func sortSiblings(nodes []*sortNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		oi, oj := rank(nodes[i]), rank(nodes[j])
		if oi != oj {
			return oi < oj
		}
		return minSeq(nodes[i]) < minSeq(nodes[j])
	})
}

// rank maps the order hint to a sortable value: hinted nodes first in
// hint order, unhinted nodes after them.
func rank(s *sortNode) int {
	if s.order > 0 {
		return s.order
	}
	return math.MaxInt
}

// minSeq is the node's discovery position; for placeholders it is the
// earliest discovery position beneath them.
func minSeq(s *sortNode) int {
	if !s.node.Placeholder {
		return s.seq
	}
	min := math.MaxInt
	for _, c := range s.children {
		if v := minSeq(c); v < min {
			min = v
		}
	}
	return min
}

// buildCrawlParent nests each page under its discovering page. Pages
// whose parent is absent (seeds, or orphans of skipped pages) become
// roots.
func buildCrawlParent(pages []*model.Page, anchors *anchor.Map) []*model.OutlineNode {
	byURL := make(map[string]*sortNode, len(pages))
	for _, p := range pages {
		byURL[p.URL] = pageSortNode(p, anchors)
	}

	var roots []*sortNode
	for _, p := range pages {
		n := byURL[p.URL]
		if parent, ok := byURL[p.ParentURL]; ok && p.ParentURL != p.URL {
			parent.children = append(parent.children, n)
		} else {
			roots = append(roots, n)
		}
	}

	sortSiblings(roots)
	out := make([]*model.OutlineNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, r.finish())
	}
	return out
}

// trieNode is one URL path level during url-path construction.
type trieNode struct {
	segment  string
	page     *sortNode
	order    []string // child segments in first-seen order
	children map[string]*trieNode
}

func newTrieNode(segment string) *trieNode {
	return &trieNode{segment: segment, children: make(map[string]*trieNode)}
}

func (t *trieNode) child(segment string) *trieNode {
	if c, ok := t.children[segment]; ok {
		return c
	}
	c := newTrieNode(segment)
	t.children[segment] = c
	t.order = append(t.order, segment)
	return c
}

// buildURLPath nests pages by path segments. Path levels without a page
// become placeholders, except pageless levels above the first fetched
// page, which are collapsed so the forest does not start with empty
// shells for the base path.
func buildURLPath(pages []*model.Page, anchors *anchor.Map) []*model.OutlineNode {
	root := newTrieNode("")
	for _, p := range pages {
		t := root
		for _, seg := range pathSegments(p.URL) {
			t = t.child(seg)
		}
		if t.page == nil {
			t.page = pageSortNode(p, anchors)
		}
	}

	var roots []*sortNode
	if root.page != nil {
		// A page at the site root parents everything else.
		root.page.children = convertTrie(root, true)
		roots = []*sortNode{root.page}
	} else {
		roots = convertTrie(root, false)
	}
	sortSiblings(roots)
	out := make([]*model.OutlineNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, r.finish())
	}
	return out
}

// convertTrie turns a trie level into sort nodes. ancestorPaged reports
// whether some ancestor level holds a page; only then does a pageless
// level deserve a placeholder.
func convertTrie(t *trieNode, ancestorPaged bool) []*sortNode {
	var result []*sortNode
	for _, seg := range t.order {
		child := t.children[seg]
		switch {
		case child.page != nil:
			child.page.children = convertTrie(child, true)
			result = append(result, child.page)
		case ancestorPaged:
			ph := &sortNode{
				node: &model.OutlineNode{
					Label:       segmentLabel(child.segment),
					Placeholder: true,
				},
			}
			ph.children = convertTrie(child, true)
			if len(ph.children) > 0 {
				result = append(result, ph)
			}
		default:
			result = append(result, convertTrie(child, false)...)
		}
	}
	return result
}

var titleCaser = cases.Title(language.English)

// segmentLabel turns a URL path segment into a readable placeholder
// label, "style-guide" becoming "Style Guide".
func segmentLabel(segment string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	return titleCaser.String(s)
}

func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
