// Package anchor assigns every crawled page a document-internal anchor
// identifier and maintains the URL-to-anchor map used to rewrite
// intra-site links before rendering.
//
// The map is injective: two distinct URLs never share an anchor, even
// when their page titles collide. Collisions are resolved
// deterministically, first by the shortest distinguishing suffix of the
// URL path and then by a numeric counter, so the same input always
// yields the same anchors.
package anchor
