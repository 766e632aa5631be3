// Package assemble combines crawled sections into a volume: one URL
// map and one bookmark forest spanning every section, so links and
// bookmarks resolve across section boundaries.
//
// Single-section and multi-section volumes take the same path. Empty
// sections are reported, not fatal; assembly fails only when no section
// produced any pages.
package assemble
