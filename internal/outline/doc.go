// Package outline derives the bookmark hierarchy of a section from its
// crawled pages.
//
// Two policies are supported. The crawl-parent policy nests each page
// under the page that discovered it, mirroring the traversal. The
// url-path policy nests pages by their URL path segments and inserts
// placeholder nodes for path levels no crawled page occupies, so a page
// at /x/y/z still sits below /x when /x/y was never fetched.
//
// Both policies are deterministic: the same pages in the same order
// always produce the same forest. Sibling order follows the explicit
// order hints from the seed configuration, with discovery order as the
// fallback.
package outline
