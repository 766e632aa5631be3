// Package htmlproc turns fetched HTML into the self-contained fragments
// the renderer consumes.
//
// Processing is three stages. Sanitization strips scripts and event
// handlers with a bluemonday policy. Extraction locates the main
// content region and prunes site chrome (navigation, headers, footers).
// Rewriting gives headings stable IDs, converts links to crawled pages
// into document-internal anchor references, and makes everything else
// absolute so it still works from inside a PDF.
//
// Image embedding is a separate step because it performs network
// fetches: img sources are downloaded once per run and inlined as
// base64 data URIs with the MIME type sniffed from magic bytes.
package htmlproc
