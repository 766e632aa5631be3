// Package render turns an assembled volume into the output document.
//
// The pipeline consumes the Renderer interface; the pdfcpu
// implementation converts each page's processed HTML to a text flow,
// paginates it, drives pdfcpu's create-from-JSON API, and attaches the
// outline forest as PDF bookmarks. Layout fidelity is out of scope: the
// output is a readable text rendition with working bookmarks, not a
// browser-equivalent rendering.
package render
