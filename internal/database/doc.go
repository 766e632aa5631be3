// Package database implements the crawl archive: SQLite-backed storage
// of compile runs and the pages they fetched.
//
// The archive lets a volume be re-rendered without re-crawling
// (compile --from-archive) and keeps a fetch history with content
// hashes for change detection between runs.
package database
