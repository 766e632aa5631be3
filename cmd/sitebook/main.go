// Package main provides the entry point for the sitebook CLI.
//
// sitebook crawls documentation websites and compiles them into
// bookmarked PDF volumes. Crawl scope, depth, and document structure
// are defined in a book file (sitebook.yaml).
//
// Usage:
//
//	sitebook init
//	sitebook compile
//	sitebook compile --volume "Design Standards"
//
// See --help for all available options.
package main

// main is the entry point for sitebook.
func main() {
	Execute()
}
