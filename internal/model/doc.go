// Package model defines the core data types shared across sitebook:
// crawled pages, sections, volumes, outline nodes, and compile results.
// It has no dependencies on other internal packages so that every layer
// can exchange these types freely.
package model
