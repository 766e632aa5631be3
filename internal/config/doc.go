// Package config provides configuration structures and utilities for
// sitebook. It defines runtime options populated from CLI flags and the
// book file format describing volumes, sections, and crawl seeds.
package config
