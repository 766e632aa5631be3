package config

import "errors"

// Configuration validation errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoBookFile is returned when no book file could be located.
	ErrNoBookFile = errors.New("no book file found: create one with 'sitebook init' or pass --config")

	// ErrNoVolumes is returned when the book file defines no volumes or
	// sections to compile.
	ErrNoVolumes = errors.New("book file defines no volumes")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxDepth is returned when the crawl depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified for the completeness report.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrVolumeNotFound is returned when --volume names a volume that is
	// not defined in the book file.
	ErrVolumeNotFound = errors.New("volume not found in book file")

	// ErrSectionNotFound is returned when --section names a section that
	// is not defined in the book file.
	ErrSectionNotFound = errors.New("section not found in book file")
)

// EntryError describes a malformed volume or section definition.
// A bad entry fails that entry's compilation, not the whole run, so the
// error carries enough context for the summary report.
type EntryError struct {
	// Volume is the volume name, if known.
	Volume string

	// Section is the section name, if the problem is section-level.
	Section string

	// Reason describes what is wrong with the definition.
	Reason string
}

// Error implements the error interface.
func (e *EntryError) Error() string {
	switch {
	case e.Section != "" && e.Volume != "":
		return "invalid section " + e.Section + " in volume " + e.Volume + ": " + e.Reason
	case e.Section != "":
		return "invalid section " + e.Section + ": " + e.Reason
	default:
		return "invalid volume " + e.Volume + ": " + e.Reason
	}
}
