package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Chosen to match the behavior of the
// original compiler deployments against government documentation sites:
// conservative politeness, shallow depth, bounded page counts.
const (
	// DefaultTimeout is the per-request timeout. Documentation sites are
	// ordinary clearnet servers, so 30 seconds is generous.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDelay is the politeness delay between fetches.
	// 1 second is conservative and respectful of server resources.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultMaxDepth bounds traversal from the seeds. Depth 0 fetches
	// only the seeds; 2 covers the typical landing page / topic / detail
	// layout of documentation sites. Sections may override this.
	DefaultMaxDepth = 2

	// DefaultMaxPages caps pages per section crawl. This prevents
	// runaway crawling on large or infinitely-generating sites.
	DefaultMaxPages = 500

	// DefaultBatchSize is the number of volumes compiled concurrently.
	// Volumes are independent crawls, but each one already paces itself,
	// so a small batch keeps total load on the remote site reasonable.
	DefaultBatchSize = 2

	// DefaultUserAgent identifies sitebook in HTTP requests so that
	// operators can recognize compiler traffic in their logs.
	DefaultUserAgent = "sitebook/1.0 (+https://github.com/sitebook/sitebook)"

	// DefaultMaxBodySize limits the response body size read per page.
	// 5MB covers any realistic documentation page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMaxRetries is how many times a failed fetch is retried with
	// exponential backoff before the URL is skipped.
	DefaultMaxRetries = 3

	// AppName is the application name used for XDG directory paths.
	AppName = "sitebook"
)

// Config holds all runtime options for sitebook.
// It is populated from CLI flags and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// CrawlDelay is the politeness delay between fetches within a crawl.
	CrawlDelay time.Duration

	// MaxDepth is the default traversal depth for sections that do not
	// set their own.
	MaxDepth int

	// MaxPages caps the number of pages fetched per section crawl.
	MaxPages int

	// MaxRetries is the retry count for failed fetches.
	MaxRetries int

	// BatchSize is the number of volumes compiled concurrently.
	BatchSize int

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Verbose enables debug-level log output.
	Verbose bool

	// BookFilePath is the path to the book file. If empty, the loader
	// searches the standard locations.
	BookFilePath string

	// Book holds the parsed book file.
	Book *Book

	// OutputDir is the directory PDFs and reports are written to.
	OutputDir string

	// VolumeFilter restricts compilation to the named volume.
	VolumeFilter string

	// SectionFilter restricts compilation to the named section,
	// compiled as a single-section volume.
	SectionFilter string

	// SaveRenderInput writes intermediate render artifacts (per-page
	// markdown and the layout description) next to each PDF.
	SaveRenderInput bool

	// DownloadImages enables downloading and embedding page images as
	// data URIs. On by default; disable for faster text-only volumes.
	DownloadImages bool

	// FromArchive renders from previously archived crawls instead of
	// fetching, when the archive has a complete run for the section.
	FromArchive bool

	// ArchiveDir is the directory for the sqlite crawl archive.
	// Defaults to the XDG data directory.
	ArchiveDir string

	// SaveToArchive persists fetched pages to the crawl archive.
	SaveToArchive bool

	// JSONReport emits the completeness report as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport emits the completeness report as Markdown.
	MarkdownReport bool

	// ReportFile writes the completeness report to this path instead of
	// stdout. Directories are created as needed.
	ReportFile string
}

// NewConfig creates a Config with default values.
//
// Design decision: We use a constructor instead of relying on zero
// values because most defaults are non-zero; the constructor doubles as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		CrawlDelay:     DefaultCrawlDelay,
		MaxDepth:       DefaultMaxDepth,
		MaxPages:       DefaultMaxPages,
		MaxRetries:     DefaultMaxRetries,
		BatchSize:      DefaultBatchSize,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		OutputDir:      "output",
		DownloadImages: true,
		ArchiveDir:     XDGDataDir(),
		SaveToArchive:  true,
	}
}

// XDGDataDir returns the XDG data directory for sitebook.
// On Linux: ~/.local/share/sitebook
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitebook.
// On Linux: ~/.config/sitebook
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the runtime configuration.
// Book entry problems are not checked here; they are per-entry errors
// surfaced during compilation so one bad section cannot sink the run.
func (c *Config) Validate() error {
	if c.Book == nil || len(c.Book.AllVolumes()) == 0 {
		return ErrNoVolumes
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
