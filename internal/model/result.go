package model

import "time"

// CrawlStats is the machine-readable completeness record for one crawl.
//
// The depth cutoff silently truncating subtrees is a known usability
// trap, so the crawler counts what it excluded instead of dropping it
// without a trace. These numbers feed the completeness report.
type CrawlStats struct {
	// PagesFetched is the number of pages successfully fetched.
	PagesFetched int `json:"pages_fetched"`

	// FetchFailures is the number of URLs skipped after a fetch error.
	FetchFailures int `json:"fetch_failures"`

	// ParseFailures is the number of fetched URLs skipped because their
	// content was not usable HTML.
	ParseFailures int `json:"parse_failures"`

	// BoundaryPages is the number of pages fetched at the depth limit.
	BoundaryPages int `json:"boundary_pages"`

	// ExcludedAtBoundary counts in-scope child links of boundary pages
	// that were not traversed because of the depth cutoff.
	ExcludedAtBoundary int `json:"excluded_at_boundary"`

	// Partial is true when the crawl was cancelled before the frontier
	// drained; fetched pages are kept.
	Partial bool `json:"partial,omitempty"`
}

// CompileResult accumulates the state of one volume compilation as it
// moves through the pipeline. Steps read what earlier steps produced and
// record their own output here.
type CompileResult struct {
	// VolumeName is the volume being compiled.
	VolumeName string `json:"volume_name"`

	// StartedAt is when the compilation began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the compilation ended.
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// Sections holds the crawl output, one entry per configured section,
	// in configuration order. Sections that produced zero pages are
	// present with an empty page list.
	Sections []*Section `json:"sections"`

	// EmptySections lists sections that yielded no pages.
	EmptySections []string `json:"empty_sections,omitempty"`

	// Volume is the assembled volume. Nil until the assemble step ran.
	Volume *Volume `json:"volume,omitempty"`

	// OutputPath is the rendered PDF location. Empty until rendered.
	OutputPath string `json:"output_path,omitempty"`

	// PerformedSteps lists pipeline steps in execution order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error holds the first fatal error. Non-fatal problems (individual
	// fetch failures, empty sections) are recorded in Sections and
	// EmptySections instead.
	Error error `json:"-"`

	// ErrorMessage mirrors Error for serialized output.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCompileResult creates a result for the named volume.
func NewCompileResult(volumeName string) *CompileResult {
	return &CompileResult{
		VolumeName: volumeName,
		StartedAt:  time.Now(),
	}
}

// SetError records a fatal error on the result.
func (r *CompileResult) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// TotalPages returns the number of pages across all crawled sections.
func (r *CompileResult) TotalPages() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Pages)
	}
	return n
}

// Succeeded reports whether the compilation produced an output artifact.
func (r *CompileResult) Succeeded() bool {
	return r.Error == nil && r.OutputPath != ""
}

// RunSummary aggregates the outcome of a whole compile run.
type RunSummary struct {
	// Generated lists output paths of successfully rendered volumes.
	Generated []string `json:"generated"`

	// Failed lists names of volumes that produced no output.
	Failed []string `json:"failed,omitempty"`

	// TotalPages is the page count across all volumes.
	TotalPages int `json:"total_pages"`
}
