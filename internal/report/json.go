package report

import (
	"encoding/json"
	"io"

	"github.com/sitebook/sitebook/internal/model"
)

// JSONWriter outputs reports in JSON format for tooling and archival.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{
		baseWriter: newBaseWriter(output),
		indent:     true,
	}
}

// NewCompactJSONWriter creates a JSONWriter without indentation, for
// line-oriented consumers.
func NewCompactJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output)}
}

// volumeReport is the serialized shape of one volume's completeness
// report. It carries the crawl statistics but not page content.
type volumeReport struct {
	Volume        string          `json:"volume"`
	StartedAt     string          `json:"started_at"`
	FinishedAt    string          `json:"finished_at,omitempty"`
	Output        string          `json:"output,omitempty"`
	TotalPages    int             `json:"total_pages"`
	EmptySections []string        `json:"empty_sections,omitempty"`
	Sections      []sectionReport `json:"sections"`
	Steps         []string        `json:"performed_steps,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type sectionReport struct {
	Name  string            `json:"name"`
	Pages int               `json:"pages"`
	Stats *model.CrawlStats `json:"stats,omitempty"`
}

func newVolumeReport(result *model.CompileResult) volumeReport {
	r := volumeReport{
		Volume:        result.VolumeName,
		StartedAt:     result.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
		Output:        result.OutputPath,
		TotalPages:    result.TotalPages(),
		EmptySections: result.EmptySections,
		Steps:         result.PerformedSteps,
		Error:         result.ErrorMessage,
	}
	if !result.FinishedAt.IsZero() {
		r.FinishedAt = result.FinishedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, s := range result.Sections {
		r.Sections = append(r.Sections, sectionReport{
			Name:  s.Name,
			Pages: len(s.Pages),
			Stats: s.Stats,
		})
	}
	return r
}

// Write outputs one volume's compile result as JSON.
func (w *JSONWriter) Write(result *model.CompileResult) (int, error) {
	return w.marshal(newVolumeReport(result))
}

// WriteSummary outputs the run summary as JSON.
func (w *JSONWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	return w.marshal(summary)
}

func (w *JSONWriter) marshal(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
