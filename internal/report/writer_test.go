package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sitebook/sitebook/internal/model"
)

func sampleResult() *model.CompileResult {
	return &model.CompileResult{
		VolumeName: "handbook",
		StartedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC),
		OutputPath: "out/handbook.pdf",
		Sections: []*model.Section{
			{
				Name: "Guides",
				Pages: []*model.Page{
					{URL: "https://docs.example.gov/guides", Title: "Guides"},
					{URL: "https://docs.example.gov/guides/setup", Title: "Setup"},
				},
				Stats: &model.CrawlStats{
					PagesFetched:       2,
					FetchFailures:      1,
					BoundaryPages:      1,
					ExcludedAtBoundary: 3,
				},
			},
		},
		EmptySections:  []string{"Drafts"},
		PerformedSteps: []string{"crawl", "assemble", "render"},
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("emits the completeness fields", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewJSONWriter(&buf).Write(sampleResult())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		var got volumeReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Volume != "handbook" || got.TotalPages != 2 {
			t.Errorf("report = %+v", got)
		}
		if len(got.Sections) != 1 || got.Sections[0].Stats.ExcludedAtBoundary != 3 {
			t.Errorf("section stats lost: %+v", got.Sections)
		}
		if len(got.EmptySections) != 1 || got.EmptySections[0] != "Drafts" {
			t.Errorf("empty sections lost: %v", got.EmptySections)
		}
	})

	t.Run("summary round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := &model.RunSummary{
			Generated:  []string{"out/handbook.pdf"},
			Failed:     []string{"drafts"},
			TotalPages: 2,
		}
		if _, err := NewCompactJSONWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("WriteSummary() error = %v", err)
		}

		var got model.RunSummary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(got.Generated) != 1 || got.TotalPages != 2 {
			t.Errorf("summary = %+v", got)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders tables and gap alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()

		for _, want := range []string{
			"Compile Report: handbook",
			"Guides",
			"Excluded by Depth",
			"Drafts",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("failed volume shows its error", func(t *testing.T) {
		t.Parallel()

		result := sampleResult()
		result.OutputPath = ""
		result.SetError(errors.New("render exploded"))

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(result); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "render exploded") {
			t.Errorf("error message missing:\n%s", buf.String())
		}
	})

	t.Run("summary lists generated and failed volumes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		summary := &model.RunSummary{
			Generated:  []string{"out/handbook.pdf"},
			Failed:     []string{"drafts"},
			TotalPages: 2,
		}
		if _, err := NewMarkdownWriter(&buf).WriteSummary(summary); err != nil {
			t.Fatalf("WriteSummary() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "out/handbook.pdf") || !strings.Contains(out, "drafts") {
			t.Errorf("summary incomplete:\n%s", out)
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&a), NewMarkdownWriter(&b))

	if _, err := mw.Write(sampleResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if a.Len() == 0 || b.Len() == 0 {
		t.Error("MultiWriter did not reach all writers")
	}
}
