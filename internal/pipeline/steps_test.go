package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sitebook/sitebook/internal/config"
	"github.com/sitebook/sitebook/internal/database"
	"github.com/sitebook/sitebook/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testSite serves a tiny two-level documentation tree.
func testSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	page := func(title string, links ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			var b strings.Builder
			fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><main><h1>%s</h1>", title, title)
			for _, l := range links {
				fmt.Fprintf(&b, `<a href=%q>%s</a>`, l, l)
			}
			b.WriteString("</main></body></html>")
			_, _ = w.Write([]byte(b.String()))
		}
	}
	mux.HandleFunc("/docs/", page("Documentation", "/docs/setup", "/docs/usage"))
	mux.HandleFunc("/docs/setup", page("Setup"))
	mux.HandleFunc("/docs/usage", page("Usage"))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.CrawlDelay = 0
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestCrawlStep(t *testing.T) {
	t.Parallel()

	t.Run("crawls every section of the volume", func(t *testing.T) {
		t.Parallel()

		srv := testSite(t)
		volume := config.Volume{
			Name: "handbook",
			Sections: []config.Section{
				{
					Name:    "Guides",
					BaseURL: srv.URL,
					Seeds:   []config.Seed{{URL: srv.URL + "/docs/"}},
				},
			},
		}

		step := NewCrawlStep(testConfig(t), volume, discardLogger())
		result := model.NewCompileResult("handbook")
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if len(result.Sections) != 1 {
			t.Fatalf("got %d sections, want 1", len(result.Sections))
		}
		sec := result.Sections[0]
		if sec.Name != "Guides" || len(sec.Pages) != 3 {
			t.Errorf("section %q has %d pages, want 3", sec.Name, len(sec.Pages))
		}
		if sec.Stats == nil || sec.Stats.PagesFetched != 3 {
			t.Errorf("stats = %+v", sec.Stats)
		}
	})

	t.Run("invalid section becomes an empty section", func(t *testing.T) {
		t.Parallel()

		volume := config.Volume{
			Name: "handbook",
			Sections: []config.Section{
				{Name: "Broken"}, // no base URL, no seeds
			},
		}

		step := NewCrawlStep(testConfig(t), volume, discardLogger())
		result := model.NewCompileResult("handbook")
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if len(result.Sections) != 1 || len(result.Sections[0].Pages) != 0 {
			t.Errorf("sections = %+v, want one empty section", result.Sections)
		}
	})

	t.Run("unreachable seeds do not fail the volume", func(t *testing.T) {
		t.Parallel()

		srv := testSite(t)
		volume := config.Volume{
			Name: "handbook",
			Sections: []config.Section{
				{
					Name:    "Missing",
					BaseURL: srv.URL,
					Seeds:   []config.Seed{{URL: srv.URL + "/nowhere"}},
				},
			},
		}

		step := NewCrawlStep(testConfig(t), volume, discardLogger())
		result := model.NewCompileResult("handbook")
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		sec := result.Sections[0]
		if len(sec.Pages) != 0 {
			t.Errorf("got %d pages, want 0", len(sec.Pages))
		}
		if sec.Stats == nil || sec.Stats.FetchFailures == 0 {
			t.Errorf("stats = %+v, want recorded fetch failure", sec.Stats)
		}
	})
}

func crawledSection(name string, titles ...string) *model.Section {
	sec := &model.Section{Name: name, Stats: &model.CrawlStats{PagesFetched: len(titles)}}
	for i, title := range titles {
		raw := fmt.Sprintf(
			"<html><head><title>%s</title></head><body><main><h1>%s</h1><p>Body of %s.</p></main></body></html>",
			title, title, title,
		)
		sec.Pages = append(sec.Pages, &model.Page{
			URL:         fmt.Sprintf("https://docs.example.gov/%s/%d", strings.ToLower(name), i),
			Title:       title,
			StatusCode:  200,
			ContentType: "text/html",
			Raw:         []byte(raw),
			Section:     name,
			Seq:         i,
		})
	}
	return sec
}

func TestAssembleStep(t *testing.T) {
	t.Parallel()

	t.Run("assembles and records empty sections", func(t *testing.T) {
		t.Parallel()

		volume := config.Volume{
			Name: "handbook",
			Sections: []config.Section{
				{Name: "Guides"},
				{Name: "Drafts"},
			},
		}
		result := model.NewCompileResult("handbook")
		result.Sections = []*model.Section{
			crawledSection("Guides", "Setup", "Usage"),
			{Name: "Drafts", Stats: &model.CrawlStats{}},
		}

		step := NewAssembleStep(volume, discardLogger())
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		if result.Volume == nil || result.Volume.PageCount() != 2 {
			t.Fatalf("volume = %+v", result.Volume)
		}
		if len(result.EmptySections) != 1 || result.EmptySections[0] != "Drafts" {
			t.Errorf("EmptySections = %v", result.EmptySections)
		}
		if len(result.Volume.URLMap) != 2 {
			t.Errorf("URLMap has %d entries, want 2", len(result.Volume.URLMap))
		}
	})

	t.Run("all sections empty is fatal", func(t *testing.T) {
		t.Parallel()

		volume := config.Volume{
			Name:     "handbook",
			Sections: []config.Section{{Name: "Drafts"}},
		}
		result := model.NewCompileResult("handbook")
		result.Sections = []*model.Section{{Name: "Drafts"}}

		step := NewAssembleStep(volume, discardLogger())
		if err := step.Do(context.Background(), result); err == nil {
			t.Fatal("Do() succeeded with nothing to assemble")
		}
	})

	t.Run("unknown outline policy is fatal", func(t *testing.T) {
		t.Parallel()

		volume := config.Volume{
			Name:     "handbook",
			Sections: []config.Section{{Name: "Guides", OutlinePolicy: "alphabetical"}},
		}
		result := model.NewCompileResult("handbook")
		result.Sections = []*model.Section{crawledSection("Guides", "Setup")}

		step := NewAssembleStep(volume, discardLogger())
		if err := step.Do(context.Background(), result); err == nil {
			t.Fatal("Do() accepted an unknown outline policy")
		}
	})
}

func assembledResult(t *testing.T) *model.CompileResult {
	t.Helper()

	volume := config.Volume{
		Name:     "handbook",
		Sections: []config.Section{{Name: "Guides"}},
	}
	result := model.NewCompileResult("handbook")
	result.Sections = []*model.Section{crawledSection("Guides", "Setup", "Usage")}

	if err := NewAssembleStep(volume, discardLogger()).Do(context.Background(), result); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return result
}

func TestProcessStep(t *testing.T) {
	t.Parallel()

	t.Run("fills every page's content", func(t *testing.T) {
		t.Parallel()

		result := assembledResult(t)
		step := NewProcessStep(discardLogger())
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		for _, page := range result.Volume.Pages() {
			if page.Content == "" {
				t.Errorf("page %s has no processed content", page.URL)
			}
			if !strings.Contains(page.Content, "<h1") {
				t.Errorf("page %s lost its heading: %s", page.URL, page.Content)
			}
		}
	})

	t.Run("requires an assembled volume", func(t *testing.T) {
		t.Parallel()

		result := model.NewCompileResult("handbook")
		if err := NewProcessStep(discardLogger()).Do(context.Background(), result); err == nil {
			t.Fatal("Do() succeeded without a volume")
		}
	})
}

// fakeRenderer records the render call without producing a PDF.
type fakeRenderer struct {
	path string
	err  error
}

func (r *fakeRenderer) Render(_ context.Context, _ *model.Volume, outputPath string) error {
	r.path = outputPath
	return r.err
}

func TestRenderStep(t *testing.T) {
	t.Parallel()

	t.Run("renders into the output directory", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		renderer := &fakeRenderer{}
		volume := config.Volume{Name: "Employee Handbook"}

		result := assembledResult(t)
		step := NewRenderStep(renderer, cfg, volume, discardLogger())
		if err := step.Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}

		want := filepath.Join(cfg.OutputDir, "employee-handbook.pdf")
		if renderer.path != want {
			t.Errorf("rendered to %q, want %q", renderer.path, want)
		}
		if result.OutputPath != want {
			t.Errorf("OutputPath = %q, want %q", result.OutputPath, want)
		}
	})

	t.Run("explicit output name wins", func(t *testing.T) {
		t.Parallel()

		cfg := testConfig(t)
		renderer := &fakeRenderer{}
		volume := config.Volume{Name: "handbook", Output: "hb.pdf"}

		result := assembledResult(t)
		if err := NewRenderStep(renderer, cfg, volume, discardLogger()).Do(context.Background(), result); err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got := filepath.Base(result.OutputPath); got != "hb.pdf" {
			t.Errorf("output file = %q, want hb.pdf", got)
		}
	})
}

func TestOutputName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		volume config.Volume
		want   string
	}{
		{"explicit output", config.Volume{Name: "x", Output: "book.pdf"}, "book.pdf"},
		{"extension added", config.Volume{Name: "x", Output: "book"}, "book.pdf"},
		{"slug of name", config.Volume{Name: "Design Standards"}, "design-standards.pdf"},
		{"empty everything", config.Volume{}, "volume.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := outputName(tt.volume); got != tt.want {
				t.Errorf("outputName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArchiveSteps(t *testing.T) {
	t.Parallel()

	t.Run("save then load round-trips the pages", func(t *testing.T) {
		t.Parallel()

		archive, err := database.Open(t.TempDir(), database.Options{CreateIfNotExists: true, EnableWAL: true})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { _ = archive.Close() })

		saved := model.NewCompileResult("handbook")
		saved.Sections = []*model.Section{crawledSection("Guides", "Setup", "Usage")}
		if err := NewSaveArchiveStep(archive, discardLogger()).Do(context.Background(), saved); err != nil {
			t.Fatalf("save: %v", err)
		}

		loaded := model.NewCompileResult("handbook")
		if err := NewLoadArchiveStep(archive, discardLogger()).Do(context.Background(), loaded); err != nil {
			t.Fatalf("load: %v", err)
		}

		if len(loaded.Sections) != 1 || len(loaded.Sections[0].Pages) != 2 {
			t.Fatalf("loaded sections = %+v", loaded.Sections)
		}
		if loaded.Sections[0].Pages[0].Title != "Setup" {
			t.Errorf("first page = %+v", loaded.Sections[0].Pages[0])
		}
	})

	t.Run("loading an unarchived volume fails", func(t *testing.T) {
		t.Parallel()

		archive, err := database.Open(t.TempDir(), database.Options{CreateIfNotExists: true, EnableWAL: true})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { _ = archive.Close() })

		result := model.NewCompileResult("never-compiled")
		if err := NewLoadArchiveStep(archive, discardLogger()).Do(context.Background(), result); err == nil {
			t.Fatal("Do() succeeded with no archived run")
		}
	})
}

func TestSummaryStep(t *testing.T) {
	t.Parallel()

	result := assembledResult(t)
	result.OutputPath = "out/handbook.pdf"

	if err := NewSummaryStep(discardLogger()).Do(context.Background(), result); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if result.FinishedAt.IsZero() {
		t.Error("FinishedAt was not stamped")
	}
}
