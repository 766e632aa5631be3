package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sitebook/sitebook/internal/anchor"
	"github.com/sitebook/sitebook/internal/assemble"
	"github.com/sitebook/sitebook/internal/config"
	"github.com/sitebook/sitebook/internal/crawler"
	"github.com/sitebook/sitebook/internal/database"
	"github.com/sitebook/sitebook/internal/htmlproc"
	"github.com/sitebook/sitebook/internal/model"
	"github.com/sitebook/sitebook/internal/outline"
	"github.com/sitebook/sitebook/internal/render"
	"github.com/sitebook/sitebook/internal/webclient"
)

// CrawlStep crawls every section of the volume. Individual section
// problems (bad definition, unreachable seeds) leave an empty section
// behind rather than failing the volume; the assemble step decides
// whether anything remains to build.
type CrawlStep struct {
	cfg    *config.Config
	volume config.Volume
	logger *slog.Logger
}

// NewCrawlStep creates the crawl step for one volume.
func NewCrawlStep(cfg *config.Config, volume config.Volume, logger *slog.Logger) *CrawlStep {
	return &CrawlStep{cfg: cfg, volume: volume, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string { return "crawl" }

// Do crawls each section in configuration order.
func (s *CrawlStep) Do(ctx context.Context, result *model.CompileResult) error {
	for _, sec := range s.volume.Sections {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := sec.Validate(s.volume.Name); err != nil {
			s.logger.Warn("skipping invalid section",
				"volume", s.volume.Name,
				"section", sec.Name,
				"error", err,
			)
			result.Sections = append(result.Sections, &model.Section{Name: sec.Name, Stats: &model.CrawlStats{}})
			continue
		}

		pages, stats := s.crawlSection(ctx, sec)
		result.Sections = append(result.Sections, &model.Section{
			Name:  sec.Name,
			Pages: pages,
			Stats: stats,
		})
	}
	return nil
}

// crawlSection runs one section's crawl with its own scope and fetcher.
func (s *CrawlStep) crawlSection(ctx context.Context, sec config.Section) ([]*model.Page, *model.CrawlStats) {
	scope, err := crawler.NewScope(sec.BaseURL, sec.EffectiveBasePath(),
		crawler.WithIgnorePatterns(sec.IgnorePatterns),
		crawler.WithFollowPatterns(sec.FollowPatterns),
	)
	if err != nil {
		s.logger.Warn("skipping section with unusable scope",
			"section", sec.Name,
			"error", err,
		)
		return nil, &model.CrawlStats{}
	}

	fetcher := webclient.New(s.cfg.Timeout,
		webclient.WithUserAgent(s.cfg.UserAgent),
		webclient.WithMaxRetries(s.cfg.MaxRetries),
		webclient.WithMaxBodySize(s.cfg.MaxBodySize),
		webclient.WithHeaders(sec.Headers),
		webclient.WithCookie(sec.Cookie),
		webclient.WithLogger(s.logger),
	)

	spider := crawler.NewSpider(fetcher,
		crawler.WithMaxDepth(sec.ResolvedDepth(s.cfg.MaxDepth)),
		crawler.WithMaxPages(s.cfg.MaxPages),
		crawler.WithDelay(s.cfg.CrawlDelay),
		crawler.WithBoundaryChildren(sec.BoundaryChildren()),
		crawler.WithSection(sec.Name),
		crawler.WithSpiderLogger(s.logger),
	)

	seeds := make([]crawler.Seed, 0, len(sec.Seeds))
	for i, u := range sec.SeedURLs() {
		seeds = append(seeds, crawler.Seed{
			URL:   u,
			Title: sec.Seeds[i].Title,
			Order: sec.Seeds[i].Order,
		})
	}

	pages, stats, err := spider.Crawl(ctx, seeds, scope)
	if err != nil {
		s.logger.Warn("section crawl failed",
			"section", sec.Name,
			"error", err,
		)
		return nil, stats
	}
	return pages, stats
}

// LoadArchiveStep replaces crawling with the most recent archived run of
// the volume. It fails when the volume was never archived; re-rendering
// nothing is not a useful outcome.
type LoadArchiveStep struct {
	archive *database.Archive
	logger  *slog.Logger
}

// NewLoadArchiveStep creates the archive-load step.
func NewLoadArchiveStep(archive *database.Archive, logger *slog.Logger) *LoadArchiveStep {
	return &LoadArchiveStep{archive: archive, logger: logger}
}

// Name returns the step name.
func (s *LoadArchiveStep) Name() string { return "load-archive" }

// Do loads the newest finished run's pages into the result.
func (s *LoadArchiveStep) Do(ctx context.Context, result *model.CompileResult) error {
	info, err := s.archive.LatestRun(ctx, result.VolumeName)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("no archived run for volume %q", result.VolumeName)
	}

	sections, err := s.archive.LoadPages(ctx, info.ID)
	if err != nil {
		return err
	}

	s.logger.Info("loaded volume from archive",
		"volume", result.VolumeName,
		"run", info.ID,
		"archived", info.FinishedAt,
		"sections", len(sections),
	)
	result.Sections = sections
	return nil
}

// AssembleStep combines the crawled sections into the volume: URL map,
// outline forest, empty-section accounting.
type AssembleStep struct {
	volume config.Volume
	logger *slog.Logger
}

// NewAssembleStep creates the assemble step for one volume.
func NewAssembleStep(volume config.Volume, logger *slog.Logger) *AssembleStep {
	return &AssembleStep{volume: volume, logger: logger}
}

// Name returns the step name.
func (s *AssembleStep) Name() string { return "assemble" }

// Do assembles the result's sections. Empty sections are recorded;
// the step fails only when every section is empty.
func (s *AssembleStep) Do(_ context.Context, result *model.CompileResult) error {
	policies := make(map[string]outline.Policy, len(s.volume.Sections))
	for _, sec := range s.volume.Sections {
		p, err := outline.ParsePolicy(sec.OutlinePolicy)
		if err != nil {
			return err
		}
		policies[sec.Name] = p
	}

	inputs := make([]assemble.SectionInput, 0, len(result.Sections))
	for _, sec := range result.Sections {
		inputs = append(inputs, assemble.SectionInput{
			Section: sec,
			Policy:  policies[sec.Name],
		})
	}

	meta := s.volume.Metadata
	if meta.Title == "" {
		meta.Title = s.volume.Name
	}

	vol, empties, err := assemble.Assemble(s.volume.Name, meta, inputs)
	for _, e := range empties {
		s.logger.Warn("section produced no pages",
			"volume", s.volume.Name,
			"section", e.Section,
		)
		result.EmptySections = append(result.EmptySections, e.Section)
	}
	if err != nil {
		return err
	}

	result.Volume = vol
	return nil
}

// ProcessStep rewrites every page's HTML into its render-ready form:
// content extraction, heading IDs, anchor link rewriting.
type ProcessStep struct {
	logger *slog.Logger
}

// NewProcessStep creates the HTML processing step.
func NewProcessStep(logger *slog.Logger) *ProcessStep {
	return &ProcessStep{logger: logger}
}

// Name returns the step name.
func (s *ProcessStep) Name() string { return "process-html" }

// Do processes all pages of the assembled volume. A page that cannot
// be processed renders as an empty body; the volume keeps going.
func (s *ProcessStep) Do(ctx context.Context, result *model.CompileResult) error {
	if result.Volume == nil {
		return fmt.Errorf("volume %q has not been assembled", result.VolumeName)
	}

	proc := htmlproc.NewProcessor(
		anchor.FromPairs(result.Volume.URLMap),
		htmlproc.WithProcessorLogger(s.logger),
	)
	for _, page := range result.Volume.Pages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := proc.Process(page); err != nil {
			s.logger.Warn("page left unprocessed",
				"url", page.URL,
				"error", err,
			)
		}
	}
	return nil
}

// EmbedImagesStep inlines page images as data URIs. Disabled entirely
// by configuration for faster text-only volumes.
type EmbedImagesStep struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewEmbedImagesStep creates the image embedding step.
func NewEmbedImagesStep(cfg *config.Config, logger *slog.Logger) *EmbedImagesStep {
	return &EmbedImagesStep{cfg: cfg, logger: logger}
}

// Name returns the step name.
func (s *EmbedImagesStep) Name() string { return "embed-images" }

// Do embeds images across the whole volume through one shared cache.
func (s *EmbedImagesStep) Do(ctx context.Context, result *model.CompileResult) error {
	if !s.cfg.DownloadImages {
		s.logger.Debug("image embedding disabled", "volume", result.VolumeName)
		return nil
	}
	if result.Volume == nil {
		return fmt.Errorf("volume %q has not been assembled", result.VolumeName)
	}

	fetcher := webclient.New(s.cfg.Timeout,
		webclient.WithUserAgent(s.cfg.UserAgent),
		webclient.WithMaxRetries(s.cfg.MaxRetries),
		webclient.WithMaxBodySize(s.cfg.MaxBodySize),
		webclient.WithLogger(s.logger),
	)
	embedder := htmlproc.NewEmbedder(fetcher, s.logger)

	for _, page := range result.Volume.Pages() {
		if err := embedder.Embed(ctx, page); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Warn("page images left unembedded",
				"url", page.URL,
				"error", err,
			)
		}
	}
	return nil
}

// RenderStep writes the volume to its output file.
type RenderStep struct {
	renderer render.Renderer
	cfg      *config.Config
	volume   config.Volume
	logger   *slog.Logger
}

// NewRenderStep creates the render step for one volume.
func NewRenderStep(renderer render.Renderer, cfg *config.Config, volume config.Volume, logger *slog.Logger) *RenderStep {
	return &RenderStep{renderer: renderer, cfg: cfg, volume: volume, logger: logger}
}

// Name returns the step name.
func (s *RenderStep) Name() string { return "render" }

// Do renders the assembled volume and records the output path.
func (s *RenderStep) Do(ctx context.Context, result *model.CompileResult) error {
	if result.Volume == nil {
		return fmt.Errorf("volume %q has not been assembled", result.VolumeName)
	}

	if err := os.MkdirAll(s.cfg.OutputDir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(s.cfg.OutputDir, outputName(s.volume))
	if err := s.renderer.Render(ctx, result.Volume, outputPath); err != nil {
		return err
	}
	result.OutputPath = outputPath
	return nil
}

// outputName returns the volume's output filename, derived from its
// name when the book file does not set one.
func outputName(volume config.Volume) string {
	name := volume.Output
	if name == "" {
		name = anchor.Slug(volume.Name)
	}
	if name == "" {
		name = "volume"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// SaveArchiveStep persists the crawled pages so later runs can render
// without re-crawling. Archive problems are logged, never fatal: the
// PDF already exists by the time this step runs.
type SaveArchiveStep struct {
	archive *database.Archive
	logger  *slog.Logger
}

// NewSaveArchiveStep creates the archive persistence step.
func NewSaveArchiveStep(archive *database.Archive, logger *slog.Logger) *SaveArchiveStep {
	return &SaveArchiveStep{archive: archive, logger: logger}
}

// Name returns the step name.
func (s *SaveArchiveStep) Name() string { return "archive" }

// Do stores the run and its pages.
func (s *SaveArchiveStep) Do(ctx context.Context, result *model.CompileResult) error {
	runID, err := s.archive.BeginRun(ctx, result.VolumeName)
	if err != nil {
		s.logger.Warn("archive unavailable", "error", err)
		return nil
	}
	if err := s.archive.SaveSections(ctx, runID, result.Sections); err != nil {
		s.logger.Warn("archiving pages failed", "run", runID, "error", err)
		return nil
	}
	if err := s.archive.FinishRun(ctx, runID, result.TotalPages()); err != nil {
		s.logger.Warn("archive run left unfinished", "run", runID, "error", err)
	}
	return nil
}

// SummaryStep closes out the compilation: it stamps the finish time and
// logs the volume's completeness numbers.
type SummaryStep struct {
	logger *slog.Logger
}

// NewSummaryStep creates the summary step.
func NewSummaryStep(logger *slog.Logger) *SummaryStep {
	return &SummaryStep{logger: logger}
}

// Name returns the step name.
func (s *SummaryStep) Name() string { return "summary" }

// Do finalizes the result.
func (s *SummaryStep) Do(_ context.Context, result *model.CompileResult) error {
	result.FinishedAt = time.Now()

	excluded := 0
	failures := 0
	for _, sec := range result.Sections {
		if sec.Stats == nil {
			continue
		}
		excluded += sec.Stats.ExcludedAtBoundary
		failures += sec.Stats.FetchFailures
	}

	s.logger.Info("volume compiled",
		"volume", result.VolumeName,
		"output", result.OutputPath,
		"pages", result.TotalPages(),
		"emptySections", len(result.EmptySections),
		"fetchFailures", failures,
		"excludedAtBoundary", excluded,
		"elapsed", result.FinishedAt.Sub(result.StartedAt),
	)
	return nil
}
