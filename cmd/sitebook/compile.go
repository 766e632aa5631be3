package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sitebook/sitebook/internal/config"
	"github.com/sitebook/sitebook/internal/database"
	"github.com/sitebook/sitebook/internal/log"
	"github.com/sitebook/sitebook/internal/model"
	"github.com/sitebook/sitebook/internal/pipeline"
	"github.com/sitebook/sitebook/internal/render"
	"github.com/sitebook/sitebook/internal/report"
)

// NewCompileCmd creates the compile command.
func NewCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Crawl the configured sites and render PDF volumes",
		Long: `Compile crawls every volume defined in the book file and renders
each one into a bookmarked PDF.

For each section it performs a breadth-first crawl from the seed URLs,
bounded by the base path and depth limit, then assembles the pages into
a document whose bookmark outline mirrors the site hierarchy.

Examples:
  # Compile every volume in ./sitebook.yaml
  sitebook compile

  # Compile a single volume
  sitebook compile --volume "Design Standards"

  # Compile one section as its own document
  sitebook compile --section "Accessibility"

  # Re-render from the archive without crawling
  sitebook compile --from-archive

  # Write a JSON completeness report next to the PDFs
  sitebook compile --json --report-file output/report.json`,
		Args: cobra.NoArgs,
		RunE: runCompileCmd,
	}

	// Book file and output
	cmd.Flags().StringP("config", "c", "",
		"Book file path (default: sitebook.yaml in current or config directory)")
	cmd.Flags().StringP("output-dir", "o", "output",
		"Directory for rendered PDF files")
	cmd.Flags().String("volume", "",
		"Compile only the named volume")
	cmd.Flags().String("section", "",
		"Compile only the named section as a standalone document")

	// Crawl behavior flags
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Default maximum crawl depth (sections may override)")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Delay between requests to the same site")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Connection timeout for each request")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to crawl per section")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of volumes compiled concurrently")
	cmd.Flags().Bool("no-images", false,
		"Skip downloading and embedding images")

	// Archive flags
	cmd.Flags().Bool("from-archive", false,
		"Render from the most recent archived crawl instead of crawling")
	cmd.Flags().Bool("no-archive", false,
		"Do not save crawled pages to the archive")

	// Diagnostics
	cmd.Flags().Bool("save-render-input", false,
		"Keep the intermediate render input files next to each PDF")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON completeness report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown completeness report (mutually exclusive with --json)")
	cmd.Flags().String("report-file", "",
		"Write the report to the specified file instead of stdout")

	return cmd
}

// runCompileCmd executes the compile command.
func runCompileCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown.
	// Cancellation keeps already-fetched pages; the pipeline marks the
	// affected crawls partial instead of discarding work.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCompile(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and loads the
// book file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.BookFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.OutputDir, err = cmd.Flags().GetString("output-dir")
	if err != nil {
		return nil, err
	}

	cfg.VolumeFilter, err = cmd.Flags().GetString("volume")
	if err != nil {
		return nil, err
	}

	cfg.SectionFilter, err = cmd.Flags().GetString("section")
	if err != nil {
		return nil, err
	}

	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}

	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	noImages, err := cmd.Flags().GetBool("no-images")
	if err != nil {
		return nil, err
	}
	cfg.DownloadImages = !noImages

	cfg.FromArchive, err = cmd.Flags().GetBool("from-archive")
	if err != nil {
		return nil, err
	}

	noArchive, err := cmd.Flags().GetBool("no-archive")
	if err != nil {
		return nil, err
	}
	cfg.SaveToArchive = !noArchive

	cfg.SaveRenderInput, err = cmd.Flags().GetBool("save-render-input")
	if err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("report-file")
	if err != nil {
		return nil, err
	}

	// Load the book file.
	// If user explicitly specified a book file path, error if not found.
	explicitBookPath := cfg.BookFilePath != ""
	bookPath := config.FindBookFile(cfg.BookFilePath)
	if bookPath == "" {
		if explicitBookPath {
			return nil, fmt.Errorf("book file not found: %s", cfg.BookFilePath)
		}
		return nil, fmt.Errorf("no book file found (run \"sitebook init\" to create %s)", config.DefaultBookFile)
	}

	cfg.Book, err = config.LoadBookFile(bookPath)
	if err != nil {
		return nil, err
	}
	cfg.BookFilePath = bookPath

	return cfg, nil
}

// selectVolumes resolves the --volume and --section filters against the
// book file.
func selectVolumes(cfg *config.Config) ([]config.Volume, error) {
	switch {
	case cfg.VolumeFilter != "":
		v, err := cfg.Book.FindVolume(cfg.VolumeFilter)
		if err != nil {
			return nil, fmt.Errorf("volume %q: %w", cfg.VolumeFilter, err)
		}
		return []config.Volume{v}, nil
	case cfg.SectionFilter != "":
		v, err := cfg.Book.FindSection(cfg.SectionFilter)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", cfg.SectionFilter, err)
		}
		return []config.Volume{v}, nil
	default:
		return cfg.Book.AllVolumes(), nil
	}
}

// runCompile executes the compilation run.
func runCompile(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	volumes, err := selectVolumes(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting compile",
		"book", cfg.BookFilePath,
		"volumes", len(volumes),
		"batchSize", cfg.BatchSize,
		"fromArchive", cfg.FromArchive,
	)

	// Open the archive when this run reads from or writes to it.
	var archive *database.Archive
	if cfg.FromArchive || cfg.SaveToArchive {
		opts := database.Options{CreateIfNotExists: !cfg.FromArchive, EnableWAL: true}
		archive, err = database.Open(cfg.ArchiveDir, opts)
		if err != nil {
			if cfg.FromArchive {
				return fmt.Errorf("failed to open archive: %w", err)
			}
			// Archiving is best effort; compilation proceeds without it.
			logger.Warn("archive unavailable, continuing without it", "error", err)
		} else {
			defer archive.Close() //nolint:errcheck // Read-mostly handle, close error is harmless
			logger.Info("archive opened", "dir", cfg.ArchiveDir)
		}
	}

	renderer := render.NewPDF(
		render.WithSaveInput(cfg.SaveRenderInput),
		render.WithRenderLogger(logger),
	)

	bp := pipeline.NewBatchProcessor(
		func(volume config.Volume) *pipeline.Pipeline {
			return buildPipeline(cfg, volume, renderer, archive, logger)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	results, err := bp.ProcessBatch(ctx, volumes)
	if err != nil {
		// Cancellation: report what completed, then surface the error.
		if reportErr := outputReports(cfg, results, bp.Summary()); reportErr != nil {
			logger.Error("report failed", "error", reportErr)
		}
		return err
	}

	for _, result := range results {
		if result.Succeeded() {
			fmt.Printf("Compiled %s -> %s (%d pages)\n",
				result.VolumeName, result.OutputPath, result.TotalPages())
		} else {
			fmt.Fprintf(os.Stderr, "Failed %s: %v\n", result.VolumeName, result.Error)
		}
	}

	summary := bp.Summary()
	if err := outputReports(cfg, results, summary); err != nil {
		logger.Error("report failed", "error", err)
	}

	elapsed := time.Since(startTime)
	fmt.Printf("\nCompile finished in %s: %d generated, %d failed, %d pages\n",
		elapsed.Round(time.Millisecond),
		len(summary.Generated), len(summary.Failed), summary.TotalPages)

	// A run that produced at least one volume is a success; per-volume
	// failures are already visible in the summary and the report.
	if len(summary.Generated) == 0 {
		return errors.New("no volume produced an output file")
	}
	return nil
}

// buildPipeline assembles the step sequence for one volume.
func buildPipeline(cfg *config.Config, volume config.Volume, renderer render.Renderer, archive *database.Archive, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(pipeline.WithLogger(logger))

	if cfg.FromArchive {
		p.AddStep(pipeline.NewLoadArchiveStep(archive, logger))
	} else {
		p.AddStep(pipeline.NewCrawlStep(cfg, volume, logger))
	}

	p.AddSteps(
		pipeline.NewAssembleStep(volume, logger),
		pipeline.NewProcessStep(logger),
		pipeline.NewEmbedImagesStep(cfg, logger),
		pipeline.NewRenderStep(renderer, cfg, volume, logger),
	)

	if archive != nil && cfg.SaveToArchive && !cfg.FromArchive {
		p.AddStep(pipeline.NewSaveArchiveStep(archive, logger))
	}

	p.AddStep(pipeline.NewSummaryStep(logger))
	return p
}

// outputReports writes the per-volume reports and the run summary in
// the requested format. Without --json or --markdown no report is
// written; the console output above is the default surface.
func outputReports(cfg *config.Config, results []*model.CompileResult, summary *model.RunSummary) error {
	if !cfg.JSONReport && !cfg.MarkdownReport {
		return nil
	}

	output := os.Stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(cfg.ReportFile) //nolint:gosec // User-provided report path is intentional
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close() //nolint:errcheck // Flushed by the writers below
		output = f
	}

	var writer report.Writer
	if cfg.JSONReport {
		writer = report.NewJSONWriter(output)
	} else {
		writer = report.NewMarkdownWriter(output)
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		if _, err := writer.Write(result); err != nil {
			return err
		}
	}
	_, err := writer.WriteSummary(summary)
	return err
}
