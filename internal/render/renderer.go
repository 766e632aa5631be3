package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfcpumodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/sitebook/sitebook/internal/model"
)

// Renderer produces the output document for an assembled volume.
type Renderer interface {
	// Render writes the volume to outputPath.
	Render(ctx context.Context, vol *model.Volume, outputPath string) error
}

// PDF renders volumes through pdfcpu: a create-from-JSON pass for the
// text flow, then a bookmark pass attaching the outline forest.
type PDF struct {
	// saveInput, when set, dumps the intermediate create-JSON and text
	// flow next to the output for inspection.
	saveInput bool

	logger *slog.Logger
}

// PDFOption configures the PDF renderer.
type PDFOption func(*PDF)

// WithSaveInput dumps the intermediate render artifacts next to the
// output PDF.
func WithSaveInput(save bool) PDFOption {
	return func(p *PDF) {
		p.saveInput = save
	}
}

// WithRenderLogger sets the logger for render progress.
func WithRenderLogger(logger *slog.Logger) PDFOption {
	return func(p *PDF) {
		p.logger = logger
	}
}

// NewPDF creates the pdfcpu-backed renderer.
func NewPDF(opts ...PDFOption) *PDF {
	p := &PDF{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// createDoc is the pdfcpu create-JSON document root.
type createDoc struct {
	Paper  string              `json:"paper"`
	Origin string              `json:"origin"`
	Pages  map[string]pageDecl `json:"pages"`
}

type pageDecl struct {
	Content contentDecl `json:"content"`
}

type contentDecl struct {
	Text []textDecl `json:"text"`
}

type textDecl struct {
	Value    string    `json:"value"`
	Position []float64 `json:"position"`
	Width    float64   `json:"width"`
	Font     fontDecl  `json:"font"`
}

type fontDecl struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

// Render lays the volume out, creates the PDF, and attaches bookmarks.
func (p *PDF) Render(ctx context.Context, vol *model.Volume, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	layout, err := layoutVolume(vol)
	if err != nil {
		return fmt.Errorf("layout volume %q: %w", vol.Name, err)
	}

	createJSON, err := json.MarshalIndent(buildCreateDoc(layout), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal create document: %w", err)
	}

	if p.saveInput {
		p.dumpArtifacts(outputPath, createJSON, layout)
	}

	conf := pdfcpumodel.NewDefaultConfiguration()

	var pdf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(createJSON), &pdf, conf); err != nil {
		return fmt.Errorf("create PDF for %q: %w", vol.Name, err)
	}

	final := pdf.Bytes()
	if bookmarks := buildBookmarks(vol, layout); len(bookmarks) > 0 {
		var withBookmarks bytes.Buffer
		if err := api.AddBookmarks(bytes.NewReader(final), &withBookmarks, bookmarks, true, conf); err != nil {
			return fmt.Errorf("add bookmarks to %q: %w", vol.Name, err)
		}
		final = withBookmarks.Bytes()
	}

	if err := os.WriteFile(outputPath, final, 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}

	p.logger.Info("rendered volume",
		"volume", vol.Name,
		"output", outputPath,
		"pages", vol.PageCount(),
		"pdfPages", len(layout.pages),
	)
	return nil
}

// buildCreateDoc turns laid-out pages into the create-JSON document:
// one text box per PDF page, anchored at the top left of an A4 sheet.
func buildCreateDoc(layout *layoutResult) createDoc {
	doc := createDoc{
		Paper:  "A4",
		Origin: "upperLeft",
		Pages:  make(map[string]pageDecl, len(layout.pages)),
	}
	for i, page := range layout.pages {
		doc.Pages[strconv.Itoa(i+1)] = pageDecl{
			Content: contentDecl{
				Text: []textDecl{{
					Value:    strings.Join(page.lines, "\n"),
					Position: []float64{40, 40},
					Width:    515,
					Font:     fontDecl{Name: "Courier", Size: 10},
				}},
			},
		}
	}
	return doc
}

// buildBookmarks maps the outline forest onto PDF bookmarks. Nodes with
// an anchor point at the first PDF page of their crawled page;
// placeholders point where their first descendant starts.
func buildBookmarks(vol *model.Volume, layout *layoutResult) []pdfcpu.Bookmark {
	anchorToURL := make(map[string]string, len(vol.URLMap))
	for url, a := range vol.URLMap {
		anchorToURL[a] = url
	}

	var convert func(nodes []*model.OutlineNode) []pdfcpu.Bookmark
	convert = func(nodes []*model.OutlineNode) []pdfcpu.Bookmark {
		var out []pdfcpu.Bookmark
		for _, n := range nodes {
			kids := convert(n.Children)
			page := nodePage(n, anchorToURL, layout.startPage)
			if page == 0 {
				if len(kids) == 0 {
					continue
				}
				page = kids[0].PageFrom
			}
			out = append(out, pdfcpu.Bookmark{
				Title:    n.Label,
				PageFrom: page,
				Kids:     kids,
			})
		}
		return out
	}
	return convert(vol.Outline)
}

// nodePage resolves an outline node to the PDF page it references, or 0.
func nodePage(n *model.OutlineNode, anchorToURL map[string]string, startPage map[string]int) int {
	if n.Anchor == "" {
		return 0
	}
	url, ok := anchorToURL[n.Anchor]
	if !ok {
		return 0
	}
	return startPage[url]
}

// dumpArtifacts writes the intermediate representations next to the
// output PDF. Failures here are logged, never fatal.
func (p *PDF) dumpArtifacts(outputPath string, createJSON []byte, layout *layoutResult) {
	jsonPath := outputPath + ".render.json"
	if err := os.WriteFile(jsonPath, createJSON, 0o600); err != nil {
		p.logger.Warn("could not save render input", "path", jsonPath, "error", err)
	}

	var flow strings.Builder
	for i, page := range layout.pages {
		fmt.Fprintf(&flow, "--- page %d ---\n", i+1)
		for _, line := range page.lines {
			flow.WriteString(line)
			flow.WriteByte('\n')
		}
	}
	textPath := outputPath + ".txt"
	if err := os.WriteFile(textPath, []byte(flow.String()), 0o600); err != nil {
		p.logger.Warn("could not save text flow", "path", textPath, "error", err)
	}
}
