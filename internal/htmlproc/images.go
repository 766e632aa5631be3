package htmlproc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sitebook/sitebook/internal/model"
	"github.com/sitebook/sitebook/internal/webclient"
)

// Embedder inlines page images as base64 data URIs so the rendered
// document needs no network access. Fetched images are cached for the
// lifetime of the Embedder, one fetch per distinct URL per run.
//
// Embedder is not safe for concurrent use; the pipeline runs one per
// volume.
type Embedder struct {
	fetcher webclient.Fetcher
	cache   map[string]string // absolute URL -> data URI, "" = known bad
	logger  *slog.Logger
}

// NewEmbedder creates an Embedder fetching through the given fetcher.
func NewEmbedder(fetcher webclient.Fetcher, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		fetcher: fetcher,
		cache:   make(map[string]string),
		logger:  logger,
	}
}

// Embed replaces every http(s) img source in the processed content with
// a data URI. Images that cannot be fetched or identified keep their
// absolute URL; a broken image is not worth failing the page.
func (e *Embedder) Embed(ctx context.Context, page *model.Page) error {
	if page.Content == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Content))
	if err != nil {
		return fmt.Errorf("parse content of %s: %w", page.URL, err)
	}

	changed := false
	doc.Find("img[src]").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}
		src, _ := img.Attr("src")
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return true
		}
		if uri := e.dataURI(ctx, src); uri != "" {
			img.SetAttr("src", uri)
			changed = true
		}
		return true
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	if !changed {
		return nil
	}

	html, err := doc.Find("body").Html()
	if err != nil {
		return fmt.Errorf("serialize content of %s: %w", page.URL, err)
	}
	page.Content = html
	return nil
}

// dataURI fetches and encodes one image, consulting the cache first.
// Returns "" when the image should be left as a URL.
func (e *Embedder) dataURI(ctx context.Context, src string) string {
	if uri, ok := e.cache[src]; ok {
		return uri
	}

	resp, err := e.fetcher.Fetch(ctx, src)
	if err != nil {
		e.logger.Warn("leaving image unembedded after fetch failure",
			"src", src,
			"error", err,
		)
		e.cache[src] = ""
		return ""
	}

	mime := SniffImageMIME(resp.Body)
	if mime == "" {
		e.logger.Warn("leaving image unembedded, unrecognized format", "src", src)
		e.cache[src] = ""
		return ""
	}

	uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(resp.Body)
	e.cache[src] = uri
	return uri
}

// magicNumbers maps leading byte signatures to image MIME types.
var magicNumbers = []struct {
	prefix []byte
	mime   string
}{
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte{'I', 'I', 0x2A, 0x00}, "image/tiff"},
	{[]byte{'M', 'M', 0x00, 0x2A}, "image/tiff"},
	{[]byte("BM"), "image/bmp"},
}

// SniffImageMIME identifies an image format from its magic bytes.
// Returns "" for data that is not a recognized raster format, except
// SVG, which is detected from its document element.
func SniffImageMIME(data []byte) string {
	for _, m := range magicNumbers {
		if bytes.HasPrefix(data, m.prefix) {
			return m.mime
		}
	}

	// WebP: RIFF container with a WEBP fourcc at offset 8.
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "image/webp"
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<svg")) {
		return "image/svg+xml"
	}

	return ""
}
