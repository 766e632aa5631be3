package htmlproc

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/sitebook/sitebook/internal/model"
	"github.com/sitebook/sitebook/internal/webclient"
)

// pngBytes is a valid PNG signature followed by filler.
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}

// imageFetcher serves fixed bytes per URL and counts fetches.
type imageFetcher struct {
	mu     sync.Mutex
	images map[string][]byte
	calls  map[string]int
}

func (f *imageFetcher) Fetch(_ context.Context, url string) (*webclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	body, ok := f.images[url]
	if !ok {
		return nil, &webclient.FetchError{URL: url, StatusCode: 404, Attempts: 1}
	}
	return &webclient.Response{StatusCode: 200, Body: body}, nil
}

func TestSniffImageMIME(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{name: "jpeg", data: []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, want: "image/jpeg"},
		{name: "png", data: pngBytes, want: "image/png"},
		{name: "gif87", data: []byte("GIF87a...."), want: "image/gif"},
		{name: "gif89", data: []byte("GIF89a...."), want: "image/gif"},
		{name: "webp", data: []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), want: "image/webp"},
		{name: "tiff little endian", data: []byte{'I', 'I', 0x2A, 0x00, 0x08}, want: "image/tiff"},
		{name: "tiff big endian", data: []byte{'M', 'M', 0x00, 0x2A, 0x08}, want: "image/tiff"},
		{name: "bmp", data: []byte("BM\x00\x00"), want: "image/bmp"},
		{name: "svg", data: []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"/>`), want: "image/svg+xml"},
		{name: "html is not an image", data: []byte("<html><body>404</body></html>"), want: ""},
		{name: "empty", data: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SniffImageMIME(tt.data); got != tt.want {
				t.Errorf("SniffImageMIME() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEmbedderEmbed(t *testing.T) {
	t.Parallel()

	t.Run("embeds fetched images as data URIs", func(t *testing.T) {
		t.Parallel()

		fetcher := &imageFetcher{images: map[string][]byte{
			"https://docs.example.gov/logo.png": pngBytes,
		}}
		embedder := NewEmbedder(fetcher, nil)

		page := &model.Page{
			URL:     "https://docs.example.gov/home",
			Content: `<p><img src="https://docs.example.gov/logo.png" alt="logo"/></p>`,
		}
		if err := embedder.Embed(context.Background(), page); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}

		want := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
		if !strings.Contains(page.Content, want) {
			t.Errorf("content missing data URI:\n%s", page.Content)
		}
		if !strings.Contains(page.Content, `alt="logo"`) {
			t.Error("img attributes lost during embedding")
		}
	})

	t.Run("caches repeated sources across pages", func(t *testing.T) {
		t.Parallel()

		fetcher := &imageFetcher{images: map[string][]byte{
			"https://docs.example.gov/logo.png": pngBytes,
		}}
		embedder := NewEmbedder(fetcher, nil)

		for range 3 {
			page := &model.Page{
				URL:     "https://docs.example.gov/home",
				Content: `<img src="https://docs.example.gov/logo.png"/>`,
			}
			if err := embedder.Embed(context.Background(), page); err != nil {
				t.Fatalf("Embed() error = %v", err)
			}
		}

		if got := fetcher.calls["https://docs.example.gov/logo.png"]; got != 1 {
			t.Errorf("image fetched %d times, want 1", got)
		}
	})

	t.Run("unfetchable image keeps its URL", func(t *testing.T) {
		t.Parallel()

		embedder := NewEmbedder(&imageFetcher{}, nil)

		page := &model.Page{
			URL:     "https://docs.example.gov/home",
			Content: `<img src="https://docs.example.gov/gone.png"/>`,
		}
		if err := embedder.Embed(context.Background(), page); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		if !strings.Contains(page.Content, `src="https://docs.example.gov/gone.png"`) {
			t.Errorf("missing image should keep URL:\n%s", page.Content)
		}
	})

	t.Run("non-image response keeps its URL", func(t *testing.T) {
		t.Parallel()

		fetcher := &imageFetcher{images: map[string][]byte{
			"https://docs.example.gov/error": []byte("<html>error page</html>"),
		}}
		embedder := NewEmbedder(fetcher, nil)

		page := &model.Page{
			URL:     "https://docs.example.gov/home",
			Content: `<img src="https://docs.example.gov/error"/>`,
		}
		if err := embedder.Embed(context.Background(), page); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		if strings.Contains(page.Content, "data:") {
			t.Errorf("non-image embedded:\n%s", page.Content)
		}
	})

	t.Run("data URIs are left alone", func(t *testing.T) {
		t.Parallel()

		fetcher := &imageFetcher{}
		embedder := NewEmbedder(fetcher, nil)

		page := &model.Page{
			URL:     "https://docs.example.gov/home",
			Content: `<img src="data:image/png;base64,AAAA"/>`,
		}
		if err := embedder.Embed(context.Background(), page); err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		if len(fetcher.calls) != 0 {
			t.Errorf("fetches for data URI sources: %v", fetcher.calls)
		}
	})
}
