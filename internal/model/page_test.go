package model

import (
	"strings"
	"testing"
)

// TestPageComputeHash tests hash computation for change detection.
func TestPageComputeHash(t *testing.T) {
	t.Parallel()

	t.Run("computes hash for content", func(t *testing.T) {
		t.Parallel()

		p := &Page{Raw: []byte("<html><body>hello</body></html>")}
		p.ComputeHash()

		if p.Hash == "" {
			t.Error("expected non-empty hash")
		}
		if len(p.Hash) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(p.Hash))
		}
	})

	t.Run("same content yields same hash", func(t *testing.T) {
		t.Parallel()

		a := &Page{Raw: []byte("content")}
		b := &Page{Raw: []byte("content")}
		a.ComputeHash()
		b.ComputeHash()

		if a.Hash != b.Hash {
			t.Errorf("expected equal hashes, got %q and %q", a.Hash, b.Hash)
		}
	})

	t.Run("empty content yields empty hash", func(t *testing.T) {
		t.Parallel()

		p := &Page{}
		p.ComputeHash()

		if p.Hash != "" {
			t.Errorf("expected empty hash, got %q", p.Hash)
		}
	})
}

// TestPageTruncateRaw tests the raw size limit.
func TestPageTruncateRaw(t *testing.T) {
	t.Parallel()

	p := &Page{Raw: []byte(strings.Repeat("x", MaxPageSize+100))}
	p.TruncateRaw()

	if len(p.Raw) != MaxPageSize {
		t.Errorf("expected raw truncated to %d, got %d", MaxPageSize, len(p.Raw))
	}
}

// TestPageIsHTML tests content type detection.
func TestPageIsHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"image/png", false},
		{"", false},
	}

	for _, tt := range tests {
		p := &Page{ContentType: tt.contentType}
		if got := p.IsHTML(); got != tt.want {
			t.Errorf("IsHTML(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

// TestPageDisplayTitle tests the bookmark label fallback.
func TestPageDisplayTitle(t *testing.T) {
	t.Parallel()

	t.Run("uses title when present", func(t *testing.T) {
		t.Parallel()

		p := &Page{URL: "https://example.gov/a", Title: "Getting Started"}
		if got := p.DisplayTitle(); got != "Getting Started" {
			t.Errorf("expected title, got %q", got)
		}
	})

	t.Run("falls back to URL", func(t *testing.T) {
		t.Parallel()

		p := &Page{URL: "https://example.gov/a", Title: "   "}
		if got := p.DisplayTitle(); got != "https://example.gov/a" {
			t.Errorf("expected URL fallback, got %q", got)
		}
	})
}

// TestVolumePages tests page aggregation across sections.
func TestVolumePages(t *testing.T) {
	t.Parallel()

	v := &Volume{
		Sections: []*Section{
			{Name: "design", Pages: []*Page{{URL: "https://example.gov/design"}}},
			{Name: "develop", Pages: []*Page{
				{URL: "https://example.gov/develop"},
				{URL: "https://example.gov/develop/api"},
			}},
		},
	}

	if got := v.PageCount(); got != 3 {
		t.Errorf("expected 3 pages, got %d", got)
	}
	pages := v.Pages()
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if pages[0].URL != "https://example.gov/design" {
		t.Errorf("expected section order preserved, got %q first", pages[0].URL)
	}
}

// TestOutlineWalk tests depth-first traversal of the outline.
func TestOutlineWalk(t *testing.T) {
	t.Parallel()

	root := &OutlineNode{
		Label: "root",
		Children: []*OutlineNode{
			{Label: "a", Children: []*OutlineNode{{Label: "a1"}}},
			{Label: "b"},
		},
	}

	var visited []string
	root.Walk(func(n *OutlineNode, depth int) bool {
		visited = append(visited, n.Label)
		return true
	})

	want := []string{"root", "a", "a1", "b"}
	if len(visited) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(visited))
	}
	for i, label := range want {
		if visited[i] != label {
			t.Errorf("position %d: expected %q, got %q", i, label, visited[i])
		}
	}

	if got := CountNodes([]*OutlineNode{root}); got != 4 {
		t.Errorf("expected 4 nodes, got %d", got)
	}
}

// TestCompileResult tests result state tracking.
func TestCompileResult(t *testing.T) {
	t.Parallel()

	r := NewCompileResult("standards")
	if r.VolumeName != "standards" {
		t.Errorf("expected volume name set, got %q", r.VolumeName)
	}
	if r.Succeeded() {
		t.Error("expected not succeeded before output exists")
	}

	r.OutputPath = "/tmp/standards.pdf"
	if !r.Succeeded() {
		t.Error("expected succeeded with output and no error")
	}

	r.SetError(errTest)
	if r.Succeeded() {
		t.Error("expected not succeeded after error")
	}
	if r.ErrorMessage != errTest.Error() {
		t.Errorf("expected error message recorded, got %q", r.ErrorMessage)
	}
}

var errTest = errString("boom")

type errString string

func (e errString) Error() string { return string(e) }
