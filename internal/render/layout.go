package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/sitebook/sitebook/internal/model"
)

// Layout geometry for the Courier text flow on A4. Courier is
// fixed-width, which makes the character budget per line exact. All
// width arithmetic counts runes, not bytes, so accented titles are
// never split mid-character.
const (
	lineWidth    = 90
	linesPerPage = 54
)

// docPage is one laid-out PDF page: its lines, ready for the create
// call.
type docPage struct {
	lines []string
}

// layoutResult is the paginated document plus the location index the
// bookmark pass needs.
type layoutResult struct {
	pages []docPage

	// startPage maps a crawled page's canonical URL to the 1-based PDF
	// page its content starts on.
	startPage map[string]int
}

// layoutVolume paginates the whole volume: title page, table of
// contents, then every section's pages in order, each starting on a
// fresh PDF page.
func layoutVolume(vol *model.Volume) (*layoutResult, error) {
	res := &layoutResult{startPage: make(map[string]int)}

	res.pages = append(res.pages, titlePage(vol))

	// The table of contents length is known up front, so content page
	// numbers can be computed before the TOC text is final.
	tocEntries := model.CountNodes(vol.Outline)
	tocPageCount := (tocEntries + tocHeaderLines + linesPerPage - 1) / linesPerPage
	if tocPageCount < 1 {
		tocPageCount = 1
	}

	contentStart := 1 + tocPageCount + 1 // after title and TOC, 1-based
	var contentPages []docPage
	for _, page := range vol.Pages() {
		body, err := pageLines(page)
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", page.URL, err)
		}
		res.startPage[page.URL] = contentStart + len(contentPages)
		contentPages = append(contentPages, paginate(body)...)
	}

	res.pages = append(res.pages, tocPages(vol, res.startPage, tocPageCount)...)
	res.pages = append(res.pages, contentPages...)
	return res, nil
}

// titlePage lays out the volume cover.
func titlePage(vol *model.Volume) docPage {
	var lines []string
	pad := linesPerPage / 3
	for range pad {
		lines = append(lines, "")
	}
	lines = append(lines, center(vol.Meta.Title))
	lines = append(lines, "")
	if vol.Meta.Subject != "" {
		lines = append(lines, center(vol.Meta.Subject), "")
	}
	if vol.Meta.Author != "" {
		lines = append(lines, center(vol.Meta.Author), "")
	}
	lines = append(lines, center(vol.GeneratedAt.Format("2 January 2006")))
	return docPage{lines: lines}
}

const tocHeaderLines = 2

// tocPages lays out the table of contents over a fixed number of pages
// so content page numbers stay stable.
func tocPages(vol *model.Volume, startPage map[string]int, pageCount int) []docPage {
	anchorToURL := make(map[string]string, len(vol.URLMap))
	for url, a := range vol.URLMap {
		anchorToURL[a] = url
	}

	lines := []string{"Contents", ""}
	for _, root := range vol.Outline {
		root.Walk(func(n *model.OutlineNode, depth int) bool {
			label := strings.Repeat("  ", depth) + n.Label
			if url, ok := anchorToURL[n.Anchor]; ok && n.Anchor != "" {
				if pg, ok := startPage[url]; ok {
					label = tocLine(label, pg)
				}
			}
			lines = append(lines, truncate(label, lineWidth))
			return true
		})
	}

	pages := paginate(lines)
	for len(pages) < pageCount {
		pages = append(pages, docPage{})
	}
	return pages[:pageCount]
}

// tocLine joins a label and page number with dot leaders.
func tocLine(label string, page int) string {
	num := fmt.Sprintf("%d", page)
	dots := lineWidth - utf8.RuneCountInString(label) - len(num) - 2
	if dots < 1 {
		return truncate(label, lineWidth-len(num)-3) + " " + num
	}
	return label + " " + strings.Repeat(".", dots) + " " + num
}

// pageLines converts one crawled page's processed HTML into wrapped
// text lines, headed by its source URL.
func pageLines(page *model.Page) ([]string, error) {
	md, err := htmltomarkdown.ConvertString(page.Content)
	if err != nil {
		return nil, err
	}

	lines := []string{
		truncate(page.DisplayTitle(), lineWidth),
		truncate(page.URL, lineWidth),
		strings.Repeat("-", lineWidth),
		"",
	}
	for _, raw := range strings.Split(md, "\n") {
		lines = append(lines, wrap(strings.TrimRight(raw, " \t"), lineWidth)...)
	}
	return lines, nil
}

// paginate splits lines into pages of linesPerPage each.
func paginate(lines []string) []docPage {
	// Drop trailing blank lines so a page ending in whitespace does not
	// spill an empty continuation page.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	var pages []docPage
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, docPage{lines: lines[start:end]})
	}
	return pages
}

// wrap breaks a line at word boundaries to fit the width. Words longer
// than the width are hard-split on rune boundaries.
func wrap(s string, width int) []string {
	if utf8.RuneCountInString(s) <= width {
		return []string{s}
	}

	var out []string
	var line strings.Builder
	lineLen := 0
	flush := func() {
		out = append(out, line.String())
		line.Reset()
		lineLen = 0
	}
	for _, word := range strings.Fields(s) {
		runes := []rune(word)
		for len(runes) > width {
			if lineLen > 0 {
				flush()
			}
			out = append(out, string(runes[:width]))
			runes = runes[width:]
		}
		switch {
		case lineLen == 0:
			line.WriteString(string(runes))
			lineLen = len(runes)
		case lineLen+1+len(runes) <= width:
			line.WriteByte(' ')
			line.WriteString(string(runes))
			lineLen += 1 + len(runes)
		default:
			flush()
			line.WriteString(string(runes))
			lineLen = len(runes)
		}
	}
	if lineLen > 0 {
		out = append(out, line.String())
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// center pads a line to the middle of the text column.
func center(s string) string {
	s = truncate(s, lineWidth)
	pad := (lineWidth - utf8.RuneCountInString(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

// truncate cuts a line to the width in runes.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
