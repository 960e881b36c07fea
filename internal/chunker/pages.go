package chunker

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// pageSep is appended after every page when building the full text.
const pageSep = "\n\n"

// pageSpan covers [Start, End) runes of the full text.
type pageSpan struct {
	Start, End int
	Page       int
}

// PageIndex maps rune offsets in the concatenated document to page numbers.
type PageIndex struct {
	spans []pageSpan
}

// NewPageIndex concatenates page texts (each followed by a blank line) and
// records the span each page occupies. It returns the full text and the index.
func NewPageIndex(pages []doctree.Page) (string, PageIndex) {
	var sb strings.Builder
	spans := make([]pageSpan, 0, len(pages))
	sepLen := utf8.RuneCountInString(pageSep)
	pos := 0
	for _, p := range pages {
		n := utf8.RuneCountInString(p.Text) + sepLen
		spans = append(spans, pageSpan{Start: pos, End: pos + n, Page: p.Number})
		sb.WriteString(p.Text)
		sb.WriteString(pageSep)
		pos += n
	}
	return sb.String(), PageIndex{spans: spans}
}

// Locate returns the page containing offset. Offsets past the last span map to
// the last page; an empty index always answers page 1.
func (idx PageIndex) Locate(offset int) int {
	if len(idx.spans) == 0 {
		return 1
	}
	// Ends are strictly increasing, so the first span ending past offset wins.
	i := sort.Search(len(idx.spans), func(i int) bool { return idx.spans[i].End > offset })
	if i == len(idx.spans) {
		return idx.spans[len(idx.spans)-1].Page
	}
	return idx.spans[i].Page
}

// Len returns the number of pages indexed.
func (idx PageIndex) Len() int {
	return len(idx.spans)
}
