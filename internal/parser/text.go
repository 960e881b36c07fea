package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// TextParser handles plain text files. Form feeds separate pages; line endings
// are normalized to "\n".
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := strings.ReplaceAll(string(src), "\r\n", "\n")

	doc := newDocument(filename)
	for i, page := range splitPages(s) {
		addPage(doc, i+1, page)
	}
	return doc, nil
}
