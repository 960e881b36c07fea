package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark. The source text is
// kept as page text so headings and pipe tables reach the chunker verbatim;
// form feeds separate pages. GFM tables are also recovered as grids.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := newDocument(filename)

	for i, page := range splitPages(string(src)) {
		addPage(doc, i+1, page)

		pageSrc := []byte(page)
		root := md.Parser().Parse(text.NewReader(pageSrc))
		err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			if tbl, ok := n.(*east.Table); ok {
				addTable(doc, i+1, markdownGrid(tbl, pageSrc), 100)
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		})
		if err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// markdownGrid flattens a GFM table: the header row then body rows.
func markdownGrid(tbl *east.Table, src []byte) [][]string {
	var grid [][]string
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, src))
		}
		grid = append(grid, cells)
	}
	return grid
}

// inlineText gets the text content of a goldmark node's inline children.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			// Recurse for nested inlines.
			buf.WriteString(inlineText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
