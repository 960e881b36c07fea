package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// Parser converts raw document bytes into pages of text plus table grids.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Options tunes the PDF parser.
type Options struct {
	PDFFallbackPdftotext bool
	PDFTables            bool
}

// DefaultOptions enables the pdftotext fallback and table detection.
func DefaultOptions() Options {
	return Options{PDFFallbackPdftotext: true, PDFTables: true}
}

// ForFile returns the appropriate parser for a filename with default options.
func ForFile(filename string) (Parser, error) {
	return ForFileWith(filename, DefaultOptions())
}

// ForFileWith returns the appropriate parser for a filename.
func ForFileWith(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext, Tables: opts.PDFTables}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func newDocument(filename string) *doctree.Document {
	id := doctree.DocIDFromFilename(filename)
	return &doctree.Document{
		ID:       id,
		Title:    id,
		Filename: filepath.Base(filename),
	}
}

// addPage appends a page unless its text is blank.
func addPage(doc *doctree.Document, number int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	doc.Pages = append(doc.Pages, doctree.Page{Number: number, Text: text})
}

// addTable appends a grid, numbering tables across the whole document. The
// first row becomes the header.
func addTable(doc *doctree.Document, page int, grid [][]string, accuracy float64) {
	grid = trimGrid(grid)
	if len(grid) == 0 {
		return
	}
	doc.Tables = append(doc.Tables, doctree.Table{
		ID:       fmt.Sprintf("table_%d", len(doc.Tables)+1),
		Page:     page,
		Header:   grid[0],
		Rows:     grid[1:],
		Accuracy: accuracy,
	})
}

// trimGrid trims cells and drops rows that are entirely blank.
func trimGrid(grid [][]string) [][]string {
	out := make([][]string, 0, len(grid))
	for _, row := range grid {
		blank := true
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.TrimSpace(c)
			if cells[i] != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, cells)
		}
	}
	return out
}

// gridMarkdown renders a grid as pipe-delimited lines so the chunker keeps it
// together as a table block.
func gridMarkdown(grid [][]string) string {
	var b strings.Builder
	for i, row := range grid {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		if i == 0 {
			seps := make([]string, len(row))
			for j := range seps {
				seps[j] = "---"
			}
			b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
