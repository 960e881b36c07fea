package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// PDFParser handles PDF files. Page text comes from the Go library, falling
// back to pdftotext if available. Table grids come from geometric detection
// over positioned text fragments.
type PDFParser struct {
	FallbackPdftotext bool
	Tables            bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	// Both libraries read from a file, so spool to disk.
	tmp, err := os.CreateTemp("", "dealgest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	pages, err := extractPDFPages(tmpPath)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := newDocument(filename)
	for i, page := range pages {
		addPage(doc, i+1, page)
	}

	if p.Tables {
		p.addTables(tmpPath, doc)
	}
	return doc, nil
}

// addTables runs table detection. A failure is recorded as a warning so that
// callers can tell it apart from a PDF without tables; the text still chunks.
func (p *PDFParser) addTables(path string, doc *doctree.Document) {
	if err := detectPDFTables(path, doc); err != nil {
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("table detection: %s", err))
	}
}

// extractPDFPages returns one string per page, keeping blank pages so that
// indexes match page numbers.
func extractPDFPages(path string) ([]string, error) {
	f, rd, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := rd.NumPage()
	out := make([]string, numPages)
	extracted := 0
	for i := 1; i <= numPages; i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		out[i-1] = txt
		extracted++
	}
	if numPages > 0 && extracted == 0 {
		return nil, fmt.Errorf("no extractable text in %d pages", numPages)
	}
	return out, nil
}

func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return splitPages(string(out)), nil
}

// splitPages splits on form feed, the page separator pdftotext emits.
func splitPages(s string) []string {
	return strings.Split(s, "\f")
}

// detectPDFTables runs the geometric detector page by page. Accuracy is the
// detector confidence scaled to a percentage.
func detectPDFTables(path string, doc *doctree.Document) error {
	rd, err := reader.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf for tables: %w", err)
	}
	defer rd.Close()

	count, err := rd.PageCount()
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}

	detector := tables.NewGeometricDetector()
	for i := 0; i < count; i++ {
		pg, err := rd.GetPage(i)
		if err != nil {
			continue
		}
		frags, err := rd.ExtractTextFragments(pg)
		if err != nil || len(frags) == 0 {
			continue
		}
		width, _ := pg.Width()
		height, _ := pg.Height()

		mp := model.NewPage(width, height)
		mp.Number = i + 1
		mp.RawText = toModelFragments(frags)

		found, err := detector.Detect(mp)
		if err != nil {
			continue
		}
		for _, t := range found {
			addTable(doc, i+1, cellGrid(t), t.Confidence*100)
		}
	}
	return nil
}

func toModelFragments(frags []text.TextFragment) []model.TextFragment {
	out := make([]model.TextFragment, len(frags))
	for i, f := range frags {
		out[i] = model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		}
	}
	return out
}

func cellGrid(t *model.Table) [][]string {
	grid := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = c.Text
		}
		grid[i] = cells
	}
	return grid
}
