package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// CSVParser handles CSV files as a one-page document holding a single table.
// A leading UTF-8 BOM, as written by table export, is ignored.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(src), "\ufeff")))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := newDocument(filename)
	grid := trimGrid(records)
	if len(grid) == 0 {
		return doc, nil
	}
	addTable(doc, 1, grid, 100)
	addPage(doc, 1, gridMarkdown(grid))
	return doc, nil
}
