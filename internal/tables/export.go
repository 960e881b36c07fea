package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// utf8BOM lets spreadsheet tools detect the encoding of Chinese text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IndexFile is the name of the per-document table index.
const IndexFile = "index.csv"

// ExportCSV writes every table to dir/<docID>/<table_id>.csv plus an index
// listing id, page range, type, category, title and size. It returns the paths
// written, index last.
func ExportCSV(dir, docID string, tables []EnrichedTable) ([]string, error) {
	outDir := filepath.Join(dir, docID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create table dir: %w", err)
	}

	paths := make([]string, 0, len(tables)+1)
	for _, t := range tables {
		p := filepath.Join(outDir, t.ID+".csv")
		if err := writeCSVFile(p, func(w io.Writer) error { return WriteTable(w, t.Table.Header, t.Rows) }); err != nil {
			return paths, fmt.Errorf("export table %s: %w", t.ID, err)
		}
		paths = append(paths, p)
	}

	idx := filepath.Join(outDir, IndexFile)
	if err := writeCSVFile(idx, func(w io.Writer) error { return WriteIndex(w, tables) }); err != nil {
		return paths, fmt.Errorf("export table index: %w", err)
	}
	return append(paths, idx), nil
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTable writes one grid as CSV, header first when present.
func WriteTable(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteIndex writes the table summary rows.
func WriteIndex(w io.Writer, tables []EnrichedTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"table_id", "page", "type", "category", "title", "rows", "cols"}); err != nil {
		return err
	}
	for _, t := range tables {
		rec := []string{
			t.ID,
			t.PageRange(),
			string(t.Classification.Type),
			t.Classification.Category,
			t.Title,
			strconv.Itoa(len(t.Rows)),
			strconv.Itoa(t.NumCols()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
