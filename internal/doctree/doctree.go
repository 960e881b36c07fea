package doctree

import "fmt"

// Document is a parsed source file: ordered page texts plus any table grids
// the parser recovered.
type Document struct {
	ID       string  // Stable identifier (file stem)
	Title    string  // Document title (from metadata or filename)
	Filename string  // Original filename
	Pages    []Page  // Non-empty pages in reading order
	Tables   []Table // Raw table grids, in page order
	// Warnings are non-fatal problems hit while parsing, such as a failed
	// table pass. The text is still usable.
	Warnings []string
}

// Page is the text of one source page. Number is 1-based.
type Page struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
}

// ChunkType tags what kind of block a chunk came from.
type ChunkType string

const (
	ChunkText  ChunkType = "text"
	ChunkTable ChunkType = "table"
)

// ChunkMetadata is the attachment carried alongside a chunk.
type ChunkMetadata struct {
	ChunkType ChunkType `json:"chunk_type"`
}

// Chunk is a retrieval unit tagged with page, section and type.
type Chunk struct {
	DocID    string        `json:"doc_id"`
	ChunkID  int           `json:"chunk_id"`
	Text     string        `json:"text"`
	Page     int           `json:"page"`
	Section  string        `json:"section"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Type returns the chunk's block type.
func (c Chunk) Type() ChunkType {
	return c.Metadata.ChunkType
}

// SourceID formats the citation id used in extraction results.
func (c Chunk) SourceID() string {
	return fmt.Sprintf("%s:chunk%d:p%d", c.DocID, c.ChunkID, c.Page)
}

// Table is a cell grid recovered from a page. Header holds the column names;
// Rows holds the data rows.
type Table struct {
	ID       string     `json:"table_id"`
	Page     int        `json:"page"`
	PageEnd  int        `json:"page_end,omitempty"` // Set on merged tables
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
	Accuracy float64    `json:"accuracy,omitempty"`

	MergedFrom []string `json:"merged_from,omitempty"`
	MergeType  string   `json:"merge_type,omitempty"`
}

// Empty reports whether the grid has no columns or no data rows.
func (t Table) Empty() bool {
	return len(t.Header) == 0 || len(t.Rows) == 0
}

// NumCols returns the column count.
func (t Table) NumCols() int {
	n := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}

// PageRange renders the page as "N" or "start-end" for merged tables.
func (t Table) PageRange() string {
	if t.PageEnd > t.Page {
		return fmt.Sprintf("%d-%d", t.Page, t.PageEnd)
	}
	return fmt.Sprintf("%d", t.Page)
}
