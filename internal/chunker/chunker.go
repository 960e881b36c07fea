package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// Config controls chunking behavior. Sizes are in characters (runes).
type Config struct {
	ChunkSize    int // Budget for a text chunk.
	ChunkOverlap int // Overlap between sliding-window slices of a long paragraph.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    512,
		ChunkOverlap: 64,
	}
}

// normalize fills in defaults. A zero Config takes DefaultConfig whole; an
// explicit zero overlap is kept, a negative one is defaulted, and overlap is
// kept below ChunkSize so the sliding window always advances.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = def.ChunkOverlap
		}
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = def.ChunkOverlap
	}
	c.ChunkOverlap = min(c.ChunkOverlap, c.ChunkSize-1)
	return c
}

// cursor is the running state threaded through the section/block walk:
// the rune offset of the current block in the full text and the next chunk id.
type cursor struct {
	offset int
	nextID int
}

// Assemble turns a document's page texts into ordered, section-aware chunks.
// Tables are never split; prose is split by SplitText. Chunk ids run 0..N-1
// in emission order.
func Assemble(docID string, pages []doctree.Page, cfg Config) []doctree.Chunk {
	if len(pages) == 0 {
		return nil
	}
	cfg = cfg.normalize()

	full, index := NewPageIndex(pages)
	sections := SplitSections(full, DetectSections(full))

	var chunks []doctree.Chunk
	cur := cursor{}
	for _, sec := range sections {
		cur.offset = sec.Start
		chunks, cur = assembleSection(docID, sec, index, cfg, chunks, cur)
	}
	return chunks
}

// assembleSection emits the chunks for one section and returns the advanced cursor.
func assembleSection(docID string, sec Section, index PageIndex, cfg Config, out []doctree.Chunk, cur cursor) ([]doctree.Chunk, cursor) {
	for _, b := range SeparateBlocks(sec.Text) {
		out, cur = assembleBlock(docID, sec.Title, b, index, cfg, out, cur)
	}
	return out, cur
}

// assembleBlock emits one table chunk or the text pieces of one prose block.
// The offset advances by the block length plus the blank-line separator.
func assembleBlock(docID, section string, b Block, index PageIndex, cfg Config, out []doctree.Chunk, cur cursor) ([]doctree.Chunk, cursor) {
	page := index.Locate(cur.offset)

	emit := func(text string, kind doctree.ChunkType) {
		out = append(out, doctree.Chunk{
			DocID:    docID,
			ChunkID:  cur.nextID,
			Text:     text,
			Page:     page,
			Section:  section,
			Metadata: doctree.ChunkMetadata{ChunkType: kind},
		})
		cur.nextID++
	}

	switch b.Type {
	case doctree.ChunkTable:
		emit(b.Content, doctree.ChunkTable)
	default:
		for _, piece := range SplitText(b.Content, cfg.ChunkSize, cfg.ChunkOverlap) {
			if strings.TrimSpace(piece) != "" {
				emit(piece, doctree.ChunkText)
			}
		}
	}

	cur.offset += utf8.RuneCountInString(b.Content) + utf8.RuneCountInString(pageSep)
	return out, cur
}

// Stats summarizes a chunk sequence for logging.
type Stats struct {
	Text   int
	Table  int
	Pages  int
	MaxLen int
}

// Summarize counts chunks by type.
func Summarize(chunks []doctree.Chunk) Stats {
	var s Stats
	seen := make(map[int]bool)
	for _, c := range chunks {
		if c.Type() == doctree.ChunkTable {
			s.Table++
		} else {
			s.Text++
		}
		seen[c.Page] = true
		if n := utf8.RuneCountInString(c.Text); n > s.MaxLen {
			s.MaxLen = n
		}
	}
	s.Pages = len(seen)
	return s
}
