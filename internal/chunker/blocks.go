package chunker

import (
	"strings"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// Block is a maximal run of same-kind lines within a section.
type Block struct {
	Type    doctree.ChunkType
	Content string
}

// isTableLine reports whether a line is a markdown table row.
func isTableLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// SeparateBlocks groups a section's lines into alternating text and table
// blocks, preserving order. Blocks that are empty after trimming are dropped.
func SeparateBlocks(sectionText string) []Block {
	var blocks []Block
	kind := doctree.ChunkText
	var pending []string

	flush := func() {
		if len(pending) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(pending, "\n"))
		if content != "" {
			blocks = append(blocks, Block{Type: kind, Content: content})
		}
		pending = pending[:0]
	}

	for _, line := range strings.Split(sectionText, "\n") {
		lineKind := doctree.ChunkText
		if isTableLine(line) {
			lineKind = doctree.ChunkTable
		}
		if lineKind != kind {
			flush()
			kind = lineKind
		}
		pending = append(pending, line)
	}
	flush()

	return blocks
}
