package chunker

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// WriteJSONL writes one JSON object per chunk, one per line.
func WriteJSONL(w io.Writer, chunks []doctree.Chunk) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode chunk %d: %w", c.ChunkID, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL reads chunks written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]doctree.Chunk, error) {
	dec := json.NewDecoder(r)
	var chunks []doctree.Chunk
	for dec.More() {
		var c doctree.Chunk
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
