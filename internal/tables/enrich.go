package tables

import (
	"fmt"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// EnrichedTable is a table grid with its classification and resolved title.
type EnrichedTable struct {
	doctree.Table
	Title          string         `json:"title"`
	Classification Classification `json:"classification"`
	ContextTitle   string         `json:"context_title,omitempty"`
}

// Enrich classifies and titles every table. The title is the recovered
// caption if any, else the classifier's suggestion, else "表格_N".
func Enrich(tables []doctree.Table, chunks []doctree.Chunk) []EnrichedTable {
	out := make([]EnrichedTable, 0, len(tables))
	for i, t := range tables {
		caption, _ := ContextTitle(chunks, t.Page, i)
		cls := Classify(t, caption)

		title := caption
		if title == "" {
			title = cls.SuggestedTitle
		}
		if title == "" {
			title = fmt.Sprintf("表格_%d", i+1)
		}

		out = append(out, EnrichedTable{
			Table:          t,
			Title:          title,
			Classification: cls,
			ContextTitle:   caption,
		})
	}
	return out
}

// CountByType tallies classifications for logging.
func CountByType(tables []EnrichedTable) map[Type]int {
	counts := make(map[Type]int)
	for _, t := range tables {
		counts[t.Classification.Type]++
	}
	return counts
}
