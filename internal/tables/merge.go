package tables

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// Merge modes.
const (
	MergeHeaderRepeat     = "header_repeat"
	MergeDataContinuation = "data_continuation"
)

// DefaultSimilarity is the first-row similarity needed for a repeated header.
const DefaultSimilarity = 0.7

var headerKeywords = []string{
	"名称", "编号", "序号", "项目", "内容", "金额", "数量", "单位", "日期",
	"类型", "说明", "备注", "合计", "小计", "比例", "占比", "年度", "期间",
	"Name", "No", "Item", "Amount", "Date", "Type", "Total", "Ratio",
}

// MergeGroup describes one run of tables joined across pages.
type MergeGroup struct {
	TableIDs []string `json:"table_ids"`
	Pages    []int    `json:"pages"`
	Mode     string   `json:"mode"`
}

// Similarity is the difflib ratio of two strings compared rune by rune.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(splitRunes(a), splitRunes(b))
	return m.Ratio()
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// LooksLikeHeader reports whether a row reads like column names: at least two
// header keywords. Rows without keywords are never treated as headers, even
// when they are mostly text.
func LooksLikeHeader(row []string) bool {
	joined := strings.Join(row, " ")
	hits := 0
	for _, kw := range headerKeywords {
		if strings.Contains(joined, kw) {
			hits++
		}
	}
	return hits >= 2
}

// shouldMerge decides whether next continues prev on the following page.
func shouldMerge(prev, next doctree.Table, threshold float64) (bool, string) {
	if next.Page-lastPage(prev) != 1 {
		return false, ""
	}
	if prev.NumCols() != next.NumCols() {
		return false, ""
	}
	pg, ng := grid(prev), grid(next)
	if len(pg) > 0 && len(ng) > 0 {
		a := strings.Join(pg[0], " ")
		b := strings.Join(ng[0], " ")
		if Similarity(a, b) >= threshold {
			return true, MergeHeaderRepeat
		}
	}
	if len(ng) > 0 && !LooksLikeHeader(ng[0]) {
		return true, MergeDataContinuation
	}
	return false, ""
}

// grid returns the table as raw rows, header first. A continuation table's
// "header" is usually a data row the extractor promoted.
func grid(t doctree.Table) [][]string {
	if len(t.Header) == 0 {
		return t.Rows
	}
	return append([][]string{t.Header}, t.Rows...)
}

func lastPage(t doctree.Table) int {
	if t.PageEnd > t.Page {
		return t.PageEnd
	}
	return t.Page
}

// MergeCrossPage joins tables that continue onto the next page. Consecutive
// tables merge when their pages are adjacent, their column counts match and
// either their first rows are similar (the header repeats) or the later
// table's first row is not a header. The group's mode is taken from its first
// join. Output is ordered by starting page.
func MergeCrossPage(tables []doctree.Table, threshold float64) ([]doctree.Table, []MergeGroup) {
	if len(tables) == 0 {
		return nil, nil
	}
	if threshold <= 0 {
		threshold = DefaultSimilarity
	}

	sorted := append([]doctree.Table(nil), tables...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Page < sorted[j].Page })

	var (
		out    []doctree.Table
		groups []MergeGroup
		run    = []doctree.Table{sorted[0]}
		mode   string
	)
	closeRun := func() {
		if len(run) == 1 {
			out = append(out, run[0])
		} else {
			merged, g := mergeRun(run, mode)
			out = append(out, merged)
			groups = append(groups, g)
		}
	}

	for i := 1; i < len(sorted); i++ {
		ok, m := shouldMerge(sorted[i-1], sorted[i], threshold)
		if ok {
			run = append(run, sorted[i])
			if mode == "" {
				mode = m
			}
			continue
		}
		closeRun()
		run = []doctree.Table{sorted[i]}
		mode = ""
	}
	closeRun()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out, groups
}

// mergeRun concatenates a run of tables. In header_repeat mode the first row
// of every later table is dropped; in data_continuation mode it is kept as data.
func mergeRun(run []doctree.Table, mode string) (doctree.Table, MergeGroup) {
	first := run[0]
	merged := doctree.Table{
		ID:        first.ID + "_merged",
		Page:      first.Page,
		PageEnd:   lastPage(run[len(run)-1]),
		Header:    append([]string(nil), first.Header...),
		MergeType: mode,
	}
	g := MergeGroup{Mode: mode}

	var accuracy float64
	for i, t := range run {
		rows := t.Rows
		if i > 0 {
			rows = grid(t)
			if mode == MergeHeaderRepeat && len(rows) > 0 {
				rows = rows[1:]
			}
		}
		for _, r := range rows {
			merged.Rows = append(merged.Rows, append([]string(nil), r...))
		}
		accuracy += t.Accuracy
		merged.MergedFrom = append(merged.MergedFrom, t.ID)
		g.TableIDs = append(g.TableIDs, t.ID)
		g.Pages = append(g.Pages, t.Page)
	}
	merged.Accuracy = accuracy / float64(len(run))
	return merged, g
}
