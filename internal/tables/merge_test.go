package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/dealgest/internal/doctree"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("项目 金额", "项目 金额"))
	assert.Equal(t, 0.0, Similarity("", "项目"))
	assert.Less(t, Similarity("项目 金额", "c 3"), DefaultSimilarity)
}

func TestLooksLikeHeader(t *testing.T) {
	assert.True(t, LooksLikeHeader([]string{"序号", "项目名称", "金额"}))
	assert.False(t, LooksLikeHeader([]string{"金额"}))
	assert.False(t, LooksLikeHeader([]string{"研发中心建设", "1,000"}))
}

func TestMergeCrossPage_HeaderRepeat(t *testing.T) {
	in := []doctree.Table{
		{ID: "t1", Page: 1, Header: []string{"项目", "金额"}, Rows: [][]string{{"a", "1"}}, Accuracy: 90},
		{ID: "t2", Page: 2, Header: []string{"项目", "金额"}, Rows: [][]string{{"b", "2"}}, Accuracy: 80},
	}

	out, groups := MergeCrossPage(in, 0)

	require.Len(t, out, 1)
	m := out[0]
	assert.Equal(t, "t1_merged", m.ID)
	assert.Equal(t, 1, m.Page)
	assert.Equal(t, 2, m.PageEnd)
	assert.Equal(t, []string{"项目", "金额"}, m.Header)
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}}, m.Rows)
	assert.Equal(t, []string{"t1", "t2"}, m.MergedFrom)
	assert.Equal(t, MergeHeaderRepeat, m.MergeType)
	assert.InDelta(t, 85.0, m.Accuracy, 1e-9)
	assert.Equal(t, "1-2", m.PageRange())

	require.Len(t, groups, 1)
	assert.Equal(t, MergeGroup{TableIDs: []string{"t1", "t2"}, Pages: []int{1, 2}, Mode: MergeHeaderRepeat}, groups[0])
}

func TestMergeCrossPage_DataContinuation(t *testing.T) {
	in := []doctree.Table{
		{ID: "t1", Page: 4, Header: []string{"项目", "金额"}, Rows: [][]string{{"a", "1"}}},
		{ID: "t2", Page: 5, Header: []string{"c", "3"}, Rows: [][]string{{"d", "4"}}},
	}

	out, groups := MergeCrossPage(in, DefaultSimilarity)

	require.Len(t, out, 1)
	assert.Equal(t, MergeDataContinuation, out[0].MergeType)
	assert.Equal(t, [][]string{{"a", "1"}, {"c", "3"}, {"d", "4"}}, out[0].Rows)
	require.Len(t, groups, 1)
	assert.Equal(t, MergeDataContinuation, groups[0].Mode)
}

func TestMergeCrossPage_NoMerge(t *testing.T) {
	base := doctree.Table{ID: "t1", Page: 1, Header: []string{"项目", "金额"}, Rows: [][]string{{"a", "1"}}}

	tests := []struct {
		name string
		next doctree.Table
	}{
		{"page gap", doctree.Table{ID: "t2", Page: 3, Header: []string{"项目", "金额"}, Rows: [][]string{{"b", "2"}}}},
		{"column mismatch", doctree.Table{ID: "t2", Page: 2, Header: []string{"项目", "金额", "比例"}, Rows: [][]string{{"b", "2", "3"}}}},
		{"new header", doctree.Table{ID: "t2", Page: 2, Header: []string{"序号", "日期"}, Rows: [][]string{{"1", "2024"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, groups := MergeCrossPage([]doctree.Table{base, tt.next}, 0)
			assert.Len(t, out, 2)
			assert.Empty(t, groups)
		})
	}
}

func TestMergeCrossPage_SortsByPage(t *testing.T) {
	in := []doctree.Table{
		{ID: "late", Page: 9, Header: []string{"x"}, Rows: [][]string{{"1"}}},
		{ID: "early", Page: 2, Header: []string{"y", "z"}, Rows: [][]string{{"1", "2"}}},
	}

	out, _ := MergeCrossPage(in, 0)

	require.Len(t, out, 2)
	assert.Equal(t, "early", out[0].ID)
	assert.Equal(t, "late", out[1].ID)
	// Input is not reordered.
	assert.Equal(t, "late", in[0].ID)
}

func TestMergeCrossPage_ThreePageRun(t *testing.T) {
	hdr := []string{"项目", "金额"}
	in := []doctree.Table{
		{ID: "t1", Page: 1, Header: hdr, Rows: [][]string{{"a", "1"}}},
		{ID: "t2", Page: 2, Header: hdr, Rows: [][]string{{"b", "2"}}},
		{ID: "t3", Page: 3, Header: hdr, Rows: [][]string{{"c", "3"}}},
		{ID: "t4", Page: 7, Header: hdr, Rows: [][]string{{"d", "4"}}},
	}

	out, groups := MergeCrossPage(in, 0)

	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].PageEnd)
	assert.Len(t, out[0].Rows, 3)
	assert.Equal(t, "t4", out[1].ID)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{1, 2, 3}, groups[0].Pages)
}

func TestMergeCrossPage_Empty(t *testing.T) {
	out, groups := MergeCrossPage(nil, 0)
	assert.Nil(t, out)
	assert.Nil(t, groups)
}
