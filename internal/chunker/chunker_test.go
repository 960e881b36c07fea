package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/dgallion1/dealgest/internal/doctree"
)

func TestAssemble_TwoSectionsOnTwoPages(t *testing.T) {
	pages := []doctree.Page{
		{Number: 1, Text: "## 第一节 A\n内容A。"},
		{Number: 2, Text: "## 第二节 B\n内容B。"},
	}
	chunks := Assemble("doc", pages, Config{ChunkSize: 500, ChunkOverlap: 64})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Section != "第一节 A" {
		t.Errorf("expected section %q, got %q", "第一节 A", chunks[0].Section)
	}
	if chunks[1].Section != "第二节 B" {
		t.Errorf("expected section %q, got %q", "第二节 B", chunks[1].Section)
	}
	if chunks[0].Page != 1 || chunks[1].Page != 2 {
		t.Errorf("expected pages 1 and 2, got %d and %d", chunks[0].Page, chunks[1].Page)
	}
	for _, c := range chunks {
		if c.DocID != "doc" {
			t.Errorf("expected doc_id %q, got %q", "doc", c.DocID)
		}
		if c.Type() != doctree.ChunkText {
			t.Errorf("expected text chunk, got %q", c.Type())
		}
	}
}

func TestAssemble_PlainHeadingAtPageTop(t *testing.T) {
	// Headings without "#" as PDF text extraction produces them.
	pages := []doctree.Page{
		{Number: 1, Text: "第一节 交易概述\n内容A。"},
		{Number: 2, Text: "第二节 标的资产\n内容B。"},
	}
	chunks := Assemble("doc", pages, Config{ChunkSize: 500, ChunkOverlap: 64})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Section != "第二节 标的资产" {
		t.Fatalf("expected second section, got %q", chunks[1].Section)
	}
	if chunks[1].Page != 2 {
		t.Errorf("expected heading at top of page 2 to stay on page 2, got %d", chunks[1].Page)
	}
}

func TestAssemble_TableNeverSplit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("|列1|列2|\n|---|---|\n")
	for i := range 50 {
		sb.WriteString(fmt.Sprintf("|行%d|%d|\n", i, i*100))
	}
	pages := []doctree.Page{{Number: 1, Text: sb.String()}}

	chunks := Assemble("doc", pages, Config{ChunkSize: 100, ChunkOverlap: 10})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Type() != doctree.ChunkTable {
		t.Fatalf("expected table chunk, got %q", c.Type())
	}
	for i := range 50 {
		if !strings.Contains(c.Text, fmt.Sprintf("|行%d|", i)) {
			t.Fatalf("expected table chunk to contain row %d", i)
		}
	}
	if utf8.RuneCountInString(c.Text) <= 100 {
		t.Errorf("expected table chunk to exceed the budget, got %d runes", utf8.RuneCountInString(c.Text))
	}
}

func TestAssemble_EmptyPages(t *testing.T) {
	if chunks := Assemble("doc", nil, DefaultConfig()); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestAssemble_DefaultConfigFallback(t *testing.T) {
	para := strings.Repeat("交", 600)
	chunks := Assemble("doc", []doctree.Page{{Number: 1, Text: para}}, Config{})

	// 600 runes with size 512 and step 448: windows at 0 and 448.
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks with default config, got %d", len(chunks))
	}
	if n := utf8.RuneCountInString(chunks[0].Text); n != 512 {
		t.Errorf("expected first chunk of 512 runes, got %d", n)
	}
}

func TestAssemble_ZeroOverlapIsKept(t *testing.T) {
	para := strings.Repeat("交", 2000)
	chunks := Assemble("doc", []doctree.Page{{Number: 1, Text: para}}, Config{ChunkSize: 50})

	// No overlap: 2000 runes in disjoint windows of 50.
	if len(chunks) != 40 {
		t.Fatalf("expected 40 chunks with zero overlap, got %d", len(chunks))
	}
	for _, c := range chunks {
		if n := utf8.RuneCountInString(c.Text); n != 50 {
			t.Fatalf("chunk %d has %d runes, want 50", c.ChunkID, n)
		}
	}
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{"zero takes defaults", Config{}, Config{ChunkSize: 512, ChunkOverlap: 64}},
		{"explicit zero overlap", Config{ChunkSize: 50}, Config{ChunkSize: 50, ChunkOverlap: 0}},
		{"negative overlap defaulted", Config{ChunkSize: 200, ChunkOverlap: -1}, Config{ChunkSize: 200, ChunkOverlap: 64}},
		{"overlap clamped below size", Config{ChunkSize: 50, ChunkOverlap: 64}, Config{ChunkSize: 50, ChunkOverlap: 49}},
		{"negative overlap clamped too", Config{ChunkSize: 10, ChunkOverlap: -5}, Config{ChunkSize: 10, ChunkOverlap: 9}},
		{"size defaulted keeps overlap", Config{ChunkOverlap: 8}, Config{ChunkSize: 512, ChunkOverlap: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.normalize(); got != tt.want {
				t.Errorf("normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestAssemble_OverlapAtLeastSizeStillAdvances(t *testing.T) {
	para := strings.Repeat("交", 100)
	chunks := Assemble("doc", []doctree.Page{{Number: 1, Text: para}}, Config{ChunkSize: 50, ChunkOverlap: 80})

	// Overlap clamps to 49, so the window steps one rune at a time.
	if len(chunks) != 100 {
		t.Fatalf("expected 100 chunks, got %d", len(chunks))
	}
}

func TestAssemble_NoCrossSectionChunk(t *testing.T) {
	pages := []doctree.Page{
		{Number: 1, Text: "# 第一节 A\n内容A在这里。\n\n更多内容A。"},
		{Number: 1, Text: "# 第二节 B\n内容B在这里。"},
	}
	chunks := Assemble("doc", pages, Config{ChunkSize: 1000, ChunkOverlap: 10})
	for _, c := range chunks {
		if strings.Contains(c.Text, "内容A") && strings.Contains(c.Text, "内容B") {
			t.Fatalf("chunk %d spans two sections: %q", c.ChunkID, c.Text)
		}
	}
}

func TestAssemble_ChunkIDSequence(t *testing.T) {
	chunks := Assemble("doc", samplePages(), Config{ChunkSize: 40, ChunkOverlap: 8})
	if len(chunks) < 5 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkID != i {
			t.Fatalf("expected chunk_id %d, got %d", i, c.ChunkID)
		}
	}
}

func TestAssemble_PageMonotonic(t *testing.T) {
	chunks := Assemble("doc", samplePages(), Config{ChunkSize: 40, ChunkOverlap: 8})
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Page < chunks[i-1].Page {
			t.Fatalf("page regressed at chunk %d: %d after %d", i, chunks[i].Page, chunks[i-1].Page)
		}
	}
	if last := chunks[len(chunks)-1].Page; last != 3 {
		t.Errorf("expected last chunk on page 3, got %d", last)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	cfg := Config{ChunkSize: 40, ChunkOverlap: 8}
	a := Assemble("doc", samplePages(), cfg)
	b := Assemble("doc", samplePages(), cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("expected identical chunk sequences for identical input")
	}
}

func TestAssemble_TableChunksNotSubstrings(t *testing.T) {
	chunks := Assemble("doc", samplePages(), Config{ChunkSize: 20, ChunkOverlap: 5})
	var tables []string
	for _, c := range chunks {
		if c.Type() == doctree.ChunkTable {
			tables = append(tables, c.Text)
		}
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 table chunks, got %d", len(tables))
	}
	for i := range tables {
		for j := range tables {
			if i != j && strings.Contains(tables[j], tables[i]) {
				t.Errorf("table chunk %d is contained in table chunk %d", i, j)
			}
		}
	}
}

func TestAssemble_PreambleHasEmptySection(t *testing.T) {
	pages := []doctree.Page{{Number: 1, Text: "封面文字\n\n一、交易概述\n本次交易内容。"}}
	chunks := Assemble("doc", pages, DefaultConfig())
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Section != "" || chunks[0].Text != "封面文字" {
		t.Errorf("expected untitled preamble chunk, got section %q text %q", chunks[0].Section, chunks[0].Text)
	}
	if chunks[1].Section != "一、交易概述" {
		t.Errorf("expected section %q, got %q", "一、交易概述", chunks[1].Section)
	}
}

func TestSummarize(t *testing.T) {
	chunks := Assemble("doc", samplePages(), Config{ChunkSize: 40, ChunkOverlap: 8})
	s := Summarize(chunks)
	if s.Table != 2 {
		t.Errorf("expected 2 table chunks, got %d", s.Table)
	}
	if s.Text+s.Table != len(chunks) {
		t.Errorf("expected counts to add up to %d, got %d", len(chunks), s.Text+s.Table)
	}
	if s.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", s.Pages)
	}
}

// samplePages is a three-page document with headings, prose and two tables.
func samplePages() []doctree.Page {
	return []doctree.Page{
		{Number: 1, Text: "重大资产重组报告书\n\n# 第一节 交易概述\n本次交易由上市公司发行股份购买标的资产。\n\n交易完成后标的公司成为全资子公司。"},
		{Number: 2, Text: "|项目|金额|\n|---|---|\n|资产总计|100|\n|负债合计|40|\n\n## 第二节 标的资产\n标的公司主营业务为新能源电池材料的研发与生产销售。"},
		{Number: 3, Text: "一、募集资金用途\n募集资金将用于支付现金对价及中介费用。\n|用途|金额|\n|支付对价|50|"},
	}
}
