package parser

import (
	"reflect"
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"a.pdf", "*parser.PDFParser", false},
		{"a.PDF", "*parser.PDFParser", false},
		{"a.md", "*parser.MarkdownParser", false},
		{"a.txt", "*parser.TextParser", false},
		{"a.htm", "*parser.HTMLParser", false},
		{"a.docx", "*parser.DOCXParser", false},
		{"a.csv", "*parser.CSVParser", false},
		{"a.xlsx", "", true},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.filename)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.filename, err)
		}
		if got := reflect.TypeOf(p).String(); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.filename, tt.want, got)
		}
		if !IsSupportedExtension(tt.filename) {
			t.Errorf("%s: expected supported extension", tt.filename)
		}
	}
}

func TestForFileWithOptions(t *testing.T) {
	p, err := ForFileWith("deal.pdf", Options{PDFFallbackPdftotext: false, PDFTables: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pdf := p.(*PDFParser)
	if pdf.FallbackPdftotext || !pdf.Tables {
		t.Fatalf("expected options to be applied, got %+v", pdf)
	}
}

func TestTrimGrid(t *testing.T) {
	got := trimGrid([][]string{{" 项目 ", "金额"}, {"", "  "}, {"A", " 1"}})
	want := [][]string{{"项目", "金额"}, {"A", "1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGridMarkdown(t *testing.T) {
	got := gridMarkdown([][]string{{"项目", "金额"}, {"A", "1"}})
	want := "| 项目 | 金额 |\n| --- | --- |\n| A | 1 |"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestHTMLParser_HeadingsAndTables(t *testing.T) {
	input := `<html><head><title>交易报告</title></head><body>
<h2>第一节 交易概述</h2>
<p>本次交易内容。</p>
<table><tr><th>项目</th><th>金额</th></tr><tr><td>交易对价</td><td>100</td></tr></table>
<script>var x = 1;</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "report.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "交易报告" {
		t.Errorf("expected title from <title>, got %q", doc.Title)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	want := "## 第一节 交易概述\n\n本次交易内容。\n\n| 项目 | 金额 |\n| --- | --- |\n| 交易对价 | 100 |"
	if doc.Pages[0].Text != want {
		t.Errorf("expected page text %q, got %q", want, doc.Pages[0].Text)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}
	if !reflect.DeepEqual(doc.Tables[0].Header, []string{"项目", "金额"}) {
		t.Errorf("unexpected header %v", doc.Tables[0].Header)
	}
}

func TestCSVParser_SingleTable(t *testing.T) {
	input := "\ufeff项目,金额\n交易对价,\"1,000\"\n,\n"

	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "table.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}
	tbl := doc.Tables[0]
	if !reflect.DeepEqual(tbl.Header, []string{"项目", "金额"}) {
		t.Errorf("unexpected header %v", tbl.Header)
	}
	if !reflect.DeepEqual(tbl.Rows, [][]string{{"交易对价", "1,000"}}) {
		t.Errorf("unexpected rows %v", tbl.Rows)
	}
	if len(doc.Pages) != 1 || !strings.HasPrefix(doc.Pages[0].Text, "| 项目 | 金额 |") {
		t.Errorf("expected the table rendered as page 1, got %+v", doc.Pages)
	}
}

func TestCSVParser_Empty(t *testing.T) {
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tables) != 0 || len(doc.Pages) != 0 {
		t.Errorf("expected empty document, got %+v", doc)
	}
}

func TestPDFParser_TableFailureIsWarning(t *testing.T) {
	p := &PDFParser{Tables: true}
	doc := newDocument("600001_报告书.pdf")

	p.addTables("/nonexistent/600001_报告书.pdf", doc)

	if len(doc.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", doc.Warnings)
	}
	if !strings.HasPrefix(doc.Warnings[0], "table detection: ") {
		t.Errorf("unexpected warning %q", doc.Warnings[0])
	}
	if len(doc.Tables) != 0 {
		t.Errorf("expected no tables, got %d", len(doc.Tables))
	}
}
