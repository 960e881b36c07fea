package parser

import (
	"strings"
	"testing"
)

func TestTextParser_FormFeedPages(t *testing.T) {
	input := "第一页。\f第二页。\f\f  \f第五页。"
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(doc.Pages))
	}

	wantNumbers := []int{1, 2, 5}
	wantText := []string{"第一页。", "第二页。", "第五页。"}
	for i := range wantNumbers {
		if doc.Pages[i].Number != wantNumbers[i] {
			t.Errorf("page[%d]: expected number %d, got %d", i, wantNumbers[i], doc.Pages[i].Number)
		}
		if doc.Pages[i].Text != wantText[i] {
			t.Errorf("page[%d]: expected %q, got %q", i, wantText[i], doc.Pages[i].Text)
		}
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", doc.Title)
	}
	if len(doc.Pages) != 0 {
		t.Errorf("expected 0 pages for empty input, got %d", len(doc.Pages))
	}
}

func TestTextParser_NormalizesLineEndings(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader("第一行\r\n第二行\r\n"), "crlf.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(doc.Pages))
	}
	if doc.Pages[0].Text != "第一行\n第二行" {
		t.Errorf("expected normalized text, got %q", doc.Pages[0].Text)
	}
}
