package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Heading patterns in priority order. Whitespace classes include Unicode
// space separators so ideographic spaces in OCR output still match.
var sectionPatterns = []*regexp.Regexp{
	// "# 第一节 交易概述", "第三章 标的资产"
	regexp.MustCompile(`(?m)^#{0,3}[\s\p{Zs}]*第[一二三四五六七八九十百\p{Nd}]+[节章][\s\p{Zs}]+.+`),
	// "一、交易概述"
	regexp.MustCompile(`(?m)^#{0,3}[\s\p{Zs}]*[一二三四五六七八九十]+[、．.][\s\p{Zs}]*.+`),
	// "## 重大事项提示"
	regexp.MustCompile(`(?m)^#{1,3}[\s\p{Zs}]+.{2,30}[\s\p{Zs}]*$`),
}

const (
	minTitleLen = 2
	maxTitleLen = 50

	// Headings closer than this (in runes) are treated as one detection.
	headingProximity = 5
)

// Heading is a detected section title and its rune offset in the full text.
type Heading struct {
	Pos   int
	Title string
}

// Section is a contiguous span of the document under one heading.
// Start is a rune offset into the full text.
type Section struct {
	Title string
	Text  string
	Start int
}

// DetectSections finds section headings in text, ordered by position, with
// near-duplicate detections removed.
func DetectSections(text string) []Heading {
	type hit struct {
		bytePos int
		title   string
	}
	var hits []hit
	for _, re := range sectionPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			title := cleanTitle(match)
			n := utf8.RuneCountInString(title)
			if n < minTitleLen || n > maxTitleLen {
				continue
			}
			// The leading whitespace class can swallow blank lines above the
			// heading, which may belong to the previous page. Anchor at the
			// heading's first visible character instead.
			lead := len(match) - len(strings.TrimLeftFunc(match, unicode.IsSpace))
			hits = append(hits, hit{bytePos: loc[0] + lead, title: title})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].bytePos != hits[j].bytePos {
			return hits[i].bytePos < hits[j].bytePos
		}
		return hits[i].title < hits[j].title
	})

	// Convert byte offsets to rune offsets in one forward pass.
	var headings []Heading
	runePos, lastByte := 0, 0
	for _, h := range hits {
		runePos += utf8.RuneCountInString(text[lastByte:h.bytePos])
		lastByte = h.bytePos
		if len(headings) > 0 && runePos-headings[len(headings)-1].Pos < headingProximity {
			continue
		}
		headings = append(headings, Heading{Pos: runePos, Title: h.title})
	}
	return headings
}

func cleanTitle(match string) string {
	t := strings.TrimSpace(match)
	t = strings.TrimLeft(t, "#")
	return strings.TrimSpace(t)
}

// SplitSections partitions text at the given headings. Text before the first
// heading becomes an untitled preamble; empty spans are dropped.
func SplitSections(text string, headings []Heading) []Section {
	if len(headings) == 0 {
		return []Section{{Title: "", Text: text, Start: 0}}
	}

	runes := []rune(text)
	var sections []Section

	if first := headings[0].Pos; first > 0 {
		if pre := strings.TrimSpace(string(runes[:first])); pre != "" {
			sections = append(sections, Section{Title: "", Text: pre, Start: 0})
		}
	}

	for i, h := range headings {
		end := len(runes)
		if i+1 < len(headings) {
			end = headings[i+1].Pos
		}
		body := strings.TrimSpace(string(runes[h.Pos:end]))
		if body == "" {
			continue
		}
		sections = append(sections, Section{Title: h.Title, Text: body, Start: h.Pos})
	}
	return sections
}
