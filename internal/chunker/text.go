package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var paragraphBreakRe = regexp.MustCompile(`\n[\s\p{Zs}]*\n`)

// paragraphSep joins merged paragraphs; its length counts against the budget.
const paragraphSep = "\n\n"

// SplitText cuts a prose block into pieces of at most size runes. Paragraphs
// are merged greedily; a paragraph longer than size is cut with a sliding
// window advancing by size-overlap. Every returned piece is non-empty after
// trimming.
func SplitText(text string, size, overlap int) []string {
	if utf8.RuneCountInString(text) <= size {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var pieces []string
	var cur string
	curLen := 0
	sepLen := utf8.RuneCountInString(paragraphSep)

	for _, para := range paragraphBreakRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if curLen+paraLen+sepLen <= size {
			if cur == "" {
				cur = para
				curLen = paraLen
			} else {
				cur += paragraphSep + para
				curLen += sepLen + paraLen
			}
			continue
		}

		if cur != "" {
			pieces = append(pieces, strings.TrimSpace(cur))
		}
		if paraLen <= size {
			cur, curLen = para, paraLen
			continue
		}
		pieces = append(pieces, slidingWindow(para, size, overlap)...)
		cur, curLen = "", 0
	}

	if strings.TrimSpace(cur) != "" {
		pieces = append(pieces, strings.TrimSpace(cur))
	}
	return pieces
}

// slidingWindow slices s into windows of size runes stepping by size-overlap.
func slidingWindow(s string, size, overlap int) []string {
	step := size - overlap
	if step < 1 {
		step = 1
	}
	runes := []rune(s)
	var out []string
	for pos := 0; pos < len(runes); pos += step {
		end := min(pos+size, len(runes))
		if piece := strings.TrimSpace(string(runes[pos:end])); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}
