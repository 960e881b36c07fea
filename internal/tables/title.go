package tables

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/dealgest/internal/doctree"
)

const (
	fundraisingAnchor   = "募集资金"
	defaultFundraising  = "募集资金相关"
	minFinancialTitle   = 5
	minFundraisingTitle = 3
	maxTitleCandidate   = 40
	minTitleCandidate   = 5
)

// Title patterns per canonical statement name, qualified variant first.
var financialTitlePatterns = func() map[string][]*regexp.Regexp {
	m := make(map[string][]*regexp.Regexp)
	names := []string{defaultFinancialName}
	for _, n := range categoryNames {
		names = append(names, n)
	}
	for _, n := range names {
		q := regexp.QuoteMeta(n)
		m[n] = []*regexp.Regexp{
			regexp.MustCompile(`(合并|母公司)?[^，。\n]{0,20}` + q + `[^，。\n]{0,30}`),
			regexp.MustCompile(`[^，。\n]{0,20}` + q + `[^，。\n]{0,30}`),
		}
	}
	return m
}()

var fundraisingTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`募集资金[^，。\n]{0,30}`),
	regexp.MustCompile(`[^，。\n]{0,20}募集资金[^，。\n]{0,20}`),
}

var numericLineRe = regexp.MustCompile(`^[\p{Nd}\s.,%\-]+$`)

// financialTitle finds a company- or period-qualified phrase around the
// category's canonical name, falling back to the name itself.
func financialTitle(text, category string) string {
	base, ok := categoryNames[category]
	if !ok {
		base = defaultFinancialName
	}
	if t := firstTitle(text, financialTitlePatterns[base], minFinancialTitle); t != "" {
		return t
	}
	return base
}

// fundraisingTitle finds a phrase around "募集资金".
func fundraisingTitle(text string) string {
	if t := firstTitle(text, fundraisingTitlePatterns, minFundraisingTitle); t != "" {
		return t
	}
	return defaultFundraising
}

// firstTitle returns the first pattern match, with whitespace removed, that is
// longer than minLen runes.
func firstTitle(text string, patterns []*regexp.Regexp, minLen int) string {
	for _, re := range patterns {
		m := re.FindString(text)
		if m == "" {
			continue
		}
		title := strings.Join(strings.Fields(m), "")
		if utf8.RuneCountInString(title) > minLen {
			return title
		}
	}
	return ""
}

// ContextTitle looks for a caption in the prose of the table's page and the
// page before it: the last short line that mentions a domain keyword and is
// not purely numeric. tableIndex is accepted for callers that track several
// tables per page but does not affect the result.
func ContextTitle(chunks []doctree.Chunk, page, tableIndex int) (string, bool) {
	var texts []string
	for _, c := range chunks {
		if c.Type() == doctree.ChunkTable {
			continue
		}
		if c.Page == page-1 || c.Page == page {
			texts = append(texts, c.Text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}

	var title string
	found := false
	for _, line := range strings.Split(strings.Join(texts, "\n"), "\n") {
		line = strings.TrimSpace(line)
		n := utf8.RuneCountInString(line)
		if n < minTitleCandidate || n > maxTitleCandidate {
			continue
		}
		if !hasKeyword(line) || numericLineRe.MatchString(line) {
			continue
		}
		title, found = line, true
	}
	return title, found
}
