package tables

import (
	"strings"

	"github.com/dgallion1/dealgest/internal/doctree"
)

// Type is the coarse table class.
type Type string

const (
	TypeFinancialReport Type = "financial_report"
	TypeFundraising     Type = "fundraising"
	TypeOther           Type = "other"
)

// Decision threshold shared by both scores.
const minScore = 0.3

// sampleRows bounds how many data rows feed the table text signal.
const sampleRows = 5

// Classification is the result of scoring one table.
type Classification struct {
	Type           Type    `json:"type"`
	Confidence     float64 `json:"confidence"`
	Category       string  `json:"category"`
	SuggestedTitle string  `json:"suggested_title"`
}

// Scorer turns keyword hits and the first matching rule into a score in [0,1].
type Scorer struct {
	Keywords   []string
	PerKeyword float64
	Rules      []Rule
}

// Score returns the clamped score and the matched category ("unknown" when
// no rule fires). extra is added before clamping.
func (s Scorer) Score(text string, extra float64) (float64, string) {
	score := float64(countKeywords(text, s.Keywords)) * s.PerKeyword
	category := "unknown"
	for _, r := range s.Rules {
		if r.Match(text) {
			category = r.Category
			score += r.Bonus
			break
		}
	}
	score += extra
	return min(score, 1.0), category
}

var (
	financialScorer   = Scorer{Keywords: FinancialKeywords, PerKeyword: 0.15, Rules: FinancialRules}
	fundraisingScorer = Scorer{Keywords: FundraisingKeywords, PerKeyword: 0.2, Rules: FundraisingRules}
)

// Classify scores a table grid plus optional caption text against the
// financial-statement and fundraising rules. It is a pure function of its
// inputs.
func Classify(t doctree.Table, context string) Classification {
	combined := context + " " + tableText(t)

	var structural float64
	if !t.Empty() && containsAny(financialColumnMarkers...)(strings.Join(t.Header, " ")) {
		structural = 0.2
	}
	fin, finCategory := financialScorer.Score(combined, structural)
	fund, fundCategory := fundraisingScorer.Score(combined, 0)

	switch {
	case fin > fund && fin > minScore:
		return Classification{
			Type:           TypeFinancialReport,
			Confidence:     fin,
			Category:       finCategory,
			SuggestedTitle: financialTitle(combined, finCategory),
		}
	case fund > minScore:
		return Classification{
			Type:           TypeFundraising,
			Confidence:     fund,
			Category:       fundCategory,
			SuggestedTitle: fundraisingTitle(combined),
		}
	default:
		return Classification{Type: TypeOther, Confidence: 0, Category: "unknown"}
	}
}

// tableText joins the column names and the first few data rows.
func tableText(t doctree.Table) string {
	if t.Empty() {
		return ""
	}
	parts := append([]string(nil), t.Header...)
	for i := 0; i < len(t.Rows) && i < sampleRows; i++ {
		parts = append(parts, t.Rows[i]...)
	}
	return strings.Join(parts, " ")
}
