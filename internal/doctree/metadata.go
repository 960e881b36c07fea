package doctree

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FileMetadata holds what can be recovered from a disclosure filename,
// e.g. "000035_中国天楹发行股份购买资产报告书.pdf".
type FileMetadata struct {
	StockCode   string `json:"stock_code"`
	CompanyName string `json:"company_name"`
}

var (
	stockCodeRe  = regexp.MustCompile(`\d{6}`)
	companyRunRe = regexp.MustCompile(`\d{6}[_\-]?([\p{Han}Ａ-Ｚａ-ｚ]+)`)
)

// Verbs that end the company name in report filenames.
var companyStopWords = []string{"发行", "向", "资产", "关于", "重大", "收购", "吸收", "合并", "出售"}

// DocIDFromFilename returns the filename without directory or extension.
func DocIDFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// MetadataFromFilename extracts the stock code and company short name.
func MetadataFromFilename(filename string) FileMetadata {
	stem := DocIDFromFilename(filename)
	var meta FileMetadata
	meta.StockCode = stockCodeRe.FindString(stem)

	m := companyRunRe.FindStringSubmatch(stem)
	if m == nil {
		return meta
	}
	run := []rune(m[1])

	// Shortest name that is directly followed by a stop word.
	for i := 1; i < len(run); i++ {
		rest := string(run[i:])
		for _, w := range companyStopWords {
			if strings.HasPrefix(rest, w) {
				meta.CompanyName = string(run[:i])
				return meta
			}
		}
	}

	// Fallback: the first 2-6 name runes.
	if len(run) < 2 {
		return meta
	}
	if len(run) > 6 {
		run = run[:6]
	}
	meta.CompanyName = string(run)
	return meta
}
