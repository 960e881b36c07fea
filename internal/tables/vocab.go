package tables

import "strings"

// FinancialKeywords are financial-statement terms; each hit adds to the
// financial score.
var FinancialKeywords = []string{
	"资产负债表", "利润表", "现金流量表", "所有者权益",
	"合并资产", "母公司资产", "财务状况", "经营成果",
	"资产总额", "负债总额", "营业收入", "净利润",
	"现金及现金等价物", "应收账款", "存货",
}

// FundraisingKeywords are raised-funds terms; each hit adds to the
// fundraising score.
var FundraisingKeywords = []string{
	"募集资金", "资金用途", "募资", "投向", "募投项目",
	"募集配套资金", "发行股份", "认购", "配套融资",
	"资金使用", "资金投向", "募集说明",
}

// financialColumnMarkers are column names typical of statement tables.
var financialColumnMarkers = []string{"项目", "金额", "本期", "上期", "年初", "年末"}

// Rule awards Bonus and names Category when Match accepts the combined text.
// Rules are evaluated in order and the first match wins.
type Rule struct {
	Category string
	Bonus    float64
	Match    func(text string) bool
}

// FinancialRules identify the statement kind.
var FinancialRules = []Rule{
	{Category: "balance_sheet", Bonus: 0.4, Match: containsAny("资产负债表", "资产总计")},
	{Category: "income_statement", Bonus: 0.4, Match: containsAny("利润表", "营业收入", "净利润")},
	{Category: "cash_flow_statement", Bonus: 0.4, Match: containsAny("现金流量表", "现金及现金等价物")},
	{Category: "equity_statement", Bonus: 0.3, Match: containsAny("所有者权益")},
}

// FundraisingRules identify the fundraising table kind.
var FundraisingRules = []Rule{
	{Category: "usage", Bonus: 0.4, Match: containsAll("募集资金", "使用")},
	{Category: "source", Bonus: 0.4, Match: func(s string) bool {
		return strings.Contains(s, "募集资金") && containsAny("来源", "认购")(s)
	}},
	{Category: "issuance", Bonus: 0.3, Match: containsAny("配套融资", "发行股份")},
}

// categoryNames are the canonical statement names used for titles.
var categoryNames = map[string]string{
	"balance_sheet":       "资产负债表",
	"income_statement":    "利润表",
	"cash_flow_statement": "现金流量表",
	"equity_statement":    "所有者权益变动表",
}

const defaultFinancialName = "财务报表"

func containsAny(words ...string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}
}

func containsAll(words ...string) func(string) bool {
	return func(s string) bool {
		for _, w := range words {
			if !strings.Contains(s, w) {
				return false
			}
		}
		return true
	}
}

// countKeywords returns how many distinct vocabulary entries occur in text.
func countKeywords(text string, vocab []string) int {
	n := 0
	for _, kw := range vocab {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// hasKeyword reports whether text contains any entry of either vocabulary.
func hasKeyword(text string) bool {
	return countKeywords(text, FinancialKeywords) > 0 || countKeywords(text, FundraisingKeywords) > 0
}
