package extract

import "time"

// Status is the outcome of one field or of a whole record.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusPartial Status = "partial"
)

// FieldResult is the outcome of extracting one field for one document.
type FieldResult struct {
	Field   string            `json:"field"`
	DocID   string            `json:"doc_id"`
	Status  Status            `json:"status"`
	Data    map[string]string `json:"data,omitempty"`
	Raw     string            `json:"raw_response"`
	Sources []string          `json:"source_chunks"`
	Error   string            `json:"error,omitempty"`

	// Quote keys whose text was not found in the retrieved context.
	Unverified []string `json:"unverified_quotes,omitempty"`
}

// DealSummary describes the transaction itself. Each *_quote field holds
// verbatim source text backing the field before it.
type DealSummary struct {
	Acquirer                   string `json:"acquirer"`
	AcquirerQuote              string `json:"acquirer_quote"`
	Target                     string `json:"target"`
	TargetQuote                string `json:"target_quote"`
	DealType                   string `json:"deal_type"`
	DealAmount                 string `json:"deal_amount"`
	DealAmountQuote            string `json:"deal_amount_quote"`
	SharePrice                 string `json:"share_price"`
	PaymentMethod              string `json:"payment_method"`
	TargetValuation            string `json:"target_valuation"`
	TargetValuationQuote       string `json:"target_valuation_quote"`
	ValuationMethod            string `json:"valuation_method"`
	PerformanceCommitment      string `json:"performance_commitment"`
	PerformanceCommitmentQuote string `json:"performance_commitment_quote"`
}

// AcquisitionPurpose describes why the deal is being done.
type AcquisitionPurpose struct {
	StrategicPurpose      string `json:"strategic_purpose"`
	StrategicPurposeQuote string `json:"strategic_purpose_quote"`
	Synergy               string `json:"synergy"`
	SynergyQuote          string `json:"synergy_quote"`
	IndustryLogic         string `json:"industry_logic"`
	IndustryLogicQuote    string `json:"industry_logic_quote"`
	Summary               string `json:"summary"`
}

// FactRecord is the full extraction result for one document.
type FactRecord struct {
	DocID              string              `json:"doc_id"`
	CompanyName        string              `json:"company_name"`
	StockCode          string              `json:"stock_code"`
	DealSummary        DealSummary         `json:"deal_summary"`
	AcquisitionPurpose AcquisitionPurpose  `json:"acquisition_purpose"`
	Status             Status              `json:"status"`
	RawResponses       map[string]string   `json:"raw_responses"`
	Sources            map[string][]string `json:"sources,omitempty"`
	Errors             map[string]string   `json:"errors,omitempty"`
	UnverifiedQuotes   []string            `json:"unverified_quotes,omitempty"`
	ExtractedAt        time.Time           `json:"extracted_at"`
}

// Processed reports whether a resumed batch run may skip this document.
func (r *FactRecord) Processed() bool {
	return r.Status == StatusSuccess || r.Status == StatusPartial
}
