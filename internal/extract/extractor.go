package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/dealgest/internal/doctree"
	"github.com/dgallion1/dealgest/internal/index"
)

// Retriever finds the chunks of one document most relevant to a query.
type Retriever interface {
	Search(ctx context.Context, query, docID string, topK int) ([]index.Hit, error)
}

// ChatClient returns a decoded JSON object and the raw reply text.
type ChatClient interface {
	ChatJSON(ctx context.Context, system, user string) (map[string]any, string, error)
}

// Extractor runs retrieval-augmented extraction for each field.
type Extractor struct {
	search    Retriever
	llm       ChatClient
	validator *Validator
	fields    []Field
	topK      int
	log       *slog.Logger
}

func NewExtractor(search Retriever, llm ChatClient, topK int, log *slog.Logger) (*Extractor, error) {
	v, err := NewValidator(Fields)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 8
	}
	return &Extractor{
		search:    search,
		llm:       llm,
		validator: v,
		fields:    Fields,
		topK:      topK,
		log:       log,
	}, nil
}

// ExtractField retrieves context for one field, asks the model and validates
// the reply. Failures are reported in the result, never returned as errors.
func (e *Extractor) ExtractField(ctx context.Context, docID string, f Field) FieldResult {
	log := e.log.With("doc_id", docID, "field", f.Name)
	res := FieldResult{Field: f.Name, DocID: docID, Status: StatusFailed}

	hits, err := e.search.Search(ctx, f.Query, docID, e.topK)
	if err != nil {
		log.Warn("retrieval failed", "error", err)
		res.Error = fmt.Sprintf("search: %s", err)
		return res
	}
	if len(hits) == 0 {
		log.Warn("no chunks retrieved")
		res.Error = "no chunks retrieved"
		return res
	}

	chunks := make([]doctree.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	passages := BuildContext(chunks)
	res.Sources = SourceIDs(chunks)

	log.Info("calling llm", "chunks", len(chunks))
	obj, raw, err := e.llm.ChatJSON(ctx, f.System, f.User(passages))
	res.Raw = raw
	if err != nil {
		log.Error("llm call failed", "error", err)
		res.Error = fmt.Sprintf("llm call failed: %s", err)
		return res
	}

	data, err := e.validator.Validate(f.Name, obj)
	if err != nil {
		log.Warn("validation failed", "error", err)
		res.Error = fmt.Sprintf("validation: %s", err)
		return res
	}

	res.Status = StatusSuccess
	res.Data = data
	res.Unverified = VerifyQuotes(f, data, passages)
	if len(res.Unverified) > 0 {
		log.Warn("quotes not found in context", "keys", res.Unverified)
	}
	log.Info("field extracted")
	return res
}

// ExtractFacts extracts every field for a document. The record is partial when
// any field failed and failed when no field produced a raw reply.
func (e *Extractor) ExtractFacts(ctx context.Context, docID string, meta doctree.FileMetadata) *FactRecord {
	log := e.log.With("doc_id", docID)
	log.Info("extracting facts")

	rec := &FactRecord{
		DocID:        docID,
		CompanyName:  meta.CompanyName,
		StockCode:    meta.StockCode,
		Status:       StatusSuccess,
		RawResponses: make(map[string]string, len(e.fields)),
		Sources:      make(map[string][]string, len(e.fields)),
		ExtractedAt:  time.Now().UTC(),
	}

	anyRaw := false
	for _, f := range e.fields {
		res := e.ExtractField(ctx, docID, f)
		rec.RawResponses[f.Name] = res.Raw
		if res.Raw != "" {
			anyRaw = true
		}
		if len(res.Sources) > 0 {
			rec.Sources[f.Name] = res.Sources
		}

		if res.Status == StatusFailed {
			rec.Status = StatusPartial
			if rec.Errors == nil {
				rec.Errors = make(map[string]string)
			}
			rec.Errors[f.Name] = res.Error
			continue
		}

		rec.apply(f.Name, res.Data)
		for _, k := range res.Unverified {
			rec.UnverifiedQuotes = append(rec.UnverifiedQuotes, f.Name+"."+k)
		}
	}

	if !anyRaw {
		rec.Status = StatusFailed
	}
	log.Info("fact extraction finished", "status", rec.Status, "unverified_quotes", len(rec.UnverifiedQuotes))
	return rec
}

// apply copies validated field data onto the typed record.
func (r *FactRecord) apply(field string, d map[string]string) {
	switch field {
	case DealSummaryField.Name:
		r.DealSummary = DealSummary{
			Acquirer:                   d["acquirer"],
			AcquirerQuote:              d["acquirer_quote"],
			Target:                     d["target"],
			TargetQuote:                d["target_quote"],
			DealType:                   d["deal_type"],
			DealAmount:                 d["deal_amount"],
			DealAmountQuote:            d["deal_amount_quote"],
			SharePrice:                 d["share_price"],
			PaymentMethod:              d["payment_method"],
			TargetValuation:            d["target_valuation"],
			TargetValuationQuote:       d["target_valuation_quote"],
			ValuationMethod:            d["valuation_method"],
			PerformanceCommitment:      d["performance_commitment"],
			PerformanceCommitmentQuote: d["performance_commitment_quote"],
		}
	case AcquisitionPurposeField.Name:
		r.AcquisitionPurpose = AcquisitionPurpose{
			StrategicPurpose:      d["strategic_purpose"],
			StrategicPurposeQuote: d["strategic_purpose_quote"],
			Synergy:               d["synergy"],
			SynergyQuote:          d["synergy_quote"],
			IndustryLogic:         d["industry_logic"],
			IndustryLogicQuote:    d["industry_logic_quote"],
			Summary:               d["summary"],
		}
	}
}
