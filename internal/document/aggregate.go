package document

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/wvf-labs/docparse/internal/common"
)

// AggregationMode selects the shape of the combined DocumentRecord.
type AggregationMode string

const (
	// ModePreservePages keeps every page record intact under "pages".
	ModePreservePages AggregationMode = "preserve-pages"
	// ModeFlatten collapses all pages into one logical document.
	ModeFlatten AggregationMode = "flatten"
)

// ParseMode converts a user-supplied mode string.
func ParseMode(s string) (AggregationMode, error) {
	switch AggregationMode(s) {
	case ModePreservePages, ModeFlatten:
		return AggregationMode(s), nil
	case "":
		return ModePreservePages, nil
	}
	return "", common.NewAppError("AGGREGATE_MODE", fmt.Sprintf("unknown aggregation mode %q", s), common.ErrInvalidInput)
}

// Aggregator merges an ordered sequence of page records into one combined
// document record. The merge is deterministic: the same input sequence always
// yields the same output.
type Aggregator struct {
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger}
}

// Aggregate combines records according to mode. Records may arrive out of
// page order (concurrent page processing) and may have gaps in page numbering
// (skipped pages); they are re-sorted by page_number first.
//
// The caller supplies Metadata with ProcessingDate and Filename filled in;
// TotalPages defaults to the input length when zero, and ProcessedPages is
// always recomputed as the count of records with document-level structure.
func (a *Aggregator) Aggregate(records []PageRecord, mode AggregationMode, meta Metadata) (DocumentRecord, error) {
	sorted := make([]PageRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PageNumber < sorted[j].PageNumber
	})

	if meta.TotalPages == 0 {
		meta.TotalPages = len(sorted)
	}
	meta.ProcessedPages = 0
	for _, r := range sorted {
		if r.Processed() {
			meta.ProcessedPages++
		}
	}

	switch mode {
	case ModePreservePages:
		a.logger.Info("aggregate.preserve_pages",
			"pages", len(sorted),
			"processed_pages", meta.ProcessedPages,
		)
		return DocumentRecord{Pages: sorted, Metadata: meta}, nil

	case ModeFlatten:
		return a.flatten(sorted, meta), nil
	}
	return DocumentRecord{}, common.NewAppError("AGGREGATE_MODE", fmt.Sprintf("unknown aggregation mode %q", mode), common.ErrInvalidInput)
}

// flatten takes document-level fields from the FIRST page only and
// concatenates line items from every page in page order, without
// deduplication. The first page is assumed to carry the document header
// (number, vendor, totals) while later pages carry continuation line items;
// later pages' document-level fields are discarded.
func (a *Aggregator) flatten(sorted []PageRecord, meta Metadata) DocumentRecord {
	out := DocumentRecord{Metadata: meta}
	if len(sorted) == 0 {
		out.Items = []LineItem{}
		return out
	}

	first := sorted[0]
	out.DocumentType = first.DocumentType
	if len(first.KeyFields) > 0 {
		out.KeyFields = make(Fields, len(first.KeyFields))
		for k, v := range first.KeyFields {
			out.KeyFields[k] = v
		}
	}

	out.Items = []LineItem{}
	for _, r := range sorted {
		out.Items = append(out.Items, r.LineItems()...)
	}

	a.logger.Info("aggregate.flatten",
		"pages", len(sorted),
		"items", len(out.Items),
		"document_type", out.DocumentType,
	)
	return out
}
