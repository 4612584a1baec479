// Package pipeline orchestrates a whole-document processing run: content
// extraction, per-page gateway calls, normalization and aggregation.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
	"github.com/wvf-labs/docparse/internal/extract"
)

// Processor runs one upload end to end. Pages are independent, so they are
// processed by a bounded worker pool; aggregation waits for the whole group
// and re-sorts by page_number, making the result identical to sequential
// processing.
type Processor struct {
	Extractor  extract.ContentExtractor
	Pages      *PageProcessor
	Aggregator *document.Aggregator
	Workers    int
	Logger     *slog.Logger

	// now is swappable for deterministic metadata in tests.
	now func() time.Time
}

func NewProcessor(ex extract.ContentExtractor, pages *PageProcessor, agg *document.Aggregator, workers int, logger *slog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Extractor:  ex,
		Pages:      pages,
		Aggregator: agg,
		Workers:    workers,
		Logger:     logger,
		now:        time.Now,
	}
}

// Process extracts every page of the PDF, processes pages concurrently with
// continue-on-error semantics, and aggregates the surviving records. It fails
// hard only when the PDF cannot be opened or when zero pages produced a
// record; a cancelled context aborts in-flight gateway calls.
func (p *Processor) Process(ctx context.Context, pdf []byte, filename string, mode document.AggregationMode) (document.DocumentRecord, error) {
	start := time.Now()

	contents, total, err := p.Extractor.Extract(ctx, pdf)
	if err != nil {
		return document.DocumentRecord{}, common.WrapError(err, "extract content")
	}

	// Results land in a slice indexed by position; page identity travels in
	// the record's page_number, so no ordering is assumed here.
	results := make([]*document.PageRecord, len(contents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, content := range contents {
		g.Go(func() error {
			rec, err := p.Pages.ProcessPage(gctx, content)
			if err != nil {
				// Page-level failures are localized: log, leave the gap, and
				// keep the rest of the document going. Cancellation is the
				// exception; it aborts the whole group.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.Logger.Warn("pipeline.page_failed", "page", content.PageIndex+1, "error", err)
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return document.DocumentRecord{}, err
	}

	records := make([]document.PageRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	if len(records) == 0 {
		return document.DocumentRecord{}, common.NewAppError("PROCESS_NO_PAGES", "no pages produced a record", common.ErrNoPages)
	}

	meta := document.Metadata{
		TotalPages:     total,
		ProcessingDate: p.now().Format("2006-01-02"),
		Filename:       filename,
	}
	doc, err := p.Aggregator.Aggregate(records, mode, meta)
	if err != nil {
		return document.DocumentRecord{}, err
	}

	p.Logger.Info("pipeline.process.ok",
		"filename", filename,
		"mode", string(mode),
		"total_pages", total,
		"records", len(records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}
