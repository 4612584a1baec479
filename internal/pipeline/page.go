package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wvf-labs/docparse/internal/document"
	"github.com/wvf-labs/docparse/internal/extract"
	"github.com/wvf-labs/docparse/internal/gateway"
	"github.com/wvf-labs/docparse/internal/normalize"
	"github.com/wvf-labs/docparse/internal/prompt"
)

// PageProcessor turns one page's raw content into a page record: it selects
// the text or vision prompt, makes a single gateway round-trip (no retries),
// and normalizes the raw reply.
type PageProcessor struct {
	Gateway    gateway.Gateway
	Normalizer *normalize.Normalizer
	Logger     *slog.Logger
}

func NewPageProcessor(gw gateway.Gateway, n *normalize.Normalizer, logger *slog.Logger) *PageProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageProcessor{Gateway: gw, Normalizer: n, Logger: logger}
}

// ProcessPage produces the record for one page. A gateway failure propagates
// as a page-level failure; normalization failures other than an empty reply
// degrade into a raw_output record instead of erroring. The record's
// page_number is always set from the content's index, 1-based, regardless of
// normalization outcome.
func (p *PageProcessor) ProcessPage(ctx context.Context, content extract.RawPageContent) (document.PageRecord, error) {
	start := time.Now()

	var req gateway.ChatRequest
	switch content.Kind {
	case extract.KindText:
		req = gateway.ChatRequest{
			System: prompt.TextSystem,
			User:   gateway.UserContent{Text: prompt.BuildText(content.Text)},
		}
	case extract.KindImage:
		req = gateway.ChatRequest{
			System: prompt.VisionSystem,
			User: gateway.UserContent{
				Text:         prompt.BuildVision(),
				ImageDataURL: content.ImageDataURL(),
			},
		}
	default:
		return document.PageRecord{}, fmt.Errorf("page %d: unknown content kind %q", content.PageIndex+1, content.Kind)
	}

	raw, err := p.Gateway.Complete(ctx, req)
	if err != nil {
		p.Logger.Error("pipeline.page.gateway_failed",
			"page", content.PageIndex+1, "kind", content.Kind, "error", err,
		)
		return document.PageRecord{}, fmt.Errorf("page %d: %w", content.PageIndex+1, err)
	}

	rec, err := p.Normalizer.Normalize(raw, normalize.HintKey)
	if err != nil {
		p.Logger.Error("pipeline.page.normalize_failed",
			"page", content.PageIndex+1, "error", err,
		)
		return document.PageRecord{}, fmt.Errorf("page %d: %w", content.PageIndex+1, err)
	}
	rec.PageNumber = content.PageIndex + 1

	p.Logger.Info("pipeline.page.ok",
		"page", rec.PageNumber,
		"kind", content.Kind,
		"degraded", rec.Degraded(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}
