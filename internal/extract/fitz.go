package extract

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/wvf-labs/docparse/internal/common"
)

const (
	defaultRenderDPI = 150
	jpegQuality      = 95
)

// FitzExtractor extracts page content with MuPDF. Pages with a native text
// layer come back as text; pages without one (scanned/image-based PDFs) are
// rendered to a JPEG for the vision path.
type FitzExtractor struct {
	DPI    int
	Logger *slog.Logger
}

func NewFitzExtractor(dpi int, logger *slog.Logger) *FitzExtractor {
	if dpi <= 0 {
		dpi = defaultRenderDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FitzExtractor{DPI: dpi, Logger: logger}
}

// Extract implements ContentExtractor. A malformed PDF that cannot be opened
// fails the whole call; a single page failing to extract is logged and
// skipped, leaving a gap at its index.
func (e *FitzExtractor) Extract(ctx context.Context, pdf []byte) ([]RawPageContent, int, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, 0, common.NewAppError("EXTRACT_OPEN", "cannot open PDF", fmt.Errorf("%w: %v", common.ErrExtraction, err))
	}
	defer doc.Close()

	total := doc.NumPage()
	if total == 0 {
		return nil, 0, common.NewAppError("EXTRACT_EMPTY", "PDF has no pages", common.ErrExtraction)
	}

	pages := make([]RawPageContent, 0, total)
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return nil, total, ctx.Err()
		default:
		}

		content, err := e.extractPage(doc, i)
		if err != nil {
			e.Logger.Warn("extract.page_skipped", "page", i+1, "error", err)
			continue
		}
		pages = append(pages, content)
	}

	e.Logger.Info("extract.ok", "total_pages", total, "extracted_pages", len(pages))
	return pages, total, nil
}

func (e *FitzExtractor) extractPage(doc *fitz.Document, idx int) (RawPageContent, error) {
	text, err := doc.Text(idx)
	if err == nil && strings.TrimSpace(text) != "" {
		return RawPageContent{PageIndex: idx, Kind: KindText, Text: text}, nil
	}

	// No text layer: rasterize for the vision path.
	img, err := doc.ImageDPI(idx, float64(e.DPI))
	if err != nil {
		return RawPageContent{}, fmt.Errorf("render page %d: %w", idx+1, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return RawPageContent{}, fmt.Errorf("encode page %d: %w", idx+1, err)
	}

	bounds := img.Bounds()
	return RawPageContent{
		PageIndex: idx,
		Kind:      KindImage,
		Image:     buf.Bytes(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}, nil
}
