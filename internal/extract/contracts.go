package extract

import (
	"context"
	"encoding/base64"
)

// ContentKind tags a page's raw content variant.
type ContentKind string

const (
	// KindText is a page with a usable native text layer.
	KindText ContentKind = "text"
	// KindImage is a rasterized page (scanned or image-based PDF).
	KindImage ContentKind = "image"
)

// RawPageContent is one page's raw content, produced once per page and
// consumed exactly once by the page processor. Exactly one of Text or Image
// is populated, per Kind.
type RawPageContent struct {
	PageIndex int // 0-based PDF page index
	Kind      ContentKind

	Text string

	Image  []byte // JPEG-encoded page render
	Width  int
	Height int
}

// ImageDataURL returns the rasterized page as a base64 data URL suitable for
// vision-model attachment.
func (c RawPageContent) ImageDataURL() string {
	if c.Kind != KindImage || len(c.Image) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(c.Image)
}

// ContentExtractor produces raw page content from a PDF. The second return
// value is the PDF's total page count; the slice may be shorter when
// individual pages fail to extract (continue-on-error), so consumers must
// tolerate gaps in page indices.
type ContentExtractor interface {
	Extract(ctx context.Context, pdf []byte) ([]RawPageContent, int, error)
}
