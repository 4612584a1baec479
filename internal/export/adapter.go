// Package export renders combined document records to JSON or XLSX bytes.
// Export-time failures surface as a single failure for the whole operation;
// partial workbooks are never returned.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
)

// Format selects the export rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "spreadsheet"
)

// ParseFormat converts a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "spreadsheet", "xlsx":
		return FormatXLSX, nil
	}
	return "", common.NewAppError("EXPORT_FORMAT", fmt.Sprintf("unknown export format %q", s), common.ErrInvalidInput)
}

// Adapter renders document records for download or on-disk export.
type Adapter struct {
	logger *slog.Logger
}

func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{logger: logger}
}

// Render produces the serialized document in the requested format.
func (a *Adapter) Render(doc document.DocumentRecord, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return a.renderJSON(doc)
	case FormatXLSX:
		return a.renderXLSX(doc)
	}
	return nil, common.NewAppError("EXPORT_FORMAT", fmt.Sprintf("unknown export format %q", format), common.ErrInvalidInput)
}

func (a *Adapter) renderJSON(doc document.DocumentRecord) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, common.NewAppError("EXPORT_JSON", "marshal document record", fmt.Errorf("%w: %v", common.ErrExport, err))
	}
	a.logger.Info("export.json.ok", "bytes", len(b), "flattened", doc.Flattened())
	return b, nil
}

// OutputFilename returns a timestamped export file name.
func OutputFilename(ext string) string {
	return fmt.Sprintf("extracted_data_%s.%s", time.Now().Format("20060102_150405"), ext)
}
