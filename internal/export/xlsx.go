package export

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
)

// maxSheetName is the workbook sheet-name length cap.
const maxSheetName = 31

// preferredItemColumns orders the conventional line-item fields ahead of any
// document-specific extras.
var preferredItemColumns = []string{"description", "quantity", "unit_price", "amount", "line_total"}

func (a *Adapter) renderXLSX(doc document.DocumentRecord) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	var err error
	if doc.Flattened() {
		err = writeFlattened(f, doc)
	} else {
		err = writePages(f, doc)
	}
	if err != nil {
		return nil, common.NewAppError("EXPORT_XLSX", "build workbook", fmt.Errorf("%w: %v", common.ErrExport, err))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, common.NewAppError("EXPORT_XLSX", "xlsx write", fmt.Errorf("%w: %v", common.ErrExport, err))
	}

	a.logger.Info("export.xlsx.ok",
		"bytes", buf.Len(),
		"flattened", doc.Flattened(),
		"pages", len(doc.Pages),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writePages renders the multi-page-preserving form: a Summary sheet, one
// fields sheet per page, and one sheet per table.
func writePages(f *excelize.File, doc document.DocumentRecord) error {
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	summary := [][]any{
		{"Total Pages", "Processed Pages", "Processing Date", "Filename"},
		{doc.Metadata.TotalPages, doc.Metadata.ProcessedPages, doc.Metadata.ProcessingDate, doc.Metadata.Filename},
	}
	if err := writeRows(f, "Summary", summary); err != nil {
		return err
	}

	seen := map[string]bool{"Summary": true}
	for _, page := range doc.Pages {
		if err := writePageFields(f, page, seen); err != nil {
			return err
		}

		if len(page.Tables) > 0 {
			for idx, table := range page.Tables {
				if len(table.Items) == 0 {
					continue
				}
				name := tableSheetName(page.PageNumber, idx, table.TableName, seen)
				if err := writeItems(f, name, table.Items, false); err != nil {
					return err
				}
			}
		} else if len(page.Items) > 0 {
			// Legacy shape: items directly on the page record.
			name := claimSheetName(fmt.Sprintf("Page %d - Items", page.PageNumber), seen)
			if err := writeItems(f, name, page.Items, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeFlattened renders the single-logical-document form: a Document sheet
// for the header fields and one Line Items sheet with a totals row.
func writeFlattened(f *excelize.File, doc document.DocumentRecord) error {
	if err := f.SetSheetName("Sheet1", "Document"); err != nil {
		return err
	}

	headers := []any{"document_type"}
	values := []any{doc.DocumentType}
	for _, k := range sortedKeys(doc.KeyFields) {
		headers = append(headers, k)
		values = append(values, cellValue(doc.KeyFields[k]))
	}
	headers = append(headers, "total_pages", "processed_pages", "processing_date")
	values = append(values, doc.Metadata.TotalPages, doc.Metadata.ProcessedPages, doc.Metadata.ProcessingDate)
	if err := writeRows(f, "Document", [][]any{headers, values}); err != nil {
		return err
	}

	if len(doc.Items) > 0 {
		if err := writeItems(f, "Line Items", doc.Items, true); err != nil {
			return err
		}
	}
	return nil
}

func writePageFields(f *excelize.File, page document.PageRecord, seen map[string]bool) error {
	name := claimSheetName(fmt.Sprintf("Page %d - Fields", page.PageNumber), seen)
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	var headers, values []any
	if page.Degraded() {
		headers = []any{"raw_output"}
		values = []any{page.RawOutput}
	} else {
		if page.DocumentType != "" {
			headers = append(headers, "document_type")
			values = append(values, page.DocumentType)
		}
		for _, k := range sortedKeys(page.KeyFields) {
			headers = append(headers, k)
			values = append(values, cellValue(page.KeyFields[k]))
		}
		if page.Notes != "" {
			headers = append(headers, "notes")
			values = append(values, page.Notes)
		}
	}
	return writeRows(f, name, [][]any{headers, values})
}

// writeItems writes one items table to its own sheet. When withTotal is set
// and a line_total column exists, a SUM formula row is appended below the
// data.
func writeItems(f *excelize.File, sheet string, items []document.LineItem, withTotal bool) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	cols := itemColumns(items)
	rows := make([][]any, 0, len(items)+1)
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	rows = append(rows, header)
	for _, item := range items {
		row := make([]any, len(cols))
		for i, c := range cols {
			row[i] = cellValue(item[c])
		}
		rows = append(rows, row)
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}

	if withTotal {
		for i, c := range cols {
			if c != "line_total" {
				continue
			}
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return err
			}
			labelCell, _ := excelize.CoordinatesToCellName(1, len(items)+2)
			if err := f.SetCellValue(sheet, labelCell, "Total"); err != nil {
				return err
			}
			formulaCell, _ := excelize.CoordinatesToCellName(i+1, len(items)+2)
			formula := fmt.Sprintf("SUM(%s2:%s%d)", col, col, len(items)+1)
			if err := f.SetCellFormula(sheet, formulaCell, formula); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// tableSheetName builds "Page N - <table>" sheet names, substituting the
// generic "Page N - Table K" label when the workbook cap would truncate the
// name or when it collides with an earlier sheet.
func tableSheetName(pageNumber, tableIdx int, tableName string, seen map[string]bool) string {
	name := fmt.Sprintf("Page %d - %s", pageNumber, sanitizeSheetName(tableName))
	if utf8.RuneCountInString(name) > maxSheetName || seen[name] {
		name = fmt.Sprintf("Page %d - Table %d", pageNumber, tableIdx+1)
	}
	return claimSheetName(name, seen)
}

// claimSheetName marks the name as used, suffixing a counter on collision.
// Truncation to make room for the suffix counts runes, not bytes; cutting a
// multi-byte name mid-rune would produce a sheet name the workbook rejects.
func claimSheetName(name string, seen map[string]bool) string {
	candidate := name
	for i := 2; seen[candidate]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(name, maxSheetName-len(suffix)) + suffix
	}
	seen[candidate] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// sanitizeSheetName strips characters the workbook format rejects.
func sanitizeSheetName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, strings.TrimSpace(s))
}

// itemColumns returns the union of item keys with the conventional fields
// first and any extras sorted after them, so column order is deterministic.
func itemColumns(items []document.LineItem) []string {
	present := map[string]bool{}
	for _, item := range items {
		for k := range item {
			present[k] = true
		}
	}

	var cols []string
	for _, k := range preferredItemColumns {
		if present[k] {
			cols = append(cols, k)
			delete(present, k)
		}
	}
	extras := make([]string, 0, len(present))
	for k := range present {
		extras = append(extras, k)
	}
	sort.Strings(extras)
	return append(cols, extras...)
}

func sortedKeys(m document.Fields) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cellValue flattens nested values into a cell-safe representation.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case map[string]any, []any:
		return fmt.Sprintf("%v", t)
	}
	return v
}
