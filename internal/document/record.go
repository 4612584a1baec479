package document

// Fields is an open mapping of semantic field names to values. No fixed set
// of fields is enforced; the extraction schema is advisory because document
// types vary (invoice, receipt, bill, certificate, ...).
type Fields map[string]any

// LineItem is one row of a document table. Conventional keys are
// "description", "quantity", "unit_price"/"amount" and "line_total", but
// partial items are tolerated.
type LineItem map[string]any

// Table is a named, ordered group of line items on a page.
type Table struct {
	TableName string     `json:"table_name"`
	Items     []LineItem `json:"items"`
}

// PageRecord is the normalized structured result for one PDF page.
// RawOutput is set only when structured parsing failed; such a record is a
// degraded success, not an error, and must still be displayable/exportable.
type PageRecord struct {
	DocumentType string     `json:"document_type,omitempty"`
	KeyFields    Fields     `json:"key_fields,omitempty"`
	Items        []LineItem `json:"items,omitempty"`
	Tables       []Table    `json:"tables,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	PageNumber   int        `json:"page_number"`
	RawOutput    string     `json:"raw_output,omitempty"`
	NeedsReview  bool       `json:"needs_review,omitempty"`
}

// Degraded reports whether the record carries only raw model output.
func (r PageRecord) Degraded() bool {
	return r.RawOutput != "" && r.DocumentType == "" && len(r.KeyFields) == 0 &&
		len(r.Items) == 0 && len(r.Tables) == 0
}

// Processed reports whether the record produced document-level structure: at
// least a document_type or key_fields. A record parsed from an empty object
// is not processed even though it is not degraded.
func (r PageRecord) Processed() bool {
	return r.DocumentType != "" || len(r.KeyFields) > 0
}

// LineItems returns the record's items regardless of shape: canonical records
// group items under named tables, legacy flat records carry them at the top
// level.
func (r PageRecord) LineItems() []LineItem {
	if len(r.Items) > 0 {
		return r.Items
	}
	var items []LineItem
	for _, t := range r.Tables {
		items = append(items, t.Items...)
	}
	return items
}

// Metadata describes one processing run.
type Metadata struct {
	TotalPages     int    `json:"total_pages"`
	ProcessedPages int    `json:"processed_pages"`
	ProcessingDate string `json:"processing_date"`
	Filename       string `json:"filename,omitempty"`
}

// DocumentRecord is the final aggregate delivered to export. Exactly one of
// the two shapes is populated per aggregation mode: Pages for preserve-pages,
// DocumentType/KeyFields/Items for flatten.
type DocumentRecord struct {
	Pages []PageRecord `json:"pages,omitempty"`

	DocumentType string     `json:"document_type,omitempty"`
	KeyFields    Fields     `json:"key_fields,omitempty"`
	Items        []LineItem `json:"items,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Flattened reports whether the record is in the single-logical-document form.
func (d DocumentRecord) Flattened() bool {
	return d.Pages == nil
}
